package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog/validator"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/logger"
)

// maxCatalogBytes caps an uploaded catalog document.
const maxCatalogBytes = 32 << 20

// Importer stores a validated catalog.
type Importer interface {
	Import(ctx context.Context, req *ingestion.ImportRequest) (*ingestion.ImportResponse, error)
}

type Handler struct {
	importer Importer
	logger   *slog.Logger
}

func New(importer Importer) *Handler {
	return &Handler{
		importer: importer,
		logger:   slog.Default().With("component", "catalog-import-handler"),
	}
}

// Import accepts a catalog document, either a JSON list of restaurants or
// {"restaurants": [...]}, and replaces the stored catalog with it. Every
// problem in the document is reported at once.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCatalogBytes))
	if err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "catalog document too large")
		return
	}
	if _, err := validator.LintJSON(data); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := catalog.Decode(data)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload"
	}
	resp, err := h.importer.Import(ctx, &ingestion.ImportRequest{
		Records:   records,
		Source:    source,
		RequestID: logger.RequestID(ctx),
	})
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("catalog import failed", "error", err, "status_code", statusCode)
		h.writeError(w, statusCode, "catalog import failed")
		return
	}
	log.Info("catalog import accepted",
		"import_id", resp.ImportID,
		"records", resp.Count,
		"unchanged", resp.Unchanged,
		"published", resp.Published,
	)
	status := http.StatusAccepted
	if resp.Unchanged {
		status = http.StatusOK
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
