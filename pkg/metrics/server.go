package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HandlerFor serves the collectors gathered by g, with OpenMetrics
// negotiation and gather errors logged rather than failing the scrape.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
	})
}

// StartServer serves the default registry on a dedicated port so scrapes
// bypass the API's rate limit and timeouts. The returned function shuts it
// down.
func StartServer(port int) (shutdown func(context.Context) error) {
	return startServer(fmt.Sprintf(":%d", port), prometheus.DefaultGatherer)
}

func startServer(addr string, g prometheus.Gatherer) func(context.Context) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           newMux(g),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("metrics server failed to listen", "addr", addr, "error", err)
		return func(context.Context) error { return nil }
	}
	go func() {
		slog.Info("metrics server listening", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return server.Shutdown
}

func newMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", HandlerFor(g))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Recommender Metrics</h1><p><a href="/metrics">/metrics</a></p></body></html>`)
	})
	return mux
}
