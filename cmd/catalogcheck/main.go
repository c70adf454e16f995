// Command catalogcheck lints a restaurants JSON file before it is served or
// imported. Every problem is listed, not just the first.
//
// Exit codes: 0 when the file is valid, 1 when it has validation errors or
// cannot be parsed, 2 on usage errors.
//
// Usage:
//
//	go run ./cmd/catalogcheck [-import http://localhost:8081] data/restaurants.json
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog/validator"
)

const (
	exitOK      = 0
	exitInvalid = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("catalogcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	importURL := fs.String("import", "", "ingestion service base URL to upload the file to once it validates")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: catalogcheck [-import URL] <restaurants.json>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitUsage
	}

	n, err := validator.LintJSON(data)
	if err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			msgs := verr.Messages()
			fmt.Fprintf(stdout, "FAILED: %d problem(s) in %s\n", len(msgs), path)
			for _, m := range msgs {
				fmt.Fprintf(stdout, "  - %s\n", m)
			}
			return exitInvalid
		}
		fmt.Fprintf(stdout, "FAILED: %s: %v\n", path, err)
		return exitInvalid
	}
	fmt.Fprintf(stdout, "OK: %d restaurants validated successfully.\n", n)

	if *importURL == "" {
		return exitOK
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	status, body, err := upload(ctx, *importURL, filepath.Base(path), data)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: import failed: %v\n", err)
		return exitInvalid
	}
	fmt.Fprintf(stdout, "IMPORT: %d %s\n", status, bytes.TrimSpace(body))
	if status >= http.StatusBadRequest {
		return exitInvalid
	}
	return exitOK
}

// upload posts the document to the ingestion service's catalog endpoint.
func upload(ctx context.Context, baseURL, source string, data []byte) (int, []byte, error) {
	target := fmt.Sprintf("%s/api/v1/catalog?source=%s", baseURL, url.QueryEscape(source))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
