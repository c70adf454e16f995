package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const goodCatalog = `{"restaurants": [
	{"id": "r1", "name": "Boiling Point", "dietary_tags": [], "rating": 4.3, "price_level": 2,
	 "address": "Irvine", "lat": 33.68, "lng": -117.83, "hours_text": "11am-10pm", "source": "yelp"},
	{"id": "r2", "name": "Veggie Grill", "dietary_tags": ["vegan"], "rating": 4.1, "price_level": 1,
	 "address": "Irvine", "lat": 33.65, "lng": -117.84, "hours_text": "", "source": "google"}
]}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restaurants.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		args     func(t *testing.T) []string
		wantCode int
		wantOut  []string
	}{
		{
			name:     "valid",
			args:     func(t *testing.T) []string { return []string{writeFile(t, goodCatalog)} },
			wantCode: exitOK,
			wantOut:  []string{"OK: 2 restaurants validated successfully."},
		},
		{
			name: "lists every problem",
			args: func(t *testing.T) []string {
				return []string{writeFile(t, `[
					{"id": "a", "name": "A", "dietary_tags": ["paleo"], "rating": 4, "price_level": 2, "lat": 1, "lng": 1, "source": "yelp"},
					{"id": "a", "name": "B", "dietary_tags": [], "rating": 7, "price_level": 2, "lat": 1, "lng": 1, "source": "yelp"}
				]`)}
			},
			wantCode: exitInvalid,
			wantOut:  []string{"FAILED:", "restaurants[0].dietary_tags", "restaurants[1].rating", "restaurants[1].id"},
		},
		{
			name:     "unparseable",
			args:     func(t *testing.T) []string { return []string{writeFile(t, `{"restaurants": 5}`)} },
			wantCode: exitInvalid,
			wantOut:  []string{"FAILED:"},
		},
		{
			name:     "no arguments",
			args:     func(*testing.T) []string { return nil },
			wantCode: exitUsage,
		},
		{
			name:     "missing file",
			args:     func(t *testing.T) []string { return []string{filepath.Join(t.TempDir(), "nope.json")} },
			wantCode: exitUsage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args(t), &stdout, &stderr); code != tt.wantCode {
				t.Fatalf("exit = %d, want %d\nstdout: %s\nstderr: %s", code, tt.wantCode, stdout.String(), stderr.String())
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("stdout missing %q:\n%s", want, stdout.String())
				}
			}
		})
	}
}

func TestRunImport(t *testing.T) {
	var gotSource string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSource = r.URL.Query().Get("source")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"import_id":"i1","count":2}`))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"-import", srv.URL, writeFile(t, goodCatalog)}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit = %d: %s", code, stderr.String())
	}
	if gotSource != "restaurants.json" || string(gotBody) != goodCatalog {
		t.Errorf("upload source = %q, body %d bytes", gotSource, len(gotBody))
	}
	if !strings.Contains(stdout.String(), "IMPORT: 202") {
		t.Errorf("stdout = %s", stdout.String())
	}
}

func TestSampleCatalogIsValid(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{filepath.Join("..", "..", "data", "restaurants.json")}, &stdout, &stderr)
	if code != exitOK || !strings.Contains(stdout.String(), "OK: 8 restaurants") {
		t.Errorf("exit = %d, stdout = %q, stderr = %q", code, stdout.String(), stderr.String())
	}
}
