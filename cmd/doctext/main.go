// Command doctext prints the synthesized relevance document for the first
// few records of a catalog file, to eyeball what the index is fitted on.
//
// Usage:
//
//	go run ./cmd/doctext [-n 3] data/restaurants.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog/filestore"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer/document"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("doctext", flag.ContinueOnError)
	fs.SetOutput(stderr)
	n := fs.Int("n", 3, "number of records to print")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *n < 0 {
		fmt.Fprintln(stderr, "usage: doctext [-n N] <restaurants.json>")
		return 2
	}

	cat, err := filestore.New(fs.Arg(0)).Load(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	limit := min(*n, cat.Len())
	for i := 0; i < limit; i++ {
		r := cat.At(i)
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintf(stdout, "%s  %s\n", r.ID, r.Name)
		fmt.Fprintf(stdout, "  %s\n", document.Synthesize(r))
	}
	return 0
}
