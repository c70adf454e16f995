package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
)

// generation builds a catalog whose ids and names all carry tag, so a
// snapshot mixing two generations is detectable.
func generation(tag string, n int) catalog.Catalog {
	records := make([]catalog.Record, n)
	for i := range records {
		records[i] = catalog.Record{
			ID:       fmt.Sprintf("%s-%d", tag, i),
			Name:     fmt.Sprintf("%s kitchen %d", tag, i),
			Cuisines: []string{"cuisine" + tag},
		}
	}
	return catalog.New(records)
}

func TestCurrentBeforeRebuild(t *testing.T) {
	m := NewManager()
	if _, err := m.Current(); !errors.Is(err, apperrors.ErrIndexNotReady) {
		t.Fatalf("Current() = %v, want ErrIndexNotReady", err)
	}
	if m.Ready() {
		t.Error("Ready() before first rebuild")
	}
}

func TestRebuildPublishes(t *testing.T) {
	m := NewManager()
	c := generation("alpha", 20)
	snap, err := m.Rebuild(context.Background(), c, "test")
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if snap.Version != 1 || snap.Len() != 20 || snap.Index.Len() != 20 || len(snap.Documents) != 20 {
		t.Fatalf("unexpected snapshot: version=%d len=%d", snap.Version, snap.Len())
	}
	for i := 0; i < c.Len(); i++ {
		if snap.Index.ID(i) != c.At(i).ID {
			t.Fatalf("row %d holds %q, want %q", i, snap.Index.ID(i), c.At(i).ID)
		}
		if want := document.Synthesize(c.At(i)); snap.Documents[i] != want {
			t.Fatalf("document %d = %q, want %q", i, snap.Documents[i], want)
		}
	}
	cur, _ := m.Current()
	if cur != snap {
		t.Error("Current() does not return the published snapshot")
	}

	next, err := m.Rebuild(context.Background(), generation("beta", 3), "test")
	if err != nil {
		t.Fatal(err)
	}
	if next.Version != 2 {
		t.Errorf("version = %d, want 2", next.Version)
	}
	if next.Fingerprint == "" || next.Fingerprint == snap.Fingerprint {
		t.Errorf("fingerprints %q and %q, want distinct", snap.Fingerprint, next.Fingerprint)
	}

	// A separate manager loading the same content agrees on the fingerprint.
	other, err := NewManager().Rebuild(context.Background(), generation("alpha", 20), "test")
	if err != nil {
		t.Fatal(err)
	}
	if other.Fingerprint != snap.Fingerprint {
		t.Error("equal catalogs produced different fingerprints")
	}
}

func TestRebuildEmptyCatalog(t *testing.T) {
	m := NewManager()
	snap, err := m.Rebuild(context.Background(), catalog.New(nil), "empty")
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if snap.Len() != 0 || len(snap.Index.Query("tacos")) != 0 {
		t.Error("empty catalog should produce an empty index")
	}
}

func TestFailedRebuildKeepsPrevious(t *testing.T) {
	m := NewManager()
	good, err := m.Rebuild(context.Background(), generation("good", 5), "test")
	if err != nil {
		t.Fatal(err)
	}

	dup := catalog.New([]catalog.Record{{ID: "x", Name: "a"}, {ID: "x", Name: "b"}})
	if _, err := m.Rebuild(context.Background(), dup, "test"); !errors.Is(err, apperrors.ErrRebuildFailed) {
		t.Fatalf("Rebuild(dup) = %v, want ErrRebuildFailed", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Rebuild(ctx, generation("cancelled", 5), "test")
	if !errors.Is(err, apperrors.ErrRebuildFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Rebuild(cancelled) = %v", err)
	}

	cur, _ := m.Current()
	if cur != good {
		t.Error("failed rebuild replaced the live snapshot")
	}
	if m.Building() {
		t.Error("building flag left set")
	}
}

func TestRebuildRejectsConcurrent(t *testing.T) {
	m := NewManager()
	entered := make(chan struct{})
	release := make(chan struct{})
	m.beforePublish = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.Rebuild(context.Background(), generation("slow", 10), "test")
		done <- err
	}()
	<-entered

	if _, err := m.Rebuild(context.Background(), generation("fast", 10), "test"); !errors.Is(err, apperrors.ErrRebuildInProgress) {
		t.Errorf("concurrent Rebuild() = %v, want ErrRebuildInProgress", err)
	}
	if _, err := m.Current(); !errors.Is(err, apperrors.ErrIndexNotReady) {
		t.Error("snapshot visible before the swap")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("slow rebuild failed: %v", err)
	}
	m.beforePublish = nil
	if _, err := m.Rebuild(context.Background(), generation("after", 2), "test"); err != nil {
		t.Errorf("rebuild after release = %v", err)
	}
}

func TestSnapshotsNeverMixGenerations(t *testing.T) {
	m := NewManager()
	if _, err := m.Rebuild(context.Background(), generation("g0", 50), "test"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap, err := m.Current()
				if err != nil {
					errs <- err
					return
				}
				if err := checkConsistent(snap); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	for gen := 1; gen <= 30; gen++ {
		c := generation(fmt.Sprintf("g%d", gen), 20+gen)
		for {
			_, err := m.Rebuild(context.Background(), c, "test")
			if errors.Is(err, apperrors.ErrRebuildInProgress) {
				continue
			}
			if err != nil {
				t.Fatal(err)
			}
			break
		}
	}
	cancel()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func checkConsistent(snap *Snapshot) error {
	if snap.Index.Len() != snap.Len() || len(snap.Documents) != snap.Len() {
		return fmt.Errorf("version %d: index %d rows, catalog %d", snap.Version, snap.Index.Len(), snap.Len())
	}
	for i := 0; i < snap.Len(); i++ {
		if snap.Index.ID(i) != snap.Catalog.At(i).ID {
			return fmt.Errorf("version %d row %d: index %q, catalog %q", snap.Version, i, snap.Index.ID(i), snap.Catalog.At(i).ID)
		}
	}
	return nil
}
