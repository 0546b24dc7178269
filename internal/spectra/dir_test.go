package spectra

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skysurvey/starpipe/internal/catalog"
	"github.com/skysurvey/starpipe/internal/release"
)

func TestNewDirFetcher(t *testing.T) {
	if _, err := NewDirFetcher("", release.DR14); err == nil {
		t.Error("expected error for empty root")
	}
	if _, err := NewDirFetcher(filepath.Join(t.TempDir(), "nope"), release.DR14); err == nil {
		t.Error("expected error for missing root")
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDirFetcher(file, release.DR14); err == nil {
		t.Error("expected error for non-directory root")
	}

	if _, err := NewDirFetcher(t.TempDir(), release.DR14); err != nil {
		t.Errorf("expected valid fetcher, got %v", err)
	}
}

func TestDirFetcherPath(t *testing.T) {
	d := &DirFetcher{Root: "/data", Release: release.DR14}
	rec := &catalog.Record{ID: "2M19060637+4717296", LocationID: 4102}

	want := filepath.Join("/data", "dr14", "4102", "2190606374717296.spec")
	if got := d.Path(rec); got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}

func TestDirFetcherFetch(t *testing.T) {
	root := t.TempDir()
	d, err := NewDirFetcher(root, release.DR14)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	rec := &catalog.Record{ID: "2M001", LocationID: 4102}
	if err := os.MkdirAll(filepath.Dir(d.Path(rec)), 0755); err != nil {
		t.Fatal(err)
	}
	flux := rampFlux(32)
	if err := WriteFile(d.Path(rec), flux, nil); err != nil {
		t.Fatal(err)
	}

	res, err := d.Fetch(ctx, rec)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("Status = %v, want ok", res.Status)
	}
	if len(res.Flux) != 32 {
		t.Errorf("flux length = %d, want 32", len(res.Flux))
	}

	missing := &catalog.Record{ID: "2M999", LocationID: 4102}
	res, err = d.Fetch(ctx, missing)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Status != StatusNotFound {
		t.Errorf("Status = %v, want not-found for missing file", res.Status)
	}

	corrupt := &catalog.Record{ID: "2M002", LocationID: 4102}
	if err := os.WriteFile(d.Path(corrupt), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err = d.Fetch(ctx, corrupt)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Status != StatusWarning {
		t.Errorf("Status = %v, want warning for corrupt file", res.Status)
	}
	if res.Message == "" {
		t.Error("expected diagnostic message for warning")
	}
}

func TestDirFetcherCancellation(t *testing.T) {
	d, err := NewDirFetcher(t.TempDir(), release.DR14)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Fetch(ctx, &catalog.Record{ID: "2M001"}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
