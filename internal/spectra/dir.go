package spectra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/skysurvey/starpipe/internal/catalog"
	"github.com/skysurvey/starpipe/internal/release"
)

// DirFetcher reads spectrum files from a local data mirror laid out as
// <root>/<release>/<location_id>/<normalized-id>.spec.
type DirFetcher struct {
	Root    string
	Release release.Release
}

// NewDirFetcher creates a fetcher rooted at the given mirror directory.
func NewDirFetcher(root string, rel release.Release) (*DirFetcher, error) {
	if root == "" {
		return nil, fmt.Errorf("spectrum root directory not configured")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("spectrum root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spectrum root is not a directory: %s", root)
	}
	return &DirFetcher{Root: root, Release: rel}, nil
}

// Path returns the spectrum file path for a record.
func (d *DirFetcher) Path(rec *catalog.Record) string {
	return filepath.Join(d.Root, d.Release.String(),
		strconv.FormatInt(rec.LocationID, 10), rec.Key()+".spec")
}

// Fetch implements Fetcher. A missing file maps to StatusNotFound and a
// malformed file to StatusWarning; neither is an error.
func (d *DirFetcher) Fetch(ctx context.Context, rec *catalog.Record) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	path := d.Path(rec)
	flux, bestFit, err := ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Status: StatusNotFound}, nil
		}
		return Result{Status: StatusWarning, Message: err.Error()}, nil
	}
	return Result{Status: StatusOK, Flux: flux, BestFit: bestFit}, nil
}
