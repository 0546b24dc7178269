// Package spectra resolves and decodes per-record spectrum files from a
// local survey data mirror.
package spectra

import (
	"context"

	"github.com/skysurvey/starpipe/internal/catalog"
)

// Status classifies the outcome of a spectrum fetch.
type Status int

const (
	// StatusOK means the flux sequence (and optional best-fit template)
	// was decoded successfully.
	StatusOK Status = iota
	// StatusNotFound means no spectrum file exists for the record.
	StatusNotFound
	// StatusWarning means a file exists but could not be used (corrupt,
	// truncated, or wrong shape).
	StatusWarning
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not-found"
	case StatusWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Result is the outcome of fetching one record's spectrum. Flux and BestFit
// are only populated when Status is StatusOK; BestFit may be nil even then.
type Result struct {
	Status  Status
	Flux    []float64
	BestFit []float64
	Message string // Diagnostic detail for StatusWarning
}

// Fetcher fetches the spectrum associated with a catalog record. A failed
// fetch is a per-record condition reported through Result.Status; the error
// return is reserved for cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, rec *catalog.Record) (Result, error)
}
