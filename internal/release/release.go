// Package release encodes data-release-specific spectral layout: the raw
// pixel count of a combined spectrum and the detector gap ranges that must be
// removed before a spectrum is usable as a dataset row.
package release

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned for data releases this pipeline does not know.
// An unsupported release is a configuration error, never a silent no-op.
var ErrUnsupported = errors.New("unsupported data release")

// Release identifies a versioned survey data publication.
type Release int

// Supported data releases.
const (
	DR13 Release = 13
	DR14 Release = 14
)

// DefaultRelease is used when no release is specified.
const DefaultRelease = DR14

// rawPixels is the length of a raw combined spectrum. Both supported
// releases ship 8575-pixel combined spectra.
const rawPixels = 8575

// Range is a half-open pixel interval [Start, End) against the raw,
// unshifted spectrum.
type Range struct {
	Start int
	End   int
}

// Width returns the number of pixels in the range.
func (r Range) Width() int {
	return r.End - r.Start
}

// Gap ranges between detector cameras, per release. Order is ascending by
// start index; removal iterates them in reverse.
var gaps = map[Release][4]Range{
	DR13: {
		{0, 322},     // blue chip gap
		{3243, 3648}, // green chip gap
		{6049, 6412}, // red chip gap
		{8306, 8575},
	},
	DR14: {
		{0, 246},     // blue chip gap
		{3274, 3585}, // green chip gap
		{6080, 6344}, // red chip gap
		{8335, 8575},
	},
}

// Parse validates a numeric data-release selector.
func Parse(dr int) (Release, error) {
	switch Release(dr) {
	case DR13, DR14:
		return Release(dr), nil
	default:
		return 0, fmt.Errorf("%w: dr%d (supported: dr13, dr14)", ErrUnsupported, dr)
	}
}

// String implements fmt.Stringer.
func (r Release) String() string {
	return fmt.Sprintf("dr%d", int(r))
}

// Gaps returns the four gap ranges for a release.
func (r Release) Gaps() ([4]Range, error) {
	g, ok := gaps[r]
	if !ok {
		return [4]Range{}, fmt.Errorf("%w: %s", ErrUnsupported, r)
	}
	return g, nil
}

// RawPixels returns the expected raw spectrum length for a release.
func (r Release) RawPixels() (int, error) {
	if _, ok := gaps[r]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, r)
	}
	return rawPixels, nil
}

// CorrectedPixels returns the spectrum length after gap removal.
func (r Release) CorrectedPixels() (int, error) {
	g, err := r.Gaps()
	if err != nil {
		return 0, err
	}
	n := rawPixels
	for _, gap := range g {
		n -= gap.Width()
	}
	return n, nil
}

// RemoveGaps deletes the release's four gap ranges from a raw flux sequence
// and returns the concatenation of the remaining segments in order. The input
// is not modified.
//
// Ranges are applied from highest start index to lowest so that lower-index
// boundaries stay valid against the original, unshifted pixel indices.
func RemoveGaps(flux []float64, r Release) ([]float64, error) {
	g, err := r.Gaps()
	if err != nil {
		return nil, err
	}
	if len(flux) != rawPixels {
		return nil, fmt.Errorf("spectrum has %d pixels, %s expects %d", len(flux), r, rawPixels)
	}

	want, err := r.CorrectedPixels()
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(flux))
	copy(out, flux)
	for i := len(g) - 1; i >= 0; i-- {
		out = append(out[:g[i].Start], out[g[i].End:]...)
	}

	if len(out) != want {
		return nil, fmt.Errorf("gap removal produced %d pixels, want %d for %s", len(out), want, r)
	}
	return out, nil
}
