// Package catalog defines the in-memory model for survey catalog tables.
package catalog

import (
	"fmt"
	"strings"
)

// MissingValue is the sentinel used by survey pipelines for parameters that
// could not be determined. It participates in filtering as an exclusion.
const MissingValue = -9999

// ElementNames is the fixed order of per-element abundance labels carried by
// every record. Output label columns and the Abundances array share this order.
var ElementNames = []string{
	"C", "Cl", "N", "O", "Na", "Mg", "Al", "Si", "P", "S", "K", "Ca",
	"Ti", "Ti2", "V", "Cr", "Mn", "Fe", "Ni", "Cu", "Ge", "Rb", "Y", "Nd",
}

// NumElements is the length of ElementNames and of Record.Abundances.
const NumElements = 24

// Record is one row of a survey catalog table. Records are immutable once
// loaded; pipeline stages produce index sets over a Table, never mutate it.
type Record struct {
	// Identity
	ID         string `json:"id"`          // Survey-assigned identifier
	LocationID int64  `json:"location_id"` // Field/plate location key for spectrum lookup

	// Sky position
	RA    float64 `json:"ra"`    // Right ascension, degrees
	Dec   float64 `json:"dec"`   // Declination, degrees
	Epoch float64 `json:"epoch"` // Reference epoch, decimal year

	// Proper motion, milliarcsec/year. Zero for surveys without astrometry.
	PMRA  float64 `json:"pmra,omitempty"`
	PMDec float64 `json:"pmdec,omitempty"`

	// Quality
	StarFlag   int64   `json:"starflag"`   // Bitmask; zero = clean
	ASPCAPFlag int64   `json:"aspcapflag"` // Bitmask; zero = clean
	SNR        float64 `json:"snr"`
	VScatter   float64 `json:"vscatter"`

	// Stellar parameters
	Teff       float64             `json:"teff"`
	LogG       float64             `json:"logg"`
	FeH        float64             `json:"feh"`
	AlphaM     float64             `json:"alpha_m"`
	Abundances [NumElements]float64 `json:"abundances"`

	// Photometry
	KMag float64 `json:"kmag,omitempty"`

	// Astrometry (second-survey catalogs only)
	Parallax      float64 `json:"parallax,omitempty"`
	ParallaxError float64 `json:"parallax_error,omitempty"`
}

// Key returns the digits-only normalized form of the survey identifier,
// used as the lookup key for spectrum files.
func (r *Record) Key() string {
	return NormalizeID(r.ID)
}

// HasLogG reports whether the surface gravity is a real measurement rather
// than the missing-value sentinel.
func (r *Record) HasLogG() bool {
	return r.LogG != MissingValue
}

// NormalizeID strips every non-digit character from a survey identifier.
func NormalizeID(id string) string {
	var b strings.Builder
	for _, c := range id {
		if c >= '0' && c <= '9' {
			b.WriteByte(byte(c))
		}
	}
	return b.String()
}

// Table is an immutable snapshot of a catalog. Identifiers are unique within
// one snapshot; uniqueness is enforced at load time.
type Table struct {
	records []Record
	byID    map[string]int
}

// NewTable builds a table from records, rejecting duplicate identifiers.
func NewTable(records []Record) (*Table, error) {
	byID := make(map[string]int, len(records))
	for i := range records {
		id := records[i].ID
		if id == "" {
			return nil, fmt.Errorf("record %d: empty identifier", i)
		}
		if prev, ok := byID[id]; ok {
			return nil, fmt.Errorf("duplicate identifier %s at rows %d and %d", id, prev, i)
		}
		byID[id] = i
	}
	return &Table{records: records, byID: byID}, nil
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	return len(t.records)
}

// Record returns the record at catalog row i.
func (t *Table) Record(i int) *Record {
	return &t.records[i]
}

// IndexOf returns the row index for a survey identifier.
func (t *Table) IndexOf(id string) (int, bool) {
	i, ok := t.byID[id]
	return i, ok
}

// ParallaxQuality returns the row indices whose astrometry passes the
// standard quality cut: positive parallax and a fractional parallax error
// of at most maxErrFrac. Row order is preserved.
func (t *Table) ParallaxQuality(maxErrFrac float64) []int {
	var keep []int
	for i := range t.records {
		r := &t.records[i]
		if r.Parallax <= 0 {
			continue
		}
		if r.ParallaxError/r.Parallax > maxErrFrac {
			continue
		}
		keep = append(keep, i)
	}
	return keep
}
