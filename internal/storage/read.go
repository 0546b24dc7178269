package storage

import (
	"database/sql"
	"fmt"
)

// Dataset is a read-only handle on a persisted dataset file.
type Dataset struct {
	db *sql.DB
}

// LabelStat is one row of the label_stats table.
type LabelStat struct {
	Label string  `json:"label"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
}

// OpenDataset opens an existing dataset file for reading.
func OpenDataset(path string) (*Dataset, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Fail fast on files that are not dataset files.
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM meta").Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("not a dataset file: %w", err)
	}
	return &Dataset{db: db}, nil
}

// Close closes the dataset.
func (d *Dataset) Close() error {
	return d.db.Close()
}

// Rows returns the number of assembled rows.
func (d *Dataset) Rows() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count)
	return count, err
}

// LabelStats returns the per-label (mean, std) pairs in column order.
func (d *Dataset) LabelStats() ([]LabelStat, error) {
	rows, err := d.db.Query("SELECT label, mean, std FROM label_stats ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("querying label stats: %w", err)
	}
	defer rows.Close()

	var stats []LabelStat
	for rows.Next() {
		var s LabelStat
		if err := rows.Scan(&s.Label, &s.Mean, &s.Std); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// PixelNorm returns the (median, scale) spectral normalization pair.
func (d *Dataset) PixelNorm() (median, scale float64, err error) {
	err = d.db.QueryRow("SELECT median, scale FROM pixel_norm").Scan(&median, &scale)
	if err != nil {
		return 0, 0, fmt.Errorf("querying pixel norm: %w", err)
	}
	return median, scale, nil
}

// CatalogIndex returns the original catalog row index stored at output row i.
func (d *Dataset) CatalogIndex(row int) (int, error) {
	var idx int
	err := d.db.QueryRow("SELECT catalog_index FROM records WHERE row = ?", row).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("querying row %d: %w", row, err)
	}
	return idx, nil
}

// Spectrum returns the gap-corrected flux sequence stored at output row i.
func (d *Dataset) Spectrum(row int) ([]float64, error) {
	var blob []byte
	err := d.db.QueryRow("SELECT flux FROM spectra WHERE row = ?", row).Scan(&blob)
	if err != nil {
		return nil, fmt.Errorf("querying spectrum %d: %w", row, err)
	}
	return decodeFloats(blob)
}

// Label returns a named label value at output row i.
func (d *Dataset) Label(row int, label string) (float64, error) {
	var v float64
	query := fmt.Sprintf("SELECT %s FROM records WHERE row = ?", quoteIdent(label))
	if err := d.db.QueryRow(query, row).Scan(&v); err != nil {
		return 0, fmt.Errorf("querying label %s at row %d: %w", label, row, err)
	}
	return v, nil
}
