// Package storage persists compiled datasets to SQLite files and reads
// their summary statistics back.
package storage

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/skysurvey/starpipe/internal/dataset"
	_ "modernc.org/sqlite"
)

// DatasetPath returns the deterministic file name for a partition:
// <dir>/<name>_<partition>.db.
func DatasetPath(dir, name, partition string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.db", name, partition))
}

// ManifestPath returns the manifest file name for a compilation run.
func ManifestPath(dir, name string) string {
	return filepath.Join(dir, name+"_manifest.json")
}

// WriteDataset persists one compiled partition and its summary statistics.
// Datasets are written once and never updated in place: any existing file at
// the path is replaced by the new run's output.
func WriteDataset(path string, c *dataset.Compiled, s *dataset.Summary) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale dataset: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening dataset: %w", err)
	}
	defer db.Close()

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db, c.LabelNames); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRows(tx, c); err != nil {
		return err
	}
	if err := insertStats(tx, s); err != nil {
		return err
	}
	if err := insertMeta(tx, c); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing dataset: %w", err)
	}
	return db.Close()
}

// createSchema creates the dataset tables. The records table gets one REAL
// column per label, in summary order.
func createSchema(db *sql.DB, labelNames []string) error {
	cols := []string{
		"row INTEGER PRIMARY KEY",
		"catalog_index INTEGER NOT NULL",
		"snr REAL NOT NULL",
		"ra REAL NOT NULL",
		"dec REAL NOT NULL",
	}
	for _, name := range labelNames {
		cols = append(cols, quoteIdent(name)+" REAL NOT NULL")
	}

	schema := fmt.Sprintf(`
		CREATE TABLE records (%s);

		CREATE TABLE spectra (
			row INTEGER PRIMARY KEY,
			flux BLOB NOT NULL,
			bestfit BLOB
		);

		CREATE TABLE label_stats (
			pos INTEGER PRIMARY KEY,
			label TEXT NOT NULL UNIQUE,
			mean REAL NOT NULL,
			std REAL NOT NULL
		);

		CREATE TABLE pixel_norm (
			median REAL NOT NULL,
			scale REAL NOT NULL
		);

		CREATE TABLE meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`, strings.Join(cols, ", "))

	_, err := db.Exec(schema)
	return err
}

func insertRows(tx *sql.Tx, c *dataset.Compiled) error {
	cols := []string{"row", "catalog_index", "snr", "ra", "dec"}
	for _, name := range c.LabelNames {
		cols = append(cols, quoteIdent(name))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	recStmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO records (%s) VALUES (%s)", strings.Join(cols, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("preparing records insert: %w", err)
	}
	defer recStmt.Close()

	specStmt, err := tx.Prepare("INSERT INTO spectra (row, flux, bestfit) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing spectra insert: %w", err)
	}
	defer specStmt.Close()

	for i := 0; i < c.Rows(); i++ {
		args := []interface{}{i, c.Index[i], c.SNR[i], c.RA[i], c.Dec[i]}
		for j := range c.LabelNames {
			args = append(args, c.Labels[j][i])
		}
		if _, err := recStmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting record row %d: %w", i, err)
		}

		var bestFit interface{}
		if c.BestFit != nil {
			bestFit = encodeFloats(c.BestFit[i])
		}
		if _, err := specStmt.Exec(i, encodeFloats(c.Spectra[i]), bestFit); err != nil {
			return fmt.Errorf("inserting spectrum row %d: %w", i, err)
		}
	}
	return nil
}

func insertStats(tx *sql.Tx, s *dataset.Summary) error {
	stmt, err := tx.Prepare("INSERT INTO label_stats (pos, label, mean, std) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing stats insert: %w", err)
	}
	defer stmt.Close()

	for j, name := range s.LabelNames {
		if _, err := stmt.Exec(j, name, s.Mean[j], s.Std[j]); err != nil {
			return fmt.Errorf("inserting stats for %s: %w", name, err)
		}
	}

	if _, err := tx.Exec("INSERT INTO pixel_norm (median, scale) VALUES (?, ?)",
		s.PixelMedian, s.PixelScale); err != nil {
		return fmt.Errorf("inserting pixel norm: %w", err)
	}
	return nil
}

func insertMeta(tx *sql.Tx, c *dataset.Compiled) error {
	_, err := tx.Exec("INSERT INTO meta (key, value) VALUES ('pixels', ?)",
		fmt.Sprint(c.Pixels))
	if err != nil {
		return fmt.Errorf("inserting meta: %w", err)
	}
	return nil
}

// quoteIdent quotes a column identifier. Label names come from fixed
// internal lists, but quoting keeps names like "M" unambiguous.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// encodeFloats packs a float64 slice as little-endian bytes.
func encodeFloats(values []float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeFloats unpacks little-endian bytes into a float64 slice.
func decodeFloats(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(buf))
	}
	values := make([]float64, len(buf)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return values, nil
}
