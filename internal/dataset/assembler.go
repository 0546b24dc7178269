// Package dataset assembles filtered catalog selections into aligned,
// persistable train/test tables.
package dataset

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skysurvey/starpipe/internal/catalog"
	"github.com/skysurvey/starpipe/internal/release"
	"github.com/skysurvey/starpipe/internal/spectra"
)

// defaultWorkers bounds the parallel spectrum fetch stage.
const defaultWorkers = 8

// StellarLabelNames is the ordered list of label columns for single-survey
// compilation: the four global parameters followed by the per-element
// abundances in catalog order.
var StellarLabelNames = func() []string {
	names := []string{"teff", "logg", "M", "alpha"}
	return append(names, catalog.ElementNames...)
}()

// Compiled is one assembled output partition. All slices have equal length;
// row i of every column describes the catalog record at Index[i].
type Compiled struct {
	Pixels  int // Fixed gap-corrected spectrum length
	Index   []int
	Spectra [][]float64
	BestFit [][]float64 // nil unless every row carried a template

	SNR []float64
	RA  []float64
	Dec []float64

	LabelNames []string
	Labels     [][]float64 // Labels[j] is the column for LabelNames[j]
}

// Rows returns the number of assembled rows.
func (c *Compiled) Rows() int {
	return len(c.Index)
}

// Options selects which label columns a partition carries.
type Options struct {
	// StellarLabels includes the catalog's stellar parameters and element
	// abundances as label columns.
	StellarLabels bool
	// ExtraNames/Extra add caller-computed label columns (e.g. absmag for
	// cross-survey compilation). Each column must align with the selected
	// indices: Extra[j][i] labels the record at indices[i].
	ExtraNames []string
	Extra      [][]float64
}

// Stats reports the outcome of one Assemble call. Per-record fetch failures
// are recoverable: the row is skipped everywhere and counted here.
type Stats struct {
	Selected    int
	Assembled   int
	NotFound    int
	Warnings    int
	ShapeErrors int
	Duration    time.Duration
}

// Assembler fetches, gap-corrects and freezes spectra for selected records.
type Assembler struct {
	Fetcher  spectra.Fetcher
	Release  release.Release
	Workers  int
	Progress ProgressReporter
}

// rowResult is the per-record unit of parallel work.
type rowResult struct {
	ok      bool
	status  spectra.Status
	shape   bool // failed gap removal / length check
	flux    []float64
	bestFit []float64
}

// Assemble fetches the spectrum for every selected catalog row, removes the
// release's detector gaps, and assembles the surviving rows into a Compiled
// partition. Rows whose fetch fails are excluded from every parallel column;
// no partial row is ever produced. An unsupported release aborts before any
// work is done.
func (a *Assembler) Assemble(ctx context.Context, table *catalog.Table, indices []int, opts Options) (*Compiled, *Stats, error) {
	pixels, err := a.Release.CorrectedPixels()
	if err != nil {
		return nil, nil, err
	}
	for j, col := range opts.Extra {
		if len(col) != len(indices) {
			return nil, nil, fmt.Errorf("extra column %s has %d values for %d selected rows",
				opts.ExtraNames[j], len(col), len(indices))
		}
	}

	start := time.Now()
	stats := &Stats{Selected: len(indices)}

	workers := a.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	// Parallel fetch with bounded concurrency. Results land in a slice
	// keyed by selection position, so catalog row order is preserved no
	// matter how the workers are scheduled.
	results := make([]rowResult, len(indices))
	var done atomic.Int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for pos, idx := range indices {
		wg.Add(1)
		go func(pos, idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[pos] = a.fetchRow(ctx, table.Record(idx))

			if a.Progress != nil {
				a.Progress.OnProgress(int(done.Add(1)), len(indices))
			}
		}(pos, idx)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Freeze surviving rows into aligned columns, in selection order.
	c := &Compiled{Pixels: pixels, LabelNames: labelNames(opts)}
	c.Labels = make([][]float64, len(c.LabelNames))
	allBestFit := true

	for pos, idx := range indices {
		res := &results[pos]
		if !res.ok {
			switch {
			case res.shape:
				stats.ShapeErrors++
			case res.status == spectra.StatusNotFound:
				stats.NotFound++
			default:
				stats.Warnings++
			}
			continue
		}

		rec := table.Record(idx)
		c.Index = append(c.Index, idx)
		c.Spectra = append(c.Spectra, res.flux)
		if res.bestFit == nil {
			allBestFit = false
		} else {
			c.BestFit = append(c.BestFit, res.bestFit)
		}
		c.SNR = append(c.SNR, rec.SNR)
		c.RA = append(c.RA, rec.RA)
		c.Dec = append(c.Dec, rec.Dec)

		col := 0
		if opts.StellarLabels {
			c.Labels[col] = append(c.Labels[col], rec.Teff)
			c.Labels[col+1] = append(c.Labels[col+1], rec.LogG)
			c.Labels[col+2] = append(c.Labels[col+2], rec.FeH)
			c.Labels[col+3] = append(c.Labels[col+3], rec.AlphaM)
			col += 4
			for e := 0; e < catalog.NumElements; e++ {
				c.Labels[col+e] = append(c.Labels[col+e], rec.Abundances[e])
			}
			col += catalog.NumElements
		}
		for j := range opts.Extra {
			c.Labels[col+j] = append(c.Labels[col+j], opts.Extra[j][pos])
		}
	}

	if !allBestFit {
		c.BestFit = nil
	}

	stats.Assembled = c.Rows()
	stats.Duration = time.Since(start)
	return c, stats, nil
}

// fetchRow fetches and gap-corrects a single record's spectrum.
func (a *Assembler) fetchRow(ctx context.Context, rec *catalog.Record) rowResult {
	res, err := a.Fetcher.Fetch(ctx, rec)
	if err != nil || res.Status != spectra.StatusOK {
		return rowResult{status: res.Status}
	}

	flux, err := release.RemoveGaps(res.Flux, a.Release)
	if err != nil {
		return rowResult{shape: true}
	}

	var bestFit []float64
	if res.BestFit != nil {
		bestFit, err = release.RemoveGaps(res.BestFit, a.Release)
		if err != nil {
			return rowResult{shape: true}
		}
	}
	return rowResult{ok: true, status: res.Status, flux: flux, bestFit: bestFit}
}

// labelNames resolves the ordered label column names for an Options value.
func labelNames(opts Options) []string {
	var names []string
	if opts.StellarLabels {
		names = append(names, StellarLabelNames...)
	}
	names = append(names, opts.ExtraNames...)
	return names
}
