package dataset

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skysurvey/starpipe/internal/catalog"
	"github.com/skysurvey/starpipe/internal/release"
	"github.com/skysurvey/starpipe/internal/spectra"
)

// fakeFetcher serves canned results keyed by record identifier. Records with
// no entry report a missing spectrum.
type fakeFetcher struct {
	results map[string]spectra.Result
}

func (f *fakeFetcher) Fetch(ctx context.Context, rec *catalog.Record) (spectra.Result, error) {
	if err := ctx.Err(); err != nil {
		return spectra.Result{}, err
	}
	res, ok := f.results[rec.ID]
	if !ok {
		return spectra.Result{Status: spectra.StatusNotFound}, nil
	}
	return res, nil
}

// rawSpectrum builds an 8575-pixel ramp offset by base, so rows are
// distinguishable after gap removal.
func rawSpectrum(base float64) []float64 {
	raw, _ := release.DR14.RawPixels()
	flux := make([]float64, raw)
	for i := range flux {
		flux[i] = base + float64(i)
	}
	return flux
}

func assemblerTable(t *testing.T, n int) *catalog.Table {
	t.Helper()
	records := make([]catalog.Record, n)
	for i := range records {
		records[i] = catalog.Record{
			ID:   fmt.Sprintf("2M%03d", i),
			SNR:  float64(100 + i),
			RA:   float64(10 + i),
			Dec:  float64(-i),
			Teff: float64(4500 + 10*i),
			LogG: 2.5,
			FeH:  -0.1 * float64(i),
		}
	}
	table, err := catalog.NewTable(records)
	require.NoError(t, err)
	return table
}

func TestAssembleAlignment(t *testing.T) {
	table := assemblerTable(t, 4)
	fetcher := &fakeFetcher{results: map[string]spectra.Result{
		"2M000": {Status: spectra.StatusOK, Flux: rawSpectrum(0)},
		"2M001": {Status: spectra.StatusOK, Flux: rawSpectrum(1000)},
		"2M002": {Status: spectra.StatusOK, Flux: rawSpectrum(2000)},
		"2M003": {Status: spectra.StatusOK, Flux: rawSpectrum(3000)},
	}}

	a := &Assembler{Fetcher: fetcher, Release: release.DR14, Workers: 3}
	c, stats, err := a.Assemble(context.Background(), table, []int{0, 1, 2, 3}, Options{StellarLabels: true})
	require.NoError(t, err)

	pixels, _ := release.DR14.CorrectedPixels()
	assert.Equal(t, pixels, c.Pixels)
	assert.Equal(t, []int{0, 1, 2, 3}, c.Index)
	assert.Equal(t, 4, c.Rows())
	assert.Equal(t, 4, stats.Assembled)

	// Row i of every parallel column describes catalog record i.
	for i := 0; i < 4; i++ {
		rec := table.Record(i)
		assert.Equal(t, rec.SNR, c.SNR[i])
		assert.Equal(t, rec.RA, c.RA[i])
		assert.Equal(t, rec.Dec, c.Dec[i])
		require.Len(t, c.Spectra[i], pixels)
		// The first surviving pixel of a DR14 ramp is raw index 246.
		assert.Equal(t, float64(i)*1000+246, c.Spectra[i][0])
	}

	// Label columns are ordered teff, logg, M, alpha, then elements.
	require.Equal(t, StellarLabelNames, c.LabelNames)
	assert.Equal(t, 4510.0, c.Labels[0][1])
	assert.Equal(t, 2.5, c.Labels[1][0])
	assert.InDelta(t, -0.3, c.Labels[2][3], 1e-12)
}

func TestAssembleSkipsWholeRows(t *testing.T) {
	table := assemblerTable(t, 5)
	fetcher := &fakeFetcher{results: map[string]spectra.Result{
		"2M000": {Status: spectra.StatusOK, Flux: rawSpectrum(0)},
		// 2M001 missing entirely
		"2M002": {Status: spectra.StatusWarning, Message: "truncated"},
		"2M003": {Status: spectra.StatusOK, Flux: []float64{1, 2, 3}}, // wrong shape
		"2M004": {Status: spectra.StatusOK, Flux: rawSpectrum(4000)},
	}}

	a := &Assembler{Fetcher: fetcher, Release: release.DR14}
	c, stats, err := a.Assemble(context.Background(), table, []int{0, 1, 2, 3, 4}, Options{StellarLabels: true})
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Selected)
	assert.Equal(t, 2, stats.Assembled)
	assert.Equal(t, 1, stats.NotFound)
	assert.Equal(t, 1, stats.Warnings)
	assert.Equal(t, 1, stats.ShapeErrors)

	// Surviving rows stay in catalog order with no partial columns.
	assert.Equal(t, []int{0, 4}, c.Index)
	assert.Equal(t, []float64{100, 104}, c.SNR)
	for _, col := range c.Labels {
		assert.Len(t, col, 2)
	}
}

func TestAssembleBestFitAllOrNothing(t *testing.T) {
	table := assemblerTable(t, 2)

	withTemplates := &fakeFetcher{results: map[string]spectra.Result{
		"2M000": {Status: spectra.StatusOK, Flux: rawSpectrum(0), BestFit: rawSpectrum(10)},
		"2M001": {Status: spectra.StatusOK, Flux: rawSpectrum(100), BestFit: rawSpectrum(110)},
	}}
	a := &Assembler{Fetcher: withTemplates, Release: release.DR14}
	c, _, err := a.Assemble(context.Background(), table, []int{0, 1}, Options{})
	require.NoError(t, err)
	require.Len(t, c.BestFit, 2)

	// One row without a template drops the column for the whole partition.
	mixed := &fakeFetcher{results: map[string]spectra.Result{
		"2M000": {Status: spectra.StatusOK, Flux: rawSpectrum(0), BestFit: rawSpectrum(10)},
		"2M001": {Status: spectra.StatusOK, Flux: rawSpectrum(100)},
	}}
	a = &Assembler{Fetcher: mixed, Release: release.DR14}
	c, _, err = a.Assemble(context.Background(), table, []int{0, 1}, Options{})
	require.NoError(t, err)
	assert.Nil(t, c.BestFit)
	assert.Equal(t, 2, c.Rows(), "missing template must not drop the row itself")
}

func TestAssembleExtraColumns(t *testing.T) {
	table := assemblerTable(t, 3)
	fetcher := &fakeFetcher{results: map[string]spectra.Result{
		"2M000": {Status: spectra.StatusOK, Flux: rawSpectrum(0)},
		"2M002": {Status: spectra.StatusOK, Flux: rawSpectrum(2000)},
	}}

	a := &Assembler{Fetcher: fetcher, Release: release.DR14}
	c, _, err := a.Assemble(context.Background(), table, []int{0, 1, 2}, Options{
		ExtraNames: []string{"absmag"},
		Extra:      [][]float64{{1.5, 2.5, 3.5}},
	})
	require.NoError(t, err)

	// 2M001 is skipped; its extra value must be skipped with it.
	require.Equal(t, []string{"absmag"}, c.LabelNames)
	assert.Equal(t, []float64{1.5, 3.5}, c.Labels[0])
}

func TestAssembleExtraLengthMismatch(t *testing.T) {
	table := assemblerTable(t, 2)
	a := &Assembler{Fetcher: &fakeFetcher{}, Release: release.DR14}

	_, _, err := a.Assemble(context.Background(), table, []int{0, 1}, Options{
		ExtraNames: []string{"absmag"},
		Extra:      [][]float64{{1.5}},
	})
	assert.Error(t, err)
}

func TestAssembleUnsupportedRelease(t *testing.T) {
	table := assemblerTable(t, 1)
	a := &Assembler{Fetcher: &fakeFetcher{}, Release: release.Release(99)}

	_, _, err := a.Assemble(context.Background(), table, []int{0}, Options{})
	assert.ErrorIs(t, err, release.ErrUnsupported)
}

func TestAssembleCancellation(t *testing.T) {
	table := assemblerTable(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &Assembler{Fetcher: &fakeFetcher{}, Release: release.DR14}
	_, _, err := a.Assemble(ctx, table, []int{0, 1, 2}, Options{})
	assert.Error(t, err)
}

func TestAssembleReportsProgress(t *testing.T) {
	table := assemblerTable(t, 6)
	fetcher := &fakeFetcher{results: map[string]spectra.Result{}}

	var mu sync.Mutex
	var calls int
	var sawFinal bool
	a := &Assembler{
		Fetcher: fetcher,
		Release: release.DR14,
		Progress: ProgressFunc(func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if done == total {
				sawFinal = true
			}
		}),
	}

	_, _, err := a.Assemble(context.Background(), table, []int{0, 1, 2, 3, 4, 5}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 6, calls)
	assert.True(t, sawFinal)
}
