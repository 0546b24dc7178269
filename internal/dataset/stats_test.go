package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, 2.0, std, 1e-12)

	mean, std = meanStd([]float64{3})
	assert.Equal(t, 3.0, mean)
	assert.Equal(t, 0.0, std)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 3.0, median([]float64{5, 3, 1}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
}

func TestSummarize(t *testing.T) {
	c := &Compiled{
		Pixels:     3,
		Index:      []int{0, 1},
		Spectra:    [][]float64{{1, 2, 3}, {4, 5, 6}},
		LabelNames: []string{"teff", "logg"},
		Labels: [][]float64{
			{4000, 5000},
			{2, 4},
		},
	}

	s, err := Summarize(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"teff", "logg"}, s.LabelNames)
	assert.InDelta(t, 4500.0, s.Mean[0], 1e-9)
	assert.InDelta(t, 500.0, s.Std[0], 1e-9)
	assert.InDelta(t, 3.0, s.Mean[1], 1e-12)
	assert.InDelta(t, 1.0, s.Std[1], 1e-12)

	// Median over every pixel of every spectrum.
	assert.InDelta(t, 3.5, s.PixelMedian, 1e-12)
	assert.Equal(t, 1.0, s.PixelScale)
}

func TestSummarizeEmpty(t *testing.T) {
	c := &Compiled{LabelNames: []string{"teff"}}
	s, err := Summarize(c)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, s.Mean)
	assert.Equal(t, []float64{0}, s.Std)
	assert.Equal(t, 0.0, s.PixelMedian)
	assert.Equal(t, 1.0, s.PixelScale)
	assert.False(t, math.IsNaN(s.Mean[0]))
}

func TestSummarizeRaggedColumn(t *testing.T) {
	c := &Compiled{
		Index:      []int{0, 1},
		Spectra:    [][]float64{{1}, {2}},
		LabelNames: []string{"teff"},
		Labels:     [][]float64{{4000}},
	}
	_, err := Summarize(c)
	assert.Error(t, err)
}
