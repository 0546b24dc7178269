package dataset

import (
	"fmt"
	"math"
	"sort"
)

// Summary holds the normalization statistics computed once per compilation
// run: a (mean, std) pair for each label column and a (median, scale) pair
// for the spectral pixels. The median is used for pixel normalization rather
// than the mean so a handful of outlier spectra cannot shift the reference.
type Summary struct {
	LabelNames []string
	Mean       []float64
	Std        []float64

	PixelMedian float64
	PixelScale  float64
}

// Summarize computes normalization statistics over an assembled partition.
func Summarize(c *Compiled) (*Summary, error) {
	if c.Rows() == 0 {
		return &Summary{
			LabelNames: c.LabelNames,
			Mean:       make([]float64, len(c.LabelNames)),
			Std:        make([]float64, len(c.LabelNames)),
			PixelScale: 1,
		}, nil
	}

	s := &Summary{
		LabelNames: c.LabelNames,
		Mean:       make([]float64, len(c.LabelNames)),
		Std:        make([]float64, len(c.LabelNames)),
		PixelScale: 1,
	}

	for j, col := range c.Labels {
		if len(col) != c.Rows() {
			return nil, fmt.Errorf("label column %s has %d rows, want %d",
				c.LabelNames[j], len(col), c.Rows())
		}
		s.Mean[j], s.Std[j] = meanStd(col)
	}

	pixels := make([]float64, 0, c.Rows()*c.Pixels)
	for _, spec := range c.Spectra {
		pixels = append(pixels, spec...)
	}
	s.PixelMedian = median(pixels)

	return s, nil
}

// meanStd returns the mean and population standard deviation of values.
func meanStd(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// median returns the median of values, averaging the two middle elements for
// even-length input. The input slice is sorted in place.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}
