// Package cuts implements multi-criteria catalog filtering. Each configured
// cut is evaluated as an independent index set over the full table; the final
// selection is the intersection of all sets, in catalog row order.
package cuts

import (
	"fmt"

	"github.com/skysurvey/starpipe/internal/catalog"
)

// Cuts is the typed filtering configuration. Boolean fields toggle whole
// criteria; a disabled criterion does not constrain the intersection.
//
// Numeric comparisons follow the survey pipeline conventions: VScatter and
// the SNR upper bound are strict upper bounds, the SNR and FeH lower bounds
// are strict lower bounds, and the Teff bounds are inclusive.
type Cuts struct {
	StarFlagCut   bool    `yaml:"starflag_cut"`   // Require starflag == 0
	ASPCAPFlagCut bool    `yaml:"aspcapflag_cut"` // Require aspcapflag == 0
	VScatterMax   float64 `yaml:"vscatter_max"`   // vscatter < VScatterMax
	TeffMin       float64 `yaml:"teff_min"`       // teff >= TeffMin
	TeffMax       float64 `yaml:"teff_max"`       // teff <= TeffMax
	FeHMin        float64 `yaml:"feh_min"`        // [Fe/H] > FeHMin
	SNRMin        float64 `yaml:"snr_min"`        // snr > SNRMin
	SNRMax        float64 `yaml:"snr_max"`        // snr < SNRMax
	RequireLogG   bool    `yaml:"require_logg"`   // Exclude the missing-value sentinel
	LocationIDMin int64   `yaml:"location_id_min"` // location_id >= LocationIDMin
}

// Default returns the standard quality cuts shared by the train and test
// variants: clean quality flags, vscatter < 1, Teff in [4000, 5500],
// [Fe/H] > -3, a valid surface gravity, and location_id >= 2.
func Default() Cuts {
	return Cuts{
		StarFlagCut:   true,
		ASPCAPFlagCut: true,
		VScatterMax:   1,
		TeffMin:       4000,
		TeffMax:       5500,
		FeHMin:        -3,
		SNRMin:        0,
		SNRMax:        99999,
		RequireLogG:   true,
		LocationIDMin: 2,
	}
}

// Train returns the training-set variant: the default cuts with SNR in the
// upper band (200, 99999).
func Train() Cuts {
	c := Default()
	c.SNRMin = 200
	c.SNRMax = 99999
	return c
}

// Test returns the testing-set variant: the default cuts with SNR in the
// lower band (100, 200). The bands are disjoint, so the two partitions are
// drawn from non-overlapping signal-quality regimes.
func Test() Cuts {
	c := Default()
	c.SNRMin = 100
	c.SNRMax = 200
	return c
}

// Validate rejects invalid threshold combinations at construction time.
func (c Cuts) Validate() error {
	if c.TeffMin > c.TeffMax {
		return fmt.Errorf("teff_min %g exceeds teff_max %g", c.TeffMin, c.TeffMax)
	}
	if c.SNRMin >= c.SNRMax {
		return fmt.Errorf("snr band (%g, %g) is empty", c.SNRMin, c.SNRMax)
	}
	if c.VScatterMax <= 0 {
		return fmt.Errorf("vscatter_max must be positive, got %g", c.VScatterMax)
	}
	return nil
}

// DisjointSNR reports whether two cut configurations select from
// non-overlapping SNR bands. The train/test pair must satisfy this so that
// no record can land in both partitions.
func DisjointSNR(a, b Cuts) bool {
	return a.SNRMax <= b.SNRMin || b.SNRMax <= a.SNRMin
}

// Criterion is a named predicate over a single record.
type Criterion struct {
	Name  string
	Match func(*catalog.Record) bool
}

// Criteria expands the configuration into its enabled criteria. Disabled
// toggles are omitted, which is equivalent to contributing the universe to
// the intersection.
func (c Cuts) Criteria() []Criterion {
	var crits []Criterion
	if c.StarFlagCut {
		crits = append(crits, Criterion{"starflag", func(r *catalog.Record) bool {
			return r.StarFlag == 0
		}})
	}
	if c.ASPCAPFlagCut {
		crits = append(crits, Criterion{"aspcapflag", func(r *catalog.Record) bool {
			return r.ASPCAPFlag == 0
		}})
	}
	crits = append(crits,
		Criterion{"vscatter", func(r *catalog.Record) bool {
			return r.VScatter < c.VScatterMax
		}},
		Criterion{"teff_lower", func(r *catalog.Record) bool {
			return r.Teff >= c.TeffMin
		}},
		Criterion{"teff_upper", func(r *catalog.Record) bool {
			return r.Teff <= c.TeffMax
		}},
		Criterion{"feh", func(r *catalog.Record) bool {
			return r.FeH > c.FeHMin
		}},
		Criterion{"snr_lower", func(r *catalog.Record) bool {
			return r.SNR > c.SNRMin
		}},
		Criterion{"snr_upper", func(r *catalog.Record) bool {
			return r.SNR < c.SNRMax
		}},
		Criterion{"location", func(r *catalog.Record) bool {
			return r.LocationID >= c.LocationIDMin
		}},
	)
	if c.RequireLogG {
		crits = append(crits, Criterion{"logg", func(r *catalog.Record) bool {
			return r.HasLogG()
		}})
	}
	return crits
}

// Apply evaluates every enabled criterion against the table and returns the
// intersection as a row-order-preserving index sequence. An empty result is
// a valid (degenerate) selection, not an error.
func (c Cuts) Apply(table *catalog.Table) ([]int, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return ApplyCriteria(table, c.Criteria()), nil
}

// ApplyCriteria intersects the index sets of the given criteria. The result
// is independent of criterion order: set intersection is commutative, and
// every per-criterion set is produced in ascending row order.
func ApplyCriteria(table *catalog.Table, criteria []Criterion) []int {
	selected := make([]int, table.Len())
	for i := range selected {
		selected[i] = i
	}

	for _, crit := range criteria {
		set := indexSet(table, crit)
		selected = intersectSorted(selected, set)
		if len(selected) == 0 {
			break
		}
	}
	return selected
}

// indexSet evaluates one criterion independently over the full table.
func indexSet(table *catalog.Table, crit Criterion) []int {
	var set []int
	for i := 0; i < table.Len(); i++ {
		if crit.Match(table.Record(i)) {
			set = append(set, i)
		}
	}
	return set
}

// intersectSorted intersects two ascending index sequences.
func intersectSorted(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
