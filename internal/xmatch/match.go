// Package xmatch pairs records between two independently epoched catalogs by
// positional proximity on the sphere, after propagating the moving catalog's
// positions to the fixed catalog's epoch.
package xmatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/skysurvey/starpipe/internal/catalog"
)

// defaultWorkers bounds the parallel per-query distance scans.
const defaultWorkers = 8

// Position is a fixed sky position in catalog A.
type Position struct {
	RA  float64 // degrees
	Dec float64 // degrees
}

// MovingPosition is a catalog B position with proper motion.
type MovingPosition struct {
	RA    float64 // degrees
	Dec   float64 // degrees
	PMRA  float64 // milliarcsec/year
	PMDec float64 // milliarcsec/year
}

// Pair is one accepted match: indices into the two input slices and the
// angular separation in arcseconds.
type Pair struct {
	A   int
	B   int
	Sep float64
}

// Options configures a cross-match run.
type Options struct {
	// MaxDist is the maximum accepted separation in arcseconds.
	MaxDist float64
	// EpochA and EpochB are the decimal-year reference epochs of the two
	// catalogs. Catalog B is propagated to EpochA before matching.
	EpochA float64
	EpochB float64
	// Swap selects catalog B as the query set. By default every catalog A
	// record queries for its nearest catalog B candidate.
	Swap bool
	// Workers bounds the parallel distance scans; defaultWorkers if zero.
	Workers int
}

// DefaultOptions matches with a 2 arcsecond tolerance.
func DefaultOptions() Options {
	return Options{MaxDist: 2}
}

// Match returns the nearest-candidate pairs between the two catalogs.
//
// For every record in the query set the single candidate with minimum
// separation is selected, and the pair is accepted only if that separation is
// within MaxDist; query records with no candidate in tolerance are dropped.
// Ties within floating point are broken deterministically: the lowest
// candidate index wins. A candidate may be claimed by more than one query
// record; uniqueness is not enforced here.
//
// Results are ordered by query index regardless of worker scheduling.
func Match(ctx context.Context, a []Position, b []MovingPosition, opts Options) ([]Pair, error) {
	if opts.MaxDist <= 0 {
		return nil, fmt.Errorf("maxdist must be positive, got %g", opts.MaxDist)
	}
	if len(a) == 0 || len(b) == 0 {
		return nil, nil
	}

	// Propagate catalog B to catalog A's epoch once, up front.
	moved := make([]Position, len(b))
	for i, p := range b {
		ra, dec := Propagate(p.RA, p.Dec, p.PMRA, p.PMDec, opts.EpochB, opts.EpochA)
		moved[i] = Position{RA: ra, Dec: dec}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var queries, candidates []Position
	if opts.Swap {
		queries, candidates = moved, a
	} else {
		queries, candidates = a, moved
	}

	// Each slot is written by exactly one worker, keyed by query index, so
	// the output stays in query order without any post-sort.
	found := make([]Pair, len(queries))
	matched := make([]bool, len(queries))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for qi := range queries {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(qi int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			best, sep := nearest(queries[qi], candidates)
			if best < 0 || sep*3600 > opts.MaxDist {
				return
			}
			pair := Pair{Sep: sep * 3600}
			if opts.Swap {
				pair.A, pair.B = best, qi
			} else {
				pair.A, pair.B = qi, best
			}
			found[qi] = pair
			matched[qi] = true
		}(qi)
	}
	wg.Wait()

	var pairs []Pair
	for qi := range queries {
		if matched[qi] {
			pairs = append(pairs, found[qi])
		}
	}
	return pairs, nil
}

// nearest scans all candidates and returns the index and separation (degrees)
// of the closest one. Strict less-than keeps the selection deterministic:
// among equidistant candidates the lowest index wins.
func nearest(q Position, candidates []Position) (int, float64) {
	best := -1
	bestSep := 0.0
	for ci, c := range candidates {
		sep := Separation(q.RA, q.Dec, c.RA, c.Dec)
		if best < 0 || sep < bestSep {
			best = ci
			bestSep = sep
		}
	}
	return best, bestSep
}

// PositionsAt extracts fixed positions for the given catalog rows.
func PositionsAt(t *catalog.Table, indices []int) []Position {
	out := make([]Position, len(indices))
	for i, idx := range indices {
		r := t.Record(idx)
		out[i] = Position{RA: r.RA, Dec: r.Dec}
	}
	return out
}

// MovingPositionsAt extracts positions with proper motion for the given
// catalog rows.
func MovingPositionsAt(t *catalog.Table, indices []int) []MovingPosition {
	out := make([]MovingPosition, len(indices))
	for i, idx := range indices {
		r := t.Record(idx)
		out[i] = MovingPosition{RA: r.RA, Dec: r.Dec, PMRA: r.PMRA, PMDec: r.PMDec}
	}
	return out
}
