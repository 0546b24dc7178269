package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/skysurvey/starpipe/internal/catalog"
	"github.com/skysurvey/starpipe/internal/cuts"
	"github.com/skysurvey/starpipe/internal/dataset"
	"github.com/skysurvey/starpipe/internal/release"
	"github.com/skysurvey/starpipe/internal/spectra"
	"github.com/skysurvey/starpipe/internal/storage"
	"github.com/skysurvey/starpipe/internal/xmatch"
)

// CrossSurveyConfig configures a cross-survey compilation: spectra and
// photometry from the survey catalog, parallaxes and proper motions from an
// independently epoched astrometric catalog.
type CrossSurveyConfig struct {
	Name        string
	CatalogPath string // Survey catalog (fixed positions, single epoch)
	AstroPath   string // Astrometric catalog (proper motions, parallaxes)
	SpectraRoot string
	OutDir      string
	Release     release.Release

	SurveyCuts cuts.Cuts // Quality cuts on the survey catalog

	// Cross-match parameters.
	MaxDist float64 // Maximum separation, arcsec
	EpochA  float64 // Survey catalog epoch, decimal year
	EpochB  float64 // Astrometric catalog epoch, decimal year

	// Astrometric quality and partitioning.
	ParallaxErrMax float64 // Maximum fractional parallax error kept
	TrainErrFrac   float64 // Fractional-error threshold splitting train/test

	Workers  int
	Progress dataset.ProgressReporter
}

// DefaultCrossSurveyCuts returns the survey-side quality cuts used for
// cross-survey compilation: the standard flag, vscatter, Teff and location
// cuts with SNR > 100 and no metallicity or surface-gravity requirement.
func DefaultCrossSurveyCuts() cuts.Cuts {
	c := cuts.Default()
	c.SNRMin = 100
	c.SNRMax = 99999
	c.FeHMin = math.Inf(-1)
	c.RequireLogG = false
	return c
}

// DefaultCrossSurveyConfig fills the cross-match and quality defaults:
// 2 arcsec tolerance, epochs 2000/2015, fractional parallax error <= 0.2,
// and a 0.1 error-fraction train/test split.
func DefaultCrossSurveyConfig() CrossSurveyConfig {
	return CrossSurveyConfig{
		SurveyCuts:     DefaultCrossSurveyCuts(),
		MaxDist:        2,
		EpochA:         2000,
		EpochB:         2015,
		ParallaxErrMax: 0.2,
		TrainErrFrac:   0.1,
	}
}

// CrossSurveyResult summarizes a completed cross-survey run.
type CrossSurveyResult struct {
	TrainPath    string `json:"train_path"`
	TestPath     string `json:"test_path"`
	ManifestPath string `json:"manifest_path"`
	Matches      int    `json:"matches"`
	TrainRows    int    `json:"train_rows"`
	TestRows     int    `json:"test_rows"`
	Skipped      int    `json:"skipped"`
}

// CompileCrossSurvey runs the cross-survey pipeline: filter both catalogs,
// propagate the astrometric catalog to the survey epoch, nearest-neighbor
// match within tolerance, derive absolute magnitudes from the matched
// parallaxes, and persist train/test partitions split by parallax quality.
//
// Zero matches is a valid (degenerate) outcome; both partitions are then
// persisted empty.
func CompileCrossSurvey(ctx context.Context, cfg CrossSurveyConfig) (*CrossSurveyResult, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: dataset name is required", ErrConfig)
	}
	if _, err := cfg.Release.RawPixels(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if cfg.MaxDist <= 0 {
		return nil, fmt.Errorf("%w: maxdist must be positive, got %g", ErrConfig, cfg.MaxDist)
	}
	if err := cfg.SurveyCuts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: survey cuts: %v", ErrConfig, err)
	}

	fetcher, err := spectra.NewDirFetcher(cfg.SpectraRoot, cfg.Release)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	survey, err := catalog.LoadJSONL(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	astro, err := catalog.LoadJSONL(cfg.AstroPath)
	if err != nil {
		return nil, err
	}

	surveyIdx, err := cfg.SurveyCuts.Apply(survey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	astroIdx := astro.ParallaxQuality(cfg.ParallaxErrMax)

	pairs, err := xmatch.Match(ctx,
		xmatch.PositionsAt(survey, surveyIdx),
		xmatch.MovingPositionsAt(astro, astroIdx),
		xmatch.Options{
			MaxDist: cfg.MaxDist,
			EpochA:  cfg.EpochA,
			EpochB:  cfg.EpochB,
			Swap:    true,
			Workers: cfg.Workers,
		})
	if err != nil {
		return nil, err
	}

	// Partition matches by astrometric quality: poorly constrained
	// parallaxes train the model, well constrained ones test it.
	var trainPairs, testPairs []xmatch.Pair
	for _, p := range pairs {
		rec := astro.Record(astroIdx[p.B])
		if rec.ParallaxError/rec.Parallax >= cfg.TrainErrFrac {
			trainPairs = append(trainPairs, p)
		} else {
			testPairs = append(testPairs, p)
		}
	}

	asm := &dataset.Assembler{
		Fetcher:  fetcher,
		Release:  cfg.Release,
		Workers:  cfg.Workers,
		Progress: cfg.Progress,
	}

	result := &CrossSurveyResult{
		TrainPath:    storage.DatasetPath(cfg.OutDir, cfg.Name, "train"),
		TestPath:     storage.DatasetPath(cfg.OutDir, cfg.Name, "test"),
		ManifestPath: storage.ManifestPath(cfg.OutDir, cfg.Name),
		Matches:      len(pairs),
	}

	manifest := dataset.NewManifest(cfg.Name, cfg.Release.String())
	if err := manifest.AddInput(cfg.CatalogPath); err != nil {
		return nil, err
	}
	if err := manifest.AddInput(cfg.AstroPath); err != nil {
		return nil, err
	}
	manifest.SetParam("maxdist_arcsec", cfg.MaxDist)
	manifest.SetParam("epoch_a", cfg.EpochA)
	manifest.SetParam("epoch_b", cfg.EpochB)
	manifest.SetParam("parallax_err_max", cfg.ParallaxErrMax)
	manifest.SetParam("train_err_frac", cfg.TrainErrFrac)

	for _, part := range []struct {
		pairs []xmatch.Pair
		path  string
		rows  *int
	}{
		{trainPairs, result.TrainPath, &result.TrainRows},
		{testPairs, result.TestPath, &result.TestRows},
	} {
		indices, teff, absmag := crossLabels(survey, astro, surveyIdx, astroIdx, part.pairs)
		compiled, stats, err := asm.Assemble(ctx, survey, indices, dataset.Options{
			ExtraNames: []string{"teff", "absmag"},
			Extra:      [][]float64{teff, absmag},
		})
		if err != nil {
			return nil, err
		}
		summary, err := dataset.Summarize(compiled)
		if err != nil {
			return nil, err
		}
		if err := storage.WriteDataset(part.path, compiled, summary); err != nil {
			return nil, err
		}
		*part.rows = compiled.Rows()
		result.Skipped += stats.Selected - stats.Assembled
	}

	manifest.TrainRows = result.TrainRows
	manifest.TestRows = result.TestRows
	manifest.Skipped = result.Skipped
	if err := manifest.Write(result.ManifestPath); err != nil {
		return nil, err
	}
	return result, nil
}

// crossLabels resolves matched pairs back to survey catalog rows and computes
// the label columns: the survey Teff and the absolute magnitude from the
// survey K magnitude and the matched parallax.
func crossLabels(survey, astro *catalog.Table, surveyIdx, astroIdx []int, pairs []xmatch.Pair) (indices []int, teff, absmag []float64) {
	for _, p := range pairs {
		sRec := survey.Record(surveyIdx[p.A])
		aRec := astro.Record(astroIdx[p.B])
		indices = append(indices, surveyIdx[p.A])
		teff = append(teff, sRec.Teff)
		absmag = append(absmag, xmatch.AbsMag(sRec.KMag, aRec.Parallax))
	}
	return indices, teff, absmag
}
