// Package pipeline orchestrates catalog compilation runs: load, filter,
// optionally cross-match, assemble, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/skysurvey/starpipe/internal/catalog"
	"github.com/skysurvey/starpipe/internal/cuts"
	"github.com/skysurvey/starpipe/internal/dataset"
	"github.com/skysurvey/starpipe/internal/release"
	"github.com/skysurvey/starpipe/internal/spectra"
	"github.com/skysurvey/starpipe/internal/storage"
)

// ErrConfig marks fatal configuration errors. Runs failing with ErrConfig
// abort before any output file is written.
var ErrConfig = errors.New("configuration error")

// SurveyConfig configures a single-survey train/test compilation.
type SurveyConfig struct {
	Name        string // Dataset name; outputs are <Name>_train.db / <Name>_test.db
	CatalogPath string
	SpectraRoot string
	OutDir      string
	Release     release.Release
	TrainCuts   cuts.Cuts
	TestCuts    cuts.Cuts
	Workers     int
	Progress    dataset.ProgressReporter
}

// SurveyResult summarizes a completed compilation run.
type SurveyResult struct {
	TrainPath    string `json:"train_path"`
	TestPath     string `json:"test_path"`
	ManifestPath string `json:"manifest_path"`
	TrainRows    int    `json:"train_rows"`
	TestRows     int    `json:"test_rows"`
	Skipped      int    `json:"skipped"`
}

// CompileSurvey runs the single-survey pipeline: load the catalog, apply the
// train and test cut variants, fetch and gap-correct the selected spectra,
// and persist both partitions with their normalization statistics.
//
// An empty partition is a valid outcome and is persisted as an empty dataset;
// configuration problems abort before anything is written.
func CompileSurvey(ctx context.Context, cfg SurveyConfig) (*SurveyResult, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: dataset name is required", ErrConfig)
	}
	if _, err := cfg.Release.RawPixels(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.TrainCuts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: train cuts: %v", ErrConfig, err)
	}
	if err := cfg.TestCuts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: test cuts: %v", ErrConfig, err)
	}
	if !cuts.DisjointSNR(cfg.TrainCuts, cfg.TestCuts) {
		return nil, fmt.Errorf("%w: train snr band (%g, %g) overlaps test band (%g, %g)",
			ErrConfig, cfg.TrainCuts.SNRMin, cfg.TrainCuts.SNRMax,
			cfg.TestCuts.SNRMin, cfg.TestCuts.SNRMax)
	}

	fetcher, err := spectra.NewDirFetcher(cfg.SpectraRoot, cfg.Release)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	table, err := catalog.LoadJSONL(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	trainIdx, err := cfg.TrainCuts.Apply(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	testIdx, err := cfg.TestCuts.Apply(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	asm := &dataset.Assembler{
		Fetcher:  fetcher,
		Release:  cfg.Release,
		Workers:  cfg.Workers,
		Progress: cfg.Progress,
	}
	opts := dataset.Options{StellarLabels: true}

	result := &SurveyResult{
		TrainPath:    storage.DatasetPath(cfg.OutDir, cfg.Name, "train"),
		TestPath:     storage.DatasetPath(cfg.OutDir, cfg.Name, "test"),
		ManifestPath: storage.ManifestPath(cfg.OutDir, cfg.Name),
	}

	manifest := dataset.NewManifest(cfg.Name, cfg.Release.String())
	if err := manifest.AddInput(cfg.CatalogPath); err != nil {
		return nil, err
	}
	manifest.SetParam("train_snr_min", cfg.TrainCuts.SNRMin)
	manifest.SetParam("train_snr_max", cfg.TrainCuts.SNRMax)
	manifest.SetParam("test_snr_min", cfg.TestCuts.SNRMin)
	manifest.SetParam("test_snr_max", cfg.TestCuts.SNRMax)
	manifest.SetParam("vscatter_max", cfg.TrainCuts.VScatterMax)
	manifest.SetParam("teff_min", cfg.TrainCuts.TeffMin)
	manifest.SetParam("teff_max", cfg.TrainCuts.TeffMax)
	manifest.SetParam("feh_min", cfg.TrainCuts.FeHMin)

	for _, part := range []struct {
		indices []int
		path    string
		rows    *int
	}{
		{trainIdx, result.TrainPath, &result.TrainRows},
		{testIdx, result.TestPath, &result.TestRows},
	} {
		compiled, stats, err := asm.Assemble(ctx, table, part.indices, opts)
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
