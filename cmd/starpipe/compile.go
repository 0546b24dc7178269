package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/skysurvey/starpipe/internal/cuts"
	"github.com/skysurvey/starpipe/internal/dataset"
	"github.com/skysurvey/starpipe/internal/pipeline"
	"github.com/skysurvey/starpipe/internal/release"
	"github.com/spf13/cobra"
)

var (
	compileName     string
	compileCatalog  string
	compileDR       int
	compileSpectra  string
	compileOut      string
	compileCutsFile string
	compileWorkers  int

	compileVScatterMax float64
	compileTeffMin     float64
	compileTeffMax     float64
	compileFeHMin      float64
	compileSNRTrainLow float64
	compileSNRTrainHi  float64
	compileSNRTestLow  float64
	compileSNRTestHi   float64
	compileNoStarflag  bool
	compileNoASPCAP    bool
)

func init() {
	compileCmd.Flags().StringVar(&compileName, "name", "", "Dataset name (required)")
	compileCmd.Flags().StringVar(&compileCatalog, "catalog", "", "Catalog JSONL snapshot (required)")
	compileCmd.Flags().IntVar(&compileDR, "dr", int(release.DefaultRelease), "Data release (13 or 14)")
	compileCmd.Flags().StringVar(&compileSpectra, "spectra", "", "Spectrum mirror root (default $"+DataRootEnv+")")
	compileCmd.Flags().StringVar(&compileOut, "out", ".", "Output directory")
	compileCmd.Flags().StringVar(&compileCutsFile, "cuts", "", "YAML cuts file overriding the defaults")
	compileCmd.Flags().IntVar(&compileWorkers, "workers", 0, "Parallel fetch workers (0 = default)")

	compileCmd.Flags().Float64Var(&compileVScatterMax, "vscatter-max", 0, "Velocity scatter upper bound")
	compileCmd.Flags().Float64Var(&compileTeffMin, "teff-min", 0, "Effective temperature lower bound")
	compileCmd.Flags().Float64Var(&compileTeffMax, "teff-max", 0, "Effective temperature upper bound")
	compileCmd.Flags().Float64Var(&compileFeHMin, "feh-min", 0, "Metallicity lower bound")
	compileCmd.Flags().Float64Var(&compileSNRTrainLow, "snr-train-low", 0, "Training SNR lower bound")
	compileCmd.Flags().Float64Var(&compileSNRTrainHi, "snr-train-high", 0, "Training SNR upper bound")
	compileCmd.Flags().Float64Var(&compileSNRTestLow, "snr-test-low", 0, "Testing SNR lower bound")
	compileCmd.Flags().Float64Var(&compileSNRTestHi, "snr-test-high", 0, "Testing SNR upper bound")
	compileCmd.Flags().BoolVar(&compileNoStarflag, "no-starflag-cut", false, "Keep records with nonzero starflag")
	compileCmd.Flags().BoolVar(&compileNoASPCAP, "no-aspcapflag-cut", false, "Keep records with nonzero aspcapflag")

	rootCmd.AddCommand(compileCmd)
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a survey catalog into train/test datasets",
	Long: `Compile a survey catalog into train and test dataset files.

The train and test partitions share every quality cut but select from
disjoint SNR bands, so they are drawn from non-overlapping signal-quality
regimes rather than split at random.

Examples:
  starpipe compile --name apogee --catalog allstar.jsonl --dr 14
  starpipe compile --name apogee --catalog allstar.jsonl --cuts cuts.yml
  starpipe compile --name deep --catalog allstar.jsonl --snr-train-low 300`,
	RunE: runCompile,
}

func runCompile(cmd *cobra.Command, args []string) error {
	if compileName == "" {
		exitWithError(ExitConfigError, "--name is required")
	}
	if compileCatalog == "" {
		exitWithError(ExitConfigError, "--catalog is required")
	}

	rel, err := release.Parse(compileDR)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	base := cuts.Default()
	if compileCutsFile != "" {
		base, err = cuts.LoadFile(compileCutsFile, base)
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
	}
	applyCutFlags(cmd, &base)

	trainCuts, testCuts := base, base
	trainCuts.SNRMin, trainCuts.SNRMax = cuts.Train().SNRMin, cuts.Train().SNRMax
	testCuts.SNRMin, testCuts.SNRMax = cuts.Test().SNRMin, cuts.Test().SNRMax
	if cmd.Flags().Changed("snr-train-low") {
		trainCuts.SNRMin = compileSNRTrainLow
	}
	if cmd.Flags().Changed("snr-train-high") {
		trainCuts.SNRMax = compileSNRTrainHi
	}
	if cmd.Flags().Changed("snr-test-low") {
		testCuts.SNRMin = compileSNRTestLow
	}
	if cmd.Flags().Changed("snr-test-high") {
		testCuts.SNRMax = compileSNRTestHi
	}

	cfg := pipeline.SurveyConfig{
		Name:        compileName,
		CatalogPath: compileCatalog,
		SpectraRoot: dataRoot(compileSpectra),
		OutDir:      compileOut,
		Release:     rel,
		TrainCuts:   trainCuts,
		TestCuts:    testCuts,
		Workers:     compileWorkers,
		Progress:    fetchProgress(),
	}

	result, err := pipeline.CompileSurvey(context.Background(), cfg)
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	if humanOutput {
		outputHuman("compiled %s: %d train rows, %d test rows (%d skipped)\n",
			compileName, result.TrainRows, result.TestRows, result.Skipped)
		outputHuman("  train: %s\n  test:  %s\n", result.TrainPath, result.TestPath)
		if result.TrainRows == 0 && result.TestRows == 0 {
			outputHuman("note: all cuts intersected to an empty selection\n")
		}
		return nil
	}
	return outputJSON(result)
}

// applyCutFlags overrides base cut thresholds with explicitly set flags.
func applyCutFlags(cmd *cobra.Command, base *cuts.Cuts) {
	if cmd.Flags().Changed("vscatter-max") {
		base.VScatterMax = compileVScatterMax
	}
	if cmd.Flags().Changed("teff-min") {
		base.TeffMin = compileTeffMin
	}
	if cmd.Flags().Changed("teff-max") {
		base.TeffMax = compileTeffMax
	}
	if cmd.Flags().Changed("feh-min") {
		base.FeHMin = compileFeHMin
	}
	if compileNoStarflag {
		base.StarFlagCut = false
	}
	if compileNoASPCAP {
		base.ASPCAPFlagCut = false
	}
}

// fetchProgress reports fetch progress on stderr in human mode; JSON mode
// stays quiet so stdout remains a single parseable document.
func fetchProgress() dataset.ProgressReporter {
	if !humanOutput {
		return nil
	}
	return dataset.Throttle(dataset.ProgressFunc(func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rfetching spectra %d/%d", done, total)
		if done >= total {
			fmt.Fprintln(os.Stderr)
		}
	}), 10)
}

// exitCodeFor maps pipeline failures onto the command exit-code taxonomy.
func exitCodeFor(err error) int {
	if errors.Is(err, pipeline.ErrConfig) || errors.Is(err, release.ErrUnsupported) {
		return ExitConfigError
	}
	return ExitDataError
}
