// Package main provides the starpipe CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// DataRootEnv names the environment variable pointing at the local survey
// data mirror (the root directory of spectrum files).
const DataRootEnv = "STARPIPE_DATA"

func main() {
	// A missing .env is fine; explicit flags and the environment win.
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "starpipe",
	Short: "Survey catalog compilation pipeline",
	Long: `starpipe compiles raw survey catalog tables and spectra into
reproducible train/test datasets.

It filters catalog records by quality cuts, removes the detector gap pixels
specific to each data release, optionally cross-matches against a second
astrometric catalog with proper-motion epoch propagation, and persists the
assembled partitions as SQLite dataset files together with the normalization
statistics a downstream consumer needs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// dataRoot resolves the spectrum mirror root from a flag value or the
// environment.
func dataRoot(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(DataRootEnv)
}
