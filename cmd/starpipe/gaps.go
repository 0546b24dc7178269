package main

import (
	"github.com/skysurvey/starpipe/internal/release"
	"github.com/spf13/cobra"
)

var gapsDR int

func init() {
	gapsCmd.Flags().IntVar(&gapsDR, "dr", int(release.DefaultRelease), "Data release (13 or 14)")
	rootCmd.AddCommand(gapsCmd)
}

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Show the detector gap layout for a data release",
	RunE:  runGaps,
}

// GapRange is one gap interval in the gaps command output.
type GapRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// GapsResponse is the gaps command output.
type GapsResponse struct {
	Release         string     `json:"release"`
	RawPixels       int        `json:"raw_pixels"`
	CorrectedPixels int        `json:"corrected_pixels"`
	Gaps            []GapRange `json:"gaps"`
}

func runGaps(cmd *cobra.Command, args []string) error {
	rel, err := release.Parse(gapsDR)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	gaps, err := rel.Gaps()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	raw, _ := rel.RawPixels()
	corrected, _ := rel.CorrectedPixels()

	resp := GapsResponse{
		Release:         rel.String(),
		RawPixels:       raw,
		CorrectedPixels: corrected,
	}
	for _, g := range gaps {
		resp.Gaps = append(resp.Gaps, GapRange{Start: g.Start, End: g.End})
	}

	if humanOutput {
		outputHuman("%s: %d raw pixels, %d after gap removal\n", resp.Release, raw, corrected)
		for _, g := range resp.Gaps {
			outputHuman("  [%d, %d)\n", g.Start, g.End)
		}
		return nil
	}
	return outputJSON(resp)
}
