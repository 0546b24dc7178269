package main

import (
	"github.com/skysurvey/starpipe/internal/storage"
	"github.com/spf13/cobra"
)

var (
	statsName string
	statsDir  string
)

func init() {
	statsCmd.Flags().StringVar(&statsName, "name", "", "Dataset name (required)")
	statsCmd.Flags().StringVar(&statsDir, "dir", ".", "Directory holding the dataset files")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the normalization statistics of a compiled dataset",
	Long: `Read the per-label (mean, std) pairs and the spectral pixel
normalization reference back from a compiled dataset's files.

Examples:
  starpipe stats --name apogee
  starpipe stats --name apogee --dir ./out --human`,
	RunE: runStats,
}

// PartitionStats is one partition's summary in the stats command output.
type PartitionStats struct {
	Path        string              `json:"path"`
	Rows        int                 `json:"rows"`
	PixelMedian float64             `json:"pixel_median"`
	PixelScale  float64             `json:"pixel_scale"`
	Labels      []storage.LabelStat `json:"labels"`
}

// StatsResponse is the stats command output.
type StatsResponse struct {
	Train PartitionStats `json:"train"`
	Test  PartitionStats `json:"test"`
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsName == "" {
		exitWithError(ExitConfigError, "--name is required")
	}

	var resp StatsResponse
	for _, part := range []struct {
		name string
		out  *PartitionStats
	}{
		{"train", &resp.Train},
		{"test", &resp.Test},
	} {
		path := storage.DatasetPath(statsDir, statsName, part.name)
		ds, err := storage.OpenDataset(path)
		if err != nil {
			exitWithError(ExitDataError, "opening %s partition: %v", part.name, err)
		}

		rows, err := ds.Rows()
		if err == nil {
			part.out.Labels, err = ds.LabelStats()
		}
		if err == nil {
			part.out.PixelMedian, part.out.PixelScale, err = ds.PixelNorm()
		}
		ds.Close()
		if err != nil {
			exitWithError(ExitDataError, "reading %s partition: %v", part.name, err)
		}

		part.out.Path = path
		part.out.Rows = rows
	}

	if humanOutput {
		for _, p := range []struct {
			name  string
			stats PartitionStats
		}{{"train", resp.Train}, {"test", resp.Test}} {
			outputHuman("%s (%s): %d rows, pixel median %.4f\n",
				p.name, p.stats.Path, p.stats.Rows, p.stats.PixelMedian)
			for _, l := range p.stats.Labels {
				outputHuman("  %-8s mean %12.4f  std %12.4f\n", l.Label, l.Mean, l.Std)
			}
		}
		return nil
	}
	return outputJSON(resp)
}
