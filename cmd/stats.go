package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show snapshot totals and tag quality counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	ds := s.engine.DataStatistics()
	ts := s.engine.Categories("").Statistics

	if flagJSON {
		return printJSON(map[string]any{
			"data": []int{ds.TotalStocks, ds.StocksWithTags, ds.TotalCategories},
			"tags": ts,
		})
	}

	printSection("Snapshot")
	fmt.Fprintf(stdout, "  File:             %s\n", s.cfg.SnapshotPath)
	if s.snap.Manifest.CreatedAt != "" {
		fmt.Fprintf(stdout, "  Written:          %s\n", s.snap.Manifest.CreatedAt)
	}
	fmt.Fprintf(stdout, "  Stocks:           %d\n", ds.TotalStocks)
	fmt.Fprintf(stdout, "  Stocks with tags: %d\n", ds.StocksWithTags)
	fmt.Fprintf(stdout, "  Categories:       %d\n", ds.TotalCategories)

	printSection("Tags")
	fmt.Fprintf(stdout, "  Distinct tags:    %d\n", ts.TotalTags)
	printOK("", fmt.Sprintf("%d valid", ts.ValidTagsCount))
	if ts.WarningTagsCount > 0 {
		printWarn("", fmt.Sprintf("%d warning", ts.WarningTagsCount))
	}
	if ts.ErrorTagsCount > 0 {
		printErr("", fmt.Sprintf("%d error", ts.ErrorTagsCount))
	}
	return nil
}
