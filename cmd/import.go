package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchmonkey/stocktags/internal/importer"
	"github.com/watchmonkey/stocktags/internal/search/index"
)

var (
	flagImportPolicy   string
	flagImportExcludes []string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge stock records from another snapshot file into the configured one",
	Long: `Merge the records of <file> (JSON or YAML, bare list or manifest envelope)
into the configured snapshot.

New stock codes are appended. Records identical to the existing ones are
skipped. When both sides carry different custom tags, --policy decides:
  keep     existing tags win (default)
  replace  incoming tags win
  merge    union of both, existing entries first

Example:
  stocktags import ./export.json --policy merge --exclude '9*'`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&flagImportPolicy, "policy", string(importer.PolicyKeep), "Conflict policy: keep, replace or merge")
	importCmd.Flags().StringArrayVar(&flagImportExcludes, "exclude", nil, "Glob pattern of stock codes to skip (repeatable)")
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	policy, err := importer.ParsePolicy(flagImportPolicy)
	if err != nil {
		return err
	}
	src, err := index.LoadSnapshot(args[0])
	if err != nil {
		return err
	}

	var result *importer.Result
	err = index.ModifySnapshot(cfg.SnapshotPath, func(snap *index.Snapshot) (bool, error) {
		now := time.Now()
		r, err := importer.Merge(snap, src.Stocks, policy, flagImportExcludes, now)
		if err != nil {
			return false, err
		}
		result = r
		if r.Changed() {
			snap.Manifest.Source = args[0]
			snap.Manifest.CreatedAt = now.UTC().Format(time.RFC3339)
		}
		return r.Changed(), nil
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(result)
	}
	printSection("Import")
	printInfo("", fmt.Sprintf("%s → %s", args[0], cfg.SnapshotPath))
	printOK("", fmt.Sprintf("%d added, %d updated", result.Added, result.Updated))
	if result.Skipped > 0 {
		printInfo("", fmt.Sprintf("%d identical record(s) skipped", result.Skipped))
	}
	if result.Excluded > 0 {
		printInfo("", fmt.Sprintf("%d record(s) excluded", result.Excluded))
	}
	for _, c := range result.Conflicts {
		printWarn(c.StockCode, fmt.Sprintf("tag conflict resolved by %s: %q", policy, c.Resolved))
	}
	return nil
}
