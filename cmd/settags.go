package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchmonkey/stocktags/internal/search/index"
	"github.com/watchmonkey/stocktags/internal/tags"
)

var setTagsCmd = &cobra.Command{
	Use:   "set-tags <stock_code> <tags>",
	Short: "Replace the custom tags of one stock in the snapshot file",
	Long: `Replace the custom tags of one stock and write the snapshot back.

The snapshot is rewritten atomically while holding <snapshot>.lock, so a
running "stocktags serve" with persist_updates enabled and this command do
not overwrite each other. Pass "" to clear a stock's tags.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSetTags,
}

func init() {
	rootCmd.AddCommand(setTagsCmd)
}

func runSetTags(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	code := args[0]
	raw := strings.Join(args[1:], " ")

	parsed, issues := tags.Lint(raw)

	err = index.UpdateSnapshotTags(cfg.SnapshotPath, code, raw, time.Now())
	if errors.Is(err, index.ErrNotFound) {
		return fmt.Errorf("stock %s is not in %s", code, cfg.SnapshotPath)
	}
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(struct {
			StockCode string       `json:"stock_code"`
			Tags      tags.Parsed  `json:"tags"`
			Issues    []tags.Issue `json:"issues"`
		}{code, parsed, nonNilIssues(issues)})
	}

	printOK(code, "tags updated")
	printParsed(parsed)
	for _, is := range issues {
		printWarn(fmt.Sprintf("#%d", is.Section+1), fmt.Sprintf("%s: %q", is.Message, is.Text))
	}
	return nil
}
