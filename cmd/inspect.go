package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watchmonkey/stocktags/internal/search/index"
	"github.com/watchmonkey/stocktags/internal/tags"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <stock>",
	Short: "Show a stock record with its parsed and validated tags",
	Long: `Display a formatted summary of a stock in the snapshot, including its
company details, every parsed tag with its validation status, and the
sections of its custom-tags string that the parser drops.

The argument can be either:
  - An exact stock code (e.g. 600519)
  - A fragment of a code, stock name or company name (e.g. 茅台)

Example:
  stocktags inspect 600519
  stocktags inspect moutai`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

// stockReport is the --json form of one inspected stock.
type stockReport struct {
	Stock  index.StockRecord `json:"stock"`
	Tags   tags.Parsed       `json:"tags"`
	Issues []tags.Issue      `json:"issues"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	found := s.engine.FindStocks(args[0])
	if len(found) == 0 {
		return fmt.Errorf("no stock matches %q", args[0])
	}

	if flagJSON {
		reports := make([]stockReport, len(found))
		for i, r := range found {
			parsed, issues := tags.Lint(r.CustomTags)
			reports[i] = stockReport{Stock: r, Tags: parsed, Issues: nonNilIssues(issues)}
		}
		return printJSON(reports)
	}

	for i, r := range found {
		if i > 0 {
			fmt.Fprintln(stdout, strings.Repeat("─", 50))
		}
		printInspect(r)
	}
	return nil
}

func printInspect(r index.StockRecord) {
	fmt.Fprintf(stdout, "📈 %s  %s\n", r.StockCode, r.StockName)
	field := func(label, v string) {
		if v != "" {
			fmt.Fprintf(stdout, "%-10s%s\n", label+":", v)
		}
	}
	field("Company", r.CompanyName)
	field("Exchange", r.Exchange)
	field("Website", r.OfficialWebsite)
	if len(r.SectorsConcepts) > 0 {
		field("Sectors", strings.Join(r.SectorsConcepts, ", "))
	}
	field("Created", r.CreatedAt)
	field("Updated", r.UpdatedAt)

	parsed, issues := tags.Lint(r.CustomTags)
	fmt.Fprintln(stdout, "\nTags:")
	if parsed.Len() == 0 {
		fmt.Fprintln(stdout, "  (none)")
	}
	for _, cat := range parsed.Categories() {
		for _, e := range parsed.Entries(cat) {
			printStatus(tags.Format(cat, e.Name, e.DetailOrEmpty()), tags.Explain(e.Name, e.DetailOrEmpty()))
		}
	}

	if len(issues) > 0 {
		fmt.Fprintln(stdout, "\nIssues:")
		for _, is := range issues {
			msg := fmt.Sprintf("%s: %q", is.Message, is.Text)
			if is.Dropped {
				msg += " (dropped)"
			}
			printWarn(fmt.Sprintf("#%d", is.Section+1), msg)
		}
	}

	if r.CustomTags != "" {
		fmt.Fprintf(stdout, "\nRaw: %s\n", r.CustomTags)
	}
}
