package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/watchmonkey/stocktags/internal/search"
	"github.com/watchmonkey/stocktags/internal/search/index"
	"github.com/watchmonkey/stocktags/internal/tags"
)

var (
	flagQuery    string
	flagCategory string
	flagDetail   string
	flagPage     int
	flagPerPage  int
)

var categoriesCmd = &cobra.Command{
	Use:   "categories [query]",
	Short: "List tag categories, optionally only those with tags matching a query",
	RunE:  runCategories,
}

var tagsCmd = &cobra.Command{
	Use:   "tags <category>",
	Short: "List one page of tags in a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runTags,
}

var stocksCmd = &cobra.Command{
	Use:   "stocks <category> <tag>",
	Short: "List one page of stocks carrying a tag",
	Args:  cobra.ExactArgs(2),
	RunE:  runStocks,
}

var detailCmd = &cobra.Command{
	Use:   "detail <category> <tag>",
	Short: "Show a tag with its validation status and every stock carrying it",
	Args:  cobra.ExactArgs(2),
	RunE:  runDetail,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search categories and, with --category, the tags inside one category",
	RunE:  runSearch,
}

func init() {
	tagsCmd.Flags().StringVar(&flagQuery, "query", "", "Only tags whose name, detail or category contains this text")
	tagsCmd.Flags().IntVar(&flagPage, "page", 1, "Page number (1-based)")
	tagsCmd.Flags().IntVar(&flagPerPage, "per-page", 0, "Tags per page (default from config)")

	stocksCmd.Flags().StringVar(&flagDetail, "detail", "", "Tag detail; an omitted flag selects the tag without a detail")
	stocksCmd.Flags().IntVar(&flagPage, "page", 1, "Page number (1-based)")
	stocksCmd.Flags().IntVar(&flagPerPage, "per-page", 0, "Stocks per page (default from config)")

	detailCmd.Flags().StringVar(&flagDetail, "detail", "", "Tag detail; an omitted flag selects the tag without a detail")

	searchCmd.Flags().StringVar(&flagCategory, "category", "", "Also list the matching tags of this category")
	searchCmd.Flags().IntVar(&flagPage, "page", 1, "Tag page number (1-based)")
	searchCmd.Flags().IntVar(&flagPerPage, "per-page", 0, "Tags per page (default from config)")

	rootCmd.AddCommand(categoriesCmd, tagsCmd, stocksCmd, detailCmd, searchCmd)
}

func runCategories(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	res := s.engine.Categories(strings.Join(args, " "))
	if flagJSON {
		return printJSON(res)
	}
	printCategories(res)
	return nil
}

func runTags(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	res := s.engine.TagsByCategory(search.SearchParams{
		SearchQuery:  flagQuery,
		CategoryName: args[0],
		TagsPage:     flagPage,
		TagsPerPage:  perPage(flagPerPage, s.cfg.TagsPerPage),
	})
	if flagJSON {
		return printJSON(res)
	}
	printTagList(args[0], res)
	return nil
}

func runStocks(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	sel := search.SelectedTag{CategoryName: args[0], TagName: args[1], TagDetail: detailFlag(cmd)}
	res := s.engine.StocksByTag(sel, search.SearchParams{
		StocksPage:    flagPage,
		StocksPerPage: perPage(flagPerPage, s.cfg.StocksPerPage),
	})
	if flagJSON {
		return printJSON(res)
	}

	printSection(fmt.Sprintf("Stocks tagged %s", tags.Format(args[0], args[1], derefOrEmpty(sel.TagDetail))))
	if res.TotalStocks == 0 {
		printInfo("", "no stocks carry this tag")
		return nil
	}
	printStocks(res.Stocks)
	fmt.Fprintf(stdout, "\npage %d/%d · %d stocks\n", res.CurrentPage, res.TotalPages, res.TotalStocks)
	return nil
}

func runDetail(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	detail := detailFlag(cmd)
	sel := s.engine.TagDetails(args[0], args[1], detail)
	if flagJSON {
		return printJSON(sel)
	}

	printSection(tags.Format(sel.CategoryName, sel.TagName, derefOrEmpty(detail)))
	printStatus("", tags.Explain(sel.TagName, derefOrEmpty(detail)))
	if len(sel.Stocks) == 0 {
		printInfo("", "no stocks carry this tag")
		return nil
	}
	fmt.Fprintf(stdout, "\n%d stocks:\n", len(sel.Stocks))
	printStocks(sel.Stocks)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	cats, tl := s.engine.SearchAndFilter(search.SearchParams{
		SearchQuery:  strings.Join(args, " "),
		CategoryName: flagCategory,
		TagsPage:     flagPage,
		TagsPerPage:  perPage(flagPerPage, s.cfg.TagsPerPage),
	})
	if flagJSON {
		return printJSON([]any{cats, tl})
	}
	printCategories(cats)
	if flagCategory != "" {
		printTagList(flagCategory, tl)
	}
	return nil
}

// detailFlag distinguishes an omitted --detail (no detail) from --detail "".
func detailFlag(cmd *cobra.Command) *string {
	if !cmd.Flags().Changed("detail") {
		return nil
	}
	d := flagDetail
	return &d
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func printCategories(res search.CategoryListResult) {
	printSection(fmt.Sprintf("Categories (%d)", len(res.Categories)))
	if len(res.Categories) == 0 {
		printInfo("", "no categories match")
		return
	}
	for _, c := range res.Categories {
		fmt.Fprintf(stdout, "  %s\n", c)
	}
	st := res.Statistics
	printInfo("", fmt.Sprintf("%d tags: %d valid, %d warning, %d error",
		st.TotalTags, st.ValidTagsCount, st.WarningTagsCount, st.ErrorTagsCount))
}

func printTagList(category string, res search.TagListResult) {
	printSection(fmt.Sprintf("Tags in %s", category))
	if res.TotalTags == 0 {
		printInfo("", "no tags")
		return
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  STATUS\tTAG\tDETAIL\tSTOCKS")
	for _, t := range res.Tags {
		st := tags.Validate(t.Name, derefOrEmpty(t.Detail))
		fmt.Fprintf(w, "  %s\t%s\t%s\t%d\n", st, t.Name, derefOrEmpty(t.Detail), t.Count)
	}
	_ = w.Flush()
	fmt.Fprintf(stdout, "\npage %d/%d · %d tags · %d valid, %d warning, %d error\n",
		res.CurrentPage, res.TotalPages, res.TotalTags,
		res.ValidTagsCount, res.WarningTagsCount, res.ErrorTagsCount)
}

func printStocks(stocks []index.StockRecord) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  CODE\tNAME\tEXCHANGE")
	for _, r := range stocks {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", r.StockCode, r.StockName, r.Exchange)
	}
	_ = w.Flush()
}

// printStatus prints one validation outcome with its icon.
func printStatus(name string, e tags.Explanation) {
	switch e.Status {
	case tags.StatusValid:
		printOK(name, e.Message)
	case tags.StatusSpecial:
		printSpecial(name, e.Message)
	case tags.StatusWarning:
		printWarn(name, e.Message)
	default:
		printErr(name, e.Message)
	}
}
