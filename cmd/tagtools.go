package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watchmonkey/stocktags/internal/tags"
)

var (
	flagStrict bool
	flagSingle bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <tags>",
	Short: "Parse a custom-tags string and show the resulting categories",
	Long: `Parse a custom-tags string such as "行业:医疗{器械};概念:AI".

By default malformed sections are dropped silently, exactly as the index
does. --strict also reports every dropped or suspicious section and exits
non-zero when there is one. --single parses one "category:tag{detail}"
string and reports every structural problem in it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

var validateCmd = &cobra.Command{
	Use:   "validate <name>",
	Short: "Classify a tag name (and optional detail) as valid, warning, error or special",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	parseCmd.Flags().BoolVar(&flagStrict, "strict", false, "Report sections the lenient parser drops")
	parseCmd.Flags().BoolVar(&flagSingle, "single", false, "Strictly parse a single category:tag{detail} string")
	validateCmd.Flags().StringVar(&flagDetail, "detail", "", "Tag detail")
	validateCmd.Flags().StringVar(&flagCategory, "category", "", "Also check the category:name{detail} structure")
	rootCmd.AddCommand(parseCmd, validateCmd)
}

func runParse(_ *cobra.Command, args []string) error {
	raw := strings.Join(args, " ")

	if flagSingle {
		res := tags.ParseTagString(raw)
		if flagJSON {
			if err := printJSON(res); err != nil {
				return err
			}
		} else if res.IsValid {
			printOK("", tags.Format(res.Category, res.Content, derefOrEmpty(res.Supplement)))
		} else {
			for _, e := range res.Errors {
				printErr("", e)
			}
		}
		if !res.IsValid {
			return fmt.Errorf("invalid tag string %q", raw)
		}
		return nil
	}

	if !flagStrict {
		parsed := tags.Parse(raw)
		if flagJSON {
			return printJSON(parsed)
		}
		printParsed(parsed)
		return nil
	}

	parsed, issues := tags.Lint(raw)
	if flagJSON {
		if err := printJSON(struct {
			Tags   tags.Parsed  `json:"tags"`
			Issues []tags.Issue `json:"issues"`
		}{parsed, nonNilIssues(issues)}); err != nil {
			return err
		}
	} else {
		printParsed(parsed)
		if len(issues) > 0 {
			printSection("Issues")
			for _, is := range issues {
				if is.Dropped {
					printErr(fmt.Sprintf("#%d", is.Section+1), fmt.Sprintf("%s: %q (dropped)", is.Message, is.Text))
				} else {
					printWarn(fmt.Sprintf("#%d", is.Section+1), fmt.Sprintf("%s: %q", is.Message, is.Text))
				}
			}
		}
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d issue(s) found", len(issues))
	}
	return nil
}

func nonNilIssues(issues []tags.Issue) []tags.Issue {
	if issues == nil {
		return []tags.Issue{}
	}
	return issues
}

func printParsed(p tags.Parsed) {
	printSection(fmt.Sprintf("Parsed (%d categories)", p.Len()))
	if p.Len() == 0 {
		printInfo("", "no tags")
		return
	}
	for _, cat := range p.Categories() {
		fmt.Fprintf(stdout, "  %s\n", cat)
		if len(p.Entries(cat)) == 0 {
			printInfo("", "(no tags)")
		}
		for _, e := range p.Entries(cat) {
			printStatus(tags.Format(cat, e.Name, e.DetailOrEmpty()), tags.Explain(e.Name, e.DetailOrEmpty()))
		}
	}
	if canonical := tags.FormatAll(p); tags.Equal(tags.Parse(canonical), p) {
		printInfo("", "canonical: "+canonical)
	} else {
		printWarn("", "no canonical form: an empty {detail} cannot be written back")
	}
}

func runValidate(_ *cobra.Command, args []string) error {
	name := args[0]
	exp := tags.Explain(name, flagDetail)

	var structure *tags.StructureResult
	if flagCategory != "" {
		r := tags.ValidateStructure(flagCategory, name, flagDetail)
		structure = &r
	}

	if flagJSON {
		return printJSON(struct {
			tags.Explanation
			Structure *tags.StructureResult `json:"structure,omitempty"`
		}{exp, structure})
	}

	printStatus(name, exp)
	if structure != nil {
		if structure.IsValid {
			printOK("", "structure is valid")
		}
		for _, e := range structure.Errors {
			printErr("", e)
		}
	}
	return nil
}
