package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchmonkey/stocktags/internal/config"
	"github.com/watchmonkey/stocktags/internal/search"
	"github.com/watchmonkey/stocktags/internal/search/index"
	"github.com/watchmonkey/stocktags/internal/tags"
)

// doctorListLimit caps how many offending stocks are listed per check.
const doctorListLimit = 20

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the config and lint every tag in the snapshot",
	Long: `Check that the config and snapshot are usable and report stocks whose
custom tags contain sections the parser drops or tags that fail validation.
Run this command when something seems wrong, or before filing a bug report.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var doctorFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Rewrite every custom-tags string in canonical form",
	Long: `Rewrite the custom tags of every stock in canonical form
("category:name{detail}" joined by ";"), dropping the sections the parser
ignores anyway. The index built from the snapshot does not change: stocks
whose tags cannot be rewritten without changing it (an empty {detail}) are
left as they are and listed.

Run 'stocktags doctor' first to see what will be fixed.`,
	Args: cobra.NoArgs,
	RunE: runDoctorFix,
}

func init() {
	doctorCmd.AddCommand(doctorFixCmd)
	rootCmd.AddCommand(doctorCmd)
}

func runDoctorFix(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printSection("stocktags doctor fix")

	var fixed, kept []string
	now := time.Now().UTC().Format(time.RFC3339)
	err = index.ModifySnapshot(cfg.SnapshotPath, func(snap *index.Snapshot) (bool, error) {
		for i := range snap.Stocks {
			r := &snap.Stocks[i]
			canonical, ok := tags.Canonical(r.CustomTags)
			if !ok {
				kept = append(kept, r.StockCode)
				continue
			}
			if canonical == r.CustomTags {
				continue
			}
			r.CustomTags = canonical
			r.UpdatedAt = now
			fixed = append(fixed, r.StockCode)
		}
		return len(fixed) > 0, nil
	})
	if err != nil {
		return err
	}

	for _, code := range kept {
		printWarn(code, "kept as is: an empty {detail} has no canonical form; edit it with 'stocktags set-tags'")
	}
	if len(fixed) == 0 {
		printOK("", "all custom tags are already canonical; nothing to fix")
		return nil
	}
	for i, code := range fixed {
		if i == doctorListLimit {
			printInfo("", fmt.Sprintf("... and %d more", len(fixed)-doctorListLimit))
			break
		}
		printOK(code, "rewritten")
	}
	fmt.Fprintf(stdout, "\n  ✓  %d stock(s) rewritten in %s\n", len(fixed), cfg.SnapshotPath)
	return nil
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("stocktags doctor")
	fmt.Fprintln(stdout)

	// ── Check 1: config file ──────────────────────────────────────────────
	fmt.Fprintln(stdout, "[ stocktags.yaml ]")
	cfgPath, _ := config.ConfigPath()
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		printWarn("", fmt.Sprintf("%s not found; using defaults (run 'stocktags config init')", cfgPath))
	}
	cfg, loadErr := loadConfig()
	if loadErr != nil {
		failD("%v", loadErr)
	} else {
		printOK("", fmt.Sprintf("snapshot_path: %s", cfg.SnapshotPath))
		printOK("", fmt.Sprintf("listen_addr: %s", cfg.ListenAddr))
	}
	fmt.Fprintln(stdout)

	// ── Check 2: dotenv overrides ─────────────────────────────────────────
	fmt.Fprintln(stdout, "[ .env ]")
	if env, err := config.LoadDotEnv(); err != nil {
		failD("%v", err)
	} else {
		n := 0
		for _, k := range []string{config.EnvSnapshot, config.EnvListenAddr, config.EnvLogLevel} {
			if env[k] != "" {
				printInfo(k, "set in .env")
				n++
			}
		}
		if n == 0 {
			printOK("", "no overrides in .env")
		}
	}
	fmt.Fprintln(stdout)

	// ── Check 3: snapshot is readable and well-formed ─────────────────────
	fmt.Fprintln(stdout, "[ Snapshot ]")
	var snap *index.Snapshot
	if loadErr == nil {
		var err error
		snap, err = index.LoadSnapshot(cfg.SnapshotPath)
		if err != nil {
			failD("%v", err)
		} else {
			printOK("", fmt.Sprintf("%d stock(s), version %d", len(snap.Stocks), snap.Manifest.SnapshotVersion))
			if dups := duplicateCodes(snap.Stocks); len(dups) > 0 {
				printWarn("", fmt.Sprintf("%d duplicate stock code(s); the last record wins: %v", len(dups), dups))
			}
		}
	} else {
		printWarn("", "skipped (config not loaded)")
	}
	fmt.Fprintln(stdout)

	// ── Check 4: snapshot lock is free ────────────────────────────────────
	fmt.Fprintln(stdout, "[ Lock ]")
	if snap != nil {
		unlock, err := index.LockSnapshot(cfg.SnapshotPath, 0)
		switch {
		case errors.Is(err, index.ErrLocked):
			printWarn("", "snapshot lock is held by another process (a running serve or set-tags)")
		case err != nil:
			failD("%v", err)
		default:
			unlock()
			printOK("", "snapshot lock is free")
		}
	} else {
		printWarn("", "skipped (snapshot not loaded)")
	}
	fmt.Fprintln(stdout)

	// ── Check 5: tag strings ──────────────────────────────────────────────
	fmt.Fprintln(stdout, "[ Tags ]")
	if snap != nil {
		listed := 0
		withIssues := 0
		for _, r := range snap.Stocks {
			_, issues := tags.Lint(r.CustomTags)
			if len(issues) == 0 {
				continue
			}
			withIssues++
			if listed < doctorListLimit {
				for _, is := range issues {
					printWarn(r.StockCode, fmt.Sprintf("%s: %q", is.Message, is.Text))
				}
				listed++
			}
		}
		if withIssues == 0 {
			printOK("", "every custom-tags string parses cleanly")
		} else {
			if withIssues > listed {
				printInfo("", fmt.Sprintf("... and %d more stock(s)", withIssues-listed))
			}
			fmt.Fprintf(stdout, "\n  ⚠  %d stock(s) with tag issues. 'stocktags doctor fix' drops\n", withIssues)
			fmt.Fprintln(stdout, "     unparseable sections and rewrites the rest in canonical form.")
			allOK = false
		}

		engine := search.NewEngine(index.NewStore())
		if err := engine.SetStockData(cmd.Context(), snap.Stocks); err != nil {
			failD("%v", err)
		} else {
			st := engine.Categories("").Statistics
			printInfo("", fmt.Sprintf("%d distinct tags: %d valid, %d warning, %d error",
				st.TotalTags, st.ValidTagsCount, st.WarningTagsCount, st.ErrorTagsCount))
			if st.ErrorTagsCount > 0 {
				printWarn("", "run 'stocktags tags <category>' to see error tags first")
			}
		}
	} else {
		printWarn("", "skipped (snapshot not loaded)")
	}
	fmt.Fprintln(stdout)

	// ── Summary ──────────────────────────────────────────────────────────────
	fmt.Fprintln(stdout, "===================")
	if allOK {
		fmt.Fprintln(stdout, "✓  All checks passed.")
	} else {
		fmt.Fprintln(stderr, "✗  One or more checks failed. See details above.")
		return fmt.Errorf("doctor found issues")
	}
	return nil
}

func duplicateCodes(stocks []index.StockRecord) []string {
	seen := make(map[string]int, len(stocks))
	var dups []string
	for _, r := range stocks {
		seen[r.StockCode]++
		if seen[r.StockCode] == 2 {
			dups = append(dups, r.StockCode)
		}
	}
	return dups
}
