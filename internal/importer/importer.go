// Package importer merges stock records from another snapshot into an
// existing one, applying exclude filtering and MD5-based conflict
// resolution on custom tags.
package importer

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/watchmonkey/stocktags/internal/search/index"
	"github.com/watchmonkey/stocktags/internal/tags"
)

// Policy decides which custom tags survive when both sides carry different,
// non-empty tag strings for the same stock.
type Policy string

const (
	PolicyKeep    Policy = "keep"    // existing tags win
	PolicyReplace Policy = "replace" // incoming tags win
	PolicyMerge   Policy = "merge"   // union of both, existing entries first
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyKeep, PolicyReplace, PolicyMerge:
		return p, nil
	}
	return "", fmt.Errorf("unknown conflict policy %q (want keep, replace or merge)", s)
}

// ConflictPair records a custom-tags conflict found during import.
type ConflictPair struct {
	StockCode string `json:"stock_code"`
	Existing  string `json:"existing"`
	Incoming  string `json:"incoming"`
	Resolved  string `json:"resolved"`
}

// Result is returned by Merge.
type Result struct {
	Added     int            `json:"added"`
	Updated   int            `json:"updated"`
	Skipped   int            `json:"skipped"` // identical duplicates
	Excluded  int            `json:"excluded"`
	Conflicts []ConflictPair `json:"conflicts"`
}

// Changed reports whether Merge modified dst.
func (r *Result) Changed() bool { return r.Added+r.Updated > 0 }

// Merge folds incoming into dst. New stock codes are appended in input
// order; existing ones take the incoming fields, keep their created_at, and
// have their custom tags resolved by policy. Stock codes matching any of the
// excludes glob patterns are ignored.
func Merge(dst *index.Snapshot, incoming []index.StockRecord, policy Policy, excludes []string, now time.Time) (*Result, error) {
	result := &Result{Conflicts: []ConflictPair{}}
	stamp := now.UTC().Format(time.RFC3339)

	pos := make(map[string]int, len(dst.Stocks))
	for i, r := range dst.Stocks {
		pos[r.StockCode] = i
	}

	for _, in := range incoming {
		if matchesExclude(in.StockCode, excludes) {
			result.Excluded++
			continue
		}

		i, ok := pos[in.StockCode]
		if !ok {
			pos[in.StockCode] = len(dst.Stocks)
			dst.Stocks = append(dst.Stocks, in)
			result.Added++
			continue
		}

		existing := dst.Stocks[i]
		merged := in
		if existing.CreatedAt != "" {
			merged.CreatedAt = existing.CreatedAt
		}
		switch {
		case in.CustomTags == "":
			merged.CustomTags = existing.CustomTags
		case existing.CustomTags != "" && existing.CustomTags != in.CustomTags:
			merged.CustomTags = resolve(existing.CustomTags, in.CustomTags, policy)
			result.Conflicts = append(result.Conflicts, ConflictPair{
				StockCode: in.StockCode,
				Existing:  existing.CustomTags,
				Incoming:  in.CustomTags,
				Resolved:  merged.CustomTags,
			})
		}

		same, err := sameRecord(existing, merged)
		if err != nil {
			return result, err
		}
		if same {
			result.Skipped++
			continue
		}
		merged.UpdatedAt = stamp
		dst.Stocks[i] = merged
		result.Updated++
	}
	return result, nil
}

func resolve(existing, incoming string, policy Policy) string {
	switch policy {
	case PolicyReplace:
		return incoming
	case PolicyMerge:
		union := tags.Union(tags.Parse(existing), tags.Parse(incoming))
		if merged := tags.FormatAll(union); tags.Equal(tags.Parse(merged), union) {
			return merged
		}
		// Some entry has no canonical spelling; both raw strings together
		// still parse to every identity of the union.
		return existing + ";" + incoming
	default:
		return existing
	}
}

// sameRecord compares MD5 fingerprints of a and b, ignoring updated_at.
func sameRecord(a, b index.StockRecord) (bool, error) {
	fa, err := fingerprint(a)
	if err != nil {
		return false, err
	}
	fb, err := fingerprint(b)
	if err != nil {
		return false, err
	}
	return fa == fb, nil
}

// fingerprint returns the hex-encoded MD5 digest of r without its
// updated_at stamp.
func fingerprint(r index.StockRecord) (string, error) {
	r.UpdatedAt = ""
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", r.StockCode, err)
	}
	return fmt.Sprintf("%x", md5.Sum(b)), nil
}

// matchesExclude reports whether code matches any of the given glob patterns.
func matchesExclude(code string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, code); matched {
			return true
		}
	}
	return false
}
