package search

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/watchmonkey/stocktags/internal/search/index"
)

// matcher does case-insensitive substring matching. A Caser is stateful,
// so each query builds its own matcher.
type matcher struct {
	fold  cases.Caser
	query string
}

// newMatcher returns nil for a blank query, meaning "match everything".
func newMatcher(query string) *matcher {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	m := &matcher{fold: cases.Fold()}
	m.query = m.fold.String(query)
	return m
}

func (m *matcher) contains(s string) bool {
	return strings.Contains(m.fold.String(s), m.query)
}

// matchTag reports whether the tag name, its detail or its category contains
// the query.
func (m *matcher) matchTag(category string, key index.TagKey) bool {
	if m == nil {
		return true
	}
	return m.contains(key.Name) ||
		(key.HasDetail && m.contains(key.Detail)) ||
		m.contains(category)
}
