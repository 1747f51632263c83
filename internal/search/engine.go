// Package search answers category, tag and stock queries against a
// tag index and summarizes the results.
package search

import (
	"context"
	"strings"

	"github.com/watchmonkey/stocktags/internal/search/index"
	"github.com/watchmonkey/stocktags/internal/tags"
)

// Engine runs queries against an index.Store. It holds no state of its own;
// every query runs inside one read section of the store.
type Engine struct {
	store *index.Store
}

// NewEngine returns an engine reading from store.
func NewEngine(store *index.Store) *Engine {
	return &Engine{store: store}
}

// Store returns the underlying store.
func (e *Engine) Store() *index.Store { return e.store }

// SetStockData replaces the indexed snapshot.
func (e *Engine) SetStockData(ctx context.Context, records []index.StockRecord) error {
	return e.store.Load(ctx, records)
}

// UpdateTags re-indexes one stock with new custom tags.
func (e *Engine) UpdateTags(code, raw string) error {
	return e.store.UpdateTags(code, raw)
}

// DataStatistics returns record and category totals.
func (e *Engine) DataStatistics() index.DataStatistics {
	return e.store.DataStatistics()
}

// Categories lists categories, including those named with no tag. With a
// non-blank query, only categories whose name matches or that hold a
// matching tag are returned, and the statistics cover only the matching
// tags.
func (e *Engine) Categories(query string) CategoryListResult {
	var out CategoryListResult
	e.store.Read(func(v *index.View) {
		out = categories(v, newMatcher(query))
	})
	return out
}

// TagsByCategory returns one page of tags in p.CategoryName. Without a
// category the result is empty.
func (e *Engine) TagsByCategory(p SearchParams) TagListResult {
	var out TagListResult
	e.store.Read(func(v *index.View) {
		out = tagList(v, p.Normalized())
	})
	return out
}

// StocksByTag returns one page of the stocks carrying the selected tag
// identity. The identity is resolved against the index; sel.Stocks is
// ignored.
func (e *Engine) StocksByTag(sel SelectedTag, p SearchParams) StockListResult {
	p = p.Normalized()
	var stocks []index.StockRecord
	e.store.Read(func(v *index.View) {
		stocks = v.Stocks(sel.CategoryName, index.NewKey(sel.TagName, sel.TagDetail))
	})
	page, pages := paginate(stocks, p.StocksPage, p.StocksPerPage)
	return StockListResult{
		Stocks:      page,
		TotalStocks: len(stocks),
		TotalPages:  pages,
		CurrentPage: p.StocksPage,
	}
}

// TagDetails resolves the full stock list of a tag identity. An unknown
// identity yields an empty list.
func (e *Engine) TagDetails(category, name string, detail *string) SelectedTag {
	out := SelectedTag{CategoryName: category, TagName: name, TagDetail: detail}
	e.store.Read(func(v *index.View) {
		out.Stocks = v.Stocks(category, index.NewKey(name, detail))
	})
	return out
}

// SearchAndFilter computes the category list and, when p.CategoryName is
// set, the tag page for it, both from the same index state.
func (e *Engine) SearchAndFilter(p SearchParams) (CategoryListResult, TagListResult) {
	p = p.Normalized()
	var (
		cats CategoryListResult
		tl   TagListResult
	)
	e.store.Read(func(v *index.View) {
		cats = categories(v, newMatcher(p.SearchQuery))
		tl = tagList(v, p)
	})
	return cats, tl
}

func categories(v *index.View, m *matcher) CategoryListResult {
	out := CategoryListResult{Categories: []string{}}
	var counts StatusCounts
	for _, cat := range v.Categories() {
		matched := 0
		for _, key := range v.Tags(cat) {
			if !m.matchTag(cat, key) {
				continue
			}
			matched++
			counts.add(tags.Validate(key.Name, key.Detail))
		}
		if matched == 0 && m != nil && !m.contains(cat) {
			continue
		}
		out.Categories = append(out.Categories, cat)
		out.Statistics.TotalTags += matched
	}
	out.Statistics.TotalCategories = len(out.Categories)
	out.Statistics.ErrorTagsCount = counts.Error
	out.Statistics.WarningTagsCount = counts.Warning
	out.Statistics.ValidTagsCount = counts.Valid
	return out
}

func tagList(v *index.View, p SearchParams) TagListResult {
	if p.CategoryName == "" {
		return TagListResult{Tags: []TagDetails{}, CurrentPage: p.TagsPage}
	}

	m := newMatcher(p.SearchQuery)
	var (
		ranked []rankedTag
		counts StatusCounts
	)
	for _, key := range v.Tags(p.CategoryName) {
		if !m.matchTag(p.CategoryName, key) {
			continue
		}
		st := tags.Validate(key.Name, key.Detail)
		counts.add(st)
		ranked = append(ranked, rankedTag{key: key, count: v.Count(p.CategoryName, key), status: st})
	}
	sortTags(ranked)

	page, pages := paginate(ranked, p.TagsPage, p.TagsPerPage)
	details := make([]TagDetails, len(page))
	for i, rt := range page {
		details[i] = TagDetails{
			Name:   rt.key.Name,
			Detail: rt.key.DetailPtr(),
			Count:  rt.count,
			Stocks: v.Stocks(p.CategoryName, rt.key),
		}
	}

	return TagListResult{
		Tags:             details,
		TotalTags:        len(ranked),
		TotalPages:       pages,
		CurrentPage:      p.TagsPage,
		ErrorTagsCount:   counts.Error,
		WarningTagsCount: counts.Warning,
		ValidTagsCount:   counts.Valid,
	}
}

// FindStocks returns the stock whose code equals query. Failing that it
// returns every stock whose code, name or company name contains query, in
// snapshot order. A blank query finds nothing.
func (e *Engine) FindStocks(query string) []index.StockRecord {
	query = strings.TrimSpace(query)
	if query == "" {
		return []index.StockRecord{}
	}
	if r, ok := e.store.Record(query); ok {
		return []index.StockRecord{r}
	}
	m := newMatcher(query)
	out := []index.StockRecord{}
	for _, r := range e.store.Records() {
		if m.contains(r.StockCode) || m.contains(r.StockName) || m.contains(r.CompanyName) {
			out = append(out, r)
		}
	}
	return out
}
