package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchmonkey/stocktags/internal/search/index"
)

func newEngine(t *testing.T, records ...index.StockRecord) *Engine {
	t.Helper()
	store := index.NewStore(index.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	e := NewEngine(store)
	require.NoError(t, e.SetStockData(context.Background(), records))
	return e
}

func ptr(s string) *string { return &s }

func codes(stocks []index.StockRecord) []string {
	out := make([]string, len(stocks))
	for i, s := range stocks {
		out[i] = s.StockCode
	}
	return out
}

func TestEngine_EndToEndScenario(t *testing.T) {
	e := newEngine(t,
		index.StockRecord{StockCode: "A", CustomTags: "行业:医疗"},
		index.StockRecord{StockCode: "B", CustomTags: "行业:医疗{器械};概念:AI"},
	)

	cats := e.Categories("")
	assert.Equal(t, []string{"行业", "概念"}, cats.Categories)
	assert.Equal(t, 3, cats.Statistics.TotalTags)
	assert.Equal(t, 2, cats.Statistics.TotalCategories)

	tl := e.TagsByCategory(SearchParams{CategoryName: "行业", TagsPage: 1, TagsPerPage: 10})
	require.Len(t, tl.Tags, 2)
	assert.Equal(t, "医疗", tl.Tags[0].Name)
	assert.Nil(t, tl.Tags[0].Detail)
	assert.Equal(t, 1, tl.Tags[0].Count)
	assert.Equal(t, []string{"A"}, codes(tl.Tags[0].Stocks))
	assert.Equal(t, "医疗", tl.Tags[1].Name)
	require.NotNil(t, tl.Tags[1].Detail)
	assert.Equal(t, "器械", *tl.Tags[1].Detail)
	assert.Equal(t, 1, tl.Tags[1].Count)

	sl := e.StocksByTag(SelectedTag{CategoryName: "行业", TagName: "医疗"}, SearchParams{StocksPage: 1, StocksPerPage: 10})
	assert.Equal(t, []string{"A"}, codes(sl.Stocks))
	assert.Equal(t, 1, sl.TotalStocks)
	assert.Equal(t, 1, sl.TotalPages)
}

func TestEngine_CategoriesSearch(t *testing.T) {
	e := newEngine(t,
		index.StockRecord{StockCode: "A", CustomTags: "行业:医疗;概念:AI{大模型}"},
		index.StockRecord{StockCode: "B", CustomTags: "概念:芯片;地区:上海"},
	)

	r := e.Categories("ai")
	assert.Equal(t, []string{"概念"}, r.Categories)
	assert.Equal(t, 1, r.Statistics.TotalTags)
	assert.Equal(t, 1, r.Statistics.TotalCategories)

	r = e.Categories("大模型")
	assert.Equal(t, []string{"概念"}, r.Categories)

	// a category-name hit counts every tag in that category
	r = e.Categories("地区")
	assert.Equal(t, []string{"地区"}, r.Categories)
	assert.Equal(t, 1, r.Statistics.TotalTags)

	r = e.Categories("nothing-matches")
	assert.Empty(t, r.Categories)
	assert.NotNil(t, r.Categories)
	assert.Equal(t, 0, r.Statistics.TotalTags)

	r = e.Categories("   ")
	assert.Len(t, r.Categories, 3)
}

func TestEngine_TagsByCategoryOrderingAndRollups(t *testing.T) {
	e := newEngine(t,
		index.StockRecord{StockCode: "1", CustomTags: "c:popular;c:铜;c:a"},
		index.StockRecord{StockCode: "2", CustomTags: "c:popular;c:this tag name is far too long"},
		index.StockRecord{StockCode: "3", CustomTags: "c:popular;c:beta"},
	)

	tl := e.TagsByCategory(SearchParams{CategoryName: "c", TagsPage: 1, TagsPerPage: 2})
	assert.Equal(t, 5, tl.TotalTags)
	assert.Equal(t, 3, tl.TotalPages)
	assert.Equal(t, 1, tl.CurrentPage)
	require.Len(t, tl.Tags, 2)
	// error first, then warning
	assert.Equal(t, "a", tl.Tags[0].Name)
	assert.Equal(t, "this tag name is far too long", tl.Tags[1].Name)
	// rollups cover the whole category, special counted as valid
	assert.Equal(t, 1, tl.ErrorTagsCount)
	assert.Equal(t, 1, tl.WarningTagsCount)
	assert.Equal(t, 3, tl.ValidTagsCount)

	tl = e.TagsByCategory(SearchParams{CategoryName: "c", TagsPage: 2, TagsPerPage: 2})
	require.Len(t, tl.Tags, 2)
	assert.Equal(t, "铜", tl.Tags[0].Name) // special before valid
	assert.Equal(t, "popular", tl.Tags[1].Name)
	assert.Equal(t, 3, tl.Tags[1].Count)

	tl = e.TagsByCategory(SearchParams{CategoryName: "c", TagsPage: 3, TagsPerPage: 2})
	require.Len(t, tl.Tags, 1)
	assert.Equal(t, "beta", tl.Tags[0].Name)
}

func TestEngine_TagsByCategoryPaginationBoundary(t *testing.T) {
	var recs []index.StockRecord
	for i := 0; i < 5; i++ {
		recs = append(recs, index.StockRecord{StockCode: fmt.Sprint(i), CustomTags: fmt.Sprintf("X:tag%d", i)})
	}
	e := newEngine(t, recs...)

	tl := e.TagsByCategory(SearchParams{CategoryName: "X", TagsPage: 9999, TagsPerPage: 10})
	assert.Empty(t, tl.Tags)
	assert.NotNil(t, tl.Tags)
	assert.Equal(t, 1, tl.TotalPages)
	assert.Equal(t, 5, tl.TotalTags)
	assert.Equal(t, 5, tl.ValidTagsCount)
}

func TestEngine_TagsByCategoryClampsParams(t *testing.T) {
	e := newEngine(t, index.StockRecord{StockCode: "A", CustomTags: "X:one;X:two"})
	tl := e.TagsByCategory(SearchParams{CategoryName: "X", TagsPage: -3, TagsPerPage: 0})
	assert.Equal(t, 1, tl.CurrentPage)
	assert.Equal(t, 2, tl.TotalPages)
	assert.Len(t, tl.Tags, 1)
}

func TestEngine_TagsByCategoryWithoutCategory(t *testing.T) {
	e := newEngine(t, index.StockRecord{StockCode: "A", CustomTags: "X:one"})
	tl := e.TagsByCategory(SearchParams{TagsPage: 1, TagsPerPage: 10})
	assert.Empty(t, tl.Tags)
	assert.Equal(t, 0, tl.TotalTags)
	assert.Equal(t, 0, tl.TotalPages)

	tl = e.TagsByCategory(SearchParams{CategoryName: "missing", TagsPage: 1, TagsPerPage: 10})
	assert.Empty(t, tl.Tags)
	assert.Equal(t, 0, tl.TotalPages)
}

func TestEngine_TagsByCategorySearch(t *testing.T) {
	e := newEngine(t, index.StockRecord{StockCode: "A", CustomTags: "概念:AI{大模型};概念:芯片;概念:机器人{AI应用}"})

	tl := e.TagsByCategory(SearchParams{CategoryName: "概念", SearchQuery: "ai", TagsPage: 1, TagsPerPage: 10})
	assert.Equal(t, 2, tl.TotalTags)

	// the category name itself matching keeps every tag
	tl = e.TagsByCategory(SearchParams{CategoryName: "概念", SearchQuery: "概念", TagsPage: 1, TagsPerPage: 10})
	assert.Equal(t, 3, tl.TotalTags)
}

func TestEngine_StocksByTagPagination(t *testing.T) {
	var recs []index.StockRecord
	for i := 0; i < 7; i++ {
		recs = append(recs, index.StockRecord{StockCode: fmt.Sprintf("S%d", i), CustomTags: "c:t{d}"})
	}
	e := newEngine(t, recs...)
	sel := SelectedTag{CategoryName: "c", TagName: "t", TagDetail: ptr("d")}

	r := e.StocksByTag(sel, SearchParams{StocksPage: 2, StocksPerPage: 3})
	assert.Equal(t, []string{"S3", "S4", "S5"}, codes(r.Stocks))
	assert.Equal(t, 7, r.TotalStocks)
	assert.Equal(t, 3, r.TotalPages)
	assert.Equal(t, 2, r.CurrentPage)

	r = e.StocksByTag(sel, SearchParams{StocksPage: 4, StocksPerPage: 3})
	assert.Empty(t, r.Stocks)
	assert.Equal(t, 3, r.TotalPages)

	// identity without detail is a different tag
	r = e.StocksByTag(SelectedTag{CategoryName: "c", TagName: "t"}, SearchParams{StocksPage: 1, StocksPerPage: 3})
	assert.Empty(t, r.Stocks)
	assert.Equal(t, 0, r.TotalStocks)
}

func TestEngine_TagDetails(t *testing.T) {
	e := newEngine(t,
		index.StockRecord{StockCode: "A", CustomTags: "c:t"},
		index.StockRecord{StockCode: "B", CustomTags: "c:t"},
	)
	sel := e.TagDetails("c", "t", nil)
	assert.Equal(t, []string{"A", "B"}, codes(sel.Stocks))
	assert.Equal(t, "c", sel.CategoryName)

	sel = e.TagDetails("c", "t", ptr(""))
	assert.Empty(t, sel.Stocks)
	assert.NotNil(t, sel.Stocks)
}

func TestEngine_SearchAndFilter(t *testing.T) {
	e := newEngine(t,
		index.StockRecord{StockCode: "A", CustomTags: "行业:医疗;概念:AI"},
		index.StockRecord{StockCode: "B", CustomTags: "概念:医疗AI"},
	)
	cats, tl := e.SearchAndFilter(SearchParams{SearchQuery: "医疗", CategoryName: "概念", TagsPage: 1, TagsPerPage: 10})
	assert.Equal(t, []string{"行业", "概念"}, cats.Categories)
	assert.Equal(t, 2, cats.Statistics.TotalTags)
	require.Len(t, tl.Tags, 1)
	assert.Equal(t, "医疗AI", tl.Tags[0].Name)

	cats, tl = e.SearchAndFilter(SearchParams{SearchQuery: "AI"})
	assert.Equal(t, []string{"概念"}, cats.Categories)
	assert.Empty(t, tl.Tags)
}

func TestEngine_UpdateTagsVisibleToQueries(t *testing.T) {
	e := newEngine(t,
		index.StockRecord{StockCode: "A", CustomTags: "solo:x;shared:y"},
		index.StockRecord{StockCode: "B", CustomTags: "shared:y"},
	)
	require.NoError(t, e.UpdateTags("A", ""))

	tl := e.TagsByCategory(SearchParams{CategoryName: "solo", TagsPage: 1, TagsPerPage: 10})
	assert.Equal(t, 0, tl.TotalTags)

	tl = e.TagsByCategory(SearchParams{CategoryName: "shared", TagsPage: 1, TagsPerPage: 10})
	require.Len(t, tl.Tags, 1)
	assert.Equal(t, []string{"B"}, codes(tl.Tags[0].Stocks))

	assert.ErrorIs(t, e.UpdateTags("missing", "a:b"), index.ErrNotFound)

	ds := e.DataStatistics()
	assert.Equal(t, 2, ds.TotalStocks)
	assert.Equal(t, 1, ds.StocksWithTags)
	assert.Equal(t, 1, ds.TotalCategories)
}

func TestEngine_FindStocks(t *testing.T) {
	e := newEngine(t,
		index.StockRecord{StockCode: "600519", StockName: "贵州茅台", CompanyName: "Kweichow Moutai Co., Ltd."},
		index.StockRecord{StockCode: "600520", StockName: "文一科技"},
		index.StockRecord{StockCode: "000001", StockName: "平安银行"},
	)

	assert.Equal(t, []string{"600519"}, codes(e.FindStocks("600519")))
	assert.Equal(t, []string{"600519", "600520"}, codes(e.FindStocks("6005")))
	assert.Equal(t, []string{"600519"}, codes(e.FindStocks("moutai")))
	assert.Equal(t, []string{"000001"}, codes(e.FindStocks("银行")))
	assert.Empty(t, e.FindStocks("  "))
	assert.Empty(t, e.FindStocks("nothing"))
}

func TestEngine_CategoriesWithoutTags(t *testing.T) {
	e := newEngine(t,
		index.StockRecord{StockCode: "A", CustomTags: "行业:;概念:AI"},
	)

	cats := e.Categories("")
	assert.Equal(t, []string{"行业", "概念"}, cats.Categories)
	assert.Equal(t, 2, cats.Statistics.TotalCategories)
	assert.Equal(t, 1, cats.Statistics.TotalTags)

	assert.Equal(t, []string{"行业"}, e.Categories("行").Categories)
	assert.Equal(t, []string{"概念"}, e.Categories("ai").Categories)

	tl := e.TagsByCategory(SearchParams{CategoryName: "行业", TagsPage: 1, TagsPerPage: 10})
	assert.Empty(t, tl.Tags)
	assert.Equal(t, 0, tl.TotalTags)

	assert.Equal(t, 2, e.DataStatistics().TotalCategories)
}
