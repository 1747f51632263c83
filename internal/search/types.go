package search

import "github.com/watchmonkey/stocktags/internal/search/index"

// SearchParams describes one paginated query. Non-positive pages and page
// sizes are clamped to 1.
type SearchParams struct {
	SearchQuery   string `json:"search_query,omitempty"`
	CategoryName  string `json:"category_name,omitempty"`
	TagsPage      int    `json:"tags_page"`
	StocksPage    int    `json:"stocks_page"`
	TagsPerPage   int    `json:"tags_per_page"`
	StocksPerPage int    `json:"stocks_per_page"`
}

// Normalized returns a copy with paging fields clamped to at least 1.
func (p SearchParams) Normalized() SearchParams {
	p.TagsPage = atLeastOne(p.TagsPage)
	p.StocksPage = atLeastOne(p.StocksPage)
	p.TagsPerPage = atLeastOne(p.TagsPerPage)
	p.StocksPerPage = atLeastOne(p.StocksPerPage)
	return p
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// TagDetails is one tag identity in a category with the stocks carrying it.
type TagDetails struct {
	Name   string              `json:"name"`
	Detail *string             `json:"detail,omitempty"`
	Count  int                 `json:"count"`
	Stocks []index.StockRecord `json:"stocks"`
}

// SelectedTag is a fully resolved tag identity.
type SelectedTag struct {
	CategoryName string              `json:"category_name"`
	TagName      string              `json:"tag_name"`
	TagDetail    *string             `json:"tag_detail,omitempty"`
	Stocks       []index.StockRecord `json:"stocks"`
}

// TagStatistics aggregates tag counts for a view of the index.
type TagStatistics struct {
	TotalTags                 int `json:"total_tags"`
	TotalCategories           int `json:"total_categories"`
	SelectedCategoryTagsCount int `json:"selected_category_tags_count"`
	CurrentPageTagsCount      int `json:"current_page_tags_count"`
	ErrorTagsCount            int `json:"error_tags_count"`
	WarningTagsCount          int `json:"warning_tags_count"`
	ValidTagsCount            int `json:"valid_tags_count"`
}

// CategoryListResult is the answer to a category listing.
type CategoryListResult struct {
	Categories []string      `json:"categories"`
	Statistics TagStatistics `json:"statistics"`
}

// TagListResult is one page of tags in a category. The status counts cover
// every tag matching the query, not only the page.
type TagListResult struct {
	Tags             []TagDetails `json:"tags"`
	TotalTags        int          `json:"total_tags"`
	TotalPages       int          `json:"total_pages"`
	CurrentPage      int          `json:"current_page"`
	ErrorTagsCount   int          `json:"error_tags_count"`
	WarningTagsCount int          `json:"warning_tags_count"`
	ValidTagsCount   int          `json:"valid_tags_count"`
}

// StockListResult is one page of stocks carrying a tag.
type StockListResult struct {
	Stocks      []index.StockRecord `json:"stocks"`
	TotalStocks int                 `json:"total_stocks"`
	TotalPages  int                 `json:"total_pages"`
	CurrentPage int                 `json:"current_page"`
}
