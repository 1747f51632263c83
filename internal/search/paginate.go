package search

// paginate returns the 1-based page of items and the page count. Pages past
// the end are empty, never nil.
func paginate[T any](items []T, page, perPage int) ([]T, int) {
	page = atLeastOne(page)
	perPage = atLeastOne(perPage)
	total := len(items)
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	if page > pages {
		return []T{}, pages
	}

	start := (page - 1) * perPage
	end := min(start+perPage, total)
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out, pages
}
