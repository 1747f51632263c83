package search

import (
	"sort"

	"github.com/watchmonkey/stocktags/internal/search/index"
	"github.com/watchmonkey/stocktags/internal/tags"
)

type rankedTag struct {
	key    index.TagKey
	count  int
	status tags.Status
}

// sortTags orders tags by status weight (errors first), then count
// (descending), then name, then detail with "no detail" first.
func sortTags(ts []rankedTag) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if wa, wb := a.status.Weight(), b.status.Weight(); wa != wb {
			return wa > wb
		}
		if a.count != b.count {
			return a.count > b.count
		}
		if a.key.Name != b.key.Name {
			return a.key.Name < b.key.Name
		}
		if a.key.HasDetail != b.key.HasDetail {
			return !a.key.HasDetail
		}
		return a.key.Detail < b.key.Detail
	})
}
