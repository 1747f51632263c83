package search

import "github.com/watchmonkey/stocktags/internal/tags"

// StatusCounts tallies tags by validation status. Special tags count as
// valid.
type StatusCounts struct {
	Error   int
	Warning int
	Valid   int
}

func (c *StatusCounts) add(s tags.Status) {
	switch s {
	case tags.StatusError:
		c.Error++
	case tags.StatusWarning:
		c.Warning++
	default:
		c.Valid++
	}
}

// CountStatuses validates every tag and tallies the results.
func CountStatuses(ts []TagDetails) StatusCounts {
	var c StatusCounts
	for _, t := range ts {
		c.add(tags.Validate(t.Name, derefOr(t.Detail)))
	}
	return c
}

// CalculateStatistics folds the status tallies of ts together with counts
// the caller already holds from earlier queries.
func CalculateStatistics(ts []TagDetails, filteredCategories, totalTags, selectedCategoryTags int) TagStatistics {
	c := CountStatuses(ts)
	return TagStatistics{
		TotalTags:                 totalTags,
		TotalCategories:           filteredCategories,
		SelectedCategoryTagsCount: selectedCategoryTags,
		CurrentPageTagsCount:      len(ts),
		ErrorTagsCount:            c.Error,
		WarningTagsCount:          c.Warning,
		ValidTagsCount:            c.Valid,
	}
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
