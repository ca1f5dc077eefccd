package projects

import (
	"sort"
	"strings"

	"ghprojects/models"
)

// Sort returns a stably sorted copy of the list. Ties on the primary field
// fall through to the secondary spec when one is supplied, otherwise source
// order is preserved.
func Sort(list []models.ProjectSummary, spec models.SortSpec) []models.ProjectSummary {
	sorted := make([]models.ProjectSummary, len(list))
	copy(sorted, list)

	sort.SliceStable(sorted, func(i, j int) bool {
		c := compare(sorted[i], sorted[j], spec)
		if c == 0 && spec.Secondary != nil {
			c = compare(sorted[i], sorted[j], *spec.Secondary)
		}
		return c < 0
	})
	return sorted
}

// Limit truncates the list to its first n elements. n <= 0 means unbounded.
func Limit(list []models.ProjectSummary, n int) []models.ProjectSummary {
	if n <= 0 || n >= len(list) {
		return list
	}
	return list[:n]
}

// ApplyDisplay applies the display configuration: project count cap and
// description truncation.
func ApplyDisplay(list []models.ProjectSummary, spec models.DisplaySpec) []models.ProjectSummary {
	list = Limit(list, spec.MaxProjects)
	if spec.TruncateDescription <= 0 {
		return list
	}

	out := make([]models.ProjectSummary, len(list))
	copy(out, list)
	for i := range out {
		runes := []rune(out[i].Description)
		if len(runes) > spec.TruncateDescription {
			out[i].Description = string(runes[:spec.TruncateDescription]) + "..."
		}
	}
	return out
}

// compare orders a before b with a negative result. The direction flips the
// comparator sign; when unspecified, numeric and date fields default to
// descending and lexical fields to ascending.
func compare(a, b models.ProjectSummary, spec models.SortSpec) int {
	var c int
	switch spec.By {
	case models.SortByStars:
		c = a.Stats.Stars - b.Stats.Stars
	case models.SortByForks:
		c = a.Stats.Forks - b.Stats.Forks
	case models.SortByWatchers:
		c = a.Stats.Watchers - b.Stats.Watchers
	case models.SortBySize:
		c = a.Metadata.Size - b.Metadata.Size
	case models.SortByCreated:
		c = a.Metadata.CreatedAt.Compare(b.Metadata.CreatedAt)
	case models.SortByName:
		c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case models.SortByLanguage:
		c = strings.Compare(strings.ToLower(a.Metadata.Language), strings.ToLower(b.Metadata.Language))
	default: // updated
		c = a.Stats.LastUpdated.Compare(b.Stats.LastUpdated)
	}

	order := spec.Order
	if order == "" {
		order = defaultOrder(spec.By)
	}
	if order == models.OrderDesc {
		c = -c
	}
	return c
}

func defaultOrder(field models.SortField) models.SortOrder {
	switch field {
	case models.SortByName, models.SortByLanguage:
		return models.OrderAsc
	default:
		return models.OrderDesc
	}
}
