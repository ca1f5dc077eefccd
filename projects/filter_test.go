package projects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghprojects/models"
)

func project(name string, mutate func(*models.ProjectSummary)) models.ProjectSummary {
	p := models.ProjectSummary{
		Name:        name,
		Description: "A real project",
		Tech:        []string{"Go"},
		Stats:       models.ProjectStats{LastUpdated: time.Now()},
		Metadata:    models.ProjectMetadata{Language: "Go"},
	}
	if mutate != nil {
		mutate(&p)
	}
	return p
}

func TestFilter_Criteria(t *testing.T) {
	testCases := []struct {
		name     string
		spec     models.FilterSpec
		project  models.ProjectSummary
		retained bool
	}{
		{
			name:     "exclude forked",
			spec:     models.FilterSpec{ExcludeForked: true},
			project:  project("p", func(p *models.ProjectSummary) { p.Metadata.IsFork = true }),
			retained: false,
		},
		{
			name:     "forks kept when not excluded",
			spec:     models.FilterSpec{},
			project:  project("p", func(p *models.ProjectSummary) { p.Metadata.IsFork = true }),
			retained: true,
		},
		{
			name:     "exclude archived",
			spec:     models.FilterSpec{ExcludeArchived: true},
			project:  project("p", func(p *models.ProjectSummary) { p.Metadata.IsArchived = true }),
			retained: false,
		},
		{
			name:     "exclude private",
			spec:     models.FilterSpec{ExcludePrivate: true},
			project:  project("p", func(p *models.ProjectSummary) { p.Metadata.IsPrivate = true }),
			retained: false,
		},
		{
			name:     "min stars",
			spec:     models.FilterSpec{MinStars: 5},
			project:  project("p", func(p *models.ProjectSummary) { p.Stats.Stars = 4 }),
			retained: false,
		},
		{
			name:     "size window",
			spec:     models.FilterSpec{MinSize: 10, MaxSize: 100},
			project:  project("p", func(p *models.ProjectSummary) { p.Metadata.Size = 500 }),
			retained: false,
		},
		{
			name:     "max size zero means unbounded",
			spec:     models.FilterSpec{},
			project:  project("p", func(p *models.ProjectSummary) { p.Metadata.Size = 1 << 20 }),
			retained: true,
		},
		{
			name: "max age rejects stale projects",
			spec: models.FilterSpec{MaxAgeDays: 30},
			project: project("p", func(p *models.ProjectSummary) {
				p.Stats.LastUpdated = time.Now().AddDate(0, 0, -60)
			}),
			retained: false,
		},
		{
			name:     "include topics is case-insensitive substring",
			spec:     models.FilterSpec{IncludeTopics: []string{"CLI"}},
			project:  project("p", func(p *models.ProjectSummary) { p.Tech = []string{"Go", "cli-tool"} }),
			retained: true,
		},
		{
			name:     "include topics rejects non-matching",
			spec:     models.FilterSpec{IncludeTopics: []string{"web"}},
			project:  project("p", nil),
			retained: false,
		},
		{
			name:     "exclude topics",
			spec:     models.FilterSpec{ExcludeTopics: []string{"tutorial"}},
			project:  project("p", func(p *models.ProjectSummary) { p.Tech = []string{"Go", "Tutorial"} }),
			retained: false,
		},
		{
			name:     "exclude languages",
			spec:     models.FilterSpec{ExcludeLanguages: []string{"javascript"}},
			project:  project("p", func(p *models.ProjectSummary) { p.Tech = []string{"JavaScript"} }),
			retained: false,
		},
		{
			name:     "require description rejects placeholder",
			spec:     models.FilterSpec{RequireDescription: true},
			project:  project("p", func(p *models.ProjectSummary) { p.Description = models.NoDescription }),
			retained: false,
		},
		{
			name:     "require homepage",
			spec:     models.FilterSpec{RequireHomepage: true},
			project:  project("p", nil),
			retained: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Filter([]models.ProjectSummary{tc.project}, tc.spec)
			if tc.retained {
				assert.Len(t, result, 1)
			} else {
				assert.Empty(t, result)
			}
		})
	}
}

func TestFilter_IsSubsetPreservingOrder(t *testing.T) {
	list := []models.ProjectSummary{
		project("a", func(p *models.ProjectSummary) { p.Stats.Stars = 10 }),
		project("b", func(p *models.ProjectSummary) { p.Stats.Stars = 0 }),
		project("c", func(p *models.ProjectSummary) { p.Stats.Stars = 5 }),
	}

	result := Filter(list, models.FilterSpec{MinStars: 1})
	require.Len(t, result, 2)
	assert.Equal(t, "a", result[0].Name)
	assert.Equal(t, "c", result[1].Name)
}

func TestFilter_CustomPredicateRunsLast(t *testing.T) {
	list := []models.ProjectSummary{
		project("keep", func(p *models.ProjectSummary) { p.Stats.Stars = 10 }),
		project("drop", func(p *models.ProjectSummary) { p.Stats.Stars = 10 }),
	}

	spec := models.FilterSpec{
		MinStars: 1,
		Custom: func(p models.ProjectSummary) bool {
			return p.Name != "drop"
		},
	}

	result := Filter(list, spec)
	require.Len(t, result, 1)
	assert.Equal(t, "keep", result[0].Name)
}

// Scenario: three repos with 10/5/0 stars, minStars 1, sorted by stars
// descending.
func TestFilterThenSortByStars(t *testing.T) {
	list := []models.ProjectSummary{
		project("five", func(p *models.ProjectSummary) { p.Stats.Stars = 5 }),
		project("zero", func(p *models.ProjectSummary) { p.Stats.Stars = 0 }),
		project("ten", func(p *models.ProjectSummary) { p.Stats.Stars = 10 }),
	}

	filtered := Filter(list, models.FilterSpec{MinStars: 1})
	sorted := Sort(filtered, models.SortSpec{By: models.SortByStars, Order: models.OrderDesc})

	require.Len(t, sorted, 2)
	assert.Equal(t, "ten", sorted[0].Name)
	assert.Equal(t, "five", sorted[1].Name)
}
