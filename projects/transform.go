// Package projects contains the pure transformation, filtering and sorting
// functions applied to repository data before it reaches the presentation
// layer. Nothing in this package performs I/O.
package projects

import (
	"fmt"

	"ghprojects/github"
	"ghprojects/models"
)

// maxTopicTags caps how many topic labels follow the primary language in the
// tech-tag list.
const maxTopicTags = 4

// Transform derives consumer-facing ProjectSummary values from raw
// repository records.
func Transform(repos []github.RepoResponse) []models.ProjectSummary {
	summaries := make([]models.ProjectSummary, 0, len(repos))
	for _, repo := range repos {
		summaries = append(summaries, transformOne(repo))
	}
	return summaries
}

func transformOne(repo github.RepoResponse) models.ProjectSummary {
	language := primaryLanguage(repo)

	tech := make([]string, 0, 1+maxTopicTags)
	if language != "" {
		tech = append(tech, language)
	}
	for i, topic := range repo.Topics {
		if i >= maxTopicTags {
			break
		}
		if topic != "" {
			tech = append(tech, topic)
		}
	}

	description := repo.Description
	if description == "" {
		description = models.NoDescription
	}
	details := repo.Description
	if details == "" {
		details = fmt.Sprintf("A %s project", language)
	}

	return models.ProjectSummary{
		ID:          repo.ID,
		Name:        repo.Name,
		Description: description,
		Details:     details,
		Link:        repo.HTMLURL,
		Homepage:    repo.Homepage,
		Tech:        tech,
		Stats: models.ProjectStats{
			Stars:       repo.StargazersCount,
			Forks:       repo.ForksCount,
			Watchers:    repo.WatchersCount,
			LastUpdated: repo.UpdatedAt,
		},
		Metadata: models.ProjectMetadata{
			IsArchived: repo.Archived,
			IsFork:     repo.Fork,
			IsPrivate:  repo.Private,
			CreatedAt:  repo.CreatedAt,
			Language:   language,
			Size:       repo.Size,
			OpenIssues: repo.OpenIssuesCount,
		},
	}
}

// primaryLanguage prefers the API's language field, then the largest entry of
// the language byte-count mapping, then the unknown placeholder.
func primaryLanguage(repo github.RepoResponse) string {
	if repo.Language != "" {
		return repo.Language
	}

	var best string
	var bestBytes int64 = -1
	for name, count := range repo.Languages {
		if count > bestBytes || (count == bestBytes && name < best) {
			best = name
			bestBytes = count
		}
	}
	if best != "" {
		return best
	}
	return models.UnknownLanguage
}
