package projects

import (
	"strings"
	"time"

	"ghprojects/models"
)

// Filter returns the projects that satisfy every active criterion of the
// spec. The result is always a subset of the input; input order is kept.
func Filter(list []models.ProjectSummary, spec models.FilterSpec) []models.ProjectSummary {
	return filterAt(list, spec, time.Now())
}

func filterAt(list []models.ProjectSummary, spec models.FilterSpec, now time.Time) []models.ProjectSummary {
	kept := make([]models.ProjectSummary, 0, len(list))
	for _, p := range list {
		if passes(p, spec, now) {
			kept = append(kept, p)
		}
	}
	return kept
}

func passes(p models.ProjectSummary, spec models.FilterSpec, now time.Time) bool {
	if spec.ExcludeForked && p.Metadata.IsFork {
		return false
	}
	if spec.ExcludeArchived && p.Metadata.IsArchived {
		return false
	}
	if spec.ExcludePrivate && p.Metadata.IsPrivate {
		return false
	}
	if p.Stats.Stars < spec.MinStars {
		return false
	}
	if p.Metadata.Size < spec.MinSize {
		return false
	}
	if spec.MaxSize > 0 && p.Metadata.Size > spec.MaxSize {
		return false
	}
	if spec.MaxAgeDays > 0 {
		cutoff := now.AddDate(0, 0, -spec.MaxAgeDays)
		if p.Stats.LastUpdated.Before(cutoff) {
			return false
		}
	}
	if len(spec.IncludeTopics) > 0 && !matchesAny(p.Tech, spec.IncludeTopics) {
		return false
	}
	if len(spec.ExcludeTopics) > 0 && matchesAny(p.Tech, spec.ExcludeTopics) {
		return false
	}
	if len(spec.IncludeLanguages) > 0 && !matchesAny(p.Tech, spec.IncludeLanguages) {
		return false
	}
	if len(spec.ExcludeLanguages) > 0 && matchesAny(p.Tech, spec.ExcludeLanguages) {
		return false
	}
	if spec.RequireDescription && (p.Description == "" || p.Description == models.NoDescription) {
		return false
	}
	if spec.RequireHomepage && p.Homepage == "" {
		return false
	}
	// The custom predicate runs last and can still reject items that passed
	// every built-in criterion.
	if spec.Custom != nil && !spec.Custom(p) {
		return false
	}
	return true
}

// matchesAny reports whether any tech tag contains any of the terms,
// case-insensitively.
func matchesAny(tech, terms []string) bool {
	for _, term := range terms {
		lowered := strings.ToLower(term)
		for _, tag := range tech {
			if strings.Contains(strings.ToLower(tag), lowered) {
				return true
			}
		}
	}
	return false
}
