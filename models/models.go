// Package models defines the core data structures used throughout the application.
package models

import "time"

// Placeholder values used when a repository omits optional fields.
const (
	NoDescription   = "No description available"
	UnknownLanguage = "Unknown"
)

// ProjectStats holds the display statistics of a project.
type ProjectStats struct {
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Watchers    int       `json:"watchers"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ProjectMetadata holds secondary attributes of a project.
type ProjectMetadata struct {
	IsArchived bool      `json:"isArchived"`
	IsFork     bool      `json:"isFork"`
	IsPrivate  bool      `json:"isPrivate"`
	CreatedAt  time.Time `json:"createdAt"`
	Language   string    `json:"language"`
	Size       int       `json:"size"`
	OpenIssues int       `json:"openIssues"`
}

// ProjectSummary is the consumer-facing view of a repository. It is derived
// once per raw record and never mutated afterwards.
type ProjectSummary struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Details     string          `json:"details"`
	Link        string          `json:"link"`
	Homepage    string          `json:"homepage,omitempty"`
	Tech        []string        `json:"tech"`
	Stats       ProjectStats    `json:"stats"`
	Metadata    ProjectMetadata `json:"metadata"`
}

// FilterSpec declares which projects to retain. Every active criterion must
// pass for a project to be kept. Zero values deactivate a criterion.
type FilterSpec struct {
	ExcludeForked   bool `json:"excludeForked"`
	ExcludeArchived bool `json:"excludeArchived"`
	ExcludePrivate  bool `json:"excludePrivate"`

	MinStars int `json:"minStars"`
	// MinSize and MaxSize are in kilobytes. MaxSize 0 means no upper bound.
	MinSize int `json:"minSize"`
	MaxSize int `json:"maxSize"`
	// MaxAgeDays rejects projects whose last update is older. 0 means no limit.
	MaxAgeDays int `json:"maxAge"`

	// Topic and language lists are matched case-insensitively as substrings
	// against the tech-tag list.
	IncludeTopics    []string `json:"includeTopics"`
	ExcludeTopics    []string `json:"excludeTopics"`
	IncludeLanguages []string `json:"includeLanguages"`
	ExcludeLanguages []string `json:"excludeLanguages"`

	RequireDescription bool `json:"requireDescription"`
	RequireHomepage    bool `json:"requireHomepage"`

	// Custom is applied last and can reject items that passed every built-in
	// criterion. It is not part of the cache fingerprint.
	Custom func(ProjectSummary) bool `json:"-"`
}

// SortField identifies a sortable attribute of a ProjectSummary.
type SortField string

const (
	SortByStars    SortField = "stars"
	SortByForks    SortField = "forks"
	SortByWatchers SortField = "watchers"
	SortBySize     SortField = "size"
	SortByCreated  SortField = "created"
	SortByUpdated  SortField = "updated"
	SortByName     SortField = "name"
	SortByLanguage SortField = "language"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// SortSpec is a field/direction pair with an optional secondary tie-breaker.
type SortSpec struct {
	By        SortField `json:"by"`
	Order     SortOrder `json:"order"`
	Secondary *SortSpec `json:"secondarySort,omitempty"`
}

// DisplaySpec controls how many projects are surfaced and which fields the
// presentation layer is expected to render.
type DisplaySpec struct {
	// MaxProjects truncates the final list. 0 or negative means unbounded.
	MaxProjects     int  `json:"maxProjects"`
	ShowStats       bool `json:"showStats"`
	ShowLanguages   bool `json:"showLanguages"`
	ShowLastUpdated bool `json:"showLastUpdated"`
	ShowDescription bool `json:"showDescription"`
	ShowHomepage    bool `json:"showHomepage"`
	ShowCreatedDate bool `json:"showCreatedDate"`
	ShowSize        bool `json:"showSize"`
	ShowOpenIssues  bool `json:"showOpenIssues"`
	// TruncateDescription caps description length in characters. 0 disables.
	TruncateDescription int `json:"truncateDescription"`
	MaxTechBadges       int `json:"maxTechBadges"`
}
