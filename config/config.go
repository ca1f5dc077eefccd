// Package config holds the layered fetch configuration. Options are resolved
// once per session: documented defaults, then an optional preset, then user
// overrides, then validation clamps.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"ghprojects/github"
	"ghprojects/models"
)

// CacheOptions configures caching behavior.
type CacheOptions struct {
	TTL         time.Duration `json:"ttl"`
	AutoRefresh bool          `json:"autoRefresh"`
	MaxEntries  int           `json:"maxEntries"`
}

// APIOptions configures the GitHub client.
type APIOptions struct {
	PerPage                int           `json:"perPage"`
	MaxRetries             int           `json:"maxRetries"`
	RetryDelay             time.Duration `json:"retryDelay"`
	Timeout                time.Duration `json:"timeout"`
	FetchLanguages         bool          `json:"fetchLanguages"`
	UseConditionalRequests bool          `json:"useConditionalRequests"`
}

// Options is the full fetch configuration.
type Options struct {
	Filters models.FilterSpec  `json:"filters"`
	Sorting models.SortSpec    `json:"sorting"`
	Display models.DisplaySpec `json:"display"`
	Cache   CacheOptions       `json:"cache"`
	API     APIOptions         `json:"api"`
}

// Override mutates an Options value during resolution.
type Override func(*Options)

// Default returns the documented default configuration.
func Default() Options {
	return Options{
		Filters: models.FilterSpec{
			ExcludeForked:   true,
			ExcludeArchived: true,
			ExcludePrivate:  true,
			ExcludeTopics: []string{
				"learning", "tutorial", "practice",
				"exercise", "homework", "assignment",
			},
		},
		Sorting: models.SortSpec{
			By:    models.SortByUpdated,
			Order: models.OrderDesc,
			Secondary: &models.SortSpec{
				By:    models.SortByStars,
				Order: models.OrderDesc,
			},
		},
		Display: models.DisplaySpec{
			MaxProjects:         6,
			ShowStats:           true,
			ShowLanguages:       true,
			ShowLastUpdated:     true,
			ShowDescription:     true,
			ShowHomepage:        true,
			TruncateDescription: 100,
			MaxTechBadges:       5,
		},
		Cache: CacheOptions{
			TTL:        time.Hour,
			MaxEntries: 10,
		},
		API: APIOptions{
			PerPage:                30,
			MaxRetries:             3,
			RetryDelay:             time.Second,
			Timeout:                10 * time.Second,
			FetchLanguages:         true,
			UseConditionalRequests: true,
		},
	}
}

// Resolve layers a named preset and user overrides over the defaults and
// validates the result. Unknown preset names resolve to the defaults alone.
func Resolve(preset string, overrides ...Override) Options {
	opts := Default()
	if apply, ok := presets[preset]; ok {
		apply(&opts)
	}
	for _, apply := range overrides {
		apply(&opts)
	}
	opts.Validate()
	return opts
}

// presets cover the common portfolio use cases.
var presets = map[string]Override{
	"starred-only": func(o *Options) {
		o.Filters.MinStars = 1
		o.Sorting = models.SortSpec{By: models.SortByStars, Order: models.OrderDesc}
		o.Display.MaxProjects = 8
	},
	"recent-activity": func(o *Options) {
		o.Filters.MaxAgeDays = 365
		o.Sorting = models.SortSpec{By: models.SortByUpdated, Order: models.OrderDesc}
		o.Display.MaxProjects = 10
		o.Display.ShowLastUpdated = true
	},
	"major-projects": func(o *Options) {
		o.Filters.MinStars = 5
		o.Filters.RequireDescription = true
		o.Filters.ExcludeTopics = []string{"learning", "tutorial", "practice", "exercise", "demo"}
		o.Sorting = models.SortSpec{By: models.SortByStars, Order: models.OrderDesc}
		o.Display.MaxProjects = 6
		o.Display.ShowStats = true
	},
	"show-all": func(o *Options) {
		o.Filters.ExcludeForked = false
		o.Filters.ExcludeArchived = false
		o.Filters.MinStars = 0
		o.Sorting = models.SortSpec{By: models.SortByUpdated, Order: models.OrderDesc}
		o.Display.MaxProjects = 20
	},
	"portfolio": func(o *Options) {
		o.Filters.MinStars = 2
		o.Filters.RequireDescription = true
		o.Filters.ExcludeTopics = []string{"learning", "tutorial", "practice", "exercise", "homework"}
		o.Sorting = models.SortSpec{
			By:        models.SortByStars,
			Order:     models.OrderDesc,
			Secondary: &models.SortSpec{By: models.SortByUpdated, Order: models.OrderDesc},
		}
		o.Display.MaxProjects = 6
		o.Display.ShowStats = true
		o.Display.ShowHomepage = true
		o.Display.ShowDescription = true
	},
}

// PresetNames lists the available preset names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}

// Validate clamps numeric fields into their allowed ranges.
func (o *Options) Validate() {
	o.Filters.MinStars = max(0, o.Filters.MinStars)
	o.Filters.MinSize = max(0, o.Filters.MinSize)
	o.Display.MaxTechBadges = max(1, o.Display.MaxTechBadges)
	if o.Display.TruncateDescription < 0 {
		o.Display.TruncateDescription = 0
	}
	if o.Cache.TTL < time.Minute {
		o.Cache.TTL = time.Minute
	}
	if o.Cache.MaxEntries < 1 {
		o.Cache.MaxEntries = 10
	}
	if o.API.PerPage < 1 {
		o.API.PerPage = 30
	}
	if o.API.PerPage > 100 {
		o.API.PerPage = 100
	}
	o.API.MaxRetries = max(0, o.API.MaxRetries)
	if o.API.RetryDelay < 100*time.Millisecond {
		o.API.RetryDelay = time.Second
	}
	if o.API.Timeout <= 0 {
		o.API.Timeout = 10 * time.Second
	}
}

// Env holds the environment-provided identity and paths.
type Env struct {
	Owner     string
	Token     string
	LogLevel  string
	CachePath string
}

// LoadEnv loads environment configuration from the process environment and
// an optional .env file. The owner identity is required and the placeholder
// sentinel is rejected as not configured.
func LoadEnv() (*Env, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	env := &Env{
		Owner:     viper.GetString("GITHUB_OWNER"),
		Token:     viper.GetString("GITHUB_TOKEN"),
		LogLevel:  viper.GetString("LOG_LEVEL"),
		CachePath: viper.GetString("CACHE_PATH"),
	}

	if env.Owner == "" || env.Owner == github.PlaceholderOwner {
		return nil, fmt.Errorf("%w: set GITHUB_OWNER", github.ErrOwnerNotConfigured)
	}
	if env.LogLevel == "" {
		env.LogLevel = "info"
	}
	if env.CachePath == "" {
		path, err := defaultCachePath()
		if err != nil {
			return nil, err
		}
		env.CachePath = path
	}

	return env, nil
}

// defaultCachePath places the cache database under the user cache directory.
func defaultCachePath() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	dir := filepath.Join(base, "ghprojects")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return filepath.Join(dir, "cache.db"), nil
}
