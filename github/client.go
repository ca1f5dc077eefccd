package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ghprojects/logger"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultUserAgent = "ghprojects"
	acceptHeader     = "application/vnd.github.v3+json"

	// PlaceholderOwner is the sentinel left in configuration templates. A
	// fetch for it must be refused before any network call is made.
	PlaceholderOwner = "your-github-username"

	// languageQuotaMargin is the quota headroom required before the
	// per-repository language enrichment pass is attempted.
	languageQuotaMargin = 5
)

// ErrOwnerNotConfigured is returned when the owner identity is empty or still
// set to the placeholder sentinel.
var ErrOwnerNotConfigured = fmt.Errorf("github owner not configured")

// RateLimit represents GitHub's rate limit information. It is attached to
// every fetch result and never persisted.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// RepoResponse is a raw repository record as returned by the GitHub API.
type RepoResponse struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Language        string           `json:"language"`
	Topics          []string         `json:"topics"`
	StargazersCount int              `json:"stargazers_count"`
	ForksCount      int              `json:"forks_count"`
	WatchersCount   int              `json:"watchers_count"`
	Size            int              `json:"size"`
	OpenIssuesCount int              `json:"open_issues_count"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Archived        bool             `json:"archived"`
	Fork            bool             `json:"fork"`
	Private         bool             `json:"private"`
	HTMLURL         string           `json:"html_url"`
	Homepage        string           `json:"homepage"`
	Languages       map[string]int64 `json:"-"`
}

// ListOptions controls a repository listing request.
type ListOptions struct {
	PerPage   int
	Sort      string
	Direction string
	Type      string
	// ETag, when set, is sent as If-None-Match for a conditional request.
	ETag string
	// FetchLanguages enables the per-repository language enrichment pass.
	FetchLanguages bool
}

// ListResult is the envelope returned by ListRepositories.
type ListResult struct {
	Repos     []RepoResponse
	RateLimit RateLimit
	ETag      string
	// NotModified is true when the server answered 304; the caller should
	// keep using its cached data.
	NotModified bool
}

// Options configures a Client. Zero values take documented defaults.
type Options struct {
	UserAgent           string
	Timeout             time.Duration
	MaxRetries          int
	RetryDelay          time.Duration
	LanguageConcurrency int
}

// Client represents a GitHub API client
type Client struct {
	token           string
	userAgent       string
	httpClient      *http.Client
	baseURL         *url.URL
	maxRetries      int
	retryDelay      time.Duration
	langConcurrency int
}

// NewClient creates a GitHub client. The token is optional; unauthenticated
// requests work against public data at a lower rate limit.
func NewClient(token string, opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Second
	}
	if opts.LanguageConcurrency == 0 {
		opts.LanguageConcurrency = 5
	}

	baseURL, _ := url.Parse(defaultBaseURL)
	logger.Info("Initializing GitHub client",
		zap.String("base_url", baseURL.String()),
		zap.Bool("authenticated", token != ""))
	return &Client{
		token:           token,
		userAgent:       opts.UserAgent,
		httpClient:      &http.Client{Timeout: opts.Timeout},
		baseURL:         baseURL,
		maxRetries:      opts.MaxRetries,
		retryDelay:      opts.RetryDelay,
		langConcurrency: opts.LanguageConcurrency,
	}
}

// ListRepositories fetches one page of the owner's repositories, optionally
// enriched with per-repository language byte counts.
func (c *Client) ListRepositories(ctx context.Context, owner string, opts ListOptions) (*ListResult, error) {
	if owner == "" || owner == PlaceholderOwner {
		return nil, fmt.Errorf("%w: owner %q", ErrOwnerNotConfigured, owner)
	}

	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 30
	}
	if perPage > 100 {
		perPage = 100
	}
	sortField := opts.Sort
	if sortField == "" {
		sortField = "updated"
	}
	direction := opts.Direction
	if direction == "" {
		direction = "desc"
	}
	ownerType := opts.Type
	if ownerType == "" {
		ownerType = "owner"
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: fmt.Sprintf("/users/%s/repos", owner)})
	q := reqURL.Query()
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("sort", sortField)
	q.Set("direction", direction)
	q.Set("type", ownerType)
	reqURL.RawQuery = q.Encode()

	logger.Info("Fetching repositories",
		zap.String("owner", owner),
		zap.Int("per_page", perPage),
		zap.String("url", reqURL.String()),
		zap.Bool("conditional", opts.ETag != ""))

	resp, err := c.doWithRetry(ctx, reqURL.String(), opts.ETag)
	if err != nil {
		logger.Error("Failed to fetch repositories",
			zap.Error(err),
			zap.String("owner", owner))
		return nil, err
	}
	defer resp.Body.Close()

	result := &ListResult{
		RateLimit: parseRateLimit(resp),
		ETag:      resp.Header.Get("ETag"),
	}

	if resp.StatusCode == http.StatusNotModified {
		logger.Info("Repository listing not modified, cached data is current",
			zap.String("owner", owner))
		result.NotModified = true
		result.ETag = opts.ETag
		return result, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(&result.Repos); err != nil {
		logger.Error("Failed to decode repository listing",
			zap.Error(err),
			zap.String("owner", owner))
		return nil, fmt.Errorf("failed to decode repository listing: %w", err)
	}

	logger.Info("Successfully fetched repositories",
		zap.String("owner", owner),
		zap.Int("count", len(result.Repos)),
		zap.Int("rate_remaining", result.RateLimit.Remaining))

	if opts.FetchLanguages {
		c.enrichLanguages(ctx, owner, result.Repos, result.RateLimit)
	}

	return result, nil
}

// FetchLanguages fetches the language byte-count mapping for one repository.
// A 404 yields an empty mapping rather than an error.
func (c *Client) FetchLanguages(ctx context.Context, owner, name string) (map[string]int64, error) {
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: fmt.Sprintf("/repos/%s/%s/languages", owner, name)})

	resp, err := c.doWithRetry(ctx, reqURL.String(), "")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return map[string]int64{}, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	languages := map[string]int64{}
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return nil, fmt.Errorf("failed to decode language response: %w", err)
	}
	return languages, nil
}

// enrichLanguages runs the per-repository language fan-out. Failures degrade
// to an empty mapping for that repository alone. The whole pass is skipped
// when the remaining quota would not cover it.
func (c *Client) enrichLanguages(ctx context.Context, owner string, repos []RepoResponse, rate RateLimit) {
	if len(repos) == 0 {
		return
	}
	if rate.Remaining > 0 && rate.Remaining < len(repos)+languageQuotaMargin {
		logger.Warn("Skipping language enrichment to preserve rate limit quota",
			zap.Int("rate_remaining", rate.Remaining),
			zap.Int("repo_count", len(repos)))
		for i := range repos {
			repos[i].Languages = map[string]int64{}
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.langConcurrency)

	for i := range repos {
		i := i
		g.Go(func() error {
			languages, err := c.FetchLanguages(gctx, owner, repos[i].Name)
			if err != nil {
				logger.Warn("Failed to fetch languages",
					zap.Error(err),
					zap.String("owner", owner),
					zap.String("name", repos[i].Name))
				languages = map[string]int64{}
			}
			repos[i].Languages = languages
			return nil
		})
	}
	_ = g.Wait()
}

// doWithRetry issues a GET with the standard headers, retrying transient
// failures with exponential backoff. Non-transient failures (rate limit
// exhausted, 404, 401) are raised immediately. Backoff waits are cancellable
// through ctx.
func (c *Client) doWithRetry(ctx context.Context, reqURL, etag string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", acceptHeader)
		req.Header.Set("User-Agent", c.userAgent)
		if c.token != "" {
			req.Header.Set("Authorization", fmt.Sprintf("token %s", c.token))
		}
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if resp.StatusCode < http.StatusBadRequest {
			return resp, nil
		} else {
			apiErr := newAPIError(resp, reqURL)
			resp.Body.Close()
			lastErr = apiErr
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		info := Classify(lastErr)
		if !ShouldRetry(info.Kind) || attempt >= c.maxRetries {
			return nil, lastErr
		}

		delay := RetryDelay(info.Kind, attempt, c.retryDelay)
		logger.Warn("Retrying request after failure",
			zap.Error(lastErr),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// parseRateLimit parses rate limit information from response headers
func parseRateLimit(resp *http.Response) RateLimit {
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	remaining, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)

	return RateLimit{
		Limit:     limit,
		Remaining: remaining,
		Reset:     time.Unix(reset, 0),
	}
}
