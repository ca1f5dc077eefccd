// Package service coordinates the cache, the GitHub client and the
// filter/sort pipeline into one "get projects" operation per consumer
// session, with single-flight supersession, stale-cache fallback and
// optional auto-refresh.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ghprojects/cache"
	"ghprojects/config"
	"ghprojects/github"
	"ghprojects/logger"
	"ghprojects/models"
	"ghprojects/projects"
)

// Client abstracts the GitHub client operations needed by the session
// (for testability)
type Client interface {
	ListRepositories(ctx context.Context, owner string, opts github.ListOptions) (*github.ListResult, error)
}

// State is the session's fetch state.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session errors
var (
	// ErrSuperseded is returned to a caller whose fetch was cancelled by a
	// newer one. No state transition is made on its behalf.
	ErrSuperseded = fmt.Errorf("fetch superseded by a newer request")
	// ErrSessionClosed is returned after Close.
	ErrSessionClosed = fmt.Errorf("session closed")
)

// Result is the outcome of one GetProjects invocation.
type Result struct {
	Projects []models.ProjectSummary
	// Err is the formatted user-facing message, empty on clean success. A
	// stale-cache fallback carries both projects and an error note.
	Err         string
	FromCache   bool
	Stale       bool
	LastUpdated time.Time
	RateLimit   github.RateLimit
}

// Session is one consumer's fetch orchestrator. A new GetProjects call
// supersedes, not queues behind, a pending one.
type Session struct {
	owner  string
	cfg    config.Options
	client Client
	cache  *cache.Cache

	mu           sync.Mutex
	state        State
	last         *Result
	gen          int
	cancel       context.CancelFunc
	refreshTimer *time.Timer
	closed       bool
}

// NewSession creates a session for one owner identity with a resolved
// configuration.
func NewSession(owner string, cfg config.Options, client Client, store cache.Store) *Session {
	return &Session{
		owner:  owner,
		cfg:    cfg,
		client: client,
		cache: cache.New(store, cache.Options{
			TTL:        cfg.Cache.TTL,
			MaxEntries: cfg.Cache.MaxEntries,
		}),
	}
}

func (s *Session) snapshot() cache.ConfigSnapshot {
	return cache.ConfigSnapshot{
		Filters: s.cfg.Filters,
		Sorting: s.cfg.Sorting,
		Display: s.cfg.Display,
	}
}

// GetProjects returns the ordered project list for the session's owner. A
// valid cache entry short-circuits the network unless forceRefresh is set.
// Fetch failures are carried inside the Result; the returned error is
// non-nil only for superseded or closed sessions.
func (s *Session) GetProjects(ctx context.Context, forceRefresh bool) (*Result, error) {
	snap := s.snapshot()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}

	// Snapshot the stored entry before the network attempt so an expired
	// entry can still serve as a fallback on failure.
	entry, hasEntry := s.cache.ReadStale(s.owner, snap)

	if !forceRefresh && hasEntry && s.cache.IsFresh(entry) {
		result := s.resultFromEntry(entry, false)
		s.state = StateSucceeded
		s.last = result
		s.scheduleRefreshLocked(time.UnixMilli(entry.Timestamp))
		s.mu.Unlock()
		logger.Debug("Serving projects from cache", zap.String("owner", s.owner))
		return result, nil
	}

	// Supersede any in-flight fetch for this session.
	if s.cancel != nil {
		s.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.state = StateFetching
	s.mu.Unlock()

	etag := ""
	if s.cfg.API.UseConditionalRequests && hasEntry {
		etag = entry.ETag
	}

	listResult, err := s.client.ListRepositories(fctx, s.owner, github.ListOptions{
		PerPage:        s.cfg.API.PerPage,
		Sort:           apiSort(s.cfg.Sorting.By),
		Direction:      string(s.cfg.Sorting.Order),
		Type:           "owner",
		ETag:           etag,
		FetchLanguages: s.cfg.API.FetchLanguages,
	})

	if err != nil {
		// An aborted request produces no state transition.
		if fctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrSuperseded
		}
		return s.finishFailure(gen, snap, entry, hasEntry, err)
	}
	return s.finishSuccess(gen, snap, entry, hasEntry, listResult)
}

// Refetch forces a fresh fetch, bypassing the cache.
func (s *Session) Refetch(ctx context.Context) (*Result, error) {
	return s.GetProjects(ctx, true)
}

// ClearError clears the error note on the last result.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil {
		s.last.Err = ""
	}
	if s.state == StateFailed {
		s.state = StateIdle
	}
}

// State returns the session's current fetch state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Last returns the most recent result, or nil before the first fetch.
func (s *Session) Last() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// InvalidateCache drops the cache entry for the session's configuration.
func (s *Session) InvalidateCache() {
	s.cache.Invalidate(s.owner, s.snapshot())
}

// Close aborts any in-flight fetch and cancels pending timers. The session
// cannot be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
		s.refreshTimer = nil
	}
}

func (s *Session) finishSuccess(gen int, snap cache.ConfigSnapshot, entry *cache.Entry, hasEntry bool, listResult *github.ListResult) (*Result, error) {
	var result *Result

	if listResult.NotModified && hasEntry {
		// Upstream unchanged; reuse cached data and refresh its timestamp.
		result = s.resultFromEntry(entry, false)
		result.RateLimit = listResult.RateLimit
		s.cache.Write(s.owner, snap, entry.Data, entry.ETag)
	} else {
		summaries := projects.Transform(listResult.Repos)
		filtered := projects.Filter(summaries, s.cfg.Filters)
		sorted := projects.Sort(filtered, s.cfg.Sorting)
		final := projects.ApplyDisplay(sorted, s.cfg.Display)

		s.cache.Write(s.owner, snap, final, listResult.ETag)
		result = &Result{
			Projects:    final,
			LastUpdated: time.Now(),
			RateLimit:   listResult.RateLimit,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return nil, ErrSuperseded
	}
	s.state = StateSucceeded
	s.last = result
	s.scheduleRefreshLocked(result.LastUpdated)
	return result, nil
}

func (s *Session) finishFailure(gen int, snap cache.ConfigSnapshot, entry *cache.Entry, hasEntry bool, err error) (*Result, error) {
	info := github.Classify(err)
	message := github.FormatMessage(info)

	var rate github.RateLimit
	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		rate = apiErr.RateLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return nil, ErrSuperseded
	}

	if hasEntry {
		// Serve the cached entry, even expired, with the error attached.
		logger.Warn("Fetch failed, serving cached projects",
			zap.String("owner", s.owner),
			zap.String("kind", string(info.Kind)),
			zap.Error(err))
		result := s.resultFromEntry(entry, !s.cache.IsFresh(entry))
		result.Err = message
		result.RateLimit = rate
		s.state = StateSucceeded
		s.last = result
		return result, nil
	}

	logger.Error("Fetch failed with no cached fallback",
		zap.String("owner", s.owner),
		zap.String("kind", string(info.Kind)),
		zap.Error(err))
	result := &Result{Err: message, RateLimit: rate}
	s.state = StateFailed
	s.last = result
	return result, nil
}

func (s *Session) resultFromEntry(entry *cache.Entry, stale bool) *Result {
	return &Result{
		Projects:    entry.Data,
		FromCache:   true,
		Stale:       stale,
		LastUpdated: time.UnixMilli(entry.Timestamp),
	}
}

// scheduleRefreshLocked arms a single re-invocation at cache expiry when
// auto-refresh is enabled. Callers must hold s.mu.
func (s *Session) scheduleRefreshLocked(lastUpdated time.Time) {
	if !s.cfg.Cache.AutoRefresh || s.closed {
		return
	}
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}
	delay := time.Until(lastUpdated.Add(s.cfg.Cache.TTL))
	if delay <= 0 {
		return
	}
	s.refreshTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.closed || s.state == StateFetching {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		if _, err := s.GetProjects(context.Background(), false); err != nil {
			logger.Debug("Auto-refresh skipped", zap.Error(err))
		}
	})
}

// apiSort maps a sort field to the listing endpoint's sort parameter. Fields
// the API cannot sort by fall back to updated; the engine re-sorts locally
// either way.
func apiSort(field models.SortField) string {
	switch field {
	case models.SortByCreated:
		return "created"
	case models.SortByName:
		return "full_name"
	default:
		return "updated"
	}
}
