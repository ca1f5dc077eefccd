package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"ghprojects/logger"
	"ghprojects/models"
)

const (
	// DefaultTTL is the cache lifetime used when none is configured.
	DefaultTTL = time.Hour
	// DefaultPrefix namespaces cache keys in the shared store.
	DefaultPrefix = "github_projects"
	// DefaultMaxEntries is how many entries the quota eviction pass keeps.
	DefaultMaxEntries = 5
)

// ConfigSnapshot is the configuration slice that addresses a cache entry.
// Two snapshots must compare equal field-for-field before a hit is trusted.
type ConfigSnapshot struct {
	Filters models.FilterSpec  `json:"filters"`
	Sorting models.SortSpec    `json:"sorting"`
	Display models.DisplaySpec `json:"display"`
}

// Entry is the persisted value for one fingerprint.
type Entry struct {
	Data []models.ProjectSummary `json:"data"`
	// Timestamp is epoch milliseconds of the capture time.
	Timestamp int64          `json:"timestamp"`
	Username  string         `json:"username"`
	Config    ConfigSnapshot `json:"config"`
	ETag      string         `json:"etag,omitempty"`
}

// Age returns how old the entry is at the given instant.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.Timestamp))
}

// Options configures a Cache. Zero values take the defaults above.
type Options struct {
	Prefix     string
	TTL        time.Duration
	MaxEntries int
}

// Stats summarizes the cache contents under the configured prefix.
type Stats struct {
	Entries    int
	TotalBytes int
	Oldest     time.Time
	Newest     time.Time
}

// Cache stores project lists keyed by a fingerprint of owner identity and
// configuration. It is best-effort: a failed write never affects the result
// already returned to the caller.
type Cache struct {
	store      Store
	prefix     string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// New creates a Cache on top of the given store.
func New(store Store, opts Options) *Cache {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries == 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	return &Cache{
		store:      store,
		prefix:     opts.Prefix,
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		now:        time.Now,
	}
}

// Key derives the deterministic fingerprint key for a username and config.
func (c *Cache) Key(username string, cfg ConfigSnapshot) string {
	encoded, _ := json.Marshal(cfg)
	sum := sha256.Sum256(encoded)
	return fmt.Sprintf("%s_%s_%x", c.prefix, username, sum[:4])
}

// Read returns the entry for the fingerprint if it is present, structurally
// valid, within TTL and produced by the exact same configuration. Expired and
// corrupt entries are purged as a side effect.
func (c *Cache) Read(username string, cfg ConfigSnapshot) (*Entry, bool) {
	key := c.Key(username, cfg)
	entry, ok := c.readRaw(key)
	if !ok {
		return nil, false
	}

	if entry.Age(c.now()) > c.ttl {
		logger.Debug("Cache entry expired", zap.String("key", key))
		c.store.Remove(key)
		return nil, false
	}
	if !c.IsValid(entry, cfg) {
		return nil, false
	}
	return entry, true
}

// ReadStale returns the entry for the fingerprint regardless of TTL, for
// serving as a fallback when a fresh fetch fails. The structural config check
// still applies.
func (c *Cache) ReadStale(username string, cfg ConfigSnapshot) (*Entry, bool) {
	entry, ok := c.readRaw(c.Key(username, cfg))
	if !ok || !c.IsValid(entry, cfg) {
		return nil, false
	}
	return entry, true
}

// readRaw loads and structurally validates an entry. Corrupt entries are
// purged, not repaired.
func (c *Cache) readRaw(key string) (*Entry, bool) {
	raw, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		logger.Warn("Purging corrupt cache entry", zap.Error(err), zap.String("key", key))
		c.store.Remove(key)
		return nil, false
	}
	if entry.Data == nil {
		logger.Warn("Purging structurally invalid cache entry", zap.String("key", key))
		c.store.Remove(key)
		return nil, false
	}
	return &entry, true
}

// IsFresh reports whether the entry is still within TTL.
func (c *Cache) IsFresh(entry *Entry) bool {
	return entry.Age(c.now()) <= c.ttl
}

// IsValid re-compares the full configuration structurally. Fingerprint
// equality is necessary but not sufficient: a hash collision must not serve
// structurally different data.
func (c *Cache) IsValid(entry *Entry, cfg ConfigSnapshot) bool {
	current, _ := json.Marshal(cfg)
	cached, _ := json.Marshal(entry.Config)
	return string(current) == string(cached)
}

// Write stores a fresh result for the fingerprint. On a storage-quota
// failure it evicts all but the most recently written entries and retries
// exactly once; if that also fails the write is abandoned.
func (c *Cache) Write(username string, cfg ConfigSnapshot, data []models.ProjectSummary, etag string) {
	if data == nil {
		data = []models.ProjectSummary{}
	}
	entry := Entry{
		Data:      data,
		Timestamp: c.now().UnixMilli(),
		Username:  username,
		Config:    cfg,
		ETag:      etag,
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		logger.Warn("Failed to encode cache entry", zap.Error(err))
		return
	}

	key := c.Key(username, cfg)
	if err := c.store.Set(key, string(encoded)); err == nil {
		return
	}

	logger.Warn("Cache write failed, evicting old entries", zap.String("key", key))
	c.evictOld()
	if err := c.store.Set(key, string(encoded)); err != nil {
		logger.Warn("Cache write failed after eviction, abandoning",
			zap.Error(err),
			zap.String("key", key))
	}
}

// Invalidate removes the entry for one fingerprint.
func (c *Cache) Invalidate(username string, cfg ConfigSnapshot) {
	c.store.Remove(c.Key(username, cfg))
}

// InvalidateAll removes every entry under the cache prefix.
func (c *Cache) InvalidateAll() {
	for _, key := range c.store.Keys(c.prefix) {
		c.store.Remove(key)
	}
}

// Stats reports entry count, total size and the capture-time range of the
// cache contents.
func (c *Cache) Stats() Stats {
	var stats Stats
	for _, key := range c.store.Keys(c.prefix) {
		raw, ok := c.store.Get(key)
		if !ok {
			continue
		}
		stats.Entries++
		stats.TotalBytes += len(raw)

		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		ts := time.UnixMilli(entry.Timestamp)
		if stats.Oldest.IsZero() || ts.Before(stats.Oldest) {
			stats.Oldest = ts
		}
		if stats.Newest.IsZero() || ts.After(stats.Newest) {
			stats.Newest = ts
		}
	}
	return stats
}

// evictOld keeps only the most recently written entries under the prefix.
// Entries that no longer parse are removed outright.
func (c *Cache) evictOld() {
	type aged struct {
		key       string
		timestamp int64
	}
	var entries []aged

	for _, key := range c.store.Keys(c.prefix) {
		raw, ok := c.store.Get(key)
		if !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			c.store.Remove(key)
			continue
		}
		entries = append(entries, aged{key: key, timestamp: entry.Timestamp})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].timestamp > entries[j].timestamp
	})
	for _, entry := range entries[min(c.maxEntries, len(entries)):] {
		c.store.Remove(entry.key)
	}
}
