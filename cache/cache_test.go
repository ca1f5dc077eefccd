package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghprojects/models"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sampleData() []models.ProjectSummary {
	return []models.ProjectSummary{
		{
			ID:          1,
			Name:        "alpha",
			Description: "First project",
			Tech:        []string{"Go", "cli"},
			Stats:       models.ProjectStats{Stars: 10},
		},
	}
}

func sampleConfig() ConfigSnapshot {
	return ConfigSnapshot{
		Filters: models.FilterSpec{MinStars: 1},
		Sorting: models.SortSpec{By: models.SortByStars, Order: models.OrderDesc},
		Display: models.DisplaySpec{MaxProjects: 6},
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c := New(NewMemoryStore(0), Options{TTL: time.Hour})

	c.Write("test-owner", sampleConfig(), sampleData(), `"etag-1"`)

	entry, ok := c.Read("test-owner", sampleConfig())
	require.True(t, ok)
	assert.Equal(t, sampleData(), entry.Data)
	assert.Equal(t, `"etag-1"`, entry.ETag)
	assert.Equal(t, "test-owner", entry.Username)
	assert.Equal(t, sampleConfig(), entry.Config)
}

func TestCache_TTLBoundary(t *testing.T) {
	store := NewMemoryStore(0)
	c := New(store, Options{TTL: time.Hour})

	writeTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = fixedClock(writeTime)
	c.Write("test-owner", sampleConfig(), sampleData(), "")

	// Readable just before expiry.
	c.now = fixedClock(writeTime.Add(time.Hour - time.Second))
	_, ok := c.Read("test-owner", sampleConfig())
	assert.True(t, ok)

	// Absent just after expiry, and evicted as a side effect.
	c.now = fixedClock(writeTime.Add(time.Hour + time.Second))
	_, ok = c.Read("test-owner", sampleConfig())
	assert.False(t, ok)

	_, present := store.Get(c.Key("test-owner", sampleConfig()))
	assert.False(t, present)
}

func TestCache_ReadStaleIgnoresTTL(t *testing.T) {
	c := New(NewMemoryStore(0), Options{TTL: time.Hour})

	writeTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = fixedClock(writeTime)
	c.Write("test-owner", sampleConfig(), sampleData(), "")

	c.now = fixedClock(writeTime.Add(48 * time.Hour))
	entry, ok := c.ReadStale("test-owner", sampleConfig())
	require.True(t, ok)
	assert.Equal(t, sampleData(), entry.Data)
	assert.False(t, c.IsFresh(entry))
}

func TestCache_CorruptEntryPurged(t *testing.T) {
	store := NewMemoryStore(0)
	c := New(store, Options{TTL: time.Hour})

	key := c.Key("test-owner", sampleConfig())
	require.NoError(t, store.Set(key, "{not json"))

	_, ok := c.Read("test-owner", sampleConfig())
	assert.False(t, ok)

	_, present := store.Get(key)
	assert.False(t, present)
}

func TestCache_StructurallyInvalidEntryPurged(t *testing.T) {
	store := NewMemoryStore(0)
	c := New(store, Options{TTL: time.Hour})

	key := c.Key("test-owner", sampleConfig())
	require.NoError(t, store.Set(key, `{"data":null,"timestamp":1,"username":"test-owner"}`))

	_, ok := c.Read("test-owner", sampleConfig())
	assert.False(t, ok)

	_, present := store.Get(key)
	assert.False(t, present)
}

func TestCache_IsValidComparesConfigStructurally(t *testing.T) {
	c := New(NewMemoryStore(0), Options{TTL: time.Hour})

	entry := &Entry{Config: sampleConfig()}
	assert.True(t, c.IsValid(entry, sampleConfig()))

	changed := sampleConfig()
	changed.Filters.MinStars = 2
	assert.False(t, c.IsValid(entry, changed))
}

func TestCache_KeyIsDeterministic(t *testing.T) {
	c := New(NewMemoryStore(0), Options{})

	assert.Equal(t,
		c.Key("test-owner", sampleConfig()),
		c.Key("test-owner", sampleConfig()))

	changed := sampleConfig()
	changed.Display.MaxProjects = 12
	assert.NotEqual(t,
		c.Key("test-owner", sampleConfig()),
		c.Key("test-owner", changed))
	assert.NotEqual(t,
		c.Key("test-owner", sampleConfig()),
		c.Key("other-owner", sampleConfig()))
}

func TestCache_Invalidate(t *testing.T) {
	c := New(NewMemoryStore(0), Options{TTL: time.Hour})

	c.Write("test-owner", sampleConfig(), sampleData(), "")
	c.Invalidate("test-owner", sampleConfig())

	_, ok := c.Read("test-owner", sampleConfig())
	assert.False(t, ok)
}

func TestCache_InvalidateAll(t *testing.T) {
	store := NewMemoryStore(0)
	c := New(store, Options{TTL: time.Hour})

	c.Write("owner-a", sampleConfig(), sampleData(), "")
	c.Write("owner-b", sampleConfig(), sampleData(), "")
	require.Len(t, store.Keys(DefaultPrefix), 2)

	c.InvalidateAll()
	assert.Empty(t, store.Keys(DefaultPrefix))
}

func TestCache_Stats(t *testing.T) {
	c := New(NewMemoryStore(0), Options{TTL: time.Hour})

	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(2 * time.Hour)

	c.now = fixedClock(early)
	c.Write("owner-a", sampleConfig(), sampleData(), "")
	c.now = fixedClock(late)
	c.Write("owner-b", sampleConfig(), sampleData(), "")

	stats := c.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Positive(t, stats.TotalBytes)
	assert.Equal(t, early, stats.Oldest.UTC())
	assert.Equal(t, late, stats.Newest.UTC())
}

// flakyStore fails a configured number of writes, emulating a storage quota
// error.
type flakyStore struct {
	*MemoryStore
	failures int
}

func (s *flakyStore) Set(key, value string) error {
	if s.failures > 0 {
		s.failures--
		return ErrQuotaExceeded
	}
	return s.MemoryStore.Set(key, value)
}

func TestCache_WriteEvictsOnQuotaFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(0)}
	c := New(store, Options{TTL: time.Hour, MaxEntries: 5})

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	owners := []string{"o1", "o2", "o3", "o4", "o5", "o6", "o7"}
	for i, owner := range owners {
		c.now = fixedClock(base.Add(time.Duration(i) * time.Minute))
		c.Write(owner, sampleConfig(), sampleData(), "")
	}
	require.Len(t, store.Keys(DefaultPrefix), 7)

	// The next write hits the quota once; the eviction pass keeps the 5 most
	// recent entries and the retry succeeds.
	store.failures = 1
	c.now = fixedClock(base.Add(time.Hour))
	c.Write("o8", sampleConfig(), sampleData(), "")

	keys := store.Keys(DefaultPrefix)
	assert.Len(t, keys, 6) // 5 survivors + the new entry

	_, ok := c.Read("o8", sampleConfig())
	assert.True(t, ok)

	// The two oldest entries were evicted.
	_, ok = c.ReadStale("o1", sampleConfig())
	assert.False(t, ok)
	_, ok = c.ReadStale("o2", sampleConfig())
	assert.False(t, ok)
	_, ok = c.ReadStale("o7", sampleConfig())
	assert.True(t, ok)
}

func TestCache_WriteAbandonedAfterRetryFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(0), failures: 2}
	c := New(store, Options{TTL: time.Hour})

	// Both the write and its single retry fail; the write is dropped
	// silently.
	c.Write("test-owner", sampleConfig(), sampleData(), "")

	_, ok := c.Read("test-owner", sampleConfig())
	assert.False(t, ok)
}
