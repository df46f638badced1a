// Package cache provides the time-bounded extraction result cache.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/felipesantoos/read-it-later-backend/internal/extract"
)

const (
	// DefaultTTL is how long a stored extraction result stays valid.
	DefaultTTL = 24 * time.Hour
	// DefaultSweepInterval is how often expired entries are evicted.
	DefaultSweepInterval = time.Hour
)

// Results caches extraction output keyed by the exact URL string. Entries
// are overwritten, never merged, and expire after the TTL; an eviction
// sweep reclaims expired keys in the background. Safe for concurrent use.
type Results struct {
	store *gocache.Cache
}

// New constructs a Results cache. Zero durations fall back to the defaults.
func New(ttl, sweepInterval time.Duration) *Results {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Results{store: gocache.New(ttl, sweepInterval)}
}

// Get returns the cached snapshot for a URL, if present and unexpired.
func (r *Results) Get(url string) (extract.Metadata, bool) {
	value, ok := r.store.Get(url)
	if !ok {
		return extract.Metadata{}, false
	}
	meta, ok := value.(extract.Metadata)
	return meta, ok
}

// Set stores a snapshot for a URL, replacing any previous entry.
func (r *Results) Set(url string, meta extract.Metadata) {
	r.store.SetDefault(url, meta)
}

// Len reports the number of entries currently held, expired or not.
func (r *Results) Len() int {
	return r.store.ItemCount()
}
