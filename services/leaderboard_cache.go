package services

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jonboulle/clockwork"
)

// DefaultCacheTTL is how long a materialized snapshot shortcuts recomputation.
const DefaultCacheTTL = 5 * time.Minute

type cachedSnapshot struct {
	storedAt time.Time
	value    interface{}
}

// LeaderboardCache keeps the last result per snapshot kind for a fixed TTL.
type LeaderboardCache struct {
	entries *lru.Cache
	ttl     time.Duration
	clock   clockwork.Clock
}

func NewLeaderboardCache(ttl time.Duration, clock clockwork.Clock) (*LeaderboardCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	entries, err := lru.New(16)
	if err != nil {
		return nil, err
	}
	return &LeaderboardCache{entries: entries, ttl: ttl, clock: clock}, nil
}

// Get returns the value stored for kind if it is younger than the TTL.
func (c *LeaderboardCache) Get(kind LeaderboardKind) (interface{}, bool) {
	raw, ok := c.entries.Get(kind)
	if !ok {
		return nil, false
	}
	entry := raw.(cachedSnapshot)
	if c.clock.Since(entry.storedAt) >= c.ttl {
		c.entries.Remove(kind)
		return nil, false
	}
	return entry.value, true
}

func (c *LeaderboardCache) Set(kind LeaderboardKind, value interface{}) {
	c.entries.Add(kind, cachedSnapshot{storedAt: c.clock.Now(), value: value})
}

func (c *LeaderboardCache) Invalidate(kind LeaderboardKind) {
	c.entries.Remove(kind)
}
