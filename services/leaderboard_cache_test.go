package services

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardCacheExpires(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	cache, err := NewLeaderboardCache(time.Minute, clock)
	require.NoError(t, err)

	_, ok := cache.Get(ScoreLeaderboard)
	assert.False(t, ok)

	cache.Set(ScoreLeaderboard, []string{"a"})
	v, ok := cache.Get(ScoreLeaderboard)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, v)

	_, ok = cache.Get(ReferralLeaderboard)
	assert.False(t, ok)

	clock.Advance(time.Minute)
	_, ok = cache.Get(ScoreLeaderboard)
	assert.False(t, ok)
}

func TestLeaderboardCacheInvalidate(t *testing.T) {
	cache, err := NewLeaderboardCache(0, clockwork.NewFakeClockAt(epoch))
	require.NoError(t, err)
	assert.Equal(t, DefaultCacheTTL, cache.ttl)

	cache.Set(ReferralLeaderboard, 1)
	cache.Invalidate(ReferralLeaderboard)
	_, ok := cache.Get(ReferralLeaderboard)
	assert.False(t, ok)
}
