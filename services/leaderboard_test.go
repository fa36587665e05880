package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/neweracoin/wfdropbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.bodies == nil {
		p.bodies = map[string][]byte{}
	}
	p.bodies[key] = body
	return nil
}

func newLeaderboards(t *testing.T, env *testEnv, pub SnapshotPublisher) *LeaderboardService {
	t.Helper()
	cache, err := NewLeaderboardCache(DefaultCacheTTL, env.clock)
	require.NoError(t, err)
	return NewLeaderboardService(env.db, cache, pub)
}

// seedRankedUsers inserts n users where user i has pointsNo i, one referral
// and referralContest n-i.
func seedRankedUsers(t *testing.T, env *testEnv, n int) {
	t.Helper()
	users := make([]models.User, n)
	for i := range users {
		users[i] = models.User{
			ExternalID:      int64(i + 1),
			Username:        fmt.Sprintf("user%03d", i+1),
			PointsNo:        float64(i + 1),
			ReferralPoints:  1,
			ReferralContest: int64(n - i),
		}
	}
	require.NoError(t, env.db.CreateInBatches(&users, 50).Error)
}

func TestRefreshScoreKeepsTopHundred(t *testing.T) {
	env := newTestEnv(t)
	seedRankedUsers(t, env, SnapshotSize+5)
	lb := newLeaderboards(t, env, nil)

	entries, cached, err := lb.RefreshScore(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, entries, SnapshotSize)
	assert.Equal(t, float64(SnapshotSize+5), entries[0].TotalScore)
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].TotalScore, entries[i].TotalScore)
		assert.Equal(t, i+1, entries[i].Position)
	}

	stored, err := lb.ScoreSnapshot()
	require.NoError(t, err)
	require.Len(t, stored, SnapshotSize)
	assert.Equal(t, int64(SnapshotSize+5), stored[0].ExternalID)
	assert.Equal(t, 1, stored[0].Position)
}

func TestRefreshReferralOrdersByContest(t *testing.T) {
	env := newTestEnv(t)
	seedRankedUsers(t, env, 10)
	lb := newLeaderboards(t, env, nil)

	entries, _, err := lb.RefreshReferral(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	assert.Equal(t, int64(1), entries[0].ExternalID)
	assert.Equal(t, int64(10), entries[0].ReferralContest)
	assert.Equal(t, int64(10), entries[9].ExternalID)
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	env := newTestEnv(t)
	seedRankedUsers(t, env, 10)
	lb := newLeaderboards(t, env, nil)
	ctx := context.Background()

	_, _, err := lb.RefreshScore(ctx, false)
	require.NoError(t, err)

	require.NoError(t, env.db.Where("external_id > ?", 3).Delete(&models.User{}).Error)
	_, cached, err := lb.RefreshScore(ctx, true)
	require.NoError(t, err)
	assert.False(t, cached)

	stored, err := lb.ScoreSnapshot()
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestRefreshUsesCacheWithinTTL(t *testing.T) {
	env := newTestEnv(t)
	seedRankedUsers(t, env, 3)
	lb := newLeaderboards(t, env, nil)
	ctx := context.Background()

	n, cached, err := lb.Refresh(ctx, ReferralLeaderboard, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, n)

	seedMore := models.User{ExternalID: 99, Username: "late", ReferralContest: 50}
	require.NoError(t, env.db.Create(&seedMore).Error)

	env.clock.Advance(DefaultCacheTTL - time.Second)
	n, cached, err = lb.Refresh(ctx, ReferralLeaderboard, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 3, n)

	env.clock.Advance(time.Second)
	n, cached, err = lb.Refresh(ctx, ReferralLeaderboard, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 4, n)

	_, _, err = lb.Refresh(ctx, LeaderboardKind("weekly"), false)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestForcedRefreshDropsCachedSnapshot(t *testing.T) {
	env := newTestEnv(t)
	seedRankedUsers(t, env, 3)
	lb := newLeaderboards(t, env, nil)
	ctx := context.Background()

	_, _, err := lb.RefreshReferral(ctx, false)
	require.NoError(t, err)
	require.NoError(t, env.db.Exec("ALTER TABLE users RENAME TO users_gone").Error)

	_, _, err = lb.RefreshReferral(ctx, true)
	require.Error(t, err)

	_, cached, err := lb.RefreshReferral(ctx, false)
	assert.Error(t, err)
	assert.False(t, cached)
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	env := newTestEnv(t)
	seedRankedUsers(t, env, 2)
	pub := &recordingPublisher{}
	lb := newLeaderboards(t, env, pub)

	_, _, err := lb.RefreshScore(context.Background(), false)
	require.NoError(t, err)
	body, ok := pub.bodies["leaderboards/score.json"]
	require.True(t, ok)
	assert.Contains(t, string(body), `"username":"user002"`)
}

func TestRefreshSurvivesPublishFailure(t *testing.T) {
	env := newTestEnv(t)
	seedRankedUsers(t, env, 2)
	lb := newLeaderboards(t, env, &recordingPublisher{err: errors.New("bucket unavailable")})

	entries, _, err := lb.RefreshReferral(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestParseLeaderboardKind(t *testing.T) {
	kind, err := ParseLeaderboardKind("score")
	require.NoError(t, err)
	assert.Equal(t, ScoreLeaderboard, kind)

	_, err = ParseLeaderboardKind("")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
