package services

import (
	"testing"
	"time"

	"github.com/neweracoin/wfdropbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addTask(t *testing.T, env *testEnv, key, text string) *models.Task {
	t.Helper()
	task, err := env.tasks.Create(TaskInput{ClaimKey: key, TaskText: text})
	require.NoError(t, err)
	return task
}

func socialByKey(user *models.User) map[string]models.SocialReward {
	out := map[string]models.SocialReward{}
	for _, r := range user.SocialRewards {
		out[r.ClaimKey] = r
	}
	return out
}

func TestReconcileSocialTasksIsAdditive(t *testing.T) {
	env := newTestEnv(t)
	addTask(t, env, "follow-x", "Follow us on X")
	addTask(t, env, "join-tg", "Join the channel")
	user := mustCreate(t, env, tgUser(1, "ann"), "")

	added, err := env.rewards.ReconcileSocialTasks(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)

	_, err = env.rewards.ClaimSocialReward(tgUser(1, "ann"), "follow-x")
	require.NoError(t, err)

	// catalog edits must not leak into existing entries
	task, err := env.tasks.List()
	require.NoError(t, err)
	_, err = env.tasks.Update(task[0].ID, TaskInput{TaskText: "Changed text"})
	require.NoError(t, err)
	addTask(t, env, "retweet", "Retweet the pinned post")

	added, err = env.rewards.ReconcileSocialTasks(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)

	added, err = env.rewards.ReconcileSocialTasks(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), added)

	rows := socialByKey(reload(t, env.db, user.ID))
	require.Len(t, rows, 3)
	assert.True(t, rows["follow-x"].Claimed)
	assert.Equal(t, "Follow us on X", rows["follow-x"].TaskText)
	assert.False(t, rows["join-tg"].Claimed)
	assert.False(t, rows["retweet"].Claimed)
}

func TestClaimSocialRewardErrors(t *testing.T) {
	env := newTestEnv(t)
	addTask(t, env, "follow-x", "Follow us on X")
	user := mustCreate(t, env, tgUser(1, "ann"), "")
	_, err := env.rewards.ReconcileSocialTasks(user.ID)
	require.NoError(t, err)

	var nf *NotFoundError
	_, err = env.rewards.ClaimSocialReward(tgUser(1, "ann"), "missing")
	assert.ErrorAs(t, err, &nf)

	_, err = env.rewards.ClaimSocialReward(tgUser(99, "ghost"), "follow-x")
	assert.ErrorAs(t, err, &nf)

	var verr *ValidationError
	_, err = env.rewards.ClaimSocialReward(tgUser(1, "ann"), "")
	assert.ErrorAs(t, err, &verr)
}

func TestClaimSocialTimerStoresTime(t *testing.T) {
	env := newTestEnv(t)
	addTask(t, env, "watch", "Watch the video")
	user := mustCreate(t, env, tgUser(1, "ann"), "")
	_, err := env.rewards.ReconcileSocialTasks(user.ID)
	require.NoError(t, err)

	updated, err := env.rewards.ClaimSocialTimer(tgUser(1, "ann"), "watch", 1726000000)
	require.NoError(t, err)
	row := socialByKey(updated)["watch"]
	assert.True(t, row.Claimed)
	assert.Equal(t, float64(1726000000), row.TaskPoints)

	_, err = env.rewards.ClaimSocialTimer(tgUser(1, "ann"), "watch", 0)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func loginUser(t *testing.T, env *testEnv, p models.TelegramUser) *models.User {
	t.Helper()
	user, _, err := env.session.Login(p, "")
	require.NoError(t, err)
	return user
}

func claimedDaily(user *models.User) int {
	n := 0
	for _, r := range user.DailyRewards {
		if r.Claimed {
			n++
		}
	}
	return n
}

func TestLoginSeedsDailyStrip(t *testing.T) {
	env := newTestEnv(t)
	user := loginUser(t, env, tgUser(1, "ann"))

	require.Len(t, user.DailyRewards, DailySlots)
	assert.Equal(t, "5", user.DailyRewards[0].ClaimKey)
	assert.Equal(t, FinalDailyKey, user.DailyRewards[DailySlots-1].ClaimKey)
	assert.Equal(t, 0, claimedDaily(user))
	require.NotNil(t, user.LastLogin)
}

func TestClaimDailyReward(t *testing.T) {
	env := newTestEnv(t)
	p := tgUser(1, "ann")
	loginUser(t, env, p)

	user, err := env.rewards.ClaimDailyReward(p, "5")
	require.NoError(t, err)
	assert.Equal(t, 1, claimedDaily(user))
	assert.Equal(t, 1, user.PointsToday)
	require.NotNil(t, user.LastLogin)
	assert.True(t, user.LastLogin.Equal(NextMidnight(epoch)))

	_, err = env.rewards.ClaimDailyReward(p, "5")
	var claimed *AlreadyClaimedError
	assert.ErrorAs(t, err, &claimed)

	_, err = env.rewards.ClaimDailyReward(p, "999")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestClaimFinalDailyKeyRearmsStrip(t *testing.T) {
	env := newTestEnv(t)
	p := tgUser(1, "ann")
	loginUser(t, env, p)

	for _, key := range []string{"5", "10", "15"} {
		_, err := env.rewards.ClaimDailyReward(p, key)
		require.NoError(t, err)
	}
	user, err := env.rewards.ClaimDailyReward(p, FinalDailyKey)
	require.NoError(t, err)
	assert.Equal(t, 0, claimedDaily(user))
	require.NotNil(t, user.NextLogin)
	assert.True(t, user.NextLogin.Equal(NextMidnight(epoch)))
}

func TestReconcileDailyRewards(t *testing.T) {
	t.Run("all claimed resets", func(t *testing.T) {
		env := newTestEnv(t)
		user := loginUser(t, env, tgUser(1, "ann"))
		require.NoError(t, env.db.Model(&models.DailyReward{}).Where("user_id = ?", user.ID).Update("claimed", true).Error)

		require.NoError(t, env.rewards.ReconcileDailyRewards(user.ID))
		assert.Equal(t, 0, claimedDaily(reload(t, env.db, user.ID)))
	})

	t.Run("stale login resets", func(t *testing.T) {
		env := newTestEnv(t)
		p := tgUser(1, "ann")
		loginUser(t, env, p)
		user, err := env.rewards.ClaimDailyReward(p, "5")
		require.NoError(t, err)

		// lastLogin is the next midnight; one day later it is still fresh
		env.clock.Advance(24 * time.Hour)
		require.NoError(t, env.rewards.ReconcileDailyRewards(user.ID))
		assert.Equal(t, 1, claimedDaily(reload(t, env.db, user.ID)))

		env.clock.Advance(24 * time.Hour)
		require.NoError(t, env.rewards.ReconcileDailyRewards(user.ID))
		assert.Equal(t, 0, claimedDaily(reload(t, env.db, user.ID)))
	})

	t.Run("truncates to seven", func(t *testing.T) {
		env := newTestEnv(t)
		user := loginUser(t, env, tgUser(1, "ann"))
		extra := []models.DailyReward{
			{UserID: user.ID, ClaimKey: "40", Position: 7},
			{UserID: user.ID, ClaimKey: "45", Position: 8},
		}
		require.NoError(t, env.db.Create(&extra).Error)

		require.NoError(t, env.rewards.ReconcileDailyRewards(user.ID))
		user = reload(t, env.db, user.ID)
		require.Len(t, user.DailyRewards, DailySlots)
		assert.Equal(t, FinalDailyKey, user.DailyRewards[DailySlots-1].ClaimKey)
	})

	t.Run("idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		p := tgUser(1, "ann")
		loginUser(t, env, p)
		user, err := env.rewards.ClaimDailyReward(p, "10")
		require.NoError(t, err)

		require.NoError(t, env.rewards.ReconcileDailyRewards(user.ID))
		require.NoError(t, env.rewards.ReconcileDailyRewards(user.ID))
		assert.Equal(t, 1, claimedDaily(reload(t, env.db, user.ID)))
	})
}

func TestResetDailyClaimIfStale(t *testing.T) {
	env := newTestEnv(t)
	p := tgUser(1, "ann")
	loginUser(t, env, p)
	_, err := env.rewards.ClaimDailyReward(p, "5")
	require.NoError(t, err)

	user, reset, err := env.rewards.ResetDailyClaimIfStale(p)
	require.NoError(t, err)
	assert.False(t, reset)
	assert.Equal(t, 1, claimedDaily(user))

	env.clock.Advance(3 * 24 * time.Hour)
	user, reset, err = env.rewards.ResetDailyClaimIfStale(p)
	require.NoError(t, err)
	assert.True(t, reset)
	assert.Equal(t, 0, claimedDaily(user))
}

func TestRearmDailyRewards(t *testing.T) {
	env := newTestEnv(t)
	p := tgUser(1, "ann")
	loginUser(t, env, p)
	_, err := env.rewards.ClaimDailyReward(p, "5")
	require.NoError(t, err)

	env.clock.Advance(3 * time.Hour)
	user, err := env.rewards.RearmDailyRewards(p)
	require.NoError(t, err)
	assert.Equal(t, 0, claimedDaily(user))
	require.NotNil(t, user.NextLogin)
	assert.True(t, user.NextLogin.Equal(NextMidnight(epoch)))

	_, err = env.rewards.RearmDailyRewards(tgUser(2, "ghost"))
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestNextMidnight(t *testing.T) {
	assert.Equal(t, time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC), NextMidnight(epoch))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), NextMidnight(time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)))
}
