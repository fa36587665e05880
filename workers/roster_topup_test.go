package workers

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/neweracoin/wfdropbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func accounts(n int) []RosterAccount {
	out := make([]RosterAccount, n)
	for i := range out {
		out[i] = RosterAccount{ExternalID: int64(i + 1), Username: fmt.Sprintf("ref%02d", i+1)}
	}
	return out
}

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref_accounts.toml")
	content := `
[[account]]
external_id = 1001
username = "alpha"

[[account]]
external_id = 1002
username = "beta"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	roster, err := LoadRoster(path)
	require.NoError(t, err)
	assert.Equal(t, []RosterAccount{
		{ExternalID: 1001, Username: "alpha"},
		{ExternalID: 1002, Username: "beta"},
	}, roster)

	_, err = LoadRoster(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[[account]\n"), 0o600))
	_, err = LoadRoster(bad)
	assert.Error(t, err)
}

func TestNextBatchWrapsAround(t *testing.T) {
	w := NewRosterTopUpWorker(nil, accounts(25), rand.New(rand.NewPCG(1, 2)))

	first := w.nextBatch()
	require.Len(t, first, RosterBatchSize)
	assert.Equal(t, int64(1), first[0].ExternalID)
	assert.Equal(t, int64(20), first[19].ExternalID)

	second := w.nextBatch()
	require.Len(t, second, RosterBatchSize)
	assert.Equal(t, int64(21), second[0].ExternalID)
	assert.Equal(t, int64(25), second[4].ExternalID)
	assert.Equal(t, int64(1), second[5].ExternalID)

	small := NewRosterTopUpWorker(nil, accounts(3), nil)
	assert.Len(t, small.nextBatch(), 3)
	assert.Len(t, small.nextBatch(), 3)

	empty := NewRosterTopUpWorker(nil, nil, nil)
	assert.Empty(t, empty.nextBatch())
}

func TestRunBatchTopsUpAccountsOffTheBoard(t *testing.T) {
	db := newTestDB(t)
	roster := accounts(3)
	// ref01 is visible, ref02 is not, ref03 has no account
	for _, acct := range roster[:2] {
		require.NoError(t, db.Create(&models.User{ExternalID: acct.ExternalID, Username: acct.Username}).Error)
	}
	require.NoError(t, db.Create(&models.ReferralLeaderboardEntry{Position: 5, UserID: "u-1", ExternalID: 1, Username: "ref01"}).Error)

	w := NewRosterTopUpWorker(db, roster, rand.New(rand.NewPCG(7, 7)))
	credited, err := w.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, credited)

	var visible, hidden models.User
	require.NoError(t, db.Where("external_id = ?", 1).First(&visible).Error)
	require.NoError(t, db.Where("external_id = ?", 2).First(&hidden).Error)

	assert.Zero(t, visible.PointsNo)
	assert.Zero(t, visible.ReferralPoints)

	assert.GreaterOrEqual(t, hidden.PointsNo, 0.0)
	assert.Less(t, hidden.PointsNo, float64(maxPointsTopUp))
	assert.GreaterOrEqual(t, hidden.ReferralPoints, int64(minReferralTopUp))
	assert.Less(t, hidden.ReferralPoints, int64(minReferralTopUp+referralTopUpSpread))
	assert.Equal(t, hidden.ReferralPoints, hidden.ReferralContest)
}

func TestRunBatchJudgesVisibilityByPoints(t *testing.T) {
	db := newTestDB(t)
	roster := accounts(1)
	require.NoError(t, db.Create(&models.User{ExternalID: 1, Username: "ref01"}).Error)

	// ref01 leads the contest but has the fewest points of the snapshot
	entries := []models.ReferralLeaderboardEntry{{Position: 1, UserID: "u-1", ExternalID: 1, Username: "ref01", PointsNo: 0}}
	for i := 2; i <= RosterVisibleTop+1; i++ {
		entries = append(entries, models.ReferralLeaderboardEntry{
			Position:   i,
			UserID:     fmt.Sprintf("u-%d", i),
			ExternalID: int64(1000 + i),
			Username:   fmt.Sprintf("user%d", i),
			PointsNo:   float64(i),
		})
	}
	require.NoError(t, db.CreateInBatches(&entries, 50).Error)

	w := NewRosterTopUpWorker(db, roster, rand.New(rand.NewPCG(3, 4)))
	credited, err := w.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, credited)

	var topped models.User
	require.NoError(t, db.Where("external_id = ?", 1).First(&topped).Error)
	assert.GreaterOrEqual(t, topped.ReferralPoints, int64(minReferralTopUp))
}

func TestRunBatchStopsOnCancelledContext(t *testing.T) {
	db := newTestDB(t)
	w := NewRosterTopUpWorker(db, accounts(2), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.RunBatch(ctx)
	assert.Error(t, err)
}
