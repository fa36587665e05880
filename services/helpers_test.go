package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/neweracoin/wfdropbackend/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var epoch = time.Date(2024, 9, 9, 10, 0, 0, 0, time.UTC)

// newTestDB opens a private in-memory SQLite database with the schema applied.
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

type testEnv struct {
	db       *gorm.DB
	clock    *clockwork.FakeClock
	registry *RegistryService
	ledger   *LedgerService
	rewards  *RewardService
	cycles   *CycleService
	session  *SessionService
	tasks    *TaskService
	boost    *BoostService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(epoch)
	registry := NewRegistryService(db, clock)
	rewards := NewRewardService(db, clock, DefaultStaleAfter)
	return &testEnv{
		db:       db,
		clock:    clock,
		registry: registry,
		ledger:   NewLedgerService(db, registry),
		rewards:  rewards,
		cycles:   NewCycleService(db, clock),
		session:  NewSessionService(registry, rewards),
		tasks:    NewTaskService(db),
		boost:    NewBoostService(db, clock),
	}
}

func tgUser(id int64, username string) models.TelegramUser {
	return models.TelegramUser{ID: id, Username: username, FirstName: username}
}

// sequenceCodes yields the given codes in order, then fails the test.
func sequenceCodes(t *testing.T, codes ...string) CodeSource {
	i := 0
	return func() (string, error) {
		if i >= len(codes) {
			t.Fatalf("code source exhausted after %d codes", len(codes))
		}
		code := codes[i]
		i++
		return code, nil
	}
}

func mustCreate(t *testing.T, env *testEnv, p models.TelegramUser, referralCode string) *models.User {
	t.Helper()
	user, created, err := env.registry.GetOrCreateUser(p, referralCode)
	require.NoError(t, err)
	require.True(t, created)
	return user
}

func reload(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()
	user, err := loadUser(db, id)
	require.NoError(t, err)
	return user
}

// claimBeforeWrite stores row once, committed on its own, right before the
// next create or update against table opens its transaction. It stands in for
// a concurrent request that takes a code between the free check and the write.
func claimBeforeWrite(t *testing.T, db *gorm.DB, table string, row interface{}) {
	t.Helper()
	done := false
	claim := func(tx *gorm.DB) {
		if done || tx.Statement.Table != table {
			return
		}
		done = true
		err := tx.Session(&gorm.Session{NewDB: true, SkipHooks: true}).Create(row).Error
		require.NoError(t, err)
	}
	require.NoError(t, db.Callback().Create().Before("gorm:begin_transaction").Register("test:claim_before_create", claim))
	require.NoError(t, db.Callback().Update().Before("gorm:begin_transaction").Register("test:claim_before_update", claim))
}
