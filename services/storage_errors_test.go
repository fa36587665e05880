package services

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestStorageFailuresAreTyped(t *testing.T) {
	db, mock := newMockDB(t)
	registry := NewRegistryService(db, clockwork.NewFakeClockAt(epoch))
	ledger := NewLedgerService(db, registry)
	dbDown := errors.New("connection reset by peer")

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(dbDown)
	_, err := registry.FindUser(tgUser(1, "ann"))
	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "find user", serr.Operation)
	assert.ErrorIs(t, err, dbDown)

	mock.ExpectExec(`UPDATE "users"`).WillReturnError(dbDown)
	_, err = ledger.ApplyPoints("u-1", 5, SourceTask)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "apply points", serr.Operation)

	mock.ExpectQuery(`SELECT`).WillReturnError(dbDown)
	_, err = registry.ListReferrals("abcd1234")
	require.ErrorAs(t, err, &serr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrapStoragePassesTypedErrors(t *testing.T) {
	nf := &NotFoundError{Resource: "user", Identifier: "1"}
	assert.Same(t, nf, wrapStorage("op", nf))
	assert.ErrorIs(t, wrapStorage("op", ErrBoostKeyInvalid), ErrBoostKeyInvalid)
	assert.NoError(t, wrapStorage("op", nil))

	var serr *StorageError
	require.ErrorAs(t, wrapStorage("commit", errors.New("boom")), &serr)
	assert.Equal(t, "commit", serr.Operation)
}
