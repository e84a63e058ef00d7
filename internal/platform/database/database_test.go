package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"legaldesk/internal/apperr"
)

type sqlStateErr struct{ code string }

func (e sqlStateErr) Error() string    { return "pg error " + e.code }
func (e sqlStateErr) SQLState() string { return e.code }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(context.Background(), "sqlite", ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestIsTermination(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"sqlstate XX000", sqlStateErr{"XX000"}, true},
		{"other sqlstate", sqlStateErr{"23505"}, false},
		{"message", errors.New("ERROR: db_termination (SQLSTATE XX000)"), true},
		{"unrelated", errors.New("syntax error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTermination(tt.err))
		})
	}
}

func TestRetryOnTermination(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t.Run("retries exactly once", func(t *testing.T) {
		calls := 0
		err := RetryOnTermination(ctx, db, nil, func(tx *gorm.DB) error {
			calls++
			if calls == 1 {
				return driver.ErrBadConn
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("second termination surfaces as storage connection error", func(t *testing.T) {
		calls := 0
		err := RetryOnTermination(ctx, db, nil, func(tx *gorm.DB) error {
			calls++
			return sqlStateErr{"XX000"}
		})
		require.Error(t, err)
		assert.Equal(t, 2, calls)
		assert.True(t, apperr.Is(err, apperr.KindStorageConnection))
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		boom := errors.New("constraint failed")
		err := RetryOnTermination(ctx, db, nil, func(tx *gorm.DB) error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}

func TestDialectorForRejectsUnknownDriver(t *testing.T) {
	_, err := dialectorFor("oracle", "")
	assert.Error(t, err)
}

type gadget struct {
	ID   uint
	Name string
}

func TestOpen_GormLogging(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	gormLogs := func() int {
		return observed.Filter(func(e observer.LoggedEntry) bool { return e.LoggerName == "gorm" }).Len()
	}
	db, err := Open(context.Background(), "sqlite", ":memory:", zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, db.AutoMigrate(&gadget{}))

	var g gadget
	err = db.First(&g, 42).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Zero(t, gormLogs())

	err = db.Raw("SELECT * FROM no_such_table").Scan(&g).Error
	require.Error(t, err)
	assert.Equal(t, 1, gormLogs())
}
