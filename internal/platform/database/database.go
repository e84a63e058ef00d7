package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"legaldesk/internal/apperr"
	"legaldesk/internal/pkg/retry"
)

// Open connects with the bounded backoff policy of retry.ConnectConfig and
// returns a StorageConnection error once the attempts are exhausted.
func Open(ctx context.Context, driverName, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := retry.DoWithResult(ctx, retry.ConnectConfig(logger), func() (*gorm.DB, error) {
		return open(ctx, driverName, dsn, logger)
	})
	if err != nil {
		return nil, apperr.StorageConnection(fmt.Errorf("connect %s failed: %w", driverName, err))
	}

	logger.Info("database connected", zap.String("driver", driverName))
	return db, nil
}

// newGormLogger routes gorm warnings through zap. Missing rows are an
// expected outcome of lookups and are not logged.
func newGormLogger(logger *zap.Logger) gormlogger.Interface {
	return gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func open(ctx context.Context, driverName, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(driverName, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db failed: %w", err)
	}

	if driverName == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(1 * time.Hour)
		sqlDB.SetConnMaxIdleTime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	return db, nil
}

func dialectorFor(driverName, dsn string) (gorm.Dialector, error) {
	switch driverName {
	case "mysql", "":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}
}

// IsTermination reports whether err means the server dropped the session
// (SQLSTATE XX000 / db_termination, or a dead pooled connection).
func IsTermination(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, gomysql.ErrInvalidConn) {
		return true
	}

	var stateErr interface{ SQLState() string }
	if errors.As(err, &stateErr) && stateErr.SQLState() == "XX000" {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "db_termination") ||
		strings.Contains(msg, "terminating connection") ||
		strings.Contains(msg, "server has gone away")
}

// RetryOnTermination runs fn and, when it fails with a termination error,
// re-pings the pool and runs it exactly once more.
func RetryOnTermination(ctx context.Context, db *gorm.DB, logger *zap.Logger, fn func(tx *gorm.DB) error) error {
	err := fn(db.WithContext(ctx))
	if !IsTermination(err) {
		return err
	}

	if logger != nil {
		logger.Warn("database termination detected, retrying query once", zap.Error(err))
	}
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
			return apperr.StorageConnection(pingErr)
		}
	}

	err = fn(db.WithContext(ctx))
	if IsTermination(err) {
		return apperr.StorageConnection(err)
	}
	return err
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
