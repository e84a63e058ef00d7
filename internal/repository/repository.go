package repository

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"legaldesk/internal/pkg/logger"
	"legaldesk/internal/platform/database"
)

// base routes every query through the single reconnect-and-retry policy.
type base struct {
	db     *gorm.DB
	logger *zap.Logger
}

func newBase(db *gorm.DB) base {
	return base{db: db, logger: logger.Named("repository")}
}

func (b base) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return database.RetryOnTermination(ctx, b.db, b.logger, fn)
}
