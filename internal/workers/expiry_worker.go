package workers

import (
	"context"
	"time"

	"acervo_backend/internal/logger"

	"gorm.io/gorm"
)

// ExpiryWorker periodically marks lapsed subscriptions and grants inactive.
// Access decisions never depend on this sweep (the policy checks expiry
// itself); it keeps the rows honest for reporting and admin tooling.
type ExpiryWorker struct {
	db       *gorm.DB
	interval time.Duration
}

func NewExpiryWorker(db *gorm.DB) *ExpiryWorker {
	return &ExpiryWorker{db: db, interval: 6 * time.Hour}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *ExpiryWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *ExpiryWorker) sweep() {
	result := w.db.Exec(`
		UPDATE subscriptions
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active = TRUE
		AND expires_at IS NOT NULL
		AND expires_at < NOW()
	`)
	if result.Error != nil {
		logger.Error("failed to expire subscriptions", "error", result.Error)
	} else if result.RowsAffected > 0 {
		logger.Info("expired subscriptions", "count", result.RowsAffected)
	}

	result = w.db.Exec(`
		UPDATE resource_accesses
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active = TRUE
		AND expires_at IS NOT NULL
		AND expires_at < NOW()
	`)
	if result.Error != nil {
		logger.Error("failed to expire resource grants", "error", result.Error)
	} else if result.RowsAffected > 0 {
		logger.Info("expired resource grants", "count", result.RowsAffected)
	}
}
