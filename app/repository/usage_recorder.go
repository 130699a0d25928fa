package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
)

// UsageRecorder writes the last-used marker and the usage event of one
// validation in a single transaction.
type UsageRecorder struct {
	db        *sqlx.DB
	keyRepo   *APIKeyRepository
	eventRepo *UsageEventRepository
}

func NewUsageRecorder(db *sqlx.DB, keyRepo *APIKeyRepository, eventRepo *UsageEventRepository) *UsageRecorder {
	return &UsageRecorder{db: db, keyRepo: keyRepo, eventRepo: eventRepo}
}

func (r *UsageRecorder) RecordUsage(ctx context.Context, event *entity.UsageEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin usage transaction: %w", err)
	}
	defer tx.Rollback()

	if err = r.keyRepo.WithTx(tx).TouchLastUsed(ctx, event.KeyID, event.OccurredAt); err != nil {
		return fmt.Errorf("update last used: %w", err)
	}
	if err = r.eventRepo.WithTx(tx).Create(ctx, event); err != nil {
		return fmt.Errorf("append usage event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit usage transaction: %w", err)
	}
	return nil
}
