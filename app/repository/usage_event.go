package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
)

const defaultUsageLimit = 100

// UsageEventRepository only ever inserts and reads; usage events are never
// updated or deleted outside of the cascade from their key.
type UsageEventRepository struct {
	db sqlx.ExtContext
}

func NewUsageEventRepository(db sqlx.ExtContext) *UsageEventRepository {
	return &UsageEventRepository{db: db}
}

func (r *UsageEventRepository) WithTx(tx sqlx.ExtContext) *UsageEventRepository {
	return &UsageEventRepository{db: tx}
}

func (r *UsageEventRepository) Create(ctx context.Context, event *entity.UsageEvent) error {
	query := `
		INSERT INTO usage_events (key_id, occurred_at, endpoint, source_address, method)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		event.KeyID,
		event.OccurredAt,
		event.Endpoint,
		event.SourceAddress,
		event.Method,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}

// FindByKeyID returns the newest events first.
func (r *UsageEventRepository) FindByKeyID(ctx context.Context, keyID uint64, limit int) ([]*entity.UsageEvent, error) {
	if limit <= 0 {
		limit = defaultUsageLimit
	}

	query := `
		SELECT id, key_id, occurred_at, endpoint, source_address, method
		FROM usage_events
		WHERE key_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`
	events := make([]*entity.UsageEvent, 0)
	if err := sqlx.SelectContext(ctx, r.db, &events, query, keyID, limit); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *UsageEventRepository) CountByKeyID(ctx context.Context, keyID uint64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM usage_events WHERE key_id = ?`
	if err := sqlx.GetContext(ctx, r.db, &count, query, keyID); err != nil {
		return 0, err
	}
	return count, nil
}
