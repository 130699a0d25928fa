package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
)

const apiKeyColumns = `id, project_id, secret_hash, environment, status, created_at, last_used_at`

type APIKeyRepository struct {
	db DBTX
}

func NewAPIKeyRepository(db DBTX) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) WithTx(tx DBTX) *APIKeyRepository {
	return &APIKeyRepository{db: tx}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *entity.APIKey) error {
	query := `
		INSERT INTO api_keys (project_id, secret_hash, environment, status, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		key.ProjectID,
		key.SecretHash,
		string(key.Environment),
		string(key.Status),
		key.CreatedAt,
		key.LastUsedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	key.ID = uint64(id)
	return nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uint64) (*entity.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys WHERE id = ?
	`
	key, err := scanAPIKey(r.db.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

// FindActive returns a snapshot of every active key in id order. Validation
// scans this snapshot, so the order decides which of two matching records wins.
func (r *APIKeyRepository) FindActive(ctx context.Context) ([]*entity.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE status = ?
		ORDER BY id ASC
	`
	return r.findMany(ctx, query, string(entity.KeyStatusActive))
}

func (r *APIKeyRepository) FindByProjectID(ctx context.Context, projectID uint64) ([]*entity.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
	`
	return r.findMany(ctx, query, projectID)
}

// Revoke moves an active key to revoked. It reports false when no active
// key with that id exists.
func (r *APIKeyRepository) Revoke(ctx context.Context, id uint64) (bool, error) {
	query := `UPDATE api_keys SET status = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query,
		string(entity.KeyStatusRevoked),
		id,
		string(entity.KeyStatusActive),
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id uint64, usedAt time.Time) error {
	query := `UPDATE api_keys SET last_used_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, usedAt, id)
	return err
}

func (r *APIKeyRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]*entity.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]*entity.APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func scanAPIKey(scan rowScanner) (*entity.APIKey, error) {
	key := &entity.APIKey{}
	var environment, status string
	if err := scan(
		&key.ID,
		&key.ProjectID,
		&key.SecretHash,
		&environment,
		&status,
		&key.CreatedAt,
		&key.LastUsedAt,
	); err != nil {
		return nil, err
	}

	key.Environment = entity.Environment(environment)
	key.Status = entity.KeyStatus(status)
	return key, nil
}
