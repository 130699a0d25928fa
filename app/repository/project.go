package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
)

type ProjectRepository struct {
	db DBTX
}

func NewProjectRepository(db DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	query := `INSERT INTO projects (name, owner_id, created_at) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, project.Name, project.OwnerID, project.CreatedAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	project.ID = uint64(id)
	return nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id uint64) (*entity.Project, error) {
	query := `SELECT id, name, owner_id, created_at FROM projects WHERE id = ?`
	project := &entity.Project{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.OwnerID,
		&project.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}
