package service

import (
	"context"

	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
)

// APIKeyRepository is the key-record half of the credential store.
type APIKeyRepository interface {
	Create(ctx context.Context, key *entity.APIKey) error
	FindByID(ctx context.Context, id uint64) (*entity.APIKey, error)
	FindActive(ctx context.Context) ([]*entity.APIKey, error)
	FindByProjectID(ctx context.Context, projectID uint64) ([]*entity.APIKey, error)
	Revoke(ctx context.Context, id uint64) (bool, error)
}

type ProjectRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Project, error)
}

// UsageRecorder persists the effects of one successful validation: the
// key's last-used marker and the appended usage event.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, event *entity.UsageEvent) error
}

type UsageEventRepository interface {
	FindByKeyID(ctx context.Context, keyID uint64, limit int) ([]*entity.UsageEvent, error)
}
