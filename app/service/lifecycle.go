package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-apikeys/app/credential"
	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
	"github.com/vibast-solutions/ms-go-apikeys/app/metrics"
)

// IssuedKey carries the raw secret. It is the only place the secret ever
// leaves the service.
type IssuedKey struct {
	Secret string
	Key    *entity.APIKey
}

type LifecycleService interface {
	Issue(ctx context.Context, projectID, requesterID uint64, env entity.Environment) (*IssuedKey, error)
	List(ctx context.Context, projectID, requesterID uint64) ([]*entity.APIKey, error)
	Revoke(ctx context.Context, keyID, requesterID uint64) error
	Usage(ctx context.Context, keyID, requesterID uint64, limit int) ([]*entity.UsageEvent, error)
}

type lifecycleService struct {
	keys     APIKeyRepository
	projects ProjectRepository
	usage    UsageEventRepository
	hasher   credential.Hasher
	metrics  *metrics.Metrics
	now      func() time.Time
}

type LifecycleOption func(*lifecycleService)

func WithLifecycleMetrics(m *metrics.Metrics) LifecycleOption {
	return func(s *lifecycleService) {
		s.metrics = m
	}
}

func WithLifecycleClock(now func() time.Time) LifecycleOption {
	return func(s *lifecycleService) {
		s.now = now
	}
}

func NewLifecycleService(
	keys APIKeyRepository,
	projects ProjectRepository,
	usage UsageEventRepository,
	hasher credential.Hasher,
	opts ...LifecycleOption,
) LifecycleService {
	s := &lifecycleService{
		keys:     keys,
		projects: projects,
		usage:    usage,
		hasher:   hasher,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *lifecycleService) Issue(ctx context.Context, projectID, requesterID uint64, env entity.Environment) (*IssuedKey, error) {
	if _, err := s.ownedProject(ctx, projectID, requesterID); err != nil {
		return nil, err
	}
	if !env.Valid() {
		return nil, ErrInvalidEnvironment
	}

	secret, err := credential.Generate(env)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	digest, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	key := &entity.APIKey{
		ProjectID:   projectID,
		SecretHash:  digest,
		Environment: env,
		Status:      entity.KeyStatusActive,
		CreatedAt:   s.now().UTC(),
	}
	if err = s.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}

	s.metrics.RecordIssued(string(env))
	logrus.WithFields(logrus.Fields{
		"key_id":      key.ID,
		"project_id":  projectID,
		"environment": env,
	}).Info("API key issued")

	return &IssuedKey{Secret: secret, Key: key}, nil
}

func (s *lifecycleService) List(ctx context.Context, projectID, requesterID uint64) ([]*entity.APIKey, error) {
	if _, err := s.ownedProject(ctx, projectID, requesterID); err != nil {
		return nil, err
	}

	keys, err := s.keys.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

func (s *lifecycleService) Revoke(ctx context.Context, keyID, requesterID uint64) error {
	key, err := s.ownedKey(ctx, keyID, requesterID)
	if err != nil {
		return err
	}
	if !key.IsActive() {
		return ErrKeyAlreadyRevoked
	}

	revoked, err := s.keys.Revoke(ctx, key.ID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if !revoked {
		// Lost a race with another revoke of the same key.
		return ErrKeyAlreadyRevoked
	}

	s.metrics.RecordRevoked()
	logrus.WithFields(logrus.Fields{
		"key_id":     key.ID,
		"project_id": key.ProjectID,
	}).Info("API key revoked")

	return nil
}

func (s *lifecycleService) Usage(ctx context.Context, keyID, requesterID uint64, limit int) ([]*entity.UsageEvent, error) {
	key, err := s.ownedKey(ctx, keyID, requesterID)
	if err != nil {
		return nil, err
	}

	events, err := s.usage.FindByKeyID(ctx, key.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list usage events: %w", err)
	}
	return events, nil
}

// ownedProject hides projects the requester does not own behind
// ErrProjectNotFound.
func (s *lifecycleService) ownedProject(ctx context.Context, projectID, requesterID uint64) (*entity.Project, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project %d: %w", projectID, err)
	}
	if project == nil || !project.IsOwnedBy(requesterID) {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

func (s *lifecycleService) ownedKey(ctx context.Context, keyID, requesterID uint64) (*entity.APIKey, error) {
	key, err := s.keys.FindByID(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("load api key %d: %w", keyID, err)
	}
	if key == nil {
		return nil, ErrKeyNotFound
	}

	project, err := s.projects.FindByID(ctx, key.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load project %d: %w", key.ProjectID, err)
	}
	if project == nil {
		return nil, ErrKeyNotFound
	}
	if !project.IsOwnedBy(requesterID) {
		return nil, ErrUnauthorized
	}
	return key, nil
}
