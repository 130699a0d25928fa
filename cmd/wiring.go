package cmd

import (
	"github.com/jmoiron/sqlx"

	"github.com/vibast-solutions/ms-go-apikeys/app/credential"
	"github.com/vibast-solutions/ms-go-apikeys/app/metrics"
	"github.com/vibast-solutions/ms-go-apikeys/app/repository"
	"github.com/vibast-solutions/ms-go-apikeys/app/service"
)

type stores struct {
	keys     *repository.APIKeyRepository
	projects *repository.ProjectRepository
	events   *repository.UsageEventRepository
	recorder *repository.UsageRecorder
}

func newStores(db *sqlx.DB) *stores {
	keys := repository.NewAPIKeyRepository(db)
	events := repository.NewUsageEventRepository(db)
	return &stores{
		keys:     keys,
		projects: repository.NewProjectRepository(db),
		events:   events,
		recorder: repository.NewUsageRecorder(db, keys, events),
	}
}

func newLifecycle(s *stores, hasher credential.Hasher, m *metrics.Metrics) service.LifecycleService {
	return service.NewLifecycleService(s.keys, s.projects, s.events, hasher, service.WithLifecycleMetrics(m))
}

func newValidator(s *stores, hasher credential.Hasher, m *metrics.Metrics) service.Validator {
	return service.NewValidator(s.keys, s.projects, s.recorder, hasher, service.WithValidatorMetrics(m))
}
