package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-apikeys/app/credential"
	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
	"github.com/vibast-solutions/ms-go-apikeys/app/metrics"
)

type activeKeyFinder interface {
	FindActive(ctx context.Context) ([]*entity.APIKey, error)
}

// Validator authenticates a candidate secret. Digests are salted per key, so
// every attempt scans the full active snapshot; cost grows with the number
// of active keys.
type Validator interface {
	Validate(ctx context.Context, candidate string, req RequestInfo) (*Identity, error)
}

type validator struct {
	keys     activeKeyFinder
	projects ProjectRepository
	recorder UsageRecorder
	hasher   credential.Hasher
	metrics  *metrics.Metrics
	now      func() time.Time
}

type ValidatorOption func(*validator)

func WithValidatorMetrics(m *metrics.Metrics) ValidatorOption {
	return func(v *validator) {
		v.metrics = m
	}
}

func WithValidatorClock(now func() time.Time) ValidatorOption {
	return func(v *validator) {
		v.now = now
	}
}

func NewValidator(
	keys activeKeyFinder,
	projects ProjectRepository,
	recorder UsageRecorder,
	hasher credential.Hasher,
	opts ...ValidatorOption,
) Validator {
	v := &validator{
		keys:     keys,
		projects: projects,
		recorder: recorder,
		hasher:   hasher,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *validator) Validate(ctx context.Context, candidate string, req RequestInfo) (*Identity, error) {
	started := time.Now()
	identity, outcome, err := v.validate(ctx, candidate, req)
	v.metrics.RecordValidation(outcome, time.Since(started))
	return identity, err
}

func (v *validator) validate(ctx context.Context, candidate string, req RequestInfo) (*Identity, string, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, metrics.OutcomeMissing, ErrMissingCredential
	}
	if !entity.IsUsageMethod(req.Method) {
		return nil, metrics.OutcomeError, fmt.Errorf("%w: %q", ErrUnsupportedMethod, req.Method)
	}
	if !credential.WellFormed(candidate) {
		return nil, metrics.OutcomeInvalid, ErrInvalidCredential
	}

	snapshot, err := v.keys.FindActive(ctx)
	if err != nil {
		return nil, metrics.OutcomeError, fmt.Errorf("load active keys: %w", err)
	}

	matched, comparisons, err := v.match(candidate, snapshot)
	v.metrics.RecordScan(len(snapshot), comparisons)
	if err != nil {
		return nil, metrics.OutcomeError, err
	}
	if matched == nil {
		return nil, metrics.OutcomeInvalid, ErrInvalidCredential
	}

	project, err := v.projects.FindByID(ctx, matched.ProjectID)
	if err != nil {
		return nil, metrics.OutcomeError, fmt.Errorf("load project %d: %w", matched.ProjectID, err)
	}
	if project == nil {
		// The project, and with it the key, was deleted after the snapshot.
		logrus.WithFields(logrus.Fields{
			"key_id":     matched.ID,
			"project_id": matched.ProjectID,
		}).Warn("Matched API key belongs to a deleted project")
		return nil, metrics.OutcomeInvalid, ErrInvalidCredential
	}

	usedAt := v.now().UTC()
	event := &entity.UsageEvent{
		KeyID:         matched.ID,
		OccurredAt:    usedAt,
		Endpoint:      clip(req.Path, entity.MaxEndpointLength),
		SourceAddress: clip(req.SourceAddress, entity.MaxSourceAddressLength),
		Method:        req.Method,
	}
	if err = v.recorder.RecordUsage(ctx, event); err != nil {
		return nil, metrics.OutcomeError, fmt.Errorf("record usage for key %d: %w", matched.ID, err)
	}
	matched.LastUsedAt = sql.NullTime{Time: usedAt, Valid: true}

	logrus.WithFields(logrus.Fields{
		"key_id":     matched.ID,
		"project_id": project.ID,
		"endpoint":   req.Path,
	}).Debug("API key validated")

	return &Identity{Key: matched, Project: project, OwnerID: project.OwnerID}, metrics.OutcomeValid, nil
}

// match compares candidate against the snapshot in order and stops at the
// first hit. It returns how many comparisons ran.
func (v *validator) match(candidate string, snapshot []*entity.APIKey) (*entity.APIKey, int, error) {
	comparisons := 0
	for _, key := range snapshot {
		comparisons++
		ok, err := v.hasher.Compare(candidate, key.SecretHash)
		if err != nil {
			return nil, comparisons, fmt.Errorf("compare against key %d: %w", key.ID, err)
		}
		if ok {
			return key, comparisons, nil
		}
	}
	return nil, comparisons, nil
}

// clip cuts s to at most n bytes without leaving a partial rune behind.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
