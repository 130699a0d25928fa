package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vibast-solutions/ms-go-apikeys/app/credential"
	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
	"github.com/vibast-solutions/ms-go-apikeys/app/repository"
	"github.com/vibast-solutions/ms-go-apikeys/app/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const (
	insertAPIKeyQuery      = `(?s)INSERT INTO api_keys \(project_id, secret_hash, environment, status, created_at, last_used_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?\)`
	findAPIKeyByIDQuery    = `(?s)SELECT id, project_id, secret_hash, environment, status, created_at, last_used_at\s+FROM api_keys WHERE id = \?`
	findActiveAPIKeysQuery = `(?s)SELECT id, project_id, secret_hash, environment, status, created_at, last_used_at\s+FROM api_keys\s+WHERE status = \?\s+ORDER BY id ASC`
	findProjectKeysQuery   = `(?s)SELECT id, project_id, secret_hash, environment, status, created_at, last_used_at\s+FROM api_keys\s+WHERE project_id = \?\s+ORDER BY created_at DESC, id DESC`
	revokeAPIKeyQuery      = `(?s)UPDATE api_keys SET status = \? WHERE id = \? AND status = \?`
	touchLastUsedQuery     = `(?s)UPDATE api_keys SET last_used_at = \? WHERE id = \?`
	findProjectByIDQuery   = `(?s)SELECT id, name, owner_id, created_at FROM projects WHERE id = \?`
	insertUsageEventQuery  = `(?s)INSERT INTO usage_events \(key_id, occurred_at, endpoint, source_address, method\)\s+VALUES \(\?, \?, \?, \?, \?\)`
	findUsageEventsQuery   = `(?s)SELECT id, key_id, occurred_at, endpoint, source_address, method\s+FROM usage_events\s+WHERE key_id = \?\s+ORDER BY occurred_at DESC, id DESC\s+LIMIT \?`
)

var (
	apiKeyColumns     = []string{"id", "project_id", "secret_hash", "environment", "status", "created_at", "last_used_at"}
	projectColumns    = []string{"id", "name", "owner_id", "created_at"}
	usageEventColumns = []string{"id", "key_id", "occurred_at", "endpoint", "source_address", "method"}
)

const (
	ownerID    = uint64(7)
	strangerID = uint64(8)
)

type testServices struct {
	lifecycle service.LifecycleService
	validator service.Validator
	hasher    *credential.BcryptHasher
}

func newServicesWithMock(t *testing.T) (*testServices, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	hasher, err := credential.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to create hasher: %v", err)
	}

	keyRepo := repository.NewAPIKeyRepository(sqlxDB)
	projectRepo := repository.NewProjectRepository(sqlxDB)
	eventRepo := repository.NewUsageEventRepository(sqlxDB)
	recorder := repository.NewUsageRecorder(sqlxDB, keyRepo, eventRepo)

	svc := &testServices{
		lifecycle: service.NewLifecycleService(keyRepo, projectRepo, eventRepo, hasher),
		validator: service.NewValidator(keyRepo, projectRepo, recorder, hasher),
		hasher:    hasher,
	}
	return svc, mock, func() { _ = db.Close() }
}

func newJSONRequest(t *testing.T, method, path string, body any) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req, httptest.NewRecorder()
}

func asRequester(req *http.Request, userID uint64) *http.Request {
	return req.WithContext(service.ContextWithRequester(req.Context(), userID))
}

// issueSecret returns a fresh secret together with its digest.
func issueSecret(t *testing.T, hasher credential.Hasher, env entity.Environment) (string, string) {
	t.Helper()

	secret, err := credential.Generate(env)
	if err != nil {
		t.Fatalf("failed to generate secret: %v", err)
	}
	digest, err := hasher.Hash(secret)
	if err != nil {
		t.Fatalf("failed to hash secret: %v", err)
	}
	return secret, digest
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()

	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}
