package entity

import (
	"database/sql"
	"time"
)

type Environment string

const (
	EnvironmentLive Environment = "live"
	EnvironmentTest Environment = "test"
)

func (e Environment) Valid() bool {
	return e == EnvironmentLive || e == EnvironmentTest
}

type KeyStatus string

const (
	KeyStatusActive  KeyStatus = "active"
	KeyStatusRevoked KeyStatus = "revoked"
)

// APIKey is the stored form of an issued key. The raw secret is never kept;
// SecretHash holds its bcrypt digest.
type APIKey struct {
	ID          uint64
	ProjectID   uint64
	SecretHash  string
	Environment Environment
	Status      KeyStatus
	CreatedAt   time.Time
	LastUsedAt  sql.NullTime
}

func (k *APIKey) IsActive() bool {
	return k.Status == KeyStatusActive
}
