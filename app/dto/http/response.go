package http

import (
	"time"

	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
)

type GenerateKeyResponse struct {
	ID        uint64    `json:"id"`
	Key       string    `json:"key"`
	Prefix    string    `json:"prefix"`
	CreatedAt time.Time `json:"createdAt"`
}

// APIKeyResponse is the listing view of a key. It never carries the digest.
type APIKeyResponse struct {
	ID         uint64     `json:"id"`
	ProjectID  uint64     `json:"projectId"`
	Prefix     string     `json:"prefix"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
}

func NewAPIKeyResponse(key *entity.APIKey) APIKeyResponse {
	resp := APIKeyResponse{
		ID:        key.ID,
		ProjectID: key.ProjectID,
		Prefix:    string(key.Environment),
		Status:    string(key.Status),
		CreatedAt: key.CreatedAt,
	}
	if key.LastUsedAt.Valid {
		lastUsed := key.LastUsedAt.Time
		resp.LastUsedAt = &lastUsed
	}
	return resp
}

func NewAPIKeyListResponse(keys []*entity.APIKey) []APIKeyResponse {
	resp := make([]APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		resp = append(resp, NewAPIKeyResponse(key))
	}
	return resp
}

type ProjectSummary struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type KeySummary struct {
	ID         uint64     `json:"id"`
	Prefix     string     `json:"prefix"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
}

type ValidateKeyResponse struct {
	Valid   bool           `json:"valid"`
	Project ProjectSummary `json:"project"`
	Key     KeySummary     `json:"key"`
}

type ValidateErrorResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error"`
}

// IdentityResponse is what API-key protected routes see about their caller.
type IdentityResponse struct {
	Project ProjectSummary `json:"project"`
	Key     KeySummary     `json:"key"`
	OwnerID uint64         `json:"ownerId"`
}

func NewKeySummary(key *entity.APIKey) KeySummary {
	summary := KeySummary{
		ID:        key.ID,
		Prefix:    string(key.Environment),
		CreatedAt: key.CreatedAt,
	}
	if key.LastUsedAt.Valid {
		lastUsed := key.LastUsedAt.Time
		summary.LastUsedAt = &lastUsed
	}
	return summary
}

func NewProjectSummary(project *entity.Project) ProjectSummary {
	return ProjectSummary{ID: project.ID, Name: project.Name}
}

type UsageEventResponse struct {
	ID            uint64    `json:"id"`
	KeyID         uint64    `json:"keyId"`
	Endpoint      string    `json:"endpoint"`
	SourceAddress string    `json:"ip"`
	Method        string    `json:"method"`
	OccurredAt    time.Time `json:"timestamp"`
}

func NewUsageListResponse(events []*entity.UsageEvent) []UsageEventResponse {
	resp := make([]UsageEventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, UsageEventResponse{
			ID:            event.ID,
			KeyID:         event.KeyID,
			Endpoint:      event.Endpoint,
			SourceAddress: event.SourceAddress,
			Method:        event.Method,
			OccurredAt:    event.OccurredAt,
		})
	}
	return resp
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
