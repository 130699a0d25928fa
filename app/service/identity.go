package service

import (
	"context"

	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
)

// Identity is what a successful key validation resolves to.
type Identity struct {
	Key     *entity.APIKey
	Project *entity.Project
	OwnerID uint64
}

// RequestInfo describes the inbound request a candidate key arrived with.
type RequestInfo struct {
	Path          string
	SourceAddress string
	Method        string
}

type identityKey struct{}
type requesterKey struct{}

func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}

// ContextWithRequester stores the user id of an authenticated project owner.
func ContextWithRequester(ctx context.Context, userID uint64) context.Context {
	return context.WithValue(ctx, requesterKey{}, userID)
}

func RequesterFromContext(ctx context.Context) (uint64, bool) {
	userID, ok := ctx.Value(requesterKey{}).(uint64)
	return userID, ok
}
