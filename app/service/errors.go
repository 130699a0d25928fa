package service

import (
	"errors"

	"github.com/vibast-solutions/ms-go-apikeys/app/credential"
)

var (
	ErrMissingCredential  = errors.New("api key is required")
	ErrInvalidCredential  = errors.New("invalid api key")
	ErrUnauthorized       = errors.New("requester does not own the project")
	ErrProjectNotFound    = errors.New("project not found")
	ErrKeyNotFound        = errors.New("api key not found")
	ErrKeyAlreadyRevoked  = errors.New("api key already revoked")
	ErrUnsupportedMethod  = errors.New("request method cannot be recorded as usage")
	ErrInvalidEnvironment = credential.ErrInvalidEnvironment
	ErrInvalidToken       = errors.New("invalid or expired token")
)
