package credential

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
)

const (
	SecretPrefix = "ak"

	// SecretEntropyBytes is the amount of randomness drawn per key.
	SecretEntropyBytes = 32

	// SecretBodyLength is where the encoded entropy is cut. 32 url-safe
	// characters keep roughly 190 of the 256 drawn bits.
	SecretBodyLength = 32
)

var ErrInvalidEnvironment = errors.New("environment must be live or test")

// Generate returns a new raw secret of the form ak_{env}_{body}.
func Generate(env entity.Environment) (string, error) {
	if !env.Valid() {
		return "", ErrInvalidEnvironment
	}

	entropy := make([]byte, SecretEntropyBytes)
	if _, err := rand.Read(entropy); err != nil {
		return "", err
	}

	body := base64.RawURLEncoding.EncodeToString(entropy)[:SecretBodyLength]
	return SecretPrefix + "_" + string(env) + "_" + body, nil
}

// ParseEnvironment maps a user supplied prefix to an environment. An empty
// value defaults to live.
func ParseEnvironment(value string) (entity.Environment, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return entity.EnvironmentLive, nil
	}

	env := entity.Environment(strings.ToLower(value))
	if !env.Valid() {
		return "", ErrInvalidEnvironment
	}
	return env, nil
}

// WellFormed reports whether secret has the shape produced by Generate.
// It says nothing about whether the secret was ever issued.
func WellFormed(secret string) bool {
	parts := strings.SplitN(secret, "_", 3)
	if len(parts) != 3 || parts[0] != SecretPrefix {
		return false
	}
	if !entity.Environment(parts[1]).Valid() {
		return false
	}
	if len(parts[2]) != SecretBodyLength {
		return false
	}
	for _, ch := range parts[2] {
		if !isURLSafe(ch) {
			return false
		}
	}
	return true
}

func isURLSafe(ch rune) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	case ch == '-' || ch == '_':
		return true
	}
	return false
}
