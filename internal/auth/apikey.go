// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/cartotrack/internal/config"
)

// HeaderAPIKey carries the device secret.
const HeaderAPIKey = "X-API-Key"

var (
	// ErrNoCredentials means the request carried no key.
	ErrNoCredentials = errors.New("no credentials provided")
	// ErrInvalidCredentials means the key did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// APIKeyAuthenticator checks device keys.
type APIKeyAuthenticator struct {
	disabled bool

	// keyDigest is the SHA-256 of the plain key, compared in constant time.
	keyDigest []byte

	// hash is the configured bcrypt hash. verified caches the digest of the
	// last key that matched it so bcrypt runs once, not per request.
	hash     []byte
	verified atomic.Pointer[[sha256.Size]byte]
}

// NewAPIKeyAuthenticator builds an authenticator from the security config.
// A bcrypt hash takes precedence over a plain key.
func NewAPIKeyAuthenticator(cfg config.SecurityConfig) (*APIKeyAuthenticator, error) {
	a := &APIKeyAuthenticator{disabled: cfg.AuthDisabled}
	if a.disabled {
		return a, nil
	}

	switch {
	case cfg.APIKeyHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.APIKeyHash)); err != nil {
			return nil, fmt.Errorf("invalid api key hash: %w", err)
		}
		a.hash = []byte(cfg.APIKeyHash)
	case cfg.APIKey != "":
		digest := sha256.Sum256([]byte(cfg.APIKey))
		a.keyDigest = digest[:]
	default:
		return nil, errors.New("no api key configured")
	}
	return a, nil
}

// Disabled reports whether every request is accepted.
func (a *APIKeyAuthenticator) Disabled() bool {
	return a.disabled
}

// Validate checks a presented key.
func (a *APIKeyAuthenticator) Validate(key string) error {
	if a.disabled {
		return nil
	}
	if key == "" {
		return ErrNoCredentials
	}

	digest := sha256.Sum256([]byte(key))

	if a.hash == nil {
		if subtle.ConstantTimeCompare(digest[:], a.keyDigest) != 1 {
			return ErrInvalidCredentials
		}
		return nil
	}

	if cached := a.verified.Load(); cached != nil && subtle.ConstantTimeCompare(digest[:], cached[:]) == 1 {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(key)); err != nil {
		return ErrInvalidCredentials
	}
	a.verified.Store(&digest)
	return nil
}
