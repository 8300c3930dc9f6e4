// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// apiKeyPrefix is the fixed first component of a session API key.
const apiKeyPrefix = "mint-data-catalog"

// Auth authenticates API requests.
type Auth interface {
	// Authenticate verifies the credentials on the request.
	Authenticate(ctx context.Context, r *http.Request) error
}

// HeaderAuth validates the X-Api-Key header issued by the session token
// endpoint.
type HeaderAuth struct{}

// Authenticate implements Auth.
func (HeaderAuth) Authenticate(ctx context.Context, r *http.Request) error {
	if !validAPIKey(r.Header.Get("X-Api-Key")) {
		return ErrAuthorizationFailed
	}
	return nil
}

// validAPIKey reports whether the key has the form
// mint-data-catalog:<uuid>:<uuid>.
func validAPIKey(key string) bool {
	parts := strings.Split(key, ":")
	if len(parts) != 3 {
		return false
	}
	if parts[0] != apiKeyPrefix {
		return false
	}
	for _, part := range parts[1:] {
		if _, err := uuid.Parse(part); err != nil {
			return false
		}
	}
	return true
}

// NewSessionToken mints a fresh API key.
func NewSessionToken() string {
	return fmt.Sprintf("%s:%s:%s", apiKeyPrefix, uuid.New(), uuid.New())
}
