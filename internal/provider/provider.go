// Package provider contains one client per external service. Each client maps
// its native API response into the unified Event shape and owns its own
// pagination and result caps. Clients hold no mutable state beyond their
// configured HTTP client; every Fetch call is independent.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/daybrief/daybrief/internal/model"
)

// ErrNotConnected signals that no usable credential was supplied. The
// aggregator reports this as connectivity status, not as a failure.
var ErrNotConnected = errors.New("provider not connected")

// APIError is a typed upstream HTTP error carrying the status code so the
// aggregator can distinguish expired auth from transient trouble.
type APIError struct {
	Provider   model.IntegrationType
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: status %d", e.Provider, e.StatusCode)
}

// AuthExpired reports whether the error means the stored credential was
// rejected and the user should reconnect rather than retry.
func (e *APIError) AuthExpired() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsAuthExpired unwraps an error chain looking for a rejected credential.
func IsAuthExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.AuthExpired()
}

// Client fetches recent activity from one external service.
type Client interface {
	// Type identifies the integration this client serves.
	Type() model.IntegrationType

	// Fetch returns recent events for the credential's user. A nil credential
	// or one with an empty access token yields ErrNotConnected. Upstream HTTP
	// failures yield *APIError; everything else is a transient error.
	Fetch(ctx context.Context, cred *model.Credential, workspaceID string) ([]model.Event, error)
}

func requireToken(cred *model.Credential) (string, error) {
	if cred == nil || cred.AccessToken == "" {
		return "", ErrNotConnected
	}
	return cred.AccessToken, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
