// Package store defines persistence interfaces consumed by the pipeline.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
package store

import (
	"context"

	"github.com/daybrief/daybrief/internal/model"
)

// Store exposes the persistence operations the service needs.
type Store interface {
	Credentials() Credentials
	QueryLogs() QueryLogs
}

// Credentials is the (user, provider) keyed token store. The aggregation read
// path never writes; Put/Delete serve the credential management surface.
type Credentials interface {
	// Get returns model.ErrNotFound when no credential is stored.
	Get(ctx context.Context, userID string, p model.IntegrationType) (*model.Credential, error)
	Put(ctx context.Context, c *model.Credential) (*model.Credential, error)
	Delete(ctx context.Context, userID string, p model.IntegrationType) error
	// ListProviders returns the providers the user has credentials for.
	ListProviders(ctx context.Context, userID string) ([]model.IntegrationType, error)
}

// QueryLogs records pipeline invocations.
type QueryLogs interface {
	Insert(ctx context.Context, q *model.QueryLog) error
	ListRecent(ctx context.Context, workspaceID string, limit int) ([]*model.QueryLog, error)
}

// HealthPinger is implemented by stores that can report connectivity.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
