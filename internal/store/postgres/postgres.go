// Package postgres is the shared-deployment store driver, using the pgx
// stdlib adapter.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/daybrief/daybrief/internal/model"
	"github.com/daybrief/daybrief/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Bootstrap waits for Postgres to accept connections, retrying with
// exponential backoff. Useful when the service starts alongside the database.
func Bootstrap(ctx context.Context, dsn string, maxWait time.Duration) (*sql.DB, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxWait

	var db *sql.DB
	op := func() error {
		var err error
		db, err = Open(dsn)
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("postgres unavailable: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS credentials (
    user_id       TEXT NOT NULL,
    provider      TEXT NOT NULL,
    access_token  TEXT NOT NULL,
    refresh_token TEXT,
    expires_at    TIMESTAMPTZ,
    connected_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, provider)
);
CREATE TABLE IF NOT EXISTS query_logs (
    id                TEXT PRIMARY KEY,
    workspace_id      TEXT NOT NULL,
    query_text        TEXT NOT NULL,
    intent            TEXT,
    response_text     TEXT,
    input_tokens      BIGINT,
    output_tokens     BIGINT,
    compression_ratio DOUBLE PRECISION,
    latency_ms        BIGINT,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_query_logs_workspace ON query_logs (workspace_id, created_at DESC);
`)
	return err
}

// New constructs a postgres-backed store over an opened connection.
func New(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Credentials() store.Credentials { return &credentials{db: s.db} }
func (s *pgStore) QueryLogs() store.QueryLogs     { return &queryLogs{db: s.db} }

// HealthPing implements store.HealthPinger.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type credentials struct{ db *sql.DB }

func (c *credentials) Get(ctx context.Context, userID string, p model.IntegrationType) (*model.Credential, error) {
	var out model.Credential
	row := c.db.QueryRowContext(ctx, `
        SELECT user_id, provider, access_token, refresh_token, expires_at, connected_at
        FROM credentials WHERE user_id=$1 AND provider=$2
    `, userID, string(p))
	if err := row.Scan(&out.UserID, &out.Provider, &out.AccessToken, &out.RefreshToken, &out.ExpiresAt, &out.ConnectedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (c *credentials) Put(ctx context.Context, in *model.Credential) (*model.Credential, error) {
	var connected time.Time
	row := c.db.QueryRowContext(ctx, `
        INSERT INTO credentials (user_id, provider, access_token, refresh_token, expires_at, connected_at)
        VALUES ($1,$2,$3,$4,$5,now())
        ON CONFLICT (user_id, provider) DO UPDATE SET
            access_token=EXCLUDED.access_token,
            refresh_token=EXCLUDED.refresh_token,
            expires_at=EXCLUDED.expires_at,
            connected_at=EXCLUDED.connected_at
        RETURNING connected_at
    `, in.UserID, string(in.Provider), in.AccessToken, in.RefreshToken, in.ExpiresAt)
	if err := row.Scan(&connected); err != nil {
		return nil, err
	}
	out := *in
	out.ConnectedAt = connected
	return &out, nil
}

func (c *credentials) Delete(ctx context.Context, userID string, p model.IntegrationType) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE user_id=$1 AND provider=$2`, userID, string(p))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (c *credentials) ListProviders(ctx context.Context, userID string) ([]model.IntegrationType, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT provider FROM credentials WHERE user_id=$1 ORDER BY provider`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.IntegrationType
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, model.IntegrationType(p))
	}
	return out, rows.Err()
}

type queryLogs struct{ db *sql.DB }

func (q *queryLogs) Insert(ctx context.Context, in *model.QueryLog) error {
	_, err := q.db.ExecContext(ctx, `
        INSERT INTO query_logs (id, workspace_id, query_text, intent, response_text,
            input_tokens, output_tokens, compression_ratio, latency_ms, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, in.ID, in.WorkspaceID, in.QueryText, in.Intent, in.ResponseText,
		in.InputTokens, in.OutputTokens, in.CompressionRatio, in.LatencyMs, in.CreatedAt.UTC())
	return err
}

func (q *queryLogs) ListRecent(ctx context.Context, workspaceID string, limit int) ([]*model.QueryLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.db.QueryContext(ctx, `
        SELECT id, workspace_id, query_text, intent, response_text,
               input_tokens, output_tokens, compression_ratio, latency_ms, created_at
        FROM query_logs WHERE workspace_id=$1 ORDER BY created_at DESC LIMIT $2
    `, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.QueryLog
	for rows.Next() {
		var ql model.QueryLog
		if err := rows.Scan(&ql.ID, &ql.WorkspaceID, &ql.QueryText, &ql.Intent, &ql.ResponseText,
			&ql.InputTokens, &ql.OutputTokens, &ql.CompressionRatio, &ql.LatencyMs, &ql.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &ql)
	}
	return out, rows.Err()
}
