// Package sqlite is the embedded store driver used for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/daybrief/daybrief/internal/model"
	"github.com/daybrief/daybrief/internal/store"
)

// Open opens (or creates) a SQLite database at the given path and enables WAL
// journal mode for read-heavy workloads.
func Open(path string) (*sql.DB, error) {
	if path == ":memory:" {
		db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(ON)")
		if err != nil {
			return nil, err
		}
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
		return db, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
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
    expires_at    TIMESTAMP,
    connected_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, provider)
);
CREATE TABLE IF NOT EXISTS query_logs (
    id                TEXT PRIMARY KEY,
    workspace_id      TEXT NOT NULL,
    query_text        TEXT NOT NULL,
    intent            TEXT,
    response_text     TEXT,
    input_tokens      INTEGER,
    output_tokens     INTEGER,
    compression_ratio REAL,
    latency_ms        INTEGER,
    created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_query_logs_workspace ON query_logs (workspace_id, created_at DESC);
`)
	return err
}

// New constructs a sqlite-backed store over an opened connection.
func New(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Credentials() store.Credentials { return &credentials{db: s.db} }
func (s *sqliteStore) QueryLogs() store.QueryLogs     { return &queryLogs{db: s.db} }

// HealthPing implements store.HealthPinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type credentials struct{ db *sql.DB }

func (c *credentials) Get(ctx context.Context, userID string, p model.IntegrationType) (*model.Credential, error) {
	var out model.Credential
	row := c.db.QueryRowContext(ctx, `
        SELECT user_id, provider, access_token, refresh_token, expires_at, connected_at
        FROM credentials WHERE user_id=? AND provider=?
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
	now := time.Now().UTC()
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO credentials (user_id, provider, access_token, refresh_token, expires_at, connected_at)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT (user_id, provider) DO UPDATE SET
            access_token=excluded.access_token,
            refresh_token=excluded.refresh_token,
            expires_at=excluded.expires_at,
            connected_at=excluded.connected_at
    `, in.UserID, string(in.Provider), in.AccessToken, in.RefreshToken, in.ExpiresAt, now)
	if err != nil {
		return nil, err
	}
	out := *in
	out.ConnectedAt = now
	return &out, nil
}

func (c *credentials) Delete(ctx context.Context, userID string, p model.IntegrationType) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE user_id=? AND provider=?`, userID, string(p))
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
		`SELECT provider FROM credentials WHERE user_id=? ORDER BY provider`, userID)
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
        VALUES (?,?,?,?,?,?,?,?,?,?)
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
        FROM query_logs WHERE workspace_id=? ORDER BY created_at DESC LIMIT ?
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
