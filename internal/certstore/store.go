// Package certstore persists solver certificates and the validation run
// log in SQLite.
package certstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/aisp-verify/internal/logging"
	"github.com/danielpatrickdp/aisp-verify/internal/smt"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS certificates (
	cache_key     TEXT PRIMARY KEY,
	mode          TEXT NOT NULL,
	value         TEXT NOT NULL,
	verdict_json  TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS validation_runs (
	run_id        TEXT PRIMARY KEY,
	document      TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	valid         INTEGER NOT NULL,
	tier          TEXT NOT NULL,
	delta         REAL NOT NULL,
	ambiguity     REAL NOT NULL,
	soft_score    REAL,
	vetoes_json   TEXT,
	reason        TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS validation_runs_hash ON validation_runs(content_hash);
`

// #endregion schema

// #region store-struct
// Store manages certificates and run rows in SQLite.
type Store struct {
	db *sql.DB
}

var _ Backend = (*Store)(nil)

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations. ":memory:" gives a
// private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the run log.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region certificates
// GetVerdict reads the certificate stored under key.
func (s *Store) GetVerdict(ctx context.Context, key string) (smt.Verdict, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT verdict_json FROM certificates WHERE cache_key = ?`, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return smt.Verdict{}, false, nil
	}
	if err != nil {
		return smt.Verdict{}, false, fmt.Errorf("get certificate: %w", err)
	}
	var v smt.Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return smt.Verdict{}, false, fmt.Errorf("unmarshal certificate: %w", err)
	}
	return v, true, nil
}

// PutVerdict stores v under key unless a certificate is already there.
func (s *Store) PutVerdict(ctx context.Context, key string, mode smt.Mode, v smt.Verdict) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal certificate: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO certificates (cache_key, mode, value, verdict_json, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO NOTHING`,
		key, string(mode), v.Value.String(), string(raw), time.Now().UTC().Format(logging.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("put certificate: %w", err)
	}
	return nil
}

// List returns the most recent certificates.
func (s *Store) List(ctx context.Context, limit int) ([]Certificate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cache_key, mode, verdict_json, created_at
		 FROM certificates ORDER BY created_at DESC, cache_key LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []Certificate
	for rows.Next() {
		var c Certificate
		var mode, raw, created string
		if err := rows.Scan(&c.Key, &mode, &raw, &created); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		c.Mode = smt.Mode(mode)
		if err := json.Unmarshal([]byte(raw), &c.Verdict); err != nil {
			return nil, fmt.Errorf("unmarshal certificate %s: %w", c.Key, err)
		}
		if c.CreatedAt, err = time.Parse(logging.TimeLayout, created); err != nil {
			return nil, fmt.Errorf("certificate %s created_at: %w", c.Key, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of stored certificates.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM certificates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return n, nil
}

// Purge deletes every certificate and returns how many were removed. The
// run log is kept.
func (s *Store) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM certificates`)
	if err != nil {
		return 0, fmt.Errorf("purge certificates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge certificates: %w", err)
	}
	return int(n), nil
}

// #endregion certificates
