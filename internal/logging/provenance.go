package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the fixed-width UTC timestamp stored in created_at
// columns, so that text order is time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-run
// LogRun writes a row to the validation_runs table. A missing run id is
// generated.
func LogRun(ctx context.Context, db *sql.DB, entry RunEntry) (RunEntry, error) {
	if entry.RunID == "" {
		entry.RunID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO validation_runs (run_id, document, content_hash, valid, tier, delta, ambiguity, soft_score, vetoes_json, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Document,
		entry.ContentHash,
		entry.Valid,
		entry.Tier,
		entry.Delta,
		entry.Ambiguity,
		entry.SoftScore,
		nullIfEmpty(entry.VetoesJSON),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(TimeLayout),
	)
	if err != nil {
		return entry, fmt.Errorf("log run: %w", err)
	}
	return entry, nil
}

// #endregion log-run

// #region list-runs
// ListRuns returns the most recent runs, optionally only those for one
// content hash.
func ListRuns(ctx context.Context, db *sql.DB, contentHash string, limit int) ([]RunEntry, error) {
	query := `SELECT run_id, document, content_hash, valid, tier, delta, ambiguity, soft_score, vetoes_json, reason, created_at
		 FROM validation_runs`
	args := []any{}
	if contentHash != "" {
		query += ` WHERE content_hash = ?`
		args = append(args, contentHash)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunEntry
	for rows.Next() {
		var e RunEntry
		var soft sql.NullFloat64
		var vetoes, reason sql.NullString
		var created string
		if err := rows.Scan(&e.RunID, &e.Document, &e.ContentHash, &e.Valid, &e.Tier, &e.Delta,
			&e.Ambiguity, &soft, &vetoes, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.SoftScore = soft.Float64
		e.VetoesJSON = vetoes.String
		e.Reason = reason.String
		if e.CreatedAt, err = time.Parse(TimeLayout, created); err != nil {
			return nil, fmt.Errorf("run %s created_at: %w", e.RunID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-runs

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
