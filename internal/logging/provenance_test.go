package logging

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE validation_runs (
		run_id       TEXT PRIMARY KEY,
		document     TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		valid        INTEGER NOT NULL,
		tier         TEXT NOT NULL,
		delta        REAL NOT NULL,
		ambiguity    REAL NOT NULL,
		soft_score   REAL,
		vetoes_json  TEXT,
		reason       TEXT,
		created_at   TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-run-tests
func TestLogRun_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := RunEntry{
		RunID:       "r1",
		Document:    "platinum.aisp",
		ContentHash: "abc123",
		Valid:       true,
		Tier:        "Platinum",
		Delta:       0.95,
		Ambiguity:   0,
		SoftScore:   0.9,
		Reason:      "passed gate",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if _, err := LogRun(context.Background(), db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM validation_runs").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var runID, tier string
	var valid bool
	db.QueryRow("SELECT run_id, tier, valid FROM validation_runs").Scan(&runID, &tier, &valid)
	if runID != "r1" {
		t.Errorf("expected run_id 'r1', got %q", runID)
	}
	if tier != "Platinum" || !valid {
		t.Errorf("expected valid Platinum row, got %q valid=%v", tier, valid)
	}
}

func TestLogRun_GeneratesIDAndTime(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	got, err := LogRun(context.Background(), db, RunEntry{Document: "d", ContentHash: "h", Tier: "Gold"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.RunID) != 36 {
		t.Errorf("expected a uuid run id, got %q", got.RunID)
	}
	if got.CreatedAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogRun_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if _, err := LogRun(context.Background(), db, RunEntry{RunID: "r3", Document: "d", ContentHash: "h", Tier: "Reject"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var vetoes, reason sql.NullString
	db.QueryRow("SELECT vetoes_json, reason FROM validation_runs").Scan(&vetoes, &reason)
	if vetoes.Valid {
		t.Error("expected NULL vetoes_json for empty string")
	}
	if reason.Valid {
		t.Error("expected NULL reason for empty string")
	}
}

func TestLogRun_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if _, err := LogRun(context.Background(), db, RunEntry{RunID: "r4"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

func TestListRuns_FilterAndOrder(t *testing.T) {
	db := setupDB(t)
	defer db.Close()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	vetoes, _ := json.Marshal([]string{"ambiguity_violation"})
	rows := []RunEntry{
		{RunID: "a", Document: "x", ContentHash: "h1", Tier: "Gold", CreatedAt: base},
		{RunID: "b", Document: "x", ContentHash: "h1", Tier: "Gold", CreatedAt: base.Add(time.Minute), VetoesJSON: string(vetoes)},
		{RunID: "c", Document: "y", ContentHash: "h2", Tier: "Silver", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range rows {
		if _, err := LogRun(ctx, db, r); err != nil {
			t.Fatalf("log %s: %v", r.RunID, err)
		}
	}

	all, err := ListRuns(ctx, db, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "c" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	h1, err := ListRuns(ctx, db, "h1", 10)
	if err != nil {
		t.Fatalf("list h1: %v", err)
	}
	if len(h1) != 2 || h1[0].RunID != "b" || h1[0].VetoesJSON != string(vetoes) {
		t.Fatalf("unexpected h1 runs: %+v", h1)
	}
}

func TestListRuns_SubsecondOrder(t *testing.T) {
	db := setupDB(t)
	defer db.Close()
	ctx := context.Background()

	// A whole second and a tenth past it: trimmed fractions sort these
	// the wrong way round as text.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for id, at := range map[string]time.Time{"early": base, "late": base.Add(100 * time.Millisecond)} {
		if _, err := LogRun(ctx, db, RunEntry{RunID: id, Document: "x", ContentHash: "h", Tier: "Gold", CreatedAt: at}); err != nil {
			t.Fatalf("log %s: %v", id, err)
		}
	}

	runs, err := ListRuns(ctx, db, "h", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "late" {
		t.Fatalf("expected late first, got %+v", runs)
	}
	if !runs[1].CreatedAt.Equal(base) {
		t.Errorf("created_at round trip: got %v, want %v", runs[1].CreatedAt, base)
	}
}

func TestListRuns_BadTimestamp(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	_, err := db.Exec(`INSERT INTO validation_runs (run_id, document, content_hash, valid, tier, delta, ambiguity, created_at)
		VALUES ('r', 'x', 'h', 1, 'Gold', 0.5, 0, 'yesterday')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := ListRuns(context.Background(), db, "h", 10); err == nil || !strings.Contains(err.Error(), "created_at") {
		t.Fatalf("expected created_at error, got %v", err)
	}
}

// #endregion log-run-tests

// #region logger-tests
func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("debug", "json", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug("hello", "k", 1)
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" {
		t.Errorf("expected msg hello, got %v", rec["msg"])
	}

	buf.Reset()
	logger, err = NewLogger("", "text", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected info level filtering, got %q", buf.String())
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	if _, err := NewLogger("loud", "text", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := NewLogger("info", "xml", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

// #endregion logger-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	result := nullIfEmpty("")
	if result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	result := nullIfEmpty("hello")
	if result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
