package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---------------------------------------------------------------------------
// Test helpers — mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockRows implements pgx.Rows for testing.
type mockRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	return assign(r.data[r.idx-1], dest)
}

// assign copies one mock row into scan destinations.
func assign(row []any, dest []any) error {
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *[]byte:
			if v == nil {
				*d = nil
			} else {
				*d = []byte(v.(string))
			}
		case *time.Time:
			*d = v.(time.Time)
		case *any:
			*d = v
		default:
			return fmt.Errorf("scan: unsupported destination type %T", dest[i])
		}
	}
	return nil
}

// mockDB implements the DB interface with canned responses.
type mockDB struct {
	queryRowFunc func(sql string, args []any) pgx.Row
	queryFunc    func(sql string, args []any) (pgx.Rows, error)
	execFunc     func(sql string, args []any) (pgconn.CommandTag, error)

	lastSQL  string
	lastArgs []any
}

func (db *mockDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.lastSQL, db.lastArgs = sql, args
	return db.queryRowFunc(sql, args)
}

func (db *mockDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.lastSQL, db.lastArgs = sql, args
	return db.queryFunc(sql, args)
}

func (db *mockDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.lastSQL, db.lastArgs = sql, args
	if db.execFunc != nil {
		return db.execFunc(sql, args)
	}
	return pgconn.CommandTag{}, nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPostgresCreateRun_AssignsIDAndTimestamps(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db := &mockDB{
		queryRowFunc: func(_ string, args []any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*time.Time) = now
				*dest[1].(*time.Time) = now
				return nil
			}}
		},
	}
	s := NewPostgresStore(db)

	run := testRun("call.mp3")
	if err := s.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if run.ID == "" {
		t.Error("ID not assigned")
	}
	if !run.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", run.CreatedAt, now)
	}
	if !strings.Contains(db.lastSQL, "INSERT INTO audit_runs") {
		t.Errorf("sql = %q", db.lastSQL)
	}
	// id, file_name, provider, transcript
	if len(db.lastArgs) != 4 {
		t.Errorf("args = %d, want 4", len(db.lastArgs))
	}
}

func TestPostgresCreateRun_DuplicateKey(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(string, []any) pgx.Row {
			return &mockRow{scanFunc: func(...any) error {
				return &pgconn.PgError{Code: "23505"}
			}}
		},
	}
	s := NewPostgresStore(db)

	err := s.CreateRun(context.Background(), testRun("call.mp3"))
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %v, want duplicate message", err)
	}
}

func TestPostgresGetRun_NotFound(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(string, []any) pgx.Row {
			return &mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}
		},
	}
	s := NewPostgresStore(db)

	run, err := s.GetRun(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run != nil {
		t.Errorf("run = %+v, want nil", run)
	}
}

func TestPostgresAttachScore_NotFound(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(string, []any) pgx.Row {
			return &mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}
		},
	}
	s := NewPostgresStore(db)

	err := s.AttachScore(context.Background(), "missing", "granular", "v2", testScoreDoc())
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not-found message", err)
	}
}

func TestPostgresListRuns_DecodesDocuments(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := &mockRows{data: [][]any{
		{
			"id-1", "call.mp3", "soniox", "granular", "v2.1",
			`{"transcription":"Good morning.","speaker_segments":[],"duration":1.2,"speaker_count":1,"provider":"soniox"}`,
			`{"total_score":14,"total_points":20,"percentage":70,"criteria_scores":[],"fatal_triggered":false}`,
			nil,
			now, now,
		},
	}}
	db := &mockDB{
		queryFunc: func(string, []any) (pgx.Rows, error) { return rows, nil },
	}
	s := NewPostgresStore(db)

	runs, err := s.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.Transcript == nil || run.Transcript.Transcription != "Good morning." {
		t.Errorf("Transcript = %+v", run.Transcript)
	}
	if run.Score == nil || run.Score.TotalScore != 14 {
		t.Errorf("Score = %+v", run.Score)
	}
	if run.Summary != nil {
		t.Errorf("Summary = %+v, want nil for NULL column", run.Summary)
	}
	if !rows.closed {
		t.Error("rows not closed")
	}
	if db.lastArgs[0] != DefaultListLimit {
		t.Errorf("limit arg = %v, want %d", db.lastArgs[0], DefaultListLimit)
	}
}

func TestPostgresListRuns_QueryError(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryFunc: func(string, []any) (pgx.Rows, error) {
			return nil, errors.New("connection refused")
		},
	}
	s := NewPostgresStore(db)

	if _, err := s.ListRuns(context.Background(), 10); err == nil {
		t.Fatal("ListRuns() error = nil")
	}
}
