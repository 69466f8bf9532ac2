package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/callscope/callaudit/internal/scoring"
	"github.com/callscope/callaudit/internal/summary"
)

// Schema is the SQL DDL for the audit_runs table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_runs (
    id             UUID PRIMARY KEY,
    file_name      TEXT NOT NULL,
    provider       TEXT NOT NULL DEFAULT '',
    mode           TEXT NOT NULL DEFAULT '',
    rubric_version TEXT NOT NULL DEFAULT '',
    transcript     JSONB NOT NULL,
    score          JSONB,
    summary        JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_audit_runs_created ON audit_runs(created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. Transcript,
// score, and summary documents are serialised as JSONB.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] over the given connection
// or pool. The caller is responsible for calling [PostgresStore.Migrate]
// before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect establishes a pgx pool to the database at dsn, verifies it with a
// ping, and runs [PostgresStore.Migrate]. The returned pool is owned by the
// caller and must be closed on shutdown.
func Connect(ctx context.Context, dsn string) (*PostgresStore, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("store: ping: %w", err)
	}
	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

// Migrate executes the [Schema] DDL, creating the audit_runs table and index
// if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// CreateRun inserts a new run, assigning a UUID when the run has no ID.
func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("store: create run: %w", err)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	transcriptJSON, err := json.Marshal(run.Transcript)
	if err != nil {
		return fmt.Errorf("store: marshal transcript: %w", err)
	}

	const query = `
		INSERT INTO audit_runs (id, file_name, provider, transcript)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err = s.db.QueryRow(ctx, query,
		run.ID, run.FileName, run.Provider, transcriptJSON,
	).Scan(&run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("store: run with id %q already exists", run.ID)
		}
		return fmt.Errorf("store: create run: %w", err)
	}
	return nil
}

// AttachScore stores the scoring result and mode for an existing run.
func (s *PostgresStore) AttachScore(ctx context.Context, id, mode, rubricVersion string, score *scoring.Report) error {
	if score == nil {
		return errors.New("store: score must not be nil")
	}
	scoreJSON, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("store: marshal score: %w", err)
	}

	const query = `
		UPDATE audit_runs
		SET score = $2, mode = $3, rubric_version = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	var discard any
	err = s.db.QueryRow(ctx, query, id, scoreJSON, mode, rubricVersion).Scan(&discard)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("store: run %q not found", id)
		}
		return fmt.Errorf("store: attach score: %w", err)
	}
	return nil
}

// AttachSummary stores the narrative summary for an existing run.
func (s *PostgresStore) AttachSummary(ctx context.Context, id string, sum *summary.Report) error {
	if sum == nil {
		return errors.New("store: summary must not be nil")
	}
	sumJSON, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("store: marshal summary: %w", err)
	}

	const query = `
		UPDATE audit_runs
		SET summary = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	var discard any
	err = s.db.QueryRow(ctx, query, id, sumJSON).Scan(&discard)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("store: run %q not found", id)
		}
		return fmt.Errorf("store: attach summary: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns (nil, nil) if no run exists.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	const query = `
		SELECT id, file_name, provider, mode, rubric_version,
		       transcript, score, summary, created_at, updated_at
		FROM audit_runs
		WHERE id = $1`

	var run Run
	var transcriptJSON, scoreJSON, sumJSON []byte

	err := s.db.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.FileName, &run.Provider, &run.Mode, &run.RubricVersion,
		&transcriptJSON, &scoreJSON, &sumJSON, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get run %q: %w", id, err)
	}

	if err := unmarshalDocs(&run, transcriptJSON, scoreJSON, sumJSON); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	const query = `
		SELECT id, file_name, provider, mode, rubric_version,
		       transcript, score, summary, created_at, updated_at
		FROM audit_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var transcriptJSON, scoreJSON, sumJSON []byte

		if err := rows.Scan(
			&run.ID, &run.FileName, &run.Provider, &run.Mode, &run.RubricVersion,
			&transcriptJSON, &scoreJSON, &sumJSON, &run.CreatedAt, &run.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		if err := unmarshalDocs(&run, transcriptJSON, scoreJSON, sumJSON); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	return runs, nil
}

// unmarshalDocs deserialises the JSONB columns into the run. score and
// summary may be NULL when the run has not reached those stages.
func unmarshalDocs(run *Run, transcript, score, sum []byte) error {
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &run.Transcript); err != nil {
			return fmt.Errorf("store: unmarshal transcript: %w", err)
		}
	}
	if len(score) > 0 {
		if err := json.Unmarshal(score, &run.Score); err != nil {
			return fmt.Errorf("store: unmarshal score: %w", err)
		}
	}
	if len(sum) > 0 {
		if err := json.Unmarshal(sum, &run.Summary); err != nil {
			return fmt.Errorf("store: unmarshal summary: %w", err)
		}
	}
	return nil
}

// isDuplicateKeyError checks whether a PostgreSQL error is a
// unique-violation (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
