// Package store persists audit runs: the transcript, the compiled score,
// and the narrative summary for one call recording.
//
// The primary abstraction is the [Store] interface. The PostgreSQL
// implementation is the production backend; [MemStore] backs tests and
// storage-less deployments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/callscope/callaudit/internal/scoring"
	"github.com/callscope/callaudit/internal/summary"
	"github.com/callscope/callaudit/internal/transcribe"
)

// Run is one audit run. Transcript is set at creation; Score and Summary
// are attached as the later pipeline stages complete.
type Run struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`

	// Provider names the STT backend that produced the transcript.
	Provider string `json:"provider,omitempty"`

	// Mode is the rubric mode the run was scored under ("granular" or
	// "discrete"), empty until scored.
	Mode string `json:"mode,omitempty"`

	// RubricVersion records the rubric revision used for scoring.
	RubricVersion string `json:"rubric_version,omitempty"`

	Transcript *transcribe.Transcription `json:"transcript,omitempty"`
	Score      *scoring.Report           `json:"score,omitempty"`
	Summary    *summary.Report           `json:"summary,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields required at creation time.
func (r *Run) Validate() error {
	var errs []error
	if r.FileName == "" {
		errs = append(errs, errors.New("file_name must not be empty"))
	}
	if r.Transcript == nil {
		errs = append(errs, errors.New("transcript must not be nil"))
	}
	return errors.Join(errs...)
}

// Store provides persistence for audit runs.
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateRun inserts a new run. A missing ID is assigned. The run is
	// validated before insertion.
	CreateRun(ctx context.Context, run *Run) error

	// AttachScore stores the scoring result for an existing run. Returns an
	// error if the run is not found.
	AttachScore(ctx context.Context, id, mode, rubricVersion string, score *scoring.Report) error

	// AttachSummary stores the narrative summary for an existing run.
	// Returns an error if the run is not found.
	AttachSummary(ctx context.Context, id string, sum *summary.Report) error

	// GetRun retrieves a run by ID. Returns (nil, nil) if not found.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs newest first, at most limit entries. limit <= 0
	// applies the implementation default.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// DefaultListLimit bounds ListRuns when the caller passes limit <= 0.
const DefaultListLimit = 50
