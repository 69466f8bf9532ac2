package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/callscope/callaudit/internal/scoring"
	"github.com/callscope/callaudit/internal/summary"
)

// MemStore is an in-memory [Store] for tests and deployments without a
// database. Runs are copied on the way in and out so callers cannot mutate
// stored state through retained pointers.
type MemStore struct {
	mu   sync.RWMutex
	runs map[string]Run

	// now is swappable for deterministic timestamps in tests.
	now func() time.Time
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		runs: make(map[string]Run),
		now:  time.Now,
	}
}

func (s *MemStore) CreateRun(_ context.Context, run *Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("store: create run: %w", err)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("store: run with id %q already exists", run.ID)
	}
	now := s.now()
	run.CreatedAt = now
	run.UpdatedAt = now
	s.runs[run.ID] = *run
	return nil
}

func (s *MemStore) AttachScore(_ context.Context, id, mode, rubricVersion string, score *scoring.Report) error {
	if score == nil {
		return fmt.Errorf("store: score must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("store: run %q not found", id)
	}
	run.Score = score
	run.Mode = mode
	run.RubricVersion = rubricVersion
	run.UpdatedAt = s.now()
	s.runs[id] = run
	return nil
}

func (s *MemStore) AttachSummary(_ context.Context, id string, sum *summary.Report) error {
	if sum == nil {
		return fmt.Errorf("store: summary must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("store: run %q not found", id)
	}
	run.Summary = sum
	run.UpdatedAt = s.now()
	s.runs[id] = run
	return nil
}

func (s *MemStore) GetRun(_ context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (s *MemStore) ListRuns(_ context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
