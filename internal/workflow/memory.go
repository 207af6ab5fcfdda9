package workflow

import (
	"context"
	"sync"
	"time"
)

// MemoryRunStore is an in-process RunStore. It backs one-shot CLI runs,
// where durability across processes is not needed, and tests.
type MemoryRunStore struct {
	mu    sync.Mutex
	runs  map[string]*WorkflowRun
	steps map[string]map[string]StepRecord
}

// NewMemoryRunStore creates an empty in-memory run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs:  make(map[string]*WorkflowRun),
		steps: make(map[string]map[string]StepRecord),
	}
}

func (s *MemoryRunStore) EnsureRun(_ context.Context, run *WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return nil
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *MemoryRunStore) FinishRun(_ context.Context, runID string, status RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil
	}
	run.Status = status
	now := time.Now().UTC()
	run.FinishedAt = &now
	return nil
}

func (s *MemoryRunStore) GetSteps(_ context.Context, runID string) (map[string]StepRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]StepRecord, len(s.steps[runID]))
	for name, rec := range s.steps[runID] {
		out[name] = rec
	}
	return out, nil
}

func (s *MemoryRunStore) SaveStep(_ context.Context, rec *StepRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.steps[rec.RunID] == nil {
		s.steps[rec.RunID] = make(map[string]StepRecord)
	}
	s.steps[rec.RunID][rec.Name] = *rec
	return nil
}

// Run returns the stored run, or nil when unknown.
func (s *MemoryRunStore) Run(runID string) *WorkflowRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil
	}
	cp := *run
	return &cp
}
