// Package store holds the in-memory run state of the processing pipeline.
// Runs live only for the lifetime of the process; there is deliberately no
// persistence behind this package.
package store

import (
	"sync"
	"time"

	"github.com/CompraLens/compralens-backend/types"
)

// Run is the full snapshot of one processing batch: the per-document
// results and the derived cross-document analysis.
type Run struct {
	ID        string
	CreatedAt time.Time
	Documents []types.ProcessedDocument
	Analysis  *types.BatchAnalysis
}

// RunStore is the contract for saving and retrieving processing runs.
type RunStore interface {
	Save(run *Run)
	Get(id string) (*Run, bool)
	Delete(id string)
}

// MemoryRunStore is a mutex-guarded map of runs.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

var _ RunStore = (*MemoryRunStore)(nil)

// NewMemoryRunStore returns an empty run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: map[string]*Run{}}
}

func (s *MemoryRunStore) Save(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *MemoryRunStore) Get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

func (s *MemoryRunStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
}
