package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps runs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string][]Run
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore creates a memory store. ttl <= 0 keeps runs forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		runs: make(map[string][]Run),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Save records a run.
func (s *MemoryStore) Save(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := append(s.runs[run.Dataset], run)
	sortRuns(runs)
	if s.ttl > 0 {
		cutoff := s.now().Add(-s.ttl)
		i := sort.Search(len(runs), func(i int) bool { return !runs[i].StartedAt.Before(cutoff) })
		runs = runs[i:]
	}
	s.runs[run.Dataset] = runs
	return nil
}

// List returns the runs of a dataset since the given time.
func (s *MemoryStore) List(_ context.Context, dataset string, since time.Time, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Run
	for _, r := range s.runs[dataset] {
		if !r.StartedAt.Before(since) {
			out = append(out, r)
		}
	}
	return newest(out, limit), nil
}

// Datasets returns the recorded dataset names, sorted.
func (s *MemoryStore) Datasets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.runs))
	for name, runs := range s.runs {
		if len(runs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete forgets every run of a dataset.
func (s *MemoryStore) Delete(_ context.Context, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, dataset)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
