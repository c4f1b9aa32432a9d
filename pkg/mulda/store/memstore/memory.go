package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/mulda/pkg/mulda/internalerr"
	"github.com/cognicore/mulda/pkg/mulda/store"
)

// Store is an in-memory implementation of store.Store for tests and dry runs.
type Store struct {
	mu      sync.RWMutex
	batches map[string]store.Batch
	runs    map[ulid.ULID]store.Run
	puts    int
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		batches: make(map[string]store.Batch),
		runs:    make(map[ulid.ULID]store.Run),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// GetBatch returns a batch by key.
func (s *Store) GetBatch(ctx context.Context, key string) (store.Batch, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[key]
	if !ok {
		return store.Batch{}, false, nil
	}
	return copyBatch(b), true, nil
}

// PutBatch stores a batch. The first batch stored under a key wins.
func (s *Store) PutBatch(ctx context.Context, b store.Batch) error {
	if b.Key == "" {
		return fmt.Errorf("batch key required: %w", internalerr.ErrInvalidInput)
	}
	if len(b.Inputs) != len(b.Outputs) {
		return fmt.Errorf("batch %s has %d inputs and %d outputs: %w", b.Key, len(b.Inputs), len(b.Outputs), internalerr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[b.Key]; ok {
		return nil
	}
	s.batches[b.Key] = copyBatch(b)
	s.puts++
	return nil
}

// BatchesForRun returns the batches written by one run in sequence order.
func (s *Store) BatchesForRun(ctx context.Context, runID ulid.ULID) ([]store.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Batch
	for _, b := range s.batches {
		if b.RunID == runID {
			out = append(out, copyBatch(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// RecordRun stores a run record.
func (s *Store) RecordRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("run %s: %w", r.ID, internalerr.ErrDuplicate)
	}
	s.runs[r.ID] = r
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id ulid.ULID) (store.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok, nil
}

// Runs returns every run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out, nil
}

// Puts returns how many new batches were stored.
func (s *Store) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

func copyBatch(b store.Batch) store.Batch {
	b.Inputs = append([]string(nil), b.Inputs...)
	b.Outputs = append([]string(nil), b.Outputs...)
	return b
}
