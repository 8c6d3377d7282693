package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the record in process memory. Sessions do not survive a
// restart; it exists for tests and for clients that explicitly want
// login-per-run behavior.
type MemoryStore struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Read implements [Store].
func (s *MemoryStore) Read(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.rec.complete() {
		return nil, ErrNotFound
	}
	return cloneRecord(s.rec), nil
}

// Write implements [Store]. The record is swapped as a single pointer; a
// concurrent Read observes either the old or the new tri-of values.
func (s *MemoryStore) Write(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec = cloneRecord(rec)
	return nil
}

// Clear implements [Store]. Clearing an empty store succeeds.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec = nil
	return nil
}
