// Package memory provides an in-memory session store.
//
// It is the default backend: the service makes no persistence guarantees
// across restarts, so a process-local map suffices for single-instance
// deployments.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ankwata/ankwata/internal/lottery/domain"
	"github.com/ankwata/ankwata/internal/storage"
)

// record wraps one session with its own lock so writers on different
// references never contend with each other.
type record struct {
	mu      sync.Mutex
	session domain.Session
}

// Store provides in-memory session persistence keyed by reference.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
}

// New creates an empty in-memory session store.
func New() *Store {
	return &Store{records: make(map[string]*record)}
}

// Create inserts a new session, rejecting duplicate references.
func (s *Store) Create(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reference := strings.TrimSpace(session.Reference)
	if reference == "" {
		return fmt.Errorf("session reference is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[reference]; exists {
		return storage.ErrDuplicateReference
	}
	s.records[reference] = &record{session: session}
	return nil
}

// Get returns the latest committed session under reference.
func (s *Store) Get(ctx context.Context, reference string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	rec, err := s.lookup(reference)
	if err != nil {
		return domain.Session{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.session, nil
}

// CompareAndTransition applies mutate under the record lock when the
// current state matches expected.
func (s *Store) CompareAndTransition(ctx context.Context, reference string, expected domain.SessionState, mutate storage.Mutate) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if mutate == nil {
		return domain.Session{}, fmt.Errorf("mutate func is required")
	}

	rec, err := s.lookup(reference)
	if err != nil {
		return domain.Session{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.session.State != expected {
		return domain.Session{}, storage.ErrStaleState
	}

	next := rec.session
	if err := mutate(&next); err != nil {
		return domain.Session{}, err
	}
	rec.session = next
	return next, nil
}

func (s *Store) lookup(reference string) (*record, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("session reference is required")
	}

	s.mu.RLock()
	rec, ok := s.records[reference]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return rec, nil
}
