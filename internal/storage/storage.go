// Package storage defines the persistence contract for payment sessions.
package storage

import (
	"context"
	"errors"

	"github.com/ankwata/ankwata/internal/lottery/domain"
)

var (
	// ErrNotFound indicates a requested session is missing.
	ErrNotFound = errors.New("session not found")

	// ErrDuplicateReference indicates a session already exists under the
	// reference. The stored session is left untouched.
	ErrDuplicateReference = errors.New("session reference already exists")

	// ErrStaleState indicates a conditional transition observed a state
	// other than the expected one. Callers resolve it by re-reading.
	ErrStaleState = errors.New("session state changed concurrently")
)

// Mutate adjusts a session inside a conditional transition. Returning an
// error aborts the transition without persisting anything.
type Mutate func(*domain.Session) error

// SessionStore persists payment session records keyed by reference.
//
// Implementations serialize conflicting writers per reference while letting
// unrelated references proceed in parallel. Reads never observe a
// half-applied transition: state and winner commit as one unit.
type SessionStore interface {
	// Create inserts a new session. It fails with ErrDuplicateReference
	// when the reference is already present and never overwrites.
	Create(ctx context.Context, session domain.Session) error

	// Get returns the session stored under reference, or ErrNotFound.
	Get(ctx context.Context, reference string) (domain.Session, error)

	// CompareAndTransition atomically loads the session, verifies its
	// state equals expected, applies mutate, and persists the result. It
	// returns the committed session, or ErrStaleState without applying
	// anything when the current state differs from expected.
	CompareAndTransition(ctx context.Context, reference string, expected domain.SessionState, mutate Mutate) (domain.Session, error)
}
