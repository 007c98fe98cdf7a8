// Package service orchestrates payment session transitions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ankwata/ankwata/internal/lottery/domain"
	"github.com/ankwata/ankwata/internal/storage"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultPollTimeout  = 2 * time.Minute
)

// Machine applies confirmation outcomes to payment sessions.
//
// Winner assignment happens inside the store's conditional transition, so
// only the confirmation that wins the PENDING race ever commits a winner.
// Redelivered confirmations for a terminal session are absorbed as no-ops.
type Machine struct {
	store storage.SessionStore
	draw  func() (string, error)
}

// NewMachine creates a Machine backed by store, drawing winners from the
// system entropy source.
func NewMachine(store storage.SessionStore) *Machine {
	return &Machine{store: store, draw: domain.DrawWinner}
}

// NewMachineWithDraw creates a Machine with an injectable winner draw.
func NewMachineWithDraw(store storage.SessionStore, draw func() (string, error)) *Machine {
	if draw == nil {
		draw = domain.DrawWinner
	}
	return &Machine{store: store, draw: draw}
}

// ApplyOutcome transitions the session under reference according to
// outcome and returns the resulting session.
//
// A session already in a terminal state is returned unchanged: gateways
// routinely redeliver webhooks, so duplicates are not errors. On a
// SUCCESS outcome the winner is drawn inside the conditional transition;
// a failed draw aborts the transition and the session stays PENDING for a
// later retry.
func (m *Machine) ApplyOutcome(ctx context.Context, reference string, outcome domain.Outcome) (domain.Session, error) {
	if m == nil || m.store == nil {
		return domain.Session{}, fmt.Errorf("session store is not configured")
	}

	session, err := m.store.Get(ctx, reference)
	if err != nil {
		return domain.Session{}, err
	}
	if session.State.Terminal() {
		return session, nil
	}

	var mutate storage.Mutate
	switch outcome {
	case domain.OutcomeSuccess:
		mutate = func(s *domain.Session) error {
			winner, err := m.draw()
			if err != nil {
				return err
			}
			s.State = domain.SessionStateSuccessful
			s.Winner = winner
			return nil
		}
	case domain.OutcomeFailure:
		mutate = func(s *domain.Session) error {
			s.State = domain.SessionStateFailed
			return nil
		}
	default:
		return domain.Session{}, fmt.Errorf("outcome %v is not terminal", outcome)
	}

	committed, err := m.store.CompareAndTransition(ctx, reference, domain.SessionStatePending, mutate)
	if errors.Is(err, storage.ErrStaleState) {
		// A concurrent confirmation won the race. Re-read the now-terminal
		// session instead of applying this outcome twice.
		return m.store.Get(ctx, reference)
	}
	if err != nil {
		return domain.Session{}, err
	}

	log.Printf("payment session transitioned reference=%s outcome=%s state=%s", reference, outcome, committed.State)
	return committed, nil
}

// AwaitConfirmation polls the session under reference every pollInterval
// until it reaches a terminal state or timeout elapses.
//
// The session is returned in whichever state was last observed; a session
// still PENDING at the deadline is not an error, since a delayed webhook
// may yet complete the payment. Transient lookup failures are swallowed
// and the poll retried. No lock is held while sleeping.
func (m *Machine) AwaitConfirmation(ctx context.Context, reference string, pollInterval, timeout time.Duration) (domain.Session, error) {
	if m == nil || m.store == nil {
		return domain.Session{}, fmt.Errorf("session store is not configured")
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last domain.Session
	var observed bool
	var lastErr error

	for {
		session, err := m.store.Get(ctx, reference)
		switch {
		case err == nil:
			last = session
			observed = true
			if session.State.Terminal() {
				return session, nil
			}
		case ctx.Err() == nil:
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if observed {
				return last, nil
			}
			if lastErr != nil {
				return domain.Session{}, lastErr
			}
			return domain.Session{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
