package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ankwata/ankwata/internal/lottery/domain"
	"github.com/ankwata/ankwata/internal/storage"
)

func pendingSession(reference string) domain.Session {
	return domain.Session{
		Reference: reference,
		State:     domain.SessionStatePending,
		CreatedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Create(ctx, pendingSession("ankwata_r1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	session, err := store.Get(ctx, "ankwata_r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.State != domain.SessionStatePending {
		t.Fatalf("state = %v, want %v", session.State, domain.SessionStatePending)
	}

	if _, err := store.Get(ctx, "ankwata_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestCreateDuplicateReference(t *testing.T) {
	store := New()
	ctx := context.Background()

	first := pendingSession("ankwata_r3")
	if err := store.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := pendingSession("ankwata_r3")
	second.State = domain.SessionStateFailed
	if err := store.Create(ctx, second); !errors.Is(err, storage.ErrDuplicateReference) {
		t.Fatalf("duplicate create err = %v, want %v", err, storage.ErrDuplicateReference)
	}

	stored, err := store.Get(ctx, "ankwata_r3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != domain.SessionStatePending {
		t.Fatalf("first session state = %v, want untouched %v", stored.State, domain.SessionStatePending)
	}
}

func TestCompareAndTransition(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Create(ctx, pendingSession("ankwata_r2")); err != nil {
		t.Fatalf("create: %v", err)
	}

	committed, err := store.CompareAndTransition(ctx, "ankwata_r2", domain.SessionStatePending, func(s *domain.Session) error {
		s.State = domain.SessionStateSuccessful
		s.Winner = "0123456789"
		return nil
	})
	if err != nil {
		t.Fatalf("compare and transition: %v", err)
	}
	if committed.State != domain.SessionStateSuccessful || committed.Winner != "0123456789" {
		t.Fatalf("committed = %+v, want successful with winner", committed)
	}

	// A second transition from PENDING observes the terminal state.
	if _, err := store.CompareAndTransition(ctx, "ankwata_r2", domain.SessionStatePending, func(s *domain.Session) error {
		s.State = domain.SessionStateFailed
		return nil
	}); !errors.Is(err, storage.ErrStaleState) {
		t.Fatalf("stale transition err = %v, want %v", err, storage.ErrStaleState)
	}

	stored, err := store.Get(ctx, "ankwata_r2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != domain.SessionStateSuccessful || stored.Winner != "0123456789" {
		t.Fatalf("stored = %+v, want unchanged successful session", stored)
	}
}

func TestCompareAndTransitionMutateErrorAborts(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Create(ctx, pendingSession("ankwata_r4")); err != nil {
		t.Fatalf("create: %v", err)
	}

	mutateErr := errors.New("no entropy")
	if _, err := store.CompareAndTransition(ctx, "ankwata_r4", domain.SessionStatePending, func(s *domain.Session) error {
		s.State = domain.SessionStateSuccessful
		return mutateErr
	}); !errors.Is(err, mutateErr) {
		t.Fatalf("mutate err = %v, want %v", err, mutateErr)
	}

	stored, err := store.Get(ctx, "ankwata_r4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != domain.SessionStatePending {
		t.Fatalf("state = %v, want transition aborted as %v", stored.State, domain.SessionStatePending)
	}
}

func TestConcurrentTransitionsCommitOnce(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Create(ctx, pendingSession("ankwata_race")); err != nil {
		t.Fatalf("create: %v", err)
	}

	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	commits := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := store.CompareAndTransition(ctx, "ankwata_race", domain.SessionStatePending, func(s *domain.Session) error {
				s.State = domain.SessionStateSuccessful
				s.Winner = "0000000042"
				return nil
			})
			if err == nil {
				mu.Lock()
				commits++
				mu.Unlock()
				return
			}
			if !errors.Is(err, storage.ErrStaleState) {
				t.Errorf("writer %d err = %v, want %v", n, err, storage.ErrStaleState)
			}
		}(i)
	}
	wg.Wait()

	if commits != 1 {
		t.Fatalf("commits = %d, want exactly 1", commits)
	}
}
