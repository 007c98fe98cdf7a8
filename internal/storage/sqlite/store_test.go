package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ankwata/ankwata/internal/lottery/domain"
	"github.com/ankwata/ankwata/internal/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	session := domain.Session{
		Reference:   "ankwata_r1",
		State:       domain.SessionStatePending,
		GatewayMeta: json.RawMessage(`{"provider":"demo"}`),
		CreatedAt:   now,
	}
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}

	stored, err := store.Get(ctx, "ankwata_r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != domain.SessionStatePending {
		t.Fatalf("state = %v, want %v", stored.State, domain.SessionStatePending)
	}
	if stored.Winner != "" {
		t.Fatalf("winner = %q, want empty", stored.Winner)
	}
	if !stored.CreatedAt.Equal(now) {
		t.Fatalf("created at = %v, want %v", stored.CreatedAt, now)
	}
	if string(stored.GatewayMeta) != `{"provider":"demo"}` {
		t.Fatalf("gateway meta = %s, want round-tripped payload", stored.GatewayMeta)
	}

	if _, err := store.Get(ctx, "ankwata_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestCreateDuplicateReference(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	session := domain.Session{Reference: "ankwata_r3", State: domain.SessionStatePending}
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := domain.Session{Reference: "ankwata_r3", State: domain.SessionStateFailed}
	if err := store.Create(ctx, dup); !errors.Is(err, storage.ErrDuplicateReference) {
		t.Fatalf("duplicate create err = %v, want %v", err, storage.ErrDuplicateReference)
	}

	stored, err := store.Get(ctx, "ankwata_r3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != domain.SessionStatePending {
		t.Fatalf("state = %v, want first session untouched", stored.State)
	}
}

func TestCompareAndTransition(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, domain.Session{Reference: "ankwata_r2", State: domain.SessionStatePending}); err != nil {
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
	if committed.Winner != "0123456789" {
		t.Fatalf("winner = %q, want %q", committed.Winner, "0123456789")
	}

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
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, domain.Session{Reference: "ankwata_r4", State: domain.SessionStatePending}); err != nil {
		t.Fatalf("create: %v", err)
	}

	mutateErr := errors.New("no entropy")
	if _, err := store.CompareAndTransition(ctx, "ankwata_r4", domain.SessionStatePending, func(s *domain.Session) error {
		return mutateErr
	}); !errors.Is(err, mutateErr) {
		t.Fatalf("mutate err = %v, want %v", err, mutateErr)
	}

	stored, err := store.Get(ctx, "ankwata_r4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != domain.SessionStatePending {
		t.Fatalf("state = %v, want transition aborted", stored.State)
	}
}

func TestCompareAndTransitionNotFound(t *testing.T) {
	store := openTempStore(t)

	if _, err := store.CompareAndTransition(context.Background(), "ankwata_missing", domain.SessionStatePending, func(s *domain.Session) error {
		return nil
	}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, storage.ErrNotFound)
	}
}
