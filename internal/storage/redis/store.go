// Package redis provides a Redis-backed session store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ankwata/ankwata/internal/lottery/domain"
	"github.com/ankwata/ankwata/internal/storage"
)

const keyPrefix = "payment:"

// casAttempts bounds the optimistic transaction retry loop. A conflicting
// write between WATCH and EXEC aborts the transaction, so the loop
// re-reads and tries again.
const casAttempts = 8

// Store provides Redis-backed payment session persistence.
type Store struct {
	client *redis.Client
}

// New creates a Redis-backed session store.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Open connects to Redis at addr and verifies the connection.
func Open(ctx context.Context, addr string) (*Store, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client), nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func key(reference string) string {
	return keyPrefix + reference
}

// record is the stored JSON shape of a session.
type record struct {
	Reference   string          `json:"reference"`
	State       string          `json:"state"`
	Winner      string          `json:"winner,omitempty"`
	GatewayMeta json.RawMessage `json:"gateway_meta,omitempty"`
	CreatedAt   int64           `json:"created_at"`
}

func toRecord(session domain.Session) record {
	return record{
		Reference:   session.Reference,
		State:       session.State.String(),
		Winner:      session.Winner,
		GatewayMeta: session.GatewayMeta,
		CreatedAt:   session.CreatedAt.UTC().UnixMilli(),
	}
}

func (r record) toSession() domain.Session {
	return domain.Session{
		Reference:   r.Reference,
		State:       domain.ParseSessionState(r.State),
		Winner:      r.Winner,
		GatewayMeta: r.GatewayMeta,
		CreatedAt:   unixMillisToTime(r.CreatedAt),
	}
}

// Create inserts a new session, rejecting duplicate references.
func (s *Store) Create(ctx context.Context, session domain.Session) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("storage is not configured")
	}
	reference := strings.TrimSpace(session.Reference)
	if reference == "" {
		return fmt.Errorf("session reference is required")
	}

	data, err := json.Marshal(toRecord(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	inserted, err := s.client.SetNX(ctx, key(reference), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !inserted {
		return storage.ErrDuplicateReference
	}
	return nil
}

// Get returns the session stored under reference.
func (s *Store) Get(ctx context.Context, reference string) (domain.Session, error) {
	if s == nil || s.client == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return domain.Session{}, fmt.Errorf("session reference is required")
	}

	data, err := s.client.Get(ctx, key(reference)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return rec.toSession(), nil
}

// CompareAndTransition applies mutate inside a WATCH transaction so a
// concurrent write to the same reference aborts the commit.
func (s *Store) CompareAndTransition(ctx context.Context, reference string, expected domain.SessionState, mutate storage.Mutate) (domain.Session, error) {
	if s == nil || s.client == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return domain.Session{}, fmt.Errorf("session reference is required")
	}
	if mutate == nil {
		return domain.Session{}, fmt.Errorf("mutate func is required")
	}

	var committed domain.Session
	transition := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key(reference)).Bytes()
		if errors.Is(err, redis.Nil) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}

		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		session := rec.toSession()
		if session.State != expected {
			return storage.ErrStaleState
		}

		next := session
		if err := mutate(&next); err != nil {
			return err
		}

		nextData, err := json.Marshal(toRecord(next))
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(reference), nextData, 0)
			return nil
		})
		if err != nil {
			return err
		}
		committed = next
		return nil
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		err := s.client.Watch(ctx, transition, key(reference))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.Session{}, err
		}
		return committed, nil
	}
	return domain.Session{}, storage.ErrStaleState
}

func unixMillisToTime(millis int64) time.Time {
	if millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis).UTC()
}
