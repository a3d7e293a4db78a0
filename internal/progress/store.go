// Package progress persists per-user career history and applies each run's
// outcome to it. Writes go through optimistic concurrency: every record
// carries a version, and a put only lands when the caller's expected version
// still matches the stored one. The tracker retries lost races with fresh
// reads so concurrent updates for one user linearize instead of clobbering
// each other.
package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"careerflow/internal/config"
	"careerflow/internal/errors"
	"careerflow/internal/types"
)

// Store persists progress records keyed by user. Put succeeds only when
// expectedVersion matches the stored record's version, with 0 meaning the
// record must not exist yet; on success the stored version becomes
// expectedVersion+1. A failed match returns a conflict error.
type Store interface {
	Get(ctx context.Context, userID string) (types.ProgressRecord, bool, error)
	Put(ctx context.Context, record types.ProgressRecord, expectedVersion int64) error
	Purge(ctx context.Context, olderThan time.Time) (int, error)
	Close() error
}

// NewStore builds the configured Store backend.
func NewStore(ctx context.Context, cfg config.ProgressConfig, logger *errors.Logger) (Store, error) {
	switch cfg.Store {
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresURL, logger)
	case "", "memory":
		return NewMemoryStore(), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown progress store %q", cfg.Store), nil)
	}
}

// MemoryStore is the default in-process backend. Records are copied on the
// way in and out so callers never share the stored history slice.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.ProgressRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]types.ProgressRecord)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (types.ProgressRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.ProgressRecord{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[userID]
	if !ok {
		return types.ProgressRecord{}, false, nil
	}
	return record.Clone(), true, nil
}

func (s *MemoryStore) Put(ctx context.Context, record types.ProgressRecord, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.records[record.UserID]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return errors.NewConflictError(errors.ErrCodeProgressConflict,
			fmt.Sprintf("progress record for user %s changed underneath the update", record.UserID), nil).
			WithContext("expected_version", expectedVersion).
			WithContext("stored_version", current)
	}

	stored := record.Clone()
	stored.Version = expectedVersion + 1
	s.records[record.UserID] = stored
	return nil
}

func (s *MemoryStore) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for userID, record := range s.records {
		if record.UpdatedAt.Before(olderThan) {
			delete(s.records, userID)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStore) Close() error { return nil }
