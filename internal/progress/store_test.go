package progress

import (
	"context"
	"testing"
	"time"

	"careerflow/internal/config"
	"careerflow/internal/errors"
	"careerflow/internal/types"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, found, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Fatal("Get() found a record in an empty store")
	}

	record := types.ProgressRecord{
		UserID:        "u1",
		History:       []types.Milestone{{Name: types.MilestoneInitialAssessment, RecordedAt: time.Now().UTC()}},
		NextMilestone: types.MilestoneBasicSkills,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := store.Put(ctx, record, 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, found, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() did not find the stored record")
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1 after first put", got.Version)
	}
	if len(got.History) != 1 || got.History[0].Name != types.MilestoneInitialAssessment {
		t.Errorf("History = %v, want the stored milestone", got.History)
	}
}

func TestMemoryStoreVersionConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	record := types.ProgressRecord{UserID: "u1", UpdatedAt: time.Now().UTC()}
	if err := store.Put(ctx, record, 0); err != nil {
		t.Fatalf("initial Put() error = %v", err)
	}

	tests := []struct {
		name            string
		expectedVersion int64
		wantConflict    bool
	}{
		{"matching version succeeds", 1, false},
		{"stale version conflicts", 1, true},
		{"create over existing conflicts", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Put(ctx, record, tt.expectedVersion)
			if tt.wantConflict {
				if !errors.IsConflictError(err) {
					t.Errorf("Put() error = %v, want conflict", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Put() error = %v", err)
			}
		})
	}
}

func TestMemoryStoreCloneIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	record := types.ProgressRecord{
		UserID:    "u1",
		History:   []types.Milestone{{Name: types.MilestoneInitialAssessment}},
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.Put(ctx, record, 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, _, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got.History[0].Name = "mutated"

	fresh, _, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fresh.History[0].Name != types.MilestoneInitialAssessment {
		t.Error("mutating a returned record leaked into the store")
	}
}

func TestMemoryStorePurge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	old := types.ProgressRecord{UserID: "stale", UpdatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	recent := types.ProgressRecord{UserID: "active", UpdatedAt: time.Now().UTC()}
	if err := store.Put(ctx, old, 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, recent, 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	purged, err := store.Purge(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("Purge() = %d, want 1", purged)
	}

	if _, found, _ := store.Get(ctx, "stale"); found {
		t.Error("stale record survived the purge")
	}
	if _, found, _ := store.Get(ctx, "active"); !found {
		t.Error("active record was purged")
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := store.Get(ctx, "u1"); err == nil {
		t.Error("Get() with cancelled context succeeded")
	}
	if err := store.Put(ctx, types.ProgressRecord{UserID: "u1"}, 0); err == nil {
		t.Error("Put() with cancelled context succeeded")
	}
}

func TestNewStore(t *testing.T) {
	logger := errors.NewLogger(testLogLevel)

	store, err := NewStore(context.Background(), config.ProgressConfig{Store: "memory"}, logger)
	if err != nil {
		t.Fatalf("NewStore(memory) error = %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("NewStore(memory) = %T, want *MemoryStore", store)
	}

	if _, err := NewStore(context.Background(), config.ProgressConfig{Store: "redis"}, logger); err == nil {
		t.Error("NewStore with an unknown backend succeeded")
	}

	if _, err := NewStore(context.Background(), config.ProgressConfig{Store: "postgres"}, logger); err == nil {
		t.Error("NewStore(postgres) without a URL succeeded")
	}
}
