package game

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "conquest-server/internal/shared/errors"
	"conquest-server/internal/storage/memstore"
)

// brokenStore fails every write, standing in for a store outage.
type brokenStore struct {
	*memstore.Store
}

func (s *brokenStore) Put(ctx context.Context, key string, value []byte) error {
	return errors.New("store unavailable")
}

func newTestRepository(t *testing.T) (*Repository, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return NewRepository(store, 30*time.Second, discardLogger()), store
}

func TestRepositorySaveAndLoad(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	rec := twoPlayerRecord(VariantConquest)

	if err := repo.Save(ctx, rec, false); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := repo.Load(ctx, rec.GameID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.GameID != rec.GameID || loaded.State.TurnNumber != rec.State.TurnNumber {
		t.Fatalf("loaded record does not match saved one: %+v", loaded)
	}
}

func TestRepositoryLoadMissingGame(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Load(context.Background(), "nope")
	if apperrors.GetType(err) != apperrors.ErrorTypeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestRepositoryDeferredSavePreferredOnLoad(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	rec := twoPlayerRecord(VariantConquest)
	if err := repo.Save(ctx, rec, false); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}

	updated := rec.Clone()
	updated.State.TurnNumber = 7
	if err := repo.Save(ctx, updated, true); err != nil {
		t.Fatalf("deferred save failed: %v", err)
	}

	// The store still holds the old record; the repository must serve the
	// pending one.
	loaded, err := repo.Load(ctx, rec.GameID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.State.TurnNumber != 7 {
		t.Fatalf("expected pending record with turn 7, got %d", loaded.State.TurnNumber)
	}

	raw, err := store.Get(ctx, gameKey(rec.GameID))
	if err != nil {
		t.Fatalf("store read failed: %v", err)
	}
	stored, err := DecodeRecord(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if stored.State.TurnNumber != 1 {
		t.Fatalf("deferred save must not touch the store, turn is %d", stored.State.TurnNumber)
	}
}

func TestRepositoryFlushWritesPending(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	rec := twoPlayerRecord(VariantConquest)
	rec.State.TurnNumber = 5
	if err := repo.Save(ctx, rec, true); err != nil {
		t.Fatalf("deferred save failed: %v", err)
	}

	if err := repo.Flush(ctx, rec.GameID); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	raw, err := store.Get(ctx, gameKey(rec.GameID))
	if err != nil || raw == nil {
		t.Fatalf("flushed record missing from store: %v", err)
	}
	stored, err := DecodeRecord(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if stored.State.TurnNumber != 5 {
		t.Fatalf("expected flushed turn 5, got %d", stored.State.TurnNumber)
	}
}

func TestRepositoryFlushWithoutPendingIsNoop(t *testing.T) {
	repo, _ := newTestRepository(t)
	if err := repo.Flush(context.Background(), "nothing-here"); err != nil {
		t.Fatalf("flush of empty cache should succeed: %v", err)
	}
}

func TestRepositoryWriteFailureIsDurabilityError(t *testing.T) {
	repo := NewRepository(&brokenStore{memstore.New()}, 30*time.Second, discardLogger())
	rec := twoPlayerRecord(VariantConquest)

	err := repo.Save(context.Background(), rec, false)
	if !apperrors.IsDurability(err) {
		t.Fatalf("expected durability error, got %v", err)
	}
}

func TestRepositoryDeferredSaveSurvivesStoreOutage(t *testing.T) {
	repo := NewRepository(&brokenStore{memstore.New()}, 30*time.Second, discardLogger())
	ctx := context.Background()
	rec := twoPlayerRecord(VariantConquest)

	// Deferring never touches the store, so it succeeds even mid-outage.
	if err := repo.Save(ctx, rec, true); err != nil {
		t.Fatalf("deferred save failed: %v", err)
	}
	// The outage surfaces at flush time as a durability failure and the
	// pending entry stays for a retry.
	if err := repo.Flush(ctx, rec.GameID); !apperrors.IsDurability(err) {
		t.Fatalf("expected durability error on flush, got %v", err)
	}
	loaded, err := repo.Load(ctx, rec.GameID)
	if err != nil {
		t.Fatalf("pending record should survive a failed flush: %v", err)
	}
	if loaded.GameID != rec.GameID {
		t.Fatalf("unexpected record: %+v", loaded)
	}
}

func TestRepositoryEvictsStalePendingWrites(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.Clock = func() time.Time { return now }

	rec := twoPlayerRecord(VariantConquest)
	if err := repo.Save(ctx, rec, true); err != nil {
		t.Fatalf("deferred save failed: %v", err)
	}

	// Within the bound the pending record is still served.
	now = now.Add(29 * time.Second)
	if _, err := repo.Load(ctx, rec.GameID); err != nil {
		t.Fatalf("pending record should still be served: %v", err)
	}

	// Past the bound it is evicted; with nothing in the store the game is
	// simply gone.
	now = now.Add(2 * time.Second)
	_, err := repo.Load(ctx, rec.GameID)
	if apperrors.GetType(err) != apperrors.ErrorTypeNotFound {
		t.Fatalf("expected not_found after eviction, got %v", err)
	}
}

func TestRepositoryPendingCacheIsPerInstance(t *testing.T) {
	store := memstore.New()
	repoA := NewRepository(store, 30*time.Second, discardLogger())
	repoB := NewRepository(store, 30*time.Second, discardLogger())
	ctx := context.Background()

	rec := twoPlayerRecord(VariantConquest)
	if err := repoA.Save(ctx, rec, false); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}

	updated := rec.Clone()
	updated.State.TurnNumber = 9
	updated.State.Armadas = []Armada{{ID: "fleet-1", OwnerSlot: 0, From: 0, To: 2, DepartedTurn: 9, Ships: 2}}
	if err := repoA.Save(ctx, updated, true); err != nil {
		t.Fatalf("deferred save failed: %v", err)
	}

	// Another instance reads around the cache and sees the stale store copy.
	stale, err := repoB.Load(ctx, rec.GameID)
	if err != nil {
		t.Fatalf("load on second instance failed: %v", err)
	}
	if stale.State.TurnNumber != 1 {
		t.Fatalf("second instance should see the stale record, got turn %d", stale.State.TurnNumber)
	}

	// The client-side tracker papers over exactly this gap: the armada the
	// first instance accepted is merged into the stale snapshot.
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tracker := NewTracker(45*time.Second, clock)
	tracker.Track(updated.State.Armadas[0])

	tracker.MergeState(stale.State)
	if len(stale.State.Armadas) != 1 || stale.State.Armadas[0].ID != "fleet-1" {
		t.Fatalf("tracked armada missing after merge: %+v", stale.State.Armadas)
	}
}

func TestListGameIDs(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	for _, id := range []string{"g1", "g2"} {
		rec := twoPlayerRecord(VariantConquest)
		rec.GameID = id
		if err := repo.Save(ctx, rec, false); err != nil {
			t.Fatalf("save %s failed: %v", id, err)
		}
	}
	// Unrelated keys must not leak into the listing.
	if err := store.Put(ctx, "session:abc", []byte("x")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	ids, err := repo.ListGameIDs(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 game ids, got %v", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen["g1"] || !seen["g2"] {
		t.Fatalf("missing expected ids: %v", ids)
	}
}

func TestRepositoryDeleteClearsPendingAndStore(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	rec := twoPlayerRecord(VariantConquest)
	if err := repo.Save(ctx, rec, false); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := repo.Save(ctx, rec, true); err != nil {
		t.Fatalf("deferred save failed: %v", err)
	}

	if err := repo.Delete(ctx, rec.GameID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := repo.Load(ctx, rec.GameID); apperrors.GetType(err) != apperrors.ErrorTypeNotFound {
		t.Fatalf("expected not_found after delete, got %v", err)
	}
	raw, err := store.Get(ctx, gameKey(rec.GameID))
	if err != nil {
		t.Fatalf("store read failed: %v", err)
	}
	if raw != nil {
		t.Fatal("store copy should be gone after delete")
	}
}
