package game

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	apperrors "conquest-server/internal/shared/errors"
	"conquest-server/internal/storage"
)

const gameKeyPrefix = "game:"

func gameKey(gameID string) string {
	return gameKeyPrefix + gameID
}

type pendingWrite struct {
	record   *GameRecord
	cachedAt time.Time
}

// Repository persists game records through the storage contract and layers
// the pending-write cache on top. A save with deferred intent is held in
// process instead of hitting the store; any later read in this process
// prefers the held record over a store read, and the entry is dropped the
// moment a flush succeeds.
//
// The cache is an optimization, not a correctness mechanism: another instance
// will not see it, which is exactly why the client-side optimistic merge in
// merge.go exists.
type Repository struct {
	store  storage.Store
	logger *slog.Logger

	// Clock is injectable for deterministic eviction tests.
	Clock func() time.Time

	maxPendingAge time.Duration

	mu      sync.Mutex
	pending map[string]pendingWrite
}

func NewRepository(store storage.Store, maxPendingAge time.Duration, logger *slog.Logger) *Repository {
	return &Repository{
		store:         store,
		logger:        logger,
		Clock:         time.Now,
		maxPendingAge: maxPendingAge,
		pending:       make(map[string]pendingWrite),
	}
}

// Load returns the latest known record for a game: the pending in-memory
// write when one is held, the store's copy otherwise.
func (r *Repository) Load(ctx context.Context, gameID string) (*GameRecord, error) {
	logger := r.logger.With("component", "game_repository", "operation", "load", "game_id", gameID)

	if record, ok := r.takePending(gameID); ok {
		logger.Debug("Serving pending in-memory record")
		return record, nil
	}

	raw, err := r.store.Get(ctx, gameKey(gameID))
	if err != nil {
		logger.Error("Store read failed", "error", err)
		return nil, apperrors.WrapInternal("failed to read game record", err)
	}
	if raw == nil {
		logger.Debug("Game not found")
		return nil, apperrors.NotFoundf("no game with id %q", gameID)
	}

	record, err := DecodeRecord(raw)
	if err != nil {
		logger.Error("Stored record is corrupt", "error", err)
		return nil, apperrors.WrapInternal("failed to decode game record", err)
	}

	logger.Debug("Game loaded from store", "status", record.Status)
	return record, nil
}

// takePending returns a copy of the held record for a game, pruning any
// entries past their age bound while it holds the lock. Eviction is
// opportunistic on access; there is no background timer.
func (r *Repository) takePending(gameID string) (*GameRecord, bool) {
	now := r.Clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.pending {
		if now.Sub(entry.cachedAt) > r.maxPendingAge {
			r.logger.Warn("Evicting stale pending write; deferred command was never flushed",
				"component", "game_repository", "game_id", id, "age", now.Sub(entry.cachedAt))
			delete(r.pending, id)
		}
	}

	entry, ok := r.pending[gameID]
	if !ok {
		return nil, false
	}
	return entry.record.Clone(), true
}

// Save persists a record. With deferred intent the record is only held in the
// pending cache: the caller has signalled that more commands for this game
// are coming and the flush can wait. A non-deferred save writes through and
// clears any pending entry; a failed write is a durability failure and the
// command must not be reported successful.
func (r *Repository) Save(ctx context.Context, record *GameRecord, deferWrite bool) error {
	logger := r.logger.With("component", "game_repository", "operation", "save",
		"game_id", record.GameID, "deferred", deferWrite)

	if deferWrite {
		r.mu.Lock()
		r.pending[record.GameID] = pendingWrite{record: record.Clone(), cachedAt: r.Clock()}
		r.mu.Unlock()
		logger.Debug("Write deferred to pending cache")
		return nil
	}

	if err := r.writeThrough(ctx, record); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.pending, record.GameID)
	r.mu.Unlock()

	logger.Debug("Game saved to store")
	return nil
}

// Flush writes the pending record for a game, if any, and clears the entry on
// success.
func (r *Repository) Flush(ctx context.Context, gameID string) error {
	logger := r.logger.With("component", "game_repository", "operation", "flush", "game_id", gameID)

	r.mu.Lock()
	entry, ok := r.pending[gameID]
	r.mu.Unlock()

	if !ok {
		logger.Debug("Nothing pending to flush")
		return nil
	}

	if err := r.writeThrough(ctx, entry.record); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.pending, gameID)
	r.mu.Unlock()

	logger.Debug("Pending write flushed")
	return nil
}

func (r *Repository) writeThrough(ctx context.Context, record *GameRecord) error {
	raw, err := EncodeRecord(record)
	if err != nil {
		return apperrors.WrapInternal("failed to encode game record", err)
	}
	if err := r.store.Put(ctx, gameKey(record.GameID), raw); err != nil {
		return apperrors.WrapDurability("game state computed but not persisted", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, gameID string) error {
	r.mu.Lock()
	delete(r.pending, gameID)
	r.mu.Unlock()

	if err := r.store.Delete(ctx, gameKey(gameID)); err != nil {
		return apperrors.WrapInternal("failed to delete game record", err)
	}
	return nil
}

// ListGameIDs returns the IDs of every stored game.
func (r *Repository) ListGameIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, gameKeyPrefix)
	if err != nil {
		return nil, apperrors.WrapInternal("failed to list game records", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key[len(gameKeyPrefix):])
	}
	return ids, nil
}

// EncodeRecord serializes a record to its stored form.
func EncodeRecord(record *GameRecord) ([]byte, error) {
	return json.Marshal(record)
}

// DecodeRecord deserializes a stored record and normalizes its state so
// decoded records are structurally identical to freshly built ones.
func DecodeRecord(raw []byte) (*GameRecord, error) {
	var record GameRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	if record.State != nil {
		record.State.Normalize()
	}
	return &record, nil
}
