package game

import (
	"context"
	"testing"
	"time"

	"conquest-server/internal/notify"
	apperrors "conquest-server/internal/shared/errors"
	"conquest-server/internal/storage/memstore"
)

func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		Rule:              certainKillConfig(),
		StartingGarrison:  5,
		StartingResource:  12,
		DefaultMapSize:    12,
		DefaultMaxPlayers: 4,
		DefaultTurnLimit:  0,
		GraceWindow:       45 * time.Second,
	}
}

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	repo := NewRepository(store, 30*time.Second, discardLogger())
	notifier := notify.NewClient("", time.Second, discardLogger())
	return NewService(repo, notifier, testServiceConfig(), discardLogger()), store
}

func TestCreateGameDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	record, err := svc.CreateGame(context.Background(), CreateConfig{HostName: "Ada"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if record.Status != StatusPending {
		t.Fatalf("expected pending game, got %s", record.Status)
	}
	if record.Variant != VariantConquest {
		t.Fatalf("expected conquest by default, got %s", record.Variant)
	}
	if record.Pending.MapSize != 12 || record.Pending.MaxPlayers != 4 {
		t.Fatalf("defaults not applied: %+v", record.Pending)
	}
	if len(record.Players) != 1 || record.Players[0].SlotIndex != 0 || record.Players[0].Name != "Ada" {
		t.Fatalf("host should hold slot 0: %+v", record.Players)
	}
	if record.State != nil {
		t.Fatal("pending game must not carry a state yet")
	}
}

func TestCreateGameValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cfg  CreateConfig
	}{
		{"missing host", CreateConfig{}},
		{"unknown variant", CreateConfig{HostName: "Ada", Variant: "chess"}},
		{"too few players", CreateConfig{HostName: "Ada", MaxPlayers: 1}},
		{"map too small", CreateConfig{HostName: "Ada", MapSize: 4, MaxPlayers: 4}},
	}
	for _, tc := range cases {
		_, err := svc.CreateGame(ctx, tc.cfg)
		if apperrors.GetType(err) != apperrors.ErrorTypeValidation {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestJoinAutoStartsWhenFull(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateGame(ctx, CreateConfig{HostName: "Ada", MaxPlayers: 2})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	record, slot, err := svc.Join(ctx, created.GameID, "Bo")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if slot != 1 {
		t.Fatalf("expected slot 1, got %d", slot)
	}
	if record.Status != StatusActive {
		t.Fatalf("filling the last slot should start the game, got %s", record.Status)
	}
	if record.Pending != nil {
		t.Fatal("pending configuration should be dropped on activation")
	}

	state := record.State
	if state.TurnNumber != 1 || state.CurrentPlayerSlot != 0 || state.MovesRemaining != 3 {
		t.Fatalf("unexpected opening turn state: %+v", state)
	}
	// Homes are spread evenly: slot 0 at location 0, slot 1 at location 6.
	for slot, home := range map[int]int{0: 0, 1: 6} {
		if owner, ok := state.OwnerOf(home); !ok || owner != slot {
			t.Fatalf("slot %d should own home %d", slot, home)
		}
		if state.Forces[home] != 5 {
			t.Fatalf("home %d should hold the starting garrison, got %d", home, state.Forces[home])
		}
		if state.StructureLevel(home, StructureTemple) != 0 {
			t.Fatalf("home %d should start with a level 0 temple", home)
		}
		if state.Resources[slot] != 12 {
			t.Fatalf("slot %d should start with 12 resource, got %d", slot, state.Resources[slot])
		}
	}
}

func TestJoinRejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateGame(ctx, CreateConfig{HostName: "Ada", MaxPlayers: 2})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, _, err := svc.Join(ctx, created.GameID, ""); apperrors.GetType(err) != apperrors.ErrorTypeValidation {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}

	if _, _, err := svc.Join(ctx, created.GameID, "Bo"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	// Game auto-started; a third player is too late.
	if _, _, err := svc.Join(ctx, created.GameID, "Cy"); apperrors.GetType(err) != apperrors.ErrorTypeConflict {
		t.Fatalf("expected conflict joining a started game, got %v", err)
	}
}

func TestStartFillsWithAIOpponents(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateGame(ctx, CreateConfig{HostName: "Ada", MaxPlayers: 3, AIFill: true})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	record, err := svc.Start(ctx, created.GameID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if record.Status != StatusActive {
		t.Fatalf("expected active game, got %s", record.Status)
	}
	if len(record.Players) != 3 {
		t.Fatalf("expected 3 players after AI fill, got %d", len(record.Players))
	}
	for _, player := range record.Players[1:] {
		if !player.IsAI || player.Personality == "" || player.Name == "" {
			t.Fatalf("AI slot not filled properly: %+v", player)
		}
	}
}

func TestStartNeedsTwoPlayers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateGame(ctx, CreateConfig{HostName: "Ada", MaxPlayers: 4})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Start(ctx, created.GameID); apperrors.GetType(err) != apperrors.ErrorTypeValidation {
		t.Fatalf("expected validation error starting solo, got %v", err)
	}
}

func TestExecuteEndTurnPersists(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateGame(ctx, CreateConfig{HostName: "Ada", MaxPlayers: 2})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Join(ctx, created.GameID, "Bo"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	result, err := svc.Execute(ctx, created.GameID, EndTurnCommand{Actor: 0}, false)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Record.State.CurrentPlayerSlot != 1 {
		t.Fatalf("expected rotation to slot 1, got %d", result.Record.State.CurrentPlayerSlot)
	}

	raw, err := store.Get(ctx, gameKey(created.GameID))
	if err != nil || raw == nil {
		t.Fatalf("record missing from store: %v", err)
	}
	stored, err := DecodeRecord(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if stored.State.CurrentPlayerSlot != 1 {
		t.Fatalf("store should hold the post-command state, got slot %d", stored.State.CurrentPlayerSlot)
	}
}

func TestExecuteDeferredWriteAndFlush(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateGame(ctx, CreateConfig{HostName: "Ada", MaxPlayers: 2})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Join(ctx, created.GameID, "Bo"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	result, err := svc.Execute(ctx, created.GameID, RecruitCommand{Actor: 0, Location: 0}, true)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Record.State.Forces[0] != 6 {
		t.Fatalf("expected recruited garrison of 6, got %d", result.Record.State.Forces[0])
	}

	// Deferred: the store still holds the pre-command state.
	raw, err := store.Get(ctx, gameKey(created.GameID))
	if err != nil || raw == nil {
		t.Fatalf("store read failed: %v", err)
	}
	stored, err := DecodeRecord(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if stored.State.Forces[0] != 5 {
		t.Fatalf("deferred write leaked to the store, garrison %d", stored.State.Forces[0])
	}

	if err := svc.Flush(ctx, created.GameID); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	raw, _ = store.Get(ctx, gameKey(created.GameID))
	stored, err = DecodeRecord(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if stored.State.Forces[0] != 6 {
		t.Fatalf("flush did not persist the pending state, garrison %d", stored.State.Forces[0])
	}
}

func TestExecuteSurfacesDurabilityFailure(t *testing.T) {
	store := &brokenStore{memstore.New()}
	repo := NewRepository(store, 30*time.Second, discardLogger())
	notifier := notify.NewClient("", time.Second, discardLogger())
	svc := NewService(repo, notifier, testServiceConfig(), discardLogger())
	ctx := context.Background()

	rec := twoPlayerRecord(VariantConquest)
	raw, err := EncodeRecord(rec)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	// Seed the record beneath the failing write path.
	if err := store.Store.Put(ctx, gameKey(rec.GameID), raw); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err = svc.Execute(ctx, rec.GameID, EndTurnCommand{Actor: 0}, false)
	if !apperrors.IsDurability(err) {
		t.Fatalf("expected durability error, got %v", err)
	}
}

func TestGetMergesTrackedArmadasOverStaleSnapshot(t *testing.T) {
	store := memstore.New()
	repo := NewRepository(store, 30*time.Second, discardLogger())
	notifier := notify.NewClient("", time.Second, discardLogger())
	svc := NewService(repo, notifier, testServiceConfig(), discardLogger())
	ctx := context.Background()

	created, err := svc.CreateGame(ctx, CreateConfig{HostName: "Ada", MaxPlayers: 2, Variant: VariantArmada})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Join(ctx, created.GameID, "Bo"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	// Launch a fleet with a deferred write. The store keeps the pre-move
	// snapshot; only the pending cache and the tracker know about the fleet.
	result, err := svc.Execute(ctx, created.GameID, MoveCommand{Actor: 0, From: 0, To: 2, Count: 3}, true)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(result.Record.State.Armadas) != 1 {
		t.Fatalf("expected one armada in flight, got %d", len(result.Record.State.Armadas))
	}
	if svc.tracker.TrackedCount() != 1 {
		t.Fatalf("executing the move should track the new armada, got %d tracked", svc.tracker.TrackedCount())
	}
	launched := result.Record.State.Armadas[0].ID

	// Age the pending entry out so the next load serves the stale store
	// snapshot, as if a second instance read the store directly.
	repo.Clock = func() time.Time { return time.Now().Add(2 * time.Minute) }

	got, err := svc.Get(ctx, created.GameID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.State.Armadas) != 1 || got.State.Armadas[0].ID != launched {
		t.Fatalf("stale snapshot should be patched with the tracked armada, got %+v", got.State.Armadas)
	}
}

func TestDeleteOnlyPendingGames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateGame(ctx, CreateConfig{HostName: "Ada", MaxPlayers: 2})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.Delete(ctx, created.GameID); err != nil {
		t.Fatalf("deleting a pending game failed: %v", err)
	}

	started, err := svc.CreateGame(ctx, CreateConfig{HostName: "Ada", MaxPlayers: 2})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Join(ctx, started.GameID, "Bo"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := svc.Delete(ctx, started.GameID); apperrors.GetType(err) != apperrors.ErrorTypeConflict {
		t.Fatalf("expected conflict deleting an active game, got %v", err)
	}
}

func TestListGamesSummaries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pending, err := svc.CreateGame(ctx, CreateConfig{HostName: "Ada", MaxPlayers: 3})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	active, err := svc.CreateGame(ctx, CreateConfig{HostName: "Cy", MaxPlayers: 2, Variant: VariantArmada})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Join(ctx, active.GameID, "Di"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	summaries, err := svc.ListGames(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	byID := map[string]GameSummary{}
	for _, summary := range summaries {
		byID[summary.GameID] = summary
	}
	if s := byID[pending.GameID]; s.Status != StatusPending || s.MaxPlayers != 3 || s.PlayerCount != 1 {
		t.Fatalf("unexpected pending summary: %+v", s)
	}
	if s := byID[active.GameID]; s.Status != StatusActive || s.Variant != VariantArmada || s.TurnNumber != 1 {
		t.Fatalf("unexpected active summary: %+v", s)
	}
}
