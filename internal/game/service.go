package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"conquest-server/internal/notify"
	apperrors "conquest-server/internal/shared/errors"

	"github.com/google/uuid"
)

// ServiceConfig carries the lifecycle and rule tuning the service needs.
type ServiceConfig struct {
	Rule              RuleConfig
	StartingGarrison  int
	StartingResource  int
	DefaultMapSize    int
	DefaultMaxPlayers int
	DefaultTurnLimit  int
	GraceWindow       time.Duration
}

// Service orchestrates the command path: load the latest known record through
// the reconciling repository, run the pure processing pipeline, persist (or
// defer) the write, fan out to connected clients, and drive any AI turns that
// follow.
type Service struct {
	repo     *Repository
	notifier *notify.Client
	tracker  *Tracker
	cfg      ServiceConfig
	logger   *slog.Logger

	// NewID is injectable for deterministic game IDs in tests.
	NewID func() string
}

func NewService(repo *Repository, notifier *notify.Client, cfg ServiceConfig, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		tracker:  NewTracker(cfg.GraceWindow, nil),
		cfg:      cfg,
		logger:   logger,
		NewID:    func() string { return uuid.NewString() },
	}
}

// CreateConfig is the setup request for a new game.
type CreateConfig struct {
	Variant    Variant `json:"variant"`
	HostName   string  `json:"hostName"`
	MapSize    int     `json:"mapSize"`
	TurnLimit  int     `json:"turnLimit"`
	MaxPlayers int     `json:"maxPlayers"`
	AIFill     bool    `json:"aiFill"`
}

// CreateGame creates a pending record with the host in slot 0.
func (s *Service) CreateGame(ctx context.Context, cfg CreateConfig) (*GameRecord, error) {
	logger := s.logger.With("component", "game_service", "operation", "create_game")

	if cfg.Variant == "" {
		cfg.Variant = VariantConquest
	}
	if cfg.Variant != VariantConquest && cfg.Variant != VariantArmada {
		return nil, apperrors.Validationf("unknown game variant %q", cfg.Variant)
	}
	if cfg.HostName == "" {
		return nil, apperrors.Validation("host name is required")
	}
	if cfg.MapSize == 0 {
		cfg.MapSize = s.cfg.DefaultMapSize
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = s.cfg.DefaultMaxPlayers
	}
	if cfg.TurnLimit == 0 {
		cfg.TurnLimit = s.cfg.DefaultTurnLimit
	}
	if cfg.MaxPlayers < 2 {
		return nil, apperrors.Validationf("a game needs at least 2 players, got %d", cfg.MaxPlayers)
	}
	if cfg.MapSize < cfg.MaxPlayers*2 {
		return nil, apperrors.Validationf("map size %d is too small for %d players", cfg.MapSize, cfg.MaxPlayers)
	}

	now := time.Now()
	record := &GameRecord{
		GameID:  s.NewID(),
		Variant: cfg.Variant,
		Status:  StatusPending,
		Players: []Player{{
			SlotIndex: 0,
			Name:      cfg.HostName,
			Color:     ColorForSlot(0),
		}},
		Pending: &PendingConfiguration{
			MapSize:    cfg.MapSize,
			TurnLimit:  cfg.TurnLimit,
			MaxPlayers: cfg.MaxPlayers,
			AIFill:     cfg.AIFill,
		},
		CreatedAt:  now,
		LastMoveAt: now,
	}

	if err := s.repo.Save(ctx, record, false); err != nil {
		logger.Error("Failed to persist new game", "error", err)
		return nil, err
	}

	logger.Info("Game created", "game_id", record.GameID, "variant", record.Variant)
	return record, nil
}

// Get returns the latest known record for a game. The snapshot is run through
// the optimistic tracker: armadas this process accepted within the grace
// window are unioned in, so a lagging store read cannot hide them.
func (s *Service) Get(ctx context.Context, gameID string) (*GameRecord, error) {
	record, err := s.repo.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s.tracker.MergeState(record.State)
	return record, nil
}

// GameSummary is the listing shape.
type GameSummary struct {
	GameID      string     `json:"gameId"`
	Variant     Variant    `json:"variant"`
	Status      GameStatus `json:"status"`
	PlayerCount int        `json:"playerCount"`
	MaxPlayers  int        `json:"maxPlayers,omitempty"`
	TurnNumber  int        `json:"turnNumber,omitempty"`
}

// ListGames returns summaries of every stored game.
func (s *Service) ListGames(ctx context.Context) ([]GameSummary, error) {
	ids, err := s.repo.ListGameIDs(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]GameSummary, 0, len(ids))
	for _, id := range ids {
		record, err := s.repo.Load(ctx, id)
		if err != nil {
			// Listing is best-effort per entry; a record deleted mid-scan is
			// not worth failing the whole listing for.
			s.logger.Warn("Skipping unreadable game record",
				"component", "game_service", "game_id", id, "error", err)
			continue
		}
		summary := GameSummary{
			GameID:      record.GameID,
			Variant:     record.Variant,
			Status:      record.Status,
			PlayerCount: len(record.Players),
		}
		if record.Pending != nil {
			summary.MaxPlayers = record.Pending.MaxPlayers
		}
		if record.State != nil {
			summary.TurnNumber = record.State.TurnNumber
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Join assigns the next free slot to a new player. When the last slot fills
// the game auto-starts.
func (s *Service) Join(ctx context.Context, gameID, name string) (*GameRecord, int, error) {
	logger := s.logger.With("component", "game_service", "operation", "join", "game_id", gameID)

	if name == "" {
		return nil, 0, apperrors.Validation("player name is required")
	}

	record, err := s.repo.Load(ctx, gameID)
	if err != nil {
		return nil, 0, err
	}
	if record.Status != StatusPending {
		return nil, 0, apperrors.Conflictf("game %s has already started", gameID)
	}
	if len(record.Players) >= record.Pending.MaxPlayers {
		return nil, 0, apperrors.Conflictf("game %s is full", gameID)
	}

	slot := len(record.Players)
	record.Players = append(record.Players, Player{
		SlotIndex: slot,
		Name:      name,
		Color:     ColorForSlot(slot),
	})

	started := false
	if len(record.Players) == record.Pending.MaxPlayers {
		s.activate(record)
		started = true
	}

	if err := s.repo.Save(ctx, record, false); err != nil {
		logger.Error("Failed to persist join", "error", err)
		return nil, 0, err
	}

	s.notifier.Publish(ctx, gameID, notify.Message{
		Type: notify.TypePlayerJoined,
		Data: map[string]interface{}{"slotIndex": slot, "name": name},
	})
	if started {
		s.notifier.Publish(ctx, gameID, notify.Message{
			Type:      notify.TypeGameStarted,
			GameState: record.State,
		})
	}

	logger.Info("Player joined", "slot", slot, "started", started)
	return record, slot, nil
}

// Start begins a pending game explicitly, filling the remaining slots with AI
// opponents when the setup asked for it.
func (s *Service) Start(ctx context.Context, gameID string) (*GameRecord, error) {
	logger := s.logger.With("component", "game_service", "operation", "start", "game_id", gameID)

	record, err := s.repo.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusPending {
		return nil, apperrors.Conflictf("game %s has already started", gameID)
	}

	if record.Pending.AIFill {
		personalities := []string{"aggressive", "defensive", "balanced"}
		for slot := len(record.Players); slot < record.Pending.MaxPlayers; slot++ {
			record.Players = append(record.Players, Player{
				SlotIndex:   slot,
				Name:        fmt.Sprintf("Commander %d", slot+1),
				Color:       ColorForSlot(slot),
				IsAI:        true,
				Personality: personalities[slot%len(personalities)],
				Difficulty:  1,
			})
		}
	}
	if len(record.Players) < 2 {
		return nil, apperrors.Validationf("game %s needs at least 2 players to start", gameID)
	}

	s.activate(record)

	if err := s.repo.Save(ctx, record, false); err != nil {
		logger.Error("Failed to persist start", "error", err)
		return nil, err
	}

	s.notifier.Publish(ctx, gameID, notify.Message{
		Type:      notify.TypeGameStarted,
		GameState: record.State,
	})

	logger.Info("Game started", "players", len(record.Players))
	return record, nil
}

// activate moves a pending record to active: the state is initialized from
// the pending configuration, which is then dropped. This transition happens
// exactly once per record.
func (s *Service) activate(record *GameRecord) {
	pending := record.Pending
	playerCount := len(record.Players)
	state := NewGameState(pending.MapSize, playerCount, pending.TurnLimit)

	// Home locations are spread evenly around the map; light neutral
	// garrisons fill some of the space between them.
	for slot := 0; slot < playerCount; slot++ {
		home := slot * pending.MapSize / playerCount
		state.Owners[home] = slot
		state.Forces[home] = s.cfg.StartingGarrison
		state.Structures[home] = &Structure{Type: StructureTemple, Level: 0}
		state.Resources[slot] = s.cfg.StartingResource
	}
	for location := 0; location < pending.MapSize; location++ {
		if _, owned := state.Owners[location]; owned {
			continue
		}
		if location%3 == 1 {
			state.Forces[location] = 2
		}
	}

	state.TurnNumber = 1
	state.CurrentPlayerSlot = 0
	state.MovesRemaining = MovesForTurn(state, 0, s.cfg.Rule.BaseMovesPerTurn)

	record.State = state
	record.Pending = nil
	record.Status = StatusActive
	record.LastMoveAt = time.Now()
}

// Execute runs one command through the full path. With deferWrite the caller
// signals more commands are coming this turn and the new record is held in
// the pending cache instead of written through; either way a store write that
// fails surfaces as a durability error and no notification goes out.
func (s *Service) Execute(ctx context.Context, gameID string, cmd Command, deferWrite bool) (*Result, error) {
	logger := s.logger.With(
		"component", "game_service",
		"operation", "execute",
		"game_id", gameID,
		"kind", cmd.Kind(),
	)

	record, err := s.repo.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}

	knownArmadas := make(map[string]bool)
	if record.State != nil {
		for _, armada := range record.State.Armadas {
			knownArmadas[armada.ID] = true
		}
	}

	processor := NewProcessor(RulesFor(record.Variant), s.cfg.Rule, s.logger)
	result, err := processor.Process(record, cmd)
	if err != nil {
		return nil, err
	}

	hook := NewGreedyHook(RulesFor(record.Variant), s.cfg.Rule)
	finalRecord, err := RunAITurns(processor, hook, result.Record, s.logger)
	if err != nil {
		logger.Error("AI turn driver failed", "error", err)
		return nil, err
	}
	result.Record = finalRecord

	// A completed game always writes through; there is nothing more coming
	// that could justify holding the final state in memory.
	deferWrite = deferWrite && finalRecord.Status == StatusActive
	if err := s.repo.Save(ctx, finalRecord, deferWrite); err != nil {
		// Computed but not durable: the caller must retry the whole command
		// and peers must not hear about a state that was never persisted.
		logger.Error("Failed to persist command result", "error", err)
		return nil, err
	}

	// Track every armada this command introduced, so a stale store read
	// within the grace window cannot serve a snapshot that hides it.
	if finalRecord.State != nil {
		for _, armada := range finalRecord.State.Armadas {
			if !knownArmadas[armada.ID] {
				s.tracker.Track(armada)
			}
		}
	}

	s.notifier.Publish(ctx, gameID, notify.Message{
		Type:      notify.TypeGameUpdate,
		GameState: finalRecord.State,
	})
	if finalRecord.Status == StatusCompleted {
		s.notifier.Publish(ctx, gameID, notify.Message{
			Type:      notify.TypeGameEnded,
			GameState: finalRecord.State,
		})
	}

	logger.Debug("Command executed", "status", finalRecord.Status, "deferred", deferWrite)
	return result, nil
}

// Flush forces any pending deferred write for a game out to the store.
func (s *Service) Flush(ctx context.Context, gameID string) error {
	return s.repo.Flush(ctx, gameID)
}

// Delete removes a pending game. Withdrawing the last player before start is
// an administrative action, not a command.
func (s *Service) Delete(ctx context.Context, gameID string) error {
	record, err := s.repo.Load(ctx, gameID)
	if err != nil {
		return err
	}
	if record.Status != StatusPending {
		return apperrors.Conflictf("only pending games can be deleted, game %s is %s", gameID, record.Status)
	}
	return s.repo.Delete(ctx, gameID)
}
