package game

import (
	"log/slog"
	"math/rand"
	"time"

	apperrors "conquest-server/internal/shared/errors"

	"github.com/google/uuid"
)

// CommandKind identifies a state transition request.
type CommandKind string

const (
	KindMove    CommandKind = "move"
	KindBuild   CommandKind = "build"
	KindRecruit CommandKind = "recruit"
	KindEndTurn CommandKind = "end_turn"
	KindResign  CommandKind = "resign"
)

// Command is a short-lived value object describing one state transition
// request. Commands are validated, applied and discarded; they are never
// persisted.
type Command interface {
	Kind() CommandKind
	ActorSlot() int
}

type MoveCommand struct {
	Actor int `json:"actor"`
	From  int `json:"from"`
	To    int `json:"to"`
	Count int `json:"count"`
}

func (c MoveCommand) Kind() CommandKind { return KindMove }
func (c MoveCommand) ActorSlot() int    { return c.Actor }

type BuildCommand struct {
	Actor     int           `json:"actor"`
	Location  int           `json:"location"`
	Structure StructureType `json:"structure"`
}

func (c BuildCommand) Kind() CommandKind { return KindBuild }
func (c BuildCommand) ActorSlot() int    { return c.Actor }

type RecruitCommand struct {
	Actor    int `json:"actor"`
	Location int `json:"location"`
}

func (c RecruitCommand) Kind() CommandKind { return KindRecruit }
func (c RecruitCommand) ActorSlot() int    { return c.Actor }

type EndTurnCommand struct {
	Actor int `json:"actor"`
}

func (c EndTurnCommand) Kind() CommandKind { return KindEndTurn }
func (c EndTurnCommand) ActorSlot() int    { return c.Actor }

type ResignCommand struct {
	Actor int `json:"actor"`
}

func (c ResignCommand) Kind() CommandKind { return KindResign }
func (c ResignCommand) ActorSlot() int    { return c.Actor }

// RuleConfig carries the tunable rule numbers. The processor never reads
// process-wide configuration itself; callers build this from wherever their
// settings live.
type RuleConfig struct {
	BaseMovesPerTurn  int
	DieSides          int
	KillsOn           int
	MaxStructureLevel int
	RecruitCost       int
	RecruitCostStep   int
}

func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		BaseMovesPerTurn:  3,
		DieSides:          6,
		KillsOn:           4,
		MaxStructureLevel: 3,
		RecruitCost:       8,
		RecruitCostStep:   8,
	}
}

// Result is the outcome of a successfully processed command. Record is a deep
// copy; the input record is never mutated, so a rejection leaves the caller's
// snapshot byte-identical to what it loaded.
type Result struct {
	Record    *GameRecord
	Replays   []BattleReplay
	Conquered []int
}

// Processor validates and applies commands. The pipeline is pure: no I/O, no
// suspension. Seed, Now and NewID are injectable so tests get deterministic
// combat, timestamps and armada IDs.
type Processor struct {
	rules  Rules
	cfg    RuleConfig
	logger *slog.Logger

	Seed  func() int64
	Now   func() time.Time
	NewID func() string
}

func NewProcessor(rules Rules, cfg RuleConfig, logger *slog.Logger) *Processor {
	return &Processor{
		rules:  rules,
		cfg:    cfg,
		logger: logger,
		Seed:   rand.Int63,
		Now:    time.Now,
		NewID:  func() string { return uuid.NewString() },
	}
}

// Process runs the uniform pipeline: validate, apply the command-specific
// rule to a working copy, post-process eliminations and completion, emit the
// bounded event fields.
func (p *Processor) Process(rec *GameRecord, cmd Command) (*Result, error) {
	logger := p.logger.With(
		"component", "processor",
		"operation", "process",
		"game_id", rec.GameID,
		"kind", cmd.Kind(),
		"actor", cmd.ActorSlot(),
	)

	if rec.Status != StatusActive || rec.State == nil {
		return nil, apperrors.Rejection(apperrors.CodeGameNotActive,
			"game %s is %s, not accepting commands", rec.GameID, rec.Status)
	}

	actor := cmd.ActorSlot()
	if _, ok := rec.PlayerBySlot(actor); !ok {
		return nil, apperrors.NotFoundf("no player in slot %d", actor)
	}
	if rec.State.IsEliminated(actor) {
		return nil, apperrors.Rejection(apperrors.CodeAlreadyEliminated,
			"player %d is eliminated", actor)
	}

	switch cmd.Kind() {
	case KindMove, KindBuild, KindRecruit, KindEndTurn:
		if rec.State.CurrentPlayerSlot != actor {
			return nil, apperrors.Rejection(apperrors.CodeNotYourTurn,
				"it is player %d's turn, not player %d's", rec.State.CurrentPlayerSlot, actor)
		}
	}

	work := rec.Clone()
	state := work.State

	// Each mutating command emits a fresh event batch; the previous command's
	// batch is superseded, not accumulated.
	state.BattleReplays = []BattleReplay{}
	state.ConqueredLocations = []int{}

	var err error
	switch c := cmd.(type) {
	case MoveCommand:
		err = p.applyMove(state, c)
	case BuildCommand:
		err = p.applyBuild(state, c)
	case RecruitCommand:
		err = p.applyRecruit(state, c)
	case EndTurnCommand:
		err = p.applyEndTurn(state, c.Actor)
	case ResignCommand:
		err = p.applyResign(state, c.Actor)
	default:
		err = apperrors.Validationf("unknown command kind %q", cmd.Kind())
	}
	if err != nil {
		logger.Debug("Command rejected", "error", err)
		return nil, err
	}

	// Post-process runs after every mutating command, not only at turn end:
	// a mid-turn conquest can eliminate a player and decide the game.
	for _, slot := range CheckEliminations(state) {
		if elimErr := state.EliminatePlayer(slot); elimErr != nil {
			return nil, elimErr
		}
		logger.Info("Player eliminated", "slot", slot)
	}

	if state.EndResult == nil {
		if result, done := CompletionResult(state); done {
			state.EndResult = result
		}
	}
	if state.EndResult != nil {
		work.Status = StatusCompleted
		logger.Info("Game completed",
			"draw", state.EndResult.Draw,
			"winner", state.EndResult.WinnerSlot)
	}

	work.LastMoveAt = p.Now()

	return &Result{
		Record:    work,
		Replays:   state.BattleReplays,
		Conquered: state.ConqueredLocations,
	}, nil
}

func (p *Processor) applyMove(state *GameState, cmd MoveCommand) error {
	if !state.validLocation(cmd.From) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown location %d", cmd.From)
	}
	if !state.validLocation(cmd.To) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown location %d", cmd.To)
	}
	if owner, ok := state.OwnerOf(cmd.From); !ok || owner != cmd.Actor {
		return apperrors.Rejection(apperrors.CodeNotOwned,
			"player %d does not own location %d", cmd.Actor, cmd.From)
	}
	if cmd.Count < 1 {
		return apperrors.Validationf("move count must be positive, got %d", cmd.Count)
	}
	if available := state.Forces[cmd.From]; cmd.Count > available {
		return apperrors.Rejection(apperrors.CodeInsufficientForce,
			"location %d holds %d units, cannot send %d", cmd.From, available, cmd.Count)
	}
	if state.MovesRemaining < 1 {
		return apperrors.Rejection(apperrors.CodeOutOfMoves,
			"player %d has no moves remaining this turn", cmd.Actor)
	}
	if !p.rules.Reachable(state, cmd.From, cmd.To) {
		return apperrors.Rejection(apperrors.CodeUnreachable,
			"location %d is not reachable from %d", cmd.To, cmd.From)
	}

	if err := state.AddForce(cmd.From, -cmd.Count); err != nil {
		return err
	}
	// One move per move command, whatever the outcome.
	state.MovesRemaining--

	if p.rules.DeferredArrival() {
		return state.AddArmada(Armada{
			ID:           p.NewID(),
			OwnerSlot:    cmd.Actor,
			From:         cmd.From,
			To:           cmd.To,
			DepartedTurn: state.TurnNumber,
			Ships:        cmd.Count,
		})
	}

	return p.resolveArrival(state, cmd.Actor, cmd.From, cmd.To, cmd.Count)
}

// resolveArrival lands a force at its destination: a peaceful transfer onto a
// friendly or empty neutral location, combat otherwise.
func (p *Processor) resolveArrival(state *GameState, actor, from, to, count int) error {
	destOwner, owned := state.OwnerOf(to)
	defenders := state.Forces[to]

	if (owned && destOwner == actor) || (!owned && defenders == 0) {
		if err := state.AddForce(to, count); err != nil {
			return err
		}
		if !owned {
			if err := state.SetOwner(to, actor); err != nil {
				return err
			}
			state.ConqueredLocations = append(state.ConqueredLocations, to)
		}
		return nil
	}

	attackerBonus := 0
	if owner, ok := state.OwnerOf(from); ok && owner == actor {
		if level := state.StructureLevel(from, StructureForge); level >= 0 {
			attackerBonus = level + 1
		}
	}
	defenderBonus := 0
	if level := state.StructureLevel(to, StructureBastion); level >= 0 {
		defenderBonus = level + 1
	}

	seed := p.Seed()
	combat := ResolveCombat(CombatInput{
		Attackers:     count,
		Defenders:     defenders,
		AttackerBonus: attackerBonus,
		DefenderBonus: defenderBonus,
		DieSides:      p.cfg.DieSides,
		KillsOn:       p.cfg.KillsOn,
		Seed:          seed,
	})

	defenderSlot := -1
	if owned {
		defenderSlot = destOwner
	}
	state.BattleReplays = append(state.BattleReplays, BattleReplay{
		AttackerSlot: actor,
		DefenderSlot: defenderSlot,
		From:         from,
		To:           to,
		Seed:         seed,
		Rounds:       combat.Rounds,
		Outcome:      combat.Outcome,
	})

	if combat.Outcome == OutcomeAttackerWins {
		if err := state.AddForce(to, combat.AttackerSurvivors-defenders); err != nil {
			return err
		}
		if err := state.SetOwner(to, actor); err != nil {
			return err
		}
		state.ConqueredLocations = append(state.ConqueredLocations, to)
		return nil
	}

	// Defender holds: the committed attackers are spent, the surviving
	// garrison and its owner stay put.
	return state.AddForce(to, combat.DefenderSurvivors-defenders)
}

func (p *Processor) applyBuild(state *GameState, cmd BuildCommand) error {
	if !state.validLocation(cmd.Location) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown location %d", cmd.Location)
	}
	if !KnownStructureType(cmd.Structure) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown structure type %q", cmd.Structure)
	}
	if owner, ok := state.OwnerOf(cmd.Location); !ok || owner != cmd.Actor {
		return apperrors.Rejection(apperrors.CodeNotOwned,
			"player %d does not own location %d", cmd.Actor, cmd.Location)
	}

	existing := state.Structures[cmd.Location]
	targetLevel := 0
	sameType := existing != nil && existing.Type == cmd.Structure
	if sameType {
		if existing.Level >= p.cfg.MaxStructureLevel {
			return apperrors.Rejection(apperrors.CodeMaxLevelReached,
				"%s at location %d is already level %d", existing.Type, cmd.Location, existing.Level)
		}
		targetLevel = existing.Level + 1
	}

	cost, _ := StructureCost(cmd.Structure, targetLevel)
	if err := state.AdjustResource(cmd.Actor, -cost); err != nil {
		return err
	}

	// Building never consumes a move.
	if sameType {
		return state.AdvanceStructure(cmd.Location)
	}
	// Switching type is a rebuild: the new structure starts over at level 0.
	return state.SetStructure(cmd.Location, cmd.Structure)
}

func (p *Processor) applyRecruit(state *GameState, cmd RecruitCommand) error {
	if !state.validLocation(cmd.Location) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown location %d", cmd.Location)
	}
	if owner, ok := state.OwnerOf(cmd.Location); !ok || owner != cmd.Actor {
		return apperrors.Rejection(apperrors.CodeNotOwned,
			"player %d does not own location %d", cmd.Actor, cmd.Location)
	}

	// Each unit recruited in the same turn costs a step more than the last.
	cost := p.cfg.RecruitCost + p.cfg.RecruitCostStep*state.UnitsRecruited
	if err := state.AdjustResource(cmd.Actor, -cost); err != nil {
		return err
	}
	if err := state.AddForce(cmd.Location, 1); err != nil {
		return err
	}
	state.UnitsRecruited++
	return nil
}

func (p *Processor) applyEndTurn(state *GameState, actor int) error {
	// Fleets dispatched this turn arrive when their owner's turn ends.
	for _, armada := range state.ArmadasFor(actor) {
		if err := state.RemoveArmada(armada.ID); err != nil {
			return err
		}
		if err := p.resolveArrival(state, armada.OwnerSlot, armada.From, armada.To, armada.Ships); err != nil {
			return err
		}
	}

	// An arrival can take a player's last holding. Those eliminations must
	// land before rotation, or the turn could be handed to a dead slot.
	for _, slot := range CheckEliminations(state) {
		if err := state.EliminatePlayer(slot); err != nil {
			return err
		}
	}

	if err := state.AdjustResource(actor, Income(state, actor)); err != nil {
		return err
	}

	return p.advanceTurn(state, actor)
}

// advanceTurn rotates to the next active slot, resets the move budget and the
// recruit counter, and increments the turn number when the rotation wraps
// back to the first active slot. When no other active player exists it leaves
// rotation alone and lets completion detection finish the game. The event
// batch is left alone here so end-of-turn arrivals stay visible in the
// command's result.
func (p *Processor) advanceTurn(state *GameState, from int) error {
	next, ok := NextActiveSlot(state, from)
	if !ok {
		return nil
	}

	active := state.ActiveSlots()
	if len(active) > 0 && next == active[0] {
		state.TurnNumber++
	}

	state.CurrentPlayerSlot = next
	state.MovesRemaining = MovesForTurn(state, next, p.cfg.BaseMovesPerTurn)
	state.UnitsRecruited = 0

	if state.TurnLimit > 0 && state.TurnNumber > state.TurnLimit {
		state.EndResult = TurnLimitResult(state)
	}
	return nil
}

func (p *Processor) applyResign(state *GameState, actor int) error {
	wasCurrent := state.CurrentPlayerSlot == actor

	if err := state.EliminatePlayer(actor); err != nil {
		return err
	}
	// Unlike elimination by region loss, resigning recalls the player's
	// mid-flight fleets.
	state.RemoveArmadasFor(actor)

	if wasCurrent {
		return p.advanceTurn(state, actor)
	}
	return nil
}
