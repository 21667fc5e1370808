package game

import (
	"log/slog"
)

// AI opponents plug in behind DecisionHook. The engine drives the hook; the
// heuristics behind it are replaceable and deliberately shallow here.

// DecisionHook produces the next command for an AI player's turn. Returning
// false means the hook is done and the turn should end.
type DecisionHook interface {
	NextCommand(record *GameRecord, slot int) (Command, bool)
}

// aiTurnCap bounds how many consecutive AI turns one invocation will drive,
// so an all-AI game cannot pin a request indefinitely.
const aiTurnCap = 64

type greedyHook struct {
	rules Rules
	cfg   RuleConfig
}

// NewGreedyHook returns the default hook: attack the weakest reachable
// location when the local garrison outmatches it, otherwise recruit, then
// stop. Personality shifts the attack threshold - aggressive slots attack at
// parity, defensive slots want a two-to-one edge.
func NewGreedyHook(rules Rules, cfg RuleConfig) DecisionHook {
	return &greedyHook{rules: rules, cfg: cfg}
}

func (h *greedyHook) NextCommand(record *GameRecord, slot int) (Command, bool) {
	state := record.State
	if state.MovesRemaining < 1 {
		return nil, false
	}

	threshold := 1.5
	if player, ok := record.PlayerBySlot(slot); ok {
		switch player.Personality {
		case "aggressive":
			threshold = 1.0
		case "defensive":
			threshold = 2.0
		}
	}

	// Strongest owned garrison is the staging point.
	from, strength := -1, 0
	for location, owner := range state.Owners {
		if owner == slot && state.Forces[location] > strength {
			from, strength = location, state.Forces[location]
		}
	}
	if from < 0 || strength < 2 {
		return h.recruitOrStop(state, slot)
	}

	// Weakest reachable target that the threshold allows.
	target, weakest := -1, -1
	for location := 0; location < state.LocationCount; location++ {
		owner, owned := state.OwnerOf(location)
		if owned && owner == slot {
			continue
		}
		if !h.rules.Reachable(state, from, location) {
			continue
		}
		defenders := state.Forces[location]
		if float64(strength) < float64(defenders)*threshold+1 {
			continue
		}
		if weakest < 0 || defenders < weakest {
			target, weakest = location, defenders
		}
	}
	if target < 0 {
		return h.recruitOrStop(state, slot)
	}

	return MoveCommand{Actor: slot, From: from, To: target, Count: strength}, true
}

func (h *greedyHook) recruitOrStop(state *GameState, slot int) (Command, bool) {
	cost := h.cfg.RecruitCost + h.cfg.RecruitCostStep*state.UnitsRecruited
	if state.Resources[slot] < cost {
		return nil, false
	}
	for location, owner := range state.Owners {
		if owner == slot {
			return RecruitCommand{Actor: slot, Location: location}, true
		}
	}
	return nil, false
}

// RunAITurns advances the game while the current player is an AI, issuing the
// hook's commands and ending each AI turn. Returns the final record; a hook
// command the processor rejects just ends that AI's turn rather than failing
// the enclosing request.
func RunAITurns(processor *Processor, hook DecisionHook, record *GameRecord, logger *slog.Logger) (*GameRecord, error) {
	log := logger.With("component", "ai", "operation", "run_turns", "game_id", record.GameID)

	for turns := 0; turns < aiTurnCap; turns++ {
		if record.Status != StatusActive || record.State == nil {
			return record, nil
		}
		slot := record.State.CurrentPlayerSlot
		player, ok := record.PlayerBySlot(slot)
		if !ok || !player.IsAI {
			return record, nil
		}

		for record.State.MovesRemaining > 0 {
			cmd, more := hook.NextCommand(record, slot)
			if !more {
				break
			}
			result, err := processor.Process(record, cmd)
			if err != nil {
				log.Debug("AI command rejected, ending its turn", "slot", slot, "error", err)
				break
			}
			record = result.Record
			if record.Status != StatusActive {
				return record, nil
			}
			if record.State.CurrentPlayerSlot != slot {
				break
			}
		}

		if record.Status != StatusActive || record.State.CurrentPlayerSlot != slot {
			continue
		}

		result, err := processor.Process(record, EndTurnCommand{Actor: slot})
		if err != nil {
			return record, err
		}
		record = result.Record
	}

	log.Warn("AI turn cap reached, handing back mid-game")
	return record, nil
}
