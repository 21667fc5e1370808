package game

import (
	"math/rand"
)

// Combat resolution is a pure function of its input. Given the same seed and
// the same counts and bonuses, the round sequence is identical across runs;
// clients replay battles from the recorded seed and the tests rely on it.

type CombatOutcome string

const (
	OutcomeAttackerWins  CombatOutcome = "attacker_wins"
	OutcomeDefenderHolds CombatOutcome = "defender_holds"
)

// CombatRound records the casualties of one round.
type CombatRound struct {
	AttackerLosses int `json:"attackerLosses"`
	DefenderLosses int `json:"defenderLosses"`
}

type CombatInput struct {
	Attackers int
	Defenders int
	// AttackerBonus and DefenderBonus are guaranteed kills per round from
	// structures. They land deterministically before any die is thrown, so
	// the "always kill N" semantics of the upgrades hold exactly.
	AttackerBonus int
	DefenderBonus int
	DieSides      int
	KillsOn       int
	Seed          int64
}

type CombatResult struct {
	Rounds            []CombatRound
	Outcome           CombatOutcome
	AttackerSurvivors int
	DefenderSurvivors int
}

// ResolveCombat runs rounds until one side is wiped out. Each round both
// sides act simultaneously: guaranteed bonus kills first, then a single die
// draw per side that kills on KillsOn or higher. A round in which both sides
// reach zero favors the defender; the attacker never captures on a tie.
//
// The attacker's die is always drawn before the defender's, which is part of
// the determinism contract.
func ResolveCombat(in CombatInput) CombatResult {
	rng := rand.New(rand.NewSource(in.Seed))

	attackers := in.Attackers
	defenders := in.Defenders
	var rounds []CombatRound

	for attackers > 0 && defenders > 0 {
		defenderLosses := in.AttackerBonus
		if rng.Intn(in.DieSides)+1 >= in.KillsOn {
			defenderLosses++
		}

		attackerLosses := in.DefenderBonus
		if rng.Intn(in.DieSides)+1 >= in.KillsOn {
			attackerLosses++
		}

		if defenderLosses > defenders {
			defenderLosses = defenders
		}
		if attackerLosses > attackers {
			attackerLosses = attackers
		}

		attackers -= attackerLosses
		defenders -= defenderLosses
		rounds = append(rounds, CombatRound{
			AttackerLosses: attackerLosses,
			DefenderLosses: defenderLosses,
		})
	}

	outcome := OutcomeDefenderHolds
	if defenders == 0 && attackers > 0 {
		outcome = OutcomeAttackerWins
	}

	return CombatResult{
		Rounds:            rounds,
		Outcome:           outcome,
		AttackerSurvivors: attackers,
		DefenderSurvivors: defenders,
	}
}

// Casualties sums the losses recorded across all rounds.
func (r CombatResult) Casualties() int {
	total := 0
	for _, round := range r.Rounds {
		total += round.AttackerLosses + round.DefenderLosses
	}
	return total
}
