package game

import (
	"testing"
)

func TestGreedyHookAttacksWeakestReachable(t *testing.T) {
	hook := NewGreedyHook(RulesFor(VariantConquest), certainKillConfig())
	rec := twoPlayerRecord(VariantConquest)

	cmd, ok := hook.NextCommand(rec, 1)
	if !ok {
		t.Fatal("expected a command")
	}
	move, isMove := cmd.(MoveCommand)
	if !isMove {
		t.Fatalf("expected a move, got %T", cmd)
	}
	// Slot 1's only garrison is at location 3; both neighbors are empty, and
	// the weaker one wins the pick.
	if move.From != 3 || move.Count != 3 {
		t.Fatalf("expected full-force move from 3, got %+v", move)
	}
	if move.To != 2 && move.To != 4 {
		t.Fatalf("expected an adjacent empty target, got %+v", move)
	}
}

func TestGreedyHookRecruitsWithoutViableTarget(t *testing.T) {
	hook := NewGreedyHook(RulesFor(VariantConquest), certainKillConfig())
	rec := twoPlayerRecord(VariantConquest)
	// Too weak to stage an attack, rich enough to recruit.
	rec.State.Forces[0] = 1

	cmd, ok := hook.NextCommand(rec, 0)
	if !ok {
		t.Fatal("expected a command")
	}
	recruit, isRecruit := cmd.(RecruitCommand)
	if !isRecruit {
		t.Fatalf("expected a recruit, got %T", cmd)
	}
	if recruit.Location != 0 {
		t.Fatalf("expected recruiting at the owned location, got %+v", recruit)
	}
}

func TestGreedyHookStopsWhenBroke(t *testing.T) {
	hook := NewGreedyHook(RulesFor(VariantConquest), certainKillConfig())
	rec := twoPlayerRecord(VariantConquest)
	rec.State.Forces[0] = 1
	rec.State.Resources[0] = 2

	if _, ok := hook.NextCommand(rec, 0); ok {
		t.Fatal("broke and weak should yield no command")
	}
}

func TestGreedyHookStopsWithoutMoves(t *testing.T) {
	hook := NewGreedyHook(RulesFor(VariantConquest), certainKillConfig())
	rec := twoPlayerRecord(VariantConquest)
	rec.State.MovesRemaining = 0

	if _, ok := hook.NextCommand(rec, 0); ok {
		t.Fatal("no moves left should yield no command")
	}
}

func TestRunAITurnsAdvancesToNextHuman(t *testing.T) {
	p := newTestProcessor(VariantConquest, certainKillConfig())
	hook := NewGreedyHook(RulesFor(VariantConquest), certainKillConfig())

	rec := twoPlayerRecord(VariantConquest)
	rec.Players[1].IsAI = true
	rec.Players[1].Personality = "aggressive"
	rec.State.CurrentPlayerSlot = 1

	record, err := RunAITurns(p, hook, rec, discardLogger())
	if err != nil {
		t.Fatalf("AI driver failed: %v", err)
	}

	if record.Status != StatusActive {
		t.Fatalf("expected the game to continue, got %s", record.Status)
	}
	if record.State.CurrentPlayerSlot != 0 {
		t.Fatalf("expected the turn back with the human, got slot %d", record.State.CurrentPlayerSlot)
	}
	// The rotation wrapped, so a new turn began.
	if record.State.TurnNumber != 2 {
		t.Fatalf("expected turn 2 after the AI finished, got %d", record.State.TurnNumber)
	}
	// The aggressive AI should have expanded beyond its single holding.
	if record.State.OwnedLocationCount(1) < 2 {
		t.Fatalf("expected the AI to expand, owns %d", record.State.OwnedLocationCount(1))
	}
}

func TestRunAITurnsReturnsImmediatelyForHuman(t *testing.T) {
	p := newTestProcessor(VariantConquest, certainKillConfig())
	hook := NewGreedyHook(RulesFor(VariantConquest), certainKillConfig())

	rec := twoPlayerRecord(VariantConquest)
	record, err := RunAITurns(p, hook, rec, discardLogger())
	if err != nil {
		t.Fatalf("AI driver failed: %v", err)
	}
	if record != rec {
		t.Fatal("a human turn should be handed back untouched")
	}
}
