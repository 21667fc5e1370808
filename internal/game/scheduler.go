package game

// Turn and move scheduling: slot rotation, move budgets, income and
// completion detection. Everything here is a pure function over a snapshot;
// the processor and the join/start flow are the only consumers.

// ActiveSlotsInOrder returns the non-eliminated slots in slot order.
func ActiveSlotsInOrder(state *GameState) []int {
	return state.ActiveSlots()
}

// NextActiveSlot returns the next non-eliminated slot after current, wrapping
// around and skipping eliminated slots. Returns false when no active slot
// other than current exists.
func NextActiveSlot(state *GameState, current int) (int, bool) {
	for offset := 1; offset <= state.PlayerCount; offset++ {
		candidate := (current + offset) % state.PlayerCount
		if candidate == current {
			break
		}
		if !state.IsEliminated(candidate) {
			return candidate, true
		}
	}
	return 0, false
}

// MovesForTurn computes the move budget for a slot: the base allowance plus
// one move per spire level across the locations the slot owns.
func MovesForTurn(state *GameState, slot, base int) int {
	moves := base
	for location, owner := range state.Owners {
		if owner != slot {
			continue
		}
		if level := state.StructureLevel(location, StructureSpire); level >= 0 {
			moves += level + 1
		}
	}
	return moves
}

// Income computes the resource income a slot collects at the end of its turn:
// one per owned location plus the temple track at each.
func Income(state *GameState, slot int) int {
	income := 0
	for location, owner := range state.Owners {
		if owner != slot {
			continue
		}
		income++
		if level := state.StructureLevel(location, StructureTemple); level >= 0 {
			income += level + 1
		}
	}
	return income
}

// CompletionResult decides whether the game is over. One active player left
// means that player wins; zero means a draw. The turn-limit check lives in
// the end-turn rule because it needs the freshly incremented turn number.
func CompletionResult(state *GameState) (*EndResult, bool) {
	active := state.ActiveSlots()
	switch len(active) {
	case 0:
		return &EndResult{Draw: true}, true
	case 1:
		winner := active[0]
		return &EndResult{WinnerSlot: &winner}, true
	default:
		return nil, false
	}
}

// TurnLimitResult ranks players by owned locations when the configured turn
// limit passes: sole leader wins, any tie for the lead is a draw.
func TurnLimitResult(state *GameState) *EndResult {
	best := -1
	leader := -1
	tied := false
	for _, slot := range state.ActiveSlots() {
		owned := state.OwnedLocationCount(slot)
		if owned > best {
			best = owned
			leader = slot
			tied = false
		} else if owned == best {
			tied = true
		}
	}
	if leader < 0 || tied {
		return &EndResult{Draw: true}
	}
	return &EndResult{WinnerSlot: &leader}
}
