package game

// CheckEliminations returns the slots that control zero locations and are not
// yet marked eliminated. Pure: the snapshot is not mutated. Applying the
// result is the caller's job, via GameState.EliminatePlayer.
func CheckEliminations(state *GameState) []int {
	var eliminated []int
	for slot := 0; slot < state.PlayerCount; slot++ {
		if state.IsEliminated(slot) {
			continue
		}
		if state.OwnedLocationCount(slot) == 0 {
			eliminated = append(eliminated, slot)
		}
	}
	return eliminated
}
