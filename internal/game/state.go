package game

import (
	apperrors "conquest-server/internal/shared/errors"
)

// Mutation methods for GameState. Each enforces its own invariant and fails
// with an invalid_reference rejection on unknown locations or slots; none of
// them silently no-op. No method here performs I/O.

func (s *GameState) validLocation(location int) bool {
	return location >= 0 && location < s.LocationCount
}

func (s *GameState) validSlot(slot int) bool {
	return slot >= 0 && slot < s.PlayerCount
}

// OwnerOf returns the owning slot of a location, or false when neutral.
func (s *GameState) OwnerOf(location int) (int, bool) {
	owner, ok := s.Owners[location]
	return owner, ok
}

func (s *GameState) IsEliminated(slot int) bool {
	for _, eliminated := range s.Eliminated {
		if eliminated == slot {
			return true
		}
	}
	return false
}

// ActiveSlots returns the non-eliminated slots in slot order.
func (s *GameState) ActiveSlots() []int {
	var active []int
	for slot := 0; slot < s.PlayerCount; slot++ {
		if !s.IsEliminated(slot) {
			active = append(active, slot)
		}
	}
	return active
}

func (s *GameState) SetOwner(location, slot int) error {
	if !s.validLocation(location) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown location %d", location)
	}
	if !s.validSlot(slot) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown player slot %d", slot)
	}
	s.Owners[location] = slot
	return nil
}

func (s *GameState) ClearOwner(location int) error {
	if !s.validLocation(location) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown location %d", location)
	}
	delete(s.Owners, location)
	return nil
}

// AddForce adjusts the unit count at a location. The count never goes
// negative; an adjustment that would is rejected outright.
func (s *GameState) AddForce(location, delta int) error {
	if !s.validLocation(location) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown location %d", location)
	}
	next := s.Forces[location] + delta
	if next < 0 {
		return apperrors.Rejection(apperrors.CodeInsufficientForce,
			"location %d holds %d units, cannot remove %d", location, s.Forces[location], -delta)
	}
	if next == 0 {
		delete(s.Forces, location)
		return nil
	}
	s.Forces[location] = next
	return nil
}

// AdjustResource adjusts a player's accumulated resource, rejecting any
// adjustment that would take it negative.
func (s *GameState) AdjustResource(slot, delta int) error {
	if !s.validSlot(slot) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown player slot %d", slot)
	}
	next := s.Resources[slot] + delta
	if next < 0 {
		return apperrors.Rejection(apperrors.CodeInsufficientResource,
			"player %d has %d resource, cannot spend %d", slot, s.Resources[slot], -delta)
	}
	s.Resources[slot] = next
	return nil
}

// SetStructure installs a structure of the given type at level 0. Replacing a
// structure of a different type is a rebuild: the level always resets to 0.
func (s *GameState) SetStructure(location int, structureType StructureType) error {
	if !s.validLocation(location) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown location %d", location)
	}
	if !KnownStructureType(structureType) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown structure type %q", structureType)
	}
	s.Structures[location] = &Structure{Type: structureType, Level: 0}
	return nil
}

// AdvanceStructure raises the level of the structure at a location by one.
func (s *GameState) AdvanceStructure(location int) error {
	if !s.validLocation(location) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown location %d", location)
	}
	structure, ok := s.Structures[location]
	if !ok {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "no structure at location %d", location)
	}
	structure.Level++
	return nil
}

// StructureLevel returns the level of a structure of the given type at a
// location, or -1 when no such structure exists.
func (s *GameState) StructureLevel(location int, structureType StructureType) int {
	structure, ok := s.Structures[location]
	if !ok || structure.Type != structureType {
		return -1
	}
	return structure.Level
}

// EliminatePlayer removes a player from play. Idempotent: eliminating an
// already-eliminated slot changes nothing. All ownership entries for the slot
// are removed rather than flagged; garrisons stay in place as neutral forces,
// preserving the total unit count. In-transit armadas are untouched here;
// the resign flow clears them explicitly.
func (s *GameState) EliminatePlayer(slot int) error {
	if !s.validSlot(slot) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown player slot %d", slot)
	}
	if s.IsEliminated(slot) {
		return nil
	}

	for location, owner := range s.Owners {
		if owner == slot {
			delete(s.Owners, location)
		}
	}

	s.Eliminated = append(s.Eliminated, slot)
	return nil
}

func (s *GameState) AddArmada(armada Armada) error {
	if !s.validSlot(armada.OwnerSlot) {
		return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown player slot %d", armada.OwnerSlot)
	}
	if !s.validLocation(armada.From) || !s.validLocation(armada.To) {
		return apperrors.Rejection(apperrors.CodeInvalidReference,
			"unknown location in armada route %d -> %d", armada.From, armada.To)
	}
	s.Armadas = append(s.Armadas, armada)
	return nil
}

// RemoveArmada removes an in-transit armada by ID.
func (s *GameState) RemoveArmada(id string) error {
	for i, armada := range s.Armadas {
		if armada.ID == id {
			s.Armadas = append(s.Armadas[:i], s.Armadas[i+1:]...)
			return nil
		}
	}
	return apperrors.Rejection(apperrors.CodeInvalidReference, "unknown armada %q", id)
}

// RemoveArmadasFor clears every in-transit armada owned by a slot and returns
// how many were removed. Used by the resign flow, which recalls mid-flight
// fleets; bare elimination by region loss leaves them flying.
func (s *GameState) RemoveArmadasFor(slot int) int {
	kept := s.Armadas[:0]
	removed := 0
	for _, armada := range s.Armadas {
		if armada.OwnerSlot == slot {
			removed++
			continue
		}
		kept = append(kept, armada)
	}
	s.Armadas = kept
	return removed
}

// ArmadasFor returns the in-transit armadas owned by a slot.
func (s *GameState) ArmadasFor(slot int) []Armada {
	var owned []Armada
	for _, armada := range s.Armadas {
		if armada.OwnerSlot == slot {
			owned = append(owned, armada)
		}
	}
	return owned
}

// OwnedLocationCount counts the locations a slot owns.
func (s *GameState) OwnedLocationCount(slot int) int {
	count := 0
	for _, owner := range s.Owners {
		if owner == slot {
			count++
		}
	}
	return count
}

// TotalUnits sums every unit on the board and in transit. Combat and
// elimination conserve this quantity minus recorded casualties; only
// recruiting increases it.
func (s *GameState) TotalUnits() int {
	total := 0
	for _, count := range s.Forces {
		total += count
	}
	for _, armada := range s.Armadas {
		total += armada.Ships
	}
	return total
}
