package game

import (
	"time"
)

// Variant selects which of the two titles a record belongs to. Both share the
// same state shape and command pipeline; the differences live behind Rules.
type Variant string

const (
	// VariantConquest is the region-conquest game: moves resolve immediately
	// against the destination garrison.
	VariantConquest Variant = "conquest"
	// VariantArmada is the planetary game: moves dispatch an in-transit
	// armada that resolves at the end of the turn.
	VariantArmada Variant = "armada"
)

type GameStatus string

const (
	StatusPending   GameStatus = "pending"
	StatusActive    GameStatus = "active"
	StatusCompleted GameStatus = "completed"
)

type Player struct {
	SlotIndex   int    `json:"slotIndex"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	IsAI        bool   `json:"isAI"`
	Personality string `json:"personality,omitempty"`
	Difficulty  int    `json:"difficulty,omitempty"`
}

// slotPalette assigns player colors. Colors are derived from the slot index,
// never chosen by users, so two clients always render a player identically.
var slotPalette = [...]string{
	"#d64541", "#2574a9", "#26a65b", "#f9bf3b",
	"#9b59b6", "#e67e22", "#1abc9c", "#95a5a6",
}

func ColorForSlot(slot int) string {
	if slot < 0 {
		return slotPalette[0]
	}
	return slotPalette[slot%len(slotPalette)]
}

type StructureType string

const (
	// StructureTemple grants resource income per level.
	StructureTemple StructureType = "temple"
	// StructureForge grants guaranteed attacker kills per combat round.
	StructureForge StructureType = "forge"
	// StructureBastion grants guaranteed defender kills per combat round.
	StructureBastion StructureType = "bastion"
	// StructureSpire grants one extra move per turn per level.
	StructureSpire StructureType = "spire"
)

type Structure struct {
	Type  StructureType `json:"type"`
	Level int           `json:"level"`
}

type structureSpec struct {
	baseCost int
	costStep int
}

var structureCatalog = map[StructureType]structureSpec{
	StructureTemple:  {baseCost: 10, costStep: 15},
	StructureForge:   {baseCost: 20, costStep: 25},
	StructureBastion: {baseCost: 15, costStep: 20},
	StructureSpire:   {baseCost: 25, costStep: 30},
}

// StructureCost returns the cost of bringing a structure of the given type to
// the given level. Level 0 is the initial installation.
func StructureCost(structureType StructureType, level int) (int, bool) {
	spec, ok := structureCatalog[structureType]
	if !ok {
		return 0, false
	}
	return spec.baseCost + spec.costStep*level, true
}

// KnownStructureType reports whether the type exists in the catalog.
func KnownStructureType(structureType StructureType) bool {
	_, ok := structureCatalog[structureType]
	return ok
}

// Armada is an in-transit force in the armada variant. Created by a move
// command, destroyed when its arrival is processed or its owner resigns.
// Armada IDs are globally unique so the optimistic merge can dedupe them.
type Armada struct {
	ID           string `json:"id"`
	OwnerSlot    int    `json:"ownerSlot"`
	From         int    `json:"from"`
	To           int    `json:"to"`
	DepartedTurn int    `json:"departedTurn"`
	Ships        int    `json:"ships"`
}

// BattleReplay describes one resolved combat for client animation. It is
// transient: superseded by the next combat of the same turn and cleared at
// end of turn. Never authoritative game data.
type BattleReplay struct {
	AttackerSlot int           `json:"attackerSlot"`
	DefenderSlot int           `json:"defenderSlot"` // -1 when the garrison is neutral
	From         int           `json:"from"`
	To           int           `json:"to"`
	Seed         int64         `json:"seed"`
	Rounds       []CombatRound `json:"rounds"`
	Outcome      CombatOutcome `json:"outcome"`
}

// EndResult is set exactly once, when the game completes.
type EndResult struct {
	WinnerSlot *int `json:"winnerSlot,omitempty"`
	Draw       bool `json:"draw,omitempty"`
}

// PendingConfiguration holds setup choices while a record is pending. It is
// dropped when the game starts; everything the engine needs afterwards is
// copied into GameState.
type PendingConfiguration struct {
	MapSize    int  `json:"mapSize"`
	TurnLimit  int  `json:"turnLimit"`
	MaxPlayers int  `json:"maxPlayers"`
	AIFill     bool `json:"aiFill"`
}

// GameState is the mutable aggregate. It is owned exclusively by the command
// processor during a single command's execution and serialized inside the
// GameRecord otherwise. All mutation goes through the methods in state.go.
type GameState struct {
	TurnNumber        int `json:"turnNumber"`
	CurrentPlayerSlot int `json:"currentPlayerSlot"`
	MovesRemaining    int `json:"movesRemaining"`

	LocationCount int `json:"locationCount"`
	PlayerCount   int `json:"playerCount"`
	TurnLimit     int `json:"turnLimit"`

	// Owners is the win-condition source of truth. A missing key means the
	// location is neutral. Entries for eliminated players are removed.
	Owners map[int]int `json:"ownersByLocation"`
	// Forces holds the movable unit count at each location. Counts never go
	// negative; a location may hold neutral units with no owner.
	Forces     map[int]int        `json:"forcesByLocation"`
	Structures map[int]*Structure `json:"structuresByLocation"`
	Resources  map[int]int        `json:"resourcesByPlayer"`

	Eliminated []int    `json:"eliminatedPlayers"`
	Armadas    []Armada `json:"armadas"`

	// Per-turn transient fields, cleared on end of turn.
	BattleReplays      []BattleReplay `json:"recentBattleReplays"`
	ConqueredLocations []int          `json:"conqueredLocations"`
	UnitsRecruited     int            `json:"unitsRecruitedThisTurn"`

	EndResult *EndResult `json:"endResult,omitempty"`
}

// GameRecord is the top-level persisted unit, stored whole under a
// "game:<id>" key. Immutable once completed except for audit fields.
type GameRecord struct {
	GameID     string                `json:"gameId"`
	Variant    Variant               `json:"variant"`
	Status     GameStatus            `json:"status"`
	Players    []Player              `json:"players"`
	State      *GameState            `json:"state,omitempty"`
	Pending    *PendingConfiguration `json:"pendingConfiguration,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
	LastMoveAt time.Time             `json:"lastMoveAt"`
}

// NewGameState builds an empty state with all collections allocated, so a
// state never carries nil maps regardless of how it was produced.
func NewGameState(locationCount, playerCount, turnLimit int) *GameState {
	return &GameState{
		LocationCount:      locationCount,
		PlayerCount:        playerCount,
		TurnLimit:          turnLimit,
		Owners:             make(map[int]int),
		Forces:             make(map[int]int),
		Structures:         make(map[int]*Structure),
		Resources:          make(map[int]int),
		Eliminated:         []int{},
		Armadas:            []Armada{},
		BattleReplays:      []BattleReplay{},
		ConqueredLocations: []int{},
	}
}

// Normalize replaces nil collections with empty ones. Decoding a serialized
// state yields nil for empty slices and maps; normalizing keeps every decoded
// state structurally identical to a freshly built one.
func (s *GameState) Normalize() {
	if s.Owners == nil {
		s.Owners = make(map[int]int)
	}
	if s.Forces == nil {
		s.Forces = make(map[int]int)
	}
	if s.Structures == nil {
		s.Structures = make(map[int]*Structure)
	}
	if s.Resources == nil {
		s.Resources = make(map[int]int)
	}
	if s.Eliminated == nil {
		s.Eliminated = []int{}
	}
	if s.Armadas == nil {
		s.Armadas = []Armada{}
	}
	if s.BattleReplays == nil {
		s.BattleReplays = []BattleReplay{}
	}
	if s.ConqueredLocations == nil {
		s.ConqueredLocations = []int{}
	}
}

// Clone returns a deep copy. The processor mutates only clones, so a rejected
// command leaves the caller's record untouched.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := *s

	out.Owners = make(map[int]int, len(s.Owners))
	for k, v := range s.Owners {
		out.Owners[k] = v
	}
	out.Forces = make(map[int]int, len(s.Forces))
	for k, v := range s.Forces {
		out.Forces[k] = v
	}
	out.Structures = make(map[int]*Structure, len(s.Structures))
	for k, v := range s.Structures {
		copied := *v
		out.Structures[k] = &copied
	}
	out.Resources = make(map[int]int, len(s.Resources))
	for k, v := range s.Resources {
		out.Resources[k] = v
	}

	out.Eliminated = append([]int{}, s.Eliminated...)
	out.Armadas = append([]Armada{}, s.Armadas...)
	out.ConqueredLocations = append([]int{}, s.ConqueredLocations...)

	out.BattleReplays = make([]BattleReplay, len(s.BattleReplays))
	for i, replay := range s.BattleReplays {
		copied := replay
		copied.Rounds = append([]CombatRound{}, replay.Rounds...)
		out.BattleReplays[i] = copied
	}

	if s.EndResult != nil {
		copied := *s.EndResult
		if s.EndResult.WinnerSlot != nil {
			winner := *s.EndResult.WinnerSlot
			copied.WinnerSlot = &winner
		}
		out.EndResult = &copied
	}

	return &out
}

func (r *GameRecord) Clone() *GameRecord {
	if r == nil {
		return nil
	}

	out := *r
	out.Players = append([]Player{}, r.Players...)
	out.State = r.State.Clone()
	if r.Pending != nil {
		pending := *r.Pending
		out.Pending = &pending
	}
	return &out
}

// PlayerBySlot returns the player occupying a slot.
func (r *GameRecord) PlayerBySlot(slot int) (Player, bool) {
	for _, p := range r.Players {
		if p.SlotIndex == slot {
			return p, true
		}
	}
	return Player{}, false
}
