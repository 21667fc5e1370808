package game

// Rules captures everything that differs between the two titles, so a single
// command processor serves both. Reachability is really the map collaborator's
// call; the engine only consumes it as a predicate, and the defaults below
// stand in for deployments that don't inject their own geometry.

// ReachabilityFunc decides whether a force at from may be sent to to.
type ReachabilityFunc func(state *GameState, from, to int) bool

type Rules interface {
	Variant() Variant
	Reachable(state *GameState, from, to int) bool
	// DeferredArrival reports whether moves dispatch an in-transit armada
	// (armada variant) instead of resolving immediately (conquest variant).
	DeferredArrival() bool
}

// ringDistance measures separation on the location ring used by the default
// geometry.
func ringDistance(state *GameState, a, b int) int {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if wrap := state.LocationCount - diff; wrap < diff {
		return wrap
	}
	return diff
}

type conquestRules struct {
	reachable ReachabilityFunc
}

// NewConquestRules builds the region-conquest rule set. A nil reachability
// predicate falls back to ring adjacency.
func NewConquestRules(reachable ReachabilityFunc) Rules {
	if reachable == nil {
		reachable = func(state *GameState, from, to int) bool {
			return ringDistance(state, from, to) == 1
		}
	}
	return &conquestRules{reachable: reachable}
}

func (r *conquestRules) Variant() Variant { return VariantConquest }

func (r *conquestRules) Reachable(state *GameState, from, to int) bool {
	return r.reachable(state, from, to)
}

func (r *conquestRules) DeferredArrival() bool { return false }

type armadaRules struct {
	reachable ReachabilityFunc
}

// defaultFlightRange bounds how far a fleet can be sent under the default
// geometry when no predicate is injected.
const defaultFlightRange = 3

// NewArmadaRules builds the planetary-armada rule set. A nil reachability
// predicate falls back to a bounded flight range on the ring.
func NewArmadaRules(reachable ReachabilityFunc) Rules {
	if reachable == nil {
		reachable = func(state *GameState, from, to int) bool {
			return ringDistance(state, from, to) <= defaultFlightRange
		}
	}
	return &armadaRules{reachable: reachable}
}

func (r *armadaRules) Variant() Variant { return VariantArmada }

func (r *armadaRules) Reachable(state *GameState, from, to int) bool {
	return r.reachable(state, from, to)
}

func (r *armadaRules) DeferredArrival() bool { return true }

// RulesFor returns the default rule set for a variant.
func RulesFor(variant Variant) Rules {
	if variant == VariantArmada {
		return NewArmadaRules(nil)
	}
	return NewConquestRules(nil)
}
