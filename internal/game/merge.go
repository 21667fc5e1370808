package game

import (
	"sort"
	"sync"
	"time"
)

// The backing store propagates writes with multi-second lag, so a snapshot
// broadcast to clients can predate a command the engine already accepted. The
// tracker remembers accepted creations for a bounded grace window and unions
// them into stale snapshots, so eventual consistency cannot "undo" a
// just-dispatched armada. Once a snapshot confirms the entity, or the window
// elapses, tracking stops: a stale read can no longer erase a confirmed
// action, and an indefinitely lost write cannot leak forever.

// Clock abstracts wall time so the grace window is deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real-time clock used in production.
func SystemClock() Clock { return systemClock{} }

type trackedArmada struct {
	armada    Armada
	trackedAt time.Time
}

// Tracker reconciles locally known armadas with store snapshots.
type Tracker struct {
	clock Clock
	grace time.Duration

	mu      sync.Mutex
	entries map[string]trackedArmada
}

func NewTracker(grace time.Duration, clock Clock) *Tracker {
	if clock == nil {
		clock = SystemClock()
	}
	return &Tracker{
		clock:   clock,
		grace:   grace,
		entries: make(map[string]trackedArmada),
	}
}

// Track records an armada the engine has accepted but the store may not yet
// reflect.
func (t *Tracker) Track(armada Armada) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[armada.ID] = trackedArmada{armada: armada, trackedAt: t.clock.Now()}
}

// MergeArmadas unions a snapshot with every tracked armada the snapshot does
// not confirm. Confirmed entries stop being tracked immediately, so they are
// never duplicated; entries older than the grace window are pruned on the
// way through. Pruning happens here, on access, not on a timer.
func (t *Tracker) MergeArmadas(snapshot []Armada) []Armada {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	confirmed := make(map[string]bool, len(snapshot))
	for _, armada := range snapshot {
		confirmed[armada.ID] = true
	}

	merged := append([]Armada{}, snapshot...)

	var missing []Armada
	for id, entry := range t.entries {
		if confirmed[id] {
			delete(t.entries, id)
			continue
		}
		if now.Sub(entry.trackedAt) > t.grace {
			delete(t.entries, id)
			continue
		}
		missing = append(missing, entry.armada)
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i].ID < missing[j].ID })
	return append(merged, missing...)
}

// MergeState applies the armada merge to a state snapshot in place.
func (t *Tracker) MergeState(state *GameState) {
	if state == nil {
		return
	}
	state.Armadas = t.MergeArmadas(state.Armadas)
}

// TrackedCount reports how many unconfirmed entries are currently held.
func (t *Tracker) TrackedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
