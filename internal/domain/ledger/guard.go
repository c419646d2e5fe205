package ledger

import (
	"sort"
	"sync"

	"pharmstock/internal/core/id"
)

// Guard serializes ledger applies against the same item so the sufficiency
// check and the stock write are not split by a race. Calls against different
// items proceed in parallel.
//
// The per-item mutex is created on demand and lives for the process; the
// item catalog of a single pharmacy is small enough that the map is never
// trimmed. Persistence-level row locks still apply inside the transaction;
// the guard keeps the check-then-write window closed even when a store
// without row locking (the in-memory one) is in use.
type Guard struct {
	mu    sync.Mutex
	locks map[id.ID]*sync.Mutex
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{locks: make(map[id.ID]*sync.Mutex)}
}

func (g *Guard) lockFor(itemID id.ID) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[itemID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[itemID] = l
	}
	return l
}

// Lock acquires the per-item lock and returns the release function.
func (g *Guard) Lock(itemID id.ID) func() {
	l := g.lockFor(itemID)
	l.Lock()
	return l.Unlock
}

// LockMany acquires locks for all items in sorted id order, so two
// concurrent multi-item operations cannot deadlock against each other.
// Duplicate ids are collapsed. Returns a single release function.
func (g *Guard) LockMany(itemIDs []id.ID) func() {
	unique := make(map[id.ID]struct{}, len(itemIDs))
	for _, itemID := range itemIDs {
		unique[itemID] = struct{}{}
	}

	ordered := make([]id.ID, 0, len(unique))
	for itemID := range unique {
		ordered = append(ordered, itemID)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, itemID := range ordered {
		l := g.lockFor(itemID)
		l.Lock()
		held = append(held, l)
	}

	return func() {
		// Release in reverse acquisition order.
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
