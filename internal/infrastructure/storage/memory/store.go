// Package memory provides in-memory store implementations with the same
// contracts as the postgres repositories. Used by unit tests and as a
// standalone mode for demos; the transaction manager snapshots state and
// restores it on rollback so all-or-nothing semantics hold here too.
package memory

import (
	"context"
	"fmt"
	"sync"

	"pharmstock/internal/core/id"
	"pharmstock/internal/core/tx"
	"pharmstock/internal/domain/auth"
	"pharmstock/internal/domain/catalog"
	"pharmstock/internal/domain/ledger"
	"pharmstock/internal/domain/purchase"
)

// Store holds all in-memory state.
type Store struct {
	mu sync.RWMutex

	items     map[id.ID]*catalog.Item
	movements []ledger.Movement
	// movementKeys indexes item|kind|key for the uniqueness constraint.
	movementKeys map[string]struct{}
	orders       map[id.ID]*purchase.Order
	users        map[id.ID]*auth.User
	usersByName  map[string]id.ID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		items:        make(map[id.ID]*catalog.Item),
		movementKeys: make(map[string]struct{}),
		orders:       make(map[id.ID]*purchase.Order),
		users:        make(map[id.ID]*auth.User),
		usersByName:  make(map[string]id.ID),
	}
}

func movementKey(itemID id.ID, kind ledger.Kind, key string) string {
	return fmt.Sprintf("%s|%s|%s", itemID, kind, key)
}

// --- transaction manager ---

type txMarker struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txMarker{}).(bool)
	return ok
}

// TxManager implements tx.Manager over the store. The outer call takes the
// store lock, snapshots all state, and restores the snapshot when fn fails;
// nested calls join the outer transaction.
type TxManager struct {
	store *Store
}

// Compile-time check.
var _ tx.ReadOnlyManager = (*TxManager)(nil)

// NewTxManager creates a transaction manager for the store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction executes fn atomically against the store.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snapshot := m.store.snapshotLocked()
	err := fn(context.WithValue(ctx, txMarker{}, true))
	if err != nil {
		m.store.restoreLocked(snapshot)
		return err
	}
	return nil
}

// ReadOnly executes fn under the read lock.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return fn(context.WithValue(ctx, txMarker{}, true))
}

type snapshot struct {
	items        map[id.ID]*catalog.Item
	movements    []ledger.Movement
	movementKeys map[string]struct{}
	orders       map[id.ID]*purchase.Order
	users        map[id.ID]*auth.User
	usersByName  map[string]id.ID
}

func (s *Store) snapshotLocked() snapshot {
	snap := snapshot{
		items:        make(map[id.ID]*catalog.Item, len(s.items)),
		movements:    make([]ledger.Movement, len(s.movements)),
		movementKeys: make(map[string]struct{}, len(s.movementKeys)),
		orders:       make(map[id.ID]*purchase.Order, len(s.orders)),
		users:        make(map[id.ID]*auth.User, len(s.users)),
		usersByName:  make(map[string]id.ID, len(s.usersByName)),
	}
	for k, v := range s.items {
		snap.items[k] = cloneItem(v)
	}
	copy(snap.movements, s.movements)
	for k := range s.movementKeys {
		snap.movementKeys[k] = struct{}{}
	}
	for k, v := range s.orders {
		snap.orders[k] = cloneOrder(v)
	}
	for k, v := range s.users {
		snap.users[k] = cloneUser(v)
	}
	for k, v := range s.usersByName {
		snap.usersByName[k] = v
	}
	return snap
}

func (s *Store) restoreLocked(snap snapshot) {
	s.items = snap.items
	s.movements = snap.movements
	s.movementKeys = snap.movementKeys
	s.orders = snap.orders
	s.users = snap.users
	s.usersByName = snap.usersByName
}

// withRead runs fn under the read lock unless already inside a transaction.
func (s *Store) withRead(ctx context.Context, fn func() error) error {
	if inTx(ctx) {
		return fn()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

// withWrite runs fn under the write lock unless already inside a transaction.
func (s *Store) withWrite(ctx context.Context, fn func() error) error {
	if inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// --- clone helpers ---

func cloneItem(item *catalog.Item) *catalog.Item {
	cp := *item
	cp.PackagingUnits = make([]catalog.PackagingUnit, len(item.PackagingUnits))
	copy(cp.PackagingUnits, item.PackagingUnits)
	return &cp
}

func cloneOrder(order *purchase.Order) *purchase.Order {
	cp := *order
	cp.Lines = make([]purchase.Line, len(order.Lines))
	copy(cp.Lines, order.Lines)
	return &cp
}

func cloneUser(user *auth.User) *auth.User {
	cp := *user
	return &cp
}
