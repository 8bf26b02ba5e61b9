package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voyatek/booking-engine/internal/model"
)

// The in-memory store below mirrors the behaviour of the MySQL
// store closely enough to exercise the engine: transactions are
// serialized, a failed unit of work restores the pre-transaction
// state, and the pending-fingerprint uniqueness rule is enforced at
// write time exactly like the database constraint.

type slotKey struct {
	resource uint64
	variant  uint64
}

type memSlot struct {
	total     int
	reserved  int
	confirmed int
}

type memState struct {
	slots        map[slotKey]*memSlot
	orders       map[uint64]model.Order
	items        map[uint64][]model.OrderItem
	fingerprints map[string]uint64
	history      map[uint64][]model.OrderHistoryEntry
	nextID       uint64
}

func (st *memState) clone() *memState {
	c := &memState{
		slots:        make(map[slotKey]*memSlot, len(st.slots)),
		orders:       make(map[uint64]model.Order, len(st.orders)),
		items:        make(map[uint64][]model.OrderItem, len(st.items)),
		fingerprints: make(map[string]uint64, len(st.fingerprints)),
		history:      make(map[uint64][]model.OrderHistoryEntry, len(st.history)),
		nextID:       st.nextID,
	}
	for k, v := range st.slots {
		s := *v
		c.slots[k] = &s
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	for k, v := range st.items {
		c.items[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range st.fingerprints {
		c.fingerprints[k] = v
	}
	for k, v := range st.history {
		c.history[k] = append([]model.OrderHistoryEntry(nil), v...)
	}
	return c
}

// memStore implements Store over the in-memory state.  A single
// mutex serializes transactions, which is the strongest form of the
// per-key serialization the real store provides.
type memStore struct {
	mu    sync.Mutex
	state *memState

	confirmCalls int
	releaseCalls int
	reserveCalls int
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		slots:        make(map[slotKey]*memSlot),
		orders:       make(map[uint64]model.Order),
		items:        make(map[uint64][]model.OrderItem),
		fingerprints: make(map[string]uint64),
		history:      make(map[uint64][]model.OrderHistoryEntry),
	}}
}

func (s *memStore) addSlot(resource, variant uint64, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.slots[slotKey{resource, variant}] = &memSlot{total: total}
}

func (s *memStore) slot(resource, variant uint64) memSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state.slots[slotKey{resource, variant}]
}

func (s *memStore) orderByID(id uint64) (model.Order, []model.OrderItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.orders[id], append([]model.OrderItem(nil), s.state.items[id]...)
}

func (s *memStore) historyFor(id uint64) []model.OrderHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OrderHistoryEntry(nil), s.state.history[id]...)
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.orders)
}

func (s *memStore) Transact(_ context.Context, fn func(uow UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.clone()
	if err := fn(&memUOW{store: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

type memUOW struct {
	store *memStore
}

func (u *memUOW) Orders() OrderRepository { return &memOrders{u.store} }
func (u *memUOW) History() HistoryLedger  { return &memHistory{u.store} }
func (u *memUOW) Ledger() CapacityLedger  { return &memLedger{u.store} }

func fingerprint(userID uint64, productType string, productID uint64, date time.Time) string {
	return fmt.Sprintf("%d:%s:%d:%s", userID, productType, productID, date.UTC().Format("2006-01-02"))
}

type memOrders struct {
	store *memStore
}

func (m *memOrders) Create(_ context.Context, o *model.Order, items []model.OrderItem) error {
	st := m.store.state
	st.nextID++
	o.ID = st.nextID
	for i := range items {
		st.nextID++
		items[i].ID = st.nextID
		items[i].OrderID = o.ID
		if o.Status == StatusPending && IsCapacityBearing(items[i].ProductType) {
			fp := fingerprint(o.UserID, items[i].ProductType, items[i].ProductID, items[i].BookingDate)
			if _, taken := st.fingerprints[fp]; taken {
				return &DuplicatePendingError{
					UserID:      o.UserID,
					ProductType: items[i].ProductType,
					ProductID:   items[i].ProductID,
					BookingDate: items[i].BookingDate,
				}
			}
			st.fingerprints[fp] = o.ID
		}
	}
	st.orders[o.ID] = *o
	st.items[o.ID] = append([]model.OrderItem(nil), items...)
	return nil
}

func (m *memOrders) GetForUpdate(_ context.Context, orderID uint64) (*model.Order, []model.OrderItem, error) {
	st := m.store.state
	o, ok := st.orders[orderID]
	if !ok {
		return nil, nil, ErrOrderNotFound
	}
	return &o, append([]model.OrderItem(nil), st.items[orderID]...), nil
}

func (m *memOrders) Update(_ context.Context, o *model.Order) error {
	st := m.store.state
	if _, ok := st.orders[o.ID]; !ok {
		return ErrOrderNotFound
	}
	if o.Status != StatusPending {
		for fp, id := range st.fingerprints {
			if id == o.ID {
				delete(st.fingerprints, fp)
			}
		}
	}
	st.orders[o.ID] = *o
	return nil
}

func (m *memOrders) CountPending(_ context.Context, userID uint64) (int, error) {
	n := 0
	for _, o := range m.store.state.orders {
		if o.UserID == userID && o.Status == StatusPending {
			n++
		}
	}
	return n, nil
}

func (m *memOrders) HasPendingDuplicate(_ context.Context, userID uint64, productType string, productID uint64, date time.Time) (bool, error) {
	_, ok := m.store.state.fingerprints[fingerprint(userID, productType, productID, date)]
	return ok, nil
}

type memHistory struct {
	store *memStore
}

func (m *memHistory) Append(_ context.Context, e model.OrderHistoryEntry) error {
	st := m.store.state
	st.nextID++
	e.ID = st.nextID
	e.CreatedAt = time.Now().UTC()
	st.history[e.OrderID] = append(st.history[e.OrderID], e)
	return nil
}

type memLedger struct {
	store *memStore
}

func (m *memLedger) get(resource, variant uint64) (*memSlot, error) {
	s, ok := m.store.state.slots[slotKey{resource, variant}]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return s, nil
}

func (m *memLedger) Available(_ context.Context, resource, variant uint64) (int, error) {
	s, err := m.get(resource, variant)
	if err != nil {
		return 0, err
	}
	n := s.total - s.reserved - s.confirmed
	if n < 0 {
		n = 0
	}
	return n, nil
}

func (m *memLedger) Reserve(_ context.Context, resource, variant uint64, units int) error {
	m.store.reserveCalls++
	s, err := m.get(resource, variant)
	if err != nil {
		return err
	}
	if avail := s.total - s.reserved - s.confirmed; avail < units {
		return &InsufficientCapacityError{ResourceID: resource, VariantID: variant, Requested: units, Available: avail}
	}
	s.reserved += units
	return nil
}

func (m *memLedger) Confirm(_ context.Context, resource, variant uint64, units int) error {
	m.store.confirmCalls++
	s, err := m.get(resource, variant)
	if err != nil {
		return err
	}
	if avail := s.total - s.reserved - s.confirmed; avail < units {
		return &InsufficientCapacityError{ResourceID: resource, VariantID: variant, Requested: units, Available: avail}
	}
	s.confirmed += units
	return nil
}

func (m *memLedger) Release(_ context.Context, resource, variant uint64, units int) error {
	m.store.releaseCalls++
	s, err := m.get(resource, variant)
	if err != nil {
		return err
	}
	fromReserved := units
	if fromReserved > s.reserved {
		fromReserved = s.reserved
	}
	fromConfirmed := units - fromReserved
	if fromConfirmed > s.confirmed {
		fromConfirmed = s.confirmed
	}
	s.reserved -= fromReserved
	s.confirmed -= fromConfirmed
	return nil
}
