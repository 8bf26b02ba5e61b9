package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/voyatek/booking-engine/internal/booking"
	"github.com/voyatek/booking-engine/internal/model"
)

// Store implements booking.Store over MySQL.  Every Transact call
// opens one transaction and hands the engine transaction-scoped
// views of the order, history and capacity repositories, so guard
// checks, ledger mutations, order rows and audit entries commit or
// roll back as a single unit.
type Store struct {
	db      *sql.DB
	orders  *OrderRepo
	history *OrderHistoryRepo
	ledger  *CapacityRepo
}

// NewStore returns a Store sharing the given repositories.
func NewStore(db *sql.DB, orders *OrderRepo, history *OrderHistoryRepo, ledger *CapacityRepo) *Store {
	return &Store{db: db, orders: orders, history: history, ledger: ledger}
}

// Transact runs fn inside a single transaction.  Errors returned by
// fn pass through unchanged so the engine's typed business errors
// survive; begin and commit failures are wrapped as retryable
// infrastructure errors.
func (s *Store) Transact(ctx context.Context, fn func(uow booking.UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &booking.InfrastructureError{Op: "begin transaction", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&unitOfWork{store: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &booking.InfrastructureError{Op: "commit transaction", Err: err}
	}
	committed = true
	return nil
}

// unitOfWork binds the repositories to one open transaction.
type unitOfWork struct {
	store *Store
	tx    *sql.Tx
}

func (u *unitOfWork) Orders() booking.OrderRepository { return &txOrders{u: u} }
func (u *unitOfWork) History() booking.HistoryLedger  { return &txHistory{u: u} }
func (u *unitOfWork) Ledger() booking.CapacityLedger  { return &txLedger{u: u} }

// txOrders adapts OrderRepo's ...Tx methods to the engine's
// transaction-scoped OrderRepository interface.
type txOrders struct {
	u *unitOfWork
}

func (t *txOrders) Create(ctx context.Context, o *model.Order, items []model.OrderItem) error {
	if err := t.u.store.orders.CreateTx(ctx, t.u.tx, o, items); err != nil {
		return wrapInfra("insert order", err)
	}
	return nil
}

func (t *txOrders) GetForUpdate(ctx context.Context, orderID uint64) (*model.Order, []model.OrderItem, error) {
	o, items, err := t.u.store.orders.GetForUpdateTx(ctx, t.u.tx, orderID)
	if err != nil {
		return nil, nil, wrapInfra("lock order", err)
	}
	return o, items, nil
}

func (t *txOrders) Update(ctx context.Context, o *model.Order) error {
	if err := t.u.store.orders.UpdateTx(ctx, t.u.tx, o); err != nil {
		return wrapInfra("update order", err)
	}
	return nil
}

func (t *txOrders) CountPending(ctx context.Context, userID uint64) (int, error) {
	n, err := t.u.store.orders.CountPendingTx(ctx, t.u.tx, userID)
	if err != nil {
		return 0, wrapInfra("count pending orders", err)
	}
	return n, nil
}

func (t *txOrders) HasPendingDuplicate(ctx context.Context, userID uint64, productType string, productID uint64, bookingDate time.Time) (bool, error) {
	dup, err := t.u.store.orders.HasPendingDuplicateTx(ctx, t.u.tx, userID, productType, productID, bookingDate)
	if err != nil {
		return false, wrapInfra("check pending duplicate", err)
	}
	return dup, nil
}

type txHistory struct {
	u *unitOfWork
}

func (t *txHistory) Append(ctx context.Context, e model.OrderHistoryEntry) error {
	if err := t.u.store.history.AppendTx(ctx, t.u.tx, e); err != nil {
		return wrapInfra("append order history", err)
	}
	return nil
}

type txLedger struct {
	u *unitOfWork
}

func (t *txLedger) Available(ctx context.Context, resourceID, variantID uint64) (int, error) {
	n, err := t.u.store.ledger.AvailableTx(ctx, t.u.tx, resourceID, variantID)
	if err != nil {
		return 0, wrapInfra("read capacity", err)
	}
	return n, nil
}

func (t *txLedger) Reserve(ctx context.Context, resourceID, variantID uint64, units int) error {
	return wrapInfra("reserve capacity", t.u.store.ledger.ReserveTx(ctx, t.u.tx, resourceID, variantID, units))
}

func (t *txLedger) Confirm(ctx context.Context, resourceID, variantID uint64, units int) error {
	return wrapInfra("confirm capacity", t.u.store.ledger.ConfirmTx(ctx, t.u.tx, resourceID, variantID, units))
}

func (t *txLedger) Release(ctx context.Context, resourceID, variantID uint64, units int) error {
	return wrapInfra("release capacity", t.u.store.ledger.ReleaseTx(ctx, t.u.tx, resourceID, variantID, units))
}

// wrapInfra converts raw database failures into retryable
// infrastructure errors while letting the engine's typed business
// errors and sentinels pass through untouched.
func wrapInfra(op string, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *booking.DuplicatePendingError, *booking.InsufficientCapacityError,
		*booking.InvalidTransitionError, *booking.ValidationError,
		*booking.PendingLimitExceededError, *booking.InfrastructureError:
		return err
	}
	if err == booking.ErrOrderNotFound || err == booking.ErrSlotNotFound {
		return err
	}
	return &booking.InfrastructureError{Op: op, Err: err}
}
