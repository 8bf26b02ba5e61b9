package booking

import (
	"context"
	"time"

	"github.com/voyatek/booking-engine/internal/model"
)

// OrderRepository is the persistence surface the engine mutates
// orders through.  Implementations are transaction-scoped: every
// method runs inside the unit of work that produced the repository.
type OrderRepository interface {
	// Create inserts the order and its items.  The order's ID and
	// the items' IDs are populated on return.  A clash with the
	// pending-uniqueness constraint surfaces as a
	// *DuplicatePendingError even when the application-level guard
	// raced past a concurrent writer.
	Create(ctx context.Context, order *model.Order, items []model.OrderItem) error

	// GetForUpdate loads an order and its items under an exclusive
	// lock so a transition serializes against concurrent mutations
	// of the same order.  Returns ErrOrderNotFound when absent.
	GetForUpdate(ctx context.Context, orderID uint64) (*model.Order, []model.OrderItem, error)

	// Update persists the order's mutable columns.  When the order
	// has left the pending status the implementation also clears
	// the pending-uniqueness fingerprints of its items.
	Update(ctx context.Context, order *model.Order) error

	// CountPending returns the user's pending-order count after
	// serializing against concurrent creates for the same user.
	CountPending(ctx context.Context, userID uint64) (int, error)

	// HasPendingDuplicate reports whether the user already has a
	// pending order containing the given booking tuple.
	HasPendingDuplicate(ctx context.Context, userID uint64, productType string, productID uint64, bookingDate time.Time) (bool, error)
}

// HistoryLedger records the append-only audit trail.  Entries are
// written inside the same unit of work as the mutation they
// describe, so an aborted transition leaves no trace.
type HistoryLedger interface {
	Append(ctx context.Context, entry model.OrderHistoryEntry) error
}

// UnitOfWork exposes the transaction-scoped collaborators of one
// atomic order mutation.  Everything obtained from the same unit of
// work commits or rolls back together.
type UnitOfWork interface {
	Orders() OrderRepository
	History() HistoryLedger
	Ledger() CapacityLedger
}

// Store opens units of work.  Transact runs fn inside a single
// transaction: if fn returns an error the transaction rolls back
// and the error is returned unchanged; otherwise the transaction
// commits.  Begin and commit failures are wrapped in
// *InfrastructureError because the caller may retry them.
type Store interface {
	Transact(ctx context.Context, fn func(uow UnitOfWork) error) error
}
