package booking

import (
	"context"

	"github.com/voyatek/booking-engine/internal/model"
)

// DefaultMaxPending is the per-user ceiling on concurrently pending
// orders when no explicit limit is configured.
const DefaultMaxPending = 3

// PendingOrderGuard enforces the two cross-order invariants that
// must hold before a new pending order may be written: the user has
// no other pending order for the same booking tuple, and the user
// is under the pending-order ceiling.
//
// The guard runs inside the same transaction as the order insert.
// Its checks alone would still be race-prone under concurrent
// writers, so the persistence layer re-enforces both: the duplicate
// rule via a uniqueness constraint on the items' pending
// fingerprint, and the count rule by locking the user row before
// counting.  The guard exists to fail fast with a precise error
// before any row is written.
type PendingOrderGuard struct {
	MaxPending int
}

// NewPendingOrderGuard returns a guard with the given ceiling, or
// DefaultMaxPending when limit is not positive.
func NewPendingOrderGuard(limit int) PendingOrderGuard {
	if limit <= 0 {
		limit = DefaultMaxPending
	}
	return PendingOrderGuard{MaxPending: limit}
}

// CheckDuplicate returns a *DuplicatePendingError when the user
// already has a pending order containing any of the given items'
// (product_type, product_id, booking_date) tuples.  Non
// capacity-bearing items are exempt; two pending orders may both
// carry the same insurance add-on.
func (g PendingOrderGuard) CheckDuplicate(ctx context.Context, repo OrderRepository, userID uint64, items []model.OrderItem) error {
	for _, it := range items {
		if !IsCapacityBearing(it.ProductType) {
			continue
		}
		dup, err := repo.HasPendingDuplicate(ctx, userID, it.ProductType, it.ProductID, it.BookingDate)
		if err != nil {
			return err
		}
		if dup {
			return &DuplicatePendingError{
				UserID:      userID,
				ProductType: it.ProductType,
				ProductID:   it.ProductID,
				BookingDate: it.BookingDate,
			}
		}
	}
	return nil
}

// CheckLimit returns a *PendingLimitExceededError when the user has
// reached the pending-order ceiling.
func (g PendingOrderGuard) CheckLimit(ctx context.Context, repo OrderRepository, userID uint64) error {
	n, err := repo.CountPending(ctx, userID)
	if err != nil {
		return err
	}
	if n >= g.MaxPending {
		return &PendingLimitExceededError{UserID: userID, Limit: g.MaxPending}
	}
	return nil
}
