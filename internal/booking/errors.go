package booking

import (
	"errors"
	"fmt"
	"time"
)

// ErrOrderNotFound is returned when the requested order does not
// exist or is not visible to the caller.  Handlers should translate
// this into an HTTP 404 response.
var ErrOrderNotFound = errors.New("order not found")

// ErrSlotNotFound is returned by the capacity ledger when no
// capacity row exists for the requested (resource, variant) pair.
var ErrSlotNotFound = errors.New("capacity slot not found")

// ValidationError reports a malformed or out-of-bounds creation
// request: empty cart, too many items, inconsistent totals, bad
// participant counts.  It is a business-rule failure, never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// DuplicatePendingError is returned when the user already has a
// pending order for the same (product_type, product_id,
// booking_date) tuple.  It is raised by the application-level guard
// and again by the persistence layer's uniqueness constraint, so
// two concurrent creates for the same tuple yield exactly one
// success.
type DuplicatePendingError struct {
	UserID      uint64
	ProductType string
	ProductID   uint64
	BookingDate time.Time
}

func (e *DuplicatePendingError) Error() string {
	return fmt.Sprintf("duplicate pending order for %s %d on %s",
		e.ProductType, e.ProductID, e.BookingDate.Format("2006-01-02"))
}

// PendingLimitExceededError is returned when creating one more
// pending order would push the user past the configured limit.
type PendingLimitExceededError struct {
	UserID uint64
	Limit  int
}

func (e *PendingLimitExceededError) Error() string {
	return fmt.Sprintf("user %d already has %d pending orders", e.UserID, e.Limit)
}

// InsufficientCapacityError is returned by the ledger when a reserve
// or confirm would oversell the slot.  It identifies the failing
// item so callers can tell the user which product ran out and by
// how much; the whole transition rolls back on the first failure.
type InsufficientCapacityError struct {
	ResourceID uint64
	VariantID  uint64
	Requested  int
	Available  int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity for resource %d variant %d: requested %d, available %d",
		e.ResourceID, e.VariantID, e.Requested, e.Available)
}

// InvalidTransitionError is returned when the requested edge is not
// in the lifecycle table, e.g. completed -> pending.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

// InfrastructureError wraps a failure of the underlying platform:
// lock timeout, broken connection, failed commit.  Unlike the
// business errors above it is always safe to retry the whole
// operation, because the enclosing transaction has rolled back.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// Retryable reports whether err is an infrastructure failure that
// the caller may retry verbatim.
func Retryable(err error) bool {
	var ie *InfrastructureError
	return errors.As(err, &ie)
}
