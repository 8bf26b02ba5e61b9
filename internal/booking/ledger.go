package booking

import "context"

// CapacityLedger is the engine's contract with the shared inventory
// pool.  Implementations must make every mutating call an atomic
// read-check-write with respect to other callers on the same
// (resourceID, variantID) key; the SQL adapter does this with a
// row-level exclusive lock held for the surrounding transaction.
// A variant identifies one dated departure of a resource, so the
// key pins exactly one sellable slot.
//
// The engine never separates an Available read from a later Confirm:
// confirmation re-validates inside the same atomic section, which
// closes the last-unit race between two simultaneous checkouts.
type CapacityLedger interface {
	// Available returns the number of units still sellable.
	Available(ctx context.Context, resourceID, variantID uint64) (int, error)

	// Reserve places a soft hold on units: they become unavailable
	// to other callers without being permanently decremented.
	// Returns an InsufficientCapacityError when the slot cannot
	// cover the request.
	Reserve(ctx context.Context, resourceID, variantID uint64, units int) error

	// Confirm permanently decrements units.  It is safe to call
	// without a prior Reserve; direct-pay flows skip the soft hold.
	// Returns an InsufficientCapacityError when the slot cannot
	// cover the request.
	Confirm(ctx context.Context, resourceID, variantID uint64, units int) error

	// Release returns units to the pool.  Held units are returned
	// before confirmed ones.  Releasing more than is outstanding is
	// a safe no-op for the excess: the slot never goes negative and
	// never exceeds its configured total.
	Release(ctx context.Context, resourceID, variantID uint64, units int) error
}
