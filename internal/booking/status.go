// Package booking implements the order lifecycle and capacity
// reservation engine.  It owns the state machine that advances an
// order from pending through confirmed, paid, processing and the
// terminal statuses, the pure capacity-requirement calculator, the
// pending-order guard and the OrderService facade that checkout and
// admin callers use.  Persistence and the capacity ledger are
// injected interfaces; the package itself never touches SQL.
package booking

// Order lifecycle statuses.  Stored verbatim in orders.status.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusPaid       = "paid"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
)

// Payment statuses.  Stored verbatim in orders.payment_status.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// legalEdges lists every allowed state change.  Anything not present
// here fails with an InvalidTransitionError.  Same-state calls never
// consult this table; they are idempotent no-ops handled by the
// state machine before the lookup.
//
// completed -> cancelled is a deliberate admin reversal path: a
// completed order still holds confirmed capacity and the back office
// must be able to void it and return the units.
var legalEdges = map[string]map[string]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusPaid:      true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusPaid:      true,
		StatusCancelled: true,
	},
	StatusPaid: {
		StatusProcessing: true,
		StatusCancelled:  true,
		StatusRefunded:   true,
	},
	StatusProcessing: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
	StatusCompleted: {
		StatusCancelled: true,
	},
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPaid, StatusProcessing,
		StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave status s.
func IsTerminal(s string) bool {
	return len(legalEdges[s]) == 0 && ValidStatus(s)
}

// CanTransition reports whether the edge from -> to is legal.  It
// returns false for same-state pairs; callers are expected to treat
// those as idempotent successes before consulting the table.
func CanTransition(from, to string) bool {
	return legalEdges[from][to]
}
