package booking

import "math"

// CommissionPolicy computes the agent commission for an order.  The
// engine never recomputes item prices; those arrive already priced
// from the pricing collaborator.  It only derives the commission to
// store on the order for reporting.  Policies are injected into the
// OrderService so agent programs can be swapped without touching
// the lifecycle code.
type CommissionPolicy interface {
	// Commission returns the commission in cents for an order with
	// the given subtotal and total capacity units.
	Commission(subtotalCents int64, units int) int64
}

// PercentageCommission pays a fixed share of the order subtotal.
// The rate is expressed in basis points to keep the arithmetic in
// integers: 750 = 7.5%.
type PercentageCommission struct {
	BasisPoints int64
}

func (p PercentageCommission) Commission(subtotalCents int64, _ int) int64 {
	if subtotalCents <= 0 || p.BasisPoints <= 0 {
		return 0
	}
	return subtotalCents * p.BasisPoints / 10000
}

// FixedCommission pays a flat amount per order regardless of size.
type FixedCommission struct {
	AmountCents int64
}

func (f FixedCommission) Commission(subtotalCents int64, _ int) int64 {
	if subtotalCents <= 0 || f.AmountCents < 0 {
		return 0
	}
	return f.AmountCents
}

// MarkupCommission pays a flat amount per capacity unit sold, the
// classic per-seat markup used for group departures.
type MarkupCommission struct {
	PerUnitCents int64
}

func (m MarkupCommission) Commission(_ int64, units int) int64 {
	if units <= 0 || m.PerUnitCents <= 0 {
		return 0
	}
	return m.PerUnitCents * int64(units)
}

// FactorCommission scales the subtotal by an arbitrary factor for
// bespoke agent contracts.  The result is rounded half away from
// zero to the nearest cent.
type FactorCommission struct {
	Factor float64
}

func (f FactorCommission) Commission(subtotalCents int64, _ int) int64 {
	if subtotalCents <= 0 || f.Factor <= 0 {
		return 0
	}
	return int64(math.Round(float64(subtotalCents) * f.Factor))
}

// NoCommission is the policy for direct consumer bookings.
type NoCommission struct{}

func (NoCommission) Commission(int64, int) int64 { return 0 }
