package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookDate = time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

// tourCart builds a single-line cart for the given tour departure.
func tourCart(productID, variantID uint64, adults int, unitPrice int64) Cart {
	total := unitPrice * int64(adults)
	return Cart{
		Items: []CartItem{{
			ProductType:    ProductTour,
			ProductID:      productID,
			VariantID:      variantID,
			BookingDate:    bookDate,
			Adults:         adults,
			UnitPriceCents: unitPrice,
			TotalCents:     total,
		}},
		SubtotalCents: total,
		Currency:      "USD",
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusPaid, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPaid, StatusProcessing, true},
		{StatusPaid, StatusRefunded, true},
		{StatusPaid, StatusCancelled, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, true},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusPaid, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusRefunded, StatusPaid, false},
		{StatusConfirmed, StatusProcessing, false},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusRefunded, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
	assert.True(t, IsTerminal(StatusCancelled))
	assert.True(t, IsTerminal(StatusRefunded))
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal("bogus"))
}

func TestConfirmTransitionReservesCapacity(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayLater, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
	assert.False(t, order.CapacityReserved)
	assert.Equal(t, 0, st.slot(1, 10).confirmed, "a pending order never holds confirmed capacity")

	updated, err := svc.Confirm(ctx, order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.True(t, updated.CapacityReserved)
	assert.NotNil(t, updated.CapacityReservedAt)
	assert.Equal(t, 2, st.slot(1, 10).confirmed)

	var statusEntries int
	for _, e := range st.historyFor(order.ID) {
		if e.FieldName == "status" && e.OldValue == StatusPending && e.NewValue == StatusConfirmed {
			statusEntries++
		}
	}
	assert.Equal(t, 1, statusEntries)
}

func TestConfirmTransitionIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayLater, nil)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, order.ID, nil)
	require.NoError(t, err)

	confirmsBefore := st.confirmCalls
	historyBefore := len(st.historyFor(order.ID))

	again, err := svc.Confirm(ctx, order.ID, nil)
	require.NoError(t, err, "re-confirming the current state is a successful no-op")
	assert.Equal(t, StatusConfirmed, again.Status)
	assert.Equal(t, confirmsBefore, st.confirmCalls, "no duplicate ledger mutation")
	assert.Len(t, st.historyFor(order.ID), historyBefore, "no duplicate history entry")
	assert.Equal(t, 2, st.slot(1, 10).confirmed)
}

func TestPayAfterConfirmSkipsLedger(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayLater, nil)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, order.ID, nil)
	require.NoError(t, err)
	confirmsBefore := st.confirmCalls

	paid, err := svc.UpdateStatus(ctx, order.ID, StatusPaid, nil, "card captured")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.Equal(t, PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, confirmsBefore, st.confirmCalls, "capacity already held, confirm must not repeat")
	assert.Equal(t, 2, st.slot(1, 10).confirmed)
}

func TestDirectPayConfirmsCapacity(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 3, 1000), 7, PayLater, nil)
	require.NoError(t, err)

	paid, err := svc.UpdateStatus(ctx, order.ID, StatusPaid, nil, "")
	require.NoError(t, err)
	assert.True(t, paid.CapacityReserved)
	assert.Equal(t, PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, 3, st.slot(1, 10).confirmed)
}

func TestCancelReleasesExactConfirmedUnits(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayLater, nil)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, order.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 2, st.slot(1, 10).confirmed)

	cancelled, err := svc.Cancel(ctx, order.ID, nil, "customer request")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.False(t, cancelled.CapacityReserved)
	assert.Nil(t, cancelled.CapacityReservedAt)
	assert.Equal(t, 0, st.slot(1, 10).confirmed, "releases exactly the units it had confirmed")

	releasesBefore := st.releaseCalls
	again, err := svc.Cancel(ctx, order.ID, nil, "retry")
	require.NoError(t, err, "second cancellation is a no-op")
	assert.Equal(t, StatusCancelled, again.Status)
	assert.Equal(t, releasesBefore, st.releaseCalls)
}

func TestCancelPendingReleasesNothing(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayLater, nil)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, order.ID, nil, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, 0, st.releaseCalls, "a pending order had no ledger operation to undo")
	assert.Equal(t, 0, st.slot(1, 10).confirmed)
}

func TestRefundReleasesAndMarksPayment(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayNow, nil)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, order.Status)
	require.Equal(t, 2, st.slot(1, 10).confirmed)

	refunded, err := svc.UpdateStatus(ctx, order.ID, StatusRefunded, nil, "chargeback")
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, refunded.Status)
	assert.Equal(t, PaymentRefunded, refunded.PaymentStatus)
	assert.Equal(t, 0, st.slot(1, 10).confirmed)
}

func TestIllegalEdgeFails(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayLater, nil)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, StatusCompleted, nil, "")
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, StatusPending, ite.From)
	assert.Equal(t, StatusCompleted, ite.To)

	current, _ := st.orderByID(order.ID)
	assert.Equal(t, StatusPending, current.Status, "failed transition leaves the order untouched")
}

func TestInsufficientCapacityAbortsWholeTransition(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 10)
	st.addSlot(2, 20, 1) // second item cannot fit
	svc := NewOrderService(st, nil, Limits{})

	cart := Cart{
		Items: []CartItem{
			{ProductType: ProductTour, ProductID: 1, VariantID: 10, BookingDate: bookDate, Adults: 2, UnitPriceCents: 1000, TotalCents: 2000},
			{ProductType: ProductTour, ProductID: 2, VariantID: 20, BookingDate: bookDate, Adults: 2, UnitPriceCents: 3000, TotalCents: 6000},
		},
		SubtotalCents: 8000,
		Currency:      "USD",
	}
	order, _, err := svc.CreateFromCart(ctx, cart, 7, PayLater, nil)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, order.ID, nil)
	var ice *InsufficientCapacityError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, uint64(2), ice.ResourceID)
	assert.Equal(t, 2, ice.Requested)
	assert.Equal(t, 1, ice.Available)

	// No partial commits: the first item's confirmation rolled back.
	assert.Equal(t, 0, st.slot(1, 10).confirmed)
	assert.Equal(t, 0, st.slot(2, 20).confirmed)
	current, _ := st.orderByID(order.ID)
	assert.Equal(t, StatusPending, current.Status)
	assert.False(t, current.CapacityReserved)
}

func TestMoneyInvariantHeldAfterEveryPersist(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	cart := tourCart(1, 10, 2, 5000)
	cart.FeesCents = 300
	cart.TaxCents = 700
	cart.DiscountCents = 500
	order, _, err := svc.CreateFromCart(ctx, cart, 7, PayLater, nil)
	require.NoError(t, err)

	assert.Equal(t, order.SubtotalCents+order.FeesCents+order.TaxCents-order.DiscountCents, order.TotalCents)

	for _, target := range []string{StatusConfirmed, StatusPaid, StatusProcessing, StatusCompleted} {
		updated, err := svc.UpdateStatus(ctx, order.ID, target, nil, "")
		require.NoError(t, err)
		assert.Equal(t, updated.SubtotalCents+updated.FeesCents+updated.TaxCents-updated.DiscountCents,
			updated.TotalCents, "money invariant after persisting %s", target)
	}
}

func TestUnknownOrderNotFound(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	svc := NewOrderService(st, nil, Limits{})
	_, err := svc.Confirm(ctx, 9999, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
