package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFromCartBuildsPendingOrder(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	cart := tourCart(1, 10, 2, 5000)
	cart.Notes = "window seats please"
	order, items, err := svc.CreateFromCart(ctx, cart, 7, PayLater, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"), "order number %q", order.OrderNumber)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, PaymentUnpaid, order.PaymentStatus)
	assert.Equal(t, uint64(7), order.UserID)
	assert.Nil(t, order.AgentID)
	assert.Equal(t, int64(10_000), order.SubtotalCents)
	assert.Equal(t, order.SubtotalCents, order.TotalCents)
	assert.Equal(t, int64(0), order.CommissionCents)
	assert.Equal(t, "window seats please", order.Notes)
	require.Len(t, items, 1)
	assert.Equal(t, order.ID, items[0].OrderID)
	assert.NotZero(t, items[0].ID)

	// Creation itself is audited.
	history := st.historyFor(order.ID)
	require.Len(t, history, 1)
	assert.Equal(t, "status", history[0].FieldName)
	assert.Equal(t, "", history[0].OldValue)
	assert.Equal(t, StatusPending, history[0].NewValue)
}

func TestCreateFromCartSubtotalMatchesItemSum(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	svc := NewOrderService(st, nil, Limits{})

	cart := tourCart(1, 10, 2, 5000)
	cart.SubtotalCents = 9999 // disagrees with the single 10000 line
	_, _, err := svc.CreateFromCart(ctx, cart, 7, PayLater, nil)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, st.orderCount())
}

func TestCreateFromCartValidation(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	svc := NewOrderService(st, nil, Limits{MaxItems: 2, MaxTotalCents: 20_000})

	valid := func() Cart { return tourCart(1, 10, 2, 5000) }

	cases := []struct {
		name   string
		mutate func(*Cart)
	}{
		{"empty cart", func(c *Cart) { c.Items = nil; c.SubtotalCents = 0 }},
		{"too many items", func(c *Cart) {
			c.Items = append(c.Items, c.Items[0], c.Items[0])
			c.SubtotalCents *= 3
		}},
		{"missing currency", func(c *Cart) { c.Currency = "" }},
		{"negative discount", func(c *Cart) { c.DiscountCents = -1 }},
		{"negative adults", func(c *Cart) { c.Items[0].Adults = -1 }},
		{"missing product id", func(c *Cart) { c.Items[0].ProductID = 0 }},
		{"missing booking date", func(c *Cart) { c.Items[0].BookingDate = time.Time{} }},
		{"zero capacity units", func(c *Cart) { c.Items[0].Adults = 0 }},
		{"cart total mismatch", func(c *Cart) { c.TotalCents = 123 }},
		{"over value limit", func(c *Cart) {
			c.Items[0].UnitPriceCents = 50_000
			c.Items[0].TotalCents = 100_000
			c.SubtotalCents = 100_000
		}},
		{"discount exceeds value", func(c *Cart) { c.DiscountCents = 99_999 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cart := valid()
			tc.mutate(&cart)
			_, _, err := svc.CreateFromCart(ctx, cart, 7, PayLater, nil)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
	assert.Equal(t, 0, st.orderCount(), "no order row written for any rejected cart")
}

func TestCreateFromCartDuplicatePending(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 10)
	svc := NewOrderService(st, nil, Limits{})

	_, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayLater, nil)
	require.NoError(t, err)

	_, _, err = svc.CreateFromCart(ctx, tourCart(1, 10, 1, 5000), 7, PayLater, nil)
	var dup *DuplicatePendingError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, uint64(7), dup.UserID)
	assert.Equal(t, uint64(1), dup.ProductID)
	assert.Equal(t, 1, st.orderCount())

	// A different user may book the same departure.
	_, _, err = svc.CreateFromCart(ctx, tourCart(1, 10, 1, 5000), 8, PayLater, nil)
	assert.NoError(t, err)

	// The same user may book a different date.
	other := tourCart(1, 10, 1, 5000)
	other.Items[0].BookingDate = bookDate.AddDate(0, 0, 1)
	_, _, err = svc.CreateFromCart(ctx, other, 7, PayLater, nil)
	assert.NoError(t, err)
}

func TestDuplicateFreedAfterLeavingPending(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 10)
	svc := NewOrderService(st, nil, Limits{})

	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayLater, nil)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, order.ID, nil, "")
	require.NoError(t, err)

	// The tuple is free again once the first order is terminal.
	_, _, err = svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayLater, nil)
	assert.NoError(t, err)
}

func TestCreateFromCartPendingLimit(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	svc := NewOrderService(st, nil, Limits{MaxPending: 3})
	for i := uint64(1); i <= 3; i++ {
		st.addSlot(i, 10, 10)
		_, _, err := svc.CreateFromCart(ctx, tourCart(i, 10, 1, 1000), 7, PayLater, nil)
		require.NoError(t, err)
	}
	st.addSlot(4, 10, 10)
	_, _, err := svc.CreateFromCart(ctx, tourCart(4, 10, 1, 1000), 7, PayLater, nil)
	var lim *PendingLimitExceededError
	require.ErrorAs(t, err, &lim)
	assert.Equal(t, 3, lim.Limit)
	assert.Equal(t, 3, st.orderCount(), "the fourth order was never written")

	// Other users are unaffected by this user's ceiling.
	_, _, err = svc.CreateFromCart(ctx, tourCart(4, 10, 1, 1000), 8, PayLater, nil)
	assert.NoError(t, err)
}

func TestCreateFromCartPayNow(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, nil, Limits{})

	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayNow, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, order.Status)
	assert.Equal(t, PaymentPaid, order.PaymentStatus)
	assert.True(t, order.CapacityReserved)
	assert.Equal(t, 2, st.slot(1, 10).confirmed)
}

func TestCreateFromCartPayNowRollsBackEntirely(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 1)
	svc := NewOrderService(st, nil, Limits{})

	_, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayNow, nil)
	var ice *InsufficientCapacityError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, 0, st.orderCount(), "a failed immediate-pay creation leaves no order behind")
	assert.Equal(t, 0, st.slot(1, 10).confirmed)
}

func TestAgentBookingEarnsCommission(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 5)
	svc := NewOrderService(st, PercentageCommission{BasisPoints: 1000}, Limits{})

	agent := uint64(42)
	order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 5000), 7, PayLater, &agent)
	require.NoError(t, err)
	require.NotNil(t, order.AgentID)
	assert.Equal(t, agent, *order.AgentID)
	assert.Equal(t, int64(1000), order.CommissionCents) // 10% of 10000

	// Direct bookings earn nothing even with a policy configured.
	st.addSlot(2, 10, 5)
	direct, _, err := svc.CreateFromCart(ctx, tourCart(2, 10, 2, 5000), 7, PayLater, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), direct.CommissionCents)
}

func TestConcurrentConfirmsNeverOversell(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	const capacity = 5
	st.addSlot(1, 10, capacity)
	svc := NewOrderService(st, nil, Limits{MaxPending: 100})

	const callers = 12
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := uint64(100 + i)
			order, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 1, 1000), userID, PayLater, nil)
			if err == nil {
				_, err = svc.Confirm(ctx, order.ID, nil)
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, err := range errs {
		if err == nil {
			okCount++
			continue
		}
		var ice *InsufficientCapacityError
		require.ErrorAs(t, err, &ice)
	}
	assert.Equal(t, capacity, okCount)
	assert.Equal(t, capacity, st.slot(1, 10).confirmed, "confirmed units never exceed capacity")
}

func TestConcurrentLastUnitRace(t *testing.T) {
	// Two checkouts of 2 units race for a slot of 2: exactly one
	// succeeds, the other gets the per-item shortfall.
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 2)
	svc := NewOrderService(st, nil, Limits{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 2, 1000), uint64(200+i), PayNow, nil)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	var success, insufficient int
	for _, err := range errs {
		if err == nil {
			success++
		} else {
			var ice *InsufficientCapacityError
			require.ErrorAs(t, err, &ice)
			insufficient++
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 2, st.slot(1, 10).confirmed)
}

func TestConcurrentDuplicateCreates(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addSlot(1, 10, 10)
	svc := NewOrderService(st, nil, Limits{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.CreateFromCart(ctx, tourCart(1, 10, 1, 1000), 7, PayLater, nil)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	var success, duplicate int
	for _, err := range errs {
		if err == nil {
			success++
		} else {
			var dup *DuplicatePendingError
			require.ErrorAs(t, err, &dup)
			duplicate++
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, 1, duplicate)
	assert.Equal(t, 1, st.orderCount())
}

func TestConcurrentPendingLimit(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	const limit = 3
	svc := NewOrderService(st, nil, Limits{MaxPending: limit})

	const attempts = limit + 2
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		st.addSlot(uint64(i+1), 10, 10)
	}
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.CreateFromCart(ctx, tourCart(uint64(i+1), 10, 1, 1000), 7, PayLater, nil)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	var success, limited int
	for _, err := range errs {
		if err == nil {
			success++
		} else {
			var lim *PendingLimitExceededError
			require.ErrorAs(t, err, &lim)
			limited++
		}
	}
	assert.Equal(t, limit, success, "exactly the ceiling succeeds regardless of arrival order")
	assert.Equal(t, attempts-limit, limited)
}

func TestRetryablePredicate(t *testing.T) {
	infra := &InfrastructureError{Op: "commit transaction", Err: errors.New("lock wait timeout")}
	assert.True(t, Retryable(infra))
	assert.False(t, Retryable(&ValidationError{Msg: "bad cart"}))
	assert.False(t, Retryable(ErrOrderNotFound))
	assert.False(t, Retryable(nil))
}
