package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/voyatek/booking-engine/internal/model"
)

// Payment hints accepted by CreateFromCart.  PayLater leaves the
// order pending; PayNow drives it straight to paid inside the same
// unit of work, confirming capacity on the way.
const (
	PayLater = "pay_later"
	PayNow   = "pay_now"
)

// CartItem is one line of the checkout collaborator's cart.  Prices
// arrive already computed by the pricing collaborator; the engine
// only derives capacity units from the participant counts.
type CartItem struct {
	ProductType    string
	ProductID      uint64
	VariantID      uint64
	BookingDate    time.Time
	BookingTime    string
	Quantity       int
	Adults         int
	Children       int
	Infants        int
	UnitPriceCents int64
	TotalCents     int64
}

// Cart is the checkout collaborator's view of what the user is
// buying, including the cart-level money figures it computed.
type Cart struct {
	Items         []CartItem
	SubtotalCents int64
	FeesCents     int64
	TaxCents      int64
	DiscountCents int64
	TotalCents    int64
	Currency      string
	Notes         string
}

// Limits bounds what a single checkout may contain.
type Limits struct {
	MaxItems      int
	MaxTotalCents int64
	MaxPending    int
}

// DefaultLimits returns the stock configuration: ten lines,
// a 50,000.00 ceiling and three pending orders per user.
func DefaultLimits() Limits {
	return Limits{MaxItems: 10, MaxTotalCents: 5_000_000, MaxPending: DefaultMaxPending}
}

// OrderService is the entry point checkout, agent-booking and admin
// callers use.  It composes the pending-order guard, the state
// machine and the capacity ledger inside single units of work, so
// every operation either fully happens or leaves no trace.
type OrderService struct {
	store      Store
	machine    *StateMachine
	guard      PendingOrderGuard
	commission CommissionPolicy
	limits     Limits
	now        func() time.Time
}

// NewOrderService wires an OrderService.  commission may be nil for
// deployments without an agent program.
func NewOrderService(store Store, commission CommissionPolicy, limits Limits) *OrderService {
	if commission == nil {
		commission = NoCommission{}
	}
	if limits.MaxItems <= 0 {
		limits.MaxItems = DefaultLimits().MaxItems
	}
	if limits.MaxTotalCents <= 0 {
		limits.MaxTotalCents = DefaultLimits().MaxTotalCents
	}
	return &OrderService{
		store:      store,
		machine:    NewStateMachine(),
		guard:      NewPendingOrderGuard(limits.MaxPending),
		commission: commission,
		limits:     limits,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateFromCart validates the cart, runs the pending-order guard
// and persists the new order atomically.  With the PayNow hint the
// order is additionally driven to paid before the transaction
// commits, so a capacity shortage rolls the whole creation back.
// agentID marks an agent booking and triggers the commission
// policy; pass nil for direct consumer checkouts.
func (s *OrderService) CreateFromCart(ctx context.Context, cart Cart, userID uint64, paymentHint string, agentID *uint64) (*model.Order, []model.OrderItem, error) {
	if err := s.validateCart(cart); err != nil {
		return nil, nil, err
	}

	number, err := newOrderNumber(s.now())
	if err != nil {
		return nil, nil, &InfrastructureError{Op: "generate order number", Err: err}
	}

	items := make([]model.OrderItem, len(cart.Items))
	units := 0
	for i, ci := range cart.Items {
		items[i] = model.OrderItem{
			ProductType:    ci.ProductType,
			ProductID:      ci.ProductID,
			VariantID:      ci.VariantID,
			BookingDate:    ci.BookingDate,
			BookingTime:    ci.BookingTime,
			Quantity:       ci.Quantity,
			Adults:         ci.Adults,
			Children:       ci.Children,
			Infants:        ci.Infants,
			UnitPriceCents: ci.UnitPriceCents,
			TotalCents:     ci.TotalCents,
		}
		units += CapacityUnits(items[i])
	}

	order := &model.Order{
		OrderNumber:   number,
		UserID:        userID,
		AgentID:       agentID,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		SubtotalCents: cart.SubtotalCents,
		FeesCents:     cart.FeesCents,
		TaxCents:      cart.TaxCents,
		DiscountCents: cart.DiscountCents,
		Currency:      cart.Currency,
		Notes:         cart.Notes,
		CreatedAt:     s.now(),
		UpdatedAt:     s.now(),
	}
	order.TotalCents = order.SubtotalCents + order.FeesCents + order.TaxCents - order.DiscountCents
	if agentID != nil {
		order.CommissionCents = s.commission.Commission(order.SubtotalCents, units)
	}

	err = s.store.Transact(ctx, func(uow UnitOfWork) error {
		// Both guard checks run inside the insert's transaction so
		// the create/create race window stays closed; the repository
		// constraint backs the duplicate check a second time.
		if err := s.guard.CheckLimit(ctx, uow.Orders(), userID); err != nil {
			return err
		}
		if err := s.guard.CheckDuplicate(ctx, uow.Orders(), userID, items); err != nil {
			return err
		}
		if err := uow.Orders().Create(ctx, order, items); err != nil {
			return err
		}
		// Creation is a mutation like any other: it gets its own
		// audit entry before any immediate-pay transition adds more.
		if err := uow.History().Append(ctx, model.OrderHistoryEntry{
			OrderID:   order.ID,
			FieldName: "status",
			OldValue:  "",
			NewValue:  order.Status,
			Reason:    "order created",
			ActorID:   &userID,
		}); err != nil {
			return err
		}
		if paymentHint == PayNow {
			return s.machine.Transition(ctx, uow, order, items, StatusPaid, &userID, "immediate payment")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// UpdateStatus drives the state machine for one order.  The order
// is loaded under an exclusive lock so concurrent transitions on
// the same order serialize; the transition, the ledger effects and
// the audit entries commit together.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint64, newStatus string, actorID *uint64, reason string) (*model.Order, error) {
	var updated *model.Order
	err := s.store.Transact(ctx, func(uow UnitOfWork) error {
		order, items, err := uow.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.machine.Transition(ctx, uow, order, items, newStatus, actorID, reason); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Confirm is a convenience wrapper for the pending -> confirmed edge.
func (s *OrderService) Confirm(ctx context.Context, orderID uint64, actorID *uint64) (*model.Order, error) {
	return s.UpdateStatus(ctx, orderID, StatusConfirmed, actorID, "")
}

// Cancel is a convenience wrapper for cancellation with a reason.
func (s *OrderService) Cancel(ctx context.Context, orderID uint64, actorID *uint64, reason string) (*model.Order, error) {
	return s.UpdateStatus(ctx, orderID, StatusCancelled, actorID, reason)
}

// validateCart rejects carts the engine must not accept: empty or
// oversized carts, negative money, participant counts that make no
// sense, or cart-level totals that disagree with the line items.
func (s *OrderService) validateCart(cart Cart) error {
	if len(cart.Items) == 0 {
		return &ValidationError{Msg: "cart is empty"}
	}
	if len(cart.Items) > s.limits.MaxItems {
		return &ValidationError{Msg: "cart exceeds the item limit"}
	}
	if cart.Currency == "" {
		return &ValidationError{Msg: "currency is required"}
	}
	if cart.FeesCents < 0 || cart.TaxCents < 0 || cart.DiscountCents < 0 {
		return &ValidationError{Msg: "negative money field"}
	}

	var itemSum int64
	for _, it := range cart.Items {
		if it.ProductID == 0 {
			return &ValidationError{Msg: "item without product id"}
		}
		if it.Adults < 0 || it.Children < 0 || it.Infants < 0 || it.Quantity < 0 {
			return &ValidationError{Msg: "negative participant or quantity count"}
		}
		if it.UnitPriceCents < 0 || it.TotalCents < 0 {
			return &ValidationError{Msg: "negative item price"}
		}
		if IsCapacityBearing(it.ProductType) {
			if it.BookingDate.IsZero() {
				return &ValidationError{Msg: "capacity-bearing item without booking date"}
			}
			if CapacityUnits(model.OrderItem{
				ProductType: it.ProductType,
				Quantity:    it.Quantity,
				Adults:      it.Adults,
				Children:    it.Children,
			}) == 0 {
				return &ValidationError{Msg: "capacity-bearing item books zero units"}
			}
		}
		itemSum += it.TotalCents
	}
	if itemSum != cart.SubtotalCents {
		return &ValidationError{Msg: "item totals do not add up to the cart subtotal"}
	}
	total := cart.SubtotalCents + cart.FeesCents + cart.TaxCents - cart.DiscountCents
	if total < 0 {
		return &ValidationError{Msg: "discount exceeds the order value"}
	}
	if cart.TotalCents != 0 && cart.TotalCents != total {
		return &ValidationError{Msg: "cart total disagrees with its components"}
	}
	if total > s.limits.MaxTotalCents {
		return &ValidationError{Msg: "cart exceeds the order value limit"}
	}
	return nil
}

// newOrderNumber builds the immutable order number: the creation
// date plus six random hex characters, e.g. ORD-20260115-9F3A1C.
func newOrderNumber(at time.Time) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "ORD-" + at.Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}
