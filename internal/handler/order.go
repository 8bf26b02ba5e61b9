package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/voyatek/booking-engine/internal/booking"
	"github.com/voyatek/booking-engine/internal/model"
	"github.com/voyatek/booking-engine/internal/queue"
	"github.com/voyatek/booking-engine/internal/repository"
	queuepub "github.com/voyatek/booking-engine/internal/service"
)

// OrderHandler serves checkout and the customer-facing order
// endpoints.  Mutations go through the OrderService so the state
// machine, guards and ledger all apply; reads go straight to the
// repository.
type OrderHandler struct {
	Service *booking.OrderService
	Orders  *repository.OrderRepo
	History *repository.OrderHistoryRepo
}

func NewOrderHandler(svc *booking.OrderService, orders *repository.OrderRepo, history *repository.OrderHistoryRepo) *OrderHandler {
	return &OrderHandler{Service: svc, Orders: orders, History: history}
}

// ----- DTOs -----

type checkoutItemReq struct {
	ProductType    string `json:"product_type"`
	ProductID      uint64 `json:"product_id"`
	VariantID      uint64 `json:"variant_id"`
	BookingDate    string `json:"booking_date"` // YYYY-MM-DD
	BookingTime    string `json:"booking_time"`
	Quantity       int    `json:"quantity"`
	Adults         int    `json:"adults"`
	Children       int    `json:"children"`
	Infants        int    `json:"infants"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type checkoutReq struct {
	Items         []checkoutItemReq `json:"items"`
	SubtotalCents int64             `json:"subtotal_cents"`
	FeesCents     int64             `json:"fees_cents"`
	TaxCents      int64             `json:"tax_cents"`
	DiscountCents int64             `json:"discount_cents"`
	TotalCents    int64             `json:"total_cents"`
	Currency      string            `json:"currency"`
	Notes         string            `json:"notes"`
	Payment       string            `json:"payment"`     // pay_later | pay_now
	CustomerID    uint64            `json:"customer_id"` // agent bookings only
}

type orderItemResp struct {
	ID             uint64 `json:"id"`
	ProductType    string `json:"product_type"`
	ProductID      uint64 `json:"product_id"`
	VariantID      uint64 `json:"variant_id"`
	BookingDate    string `json:"booking_date,omitempty"`
	BookingTime    string `json:"booking_time,omitempty"`
	Quantity       int    `json:"quantity"`
	Adults         int    `json:"adults"`
	Children       int    `json:"children"`
	Infants        int    `json:"infants"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type orderResp struct {
	ID               uint64          `json:"id"`
	OrderNumber      string          `json:"order_number"`
	UserID           uint64          `json:"user_id"`
	AgentID          *uint64         `json:"agent_id,omitempty"`
	Status           string          `json:"status"`
	PaymentStatus    string          `json:"payment_status"`
	SubtotalCents    int64           `json:"subtotal_cents"`
	FeesCents        int64           `json:"fees_cents"`
	TaxCents         int64           `json:"tax_cents"`
	DiscountCents    int64           `json:"discount_cents"`
	TotalCents       int64           `json:"total_cents"`
	CommissionCents  int64           `json:"commission_cents,omitempty"`
	Currency         string          `json:"currency"`
	CapacityReserved bool            `json:"capacity_reserved"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Items            []orderItemResp `json:"items,omitempty"`
}

type historyResp struct {
	ID        uint64    `json:"id"`
	FieldName string    `json:"field_name"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Reason    string    `json:"reason,omitempty"`
	ActorID   *uint64   `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toOrderResp(o *model.Order, items []model.OrderItem) orderResp {
	resp := orderResp{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		AgentID:          o.AgentID,
		Status:           o.Status,
		PaymentStatus:    o.PaymentStatus,
		SubtotalCents:    o.SubtotalCents,
		FeesCents:        o.FeesCents,
		TaxCents:         o.TaxCents,
		DiscountCents:    o.DiscountCents,
		TotalCents:       o.TotalCents,
		CommissionCents:  o.CommissionCents,
		Currency:         o.Currency,
		CapacityReserved: o.CapacityReserved,
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	for _, it := range items {
		ir := orderItemResp{
			ID:             it.ID,
			ProductType:    it.ProductType,
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			BookingTime:    it.BookingTime,
			Quantity:       it.Quantity,
			Adults:         it.Adults,
			Children:       it.Children,
			Infants:        it.Infants,
			UnitPriceCents: it.UnitPriceCents,
			TotalCents:     it.TotalCents,
		}
		if !it.BookingDate.IsZero() {
			ir.BookingDate = it.BookingDate.Format("2006-01-02")
		}
		resp.Items = append(resp.Items, ir)
	}
	return resp
}

// writeOrderError maps engine errors to HTTP responses.  Every
// category gets a distinct status and a message that tells the
// client what to change.
func writeOrderError(c echo.Context, err error) error {
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Msg})
	}
	var dup *booking.DuplicatePendingError
	if errors.As(err, &dup) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":        "you already have a pending order for this booking; pay or cancel it first",
			"product_type": dup.ProductType,
			"product_id":   dup.ProductID,
			"booking_date": dup.BookingDate.Format("2006-01-02"),
		})
	}
	var lim *booking.PendingLimitExceededError
	if errors.As(err, &lim) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": fmt.Sprintf("you have reached the limit of %d pending orders; complete or cancel one first", lim.Limit),
			"limit": lim.Limit,
		})
	}
	var ice *booking.InsufficientCapacityError
	if errors.As(err, &ice) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       fmt.Sprintf("only %d of the requested %d places remain for this departure", ice.Available, ice.Requested),
			"resource_id": ice.ResourceID,
			"variant_id":  ice.VariantID,
			"requested":   ice.Requested,
			"available":   ice.Available,
		})
	}
	var inv *booking.InvalidTransitionError
	if errors.As(err, &inv) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": fmt.Sprintf("order cannot move from %s to %s", inv.From, inv.To),
		})
	}
	if errors.Is(err, booking.ErrOrderNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	if errors.Is(err, booking.ErrSlotNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "this departure is not open for booking"})
	}
	c.Logger().Errorf("order request failed: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// Checkout creates an order from the cart in the request body.  An
// AGENT may book on behalf of a customer by passing customer_id; the
// agent is then recorded on the order and earns commission.
func (h *OrderHandler) Checkout(c echo.Context) error {
	uid, ok := actorID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	cart := booking.Cart{
		SubtotalCents: req.SubtotalCents,
		FeesCents:     req.FeesCents,
		TaxCents:      req.TaxCents,
		DiscountCents: req.DiscountCents,
		TotalCents:    req.TotalCents,
		Currency:      req.Currency,
		Notes:         req.Notes,
	}
	for _, it := range req.Items {
		ci := booking.CartItem{
			ProductType:    it.ProductType,
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			BookingTime:    it.BookingTime,
			Quantity:       it.Quantity,
			Adults:         it.Adults,
			Children:       it.Children,
			Infants:        it.Infants,
			UnitPriceCents: it.UnitPriceCents,
			TotalCents:     it.TotalCents,
		}
		if it.BookingDate != "" {
			d, err := time.Parse("2006-01-02", it.BookingDate)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_date must be YYYY-MM-DD"})
			}
			ci.BookingDate = d
		}
		cart.Items = append(cart.Items, ci)
	}

	hint := req.Payment
	if hint == "" {
		hint = booking.PayLater
	}
	if hint != booking.PayLater && hint != booking.PayNow {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment must be pay_later or pay_now"})
	}

	userID := uid
	var agentID *uint64
	if req.CustomerID != 0 && req.CustomerID != uid {
		if actorRole(c) != "AGENT" && actorRole(c) != "ADMIN" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "only agents may book for other customers"})
		}
		userID = req.CustomerID
		agentID = &uid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	order, items, err := h.Service.CreateFromCart(ctx, cart, userID, hint, agentID)
	if err != nil {
		return writeOrderError(c, err)
	}
	if order.Status == booking.StatusPaid {
		publishConfirmed(ctx, order, items)
	}
	return c.JSON(http.StatusCreated, toOrderResp(order, items))
}

// ListMine returns the authenticated user's orders, newest first.
func (h *OrderHandler) ListMine(c echo.Context) error {
	uid, ok := actorID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Orders.ListByUser(ctx, uid)
	if err != nil {
		return writeOrderError(c, err)
	}
	out := make([]orderResp, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResp(&orders[i], nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

// Get returns one order with its items.  Visible to the order's
// customer, the booking agent, and admins.
func (h *OrderHandler) Get(c echo.Context) error {
	order, items, err := h.loadVisible(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderResp(order, items))
}

// GetHistory returns the order's audit trail, oldest first.
func (h *OrderHandler) GetHistory(c echo.Context) error {
	order, _, err := h.loadVisible(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.History.ListByOrder(ctx, order.ID)
	if err != nil {
		return writeOrderError(c, err)
	}
	out := make([]historyResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyResp{
			ID:        e.ID,
			FieldName: e.FieldName,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			Reason:    e.Reason,
			ActorID:   e.ActorID,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"history": out})
}

// Confirm moves a pending order to confirmed, reserving capacity.
func (h *OrderHandler) Confirm(c echo.Context) error {
	order, _, err := h.loadVisible(c)
	if err != nil {
		return err
	}
	uid, _ := actorID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	updated, err := h.Service.Confirm(ctx, order.ID, &uid)
	if err != nil {
		return writeOrderError(c, err)
	}
	_, items, _ := h.Orders.GetByID(ctx, updated.ID)
	publishConfirmed(ctx, updated, items)
	return c.JSON(http.StatusOK, toOrderResp(updated, items))
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Cancel cancels the order and releases any held capacity.
func (h *OrderHandler) Cancel(c echo.Context) error {
	order, _, err := h.loadVisible(c)
	if err != nil {
		return err
	}
	uid, _ := actorID(c)

	var req cancelReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	updated, err := h.Service.Cancel(ctx, order.ID, &uid, req.Reason)
	if err != nil {
		return writeOrderError(c, err)
	}
	publishCancelled(ctx, updated, req.Reason)
	return c.JSON(http.StatusOK, toOrderResp(updated, nil))
}

// loadVisible fetches the order from the path parameter and checks
// the caller may see it.  It writes the response itself on failure,
// so callers return its error unchanged.
func (h *OrderHandler) loadVisible(c echo.Context) (*model.Order, []model.OrderItem, error) {
	uid, ok := actorID(c)
	if !ok {
		return nil, nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return nil, nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	order, items, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, nil, writeOrderError(c, err)
	}
	role := actorRole(c)
	if order.UserID != uid && role != "ADMIN" {
		if order.AgentID == nil || *order.AgentID != uid {
			return nil, nil, c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
	return order, items, nil
}

// publishConfirmed emits the order.confirmed event.  Publishing is
// best-effort: the order is already committed, so a broker outage
// must not fail the request.
func publishConfirmed(ctx context.Context, o *model.Order, items []model.OrderItem) {
	units := 0
	for _, it := range items {
		units += booking.CapacityUnits(it)
	}
	ev := queue.OrderConfirmedEvent{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		UserID:       o.UserID,
		Status:       o.Status,
		TotalCents:   o.TotalCents,
		Currency:     o.Currency,
		CapacityUnits: units,
		ConfirmedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if o.AgentID != nil {
		ev.AgentID = *o.AgentID
	}
	_ = queuepub.PublishOrderConfirmed(ctx, ev)
}

func publishCancelled(ctx context.Context, o *model.Order, reason string) {
	_ = queuepub.PublishOrderCancelled(ctx, queue.OrderCancelledEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Reason:      reason,
		Refunded:    o.PaymentStatus == booking.PaymentRefunded,
		CancelledAt: time.Now().UTC().Format(time.RFC3339),
	})
}
