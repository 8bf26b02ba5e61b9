package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/voyatek/booking-engine/internal/booking"
	"github.com/voyatek/booking-engine/internal/repository"
)

// AdminOrderHandler serves the back-office order endpoints.  The
// router guards them with the ADMIN role, so handlers here skip the
// ownership checks the customer endpoints perform.
type AdminOrderHandler struct {
	Service *booking.OrderService
	Orders  *repository.OrderRepo
}

func NewAdminOrderHandler(svc *booking.OrderService, orders *repository.OrderRepo) *AdminOrderHandler {
	return &AdminOrderHandler{Service: svc, Orders: orders}
}

// List returns orders across all users, optionally filtered by
// status, with limit/offset paging.
func (h *AdminOrderHandler) List(c echo.Context) error {
	status := strings.TrimSpace(c.QueryParam("status"))
	if status != "" && !booking.ValidStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status filter"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Orders.List(ctx, status, limit, offset)
	if err != nil {
		return writeOrderError(c, err)
	}
	out := make([]orderResp, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResp(&orders[i], nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

type statusReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// SetStatus drives any legal transition on behalf of an operator.
// The state machine still applies, so an admin cannot skip edges or
// bypass the capacity ledger.
func (h *AdminOrderHandler) SetStatus(c echo.Context) error {
	uid, ok := actorID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	updated, err := h.Service.UpdateStatus(ctx, id, req.Status, &uid, req.Reason)
	if err != nil {
		return writeOrderError(c, err)
	}
	switch updated.Status {
	case booking.StatusConfirmed, booking.StatusPaid:
		_, items, _ := h.Orders.GetByID(ctx, updated.ID)
		publishConfirmed(ctx, updated, items)
	case booking.StatusCancelled, booking.StatusRefunded:
		publishCancelled(ctx, updated, req.Reason)
	}
	return c.JSON(http.StatusOK, toOrderResp(updated, nil))
}
