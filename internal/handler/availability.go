package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/voyatek/booking-engine/internal/booking"
	"github.com/voyatek/booking-engine/internal/repository"
)

// AvailabilityHandler exposes the public browse endpoints: active
// tours and remaining capacity per departure.  These routes carry no
// auth and sit behind the response cache.
type AvailabilityHandler struct {
	Tours    *repository.TourRepo
	Capacity *repository.CapacityRepo
}

func NewAvailabilityHandler(tours *repository.TourRepo, capacity *repository.CapacityRepo) *AvailabilityHandler {
	return &AvailabilityHandler{Tours: tours, Capacity: capacity}
}

type tourResp struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	ProductType  string `json:"product_type"`
	CapacityMode string `json:"capacity_mode"`
}

// ListTours returns all active tours.
func (h *AvailabilityHandler) ListTours(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tours, err := h.Tours.ListActive(ctx)
	if err != nil {
		c.Logger().Errorf("list tours failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	out := make([]tourResp, 0, len(tours))
	for _, t := range tours {
		out = append(out, tourResp{ID: t.ID, Name: t.Name, ProductType: t.ProductType, CapacityMode: t.CapacityMode})
	}
	return c.JSON(http.StatusOK, echo.Map{"tours": out})
}

// GetAvailability returns the remaining capacity for one departure
// of a tour.  The figure is advisory; the reservation transaction
// re-checks it under lock.
func (h *AvailabilityHandler) GetAvailability(c echo.Context) error {
	tourID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || tourID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tour id"})
	}
	variantID, err := strconv.ParseUint(c.QueryParam("variant_id"), 10, 64)
	if err != nil || variantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "variant_id is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tour, err := h.Tours.GetByID(ctx, tourID)
	if err != nil {
		if errors.Is(err, repository.ErrTourNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
		}
		c.Logger().Errorf("load tour failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	available, err := h.Capacity.Available(ctx, tourID, variantID)
	if err != nil {
		if errors.Is(err, booking.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no capacity slot for this departure"})
		}
		c.Logger().Errorf("load availability failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tour_id":    tour.ID,
		"variant_id": variantID,
		"available":  available,
	})
}
