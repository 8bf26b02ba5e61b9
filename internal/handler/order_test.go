package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyatek/booking-engine/internal/booking"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/orders", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteOrderErrorStatusCodes(t *testing.T) {
	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &booking.ValidationError{Msg: "cart is empty"}, http.StatusBadRequest},
		{"duplicate pending", &booking.DuplicatePendingError{UserID: 7, ProductType: booking.ProductTour, ProductID: 1, BookingDate: date}, http.StatusConflict},
		{"pending limit", &booking.PendingLimitExceededError{UserID: 7, Limit: 3}, http.StatusConflict},
		{"insufficient capacity", &booking.InsufficientCapacityError{ResourceID: 1, VariantID: 10, Requested: 4, Available: 1}, http.StatusConflict},
		{"invalid transition", &booking.InvalidTransitionError{From: booking.StatusPending, To: booking.StatusCompleted}, http.StatusConflict},
		{"order not found", booking.ErrOrderNotFound, http.StatusNotFound},
		{"slot not found", booking.ErrSlotNotFound, http.StatusNotFound},
		{"infrastructure", &booking.InfrastructureError{Op: "commit transaction", Err: errors.New("gone")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t)
			require.NoError(t, writeOrderError(c, tc.err))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestWriteOrderErrorCapacityDetail(t *testing.T) {
	c, rec := newTestContext(t)
	err := &booking.InsufficientCapacityError{ResourceID: 1, VariantID: 10, Requested: 4, Available: 1}
	require.NoError(t, writeOrderError(c, err))
	assert.Contains(t, rec.Body.String(), `"available":1`)
	assert.Contains(t, rec.Body.String(), `"requested":4`)
}

func TestActorID(t *testing.T) {
	cases := []struct {
		name string
		set  any
		want uint64
		ok   bool
	}{
		{"float64 claim", float64(42), 42, true},
		{"string claim", "42", 42, true},
		{"uint64 claim", uint64(42), 42, true},
		{"zero", float64(0), 0, false},
		{"garbage", "abc", 0, false},
		{"missing", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestContext(t)
			if tc.set != nil {
				c.Set("user_id", tc.set)
			}
			got, ok := actorID(c)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
