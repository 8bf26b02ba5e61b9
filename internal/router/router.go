// Package router wires handlers to routes and applies the auth
// middleware per group.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/voyatek/booking-engine/internal/handler"
	"github.com/voyatek/booking-engine/internal/middleware"
)

// RegisterRoutes registers routes that carry no authentication.
// Currently only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Register,
// login, refresh and logout live under /v1/auth and need no session;
// /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh token in the body, so it does not
	// require the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints.
// cache may be nil when Redis is unavailable; availability reads are
// the hottest path and benefit most from the response cache.
func RegisterPublic(e *echo.Echo, av *handler.AvailabilityHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/tours")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("", av.ListTours)
	g.GET("/:id/availability", av.GetAvailability)
}

// RegisterOrders registers checkout and order management.  Customers
// and agents share the same surface; the handlers enforce per-order
// visibility.  The admin group is restricted to the ADMIN role.
func RegisterOrders(e *echo.Echo, o *handler.OrderHandler, admin *handler.AdminOrderHandler, jwtSecret string) {
	g := e.Group("/v1/orders")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("CUSTOMER", "AGENT", "ADMIN"))
	g.POST("", o.Checkout)
	g.GET("", o.ListMine)
	g.GET("/:id", o.Get)
	g.GET("/:id/history", o.GetHistory)
	g.POST("/:id/confirm", o.Confirm)
	g.POST("/:id/cancel", o.Cancel)

	ag := e.Group("/v1/admin/orders")
	ag.Use(middleware.JWTAuth(jwtSecret))
	ag.Use(middleware.RequireRole("ADMIN"))
	ag.GET("", admin.List)
	ag.POST("/:id/status", admin.SetStatus)
}
