package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// actorID extracts the authenticated user's ID from the context set
// by the JWT middleware.  JWT numeric claims decode as float64, so
// all plausible representations are accepted.
func actorID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		if v > 0 {
			return uint64(v), true
		}
	case uint64:
		if v > 0 {
			return v, true
		}
	case int64:
		if v > 0 {
			return uint64(v), true
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// actorRole returns the role claim set by the JWT middleware, or ""
// when the request is unauthenticated.
func actorRole(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}
