package middleware

// identity.go holds the helper the rate limiter uses to build
// per-user keys from the claims JWTAuth stored in the context.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's ID as a string, or
// "anon" for unauthenticated requests.  JWT numeric claims decode as
// float64, so both representations are handled.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		if v > 0 {
			return fmt.Sprintf("%.0f", v)
		}
	case uint64:
		if v > 0 {
			return fmt.Sprintf("%d", v)
		}
	}
	return "anon"
}
