package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-marketplace/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID  = "user_id" // checksummed address string
	CtxAddress = "address" // common.Address
	CtxRole    = "role"    // role claim
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the caller's wallet address and role into the request context.  The
// provided secret must match the one used when issuing tokens, and clk the
// clock that stamped them; nil means the wall clock.
func JWTAuth(secret string, clk clock.Clock) echo.MiddlewareFunc {
	if clk == nil {
		clk = clock.New()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": "missing bearer token"})
			}
			claims, addr, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "), clk.Now())
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": "invalid token"})
			}
			c.Set(CtxUserID, addr.Hex())
			c.Set(CtxAddress, addr)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}
