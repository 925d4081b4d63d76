package middleware

// identity.go holds the accessors for the identity JWTAuth stores in the
// Echo context.

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
)

// Caller returns the authenticated wallet address, if any.
func Caller(c echo.Context) (common.Address, bool) {
	addr, ok := c.Get(CtxAddress).(common.Address)
	return addr, ok
}

// userID is the rate-limit identity: the caller's address or "anon".
func userID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
