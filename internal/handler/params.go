package handler

// params.go parses path, query and body values shared by several handlers.

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-marketplace/internal/middleware"
	"github.com/iliyamo/ticket-marketplace/internal/model"
)

const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// uint32Param parses a non-negative 32-bit path parameter.
func uint32Param(c echo.Context, name string) (uint32, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func addressParam(c echo.Context, name string) (common.Address, bool) {
	addr, err := model.ParseAddress(c.Param(name))
	return addr, err == nil
}

// tierParams reads the :id and :tier path parameters.
func tierParams(c echo.Context) (eventID, tier uint32, ok bool) {
	eventID, ok = uint32Param(c, "id")
	if !ok {
		return 0, 0, false
	}
	tier, ok = uint32Param(c, "tier")
	return eventID, tier, ok
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": errNoCaller.Error()})
}

// amountOrZero parses an optional decimal amount; empty means zero.
func amountOrZero(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	return model.ParseAmount(s)
}

// decimal renders an amount for JSON; nil renders as "0".
func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// caller returns the authenticated wallet set by the JWT middleware.
func caller(c echo.Context) (common.Address, bool) {
	return middleware.Caller(c)
}
