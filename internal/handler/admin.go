package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/funds"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/platform"
)

// AdminHandler exposes the owner-gated platform settings.  The router limits
// these routes to the ADMIN role and the platform checks the owner again.
type AdminHandler struct {
	Platform  *platform.Platform
	Bank      *funds.Bank
	AllowMint bool // faucet for non-production deployments
	Log       *zap.Logger
}

type feeReq struct {
	FeeBps *uint16 `json:"feeBps"`
}

// SetFee updates the purchase fee in basis points.
func (h *AdminHandler) SetFee(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req feeReq
	if err := c.Bind(&req); err != nil || req.FeeBps == nil {
		return badRequest(c, "feeBps required")
	}
	if err := h.Platform.SetPlatformFee(*req.FeeBps, me); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, h.Platform.Config())
}

type addressReq struct {
	Address string `json:"address"`
}

// SetWallet updates the fee recipient.
func (h *AdminHandler) SetWallet(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	addr, err := model.ParseAddress(req.Address)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Platform.SetPlatformWallet(addr, me); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, h.Platform.Config())
}

// TransferOwnership hands the platform to another address.  The caller's
// token keeps its ADMIN role until it expires but the platform rejects it.
func (h *AdminHandler) TransferOwnership(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	addr, err := model.ParseAddress(req.Address)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Platform.TransferOwnership(addr, me); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, h.Platform.Config())
}

type delegateReq struct {
	Enabled bool `json:"enabled"`
}

// SetDelegate allows or revokes :address as an event-creation delegate.
func (h *AdminHandler) SetDelegate(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	addr, ok := addressParam(c, "address")
	if !ok {
		return badRequest(c, "invalid address")
	}
	var req delegateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	if err := h.Platform.SetDelegate(addr, req.Enabled, me); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, h.Platform.Config())
}

type mintReq struct {
	To       string `json:"to"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// Mint funds a test wallet.  It is disabled in production and, like the
// platform setters, open only to the current owner.
func (h *AdminHandler) Mint(c echo.Context) error {
	if !h.AllowMint {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "faucet disabled"})
	}
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	if me != h.Platform.Owner() {
		return fail(c, h.Log, model.ErrUnauthorized)
	}
	var req mintReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	to, err := model.ParseAddress(req.To)
	if err != nil {
		return fail(c, h.Log, err)
	}
	cur, err := model.ParseCurrency(req.Currency)
	if err != nil {
		return fail(c, h.Log, err)
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Bank.Mint(cur, to, amount); err != nil {
		return fail(c, h.Log, err)
	}
	h.Log.Info("faucet mint", zap.Stringer("to", to), zap.Stringer("currency", cur), zap.String("amount", amount.Dec()))
	return c.JSON(http.StatusOK, echo.Map{"to": to.Hex(), "currency": cur.String(), "balance": decimal(h.Bank.BalanceOf(cur, to))})
}
