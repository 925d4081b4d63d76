package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/funds"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/platform"
)

// AccountHandler serves user profiles and the caller's wallet.
type AccountHandler struct {
	Platform *platform.Platform
	Bank     *funds.Bank
	Log      *zap.Logger
}

type upsertUserReq struct {
	MetadataURI string `json:"metadataUri"`
}

// UpsertMe creates or replaces the caller's profile metadata.
func (h *AccountHandler) UpsertMe(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req upsertUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Platform.UpsertUser(ctx, req.MetadataURI, me)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// GetUser returns the profile of :address.
func (h *AccountHandler) GetUser(c echo.Context) error {
	addr, ok := addressParam(c, "address")
	if !ok {
		return badRequest(c, "invalid address")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Platform.User(ctx, addr)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

type approveReq struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type walletResp struct {
	Address   string `json:"address"`
	Stable    string `json:"stable"`
	Native    string `json:"native"`
	Allowance string `json:"allowance"`
	Spender   string `json:"spender"`
}

// Approve sets the stable allowance of a spender, the platform by default.
func (h *AccountHandler) Approve(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req approveReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	spender := h.Platform.Address()
	if req.Spender != "" {
		s, err := model.ParseAddress(req.Spender)
		if err != nil {
			return fail(c, h.Log, err)
		}
		spender = s
	}
	amount, err := amountOrZero(req.Amount)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.Bank.Approve(me, spender, amount)
	return c.JSON(http.StatusOK, h.wallet(me))
}

// Wallet returns the caller's balances and the allowance granted to the platform.
func (h *AccountHandler) Wallet(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	return c.JSON(http.StatusOK, h.wallet(me))
}

func (h *AccountHandler) wallet(owner common.Address) walletResp {
	spender := h.Platform.Address()
	return walletResp{
		Address:   owner.Hex(),
		Stable:    decimal(h.Bank.BalanceOf(model.CurrencyStable, owner)),
		Native:    decimal(h.Bank.BalanceOf(model.CurrencyNative, owner)),
		Allowance: decimal(h.Bank.Allowance(owner, spender)),
		Spender:   spender.Hex(),
	}
}
