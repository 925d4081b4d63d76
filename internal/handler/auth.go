package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/config"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/platform"
	"github.com/iliyamo/ticket-marketplace/internal/signature"
	"github.com/iliyamo/ticket-marketplace/internal/utils"
)

// AuthHandler exchanges a signed login message for an access token.
type AuthHandler struct {
	Cfg      config.Config
	Platform *platform.Platform
	Clock    clock.Clock
	Log      *zap.Logger
}

type walletLoginReq struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type walletLoginResp struct {
	Address string    `json:"address"`
	Role    string    `json:"role"`
	Token   string    `json:"access_token"`
	Expires time.Time `json:"expires_at"`
}

// WalletLogin verifies that the body's signature over message was produced by
// address, that message names the same address and that its timestamp is
// within LoginMaxAge of now.  The platform owner receives the ADMIN role.
func (h *AuthHandler) WalletLogin(c echo.Context) error {
	var req walletLoginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	addr, err := model.ParseAddress(req.Address)
	if err != nil {
		return badRequest(c, "address must be a hex address")
	}
	sig, err := hexutil.Decode(strings.TrimSpace(req.Signature))
	if err != nil {
		return badRequest(c, "signature must be 0x-prefixed hex")
	}

	msgAddr, at, err := utils.ParseLoginMessage(req.Message)
	if err != nil {
		return badRequest(c, err.Error())
	}
	now := h.Clock.Now()
	if age := now.Sub(at); age > h.Cfg.LoginMaxAge || age < -h.Cfg.LoginMaxAge {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "stale_login", "message": "login message expired"})
	}
	signer, err := signature.RecoverText([]byte(req.Message), sig)
	if err != nil || signer != addr || msgAddr != addr {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_login", "message": "signature does not match address"})
	}

	role := utils.RoleUser
	if addr == h.Platform.Owner() {
		role = utils.RoleAdmin
	}
	ttl := time.Duration(h.Cfg.AccessTTLMin) * time.Minute
	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, addr, role, ttl, now)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.Log.Info("wallet login", zap.String("address", addr.Hex()), zap.String("role", role))
	return c.JSON(http.StatusOK, walletLoginResp{Address: addr.Hex(), Role: role, Token: tok.Token, Expires: tok.Exp})
}
