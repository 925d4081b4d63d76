package router

import (
	"github.com/benbjohnson/clock"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-marketplace/internal/handler"
	"github.com/iliyamo/ticket-marketplace/internal/middleware"
	"github.com/iliyamo/ticket-marketplace/internal/utils"
)

// RegisterMarket registers the wallet-authenticated endpoints under /v1.
// Any signed-in wallet may call them; the platform decides what the caller
// is allowed to do with a given event.
func RegisterMarket(e *echo.Echo, a *handler.AccountHandler, ev *handler.EventHandler, jwtSecret string, clk clock.Clock) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret, clk),
		middleware.RequireRole(utils.RoleUser, utils.RoleAdmin),
	)

	// ---- Profile and wallet ----
	g.PUT("/users/me", a.UpsertMe)
	g.GET("/wallet", a.Wallet)
	g.POST("/wallet/approve", a.Approve)

	// ---- Events ----
	g.POST("/events", ev.CreateEvent)
	g.POST("/events/:id/cancel", ev.CancelEvent)
	g.POST("/events/:id/tickets", ev.BuyTickets)
	g.POST("/tickets/use", ev.UseTicket)

	// ---- Escrow ----
	g.POST("/events/:id/escrow/withdraw", ev.Withdraw)
	g.POST("/events/:id/escrow/refund", ev.Refund)

	// Profiles are public; only writing one needs a token.
	e.GET("/v1/users/:address", a.GetUser)
}

// RegisterAdmin registers the platform settings under /v1/admin for the
// ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, clk clock.Clock) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret, clk),
		middleware.RequireRole(utils.RoleAdmin),
	)
	g.PUT("/fee", h.SetFee)
	g.PUT("/wallet", h.SetWallet)
	g.PUT("/owner", h.TransferOwnership)
	g.PUT("/delegates/:address", h.SetDelegate)
	g.POST("/mint", h.Mint)
}
