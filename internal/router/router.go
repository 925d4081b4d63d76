package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-marketplace/internal/handler"
)

// RegisterRoutes registers the unauthenticated operational endpoints: the
// health probe and, when metrics is non-nil, the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the wallet login endpoint.  It issues the tokens the
// JWTAuth middleware checks on every protected group.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/wallet", a.WalletLogin)
}
