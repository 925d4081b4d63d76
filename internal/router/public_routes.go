package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-marketplace/internal/handler"
)

// RegisterPublic registers the read-only query API.  These routes need no
// token.  When cache is non-nil every route goes through it; the cache is
// flushed by the activity stream whenever state changes.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	var m []echo.MiddlewareFunc
	if cache != nil {
		m = append(m, cache)
	}
	e.GET("/v1/config", p.Config, m...)

	e.GET("/v1/events", p.ListEvents, m...)
	e.GET("/v1/events/count", p.CountEvents, m...)
	e.GET("/v1/events/:id", p.GetEvent, m...)
	e.GET("/v1/events/:id/tiers", p.ListTiers, m...)
	e.GET("/v1/events/:id/tiers/:tier/quote", p.Quote, m...)
	e.GET("/v1/events/:id/tiers/:tier/used/:holder", p.TicketsUsed, m...)
	e.GET("/v1/events/:id/tiers/:tier/balance/:holder", p.TicketBalance, m...)
	e.GET("/v1/events/:id/escrow", p.Escrow, m...)
	e.GET("/v1/holders/:holder/events", p.HolderEvents, m...)

	// The journal is written asynchronously by the queue consumer, so it is
	// not cached.
	e.GET("/v1/events/:id/activity", p.Activity)
}
