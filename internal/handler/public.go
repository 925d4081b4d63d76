package handler

// public.go serves the unauthenticated read API.  Responses are safe to cache
// and the router puts them behind the Redis cache.

import (
	"context"
	"net/http"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/escrow"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/platform"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// ActivityLister reads the persisted activity journal.
type ActivityLister interface {
	ListByEvent(ctx context.Context, eventID uint32, limit int) ([]repository.JournalEntry, error)
}

// PublicHandler answers read-only queries.  Journal is nil when no database
// is configured.
type PublicHandler struct {
	Platform *platform.Platform
	Journal  ActivityLister
	Log      *zap.Logger
}

// PublicTier is a ticket tier with its sale progress.
type PublicTier struct {
	Index          uint32 `json:"index"`
	MaxSupply      uint64 `json:"maxSupply"`
	Minted         uint64 `json:"minted"`
	PriceStable    string `json:"priceStable"`
	PriceNative    string `json:"priceNative"`
	MetadataURI    string `json:"metadataUri"`
	NFTMetadataURI string `json:"NFTMetadataUri"`
}

// PublicTotals is one currency of an escrow snapshot.
type PublicTotals struct {
	Balance      string `json:"balance"`
	Credited     string `json:"credited"`
	Withdrawn    string `json:"withdrawn"`
	Withdrawable string `json:"withdrawable"`
}

type publicEscrow struct {
	EventID uint32       `json:"eventId"`
	Address string       `json:"address"`
	Stable  PublicTotals `json:"stable"`
	Native  PublicTotals `json:"native"`
}

func totals(t escrow.Totals) PublicTotals {
	return PublicTotals{
		Balance:      decimal(t.Balance),
		Credited:     decimal(t.Credited),
		Withdrawn:    decimal(t.Withdrawn),
		Withdrawable: decimal(t.Withdrawable),
	}
}

// Config returns the platform configuration.
func (h *PublicHandler) Config(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Platform.Config())
}

// ListEvents returns events ?from..?to inclusive; both default to the full
// range.  An empty registry yields an empty list.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	total, err := h.Platform.TotalEvents()
	if err != nil {
		return fail(c, h.Log, err)
	}
	if total == 0 && c.QueryParam("from") == "" && c.QueryParam("to") == "" {
		return c.JSON(http.StatusOK, []model.Event{})
	}
	from, to := uint64(0), uint64(0)
	if total > 0 {
		to = uint64(total - 1)
	}
	if s := c.QueryParam("from"); s != "" {
		if from, err = strconv.ParseUint(s, 10, 32); err != nil {
			return badRequest(c, "from must be an event id")
		}
	}
	if s := c.QueryParam("to"); s != "" {
		if to, err = strconv.ParseUint(s, 10, 32); err != nil {
			return badRequest(c, "to must be an event id")
		}
	}
	evs, err := h.Platform.GetEventRange(uint32(from), uint32(to))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, evs)
}

func (h *PublicHandler) CountEvents(c echo.Context) error {
	n, err := h.Platform.TotalEvents()
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": n})
}

func (h *PublicHandler) GetEvent(c echo.Context) error {
	id, ok := uint32Param(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ev, err := h.Platform.Event(id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// ListTiers returns the tiers of :id with their minted counts.
func (h *PublicHandler) ListTiers(c echo.Context) error {
	id, ok := uint32Param(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	tiers, minted, err := h.Platform.Tiers(id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]PublicTier, 0, len(tiers))
	for i, t := range tiers {
		out = append(out, PublicTier{
			Index:          t.Index,
			MaxSupply:      t.MaxSupply,
			Minted:         minted[i],
			PriceStable:    decimal(t.PriceStable),
			PriceNative:    decimal(t.PriceNative),
			MetadataURI:    t.MetadataURI,
			NFTMetadataURI: t.NFTMetadataURI,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Quote prices ?amount (default 1) tickets of a tier in ?currency.
func (h *PublicHandler) Quote(c echo.Context) error {
	id, tier, ok := tierParams(c)
	if !ok {
		return badRequest(c, "invalid event or tier id")
	}
	cur, err := model.ParseCurrency(c.QueryParam("currency"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	amount := uint64(1)
	if s := c.QueryParam("amount"); s != "" {
		if amount, err = strconv.ParseUint(s, 10, 64); err != nil {
			return badRequest(c, "amount must be a positive integer")
		}
	}
	price, fee, err := h.Platform.Quote(id, tier, cur, amount)
	if err != nil {
		return fail(c, h.Log, err)
	}
	total, _ := new(uint256.Int).AddOverflow(price, fee)
	return c.JSON(http.StatusOK, echo.Map{
		"eventId":  id,
		"tier":     tier,
		"currency": cur.String(),
		"amount":   amount,
		"price":    price.Dec(),
		"fee":      fee.Dec(),
		"total":    total.Dec(),
	})
}

// TicketsUsed reports whether :holder has redeemed their ticket of a tier.
func (h *PublicHandler) TicketsUsed(c echo.Context) error {
	id, tier, ok := tierParams(c)
	if !ok {
		return badRequest(c, "invalid event or tier id")
	}
	holder, ok := addressParam(c, "holder")
	if !ok {
		return badRequest(c, "invalid holder address")
	}
	used, err := h.Platform.TicketsUsed(id, tier, holder)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"used": used})
}

func (h *PublicHandler) TicketBalance(c echo.Context) error {
	id, tier, ok := tierParams(c)
	if !ok {
		return badRequest(c, "invalid event or tier id")
	}
	holder, ok := addressParam(c, "holder")
	if !ok {
		return badRequest(c, "invalid holder address")
	}
	n, err := h.Platform.TicketBalance(id, tier, holder)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": n})
}

func (h *PublicHandler) Escrow(c echo.Context) error {
	id, ok := uint32Param(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	s, err := h.Platform.EscrowSnapshot(id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, publicEscrow{
		EventID: s.EventID,
		Address: s.Address.Hex(),
		Stable:  totals(s.Stable),
		Native:  totals(s.Native),
	})
}

// HolderEvents lists the events whose token :holder owns, with the count.
func (h *PublicHandler) HolderEvents(c echo.Context) error {
	holder, ok := addressParam(c, "holder")
	if !ok {
		return badRequest(c, "invalid holder address")
	}
	n, err := h.Platform.BalanceOf(holder)
	if err != nil {
		return fail(c, h.Log, err)
	}
	evs, err := h.Platform.EventsOf(holder)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": n, "events": evs})
}

// Activity returns the journaled activity of :id, newest first.
func (h *PublicHandler) Activity(c echo.Context) error {
	if h.Journal == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "activity journal disabled"})
	}
	id, ok := uint32Param(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = n
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	entries, err := h.Journal.ListByEvent(ctx, id, limit)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if entries == nil {
		entries = []repository.JournalEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}
