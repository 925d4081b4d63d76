package handler

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/platform"
)

// EventHandler serves the authenticated event lifecycle: creation, sales,
// redemption, cancellation and escrow settlement.
type EventHandler struct {
	Platform *platform.Platform
	Log      *zap.Logger
}

// createEventReq mirrors the flat creation payload; prices are decimal
// strings, one [stable, native] pair per tier.
type createEventReq struct {
	Creator                string   `json:"creator"`
	EventMetadataURI       string   `json:"eventMetadataUri"`
	NFTMetadataURI         string   `json:"NFTMetadataUri"`
	TicketsMetadataURIs    []string `json:"ticketsMetadataUris"`
	TicketsNFTMetadataURIs []string `json:"ticketsNFTMetadataUris"`
	Prices                 []string `json:"prices"`
	MaxSupplies            []uint64 `json:"maxSupplies"`
	Deadline               int64    `json:"deadline"`
	PercentageWithdraw     uint16   `json:"percentageWithdraw"`
}

func (r createEventReq) toModel(me common.Address) (model.CreateEventRequest, error) {
	creator := me
	if r.Creator != "" {
		addr, err := model.ParseAddress(r.Creator)
		if err != nil {
			return model.CreateEventRequest{}, err
		}
		creator = addr
	}
	prices := make([]*uint256.Int, len(r.Prices))
	for i, s := range r.Prices {
		v, err := model.ParseAmount(s)
		if err != nil {
			return model.CreateEventRequest{}, err
		}
		prices[i] = v
	}
	return model.CreateEventRequest{
		Event: model.EventSpec{
			Creator:            creator,
			MetadataURI:        r.EventMetadataURI,
			NFTMetadataURI:     r.NFTMetadataURI,
			Deadline:           r.Deadline,
			PercentageWithdraw: r.PercentageWithdraw,
		},
		Tiers: model.TierSpec{
			MetadataURIs:    r.TicketsMetadataURIs,
			NFTMetadataURIs: r.TicketsNFTMetadataURIs,
			Prices:          prices,
			MaxSupplies:     r.MaxSupplies,
		},
	}, nil
}

// CreateEvent creates an event with its tiers.  The creator defaults to the caller.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	spec, err := req.toModel(me)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	ev, err := h.Platform.CreateEvent(ctx, spec, me)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// CancelEvent cancels :id.  Only the creator may cancel, and only before the deadline.
func (h *EventHandler) CancelEvent(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := uint32Param(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Platform.CancelEvent(ctx, id, me); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type buyReq struct {
	Buyer    string `json:"buyer"`
	Tier     uint32 `json:"tier"`
	Currency string `json:"currency"`
	Amount   uint64 `json:"amount"`
	Value    string `json:"value"`
}

type receiptResp struct {
	EventID  uint32 `json:"eventId"`
	Tier     uint32 `json:"tier"`
	Buyer    string `json:"buyer"`
	Payer    string `json:"payer"`
	Currency string `json:"currency"`
	Amount   uint64 `json:"amount"`
	Price    string `json:"price"`
	Fee      string `json:"fee"`
}

// BuyTickets purchases tickets of :id paid by the caller.  The tickets go to
// "buyer", which defaults to the caller.
func (h *EventHandler) BuyTickets(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := uint32Param(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req buyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	cur, err := model.ParseCurrency(req.Currency)
	if err != nil {
		return fail(c, h.Log, err)
	}
	value, err := amountOrZero(req.Value)
	if err != nil {
		return fail(c, h.Log, err)
	}
	buyer := me
	if req.Buyer != "" {
		if buyer, err = model.ParseAddress(req.Buyer); err != nil {
			return fail(c, h.Log, err)
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	rc, err := h.Platform.BuyTicket(ctx, platform.BuyRequest{
		Buyer:    buyer,
		EventID:  id,
		Tier:     req.Tier,
		Currency: cur,
		Amount:   req.Amount,
		Value:    value,
	}, me)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, receiptResp{
		EventID:  rc.EventID,
		Tier:     rc.Tier,
		Buyer:    rc.Buyer.Hex(),
		Payer:    rc.Payer.Hex(),
		Currency: rc.Currency.String(),
		Amount:   rc.Amount,
		Price:    decimal(rc.Price),
		Fee:      decimal(rc.Fee),
	})
}

type useTicketReq struct {
	Message string `json:"message"`
	V       uint8  `json:"v"`
	R       string `json:"r"`
	S       string `json:"s"`
}

func decodeWord(s string) ([32]byte, bool) {
	var out [32]byte
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil || len(b) != len(out) {
		return out, false
	}
	copy(out[:], b)
	return out, true
}

// UseTicket redeems the ticket named by a holder-signed message.  Anyone may
// submit the message, typically the venue's scanner.
func (h *EventHandler) UseTicket(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req useTicketReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	msg, err := hexutil.Decode(strings.TrimSpace(req.Message))
	if err != nil {
		return badRequest(c, "message must be 0x-prefixed hex")
	}
	r, okR := decodeWord(req.R)
	s, okS := decodeWord(req.S)
	if !okR || !okS {
		return badRequest(c, "r and s must be 32-byte hex words")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	holder, err := h.Platform.UseTicket(ctx, msg, req.V, r, s, me)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"holder": holder.Hex(), "used": true})
}

type withdrawReq struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// Withdraw moves escrowed proceeds of :id to the creator.
func (h *EventHandler) Withdraw(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := uint32Param(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req withdrawReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	cur, err := model.ParseCurrency(req.Currency)
	if err != nil {
		return fail(c, h.Log, err)
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Platform.Withdraw(ctx, id, cur, amount, me); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"eventId": id, "currency": cur.String(), "amount": amount.Dec()})
}

// Refund returns the caller's contributions to a cancelled event.  A second
// call succeeds with zero amounts.
func (h *EventHandler) Refund(c echo.Context) error {
	me, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := uint32Param(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	rf, err := h.Platform.ReturnFunds(ctx, id, me)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"eventId": id, "stable": decimal(rf.Stable), "native": decimal(rf.Native)})
}
