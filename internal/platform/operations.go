package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/escrow"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/signature"
	"github.com/iliyamo/ticket-marketplace/internal/tickets"
)

// UpsertUser creates or replaces the caller's profile.
func (p *Platform) UpsertUser(ctx context.Context, metadataURI string, caller common.Address) (model.User, error) {
	if metadataURI == "" {
		return model.User{}, model.ErrEmptyMetadata
	}
	p.mu.Lock()
	u, err := p.upsertUser(ctx, metadataURI, caller)
	p.mu.Unlock()
	if err != nil {
		return model.User{}, err
	}
	p.emit(ctx, model.Activity{Kind: model.ActivityUserUpserted, Actor: caller})
	return u, nil
}

func (p *Platform) upsertUser(ctx context.Context, metadataURI string, caller common.Address) (model.User, error) {
	if err := p.ready(); err != nil {
		return model.User{}, err
	}
	if caller == (common.Address{}) {
		return model.User{}, model.ErrInvalidAddress
	}
	u := model.User{Address: caller, MetadataURI: metadataURI, UpdatedAt: p.clock.Now().UTC()}
	if err := p.users.Upsert(ctx, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// CreateEvent creates an event and its ticket tiers.  The caller must be the
// creator named in the payload or a delegate, and the creator must have a
// profile.
func (p *Platform) CreateEvent(ctx context.Context, req model.CreateEventRequest, caller common.Address) (model.Event, error) {
	p.mu.Lock()
	ev, err := p.createEvent(ctx, req, caller)
	p.mu.Unlock()
	if err != nil {
		return model.Event{}, err
	}
	p.emit(ctx, model.Activity{Kind: model.ActivityEventCreated, EventID: ev.ID, Actor: caller})
	return ev, nil
}

func (p *Platform) createEvent(ctx context.Context, req model.CreateEventRequest, caller common.Address) (model.Event, error) {
	if err := p.ready(); err != nil {
		return model.Event{}, err
	}
	if caller != req.Event.Creator && !p.delegates[caller] {
		return model.Event{}, model.ErrUnauthorized
	}
	if _, err := p.users.Lookup(ctx, req.Event.Creator); err != nil {
		return model.Event{}, err
	}
	if err := tickets.ValidateTierSpec(req.Tiers); err != nil {
		return model.Event{}, err
	}
	ev, err := p.events.CreateEvent(ctx, p.address, req.Event)
	if err != nil {
		return model.Event{}, err
	}
	// Tiers were validated above and a fresh ledger accepts them once.
	if err := p.events.CreateTiers(p.address, ev.ID, req.Tiers); err != nil {
		p.log.Error("create tiers on fresh event", zap.Uint32("event_id", ev.ID), zap.Error(err))
		return model.Event{}, err
	}
	return ev, nil
}

// BuyRequest describes a purchase.  Value is the native amount attached to
// the call and must be zero for stable purchases.
type BuyRequest struct {
	Buyer    common.Address
	EventID  uint32
	Tier     uint32
	Currency model.Currency
	Amount   uint64
	Value    *uint256.Int
}

// Receipt is the settled result of a purchase.
type Receipt struct {
	EventID  uint32
	Tier     uint32
	Buyer    common.Address
	Payer    common.Address
	Currency model.Currency
	Amount   uint64
	Price    *uint256.Int
	Fee      *uint256.Int
}

// BuyTicket sells req.Amount tickets of a tier to req.Buyer, paid by caller.
// The price goes to the event escrow and the fee to the platform wallet.
func (p *Platform) BuyTicket(ctx context.Context, req BuyRequest, caller common.Address) (Receipt, error) {
	p.mu.Lock()
	rc, err := p.buyTicket(ctx, req, caller)
	p.mu.Unlock()
	if err != nil {
		return Receipt{}, err
	}
	p.emit(ctx, model.Activity{
		Kind:     model.ActivityTicketPurchased,
		EventID:  rc.EventID,
		Tier:     rc.Tier,
		Actor:    rc.Buyer,
		Currency: rc.Currency,
		Amount:   rc.Price,
		Fee:      rc.Fee,
		Quantity: rc.Amount,
	})
	return rc, nil
}

func (p *Platform) buyTicket(ctx context.Context, req BuyRequest, caller common.Address) (Receipt, error) {
	if err := p.ready(); err != nil {
		return Receipt{}, err
	}
	if req.Buyer == (common.Address{}) || caller == (common.Address{}) {
		return Receipt{}, model.ErrInvalidAddress
	}
	ev, err := p.events.Event(req.EventID)
	if err != nil {
		return Receipt{}, err
	}
	if ev.Cancelled {
		return Receipt{}, model.ErrEventCancelled
	}
	if !req.Currency.Valid() {
		return Receipt{}, model.ErrUnknownCurrency
	}
	if req.Amount == 0 {
		return Receipt{}, model.ErrInvalidAmount
	}
	ledger, err := p.events.Tickets(req.EventID)
	if err != nil {
		return Receipt{}, err
	}
	esc, err := p.events.Escrow(req.EventID)
	if err != nil {
		return Receipt{}, err
	}
	price, fee, err := p.quote(ledger, req.Tier, req.Currency, req.Amount)
	if err != nil {
		return Receipt{}, err
	}

	value := req.Value
	if value == nil {
		value = new(uint256.Int)
	}
	if req.Currency == model.CurrencyNative {
		total, overflow := new(uint256.Int).AddOverflow(price, fee)
		if overflow {
			return Receipt{}, model.ErrAmountOverflow
		}
		if !value.Eq(total) {
			return Receipt{}, fmt.Errorf("%w: attached %s, expected %s", model.ErrIncorrectPayment, value.Dec(), total.Dec())
		}
	} else if !value.IsZero() {
		return Receipt{}, fmt.Errorf("%w: native value attached to a stable purchase", model.ErrIncorrectPayment)
	}
	if err := ledger.CanMint(req.Tier, req.Amount); err != nil {
		return Receipt{}, err
	}

	// Effects first; every one of them is rolled back if the funds do not move.
	revertMint, err := ledger.Mint(req.Tier, req.Buyer, req.Amount)
	if err != nil {
		return Receipt{}, err
	}
	revertCredit := func() {}
	if !price.IsZero() {
		revertCredit, err = esc.Credit(p.address, req.Currency, price, req.Buyer, req.Tier)
		if err != nil {
			revertMint()
			return Receipt{}, err
		}
	}

	var moves []model.Transfer
	if !price.IsZero() {
		moves = append(moves, model.Transfer{Currency: req.Currency, From: caller, To: esc.Address(), Amount: price})
	}
	if !fee.IsZero() {
		moves = append(moves, model.Transfer{Currency: req.Currency, From: caller, To: p.wallet, Amount: fee})
	}
	if len(moves) > 0 {
		if req.Currency == model.CurrencyStable {
			err = p.payments.TransferFrom(ctx, p.address, moves...)
		} else {
			err = p.payments.Transfer(ctx, moves...)
		}
		if err != nil {
			revertCredit()
			revertMint()
			p.log.Warn("ticket payment failed",
				zap.Uint32("event_id", req.EventID),
				zap.Uint32("tier", req.Tier),
				zap.Stringer("currency", req.Currency),
				zap.Error(err),
			)
			if errors.Is(err, model.ErrTransferFailed) {
				return Receipt{}, err
			}
			return Receipt{}, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
		}
	}

	p.log.Info("ticket purchased",
		zap.Uint32("event_id", req.EventID),
		zap.Uint32("tier", req.Tier),
		zap.Uint64("quantity", req.Amount),
		zap.Stringer("currency", req.Currency),
		zap.String("amount", price.Dec()),
		zap.String("fee", fee.Dec()),
		zap.Stringer("buyer", req.Buyer),
	)
	return Receipt{
		EventID:  req.EventID,
		Tier:     req.Tier,
		Buyer:    req.Buyer,
		Payer:    caller,
		Currency: req.Currency,
		Amount:   req.Amount,
		Price:    price,
		Fee:      fee,
	}, nil
}

// quote returns price = unit*amount and fee = price*feeBps/10000, truncated.
func (p *Platform) quote(ledger *tickets.Ledger, tier uint32, c model.Currency, amount uint64) (price, fee *uint256.Int, err error) {
	unit, err := ledger.Quote(tier, c)
	if err != nil {
		return nil, nil, err
	}
	price, overflow := new(uint256.Int).MulOverflow(unit, uint256.NewInt(amount))
	if overflow {
		return nil, nil, model.ErrAmountOverflow
	}
	fee, _ = new(uint256.Int).MulDivOverflow(price, uint256.NewInt(uint64(p.feeBps)), uint256.NewInt(model.MaxBasisPoints))
	return price, fee, nil
}

// UseTicket redeems the ticket named by a signed use-ticket message.  The
// signer must hold a ticket of the tier; anyone may submit the signature.
// It returns the signer whose ticket was used.
func (p *Platform) UseTicket(ctx context.Context, message []byte, v byte, r, s [32]byte, caller common.Address) (common.Address, error) {
	msg, err := signature.DecodeUseTicketMessage(message)
	if err != nil {
		return common.Address{}, err
	}
	p.mu.Lock()
	signer, err := p.useTicket(msg, message, v, r, s)
	p.mu.Unlock()
	if err != nil {
		return common.Address{}, err
	}
	p.log.Info("ticket redemption submitted", zap.Stringer("submitter", caller), zap.Stringer("signer", signer))
	p.emit(ctx, model.Activity{Kind: model.ActivityTicketUsed, EventID: msg.EventID, Tier: msg.TierIndex, Actor: signer, Quantity: 1})
	return signer, nil
}

func (p *Platform) useTicket(msg signature.UseTicketMessage, raw []byte, v byte, r, s [32]byte) (common.Address, error) {
	if err := p.ready(); err != nil {
		return common.Address{}, err
	}
	if msg.Contract != p.events.Address() {
		return common.Address{}, fmt.Errorf("%w: message names contract %s", model.ErrMalformedMessage, msg.Contract.Hex())
	}
	signer, err := signature.RecoverSigner(raw, v, r, s)
	if err != nil {
		return common.Address{}, err
	}
	ev, err := p.events.Event(msg.EventID)
	if err != nil {
		return common.Address{}, err
	}
	// Cancelled events have refunded their buyers.
	if ev.Cancelled {
		return common.Address{}, model.ErrEventCancelled
	}
	ledger, err := p.events.Tickets(msg.EventID)
	if err != nil {
		return common.Address{}, err
	}
	if _, err := ledger.Tier(msg.TierIndex); err != nil {
		return common.Address{}, err
	}
	if ledger.BalanceOf(signer, msg.TierIndex) == 0 {
		return common.Address{}, model.ErrUnauthorizedSigner
	}
	if err := p.events.RecordTicketUse(p.address, msg.EventID, msg.TierIndex, signer); err != nil {
		return common.Address{}, err
	}
	return signer, nil
}

// CancelEvent cancels an event on behalf of its creator.
func (p *Platform) CancelEvent(ctx context.Context, eventID uint32, caller common.Address) error {
	p.mu.Lock()
	err := p.ready()
	if err == nil {
		err = p.events.CancelEvent(eventID, caller)
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(ctx, model.Activity{Kind: model.ActivityEventCancelled, EventID: eventID, Actor: caller})
	return nil
}

// Withdraw pays escrowed proceeds of an event to its creator.
func (p *Platform) Withdraw(ctx context.Context, eventID uint32, c model.Currency, amount *uint256.Int, caller common.Address) error {
	p.mu.Lock()
	err := p.withEscrow(eventID, func(e *escrow.Escrow) error {
		return e.Withdraw(ctx, c, amount, caller)
	})
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(ctx, model.Activity{
		Kind:     model.ActivityFundsWithdrawn,
		EventID:  eventID,
		Actor:    caller,
		Currency: c,
		Amount:   new(uint256.Int).Set(amount),
	})
	return nil
}

// ReturnFunds refunds the caller's contributions to a cancelled event.
func (p *Platform) ReturnFunds(ctx context.Context, eventID uint32, caller common.Address) (escrow.Refund, error) {
	var refund escrow.Refund
	p.mu.Lock()
	err := p.withEscrow(eventID, func(e *escrow.Escrow) (err error) {
		refund, err = e.ReturnFunds(ctx, caller)
		return err
	})
	p.mu.Unlock()
	if err != nil {
		return escrow.Refund{}, err
	}
	for _, leg := range []struct {
		c      model.Currency
		amount *uint256.Int
	}{{model.CurrencyStable, refund.Stable}, {model.CurrencyNative, refund.Native}} {
		if leg.amount.IsZero() {
			continue
		}
		p.emit(ctx, model.Activity{
			Kind:     model.ActivityFundsReturned,
			EventID:  eventID,
			Actor:    caller,
			Currency: leg.c,
			Amount:   leg.amount,
		})
	}
	return refund, nil
}

// withEscrow is called with p.mu held.
func (p *Platform) withEscrow(eventID uint32, fn func(*escrow.Escrow) error) error {
	if err := p.ready(); err != nil {
		return err
	}
	e, err := p.events.Escrow(eventID)
	if err != nil {
		return err
	}
	return fn(e)
}
