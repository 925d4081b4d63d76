// Package registry is the arena of events.  Each event owns one escrow and
// one ticket ledger; both keep only the event id and look lifecycle facts up
// here through EventState.
package registry

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/escrow"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/tickets"
)

// Ownership is the token ledger event and ticket tokens are minted into.
type Ownership interface {
	tickets.Ownership
	Count(collection, holder common.Address) uint64
	TokensOf(collection, holder common.Address) []uint64
}

// Options configures a Registry.  Address doubles as the collection of
// event tokens.
type Options struct {
	Address   common.Address
	Platform  common.Address
	Ownership Ownership
	Payments  escrow.Payments
	Clock     clock.Clock
	Logger    *zap.Logger
}

type record struct {
	event  model.Event
	escrow *escrow.Escrow
	ledger *tickets.Ledger
}

// Registry does no locking; the platform serializes every call.
type Registry struct {
	address  common.Address
	platform common.Address
	book     Ownership
	payments escrow.Payments
	clock    clock.Clock
	log      *zap.Logger

	events []*record
}

func New(opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Registry{
		address:  opts.Address,
		platform: opts.Platform,
		book:     opts.Ownership,
		payments: opts.Payments,
		clock:    opts.Clock,
		log:      opts.Logger,
	}
}

// Address is the registry's own address, which is also the collection
// address of event tokens and the contract field of use-ticket messages.
func (r *Registry) Address() common.Address { return r.address }

// Platform is the only origin allowed to create events and record usage.
func (r *Registry) Platform() common.Address { return r.platform }

// derive computes a stable account address for a per-event component.
func (r *Registry) derive(kind string, id uint32) common.Address {
	var idb [4]byte
	binary.BigEndian.PutUint32(idb[:], id)
	h := crypto.Keccak256(r.address.Bytes(), []byte(kind), idb[:])
	return common.BytesToAddress(h[12:])
}

// ValidateEventSpec checks a creation payload against the current time.
func ValidateEventSpec(spec model.EventSpec, now int64) error {
	switch {
	case spec.Creator == (common.Address{}):
		return fmt.Errorf("%w: creator missing", model.ErrInvalidEventSpec)
	case spec.MetadataURI == "" || spec.NFTMetadataURI == "":
		return fmt.Errorf("%w: metadata uri missing", model.ErrInvalidEventSpec)
	case spec.Deadline <= now:
		return fmt.Errorf("%w: deadline must be in the future", model.ErrInvalidEventSpec)
	case spec.PercentageWithdraw > model.MaxBasisPoints:
		return fmt.Errorf("%w: percentage withdraw above %d", model.ErrInvalidEventSpec, model.MaxBasisPoints)
	}
	return nil
}

// CreateEvent allocates the next event id together with its escrow and
// ticket ledger, and mints the event token to the creator.
func (r *Registry) CreateEvent(ctx context.Context, origin common.Address, spec model.EventSpec) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	if origin != r.platform {
		return model.Event{}, model.ErrUnauthorized
	}
	if err := ValidateEventSpec(spec, r.clock.Now().Unix()); err != nil {
		return model.Event{}, err
	}
	if uint64(len(r.events)) > uint64(^uint32(0)) {
		return model.Event{}, fmt.Errorf("%w: event ids exhausted", model.ErrInvalidEventSpec)
	}

	id := uint32(len(r.events))
	ev := model.Event{
		ID:                 id,
		Creator:            spec.Creator,
		MetadataURI:        spec.MetadataURI,
		NFTMetadataURI:     spec.NFTMetadataURI,
		Deadline:           spec.Deadline,
		PercentageWithdraw: spec.PercentageWithdraw,
		Escrow:             r.derive("escrow", id),
		Tickets:            r.derive("tickets", id),
	}
	if err := r.book.Mint(r.address, spec.Creator, uint64(id), 1); err != nil {
		return model.Event{}, err
	}
	rec := &record{
		event: ev,
		escrow: escrow.New(escrow.Options{
			EventID:   id,
			Address:   ev.Escrow,
			Platform:  r.platform,
			Lifecycle: r,
			Payments:  r.payments,
			Clock:     r.clock,
			Logger:    r.log,
		}),
		ledger: tickets.New(id, ev.Tickets, r.book),
	}
	r.events = append(r.events, rec)

	r.log.Info("event created",
		zap.Uint32("event_id", id),
		zap.Stringer("creator", spec.Creator),
		zap.Int64("deadline", spec.Deadline),
	)
	return ev, nil
}

func (r *Registry) get(id uint32) (*record, error) {
	if int(id) >= len(r.events) {
		return nil, fmt.Errorf("%w: %d", model.ErrUnknownEvent, id)
	}
	return r.events[id], nil
}

// CreateTiers creates the ticket tiers of an event.
func (r *Registry) CreateTiers(origin common.Address, eventID uint32, spec model.TierSpec) error {
	if origin != r.platform {
		return model.ErrUnauthorized
	}
	rec, err := r.get(eventID)
	if err != nil {
		return err
	}
	return rec.ledger.CreateTiers(spec)
}

// CancelEvent flags an event cancelled.  Only the creator may cancel, and
// only before the deadline.
func (r *Registry) CancelEvent(eventID uint32, caller common.Address) error {
	rec, err := r.get(eventID)
	if err != nil {
		return err
	}
	if caller != rec.event.Creator {
		return model.ErrUnauthorized
	}
	if rec.event.Cancelled {
		return model.ErrAlreadyCancelled
	}
	if r.clock.Now().Unix() >= rec.event.Deadline {
		return model.ErrDeadlinePassed
	}
	rec.event.Cancelled = true
	r.log.Info("event cancelled", zap.Uint32("event_id", eventID))
	return nil
}

// RecordTicketUse marks holder's ticket of tier as used.
func (r *Registry) RecordTicketUse(origin common.Address, eventID, tier uint32, holder common.Address) error {
	if origin != r.platform {
		return model.ErrUnauthorized
	}
	rec, err := r.get(eventID)
	if err != nil {
		return err
	}
	if err := rec.ledger.MarkUsed(tier, holder); err != nil {
		return err
	}
	r.log.Info("ticket used",
		zap.Uint32("event_id", eventID),
		zap.Uint32("tier", tier),
		zap.Stringer("holder", holder),
	)
	return nil
}

// TicketsUsed reports whether holder has used their ticket of tier.
func (r *Registry) TicketsUsed(eventID, tier uint32, holder common.Address) (bool, error) {
	rec, err := r.get(eventID)
	if err != nil {
		return false, err
	}
	if _, err := rec.ledger.Tier(tier); err != nil {
		return false, err
	}
	return rec.ledger.Used(tier, holder), nil
}

// GetEventRange returns events from..to inclusive.
func (r *Registry) GetEventRange(from, to uint32) ([]model.Event, error) {
	if from > to || int(to) >= len(r.events) {
		return nil, fmt.Errorf("%w: [%d, %d] of %d events", model.ErrOutOfRange, from, to, len(r.events))
	}
	out := make([]model.Event, 0, to-from+1)
	for i := from; ; i++ {
		out = append(out, r.events[i].event)
		if i == to {
			break
		}
	}
	return out, nil
}

// TotalEvents is the number of events ever created.
func (r *Registry) TotalEvents() uint32 { return uint32(len(r.events)) }

// Event returns a copy of one event.
func (r *Registry) Event(id uint32) (model.Event, error) {
	rec, err := r.get(id)
	if err != nil {
		return model.Event{}, err
	}
	return rec.event, nil
}

// BalanceOf is the number of event tokens holder owns.
func (r *Registry) BalanceOf(holder common.Address) uint64 {
	return r.book.Count(r.address, holder)
}

// EventsOf lists the events whose token holder owns, in id order.
func (r *Registry) EventsOf(holder common.Address) []model.Event {
	var out []model.Event
	for _, id := range r.book.TokensOf(r.address, holder) {
		if rec, err := r.get(uint32(id)); err == nil {
			out = append(out, rec.event)
		}
	}
	return out
}

// EventState implements escrow.Lifecycle.
func (r *Registry) EventState(id uint32) (escrow.State, error) {
	rec, err := r.get(id)
	if err != nil {
		return escrow.State{}, err
	}
	return escrow.State{
		Creator:            rec.event.Creator,
		Deadline:           rec.event.Deadline,
		PercentageWithdraw: rec.event.PercentageWithdraw,
		Cancelled:          rec.event.Cancelled,
	}, nil
}

// Escrow returns the escrow of an event.
func (r *Registry) Escrow(id uint32) (*escrow.Escrow, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return rec.escrow, nil
}

// Tickets returns the ticket ledger of an event.
func (r *Registry) Tickets(id uint32) (*tickets.Ledger, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return rec.ledger, nil
}
