package platform

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/iliyamo/ticket-marketplace/internal/escrow"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/registry"
)

// read runs fn under the read lock once the registries are configured.
func (p *Platform) read(fn func(events *registry.Registry) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.ready(); err != nil {
		return err
	}
	return fn(p.events)
}

// GetEventRange returns events from..to inclusive.
func (p *Platform) GetEventRange(from, to uint32) (evs []model.Event, err error) {
	err = p.read(func(r *registry.Registry) error {
		evs, err = r.GetEventRange(from, to)
		return err
	})
	return evs, err
}

func (p *Platform) TotalEvents() (n uint32, err error) {
	err = p.read(func(r *registry.Registry) error {
		n = r.TotalEvents()
		return nil
	})
	return n, err
}

func (p *Platform) Event(id uint32) (ev model.Event, err error) {
	err = p.read(func(r *registry.Registry) error {
		ev, err = r.Event(id)
		return err
	})
	return ev, err
}

// TicketsUsed reports whether holder has used their ticket of a tier.
func (p *Platform) TicketsUsed(eventID, tier uint32, holder common.Address) (used bool, err error) {
	err = p.read(func(r *registry.Registry) error {
		used, err = r.TicketsUsed(eventID, tier, holder)
		return err
	})
	return used, err
}

// Quote is the total price and fee of amount tickets of a tier.
func (p *Platform) Quote(eventID, tier uint32, c model.Currency, amount uint64) (price, fee *uint256.Int, err error) {
	if amount == 0 {
		return nil, nil, model.ErrInvalidAmount
	}
	err = p.read(func(r *registry.Registry) error {
		ledger, err := r.Tickets(eventID)
		if err != nil {
			return err
		}
		price, fee, err = p.quote(ledger, tier, c, amount)
		return err
	})
	return price, fee, err
}

// Tiers lists the ticket tiers of an event with their minted counts.
func (p *Platform) Tiers(eventID uint32) (tiers []model.TicketTier, minted []uint64, err error) {
	err = p.read(func(r *registry.Registry) error {
		ledger, err := r.Tickets(eventID)
		if err != nil {
			return err
		}
		tiers = ledger.Tiers()
		minted = make([]uint64, len(tiers))
		for i := range tiers {
			minted[i], _ = ledger.Minted(uint32(i))
		}
		return nil
	})
	return tiers, minted, err
}

// BalanceOf is the number of event tokens holder owns.
func (p *Platform) BalanceOf(holder common.Address) (n uint64, err error) {
	err = p.read(func(r *registry.Registry) error {
		n = r.BalanceOf(holder)
		return nil
	})
	return n, err
}

// EventsOf lists the events whose token holder owns.
func (p *Platform) EventsOf(holder common.Address) (evs []model.Event, err error) {
	err = p.read(func(r *registry.Registry) error {
		evs = r.EventsOf(holder)
		return nil
	})
	return evs, err
}

// TicketBalance is the number of tickets of a tier holder owns.
func (p *Platform) TicketBalance(eventID, tier uint32, holder common.Address) (n uint64, err error) {
	err = p.read(func(r *registry.Registry) error {
		ledger, err := r.Tickets(eventID)
		if err != nil {
			return err
		}
		if _, err := ledger.Tier(tier); err != nil {
			return err
		}
		n = ledger.BalanceOf(holder, tier)
		return nil
	})
	return n, err
}

func (p *Platform) EscrowSnapshot(eventID uint32) (s escrow.Snapshot, err error) {
	err = p.read(func(r *registry.Registry) error {
		e, err := r.Escrow(eventID)
		if err != nil {
			return err
		}
		s, err = e.Snapshot()
		return err
	})
	return s, err
}

// User returns the profile of addr.
func (p *Platform) User(ctx context.Context, addr common.Address) (model.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.ready(); err != nil {
		return model.User{}, err
	}
	return p.users.Lookup(ctx, addr)
}
