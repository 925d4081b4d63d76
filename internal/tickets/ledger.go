// Package tickets keeps the ticket tiers of one event: supply caps, dual
// prices, minted counters and per-holder redemption flags.
package tickets

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// Ownership is the token ledger tickets are minted into.
type Ownership interface {
	Mint(collection, holder common.Address, tokenID, amount uint64) error
	Burn(collection, holder common.Address, tokenID, amount uint64)
	BalanceOf(collection, holder common.Address, tokenID uint64) uint64
}

type usedKey struct {
	tier   uint32
	holder common.Address
}

// Ledger is the ticket collection of a single event.  The token id of a
// ticket is its tier index inside the collection.  A Ledger does no locking;
// the platform serializes access.
type Ledger struct {
	eventID    uint32
	collection common.Address
	book       Ownership

	created bool
	tiers   []model.TicketTier
	minted  []uint64
	used    map[usedKey]bool
}

// New returns an empty ledger for eventID whose tokens live in collection.
func New(eventID uint32, collection common.Address, book Ownership) *Ledger {
	return &Ledger{
		eventID:    eventID,
		collection: collection,
		book:       book,
		used:       make(map[usedKey]bool),
	}
}

// Collection is the address of the ticket collection.
func (l *Ledger) Collection() common.Address { return l.collection }

// ValidateTierSpec checks that the flat arrays describe whole tiers: one
// [stable, native] price pair and one metadata pair per supply entry.
func ValidateTierSpec(spec model.TierSpec) error {
	n := len(spec.MaxSupplies)
	if len(spec.Prices) != 2*n {
		return fmt.Errorf("%w: %d prices for %d tiers", model.ErrInvalidTierSpec, len(spec.Prices), n)
	}
	if len(spec.MetadataURIs) != n || len(spec.NFTMetadataURIs) != n {
		return fmt.Errorf("%w: metadata uris do not match %d tiers", model.ErrInvalidTierSpec, n)
	}
	for i, p := range spec.Prices {
		if p == nil {
			return fmt.Errorf("%w: price %d missing", model.ErrInvalidTierSpec, i)
		}
	}
	if uint64(n) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: too many tiers", model.ErrInvalidTierSpec)
	}
	return nil
}

// CreateTiers creates every tier of spec with a minted count of zero.  Tiers
// can be created only once.
func (l *Ledger) CreateTiers(spec model.TierSpec) error {
	if l.created {
		return fmt.Errorf("%w: tiers already created", model.ErrInvalidTierSpec)
	}
	if err := ValidateTierSpec(spec); err != nil {
		return err
	}
	n := len(spec.MaxSupplies)
	tiers := make([]model.TicketTier, n)
	for i := 0; i < n; i++ {
		tiers[i] = model.TicketTier{
			EventID:        l.eventID,
			Index:          uint32(i),
			MaxSupply:      spec.MaxSupplies[i],
			PriceStable:    new(uint256.Int).Set(spec.Prices[2*i]),
			PriceNative:    new(uint256.Int).Set(spec.Prices[2*i+1]),
			MetadataURI:    spec.MetadataURIs[i],
			NFTMetadataURI: spec.NFTMetadataURIs[i],
		}
	}
	l.tiers = tiers
	l.minted = make([]uint64, n)
	l.created = true
	return nil
}

// Tier returns a copy of tier i.
func (l *Ledger) Tier(i uint32) (model.TicketTier, error) {
	if int(i) >= len(l.tiers) {
		return model.TicketTier{}, fmt.Errorf("%w: %d", model.ErrUnknownTier, i)
	}
	t := l.tiers[i]
	t.PriceStable = new(uint256.Int).Set(t.PriceStable)
	t.PriceNative = new(uint256.Int).Set(t.PriceNative)
	return t, nil
}

// Tiers returns copies of every tier in index order.
func (l *Ledger) Tiers() []model.TicketTier {
	out := make([]model.TicketTier, 0, len(l.tiers))
	for i := range l.tiers {
		t, _ := l.Tier(uint32(i))
		out = append(out, t)
	}
	return out
}

// Quote is the unit price of tier i in currency c.
func (l *Ledger) Quote(i uint32, c model.Currency) (*uint256.Int, error) {
	t, err := l.Tier(i)
	if err != nil {
		return nil, err
	}
	return t.Price(c)
}

// Minted returns how many tickets of tier i have been minted.
func (l *Ledger) Minted(i uint32) (uint64, error) {
	if int(i) >= len(l.tiers) {
		return 0, fmt.Errorf("%w: %d", model.ErrUnknownTier, i)
	}
	return l.minted[i], nil
}

// CanMint reports whether amount more tickets of tier i fit under the cap.
func (l *Ledger) CanMint(i uint32, amount uint64) error {
	if int(i) >= len(l.tiers) {
		return fmt.Errorf("%w: %d", model.ErrUnknownTier, i)
	}
	if amount == 0 {
		return model.ErrInvalidAmount
	}
	m := l.minted[i]
	if m+amount < m || m+amount > l.tiers[i].MaxSupply {
		return fmt.Errorf("%w: tier %d has %d of %d left", model.ErrSupplyExceeded, i, l.tiers[i].MaxSupply-m, l.tiers[i].MaxSupply)
	}
	return nil
}

// Mint issues amount tickets of tier i to holder.  The returned func undoes
// the mint and must be called only if the enclosing operation fails before
// it returns.
func (l *Ledger) Mint(i uint32, holder common.Address, amount uint64) (revert func(), err error) {
	if err := l.CanMint(i, amount); err != nil {
		return nil, err
	}
	if err := l.book.Mint(l.collection, holder, uint64(i), amount); err != nil {
		return nil, err
	}
	l.minted[i] += amount
	return func() {
		l.minted[i] -= amount
		l.book.Burn(l.collection, holder, uint64(i), amount)
	}, nil
}

// BalanceOf returns how many tickets of tier i holder owns.
func (l *Ledger) BalanceOf(holder common.Address, i uint32) uint64 {
	return l.book.BalanceOf(l.collection, holder, uint64(i))
}

// MarkUsed records the redemption of holder's ticket of tier i.  A holder
// redeems a tier at most once.
func (l *Ledger) MarkUsed(i uint32, holder common.Address) error {
	if int(i) >= len(l.tiers) {
		return fmt.Errorf("%w: %d", model.ErrUnknownTier, i)
	}
	k := usedKey{i, holder}
	if l.used[k] {
		return model.ErrAlreadyUsed
	}
	l.used[k] = true
	return nil
}

// Used reports whether holder has redeemed tier i.
func (l *Ledger) Used(i uint32, holder common.Address) bool {
	return l.used[usedKey{i, holder}]
}
