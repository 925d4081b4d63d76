package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MaxBasisPoints is 100% expressed in basis points.
const MaxBasisPoints = 10000

// Event is the registry's record of a created event.  Only Cancelled changes
// after creation, and only from false to true.
//
// Fields:
//
//	ID                 – sequential, zero-based event id.
//	Creator            – address that receives withdrawals.
//	MetadataURI        – opaque event metadata location.
//	NFTMetadataURI     – opaque metadata location of the event token.
//	Deadline           – unix seconds after which withdrawal limits lift.
//	PercentageWithdraw – share of lifetime credits withdrawable before the deadline, in bps.
//	Cancelled          – set by cancellation; enables refunds, disables withdrawals.
//	Escrow             – account holding the event's ticket proceeds.
//	Tickets            – ticket collection address in the ownership ledger.
type Event struct {
	ID                 uint32         `json:"id"`
	Creator            common.Address `json:"creator"`
	MetadataURI        string         `json:"eventMetadataUri"`
	NFTMetadataURI     string         `json:"NFTMetadataUri"`
	Deadline           int64          `json:"deadline"`
	PercentageWithdraw uint16         `json:"percentageWithdraw"`
	Cancelled          bool           `json:"cancelled"`
	Escrow             common.Address `json:"escrow"`
	Tickets            common.Address `json:"tickets"`
}

// EventSpec is the event part of a creation payload.
type EventSpec struct {
	Creator            common.Address
	MetadataURI        string
	NFTMetadataURI     string
	Deadline           int64
	PercentageWithdraw uint16
}

// TierSpec carries the flattened tier arrays of a creation payload.  Prices
// holds one [stable, native] pair per tier.
type TierSpec struct {
	MetadataURIs    []string
	NFTMetadataURIs []string
	Prices          []*uint256.Int
	MaxSupplies     []uint64
}

// CreateEventRequest is the full creation payload accepted by the platform.
type CreateEventRequest struct {
	Event EventSpec
	Tiers TierSpec
}

// TicketTier is an immutable ticket category of an event.
type TicketTier struct {
	EventID        uint32
	Index          uint32
	MaxSupply      uint64
	PriceStable    *uint256.Int
	PriceNative    *uint256.Int
	MetadataURI    string
	NFTMetadataURI string
}

// Price returns the tier price in the given currency.
func (t TicketTier) Price(c Currency) (*uint256.Int, error) {
	switch c {
	case CurrencyStable:
		return new(uint256.Int).Set(t.PriceStable), nil
	case CurrencyNative:
		return new(uint256.Int).Set(t.PriceNative), nil
	}
	return nil, ErrUnknownCurrency
}
