package tickets

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/ownership"
)

var (
	collection = common.HexToAddress("0x7c")
	buyer      = common.HexToAddress("0xb1")
)

func twoTiers() model.TierSpec {
	return model.TierSpec{
		MetadataURIs:    []string{"ipfs://TicketMetadata1", "ipfs://TicketMetadata2"},
		NFTMetadataURIs: []string{"ipfs://TicketNFTMetadata1", "ipfs://TicketNFTMetadata2"},
		Prices:          []*uint256.Int{uint256.NewInt(100), uint256.NewInt(1000), uint256.NewInt(200), uint256.NewInt(2000)},
		MaxSupplies:     []uint64{100, 2},
	}
}

func newLedger(t *testing.T) (*Ledger, *ownership.Book) {
	t.Helper()
	book := ownership.NewBook()
	l := New(0, collection, book)
	require.NoError(t, l.CreateTiers(twoTiers()))
	return l, book
}

func TestValidateTierSpec(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.TierSpec)
	}{
		{"odd prices", func(s *model.TierSpec) { s.Prices = s.Prices[:3] }},
		{"missing metadata", func(s *model.TierSpec) { s.MetadataURIs = s.MetadataURIs[:1] }},
		{"missing nft metadata", func(s *model.TierSpec) { s.NFTMetadataURIs = nil }},
		{"nil price", func(s *model.TierSpec) { s.Prices[1] = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := twoTiers()
			tt.mutate(&spec)
			assert.ErrorIs(t, ValidateTierSpec(spec), model.ErrInvalidTierSpec)
		})
	}
	assert.NoError(t, ValidateTierSpec(twoTiers()))
}

func TestCreateTiersOnlyOnce(t *testing.T) {
	l, _ := newLedger(t)
	assert.ErrorIs(t, l.CreateTiers(twoTiers()), model.ErrInvalidTierSpec)
	assert.Len(t, l.Tiers(), 2)
}

func TestQuote(t *testing.T) {
	l, _ := newLedger(t)

	p, err := l.Quote(1, model.CurrencyStable)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(200), p)

	p, err = l.Quote(1, model.CurrencyNative)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(2000), p)

	_, err = l.Quote(2, model.CurrencyStable)
	assert.ErrorIs(t, err, model.ErrUnknownTier)
	_, err = l.Quote(0, model.Currency(9))
	assert.ErrorIs(t, err, model.ErrUnknownCurrency)
}

func TestMintRespectsSupplyAndReverts(t *testing.T) {
	l, book := newLedger(t)

	_, err := l.Mint(1, buyer, 3)
	assert.ErrorIs(t, err, model.ErrSupplyExceeded)

	revert, err := l.Mint(1, buyer, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), l.BalanceOf(buyer, 1))
	assert.Equal(t, uint64(2), book.BalanceOf(collection, buyer, 1))

	_, err = l.Mint(1, buyer, 1)
	assert.ErrorIs(t, err, model.ErrSupplyExceeded)

	revert()
	minted, err := l.Minted(1)
	require.NoError(t, err)
	assert.Zero(t, minted)
	assert.Zero(t, l.BalanceOf(buyer, 1))

	_, err = l.Mint(0, buyer, 0)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestMarkUsedOnce(t *testing.T) {
	l, _ := newLedger(t)

	assert.False(t, l.Used(0, buyer))
	require.NoError(t, l.MarkUsed(0, buyer))
	assert.True(t, l.Used(0, buyer))

	assert.ErrorIs(t, l.MarkUsed(0, buyer), model.ErrAlreadyUsed)
	assert.True(t, l.Used(0, buyer))

	assert.False(t, l.Used(1, buyer))
	assert.ErrorIs(t, l.MarkUsed(5, buyer), model.ErrUnknownTier)
}

func TestTierCopiesArePrivate(t *testing.T) {
	l, _ := newLedger(t)
	tier, err := l.Tier(0)
	require.NoError(t, err)
	tier.PriceStable.SetUint64(1)

	p, err := l.Quote(0, model.CurrencyStable)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(100), p)
}
