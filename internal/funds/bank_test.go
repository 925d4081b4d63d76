package funds

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

var (
	alice   = common.HexToAddress("0xa1")
	bob     = common.HexToAddress("0xb0")
	carol   = common.HexToAddress("0xc0")
	spender = common.HexToAddress("0x5e")
)

func u(n uint64) *uint256.Int { return uint256.NewInt(n) }

func TestTransferIsAllOrNothing(t *testing.T) {
	b := NewBank()
	require.NoError(t, b.Mint(model.CurrencyNative, alice, u(100)))

	err := b.Transfer(context.Background(),
		model.Transfer{Currency: model.CurrencyNative, From: alice, To: bob, Amount: u(60)},
		model.Transfer{Currency: model.CurrencyNative, From: alice, To: carol, Amount: u(60)},
	)
	assert.ErrorIs(t, err, model.ErrTransferFailed)
	assert.Equal(t, u(100), b.BalanceOf(model.CurrencyNative, alice))
	assert.True(t, b.BalanceOf(model.CurrencyNative, bob).IsZero())
	assert.True(t, b.BalanceOf(model.CurrencyNative, carol).IsZero())

	require.NoError(t, b.Transfer(context.Background(),
		model.Transfer{Currency: model.CurrencyNative, From: alice, To: bob, Amount: u(60)},
		model.Transfer{Currency: model.CurrencyNative, From: alice, To: carol, Amount: u(40)},
	))
	assert.True(t, b.BalanceOf(model.CurrencyNative, alice).IsZero())
	assert.Equal(t, u(60), b.BalanceOf(model.CurrencyNative, bob))
	assert.Equal(t, u(40), b.BalanceOf(model.CurrencyNative, carol))
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	b := NewBank()
	require.NoError(t, b.Mint(model.CurrencyStable, alice, u(1000)))
	b.Approve(alice, spender, u(150))

	require.NoError(t, b.TransferFrom(context.Background(), spender,
		model.Transfer{Currency: model.CurrencyStable, From: alice, To: bob, Amount: u(100)},
		model.Transfer{Currency: model.CurrencyStable, From: alice, To: carol, Amount: u(10)},
	))
	assert.Equal(t, u(40), b.Allowance(alice, spender))
	assert.Equal(t, u(890), b.BalanceOf(model.CurrencyStable, alice))

	err := b.TransferFrom(context.Background(), spender,
		model.Transfer{Currency: model.CurrencyStable, From: alice, To: bob, Amount: u(41)},
	)
	assert.ErrorIs(t, err, model.ErrTransferFailed)
	assert.Equal(t, u(40), b.Allowance(alice, spender))
	assert.Equal(t, u(100), b.BalanceOf(model.CurrencyStable, bob))
}

func TestTransferFromRejectsNative(t *testing.T) {
	b := NewBank()
	require.NoError(t, b.Mint(model.CurrencyNative, alice, u(10)))
	err := b.TransferFrom(context.Background(), spender,
		model.Transfer{Currency: model.CurrencyNative, From: alice, To: bob, Amount: u(1)},
	)
	assert.ErrorIs(t, err, model.ErrTransferFailed)
}

func TestTransferHonoursCancelledContext(t *testing.T) {
	b := NewBank()
	require.NoError(t, b.Mint(model.CurrencyNative, alice, u(10)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Transfer(ctx, model.Transfer{Currency: model.CurrencyNative, From: alice, To: bob, Amount: u(1)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, u(10), b.BalanceOf(model.CurrencyNative, alice))
}
