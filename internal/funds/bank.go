// Package funds is the in-process stand-in for the stable token and the
// native asset.  It keeps per-account balances for both currencies and
// ERC-20 style allowances for the stable token.  Every batch of transfers is
// applied all-or-nothing.
package funds

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

type account struct {
	currency model.Currency
	addr     common.Address
}

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// Bank holds balances and allowances.  It is safe for concurrent use.
type Bank struct {
	mu         sync.Mutex
	balances   map[account]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
}

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{
		balances:   make(map[account]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
	}
}

// BalanceOf returns a copy of the balance of addr in currency c.
func (b *Bank) BalanceOf(c model.Currency, addr common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance(account{c, addr})
}

// Mint credits amount to addr out of thin air.  It is the faucet used by
// development deployments and tests.
func (b *Bank) Mint(c model.Currency, to common.Address, amount *uint256.Int) error {
	if !c.Valid() {
		return model.ErrUnknownCurrency
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := account{c, to}
	sum, overflow := new(uint256.Int).AddOverflow(b.balance(k), amount)
	if overflow {
		return model.ErrAmountOverflow
	}
	b.balances[k] = sum
	return nil
}

// Approve sets the stable-token allowance of spender over owner's balance.
func (b *Bank) Approve(owner, spender common.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allowances[allowanceKey{owner, spender}] = new(uint256.Int).Set(amount)
}

// Allowance returns the remaining stable-token allowance.
func (b *Bank) Allowance(owner, spender common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allowance(allowanceKey{owner, spender})
}

// Transfer moves funds directly from each From account.  Either every move
// is applied or none is.
func (b *Bank) Transfer(ctx context.Context, moves ...model.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.apply(moves)
}

// TransferFrom moves stable tokens on behalf of spender, consuming the
// allowances each From account granted to spender.  Either every move is
// applied or none is.
func (b *Bank) TransferFrom(ctx context.Context, spender common.Address, moves ...model.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	need := make(map[allowanceKey]*uint256.Int)
	for _, m := range moves {
		if m.Currency != model.CurrencyStable {
			return fmt.Errorf("%w: allowance transfers are stable-only", model.ErrTransferFailed)
		}
		if m.Amount == nil {
			return model.ErrInvalidAmount
		}
		k := allowanceKey{m.From, spender}
		sum, ok := need[k]
		if !ok {
			sum = new(uint256.Int)
		}
		if _, overflow := sum.AddOverflow(sum, m.Amount); overflow {
			return model.ErrAmountOverflow
		}
		need[k] = sum
	}
	for k, amt := range need {
		if b.allowance(k).Lt(amt) {
			return fmt.Errorf("%w: allowance of %s for %s below %s", model.ErrTransferFailed, k.owner.Hex(), k.spender.Hex(), amt.Dec())
		}
	}
	if err := b.apply(moves); err != nil {
		return err
	}
	for k, amt := range need {
		b.allowances[k] = new(uint256.Int).Sub(b.allowance(k), amt)
	}
	return nil
}

// apply stages every move on copies of the touched balances and commits
// only if all of them succeed.  Callers hold b.mu.
func (b *Bank) apply(moves []model.Transfer) error {
	staged := make(map[account]*uint256.Int)
	get := func(k account) *uint256.Int {
		if v, ok := staged[k]; ok {
			return v
		}
		v := b.balance(k)
		staged[k] = v
		return v
	}
	for _, m := range moves {
		if !m.Currency.Valid() {
			return model.ErrUnknownCurrency
		}
		if m.Amount == nil {
			return model.ErrInvalidAmount
		}
		from := get(account{m.Currency, m.From})
		if from.Lt(m.Amount) {
			return fmt.Errorf("%w: %s balance of %s below %s", model.ErrTransferFailed, m.Currency, m.From.Hex(), m.Amount.Dec())
		}
		from.Sub(from, m.Amount)
		to := get(account{m.Currency, m.To})
		if _, overflow := to.AddOverflow(to, m.Amount); overflow {
			return fmt.Errorf("%w: %v", model.ErrTransferFailed, model.ErrAmountOverflow)
		}
	}
	for k, v := range staged {
		b.balances[k] = v
	}
	return nil
}

func (b *Bank) balance(k account) *uint256.Int {
	if v, ok := b.balances[k]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

func (b *Bank) allowance(k allowanceKey) *uint256.Int {
	if v, ok := b.allowances[k]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}
