// Package ownership is the in-process token ownership ledger for event and
// ticket collections.  Balances are keyed by (collection, holder, tokenID).
package ownership

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

type key struct {
	collection common.Address
	holder     common.Address
	tokenID    uint64
}

// Book is safe for concurrent use.
type Book struct {
	mu       sync.RWMutex
	balances map[key]uint64
}

func NewBook() *Book {
	return &Book{balances: make(map[key]uint64)}
}

// Mint credits amount tokens of tokenID in collection to holder.
func (b *Book) Mint(collection, holder common.Address, tokenID, amount uint64) error {
	if holder == (common.Address{}) {
		return model.ErrInvalidAddress
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key{collection, holder, tokenID}
	if b.balances[k]+amount < b.balances[k] {
		return model.ErrAmountOverflow
	}
	b.balances[k] += amount
	return nil
}

// Burn removes amount tokens; it is used to roll back a mint whose purchase
// failed.
func (b *Book) Burn(collection, holder common.Address, tokenID, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key{collection, holder, tokenID}
	if b.balances[k] <= amount {
		delete(b.balances, k)
		return
	}
	b.balances[k] -= amount
}

// BalanceOf returns how many tokens of tokenID holder owns in collection.
func (b *Book) BalanceOf(collection, holder common.Address, tokenID uint64) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[key{collection, holder, tokenID}]
}

// TokensOf lists the token ids holder owns in collection, ascending.
func (b *Book) TokensOf(collection, holder common.Address) []uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var ids []uint64
	for k, n := range b.balances {
		if k.collection == collection && k.holder == holder && n > 0 {
			ids = append(ids, k.tokenID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the total number of tokens holder owns in collection.
func (b *Book) Count(collection, holder common.Address) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var n uint64
	for k, v := range b.balances {
		if k.collection == collection && k.holder == holder {
			n += v
		}
	}
	return n
}
