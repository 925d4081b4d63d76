// Package escrow holds the ticket proceeds of one event until the creator
// withdraws them or, after cancellation, buyers take them back.
//
// Withdrawals before the deadline are capped at PercentageWithdraw of the
// lifetime credits minus what was already withdrawn; after the deadline the
// whole balance is available.  Cancellation disables creator withdrawals for
// good and enables refunds of each buyer's recorded contributions.
package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// State is the slice of event lifecycle the escrow needs.
type State struct {
	Creator            common.Address
	Deadline           int64
	PercentageWithdraw uint16
	Cancelled          bool
}

// Lifecycle is the read-only accessor the escrow uses to look up the state
// of its event.
type Lifecycle interface {
	EventState(eventID uint32) (State, error)
}

// Payments moves funds out of the escrow account.
type Payments interface {
	Transfer(ctx context.Context, moves ...model.Transfer) error
}

// Options configures a new Escrow.  Logger and Clock default to a no-op
// logger and the wall clock.
type Options struct {
	EventID   uint32
	Address   common.Address
	Platform  common.Address
	Lifecycle Lifecycle
	Payments  Payments
	Clock     clock.Clock
	Logger    *zap.Logger
}

type contribution struct {
	tier     uint32
	currency model.Currency
}

// Escrow does no locking; the platform serializes every call.
type Escrow struct {
	eventID   uint32
	address   common.Address
	platform  common.Address
	lifecycle Lifecycle
	payments  Payments
	clock     clock.Clock
	log       *zap.Logger

	balance   [len(model.Currencies)]uint256.Int
	credited  [len(model.Currencies)]uint256.Int
	withdrawn [len(model.Currencies)]uint256.Int

	contributions map[common.Address]map[contribution]*uint256.Int
}

func New(opts Options) *Escrow {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Escrow{
		eventID:       opts.EventID,
		address:       opts.Address,
		platform:      opts.Platform,
		lifecycle:     opts.Lifecycle,
		payments:      opts.Payments,
		clock:         opts.Clock,
		log:           opts.Logger.With(zap.Uint32("event_id", opts.EventID)),
		contributions: make(map[common.Address]map[contribution]*uint256.Int),
	}
}

// Address is the account that holds the escrowed funds.
func (e *Escrow) Address() common.Address { return e.address }

// Credit books amount paid by buyer for tier.  Only the platform may credit.
// The returned func undoes the credit and must be called only if the
// enclosing purchase fails.
func (e *Escrow) Credit(origin common.Address, c model.Currency, amount *uint256.Int, buyer common.Address, tier uint32) (revert func(), err error) {
	if origin != e.platform {
		return nil, model.ErrUnauthorized
	}
	if !c.Valid() {
		return nil, model.ErrUnknownCurrency
	}
	if amount == nil || amount.IsZero() {
		return nil, model.ErrInvalidAmount
	}
	newBalance, o1 := new(uint256.Int).AddOverflow(&e.balance[c], amount)
	newCredited, o2 := new(uint256.Int).AddOverflow(&e.credited[c], amount)
	if o1 || o2 {
		return nil, model.ErrAmountOverflow
	}
	key := contribution{tier: tier, currency: c}
	byBuyer := e.contributions[buyer]
	prev := new(uint256.Int)
	if byBuyer != nil && byBuyer[key] != nil {
		prev.Set(byBuyer[key])
	}
	newContribution, o3 := new(uint256.Int).AddOverflow(prev, amount)
	if o3 {
		return nil, model.ErrAmountOverflow
	}

	if byBuyer == nil {
		byBuyer = make(map[contribution]*uint256.Int)
		e.contributions[buyer] = byBuyer
	}
	byBuyer[key] = newContribution
	e.balance[c].Set(newBalance)
	e.credited[c].Set(newCredited)

	credit := new(uint256.Int).Set(amount)
	return func() {
		e.balance[c].Sub(&e.balance[c], credit)
		e.credited[c].Sub(&e.credited[c], credit)
		left := new(uint256.Int).Sub(e.contributions[buyer][key], credit)
		if left.IsZero() {
			delete(e.contributions[buyer], key)
			if len(e.contributions[buyer]) == 0 {
				delete(e.contributions, buyer)
			}
			return
		}
		e.contributions[buyer][key] = left
	}, nil
}

// Withdrawable is what the creator could withdraw in currency c right now.
func (e *Escrow) Withdrawable(c model.Currency) (*uint256.Int, error) {
	if !c.Valid() {
		return nil, model.ErrUnknownCurrency
	}
	st, err := e.lifecycle.EventState(e.eventID)
	if err != nil {
		return nil, err
	}
	if st.Cancelled {
		return new(uint256.Int), nil
	}
	return e.withdrawable(st, c), nil
}

func (e *Escrow) withdrawable(st State, c model.Currency) *uint256.Int {
	balance := new(uint256.Int).Set(&e.balance[c])
	if e.deadlinePassed(st) {
		return balance
	}
	limit := e.preDeadlineLimit(st, c)
	if limit.Gt(balance) {
		return balance
	}
	return limit
}

// preDeadlineLimit is pct/10000 of lifetime credits minus what was already
// withdrawn, floored at zero.
func (e *Escrow) preDeadlineLimit(st State, c model.Currency) *uint256.Int {
	limit, _ := new(uint256.Int).MulDivOverflow(&e.credited[c], uint256.NewInt(uint64(st.PercentageWithdraw)), uint256.NewInt(model.MaxBasisPoints))
	if limit.Lt(&e.withdrawn[c]) {
		return new(uint256.Int)
	}
	return limit.Sub(limit, &e.withdrawn[c])
}

func (e *Escrow) deadlinePassed(st State) bool {
	return e.clock.Now().Unix() >= st.Deadline
}

// Withdraw pays amount of currency c to the event creator.
func (e *Escrow) Withdraw(ctx context.Context, c model.Currency, amount *uint256.Int, caller common.Address) error {
	st, err := e.lifecycle.EventState(e.eventID)
	if err != nil {
		return err
	}
	if caller != st.Creator {
		return model.ErrUnauthorized
	}
	if st.Cancelled {
		return model.ErrEventCancelled
	}
	if !c.Valid() {
		return model.ErrUnknownCurrency
	}
	if amount == nil || amount.IsZero() {
		return model.ErrInvalidAmount
	}
	if !e.deadlinePassed(st) {
		if limit := e.preDeadlineLimit(st, c); amount.Gt(limit) {
			return fmt.Errorf("%w: %s of %s available", model.ErrWithdrawLimitExceeded, limit.Dec(), c)
		}
	}
	if amount.Gt(&e.balance[c]) {
		return fmt.Errorf("%w: %s of %s held", model.ErrInsufficientEscrowBalance, e.balance[c].Dec(), c)
	}

	e.balance[c].Sub(&e.balance[c], amount)
	e.withdrawn[c].Add(&e.withdrawn[c], amount)

	err = e.payments.Transfer(ctx, model.Transfer{Currency: c, From: e.address, To: st.Creator, Amount: new(uint256.Int).Set(amount)})
	if err != nil {
		e.balance[c].Add(&e.balance[c], amount)
		e.withdrawn[c].Sub(&e.withdrawn[c], amount)
		e.log.Warn("withdrawal transfer failed", zap.Stringer("currency", c), zap.Error(err))
		return transferFailed(err)
	}
	e.log.Info("funds withdrawn",
		zap.Stringer("currency", c),
		zap.String("amount", amount.Dec()),
		zap.Stringer("creator", st.Creator),
	)
	return nil
}

// Refund is what ReturnFunds paid back, per currency.
type Refund struct {
	Stable *uint256.Int
	Native *uint256.Int
}

// ReturnFunds pays caller back every contribution recorded for them across
// all tiers, in both currencies, once the event is cancelled.  A caller with
// nothing recorded gets a zero refund.
func (e *Escrow) ReturnFunds(ctx context.Context, caller common.Address) (Refund, error) {
	refund := Refund{Stable: new(uint256.Int), Native: new(uint256.Int)}
	st, err := e.lifecycle.EventState(e.eventID)
	if err != nil {
		return refund, err
	}
	if !st.Cancelled {
		return refund, model.ErrEventNotCancelled
	}
	byBuyer := e.contributions[caller]
	if len(byBuyer) == 0 {
		return refund, nil
	}

	var sums [len(model.Currencies)]uint256.Int
	for k, v := range byBuyer {
		sums[k.currency].Add(&sums[k.currency], v)
	}
	for _, c := range model.Currencies {
		if sums[c].Gt(&e.balance[c]) {
			return refund, fmt.Errorf("%w: %s of %s held", model.ErrInsufficientEscrowBalance, e.balance[c].Dec(), c)
		}
	}

	delete(e.contributions, caller)
	var moves []model.Transfer
	for _, c := range model.Currencies {
		if sums[c].IsZero() {
			continue
		}
		e.balance[c].Sub(&e.balance[c], &sums[c])
		moves = append(moves, model.Transfer{Currency: c, From: e.address, To: caller, Amount: new(uint256.Int).Set(&sums[c])})
	}

	if err := e.payments.Transfer(ctx, moves...); err != nil {
		e.contributions[caller] = byBuyer
		for _, c := range model.Currencies {
			e.balance[c].Add(&e.balance[c], &sums[c])
		}
		e.log.Warn("refund transfer failed", zap.Stringer("buyer", caller), zap.Error(err))
		return refund, transferFailed(err)
	}

	refund.Stable.Set(&sums[model.CurrencyStable])
	refund.Native.Set(&sums[model.CurrencyNative])
	e.log.Info("funds returned",
		zap.Stringer("buyer", caller),
		zap.String("stable", refund.Stable.Dec()),
		zap.String("native", refund.Native.Dec()),
	)
	return refund, nil
}

func transferFailed(err error) error {
	if errors.Is(err, model.ErrTransferFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
}

// Balance is the amount of currency c currently held.
func (e *Escrow) Balance(c model.Currency) *uint256.Int {
	return new(uint256.Int).Set(&e.balance[c])
}

// Credited is the lifetime amount of currency c credited by purchases.
func (e *Escrow) Credited(c model.Currency) *uint256.Int {
	return new(uint256.Int).Set(&e.credited[c])
}

// Withdrawn is the amount of currency c the creator has withdrawn so far.
func (e *Escrow) Withdrawn(c model.Currency) *uint256.Int {
	return new(uint256.Int).Set(&e.withdrawn[c])
}

// Contribution is what buyer has paid for tier in currency c and not yet
// been refunded.
func (e *Escrow) Contribution(buyer common.Address, tier uint32, c model.Currency) *uint256.Int {
	if v := e.contributions[buyer][contribution{tier: tier, currency: c}]; v != nil {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

// Totals are the running amounts of one currency.
type Totals struct {
	Balance      *uint256.Int
	Credited     *uint256.Int
	Withdrawn    *uint256.Int
	Withdrawable *uint256.Int
}

// Snapshot is a point-in-time copy of the escrow's books.
type Snapshot struct {
	EventID uint32
	Address common.Address
	Stable  Totals
	Native  Totals
}

func (e *Escrow) Snapshot() (Snapshot, error) {
	s := Snapshot{EventID: e.eventID, Address: e.address}
	for _, c := range model.Currencies {
		w, err := e.Withdrawable(c)
		if err != nil {
			return Snapshot{}, err
		}
		t := Totals{
			Balance:      e.Balance(c),
			Credited:     e.Credited(c),
			Withdrawn:    e.Withdrawn(c),
			Withdrawable: w,
		}
		if c == model.CurrencyStable {
			s.Stable = t
		} else {
			s.Native = t
		}
	}
	return s, nil
}
