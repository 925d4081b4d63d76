// Package platform is the single entry point of the marketplace.  It owns
// the admin configuration, orchestrates purchases and redemptions across
// the registry, escrows and ticket ledgers, and serializes every operation
// behind one lock.
package platform

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/registry"
)

// Payments collects ticket payments.  TransferFrom spends allowances the
// payer granted to the platform account; both calls are all-or-nothing.
type Payments interface {
	Transfer(ctx context.Context, moves ...model.Transfer) error
	TransferFrom(ctx context.Context, spender common.Address, moves ...model.Transfer) error
}

// UserRegistry stores user profiles.  Lookup fails with
// model.ErrUserNotRegistered for unknown addresses.
type UserRegistry interface {
	Upsert(ctx context.Context, u model.User) error
	Lookup(ctx context.Context, addr common.Address) (model.User, error)
}

// Options configures a Platform.  Wallet defaults to Owner.
type Options struct {
	Address  common.Address
	Owner    common.Address
	Wallet   common.Address
	FeeBps   uint16
	Payments Payments
	Notifier Notifier
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Config is a copy of the admin-mutable configuration.
type Config struct {
	Address         common.Address   `json:"address"`
	Owner           common.Address   `json:"owner"`
	Wallet          common.Address   `json:"wallet"`
	FeeBps          uint16           `json:"feeBps"`
	Events          common.Address   `json:"events"`
	UsersConfigured bool             `json:"usersConfigured"`
	Delegates       []common.Address `json:"delegates"`
}

// Platform is safe for concurrent use.  Mutations take the write lock and
// run to completion; queries share the read lock.
type Platform struct {
	mu sync.RWMutex

	address   common.Address
	owner     common.Address
	wallet    common.Address
	feeBps    uint16
	events    *registry.Registry
	users     UserRegistry
	delegates map[common.Address]bool

	payments Payments
	notifier Notifier
	clock    clock.Clock
	log      *zap.Logger
}

func New(opts Options) (*Platform, error) {
	if opts.Owner == (common.Address{}) || opts.Address == (common.Address{}) {
		return nil, model.ErrInvalidAddress
	}
	if opts.FeeBps > model.MaxBasisPoints {
		return nil, model.ErrInvalidFee
	}
	if opts.Wallet == (common.Address{}) {
		opts.Wallet = opts.Owner
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = Notifiers(nil)
	}
	return &Platform{
		address:   opts.Address,
		owner:     opts.Owner,
		wallet:    opts.Wallet,
		feeBps:    opts.FeeBps,
		delegates: make(map[common.Address]bool),
		payments:  opts.Payments,
		notifier:  opts.Notifier,
		clock:     opts.Clock,
		log:       opts.Logger,
	}, nil
}

// Address is the platform account: the spender of stable allowances and the
// only origin the registry and escrows accept for privileged calls.
func (p *Platform) Address() common.Address { return p.address }

// Owner returns the current owner.
func (p *Platform) Owner() common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owner
}

func (p *Platform) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c := Config{
		Address:         p.address,
		Owner:           p.owner,
		Wallet:          p.wallet,
		FeeBps:          p.feeBps,
		UsersConfigured: p.users != nil,
		Delegates:       []common.Address{},
	}
	if p.events != nil {
		c.Events = p.events.Address()
	}
	for d := range p.delegates {
		c.Delegates = append(c.Delegates, d)
	}
	return c
}

// ready is called with p.mu held.
func (p *Platform) ready() error {
	if p.events == nil || p.users == nil {
		return model.ErrNotConfigured
	}
	return nil
}

func (p *Platform) onlyOwner(caller common.Address) error {
	if caller != p.owner {
		return model.ErrUnauthorized
	}
	return nil
}

// SetEventsContract points the platform at an event registry.  The registry
// must accept this platform as its privileged origin.
func (p *Platform) SetEventsContract(events *registry.Registry, caller common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyOwner(caller); err != nil {
		return err
	}
	if events == nil || events.Platform() != p.address {
		return model.ErrInvalidAddress
	}
	p.events = events
	p.log.Info("events registry set", zap.Stringer("events", events.Address()))
	return nil
}

// SetUsersContract points the platform at a user profile registry.
func (p *Platform) SetUsersContract(users UserRegistry, caller common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyOwner(caller); err != nil {
		return err
	}
	if users == nil {
		return model.ErrInvalidAddress
	}
	p.users = users
	p.log.Info("users registry set")
	return nil
}

// SetPlatformWallet changes the account collecting fees.
func (p *Platform) SetPlatformWallet(wallet, caller common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyOwner(caller); err != nil {
		return err
	}
	if wallet == (common.Address{}) {
		return model.ErrInvalidAddress
	}
	p.wallet = wallet
	p.log.Info("platform wallet set", zap.Stringer("wallet", wallet))
	return nil
}

// SetPlatformFee changes the purchase fee, in basis points of the price.
func (p *Platform) SetPlatformFee(bps uint16, caller common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyOwner(caller); err != nil {
		return err
	}
	if bps > model.MaxBasisPoints {
		return model.ErrInvalidFee
	}
	p.feeBps = bps
	p.log.Info("platform fee set", zap.Uint16("fee_bps", bps))
	return nil
}

// SetDelegate allows or disallows delegate to create events on behalf of
// any registered creator.
func (p *Platform) SetDelegate(delegate common.Address, enabled bool, caller common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyOwner(caller); err != nil {
		return err
	}
	if delegate == (common.Address{}) {
		return model.ErrInvalidAddress
	}
	if enabled {
		p.delegates[delegate] = true
	} else {
		delete(p.delegates, delegate)
	}
	p.log.Info("delegate set", zap.Stringer("delegate", delegate), zap.Bool("enabled", enabled))
	return nil
}

func (p *Platform) TransferOwnership(newOwner, caller common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return model.ErrInvalidAddress
	}
	p.owner = newOwner
	p.log.Info("ownership transferred", zap.Stringer("owner", newOwner))
	return nil
}

// emit hands a committed activity to the notifier.  It must be called
// without p.mu held.
func (p *Platform) emit(ctx context.Context, a model.Activity) {
	a.ID = uuid.NewString()
	a.At = p.clock.Now().UTC()
	p.notifier.Notify(ctx, a)
}
