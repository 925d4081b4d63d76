package platform

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// Notifier receives committed activity.  Implementations must not block for
// long and must not call back into the Platform synchronously.
type Notifier interface {
	Notify(ctx context.Context, a model.Activity)
}

// Notifiers fans one activity out to every notifier in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, a model.Activity) {
	for _, n := range ns {
		n.Notify(ctx, a)
	}
}

// MemoryUsers is an in-process UserRegistry.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[common.Address]model.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[common.Address]model.User)}
}

func (m *MemoryUsers) Upsert(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Address] = u
	return nil
}

func (m *MemoryUsers) Lookup(_ context.Context, addr common.Address) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[addr]
	if !ok {
		return model.User{}, model.ErrUserNotRegistered
	}
	return u, nil
}
