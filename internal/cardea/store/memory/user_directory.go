package memory

import (
	"context"
	"sync"

	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]types.UserContext // keyed by tenant/user
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make(map[string]types.UserContext)}
}

func (d *UserDirectory) SetUser(tenantID, userID string, uc types.UserContext) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[doorKey(tenantID, userID)] = uc
}

func (d *UserDirectory) GetUserContext(_ context.Context, tenantID, userID string) (types.UserContext, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	uc, ok := d.users[doorKey(tenantID, userID)]
	if !ok {
		return types.UserContext{}, store.ErrUserNotFound
	}
	return uc, nil
}
