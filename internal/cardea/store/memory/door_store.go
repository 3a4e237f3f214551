// Package memory provides in-memory store implementations for tests and dev
// environments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

type DoorStore struct {
	mu    sync.RWMutex
	doors map[string]types.Door
}

func NewDoorStore(doors ...types.Door) *DoorStore {
	s := &DoorStore{doors: make(map[string]types.Door, len(doors))}
	for _, d := range doors {
		s.doors[doorKey(d.TenantID, d.ID)] = d
	}
	return s
}

func doorKey(tenantID, doorID string) string { return tenantID + "/" + doorID }

func (s *DoorStore) GetDoor(_ context.Context, tenantID, doorID string) (types.Door, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doors[doorKey(tenantID, doorID)]
	if !ok {
		return types.Door{}, store.ErrDoorNotFound
	}
	return d, nil
}

func (s *DoorStore) PutDoor(_ context.Context, door types.Door) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doors[doorKey(door.TenantID, door.ID)] = door
	return nil
}

func (s *DoorStore) SetOnline(_ context.Context, tenantID, doorID string, online bool, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doors[doorKey(tenantID, doorID)]
	if !ok {
		return store.ErrDoorNotFound
	}
	d.Online = online
	s.doors[doorKey(tenantID, doorID)] = d
	return nil
}
