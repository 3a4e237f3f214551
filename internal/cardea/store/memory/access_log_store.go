package memory

import (
	"context"
	"sync"

	"github.com/cardea-access/cardea/internal/cardea/store"
)

// AccessLogStore is an in-memory append-only log of access decisions.
type AccessLogStore struct {
	mu      sync.Mutex
	entries []store.AccessLogEntry

	// FailWith, when non-nil, is returned by Append. Test-only hook for
	// exercising audit-failure paths.
	FailWith error
}

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

// Append honors ctx like the sqlite store does: a done context refuses the
// write instead of recording it.
func (s *AccessLogStore) Append(ctx context.Context, entry store.AccessLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AccessLogStore) ListByDoor(_ context.Context, tenantID, doorID string, limit int) ([]store.AccessLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.AccessLogEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.TenantID != tenantID || e.DoorID != doorID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Entries returns a copy of everything recorded. Test-only helper.
func (s *AccessLogStore) Entries() []store.AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
