package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/store"
)

type HeartbeatStore struct {
	mu   sync.Mutex
	recs []store.HeartbeatRecord
}

func NewHeartbeatStore() *HeartbeatStore {
	return &HeartbeatStore{}
}

func (s *HeartbeatStore) Insert(_ context.Context, rec store.HeartbeatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	s.recs = append(s.recs, rec)
	return nil
}

func (s *HeartbeatStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.recs[:0]
	var deleted int64
	for _, r := range s.recs {
		if r.ReceivedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.recs = kept
	return deleted, nil
}

// Records returns a copy of stored heartbeats. Test-only helper.
func (s *HeartbeatStore) Records() []store.HeartbeatRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.HeartbeatRecord, len(s.recs))
	copy(out, s.recs)
	return out
}
