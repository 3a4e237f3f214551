package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

type RuleStore struct {
	mu    sync.RWMutex
	rules map[string][]types.AccessRule // keyed by tenant/door
}

func NewRuleStore(rules ...types.AccessRule) *RuleStore {
	s := &RuleStore{rules: make(map[string][]types.AccessRule)}
	for _, r := range rules {
		k := doorKey(r.TenantID, r.DoorID)
		s.rules[k] = append(s.rules[k], r)
	}
	return s
}

func (s *RuleStore) GetActiveRules(_ context.Context, tenantID, doorID string) ([]types.AccessRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.AccessRule
	for _, r := range s.rules[doorKey(tenantID, doorID)] {
		if r.Active {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out, nil
}

func (s *RuleStore) ListRules(_ context.Context, tenantID, doorID string) ([]types.AccessRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.rules[doorKey(tenantID, doorID)]
	out := make([]types.AccessRule, len(src))
	copy(out, src)
	sortRules(out)
	return out, nil
}

func (s *RuleStore) PutRule(_ context.Context, rule types.AccessRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := doorKey(rule.TenantID, rule.DoorID)
	for i, r := range s.rules[k] {
		if r.ID == rule.ID {
			s.rules[k][i] = rule
			return nil
		}
	}
	s.rules[k] = append(s.rules[k], rule)
	return nil
}

func (s *RuleStore) DeleteRule(_ context.Context, tenantID, doorID, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := doorKey(tenantID, doorID)
	for i, r := range s.rules[k] {
		if r.ID == ruleID {
			s.rules[k] = append(s.rules[k][:i], s.rules[k][i+1:]...)
			return nil
		}
	}
	return store.ErrRuleNotFound
}

// sortRules matches the sqlite store's ordering: priority descending,
// then created_at ascending.
func sortRules(rules []types.AccessRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
}
