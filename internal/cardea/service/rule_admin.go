package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

var ErrInvalidRule = errors.New("invalid rule")

// RuleAdmin manages the per-door rule set. Rules that carry no qualifying
// attributes for their declared type are rejected here, at creation time;
// the engine itself only re-checks defensively when matching.
type RuleAdmin struct {
	rules  store.RuleStore
	doors  store.DoorStore
	logger *slog.Logger
}

func NewRuleAdmin(rules store.RuleStore, doors store.DoorStore, logger *slog.Logger) *RuleAdmin {
	return &RuleAdmin{rules: rules, doors: doors, logger: logger}
}

// PutRule creates or updates a rule after validating it. The referenced door
// must exist in the same tenant. New rules get a generated id and creation
// timestamp; updates keep the original CreatedAt so the resolver's
// earliest-created tie-break stays stable.
func (a *RuleAdmin) PutRule(ctx context.Context, rule types.AccessRule) (types.AccessRule, error) {
	rule.TenantID = strings.TrimSpace(rule.TenantID)
	rule.DoorID = strings.TrimSpace(rule.DoorID)
	if rule.TenantID == "" {
		return types.AccessRule{}, ErrInvalidTenantID
	}
	if rule.DoorID == "" {
		return types.AccessRule{}, ErrInvalidDoorID
	}

	if _, err := a.doors.GetDoor(ctx, rule.TenantID, rule.DoorID); err != nil {
		if errors.Is(err, store.ErrDoorNotFound) {
			return types.AccessRule{}, fmt.Errorf("%w: door %s does not exist in tenant %s",
				ErrInvalidRule, rule.DoorID, rule.TenantID)
		}
		return types.AccessRule{}, fmt.Errorf("check door: %w", err)
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		if existing, err := a.findRule(ctx, rule.TenantID, rule.DoorID, rule.ID); err == nil {
			rule.CreatedAt = existing.CreatedAt
		} else {
			rule.CreatedAt = time.Now().UTC()
		}
	}

	if err := rule.Validate(); err != nil {
		return types.AccessRule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	if err := a.rules.PutRule(ctx, rule); err != nil {
		return types.AccessRule{}, fmt.Errorf("put rule: %w", err)
	}

	a.logger.Info("rule saved",
		"tenant", rule.TenantID, "door", rule.DoorID, "rule", rule.ID,
		"type", rule.Type, "priority", rule.Priority, "active", rule.Active)
	return rule, nil
}

func (a *RuleAdmin) ListRules(ctx context.Context, tenantID, doorID string) ([]types.AccessRule, error) {
	return a.rules.ListRules(ctx, tenantID, doorID)
}

func (a *RuleAdmin) DeleteRule(ctx context.Context, tenantID, doorID, ruleID string) error {
	if err := a.rules.DeleteRule(ctx, tenantID, doorID, ruleID); err != nil {
		return err
	}
	a.logger.Info("rule deleted", "tenant", tenantID, "door", doorID, "rule", ruleID)
	return nil
}

func (a *RuleAdmin) findRule(ctx context.Context, tenantID, doorID, ruleID string) (types.AccessRule, error) {
	rules, err := a.rules.ListRules(ctx, tenantID, doorID)
	if err != nil {
		return types.AccessRule{}, err
	}
	for _, r := range rules {
		if r.ID == ruleID {
			return r, nil
		}
	}
	return types.AccessRule{}, store.ErrRuleNotFound
}
