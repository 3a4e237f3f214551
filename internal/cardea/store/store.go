// Package store defines the collaborator interfaces the engine depends on:
// door and rule lookup, the user directory, the append-only access log, and
// controller heartbeat history. The engine only ever performs read-then-decide
// against these; consistency is the implementation's concern (read-committed
// rule reads are sufficient).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/types"
)

var (
	// ErrDoorNotFound is returned when a (tenant, door) pair does not exist.
	ErrDoorNotFound = errors.New("door not found")

	// ErrUserNotFound is returned when the directory has no such user.
	ErrUserNotFound = errors.New("user not found")

	// ErrRuleNotFound is returned when a rule id does not exist for the door.
	ErrRuleNotFound = errors.New("rule not found")
)

// DoorStore persists doors and their controller-reported online state.
type DoorStore interface {
	GetDoor(ctx context.Context, tenantID, doorID string) (types.Door, error)
	PutDoor(ctx context.Context, door types.Door) error
	SetOnline(ctx context.Context, tenantID, doorID string, online bool, at time.Time) error
}

// RuleStore persists access rules per door.
type RuleStore interface {
	// GetActiveRules returns the active rules for the door, ordered by
	// priority descending then created_at ascending. The matcher relies on
	// this order being stable.
	GetActiveRules(ctx context.Context, tenantID, doorID string) ([]types.AccessRule, error)
	ListRules(ctx context.Context, tenantID, doorID string) ([]types.AccessRule, error)
	PutRule(ctx context.Context, rule types.AccessRule) error
	DeleteRule(ctx context.Context, tenantID, doorID, ruleID string) error
}

// UserDirectory resolves a user's current role and membership status.
type UserDirectory interface {
	GetUserContext(ctx context.Context, tenantID, userID string) (types.UserContext, error)
}
