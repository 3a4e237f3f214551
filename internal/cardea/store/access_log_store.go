package store

import (
	"context"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/types"
)

// AccessLogEntry captures a single decision for the audit trail. Entries are
// written once at the end of every evaluation and never mutated or deleted.
type AccessLogEntry struct {
	ID        string
	TenantID  string
	DoorID    string
	UserID    string
	Timestamp time.Time

	Result          types.Result
	MatchedRuleID   string
	MatchedRuleName string
	Reason          string

	// Context snapshot at decision time.
	Role             string
	MembershipStatus string
	ProximityDbm     *int
}

// AccessLogStore persists decisions as an append-only audit log.
type AccessLogStore interface {
	Append(ctx context.Context, entry AccessLogEntry) error
	ListByDoor(ctx context.Context, tenantID, doorID string, limit int) ([]AccessLogEntry, error)
}
