package types

import "time"

// Result is the closed set of outcomes an evaluation can produce.
// Callers never see anything outside this set.
type Result string

const (
	Granted            Result = "GRANTED"
	DeniedNoPermission Result = "DENIED_NO_PERMISSION"
	DeniedProximity    Result = "DENIED_PROXIMITY"
	DeniedDoorInactive Result = "DENIED_DOOR_INACTIVE"
	DoorNotFound       Result = "DOOR_NOT_FOUND"
	DeniedSystemError  Result = "DENIED_SYSTEM_ERROR"
)

// UserContext is the slice of directory state an evaluation needs:
// the user's current role and membership status. MembershipStatus is
// empty when the user has no membership.
type UserContext struct {
	Role             string `json:"role"`
	MembershipStatus string `json:"membership_status,omitempty"`
}

// DecisionContext is assembled per request and discarded after the
// evaluation. Timestamp is the moment being authorized, not necessarily
// the wall clock.
type DecisionContext struct {
	UserID           string
	Role             string
	MembershipStatus string
	Timestamp        time.Time
	Proximity        *ProximityReading
}

// EvaluateRequest identifies one physical approach to a door. Timestamp
// defaults to the server clock when zero.
type EvaluateRequest struct {
	TenantID  string            `json:"tenant_id"`
	DoorID    string            `json:"door_id"`
	UserID    string            `json:"user_id"`
	Timestamp time.Time         `json:"timestamp,omitzero"`
	Proximity *ProximityReading `json:"proximity,omitempty"`
}

// Decision is the outcome returned to the caller. AuditWarning carries a
// non-fatal audit persistence failure; the decision itself already stands.
type Decision struct {
	Result          Result `json:"result"`
	MatchedRuleID   string `json:"matched_rule_id,omitempty"`
	MatchedRuleName string `json:"matched_rule_name,omitempty"`
	Reason          string `json:"reason"`
	AuditWarning    string `json:"audit_warning,omitempty"`
}

// Allowed reports whether the decision unlocks the door.
func (d Decision) Allowed() bool { return d.Result == Granted }
