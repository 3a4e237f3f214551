package service

import (
	"fmt"
	"slices"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/types"
)

// matchRule reports whether a rule applies to the given context. Pure
// predicate, no side effects. A non-nil error marks the rule as malformed
// for its declared type; callers skip such rules instead of failing the
// whole evaluation.
//
// loc is the tenant's business timezone; time-slot windows are interpreted
// in it, not in UTC.
func matchRule(rule types.AccessRule, dctx types.DecisionContext, loc *time.Location) (bool, error) {
	if !rule.Active {
		return false, nil
	}

	switch rule.Type {
	case types.RuleRole:
		if len(rule.AllowedRoles) == 0 {
			return false, fmt.Errorf("rule %s: ROLE rule with no allowed roles", rule.ID)
		}
		if !slices.Contains(rule.AllowedRoles, dctx.Role) {
			return false, nil
		}

	case types.RuleMembership:
		if len(rule.AllowedMembershipStatuses) == 0 {
			return false, fmt.Errorf("rule %s: MEMBERSHIP rule with no allowed statuses", rule.ID)
		}
		if dctx.MembershipStatus == "" {
			return false, nil
		}
		if !slices.Contains(rule.AllowedMembershipStatuses, dctx.MembershipStatus) {
			return false, nil
		}
		// Optional additional role filter on membership rules.
		if len(rule.AllowedRoles) > 0 && !slices.Contains(rule.AllowedRoles, dctx.Role) {
			return false, nil
		}

	case types.RuleUserSpecific:
		if len(rule.AllowedUserIDs) == 0 {
			return false, fmt.Errorf("rule %s: USER_SPECIFIC rule with no allowed users", rule.ID)
		}
		if !slices.Contains(rule.AllowedUserIDs, dctx.UserID) {
			return false, nil
		}

	default:
		return false, fmt.Errorf("rule %s: unknown type %q", rule.ID, rule.Type)
	}

	if len(rule.TimeSlots) == 0 {
		return true, nil
	}

	local := dctx.Timestamp.In(loc)
	for _, slot := range rule.TimeSlots {
		if slot.Contains(local) {
			return true, nil
		}
	}
	return false, nil
}
