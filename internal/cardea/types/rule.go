package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RuleType selects which predicate an AccessRule evaluates.
// The model only expresses grants; absence of a matching rule is the only
// deny mechanism. A DENY variant can be added here later without touching
// the resolver's precedence logic.
type RuleType string

const (
	RuleRole         RuleType = "ROLE"
	RuleMembership   RuleType = "MEMBERSHIP"
	RuleUserSpecific RuleType = "USER_SPECIFIC"
)

// precedence orders rule types for tie-breaking at equal priority.
// Higher wins: USER_SPECIFIC > MEMBERSHIP > ROLE.
func (t RuleType) precedence() int {
	switch t {
	case RuleUserSpecific:
		return 3
	case RuleMembership:
		return 2
	case RuleRole:
		return 1
	default:
		return 0
	}
}

// MorePreciseThan reports whether t outranks other when two matching rules
// share the same priority.
func (t RuleType) MorePreciseThan(other RuleType) bool {
	return t.precedence() > other.precedence()
}

// TimeSlot restricts a rule to a weekly window. Start and End are "HH:MM"
// wall-clock strings in the tenant's business timezone; the window is
// inclusive of Start and exclusive of End.
type TimeSlot struct {
	Day   time.Weekday `json:"day"`
	Start string       `json:"start"`
	End   string       `json:"end"`
}

// Contains reports whether local falls inside the slot. local must already
// be in the tenant's timezone.
func (ts TimeSlot) Contains(local time.Time) bool {
	if local.Weekday() != ts.Day {
		return false
	}
	start, err := ParseClock(ts.Start)
	if err != nil {
		return false
	}
	end, err := ParseClock(ts.End)
	if err != nil {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= start && minute < end
}

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return hh*60 + mm, nil
}

// AccessRule is a named, prioritized grant predicate scoped to one door
// within a tenant. Inactive rules never match.
type AccessRule struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	DoorID   string   `json:"door_id"`
	Name     string   `json:"name"`
	Type     RuleType `json:"type"`
	Priority int      `json:"priority"`
	Active   bool     `json:"active"`

	AllowedRoles              []string `json:"allowed_roles,omitempty"`
	AllowedMembershipStatuses []string `json:"allowed_membership_statuses,omitempty"`
	AllowedUserIDs            []string `json:"allowed_user_ids,omitempty"`

	TimeSlots []TimeSlot `json:"time_slots,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate rejects rules that carry no qualifying attributes for their
// declared type, and rules with unparsable or inverted time slots. Called
// at creation time; the matcher independently skips malformed rules so a
// bad row can never break evaluation of the others.
func (r AccessRule) Validate() error {
	switch r.Type {
	case RuleRole:
		if len(r.AllowedRoles) == 0 {
			return fmt.Errorf("rule %s: ROLE rule with no allowed roles", r.ID)
		}
	case RuleMembership:
		if len(r.AllowedMembershipStatuses) == 0 {
			return fmt.Errorf("rule %s: MEMBERSHIP rule with no allowed statuses", r.ID)
		}
	case RuleUserSpecific:
		if len(r.AllowedUserIDs) == 0 {
			return fmt.Errorf("rule %s: USER_SPECIFIC rule with no allowed users", r.ID)
		}
	default:
		return fmt.Errorf("rule %s: unknown type %q", r.ID, r.Type)
	}

	for _, ts := range r.TimeSlots {
		start, err := ParseClock(ts.Start)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.ID, err)
		}
		end, err := ParseClock(ts.End)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.ID, err)
		}
		if end <= start {
			return fmt.Errorf("rule %s: slot end %q not after start %q", r.ID, ts.End, ts.Start)
		}
	}

	return nil
}
