package service

import "github.com/cardea-access/cardea/internal/cardea/types"

// resolveWinner picks the single winning rule among matches. Precedence:
// highest priority, then USER_SPECIFIC > MEMBERSHIP > ROLE, then earliest
// created. The last tie-break keeps the outcome deterministic when an admin
// clones a rule.
//
// Returns ok=false when no rule matched. Any matching rule grants access;
// the model has no deny rules.
func resolveWinner(matches []types.AccessRule) (types.AccessRule, bool) {
	if len(matches) == 0 {
		return types.AccessRule{}, false
	}

	winner := matches[0]
	for _, r := range matches[1:] {
		if betterRule(r, winner) {
			winner = r
		}
	}
	return winner, true
}

func betterRule(a, b types.AccessRule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Type != b.Type {
		return a.Type.MorePreciseThan(b.Type)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
