package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/store"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// accessLogView is the admin-facing shape of an audit entry.
type accessLogView struct {
	ID               string    `json:"id"`
	DoorID           string    `json:"door_id"`
	UserID           string    `json:"user_id"`
	Timestamp        time.Time `json:"timestamp"`
	Result           string    `json:"result"`
	MatchedRuleID    string    `json:"matched_rule_id,omitempty"`
	MatchedRuleName  string    `json:"matched_rule_name,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	Role             string    `json:"role,omitempty"`
	MembershipStatus string    `json:"membership_status,omitempty"`
	ProximityDbm     *int      `json:"proximity_dbm,omitempty"`
}

func toLogViews(entries []store.AccessLogEntry) []accessLogView {
	out := make([]accessLogView, 0, len(entries))
	for _, e := range entries {
		out = append(out, accessLogView{
			ID:               e.ID,
			DoorID:           e.DoorID,
			UserID:           e.UserID,
			Timestamp:        e.Timestamp,
			Result:           string(e.Result),
			MatchedRuleID:    e.MatchedRuleID,
			MatchedRuleName:  e.MatchedRuleName,
			Reason:           e.Reason,
			Role:             e.Role,
			MembershipStatus: e.MembershipStatus,
			ProximityDbm:     e.ProximityDbm,
		})
	}
	return out
}
