package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/cardea-access/cardea/internal/db"

	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

// Append writes one decision to the audit log. Entries are insert-only;
// there is no update or delete path anywhere in this store.
func (s *AccessLogStore) Append(ctx context.Context, entry store.AccessLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	tsMs := entry.Timestamp.UTC().UnixMilli()

	var matchedID, matchedName any
	if entry.MatchedRuleID != "" {
		matchedID = entry.MatchedRuleID
		matchedName = entry.MatchedRuleName
	}
	var role, status any
	if entry.Role != "" {
		role = entry.Role
	}
	if entry.MembershipStatus != "" {
		status = entry.MembershipStatus
	}
	var proximity any
	if entry.ProximityDbm != nil {
		proximity = *entry.ProximityDbm
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_log(
  entry_id, tenant_id, door_id, user_id, ts_ms, result,
  matched_rule_id, matched_rule_name, reason, role, membership_status, proximity_dbm
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			entry.ID, entry.TenantID, entry.DoorID, entry.UserID, tsMs, string(entry.Result),
			matchedID, matchedName, entry.Reason, role, status, proximity,
		); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		return nil
	})
}

func (s *AccessLogStore) ListByDoor(ctx context.Context, tenantID, doorID string, limit int) ([]store.AccessLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT entry_id, tenant_id, door_id, user_id, ts_ms, result,
       matched_rule_id, matched_rule_name, reason, role, membership_status, proximity_dbm
FROM access_log
WHERE tenant_id = ? AND door_id = ?
ORDER BY ts_ms DESC
LIMIT ?;
`, tenantID, doorID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListByDoor query: %w", err)
	}
	defer rows.Close()

	var out []store.AccessLogEntry
	for rows.Next() {
		var (
			e           store.AccessLogEntry
			tsMs        int64
			result      string
			matchedID   sql.NullString
			matchedName sql.NullString
			role        sql.NullString
			status      sql.NullString
			proximity   sql.NullInt64
		)
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.DoorID, &e.UserID, &tsMs, &result,
			&matchedID, &matchedName, &e.Reason, &role, &status, &proximity,
		); err != nil {
			return nil, fmt.Errorf("ListByDoor scan: %w", err)
		}
		e.Timestamp = time.UnixMilli(tsMs).UTC()
		e.Result = types.Result(result)
		e.MatchedRuleID = matchedID.String
		e.MatchedRuleName = matchedName.String
		e.Role = role.String
		e.MembershipStatus = status.String
		if proximity.Valid {
			dbm := int(proximity.Int64)
			e.ProximityDbm = &dbm
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
