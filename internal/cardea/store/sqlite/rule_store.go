package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	dbpkg "github.com/cardea-access/cardea/internal/db"

	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

type RuleStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRuleStore(db *sql.DB, writer *dbpkg.Worker) *RuleStore {
	return &RuleStore{db: db, writer: writer}
}

// GetActiveRules returns active rules ordered by priority descending then
// created_at ascending, matching the resolver's precedence.
func (s *RuleStore) GetActiveRules(ctx context.Context, tenantID, doorID string) ([]types.AccessRule, error) {
	return s.query(ctx, `
SELECT rule_id, tenant_id, door_id, name, rule_type, priority, active,
       allowed_roles, allowed_statuses, allowed_user_ids, time_slots, created_at_ms
FROM access_rules
WHERE tenant_id = ? AND door_id = ? AND active = 1
ORDER BY priority DESC, created_at_ms ASC;
`, tenantID, doorID)
}

func (s *RuleStore) ListRules(ctx context.Context, tenantID, doorID string) ([]types.AccessRule, error) {
	return s.query(ctx, `
SELECT rule_id, tenant_id, door_id, name, rule_type, priority, active,
       allowed_roles, allowed_statuses, allowed_user_ids, time_slots, created_at_ms
FROM access_rules
WHERE tenant_id = ? AND door_id = ?
ORDER BY priority DESC, created_at_ms ASC;
`, tenantID, doorID)
}

func (s *RuleStore) query(ctx context.Context, q string, args ...any) ([]types.AccessRule, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("rules query: %w", err)
	}
	defer rows.Close()

	var out []types.AccessRule
	for rows.Next() {
		var (
			r         types.AccessRule
			active    int
			roles     sql.NullString
			statuses  sql.NullString
			userIDs   sql.NullString
			slots     sql.NullString
			createdMs int64
		)
		if err := rows.Scan(
			&r.ID, &r.TenantID, &r.DoorID, &r.Name, &r.Type, &r.Priority, &active,
			&roles, &statuses, &userIDs, &slots, &createdMs,
		); err != nil {
			return nil, fmt.Errorf("rules scan: %w", err)
		}
		r.Active = active == 1
		r.CreatedAt = time.UnixMilli(createdMs).UTC()

		if err := unmarshalJSONColumn(roles, &r.AllowedRoles); err != nil {
			return nil, fmt.Errorf("rule %s allowed_roles: %w", r.ID, err)
		}
		if err := unmarshalJSONColumn(statuses, &r.AllowedMembershipStatuses); err != nil {
			return nil, fmt.Errorf("rule %s allowed_statuses: %w", r.ID, err)
		}
		if err := unmarshalJSONColumn(userIDs, &r.AllowedUserIDs); err != nil {
			return nil, fmt.Errorf("rule %s allowed_user_ids: %w", r.ID, err)
		}
		if err := unmarshalJSONColumn(slots, &r.TimeSlots); err != nil {
			return nil, fmt.Errorf("rule %s time_slots: %w", r.ID, err)
		}

		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RuleStore) PutRule(ctx context.Context, rule types.AccessRule) error {
	now := time.Now().UTC().UnixMilli()

	createdMs := now
	if !rule.CreatedAt.IsZero() {
		createdMs = rule.CreatedAt.UTC().UnixMilli()
	}

	roles, err := marshalJSONColumn(rule.AllowedRoles)
	if err != nil {
		return fmt.Errorf("PutRule allowed_roles: %w", err)
	}
	statuses, err := marshalJSONColumn(rule.AllowedMembershipStatuses)
	if err != nil {
		return fmt.Errorf("PutRule allowed_statuses: %w", err)
	}
	userIDs, err := marshalJSONColumn(rule.AllowedUserIDs)
	if err != nil {
		return fmt.Errorf("PutRule allowed_user_ids: %w", err)
	}
	slots, err := marshalJSONColumn(rule.TimeSlots)
	if err != nil {
		return fmt.Errorf("PutRule time_slots: %w", err)
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_rules(
  tenant_id, door_id, rule_id, name, rule_type, priority, active,
  allowed_roles, allowed_statuses, allowed_user_ids, time_slots,
  created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(tenant_id, door_id, rule_id) DO UPDATE SET
  name = excluded.name,
  rule_type = excluded.rule_type,
  priority = excluded.priority,
  active = excluded.active,
  allowed_roles = excluded.allowed_roles,
  allowed_statuses = excluded.allowed_statuses,
  allowed_user_ids = excluded.allowed_user_ids,
  time_slots = excluded.time_slots,
  updated_at_ms = excluded.updated_at_ms;
`,
			rule.TenantID, rule.DoorID, rule.ID, rule.Name, string(rule.Type), rule.Priority, b2i(rule.Active),
			roles, statuses, userIDs, slots,
			createdMs, now,
		); err != nil {
			return fmt.Errorf("PutRule upsert: %w", err)
		}
		return nil
	})
}

func (s *RuleStore) DeleteRule(ctx context.Context, tenantID, doorID, ruleID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM access_rules
WHERE tenant_id = ? AND door_id = ? AND rule_id = ?;
`, tenantID, doorID, ruleID)
		if err != nil {
			return fmt.Errorf("DeleteRule: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrRuleNotFound
		}
		return nil
	})
}

// marshalJSONColumn stores nil/empty slices as NULL rather than "[]".
func marshalJSONColumn(v any) (any, error) {
	switch s := v.(type) {
	case []string:
		if len(s) == 0 {
			return nil, nil
		}
	case []types.TimeSlot:
		if len(s) == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalJSONColumn(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}
