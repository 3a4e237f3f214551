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

// UserDirectory reads the local user table. In deployments where the
// directory lives in another service this store is replaced by a client
// implementing the same interface.
type UserDirectory struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewUserDirectory(db *sql.DB, writer *dbpkg.Worker) *UserDirectory {
	return &UserDirectory{db: db, writer: writer}
}

func (d *UserDirectory) GetUserContext(ctx context.Context, tenantID, userID string) (types.UserContext, error) {
	var uc types.UserContext
	err := d.db.QueryRowContext(ctx, `
SELECT role, membership_status
FROM users
WHERE tenant_id = ? AND user_id = ?;
`, tenantID, userID).Scan(&uc.Role, &uc.MembershipStatus)
	if err == sql.ErrNoRows {
		return types.UserContext{}, store.ErrUserNotFound
	}
	if err != nil {
		return types.UserContext{}, fmt.Errorf("GetUserContext query: %w", err)
	}
	return uc, nil
}

// PutUser upserts a directory entry. Used by the dev seeder and tests.
func (d *UserDirectory) PutUser(ctx context.Context, tenantID, userID string, uc types.UserContext) error {
	now := time.Now().UTC().UnixMilli()

	return d.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users(tenant_id, user_id, role, membership_status, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(tenant_id, user_id) DO UPDATE SET
  role = excluded.role,
  membership_status = excluded.membership_status,
  updated_at_ms = excluded.updated_at_ms;
`, tenantID, userID, uc.Role, uc.MembershipStatus, now, now); err != nil {
			return fmt.Errorf("PutUser upsert: %w", err)
		}
		return nil
	})
}
