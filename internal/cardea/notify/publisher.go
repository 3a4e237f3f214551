// Package notify fans access decisions out to operational consumers.
// Publishing is best effort: a slow or absent broker must never change or
// delay an access decision.
package notify

import (
	"context"

	"github.com/cardea-access/cardea/internal/cardea/store"
)

// Publisher receives every decision after it has been audit-logged, plus a
// dedicated alert when the audit sink itself failed.
type Publisher interface {
	PublishDecision(ctx context.Context, entry store.AccessLogEntry)
	PublishAuditAlert(ctx context.Context, entry store.AccessLogEntry, cause error)
}

// Nop discards everything. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishDecision(context.Context, store.AccessLogEntry)          {}
func (Nop) PublishAuditAlert(context.Context, store.AccessLogEntry, error) {}
