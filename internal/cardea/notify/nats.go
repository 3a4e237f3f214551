package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cardea-access/cardea/internal/cardea/store"
)

const (
	decisionSubjectPrefix = "cardea.decisions."
	auditAlertSubject     = "cardea.alerts.audit"
)

// NATSPublisher publishes decision events as JSON on per-tenant subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// ConnectNATS dials the broker and returns a publisher. The connection
// reconnects indefinitely; publishes during an outage are buffered by the
// client and dropped if the buffer fills, which is acceptable for an
// operational event stream (the durable record is the access log).
func ConnectNATS(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("cardea-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) Close() {
	p.conn.Drain()
}

type decisionEvent struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	DoorID          string    `json:"door_id"`
	UserID          string    `json:"user_id"`
	Timestamp       time.Time `json:"timestamp"`
	Result          string    `json:"result"`
	MatchedRuleID   string    `json:"matched_rule_id,omitempty"`
	MatchedRuleName string    `json:"matched_rule_name,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

type auditAlert struct {
	Entry decisionEvent `json:"entry"`
	Error string        `json:"error"`
}

func (p *NATSPublisher) PublishDecision(_ context.Context, entry store.AccessLogEntry) {
	p.publish(decisionSubjectPrefix+entry.TenantID, eventFromEntry(entry))
}

func (p *NATSPublisher) PublishAuditAlert(_ context.Context, entry store.AccessLogEntry, cause error) {
	p.publish(auditAlertSubject, auditAlert{
		Entry: eventFromEntry(entry),
		Error: cause.Error(),
	})
}

func (p *NATSPublisher) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("notify: marshal event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("notify: publish failed", "subject", subject, "error", err)
	}
}

func eventFromEntry(e store.AccessLogEntry) decisionEvent {
	return decisionEvent{
		ID:              e.ID,
		TenantID:        e.TenantID,
		DoorID:          e.DoorID,
		UserID:          e.UserID,
		Timestamp:       e.Timestamp,
		Result:          string(e.Result),
		MatchedRuleID:   e.MatchedRuleID,
		MatchedRuleName: e.MatchedRuleName,
		Reason:          e.Reason,
	}
}
