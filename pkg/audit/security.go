// Package audit writes security events raised by the ad-hoc query endpoint
// as structured log lines meant for SIEM ingestion.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/auth"
	"github.com/ekaya-inc/ekaya-biotools/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a query literal.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventQueryRejected is logged when a query fails the read-only checks.
	EventQueryRejected SecurityEventType = "query_rejected"
)

// SecurityEvent is the JSON document embedded in every audit line.
type SecurityEvent struct {
	EventID   string            `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	Subject   string            `json:"subject,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails describes one flagged literal.
type SQLInjectionDetails struct {
	Source      string `json:"source"`
	Fingerprint string `json:"fingerprint"`
	Query       string `json:"query"`
}

// SecurityAuditor logs security events under the "security_audit" logger.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a SecurityAuditor.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records a literal that looks like an injection
// payload. The query itself still runs.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, details SQLInjectionDetails, clientIP string) {
	details.Query = logging.SanitizeQuery(details.Query)
	event := a.newEvent(ctx, EventSQLInjectionAttempt, "warning", details, clientIP)

	a.logger.Warn("Possible SQL injection in query literal",
		zap.String("event_json", marshalEvent(event)),
		zap.String("event_id", event.EventID),
		zap.String("source", details.Source),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("subject", event.Subject),
	)
}

// LogQueryRejected records a query refused before reaching the datasource.
func (a *SecurityAuditor) LogQueryRejected(ctx context.Context, reason, query, clientIP string) {
	event := a.newEvent(ctx, EventQueryRejected, "info", map[string]string{
		"reason": reason,
		"query":  logging.SanitizeQuery(query),
	}, clientIP)

	a.logger.Info("Query rejected",
		zap.String("event_json", marshalEvent(event)),
		zap.String("event_id", event.EventID),
		zap.String("reason", reason),
		zap.String("client_ip", clientIP),
		zap.String("subject", event.Subject),
	)
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, severity string, details any, clientIP string) SecurityEvent {
	return SecurityEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   auth.Subject(ctx),
		ClientIP:  clientIP,
		Details:   details,
		Severity:  severity,
	}
}

func marshalEvent(event SecurityEvent) string {
	// Details are strings and string maps.
	b, _ := json.Marshal(event)
	return string(b)
}
