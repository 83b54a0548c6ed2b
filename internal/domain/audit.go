package domain

import "context"

type AuditEntryID string

type AuditStatus string

const (
	AuditSuccess AuditStatus = "SUCCESS"
	AuditPending AuditStatus = "PENDING"
	AuditDenied  AuditStatus = "DENIED"
)

// AuditEntry records one step of the orchestration for the audit panel.
type AuditEntry struct {
	ID        AuditEntryID `json:"id"`
	Timestamp Timestamp    `json:"timestamp"`
	Action    string       `json:"action"`
	Agent     AgentID      `json:"agent"`
	Details   string       `json:"details"`
	Status    AuditStatus  `json:"status"`
}

// AuditStore defines the minimum operations to keep the audit log
type AuditStore interface {
	AppendAuditEntry(ctx context.Context, entry *AuditEntry) error
	// ListAuditEntries returns the newest entries first.
	ListAuditEntries(ctx context.Context, limit int) ([]*AuditEntry, error)
}
