package audit

import (
	"context"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

const DefaultLimit = 20

// Service holds the logic of reading the audit log
type Service struct {
	store domain.AuditStore
}

// NewService creates an audit service from an AuditStore
func NewService(store domain.AuditStore) *Service {
	return &Service{
		store: store,
	}
}

// Recent returns the last `limit` audit entries, newest first.
// If limit <= 0, DefaultLimit is used.
func (s *Service) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if s.store == nil {
		return []*domain.AuditEntry{}, nil
	}

	if limit <= 0 {
		limit = DefaultLimit
	}

	return s.store.ListAuditEntries(ctx, limit)
}
