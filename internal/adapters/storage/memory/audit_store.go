package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

// DefaultAuditCapacity bounds the in-memory audit log.
const DefaultAuditCapacity = 500

// AuditStore is a simple in-memory implementation of domain.AuditStore.
// It is NOT persistent; the oldest entries are dropped past its capacity.
type AuditStore struct {
	mu       sync.RWMutex
	entries  []*domain.AuditEntry
	capacity int
}

// NewAuditStore creates a new in-memory AuditStore. capacity <= 0 uses DefaultAuditCapacity.
func NewAuditStore(capacity int) *AuditStore {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &AuditStore{capacity: capacity}
}

// AppendAuditEntry saves a new audit entry.
func (s *AuditStore) AppendAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = domain.AuditEntryID(uuid.New().String()[:8])
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	s.entries = append(s.entries, entry)
	if over := len(s.entries) - s.capacity; over > 0 {
		s.entries = append([]*domain.AuditEntry(nil), s.entries[over:]...)
	}

	return nil
}

// ListAuditEntries returns the last `limit` entries, newest first.
// If limit <= 0, returns all.
func (s *AuditStore) ListAuditEntries(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	out := make([]*domain.AuditEntry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}

	return out, nil
}
