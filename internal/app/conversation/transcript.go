package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

const WelcomeMessage = "Selamat datang di Sistem ERP Rumah Sakit Cerdas. Saya adalah Orkestrator. Silakan ajukan pertanyaan terkait Medis, Penagihan, Pendaftaran, atau Janji Temu."

// Transcript is the append-only message log of the conversation.
type Transcript struct {
	mu       sync.RWMutex
	messages []domain.Message
	now      func() time.Time
}

// NewTranscript returns a transcript seeded with the welcome message.
func NewTranscript(now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	t := &Transcript{now: now}
	t.Append(domain.Message{Role: domain.RoleSystem, Content: WelcomeMessage, Agent: domain.AgentOrchestrator})
	return t
}

// Append stores msg with a fresh id and timestamp and returns the stored copy.
func (t *Transcript) Append(msg domain.Message) domain.Message {
	msg.ID = domain.MessageID(uuid.NewString())
	msg.Timestamp = t.now()
	if msg.Role != domain.RoleUser && msg.Agent == "" {
		msg.Agent = domain.AgentOrchestrator
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
	return msg
}

// Messages returns a copy of the log, oldest first. A positive limit keeps
// only the newest limit messages.
func (t *Transcript) Messages(limit int) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	src := t.messages
	if limit > 0 && len(src) > limit {
		src = src[len(src)-limit:]
	}
	out := make([]domain.Message, len(src))
	copy(out, src)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
