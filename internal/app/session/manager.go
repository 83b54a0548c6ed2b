package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
	"github.com/PabloGalante/hospital-erp-agent/internal/observability"
)

// Reply is the normalized outcome of a model call. Err is set when Text
// describes a failure rather than a model answer.
type Reply struct {
	Text      string
	ToolCalls []domain.ToolCall
	Err       error
}

// Manager owns at most one chat session with the remote model. Remote calls
// run outside mu, so Ready and Reset never wait on the network.
type Manager struct {
	client domain.ModelClient
	store  domain.CredentialStore
	config domain.SessionConfig

	initMu sync.Mutex // serializes session creation

	mu         sync.Mutex
	session    domain.ChatSession
	credential string // last credential a session was built with
	generation uint64 // bumped by Reset
}

var errResetDuringInit = errors.New("credential reset while the session was being created")

func NewManager(client domain.ModelClient, store domain.CredentialStore, cfg domain.SessionConfig) *Manager {
	return &Manager{
		client: client,
		store:  store,
		config: cfg,
	}
}

// Initialize (re)creates the session. An empty credential falls back to the
// remembered one and then to the credential store.
func (m *Manager) Initialize(ctx context.Context, credential string) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	return m.initialize(ctx, credential)
}

// initialize must be called with initMu held.
func (m *Manager) initialize(ctx context.Context, credential string) error {
	log := observability.LoggerFromContext(ctx)

	m.mu.Lock()
	gen, remembered := m.generation, m.credential
	m.mu.Unlock()

	cred, err := m.resolveCredential(ctx, credential, remembered)
	if err != nil {
		return err
	}
	if cred == "" {
		m.drop(gen, false)
		log.Warn("no credential available, session not created")
		return domain.ErrNoCredential
	}

	sess, err := m.client.NewSession(ctx, cred, m.config)
	if err != nil {
		denied := domain.KindOf(err) == domain.ErrorKindAccessDenied
		m.drop(gen, denied)
		if denied {
			if clearErr := m.store.ClearCredential(ctx); clearErr != nil {
				log.Error("failed to clear rejected credential", "error", clearErr)
			}
		}
		log.Error("failed to create model session", "kind", domain.KindOf(err), "error", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		log.Warn("discarding session created across a credential reset")
		return &domain.ModelError{Kind: domain.ErrorKindSessionUnavailable, Err: errResetDuringInit}
	}
	m.session = sess
	m.credential = cred
	if err := m.store.SaveCredential(ctx, cred); err != nil {
		// the session is usable even if the credential could not be kept
		log.Error("failed to persist credential", "error", err)
	}

	log.Info("model session created", "model", m.config.Model)
	return nil
}

// drop clears the session unless a Reset happened since gen was read.
func (m *Manager) drop(gen uint64, forget bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return
	}
	m.session = nil
	if forget {
		m.credential = ""
	}
}

func (m *Manager) resolveCredential(ctx context.Context, explicit, remembered string) (string, error) {
	if c := strings.TrimSpace(explicit); c != "" {
		return c, nil
	}
	if remembered != "" {
		return remembered, nil
	}
	stored, err := m.store.LoadCredential(ctx)
	if err != nil {
		return "", fmt.Errorf("loading credential: %w", err)
	}
	return strings.TrimSpace(stored), nil
}

func (m *Manager) current() domain.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// lazySession creates a session when none exists.
func (m *Manager) lazySession(ctx context.Context) (domain.ChatSession, error) {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if sess := m.current(); sess != nil {
		return sess, nil
	}
	if err := m.initialize(ctx, ""); err != nil {
		return nil, err
	}
	if sess := m.current(); sess != nil {
		return sess, nil
	}
	return nil, errResetDuringInit
}

// SendUserMessage never returns an error: failures come back as Reply text.
func (m *Manager) SendUserMessage(ctx context.Context, text string) Reply {
	sess := m.current()
	if sess == nil {
		var err error
		if sess, err = m.lazySession(ctx); err != nil {
			observability.LoggerFromContext(ctx).Warn("lazy session recovery failed", "error", err)
			return Reply{Text: MsgSessionUnavailable, Err: unavailable(err)}
		}
	}

	turn, err := sess.SendMessage(ctx, text)
	if err != nil {
		return failed(ctx, "send message", err)
	}
	return Reply{Text: turn.Text, ToolCalls: turn.ToolCalls}
}

// SendToolResult returns the model's answer to a dispatched tool call.
func (m *Manager) SendToolResult(ctx context.Context, call domain.ToolCall, payload string) Reply {
	sess := m.current()
	if sess == nil {
		return Reply{Text: MsgNoSession, Err: &domain.ModelError{Kind: domain.ErrorKindSessionUnavailable, Err: errors.New("no session")}}
	}

	turn, err := sess.SendToolResult(ctx, call, payload)
	if err != nil {
		return failed(ctx, "send tool result", err)
	}
	if strings.TrimSpace(turn.Text) == "" {
		return Reply{Text: MsgNoResponseText, ToolCalls: turn.ToolCalls}
	}
	return Reply{Text: turn.Text, ToolCalls: turn.ToolCalls}
}

// Reset drops the session and forgets the credential everywhere. A session
// still being created when Reset runs is discarded.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil
	m.credential = ""
	m.generation++
	if err := m.store.ClearCredential(ctx); err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("credential reset")
	return nil
}

func (m *Manager) Ready() bool {
	return m.current() != nil
}

func failed(ctx context.Context, op string, err error) Reply {
	observability.LoggerFromContext(ctx).Error("model call failed", "op", op, "kind", domain.KindOf(err), "error", err)
	return Reply{Text: Describe(err), Err: err}
}

func unavailable(err error) error {
	var me *domain.ModelError
	if errors.As(err, &me) {
		return err
	}
	return &domain.ModelError{Kind: domain.ErrorKindSessionUnavailable, Err: err}
}
