package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PabloGalante/hospital-erp-agent/internal/app/agentflow"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/session"
	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
	"github.com/PabloGalante/hospital-erp-agent/internal/observability"
)

type Service struct {
	sessions   *session.Manager
	transcript *Transcript
	audit      domain.AuditStore
	now        func() time.Time

	orchestrator *agentflow.Orchestrator
}

// NewService wires the orchestration cycle over sessions and transcript.
// opts.Audit is replaced by audit.
func NewService(
	sessions *session.Manager,
	transcript *Transcript,
	audit domain.AuditStore,
	opts agentflow.Options,
) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Audit = audit

	return &Service{
		sessions:     sessions,
		transcript:   transcript,
		audit:        audit,
		now:          opts.Now,
		orchestrator: agentflow.NewOrchestrator(sessions, transcript, opts),
	}
}

// Start creates the first session. envCredential may be empty, in which case
// the stored credential is tried. A missing credential is not fatal: the
// conversation stays usable and reports the session as unavailable.
func (s *Service) Start(ctx context.Context, envCredential string) error {
	log := observability.LoggerFromContext(ctx)
	log.Info("starting conversation")

	err := s.sessions.Initialize(ctx, envCredential)
	switch {
	case err == nil:
		s.record(ctx, "System Initialization", "System online and ready.", domain.AuditSuccess)
	case errors.Is(err, domain.ErrNoCredential):
		log.Warn("no credential configured, waiting for one")
		s.record(ctx, "System Initialization", "System online, awaiting API key.", domain.AuditPending)
	default:
		log.Error("initial session failed", "kind", domain.KindOf(err), "error", err)
		s.record(ctx, "System Initialization", session.Describe(err), domain.AuditPending)
	}
	return err
}

// SendMessage submits one user turn. See agentflow.Orchestrator.SubmitTurn.
func (s *Service) SendMessage(ctx context.Context, text string) (*agentflow.TurnResult, error) {
	log := observability.LoggerFromContext(ctx)
	log.Info("sending message", "length", len(text))

	res, err := s.orchestrator.SubmitTurn(ctx, text)
	if err != nil {
		log.Warn("message rejected", "error", err)
		return nil, err
	}

	log.Info("send message completed", "state", res.State, "messages", len(res.Messages))
	return res, nil
}

// SubmitCredential builds a new session with an explicitly entered credential.
func (s *Service) SubmitCredential(ctx context.Context, credential string) error {
	if strings.TrimSpace(credential) == "" {
		return domain.ErrNoCredential
	}

	if err := s.sessions.Initialize(ctx, credential); err != nil {
		s.record(ctx, "Credential Update", session.Describe(err), domain.AuditDenied)
		return err
	}
	s.record(ctx, "Credential Update", "API key accepted, session ready.", domain.AuditSuccess)
	return nil
}

// ResetCredential forgets the credential. The next turn reports the session
// as unavailable until a new credential is submitted.
func (s *Service) ResetCredential(ctx context.Context) error {
	if err := s.sessions.Reset(ctx); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to reset credential", "error", err)
		return err
	}
	s.record(ctx, "Credential Reset", "API key cleared.", domain.AuditSuccess)
	return nil
}

func (s *Service) Cancel() bool {
	return s.orchestrator.Cancel()
}

// Timeline returns the newest limit messages, or all of them if limit <= 0.
func (s *Service) Timeline(limit int) []domain.Message {
	return s.transcript.Messages(limit)
}

func (s *Service) Activity() agentflow.Activity {
	return s.orchestrator.Activity()
}

func (s *Service) Ready() bool {
	return s.sessions.Ready()
}

func (s *Service) Subscribe(l agentflow.Listener) {
	s.orchestrator.Subscribe(l)
}

func (s *Service) record(ctx context.Context, action, details string, status domain.AuditStatus) {
	if s.audit == nil {
		return
	}
	err := s.audit.AppendAuditEntry(ctx, &domain.AuditEntry{
		Timestamp: s.now(),
		Action:    action,
		Agent:     domain.AgentOrchestrator,
		Details:   details,
		Status:    status,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to append audit entry", "action", action, "error", err)
	}
}
