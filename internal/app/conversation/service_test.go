package conversation_test

import (
	"context"
	"testing"

	"github.com/PabloGalante/hospital-erp-agent/internal/adapters/llm"
	"github.com/PabloGalante/hospital-erp-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/agentflow"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/conversation"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/session"
	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

func newService(t *testing.T) (*conversation.Service, *memory.AuditStore) {
	t.Helper()

	sessions := session.NewManager(llm.NewMockClient(), memory.NewCredentialStore(), session.DefaultConfig(""))
	audit := memory.NewAuditStore(memory.DefaultAuditCapacity)
	svc := conversation.NewService(sessions, conversation.NewTranscript(nil), audit, agentflow.Options{})
	return svc, audit
}

func TestStartAndSendMessage(t *testing.T) {
	ctx := context.Background()
	svc, audit := newService(t)

	if err := svc.Start(ctx, "test-key"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !svc.Ready() {
		t.Fatalf("expected a ready session after Start")
	}

	res, err := svc.SendMessage(ctx, "Berapa biaya rawat inap saya?")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if res.State != domain.TurnToolResultSent || res.Agent != domain.AgentBilling {
		t.Fatalf("unexpected turn result: state=%s agent=%s", res.State, res.Agent)
	}

	timeline := svc.Timeline(0)
	if len(timeline) != 3 {
		t.Fatalf("expected welcome, user and reply messages, got %d", len(timeline))
	}
	if last := timeline[2]; last.Role != domain.RoleModel || last.Agent != domain.AgentOrchestrator || last.Content == "" {
		t.Fatalf("unexpected final message: %+v", last)
	}

	entries, _ := audit.ListAuditEntries(ctx, 0)
	if len(entries) == 0 || entries[len(entries)-1].Action != "System Initialization" {
		t.Fatalf("expected the oldest audit entry to be the initialization")
	}
}

func TestSendMessageWithoutCredential(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	if err := svc.Start(ctx, ""); err == nil {
		t.Fatalf("expected Start to report the missing credential")
	}

	res, err := svc.SendMessage(ctx, "halo")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if res.State != domain.TurnFailed {
		t.Fatalf("expected failed turn, got %s", res.State)
	}
	if got := res.Messages[len(res.Messages)-1]; got.Role != domain.RoleSystem || got.Content != session.MsgSessionUnavailable {
		t.Fatalf("unexpected failure message: %+v", got)
	}
	if svc.Activity().Processing {
		t.Fatalf("processing flag left set")
	}
}

func TestSubmitAndResetCredential(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	if err := svc.SubmitCredential(ctx, "  "); err == nil {
		t.Fatalf("expected blank credential to be rejected")
	}
	if err := svc.SubmitCredential(ctx, "invalid-key"); domain.KindOf(err) != domain.ErrorKindAccessDenied {
		t.Fatalf("expected access denied, got %v", err)
	}
	if err := svc.SubmitCredential(ctx, "good-key"); err != nil {
		t.Fatalf("SubmitCredential failed: %v", err)
	}
	if !svc.Ready() {
		t.Fatalf("expected a ready session")
	}

	if err := svc.ResetCredential(ctx); err != nil {
		t.Fatalf("ResetCredential failed: %v", err)
	}
	if svc.Ready() {
		t.Fatalf("expected no session after reset")
	}
}
