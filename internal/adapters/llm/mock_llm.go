package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

// MockClient is an offline domain.ModelClient for local development and tests.
// It routes by keyword the way the orchestrator persona is instructed to.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ domain.ModelClient = (*MockClient)(nil)

// InvalidCredentialPrefix marks credentials the mock rejects as access-denied.
const InvalidCredentialPrefix = "invalid"

func (m *MockClient) NewSession(ctx context.Context, credential string, cfg domain.SessionConfig) (domain.ChatSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, ClassifyError(err)
	}
	if credential == "" || strings.HasPrefix(credential, InvalidCredentialPrefix) {
		return nil, &domain.ModelError{Kind: domain.ErrorKindAccessDenied, Err: fmt.Errorf("mock: credential rejected")}
	}

	declared := make(map[domain.ToolName]bool, len(cfg.Tools))
	for _, t := range cfg.Tools {
		declared[t.Name] = true
	}
	return &mockSession{declared: declared}, nil
}

var mockIntents = []struct {
	tool     domain.ToolName
	keywords []string
}{
	{domain.ToolMedicalRecords, []string{"rekam medis", "diagnosis", "riwayat", "lab", "alergi", "medical"}},
	{domain.ToolBilling, []string{"tagihan", "biaya", "asuransi", "klaim", "bpjs", "faktur", "invoice", "bill"}},
	{domain.ToolRegistration, []string{"daftar", "pendaftaran", "alamat", "pasien baru", "register"}},
	{domain.ToolAppointments, []string{"jadwal", "janji", "dokter", "appointment", "schedule"}},
}

type mockSession struct {
	declared map[domain.ToolName]bool
}

func (s *mockSession) SendMessage(ctx context.Context, text string) (*domain.ModelTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, ClassifyError(err)
	}

	lower := strings.ToLower(text)
	for _, intent := range mockIntents {
		if !s.declared[intent.tool] {
			continue
		}
		for _, kw := range intent.keywords {
			if strings.Contains(lower, kw) {
				return &domain.ModelTurn{
					ToolCalls: []domain.ToolCall{{
						ID:   "mock-" + string(intent.tool),
						Name: intent.tool,
						Args: map[string]any{"query": text},
					}},
				}, nil
			}
		}
	}

	return &domain.ModelTurn{
		Text: "[MOCK] Mohon jelaskan apakah permintaan Anda terkait Rekam Medis, Penagihan, Pendaftaran, atau Janji Temu.",
	}, nil
}

func (s *mockSession) SendToolResult(ctx context.Context, call domain.ToolCall, payload string) (*domain.ModelTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, ClassifyError(err)
	}
	return &domain.ModelTurn{
		Text: fmt.Sprintf("[MOCK] Hasil dari %s: %s\n\nCatatan: ini bukan pengganti saran medis profesional.", call.Name, payload),
	}, nil
}
