package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

func newMockSession(t *testing.T) domain.ChatSession {
	t.Helper()
	sess, err := NewMockClient().NewSession(context.Background(), "key", domain.SessionConfig{Tools: domain.ToolSpecs})
	require.NoError(t, err)
	return sess
}

func TestMockRoutesByKeyword(t *testing.T) {
	sess := newMockSession(t)
	ctx := context.Background()

	cases := map[string]domain.ToolName{
		"Saya ingin membuat jadwal dengan dokter":   domain.ToolAppointments,
		"Berapa biaya rawat inap saya?":              domain.ToolBilling,
		"Tolong lihat riwayat diagnosis pasien P-1":  domain.ToolMedicalRecords,
		"Saya mau pendaftaran pasien baru":           domain.ToolRegistration,
	}
	for text, want := range cases {
		turn, err := sess.SendMessage(ctx, text)
		require.NoError(t, err)
		require.Len(t, turn.ToolCalls, 1, text)
		assert.Equal(t, want, turn.ToolCalls[0].Name, text)
		assert.Equal(t, text, turn.ToolCalls[0].Query())
	}
}

func TestMockAnswersDirectlyWithoutIntent(t *testing.T) {
	turn, err := newMockSession(t).SendMessage(context.Background(), "halo")
	require.NoError(t, err)
	assert.Empty(t, turn.ToolCalls)
	assert.NotEmpty(t, turn.Text)
}

func TestMockRejectsInvalidCredential(t *testing.T) {
	_, err := NewMockClient().NewSession(context.Background(), "invalid-key", domain.SessionConfig{})
	assert.Equal(t, domain.ErrorKindAccessDenied, domain.KindOf(err))
}

func TestMockToolResultEchoesPayload(t *testing.T) {
	turn, err := newMockSession(t).SendToolResult(context.Background(),
		domain.ToolCall{Name: domain.ToolBilling}, "Faktur #INV-2024-001")
	require.NoError(t, err)
	assert.Contains(t, turn.Text, "Faktur #INV-2024-001")
}

func TestMockHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newMockSession(t).SendMessage(ctx, "jadwal")
	assert.Equal(t, domain.ErrorKindCancelled, domain.KindOf(err))
}
