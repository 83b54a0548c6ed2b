package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

func TestGenerateConfigDeclaresTools(t *testing.T) {
	cfg := generateConfig(domain.SessionConfig{
		SystemInstruction: "be strict",
		Temperature:       0.2,
		Tools:             domain.ToolSpecs,
	})

	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.2, *cfg.Temperature, 1e-6)
	require.Len(t, cfg.Tools, 1)
	require.Len(t, cfg.Tools[0].FunctionDeclarations, 4)

	decl := cfg.Tools[0].FunctionDeclarations[3]
	assert.Equal(t, string(domain.ToolAppointments), decl.Name)
	assert.Equal(t, []string{"query"}, decl.Parameters.Required)
	assert.Equal(t, genai.TypeString, decl.Parameters.Properties["query"].Type)
}

func TestToModelTurnKeepsCallOrder(t *testing.T) {
	res := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{Name: string(domain.ToolBilling), Args: map[string]any{"query": "a"}}},
					{FunctionCall: &genai.FunctionCall{Name: string(domain.ToolAppointments), Args: map[string]any{"query": "b"}}},
				},
			},
		}},
	}

	turn := toModelTurn(res)

	require.Len(t, turn.ToolCalls, 2)
	assert.Equal(t, domain.ToolBilling, turn.ToolCalls[0].Name)
	assert.Equal(t, "b", turn.ToolCalls[1].Query())
	assert.Empty(t, toModelTurn(nil).ToolCalls)
}

func TestGeminiRequiresCredential(t *testing.T) {
	_, err := NewGeminiClient("").NewSession(context.Background(), "", domain.SessionConfig{})
	assert.Equal(t, domain.ErrorKindAccessDenied, domain.KindOf(err))
}

type geminiRequest struct {
	Contents []struct {
		Role  string           `json:"role"`
		Parts []map[string]any `json:"parts"`
	} `json:"contents"`
}

func newGeminiTestServer(t *testing.T, replies []string) (*httptest.Server, *[]geminiRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []geminiRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"):
			body, _ := io.ReadAll(r.Body)
			var req geminiRequest
			_ = json.Unmarshal(body, &req)

			mu.Lock()
			requests = append(requests, req)
			idx := len(requests) - 1
			mu.Unlock()

			fmt.Fprint(w, replies[idx])
		case strings.HasSuffix(r.URL.Path, "/models/gemini-test"):
			fmt.Fprint(w, `{"name":"models/gemini-test"}`)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

const geminiTwoCalls = `{"candidates":[{"content":{"role":"model","parts":[
 {"text":"Saya hubungkan Anda."},
 {"functionCall":{"id":"fc_1","name":"call_billing_insurance_agent","args":{"query":"tagihan"}}},
 {"functionCall":{"id":"fc_2","name":"call_appointment_management_agent","args":{"query":"jadwal"}}}
]},"finishReason":"STOP"}]}`

const geminiText = `{"candidates":[{"content":{"role":"model","parts":[{"text":"Tagihan Anda Rp 1.500.000."}]},"finishReason":"STOP"}]}`

func functionResponses(parts []map[string]any) []map[string]any {
	var out []map[string]any
	for _, p := range parts {
		if fr, ok := p["functionResponse"].(map[string]any); ok {
			out = append(out, fr)
		}
	}
	return out
}

func TestGeminiToolResultAnswersEveryCall(t *testing.T) {
	ctx := context.Background()
	server, requests := newGeminiTestServer(t, []string{geminiTwoCalls, geminiText, geminiText})

	sess, err := NewGeminiClient("gemini-test").WithBaseURL(server.URL).
		NewSession(ctx, "test-key", domain.SessionConfig{Model: "gemini-test", Tools: domain.ToolSpecs})
	require.NoError(t, err)

	turn, err := sess.SendMessage(ctx, "Cek tagihan dan buat jadwal")
	require.NoError(t, err)
	require.Len(t, turn.ToolCalls, 2)
	assert.Equal(t, "Saya hubungkan Anda.", turn.Text)

	turn, err = sess.SendToolResult(ctx, turn.ToolCalls[0], "Rp 1.500.000")
	require.NoError(t, err)
	assert.Equal(t, "Tagihan Anda Rp 1.500.000.", turn.Text)

	require.Len(t, *requests, 2)
	last := (*requests)[1].Contents[len((*requests)[1].Contents)-1]
	responses := functionResponses(last.Parts)
	require.Len(t, responses, 2)
	assert.Equal(t, "fc_1", responses[0]["id"])
	assert.Equal(t, "Rp 1.500.000", responses[0]["response"].(map[string]any)["result"])
	assert.Equal(t, "fc_2", responses[1]["id"])
	assert.Equal(t, notDispatchedNote, responses[1]["response"].(map[string]any)["result"])

	// nothing is pending any more, so the next message carries only text
	_, err = sess.SendMessage(ctx, "Terima kasih")
	require.NoError(t, err)
	require.Len(t, *requests, 3)
	next := (*requests)[2].Contents[len((*requests)[2].Contents)-1]
	assert.Empty(t, functionResponses(next.Parts))
}

func TestResponseTextSkipsNonTextParts(t *testing.T) {
	res := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []*genai.Part{
					{Text: "thinking", Thought: true},
					{Text: "Baik, "},
					{FunctionCall: &genai.FunctionCall{Name: string(domain.ToolBilling)}},
					{Text: "sebentar."},
				},
			},
		}},
	}

	assert.Equal(t, "Baik, sebentar.", responseText(res))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))
}
