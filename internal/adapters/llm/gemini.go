package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

// notDispatchedNote answers tool calls the orchestrator did not carry out.
const notDispatchedNote = "Not dispatched: one specialist per turn."

// GeminiClient creates chat sessions on the Gemini API.
type GeminiClient struct {
	modelName string
	baseURL   string
}

func NewGeminiClient(modelName string) *GeminiClient {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &GeminiClient{modelName: modelName}
}

// WithBaseURL points the client at another Gemini API endpoint.
func (g *GeminiClient) WithBaseURL(baseURL string) *GeminiClient {
	g.baseURL = baseURL
	return g
}

var _ domain.ModelClient = (*GeminiClient)(nil)

// NewSession implements domain.ModelClient. The credential and model are
// checked with a metadata lookup before the chat is created, since creating
// a chat does not reach the network.
func (g *GeminiClient) NewSession(ctx context.Context, credential string, cfg domain.SessionConfig) (domain.ChatSession, error) {
	if credential == "" {
		return nil, &domain.ModelError{Kind: domain.ErrorKindAccessDenied, Err: domain.ErrNoCredential}
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = g.modelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      credential,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
	})
	if err != nil {
		return nil, ClassifyError(fmt.Errorf("creating gemini client: %w", err))
	}

	if _, err := client.Models.Get(ctx, modelName, nil); err != nil {
		return nil, ClassifyError(fmt.Errorf("validating model %s: %w", modelName, err))
	}

	chat, err := client.Chats.Create(ctx, modelName, generateConfig(cfg), nil)
	if err != nil {
		return nil, ClassifyError(fmt.Errorf("creating chat: %w", err))
	}

	return &geminiSession{chat: chat}, nil
}

func generateConfig(cfg domain.SessionConfig) *genai.GenerateContentConfig {
	temp := cfg.Temperature

	decls := make([]*genai.FunctionDeclaration, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        string(t.Name),
			Description: t.Description,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {Type: genai.TypeString, Description: t.QueryDescription},
				},
				Required: []string{"query"},
			},
		})
	}

	out := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser),
		Temperature:       &temp,
	}
	if len(decls) > 0 {
		out.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return out
}

type geminiSession struct {
	chat    *genai.Chat
	pending []*genai.FunctionCall // calls of the last reply still waiting for a response
}

func (s *geminiSession) SendMessage(ctx context.Context, text string) (*domain.ModelTurn, error) {
	parts := make([]*genai.Part, 0, len(s.pending)+1)
	for _, fc := range s.pending {
		parts = append(parts, refusal(fc))
	}
	parts = append(parts, genai.NewPartFromText(text))
	return s.send(ctx, "gemini send message", parts)
}

// SendToolResult answers call and every other pending call in one turn, in
// the order the model asked for them. The API rejects a turn whose function
// responses do not match the previous function calls.
func (s *geminiSession) SendToolResult(ctx context.Context, call domain.ToolCall, payload string) (*domain.ModelTurn, error) {
	answer := genai.NewPartFromFunctionResponse(string(call.Name), map[string]any{"result": payload})
	answer.FunctionResponse.ID = call.ID

	parts := make([]*genai.Part, 0, len(s.pending)+1)
	answered := false
	for _, fc := range s.pending {
		if !answered && fc.ID == call.ID && fc.Name == string(call.Name) {
			parts = append(parts, answer)
			answered = true
			continue
		}
		parts = append(parts, refusal(fc))
	}
	if !answered {
		parts = append(parts, answer)
	}
	return s.send(ctx, "gemini send tool result", parts)
}

func refusal(fc *genai.FunctionCall) *genai.Part {
	part := genai.NewPartFromFunctionResponse(fc.Name, map[string]any{"result": notDispatchedNote})
	part.FunctionResponse.ID = fc.ID
	return part
}

// send keeps the pending calls when the request fails, since the chat does
// not record a failed exchange.
func (s *geminiSession) send(ctx context.Context, op string, parts []*genai.Part) (*domain.ModelTurn, error) {
	res, err := s.chat.Send(ctx, parts...)
	if err != nil {
		return nil, ClassifyError(fmt.Errorf("%s: %w", op, err))
	}

	s.pending = nil
	for _, fc := range res.FunctionCalls() {
		if fc != nil {
			s.pending = append(s.pending, fc)
		}
	}
	return toModelTurn(res), nil
}

func toModelTurn(res *genai.GenerateContentResponse) *domain.ModelTurn {
	turn := &domain.ModelTurn{}
	if res == nil {
		return turn
	}

	turn.Text = responseText(res)
	for _, fc := range res.FunctionCalls() {
		if fc == nil {
			continue
		}
		turn.ToolCalls = append(turn.ToolCalls, domain.ToolCall{
			ID:   fc.ID,
			Name: domain.ToolName(fc.Name),
			Args: fc.Args,
		})
	}
	return turn
}

// responseText joins the text parts of the first candidate. Unlike
// GenerateContentResponse.Text it does not log about function call parts.
func responseText(res *genai.GenerateContentResponse) string {
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
