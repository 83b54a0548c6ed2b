package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

// OpenAIClient creates sessions on any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	baseURL   string
	modelName string
	extra     []option.RequestOption
}

func NewOpenAIClient(baseURL, modelName string, opts ...option.RequestOption) *OpenAIClient {
	return &OpenAIClient{baseURL: baseURL, modelName: modelName, extra: opts}
}

var _ domain.ModelClient = (*OpenAIClient)(nil)

func (c *OpenAIClient) NewSession(ctx context.Context, credential string, cfg domain.SessionConfig) (domain.ChatSession, error) {
	if credential == "" {
		return nil, &domain.ModelError{Kind: domain.ErrorKindAccessDenied, Err: domain.ErrNoCredential}
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = c.modelName
	}

	opts := []option.RequestOption{option.WithAPIKey(credential)}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	opts = append(opts, c.extra...)
	client := openai.NewClient(opts...)

	if _, err := client.Models.Get(ctx, modelName); err != nil {
		return nil, ClassifyError(fmt.Errorf("validating model %s: %w", modelName, err))
	}

	params := openai.ChatCompletionNewParams{
		Model:       modelName,
		Temperature: openai.Float(float64(cfg.Temperature)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(cfg.SystemInstruction),
		},
	}
	for _, t := range cfg.Tools {
		params.Tools = append(params.Tools, toolParam(t))
	}

	return &openAISession{client: client, params: params}, nil
}

func toolParam(t domain.ToolSpec) openai.ChatCompletionToolUnionParam {
	return openai.ChatCompletionToolUnionParam{
		OfFunction: &openai.ChatCompletionFunctionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        string(t.Name),
				Description: openai.String(t.Description),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]string{
							"type":        "string",
							"description": t.QueryDescription,
						},
					},
					"required": []string{"query"},
				},
			},
		},
	}
}

// openAISession keeps the whole history, the API itself is stateless.
type openAISession struct {
	client  openai.Client
	params  openai.ChatCompletionNewParams
	pending []string // tool call ids of the last reply still waiting for a result
}

func (s *openAISession) SendMessage(ctx context.Context, text string) (*domain.ModelTurn, error) {
	return s.send(ctx, "", openai.UserMessage(text))
}

func (s *openAISession) SendToolResult(ctx context.Context, call domain.ToolCall, payload string) (*domain.ModelTurn, error) {
	return s.send(ctx, call.ID, openai.ToolMessage(payload, call.ID))
}

// send appends msg and asks for the next completion. Every tool call id of
// the previous reply needs an answer or the endpoint rejects the history, so
// calls that were not dispatched get a note first. On failure the history is
// rolled back.
func (s *openAISession) send(ctx context.Context, answered string, msg openai.ChatCompletionMessageParamUnion) (*domain.ModelTurn, error) {
	base := len(s.params.Messages)
	pending := s.pending

	for _, id := range pending {
		if id == answered {
			continue
		}
		s.params.Messages = append(s.params.Messages, openai.ToolMessage(notDispatchedNote, id))
	}
	s.pending = nil
	s.params.Messages = append(s.params.Messages, msg)

	completion, err := s.client.Chat.Completions.New(ctx, s.params)
	if err != nil {
		s.params.Messages = s.params.Messages[:base]
		s.pending = pending
		return nil, ClassifyError(fmt.Errorf("openai chat completion: %w", err))
	}
	if len(completion.Choices) == 0 {
		return &domain.ModelTurn{}, nil
	}

	message := completion.Choices[0].Message
	s.params.Messages = append(s.params.Messages, message.ToParam())

	turn := &domain.ModelTurn{Text: message.Content}
	for _, tc := range message.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{"query": tc.Function.Arguments}
			}
		}
		turn.ToolCalls = append(turn.ToolCalls, domain.ToolCall{
			ID:   tc.ID,
			Name: domain.ToolName(tc.Function.Name),
			Args: args,
		})
		s.pending = append(s.pending, tc.ID)
	}
	return turn, nil
}
