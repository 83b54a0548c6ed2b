package domain

import "context"

// ModelClient creates chat sessions against a remote language model.
type ModelClient interface {
	// NewSession builds and validates a fresh session. Errors are *ModelError.
	NewSession(ctx context.Context, credential string, cfg SessionConfig) (ChatSession, error)
}

// ChatSession is a stateful conversation with the remote model.
// Calls must not overlap.
type ChatSession interface {
	SendMessage(ctx context.Context, text string) (*ModelTurn, error)
	SendToolResult(ctx context.Context, call ToolCall, payload string) (*ModelTurn, error)
}

// CredentialStore persists the single API credential.
type CredentialStore interface {
	// LoadCredential returns "" when nothing is stored.
	LoadCredential(ctx context.Context) (string, error)
	SaveCredential(ctx context.Context, credential string) error
	ClearCredential(ctx context.Context) error
}

// CredentialKey is the fixed name the credential is stored under.
const CredentialKey = "hospital_erp_api_key"

// DispatchRequest describes a routing decision before it is carried out.
type DispatchRequest struct {
	Tool  ToolName `json:"tool_name"`
	Agent AgentID  `json:"agent"`
	Known bool     `json:"known"`
	Query string   `json:"query"`
}

type DispatchDecision struct {
	Allowed bool
	Reason  string
}

// DispatchPolicy decides whether a resolved route may receive the request.
type DispatchPolicy interface {
	Authorize(ctx context.Context, req DispatchRequest) (DispatchDecision, error)
}
