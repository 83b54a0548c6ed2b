// Package bootstrap wires the application for both binaries.
package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/PabloGalante/hospital-erp-agent/internal/adapters/llm"
	filestore "github.com/PabloGalante/hospital-erp-agent/internal/adapters/storage/file"
	memstore "github.com/PabloGalante/hospital-erp-agent/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/hospital-erp-agent/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/agentflow"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/audit"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/conversation"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/session"
	"github.com/PabloGalante/hospital-erp-agent/internal/config"
	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
	"github.com/PabloGalante/hospital-erp-agent/internal/observability"
	"github.com/PabloGalante/hospital-erp-agent/internal/policy"
)

// App holds the services a presentation surface needs.
type App struct {
	Config       *config.Config
	Conversation *conversation.Service
	Audit        *audit.Service

	closers []io.Closer
}

// New builds the application from cfg. It does not start the conversation.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	observability.SetLevel(cfg.LogLevel)

	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg}

	creds, err := NewCredentialStore(cfg)
	if err != nil {
		return nil, err
	}
	if c, ok := creds.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	engine, err := policy.Load(ctx, cfg.PolicyPath)
	if err != nil {
		app.Close()
		return nil, err
	}

	auditStore := memstore.NewAuditStore(memstore.DefaultAuditCapacity)
	sessions := session.NewManager(client, creds, session.DefaultConfig(cfg.ModelName))

	app.Conversation = conversation.NewService(sessions, conversation.NewTranscript(nil), auditStore, agentflow.Options{
		DispatchDelay:   cfg.DispatchDelay,
		TurnTimeout:     cfg.TurnTimeout,
		MultiToolPolicy: cfg.MultiToolPolicy,
		Policy:          engine,
	})
	app.Audit = audit.NewService(auditStore)

	observability.WithFields(
		"provider", cfg.Provider,
		"credential_backend", cfg.CredentialBackend,
		"multi_tool_policy", cfg.MultiToolPolicy,
	).Info("application wired")

	return app, nil
}

// NewCredentialStore picks the configured credential backend.
func NewCredentialStore(cfg *config.Config) (domain.CredentialStore, error) {
	switch cfg.CredentialBackend {
	case config.CredentialFile:
		store, err := filestore.NewCredentialStore(cfg.CredentialPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.CredentialSQLite:
		store, err := sqlitestore.NewCredentialStore(cfg.CredentialPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite credential store: %w", err)
		}
		return store, nil
	case config.CredentialMemory, "":
		return memstore.NewCredentialStore(), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
	}
}

// Close releases the stores that hold resources.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
