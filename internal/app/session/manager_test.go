package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/hospital-erp-agent/internal/adapters/llm"
	"github.com/PabloGalante/hospital-erp-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/session"
	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

// countingClient wraps the mock client and records every session request.
type countingClient struct {
	inner       domain.ModelClient
	credentials []string
	configs     []domain.SessionConfig
	failWith    error
}

func (c *countingClient) NewSession(ctx context.Context, credential string, cfg domain.SessionConfig) (domain.ChatSession, error) {
	c.credentials = append(c.credentials, credential)
	c.configs = append(c.configs, cfg)
	if c.failWith != nil {
		return nil, c.failWith
	}
	return c.inner.NewSession(ctx, credential, cfg)
}

type failingSession struct{ err error }

func (s failingSession) SendMessage(context.Context, string) (*domain.ModelTurn, error) {
	return nil, s.err
}

func (s failingSession) SendToolResult(context.Context, domain.ToolCall, string) (*domain.ModelTurn, error) {
	return nil, s.err
}

type staticClient struct{ sess domain.ChatSession }

func (c staticClient) NewSession(context.Context, string, domain.SessionConfig) (domain.ChatSession, error) {
	return c.sess, nil
}

// blockingSession holds every call until release is closed.
type blockingSession struct {
	started chan struct{}
	release chan struct{}
}

func (s blockingSession) SendMessage(context.Context, string) (*domain.ModelTurn, error) {
	close(s.started)
	<-s.release
	return &domain.ModelTurn{Text: "done"}, nil
}

func (s blockingSession) SendToolResult(context.Context, domain.ToolCall, string) (*domain.ModelTurn, error) {
	return &domain.ModelTurn{Text: "done"}, nil
}

// gatedClient blocks session creation until release is closed.
type gatedClient struct {
	started chan struct{}
	release chan struct{}
}

func (c gatedClient) NewSession(context.Context, string, domain.SessionConfig) (domain.ChatSession, error) {
	close(c.started)
	<-c.release
	return failingSession{}, nil
}

func newManager(t *testing.T) (*session.Manager, *countingClient, *memory.CredentialStore) {
	t.Helper()
	client := &countingClient{inner: llm.NewMockClient()}
	store := memory.NewCredentialStore()
	return session.NewManager(client, store, session.DefaultConfig("gemini-2.5-flash")), client, store
}

func TestInitializeTwiceCreatesFreshSessions(t *testing.T) {
	ctx := context.Background()
	mgr, client, store := newManager(t)

	require.NoError(t, mgr.Initialize(ctx, "key-1"))
	require.NoError(t, mgr.Initialize(ctx, "key-1"))

	assert.True(t, mgr.Ready())
	require.Len(t, client.configs, 2)
	assert.Equal(t, client.configs[0], client.configs[1])
	assert.InDelta(t, 0.2, client.configs[0].Temperature, 1e-6)
	assert.Len(t, client.configs[0].Tools, 4)

	stored, _ := store.LoadCredential(ctx)
	assert.Equal(t, "key-1", stored)
}

func TestInitializeWithoutCredential(t *testing.T) {
	mgr, client, _ := newManager(t)

	err := mgr.Initialize(context.Background(), "   ")

	assert.ErrorIs(t, err, domain.ErrNoCredential)
	assert.False(t, mgr.Ready())
	assert.Empty(t, client.credentials)
}

func TestInitializeUsesStoredCredential(t *testing.T) {
	ctx := context.Background()
	mgr, client, store := newManager(t)
	require.NoError(t, store.SaveCredential(ctx, "persisted"))

	require.NoError(t, mgr.Initialize(ctx, ""))
	assert.Equal(t, []string{"persisted"}, client.credentials)
}

func TestAccessDeniedClearsCredential(t *testing.T) {
	ctx := context.Background()
	mgr, _, store := newManager(t)
	require.NoError(t, mgr.Initialize(ctx, "good-key"))

	err := mgr.Initialize(ctx, "invalid-key")
	assert.Equal(t, domain.ErrorKindAccessDenied, domain.KindOf(err))
	assert.False(t, mgr.Ready())

	stored, _ := store.LoadCredential(ctx)
	assert.Empty(t, stored)
	assert.ErrorIs(t, mgr.Initialize(ctx, ""), domain.ErrNoCredential)
}

func TestTransientFailureKeepsCredential(t *testing.T) {
	ctx := context.Background()
	mgr, client, store := newManager(t)
	require.NoError(t, mgr.Initialize(ctx, "good-key"))

	client.failWith = &domain.ModelError{Kind: domain.ErrorKindNetwork, Err: errors.New("dial tcp: refused")}
	require.Error(t, mgr.Initialize(ctx, ""))

	stored, _ := store.LoadCredential(ctx)
	assert.Equal(t, "good-key", stored)

	client.failWith = nil
	require.NoError(t, mgr.Initialize(ctx, ""))
	assert.Equal(t, "good-key", client.credentials[len(client.credentials)-1])
}

func TestSendUserMessageRecoversLazily(t *testing.T) {
	ctx := context.Background()
	mgr, client, store := newManager(t)
	require.NoError(t, store.SaveCredential(ctx, "persisted"))

	reply := mgr.SendUserMessage(ctx, "Saya ingin membuat jadwal dengan dokter")

	require.NoError(t, reply.Err)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, domain.ToolAppointments, reply.ToolCalls[0].Name)
	assert.Len(t, client.credentials, 1)
}

func TestSendUserMessageWithoutSession(t *testing.T) {
	mgr, client, _ := newManager(t)

	reply := mgr.SendUserMessage(context.Background(), "halo")

	assert.Equal(t, session.MsgSessionUnavailable, reply.Text)
	assert.Equal(t, domain.ErrorKindSessionUnavailable, domain.KindOf(reply.Err))
	assert.Empty(t, reply.ToolCalls)
	assert.Empty(t, client.credentials)
}

func TestResetForcesNewCredential(t *testing.T) {
	ctx := context.Background()
	mgr, _, store := newManager(t)
	require.NoError(t, mgr.Initialize(ctx, "key-1"))

	require.NoError(t, mgr.Reset(ctx))

	assert.False(t, mgr.Ready())
	stored, _ := store.LoadCredential(ctx)
	assert.Empty(t, stored)
	assert.ErrorIs(t, mgr.Initialize(ctx, ""), domain.ErrNoCredential)
}

func TestRemoteFailureIsNormalized(t *testing.T) {
	ctx := context.Background()
	remoteErr := &domain.ModelError{Kind: domain.ErrorKindModelNotFound, Err: errors.New("404")}
	mgr := session.NewManager(staticClient{sess: failingSession{err: remoteErr}}, memory.NewCredentialStore(), session.DefaultConfig(""))
	require.NoError(t, mgr.Initialize(ctx, "key"))

	reply := mgr.SendUserMessage(ctx, "halo")
	assert.Equal(t, session.Describe(remoteErr), reply.Text)
	assert.Empty(t, reply.ToolCalls)
	assert.ErrorIs(t, reply.Err, remoteErr)

	reply = mgr.SendToolResult(ctx, domain.ToolCall{Name: domain.ToolBilling}, "payload")
	assert.Equal(t, session.Describe(remoteErr), reply.Text)
}

func TestSendToolResultWithoutSession(t *testing.T) {
	mgr, _, _ := newManager(t)

	reply := mgr.SendToolResult(context.Background(), domain.ToolCall{Name: domain.ToolBilling}, "x")
	assert.Equal(t, session.MsgNoSession, reply.Text)
	assert.Error(t, reply.Err)
}

func TestReadyDoesNotWaitForModelCall(t *testing.T) {
	ctx := context.Background()
	sess := blockingSession{started: make(chan struct{}), release: make(chan struct{})}
	mgr := session.NewManager(staticClient{sess: sess}, memory.NewCredentialStore(), session.DefaultConfig(""))
	require.NoError(t, mgr.Initialize(ctx, "key"))

	done := make(chan session.Reply, 1)
	go func() { done <- mgr.SendUserMessage(ctx, "halo") }()
	<-sess.started

	ready := make(chan bool, 1)
	go func() { ready <- mgr.Ready() }()

	select {
	case ok := <-ready:
		assert.True(t, ok)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Ready blocked while a model call was in flight")
	}

	reset := make(chan error, 1)
	go func() { reset <- mgr.Reset(ctx) }()
	select {
	case err := <-reset:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Reset blocked while a model call was in flight")
	}

	close(sess.release)
	reply := <-done
	require.NoError(t, reply.Err)
	assert.Equal(t, "done", reply.Text)
	assert.False(t, mgr.Ready())
}

func TestResetDuringInitializeDiscardsSession(t *testing.T) {
	ctx := context.Background()
	client := gatedClient{started: make(chan struct{}), release: make(chan struct{})}
	store := memory.NewCredentialStore()
	mgr := session.NewManager(client, store, session.DefaultConfig(""))

	initErr := make(chan error, 1)
	go func() { initErr <- mgr.Initialize(ctx, "key") }()
	<-client.started

	assert.False(t, mgr.Ready())
	require.NoError(t, mgr.Reset(ctx))
	close(client.release)

	err := <-initErr
	assert.Equal(t, domain.ErrorKindSessionUnavailable, domain.KindOf(err))
	assert.False(t, mgr.Ready())

	stored, _ := store.LoadCredential(ctx)
	assert.Empty(t, stored)
}
