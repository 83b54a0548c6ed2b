package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("send: %w", &ModelError{Kind: ErrorKindModelNotFound, Err: errors.New("404")})

	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, ErrorKindModelNotFound, KindOf(wrapped))
	assert.Equal(t, ErrorKindSessionUnavailable, KindOf(ErrNoCredential))
	assert.Equal(t, ErrorKindUnknown, KindOf(errors.New("boom")))
}

func TestModelErrorUnwrap(t *testing.T) {
	err := &ModelError{Kind: ErrorKindCancelled, Err: context.Canceled}

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "cancelled: context canceled", err.Error())
}

func TestProfileFallsBackToOrchestrator(t *testing.T) {
	assert.Equal(t, "Agen Janji Temu", Profile(AgentAppointments).Name)
	assert.Equal(t, AgentOrchestrator, Profile(AgentID("NOPE")).ID)
	assert.Len(t, Profiles(), len(Agents))
}
