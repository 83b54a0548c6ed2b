package memory

import (
	"context"
	"sync"
)

// CredentialStore keeps the credential for the lifetime of the process.
type CredentialStore struct {
	mu         sync.RWMutex
	credential string
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

func (s *CredentialStore) LoadCredential(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.credential, nil
}

func (s *CredentialStore) SaveCredential(ctx context.Context, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credential = credential
	return nil
}

func (s *CredentialStore) ClearCredential(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credential = ""
	return nil
}
