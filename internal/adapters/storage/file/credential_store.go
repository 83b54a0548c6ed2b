// Package file keeps the credential in a YAML document on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

type document struct {
	Key     string    `yaml:"key"`
	Value   string    `yaml:"value"`
	SavedAt time.Time `yaml:"saved_at"`
}

type CredentialStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewCredentialStore(path string) (*CredentialStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credential file path is required")
	}
	return &CredentialStore{path: path, now: time.Now}, nil
}

func (s *CredentialStore) LoadCredential(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading credential file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("decoding credential file: %w", err)
	}
	if doc.Key != domain.CredentialKey {
		return "", nil
	}
	return doc.Value, nil
}

func (s *CredentialStore) SaveCredential(ctx context.Context, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(document{
		Key:     domain.CredentialKey,
		Value:   credential,
		SavedAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating credential dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing credential file: %w", err)
	}
	return nil
}

func (s *CredentialStore) ClearCredential(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credential file: %w", err)
	}
	return nil
}
