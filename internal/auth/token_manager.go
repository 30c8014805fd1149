package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// ConfigPersister saves an access token, e.g. to the CLI configuration file.
type ConfigPersister interface {
	SaveAccessToken(token string) error
}

// TokenManager remembers the access token obtained through a Flow and
// persists every new token.
type TokenManager struct {
	flow      *Flow
	persister ConfigPersister

	mutex sync.RWMutex
	token string
}

// NewTokenManager creates a manager starting with initialToken, which may be empty.
func NewTokenManager(flow *Flow, persister ConfigPersister, initialToken string) *TokenManager {
	return &TokenManager{
		flow:      flow,
		persister: persister,
		token:     initialToken,
	}
}

// Token returns the current access token, or an empty string.
func (m *TokenManager) Token() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.token
}

// SetToken replaces the access token and persists it.
func (m *TokenManager) SetToken(token string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.token = token

	return m.persist(token)
}

// Exchange trades code for an access token, remembers and persists it.
func (m *TokenManager) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	token, err := m.flow.Exchange(ctx, code, redirectURI)
	if err != nil {
		return "", err
	}

	err = m.SetToken(token)
	if err != nil {
		return token, err
	}

	return token, nil
}

func (m *TokenManager) persist(token string) error {
	if m.persister == nil {
		return ErrNoConfigPersister
	}

	err := m.persister.SaveAccessToken(token)
	if err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}

	return nil
}
