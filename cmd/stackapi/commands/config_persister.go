package commands

import (
	"sync"
)

// ConfigPersister implements the auth.ConfigPersister interface by writing
// the token to the CLI configuration file.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// SaveAccessToken stores token as access_token.
func (p *ConfigPersister) SaveAccessToken(token string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()
	config.AccessToken = token

	return saveConfigStruct(config)
}
