package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// Manager manages configuration loading, validation, and access
type Manager struct {
	config     *Config
	loader     *Loader
	validator  *Validator
	configPath string
	mu         sync.RWMutex
}

// NewManager loads configuration from the standard locations
func NewManager() (*Manager, error) {
	return NewManagerWithPaths(GetConfigPaths())
}

// NewManagerWithPaths loads configuration from the given locations
func NewManagerWithPaths(precedence ConfigPrecedence) (*Manager, error) {
	loader := NewLoader(precedence)

	config, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	m := &Manager{
		config:    config,
		loader:    loader,
		validator: NewValidator(),
	}
	if loaded := loader.Loaded(); len(loaded) > 0 {
		m.configPath = loaded[len(loaded)-1].Path
	}
	return m, nil
}

// NewManagerWithConfig creates a manager with a specific configuration
func NewManagerWithConfig(config *Config) (*Manager, error) {
	validator := NewValidator()
	if err := validator.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Manager{
		config:    config,
		loader:    NewLoader(GetConfigPaths()),
		validator: validator,
	}, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Sources returns the files the configuration was loaded from
func (m *Manager) Sources() []ConfigLocation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loader.Loaded()
}

// GetConfigPath returns the highest precedence file that was loaded, if any
func (m *Manager) GetConfigPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// SaveTo saves the configuration to a specific path
func (m *Manager) SaveTo(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.loader.SaveFile(m.config, path)
}

// Validate validates the current configuration
func (m *Manager) Validate() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validator.Validate(m.config)
}

// ExportConfig renders the configuration as JSON
func (m *Manager) ExportConfig(includeSecrets bool) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	config := *m.config
	if !includeSecrets && config.API.SessionKey != "" {
		config.API.SessionKey = "<redacted>"
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(config); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
