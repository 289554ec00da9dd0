// Package config loads reportfetch configuration from the environment and
// optional .env files.
package config

import (
	"fmt"
	"sync"
)

// Provider manages configuration lifecycle and ensures singleton behavior
type Provider struct {
	config *Config
	dir    string
	mu     sync.RWMutex
	loaded bool
}

var (
	instance *Provider
	once     sync.Once
)

// GetProvider returns the process-wide configuration provider, reading .env
// files from the working directory.
func GetProvider() *Provider {
	once.Do(func() {
		instance = NewProvider(".")
	})
	return instance
}

// NewProvider returns a provider that reads .env files from dir.
func NewProvider(dir string) *Provider {
	return &Provider{dir: dir}
}

// Load loads configuration from .env files and environment variables.
// This should be called once at application startup
func (p *Provider) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	if err := loadEnvFiles(p.dir); err != nil {
		return ErrLoadEnvFiles(err)
	}

	cfg, err := FromEnv()
	if err != nil {
		return ErrParseConfig(err)
	}

	if err := cfg.Validate(); err != nil {
		return ErrValidateConfig(err)
	}

	p.config = cfg
	p.loaded = true
	return nil
}

// MustLoad loads configuration and panics on error
func (p *Provider) MustLoad() {
	if err := p.Load(); err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
}

// Get returns the current configuration
// Returns error if configuration hasn't been loaded
func (p *Provider) Get() (*Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded || p.config == nil {
		return nil, fmt.Errorf("configuration not loaded; call Load() first")
	}

	return p.config, nil
}

// MustGet returns the configuration or panics if not loaded
func (p *Provider) MustGet() *Config {
	cfg, err := p.Get()
	if err != nil {
		panic(fmt.Sprintf("failed to get configuration: %v", err))
	}
	return cfg
}

// IsLoaded returns whether configuration has been loaded
func (p *Provider) IsLoaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Reset clears the configuration (useful for testing)
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = nil
	p.loaded = false
}

// ErrLoadEnvFiles wraps .env loading failures
func ErrLoadEnvFiles(err error) error {
	return fmt.Errorf("failed to load env files: %w", err)
}

// ErrParseConfig wraps environment parsing failures
func ErrParseConfig(err error) error {
	return fmt.Errorf("failed to parse config: %w", err)
}

// ErrValidateConfig wraps validation failures
func ErrValidateConfig(err error) error {
	return fmt.Errorf("config validation failed: %w", err)
}
