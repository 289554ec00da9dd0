package observability

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"reportfetch/internal/observability/logger"
	"reportfetch/internal/observability/metrics"
	"reportfetch/internal/observability/types"
)

// Logger is an alias of types.Logger.
type Logger = types.Logger

// Metrics is an alias of types.Metrics.
type Metrics = types.Metrics

// Fields is an alias of types.Fields.
type Fields = types.Fields

// Config is an alias of types.Config.
type Config = types.Config

// Provider is an alias of types.Provider.
type Provider = types.Provider

// DefaultProvider implements Provider. Loggers and metrics are created lazily
// and cached per component name.
type DefaultProvider struct {
	config  *Config
	loggers map[string]Logger
	metrics map[string]Metrics
	mu      sync.RWMutex
}

// NewProvider creates an observability provider.
// LogOutput defaults to os.Stderr.
//
// Parameters:
//   - config: Service identity, log level, log output and metrics registerer
//
// Returns:
//   - A Provider that creates loggers and metrics on first use
//
// Example:
//
//	provider := NewProvider(&Config{
//		ServiceName: "reportfetch",
//		Environment: "production",
//		LogLevel:    "info",
//	})
//	defer provider.Close()
//	log := provider.Logger("fetcher")
func NewProvider(config *Config) Provider {
	if config.LogOutput == nil {
		config.LogOutput = os.Stderr
	}

	return &DefaultProvider{
		config:  config,
		loggers: make(map[string]Logger),
		metrics: make(map[string]Metrics),
	}
}

// Logger returns the Logger for component. The logger carries a "component"
// field and reports its service as "{ServiceName}.{component}".
//
// Parameters:
//   - component: Component name ("fetcher", "batch", "pipeline")
//
// Returns:
//   - The cached Logger for component, created on first call
func (p *DefaultProvider) Logger(component string) Logger {
	p.mu.RLock()
	if l, exists := p.loggers[component]; exists {
		p.mu.RUnlock()
		return l
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if l, exists := p.loggers[component]; exists {
		return l
	}

	fields := make(Fields, len(p.config.AdditionalFields)+1)
	for k, v := range p.config.AdditionalFields {
		fields[k] = v
	}
	fields["component"] = component

	l := logger.New(
		fmt.Sprintf("%s.%s", p.config.ServiceName, component),
		p.config.Environment,
		p.config.LogLevel,
		p.config.LogOutput,
		fields,
	)
	p.loggers[component] = l

	return l
}

// Metrics returns the Metrics collector for component, namespaced
// "{ServiceName}_{component}". The collectors are registered once, on the
// first call for component.
//
// Parameters:
//   - component: Component name ("fetcher", "batch", "pipeline")
//
// Returns:
//   - The cached Metrics for component
func (p *DefaultProvider) Metrics(component string) Metrics {
	p.mu.RLock()
	if m, exists := p.metrics[component]; exists {
		p.mu.RUnlock()
		return m
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if m, exists := p.metrics[component]; exists {
		return m
	}

	namespace := component
	if p.config.ServiceName != "" {
		namespace = p.config.ServiceName + "_" + component
	}

	m := metrics.New(namespace, p.config.Registerer)
	p.metrics[component] = m

	return m
}

// Close closes LogOutput when it is an io.Closer other than stdout/stderr.
//
// Returns:
//   - The error from closing LogOutput, or nil
func (p *DefaultProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if closer, ok := p.config.LogOutput.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}

	return nil
}

// Nop returns a provider that discards logs and registers metrics with a
// private registry. Useful for tests and library callers that do not care.
func Nop() Provider {
	return NewProvider(&Config{
		ServiceName: "nop",
		LogLevel:    "error",
		LogOutput:   io.Discard,
		Registerer:  prometheus.NewRegistry(),
	})
}
