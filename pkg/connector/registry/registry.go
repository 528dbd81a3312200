// Package registry maps source and destination type names to factories.
// Connectors register themselves from init; the CLI resolves the configured
// type names through the global registry.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/logger"
	"go.uber.org/zap"
)

// SourceFactory creates a record source from its configuration section
type SourceFactory func(ctx context.Context, cfg config.SourceConfig, log *zap.Logger) (core.RecordSource, error)

// DestinationFactory creates a destination from its configuration section
type DestinationFactory func(ctx context.Context, cfg config.DestinationConfig, log *zap.Logger) (core.Destination, error)

// factories is one named set of constructors
type factories[F any] struct {
	kind   core.ConnectorType
	byName map[string]F
}

func newFactories[F any](kind core.ConnectorType) factories[F] {
	return factories[F]{kind: kind, byName: make(map[string]F)}
}

func (f factories[F]) add(name string, factory F) error {
	if _, exists := f.byName[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "%s connector %s already registered", f.kind, name)
	}
	f.byName[name] = factory
	return nil
}

func (f factories[F]) get(name string) (F, error) {
	factory, ok := f.byName[name]
	if !ok {
		return factory, errors.Newf(errors.ErrorTypeConfig, "%s connector %s not found", f.kind, name)
	}
	return factory, nil
}

func (f factories[F]) names() []string {
	names := make([]string, 0, len(f.byName))
	for name := range f.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry holds the source and destination factories
type Registry struct {
	mu           sync.RWMutex
	sources      factories[SourceFactory]
	destinations factories[DestinationFactory]
	logger       *zap.Logger
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sources:      newFactories[SourceFactory](core.ConnectorTypeSource),
		destinations: newFactories[DestinationFactory](core.ConnectorTypeDestination),
		logger:       logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// RegisterSource adds a source factory. Names are unique.
func (r *Registry) RegisterSource(name string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.sources.add(name, factory); err != nil {
		return err
	}
	r.logger.Debug("source connector registered", zap.String("name", name))
	return nil
}

// RegisterDestination adds a destination factory. Names are unique.
func (r *Registry) RegisterDestination(name string, factory DestinationFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.destinations.add(name, factory); err != nil {
		return err
	}
	r.logger.Debug("destination connector registered", zap.String("name", name))
	return nil
}

// CreateSource builds the source named by cfg.Type. Factory errors keep
// their cause and are wrapped as configuration failures.
func (r *Registry) CreateSource(ctx context.Context, cfg config.SourceConfig, log *zap.Logger) (core.RecordSource, error) {
	r.mu.RLock()
	factory, err := r.sources.get(cfg.Type)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	src, err := factory(ctx, cfg, logger.OrNop(log).With(zap.String(string(logger.SourceKey), cfg.Type)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create source connector "+cfg.Type)
	}
	return src, nil
}

// CreateDestination builds the destination named by cfg.Type
func (r *Registry) CreateDestination(ctx context.Context, cfg config.DestinationConfig, log *zap.Logger) (core.Destination, error) {
	r.mu.RLock()
	factory, err := r.destinations.get(cfg.Type)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	dst, err := factory(ctx, cfg, logger.OrNop(log).With(zap.String("destination", cfg.Type)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create destination connector "+cfg.Type)
	}
	return dst, nil
}

// ListSources returns the registered source names in sorted order
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources.names()
}

// ListDestinations returns the registered destination names in sorted order
func (r *Registry) ListDestinations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.destinations.names()
}

// HasSource reports whether a source is registered under name
func (r *Registry) HasSource(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := r.sources.get(name)
	return err == nil
}

// HasDestination reports whether a destination is registered under name
func (r *Registry) HasDestination(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := r.destinations.get(name)
	return err == nil
}

// Clear removes every factory (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = newFactories[SourceFactory](core.ConnectorTypeSource)
	r.destinations = newFactories[DestinationFactory](core.ConnectorTypeDestination)
}

// RegisterSource registers a source in the global registry
func RegisterSource(name string, factory SourceFactory) error {
	return globalRegistry.RegisterSource(name, factory)
}

// RegisterDestination registers a destination in the global registry
func RegisterDestination(name string, factory DestinationFactory) error {
	return globalRegistry.RegisterDestination(name, factory)
}

// CreateSource creates a source from the global registry
func CreateSource(ctx context.Context, cfg config.SourceConfig, log *zap.Logger) (core.RecordSource, error) {
	return globalRegistry.CreateSource(ctx, cfg, log)
}

// CreateDestination creates a destination from the global registry
func CreateDestination(ctx context.Context, cfg config.DestinationConfig, log *zap.Logger) (core.Destination, error) {
	return globalRegistry.CreateDestination(ctx, cfg, log)
}

// ListSources returns the sources of the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}

// ListDestinations returns the destinations of the global registry
func ListDestinations() []string {
	return globalRegistry.ListDestinations()
}

// GetRegistry returns the global registry
func GetRegistry() *Registry {
	return globalRegistry
}
