package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tradewatch/floodgate"
)

// Capabilities describes the delivery characteristics of a source backend.
type Capabilities struct {
	// Name is the human-readable name of the source.
	Name string

	// SupportsOrdering indicates the stream delivers events in order.
	SupportsOrdering bool

	// SupportsQueueGroups indicates multiple consumers can share the stream
	// with each event delivered to exactly one of them.
	SupportsQueueGroups bool

	// Durable indicates events survive a consumer restart. In-memory sources
	// are never durable.
	Durable bool

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64
}

// Predefined capability sets for the bundled sources.
var (
	// ChannelCapabilities for the in-memory Watermill channel source.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
	}

	// NATSCapabilities for the NATS Core source.
	NATSCapabilities = Capabilities{
		Name:                "nats",
		SupportsQueueGroups: true,
		MaxMessageSize:      1048576, // Default 1MB
	}
)

// Registry maintains a mapping of source names to their builders and
// capabilities. Source packages should register themselves using Register.
type Registry struct {
	mu           sync.RWMutex
	builders     map[string]Builder
	capabilities map[string]Capabilities
}

// DefaultRegistry is the global source registry.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a new source registry.
func NewRegistry() *Registry {
	return &Registry{
		builders:     make(map[string]Builder),
		capabilities: make(map[string]Capabilities),
	}
}

// Register adds a source builder to the registry. The name should match the
// SourceSystem config value (e.g. "nats", "channel").
func (r *Registry) Register(name string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
}

// RegisterWithCapabilities adds a source builder and its capabilities to the
// registry.
func (r *Registry) RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
	r.capabilities[name] = caps
}

// GetCapabilities returns the capabilities for a registered source. Returns a
// zero Capabilities struct if the source is unknown.
func (r *Registry) GetCapabilities(name string) Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if caps, ok := r.capabilities[name]; ok {
		return caps
	}
	return Capabilities{Name: name}
}

// Build creates a source using the registered builder for the config's
// SourceSystem.
func (r *Registry) Build(ctx context.Context, cfg Config, logger floodgate.ServiceLogger) (Source, error) {
	if cfg == nil {
		return nil, floodgate.ErrConfigRequired
	}

	name := cfg.GetSourceSystem()
	if name == "" {
		return nil, floodgate.ErrSourceRequired
	}

	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown source: %q (registered: %v)", name, r.Names())
	}

	return builder(ctx, cfg, logger)
}

// Names returns the list of registered source names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	return names
}

// Has returns true if a source is registered with the given name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Register adds a source builder to the default registry.
func Register(name string, builder Builder) {
	DefaultRegistry.Register(name, builder)
}

// RegisterWithCapabilities adds a source builder and its capabilities to the
// default registry.
func RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	DefaultRegistry.RegisterWithCapabilities(name, builder, caps)
}

// Build creates a source using the default registry.
func Build(ctx context.Context, cfg Config, logger floodgate.ServiceLogger) (Source, error) {
	return DefaultRegistry.Build(ctx, cfg, logger)
}

// GetCapabilities returns the capabilities for a source by name using the
// default registry.
func GetCapabilities(name string) Capabilities {
	return DefaultRegistry.GetCapabilities(name)
}
