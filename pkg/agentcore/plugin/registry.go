package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

type entry struct {
	descriptor Descriptor
	factory    Factory
	instance   Plugin // nil until successfully initialized

	// initMu serializes initialization attempts for this entry so the
	// factory and init hook run at most once per successful Initialize,
	// without holding the registry lock across the plugin call.
	initMu sync.Mutex
}

// Registry is a thread-safe plugin registry. Registration and discovery are
// cheap metadata operations; Initialize constructs and starts instances.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	host    *Host
	logger  *slog.Logger
}

// NewRegistry creates a plugin registry whose plugins initialize against
// host.
func NewRegistry(host *Host, opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		host:    host,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil && host != nil {
		r.logger = host.Logger
	}
	return r
}

// RegistryOption configures registry construction.
type RegistryOption func(*Registry)

// WithLogger attaches a structured logger for registration and lifecycle
// diagnostics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// Register adds a plugin under desc.Name. Duplicate names are rejected.
func (r *Registry) Register(desc Descriptor, factory Factory) error {
	if desc.Name == "" {
		return errors.New("plugin name is required")
	}
	if factory == nil {
		return fmt.Errorf("plugin %q: factory is required", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("plugin %q is already registered", desc.Name)
	}

	desc.Initialized = false
	r.entries[desc.Name] = &entry{descriptor: desc, factory: factory}
	r.log("plugin registered", slog.String("plugin", desc.Name))
	return nil
}

// DiscoverFrom registers every candidate the provider yields. A duplicate
// candidate aborts with the registration error; earlier candidates stay
// registered.
func (r *Registry) DiscoverFrom(provider DiscoveryProvider) error {
	candidates, err := provider.Discover()
	if err != nil {
		return fmt.Errorf("plugin discovery failed: %w", err)
	}
	for _, c := range candidates {
		desc := Descriptor{Name: c.Name, Description: c.Description, Version: c.Version}
		if err := r.Register(desc, c.Factory); err != nil {
			return err
		}
	}
	return nil
}

// Initialize constructs and starts the named plugin. On failure the plugin
// stays registered with Initialized false and the call may be retried.
// Initializing an already-initialized plugin is a no-op; concurrent calls
// for the same name serialize, so the factory and init hook run at most
// once per successful initialization.
func (r *Registry) Initialize(ctx context.Context, name string) error {
	r.mu.Lock()
	ent, ok := r.entries[name]
	host := r.host
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("plugin %q is not registered", name)
	}

	// Entries are never deleted, so the pointer stays valid. Concurrent
	// callers queue here; whoever loses the race re-checks Initialized and
	// no-ops instead of running the factory a second time.
	ent.initMu.Lock()
	defer ent.initMu.Unlock()

	r.mu.Lock()
	initialized := ent.descriptor.Initialized
	factory := ent.factory
	r.mu.Unlock()
	if initialized {
		return nil
	}

	// Factory and Initialize run outside the registry lock: plugins
	// subscribe to the bus here, and may consult the registry themselves.
	instance, err := factory()
	if err != nil {
		return &InitError{Name: name, Err: err}
	}
	if err := instance.Initialize(ctx, host); err != nil {
		return &InitError{Name: name, Err: err}
	}

	r.mu.Lock()
	ent.instance = instance
	ent.descriptor.Initialized = true
	r.mu.Unlock()

	r.log("plugin initialized", slog.String("plugin", name))
	return nil
}

// InitializeAll initializes every registered plugin in lexicographic name
// order, collecting failures instead of stopping at the first.
func (r *Registry) InitializeAll(ctx context.Context) error {
	var errs []error
	for _, desc := range r.List() {
		if err := r.Initialize(ctx, desc.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the descriptor for name.
func (r *Registry) Get(name string) (Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ent, ok := r.entries[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("plugin %q is not registered", name)
	}
	return ent.descriptor, nil
}

// Instance returns the initialized plugin instance for name, or an error if
// the plugin is unknown or not yet initialized.
func (r *Registry) Instance(name string) (Plugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ent, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("plugin %q is not registered", name)
	}
	if ent.instance == nil {
		return nil, fmt.Errorf("plugin %q is not initialized", name)
	}
	return ent.instance, nil
}

// List returns descriptors sorted lexicographically by name.
func (r *Registry) List() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Descriptor, 0, len(r.entries))
	for _, ent := range r.entries {
		out = append(out, ent.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// ShutdownAll shuts down every initialized plugin in reverse lexicographic
// order, collecting failures. Plugins revert to uninitialized and may be
// initialized again.
func (r *Registry) ShutdownAll() error {
	descs := r.List()

	var errs []error
	for i := len(descs) - 1; i >= 0; i-- {
		name := descs[i].Name

		r.mu.Lock()
		ent := r.entries[name]
		instance := ent.instance
		r.mu.Unlock()

		if instance == nil {
			continue
		}
		if err := instance.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("plugin %q shutdown: %w", name, err))
		}

		r.mu.Lock()
		ent.instance = nil
		ent.descriptor.Initialized = false
		r.mu.Unlock()

		r.log("plugin shut down", slog.String("plugin", name))
	}
	return errors.Join(errs...)
}

func (r *Registry) log(msg string, attrs ...slog.Attr) {
	if r.logger == nil {
		return
	}
	r.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}
