// Package plugin implements the extension registry: named plugin factories,
// injected discovery, and explicit retryable initialization. Plugins attach
// themselves to the event bus during Initialize through the Host; the
// registry never wires subscriptions on their behalf.
package plugin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/identity"
)

// Plugin is one loadable extension. Initialize is where a plugin subscribes
// to the bus and allocates resources; Shutdown releases them.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, host *Host) error
	Shutdown() error
}

// Factory constructs a plugin instance. Factories run lazily at Initialize
// time, so registering a plugin is cheap and side-effect free.
type Factory func() (Plugin, error)

// Host is the capability surface handed to plugins at initialization.
type Host struct {
	Bus      *event.Bus
	Identity *identity.Registry
	Logger   *slog.Logger
}

// Descriptor is the registry's public view of one plugin.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	Initialized bool   `json:"initialized"`
}

// Candidate is one discovered plugin: a name plus the factory that builds it.
type Candidate struct {
	Name        string
	Description string
	Version     string
	Factory     Factory
}

// DiscoveryProvider yields plugin candidates. The registry is agnostic to
// the discovery mechanism; providers may scan configuration, a directory,
// or a static list.
type DiscoveryProvider interface {
	Discover() ([]Candidate, error)
}

// StaticProvider is a DiscoveryProvider over a fixed candidate list.
type StaticProvider struct {
	Candidates []Candidate
}

// Discover implements DiscoveryProvider.
func (p *StaticProvider) Discover() ([]Candidate, error) {
	out := make([]Candidate, len(p.Candidates))
	copy(out, p.Candidates)
	return out, nil
}

// InitError reports a failed plugin initialization. Initialization is
// retryable: the plugin stays registered and uninitialized, and a later
// Initialize call may succeed.
type InitError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("plugin %q failed to initialize: %v", e.Name, e.Err)
}

// Unwrap returns the underlying initialization error.
func (e *InitError) Unwrap() error {
	return e.Err
}
