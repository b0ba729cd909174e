// Package agentcore bundles the event bus, identity registry, cost tracking,
// plugin registry, and health checks behind one facade wired from
// configuration. Applications that want the pieces individually can use the
// subpackages directly; Core exists for the common case of standing the
// whole stack up at once.
package agentcore

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/config"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/cost"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/health"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/identity"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/plugin"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/telemetry"
)

// Core is the assembled agentcore stack.
type Core struct {
	Bus      *event.Bus
	Identity *identity.Registry
	Costs    *cost.Tracker
	Budgets  *cost.BudgetManager
	Plugins  *plugin.Registry
	Health   *health.Registry
	Logger   *slog.Logger

	bridge    *telemetry.Bridge
	collector *telemetry.Collector
}

// New assembles a Core from settings.
//
// The identity registry is always created; it is wired into the bus as the
// strict-mode resolver only when settings enable strict identity. The cost
// tracker attaches to llm_responded events, telemetry attaches when enabled,
// and built-in health checks cover the bus, registry, and tracker.
func New(settings config.Settings) (*Core, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger := newLogger(settings.Logging)

	registry := identity.NewRegistry(identity.WithLogger(logger))

	busOpts := []event.BusOption{
		event.WithMaxHistory(settings.Bus.MaxHistory),
		event.WithLogger(logger),
	}
	if settings.Bus.StrictIdentity {
		busOpts = append(busOpts, event.WithStrictIdentity(registry))
	}
	if settings.Bus.AsyncDispatch {
		busOpts = append(busOpts, event.WithAsyncDispatch())
	}
	bus := event.NewBus(busOpts...)

	tracker := cost.NewTracker(cost.WithLogger(logger))
	tracker.Attach(bus)

	core := &Core{
		Bus:      bus,
		Identity: registry,
		Costs:    tracker,
		Budgets:  cost.NewBudgetManager(tracker),
		Logger:   logger,
	}

	core.Plugins = plugin.NewRegistry(&plugin.Host{
		Bus:      bus,
		Identity: registry,
		Logger:   logger,
	})

	core.Health = health.NewRegistry()
	core.Health.RegisterCheck("bus", health.BusCheck(bus))
	core.Health.RegisterCheck("identity", health.IdentityCheck(registry))
	core.Health.RegisterCheck("costs", health.TrackerCheck(tracker))

	if settings.Telemetry.TracingEnabled {
		core.bridge = telemetry.NewBridge()
		core.bridge.Attach(bus)
	}
	if settings.Telemetry.MetricsEnabled {
		collector, err := telemetry.NewCollector()
		if err != nil {
			bus.Close()
			return nil, fmt.Errorf("create metric collector: %w", err)
		}
		collector.Attach(bus)
		core.collector = collector
	}

	return core, nil
}

// NewFromFile loads settings from path (empty for defaults plus environment
// overrides) and assembles a Core.
func NewFromFile(path string) (*Core, error) {
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return New(settings)
}

// Shutdown tears the stack down: plugins first, then telemetry, then the
// bus. Safe to call once; later publishes fail with ErrBusClosed.
func (c *Core) Shutdown() error {
	var firstErr error
	if c.Plugins != nil {
		if err := c.Plugins.ShutdownAll(); err != nil {
			firstErr = err
		}
	}
	if c.bridge != nil {
		if err := c.bridge.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.collector != nil {
		if err := c.collector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.Bus.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// InitializePlugins starts the plugins named in settings, or all registered
// plugins when the enabled list is empty.
func (c *Core) InitializePlugins(ctx context.Context, settings config.Settings) error {
	if len(settings.Plugins.Enabled) == 0 {
		return c.Plugins.InitializeAll(ctx)
	}
	for _, name := range settings.Plugins.Enabled {
		if err := c.Plugins.Initialize(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(settings config.LoggingSettings) *slog.Logger {
	level := slog.LevelInfo
	switch settings.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if settings.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
