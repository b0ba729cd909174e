package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
)

// Collector records bus traffic through the OTel metric API: an event
// counter by type and agent, a latency histogram fed by duration_ms payload
// fields, token counters from llm_responded, and a handler failure counter.
type Collector struct {
	events          metric.Int64Counter
	latency         metric.Float64Histogram
	promptTokens    metric.Int64Counter
	outputTokens    metric.Int64Counter
	handlerFailures metric.Int64Counter

	mu    sync.Mutex
	subID event.SubscriptionID
	bus   *event.Bus
}

var (
	defaultCollector     *Collector
	defaultCollectorOnce sync.Once
	defaultCollectorErr  error
)

// DefaultCollector returns the process-wide collector, creating it on first
// call against the global meter provider.
func DefaultCollector() (*Collector, error) {
	defaultCollectorOnce.Do(func() {
		defaultCollector, defaultCollectorErr = NewCollector()
	})
	return defaultCollector, defaultCollectorErr
}

// NewCollector creates a collector against the global meter provider.
func NewCollector() (*Collector, error) {
	meter := otel.Meter("agentcore")

	events, err := meter.Int64Counter("agentcore.events",
		metric.WithDescription("Number of events published to the bus"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("agentcore.operation.latency_ms",
		metric.WithDescription("Operation latency reported in event payloads"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	promptTokens, err := meter.Int64Counter("agentcore.llm.prompt_tokens",
		metric.WithDescription("Prompt tokens reported by llm_responded events"),
	)
	if err != nil {
		return nil, err
	}

	outputTokens, err := meter.Int64Counter("agentcore.llm.completion_tokens",
		metric.WithDescription("Completion tokens reported by llm_responded events"),
	)
	if err != nil {
		return nil, err
	}

	handlerFailures, err := meter.Int64Counter("agentcore.events.failed",
		metric.WithDescription("Number of failure events observed on the bus"),
	)
	if err != nil {
		return nil, err
	}

	return &Collector{
		events:          events,
		latency:         latency,
		promptTokens:    promptTokens,
		outputTokens:    outputTokens,
		handlerFailures: handlerFailures,
	}, nil
}

// Attach subscribes the collector to every event on the bus.
func (c *Collector) Attach(bus *event.Bus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bus = bus
	c.subID = bus.SubscribeAll(event.HandlerFunc(c.Record))
}

// Close unsubscribes from the bus.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bus != nil {
		c.bus.Unsubscribe(c.subID)
		c.bus = nil
	}
	return nil
}

// Record updates the instruments for one envelope. It also serves as a bus
// handler via Attach.
func (c *Collector) Record(ctx context.Context, evt event.Envelope) error {
	attrs := metric.WithAttributes(
		attribute.String("event.type", evt.Type.String()),
		attribute.String("agent.id", evt.AgentID),
	)

	c.events.Add(ctx, 1, attrs)

	if ms, ok := asFloat(evt.Payload[event.KeyDurationMillis]); ok {
		c.latency.Record(ctx, ms, attrs)
	}

	switch evt.Type {
	case event.LLMResponded:
		if n, ok := asInt(evt.Payload[event.KeyPromptTokens]); ok {
			c.promptTokens.Add(ctx, n, attrs)
		}
		if n, ok := asInt(evt.Payload[event.KeyOutputTokens]); ok {
			c.outputTokens.Add(ctx, n, attrs)
		}
	case event.AgentFailed, event.ToolFailed, event.DelegationFailed:
		c.handlerFailures.Add(ctx, 1, attrs)
	}
	return nil
}

// asFloat normalizes the numeric kinds JSON decoding and Go callers produce.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
