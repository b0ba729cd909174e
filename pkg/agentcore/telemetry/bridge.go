// Package telemetry bridges the event bus into OpenTelemetry: the Bridge
// turns start/finish event pairs into trace spans, and the Collector records
// event counts, latencies, and token usage through the metric API. Both are
// pure consumers; neither publishes to the bus.
//
// Both use the global OTel providers. Configure them before attaching:
//
//	otel.SetTracerProvider(yourProvider)
//	otel.SetMeterProvider(yourProvider)
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
)

var tracer = otel.Tracer("agentcore")

// Bridge maps lifecycle event pairs to trace spans. A start event (such as
// tool_invoked) opens a span keyed by its correlation id; the matching
// finish event (tool_completed or tool_failed) ends it with OK or Error
// status. Spans left open when the bridge closes are ended with an
// unset status.
type Bridge struct {
	mu    sync.Mutex
	open  map[string]trace.Span
	subID event.SubscriptionID
	bus   *event.Bus
}

// NewBridge creates a detached bridge.
func NewBridge() *Bridge {
	return &Bridge{open: make(map[string]trace.Span)}
}

// Attach subscribes the bridge to every event on the bus.
func (b *Bridge) Attach(bus *event.Bus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bus = bus
	b.subID = bus.SubscribeAll(event.HandlerFunc(b.handle))
}

// Close unsubscribes from the bus and ends any spans still open.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bus != nil {
		b.bus.Unsubscribe(b.subID)
		b.bus = nil
	}
	for key, span := range b.open {
		span.End()
		delete(b.open, key)
	}
	return nil
}

// OpenSpans reports the number of spans started but not yet finished.
func (b *Bridge) OpenSpans() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

func (b *Bridge) handle(ctx context.Context, evt event.Envelope) error {
	switch evt.Type {
	case event.AgentStarted:
		b.start(ctx, spanKey("agent", evt.AgentID, evt), "agentcore.agent", evt)
	case event.AgentCompleted:
		return b.finish(spanKey("agent", evt.AgentID, evt), evt, nil)
	case event.AgentFailed:
		return b.finish(spanKey("agent", evt.AgentID, evt), evt, failureOf(evt))

	case event.LLMCalled:
		b.start(ctx, correlatedKey("llm", event.KeyCallID, evt), "agentcore.llm_call", evt)
	case event.LLMResponded:
		return b.finish(correlatedKey("llm", event.KeyCallID, evt), evt, nil)

	case event.ToolInvoked:
		b.start(ctx, correlatedKey("tool", event.KeyInvocationID, evt), "agentcore.tool", evt)
	case event.ToolCompleted:
		return b.finish(correlatedKey("tool", event.KeyInvocationID, evt), evt, nil)
	case event.ToolFailed:
		return b.finish(correlatedKey("tool", event.KeyInvocationID, evt), evt, failureOf(evt))

	case event.DelegationRequested:
		b.start(ctx, correlatedKey("delegation", event.KeyDelegationID, evt), "agentcore.delegation", evt)
	case event.DelegationCompleted:
		return b.finish(correlatedKey("delegation", event.KeyDelegationID, evt), evt, nil)
	case event.DelegationFailed:
		return b.finish(correlatedKey("delegation", event.KeyDelegationID, evt), evt, failureOf(evt))

	case event.ApprovalRequested:
		b.start(ctx, correlatedKey("approval", event.KeyApprovalID, evt), "agentcore.approval", evt)
	case event.ApprovalResolved:
		return b.finish(correlatedKey("approval", event.KeyApprovalID, evt), evt, nil)
	}
	return nil
}

// spanKey keys agent-scoped spans by agent id.
func spanKey(kind, agentID string, _ event.Envelope) string {
	return kind + ":" + agentID
}

// correlatedKey prefers the kind's correlation id from the payload, then the
// causal parent link, then the agent scope. Start and finish events that
// carry the same correlation id always resolve to the same span.
func correlatedKey(kind, payloadKey string, evt event.Envelope) string {
	if id, ok := evt.Payload[payloadKey].(string); ok && id != "" {
		return kind + ":" + id
	}
	if evt.ParentEventID != "" {
		return kind + ":parent:" + evt.ParentEventID
	}
	return kind + ":" + evt.AgentID
}

func (b *Bridge) start(ctx context.Context, key, name string, evt event.Envelope) {
	attrs := []attribute.KeyValue{
		attribute.String("agent.id", evt.AgentID),
		attribute.String("event.id", evt.EventID),
		attribute.String("event.type", evt.Type.String()),
	}
	if model, ok := evt.Payload[event.KeyModelName].(string); ok {
		attrs = append(attrs, attribute.String("llm.model", model))
	}
	if tool, ok := evt.Payload[event.KeyToolName].(string); ok {
		attrs = append(attrs, attribute.String("tool.name", tool))
	}
	if target, ok := evt.Payload[event.KeyTargetAgentID].(string); ok {
		attrs = append(attrs, attribute.String("delegation.target", target))
	}

	_, span := tracer.Start(ctx, name,
		trace.WithTimestamp(evt.Timestamp),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	b.mu.Lock()
	defer b.mu.Unlock()
	// A duplicate start for the same key closes the orphan first.
	if prev, ok := b.open[key]; ok {
		prev.End()
	}
	b.open[key] = span
}

// finish ends the span under key. Missing spans are tolerated: the finish
// event may have been published without a matching start.
func (b *Bridge) finish(key string, evt event.Envelope, failure error) error {
	b.mu.Lock()
	span, ok := b.open[key]
	if ok {
		delete(b.open, key)
	}
	b.mu.Unlock()

	if !ok {
		return nil
	}

	if failure != nil {
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(evt.Timestamp))
	return nil
}

// failureOf extracts the error carried in a failure event's payload.
func failureOf(evt event.Envelope) error {
	msg, _ := evt.Payload[event.KeyErrorMessage].(string)
	if msg == "" {
		return errors.New(evt.Type.String())
	}
	if errType, ok := evt.Payload[event.KeyErrorType].(string); ok && errType != "" {
		return fmt.Errorf("%s: %s", errType, msg)
	}
	return errors.New(msg)
}
