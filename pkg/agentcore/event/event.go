// Package event implements the typed in-process event bus at the heart of
// agentcore: immutable lifecycle envelopes with a closed taxonomy, composable
// subscription filters, a bounded history ring, and exception-isolated
// dispatch. Producers construct an Envelope through New (or one of the
// kind-specific constructors) and hand it to Bus.Publish; subscribers observe
// the stream through type-scoped or global subscriptions.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the Agent Event Protocol version stamped on every
// envelope constructed by this package.
const ProtocolVersion = "1.0.0"

// EventType identifies one member of the closed lifecycle taxonomy.
// Values are the canonical wire names shared by every producer and consumer.
type EventType string

// Agent lifecycle events.
const (
	AgentStarted   EventType = "agent_started"
	AgentCompleted EventType = "agent_completed"
	AgentFailed    EventType = "agent_failed"
	AgentPaused    EventType = "agent_paused"
	AgentResumed   EventType = "agent_resumed"
)

// LLM interaction events.
const (
	LLMCalled      EventType = "llm_called"
	LLMResponded   EventType = "llm_responded"
	LLMStreamChunk EventType = "llm_stream_chunk"
)

// Tool execution events.
const (
	ToolInvoked   EventType = "tool_invoked"
	ToolCompleted EventType = "tool_completed"
	ToolFailed    EventType = "tool_failed"
)

// Memory access events.
const (
	MemoryRead    EventType = "memory_read"
	MemoryWritten EventType = "memory_written"
	MemoryEvicted EventType = "memory_evicted"
)

// Delegation events.
const (
	DelegationRequested EventType = "delegation_requested"
	DelegationCompleted EventType = "delegation_completed"
	DelegationFailed    EventType = "delegation_failed"
)

// Human approval events.
const (
	ApprovalRequested EventType = "approval_requested"
	ApprovalResolved  EventType = "approval_resolved"
)

// DecisionMade is emitted at agent decision points so that decision traces
// can be reconstructed and audited.
const DecisionMade EventType = "decision_made"

// String returns the wire name of the event type.
func (t EventType) String() string {
	return string(t)
}

// Valid reports whether t is a member of the closed taxonomy.
func (t EventType) Valid() bool {
	_, ok := requiredPayloadFields[t]
	return ok
}

// Types returns every member of the taxonomy. The slice is a fresh copy.
func Types() []EventType {
	out := make([]EventType, len(allTypes))
	copy(out, allTypes)
	return out
}

// Envelope is one immutable agent lifecycle signal.
//
// Treat constructed envelopes as read-only: no field mutates after New
// returns, and an "updated" event is always a new instance. ParentEventID
// forms an advisory causal chain; the bus performs no cycle detection.
type Envelope struct {
	EventID         string         `json:"event_id"`
	Type            EventType      `json:"event_type"`
	AgentID         string         `json:"agent_id"`
	Timestamp       time.Time      `json:"timestamp"`
	ProtocolVersion string         `json:"protocol_version"`
	Payload         map[string]any `json:"payload,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ParentEventID   string         `json:"parent_event_id,omitempty"`
}

// Option configures envelope construction.
type Option func(*Envelope)

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) Option {
	return func(e *Envelope) {
		e.EventID = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now in UTC).
func WithTimestamp(t time.Time) Option {
	return func(e *Envelope) {
		e.Timestamp = t.UTC()
	}
}

// WithParent links the envelope to the event that caused it.
func WithParent(parentEventID string) Option {
	return func(e *Envelope) {
		e.ParentEventID = parentEventID
	}
}

// WithPayload sets the event-specific payload. Values must be JSON-safe:
// strings, bools, numbers, nil, and nested maps/slices thereof.
func WithPayload(payload map[string]any) Option {
	return func(e *Envelope) {
		e.Payload = payload
	}
}

// WithMetadata sets cross-cutting tags: trace IDs, environment labels, etc.
func WithMetadata(metadata map[string]any) Option {
	return func(e *Envelope) {
		e.Metadata = metadata
	}
}

// New constructs a validated Envelope.
//
// Validation covers taxonomy membership, JSON-safety of payload and metadata
// values, and the kind-specific required payload fields selected by
// eventType. A *SchemaError is returned on any violation; invalid envelopes
// never exist, so downstream consumers can trust every envelope they see.
func New(eventType EventType, agentID string, opts ...Option) (Envelope, error) {
	e := Envelope{
		EventID:         uuid.NewString(),
		Type:            eventType,
		AgentID:         agentID,
		Timestamp:       time.Now().UTC(),
		ProtocolVersion: ProtocolVersion,
	}

	for _, opt := range opts {
		opt(&e)
	}

	if err := e.validate(); err != nil {
		return Envelope{}, err
	}

	// Copy the maps so later mutation of the caller's maps cannot change
	// an already-published envelope.
	e.Payload = copyValueMap(e.Payload)
	e.Metadata = copyValueMap(e.Metadata)

	return e, nil
}

// NewFromParent constructs an envelope causally linked to parent.
func NewFromParent(parent Envelope, eventType EventType, agentID string, opts ...Option) (Envelope, error) {
	return New(eventType, agentID, append([]Option{WithParent(parent.EventID)}, opts...)...)
}

func (e *Envelope) validate() error {
	if !e.Type.Valid() {
		return &SchemaError{Type: e.Type, Message: "unrecognized event type"}
	}
	if e.AgentID == "" {
		return &SchemaError{Type: e.Type, Field: "agent_id", Message: "agent_id is required"}
	}
	if e.EventID == "" {
		return &SchemaError{Type: e.Type, Field: "event_id", Message: "event_id must not be empty"}
	}
	if err := validateValueMap("payload", e.Payload); err != nil {
		return err
	}
	if err := validateValueMap("metadata", e.Metadata); err != nil {
		return err
	}
	for _, field := range requiredPayloadFields[e.Type] {
		if !hasPayloadField(e.Payload, field) {
			return &SchemaError{
				Type:    e.Type,
				Field:   field,
				Message: "missing required payload field",
			}
		}
	}
	return nil
}

func hasPayloadField(payload map[string]any, field string) bool {
	v, ok := payload[field]
	if !ok {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return v != nil
}

// MarshalJSON emits the canonical wire shape.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type alias Envelope
	return json.Marshal(alias(e))
}

// UnmarshalJSON parses and re-validates an envelope from its wire shape.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	type alias Envelope
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return &SchemaError{Message: "malformed envelope JSON", Err: err}
	}
	decoded := Envelope(a)
	if err := decoded.validate(); err != nil {
		return err
	}
	*e = decoded
	return nil
}

// validateValueMap checks that every value in m belongs to the JSON-safe
// value union: string | bool | nil | numeric kinds | map[string]any | []any.
func validateValueMap(path string, m map[string]any) error {
	for k, v := range m {
		if err := validateValue(path+"."+k, v); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(path string, v any) error {
	switch val := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return nil
	case map[string]any:
		return validateValueMap(path, val)
	case []any:
		for _, item := range val {
			if err := validateValue(path, item); err != nil {
				return err
			}
		}
		return nil
	case []string, []int, []float64, []bool:
		return nil
	default:
		return &SchemaError{
			Field:   path,
			Message: "value is not JSON-safe",
		}
	}
}

func copyValueMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyValueMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
