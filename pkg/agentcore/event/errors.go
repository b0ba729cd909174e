package event

import (
	"errors"
	"fmt"
)

// ErrBusClosed is returned by Publish after Close has been called.
var ErrBusClosed = errors.New("event bus is closed")

// SchemaError reports a malformed envelope at construction time.
// Envelopes that fail validation never reach the bus or its history.
type SchemaError struct {
	Type    EventType // event type being constructed, if known
	Field   string    // offending field or payload path, if known
	Message string
	Err     error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: field %q", msg, e.Field)
	}
	if e.Type != "" {
		msg = fmt.Sprintf("%s (event type %q)", msg, e.Type)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Err
}

// UnknownAgentError aborts a strict-mode publish when the envelope's
// agent ID does not resolve to any registered identity.
type UnknownAgentError struct {
	AgentID string
}

// Error implements the error interface.
func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("agent %q is not registered; strict mode rejects events from unknown publishers", e.AgentID)
}

// InactiveAgentError aborts a strict-mode publish when the envelope's
// agent ID resolves to a registered but deactivated identity.
type InactiveAgentError struct {
	AgentID string
}

// Error implements the error interface.
func (e *InactiveAgentError) Error() string {
	return fmt.Sprintf("agent %q is deactivated; reactivate it before publishing", e.AgentID)
}

// HandlerError records a single subscriber failure during dispatch.
// It is carried only inside dispatch reports and never returned by Publish.
type HandlerError struct {
	SubscriptionID SubscriptionID
	EventID        string
	Err            error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed for event %s: %v", e.SubscriptionID, e.EventID, e.Err)
}

// Unwrap returns the underlying handler error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}
