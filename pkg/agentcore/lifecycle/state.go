// Package lifecycle tracks agent run state through a validated state
// machine. Transitions outside the allowed map fail with *TransitionError;
// valid transitions are recorded in the machine's history and can publish
// the matching lifecycle event to a bus.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
)

// AgentState is one lifecycle state.
type AgentState string

// Canonical lifecycle states.
const (
	Initialized AgentState = "initialized"
	Running     AgentState = "running"
	Paused      AgentState = "paused"
	Completed   AgentState = "completed"
	Failed      AgentState = "failed"
	Terminated  AgentState = "terminated"
)

// validTransitions maps each state to the states reachable from it.
// Terminated is terminal; Completed and Failed allow only Terminated.
var validTransitions = map[AgentState]map[AgentState]bool{
	Initialized: {Running: true, Terminated: true},
	Running:     {Paused: true, Completed: true, Failed: true, Terminated: true},
	Paused:      {Running: true, Terminated: true},
	Completed:   {Terminated: true},
	Failed:      {Terminated: true},
	Terminated:  {},
}

var terminalStates = map[AgentState]bool{
	Completed:  true,
	Failed:     true,
	Terminated: true,
}

// TransitionError rejects a transition not present in the valid map. The
// machine's state is unchanged.
type TransitionError struct {
	AgentID string
	From    AgentState
	To      AgentState
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("agent %q cannot transition from %s to %s", e.AgentID, e.From, e.To)
}

// Transition is one recorded state change.
type Transition struct {
	From AgentState `json:"from"`
	To   AgentState `json:"to"`
	At   time.Time  `json:"at"`
}

// lifecycleEvents maps the state entered to the event type published when a
// bus is attached. Terminated publishes nothing; the taxonomy has no
// termination kind.
var lifecycleEvents = map[AgentState]event.EventType{
	Running:   event.AgentStarted,
	Paused:    event.AgentPaused,
	Completed: event.AgentCompleted,
	Failed:    event.AgentFailed,
}

// Machine is a thread-safe lifecycle state machine for one agent.
type Machine struct {
	mu      sync.Mutex
	agentID string
	state   AgentState
	history []Transition

	bus    *event.Bus
	logger *slog.Logger
}

// MachineOption configures machine construction.
type MachineOption func(*Machine)

// WithInitialState starts the machine in a state other than Initialized.
func WithInitialState(state AgentState) MachineOption {
	return func(m *Machine) {
		m.state = state
	}
}

// WithBus publishes the matching lifecycle event on each transition. A
// publish failure does not roll the transition back.
func WithBus(bus *event.Bus) MachineOption {
	return func(m *Machine) {
		m.bus = bus
	}
}

// WithLogger attaches a structured logger for transition diagnostics.
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// NewMachine creates a machine for agentID, starting in Initialized.
func NewMachine(agentID string, opts ...MachineOption) *Machine {
	m := &Machine{
		agentID: agentID,
		state:   Initialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AgentID returns the agent the machine tracks.
func (m *Machine) AgentID() string {
	return m.agentID
}

// State returns the current lifecycle state.
func (m *Machine) State() AgentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsTerminal reports whether the current state admits no further work.
func (m *Machine) IsTerminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return terminalStates[m.state]
}

// History returns the recorded transitions in order. The slice is a copy.
func (m *Machine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// TransitionTo moves the machine to target, recording the transition and
// publishing the matching lifecycle event when a bus is attached.
func (m *Machine) TransitionTo(ctx context.Context, target AgentState) error {
	m.mu.Lock()
	if !validTransitions[m.state][target] {
		err := &TransitionError{AgentID: m.agentID, From: m.state, To: target}
		m.mu.Unlock()
		return err
	}

	previous := m.state
	m.state = target
	m.history = append(m.history, Transition{
		From: previous,
		To:   target,
		At:   time.Now().UTC(),
	})
	m.mu.Unlock()

	m.log("state transition",
		slog.String("agent_id", m.agentID),
		slog.String("from", string(previous)),
		slog.String("to", string(target)),
	)

	m.publish(ctx, previous, target)
	return nil
}

// publish emits the lifecycle event for the state entered. A resume is
// distinguished from a fresh start by the state left.
func (m *Machine) publish(ctx context.Context, previous, target AgentState) {
	if m.bus == nil {
		return
	}

	eventType, ok := lifecycleEvents[target]
	if !ok {
		return
	}
	if target == Running && previous == Paused {
		eventType = event.AgentResumed
	}

	opts := []event.Option{
		event.WithMetadata(map[string]any{"previous_state": string(previous)}),
	}
	if eventType == event.AgentFailed {
		opts = append(opts, event.WithPayload(map[string]any{
			event.KeyErrorMessage: "agent entered failed state",
		}))
	}

	evt, err := event.New(eventType, m.agentID, opts...)
	if err != nil {
		m.log("lifecycle event construction failed",
			slog.String("agent_id", m.agentID),
			slog.String("error", err.Error()),
		)
		return
	}
	if _, err := m.bus.Publish(ctx, evt); err != nil {
		m.log("lifecycle event publish failed",
			slog.String("agent_id", m.agentID),
			slog.String("error", err.Error()),
		)
	}
}

// Start transitions to Running.
func (m *Machine) Start(ctx context.Context) error {
	return m.TransitionTo(ctx, Running)
}

// Pause transitions to Paused.
func (m *Machine) Pause(ctx context.Context) error {
	return m.TransitionTo(ctx, Paused)
}

// Resume transitions from Paused back to Running.
func (m *Machine) Resume(ctx context.Context) error {
	return m.TransitionTo(ctx, Running)
}

// Complete transitions to Completed.
func (m *Machine) Complete(ctx context.Context) error {
	return m.TransitionTo(ctx, Completed)
}

// Fail transitions to Failed.
func (m *Machine) Fail(ctx context.Context) error {
	return m.TransitionTo(ctx, Failed)
}

// Terminate transitions to Terminated.
func (m *Machine) Terminate(ctx context.Context) error {
	return m.TransitionTo(ctx, Terminated)
}

func (m *Machine) log(msg string, attrs ...slog.Attr) {
	if m.logger == nil {
		return
	}
	m.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}
