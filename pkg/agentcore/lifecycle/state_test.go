package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
)

func TestHappyPath(t *testing.T) {
	ctx := context.Background()
	m := NewMachine("agent-1")

	assert.Equal(t, Initialized, m.State())
	assert.False(t, m.IsTerminal())

	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Pause(ctx))
	require.NoError(t, m.Resume(ctx))
	require.NoError(t, m.Complete(ctx))
	assert.True(t, m.IsTerminal())

	require.NoError(t, m.Terminate(ctx))
	assert.Equal(t, Terminated, m.State())

	history := m.History()
	require.Len(t, history, 5)
	assert.Equal(t, Initialized, history[0].From)
	assert.Equal(t, Running, history[0].To)
	assert.Equal(t, Completed, history[4].From)
	assert.Equal(t, Terminated, history[4].To)
	for _, tr := range history {
		assert.False(t, tr.At.IsZero())
	}
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		run  func(m *Machine) error
	}{
		{"pause before start", func(m *Machine) error { return m.Pause(ctx) }},
		{"complete before start", func(m *Machine) error { return m.Complete(ctx) }},
		{"fail before start", func(m *Machine) error { return m.Fail(ctx) }},
		{"complete while paused", func(m *Machine) error {
			require.NoError(t, m.Start(ctx))
			require.NoError(t, m.Pause(ctx))
			return m.Complete(ctx)
		}},
		{"restart after completion", func(m *Machine) error {
			require.NoError(t, m.Start(ctx))
			require.NoError(t, m.Complete(ctx))
			return m.Start(ctx)
		}},
		{"anything after terminated", func(m *Machine) error {
			require.NoError(t, m.Terminate(ctx))
			return m.Start(ctx)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine("agent-1")
			err := tc.run(m)
			var trErr *TransitionError
			require.ErrorAs(t, err, &trErr)
			assert.Equal(t, "agent-1", trErr.AgentID)
		})
	}
}

func TestRejectedTransitionLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	m := NewMachine("agent-1")

	require.Error(t, m.Pause(ctx))
	assert.Equal(t, Initialized, m.State())
	assert.Empty(t, m.History())
}

func TestWithInitialState(t *testing.T) {
	m := NewMachine("agent-1", WithInitialState(Running))
	assert.Equal(t, Running, m.State())
	require.NoError(t, m.Pause(context.Background()))
}

func TestTransitionsPublishLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	defer bus.Close()

	var seen []event.EventType
	bus.SubscribeAll(event.HandlerFunc(func(_ context.Context, evt event.Envelope) error {
		seen = append(seen, evt.Type)
		return nil
	}))

	m := NewMachine("agent-1", WithBus(bus))
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Pause(ctx))
	require.NoError(t, m.Resume(ctx))
	require.NoError(t, m.Fail(ctx))
	require.NoError(t, m.Terminate(ctx))

	assert.Equal(t, []event.EventType{
		event.AgentStarted,
		event.AgentPaused,
		event.AgentResumed,
		event.AgentFailed,
	}, seen, "terminated has no event kind and publishes nothing")

	history := bus.History(event.HistoryFilter{AgentID: "agent-1"})
	require.Len(t, history, 4)
	assert.Equal(t, "running", history[1].Metadata["previous_state"])
}

func TestFailedEventCarriesErrorMessage(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	defer bus.Close()

	m := NewMachine("agent-1", WithBus(bus))
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Fail(ctx))

	failures := bus.History(event.HistoryFilter{Type: event.AgentFailed})
	require.Len(t, failures, 1)
	assert.NotEmpty(t, failures[0].Payload[event.KeyErrorMessage])
}
