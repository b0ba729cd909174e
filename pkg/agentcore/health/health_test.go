package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/cost"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/identity"
)

func staticCheck(status Status) Check {
	return func(context.Context) CheckResult {
		return CheckResult{Status: status}
	}
}

func TestEmptyRegistryIsHealthy(t *testing.T) {
	reg := NewRegistry()
	report := reg.Run(context.Background())

	assert.Equal(t, Healthy, report.Status)
	assert.Empty(t, report.Checks)
	assert.False(t, report.Timestamp.IsZero())
}

func TestReportTakesWorstStatus(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCheck("a", staticCheck(Healthy))
	reg.RegisterCheck("b", staticCheck(Degraded))

	report := reg.Run(context.Background())
	assert.Equal(t, Degraded, report.Status)

	reg.RegisterCheck("c", staticCheck(Unhealthy))
	report = reg.Run(context.Background())
	assert.Equal(t, Unhealthy, report.Status)
	assert.Len(t, report.Checks, 3)
}

func TestPanickingCheckIsUnhealthy(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCheck("broken", func(context.Context) CheckResult {
		panic("nil dereference")
	})
	reg.RegisterCheck("fine", staticCheck(Healthy))

	report := reg.Run(context.Background())
	assert.Equal(t, Unhealthy, report.Status)
	assert.Contains(t, report.Checks["broken"].Detail, "check panicked")
	assert.Equal(t, Healthy, report.Checks["fine"].Status)
}

func TestRegisterUnregisterNames(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCheck("b", staticCheck(Healthy))
	reg.RegisterCheck("a", staticCheck(Healthy))
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	reg.UnregisterCheck("a")
	assert.Equal(t, []string{"b"}, reg.Names())
}

func TestBusCheck(t *testing.T) {
	assert.Equal(t, Unhealthy, BusCheck(nil)(context.Background()).Status)

	bus := event.NewBus(event.WithMaxHistory(1))
	result := BusCheck(bus)(context.Background())
	assert.Equal(t, Healthy, result.Status)

	evt, err := event.New(event.AgentStarted, "agent-1")
	require.NoError(t, err)
	_, err = bus.Publish(context.Background(), evt)
	require.NoError(t, err)

	result = BusCheck(bus)(context.Background())
	assert.Equal(t, Degraded, result.Status, "full history ring degrades the bus")

	require.NoError(t, bus.Close())
	result = BusCheck(bus)(context.Background())
	assert.Equal(t, Unhealthy, result.Status)
}

func TestIdentityAndTrackerChecks(t *testing.T) {
	assert.Equal(t, Unhealthy, IdentityCheck(nil)(context.Background()).Status)
	assert.Equal(t, Unhealthy, TrackerCheck(nil)(context.Background()).Status)

	reg := identity.NewRegistry()
	require.NoError(t, reg.Register(identity.NewIdentity("planner")))
	result := IdentityCheck(reg)(context.Background())
	assert.Equal(t, Healthy, result.Status)
	assert.Contains(t, result.Detail, "1 identities")

	tracker := cost.NewTracker()
	result = TrackerCheck(tracker)(context.Background())
	assert.Equal(t, Healthy, result.Status)
}
