package cost

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
)

func TestPricingExactAndFuzzy(t *testing.T) {
	entry, ok := Pricing("gpt-4o")
	require.True(t, ok)
	assert.Equal(t, 0.005, entry.InputCostPer1K)

	// Case-insensitive.
	entry, ok = Pricing("GPT-4o")
	require.True(t, ok)
	assert.Equal(t, 0.005, entry.InputCostPer1K)

	// Query is a prefix of a canonical ID; first in sort order wins.
	entry, ok = Pricing("claude-sonnet")
	require.True(t, ok)
	assert.Equal(t, 0.003, entry.InputCostPer1K)

	// Canonical ID is a prefix of the query (dated release suffix). Both
	// gpt-4o and gpt-4o-mini match; the first in sort order wins.
	entry, ok = Pricing("gpt-4o-mini-2024-07-18")
	require.True(t, ok)
	assert.Equal(t, 0.005, entry.InputCostPer1K)

	_, ok = Pricing("unknown-model-xyz")
	assert.False(t, ok)
}

func TestModelsSorted(t *testing.T) {
	models := Models()
	require.NotEmpty(t, models)
	for i := 1; i < len(models); i++ {
		assert.Less(t, models[i-1], models[i])
	}
}

func TestRecordComputesCost(t *testing.T) {
	tracker := NewTracker()

	cost, err := tracker.Record("agent-1", "gpt-4o", 500, 200)
	require.NoError(t, err)

	// 500/1000*0.005 + 200/1000*0.015
	assert.InDelta(t, 0.0055, cost, 1e-9)
	assert.InDelta(t, 0.0055, tracker.Total("agent-1"), 1e-9)

	input, output := tracker.TokenCounts("agent-1")
	assert.Equal(t, 500, input)
	assert.Equal(t, 200, output)
}

func TestRecordUnknownModel(t *testing.T) {
	tracker := NewTracker()

	_, err := tracker.Record("agent-1", "unknown-model-xyz", 100, 100)
	var unknown *UnknownModelError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "unknown-model-xyz", unknown.Model)
	assert.Zero(t, tracker.Total("agent-1"), "rejected records leave no trace")
}

func TestAllCostsReturnsCopies(t *testing.T) {
	tracker := NewTracker()
	_, err := tracker.Record("agent-1", "gpt-4o", 100, 100)
	require.NoError(t, err)

	snapshot := tracker.AllCosts()
	require.Contains(t, snapshot, "agent-1")
	require.Len(t, snapshot["agent-1"].Records, 1)

	_, err = tracker.Record("agent-1", "gpt-4o", 100, 100)
	require.NoError(t, err)
	assert.Len(t, snapshot["agent-1"].Records, 1, "snapshot unaffected by later records")
}

func TestResetAndResetAll(t *testing.T) {
	tracker := NewTracker()
	_, err := tracker.Record("agent-1", "gpt-4o", 100, 100)
	require.NoError(t, err)
	_, err = tracker.Record("agent-2", "gpt-4o", 100, 100)
	require.NoError(t, err)

	tracker.Reset("agent-1")
	assert.Zero(t, tracker.Total("agent-1"))
	assert.NotZero(t, tracker.Total("agent-2"))

	tracker.ResetAll()
	assert.Empty(t, tracker.AllCosts())
}

func TestConcurrentRecording(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := tracker.Record("agent-1", "gpt-4o", 100, 100); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	input, output := tracker.TokenCounts("agent-1")
	assert.Equal(t, 40_000, input)
	assert.Equal(t, 40_000, output)
	assert.Len(t, tracker.AllCosts()["agent-1"].Records, 400)
}

func TestTrackerAttachRecordsLLMResponses(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	tracker := NewTracker()
	tracker.Attach(bus)
	defer tracker.Detach()

	evt, err := event.NewLLMResponded("agent-1", "gpt-4o", 500, 200)
	require.NoError(t, err)
	_, err = bus.Publish(context.Background(), evt)
	require.NoError(t, err)

	assert.InDelta(t, 0.0055, tracker.Total("agent-1"), 1e-9)

	// Unknown models and unrelated events are ignored without failing dispatch.
	evt, err = event.NewLLMResponded("agent-1", "unknown-model-xyz", 10, 10)
	require.NoError(t, err)
	report, err := bus.Publish(context.Background(), evt)
	require.NoError(t, err)
	assert.Zero(t, report.Failed())

	started, err := event.NewAgentStarted("agent-1", "go", "main")
	require.NoError(t, err)
	_, err = bus.Publish(context.Background(), started)
	require.NoError(t, err)

	assert.InDelta(t, 0.0055, tracker.Total("agent-1"), 1e-9)

	tracker.Detach()
	evt, err = event.NewLLMResponded("agent-1", "gpt-4o", 500, 200)
	require.NoError(t, err)
	_, err = bus.Publish(context.Background(), evt)
	require.NoError(t, err)
	assert.InDelta(t, 0.0055, tracker.Total("agent-1"), 1e-9, "detached tracker stops recording")
}

func TestTrackerAttachDetachConcurrent(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Attach(bus)
				tracker.Detach()
			}
		}()
	}
	wg.Wait()

	// Still usable after the churn.
	tracker.Attach(bus)
	defer tracker.Detach()
	evt, err := event.NewLLMResponded("agent-1", "gpt-4o", 100, 100)
	require.NoError(t, err)
	_, err = bus.Publish(context.Background(), evt)
	require.NoError(t, err)
	assert.Positive(t, tracker.Total("agent-1"))
}

func TestBudgetManager(t *testing.T) {
	tracker := NewTracker()
	budgets := NewBudgetManager(tracker)

	// No budget: unlimited.
	_, err := budgets.Record("agent-free", "gpt-4o", 1000, 1000)
	require.NoError(t, err)
	_, ok := budgets.Remaining("agent-free")
	assert.False(t, ok)

	budgets.SetBudget("agent-1", 0.01)
	budget, ok := budgets.Budget("agent-1")
	require.True(t, ok)
	assert.Equal(t, 0.01, budget)

	// First call crosses the cap and is allowed.
	cost, err := budgets.Record("agent-1", "gpt-4o", 1000, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, cost, 1e-9)
	assert.True(t, budgets.OverBudget("agent-1"))

	remaining, ok := budgets.Remaining("agent-1")
	require.True(t, ok)
	assert.InDelta(t, -0.01, remaining, 1e-9)

	// Further spend is rejected.
	_, err = budgets.Record("agent-1", "gpt-4o", 10, 10)
	var exceeded *BudgetExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, "agent-1", exceeded.AgentID)
}
