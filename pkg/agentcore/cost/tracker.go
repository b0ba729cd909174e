package cost

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
)

// UnknownModelError reports a recording attempt for a model with no pricing
// entry in the catalogue. Nothing is recorded.
type UnknownModelError struct {
	AgentID string
	Model   string
}

// Error implements the error interface.
func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("no pricing data for model %q (agent %q)", e.Model, e.AgentID)
}

// TokenUsage is one recorded model call.
type TokenUsage struct {
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// AgentCosts is the aggregated summary for one agent.
type AgentCosts struct {
	AgentID           string       `json:"agent_id"`
	TotalCostUSD      float64      `json:"total_cost_usd"`
	TotalInputTokens  int          `json:"total_input_tokens"`
	TotalOutputTokens int          `json:"total_output_tokens"`
	Records           []TokenUsage `json:"records"`
}

// Tracker is a thread-safe accumulator of token costs across agents and
// models. Attach it to a bus to record llm_responded traffic automatically,
// or call Record directly.
type Tracker struct {
	mu    sync.Mutex
	costs map[string]*AgentCosts

	subID  event.SubscriptionID
	bus    *event.Bus
	logger *slog.Logger
}

// TrackerOption configures tracker construction.
type TrackerOption func(*Tracker)

// WithLogger attaches a structured logger for recording diagnostics.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates an empty cost tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{costs: make(map[string]*AgentCosts)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record adds one usage record and returns the computed USD cost. Models
// without a pricing entry are rejected with *UnknownModelError and nothing
// is recorded.
func (t *Tracker) Record(agentID, model string, inputTokens, outputTokens int) (float64, error) {
	pricing, ok := Pricing(model)
	if !ok {
		return 0, &UnknownModelError{AgentID: agentID, Model: model}
	}

	costUSD := float64(inputTokens)/1000*pricing.InputCostPer1K +
		float64(outputTokens)/1000*pricing.OutputCostPer1K

	t.mu.Lock()
	defer t.mu.Unlock()

	agent, exists := t.costs[agentID]
	if !exists {
		agent = &AgentCosts{AgentID: agentID}
		t.costs[agentID] = agent
	}
	agent.TotalCostUSD += costUSD
	agent.TotalInputTokens += inputTokens
	agent.TotalOutputTokens += outputTokens
	agent.Records = append(agent.Records, TokenUsage{
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      costUSD,
	})

	return costUSD, nil
}

// Total returns the accumulated USD cost for agentID, zero when unknown.
func (t *Tracker) Total(agentID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if agent, ok := t.costs[agentID]; ok {
		return agent.TotalCostUSD
	}
	return 0
}

// TokenCounts returns the accumulated input and output token totals for
// agentID.
func (t *Tracker) TokenCounts(agentID string) (input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	agent, ok := t.costs[agentID]
	if !ok {
		return 0, 0
	}
	return agent.TotalInputTokens, agent.TotalOutputTokens
}

// AllCosts returns a snapshot of every agent summary. Summaries and their
// record slices are copies.
func (t *Tracker) AllCosts() map[string]AgentCosts {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]AgentCosts, len(t.costs))
	for agentID, agent := range t.costs {
		summary := *agent
		summary.Records = make([]TokenUsage, len(agent.Records))
		copy(summary.Records, agent.Records)
		out[agentID] = summary
	}
	return out
}

// Reset clears records for agentID.
func (t *Tracker) Reset(agentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.costs, agentID)
}

// ResetAll clears records for every agent.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.costs = make(map[string]*AgentCosts)
}

// Attach subscribes the tracker to llm_responded events so usage is
// recorded automatically from event payloads. Events without token counts,
// and models without pricing, are skipped without failing the dispatch.
func (t *Tracker) Attach(bus *event.Bus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bus = bus
	t.subID = bus.Subscribe(event.LLMResponded, event.HandlerFunc(t.handle))
}

// Detach unsubscribes from the bus.
func (t *Tracker) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bus != nil {
		t.bus.Unsubscribe(t.subID)
		t.bus = nil
	}
}

func (t *Tracker) handle(_ context.Context, evt event.Envelope) error {
	model, _ := evt.Payload[event.KeyModelName].(string)
	input, inOK := payloadInt(evt.Payload[event.KeyPromptTokens])
	output, outOK := payloadInt(evt.Payload[event.KeyOutputTokens])
	if model == "" || (!inOK && !outOK) {
		return nil
	}

	if _, err := t.Record(evt.AgentID, model, input, output); err != nil {
		t.log("usage not recorded",
			slog.String("agent_id", evt.AgentID),
			slog.String("model", model),
			slog.String("reason", err.Error()),
		)
	}
	return nil
}

// payloadInt normalizes the numeric kinds JSON decoding and Go callers
// produce.
func payloadInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func (t *Tracker) log(msg string, attrs ...slog.Attr) {
	if t.logger == nil {
		return
	}
	t.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}
