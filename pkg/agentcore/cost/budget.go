package cost

import (
	"fmt"
	"sync"
)

// BudgetExceededError reports a recording attempt that would push an agent
// past its configured budget.
type BudgetExceededError struct {
	AgentID   string
	BudgetUSD float64
	SpentUSD  float64
}

// Error implements the error interface.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("agent %q has spent $%.6f of a $%.6f budget", e.AgentID, e.SpentUSD, e.BudgetUSD)
}

// BudgetManager layers per-agent spending caps over a Tracker. Agents
// without a configured budget are unlimited.
type BudgetManager struct {
	mu      sync.Mutex
	budgets map[string]float64
	tracker *Tracker
}

// NewBudgetManager wraps tracker with budget enforcement.
func NewBudgetManager(tracker *Tracker) *BudgetManager {
	return &BudgetManager{
		budgets: make(map[string]float64),
		tracker: tracker,
	}
}

// SetBudget caps agentID's total spend at budgetUSD.
func (m *BudgetManager) SetBudget(agentID string, budgetUSD float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[agentID] = budgetUSD
}

// Budget returns the configured cap for agentID.
func (m *BudgetManager) Budget(agentID string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	budget, ok := m.budgets[agentID]
	return budget, ok
}

// Remaining returns the unspent portion of agentID's budget. Agents without
// a budget report ok false.
func (m *BudgetManager) Remaining(agentID string) (float64, bool) {
	budget, ok := m.Budget(agentID)
	if !ok {
		return 0, false
	}
	return budget - m.tracker.Total(agentID), true
}

// OverBudget reports whether agentID has met or exceeded its budget.
func (m *BudgetManager) OverBudget(agentID string) bool {
	remaining, ok := m.Remaining(agentID)
	return ok && remaining <= 0
}

// Record records usage through the tracker after checking the budget. An
// agent already at or over budget is rejected and nothing is recorded; the
// call that crosses the cap is allowed.
func (m *BudgetManager) Record(agentID, model string, inputTokens, outputTokens int) (float64, error) {
	budget, hasBudget := m.Budget(agentID)
	if hasBudget {
		spent := m.tracker.Total(agentID)
		if spent >= budget {
			return 0, &BudgetExceededError{AgentID: agentID, BudgetUSD: budget, SpentUSD: spent}
		}
	}
	return m.tracker.Record(agentID, model, inputTokens, outputTokens)
}
