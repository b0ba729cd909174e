// Package health aggregates named liveness checks over agentcore components
// into a single report. Checks are plain functions, so any component can be
// covered; built-ins exist for the bus, the identity registry, and the cost
// tracker.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/cost"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
	"github.com/aumos-ai/agentcore-go/pkg/agentcore/identity"
)

// Status is a check or report outcome.
type Status string

// Statuses, ordered from best to worst.
const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)

var statusRank = map[Status]int{Healthy: 0, Degraded: 1, Unhealthy: 2}

// worse returns the worse of two statuses.
func worse(a, b Status) Status {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}

// CheckResult is one check's outcome.
type CheckResult struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Check probes one component. Checks must be safe to call repeatedly and
// concurrently; a panicking check is reported unhealthy, not propagated.
type Check func(ctx context.Context) CheckResult

// Report is the aggregate of one Run: the worst individual status plus every
// check's result.
type Report struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
}

// Registry holds named checks. An empty registry reports healthy.
type Registry struct {
	mu     sync.Mutex
	checks map[string]Check
}

// NewRegistry creates an empty check registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]Check)}
}

// RegisterCheck adds or replaces the check under name.
func (r *Registry) RegisterCheck(name string, check Check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

// UnregisterCheck removes the check under name.
func (r *Registry) UnregisterCheck(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checks, name)
}

// Names returns the registered check names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.checks))
	for name := range r.checks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run executes every registered check and aggregates the results. The report
// status is the worst individual status.
func (r *Registry) Run(ctx context.Context) Report {
	r.mu.Lock()
	checks := make(map[string]Check, len(r.checks))
	for name, check := range r.checks {
		checks[name] = check
	}
	r.mu.Unlock()

	report := Report{
		Status:    Healthy,
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: time.Now().UTC(),
	}
	for name, check := range checks {
		result := runSafely(ctx, check)
		report.Checks[name] = result
		report.Status = worse(report.Status, result.Status)
	}
	return report
}

func runSafely(ctx context.Context, check Check) (result CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result = CheckResult{Status: Unhealthy, Detail: fmt.Sprintf("check panicked: %v", r)}
		}
	}()
	return check(ctx)
}

// BusCheck reports on the event bus: unhealthy once closed, degraded when
// the history ring is full (the next publish evicts), healthy otherwise.
func BusCheck(bus *event.Bus) Check {
	return func(context.Context) CheckResult {
		if bus == nil {
			return CheckResult{Status: Unhealthy, Detail: "bus is not configured"}
		}
		if bus.Closed() {
			return CheckResult{Status: Unhealthy, Detail: "bus is closed"}
		}
		status := bus.Status()
		if status.MaxHistory > 0 && status.HistorySize >= status.MaxHistory {
			return CheckResult{
				Status: Degraded,
				Detail: fmt.Sprintf("history ring full at %d entries", status.MaxHistory),
			}
		}
		return CheckResult{
			Status: Healthy,
			Detail: fmt.Sprintf("%d subscribers, %d/%d history entries", status.SubscriberCount, status.HistorySize, status.MaxHistory),
		}
	}
}

// IdentityCheck reports the identity registry's size.
func IdentityCheck(reg *identity.Registry) Check {
	return func(context.Context) CheckResult {
		if reg == nil {
			return CheckResult{Status: Unhealthy, Detail: "identity registry is not configured"}
		}
		return CheckResult{
			Status: Healthy,
			Detail: fmt.Sprintf("%d identities registered", reg.Len()),
		}
	}
}

// TrackerCheck reports the cost tracker's agent count.
func TrackerCheck(tracker *cost.Tracker) Check {
	return func(context.Context) CheckResult {
		if tracker == nil {
			return CheckResult{Status: Unhealthy, Detail: "cost tracker is not configured"}
		}
		return CheckResult{
			Status: Healthy,
			Detail: fmt.Sprintf("tracking %d agents", len(tracker.AllCosts())),
		}
	}
}
