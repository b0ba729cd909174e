package identity

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Record is one registry entry: the identity plus its activation state.
// Deactivation flips Active off without discarding the record, so the
// agent's history of prior events stays attributable.
type Record struct {
	Identity      AgentIdentity `json:"identity"`
	Active        bool          `json:"active"`
	RegisteredAt  time.Time     `json:"registered_at"`
	DeactivatedAt *time.Time    `json:"deactivated_at,omitempty"`
	ReissuedAt    *time.Time    `json:"reissued_at,omitempty"`
}

// Registry is a thread-safe in-memory identity store. It satisfies the bus's
// IdentityResolver interface, so a registry can be handed directly to
// event.WithStrictIdentity.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	logger  *slog.Logger
}

// RegistryOption configures registry construction.
type RegistryOption func(*Registry)

// WithLogger attaches a structured logger for registration diagnostics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty identity registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{records: make(map[string]*Record)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores a new identity as active. The check and insert happen
// under one lock, so duplicate IDs fail deterministically even under
// concurrent registration.
func (r *Registry) Register(id AgentIdentity) error {
	if id.AgentID == "" || id.Name == "" {
		return ErrInvalidIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id.AgentID]; exists {
		return &DuplicateIdentityError{AgentID: id.AgentID}
	}

	r.records[id.AgentID] = &Record{
		Identity:     id,
		Active:       true,
		RegisteredAt: time.Now().UTC(),
	}

	r.log("identity registered",
		slog.String("agent_id", id.AgentID),
		slog.String("name", id.Name),
	)
	return nil
}

// Get returns the record for agentID.
func (r *Registry) Get(agentID string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[agentID]
	if !ok {
		return Record{}, &NotFoundError{AgentID: agentID}
	}
	return *rec, nil
}

// Deactivate marks the agent inactive. The record is retained so history
// stays attributable; strict-mode publishes from the agent are rejected
// until Reactivate. Deactivating an already-inactive agent is a no-op.
func (r *Registry) Deactivate(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[agentID]
	if !ok {
		return &NotFoundError{AgentID: agentID}
	}
	if rec.Active {
		rec.Active = false
		now := time.Now().UTC()
		rec.DeactivatedAt = &now
		r.log("identity deactivated", slog.String("agent_id", agentID))
	}
	return nil
}

// Reactivate restores an inactive agent. Reactivating an active agent is a
// no-op.
func (r *Registry) Reactivate(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[agentID]
	if !ok {
		return &NotFoundError{AgentID: agentID}
	}
	if !rec.Active {
		rec.Active = true
		rec.DeactivatedAt = nil
		r.log("identity reactivated", slog.String("agent_id", agentID))
	}
	return nil
}

// Reissue replaces the identity stored under agentID with a fresh one,
// keeping the same agent ID and reactivating the record. Used when an
// agent's credentials or descriptors rotate without changing its identity
// on the bus.
func (r *Registry) Reissue(agentID string, replacement AgentIdentity) (Record, error) {
	if replacement.Name == "" {
		return Record{}, ErrInvalidIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[agentID]
	if !ok {
		return Record{}, &NotFoundError{AgentID: agentID}
	}

	replacement.AgentID = agentID
	now := time.Now().UTC()
	rec.Identity = replacement
	rec.Active = true
	rec.DeactivatedAt = nil
	rec.ReissuedAt = &now

	r.log("identity reissued", slog.String("agent_id", agentID))
	return *rec, nil
}

// List returns all records sorted by agent ID.
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity.AgentID < out[j].Identity.AgentID
	})
	return out
}

// FindByName returns all records whose identity name matches exactly.
func (r *Registry) FindByName(name string) []Record {
	return r.find(func(rec *Record) bool {
		return rec.Identity.Name == name
	})
}

// FindByFramework returns all records whose framework matches exactly.
func (r *Registry) FindByFramework(framework string) []Record {
	return r.find(func(rec *Record) bool {
		return rec.Identity.Framework == framework
	})
}

func (r *Registry) find(match func(*Record) bool) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for _, rec := range r.records {
		if match(rec) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity.AgentID < out[j].Identity.AgentID
	})
	return out
}

// Len returns the number of registered identities, active or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// LookupAgent reports registration and activation state for agentID. This is
// the resolver contract the event bus consults in strict mode.
func (r *Registry) LookupAgent(agentID string) (known, active bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[agentID]
	if !ok {
		return false, false
	}
	return true, rec.Active
}

func (r *Registry) log(msg string, attrs ...slog.Attr) {
	if r.logger == nil {
		return
	}
	r.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}
