// Package identity implements the agent identity registry: registration,
// lookup, activation state, and replace-and-reissue of agent identities.
// The registry doubles as the resolver the event bus consults in strict
// mode, so only registered, active agents can publish.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AgentIdentity describes one agent instance. Identities are value types;
// the registry never hands out shared mutable state.
type AgentIdentity struct {
	AgentID   string            `json:"agent_id"`
	Name      string            `json:"name"`
	Version   string            `json:"version,omitempty"`
	Framework string            `json:"framework,omitempty"`
	Model     string            `json:"model,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// fingerprintFields is the stable subset hashed by Fingerprint. CreatedAt and
// Metadata are excluded so the fingerprint survives re-registration and
// annotation changes.
type fingerprintFields struct {
	AgentID   string `json:"agent_id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Framework string `json:"framework"`
	Model     string `json:"model"`
}

// Fingerprint returns a hex-encoded SHA-256 digest over the identity's
// stable fields. Two identities with the same id, name, version, framework,
// and model always fingerprint identically.
func (id AgentIdentity) Fingerprint() string {
	data, _ := json.Marshal(fingerprintFields{
		AgentID:   id.AgentID,
		Name:      id.Name,
		Version:   id.Version,
		Framework: id.Framework,
		Model:     id.Model,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewIdentity builds an identity with a generated agent ID and the current
// UTC time.
func NewIdentity(name string, opts ...IdentityOption) AgentIdentity {
	id := AgentIdentity{
		AgentID:   uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&id)
	}
	return id
}

// IdentityOption configures identity construction.
type IdentityOption func(*AgentIdentity)

// WithAgentID sets a specific agent ID instead of a generated UUID.
func WithAgentID(agentID string) IdentityOption {
	return func(id *AgentIdentity) {
		id.AgentID = agentID
	}
}

// WithVersion sets the agent's version string.
func WithVersion(version string) IdentityOption {
	return func(id *AgentIdentity) {
		id.Version = version
	}
}

// WithFramework names the agent framework the identity runs under.
func WithFramework(framework string) IdentityOption {
	return func(id *AgentIdentity) {
		id.Framework = framework
	}
}

// WithModel names the primary model backing the agent.
func WithModel(model string) IdentityOption {
	return func(id *AgentIdentity) {
		id.Model = model
	}
}

// WithIdentityMetadata attaches free-form annotation tags.
func WithIdentityMetadata(metadata map[string]string) IdentityOption {
	return func(id *AgentIdentity) {
		id.Metadata = metadata
	}
}
