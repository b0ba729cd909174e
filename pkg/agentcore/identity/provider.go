package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// Provider issues and verifies agent identities. Implementations may back
// identities with external credential systems; BasicProvider is the
// self-contained default.
type Provider interface {
	// CreateIdentity issues a fresh identity and registers it.
	CreateIdentity(name string, opts ...IdentityOption) (AgentIdentity, error)

	// VerifyIdentity checks that agentID names a well-formed, registered,
	// active identity.
	VerifyIdentity(agentID string) error

	// RotateIdentity reissues the identity under the same agent ID with a
	// fresh fingerprint surface.
	RotateIdentity(agentID string, opts ...IdentityOption) (AgentIdentity, error)
}

// BasicProvider issues UUID-keyed identities against an in-memory registry.
type BasicProvider struct {
	registry *Registry
}

// NewBasicProvider wraps a registry in the Provider interface.
func NewBasicProvider(registry *Registry) *BasicProvider {
	return &BasicProvider{registry: registry}
}

// CreateIdentity implements Provider.
func (p *BasicProvider) CreateIdentity(name string, opts ...IdentityOption) (AgentIdentity, error) {
	id := NewIdentity(name, opts...)
	if err := p.registry.Register(id); err != nil {
		return AgentIdentity{}, err
	}
	return id, nil
}

// VerifyIdentity implements Provider. An identity verifies when its ID is a
// well-formed UUID and the registry holds it as active.
func (p *BasicProvider) VerifyIdentity(agentID string) error {
	if _, err := uuid.Parse(agentID); err != nil {
		return fmt.Errorf("malformed agent id %q: %w", agentID, err)
	}
	rec, err := p.registry.Get(agentID)
	if err != nil {
		return err
	}
	if !rec.Active {
		return fmt.Errorf("agent %q is deactivated", agentID)
	}
	return nil
}

// RotateIdentity implements Provider. The rotated identity keeps the
// original's name unless an option overrides it.
func (p *BasicProvider) RotateIdentity(agentID string, opts ...IdentityOption) (AgentIdentity, error) {
	current, err := p.registry.Get(agentID)
	if err != nil {
		return AgentIdentity{}, err
	}

	replacement := NewIdentity(current.Identity.Name, opts...)
	rec, err := p.registry.Reissue(agentID, replacement)
	if err != nil {
		return AgentIdentity{}, err
	}
	return rec.Identity, nil
}
