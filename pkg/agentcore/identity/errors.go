package identity

import (
	"errors"
	"fmt"
)

// ErrInvalidIdentity rejects identities missing required fields.
var ErrInvalidIdentity = errors.New("identity requires an agent_id and a name")

// DuplicateIdentityError rejects a Register call whose agent ID is already
// taken. Registration is atomic check-then-insert, so exactly one of two
// concurrent registrations for the same id receives this error.
type DuplicateIdentityError struct {
	AgentID string
}

// Error implements the error interface.
func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("agent %q is already registered", e.AgentID)
}

// NotFoundError reports a lookup for an agent ID the registry has never seen.
type NotFoundError struct {
	AgentID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("agent %q is not registered", e.AgentID)
}
