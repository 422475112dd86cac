package protocol

import "fmt"

// DefaultParticipants is the group size used when none is configured.
const DefaultParticipants = 3

// SessionConfig provides configuration parameters for a session.
type SessionConfig struct {
	// Participants is the fixed number of participants N. It cannot change
	// once the session is created.
	Participants int `json:"participants"`

	// BackendFailurePolicy decides whether a failed backend call leaves the
	// session retryable (rollback) or permanently failed (seal).
	BackendFailurePolicy BackendFailurePolicy `json:"backend_failure_policy"`
}

// DefaultSessionConfig returns a three-party configuration that rolls back on
// backend failure.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		Participants:         DefaultParticipants,
		BackendFailurePolicy: RollbackOnFailure,
	}
}

// Validate checks the configuration.
func (c *SessionConfig) Validate() error {
	if c.Participants < 1 {
		return fmt.Errorf("participants must be at least 1, got %d", c.Participants)
	}
	if !c.BackendFailurePolicy.Valid() {
		return fmt.Errorf("invalid backend failure policy %q", c.BackendFailurePolicy)
	}
	return nil
}
