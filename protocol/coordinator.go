package protocol

import "log/slog"

// RegistrationCoordinator validates and applies register and submit requests.
// It keeps no state of its own.
type RegistrationCoordinator struct {
	registry *ParticipantRegistry
	log      *slog.Logger
}

// NewRegistrationCoordinator creates a coordinator over registry.
func NewRegistrationCoordinator(registry *ParticipantRegistry, log *slog.Logger) *RegistrationCoordinator {
	if log == nil {
		log = slog.Default()
	}
	return &RegistrationCoordinator{registry: registry, log: log}
}

// Register assigns the next identifier to a participant.
func (c *RegistrationCoordinator) Register(name string) (*Registration, error) {
	reg, err := c.registry.Register(name)
	if err != nil {
		c.log.Warn("registration rejected", "name", name, "kind", KindOf(err), "err", err)
		return nil, err
	}

	c.log.Info("participant registered", "name", reg.Name, "participantID", reg.ID)
	return reg, nil
}

// Submit stores a participant's key share and ciphertext.
func (c *RegistrationCoordinator) Submit(s *Submission) (*SubmissionReceipt, error) {
	if s == nil {
		return nil, ErrInvalidSubmission
	}

	if err := c.registry.Submit(s.ParticipantID, s.KeyShare, s.CipherText); err != nil {
		c.log.Warn("submission rejected", "participantID", s.ParticipantID, "kind", KindOf(err), "err", err)
		return nil, err
	}

	progress := c.registry.Completeness()
	c.log.Info("key share submitted",
		"participantID", s.ParticipantID,
		"keyShareBytes", len(s.KeyShare),
		"cipherTextBytes", len(s.CipherText),
		"submitted", progress.Submitted,
		"required", progress.Required)

	return &SubmissionReceipt{ParticipantID: s.ParticipantID}, nil
}
