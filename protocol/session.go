package protocol

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// Session ties together the parameters, the registry and the aggregation
// gate of one group of participants. It lives for the lifetime of the process.
type Session struct {
	id     string
	config *SessionConfig

	publisher   *ParameterPublisher
	registry    *ParticipantRegistry
	coordinator *RegistrationCoordinator
	gate        *AggregationGate
}

// SessionStatus is a read-only summary of a session.
type SessionStatus struct {
	SessionID     string               `json:"session_id"`
	Phase         SessionPhase         `json:"phase"`
	Registered    int                  `json:"registered"`
	Submitted     int                  `json:"submitted"`
	Required      int                  `json:"required"`
	Completion    string               `json:"completion"`
	LastFailure   string               `json:"last_failure,omitempty"`
	FailurePolicy BackendFailurePolicy `json:"backend_failure_policy"`
}

type sessionOptions struct {
	log    *slog.Logger
	random io.Reader
}

// SessionOption customizes session construction.
type SessionOption func(*sessionOptions)

// WithLogger sets the structured logger used by the session components.
func WithLogger(log *slog.Logger) SessionOption {
	return func(o *sessionOptions) { o.log = log }
}

// WithRandom sets the source of the session seed. Defaults to crypto/rand.
func WithRandom(r io.Reader) SessionOption {
	return func(o *sessionOptions) { o.random = r }
}

// NewSession generates the session parameters and creates an empty registry
// for config.Participants participants.
func NewSession(config *SessionConfig, backend Aggregator, opts ...SessionOption) (*Session, error) {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	o := &sessionOptions{log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	id := uuid.New().String()
	log := o.log.With("sessionID", id)

	publisher, err := NewParameterPublisher(o.random)
	if err != nil {
		return nil, err
	}

	registry, err := NewParticipantRegistry(config.Participants)
	if err != nil {
		return nil, err
	}
	if validator, ok := backend.(SubmissionValidator); ok {
		registry.SetValidator(validator)
	}

	gate, err := NewAggregationGate(registry, publisher.Publish(), backend, config.BackendFailurePolicy, log)
	if err != nil {
		return nil, err
	}

	log.Info("session created", "participants", config.Participants, "policy", config.BackendFailurePolicy)

	return &Session{
		id:          id,
		config:      config,
		publisher:   publisher,
		registry:    registry,
		coordinator: NewRegistrationCoordinator(registry, log),
		gate:        gate,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Parameters returns the published session parameters.
func (s *Session) Parameters() SessionParameters {
	return s.publisher.Publish()
}

// Register registers a participant under name.
func (s *Session) Register(name string) (*Registration, error) {
	return s.coordinator.Register(name)
}

// Submit stores a participant's key share and ciphertext.
func (s *Session) Submit(submission *Submission) (*SubmissionReceipt, error) {
	return s.coordinator.Submit(submission)
}

// Run triggers aggregation and evaluation.
func (s *Session) Run() (*RunResult, error) {
	return s.gate.Run()
}

// Result returns the evaluation output once available.
func (s *Session) Result() (Result, error) {
	return s.gate.Result()
}

// Completeness reports submission progress.
func (s *Session) Completeness() Completeness {
	return s.registry.Completeness()
}

// Participants lists all registered participants.
func (s *Session) Participants() []ParticipantInfo {
	return s.registry.Participants()
}

// SetStageObserver sets a callback invoked after each backend call.
func (s *Session) SetStageObserver(observe StageObserver) {
	s.gate.SetStageObserver(observe)
}

// Status summarizes the session.
func (s *Session) Status() *SessionStatus {
	completeness, flag, registered := s.registry.progress()

	status := &SessionStatus{
		SessionID:     s.id,
		Phase:         s.gate.Phase(),
		Registered:    registered,
		Submitted:     completeness.Submitted,
		Required:      completeness.Required,
		Completion:    flag.String(),
		FailurePolicy: s.config.BackendFailurePolicy,
	}
	if err := s.gate.LastFailure(); err != nil {
		status.LastFailure = err.Error()
	}
	return status
}
