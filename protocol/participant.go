package protocol

// ParticipantID is the sequential identifier assigned at registration.
// It equals the participant's index in the registry.
type ParticipantID uint

// RegistrationState is the per-participant protocol state. The only
// implementations are Acquired and KeySubmitted.
type RegistrationState interface {
	Name() string
	registrationState()
}

// Acquired means an identifier was issued and nothing was submitted yet.
type Acquired struct{}

func (Acquired) Name() string      { return "acquired" }
func (Acquired) registrationState() {}

// KeySubmitted holds the participant's submission. It is terminal.
type KeySubmitted struct {
	KeyShare   []byte
	CipherText []byte
}

func (KeySubmitted) Name() string      { return "key_submitted" }
func (KeySubmitted) registrationState() {}

// ParticipantRecord is one entry of the registry.
type ParticipantRecord struct {
	ID    ParticipantID
	Name  string
	State RegistrationState
}

func (r *ParticipantRecord) submitted() (KeySubmitted, bool) {
	s, ok := r.State.(KeySubmitted)
	return s, ok
}

// ParticipantInfo is a read-only view of a record without key material.
type ParticipantInfo struct {
	ID    ParticipantID `json:"participant_id"`
	Name  string        `json:"name"`
	State string        `json:"state"`
}

// Registration is returned to a participant on successful registration.
type Registration struct {
	Name string        `json:"name"`
	ID   ParticipantID `json:"participant_id"`
}

// Submission carries a participant's key share and ciphertext.
type Submission struct {
	ParticipantID ParticipantID `json:"participant_id"`
	KeyShare      []byte        `json:"key_share"`
	CipherText    []byte        `json:"cipher_text"`
}

// SubmissionReceipt confirms an accepted submission.
type SubmissionReceipt struct {
	ParticipantID ParticipantID `json:"participant_id"`
}

// Completeness reports how many of the required participants have submitted.
type Completeness struct {
	Submitted int  `json:"submitted"`
	Required  int  `json:"required"`
	Complete  bool `json:"complete"`
}
