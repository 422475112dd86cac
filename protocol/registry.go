package protocol

import (
	"bytes"
	"errors"
	"sync"
)

// CompletionFlag is the one-shot aggregation flag of a session.
type CompletionFlag int

const (
	NotRun CompletionFlag = iota
	Run
)

func (f CompletionFlag) String() string {
	if f == Run {
		return "run"
	}
	return "not_run"
}

// ParticipantRegistry is the single source of truth for registration state.
// Registration, submission and the completion flag are all guarded by mu.
type ParticipantRegistry struct {
	capacity  int
	validator SubmissionValidator

	mu         sync.Mutex
	records    []*ParticipantRecord
	submitted  int
	completion CompletionFlag
}

// NewParticipantRegistry creates a registry for a group of exactly capacity participants.
func NewParticipantRegistry(capacity int) (*ParticipantRegistry, error) {
	if capacity < 1 {
		return nil, errors.New("registry capacity must be at least 1")
	}
	return &ParticipantRegistry{
		capacity: capacity,
		records:  make([]*ParticipantRecord, 0, capacity),
	}, nil
}

// Capacity returns the fixed group size.
func (r *ParticipantRegistry) Capacity() int {
	return r.capacity
}

// SetValidator installs a check run on every submission before it is stored.
// It must be called before the registry is shared.
func (r *ParticipantRegistry) SetValidator(validator SubmissionValidator) {
	r.validator = validator
}

// Register appends a new participant and assigns it the next identifier.
func (r *ParticipantRegistry) Register(name string) (*Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) >= r.capacity {
		return nil, capacityError(r.capacity)
	}

	id := ParticipantID(len(r.records))
	r.records = append(r.records, &ParticipantRecord{
		ID:    id,
		Name:  name,
		State: Acquired{},
	})

	return &Registration{Name: name, ID: id}, nil
}

// Submit records a participant's key share and ciphertext. A participant can
// submit once; later submissions are rejected and the first one is kept.
func (r *ParticipantRegistry) Submit(id ParticipantID, keyShare, cipherText []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if uint64(id) >= uint64(len(r.records)) {
		return unknownParticipantError(id, len(r.records))
	}

	record := r.records[id]
	if _, done := record.submitted(); done {
		return alreadySubmittedError(id)
	}

	if len(keyShare) == 0 || len(cipherText) == 0 {
		return ErrInvalidSubmission
	}
	if r.validator != nil {
		if err := r.validator.ValidateSubmission(keyShare, cipherText); err != nil {
			return invalidSubmissionError(id, err)
		}
	}

	record.State = KeySubmitted{
		KeyShare:   bytes.Clone(keyShare),
		CipherText: bytes.Clone(cipherText),
	}
	r.submitted++
	return nil
}

// Completeness reports submission progress. It has no side effects.
func (r *ParticipantRegistry) Completeness() Completeness {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completenessLocked()
}

func (r *ParticipantRegistry) completenessLocked() Completeness {
	return Completeness{
		Submitted: r.submitted,
		Required:  r.capacity,
		Complete:  r.submitted == r.capacity,
	}
}

// Flag returns the current completion flag.
func (r *ParticipantRegistry) Flag() CompletionFlag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completion
}

func (r *ParticipantRegistry) progress() (Completeness, CompletionFlag, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completenessLocked(), r.completion, len(r.records)
}

// Participants returns a snapshot of all records without key material.
func (r *ParticipantRegistry) Participants() []ParticipantInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]ParticipantInfo, 0, len(r.records))
	for _, record := range r.records {
		infos = append(infos, ParticipantInfo{
			ID:    record.ID,
			Name:  record.Name,
			State: record.State.Name(),
		})
	}
	return infos
}

// Submission returns the stored submission of a participant, if any.
func (r *ParticipantRegistry) Submission(id ParticipantID) (KeySubmitted, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if uint64(id) >= uint64(len(r.records)) {
		return KeySubmitted{}, false
	}
	s, ok := r.records[id].submitted()
	if !ok {
		return KeySubmitted{}, false
	}
	return KeySubmitted{KeyShare: bytes.Clone(s.KeyShare), CipherText: bytes.Clone(s.CipherText)}, true
}

// aggregationInput is the immutable snapshot handed to the backend.
type aggregationInput struct {
	keyShares   [][]byte
	cipherTexts [][]byte
}

// closeForAggregation checks the aggregation preconditions, captures the
// submissions in identifier order and flips the completion flag, all inside
// one exclusive section.
func (r *ParticipantRegistry) closeForAggregation() (*aggregationInput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.completion == Run {
		return nil, ErrAlreadyRun
	}

	c := r.completenessLocked()
	if !c.Complete {
		return nil, incompleteError(c.Submitted, c.Required)
	}

	input := &aggregationInput{
		keyShares:   make([][]byte, len(r.records)),
		cipherTexts: make([][]byte, len(r.records)),
	}
	for i, record := range r.records {
		s, _ := record.submitted()
		input.keyShares[i] = s.KeyShare
		input.cipherTexts[i] = s.CipherText
	}

	r.completion = Run
	return input, nil
}

// reopen resets the completion flag after a failed backend attempt.
func (r *ParticipantRegistry) reopen() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completion = NotRun
}
