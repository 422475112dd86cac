package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable class of a session failure.
type ErrorKind string

const (
	KindCapacityExceeded    ErrorKind = "capacity_exceeded"
	KindUnknownParticipant  ErrorKind = "unknown_participant"
	KindAlreadyKeySubmitted ErrorKind = "already_key_submitted"
	KindInvalidSubmission   ErrorKind = "invalid_submission"
	KindIncomplete          ErrorKind = "incomplete"
	KindAlreadyRun          ErrorKind = "already_run"
	KindBackendFailure      ErrorKind = "backend_failure"
	KindNotReady            ErrorKind = "not_ready"
)

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrCapacityExceeded    = &Error{Kind: KindCapacityExceeded, Reason: "participant group is full"}
	ErrUnknownParticipant  = &Error{Kind: KindUnknownParticipant, Reason: "participant has not registered"}
	ErrAlreadyKeySubmitted = &Error{Kind: KindAlreadyKeySubmitted, Reason: "key share already submitted"}
	ErrInvalidSubmission   = &Error{Kind: KindInvalidSubmission, Reason: "key share and cipher text are required"}
	ErrIncomplete          = &Error{Kind: KindIncomplete, Reason: "not all participants have submitted"}
	ErrAlreadyRun          = &Error{Kind: KindAlreadyRun, Reason: "aggregation has already run"}
	ErrBackendFailure      = &Error{Kind: KindBackendFailure, Reason: "cryptographic backend failed"}
	ErrNotReady            = &Error{Kind: KindNotReady, Reason: "evaluation result is not available"}
)

// Error is returned by every session operation that rejects a request.
// Submitted and Required are only meaningful for KindIncomplete.
type Error struct {
	Kind      ErrorKind
	Reason    string
	Submitted int
	Required  int
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or an empty kind if err is not a session error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func unknownParticipantError(id ParticipantID, registered int) *Error {
	return &Error{
		Kind:   KindUnknownParticipant,
		Reason: fmt.Sprintf("%d hasn't registered yet (%d registered)", id, registered),
	}
}

func alreadySubmittedError(id ParticipantID) *Error {
	return &Error{
		Kind:   KindAlreadyKeySubmitted,
		Reason: fmt.Sprintf("participant %d already submitted a key share", id),
	}
}

func invalidSubmissionError(id ParticipantID, err error) *Error {
	return &Error{
		Kind:   KindInvalidSubmission,
		Reason: fmt.Sprintf("participant %d submitted data the backend cannot use", id),
		Err:    err,
	}
}

func capacityError(capacity int) *Error {
	return &Error{
		Kind:   KindCapacityExceeded,
		Reason: fmt.Sprintf("all %d participant slots are taken", capacity),
	}
}

func incompleteError(submitted, required int) *Error {
	return &Error{
		Kind:      KindIncomplete,
		Reason:    fmt.Sprintf("%d of %d participants have submitted", submitted, required),
		Submitted: submitted,
		Required:  required,
	}
}

func backendError(stage string, err error) *Error {
	return &Error{
		Kind:   KindBackendFailure,
		Reason: stage + " failed",
		Err:    err,
	}
}
