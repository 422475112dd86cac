package services

import (
	"net/http"

	"github.com/flashbots/fhesession/protocol"
)

// Response status values.
const (
	StatusOK   = "ok"
	StatusFail = "fail"
)

// KindMalformedRequest is reported when a request body cannot be decoded.
// It is a transport error and never produced by the session itself.
const KindMalformedRequest protocol.ErrorKind = "malformed_request"

// RegisterRequest is the JSON form of a registration. A plain text body
// carrying only the name is accepted as well.
type RegisterRequest struct {
	Name string `json:"name"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	Status        string                 `json:"status"`
	ParticipantID protocol.ParticipantID `json:"participant_id"`
}

// RunResponse acknowledges a successful aggregation.
type RunResponse struct {
	Status string `json:"status"`
}

// ResultResponse carries the evaluation output.
type ResultResponse struct {
	Status string `json:"status"`
	Result []byte `json:"result"`
}

// FailResponse is the body of every rejected request. Submitted and Required
// are set for incomplete only, including when they are zero.
type FailResponse struct {
	Status    string             `json:"status"`
	Kind      protocol.ErrorKind `json:"kind"`
	Reason    string             `json:"reason"`
	Submitted *int               `json:"submitted,omitempty"`
	Required  *int               `json:"required,omitempty"`
}

// Err converts the response back into a session error.
func (f *FailResponse) Err() *protocol.Error {
	e := &protocol.Error{Kind: f.Kind, Reason: f.Reason}
	if f.Submitted != nil {
		e.Submitted = *f.Submitted
	}
	if f.Required != nil {
		e.Required = *f.Required
	}
	return e
}

// httpStatus maps an error kind to its HTTP status code.
func httpStatus(kind protocol.ErrorKind) int {
	switch kind {
	case KindMalformedRequest, protocol.KindInvalidSubmission:
		return http.StatusBadRequest
	case protocol.KindUnknownParticipant:
		return http.StatusNotFound
	case protocol.KindCapacityExceeded, protocol.KindAlreadyKeySubmitted, protocol.KindAlreadyRun:
		return http.StatusConflict
	case protocol.KindIncomplete, protocol.KindNotReady:
		return http.StatusPreconditionFailed
	case protocol.KindBackendFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
