package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/flashbots/fhesession/metrics"
	"github.com/flashbots/fhesession/protocol"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies. A submission at the default
// parameters is well under 2 MiB once base64 encoded.
const maxBodyBytes = 16 << 20

// HTTPCoordinator exposes a session over HTTP.
type HTTPCoordinator struct {
	session *protocol.Session
	metrics *metrics.SessionMetrics
	log     *slog.Logger
}

// NewHTTPCoordinator creates the HTTP handlers for session. sessionMetrics
// may be nil.
func NewHTTPCoordinator(session *protocol.Session, sessionMetrics *metrics.SessionMetrics, log *slog.Logger) *HTTPCoordinator {
	if log == nil {
		log = slog.Default()
	}
	if sessionMetrics != nil {
		session.SetStageObserver(sessionMetrics.ObserveStage)
	}
	return &HTTPCoordinator{
		session: session,
		metrics: sessionMetrics,
		log:     log.With("sessionID", session.ID()),
	}
}

// RegisterRoutes sets up the session endpoints.
func (c *HTTPCoordinator) RegisterRoutes(r chi.Router) {
	r.Get("/parameters", c.handleParameters)
	r.Post("/register", c.handleRegister)
	r.Post("/submit", c.handleSubmit)
	r.Post("/run", c.handleRun)
	r.Get("/status", c.handleStatus)
	r.Get("/participants", c.handleParticipants)
	r.Get("/result", c.handleResult)
}

func (c *HTTPCoordinator) handleParameters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.session.Parameters())
}

func (c *HTTPCoordinator) handleRegister(w http.ResponseWriter, r *http.Request) {
	name, err := readName(w, r)
	if err != nil {
		c.writeError(w, malformed(err))
		return
	}

	reg, err := c.session.Register(name)
	c.observe(func(m *metrics.SessionMetrics) { m.ObserveRegistration(err) })
	if err != nil {
		c.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

func (c *HTTPCoordinator) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var submission protocol.Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&submission); err != nil {
		c.writeError(w, malformed(err))
		return
	}

	receipt, err := c.session.Submit(&submission)
	c.observe(func(m *metrics.SessionMetrics) { m.ObserveSubmission(err) })
	if err != nil {
		c.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &SubmitResponse{Status: StatusOK, ParticipantID: receipt.ParticipantID})
}

func (c *HTTPCoordinator) handleRun(w http.ResponseWriter, r *http.Request) {
	res, err := c.session.Run()
	c.observe(func(m *metrics.SessionMetrics) { m.ObserveRun(err) })
	if err != nil {
		c.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &RunResponse{Status: res.Status})
}

func (c *HTTPCoordinator) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.session.Status())
}

func (c *HTTPCoordinator) handleParticipants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.session.Participants())
}

func (c *HTTPCoordinator) handleResult(w http.ResponseWriter, r *http.Request) {
	result, err := c.session.Result()
	if err != nil {
		c.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &ResultResponse{Status: StatusOK, Result: result})
}

func (c *HTTPCoordinator) observe(record func(*metrics.SessionMetrics)) {
	if c.metrics == nil {
		return
	}
	record(c.metrics)
	status := c.session.Status()
	c.metrics.SetProgress(status.Registered, status.Submitted)
}

func (c *HTTPCoordinator) writeError(w http.ResponseWriter, err error) {
	var sessionErr *protocol.Error
	if !errors.As(err, &sessionErr) {
		c.log.Error("unexpected error", "err", err)
		sessionErr = &protocol.Error{Kind: "internal", Reason: "internal error"}
	}

	reason := sessionErr.Reason
	if sessionErr.Err != nil {
		reason = fmt.Sprintf("%s: %v", reason, sessionErr.Err)
	}

	fail := &FailResponse{
		Status: StatusFail,
		Kind:   sessionErr.Kind,
		Reason: reason,
	}
	if sessionErr.Kind == protocol.KindIncomplete {
		submitted, required := sessionErr.Submitted, sessionErr.Required
		fail.Submitted, fail.Required = &submitted, &required
	}
	writeJSON(w, httpStatus(sessionErr.Kind), fail)
}

// readName accepts either a JSON RegisterRequest or a plain text name.
func readName(w http.ResponseWriter, r *http.Request) (string, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		var req RegisterRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return "", err
		}
		return req.Name, nil
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func malformed(err error) *protocol.Error {
	return &protocol.Error{Kind: KindMalformedRequest, Reason: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
