package protocol

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// BackendFailurePolicy decides what happens to the completion flag when the
// backend fails after the session was closed for aggregation.
type BackendFailurePolicy string

const (
	// RollbackOnFailure resets the flag so Run can be retried.
	RollbackOnFailure BackendFailurePolicy = "rollback"
	// SealOnFailure keeps the flag set; the session stays failed.
	SealOnFailure BackendFailurePolicy = "seal"
)

// Valid returns true if the policy is recognized.
func (p BackendFailurePolicy) Valid() bool {
	switch p {
	case RollbackOnFailure, SealOnFailure:
		return true
	}
	return false
}

// SessionPhase is the coarse lifecycle state of a session.
type SessionPhase string

const (
	PhaseCollecting SessionPhase = "collecting"
	PhaseReady      SessionPhase = "ready"
	PhaseRunning    SessionPhase = "running"
	PhaseDone       SessionPhase = "done"
	PhaseFailed     SessionPhase = "failed"
)

// Backend stages reported to a StageObserver.
const (
	StageAggregate = "aggregate"
	StageEvaluate  = "evaluate"
)

// StageObserver is notified after each backend call.
type StageObserver func(stage string, elapsed time.Duration, err error)

// RunResult is returned by a successful aggregation.
type RunResult struct {
	Status string `json:"status"`
	Result Result `json:"-"`
}

// AggregationGate runs the aggregation and evaluation at most once per
// session, and only over a complete set of submissions.
type AggregationGate struct {
	registry *ParticipantRegistry
	params   SessionParameters
	backend  Aggregator
	policy   BackendFailurePolicy
	observe  StageObserver
	log      *slog.Logger

	mu      sync.RWMutex
	running bool
	result  Result
	failure error
}

// NewAggregationGate creates a gate over registry. The params are passed to
// the backend on aggregation.
func NewAggregationGate(registry *ParticipantRegistry, params SessionParameters, backend Aggregator,
	policy BackendFailurePolicy, log *slog.Logger) (*AggregationGate, error) {

	if backend == nil {
		return nil, fmt.Errorf("aggregation backend cannot be nil")
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("invalid backend failure policy %q", policy)
	}
	if log == nil {
		log = slog.Default()
	}

	return &AggregationGate{
		registry: registry,
		params:   params,
		backend:  backend,
		policy:   policy,
		log:      log,
	}, nil
}

// SetStageObserver sets a callback invoked after each backend call.
func (g *AggregationGate) SetStageObserver(observe StageObserver) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observe = observe
}

// Run closes the session for aggregation and runs the backend.
//
// The precondition check and flag flip happen under the registry lock; the
// backend calls run after the lock is released, on a snapshot of the
// submissions, so read-only queries are never blocked by them.
func (g *AggregationGate) Run() (*RunResult, error) {
	g.mu.Lock()
	input, err := g.registry.closeForAggregation()
	if err != nil {
		g.mu.Unlock()
		g.log.Info("aggregation refused", "kind", KindOf(err), "err", err)
		return nil, err
	}
	g.running = true
	g.failure = nil
	observe := g.observe
	g.mu.Unlock()

	g.log.Info("aggregation started", "participants", len(input.keyShares))

	result, err := g.execute(input, observe)
	if err != nil {
		// Reopen under g.mu so a retry cannot start before running is cleared.
		g.mu.Lock()
		if g.policy == RollbackOnFailure {
			g.registry.reopen()
		}
		g.running = false
		g.failure = err
		g.mu.Unlock()

		g.log.Error("aggregation failed", "policy", g.policy, "err", err)
		return nil, err
	}

	g.mu.Lock()
	g.running = false
	g.result = result
	g.mu.Unlock()

	g.log.Info("aggregation finished", "resultBytes", len(result))
	return &RunResult{Status: "ok", Result: result}, nil
}

func (g *AggregationGate) execute(input *aggregationInput, observe StageObserver) (Result, error) {
	start := time.Now()
	key, err := g.backend.AggregateShares(g.params, input.keyShares)
	if observe != nil {
		observe(StageAggregate, time.Since(start), err)
	}
	if err != nil {
		return nil, backendError(StageAggregate, err)
	}

	start = time.Now()
	result, err := g.backend.Evaluate(key, input.cipherTexts)
	if observe != nil {
		observe(StageEvaluate, time.Since(start), err)
	}
	if err != nil {
		return nil, backendError(StageEvaluate, err)
	}
	if result == nil {
		result = Result{}
	}

	return result, nil
}

// Result returns the evaluation output once the session is done.
func (g *AggregationGate) Result() (Result, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.result == nil {
		return nil, ErrNotReady
	}
	return bytes.Clone(g.result), nil
}

// Phase derives the session lifecycle phase.
func (g *AggregationGate) Phase() SessionPhase {
	completeness, flag, _ := g.registry.progress()

	g.mu.RLock()
	defer g.mu.RUnlock()

	switch {
	case g.result != nil:
		return PhaseDone
	case g.running:
		return PhaseRunning
	case flag == Run:
		return PhaseFailed
	case completeness.Complete:
		return PhaseReady
	default:
		return PhaseCollecting
	}
}

// LastFailure returns the error of the most recent failed backend attempt.
func (g *AggregationGate) LastFailure() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.failure
}
