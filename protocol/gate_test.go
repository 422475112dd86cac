package protocol

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setupTestGate(t *testing.T, capacity int, policy BackendFailurePolicy) (*AggregationGate, *ParticipantRegistry, *recordingAggregator) {
	t.Helper()
	registry := setupTestRegistry(t, capacity)
	backend := &recordingAggregator{}
	gate, err := NewAggregationGate(registry, SessionParameters{}, backend, policy, nil)
	require.NoError(t, err)
	return gate, registry, backend
}

func TestGateRefusesIncompleteSession(t *testing.T) {
	gate, registry, backend := setupTestGate(t, 3, RollbackOnFailure)

	_, err := gate.Run()
	requireKind(t, err, KindIncomplete)
	require.True(t, errors.Is(err, ErrIncomplete))

	_, err = registry.Register("Barry")
	require.NoError(t, err)
	require.NoError(t, registry.Submit(0, []byte("k"), []byte("c")))

	_, err = gate.Run()
	requireKind(t, err, KindIncomplete)
	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, 1, e.Submitted)
	require.Equal(t, 3, e.Required)

	aggregations, evaluations := backend.calls()
	require.Zero(t, aggregations)
	require.Zero(t, evaluations)
	require.Equal(t, NotRun, registry.Flag())
	require.Equal(t, PhaseCollecting, gate.Phase())
}

func TestGateRunsExactlyOnce(t *testing.T) {
	gate, registry, backend := setupTestGate(t, 2, RollbackOnFailure)
	fillRegistry(t, registry)
	require.Equal(t, PhaseReady, gate.Phase())

	_, err := gate.Result()
	requireKind(t, err, KindNotReady)

	res, err := gate.Run()
	require.NoError(t, err)
	require.Equal(t, "ok", res.Status)
	require.Equal(t, Result("c\x00|c\x01"), res.Result)
	require.Equal(t, [][]byte{{'k', 0}, {'k', 1}}, backend.lastKeyShares)

	_, err = gate.Run()
	requireKind(t, err, KindAlreadyRun)

	aggregations, evaluations := backend.calls()
	require.Equal(t, 1, aggregations)
	require.Equal(t, 1, evaluations)

	stored, err := gate.Result()
	require.NoError(t, err)
	require.Equal(t, res.Result, stored)
	require.Equal(t, PhaseDone, gate.Phase())
}

func TestGateConcurrentRunsProduceOneSuccess(t *testing.T) {
	gate, registry, backend := setupTestGate(t, 3, RollbackOnFailure)
	fillRegistry(t, registry)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, alreadyRun := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gate.Run()
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case KindOf(err) == KindAlreadyRun:
				alreadyRun++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, 15, alreadyRun)
	aggregations, _ := backend.calls()
	require.Equal(t, 1, aggregations)
}

func TestGateRollbackOnBackendFailure(t *testing.T) {
	gate, registry, backend := setupTestGate(t, 2, RollbackOnFailure)
	fillRegistry(t, registry)
	backend.setAggregateErr(errBackendBoom)

	_, err := gate.Run()
	requireKind(t, err, KindBackendFailure)
	require.ErrorIs(t, err, errBackendBoom)
	require.Equal(t, NotRun, registry.Flag())
	require.Equal(t, PhaseReady, gate.Phase())
	require.ErrorIs(t, gate.LastFailure(), ErrBackendFailure)

	backend.setAggregateErr(nil)
	res, err := gate.Run()
	require.NoError(t, err)
	require.Equal(t, "ok", res.Status)
	require.NoError(t, gate.LastFailure())
}

// flakyAggregator fails its first failures calls and records the gate phase
// seen from inside every backend call.
type flakyAggregator struct {
	gate     *AggregationGate
	failures int

	mu     sync.Mutex
	calls  int
	phases []SessionPhase
}

func (a *flakyAggregator) AggregateShares(params SessionParameters, keyShares [][]byte) (AggregatedKey, error) {
	phase := a.gate.Phase()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.phases = append(a.phases, phase)
	if a.calls <= a.failures {
		return nil, errBackendBoom
	}
	return AggregatedKey("key"), nil
}

func (a *flakyAggregator) Evaluate(key AggregatedKey, cipherTexts [][]byte) (Result, error) {
	return Result("result"), nil
}

func TestGateRetriesAfterRollbackSeeRunningPhase(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		registry := setupTestRegistry(t, 1)
		fillRegistry(t, registry)
		backend := &flakyAggregator{failures: 20}
		gate, err := NewAggregationGate(registry, SessionParameters{}, backend, RollbackOnFailure, nil)
		require.NoError(t, err)
		backend.gate = gate

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					_, err := gate.Run()
					if err == nil || KindOf(err) == KindAlreadyRun && gate.Phase() == PhaseDone {
						return
					}
				}
			}()
		}
		wg.Wait()

		require.Equal(t, PhaseDone, gate.Phase())
		backend.mu.Lock()
		require.Equal(t, 21, backend.calls)
		for _, phase := range backend.phases {
			require.Equal(t, PhaseRunning, phase)
		}
		backend.mu.Unlock()
	}
}

func TestGateSealOnBackendFailure(t *testing.T) {
	gate, registry, backend := setupTestGate(t, 2, SealOnFailure)
	fillRegistry(t, registry)
	backend.evaluateErr = errBackendBoom

	_, err := gate.Run()
	requireKind(t, err, KindBackendFailure)
	require.Equal(t, Run, registry.Flag())
	require.Equal(t, PhaseFailed, gate.Phase())

	backend.evaluateErr = nil
	_, err = gate.Run()
	requireKind(t, err, KindAlreadyRun)

	_, err = gate.Result()
	requireKind(t, err, KindNotReady)
}

func TestGateDoesNotHoldRegistryLockDuringBackend(t *testing.T) {
	gate, registry, backend := setupTestGate(t, 1, RollbackOnFailure)
	fillRegistry(t, registry)
	backend.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := gate.Run()
		done <- err
	}()

	require.Eventually(t, func() bool {
		return gate.Phase() == PhaseRunning
	}, time.Second, 5*time.Millisecond)

	// Read-only queries must answer while the backend is blocked.
	require.Equal(t, Completeness{Submitted: 1, Required: 1, Complete: true}, registry.Completeness())
	require.Len(t, registry.Participants(), 1)
	_, err := registry.Register("late")
	requireKind(t, err, KindCapacityExceeded)

	_, err = gate.Run()
	requireKind(t, err, KindAlreadyRun)

	close(backend.block)
	require.NoError(t, <-done)
	require.Equal(t, PhaseDone, gate.Phase())
}

func TestGateStageObserver(t *testing.T) {
	gate, registry, _ := setupTestGate(t, 1, RollbackOnFailure)
	fillRegistry(t, registry)

	var stages []string
	gate.SetStageObserver(func(stage string, elapsed time.Duration, err error) {
		require.NoError(t, err)
		require.GreaterOrEqual(t, elapsed, time.Duration(0))
		stages = append(stages, stage)
	})

	_, err := gate.Run()
	require.NoError(t, err)
	require.Equal(t, []string{StageAggregate, StageEvaluate}, stages)
}

func TestNewAggregationGateValidation(t *testing.T) {
	registry := setupTestRegistry(t, 1)

	_, err := NewAggregationGate(registry, SessionParameters{}, nil, RollbackOnFailure, nil)
	require.Error(t, err)

	_, err = NewAggregationGate(registry, SessionParameters{}, &recordingAggregator{}, "retry", nil)
	require.Error(t, err)
}
