package protocol

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingAggregator concatenates its inputs and remembers every call.
type recordingAggregator struct {
	mu            sync.Mutex
	aggregateErr  error
	evaluateErr   error
	aggregations  int
	evaluations   int
	lastKeyShares [][]byte
	lastCiphers   [][]byte
	block         chan struct{}
}

func (a *recordingAggregator) AggregateShares(params SessionParameters, keyShares [][]byte) (AggregatedKey, error) {
	if a.block != nil {
		<-a.block
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.aggregations++
	a.lastKeyShares = keyShares
	if a.aggregateErr != nil {
		return nil, a.aggregateErr
	}
	return AggregatedKey(append(params.Seed[:], bytes.Join(keyShares, nil)...)), nil
}

func (a *recordingAggregator) Evaluate(key AggregatedKey, cipherTexts [][]byte) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evaluations++
	a.lastCiphers = cipherTexts
	if a.evaluateErr != nil {
		return nil, a.evaluateErr
	}
	return Result(bytes.Join(cipherTexts, []byte{'|'})), nil
}

func (a *recordingAggregator) calls() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aggregations, a.evaluations
}

func (a *recordingAggregator) setAggregateErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.aggregateErr = err
}

var errBackendBoom = errors.New("boom")

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}

func setupTestRegistry(t *testing.T, capacity int) *ParticipantRegistry {
	t.Helper()
	registry, err := NewParticipantRegistry(capacity)
	require.NoError(t, err)
	return registry
}

// fillRegistry registers and submits every slot of the registry.
func fillRegistry(t *testing.T, registry *ParticipantRegistry) {
	t.Helper()
	for i := 0; i < registry.Capacity(); i++ {
		reg, err := registry.Register("p")
		require.NoError(t, err)
		require.NoError(t, registry.Submit(reg.ID, []byte{byte('k'), byte(i)}, []byte{byte('c'), byte(i)}))
	}
}
