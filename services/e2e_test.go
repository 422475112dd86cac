package services

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/flashbots/fhesession/crypto"
	"github.com/flashbots/fhesession/protocol"
	"github.com/flashbots/fhesession/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func startTestCoordinator(t *testing.T, participants int, backend protocol.Aggregator) *httptest.Server {
	t.Helper()

	session, err := protocol.NewSession(&protocol.SessionConfig{
		Participants:         participants,
		BackendFailurePolicy: protocol.RollbackOnFailure,
	}, backend)
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHTTPCoordinator(session, nil, nil).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestE2E_ThreeParticipantsFakeBackend(t *testing.T) {
	backend := testutil.NewFakeBackend()
	srv := startTestCoordinator(t, 3, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	orchestrator := NewOrchestrator(&OrchestratorConfig{
		CoordinatorURL: srv.URL,
		Participants: []ParticipantSpec{
			{Name: "Barry", Input: []uint64{1, 2, 3}},
			{Name: "Justin", Input: []uint64{4, 5, 6}},
			{Name: "Brian", Input: []uint64{7, 8, 9}},
		},
		PollInterval: 10 * time.Millisecond,
	}, backend, nil)

	result, keys, err := orchestrator.Execute(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 3)

	sum, err := testutil.DecodeVector(result)
	require.NoError(t, err)
	require.Equal(t, []uint64{12, 15, 18}, sum)

	client := orchestrator.Client()
	participants, err := client.Participants(ctx)
	require.NoError(t, err)
	require.Len(t, participants, 3)
	names := map[string]bool{}
	for i, p := range participants {
		require.Equal(t, protocol.ParticipantID(i), p.ID)
		require.Equal(t, "key_submitted", p.State)
		names[p.Name] = true
	}
	require.Equal(t, map[string]bool{"Barry": true, "Justin": true, "Brian": true}, names)

	err = client.Run(ctx)
	require.ErrorIs(t, err, protocol.ErrAlreadyRun)
}

func TestE2E_ClientErrorsCrossTheWire(t *testing.T) {
	backend := testutil.NewFakeBackend()
	srv := startTestCoordinator(t, 2, backend)
	client := NewCoordinatorClient(srv.URL + "/")
	ctx := context.Background()

	err := client.Run(ctx)
	require.ErrorIs(t, err, protocol.ErrIncomplete)
	var incomplete *protocol.Error
	require.True(t, errors.As(err, &incomplete))
	require.Equal(t, 0, incomplete.Submitted)
	require.Equal(t, 2, incomplete.Required)

	_, err = client.Result(ctx)
	require.ErrorIs(t, err, protocol.ErrNotReady)

	_, err = client.Submit(ctx, &protocol.Submission{ParticipantID: 0, KeyShare: []byte("k"), CipherText: []byte("c")})
	require.ErrorIs(t, err, protocol.ErrUnknownParticipant)

	reg, err := client.Register(ctx, "Barry")
	require.NoError(t, err)
	require.Equal(t, protocol.ParticipantID(0), reg.ID)

	_, err = client.Submit(ctx, &protocol.Submission{ParticipantID: reg.ID, KeyShare: []byte("k"), CipherText: testutil.EncodeVector([]uint64{1})})
	require.NoError(t, err)

	_, err = client.Submit(ctx, &protocol.Submission{ParticipantID: reg.ID, KeyShare: []byte("x"), CipherText: []byte("y")})
	require.ErrorIs(t, err, protocol.ErrAlreadyKeySubmitted)

	status, err := client.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, status.Submitted)
	require.Equal(t, protocol.PhaseCollecting, status.Phase)
}

func TestE2E_ConcurrentRegistrationOverHTTP(t *testing.T) {
	const n = 16
	srv := startTestCoordinator(t, n, testutil.NewFakeBackend())
	client := NewCoordinatorClient(srv.URL)

	var wg sync.WaitGroup
	ids := make(chan protocol.ParticipantID, 2*n)
	rejected := make(chan error, 2*n)
	for i := 0; i < 2*n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg, err := client.Register(context.Background(), "p")
			if err != nil {
				rejected <- err
				return
			}
			ids <- reg.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(rejected)

	seen := make(map[protocol.ParticipantID]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		require.Less(t, int(id), n)
		seen[id] = true
	}
	require.Len(t, seen, n)

	for err := range rejected {
		require.ErrorIs(t, err, protocol.ErrCapacityExceeded)
	}
}

func TestE2E_WaitForResultHonoursContext(t *testing.T) {
	srv := startTestCoordinator(t, 1, testutil.NewFakeBackend())
	client := NewCoordinatorClient(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := WaitForResult(ctx, client, 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestE2E_LatticeBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping lattice end-to-end test in short mode")
	}

	backend, err := crypto.NewLatticeBackend(crypto.DefaultParametersLiteral())
	require.NoError(t, err)
	srv := startTestCoordinator(t, 3, backend)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	specs := make([]ParticipantSpec, len(DefaultParticipantNames))
	for i, name := range DefaultParticipantNames {
		specs[i] = ParticipantSpec{Name: name, Input: []uint64{uint64(i + 1), 100}}
	}

	result, keys, err := NewOrchestrator(&OrchestratorConfig{
		CoordinatorURL: srv.URL,
		Participants:   specs,
		PollInterval:   10 * time.Millisecond,
	}, backend, nil).Execute(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	require.NotEmpty(t, result)
}
