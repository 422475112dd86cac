package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flashbots/fhesession/metrics"
	"github.com/flashbots/fhesession/protocol"
	"github.com/flashbots/fhesession/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func setupTestCoordinator(t *testing.T, participants int, policy protocol.BackendFailurePolicy) (*testutil.FakeBackend, chi.Router) {
	t.Helper()

	backend := testutil.NewFakeBackend()
	session, err := protocol.NewSession(&protocol.SessionConfig{
		Participants:         participants,
		BackendFailurePolicy: policy,
	}, backend)
	require.NoError(t, err)

	metricsSrv, err := metrics.New(metrics.DefaultNamespace, "")
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHTTPCoordinator(session, metrics.NewSessionMetrics(metricsSrv), nil).RegisterRoutes(r)
	return backend, r
}

func doRequest(t *testing.T, router http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeFail(t *testing.T, w *httptest.ResponseRecorder) FailResponse {
	t.Helper()
	var fail FailResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&fail))
	require.Equal(t, StatusFail, fail.Status)
	return fail
}

func submitBody(t *testing.T, id protocol.ParticipantID, keyShare, cipherText []byte) string {
	t.Helper()
	body, err := json.Marshal(&protocol.Submission{ParticipantID: id, KeyShare: keyShare, CipherText: cipherText})
	require.NoError(t, err)
	return string(body)
}

func TestCoordinator_Parameters(t *testing.T) {
	_, router := setupTestCoordinator(t, 3, protocol.RollbackOnFailure)

	w := doRequest(t, router, "GET", "/parameters", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var first protocol.SessionParameters
	require.NoError(t, json.NewDecoder(w.Body).Decode(&first))

	w = doRequest(t, router, "GET", "/parameters", "", "")
	var second protocol.SessionParameters
	require.NoError(t, json.NewDecoder(w.Body).Decode(&second))
	require.Equal(t, first, second)
	require.NotEqual(t, protocol.Seed{}, first.Seed)
}

func TestCoordinator_RegisterPlainAndJSON(t *testing.T) {
	_, router := setupTestCoordinator(t, 3, protocol.RollbackOnFailure)

	w := doRequest(t, router, "POST", "/register", "text/plain", "Barry\n")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"name":"Barry","participant_id":0}`, w.Body.String())

	w = doRequest(t, router, "POST", "/register", "application/json; charset=utf-8", `{"name":"Justin"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"name":"Justin","participant_id":1}`, w.Body.String())

	w = doRequest(t, router, "POST", "/register", "application/json", `{"name":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, KindMalformedRequest, decodeFail(t, w).Kind)

	w = doRequest(t, router, "POST", "/register", "", "Brian")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, "POST", "/register", "", "Dave")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, protocol.KindCapacityExceeded, decodeFail(t, w).Kind)
}

func TestCoordinator_SubmitErrors(t *testing.T) {
	_, router := setupTestCoordinator(t, 2, protocol.RollbackOnFailure)
	doRequest(t, router, "POST", "/register", "", "Barry")

	w := doRequest(t, router, "POST", "/submit", "application/json", "not json")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, "POST", "/submit", "application/json", submitBody(t, 5, []byte("k"), []byte("c")))
	require.Equal(t, http.StatusNotFound, w.Code)
	fail := decodeFail(t, w)
	require.Equal(t, protocol.KindUnknownParticipant, fail.Kind)
	require.Contains(t, fail.Reason, "5 hasn't registered yet")

	w = doRequest(t, router, "POST", "/submit", "application/json", submitBody(t, 0, nil, []byte("c")))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, protocol.KindInvalidSubmission, decodeFail(t, w).Kind)

	w = doRequest(t, router, "POST", "/submit", "application/json", submitBody(t, 0, []byte("k"), testutil.EncodeVector([]uint64{1})))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok","participant_id":0}`, w.Body.String())

	w = doRequest(t, router, "POST", "/submit", "application/json", submitBody(t, 0, []byte("k2"), []byte("c2")))
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, protocol.KindAlreadyKeySubmitted, decodeFail(t, w).Kind)
}

func TestCoordinator_RunLifecycle(t *testing.T) {
	backend, router := setupTestCoordinator(t, 2, protocol.RollbackOnFailure)

	w := doRequest(t, router, "POST", "/run", "", "")
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "incomplete", body["kind"])
	require.Contains(t, body, "submitted")
	require.EqualValues(t, 0, body["submitted"])
	require.EqualValues(t, 2, body["required"])
	require.Zero(t, backend.Aggregations.Load())

	w = doRequest(t, router, "GET", "/result", "", "")
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	fail := decodeFail(t, w)
	require.Equal(t, protocol.KindNotReady, fail.Kind)
	require.Nil(t, fail.Submitted)

	for i, input := range [][]uint64{{1, 2}, {10, 20}} {
		doRequest(t, router, "POST", "/register", "", fmt.Sprintf("p%d", i))
		w = doRequest(t, router, "POST", "/submit", "application/json",
			submitBody(t, protocol.ParticipantID(i), []byte("k"), testutil.EncodeVector(input)))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = doRequest(t, router, "GET", "/status", "", "")
	var status protocol.SessionStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	require.Equal(t, protocol.PhaseReady, status.Phase)

	w = doRequest(t, router, "POST", "/run", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = doRequest(t, router, "POST", "/run", "", "")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, protocol.KindAlreadyRun, decodeFail(t, w).Kind)
	require.EqualValues(t, 1, backend.Aggregations.Load())

	w = doRequest(t, router, "GET", "/result", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var result ResultResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	sum, err := testutil.DecodeVector(result.Result)
	require.NoError(t, err)
	require.Equal(t, []uint64{11, 22}, sum)

	w = doRequest(t, router, "GET", "/participants", "", "")
	var participants []protocol.ParticipantInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&participants))
	require.Len(t, participants, 2)
	require.Equal(t, "key_submitted", participants[1].State)
}

func TestCoordinator_BackendFailure(t *testing.T) {
	backend, router := setupTestCoordinator(t, 1, protocol.RollbackOnFailure)
	doRequest(t, router, "POST", "/register", "", "Barry")
	doRequest(t, router, "POST", "/submit", "application/json", submitBody(t, 0, []byte("k"), testutil.EncodeVector([]uint64{7})))

	backend.FailEvaluate.Store(true)
	w := doRequest(t, router, "POST", "/run", "", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	fail := decodeFail(t, w)
	require.Equal(t, protocol.KindBackendFailure, fail.Kind)
	require.Contains(t, fail.Reason, testutil.ErrInjected.Error())

	backend.FailEvaluate.Store(false)
	w = doRequest(t, router, "POST", "/run", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 2, backend.Aggregations.Load())
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[protocol.ErrorKind]int{
		protocol.KindCapacityExceeded:    http.StatusConflict,
		protocol.KindUnknownParticipant:  http.StatusNotFound,
		protocol.KindAlreadyKeySubmitted: http.StatusConflict,
		protocol.KindInvalidSubmission:   http.StatusBadRequest,
		protocol.KindIncomplete:          http.StatusPreconditionFailed,
		protocol.KindAlreadyRun:          http.StatusConflict,
		protocol.KindBackendFailure:      http.StatusBadGateway,
		protocol.KindNotReady:            http.StatusPreconditionFailed,
		KindMalformedRequest:             http.StatusBadRequest,
		"something_else":                 http.StatusInternalServerError,
	}
	for kind, code := range cases {
		require.Equal(t, code, httpStatus(kind), kind)
	}
}
