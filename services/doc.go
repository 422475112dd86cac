/*
# Session Services Package

The services package exposes a protocol.Session over HTTP and provides the
participant side that talks to it.

## Components

1. **HTTPCoordinator** (`coordinator.go`)
  - Wraps `protocol.Session`
  - Maps session error kinds to HTTP status codes
  - Records registrations, submissions, runs and backend stage durations
    when given `metrics.SessionMetrics`
  - Endpoints:
  - `GET /parameters` - Session seed
  - `POST /register` - Register a name (plain text or `{"name": ...}`)
  - `POST /submit` - Submit `{participant_id, key_share, cipher_text}`
  - `POST /run` - Aggregate and evaluate
  - `GET /result` - Evaluation output, `not_ready` until a run succeeded
  - `GET /status` - Phase and progress
  - `GET /participants` - Registered participants

2. **CoordinatorClient** (`client.go`)
  - Typed client for the endpoints above
  - Failed responses are decoded back into `*protocol.Error`, so
    `errors.Is(err, protocol.ErrAlreadyRun)` works across the wire

3. **Participant** (`orchestrator.go`)
  - Fetches the seed, registers, derives its key share locally and submits it
    with its encrypted input. The secret key stays in the process.

4. **Orchestrator** (`orchestrator.go`)
  - Joins a group of local participants concurrently, triggers the run and
    waits for the result

## Errors

Every rejection is returned as

	{"status": "fail", "kind": "incomplete", "reason": "...", "submitted": 1, "required": 3}

| Kind                                              | HTTP status |
|---------------------------------------------------|-------------|
| malformed_request, invalid_submission             | 400         |
| unknown_participant                               | 404         |
| capacity_exceeded, already_key_submitted, already_run | 409     |
| incomplete, not_ready                             | 412         |
| backend_failure                                   | 502         |

## Usage

	session, _ := protocol.NewSession(protocol.DefaultSessionConfig(), backend)
	r := chi.NewRouter()
	services.NewHTTPCoordinator(session, nil, log).RegisterRoutes(r)

	orchestrator := services.NewOrchestrator(&services.OrchestratorConfig{
	    CoordinatorURL: "http://localhost:8080",
	    Participants:   []services.ParticipantSpec{{Name: "Barry", Input: []uint64{1, 2}}},
	}, backend, log)
	result, keys, err := orchestrator.Execute(ctx)
*/
package services
