package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flashbots/fhesession/protocol"
	"golang.org/x/sync/errgroup"
)

// DefaultParticipantNames is the default three-party group.
var DefaultParticipantNames = []string{"Barry", "Justin", "Brian"}

// Participant runs the participant side of a session against a coordinator.
// Its key material never leaves the process.
type Participant struct {
	name   string
	input  []uint64
	client *CoordinatorClient
	keys   protocol.KeyShareGenerator
	log    *slog.Logger
}

// JoinResult is what a participant keeps after submitting.
type JoinResult struct {
	ID  protocol.ParticipantID
	Key protocol.ParticipantKey
}

// NewParticipant creates a participant that will contribute input.
func NewParticipant(name string, input []uint64, client *CoordinatorClient, keys protocol.KeyShareGenerator, log *slog.Logger) *Participant {
	if log == nil {
		log = slog.Default()
	}
	return &Participant{
		name:   name,
		input:  input,
		client: client,
		keys:   keys,
		log:    log.With("participant", name),
	}
}

// Join fetches the parameters, registers, derives the key share and submits
// it together with the encrypted input.
func (p *Participant) Join(ctx context.Context) (*JoinResult, error) {
	params, err := p.client.Parameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch parameters: %w", err)
	}

	status, err := p.client.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}

	reg, err := p.client.Register(ctx, p.name)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	p.log.Info("registered", "participantID", reg.ID, "seed", params.Seed.String())

	key, err := p.keys.GenerateKeyShare(params, reg.ID, status.Required)
	if err != nil {
		return nil, fmt.Errorf("generate key share: %w", err)
	}

	cipherText, err := key.Encrypt(p.input)
	if err != nil {
		return nil, fmt.Errorf("encrypt input: %w", err)
	}

	if _, err := p.client.Submit(ctx, &protocol.Submission{
		ParticipantID: reg.ID,
		KeyShare:      key.KeyShare(),
		CipherText:    cipherText,
	}); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	p.log.Info("submitted key share", "participantID", reg.ID, "cipherTextBytes", len(cipherText))

	return &JoinResult{ID: reg.ID, Key: key}, nil
}

// WaitForResult polls the coordinator until the evaluation result is
// available, a different error is returned, or ctx is done.
func WaitForResult(ctx context.Context, client *CoordinatorClient, interval time.Duration) (protocol.Result, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := client.Result(ctx)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, protocol.ErrNotReady) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ParticipantSpec describes one local participant.
type ParticipantSpec struct {
	Name  string
	Input []uint64
}

// OrchestratorConfig contains the configuration of a local run.
type OrchestratorConfig struct {
	CoordinatorURL string
	Participants   []ParticipantSpec
	PollInterval   time.Duration
}

// Orchestrator drives a group of local participants through a whole session:
// every participant joins concurrently, then the aggregation is triggered and
// the result fetched.
type Orchestrator struct {
	config *OrchestratorConfig
	client *CoordinatorClient
	keys   protocol.KeyShareGenerator
	log    *slog.Logger
}

// NewOrchestrator creates an orchestrator using keys for every participant.
func NewOrchestrator(config *OrchestratorConfig, keys protocol.KeyShareGenerator, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 100 * time.Millisecond
	}
	return &Orchestrator{
		config: config,
		client: NewCoordinatorClient(config.CoordinatorURL),
		keys:   keys,
		log:    log,
	}
}

// Client returns the coordinator client used by the orchestrator.
func (o *Orchestrator) Client() *CoordinatorClient {
	return o.client
}

// Execute runs the session end to end and returns the evaluation result
// together with the participants' local keys, indexed by participant id.
func (o *Orchestrator) Execute(ctx context.Context) (protocol.Result, []protocol.ParticipantKey, error) {
	joined := make([]*JoinResult, len(o.config.Participants))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range o.config.Participants {
		i, spec := i, spec
		participant := NewParticipant(spec.Name, spec.Input, o.client, o.keys, o.log)
		g.Go(func() error {
			res, err := participant.Join(gctx)
			if err != nil {
				return fmt.Errorf("participant %s: %w", spec.Name, err)
			}
			joined[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	keys := make([]protocol.ParticipantKey, len(joined))
	for _, res := range joined {
		if uint64(res.ID) >= uint64(len(keys)) {
			return nil, nil, fmt.Errorf("participant id %d is outside the group", res.ID)
		}
		keys[res.ID] = res.Key
	}

	o.log.Info("all participants submitted, triggering aggregation", "participants", len(joined))
	if err := o.client.Run(ctx); err != nil {
		return nil, nil, fmt.Errorf("run: %w", err)
	}

	result, err := WaitForResult(ctx, o.client, o.config.PollInterval)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch result: %w", err)
	}

	o.log.Info("session finished", "resultBytes", len(result))
	return result, keys, nil
}
