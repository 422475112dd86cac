package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flashbots/fhesession/protocol"
)

// CoordinatorClient talks to an HTTPCoordinator. Rejections are returned as
// *protocol.Error, so errors.Is against the protocol sentinels works on the
// participant side as well.
type CoordinatorClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoordinatorClient creates a client for the coordinator at baseURL.
func NewCoordinatorClient(baseURL string) *CoordinatorClient {
	return &CoordinatorClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *CoordinatorClient) WithHTTPClient(client *http.Client) *CoordinatorClient {
	c.httpClient = client
	return c
}

// Parameters fetches the session parameters.
func (c *CoordinatorClient) Parameters(ctx context.Context) (protocol.SessionParameters, error) {
	var params protocol.SessionParameters
	err := c.do(ctx, http.MethodGet, "/parameters", "", nil, &params)
	return params, err
}

// Register registers name and returns the assigned identifier.
func (c *CoordinatorClient) Register(ctx context.Context, name string) (*protocol.Registration, error) {
	body, err := json.Marshal(&RegisterRequest{Name: name})
	if err != nil {
		return nil, err
	}

	var reg protocol.Registration
	if err := c.do(ctx, http.MethodPost, "/register", "application/json", body, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Submit sends a key share and ciphertext.
func (c *CoordinatorClient) Submit(ctx context.Context, submission *protocol.Submission) (*SubmitResponse, error) {
	body, err := json.Marshal(submission)
	if err != nil {
		return nil, err
	}

	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/submit", "application/json", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Run triggers the aggregation.
func (c *CoordinatorClient) Run(ctx context.Context) error {
	var resp RunResponse
	return c.do(ctx, http.MethodPost, "/run", "", nil, &resp)
}

// Status fetches the session status.
func (c *CoordinatorClient) Status(ctx context.Context) (*protocol.SessionStatus, error) {
	var status protocol.SessionStatus
	if err := c.do(ctx, http.MethodGet, "/status", "", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Participants lists the registered participants.
func (c *CoordinatorClient) Participants(ctx context.Context) ([]protocol.ParticipantInfo, error) {
	var participants []protocol.ParticipantInfo
	err := c.do(ctx, http.MethodGet, "/participants", "", nil, &participants)
	return participants, err
}

// Result fetches the evaluation output. It fails with protocol.ErrNotReady
// until the aggregation succeeded.
func (c *CoordinatorClient) Result(ctx context.Context) (protocol.Result, error) {
	var resp ResultResponse
	if err := c.do(ctx, http.MethodGet, "/result", "", nil, &resp); err != nil {
		return nil, err
	}
	return protocol.Result(resp.Result), nil
}

func (c *CoordinatorClient) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var fail FailResponse
		if err := json.Unmarshal(respBody, &fail); err == nil && fail.Status == StatusFail {
			return fail.Err()
		}
		return fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}
