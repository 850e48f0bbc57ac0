// Package credentials provisions student logins in the auth service.
package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

// Outcome classifies a provisioning attempt.
type Outcome string

const (
	Created       Outcome = "created"
	AlreadyExists Outcome = "already_exists"
	Failed        Outcome = "failed"
)

const signupPath = "/api/v1/auth/signup"

// Client talks to the auth service signup endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient builds a Client. timeout bounds every Provision call.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, timeout: timeout}
}

// Provision asks the auth service to create the credential. A conflict is
// reported as AlreadyExists with a nil error.
func (c *Client) Provision(ctx context.Context, req model.CredentialRequest) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return Failed, fmt.Errorf("encode credential: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+signupPath, bytes.NewReader(body))
	if err != nil {
		return Failed, fmt.Errorf("build signup request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Failed, fmt.Errorf("signup %s: %w", req.Username, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode == http.StatusConflict:
		return AlreadyExists, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Created, nil
	default:
		return Failed, fmt.Errorf("signup %s: unexpected status %d", req.Username, resp.StatusCode)
	}
}
