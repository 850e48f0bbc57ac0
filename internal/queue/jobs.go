// Package queue defines the background tasks handed to the asynq worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

const (
	// ProvisionCredentialTask retries a student login that the auth service
	// failed to create during ingestion.
	ProvisionCredentialTask = "credential:provision"

	maxProvisionRetries = 5
)

// ProvisionPayload is serialized into the task payload. The password is
// never queued; the worker derives it from the username.
type ProvisionPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Request rebuilds the credential request the payload stands for.
func (p ProvisionPayload) Request() model.CredentialRequest {
	return model.CredentialRequest{
		Username: p.Username,
		Password: p.Username,
		Role:     p.Role,
		Email:    p.Email,
	}
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules provisioning retries.
type Enqueuer struct {
	client taskEnqueuer
}

// NewEnqueuer wraps an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueProvision schedules a credential provisioning retry.
func (e *Enqueuer) EnqueueProvision(ctx context.Context, req model.CredentialRequest) error {
	data, err := json.Marshal(ProvisionPayload{Username: req.Username, Email: req.Email, Role: req.Role})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ProvisionCredentialTask, data)
	if _, err := e.client.EnqueueContext(ctx, task, asynq.MaxRetry(maxProvisionRetries)); err != nil {
		return fmt.Errorf("enqueue provision task: %w", err)
	}
	return nil
}
