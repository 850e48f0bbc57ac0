// Package worker handles background tasks pulled from the asynq queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/credentials"
	"github.com/dharsanguruparan/uniz-user-service/internal/model"
	"github.com/dharsanguruparan/uniz-user-service/internal/queue"
)

// Provisioner creates student credentials.
type Provisioner interface {
	Provision(ctx context.Context, req model.CredentialRequest) (credentials.Outcome, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	provisioner Provisioner
	log         *logrus.Entry
}

// NewProcessor constructs a worker processor.
func NewProcessor(provisioner Provisioner) *Processor {
	return &Processor{provisioner: provisioner, log: logrus.WithField("component", "worker")}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ProvisionCredentialTask, p.handleProvision)
	return mux
}

func (p *Processor) handleProvision(ctx context.Context, task *asynq.Task) error {
	var payload queue.ProvisionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}
	log := p.log.WithField("username", payload.Username)
	outcome, err := p.provisioner.Provision(ctx, payload.Request())
	if outcome == credentials.Failed {
		log.WithError(err).Warn("credential provisioning retry failed")
		if err == nil {
			err = fmt.Errorf("provision %s failed", payload.Username)
		}
		return err
	}
	log.WithField("outcome", outcome).Info("credential provisioned")
	return nil
}
