// Command worker retries credential provisioning tasks queued during bulk
// ingestion.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/config"
	"github.com/dharsanguruparan/uniz-user-service/internal/credentials"
	"github.com/dharsanguruparan/uniz-user-service/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	cfg.ConfigureLogging()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("parse redis url: %v", err)
	}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.IngestWorkers,
		Logger:      logrus.WithField("component", "asynq"),
	})
	processor := worker.NewProcessor(credentials.NewClient(cfg.AuthServiceURL, cfg.ProvisionTimeout, nil))
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	if err := server.Run(mux); err != nil {
		logrus.WithError(err).Error("worker stopped")
		os.Exit(1)
	}
}
