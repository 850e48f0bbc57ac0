// Command server runs the user profile HTTP API and the in-process bulk
// ingestion pool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/api"
	"github.com/dharsanguruparan/uniz-user-service/internal/auth"
	"github.com/dharsanguruparan/uniz-user-service/internal/cache"
	"github.com/dharsanguruparan/uniz-user-service/internal/config"
	"github.com/dharsanguruparan/uniz-user-service/internal/credentials"
	"github.com/dharsanguruparan/uniz-user-service/internal/database"
	"github.com/dharsanguruparan/uniz-user-service/internal/ingest"
	"github.com/dharsanguruparan/uniz-user-service/internal/processing"
	"github.com/dharsanguruparan/uniz-user-service/internal/profile"
	"github.com/dharsanguruparan/uniz-user-service/internal/queue"
	"github.com/dharsanguruparan/uniz-user-service/internal/repository"
	"github.com/dharsanguruparan/uniz-user-service/internal/s3storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	cfg.ConfigureLogging()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logrus.Fatalf("migrate database: %v", err)
	}

	var (
		store   cache.Store
		retries ingest.RetryQueue
	)
	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	switch {
	case err == nil:
		defer redisClient.Close()
		store = cache.NewRedisStore(redisClient)
		redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			logrus.Fatalf("parse redis url: %v", err)
		}
		queueClient := asynq.NewClient(redisOpt)
		defer queueClient.Close()
		retries = queue.NewEnqueuer(queueClient)
	case cfg.IsProduction():
		logrus.Fatalf("connect redis: %v", err)
	default:
		logrus.WithError(err).Warn("redis unavailable, using in-memory store without provisioning retries")
		mem := cache.NewMemoryStore()
		mem.StartSweeper(ctx, time.Minute)
		store = mem
	}

	var archiver ingest.Archiver
	if cfg.ArchiveEnabled() {
		objects, err := s3storage.New(cfg)
		if err != nil {
			logrus.Fatalf("init storage: %v", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			logrus.Fatalf("ensure bucket: %v", err)
		}
		archiver = objects
	}

	students := repository.NewStudentRepository(pool)
	profiles := profile.NewService(
		students,
		store,
		profile.NewAcademicsClient(cfg.GatewayURL, cfg.EnrichTimeout, nil),
		cfg.ProfileCacheTTL,
	)

	tracker := ingest.NewTracker(store, cfg.ProgressTTL)
	runner := ingest.NewRunner(ingest.RunnerConfig{
		Profiles:    profiles,
		Provisioner: credentials.NewClient(cfg.AuthServiceURL, cfg.ProvisionTimeout, nil),
		Retries:     retries,
		Tracker:     tracker,
		ChunkSize:   cfg.IngestChunkSize,
	})
	workers := processing.New(cfg.IngestWorkers)
	workers.Start(ctx)

	srv := api.New(cfg, api.Deps{
		Auth:     auth.NewAuthenticator(auth.NewManager(cfg.JWTSecret), cfg.InternalSecret),
		Profiles: profiles,
		Staff:    repository.NewStaffRepository(pool),
		Banners:  repository.NewBannerRepository(pool),
		Ingest:   ingest.NewService(runner, tracker, workers, archiver),
	})
	if err := srv.Run(ctx); err != nil {
		logrus.WithError(err).Error("server stopped")
		stop()
		workers.Wait()
		os.Exit(1)
	}
	workers.Wait()
}
