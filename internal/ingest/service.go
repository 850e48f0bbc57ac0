package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/processing"
)

// ArchiveTimeout bounds the best-effort upload archive that precedes a run.
const ArchiveTimeout = 30 * time.Second

// ErrQueueFull is returned when the processing pool cannot accept the job.
var ErrQueueFull = errors.New("ingestion queue is full, retry later")

// Archiver keeps a copy of each accepted upload.
type Archiver interface {
	ArchiveUpload(ctx context.Context, identity, filename string, data []byte) (string, error)
}

// Service accepts uploads and answers progress queries.
type Service struct {
	runner         *Runner
	tracker        *Tracker
	pool           *processing.Processor
	archiver       Archiver
	// archiveTimeout caps each ArchiveUpload call.
	archiveTimeout time.Duration
	log            *logrus.Entry
}

// NewService builds a Service. archiver may be nil.
func NewService(runner *Runner, tracker *Tracker, pool *processing.Processor, archiver Archiver) *Service {
	return &Service{
		runner:         runner,
		tracker:        tracker,
		pool:           pool,
		archiver:       archiver,
		archiveTimeout: ArchiveTimeout,
		log:            logrus.WithField("component", "ingest"),
	}
}

// Submit parses the upload, seeds progress for identity and queues the run.
// It returns the row count without waiting for any row to be processed.
func (s *Service) Submit(ctx context.Context, identity, filename string, data []byte) (int, error) {
	rows, err := ParseSheet(filename, data)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, ErrNoRows
	}
	total := len(rows)
	seed := Seed(total)
	if err := s.tracker.Publish(ctx, identity, seed); err != nil {
		return 0, fmt.Errorf("seed progress: %w", err)
	}

	jobID := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{"job": jobID, "identity": identity})
	job := processing.Job{
		ID: jobID,
		Run: func(ctx context.Context) {
			s.archive(ctx, identity, filename, data, log)
			if _, err := s.runner.Run(ctx, identity, rows); err != nil {
				log.WithError(err).Error("ingestion failed")
			}
		},
		OnDrop: func(reason string) {
			// The submitting request may be gone by now.
			if err := s.tracker.Publish(context.Background(), identity, Failure(seed, reason)); err != nil {
				log.WithError(err).Error("publish dropped job status failed")
			}
		},
	}
	if !s.pool.Submit(job) {
		return 0, ErrQueueFull
	}
	log.WithField("total", total).Info("upload accepted")
	return total, nil
}

// Progress returns the latest snapshot for identity, or the idle sentinel.
func (s *Service) Progress(ctx context.Context, identity string) (Progress, error) {
	p, ok, err := s.tracker.Load(ctx, identity)
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		return Idle(), nil
	}
	return p, nil
}

func (s *Service) archive(ctx context.Context, identity, filename string, data []byte, log *logrus.Entry) {
	if s.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.archiveTimeout)
	defer cancel()
	key, err := s.archiver.ArchiveUpload(ctx, identity, filename, data)
	if err != nil {
		log.WithError(err).Warn("upload archive failed")
		return
	}
	log.WithField("object", key).Debug("upload archived")
}
