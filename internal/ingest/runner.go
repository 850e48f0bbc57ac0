package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/dharsanguruparan/uniz-user-service/internal/credentials"
	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

// DefaultChunkSize is the number of rows processed concurrently.
const DefaultChunkSize = 5

// ProfileGateway stores uploaded rows.
type ProfileGateway interface {
	UpsertUploadRow(ctx context.Context, row model.UploadRow) error
}

// Provisioner creates login credentials for stored rows.
type Provisioner interface {
	Provision(ctx context.Context, req model.CredentialRequest) (credentials.Outcome, error)
}

// RetryQueue defers failed provisioning to a background worker.
type RetryQueue interface {
	EnqueueProvision(ctx context.Context, req model.CredentialRequest) error
}

// RunnerConfig wires a Runner's collaborators. Retries may be nil.
type RunnerConfig struct {
	Profiles    ProfileGateway
	Provisioner Provisioner
	Retries     RetryQueue
	Tracker     *Tracker
	Aliases     Aliases
	ChunkSize   int
}

// Runner processes parsed upload rows in sequential chunks whose rows run
// concurrently, publishing progress after every chunk.
type Runner struct {
	profiles    ProfileGateway
	provisioner Provisioner
	retries     RetryQueue
	tracker     *Tracker
	aliases     Aliases
	chunkSize   int
	now         func() time.Time
	log         *logrus.Entry
}

// NewRunner builds a Runner from cfg.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Aliases == nil {
		cfg.Aliases = DefaultAliases
	}
	return &Runner{
		profiles:    cfg.Profiles,
		provisioner: cfg.Provisioner,
		retries:     cfg.Retries,
		tracker:     cfg.Tracker,
		aliases:     cfg.Aliases,
		chunkSize:   cfg.ChunkSize,
		now:         time.Now,
		log:         logrus.WithField("component", "ingest"),
	}
}

// ErrRunnerFault is returned when a row handler panicked mid-chunk.
var ErrRunnerFault = errors.New("ingestion aborted")

type rowOutcome struct {
	ok  bool
	err *RowError
}

// Run processes rows for identity and returns the last published snapshot.
func (r *Runner) Run(ctx context.Context, identity string, rows []Row) (Progress, error) {
	total := len(rows)
	start := r.now()
	log := r.log.WithFields(logrus.Fields{"identity": identity, "total": total})
	log.Info("ingestion started")

	var (
		success, fail int
		errs          []RowError
		last          = Seed(total)
	)
	for begin := 0; begin < total; begin += r.chunkSize {
		end := begin + r.chunkSize
		if end > total {
			end = total
		}
		outcomes := make([]rowOutcome, end-begin)
		var wg conc.WaitGroup
		for i := begin; i < end; i++ {
			i := i
			wg.Go(func() {
				outcomes[i-begin] = r.processRow(ctx, i, rows[i])
			})
		}
		if rec := wg.WaitAndRecover(); rec != nil {
			log.WithField("panic", rec.String()).Error("ingestion chunk panicked")
			failed := Failure(last, "ingestion aborted unexpectedly")
			r.publish(ctx, identity, failed, log)
			return failed, fmt.Errorf("%w: %v", ErrRunnerFault, rec.Value)
		}
		for _, o := range outcomes {
			if o.ok {
				success++
				continue
			}
			fail++
			if o.err != nil {
				errs = append(errs, *o.err)
			}
		}
		last = Snapshot(end, total, r.now().Sub(start), success, fail, errs)
		r.publish(ctx, identity, last, log)
	}
	log.WithFields(logrus.Fields{"success": success, "fail": fail}).Info("ingestion finished")
	return last, nil
}

func (r *Runner) processRow(ctx context.Context, index int, raw Row) rowOutcome {
	rowNum := index + HeaderOffset
	row := Normalize(raw, r.aliases)
	if row.ID == "" {
		return rowOutcome{err: &RowError{Row: rowNum, Error: MissingIDMessage}}
	}
	if err := r.profiles.UpsertUploadRow(ctx, row); err != nil {
		return rowOutcome{err: &RowError{Row: rowNum, ID: row.ID, Error: err.Error()}}
	}
	r.provision(ctx, row)
	return rowOutcome{ok: true}
}

// provision never changes the row outcome, which the upsert already decided.
func (r *Runner) provision(ctx context.Context, row model.UploadRow) {
	req := model.NewStudentCredential(row)
	outcome, err := r.provisioner.Provision(ctx, req)
	if outcome != credentials.Failed {
		return
	}
	log := r.log.WithField("username", row.ID)
	log.WithError(err).Warn("credential provisioning failed")
	if r.retries == nil {
		return
	}
	if err := r.retries.EnqueueProvision(ctx, req); err != nil {
		log.WithError(err).Error("enqueue provisioning retry failed")
	}
}

func (r *Runner) publish(ctx context.Context, identity string, p Progress, log *logrus.Entry) {
	if err := r.tracker.Publish(ctx, identity, p); err != nil {
		log.WithError(err).Error("progress publish failed")
	}
}
