// Package processing runs detached background jobs on a bounded pool of
// worker goroutines. Jobs outlive the request that submitted them.
package processing

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Job is one unit of background work. OnDrop is called instead of Run when
// the job never gets a worker (full queue or shutdown).
type Job struct {
	ID     string
	Run    func(ctx context.Context)
	OnDrop func(reason string)
}

// Processor consumes Jobs with a fixed number of workers.
type Processor struct {
	queue   chan Job
	workers int
	wg      sync.WaitGroup
	once    sync.Once
	log     *logrus.Entry
}

// New builds a Processor with queue capacity tied to worker count.
func New(workers int) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		queue:   make(chan Job, workers*4),
		workers: workers,
		log:     logrus.WithField("component", "processing"),
	}
}

// Start launches worker goroutines. Workers stop taking new jobs once ctx is
// cancelled; a job already running keeps a context that is not cancelled
// with ctx so it can publish its final state.
func (p *Processor) Start(ctx context.Context) {
	p.once.Do(func() {
		jobCtx := context.WithoutCancel(ctx)
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx, jobCtx, i)
		}
		p.log.WithField("workers", p.workers).Info("processing pool started")
	})
}

// Submit queues a job. It never blocks; when the buffer is full the job is
// dropped and its OnDrop hook runs so callers can record the failure.
func (p *Processor) Submit(job Job) bool {
	select {
	case p.queue <- job:
		return true
	default:
		p.log.WithField("job", job.ID).Warn("processing queue full, dropping job")
		drop(job, "processing queue full")
		return false
	}
}

// Wait blocks until every worker has exited, then drops any jobs still
// queued.
func (p *Processor) Wait() {
	p.wg.Wait()
	for {
		select {
		case job := <-p.queue:
			drop(job, "service shutting down")
		default:
			return
		}
	}
}

func (p *Processor) worker(ctx, jobCtx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.WithField("worker_id", id)
	for {
		select {
		case <-ctx.Done():
			log.Debug("worker stopping")
			return
		case job := <-p.queue:
			p.run(jobCtx, job, log)
		}
	}
}

func (p *Processor) run(ctx context.Context, job Job, log *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("job", job.ID).Errorf("job panicked: %v", r)
		}
	}()
	job.Run(ctx)
}

func drop(job Job, reason string) {
	if job.OnDrop != nil {
		job.OnDrop(reason)
	}
}
