package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/cache"
)

// Status is the lifecycle state of an ingestion job.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// KeyPrefix namespaces progress snapshots by submitting identity.
const KeyPrefix = "student:upload:progress:"

// MaxPublishedErrors caps the trailing error list carried by each snapshot.
const MaxPublishedErrors = 20

// IdleMessage accompanies the idle sentinel.
const IdleMessage = "No active or recent student upload found."

// RowError records why a sheet row could not be stored.
type RowError struct {
	Row   int    `json:"row"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// Progress is the snapshot published after each chunk.
type Progress struct {
	Status     Status     `json:"status"`
	Processed  int        `json:"processed"`
	Total      int        `json:"total"`
	Success    int        `json:"success"`
	Fail       int        `json:"fail"`
	Percent    int        `json:"percent"`
	EtaSeconds int        `json:"etaSeconds"`
	Errors     []RowError `json:"errors"`
	Message    string     `json:"message,omitempty"`
}

// Idle is returned when no snapshot exists for an identity.
func Idle() Progress {
	return Progress{Status: StatusIdle, Message: IdleMessage}
}

// Seed is the snapshot stored when a job is accepted.
func Seed(total int) Progress {
	return Progress{Status: StatusProcessing, Total: total, Errors: []RowError{}}
}

// Snapshot computes the progress after processed of total rows have
// finished in elapsed time. Only the last MaxPublishedErrors errors are kept.
func Snapshot(processed, total int, elapsed time.Duration, success, fail int, errs []RowError) Progress {
	if processed > total {
		processed = total
	}
	p := Progress{
		Status:    StatusProcessing,
		Processed: processed,
		Total:     total,
		Success:   success,
		Fail:      fail,
		Errors:    tail(errs, MaxPublishedErrors),
	}
	if total > 0 {
		p.Percent = int(math.Round(float64(processed) / float64(total) * 100))
	}
	if processed >= total {
		p.Status = StatusDone
		p.Percent = 100
		return p
	}
	elapsedMs := elapsed.Milliseconds()
	if elapsedMs < 1 {
		elapsedMs = 1
	}
	eta := 1
	if processed > 0 {
		perRow := float64(elapsedMs) / float64(processed)
		eta = int(math.Ceil(perRow * float64(total-processed) / 1000))
	}
	if eta < 1 {
		eta = 1
	}
	p.EtaSeconds = eta
	return p
}

// Failure is the terminal snapshot for a job that stopped early.
func Failure(last Progress, reason string) Progress {
	last.Status = StatusFailed
	last.EtaSeconds = 0
	last.Message = reason
	return last
}

func tail(errs []RowError, n int) []RowError {
	if len(errs) > n {
		errs = errs[len(errs)-n:]
	}
	out := make([]RowError, len(errs))
	copy(out, errs)
	return out
}

// Tracker reads and writes progress snapshots in a cache.Store.
type Tracker struct {
	store   cache.Store
	ttl     time.Duration
	backoff func() retry.Backoff
	log     *logrus.Entry
}

// NewTracker builds a Tracker whose snapshots expire after ttl.
func NewTracker(store cache.Store, ttl time.Duration) *Tracker {
	return &Tracker{
		store: store,
		ttl:   ttl,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewConstant(50*time.Millisecond))
		},
		log: logrus.WithField("component", "progress"),
	}
}

// Key returns the store key for identity.
func Key(identity string) string {
	return KeyPrefix + identity
}

// Publish overwrites the snapshot for identity, retrying transient store
// errors a few times.
func (t *Tracker) Publish(ctx context.Context, identity string, p Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	key := Key(identity)
	err = retry.Do(ctx, t.backoff(), func(ctx context.Context) error {
		if err := t.store.Set(ctx, key, string(raw), t.ttl); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish progress %s: %w", identity, err)
	}
	return nil
}

// Load returns the stored snapshot for identity. ok is false when none exists.
func (t *Tracker) Load(ctx context.Context, identity string) (Progress, bool, error) {
	raw, err := t.store.Get(ctx, Key(identity))
	if errors.Is(err, cache.ErrMiss) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, fmt.Errorf("load progress %s: %w", identity, err)
	}
	var p Progress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Progress{}, false, fmt.Errorf("decode progress %s: %w", identity, err)
	}
	return p, true, nil
}
