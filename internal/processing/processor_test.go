package processing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorRunsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := New(2)
	p.Start(ctx)

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.True(t, p.Submit(Job{ID: "job", Run: func(context.Context) {
			ran.Add(1)
			wg.Done()
		}}))
	}
	wg.Wait()
	assert.Equal(t, int32(5), ran.Load())
}

func TestProcessorDropsWhenFull(t *testing.T) {
	p := New(1) // not started: nothing drains the queue
	var dropped []string
	for i := 0; i < 4; i++ {
		require.True(t, p.Submit(Job{ID: "queued", Run: func(context.Context) {}}))
	}
	ok := p.Submit(Job{
		ID:     "overflow",
		Run:    func(context.Context) { t.Fatal("overflow job must not run") },
		OnDrop: func(reason string) { dropped = append(dropped, reason) },
	})
	assert.False(t, ok)
	assert.Equal(t, []string{"processing queue full"}, dropped)
}

func TestProcessorJobContextSurvivesShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(1)
	p.Start(ctx)

	started := make(chan struct{})
	release := make(chan struct{})
	var jobErr error
	p.Submit(Job{ID: "long", Run: func(jobCtx context.Context) {
		close(started)
		<-release
		jobErr = jobCtx.Err()
	}})
	<-started
	cancel()
	close(release)
	p.Wait()
	assert.NoError(t, jobErr)
}

func TestProcessorRecoversPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := New(1)
	p.Start(ctx)

	done := make(chan struct{})
	p.Submit(Job{ID: "boom", Run: func(context.Context) { panic("boom") }})
	p.Submit(Job{ID: "after", Run: func(context.Context) { close(done) }})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
}
