package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/uniz-user-service/internal/credentials"
)

type runnerFixture struct {
	runner      *Runner
	store       *recordingStore
	profiles    *fakeProfiles
	provisioner *fakeProvisioner
	retries     *fakeRetries
}

func newRunnerFixture() *runnerFixture {
	f := &runnerFixture{
		store:       newRecordingStore(),
		profiles:    &fakeProfiles{},
		provisioner: &fakeProvisioner{},
		retries:     &fakeRetries{},
	}
	f.runner = NewRunner(RunnerConfig{
		Profiles:    f.profiles,
		Provisioner: f.provisioner,
		Retries:     f.retries,
		Tracker:     NewTracker(f.store, 600*time.Second),
	})
	f.runner.now = steppingClock(time.Second)
	return f
}

func TestRunnerTwelveRows(t *testing.T) {
	f := newRunnerFixture()

	final, err := f.runner.Run(context.Background(), "dean", studentRows(12))
	require.NoError(t, err)

	published := f.store.published("dean")
	require.Len(t, published, 3)
	assert.Equal(t, []int{5, 10, 12}, []int{published[0].Processed, published[1].Processed, published[2].Processed})
	assert.Equal(t, []int{42, 83, 100}, []int{published[0].Percent, published[1].Percent, published[2].Percent})
	assert.Equal(t, 2, published[0].EtaSeconds)
	assert.Equal(t, 1, published[1].EtaSeconds)

	assert.Equal(t, final, published[2])
	assert.Equal(t, StatusDone, final.Status)
	assert.Equal(t, 12, final.Success)
	assert.Zero(t, final.Fail)
	assert.Zero(t, final.EtaSeconds)
	assert.Empty(t, final.Errors)
	assert.Len(t, f.profiles.stored, 12)
	assert.Len(t, f.provisioner.calls, 12)
}

func TestRunnerMissingID(t *testing.T) {
	f := newRunnerFixture()
	rows := []Row{studentRow("O210001"), studentRow("  "), studentRow("O210003")}

	final, err := f.runner.Run(context.Background(), "hod", rows)
	require.NoError(t, err)

	published := f.store.published("hod")
	require.Len(t, published, 1)
	assert.Equal(t, 3, final.Processed)
	assert.Equal(t, 2, final.Success)
	assert.Equal(t, 1, final.Fail)
	assert.Equal(t, []RowError{{Row: 3, Error: MissingIDMessage}}, final.Errors)
	assert.Len(t, f.provisioner.calls, 2)
}

func TestRunnerUpsertFailureIsRecorded(t *testing.T) {
	f := newRunnerFixture()
	f.profiles.fail = map[string]error{"O210002": errors.New("duplicate email")}

	final, err := f.runner.Run(context.Background(), "dean", []Row{studentRow("O210001"), studentRow("o210002")})
	require.NoError(t, err)

	assert.Equal(t, 1, final.Success)
	assert.Equal(t, 1, final.Fail)
	assert.Equal(t, []RowError{{Row: 3, ID: "O210002", Error: "duplicate email"}}, final.Errors)
	assert.Len(t, f.provisioner.calls, 1)
}

func TestRunnerProvisioningNeverChangesOutcome(t *testing.T) {
	f := newRunnerFixture()
	f.provisioner.outcomes = map[string]credentials.Outcome{
		"O210001": credentials.AlreadyExists,
		"O210002": credentials.Failed,
	}

	final, err := f.runner.Run(context.Background(), "dean", []Row{studentRow("O210001"), studentRow("O210002"), studentRow("O210003")})
	require.NoError(t, err)

	assert.Equal(t, 3, final.Success)
	assert.Zero(t, final.Fail)
	assert.Empty(t, final.Errors)
	require.Len(t, f.retries.reqs, 1)
	assert.Equal(t, "O210002", f.retries.reqs[0].Username)
}

func TestRunnerPanicPublishesFailure(t *testing.T) {
	f := newRunnerFixture()
	f.profiles.panics = map[string]bool{"O210006": true}

	final, err := f.runner.Run(context.Background(), "dean", studentRows(8))
	require.ErrorIs(t, err, ErrRunnerFault)

	published := f.store.published("dean")
	require.Len(t, published, 2)
	assert.Equal(t, 5, published[0].Processed)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, final, published[1])
	assert.NotEmpty(t, final.Message)
}

func TestRunnerKeepsGoingWhenPublishFails(t *testing.T) {
	f := newRunnerFixture()
	f.store.failN = 4 // first publish exhausts its retries

	final, err := f.runner.Run(context.Background(), "dean", studentRows(7))
	require.NoError(t, err)

	assert.Equal(t, StatusDone, final.Status)
	published := f.store.published("dean")
	require.Len(t, published, 1)
	assert.Equal(t, 7, published[0].Processed)
}

func TestRunnerChunkProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("chunk k publishes min(5k, N) and the run ends done", prop.ForAll(
		func(n int, missingEvery int) bool {
			f := newRunnerFixture()
			rows := studentRows(n)
			for i := range rows {
				if missingEvery > 0 && i%missingEvery == 0 {
					rows[i] = studentRow("")
				}
			}
			final, err := f.runner.Run(context.Background(), "dean", rows)
			if err != nil {
				return false
			}
			published := f.store.published("dean")
			if len(published) != (n+DefaultChunkSize-1)/DefaultChunkSize {
				return false
			}
			for k, p := range published {
				want := (k + 1) * DefaultChunkSize
				if want > n {
					want = n
				}
				if p.Processed != want || p.Total != n {
					return false
				}
			}
			return final.Success+final.Fail == n &&
				final.Processed == n &&
				final.Percent == 100 &&
				final.Status == StatusDone &&
				final.EtaSeconds == 0 &&
				len(final.Errors) <= MaxPublishedErrors
		},
		gen.IntRange(1, 60),
		gen.IntRange(0, 7),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRunnerRowsInChunkRunTogether(t *testing.T) {
	f := newRunnerFixture()
	f.profiles.entered = make(chan string, DefaultChunkSize)
	f.profiles.release = make(chan struct{})

	done := make(chan Progress, 1)
	go func() {
		final, _ := f.runner.Run(context.Background(), "dean", studentRows(DefaultChunkSize))
		done <- final
	}()

	seen := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for len(seen) < DefaultChunkSize {
		select {
		case id := <-f.profiles.entered:
			seen[id] = true
		case <-timeout:
			close(f.profiles.release)
			t.Fatalf("only %d of %d rows were in flight together", len(seen), DefaultChunkSize)
		}
	}
	close(f.profiles.release)

	final := <-done
	assert.Equal(t, StatusDone, final.Status)
	assert.Equal(t, DefaultChunkSize, final.Success)
}

func TestRunnerConcurrentRunsSameIdentity(t *testing.T) {
	store := newRecordingStore()
	tracker := NewTracker(store, 600*time.Second)
	newRunner := func(fail map[string]error) *Runner {
		r := NewRunner(RunnerConfig{
			Profiles:    &fakeProfiles{fail: fail},
			Provisioner: &fakeProvisioner{},
			Tracker:     tracker,
		})
		r.now = steppingClock(time.Second)
		return r
	}
	first := newRunner(map[string]error{"O210003": errors.New("duplicate email")})
	second := newRunner(nil)

	var wg sync.WaitGroup
	finals := make([]Progress, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		finals[0], _ = first.Run(context.Background(), "dean", studentRows(12))
	}()
	go func() {
		defer wg.Done()
		finals[1], _ = second.Run(context.Background(), "dean", studentRows(7))
	}()
	wg.Wait()

	stored, ok, err := tracker.Load(context.Background(), "dean")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, finals, stored)

	for _, p := range store.published("dean") {
		assert.True(t, p.Total == 12 || p.Total == 7)
		assert.Equal(t, p.Processed, p.Success+p.Fail)
		if p.Total == 7 {
			assert.Empty(t, p.Errors)
		}
	}
}
