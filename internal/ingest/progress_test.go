package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotMidRun(t *testing.T) {
	p := Snapshot(5, 12, time.Second, 4, 1, []RowError{{Row: 3, Error: MissingIDMessage}})
	assert.Equal(t, StatusProcessing, p.Status)
	assert.Equal(t, 5, p.Processed)
	assert.Equal(t, 42, p.Percent)
	assert.Equal(t, 2, p.EtaSeconds)
	assert.Len(t, p.Errors, 1)
}

func TestSnapshotEtaFloor(t *testing.T) {
	p := Snapshot(10, 12, 0, 10, 0, nil)
	assert.Equal(t, 1, p.EtaSeconds)
	assert.Equal(t, 83, p.Percent)
}

func TestSnapshotDone(t *testing.T) {
	p := Snapshot(15, 12, 3*time.Second, 12, 0, nil)
	assert.Equal(t, StatusDone, p.Status)
	assert.Equal(t, 12, p.Processed)
	assert.Equal(t, 100, p.Percent)
	assert.Zero(t, p.EtaSeconds)
}

func TestSnapshotKeepsLastErrors(t *testing.T) {
	var errs []RowError
	for i := 0; i < 30; i++ {
		errs = append(errs, RowError{Row: i + HeaderOffset, Error: MissingIDMessage})
	}
	p := Snapshot(30, 30, time.Second, 0, 30, errs)
	require.Len(t, p.Errors, MaxPublishedErrors)
	assert.Equal(t, 12, p.Errors[0].Row)
	assert.Equal(t, 31, p.Errors[MaxPublishedErrors-1].Row)
}

func TestSnapshotProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("eta is zero exactly when done", prop.ForAll(
		func(total, processed int, elapsedMs int64) bool {
			if processed > total {
				processed = total
			}
			p := Snapshot(processed, total, time.Duration(elapsedMs)*time.Millisecond, processed, 0, nil)
			if processed == total {
				return p.Status == StatusDone && p.EtaSeconds == 0 && p.Percent == 100
			}
			return p.Status == StatusProcessing && p.EtaSeconds >= 1 && p.Percent <= 100
		},
		gen.IntRange(1, 500),
		gen.IntRange(0, 500),
		gen.Int64Range(0, 120000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestTrackerRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	tracker := NewTracker(store, 600*time.Second)

	_, ok, err := tracker.Load(ctx, "dean")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tracker.Publish(ctx, "dean", Seed(7)))
	got, ok, err := tracker.Load(ctx, "dean")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Progress{Status: StatusProcessing, Total: 7}, got)

	raw, err := store.Get(ctx, "student:upload:progress:dean")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"processing","processed":0,"total":7,"success":0,"fail":0,"percent":0,"etaSeconds":0}`, raw)
}

func TestTrackerRetriesTransientFailures(t *testing.T) {
	store := newRecordingStore()
	store.failN = 2
	tracker := NewTracker(store, time.Minute)

	require.NoError(t, tracker.Publish(context.Background(), "hod", Seed(1)))
	assert.Len(t, store.published("hod"), 1)
}

func TestTrackerGivesUp(t *testing.T) {
	store := newRecordingStore()
	store.failN = 10
	tracker := NewTracker(store, time.Minute)

	err := tracker.Publish(context.Background(), "hod", Seed(1))
	assert.Error(t, err)
	assert.Empty(t, store.published("hod"))
}

func TestTrackerRejectsCorruptValue(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	require.NoError(t, store.Set(ctx, Key("dean"), "not json", time.Minute))

	_, _, err := NewTracker(store, time.Minute).Load(ctx, "dean")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("decode progress %s", "dean"))
}

func TestSnapshotAlwaysCarriesErrorList(t *testing.T) {
	for name, p := range map[string]Progress{
		"seed": Seed(3),
		"done": Snapshot(3, 3, time.Second, 3, 0, nil),
	} {
		raw, err := json.Marshal(p)
		require.NoError(t, err, name)
		assert.Contains(t, string(raw), `"errors":[]`, name)
	}
}
