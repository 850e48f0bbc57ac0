package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/uniz-user-service/internal/cache"
	"github.com/dharsanguruparan/uniz-user-service/internal/credentials"
	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

// recordingStore keeps every value written so tests can inspect the
// publish history as well as the current value.
type recordingStore struct {
	*cache.MemoryStore
	mu      sync.Mutex
	history map[string][]string
	failN   int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: cache.NewMemoryStore(), history: map[string][]string{}}
}

func (s *recordingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	if s.failN > 0 {
		s.failN--
		s.mu.Unlock()
		return errors.New("store unavailable")
	}
	s.history[key] = append(s.history[key], value)
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

func (s *recordingStore) published(identity string) []Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Progress
	for _, raw := range s.history[Key(identity)] {
		var p Progress
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

type fakeProfiles struct {
	mu     sync.Mutex
	stored []model.UploadRow
	fail   map[string]error
	panics map[string]bool

	// When set, each upsert reports on entered and then waits for release.
	entered chan string
	release chan struct{}
}

func (f *fakeProfiles) UpsertUploadRow(_ context.Context, row model.UploadRow) error {
	if f.entered != nil {
		f.entered <- row.ID
		<-f.release
	}
	if f.panics[row.ID] {
		panic("upsert exploded")
	}
	if err := f.fail[row.ID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, row)
	return nil
}

type fakeProvisioner struct {
	mu       sync.Mutex
	calls    []model.CredentialRequest
	outcomes map[string]credentials.Outcome
}

func (f *fakeProvisioner) Provision(_ context.Context, req model.CredentialRequest) (credentials.Outcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	switch o := f.outcomes[req.Username]; o {
	case "":
		return credentials.Created, nil
	case credentials.Failed:
		return o, errors.New("auth service unavailable")
	default:
		return o, nil
	}
}

type fakeRetries struct {
	mu   sync.Mutex
	reqs []model.CredentialRequest
}

func (f *fakeRetries) EnqueueProvision(_ context.Context, req model.CredentialRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return nil
}

func studentRow(id string) Row {
	return Row{
		{Header: "Student ID", Value: id},
		{Header: "Name", Value: "Student " + id},
		{Header: "Email", Value: strings.ToLower(id) + "@rguktong.ac.in"},
		{Header: "Branch", Value: "cse"},
		{Header: "Year", Value: "e1"},
		{Header: "Section", Value: "a"},
	}
}

func studentRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = studentRow(fmt.Sprintf("O21%04d", i))
	}
	return rows
}

// steppingClock advances by step on every call after the first.
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	first := true
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		if first {
			first = false
			return t
		}
		t = t.Add(step)
		return t
	}
}
