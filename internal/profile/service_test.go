package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/uniz-user-service/internal/cache"
	"github.com/dharsanguruparan/uniz-user-service/internal/model"
	"github.com/dharsanguruparan/uniz-user-service/internal/repository"
)

type memStudents struct {
	mu       sync.Mutex
	byName   map[string]*model.StudentProfile
	gets     int
	lastFind model.StudentFilter
}

func newMemStudents(profiles ...model.StudentProfile) *memStudents {
	m := &memStudents{byName: map[string]*model.StudentProfile{}}
	for i := range profiles {
		p := profiles[i]
		m.byName[p.Username] = &p
	}
	return m
}

func (m *memStudents) Get(_ context.Context, username string) (*model.StudentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	p, ok := m.byName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStudents) UpsertUploadRow(_ context.Context, row model.UploadRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byName[row.ID] = &model.StudentProfile{ID: row.ID, Username: row.ID, Name: row.Name, IsPresentInCampus: true}
	return nil
}

func (m *memStudents) Upsert(_ context.Context, id, username string, u model.StudentUpdate) (*model.StudentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byName[username]
	if !ok {
		p = &model.StudentProfile{ID: id, Username: username, IsPresentInCampus: true}
		m.byName[username] = p
	}
	apply(p, u)
	cp := *p
	return &cp, nil
}

func (m *memStudents) Update(_ context.Context, username string, u model.StudentUpdate) (*model.StudentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	apply(p, u)
	cp := *p
	return &cp, nil
}

func (m *memStudents) Search(_ context.Context, f model.StudentFilter) ([]model.StudentProfile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFind = f
	var out []model.StudentProfile
	for _, p := range m.byName {
		out = append(out, *p)
	}
	return out, 23, nil
}

func apply(p *model.StudentProfile, u model.StudentUpdate) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.IsPresentInCampus != nil {
		p.IsPresentInCampus = *u.IsPresentInCampus
	}
	if u.IsApplicationPending != nil {
		p.IsApplicationPending = *u.IsApplicationPending
	}
}

type countingEnricher struct{ calls int }

func (e *countingEnricher) Enrich(_ context.Context, _, _ string, view *model.StudentView) {
	e.calls++
	view.Grades = []string{"A"}
}

func ptr[T any](v T) *T { return &v }

func TestGetStudentCacheAside(t *testing.T) {
	ctx := context.Background()
	students := newMemStudents(model.StudentProfile{ID: "1", Username: "O210001", Name: "Anu"})
	store := cache.NewMemoryStore()
	enricher := &countingEnricher{}
	svc := NewService(students, store, enricher, time.Hour)

	view, source, err := svc.GetStudent(ctx, ReadRequest{Username: "o210001", Explicit: true, Authorization: "Bearer x"})
	require.NoError(t, err)
	assert.Equal(t, SourceDB, source)
	assert.Equal(t, "Anu", view.Name)
	assert.Equal(t, 1, enricher.calls)

	raw, err := store.Get(ctx, "profile:v2:O210001")
	require.NoError(t, err)
	var cached model.StudentView
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, "Anu", cached.Name)

	view, source, err = svc.GetStudent(ctx, ReadRequest{Username: "O210001"})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, "Anu", view.Name)
	assert.Equal(t, 1, students.gets)
}

func TestGetStudentSkipsEnrichmentForSelf(t *testing.T) {
	students := newMemStudents(model.StudentProfile{Username: "O210001"})
	enricher := &countingEnricher{}
	svc := NewService(students, cache.NewMemoryStore(), enricher, time.Hour)

	_, _, err := svc.GetStudent(context.Background(), ReadRequest{Username: "O210001", Authorization: "Bearer x"})
	require.NoError(t, err)
	assert.Zero(t, enricher.calls)
}

func TestGetStudentNotFound(t *testing.T) {
	svc := NewService(newMemStudents(), cache.NewMemoryStore(), nil, time.Hour)
	_, _, err := svc.GetStudent(context.Background(), ReadRequest{Username: "O219999"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWritesInvalidateCache(t *testing.T) {
	ctx := context.Background()
	students := newMemStudents(model.StudentProfile{ID: "1", Username: "O210001", Name: "Old"})
	store := cache.NewMemoryStore()
	svc := NewService(students, store, nil, time.Hour)

	writes := map[string]func() error{
		"self": func() error {
			_, err := svc.UpdateSelf(ctx, "", "o210001", model.StudentUpdate{Name: ptr("Self")})
			return err
		},
		"admin": func() error {
			_, err := svc.AdminUpdate(ctx, "o210001", model.StudentUpdate{Name: ptr("Admin")})
			return err
		},
		"presence": func() error {
			_, err := svc.SetPresence(ctx, "o210001", ptr(false), nil)
			return err
		},
		"upload": func() error {
			return svc.UpsertUploadRow(ctx, model.UploadRow{ID: "O210001", Name: "Upload"})
		},
	}
	for name, write := range writes {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.GetStudent(ctx, ReadRequest{Username: "O210001"})
			require.NoError(t, err)
			_, err = store.Get(ctx, CacheKey("O210001"))
			require.NoError(t, err)

			require.NoError(t, write())
			_, err = store.Get(ctx, CacheKey("O210001"))
			assert.ErrorIs(t, err, cache.ErrMiss)
		})
	}
}

func TestAdminUpdateUnknownStudent(t *testing.T) {
	svc := NewService(newMemStudents(), cache.NewMemoryStore(), nil, time.Hour)
	_, err := svc.AdminUpdate(context.Background(), "O219999", model.StudentUpdate{Name: ptr("x")})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetPresenceCreatesProfile(t *testing.T) {
	svc := NewService(newMemStudents(), cache.NewMemoryStore(), nil, time.Hour)
	view, err := svc.SetPresence(context.Background(), "o210050", nil, ptr(true))
	require.NoError(t, err)
	assert.Equal(t, "O210050", view.Username)
	assert.Equal(t, "O210050", view.ID)
	assert.True(t, view.IsInCampus)
	assert.True(t, view.HasPendingRequests)
}

func TestSearchPagination(t *testing.T) {
	students := newMemStudents(model.StudentProfile{Username: "O210001"})
	svc := NewService(students, cache.NewMemoryStore(), nil, time.Hour)

	res, err := svc.Search(context.Background(), model.StudentFilter{Branch: "CSE"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 23, res.Total)
	assert.Len(t, res.Students, 1)
	assert.Equal(t, 10, students.lastFind.Limit)
}

func TestSearchClampsHugePage(t *testing.T) {
	students := newMemStudents()
	svc := NewService(students, cache.NewMemoryStore(), nil, time.Hour)

	res, err := svc.Search(context.Background(), model.StudentFilter{Page: 1 << 40, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPage, students.lastFind.Page)
	assert.Equal(t, maxLimit, students.lastFind.Limit)
	assert.Equal(t, maxPage, res.Page)
}

func TestAcademicsEnrich(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "O210001", r.URL.Query().Get("studentId"))
		switch r.URL.Path {
		case "/academics/grades":
			_, _ = w.Write([]byte(`{"success":true,"grades":[{"subject":"DSA","grade":"A"}],"gpa":{"cgpa":9.1}}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	view := &model.StudentView{Username: "O210001"}
	NewAcademicsClient(srv.URL, time.Second, srv.Client()).Enrich(context.Background(), "O210001", "Bearer tok", view)

	assert.NotNil(t, view.Grades)
	assert.NotNil(t, view.GPASummary)
	assert.Nil(t, view.Attendance)
	assert.Nil(t, view.AttendanceSummary)
}
