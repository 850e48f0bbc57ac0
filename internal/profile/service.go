// Package profile serves student profiles through a read-through cache and
// keeps that cache coherent on every write.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/cache"
	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

// CacheKeyPrefix namespaces cached student views.
const CacheKeyPrefix = "profile:v2:"

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	maxPage      = 100000
)

// Source reports where a student view was served from.
type Source string

const (
	SourceCache Source = "cache"
	SourceDB    Source = "db"
)

// StudentStore is the persistence the service needs.
type StudentStore interface {
	Get(ctx context.Context, username string) (*model.StudentProfile, error)
	UpsertUploadRow(ctx context.Context, row model.UploadRow) error
	Upsert(ctx context.Context, id, username string, update model.StudentUpdate) (*model.StudentProfile, error)
	Update(ctx context.Context, username string, update model.StudentUpdate) (*model.StudentProfile, error)
	Search(ctx context.Context, filter model.StudentFilter) ([]model.StudentProfile, int, error)
}

// Enricher decorates a view with data owned by other services.
type Enricher interface {
	Enrich(ctx context.Context, username, authorization string, view *model.StudentView)
}

// Service implements the student profile use cases.
type Service struct {
	students StudentStore
	cache    cache.Store
	enricher Enricher
	ttl      time.Duration
	log      *logrus.Entry
}

// NewService builds a Service. enricher may be nil.
func NewService(students StudentStore, store cache.Store, enricher Enricher, ttl time.Duration) *Service {
	return &Service{
		students: students,
		cache:    store,
		enricher: enricher,
		ttl:      ttl,
		log:      logrus.WithField("component", "profile"),
	}
}

// CacheKey returns the cache key of username.
func CacheKey(username string) string {
	return CacheKeyPrefix + strings.ToUpper(username)
}

// ReadRequest describes a profile read. Authorization is forwarded to the
// enricher, which only runs when Explicit is set.
type ReadRequest struct {
	Username      string
	Explicit      bool
	Authorization string
}

// GetStudent returns the view of a student, from cache when possible.
func (s *Service) GetStudent(ctx context.Context, req ReadRequest) (*model.StudentView, Source, error) {
	username := strings.ToUpper(req.Username)
	key := CacheKey(username)
	log := s.log.WithField("student_id", username)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var view model.StudentView
		if jsonErr := json.Unmarshal([]byte(raw), &view); jsonErr == nil {
			return &view, SourceCache, nil
		}
		log.Warn("discarding undecodable cached profile")
	case !errors.Is(err, cache.ErrMiss):
		log.WithError(err).Warn("profile cache read failed")
	}

	p, err := s.students.Get(ctx, username)
	if err != nil {
		return nil, "", err
	}
	view := p.View()
	if s.enricher != nil && req.Explicit && req.Authorization != "" {
		s.enricher.Enrich(ctx, username, req.Authorization, view)
	}
	if data, err := json.Marshal(view); err == nil {
		if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
			log.WithError(err).Warn("profile cache write failed")
		}
	}
	return view, SourceDB, nil
}

// UpdateSelf upserts the caller's own profile.
func (s *Service) UpdateSelf(ctx context.Context, id, username string, update model.StudentUpdate) (*model.StudentView, error) {
	username = strings.ToUpper(username)
	if id == "" {
		id = username
	}
	p, err := s.students.Upsert(ctx, id, username, update)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, username)
	return p.View(), nil
}

// AdminUpdate modifies an existing student.
func (s *Service) AdminUpdate(ctx context.Context, username string, update model.StudentUpdate) (*model.StudentView, error) {
	username = strings.ToUpper(username)
	p, err := s.students.Update(ctx, username, update)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, username)
	return p.View(), nil
}

// SetPresence records campus presence and pending-application flags,
// creating the profile when it does not exist.
func (s *Service) SetPresence(ctx context.Context, username string, present, pending *bool) (*model.StudentView, error) {
	username = strings.ToUpper(username)
	update := model.StudentUpdate{IsPresentInCampus: present, IsApplicationPending: pending}
	p, err := s.students.Upsert(ctx, username, username, update)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, username)
	return p.View(), nil
}

// UpsertUploadRow stores a bulk upload row and drops its cached view.
func (s *Service) UpsertUploadRow(ctx context.Context, row model.UploadRow) error {
	if err := s.students.UpsertUploadRow(ctx, row); err != nil {
		return err
	}
	s.invalidate(ctx, row.ID)
	return nil
}

// SearchResult is one page of matching students.
type SearchResult struct {
	Students   []*model.StudentView
	Page       int
	TotalPages int
	Total      int
}

// Search returns one page of students matching filter.
func (s *Service) Search(ctx context.Context, filter model.StudentFilter) (*SearchResult, error) {
	if filter.Page < 1 {
		filter.Page = defaultPage
	}
	if filter.Page > maxPage {
		filter.Page = maxPage
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	profiles, total, err := s.students.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	views := make([]*model.StudentView, len(profiles))
	for i := range profiles {
		views[i] = profiles[i].View()
	}
	return &SearchResult{
		Students:   views,
		Page:       filter.Page,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Total:      total,
	}, nil
}

func (s *Service) invalidate(ctx context.Context, username string) {
	if err := s.cache.Delete(ctx, CacheKey(username)); err != nil {
		s.log.WithField("student_id", username).WithError(err).Warn("profile cache invalidation failed")
	}
}
