// Package api exposes the profile service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/auth"
	"github.com/dharsanguruparan/uniz-user-service/internal/config"
	"github.com/dharsanguruparan/uniz-user-service/internal/ingest"
	"github.com/dharsanguruparan/uniz-user-service/internal/model"
	"github.com/dharsanguruparan/uniz-user-service/internal/profile"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "uniz-user-service"

// ProfileService is the student profile use-case layer.
type ProfileService interface {
	GetStudent(ctx context.Context, req profile.ReadRequest) (*model.StudentView, profile.Source, error)
	UpdateSelf(ctx context.Context, id, username string, update model.StudentUpdate) (*model.StudentView, error)
	AdminUpdate(ctx context.Context, username string, update model.StudentUpdate) (*model.StudentView, error)
	SetPresence(ctx context.Context, username string, present, pending *bool) (*model.StudentView, error)
	Search(ctx context.Context, filter model.StudentFilter) (*profile.SearchResult, error)
}

// StaffStore persists faculty and admin profiles.
type StaffStore interface {
	GetFaculty(ctx context.Context, username string) (*model.FacultyProfile, error)
	CreateFaculty(ctx context.Context, f *model.FacultyProfile) error
	GetAdmin(ctx context.Context, username string) (*model.AdminProfile, error)
}

// BannerStore persists banners.
type BannerStore interface {
	List(ctx context.Context, publishedOnly bool) ([]model.Banner, error)
	Create(ctx context.Context, b *model.Banner) error
	Delete(ctx context.Context, id string) error
	SetPublished(ctx context.Context, id string, publish bool) error
}

// IngestService accepts bulk uploads and reports their progress.
type IngestService interface {
	Submit(ctx context.Context, identity, filename string, data []byte) (int, error)
	Progress(ctx context.Context, identity string) (ingest.Progress, error)
}

// Deps are the collaborators behind the HTTP handlers.
type Deps struct {
	Auth     *auth.Authenticator
	Profiles ProfileService
	Staff    StaffStore
	Banners  BannerStore
	Ingest   IngestService
}

// Server exposes HTTP endpoints for profiles, banners and bulk uploads.
type Server struct {
	cfg      *config.Config
	deps     Deps
	validate *validator.Validate
	server   *http.Server
	once     sync.Once
	log      *logrus.Entry
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps) *Server {
	return &Server{
		cfg:      cfg,
		deps:     deps,
		validate: validator.New(),
		log:      logrus.WithField("component", "api"),
	}
}

// Handler builds the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.deps.Auth.Middleware(h))
	}
	authed("GET /student/me", s.handleGetStudent)
	authed("GET /admin/student/{username}", s.handleGetStudent)
	authed("PUT /student/update", s.handleUpdateSelf)
	authed("PUT /admin/student/{username}", s.handleAdminUpdate)
	authed("PUT /student/status", s.handlePresence)
	authed("POST /student/search", s.handleSearch)

	authed("GET /faculty/me", s.handleFacultyMe)
	authed("POST /faculty/create", s.handleCreateFaculty)
	authed("GET /admin/me", s.handleAdminMe)

	authed("GET /student/banners", s.handlePublicBanners)
	authed("GET /admin/banners", s.handleListBanners)
	authed("POST /admin/banners", s.handleCreateBanner)
	authed("DELETE /admin/banners/{id}", s.handleDeleteBanner)
	authed("POST /admin/banners/{id}/publish", s.handlePublishBanner)

	authed("GET /admin/student/template", s.handleTemplate)
	authed("POST /admin/student/upload", s.handleUpload)
	authed("GET "+ProgressPath, s.handleProgress)

	return recoveryMiddleware(corsMiddleware(s.cfg.FrontendURL, securityHeaders(loggingMiddleware(mux))))
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.WithField("addr", s.cfg.Address).Info("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": ServiceName})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"service": ServiceName, "message": "User service is running"})
}
