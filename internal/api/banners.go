package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
	"github.com/dharsanguruparan/uniz-user-service/internal/repository"
)

func (s *Server) handlePublicBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := s.deps.Banners.List(r.Context(), true)
	if err != nil {
		logrus.WithError(err).Error("list published banners")
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch banners")
		return
	}
	w.Header().Set("Cache-Control", "s-maxage=300, stale-while-revalidate=1200")
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "banners": banners})
}

func (s *Server) handleListBanners(w http.ResponseWriter, r *http.Request) {
	if caller(r).Role.IsStudent() {
		respondFailure(w, http.StatusForbidden, "Denied")
		return
	}
	banners, err := s.deps.Banners.List(r.Context(), false)
	if err != nil {
		logrus.WithError(err).Error("list banners")
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch banners")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "banners": banners})
}

type createBannerRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Text     string `json:"text" validate:"max=2000"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
}

func (s *Server) handleCreateBanner(w http.ResponseWriter, r *http.Request) {
	if caller(r).Role != model.RoleWebmaster {
		respondFailure(w, http.StatusForbidden, "Only webmaster can add banners")
		return
	}
	var req createBannerRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	b := &model.Banner{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Text:        req.Text,
		ImageURL:    req.ImageURL,
		IsPublished: true,
	}
	if err := s.deps.Banners.Create(r.Context(), b); err != nil {
		logrus.WithError(err).Error("create banner")
		respondFailure(w, http.StatusInternalServerError, "Failed to create banner")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "banner": b})
}

func (s *Server) handleDeleteBanner(w http.ResponseWriter, r *http.Request) {
	if caller(r).Role != model.RoleWebmaster {
		respondFailure(w, http.StatusForbidden, "Denied")
		return
	}
	err := s.deps.Banners.Delete(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondFailure(w, http.StatusNotFound, "Banner not found")
	case err != nil:
		logrus.WithError(err).Error("delete banner")
		respondFailure(w, http.StatusInternalServerError, "Failed to delete banner")
	default:
		respondJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

type publishRequest struct {
	Publish bool `json:"publish"`
}

func (s *Server) handlePublishBanner(w http.ResponseWriter, r *http.Request) {
	if caller(r).Role != model.RoleWebmaster {
		respondFailure(w, http.StatusForbidden, "Denied")
		return
	}
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := s.deps.Banners.SetPublished(r.Context(), r.PathValue("id"), req.Publish)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondFailure(w, http.StatusNotFound, "Banner not found")
	case err != nil:
		logrus.WithError(err).Error("publish banner")
		respondFailure(w, http.StatusInternalServerError, "Failed to update banner status")
	default:
		respondJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
