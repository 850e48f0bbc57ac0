package api

import (
	"errors"
	"net/http"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
	"github.com/dharsanguruparan/uniz-user-service/internal/repository"
)

func (s *Server) handleFacultyMe(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, model.FacultyRoles)
	if !ok {
		return
	}
	f, err := s.deps.Staff.GetFaculty(r.Context(), id.Username)
	if err != nil {
		writeStoreError(w, err, "Profile not found", "Failed to fetch faculty profile")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "faculty": f})
}

type createFacultyRequest struct {
	Username    string `json:"username" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Department  string `json:"department" validate:"required"`
	Designation string `json:"designation" validate:"required"`
}

func (s *Server) handleCreateFaculty(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, model.ManagementRoles); !ok {
		return
	}
	var req createFacultyRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	f := &model.FacultyProfile{
		ID:          req.Username,
		Username:    req.Username,
		Name:        req.Name,
		Email:       req.Email,
		Department:  req.Department,
		Designation: req.Designation,
		Role:        string(model.RoleTeacher),
	}
	if err := s.deps.Staff.CreateFaculty(r.Context(), f); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, codeAlreadyExists, "This faculty profile already exists.")
			return
		}
		writeStoreError(w, err, "Profile not found", "Could not create profile. Please try again.")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "faculty": f})
}

func (s *Server) handleAdminMe(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, model.AdminRoles)
	if !ok {
		return
	}
	a, err := s.deps.Staff.GetAdmin(r.Context(), id.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		writeStoreError(w, err, "Profile not found", "Failed to fetch admin profile")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": a})
}
