package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/auth"
	"github.com/dharsanguruparan/uniz-user-service/internal/model"
	"github.com/dharsanguruparan/uniz-user-service/internal/repository"
)

const (
	codeUnauthorized  = "AUTH_UNAUTHORIZED"
	codeForbidden     = "AUTH_FORBIDDEN"
	codeValidation    = "VALIDATION_ERROR"
	codeNotFound      = "RESOURCE_NOT_FOUND"
	codeAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	codeInternal      = "INTERNAL_SERVER_ERROR"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Warn("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"code": code, "message": message})
}

// writeStoreError maps repository sentinels onto HTTP codes.
func writeStoreError(w http.ResponseWriter, err error, notFound, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, notFound)
	case errors.Is(err, repository.ErrAlreadyExists):
		writeError(w, http.StatusConflict, codeAlreadyExists, err.Error())
	default:
		logrus.WithError(err).Error(fallback)
		writeError(w, http.StatusInternalServerError, codeInternal, fallback)
	}
}

// legacy responses used by the banner and bulk endpoints.
func respondFailure(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "message": message})
}

func caller(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

// requireRole writes 403 and returns false unless the caller has one of roles.
func requireRole(w http.ResponseWriter, r *http.Request, roles []model.Role) (auth.Identity, bool) {
	id := caller(r)
	if !id.Role.In(roles) {
		writeError(w, http.StatusForbidden, codeForbidden, "Access denied")
		return id, false
	}
	return id, true
}
