package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/ingest"
)

// ProgressPath is where callers poll bulk upload progress.
const ProgressPath = "/admin/student/upload/progress"

const (
	templateFilename = "Student_Upload_Template.xlsx"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	multipartSlack   = 1 << 20
	msgFileRequired  = "Excel file required"
)

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := ingest.Template()
	if err != nil {
		logrus.WithError(err).Error("render upload template")
		respondFailure(w, http.StatusInternalServerError, "Failed to generate template")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", templateFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	if id.Role.IsStudent() {
		respondFailure(w, http.StatusForbidden, "Unauthorized")
		return
	}
	limit := s.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	mr, err := r.MultipartReader()
	if err != nil {
		respondFailure(w, http.StatusBadRequest, msgFileRequired)
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		respondFailure(w, http.StatusBadRequest, msgFileRequired)
		return
	}
	defer part.Close()
	data, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondFailure(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds limit (%d bytes)", limit))
			return
		}
		respondFailure(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(data)) > limit {
		respondFailure(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds limit (%d bytes)", limit))
		return
	}
	if len(data) == 0 {
		respondFailure(w, http.StatusBadRequest, msgFileRequired)
		return
	}

	total, err := s.deps.Ingest.Submit(r.Context(), id.Username, part.FileName(), data)
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrNoRows), errors.Is(err, ingest.ErrInvalidSheet):
		respondFailure(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ingest.ErrQueueFull):
		respondFailure(w, http.StatusServiceUnavailable, err.Error())
		return
	default:
		logrus.WithError(err).WithField("identity", id.Username).Error("submit upload")
		respondFailure(w, http.StatusInternalServerError, "Failed to start upload")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{
		"success":     true,
		"total":       total,
		"monitor_url": ProgressPath,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	p, err := s.deps.Ingest.Progress(r.Context(), id.Username)
	if err != nil {
		logrus.WithError(err).WithField("identity", id.Username).Error("load upload progress")
		respondFailure(w, http.StatusInternalServerError, "Failed to load progress")
		return
	}
	if p.Status == ingest.StatusIdle {
		respondJSON(w, http.StatusOK, map[string]string{"status": string(p.Status), "message": p.Message})
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}
