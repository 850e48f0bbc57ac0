package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
	"github.com/dharsanguruparan/uniz-user-service/internal/profile"
)

// studentUpdateRequest accepts both camelCase and snake_case spellings of
// the editable fields.
type studentUpdateRequest struct {
	Name                 *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email                *string `json:"email" validate:"omitempty,email"`
	Gender               *string `json:"gender" validate:"omitempty,oneof=M F Other"`
	Phone                *string `json:"phone" validate:"omitempty,min=10,max=15"`
	PhoneNumber          *string `json:"phoneNumber" validate:"omitempty,min=10,max=15"`
	PhoneNumberSnake     *string `json:"phone_number" validate:"omitempty,min=10,max=15"`
	BloodGroup           *string `json:"bloodGroup" validate:"omitempty,max=5"`
	BloodGroupSnake      *string `json:"blood_group" validate:"omitempty,max=5"`
	DateOfBirth          *string `json:"dateOfBirth"`
	DateOfBirthSnake     *string `json:"date_of_birth"`
	ProfileURL           *string `json:"profileUrl" validate:"omitempty,url"`
	ProfileURLSnake      *string `json:"profile_url" validate:"omitempty,url"`
	FatherName           *string `json:"fatherName" validate:"omitempty,min=2,max=100"`
	FatherNameSnake      *string `json:"father_name" validate:"omitempty,min=2,max=100"`
	MotherName           *string `json:"motherName" validate:"omitempty,min=2,max=100"`
	MotherNameSnake      *string `json:"mother_name" validate:"omitempty,min=2,max=100"`
	FatherOccupation     *string `json:"fatherOccupation" validate:"omitempty,max=100"`
	FatherOccupationSn   *string `json:"father_occupation" validate:"omitempty,max=100"`
	MotherOccupation     *string `json:"motherOccupation" validate:"omitempty,max=100"`
	MotherOccupationSn   *string `json:"mother_occupation" validate:"omitempty,max=100"`
	FatherEmail          *string `json:"fatherEmail" validate:"omitempty,email"`
	FatherEmailSnake     *string `json:"father_email" validate:"omitempty,email"`
	MotherEmail          *string `json:"motherEmail" validate:"omitempty,email"`
	MotherEmailSnake     *string `json:"mother_email" validate:"omitempty,email"`
	FatherAddress        *string `json:"fatherAddress" validate:"omitempty,max=500"`
	FatherAddressSnake   *string `json:"father_address" validate:"omitempty,max=500"`
	MotherAddress        *string `json:"motherAddress" validate:"omitempty,max=500"`
	MotherAddressSnake   *string `json:"mother_address" validate:"omitempty,max=500"`
	RoomNo               *string `json:"roomno" validate:"omitempty,max=20"`
	RoomNumber           *string `json:"room_number" validate:"omitempty,max=20"`
	Branch               *string `json:"branch" validate:"omitempty,max=50"`
	Year                 *string `json:"year" validate:"omitempty,max=10"`
	Section              *string `json:"section" validate:"omitempty,max=10"`
	IsPresentInCampus    *bool   `json:"isPresentInCampus"`
	IsInCampus           *bool   `json:"is_in_campus"`
	IsApplicationPending *bool   `json:"isApplicationPending"`
	HasPendingRequests   *bool   `json:"has_pending_requests"`
}

var errBadDate = errors.New("date_of_birth must be an ISO date")

// toUpdate folds the aliases into canonical fields; snake_case wins.
func (req studentUpdateRequest) toUpdate() (model.StudentUpdate, error) {
	u := model.StudentUpdate{
		Name:                 req.Name,
		Email:                req.Email,
		Gender:               req.Gender,
		Phone:                pick(req.PhoneNumberSnake, req.PhoneNumber, req.Phone),
		BloodGroup:           pick(req.BloodGroupSnake, req.BloodGroup),
		ProfileURL:           pick(req.ProfileURLSnake, req.ProfileURL),
		FatherName:           pick(req.FatherNameSnake, req.FatherName),
		MotherName:           pick(req.MotherNameSnake, req.MotherName),
		FatherOccupation:     pick(req.FatherOccupationSn, req.FatherOccupation),
		MotherOccupation:     pick(req.MotherOccupationSn, req.MotherOccupation),
		FatherEmail:          pick(req.FatherEmailSnake, req.FatherEmail),
		MotherEmail:          pick(req.MotherEmailSnake, req.MotherEmail),
		FatherAddress:        pick(req.FatherAddressSnake, req.FatherAddress),
		MotherAddress:        pick(req.MotherAddressSnake, req.MotherAddress),
		RoomNo:               pick(req.RoomNumber, req.RoomNo),
		Branch:               req.Branch,
		Year:                 req.Year,
		Section:              req.Section,
		IsPresentInCampus:    pick(req.IsInCampus, req.IsPresentInCampus),
		IsApplicationPending: pick(req.HasPendingRequests, req.IsApplicationPending),
	}
	if raw := pick(req.DateOfBirthSnake, req.DateOfBirth); raw != nil {
		dob, err := parseDate(*raw)
		if err != nil {
			return u, err
		}
		u.DateOfBirth = &dob
	}
	return u, nil
}

func pick[T any](candidates ...*T) *T {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errBadDate
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// decodeValid decodes the JSON body into dst and validates it, writing a 400
// on failure.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			out := make([]fieldError, 0, len(verrs))
			for _, fe := range verrs {
				out = append(out, fieldError{Field: fe.Field(), Rule: fe.Tag()})
			}
			respondJSON(w, http.StatusBadRequest, map[string]any{"code": codeValidation, "errors": out})
			return false
		}
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return false
	}
	return true
}

func (s *Server) readUpdate(w http.ResponseWriter, r *http.Request) (model.StudentUpdate, bool) {
	var req studentUpdateRequest
	if !s.decodeValid(w, r, &req) {
		return model.StudentUpdate{}, false
	}
	update, err := req.toUpdate()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return model.StudentUpdate{}, false
	}
	return update, true
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	target := r.PathValue("username")
	explicit := target != ""
	if !explicit {
		target = id.Username
	}
	target = strings.ToUpper(target)
	if explicit && id.Role.IsStudent() && !strings.EqualFold(id.Username, target) {
		writeError(w, http.StatusForbidden, codeForbidden, "Access denied")
		return
	}
	view, source, err := s.deps.Profiles.GetStudent(r.Context(), profile.ReadRequest{
		Username:      target,
		Explicit:      explicit,
		Authorization: r.Header.Get("Authorization"),
	})
	if err != nil {
		writeStoreError(w, err, "Profile not found", "Failed to fetch profile")
		return
	}
	if source == profile.SourceDB {
		w.Header().Set("Cache-Control", "s-maxage=60, stale-while-revalidate=600")
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "student": view, "source": source})
}

func (s *Server) handleUpdateSelf(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	if !id.Role.IsStudent() {
		writeError(w, http.StatusForbidden, codeForbidden, "Access denied")
		return
	}
	update, ok := s.readUpdate(w, r)
	if !ok {
		return
	}
	view, err := s.deps.Profiles.UpdateSelf(r.Context(), id.ID, id.Username, update)
	if err != nil {
		writeStoreError(w, err, "Profile not found", "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "student": view})
}

func (s *Server) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, model.ManagementRoles); !ok {
		return
	}
	update, ok := s.readUpdate(w, r)
	if !ok {
		return
	}
	view, err := s.deps.Profiles.AdminUpdate(r.Context(), r.PathValue("username"), update)
	if err != nil {
		writeStoreError(w, err, "Student not found", "Failed to update student profile")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "student": view})
}

type presenceRequest struct {
	Username  string `json:"username" validate:"required"`
	IsPresent *bool  `json:"isPresent"`
	IsPending *bool  `json:"isPending"`
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	id := caller(r)
	if !id.Role.In(model.PresenceRoles) && !strings.EqualFold(id.Username, req.Username) {
		writeError(w, http.StatusForbidden, codeForbidden, "Access denied")
		return
	}
	view, err := s.deps.Profiles.SetPresence(r.Context(), req.Username, req.IsPresent, req.IsPending)
	if err != nil {
		writeStoreError(w, err, "Student not found", "Failed to update presence")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "student": view})
}

type searchRequest struct {
	Username          string `json:"username"`
	Branch            string `json:"branch"`
	Year              string `json:"year"`
	Gender            string `json:"gender"`
	IsPresentInCampus *bool  `json:"isPresentInCampus"`
	Page              int    `json:"page" validate:"gte=0,lte=100000"`
	Limit             int    `json:"limit" validate:"gte=0,lte=100"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if caller(r).Role.IsStudent() {
		writeError(w, http.StatusForbidden, codeForbidden, "Students cannot search other students")
		return
	}
	var req searchRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	res, err := s.deps.Profiles.Search(r.Context(), model.StudentFilter{
		Query:             strings.TrimSpace(req.Username),
		Branch:            req.Branch,
		Year:              req.Year,
		Gender:            req.Gender,
		IsPresentInCampus: req.IsPresentInCampus,
		Page:              req.Page,
		Limit:             req.Limit,
	})
	if err != nil {
		writeStoreError(w, err, "No students found", "Search failed")
		return
	}
	w.Header().Set("Cache-Control", "s-maxage=60, stale-while-revalidate=300")
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"students": res.Students,
		"pagination": map[string]int{
			"page":       res.Page,
			"totalPages": res.TotalPages,
			"total":      res.Total,
		},
	})
}
