package model

import (
	"time"
)

// StudentProfile is the persisted student record. Username is the unique key
// and doubles as the student ID.
type StudentProfile struct {
	ID                   string
	Username             string
	Name                 string
	Email                string
	Gender               string
	Branch               string
	Year                 string
	Section              string
	RoomNo               string
	Phone                string
	BloodGroup           string
	DateOfBirth          *time.Time
	FatherName           string
	MotherName           string
	FatherOccupation     string
	MotherOccupation     string
	FatherEmail          string
	MotherEmail          string
	FatherAddress        string
	MotherAddress        string
	ProfileURL           string
	IsPresentInCampus    bool
	IsApplicationPending bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// StudentView is the wire shape of a student profile. Grades and attendance
// are fetched on read and never persisted.
type StudentView struct {
	ID                 string     `json:"_id"`
	Username           string     `json:"username"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Gender             string     `json:"gender"`
	Year               string     `json:"year"`
	Branch             string     `json:"branch"`
	Section            string     `json:"section"`
	RoomNo             string     `json:"roomno"`
	HasPendingRequests bool       `json:"has_pending_requests"`
	IsInCampus         bool       `json:"is_in_campus"`
	BloodGroup         string     `json:"blood_group"`
	PhoneNumber        string     `json:"phone_number"`
	DateOfBirth        *time.Time `json:"date_of_birth"`
	FatherName         string     `json:"father_name"`
	MotherName         string     `json:"mother_name"`
	FatherOccupation   string     `json:"father_occupation"`
	MotherOccupation   string     `json:"mother_occupation"`
	FatherEmail        string     `json:"father_email"`
	MotherEmail        string     `json:"mother_email"`
	FatherAddress      string     `json:"father_address"`
	MotherAddress      string     `json:"mother_address"`
	ProfileURL         string     `json:"profile_url"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Grades            any `json:"grades,omitempty"`
	GPASummary        any `json:"gpa_summary,omitempty"`
	Attendance        any `json:"attendance,omitempty"`
	AttendanceSummary any `json:"attendance_summary,omitempty"`
}

// View maps the persisted record onto its wire shape.
func (p *StudentProfile) View() *StudentView {
	return &StudentView{
		ID:                 p.ID,
		Username:           p.Username,
		Name:               p.Name,
		Email:              p.Email,
		Gender:             p.Gender,
		Year:               p.Year,
		Branch:             p.Branch,
		Section:            p.Section,
		RoomNo:             p.RoomNo,
		HasPendingRequests: p.IsApplicationPending,
		IsInCampus:         p.IsPresentInCampus,
		BloodGroup:         p.BloodGroup,
		PhoneNumber:        p.Phone,
		DateOfBirth:        p.DateOfBirth,
		FatherName:         p.FatherName,
		MotherName:         p.MotherName,
		FatherOccupation:   p.FatherOccupation,
		MotherOccupation:   p.MotherOccupation,
		FatherEmail:        p.FatherEmail,
		MotherEmail:        p.MotherEmail,
		FatherAddress:      p.FatherAddress,
		MotherAddress:      p.MotherAddress,
		ProfileURL:         p.ProfileURL,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// StudentUpdate carries the mutable student fields. Nil pointers are left
// untouched.
type StudentUpdate struct {
	Name                 *string
	Email                *string
	Gender               *string
	Phone                *string
	BloodGroup           *string
	DateOfBirth          *time.Time
	ProfileURL           *string
	FatherName           *string
	MotherName           *string
	FatherOccupation     *string
	MotherOccupation     *string
	FatherEmail          *string
	MotherEmail          *string
	FatherAddress        *string
	MotherAddress        *string
	RoomNo               *string
	Branch               *string
	Year                 *string
	Section              *string
	IsPresentInCampus    *bool
	IsApplicationPending *bool
}

// Columns returns the non-nil fields keyed by column name.
func (u StudentUpdate) Columns() map[string]any {
	cols := make(map[string]any)
	set := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	set("name", u.Name)
	set("email", u.Email)
	set("gender", u.Gender)
	set("phone", u.Phone)
	set("blood_group", u.BloodGroup)
	set("profile_url", u.ProfileURL)
	set("father_name", u.FatherName)
	set("mother_name", u.MotherName)
	set("father_occupation", u.FatherOccupation)
	set("mother_occupation", u.MotherOccupation)
	set("father_email", u.FatherEmail)
	set("mother_email", u.MotherEmail)
	set("father_address", u.FatherAddress)
	set("mother_address", u.MotherAddress)
	set("roomno", u.RoomNo)
	set("branch", u.Branch)
	set("year", u.Year)
	set("section", u.Section)
	if u.DateOfBirth != nil {
		cols["date_of_birth"] = *u.DateOfBirth
	}
	if u.IsPresentInCampus != nil {
		cols["is_present_in_campus"] = *u.IsPresentInCampus
	}
	if u.IsApplicationPending != nil {
		cols["is_application_pending"] = *u.IsApplicationPending
	}
	return cols
}

// StudentFilter holds the search criteria for staff lookups.
type StudentFilter struct {
	Query             string
	Branch            string
	Year              string
	Gender            string
	IsPresentInCampus *bool
	Page              int
	Limit             int
}

// FacultyProfile is a teacher or head of department record.
type FacultyProfile struct {
	ID          string    `json:"id"`
	Username    string    `json:"Username"`
	Name        string    `json:"Name"`
	Email       string    `json:"Email"`
	Department  string    `json:"Department"`
	Designation string    `json:"Designation"`
	Role        string    `json:"Role"`
	Contact     string    `json:"Contact"`
	ProfileURL  string    `json:"ProfileUrl"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// AdminProfile is an administrative staff record.
type AdminProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Banner is a promotional banner shown to students once published.
type Banner struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	ImageURL    string    `json:"imageUrl"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
