// Package model contains the profile types shared across packages.
package model

// Role is the caller role carried in the bearer token.
type Role string

const (
	RoleStudent Role = "student"

	RoleTeacher Role = "teacher"
	RoleHOD     Role = "hod"

	RoleWebmaster Role = "webmaster"
	RoleDean      Role = "dean"
	RoleDirector  Role = "director"

	RoleSWO             Role = "swo"
	RoleWardenMale      Role = "warden_male"
	RoleWardenFemale    Role = "warden_female"
	RoleCaretakerMale   Role = "caretaker_male"
	RoleCaretakerFemale Role = "caretaker_female"

	RoleSecurity  Role = "security"
	RoleLibrarian Role = "librarian"

	// Legacy roles still present in older tokens.
	RoleDSW       Role = "dsw"
	RoleWarden    Role = "warden"
	RoleCaretaker Role = "caretaker"
)

var (
	// ManagementRoles may edit any student and create faculty profiles.
	ManagementRoles = []Role{RoleWebmaster, RoleDean, RoleDirector}

	// FacultyRoles own a faculty profile.
	FacultyRoles = []Role{RoleTeacher, RoleHOD}

	// AdminRoles own an admin profile.
	AdminRoles = []Role{
		RoleWebmaster, RoleDean, RoleDirector, RoleSWO,
		RoleWardenMale, RoleWardenFemale, RoleCaretakerMale, RoleCaretakerFemale,
		RoleSecurity, RoleLibrarian,
		RoleDSW, RoleWarden, RoleCaretaker,
	}

	// PresenceRoles may flip a student's campus presence flags.
	PresenceRoles = []Role{
		RoleWebmaster, RoleDean, RoleDirector, RoleSWO,
		RoleWardenMale, RoleWardenFemale, RoleCaretakerMale, RoleCaretakerFemale,
		RoleSecurity,
	}
)

// IsStudent reports whether the role is the plain profile subject role.
func (r Role) IsStudent() bool {
	return r == RoleStudent
}

// In reports whether r is one of roles.
func (r Role) In(roles []Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
