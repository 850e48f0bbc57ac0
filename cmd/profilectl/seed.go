package main

import "github.com/dharsanguruparan/uniz-user-service/internal/model"

var seedAdminRoles = []model.Role{
	model.RoleSecurity,
	model.RoleDean,
	model.RoleWardenMale,
	model.RoleWardenFemale,
	model.RoleCaretakerMale,
	model.RoleCaretakerFemale,
	model.RoleWebmaster,
	model.RoleDirector,
	model.RoleSWO,
	model.RoleLibrarian,
}

// seedAdmins returns one admin account per role, named after the role.
func seedAdmins() []model.AdminProfile {
	admins := make([]model.AdminProfile, 0, len(seedAdminRoles))
	for _, role := range seedAdminRoles {
		name := string(role)
		admins = append(admins, model.AdminProfile{
			ID:       "admin_" + name + "_01",
			Username: name,
			Email:    name + "@uniz.com",
			Role:     name,
		})
	}
	return admins
}

var seedStudents = []model.UploadRow{
	{ID: "O210008", Name: "Sample Student A", Email: "o210008@rguktong.ac.in", Gender: "Male", Branch: "CSE", Year: "E2", Section: "C"},
	{ID: "O210329", Name: "Sample Student B", Email: "o210329@rguktong.ac.in", Gender: "Male", Branch: "CSE", Year: "E2", Section: "C"},
	{ID: "O210139", Name: "Sample Student C", Email: "o210139@rguktong.ac.in", Gender: "Male", Branch: "CSE", Year: "E2", Section: "D"},
	{ID: "O210829", Name: "Sample Student D", Email: "o210829@rguktong.ac.in", Gender: "Male", Branch: "CSE", Year: "E2", Section: "D"},
}
