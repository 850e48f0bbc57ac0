package model

// UploadRow is a canonicalized spreadsheet row. ID, Branch, Year and Section
// are upper-cased.
type UploadRow struct {
	ID      string
	Name    string
	Email   string
	Gender  string
	Branch  string
	Year    string
	Section string
	Phone   string
}

// CredentialRequest asks the auth service to create a login for a student.
type CredentialRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Email    string `json:"email"`
}

// NewStudentCredential builds the default credential for an uploaded row:
// the student ID is both username and password.
func NewStudentCredential(row UploadRow) CredentialRequest {
	return CredentialRequest{
		Username: row.ID,
		Password: row.ID,
		Role:     string(RoleStudent),
		Email:    row.Email,
	}
}
