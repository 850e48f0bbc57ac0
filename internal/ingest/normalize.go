// Package ingest implements bulk student onboarding from spreadsheet
// uploads: row normalization, chunked processing and progress publishing.
package ingest

import (
	"strings"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

// HeaderOffset converts a zero-based data row index into the 1-based sheet
// row number users see (the header occupies row 1).
const HeaderOffset = 2

// MissingIDMessage is recorded for rows without a student ID.
const MissingIDMessage = "Missing Student ID"

// Cell is one header/value pair of a sheet row.
type Cell struct {
	Header string
	Value  string
}

// Row is a sheet row in column order.
type Row []Cell

// Field names a canonical upload column.
type Field string

const (
	FieldID      Field = "id"
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldGender  Field = "gender"
	FieldBranch  Field = "branch"
	FieldYear    Field = "year"
	FieldSection Field = "section"
	FieldPhone   Field = "phone"
)

// Aliases maps each canonical field to the header labels accepted for it.
// Labels are compared case-insensitively after trimming.
type Aliases map[Field][]string

// DefaultAliases are the header labels accepted in student uploads.
var DefaultAliases = Aliases{
	FieldID:      {"student id", "studentid", "id", "username"},
	FieldName:    {"name", "student name"},
	FieldEmail:   {"email", "mail"},
	FieldGender:  {"gender", "sex"},
	FieldBranch:  {"branch", "department"},
	FieldYear:    {"year", "class"},
	FieldSection: {"section", "sec"},
	FieldPhone:   {"phone", "mobile"},
}

// Lookup returns the trimmed value of the first cell whose header matches
// any of aliases, or "" when none does.
func (r Row) Lookup(aliases []string) string {
	for _, cell := range r {
		header := strings.TrimSpace(cell.Header)
		for _, alias := range aliases {
			if strings.EqualFold(header, strings.TrimSpace(alias)) {
				return strings.TrimSpace(cell.Value)
			}
		}
	}
	return ""
}

// Normalize extracts the canonical upload fields from row.
func Normalize(row Row, aliases Aliases) model.UploadRow {
	get := func(f Field) string { return row.Lookup(aliases[f]) }
	return model.UploadRow{
		ID:      strings.ToUpper(get(FieldID)),
		Name:    get(FieldName),
		Email:   get(FieldEmail),
		Gender:  get(FieldGender),
		Branch:  strings.ToUpper(get(FieldBranch)),
		Year:    strings.ToUpper(get(FieldYear)),
		Section: strings.ToUpper(get(FieldSection)),
		Phone:   get(FieldPhone),
	}
}
