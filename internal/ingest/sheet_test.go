package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateParsesBack(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	rows, err := ParseSheet("template.xlsx", data)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := Normalize(rows[0], DefaultAliases)
	assert.Equal(t, "O210000", got.ID)
	assert.Equal(t, "ExampleStudent", got.Name)
	assert.Equal(t, "CSE", got.Branch)
	assert.Equal(t, "E1", got.Year)
	assert.Equal(t, "A", got.Section)
	assert.Equal(t, "9876543210", got.Phone)
}

func TestParseSheetCSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfStudent ID,Name,Branch\nO210001,Anu,cse\n,,\nO210002,Ravi\n")
	rows, err := ParseSheet("students.csv", data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "O210001", Normalize(rows[0], DefaultAliases).ID)
	second := Normalize(rows[1], DefaultAliases)
	assert.Equal(t, "O210002", second.ID)
	assert.Empty(t, second.Branch)
}

func TestParseSheetHeaderOnly(t *testing.T) {
	rows, err := ParseSheet("empty.csv", []byte("Student ID,Name\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseSheetRejectsGarbage(t *testing.T) {
	_, err := ParseSheet("upload.xlsx", []byte("PK\x03\x04not really a zip"))
	assert.ErrorIs(t, err, ErrInvalidSheet)

	_, err = ParseSheet("upload.bin", []byte{0xff, 0xfe, 0x00, 0x81})
	assert.ErrorIs(t, err, ErrInvalidSheet)
}

func TestParseSheetRejectsLegacyXLS(t *testing.T) {
	biff := []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	_, err := ParseSheet("students.xls", biff)
	assert.ErrorIs(t, err, ErrInvalidSheet)
}
