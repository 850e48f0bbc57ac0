package s3storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 7, 3, 10, 4, 5, 0, time.FixedZone("IST", 19800))
	assert.Equal(t, "uploads/dean/20240703T043405Z-batch.xlsx", ObjectKey("dean", "batch.xlsx", at))
	assert.Equal(t, "uploads/dean/20240703T043405Z-batch.csv", ObjectKey("dean", `C:\Users\dean\batch.csv`, at))
	assert.Equal(t, "uploads/hod/20240703T043405Z-upload", ObjectKey("hod", "", at))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, csvContentType, contentType("students.CSV"))
	assert.Equal(t, xlsxContentType, contentType("students.xlsx"))
}
