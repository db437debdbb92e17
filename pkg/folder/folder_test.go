package folder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ingestkit/tipline/pkg/fieldmapper"
	"github.com/ingestkit/tipline/pkg/folder"
)

func testSchema() *fieldmapper.KindSchema {
	schema := &fieldmapper.KindSchema{Abbreviation: "LCD"}
	schema.ApplyDefaults()
	return schema
}

func TestInspectionFolderUsesDateComponents(t *testing.T) {
	m := folder.New("/data/out")
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	got := m.InspectionFolder(testSchema(), &date, "LCD - 000123")
	assert.Equal(t, "/data/out/LCD/2025/06/2025-06-15 LCD - 000123", got)
}

func TestInspectionFolderFallsBackWhenDateMissing(t *testing.T) {
	m := folder.New("/data/out")

	got := m.InspectionFolder(testSchema(), nil, "LCD-1")
	assert.Equal(t, "/data/out/LCD/unknown_year/unknown_month/unknown_date LCD-1", got)
}

func TestAttachmentFilenameZeroPadsSequence(t *testing.T) {
	m := folder.New("/data/out")
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	got := m.AttachmentFilename(testSchema(), &date, "LCD - 000123", "photo", 1)
	assert.Equal(t, "LCD_LCD - 000123_20250615_photo_001.jpg", got)
}

func TestAttachmentFilenameUnknownDate(t *testing.T) {
	m := folder.New("/data/out")

	got := m.AttachmentFilename(testSchema(), nil, "LCD-1", "photo", 12)
	assert.Equal(t, "LCD_LCD-1_unknown_photo_012.jpg", got)
}

func TestReportFilename(t *testing.T) {
	assert.Equal(t, "LCD - 000123_inspection_data.txt", folder.ReportFilename("LCD - 000123"))
}

func TestSanitiseReplacesIllegalCharsAndPreservesInteriorSpaces(t *testing.T) {
	assert.Equal(t, "TA - 00014", folder.Sanitise("TA - 00014"))
	assert.Equal(t, "a_b_c", folder.Sanitise(`a<b>c`))
	assert.Equal(t, "unknown", folder.Sanitise(""))
}

func TestSanitiseCollapsesWhitespaceAndTrims(t *testing.T) {
	assert.Equal(t, "a b", folder.Sanitise("  a   b  "))
}

func TestSanitiseTruncatesTo100Chars(t *testing.T) {
	long := ""
	for i := 0; i < 150; i++ {
		long += "x"
	}
	assert.Len(t, folder.Sanitise(long), 100)
}

func TestSanitiseIsAFixpoint(t *testing.T) {
	inputs := []string{"TA - 00014", `weird<>:"/\|?*name`, "  spaced  out  ", ""}
	for _, in := range inputs {
		once := folder.Sanitise(in)
		twice := folder.Sanitise(once)
		assert.Equal(t, once, twice, "sanitising %q twice should be idempotent", in)
	}
}
