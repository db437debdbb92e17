// Package folder computes per-inspection output paths: the folder an
// inspection's report and attachments live in, and the filenames given to
// each of them.
package folder

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ingestkit/tipline/pkg/fieldmapper"
)

const (
	defaultFolderPattern     = "{abbreviation}/{year}/{month}/{date} {inspection_id}"
	defaultAttachmentPattern = "{abbreviation}_{inspection_id}_{date}_{stub}_{sequence}.jpg"
	maxSanitisedLength       = 100
)

var (
	illegalCharsRe = regexp.MustCompile(`[<>:"/\\|?*]`)
	controlWhitespaceRe = regexp.MustCompile(`[\t\r\n]+`)
	whitespaceRunRe     = regexp.MustCompile(`\s+`)
)

// Sanitise makes text safe to embed in a filename or folder component,
// replacing illegal characters with underscores and collapsing whitespace,
// while preserving the interior spaces of identifiers like "TA - 00014".
func Sanitise(text string) string {
	if text == "" {
		return "unknown"
	}
	s := illegalCharsRe.ReplaceAllString(text, "_")
	s = controlWhitespaceRe.ReplaceAllString(s, " ")
	s = whitespaceRunRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, "_ ")
	if len(s) > maxSanitisedLength {
		s = s[:maxSanitisedLength]
	}
	if s == "" {
		return "unknown"
	}
	return s
}

// Manager computes inspection folder paths and attachment filenames from a
// kind schema's configured patterns (or the package defaults).
type Manager struct {
	outputRoot string
}

// New creates a Manager rooted at outputRoot.
func New(outputRoot string) *Manager {
	return &Manager{outputRoot: outputRoot}
}

// InspectionFolder returns the folder path, under the manager's output root, for one inspection. If
// inspectionDate is nil, the date components fall back to
// "unknown_year"/"unknown_month"/"unknown_date".
func (m *Manager) InspectionFolder(schema *fieldmapper.KindSchema, inspectionDate *time.Time, inspectionID string) string {
	pattern := schema.FolderPattern
	if pattern == "" {
		pattern = defaultFolderPattern
	}

	year, month, date := "unknown_year", "unknown_month", "unknown_date"
	if inspectionDate != nil {
		year = inspectionDate.Format("2006")
		month = inspectionDate.Format("01")
		date = inspectionDate.Format("2006-01-02")
	}

	name := applyPattern(pattern, map[string]string{
		"abbreviation":  schema.Abbreviation,
		"year":          year,
		"month":         month,
		"date":          date,
		"inspection_id": Sanitise(inspectionID),
	})

	return filepath.Join(m.outputRoot, filepath.FromSlash(name))
}

// AttachmentFilename returns the filename (not a full path) for the
// sequence-th attachment of an inspection, 1-based. If inspectionDate is
// nil the date component is rendered as "unknown".
func (m *Manager) AttachmentFilename(schema *fieldmapper.KindSchema, inspectionDate *time.Time, inspectionID, stub string, sequence int) string {
	pattern := schema.AttachmentFilenamePattern
	if pattern == "" {
		pattern = defaultAttachmentPattern
	}

	date := "unknown"
	if inspectionDate != nil {
		date = inspectionDate.Format("20060102")
	}

	return applyPattern(pattern, map[string]string{
		"abbreviation":  schema.Abbreviation,
		"inspection_id": Sanitise(inspectionID),
		"date":          date,
		"stub":          stub,
		"sequence":      fmt.Sprintf("%03d", sequence),
	})
}

// ReportFilename returns the filename of the text report for an
// inspection, e.g. "LCD - 000123_inspection_data.txt".
func ReportFilename(inspectionID string) string {
	return Sanitise(inspectionID) + "_inspection_data.txt"
}

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

func applyPattern(pattern string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(pattern, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := values[name]; ok {
			return v
		}
		return match
	})
}
