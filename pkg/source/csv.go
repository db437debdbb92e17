// Package source discovers new inspection records for the pipeline: it
// pulls CSV exports from an SFTP drop or a local directory, detects which
// kind each file belongs to, and inserts one pending WorkItem per row.
package source

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// kindRegistry maps the id-column header that identifies a kind to its
// abbreviation, matched case-insensitively against the CSV header row.
var kindRegistry = map[string]string{
	"couplingid":                   "CCC",
	"forkliftprestartinspectionid": "FPI",
	"lcsinspectionid":              "LCS",
	"lcdinspectionid":              "LCD",
	"siteobservationid":            "SO",
	"trailerauditid":               "TA",
}

// dateFormats are the layouts accepted in a CSV date column, tried in
// order until one parses.
var dateFormats = []string{
	"02-Jan-06",
	"02-Jan-2006",
	"02/01/2006",
	"02/01/06",
	"2006-01-02",
	"02-01-2006",
	"02-01-06",
}

// Row is one extracted CSV record: the TIP plus whatever identity and
// date metadata the row carried.
type Row struct {
	TIP            string
	InspectionID   string
	InspectionDate *time.Time
	LineNumber     int
}

// ErrKindNotDetected reports that no header in a CSV file matched the kind
// registry; the caller should quarantine the file.
type ErrKindNotDetected struct {
	Headers []string
}

func (e *ErrKindNotDetected) Error() string {
	return fmt.Sprintf("no known id column found in headers: %v", e.Headers)
}

// ParsedFile is one CSV file's detected kind plus its extracted rows.
type ParsedFile struct {
	Abbreviation string
	IDColumn     string
	Rows         []Row
}

// Parse reads the full CSV in a single pass: it detects the kind from the
// header row, then extracts every data row against that kind's id column.
// Returns *ErrKindNotDetected if no header matches the kind registry.
func Parse(r io.Reader) (*ParsedFile, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv headers: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	abbreviation, idColumn := "", ""
	for _, h := range headers {
		if abbrev, ok := kindRegistry[strings.ToLower(h)]; ok {
			abbreviation, idColumn = abbrev, h
			break
		}
	}
	if abbreviation == "" {
		return nil, &ErrKindNotDetected{Headers: headers}
	}

	idIndex := findColumn(headers, idColumn)
	dateIndex := -1
	for i, h := range headers {
		if strings.Contains(strings.ToLower(h), "date") {
			dateIndex = i
			break
		}
	}

	var rows []Row
	lineNumber := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", lineNumber+1, err)
		}
		lineNumber++

		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := Row{TIP: strings.TrimSpace(record[0]), LineNumber: lineNumber}

		if idIndex >= 0 && idIndex < len(record) {
			if id := strings.TrimSpace(record[idIndex]); id != "" {
				row.InspectionID = id
			}
		}

		if dateIndex >= 0 && dateIndex < len(record) {
			if raw := strings.TrimSpace(record[dateIndex]); raw != "" {
				if parsed, ok := ParseDate(raw); ok {
					row.InspectionDate = &parsed
				}
			}
		}

		rows = append(rows, row)
	}

	return &ParsedFile{Abbreviation: abbreviation, IDColumn: idColumn, Rows: rows}, nil
}

// ParseDate tries every accepted layout in turn, returning ok=false if
// none match.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func findColumn(headers []string, name string) int {
	target := strings.ToLower(strings.TrimSpace(name))
	for i, h := range headers {
		if strings.ToLower(strings.TrimSpace(h)) == target {
			return i
		}
	}
	return -1
}

// stripBOM wraps r in a reader that discards a leading UTF-8 byte-order
// mark, which some upstream CSV exports carry.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	bom, err := br.Peek(3)
	if err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}
