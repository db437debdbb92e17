package report

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ingestkit/tipline/pkg/fieldmapper"
)

var (
	capitalRe       = regexp.MustCompile(`([A-Z])`)
	consecutiveCapRe = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
)

// renderFallback emits a simple header-plus-field-list report when the kind
// has no configured template.
func (r *Renderer) renderFallback(ctx context.Context, schema *fieldmapper.KindSchema, payload map[string]any, tip, inspectionID string) (string, error) {
	var lines []string
	lines = append(lines,
		strings.Repeat("=", 60),
		strings.ToUpper(schema.FullName),
		fmt.Sprintf("RECORD GENERATED: %s", time.Now().Format("02-01-2006")),
		strings.Repeat("=", 60),
		"",
	)

	for _, field := range schema.Fields {
		value, present := payload[field.Upstream]
		if !present || value == nil {
			continue
		}
		label := titleCaseFieldName(field.Upstream)

		switch field.Type {
		case fieldmapper.TypeHash:
			hashValue := fmt.Sprintf("%v", value)
			resolved, err := r.resolver.Lookup(ctx, field.HashType, hashValue, tip, inspectionID)
			if err != nil {
				return "", fmt.Errorf("resolving hash field %s for fallback report: %w", field.Upstream, err)
			}
			lines = append(lines, fmt.Sprintf("%s: %s", label, resolved))
		case fieldmapper.TypeBool:
			lines = append(lines, fmt.Sprintf("%s: %s", label, yesNo(value)))
		case fieldmapper.TypeDatetime:
			s, _ := value.(string)
			lines = append(lines, fmt.Sprintf("%s: %s", label, formatDate(s, schema.DateFormat, schema.UnknownPlaceholder)))
		default:
			lines = append(lines, fmt.Sprintf("%s: %v", label, value))
		}
	}

	lines = append(lines, "", fmt.Sprintf("Attachments: %d", attachmentCount(payload)), "")

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling payload for fallback report: %w", err)
	}
	lines = append(lines,
		strings.Repeat("-", 60),
		"COMPLETE TECHNICAL DATA (JSON FORMAT)",
		strings.Repeat("-", 60),
		"",
		string(encoded),
	)

	return strings.Join(lines, "\n"), nil
}

func yesNo(value any) string {
	b, _ := value.(bool)
	if b {
		return "Yes"
	}
	return "No"
}

// titleCaseFieldName converts a camelCase upstream field name into a
// spaced, title-cased label, e.g. "driverName" -> "Driver Name".
func titleCaseFieldName(name string) string {
	spaced := capitalRe.ReplaceAllString(name, " $1")
	spaced = consecutiveCapRe.ReplaceAllString(spaced, "$1 $2")
	spaced = strings.TrimSpace(spaced)
	words := strings.Fields(spaced)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
