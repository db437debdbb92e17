// Package report renders the per-inspection text report written into each
// record's output folder, using the small directive language the upstream
// payloads have always been formatted with: field substitution, truthy
// conditional blocks, and a handful of well-known special keys.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ingestkit/tipline/pkg/fieldmapper"
	"github.com/ingestkit/tipline/pkg/hashresolver"
)

// buildContext assembles the substitution context for one payload: every
// top-level field (dates formatted per the kind, missing values mapped to
// the unknown placeholder), the well-known special keys, and a
// "<field>_resolved" alias for each hash field.
func buildContext(ctx context.Context, schema *fieldmapper.KindSchema, payload map[string]any, resolver *hashresolver.Resolver, tip, inspectionID string) (map[string]any, error) {
	rendered, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling payload for report: %w", err)
	}

	dateFields := map[string]struct{}{"date": {}}
	for _, f := range schema.Fields {
		if f.Type == fieldmapper.TypeDatetime {
			dateFields[f.Upstream] = struct{}{}
		}
	}

	c := map[string]any{
		"generation_date":   time.Now().Format("02-01-2006"),
		"full_name":         strings.ToUpper(schema.FullName),
		"abbreviation":      schema.Abbreviation,
		"attachment_count":  attachmentCount(payload),
		"json_payload":      string(rendered),
	}

	for key, value := range payload {
		if key == "$meta" {
			continue
		}
		if _, isDate := dateFields[key]; isDate {
			if s, ok := value.(string); ok && s != "" {
				c[key] = formatDate(s, schema.DateFormat, schema.UnknownPlaceholder)
				continue
			}
		}
		if value == nil {
			c[key] = schema.UnknownPlaceholder
			continue
		}
		c[key] = value
	}

	for _, f := range schema.Fields {
		if f.Type != fieldmapper.TypeHash {
			continue
		}
		raw, present := payload[f.Upstream]
		if !present || raw == nil {
			continue
		}
		hashValue := fmt.Sprintf("%v", raw)
		resolved, err := resolver.Lookup(ctx, f.HashType, hashValue, tip, inspectionID)
		if err != nil {
			return nil, fmt.Errorf("resolving hash field %s for report: %w", f.Upstream, err)
		}
		c[f.Upstream+"_resolved"] = resolved
	}

	return c, nil
}

func attachmentCount(payload map[string]any) int {
	raw, ok := payload["attachments"]
	if !ok {
		return 0
	}
	list, ok := raw.([]any)
	if !ok {
		return 0
	}
	return len(list)
}

func formatDate(value, layout, unknownPlaceholder string) string {
	normalized := strings.ReplaceAll(value, "Z", "+00:00")
	for _, l := range []string{
		"2006-01-02T15:04:05.999999-07:00",
		"2006-01-02T15:04:05-07:00",
		"2006-01-02",
	} {
		if t, err := time.Parse(l, normalized); err == nil {
			return t.Format(layout)
		}
	}
	if value == "" {
		return unknownPlaceholder
	}
	return value
}
