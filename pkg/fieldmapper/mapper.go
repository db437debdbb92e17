package fieldmapper

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/pkg/hashresolver"
)

// Result is the output of mapping one upstream payload against a
// KindSchema: the store columns it produced, the inspection identity
// extracted along the way, and whether any hash field failed to resolve.
type Result struct {
	InspectionID      string
	InspectionDate    *time.Time
	Columns           map[string]any
	HasUnknownHashes  bool
	UnknownHashFields []string
}

// Mapper extracts KindSchema-described fields from upstream JSON payloads,
// resolving hash fields through a Resolver.
type Mapper struct {
	resolver *hashresolver.Resolver
}

// New creates a Mapper backed by resolver for hash field lookups.
func New(resolver *hashresolver.Resolver) *Mapper {
	return &Mapper{resolver: resolver}
}

// ExtractAll walks every FieldMapping in schema against payload, producing
// the mapped store columns plus the id/date fields every kind carries.
func (m *Mapper) ExtractAll(ctx context.Context, schema *KindSchema, payload map[string]any, tip string) (*Result, error) {
	inspectionID := stringOrEmpty(payload[schema.IDField.Upstream])
	if inspectionID == "" {
		inspectionID = "unknown"
	}

	result := &Result{
		InspectionID: inspectionID,
		Columns:      make(map[string]any, len(schema.Fields)+2),
	}
	result.Columns[schema.IDField.Column] = inspectionID

	if dateStr := stringOrEmpty(payload[schema.DateField]); dateStr != "" {
		if parsed, err := parseISODatetime(dateStr); err == nil {
			result.InspectionDate = &parsed
		} else {
			logger.WarnCtx(ctx, "could not parse inspection date",
				logger.TIP(tip), logger.InspectionID(inspectionID), logger.Err(err))
		}
	}

	for _, field := range schema.Fields {
		raw, present := payload[field.Upstream]
		if !present || raw == nil {
			result.Columns[field.Column] = nil
			continue
		}

		if field.Type == TypeHash {
			hashValue := stringOrEmpty(raw)
			if hashValue == "" {
				result.Columns[field.Column] = nil
				continue
			}
			resolved, err := m.resolver.Lookup(ctx, field.HashType, hashValue, tip, inspectionID)
			if err != nil {
				return nil, fmt.Errorf("resolving hash field %s: %w", field.Upstream, err)
			}
			result.Columns[field.Column] = hashValue
			resolvedColumn := resolvedColumnName(field.Column)
			result.Columns[resolvedColumn] = resolved
			if strings.HasPrefix(resolved, "Unknown") {
				result.HasUnknownHashes = true
				result.UnknownHashFields = append(result.UnknownHashFields, field.Upstream)
			}
			continue
		}

		value, err := convertValue(field.Type, raw)
		if err != nil {
			logger.WarnCtx(ctx, "could not convert field value, storing null",
				logger.TIP(tip), logger.Operation(field.Upstream), logger.Err(err))
			result.Columns[field.Column] = nil
			continue
		}
		result.Columns[field.Column] = value
	}

	return result, nil
}

// ColumnsJSON serializes the mapped columns for storage in WorkItem's
// MappedColumns field.
func (r *Result) ColumnsJSON() (string, error) {
	encoded, err := json.Marshal(r.Columns)
	if err != nil {
		return "", fmt.Errorf("serializing mapped columns: %w", err)
	}
	return string(encoded), nil
}

// resolvedColumnName strips the "_hash" suffix to find the column where a
// hash's human-readable value is stored.
func resolvedColumnName(column string) string {
	return strings.TrimSuffix(column, "_hash")
}

func convertValue(t ValueType, raw any) (any, error) {
	switch t {
	case TypeString:
		s := stringOrEmpty(raw)
		if s == "" {
			return nil, nil
		}
		return s, nil

	case TypeDatetime:
		s, ok := raw.(string)
		if !ok {
			return raw, nil
		}
		parsed, err := parseISODatetime(s)
		if err != nil {
			return nil, nil
		}
		return parsed, nil

	case TypeBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			lower := strings.ToLower(v)
			return lower == "true" || lower == "yes" || lower == "1", nil
		default:
			return truthy(raw), nil
		}

	case TypeInt:
		switch v := raw.(type) {
		case float64:
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, nil
			}
			return n, nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		default:
			return nil, fmt.Errorf("unsupported int value %T", raw)
		}

	case TypeFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, nil
			}
			return f, nil
		default:
			return nil, fmt.Errorf("unsupported float value %T", raw)
		}

	case TypeJSON:
		switch raw.(type) {
		case map[string]any, []any:
			encoded, err := json.Marshal(raw)
			if err != nil {
				return nil, err
			}
			return string(encoded), nil
		default:
			return stringOrEmpty(raw), nil
		}

	default:
		return raw, nil
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

func stringOrEmpty(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func parseISODatetime(s string) (time.Time, error) {
	normalized := strings.ReplaceAll(s, "Z", "+00:00")
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999-07:00",
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime format: %s", s)
}
