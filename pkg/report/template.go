package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ifOpenRe     = regexp.MustCompile(`<if:(\w+)>`)
	placeholdRe  = regexp.MustCompile(`<(\w+)>`)
	blankRunsRe  = regexp.MustCompile(`\n{3,}`)
)

const maxConditionalPasses = 10

// render processes template's conditional blocks and field placeholders
// against context, then collapses runs of three or more blank lines.
func render(template string, context map[string]any, unknownPlaceholder string) string {
	body := processConditionals(template, context, unknownPlaceholder)
	body = replacePlaceholders(body, context, unknownPlaceholder)
	return blankRunsRe.ReplaceAllString(body, "\n\n")
}

// processConditionals evaluates <if:field>...</if:field> blocks. Go's RE2
// engine has no backreferences, so each opening tag's matching close is
// found by scanning forward for "</if:<samename>>" rather than a single
// regex; re-running the scan up to maxConditionalPasses times resolves
// differently-named nested blocks the way a single backreferenced regex
// pass would, re-applied until no <if: tags remain.
func processConditionals(template string, context map[string]any, unknownPlaceholder string) string {
	for pass := 0; pass < maxConditionalPasses; pass++ {
		if !strings.Contains(template, "<if:") {
			break
		}
		next, changed := conditionalPass(template, context, unknownPlaceholder)
		template = next
		if !changed {
			break
		}
	}
	return template
}

func conditionalPass(template string, context map[string]any, unknownPlaceholder string) (string, bool) {
	var sb strings.Builder
	i := 0
	changed := false

	for i < len(template) {
		loc := ifOpenRe.FindStringSubmatchIndex(template[i:])
		if loc == nil {
			sb.WriteString(template[i:])
			break
		}
		start := i + loc[0]
		nameStart := i + loc[2]
		nameEnd := i + loc[3]
		openEnd := i + loc[1]
		name := template[nameStart:nameEnd]

		sb.WriteString(template[i:start])

		closeTag := "</if:" + name + ">"
		closeIdx := strings.Index(template[openEnd:], closeTag)
		if closeIdx == -1 {
			// No matching close tag; leave the opening tag as-is.
			sb.WriteString(template[start:openEnd])
			i = openEnd
			continue
		}

		content := template[openEnd : openEnd+closeIdx]
		blockEnd := openEnd + closeIdx + len(closeTag)
		if evaluateCondition(name, context, unknownPlaceholder) {
			sb.WriteString(content)
		}
		changed = true
		i = blockEnd
	}

	return sb.String(), changed
}

func evaluateCondition(name string, context map[string]any, unknownPlaceholder string) bool {
	value, ok := context[name]
	if !ok || value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != "" && v != unknownPlaceholder
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case time.Time:
		return !v.IsZero()
	default:
		return true
	}
}

// replacePlaceholders substitutes <field_name> with its context value.
// Because </if:...> and <if:...> contain a colon, which \w doesn't match,
// the single pattern below never matches a conditional tag.
func replacePlaceholders(template string, context map[string]any, unknownPlaceholder string) string {
	return placeholdRe.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		value, ok := context[name]
		if !ok || value == nil {
			return unknownPlaceholder
		}
		switch v := value.(type) {
		case bool:
			if v {
				return "Yes"
			}
			return "No"
		case time.Time:
			return v.Format("2006-01-02 15:04:05")
		case map[string]any, []any:
			encoded, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return fmt.Sprintf("%v", v)
			}
			return string(encoded)
		default:
			return fmt.Sprintf("%v", v)
		}
	})
}
