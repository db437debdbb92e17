// Package attachment discovers, downloads, and validates the media files
// referenced by an inspection payload.
package attachment

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strings"

	"github.com/ingestkit/tipline/pkg/fieldmapper"
)

const mediaURLMarker = "/media/file"

// Info describes one discovered attachment ready for download.
type Info struct {
	URL             string
	FieldName       string
	Stub            string
	SequenceInField int
	AttachmentTIP   string
}

// Extract walks payload's top-level keys (skipping any beginning with "$")
// looking for scalar or list-of-string values containing a media URL,
// yielding one Info per URL found, globally enumerated in field-name order.
// Go's map iteration order is randomized per run, so fieldNames are sorted
// first to make extraction order reproducible across runs of the same
// payload.
func Extract(schema *fieldmapper.KindSchema, payload map[string]any) []Info {
	fieldNames := make([]string, 0, len(payload))
	for fieldName := range payload {
		fieldNames = append(fieldNames, fieldName)
	}
	sort.Strings(fieldNames)

	var infos []Info
	for _, fieldName := range fieldNames {
		if strings.HasPrefix(fieldName, "$") {
			continue
		}
		urls := urlsFromValue(payload[fieldName])
		if len(urls) == 0 {
			continue
		}

		stub, ok := schema.AttachmentStub(fieldName)
		if !ok {
			stub = generateStub(fieldName)
		}

		for i, url := range urls {
			infos = append(infos, Info{
				URL:             url,
				FieldName:       fieldName,
				Stub:            stub,
				SequenceInField: i + 1,
				AttachmentTIP:   tipFromURL(url),
			})
		}
	}

	return infos
}

func urlsFromValue(value any) []string {
	switch v := value.(type) {
	case string:
		if strings.Contains(v, mediaURLMarker) {
			return []string{v}
		}
	case []any:
		var urls []string
		for _, item := range v {
			s, ok := item.(string)
			if ok && strings.Contains(s, mediaURLMarker) {
				urls = append(urls, s)
			}
		}
		return urls
	}
	return nil
}

// tipFromURL pulls the "tip=" query parameter out of a media URL, falling
// back to a stable hash of the URL when absent.
func tipFromURL(url string) string {
	if idx := strings.Index(url, "tip="); idx != -1 {
		rest := url[idx+len("tip="):]
		if amp := strings.IndexByte(rest, '&'); amp != -1 {
			rest = rest[:amp]
		}
		return rest
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(url))
	return fmt.Sprintf("unknown_%d", h.Sum32()%10000)
}

// stripPatterns are ordered suffix rewrites: trailer numbering, the
// bare-PT default, the YT boolean suffix, and the numbered observation
// arrays.
var stripPatterns = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`PT(\d)$`), "-t$1"},
	{regexp.MustCompile(`PT$`), "-t2"},
	{regexp.MustCompile(`YT\d$`), ""},
	{regexp.MustCompile(`^attachments(\d+)$`), "obs$1"},
}

var stripPrefixes = []string{
	"contactBetweenThe",
	"isThe", "hasThe", "haveThe", "areThe",
	"is", "has", "have", "are",
}

var removeWords = map[string]struct{}{
	"fully": {}, "engaged": {}, "and": {}, "the": {}, "been": {}, "into": {}, "place": {},
}

const maxStubLength = 30

var (
	camelBoundaryRe   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	acronymBoundaryRe = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	dashRunRe         = regexp.MustCompile(`-+`)
	trailerSuffixRe   = regexp.MustCompile(`-t\d$`)
)

// generateStub auto-derives a filename stub from a camelCase upstream
// field name, e.g. "contactBetweenTheSkidPlateTurntablePT1" ->
// "skid-plate-turntable-t1".
func generateStub(fieldName string) string {
	stub := fieldName
	for _, p := range stripPatterns {
		stub = p.pattern.ReplaceAllString(stub, p.replace)
	}

	for _, prefix := range stripPrefixes {
		if strings.HasPrefix(stub, prefix) && len(stub) > len(prefix) {
			rest := stub[len(prefix):]
			stub = strings.ToLower(rest[:1]) + rest[1:]
			break
		}
	}

	stub = camelToKebab(stub)

	parts := strings.Split(stub, "-")
	kept := parts[:0]
	for _, p := range parts {
		if _, skip := removeWords[strings.ToLower(p)]; !skip {
			kept = append(kept, p)
		}
	}
	stub = strings.Join(kept, "-")

	stub = dashRunRe.ReplaceAllString(stub, "-")
	stub = strings.Trim(stub, "-")

	if len(stub) > maxStubLength {
		stub = truncateStub(stub)
	}

	if stub == "" {
		return "attachment"
	}
	return stub
}

func truncateStub(stub string) string {
	trailerSuffix := ""
	if loc := trailerSuffixRe.FindStringIndex(stub); loc != nil {
		trailerSuffix = stub[loc[0]:]
		stub = stub[:loc[0]]
	}

	maxLen := maxStubLength - len(trailerSuffix)
	if len(stub) > maxLen && maxLen > 0 {
		truncated := stub[:maxLen]
		if lastDash := strings.LastIndex(truncated, "-"); lastDash > maxLen/2 {
			stub = truncated[:lastDash]
		} else {
			stub = strings.TrimRight(truncated, "-")
		}
	}

	return stub + trailerSuffix
}

func camelToKebab(s string) string {
	s = camelBoundaryRe.ReplaceAllString(s, "$1-$2")
	s = acronymBoundaryRe.ReplaceAllString(s, "$1-$2")
	return strings.ToLower(s)
}
