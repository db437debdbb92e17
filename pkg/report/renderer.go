package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ingestkit/tipline/pkg/fieldmapper"
	"github.com/ingestkit/tipline/pkg/hashresolver"
)

// Renderer produces the per-inspection text report for one kind, using its
// configured template when present and a generic fallback layout
// otherwise.
type Renderer struct {
	resolver *hashresolver.Resolver
}

// New creates a Renderer backed by resolver for hash field resolution.
func New(resolver *hashresolver.Resolver) *Renderer {
	return &Renderer{resolver: resolver}
}

// Render generates the report body for payload under schema. If
// templateDir is non-empty and schema.ReportTemplateFile names a file
// found there, the template directive engine is used; otherwise the
// fallback renderer runs.
func (r *Renderer) Render(ctx context.Context, schema *fieldmapper.KindSchema, templateDir string, payload map[string]any, tip, inspectionID string) (string, error) {
	template, err := r.loadTemplate(schema, templateDir)
	if err != nil {
		return "", err
	}

	if template == "" {
		return r.renderFallback(ctx, schema, payload, tip, inspectionID)
	}

	ctxValues, err := buildContext(ctx, schema, payload, r.resolver, tip, inspectionID)
	if err != nil {
		return "", err
	}
	return render(template, ctxValues, schema.UnknownPlaceholder), nil
}

func (r *Renderer) loadTemplate(schema *fieldmapper.KindSchema, templateDir string) (string, error) {
	if schema.ReportTemplateFile == "" || templateDir == "" {
		return "", nil
	}
	path := filepath.Join(templateDir, schema.ReportTemplateFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading report template %s: %w", path, err)
	}
	return string(data), nil
}
