package report_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestkit/tipline/pkg/fieldmapper"
	"github.com/ingestkit/tipline/pkg/hashresolver"
	"github.com/ingestkit/tipline/pkg/report"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/ingestkit/tipline/pkg/store/models"
)

func newTestResolver(t *testing.T) *hashresolver.Resolver {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: dir + "/test.db"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ReplaceHashDictionary(context.Background(), []*models.HashEntry{
		{TIPHash: "h1", LookupType: models.HashTypeVehicle, ResolvedValue: "Truck 1"},
	}))
	return hashresolver.New(s)
}

func testSchema() *fieldmapper.KindSchema {
	schema := &fieldmapper.KindSchema{
		Abbreviation: "LCD",
		FullName:     "Load Compliance Check",
		Fields: []fieldmapper.FieldMapping{
			{Upstream: "vehicle", Column: "vehicle_hash", Type: fieldmapper.TypeHash, HashType: models.HashTypeVehicle},
			{Upstream: "driverName", Column: "driver_name", Type: fieldmapper.TypeString},
			{Upstream: "passed", Column: "passed", Type: fieldmapper.TypeBool},
		},
	}
	schema.ApplyDefaults()
	return schema
}

func TestRenderUsesTemplateWhenPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lcd.txt.tmpl"), []byte(
		"<full_name>\nDriver: <driverName>\nVehicle: <vehicle_resolved>\n<if:passed>Result: PASS</if:passed>\n"), 0o644))

	schema := testSchema()
	schema.ReportTemplateFile = "lcd.txt.tmpl"

	r := report.New(newTestResolver(t))
	payload := map[string]any{"driverName": "Jane Doe", "vehicle": "h1", "passed": true}

	out, err := r.Render(context.Background(), schema, dir, payload, "T-1", "LCD-1")
	require.NoError(t, err)
	assert.Contains(t, out, "LOAD COMPLIANCE CHECK")
	assert.Contains(t, out, "Driver: Jane Doe")
	assert.Contains(t, out, "Vehicle: Truck 1")
	assert.Contains(t, out, "Result: PASS")
}

func TestRenderFallsBackWithoutTemplate(t *testing.T) {
	schema := testSchema()
	r := report.New(newTestResolver(t))
	payload := map[string]any{"driverName": "Jane Doe", "vehicle": "h1", "passed": false}

	out, err := r.Render(context.Background(), schema, "", payload, "T-2", "LCD-2")
	require.NoError(t, err)
	assert.Contains(t, out, "LOAD COMPLIANCE CHECK")
	assert.Contains(t, out, "Driver Name: Jane Doe")
	assert.Contains(t, out, "Vehicle: Truck 1")
	assert.Contains(t, out, "Passed: No")
	assert.Contains(t, out, "COMPLETE TECHNICAL DATA")
}

func TestRenderFallsBackWhenTemplateFileMissing(t *testing.T) {
	schema := testSchema()
	schema.ReportTemplateFile = "does-not-exist.tmpl"
	r := report.New(newTestResolver(t))

	out, err := r.Render(context.Background(), schema, t.TempDir(), map[string]any{}, "T-3", "LCD-3")
	require.NoError(t, err)
	assert.Contains(t, out, "LOAD COMPLIANCE CHECK")
}
