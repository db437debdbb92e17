package runner_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestkit/tipline/pkg/attachment"
	"github.com/ingestkit/tipline/pkg/breaker"
	"github.com/ingestkit/tipline/pkg/fieldmapper"
	"github.com/ingestkit/tipline/pkg/folder"
	"github.com/ingestkit/tipline/pkg/hashresolver"
	"github.com/ingestkit/tipline/pkg/processor"
	"github.com/ingestkit/tipline/pkg/report"
	"github.com/ingestkit/tipline/pkg/runner"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/ingestkit/tipline/pkg/store/models"
	"github.com/ingestkit/tipline/pkg/upstream"
)

func newTestStore(t *testing.T) *store.GORMStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: dir + "/test.db"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func schemaFor(abbrev string) *fieldmapper.KindSchema {
	schema := &fieldmapper.KindSchema{
		Abbreviation:     abbrev,
		FullName:         abbrev,
		EndpointTemplate: "PLACEHOLDER/records/$tip",
		IDField:          fieldmapper.IDField{Upstream: "inspectionId", Column: "inspection_id"},
		DateField:        "inspectionDate",
	}
	schema.ApplyDefaults()
	return schema
}

// newHarness wires a Runner with a real Processor against an httptest
// server that always returns a minimal record with no attachments, backed
// by a real SQLite store.
func newHarness(t *testing.T, kinds []string, cfg runner.Config) (*runner.Runner, *store.GORMStore) {
	t.Helper()
	st := newTestStore(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"inspectionId":   "INS-1",
			"inspectionDate": "2026-01-15T00:00:00",
		})
	}))
	t.Cleanup(srv.Close)

	schemas := map[string]*fieldmapper.KindSchema{}
	for _, kind := range kinds {
		s := schemaFor(kind)
		s.EndpointTemplate = srv.URL + "/records/$tip"
		schemas[kind] = s
	}

	client := upstream.New(upstream.Config{MaxRetries: 1}, nil)
	cb := breaker.New(breaker.Config{})
	resolver := hashresolver.New(st)
	mapper := fieldmapper.New(resolver)
	rend := report.New(resolver)
	downloader := attachment.NewDownloader(client, st, attachment.DownloaderConfig{})
	folders := folder.New(t.TempDir())
	journal, err := processor.NewSession(filepath.Join(t.TempDir(), "session.tsv"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	proc := processor.New(st, client, cb, mapper, rend, downloader, folders, journal, processor.Config{})

	cfg.Kinds = kinds
	r := runner.New(st, proc, schemas, nil, nil, cfg)
	return r, st
}

func TestRunProcessesEligibleWorkItemsThenStopsOnCancellation(t *testing.T) {
	r, st := newHarness(t, []string{"LCD"}, runner.Config{
		TipsPerTypePerCycle: 10,
		CycleSleep:          30 * time.Millisecond,
	})

	item := &models.WorkItem{TIP: "T-1", Kind: "LCD", Status: models.StatusPending}
	require.NoError(t, st.CreateWorkItem(context.Background(), item))

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	require.NoError(t, err)

	updated, err := st.GetWorkItem(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, updated.Status)
}

func TestRunSkipsUnconfiguredKind(t *testing.T) {
	r, st := newHarness(t, []string{"LCD"}, runner.Config{
		TipsPerTypePerCycle: 10,
		CycleSleep:          10 * time.Millisecond,
	})

	item := &models.WorkItem{TIP: "T-2", Kind: "SO", Status: models.StatusPending}
	require.NoError(t, st.CreateWorkItem(context.Background(), item))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	require.NoError(t, err)

	updated, err := st.GetWorkItem(context.Background(), "T-2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status, "SO has no configured schema so its item is left untouched")
}

func TestRunHonoursAlreadyCancelledContext(t *testing.T) {
	r, st := newHarness(t, []string{"LCD"}, runner.Config{CycleSleep: time.Second})

	item := &models.WorkItem{TIP: "T-3", Kind: "LCD", Status: models.StatusPending}
	require.NoError(t, st.CreateWorkItem(context.Background(), item))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx)
	require.NoError(t, err)

	updated, err := st.GetWorkItem(context.Background(), "T-3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status, "a pre-cancelled context must not start any work")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := runner.Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, 10, cfg.TipsPerTypePerCycle)
	assert.Equal(t, 60*time.Second, cfg.CycleSleep)
	assert.Equal(t, 6, cfg.SFTPEveryNCycles)
	assert.Equal(t, 5, cfg.CSVEveryNCycles)
}

func TestRunSetMetricsNilIsSafe(t *testing.T) {
	r, st := newHarness(t, []string{"LCD"}, runner.Config{
		TipsPerTypePerCycle: 10,
		CycleSleep:          20 * time.Millisecond,
	})
	r.SetMetrics(nil)

	item := &models.WorkItem{TIP: "T-4", Kind: "LCD", Status: models.StatusPending}
	require.NoError(t, st.CreateWorkItem(context.Background(), item))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Run(ctx))
}

func TestConfigApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := runner.Config{TipsPerTypePerCycle: 3, CycleSleep: time.Minute, SFTPEveryNCycles: 2, CSVEveryNCycles: 1}
	cfg.ApplyDefaults()
	assert.Equal(t, 3, cfg.TipsPerTypePerCycle)
	assert.Equal(t, time.Minute, cfg.CycleSleep)
	assert.Equal(t, 2, cfg.SFTPEveryNCycles)
	assert.Equal(t, 1, cfg.CSVEveryNCycles)
}
