package processor_test

import (
	"context"
	"encoding/json"
	"fmt"
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

func processorSchema() *fieldmapper.KindSchema {
	schema := &fieldmapper.KindSchema{
		Abbreviation:     "LCD",
		FullName:         "Load Compliance Check",
		EndpointTemplate: "PLACEHOLDER/records/$tip",
		IDField:          fieldmapper.IDField{Upstream: "inspectionId", Column: "inspection_id"},
		DateField:        "inspectionDate",
		Fields: []fieldmapper.FieldMapping{
			{Upstream: "driverName", Column: "driver_name", Type: fieldmapper.TypeString},
		},
	}
	schema.ApplyDefaults()
	return schema
}

// newHarness wires one Processor against an httptest server that serves
// both the record endpoint and any attachment URLs embedded in its
// payload, backed by a real SQLite store.
type harness struct {
	proc  *processor.Processor
	store *store.GORMStore
	srv   *httptest.Server
}

func defaultMediaHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	body := make([]byte, 2048)
	body[0], body[1], body[2] = 0xFF, 0xD8, 0xFF
	_, _ = w.Write(body)
}

func newHarnessWithMedia(t *testing.T, recordHandler, mediaHandler http.HandlerFunc, retry processor.RetryConfig) (*harness, *fieldmapper.KindSchema) {
	return newHarnessFull(t, recordHandler, mediaHandler, retry, attachment.DownloaderConfig{})
}

func newHarnessFull(t *testing.T, recordHandler, mediaHandler http.HandlerFunc, retry processor.RetryConfig, downloaderCfg attachment.DownloaderConfig) (*harness, *fieldmapper.KindSchema) {
	t.Helper()
	st := newTestStore(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/records/", recordHandler)
	mux.HandleFunc("/media/file", mediaHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	schema := processorSchema()
	schema.EndpointTemplate = srv.URL + "/records/$tip"

	client := upstream.New(upstream.Config{MaxRetries: 1}, nil)
	cb := breaker.New(breaker.Config{})
	resolver := hashresolver.New(st)
	mapper := fieldmapper.New(resolver)
	renderer := report.New(resolver)
	downloader := attachment.NewDownloader(client, st, downloaderCfg)
	folders := folder.New(t.TempDir())
	journal, err := processor.NewSession(filepath.Join(t.TempDir(), "session.tsv"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	cfg := processor.Config{RateLimitCooldown: 10 * time.Millisecond, Retry: retry}
	proc := processor.New(st, client, cb, mapper, renderer, downloader, folders, journal, cfg)

	return &harness{proc: proc, store: st, srv: srv}, schema
}

func newHarness(t *testing.T, recordHandler http.HandlerFunc, retry processor.RetryConfig) (*harness, *fieldmapper.KindSchema) {
	t.Helper()
	return newHarnessWithMedia(t, recordHandler, defaultMediaHandler, retry)
}

func mediaURL(srv *httptest.Server, tip string) string {
	return fmt.Sprintf("%s/media/file?tip=%s", srv.URL, tip)
}

func TestProcessCompletesWithAttachments(t *testing.T) {
	var h *harness
	handler := func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"inspectionId":   "LCD-1",
			"inspectionDate": "2026-01-15T00:00:00",
			"driverName":     "Jane Doe",
			"photoFront":     mediaURL(h.srv, "AT-1"),
			"photoBack":      mediaURL(h.srv, "AT-2"),
		}
		_ = json.NewEncoder(w).Encode(payload)
	}
	h, schema := newHarness(t, handler, processor.RetryConfig{MaxAttempts: 5, BackoffMultiplier: 2, BaseDelay: time.Minute, MaxDelay: time.Hour})

	item := &models.WorkItem{TIP: "T-1", Kind: "LCD", Status: models.StatusPending}
	require.NoError(t, h.store.CreateWorkItem(context.Background(), item))

	outcome := h.proc.Process(context.Background(), schema, item)

	assert.Equal(t, processor.OutcomeComplete, outcome)
	assert.Equal(t, models.StatusComplete, item.Status)
	assert.Equal(t, 2, item.TotalAttachments)
	assert.Equal(t, 2, item.CompletedAttachmentCount)
	assert.True(t, item.AllAttachmentsComplete)
	assert.Equal(t, "LCD-1", item.ExpectedInspectionID)
}

func TestProcessNotFoundMarksWorkItem(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	h, schema := newHarness(t, handler, processor.RetryConfig{MaxAttempts: 5, BackoffMultiplier: 2, BaseDelay: time.Minute, MaxDelay: time.Hour})

	item := &models.WorkItem{TIP: "T-2", Kind: "LCD", Status: models.StatusPending}
	require.NoError(t, h.store.CreateWorkItem(context.Background(), item))

	outcome := h.proc.Process(context.Background(), schema, item)

	assert.Equal(t, processor.OutcomeNotFound, outcome)
	assert.Equal(t, models.StatusNotFound, item.Status)
}

func TestProcessRateLimitedReturnsTransientFail(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}
	h, schema := newHarness(t, handler, processor.RetryConfig{MaxAttempts: 5, BackoffMultiplier: 2, BaseDelay: time.Minute, MaxDelay: time.Hour})

	item := &models.WorkItem{TIP: "T-3", Kind: "LCD", Status: models.StatusPending}
	require.NoError(t, h.store.CreateWorkItem(context.Background(), item))

	start := time.Now()
	outcome := h.proc.Process(context.Background(), schema, item)
	elapsed := time.Since(start)

	assert.Equal(t, processor.OutcomeTransientFail, outcome)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
	assert.Zero(t, item.RetryCount, "rate limiting should not consume a retry attempt")
}

func TestProcessServerErrorSchedulesRetry(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}
	h, schema := newHarness(t, handler, processor.RetryConfig{MaxAttempts: 5, BackoffMultiplier: 2, BaseDelay: time.Minute, MaxDelay: time.Hour})

	item := &models.WorkItem{TIP: "T-4", Kind: "LCD", Status: models.StatusPending}
	require.NoError(t, h.store.CreateWorkItem(context.Background(), item))

	outcome := h.proc.Process(context.Background(), schema, item)

	assert.Equal(t, processor.OutcomeTransientFail, outcome)
	assert.Equal(t, models.StatusAPIError, item.Status)
	assert.Equal(t, 1, item.RetryCount)
	require.NotNil(t, item.NextRetryAt)
	assert.True(t, item.NextRetryAt.After(time.Now()))

	errs, err := h.store.ListProcessingErrors(context.Background(), "T-4")
	require.NoError(t, err)
	require.Len(t, errs, 1)
}

func TestProcessExhaustsRetriesPermanentlyFails(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	h, schema := newHarness(t, handler, processor.RetryConfig{MaxAttempts: 5, BackoffMultiplier: 2, BaseDelay: time.Minute, MaxDelay: time.Hour})

	item := &models.WorkItem{TIP: "T-5", Kind: "LCD", Status: models.StatusPending, RetryCount: 5}
	require.NoError(t, h.store.CreateWorkItem(context.Background(), item))

	outcome := h.proc.Process(context.Background(), schema, item)

	assert.Equal(t, processor.OutcomePermanentFail, outcome)
	assert.Equal(t, models.StatusPermanentlyFailed, item.Status)
	assert.True(t, item.PermanentlyFailed)
}

func TestProcessPartialWhenOneAttachmentFails(t *testing.T) {
	var h *harness
	handler := func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"inspectionId":   "LCD-6",
			"inspectionDate": "2026-01-15T00:00:00",
			"driverName":     "Jane Doe",
			"photoFront":     mediaURL(h.srv, "AT-1"),
			"photoBack":      h.srv.URL + "/media/file?tip=missing",
		}
		_ = json.NewEncoder(w).Encode(payload)
	}
	mediaHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tip") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		defaultMediaHandler(w, r)
	}
	h, schema := newHarnessWithMedia(t, handler, mediaHandler, processor.RetryConfig{MaxAttempts: 5, BackoffMultiplier: 2, BaseDelay: time.Minute, MaxDelay: time.Hour})

	item := &models.WorkItem{TIP: "T-6", Kind: "LCD", Status: models.StatusPending}
	require.NoError(t, h.store.CreateWorkItem(context.Background(), item))

	outcome := h.proc.Process(context.Background(), schema, item)

	assert.Equal(t, processor.OutcomePartial, outcome)
	assert.Equal(t, models.StatusPartial, item.Status)
	assert.Equal(t, 2, item.TotalAttachments)
	assert.Equal(t, 1, item.CompletedAttachmentCount)
	assert.False(t, item.AllAttachmentsComplete)
	require.NotNil(t, item.NextRetryAt)
}

func TestProcessInterruptedContextIsReEligible(t *testing.T) {
	var h *harness
	handler := func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"inspectionId":   "LCD-7",
			"inspectionDate": "2026-01-15T00:00:00",
			"driverName":     "Jane Doe",
			"photoFront":     mediaURL(h.srv, "AT-1"),
			"photoBack":      mediaURL(h.srv, "AT-2"),
		}
		_ = json.NewEncoder(w).Encode(payload)
	}
	h, schema := newHarnessFull(t, handler, defaultMediaHandler,
		processor.RetryConfig{MaxAttempts: 5, BackoffMultiplier: 2, BaseDelay: time.Minute, MaxDelay: time.Hour},
		attachment.DownloaderConfig{Pause: time.Second})

	item := &models.WorkItem{TIP: "T-7", Kind: "LCD", Status: models.StatusPending}
	require.NoError(t, h.store.CreateWorkItem(context.Background(), item))

	// The first attachment downloads immediately; the configured
	// between-attachment pause is long enough that this deadline fires
	// while Process is waiting on it, interrupting before the second
	// attachment is fetched.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	outcome := h.proc.Process(ctx, schema, item)

	assert.Equal(t, processor.OutcomeInterrupted, outcome)
	assert.Equal(t, models.StatusInterrupted, item.Status)

	eligible, err := h.store.ListEligibleWorkItems(context.Background(), "LCD", 10, time.Now())
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "T-7", eligible[0].TIP)
}
