package attachment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestkit/tipline/pkg/attachment"
	"github.com/ingestkit/tipline/pkg/store"
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

func jpegBody(size int) []byte {
	body := make([]byte, size)
	body[0], body[1], body[2] = 0xFF, 0xD8, 0xFF
	return body
}

func TestDownloadWritesCompleteRowAndFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(jpegBody(2048))
	}))
	defer srv.Close()

	st := newTestStore(t)
	client := upstream.New(upstream.Config{}, nil)
	dl := attachment.NewDownloader(client, st, attachment.DownloaderConfig{})

	finalPath := filepath.Join(t.TempDir(), "photo.jpg")
	info := attachment.Info{URL: srv.URL, Stub: "photo", AttachmentTIP: "AT-1"}

	err := dl.Download(context.Background(), "T-1", info, finalPath)
	require.NoError(t, err)

	data, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	assert.Len(t, data, 2048)

	row, err := st.GetAttachment(context.Background(), "T-1", "AT-1")
	require.NoError(t, err)
	assert.True(t, row.IsComplete())
	assert.NotEmpty(t, row.FileHashMD5)
	assert.EqualValues(t, 2048, row.FileSizeBytes)
}

func TestDownloadSkipsAlreadyCompleteAttachment(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(jpegBody(2048))
	}))
	defer srv.Close()

	st := newTestStore(t)
	client := upstream.New(upstream.Config{}, nil)
	dl := attachment.NewDownloader(client, st, attachment.DownloaderConfig{})

	finalPath := filepath.Join(t.TempDir(), "photo.jpg")
	info := attachment.Info{URL: srv.URL, Stub: "photo", AttachmentTIP: "AT-1"}

	require.NoError(t, dl.Download(context.Background(), "T-1", info, finalPath))
	require.Equal(t, 1, calls)

	require.NoError(t, dl.Download(context.Background(), "T-1", info, finalPath))
	assert.Equal(t, 1, calls, "second download should skip the already-complete attachment")
}

func TestDownloadMarksTooSmallFileFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	st := newTestStore(t)
	client := upstream.New(upstream.Config{}, nil)
	dl := attachment.NewDownloader(client, st, attachment.DownloaderConfig{MinFileSizeBytes: 1024})

	finalPath := filepath.Join(t.TempDir(), "photo.jpg")
	info := attachment.Info{URL: srv.URL, Stub: "photo", AttachmentTIP: "AT-2"}

	err := dl.Download(context.Background(), "T-2", info, finalPath)
	require.Error(t, err)

	_, statErr := os.Stat(finalPath + ".tmp")
	assert.True(t, os.IsNotExist(statErr), "temp file should be removed on validation failure")

	row, err := st.GetAttachment(context.Background(), "T-2", "AT-2")
	require.NoError(t, err)
	assert.Equal(t, "failed", row.Status)
	assert.Equal(t, "validation_failed", row.ValidationStatus)

	errs, err := st.ListProcessingErrors(context.Background(), "T-2")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "attachment_validation", errs[0].ErrorType)
}

func TestDownloadMarksNotFoundFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	st := newTestStore(t)
	client := upstream.New(upstream.Config{}, nil)
	dl := attachment.NewDownloader(client, st, attachment.DownloaderConfig{})

	finalPath := filepath.Join(t.TempDir(), "photo.jpg")
	info := attachment.Info{URL: srv.URL, Stub: "photo", AttachmentTIP: "AT-3"}

	err := dl.Download(context.Background(), "T-3", info, finalPath)
	require.Error(t, err)

	row, err := st.GetAttachment(context.Background(), "T-3", "AT-3")
	require.NoError(t, err)
	assert.Equal(t, "failed", row.Status)
}
