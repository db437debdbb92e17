package attachment

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ingestkit/tipline/internal/bytesize"
	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/internal/telemetry"
	"github.com/ingestkit/tipline/pkg/ingesterr"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/ingestkit/tipline/pkg/store/models"
	"github.com/ingestkit/tipline/pkg/upstream"
)

// Store is the narrow persistence interface Downloader needs: recording
// attachment rows and, on validation failure, a processing error entry.
type Store interface {
	store.AttachmentStore
	store.ProcessingErrorStore
}

// DownloaderConfig controls validation thresholds and inter-attachment
// pacing.
type DownloaderConfig struct {
	// MinFileSizeBytes is the minimum size a downloaded file must reach to
	// be considered valid. Accepts human-readable forms ("1Ki", "10MB")
	// when loaded from config.
	MinFileSizeBytes bytesize.ByteSize
	// Pause is slept between attachments belonging to the same record.
	Pause time.Duration
}

// ApplyDefaults fills unset fields with their production defaults.
func (c *DownloaderConfig) ApplyDefaults() {
	if c.MinFileSizeBytes == 0 {
		c.MinFileSizeBytes = 1024
	}
}

// Downloader fetches attachment bodies via an upstream client, validates
// them, and persists AttachmentRow state transitions.
type Downloader struct {
	client *upstream.Client
	store  Store
	cfg    DownloaderConfig
}

// NewDownloader creates a Downloader.
func NewDownloader(client *upstream.Client, st Store, cfg DownloaderConfig) *Downloader {
	cfg.ApplyDefaults()
	return &Downloader{client: client, store: st, cfg: cfg}
}

// Pause returns the configured inter-attachment pacing delay.
func (d *Downloader) Pause() time.Duration {
	return d.cfg.Pause
}

// DownloadAll downloads every attachment in infos belonging to one record,
// pausing Pause between attachments so as not to flood the upstream media
// service. pathFor computes the final on-disk path for each Info. A failed
// attachment does not abort the remaining ones; all errors are returned
// together.
func (d *Downloader) DownloadAll(ctx context.Context, recordTIP string, infos []Info, pathFor func(Info) string) []error {
	var errs []error
	for i, info := range infos {
		if i > 0 && d.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				errs = append(errs, ctx.Err())
				return errs
			case <-time.After(d.cfg.Pause):
			}
		}
		if err := d.Download(ctx, recordTIP, info, pathFor(info)); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Download fetches one attachment to finalPath, following the
// insert-pending -> fetch -> validate -> rename -> hash -> mark-complete
// protocol. If a prior attempt already completed and the file on disk
// still validates, the download is skipped.
func (d *Downloader) Download(ctx context.Context, recordTIP string, info Info, finalPath string) error {
	ctx, span := telemetry.StartAttachmentSpan(ctx, recordTIP, info.AttachmentTIP)
	defer span.End()

	if existing, err := d.store.GetAttachment(ctx, recordTIP, info.AttachmentTIP); err == nil {
		if existing.IsComplete() && fileStillValid(finalPath, d.cfg.MinFileSizeBytes.Int64()) {
			logger.InfoCtx(ctx, "attachment already complete, skipping",
				logger.TIP(recordTIP), logger.AttachmentStub(info.Stub))
			return nil
		}
	}

	row := &models.AttachmentRow{
		RecordTIP:        recordTIP,
		AttachmentTIP:    info.AttachmentTIP,
		Sequence:         info.SequenceInField,
		Filename:         filepath.Base(finalPath),
		FilePath:         finalPath,
		Status:           models.AttachmentStatusDownloading,
		ValidationStatus: models.ValidationStatusPending,
	}
	now := time.Now()
	row.DownloadStartedAt = &now
	if err := d.store.UpsertAttachment(ctx, row); err != nil {
		return fmt.Errorf("recording attachment start: %w", err)
	}

	resp, err := d.client.GetAttachment(ctx, info.URL, recordTIP)
	if err != nil {
		return d.fail(ctx, row, recordTIP, fmt.Sprintf("download failed: %v", err))
	}
	if resp.StatusCode != 200 {
		classified := upstream.Classify(info.URL, resp.StatusCode, resp.Body)
		return d.fail(ctx, row, recordTIP, classified.Error())
	}

	tmpPath := finalPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return d.fail(ctx, row, recordTIP, fmt.Sprintf("creating attachment directory: %v", err))
	}
	if err := os.WriteFile(tmpPath, resp.Body, 0o644); err != nil {
		return d.fail(ctx, row, recordTIP, fmt.Sprintf("writing temp file: %v", err))
	}

	if err := validateDownload(tmpPath, d.cfg.MinFileSizeBytes.Int64()); err != nil {
		_ = os.Remove(tmpPath)
		return d.fail(ctx, row, recordTIP, err.Error())
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return d.fail(ctx, row, recordTIP, fmt.Sprintf("renaming to final path: %v", err))
	}

	sum, err := md5File(finalPath)
	if err != nil {
		return d.fail(ctx, row, recordTIP, fmt.Sprintf("hashing final file: %v", err))
	}

	completed := time.Now()
	row.Status = models.AttachmentStatusComplete
	row.ValidationStatus = models.ValidationStatusValid
	row.FileSizeBytes = int64(len(resp.Body))
	row.FileHashMD5 = sum
	row.DownloadCompletedAt = &completed
	row.LastError = ""
	if err := d.store.UpsertAttachment(ctx, row); err != nil {
		return fmt.Errorf("recording attachment completion: %w", err)
	}

	span.SetAttributes(telemetry.AttachmentSize(row.FileSizeBytes))
	logger.InfoCtx(ctx, "attachment downloaded",
		logger.TIP(recordTIP), logger.AttachmentStub(info.Stub), logger.Size(row.FileSizeBytes), logger.MD5(sum))
	return nil
}

func (d *Downloader) fail(ctx context.Context, row *models.AttachmentRow, recordTIP, reason string) error {
	row.Status = models.AttachmentStatusFailed
	row.ValidationStatus = models.ValidationStatusValidationFailed
	row.LastError = reason
	if err := d.store.UpsertAttachment(ctx, row); err != nil {
		logger.WarnCtx(ctx, "failed to record attachment failure", logger.TIP(recordTIP), logger.Err(err))
	}

	details, _ := json.Marshal(map[string]string{"attachment_tip": row.AttachmentTIP, "reason": reason})
	if err := d.store.RecordProcessingError(ctx, &models.ProcessingError{
		TIP:              recordTIP,
		ErrorType:        "attachment_validation",
		ErrorMessage:     reason,
		ErrorDetailsJSON: string(details),
	}); err != nil {
		logger.WarnCtx(ctx, "failed to record processing error", logger.TIP(recordTIP), logger.Err(err))
	}

	logger.WarnCtx(ctx, "attachment failed", logger.TIP(recordTIP), logger.AttachmentStub(row.Filename), logger.ErrorCode(reason))
	return &ingesterr.AttachmentValidationError{AttachmentTIP: row.AttachmentTIP, Reason: reason}
}

func validateDownload(path string, minSize int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("downloaded file missing: %w", err)
	}
	if info.Size() < minSize {
		return fmt.Errorf("downloaded file too small: %d bytes (minimum %d)", info.Size(), minSize)
	}
	head, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("reading downloaded file: %w", err)
	}
	if head == nil {
		return fmt.Errorf("could not determine downloaded file type")
	}
	return nil
}

func fileStillValid(path string, minSize int64) bool {
	return validateDownload(path, minSize) == nil
}

func md5File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
