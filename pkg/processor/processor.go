// Package processor implements the per-TIP orchestrator: the end-to-end
// pipeline of upstream fetch, field mapping, attachment download, report
// rendering, and persistence that advances one WorkItem through its status
// machine.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/internal/telemetry"
	"github.com/ingestkit/tipline/pkg/attachment"
	"github.com/ingestkit/tipline/pkg/breaker"
	"github.com/ingestkit/tipline/pkg/fieldmapper"
	"github.com/ingestkit/tipline/pkg/folder"
	"github.com/ingestkit/tipline/pkg/ingesterr"
	"github.com/ingestkit/tipline/pkg/metrics"
	"github.com/ingestkit/tipline/pkg/report"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/ingestkit/tipline/pkg/store/models"
	"github.com/ingestkit/tipline/pkg/upstream"
)

// Outcome is the terminal result of one Process call.
type Outcome string

const (
	OutcomeComplete      Outcome = "complete"
	OutcomePartial       Outcome = "partial"
	OutcomeInterrupted   Outcome = "interrupted"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeTransientFail Outcome = "transient_fail"
	OutcomePermanentFail Outcome = "permanent_fail"
)

// Store is the persistence interface the processor needs: WorkItem
// mutation, attachment rows (via the embedded Downloader), and the
// processing error log.
type Store interface {
	store.WorkItemStore
	store.AttachmentStore
	store.ProcessingErrorStore
}

// Config controls processor-level behaviour not owned by its collaborators.
type Config struct {
	TemplateDir       string
	Retry             RetryConfig
	RateLimitCooldown time.Duration

	// Metrics is optional; a nil value disables instrumentation entirely.
	Metrics metrics.IngestionMetrics
}

// ApplyDefaults fills unset fields with their production defaults.
func (c *Config) ApplyDefaults() {
	c.Retry.ApplyDefaults()
	if c.RateLimitCooldown == 0 {
		c.RateLimitCooldown = 30 * time.Second
	}
}

// Processor orchestrates one TIP's full pipeline: UpstreamClient ->
// FieldMapper -> AttachmentExtractor/Downloader -> ReportRenderer ->
// Store, wrapped by circuit-breaker consultation and the WorkItem status
// machine.
type Processor struct {
	store      Store
	client     *upstream.Client
	breaker    *breaker.Breaker
	mapper     *fieldmapper.Mapper
	renderer   *report.Renderer
	downloader *attachment.Downloader
	folders    *folder.Manager
	journal    *Session
	cfg        Config
}

// New creates a Processor from its collaborators.
func New(st Store, client *upstream.Client, cb *breaker.Breaker, mapper *fieldmapper.Mapper, renderer *report.Renderer, downloader *attachment.Downloader, folders *folder.Manager, journal *Session, cfg Config) *Processor {
	cfg.ApplyDefaults()
	return &Processor{
		store:      st,
		client:     client,
		breaker:    cb,
		mapper:     mapper,
		renderer:   renderer,
		downloader: downloader,
		folders:    folders,
		journal:    journal,
		cfg:        cfg,
	}
}

// Process runs the full pipeline for one WorkItem. No error propagates
// past this boundary; every outcome is reflected in the WorkItem row and
// returned as an Outcome.
func (p *Processor) Process(ctx context.Context, schema *fieldmapper.KindSchema, item *models.WorkItem) (outcome Outcome) {
	ctx, span := telemetry.StartTipSpan(ctx, item.TIP, item.Kind)
	defer span.End()

	tipStart := time.Now()
	defer func() {
		metrics.ObserveTip(p.cfg.Metrics, item.Kind, string(outcome), time.Since(tipStart))
	}()

	if err := p.breaker.BeforeRequest(ctx); err != nil {
		logger.WarnCtx(ctx, "circuit breaker denied request", logger.TIP(item.TIP), logger.Err(err))
		return OutcomeTransientFail
	}

	now := time.Now()
	item.Status = models.StatusAPIRetrying
	item.LastAttemptAt = &now
	if err := p.store.UpdateWorkItem(ctx, item); err != nil {
		logger.ErrorCtx(ctx, "failed to mark work item retrying", logger.TIP(item.TIP), logger.Err(err))
		return OutcomeTransientFail
	}

	resp, err := p.client.Get(ctx, schema.Endpoint(item.TIP), item.TIP)
	if err != nil {
		p.breaker.RecordFailure(ctx)
		metrics.SetBreakerState(p.cfg.Metrics, string(p.breaker.State()))
		return p.scheduleRetry(ctx, item, err.Error())
	}

	switch {
	case resp.StatusCode == 200:
		p.breaker.RecordSuccess(ctx)
		metrics.SetBreakerState(p.cfg.Metrics, string(p.breaker.State()))
	case resp.StatusCode == 404:
		item.Status = models.StatusNotFound
		item.LastError = "upstream record not found"
		if err := p.store.UpdateWorkItem(ctx, item); err != nil {
			logger.ErrorCtx(ctx, "failed to mark work item not found", logger.TIP(item.TIP), logger.Err(err))
		}
		return OutcomeNotFound
	case resp.StatusCode == 429:
		p.breaker.RecordFailure(ctx)
		metrics.SetBreakerState(p.cfg.Metrics, string(p.breaker.State()))
		logger.WarnCtx(ctx, "upstream rate limited, cooling down", logger.TIP(item.TIP), logger.BackoffSecs(p.cfg.RateLimitCooldown.Seconds()))
		select {
		case <-ctx.Done():
		case <-time.After(p.cfg.RateLimitCooldown):
		}
		return OutcomeTransientFail
	default:
		p.breaker.RecordFailure(ctx)
		metrics.SetBreakerState(p.cfg.Metrics, string(p.breaker.State()))
		classified := upstream.Classify(schema.Endpoint(item.TIP), resp.StatusCode, resp.Body)
		return p.scheduleRetry(ctx, item, classified.Error())
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return p.scheduleRetry(ctx, item, (&ingesterr.InvalidPayloadError{TIP: item.TIP, Err: err}).Error())
	}

	mapped, err := p.mapper.ExtractAll(ctx, schema, payload, item.TIP)
	if err != nil {
		return p.scheduleRetry(ctx, item, err.Error())
	}

	attachments := attachment.Extract(schema, payload)

	columnsJSON, err := mapped.ColumnsJSON()
	if err != nil {
		logger.ErrorCtx(ctx, "failed to serialize mapped columns", logger.TIP(item.TIP), logger.Err(err))
	}

	item.Status = models.StatusAPISuccess
	item.TotalAttachments = len(attachments)
	item.HasUnknownHashes = mapped.HasUnknownHashes
	item.ExpectedInspectionID = mapped.InspectionID
	item.MappedColumns = columnsJSON
	item.RawPayloadJSON = string(resp.Body)
	if mapped.InspectionDate != nil {
		item.ExpectedInspectionDate = mapped.InspectionDate.Format(time.RFC3339)
	}
	if err := p.store.UpdateWorkItem(ctx, item); err != nil {
		logger.ErrorCtx(ctx, "failed to persist api_success", logger.TIP(item.TIP), logger.Err(err))
		return OutcomeTransientFail
	}

	inspectionFolder := p.folders.InspectionFolder(schema, mapped.InspectionDate, mapped.InspectionID)
	if err := os.MkdirAll(inspectionFolder, 0o755); err != nil {
		return p.scheduleRetry(ctx, item, fmt.Sprintf("creating inspection folder: %v", err))
	}

	reportBody, err := p.renderer.Render(ctx, schema, p.cfg.TemplateDir, payload, item.TIP, mapped.InspectionID)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to render report", logger.TIP(item.TIP), logger.Err(err))
	} else {
		reportPath := filepath.Join(inspectionFolder, folder.ReportFilename(mapped.InspectionID))
		if err := os.WriteFile(reportPath, []byte(reportBody), 0o644); err != nil {
			logger.ErrorCtx(ctx, "failed to write report", logger.TIP(item.TIP), logger.Path(reportPath), logger.Err(err))
		}
	}

	item.Status = models.StatusDownloading
	if err := p.store.UpdateWorkItem(ctx, item); err != nil {
		logger.ErrorCtx(ctx, "failed to mark downloading", logger.TIP(item.TIP), logger.Err(err))
	}

	var filenames []string
	completed := 0
	interrupted := false
	for i, info := range attachments {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if i > 0 && p.downloader.Pause() > 0 {
			select {
			case <-ctx.Done():
				interrupted = true
			case <-time.After(p.downloader.Pause()):
			}
			if interrupted {
				break
			}
		}

		finalPath := filepath.Join(inspectionFolder, p.folders.AttachmentFilename(schema, mapped.InspectionDate, mapped.InspectionID, info.Stub, info.SequenceInField))
		attachmentStart := time.Now()
		if err := p.downloader.Download(ctx, item.TIP, info, finalPath); err != nil {
			logger.WarnCtx(ctx, "attachment download failed", logger.TIP(item.TIP), logger.AttachmentStub(info.Stub), logger.Err(err))
			metrics.RecordAttachment(p.cfg.Metrics, item.Kind, "failure", 0, time.Since(attachmentStart))
			continue
		}
		completed++
		filenames = append(filenames, filepath.Base(finalPath))
		var attachmentSize int64
		if fi, err := os.Stat(finalPath); err == nil {
			attachmentSize = fi.Size()
		}
		metrics.RecordAttachment(p.cfg.Metrics, item.Kind, "success", attachmentSize, time.Since(attachmentStart))
	}

	item.CompletedAttachmentCount = completed
	item.AllAttachmentsComplete = item.TotalAttachments > 0 && completed == item.TotalAttachments

	needsRetrySchedule := false
	switch {
	case interrupted:
		item.Status = models.StatusInterrupted
		outcome = OutcomeInterrupted
	case item.TotalAttachments == 0 || item.AllAttachmentsComplete:
		item.Status = models.StatusComplete
		outcome = OutcomeComplete
	case completed > 0:
		item.Status = models.StatusPartial
		outcome = OutcomePartial
		needsRetrySchedule = true
	default:
		item.Status = models.StatusFailed
		outcome = OutcomeTransientFail
		needsRetrySchedule = true
	}

	if needsRetrySchedule {
		nextRetry, permanent := p.cfg.Retry.NextRetry(item.RetryCount, time.Now())
		item.RetryCount++
		if permanent {
			item.PermanentlyFailed = true
			item.Status = models.StatusPermanentlyFailed
			outcome = OutcomePermanentFail
		} else {
			item.NextRetryAt = &nextRetry
			metrics.RecordRetry(p.cfg.Metrics, item.Kind)
		}
	}

	if err := p.store.UpdateWorkItem(context.WithoutCancel(ctx), item); err != nil {
		logger.ErrorCtx(ctx, "failed to persist final status", logger.TIP(item.TIP), logger.Err(err))
	}

	if p.journal != nil {
		if err := p.journal.Record(item.TIP, mapped.InspectionID, completed, filenames); err != nil {
			logger.WarnCtx(ctx, "failed to write session journal entry", logger.TIP(item.TIP), logger.Err(err))
		}
	}

	return outcome
}

// scheduleRetry records a transient failure against the WorkItem, applying
// the exponential retry schedule, and returns the outcome the caller
// should report.
func (p *Processor) scheduleRetry(ctx context.Context, item *models.WorkItem, reason string) Outcome {
	item.LastError = reason
	nextRetry, permanent := p.cfg.Retry.NextRetry(item.RetryCount, time.Now())
	item.RetryCount++

	outcome := OutcomeTransientFail
	if permanent {
		item.PermanentlyFailed = true
		item.Status = models.StatusPermanentlyFailed
		outcome = OutcomePermanentFail
	} else {
		item.Status = models.StatusAPIError
		item.NextRetryAt = &nextRetry
		metrics.RecordRetry(p.cfg.Metrics, item.Kind)
	}

	if err := p.store.UpdateWorkItem(ctx, item); err != nil {
		logger.ErrorCtx(ctx, "failed to persist retry schedule", logger.TIP(item.TIP), logger.Err(err))
	}
	if err := p.store.RecordProcessingError(ctx, &models.ProcessingError{
		TIP:          item.TIP,
		ErrorType:    "upstream_fetch",
		ErrorMessage: reason,
	}); err != nil {
		logger.WarnCtx(ctx, "failed to record processing error", logger.TIP(item.TIP), logger.Err(err))
	}

	return outcome
}
