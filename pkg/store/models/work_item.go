package models

import (
	"time"
)

// WorkItem status values, forming the state machine described by the
// processor package. Statuses flow pending/csv_imported -> api_retrying ->
// api_success -> downloading -> complete/partial/failed, with
// permanently_failed, not_found and interrupted as absorbing or
// re-enterable states.
const (
	StatusPending            = "pending"
	StatusCSVImported        = "csv_imported"
	StatusIgnore             = "ignore"
	StatusAPIRetrying        = "api_retrying"
	StatusAPISuccess         = "api_success"
	StatusAPIError           = "api_error"
	StatusDownloading        = "downloading"
	StatusComplete           = "complete"
	StatusPartial            = "partial"
	StatusFailed             = "failed"
	StatusInterrupted        = "interrupted"
	StatusNotFound           = "not_found"
	StatusPermanentlyFailed  = "permanently_failed"
)

// eligibleStatusPriority orders statuses for batch selection, lowest first:
// pending < csv_imported < partial < api_error < failed. Interrupted
// carries the same priority as failed: both were mid-pipeline when they
// stopped and are re-entrant on the next run.
var eligibleStatusPriority = map[string]int{
	StatusPending:     0,
	StatusCSVImported: 1,
	StatusPartial:     2,
	StatusAPIError:    3,
	StatusFailed:      4,
	StatusInterrupted: 4,
}

// StatusPriority returns the batch-ordering priority of a status, or -1 if
// the status is not eligible for processing.
func StatusPriority(status string) int {
	if p, ok := eligibleStatusPriority[status]; ok {
		return p
	}
	return -1
}

// IsEligibleStatus reports whether status is one of the statuses a WorkItem
// must be in to be picked up by the processing loop.
func IsEligibleStatus(status string) bool {
	_, ok := eligibleStatusPriority[status]
	return ok
}

// WorkItem is the unit of processing: one inspection record identified by
// its upstream TIP. MappedColumns carries the per-kind columns produced by
// the field mapper; its shape is determined entirely by the kind's
// FieldMapping list and is persisted as a JSON blob rather than fixed
// columns, since the schema is config-driven.
type WorkItem struct {
	TIP                       string         `gorm:"primaryKey;column:tip;size:128" json:"tip"`
	Kind                      string         `gorm:"column:kind;size:16;index" json:"kind"`
	Status                    string         `gorm:"column:status;size:32;index" json:"status"`
	RetryCount                int            `gorm:"column:retry_count;default:0" json:"retry_count"`
	NextRetryAt               *time.Time     `gorm:"column:next_retry_at;index" json:"next_retry_at,omitempty"`
	LastError                 string         `gorm:"column:last_error" json:"last_error,omitempty"`
	LastAttemptAt             *time.Time     `gorm:"column:last_attempt_at" json:"last_attempt_at,omitempty"`
	PermanentlyFailed         bool           `gorm:"column:permanently_failed;default:false;index" json:"permanently_failed"`
	TotalAttachments          int            `gorm:"column:total_attachments;default:0" json:"total_attachments"`
	CompletedAttachmentCount  int            `gorm:"column:completed_attachment_count;default:0" json:"completed_attachment_count"`
	AllAttachmentsComplete    bool           `gorm:"column:all_attachments_complete;default:false" json:"all_attachments_complete"`
	HasUnknownHashes          bool           `gorm:"column:has_unknown_hashes;default:false" json:"has_unknown_hashes"`
	SourceFilename            string         `gorm:"column:source_filename;size:255" json:"source_filename,omitempty"`
	ExpectedInspectionID      string         `gorm:"column:expected_inspection_id;size:255" json:"expected_inspection_id,omitempty"`
	ExpectedInspectionDate    string         `gorm:"column:expected_inspection_date;size:64" json:"expected_inspection_date,omitempty"`
	CSVImportedAt             *time.Time     `gorm:"column:csv_imported_at;index" json:"csv_imported_at,omitempty"`
	CreatedAt                 time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	RawPayloadJSON            string         `gorm:"column:raw_payload_json" json:"-"`
	RawMetaJSON               string         `gorm:"column:raw_meta_json" json:"-"`
	// MappedColumns holds the per-kind mapped columns (the FieldMapping
	// output) serialized as a JSON object, since the column set varies by
	// kind and is entirely config-driven.
	MappedColumns             string         `gorm:"column:mapped_columns" json:"mapped_columns,omitempty"`
}

// TableName returns the table name for WorkItem.
func (WorkItem) TableName() string {
	return "work_items"
}

// IsEligible reports whether this WorkItem should be picked up for
// processing at the given time.
func (w *WorkItem) IsEligible(now time.Time) bool {
	if w.PermanentlyFailed {
		return false
	}
	if !IsEligibleStatus(w.Status) {
		return false
	}
	return w.NextRetryAt == nil || !w.NextRetryAt.After(now)
}
