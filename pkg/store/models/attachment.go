package models

import "time"

// AttachmentRow statuses.
const (
	AttachmentStatusPending     = "pending"
	AttachmentStatusDownloading = "downloading"
	AttachmentStatusComplete    = "complete"
	AttachmentStatusFailed      = "failed"
)

// AttachmentRow validation statuses.
const (
	ValidationStatusPending          = "pending"
	ValidationStatusValid            = "valid"
	ValidationStatusValidationFailed = "validation_failed"
)

// AttachmentRow is keyed by (record_tip, attachment_tip) and tracks the
// download and validation state of one attachment belonging to a record.
type AttachmentRow struct {
	RecordTIP            string     `gorm:"primaryKey;column:record_tip;size:128" json:"record_tip"`
	AttachmentTIP        string     `gorm:"primaryKey;column:attachment_tip;size:128" json:"attachment_tip"`
	Sequence              int        `gorm:"column:sequence" json:"sequence"`
	Filename              string     `gorm:"column:filename;size:255" json:"filename"`
	FilePath              string     `gorm:"column:file_path" json:"file_path"`
	Status                string     `gorm:"column:status;size:32;index" json:"status"`
	ValidationStatus      string     `gorm:"column:validation_status;size:32" json:"validation_status"`
	FileSizeBytes         int64      `gorm:"column:file_size_bytes" json:"file_size_bytes"`
	FileHashMD5           string     `gorm:"column:file_hash_md5;size:32" json:"file_hash_md5,omitempty"`
	DownloadStartedAt     *time.Time `gorm:"column:download_started_at" json:"download_started_at,omitempty"`
	DownloadCompletedAt   *time.Time `gorm:"column:download_completed_at" json:"download_completed_at,omitempty"`
	LastError             string     `gorm:"column:last_error" json:"last_error,omitempty"`
}

// TableName returns the table name for AttachmentRow.
func (AttachmentRow) TableName() string {
	return "attachments"
}

// IsComplete reports whether this row represents a successfully validated
// download, the condition under which re-entrant downloads may be skipped.
func (a *AttachmentRow) IsComplete() bool {
	return a.Status == AttachmentStatusComplete && a.ValidationStatus == ValidationStatusValid
}
