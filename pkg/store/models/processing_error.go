package models

import "time"

// ProcessingError is an append-only log of errors encountered while
// processing a TIP. Rows are never updated or deleted by the core.
type ProcessingError struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TIP               string    `gorm:"column:tip;size:128;index" json:"tip"`
	ErrorType         string    `gorm:"column:error_type;size:64" json:"error_type"`
	ErrorMessage      string    `gorm:"column:error_message" json:"error_message"`
	ErrorDetailsJSON  string    `gorm:"column:error_details_json" json:"error_details_json,omitempty"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

// TableName returns the table name for ProcessingError.
func (ProcessingError) TableName() string {
	return "processing_errors"
}
