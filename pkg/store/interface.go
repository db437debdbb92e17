// Package store provides the persistence layer for the ingestion pipeline.
//
// It manages WorkItems, their AttachmentRows, the hash lookup dictionary and
// its unknown-hash sightings table, and the append-only processing error
// log. The Store interface is composed of focused sub-interfaces, each
// grouping related operations by entity. Consumers should accept the
// narrowest sub-interface they need.
//
// Two backends are supported:
//   - SQLite (single-node, default)
//   - PostgreSQL (HA-capable, for multi-instance deployments)
package store

import (
	"context"
	"time"

	"github.com/ingestkit/tipline/pkg/store/models"
)

// WorkItemStore provides WorkItem CRUD and batch-selection operations.
//
// All methods are safe for concurrent use.
type WorkItemStore interface {
	// GetWorkItem returns a work item by TIP.
	// Returns models.ErrWorkItemNotFound if it doesn't exist.
	GetWorkItem(ctx context.Context, tip string) (*models.WorkItem, error)

	// CreateWorkItem inserts a new work item.
	// Returns models.ErrDuplicateWorkItem if the TIP already exists.
	CreateWorkItem(ctx context.Context, item *models.WorkItem) error

	// UpdateWorkItem persists changes to an existing work item.
	// Returns models.ErrWorkItemNotFound if it doesn't exist.
	UpdateWorkItem(ctx context.Context, item *models.WorkItem) error

	// ListEligibleWorkItems returns up to limit work items for the given
	// kind that are eligible for processing, ordered by status priority
	// then by csv_imported_at ascending, per the status-priority ordering rule.
	ListEligibleWorkItems(ctx context.Context, kind string, limit int, now time.Time) ([]*models.WorkItem, error)

	// CountWorkItemsByKindAndStatus returns, for every (kind, status) pair
	// present in the table, the number of work items in that state.
	CountWorkItemsByKindAndStatus(ctx context.Context) (map[string]map[string]int64, error)
}

// AttachmentStore provides AttachmentRow CRUD operations.
type AttachmentStore interface {
	// GetAttachment returns an attachment row by (recordTIP, attachmentTIP).
	// Returns models.ErrAttachmentNotFound if it doesn't exist.
	GetAttachment(ctx context.Context, recordTIP, attachmentTIP string) (*models.AttachmentRow, error)

	// UpsertAttachment creates the row if absent, otherwise updates it in
	// place. Used both to mark the start of a download attempt and to
	// record its outcome.
	UpsertAttachment(ctx context.Context, row *models.AttachmentRow) error

	// ListAttachments returns all attachment rows for a record, ordered by
	// sequence ascending.
	ListAttachments(ctx context.Context, recordTIP string) ([]*models.AttachmentRow, error)
}

// HashStore provides hash dictionary read/bulk-load operations.
type HashStore interface {
	// LoadAllHashEntries returns the full hash dictionary, for
	// materialising the HashResolver's in-memory cache.
	LoadAllHashEntries(ctx context.Context) ([]*models.HashEntry, error)

	// ReplaceHashDictionary truncates the hash_lookup table and bulk
	// inserts entries, per the full-refresh semantics of the dictionary sync.
	ReplaceHashDictionary(ctx context.Context, entries []*models.HashEntry) error

	// RecordUnknownHash performs an idempotent upsert into the
	// unknown-hashes table, preserving the first-encountered timestamp on
	// repeated sightings of the same (tipHash, lookupType) pair.
	RecordUnknownHash(ctx context.Context, tipHash, lookupType string) error

	// ListUnknownHashes returns all recorded unknown-hash sightings.
	ListUnknownHashes(ctx context.Context) ([]*models.UnknownHash, error)
}

// ProcessingErrorStore provides append-only error log operations.
type ProcessingErrorStore interface {
	// RecordProcessingError appends a row to the processing error log.
	RecordProcessingError(ctx context.Context, entry *models.ProcessingError) error

	// ListProcessingErrors returns processing errors for a TIP, most
	// recent first.
	ListProcessingErrors(ctx context.Context, tip string) ([]*models.ProcessingError, error)
}

// HealthStore provides store health check and lifecycle operations.
type HealthStore interface {
	// Healthcheck verifies the store is operational.
	Healthcheck(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// Store is the composite persistence interface used by the processor,
// runner, and CLI status command.
//
// Thread Safety: implementations must be safe for concurrent use from
// multiple goroutines.
type Store interface {
	WorkItemStore
	AttachmentStore
	HashStore
	ProcessingErrorStore
	HealthStore
}
