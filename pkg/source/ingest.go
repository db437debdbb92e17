package source

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/ingestkit/tipline/pkg/store/models"
)

// Store is the narrow persistence interface the ingester needs.
type Store interface {
	store.WorkItemStore
}

// Config controls ingestion behaviour shared by every poller.
type Config struct {
	// UpdateOnly, when true, leaves a pre-existing WorkItem's status
	// untouched on a duplicate sighting; it only refreshes
	// SourceFilename/CSVImportedAt. When false (the continuous runner's
	// normal mode) a duplicate is logged and otherwise skipped.
	UpdateOnly bool
}

// Stats summarises one file's ingestion outcome.
type Stats struct {
	Abbreviation string
	TotalRows    int
	Inserted     int
	Duplicates   int
}

// IngestFile parses r as a CSV export and inserts one pending WorkItem per
// new row. sourceFilename is recorded on each WorkItem for traceability.
func IngestFile(ctx context.Context, st Store, r io.Reader, sourceFilename string, cfg Config) (*Stats, error) {
	parsed, err := Parse(r)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Abbreviation: parsed.Abbreviation, TotalRows: len(parsed.Rows)}
	now := time.Now()

	for _, row := range parsed.Rows {
		existing, err := st.GetWorkItem(ctx, row.TIP)
		switch {
		case err == nil:
			stats.Duplicates++
			logger.InfoCtx(ctx, "duplicate TIP skipped on csv import",
				logger.TIP(row.TIP), logger.Kind(parsed.Abbreviation), logger.Status(existing.Status))
			if cfg.UpdateOnly {
				existing.SourceFilename = sourceFilename
				existing.CSVImportedAt = &now
				if err := st.UpdateWorkItem(ctx, existing); err != nil {
					return stats, err
				}
			}
			continue
		case errors.Is(err, models.ErrWorkItemNotFound):
			// new TIP, fall through to insert
		default:
			return stats, err
		}

		item := &models.WorkItem{
			TIP:                  row.TIP,
			Kind:                 parsed.Abbreviation,
			Status:               models.StatusPending,
			SourceFilename:       sourceFilename,
			ExpectedInspectionID: row.InspectionID,
			CSVImportedAt:        &now,
		}
		if row.InspectionDate != nil {
			item.ExpectedInspectionDate = row.InspectionDate.Format("2006-01-02")
		}

		if err := st.CreateWorkItem(ctx, item); err != nil {
			if errors.Is(err, models.ErrDuplicateWorkItem) {
				stats.Duplicates++
				continue
			}
			return stats, err
		}
		stats.Inserted++
	}

	return stats, nil
}
