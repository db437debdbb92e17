package store

import (
	"context"

	"github.com/ingestkit/tipline/pkg/store/models"
	"gorm.io/gorm/clause"
)

func (s *GORMStore) GetAttachment(ctx context.Context, recordTIP, attachmentTIP string) (*models.AttachmentRow, error) {
	var row models.AttachmentRow
	err := s.db.WithContext(ctx).
		Where("record_tip = ? AND attachment_tip = ?", recordTIP, attachmentTIP).
		First(&row).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrAttachmentNotFound)
	}
	return &row, nil
}

// UpsertAttachment relies on the composite primary key (record_tip,
// attachment_tip) to implement the "at most one row per attachment" pairing
// invariant: a second insert attempt for the same pair updates the row
// created by the first, instead of conflicting.
func (s *GORMStore) UpsertAttachment(ctx context.Context, row *models.AttachmentRow) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_tip"}, {Name: "attachment_tip"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

func (s *GORMStore) ListAttachments(ctx context.Context, recordTIP string) ([]*models.AttachmentRow, error) {
	var rows []*models.AttachmentRow
	err := s.db.WithContext(ctx).
		Where("record_tip = ?", recordTIP).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
