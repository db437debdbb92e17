package store

import (
	"context"

	"github.com/ingestkit/tipline/pkg/store/models"
)

func (s *GORMStore) RecordProcessingError(ctx context.Context, entry *models.ProcessingError) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GORMStore) ListProcessingErrors(ctx context.Context, tip string) ([]*models.ProcessingError, error) {
	var rows []*models.ProcessingError
	err := s.db.WithContext(ctx).
		Where("tip = ?", tip).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
