package store

import (
	"context"
	"time"

	"github.com/ingestkit/tipline/pkg/store/models"
)

func (s *GORMStore) GetWorkItem(ctx context.Context, tip string) (*models.WorkItem, error) {
	return getByField[models.WorkItem](s.db, ctx, "tip", tip, models.ErrWorkItemNotFound)
}

func (s *GORMStore) CreateWorkItem(ctx context.Context, item *models.WorkItem) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrDuplicateWorkItem
		}
		return err
	}
	return nil
}

func (s *GORMStore) UpdateWorkItem(ctx context.Context, item *models.WorkItem) error {
	result := s.db.WithContext(ctx).Model(&models.WorkItem{}).Where("tip = ?", item.TIP).Updates(item)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrWorkItemNotFound
	}
	return nil
}

// ListEligibleWorkItems implements the eligibility and ordering rule:
// status in the eligible set, not permanently failed, next_retry_at
// null or in the past, ordered by status priority then age.
func (s *GORMStore) ListEligibleWorkItems(ctx context.Context, kind string, limit int, now time.Time) ([]*models.WorkItem, error) {
	eligibleStatuses := []string{
		models.StatusPending,
		models.StatusCSVImported,
		models.StatusPartial,
		models.StatusAPIError,
		models.StatusFailed,
		models.StatusInterrupted,
	}

	var items []*models.WorkItem
	err := s.db.WithContext(ctx).
		Where("kind = ?", kind).
		Where("status IN ?", eligibleStatuses).
		Where("permanently_failed = ?", false).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Order(statusPriorityCase() + ", csv_imported_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// statusPriorityCase renders a portable SQL CASE expression implementing
// the same status ordering as eligibleStatusPriority (pending <
// csv_imported < partial < api_error < failed), since that priority
// mapping only exists in Go code otherwise.
func statusPriorityCase() string {
	return `CASE status
		WHEN '` + models.StatusPending + `' THEN 0
		WHEN '` + models.StatusCSVImported + `' THEN 1
		WHEN '` + models.StatusPartial + `' THEN 2
		WHEN '` + models.StatusAPIError + `' THEN 3
		WHEN '` + models.StatusFailed + `' THEN 4
		WHEN '` + models.StatusInterrupted + `' THEN 4
		ELSE 5 END ASC`
}

func (s *GORMStore) CountWorkItemsByKindAndStatus(ctx context.Context) (map[string]map[string]int64, error) {
	type row struct {
		Kind   string
		Status string
		Count  int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).
		Model(&models.WorkItem{}).
		Select("kind, status, count(*) as count").
		Group("kind, status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make(map[string]map[string]int64)
	for _, r := range rows {
		if _, ok := result[r.Kind]; !ok {
			result[r.Kind] = make(map[string]int64)
		}
		result[r.Kind][r.Status] = r.Count
	}
	return result, nil
}
