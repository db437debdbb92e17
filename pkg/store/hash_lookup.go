package store

import (
	"context"

	"github.com/ingestkit/tipline/pkg/store/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *GORMStore) LoadAllHashEntries(ctx context.Context) ([]*models.HashEntry, error) {
	entries, err := listAll[models.HashEntry](s.db, ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReplaceHashDictionary truncates hash_lookup and bulk-inserts entries
// inside a single transaction, per the full-refresh semantics of the
// authoritative dictionary sync.
func (s *GORMStore) ReplaceHashDictionary(ctx context.Context, entries []*models.HashEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM hash_lookup").Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.CreateInBatches(entries, 500).Error
	})
}

// RecordUnknownHash upserts a sighting, preserving first_encountered across
// repeated misses of the same (tipHash, lookupType) pair.
func (s *GORMStore) RecordUnknownHash(ctx context.Context, tipHash, lookupType string) error {
	entry := &models.UnknownHash{TIPHash: tipHash, LookupType: lookupType}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tip_hash"}, {Name: "lookup_type"}},
			DoNothing: true,
		}).
		Create(entry).Error
}

func (s *GORMStore) ListUnknownHashes(ctx context.Context) ([]*models.UnknownHash, error) {
	unknowns, err := listAll[models.UnknownHash](s.db, ctx)
	if err != nil {
		return nil, err
	}
	return unknowns, nil
}
