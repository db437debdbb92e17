package hashresolver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestkit/tipline/pkg/hashresolver"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/ingestkit/tipline/pkg/store/models"
)

func newTestStore(t *testing.T) *store.GORMStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: dir + "/test.db"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLookupHitReturnsResolvedValue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.ReplaceHashDictionary(ctx, []*models.HashEntry{
		{TIPHash: "h1", LookupType: models.HashTypeVehicle, ResolvedValue: "Truck 1"},
	}))

	r := hashresolver.New(s)
	value, err := r.Lookup(ctx, models.HashTypeVehicle, "h1", "tip-1", "LCD-1")
	require.NoError(t, err)
	assert.Equal(t, "Truck 1", value)
}

func TestLookupMissRecordsSightingAndReturnsPlaceholder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	r := hashresolver.New(s)
	value, err := r.Lookup(ctx, models.HashTypeVehicle, "h-missing", "tip-1", "LCD-1")
	require.NoError(t, err)
	assert.Equal(t, "Unknown (h-missing)", value)

	unknowns, err := s.ListUnknownHashes(ctx)
	require.NoError(t, err)
	require.Len(t, unknowns, 1)
	assert.Equal(t, "h-missing", unknowns[0].TIPHash)
}

func TestLookupMissIsIdempotentAcrossRepeatedSightings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := hashresolver.New(s)

	_, err := r.Lookup(ctx, models.HashTypeVehicle, "h-missing", "tip-1", "LCD-1")
	require.NoError(t, err)
	_, err = r.Lookup(ctx, models.HashTypeVehicle, "h-missing", "tip-2", "LCD-2")
	require.NoError(t, err)

	unknowns, err := s.ListUnknownHashes(ctx)
	require.NoError(t, err)
	require.Len(t, unknowns, 1)
}

func TestInvalidateForcesReload(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := hashresolver.New(s)

	value, err := r.Lookup(ctx, models.HashTypeVehicle, "h1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Unknown (h1)", value)

	require.NoError(t, r.ReplaceDictionary(ctx, []*models.HashEntry{
		{TIPHash: "h1", LookupType: models.HashTypeVehicle, ResolvedValue: "Truck 1"},
	}))

	value, err = r.Lookup(ctx, models.HashTypeVehicle, "h1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Truck 1", value)
}

func TestLookupMissAppendsToUnknownHashLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := hashresolver.New(s)

	logPath := filepath.Join(t.TempDir(), "unknown_hashes.log")
	log, err := hashresolver.NewUnknownHashLog(logPath)
	require.NoError(t, err)
	r.SetUnknownHashLog(log)

	_, err = r.Lookup(ctx, models.HashTypeVehicle, "h-missing", "tip-1", "LCD-1")
	require.NoError(t, err)
	require.NoError(t, log.Close())

	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)
	line := string(contents)
	assert.Contains(t, line, "| "+models.HashTypeVehicle+" | h-missing | LCD-1 | TIP: tip-1")
}

func TestLookupMissWithoutTIPOrInspectionIDLogsUnknownPlaceholders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := hashresolver.New(s)

	logPath := filepath.Join(t.TempDir(), "unknown_hashes.log")
	log, err := hashresolver.NewUnknownHashLog(logPath)
	require.NoError(t, err)
	r.SetUnknownHashLog(log)

	_, err = r.Lookup(ctx, models.HashTypeVehicle, "h-missing", "", "")
	require.NoError(t, err)
	require.NoError(t, log.Close())

	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "| "+models.HashTypeVehicle+" | h-missing | UNKNOWN | TIP: UNKNOWN")
}
