// Package hashresolver resolves opaque hashes embedded in upstream
// payloads (vehicle, trailer, team, department identifiers) to their
// display strings, backed by a lazily loaded in-memory cache over the
// store's hash dictionary.
package hashresolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/ingestkit/tipline/pkg/store/models"
)

// cacheKey mirrors the dictionary's composite primary key.
type cacheKey struct {
	hash       string
	lookupType string
}

// Resolver looks up resolved display strings for opaque hashes, caching
// the full dictionary in memory after first use. The cache is read-mostly;
// a single mutex guards both load and invalidation.
type Resolver struct {
	store store.HashStore

	mu     sync.RWMutex
	cache  map[cacheKey]string
	loaded bool

	unknownLog *UnknownHashLog
}

// New creates a Resolver backed by the given store. The dictionary is not
// loaded until the first Lookup call.
func New(hashStore store.HashStore) *Resolver {
	return &Resolver{store: hashStore}
}

// SetUnknownHashLog attaches the dedicated unknown-hashes log file. Safe to
// call with nil, which leaves unknown lookups recorded only in the store
// and the structured logger.
func (r *Resolver) SetUnknownHashLog(log *UnknownHashLog) {
	r.unknownLog = log
}

// Lookup resolves hash under lookupType to its display string. tip and
// inspectionID are used only for logging an unknown-hash sighting; either
// may be empty. On a cache miss, a sighting is recorded in the store and a
// placeholder string is returned instead of an error, since an unresolved
// hash must not block the rest of the record from processing.
func (r *Resolver) Lookup(ctx context.Context, lookupType, hash, tip, inspectionID string) (string, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return "", err
	}

	key := cacheKey{hash: hash, lookupType: lookupType}

	r.mu.RLock()
	value, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return value, nil
	}

	if err := r.store.RecordUnknownHash(ctx, hash, lookupType); err != nil {
		logger.WarnCtx(ctx, "failed to record unknown hash sighting",
			logger.HashType(lookupType), logger.HashValue(hash), logger.Err(err))
	}

	if r.unknownLog != nil {
		if err := r.unknownLog.Record(lookupType, hash, tip, inspectionID); err != nil {
			logger.WarnCtx(ctx, "failed to write unknown hash log",
				logger.HashType(lookupType), logger.HashValue(hash), logger.Err(err))
		}
	}

	logger.WarnCtx(ctx, "unknown hash encountered",
		logger.HashType(lookupType), logger.HashValue(hash),
		logger.TIP(tip), logger.InspectionID(inspectionID))

	return fmt.Sprintf("Unknown (%s)", hash), nil
}

// ensureLoaded materialises the full dictionary on first use.
func (r *Resolver) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}

	entries, err := r.store.LoadAllHashEntries(ctx)
	if err != nil {
		return fmt.Errorf("loading hash dictionary: %w", err)
	}

	cache := make(map[cacheKey]string, len(entries))
	for _, e := range entries {
		cache[cacheKey{hash: e.TIPHash, lookupType: e.LookupType}] = e.ResolvedValue
	}

	r.cache = cache
	r.loaded = true
	logger.InfoCtx(ctx, "hash dictionary loaded", logger.RowCount(len(cache)))
	return nil
}

// Invalidate discards the in-memory cache, forcing the next Lookup to
// reload the dictionary from the store. Called after the authoritative
// dictionary is refreshed from operator-provided exports.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = nil
	r.loaded = false
}

// ReplaceDictionary overwrites the store's hash dictionary and invalidates
// the cache so the next Lookup reloads it.
func (r *Resolver) ReplaceDictionary(ctx context.Context, entries []*models.HashEntry) error {
	if err := r.store.ReplaceHashDictionary(ctx, entries); err != nil {
		return fmt.Errorf("replacing hash dictionary: %w", err)
	}
	r.Invalidate()
	return nil
}
