package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"picdepot/internal/blobstore"
	"picdepot/internal/models"
	"picdepot/internal/store"
)

// TransformFunc derives an artifact from the original content bytes.
type TransformFunc func(ctx context.Context, original []byte) ([]byte, error)

// VariantTransform derives an artifact from the original content bytes
// according to a transform key such as "w=128".
type VariantTransform func(ctx context.Context, transformKey string, original []byte) ([]byte, error)

// CacheService stores derived artifacts (thumbnails, resizes) keyed by
// (original hash, transform parameters) and ranks them by heat score for
// eviction.
type CacheService struct {
	objects store.ObjectStore
	cache   store.CacheStore
	quotas  store.QuotaStore
	blobs   blobstore.Store
	cfg     EvictionConfig
	logger  *slog.Logger
}

// NewCacheService creates the derived-artifact cache.
func NewCacheService(objects store.ObjectStore, cache store.CacheStore, quotas store.QuotaStore, blobs blobstore.Store, cfg EvictionConfig, logger *slog.Logger) *CacheService {
	cfg.Normalize()
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheService{
		objects: objects,
		cache:   cache,
		quotas:  quotas,
		blobs:   blobs,
		cfg:     cfg,
		logger:  logger,
	}
}

// GetOrCreate returns the derived artifact for (originalHash,
// transformKey), computing and caching it on miss. The returned entry is
// nil when the artifact was served without being cached: a failed quota
// reservation degrades to computing the bytes for this response only.
func (s *CacheService) GetOrCreate(ctx context.Context, originalHash, transformKey string, compute TransformFunc) ([]byte, *models.CacheEntry, error) {
	transformKey = strings.TrimSpace(transformKey)
	if transformKey == "" {
		return nil, nil, badRequestCode(fmt.Errorf("transform parameters are required"), ErrCodeInvalidTransform)
	}
	if !models.ValidHash(originalHash) {
		return nil, nil, badRequestCode(fmt.Errorf("invalid hash"), ErrCodeInvalidHash)
	}

	key := cacheKey(originalHash, transformKey)

	entry, err := s.cache.FindCacheEntry(ctx, key)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if entry != nil {
		data, err := s.blobs.Read(ctx, entry.FilePath)
		if err == nil {
			if bumpErr := s.cache.BumpCacheHeat(ctx, key, s.cfg.HitBoost, time.Now().UTC()); bumpErr != nil {
				s.logger.Warn("bump cache heat", "cache_key", key, "error", bumpErr)
			}
			return data, entry, nil
		}
		if !errors.Is(err, blobstore.ErrNotFound) {
			return nil, nil, blobFailure(err)
		}
		// Stale index row pointing at a missing file: drop it and recompute.
		s.logger.Warn("cache entry file missing", "cache_key", key, "path", entry.FilePath)
		if _, dropErr := s.dropEntry(ctx, *entry); dropErr != nil {
			return nil, nil, dropErr
		}
	}

	original, err := s.objects.FindObjectByHash(ctx, originalHash)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if original == nil {
		return nil, nil, notFound(fmt.Errorf("object %s not found", originalHash))
	}

	originalData, err := s.blobs.Read(ctx, blobstore.ObjectKey(original.Hash, original.Extension))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, nil, notFound(fmt.Errorf("object %s content missing", originalHash))
		}
		return nil, nil, blobFailure(err)
	}

	derived, err := compute(ctx, originalData)
	if err != nil {
		return nil, nil, internalError(fmt.Errorf("transform %q: %w", transformKey, err))
	}
	if len(derived) == 0 {
		return nil, nil, internalError(fmt.Errorf("transform %q produced no output", transformKey))
	}

	newEntry := &models.CacheEntry{
		CacheKey:     key,
		OriginalHash: original.Hash,
		FilePath:     blobstore.ObjectKey(key, original.Extension),
		Size:         int64(len(derived)),
		HeatScore:    s.cfg.InitialHeat,
		CreatedAt:    time.Now().UTC(),
		OwnerID:      original.OwnerID,
	}

	if err := s.quotas.ReserveQuota(ctx, original.OwnerID, newEntry.Size); err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			// Serve the bytes without caching them.
			s.logger.Warn("cache insert skipped: quota exhausted",
				"owner", original.OwnerID, "cache_key", key)
			return derived, nil, nil
		}
		return nil, nil, storeFailure(err)
	}

	conflict := false
	err = runSaga(ctx, s.logger, []sagaStep{
		{
			name: "write cache blob",
			run: func(ctx context.Context) error {
				return s.blobs.Write(ctx, newEntry.FilePath, derived)
			},
			undo: func(ctx context.Context) error {
				if conflict {
					return nil
				}
				return s.blobs.Delete(ctx, newEntry.FilePath)
			},
		},
		{
			name: "insert cache entry",
			run: func(ctx context.Context) error {
				err := s.cache.InsertCacheEntry(ctx, newEntry)
				if errors.Is(err, store.ErrCacheEntryExists) {
					conflict = true
				}
				return err
			},
		},
	})
	if err != nil {
		if releaseErr := s.quotas.ReleaseQuota(ctx, original.OwnerID, newEntry.Size); releaseErr != nil {
			s.logger.Error("release cache reservation", "cache_key", key, "error", releaseErr)
		}
		if conflict {
			winner, findErr := s.cache.FindCacheEntry(ctx, key)
			if findErr != nil {
				return nil, nil, storeFailure(findErr)
			}
			return derived, winner, nil
		}
		return nil, nil, storeFailure(err)
	}

	return derived, newEntry, nil
}

// RemoveEntry evicts one cache entry and returns its freed bytes.
func (s *CacheService) RemoveEntry(ctx context.Context, key string) (int64, error) {
	entry, err := s.cache.FindCacheEntry(ctx, key)
	if err != nil {
		return 0, storeFailure(err)
	}
	if entry == nil {
		return 0, notFoundCode(fmt.Errorf("cache entry %s not found", key), ErrCodeCacheEntryNotFound)
	}
	return s.dropEntry(ctx, *entry)
}

// RemoveByOriginal evicts every derived artifact of one original and
// returns (entries removed, bytes freed).
func (s *CacheService) RemoveByOriginal(ctx context.Context, originalHash string) (int64, int64, error) {
	entries, err := s.cache.ListCacheEntriesByOriginal(ctx, originalHash)
	if err != nil {
		return 0, 0, storeFailure(err)
	}

	var removed, freed int64
	for _, entry := range entries {
		n, err := s.dropEntry(ctx, entry)
		if err != nil {
			return removed, freed, err
		}
		removed++
		freed += n
	}
	return removed, freed, nil
}

// Stats returns the cache index footprint.
func (s *CacheService) Stats(ctx context.Context) (models.CacheStats, error) {
	stats, err := s.cache.CacheStats(ctx)
	if err != nil {
		return models.CacheStats{}, storeFailure(err)
	}
	return stats, nil
}

// dropEntry removes one entry's index row, file, and ledger charge. The
// index row goes first: once it is gone the entry can no longer be
// served, and file or ledger stragglers are logged and reclaimed by the
// next pass rather than failing the eviction.
func (s *CacheService) dropEntry(ctx context.Context, entry models.CacheEntry) (int64, error) {
	removed, err := s.cache.DeleteCacheEntry(ctx, entry.CacheKey)
	if err != nil {
		return 0, storeFailure(err)
	}
	if !removed {
		return 0, nil
	}

	if err := s.blobs.Delete(ctx, entry.FilePath); err != nil {
		s.logger.Warn("delete cache blob", "cache_key", entry.CacheKey, "error", err)
	}
	if err := s.quotas.ReleaseQuota(ctx, entry.OwnerID, entry.Size); err != nil {
		s.logger.Error("release cache quota",
			"cache_key", entry.CacheKey, "owner", entry.OwnerID, "error", err)
	}
	return entry.Size, nil
}
