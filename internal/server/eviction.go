package server

import (
	"context"
	"fmt"
	"time"

	"picdepot/internal/models"
)

const (
	defaultCacheCapacityBytes = 1 << 30 // 1 GiB
	defaultTriggerRatio       = 0.8
	defaultTargetRatio        = 0.6
	defaultDecayFactor        = 0.9
	defaultInitialHeat        = 1.0
	defaultHitBoost           = 1.0
)

// EvictionConfig tunes the cache eviction engine. Zero values select the
// defaults.
type EvictionConfig struct {
	// CapacityBytes is the cache size budget.
	CapacityBytes int64
	// TriggerRatio of capacity at which auto cleanup starts evicting.
	TriggerRatio float64
	// TargetRatio of capacity auto cleanup shrinks the cache down to.
	TargetRatio float64
	// DecayFactor multiplies every heat score on a decay pass.
	DecayFactor float64
	// InitialHeat is the score assigned to a freshly cached entry.
	InitialHeat float64
	// HitBoost is added to an entry's score on every cache hit.
	HitBoost float64
}

// Normalize fills zero fields with defaults and clamps ratios into (0, 1].
func (c *EvictionConfig) Normalize() {
	if c.CapacityBytes <= 0 {
		c.CapacityBytes = defaultCacheCapacityBytes
	}
	if c.TriggerRatio <= 0 || c.TriggerRatio > 1 {
		c.TriggerRatio = defaultTriggerRatio
	}
	if c.TargetRatio <= 0 || c.TargetRatio > 1 {
		c.TargetRatio = defaultTargetRatio
	}
	if c.TargetRatio > c.TriggerRatio {
		c.TargetRatio = c.TriggerRatio
	}
	if c.DecayFactor <= 0 || c.DecayFactor > 1 {
		c.DecayFactor = defaultDecayFactor
	}
	if c.InitialHeat <= 0 {
		c.InitialHeat = defaultInitialHeat
	}
	if c.HitBoost <= 0 {
		c.HitBoost = defaultHitBoost
	}
}

// EvictionEngine runs decay and cleanup passes over the cache index.
type EvictionEngine struct {
	cache *CacheService
	cfg   EvictionConfig
}

// NewEvictionEngine creates the engine over an existing cache service.
func NewEvictionEngine(cache *CacheService, cfg EvictionConfig) *EvictionEngine {
	cfg.Normalize()
	return &EvictionEngine{cache: cache, cfg: cfg}
}

// Decay multiplies every heat score by factor and returns the number of
// entries touched. A factor of 0 selects the configured default.
func (e *EvictionEngine) Decay(ctx context.Context, factor float64) (int64, error) {
	if factor == 0 {
		factor = e.cfg.DecayFactor
	}
	if factor <= 0 || factor > 1 {
		return 0, badRequestCode(fmt.Errorf("decay factor must be in (0, 1]"), ErrCodeInvalidArgument)
	}
	touched, err := e.cache.cache.DecayHeatScores(ctx, factor)
	if err != nil {
		return 0, storeFailure(err)
	}
	return touched, nil
}

// AutoCleanup evicts coldest-first down to the target size, but only once
// the cache has grown past the trigger threshold. Below the trigger it is
// a no-op reporting the current footprint.
func (e *EvictionEngine) AutoCleanup(ctx context.Context) (*models.CleanupResult, error) {
	stats, err := e.cache.Stats(ctx)
	if err != nil {
		return nil, err
	}

	trigger := int64(float64(e.cfg.CapacityBytes) * e.cfg.TriggerRatio)
	if stats.TotalBytes <= trigger {
		return &models.CleanupResult{
			RemainingCount: stats.EntryCount,
			RemainingBytes: stats.TotalBytes,
		}, nil
	}

	target := int64(float64(e.cfg.CapacityBytes) * e.cfg.TargetRatio)
	return e.evictColdestDownTo(ctx, stats, target)
}

// Cleanup removes entries older than maxAge, then evicts coldest-first
// until the cache fits in maxSize. Either bound may be nil.
func (e *EvictionEngine) Cleanup(ctx context.Context, maxAge *time.Duration, maxSize *int64) (*models.CleanupResult, error) {
	if maxAge == nil && maxSize == nil {
		return nil, badRequestCode(fmt.Errorf("max_age or max_size is required"), ErrCodeMissingRequired)
	}
	if maxAge != nil && *maxAge < 0 {
		return nil, badRequestCode(fmt.Errorf("max_age must be >= 0"), ErrCodeInvalidArgument)
	}
	if maxSize != nil && *maxSize < 0 {
		return nil, badRequestCode(fmt.Errorf("max_size must be >= 0"), ErrCodeInvalidArgument)
	}

	result := &models.CleanupResult{}

	if maxAge != nil {
		cutoff := time.Now().UTC().Add(-*maxAge)
		expired, err := e.cache.cache.ListCacheEntriesOlderThan(ctx, cutoff)
		if err != nil {
			return nil, storeFailure(err)
		}
		for _, entry := range expired {
			freed, err := e.cache.dropEntry(ctx, entry)
			if err != nil {
				return nil, err
			}
			result.RemovedCount++
			result.FreedBytes += freed
		}
	}

	stats, err := e.cache.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if maxSize != nil && stats.TotalBytes > *maxSize {
		sized, err := e.evictColdestDownTo(ctx, stats, *maxSize)
		if err != nil {
			return nil, err
		}
		result.RemovedCount += sized.RemovedCount
		result.FreedBytes += sized.FreedBytes
		result.RemainingCount = sized.RemainingCount
		result.RemainingBytes = sized.RemainingBytes
		return result, nil
	}

	result.RemainingCount = stats.EntryCount
	result.RemainingBytes = stats.TotalBytes
	return result, nil
}

// ClearAll evicts the entire cache.
func (e *EvictionEngine) ClearAll(ctx context.Context) (*models.CleanupResult, error) {
	stats, err := e.cache.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return e.evictColdestDownTo(ctx, stats, 0)
}

func (e *EvictionEngine) evictColdestDownTo(ctx context.Context, stats models.CacheStats, target int64) (*models.CleanupResult, error) {
	candidates, err := e.cache.cache.ListEvictionCandidates(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}

	result := &models.CleanupResult{
		RemainingCount: stats.EntryCount,
		RemainingBytes: stats.TotalBytes,
	}
	for _, entry := range candidates {
		if result.RemainingBytes <= target {
			break
		}
		freed, err := e.cache.dropEntry(ctx, entry)
		if err != nil {
			return nil, err
		}
		result.RemovedCount++
		result.FreedBytes += freed
		result.RemainingCount--
		result.RemainingBytes -= freed
	}
	return result, nil
}
