package models

import (
	"fmt"
	"strings"
	"time"
)

// CacheEntry is one derived artifact in the transform cache, keyed by a
// digest of (original hash, transform parameters). The heat score ranks
// eviction order: it is bumped on every hit and decayed by administrative
// passes, and never goes below zero.
type CacheEntry struct {
	CacheKey     string     `json:"cache_key"`
	OriginalHash string     `json:"original_hash"`
	FilePath     string     `json:"file_path"`
	Size         int64      `json:"size"`
	HeatScore    float64    `json:"heat_score"`
	CreatedAt    time.Time  `json:"created_at"`
	LastHit      *time.Time `json:"last_hit,omitempty"`
	OwnerID      int64      `json:"owner_id,omitempty"`
}

// Validate checks cache index invariants before insert.
func (e *CacheEntry) Validate() error {
	if e == nil {
		return fmt.Errorf("cache entry is required")
	}
	if !ValidHash(e.CacheKey) {
		return fmt.Errorf("invalid cache key")
	}
	if !ValidHash(e.OriginalHash) {
		return fmt.Errorf("invalid original hash")
	}
	if strings.TrimSpace(e.FilePath) == "" {
		return fmt.Errorf("cache file path is required")
	}
	if e.Size <= 0 {
		return fmt.Errorf("cache entry size must be positive")
	}
	if e.HeatScore < 0 {
		return fmt.Errorf("heat score must be non-negative")
	}
	if e.OwnerID < 0 {
		return fmt.Errorf("invalid owner id")
	}
	return nil
}

// CacheStats aggregates the cache index footprint.
type CacheStats struct {
	EntryCount int64 `json:"entry_count"`
	TotalBytes int64 `json:"total_bytes"`
}

// CleanupResult reports one eviction or cleanup pass.
type CleanupResult struct {
	RemovedCount   int64 `json:"removed_count"`
	FreedBytes     int64 `json:"freed_bytes"`
	RemainingCount int64 `json:"remaining_count"`
	RemainingBytes int64 `json:"remaining_bytes"`
}
