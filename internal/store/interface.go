package store

import (
	"context"
	"time"

	"picdepot/internal/models"
)

// ObjectStore is the catalog surface consumed by the object service.
type ObjectStore interface {
	FindObjectByHash(ctx context.Context, hash string) (*models.ObjectRecord, error)
	InsertObject(ctx context.Context, record *models.ObjectRecord) error
	DeleteObjectByHash(ctx context.Context, hash string) (bool, error)
	TouchObjectAccess(ctx context.Context, hash string, now time.Time) error
	QueryObjects(ctx context.Context, query models.ObjectQuery) ([]models.ObjectRecord, int64, error)
	ObjectStats(ctx context.Context, owner *int64) (models.ObjectStats, error)
	ListObjectsByOwner(ctx context.Context, owner int64) ([]models.ObjectRecord, error)
}

// CacheStore is the cache index surface consumed by the cache service and
// the eviction engine.
type CacheStore interface {
	FindCacheEntry(ctx context.Context, cacheKey string) (*models.CacheEntry, error)
	InsertCacheEntry(ctx context.Context, entry *models.CacheEntry) error
	BumpCacheHeat(ctx context.Context, cacheKey string, boost float64, now time.Time) error
	DecayHeatScores(ctx context.Context, factor float64) (int64, error)
	DeleteCacheEntry(ctx context.Context, cacheKey string) (bool, error)
	ListCacheEntriesByOriginal(ctx context.Context, originalHash string) ([]models.CacheEntry, error)
	ListEvictionCandidates(ctx context.Context) ([]models.CacheEntry, error)
	ListCacheEntriesOlderThan(ctx context.Context, cutoff time.Time) ([]models.CacheEntry, error)
	CacheStats(ctx context.Context) (models.CacheStats, error)
}

// QuotaStore is the ledger surface consumed by the services.
type QuotaStore interface {
	ReserveQuota(ctx context.Context, tenantID, n int64) error
	ReleaseQuota(ctx context.Context, tenantID, n int64) error
	GetQuotaAccount(ctx context.Context, tenantID int64) (*models.QuotaAccount, error)
	SetQuotaLimit(ctx context.Context, tenantID int64, limit *int64) error
	DeleteQuotaAccount(ctx context.Context, tenantID int64) (bool, error)
	ListQuotaAccounts(ctx context.Context) ([]models.QuotaAccount, error)
}

var (
	_ ObjectStore = (*Store)(nil)
	_ CacheStore  = (*Store)(nil)
	_ QuotaStore  = (*Store)(nil)
)
