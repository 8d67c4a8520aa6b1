package api

import "time"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// InfoResponse describes the running server.
type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ObjectResponse is one catalog record on the wire.
type ObjectResponse struct {
	Hash             string     `json:"hash"`
	Size             int64      `json:"size"`
	MIME             string     `json:"mime"`
	OwnerID          int64      `json:"owner_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	LastAccessed     *time.Time `json:"last_accessed,omitempty"`
	AccessCount      int64      `json:"access_count"`
	OriginalFilename string     `json:"original_filename,omitempty"`
	Extension        string     `json:"extension"`
}

// UploadResponse reports an upload. Created is false when the content
// deduplicated to an existing object.
type UploadResponse struct {
	Object  ObjectResponse `json:"object"`
	Created bool           `json:"created"`
}

// ObjectListResponse is one catalog page.
type ObjectListResponse struct {
	Objects []ObjectResponse `json:"objects"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// StatsResponse aggregates catalog and cache usage.
type StatsResponse struct {
	ObjectCount int64 `json:"object_count"`
	ObjectBytes int64 `json:"object_bytes"`
	CacheCount  int64 `json:"cache_count"`
	CacheBytes  int64 `json:"cache_bytes"`
}

// CacheStatsResponse is the cache index footprint.
type CacheStatsResponse struct {
	EntryCount int64 `json:"entry_count"`
	TotalBytes int64 `json:"total_bytes"`
}

// DecayRequest tunes one decay pass. Factor 0 selects the server default.
type DecayRequest struct {
	Factor float64 `json:"factor,omitempty"`
}

// DecayResponse reports one decay pass.
type DecayResponse struct {
	EntriesTouched int64   `json:"entries_touched"`
	Factor         float64 `json:"factor"`
}

// CleanupRequest bounds one cleanup pass. Both fields nil selects the
// automatic threshold-driven cleanup.
type CleanupRequest struct {
	MaxAgeSeconds *int64 `json:"max_age_seconds,omitempty"`
	MaxSize       *int64 `json:"max_size,omitempty"`
}

// CleanupResponse reports one eviction or cleanup pass.
type CleanupResponse struct {
	RemovedCount   int64 `json:"removed_count"`
	FreedBytes     int64 `json:"freed_bytes"`
	RemainingCount int64 `json:"remaining_count"`
	RemainingBytes int64 `json:"remaining_bytes"`
}

// QuotaSetRequest sets or clears a tenant's limit. A nil limit means
// unlimited.
type QuotaSetRequest struct {
	QuotaLimit *int64 `json:"quota_limit"`
}

// QuotaResponse is one ledger row on the wire. Remaining is -1 when the
// tenant is unlimited.
type QuotaResponse struct {
	TenantID   int64  `json:"tenant_id"`
	QuotaLimit *int64 `json:"quota_limit,omitempty"`
	UsedBytes  int64  `json:"used_bytes"`
	Remaining  int64  `json:"remaining"`
}

// QuotaDeleteResponse reports a tenant retirement.
type QuotaDeleteResponse struct {
	Removed        bool  `json:"removed"`
	ObjectsDeleted int64 `json:"objects_deleted"`
}
