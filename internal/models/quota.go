package models

import "fmt"

// QuotaAccount tracks storage accounting for one tenant. A nil QuotaLimit
// means unlimited. UsedBytes is the sum of sizes of originals and cache
// artifacts currently attributed to the tenant; it is mutated only through
// reserve/release transactions and never goes negative.
type QuotaAccount struct {
	TenantID   int64  `json:"tenant_id"`
	QuotaLimit *int64 `json:"quota_limit,omitempty"`
	UsedBytes  int64  `json:"used_bytes"`
}

// Validate checks ledger invariants.
func (a *QuotaAccount) Validate() error {
	if a == nil {
		return fmt.Errorf("quota account is required")
	}
	if a.TenantID <= 0 {
		return fmt.Errorf("tenant id must be positive")
	}
	if a.UsedBytes < 0 {
		return fmt.Errorf("used bytes must be non-negative")
	}
	if a.QuotaLimit != nil && *a.QuotaLimit < 0 {
		return fmt.Errorf("quota limit must be non-negative")
	}
	return nil
}

// Remaining returns the unreserved capacity, or -1 when unlimited.
func (a *QuotaAccount) Remaining() int64 {
	if a.QuotaLimit == nil {
		return -1
	}
	remaining := *a.QuotaLimit - a.UsedBytes
	if remaining < 0 {
		return 0
	}
	return remaining
}
