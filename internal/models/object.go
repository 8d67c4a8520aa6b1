package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// AnonymousOwnerID is the sentinel tenant for unauthenticated uploads.
// Anonymous objects are stored without an owner salt and are exempt from
// quota accounting.
const AnonymousOwnerID int64 = 0

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidHash reports whether raw is a lowercase hex SHA-256 digest.
func ValidHash(raw string) bool {
	return hashPattern.MatchString(raw)
}

// ObjectRecord is one catalog entry for a stored original object. The hash
// is the SHA-256 digest of the content bytes, salted with the owner id for
// non-anonymous uploads, so identical bytes uploaded by two owners are
// distinct objects.
type ObjectRecord struct {
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

// StoredName returns the blob filename for this object.
func (o *ObjectRecord) StoredName() string {
	return o.Hash + "." + o.Extension
}

// Validate checks catalog invariants before insert.
func (o *ObjectRecord) Validate() error {
	if o == nil {
		return fmt.Errorf("object record is required")
	}
	if !ValidHash(o.Hash) {
		return fmt.Errorf("invalid object hash")
	}
	if o.Size <= 0 {
		return fmt.Errorf("object size must be positive")
	}
	if strings.TrimSpace(o.MIME) == "" {
		return fmt.Errorf("object mime is required")
	}
	if strings.TrimSpace(o.Extension) == "" {
		return fmt.Errorf("object extension is required")
	}
	if o.OwnerID < 0 {
		return fmt.Errorf("invalid owner id")
	}
	if o.AccessCount < 0 {
		return fmt.Errorf("access count must be non-negative")
	}
	return nil
}

// ObjectOrder is a whitelisted sort column for catalog queries.
type ObjectOrder string

const (
	ObjectOrderCreatedAt   ObjectOrder = "created_at"
	ObjectOrderSize        ObjectOrder = "size"
	ObjectOrderAccessCount ObjectOrder = "access_count"
)

// ParseObjectOrder validates a raw sort column name.
func ParseObjectOrder(raw string) (ObjectOrder, error) {
	value := ObjectOrder(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return ObjectOrderCreatedAt, nil
	}
	switch value {
	case ObjectOrderCreatedAt, ObjectOrderSize, ObjectOrderAccessCount:
		return value, nil
	}
	return "", fmt.Errorf("invalid order column: %s", value)
}

// ObjectQuery describes a paginated catalog listing.
type ObjectQuery struct {
	// OwnerID filters by tenant when non-nil. A value of AnonymousOwnerID
	// selects anonymous objects only.
	OwnerID    *int64
	Order      ObjectOrder
	Descending bool
	Limit      int
	Offset     int
}

// ObjectStats aggregates catalog usage, optionally scoped to one owner.
type ObjectStats struct {
	Count      int64 `json:"count"`
	TotalBytes int64 `json:"total_bytes"`
}
