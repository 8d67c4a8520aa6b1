package server

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"picdepot/internal/models"
)

// contentHash digests the payload, salted with the owner id so identical
// bytes uploaded by two owners produce distinct objects. Anonymous
// uploads are unsalted and therefore deduplicate globally.
func contentHash(data []byte, ownerID int64) string {
	h := sha256.New()
	h.Write(data)
	if ownerID != models.AnonymousOwnerID {
		var salt [8]byte
		binary.LittleEndian.PutUint64(salt[:], uint64(ownerID))
		h.Write(salt[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// cacheKey digests (original hash, transform parameters) into the cache
// index key. Derived artifacts share the originals' sharded layout.
func cacheKey(originalHash, transformKey string) string {
	h := sha256.Sum256([]byte(originalHash + ":" + transformKey))
	return hex.EncodeToString(h[:])
}
