package blobstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound reports a read of a key with no stored blob.
var ErrNotFound = errors.New("blob not found")

// Store is the byte-storage abstraction used by the object and cache
// services. Keys are relative sharded paths produced by ObjectKey. Write
// must be durable before returning; Delete of a missing key is not an
// error.
type Store interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey returns the sharded relative path for a digest-named blob:
// hash[0:2]/hash[2:4]/<hash>.<ext>. Two fanout levels bound directory
// width at 256 entries each.
func ObjectKey(hash, ext string) string {
	return fmt.Sprintf("%s/%s/%s.%s", hash[0:2], hash[2:4], hash, ext)
}
