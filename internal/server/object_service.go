package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"picdepot/internal/blobstore"
	"picdepot/internal/models"
	"picdepot/internal/store"
)

// DefaultMaxUploadBytes caps a single upload when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20 // 32 MiB

// ObjectService implements the catalog operations: content-addressed
// upload with dedup, quota-accounted storage, reads, and cascading
// deletion.
type ObjectService struct {
	objects store.ObjectStore
	quotas  store.QuotaStore
	blobs   blobstore.Store
	cache   *CacheService
	maxSize int64
	logger  *slog.Logger
}

// NewObjectService creates the catalog service. maxSize <= 0 selects the
// default upload cap.
func NewObjectService(objects store.ObjectStore, quotas store.QuotaStore, blobs blobstore.Store, cache *CacheService, maxSize int64, logger *slog.Logger) *ObjectService {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectService{
		objects: objects,
		quotas:  quotas,
		blobs:   blobs,
		cache:   cache,
		maxSize: maxSize,
		logger:  logger,
	}
}

// SaveObject stores an upload and returns the catalog record plus whether
// a new object was created. Identical content from the same owner
// deduplicates to the existing record without charging quota again.
//
// A new object goes through reserve -> blob write -> catalog insert; on
// any failure the completed steps are compensated so storage, ledger, and
// catalog stay consistent. Losing the insert race to a concurrent
// identical upload is not a failure: the winner's record is returned and
// only this request's reservation is returned to the ledger.
func (s *ObjectService) SaveObject(ctx context.Context, data []byte, ownerID int64, filename string) (*models.ObjectRecord, bool, error) {
	if len(data) == 0 {
		return nil, false, badRequestCode(fmt.Errorf("empty upload"), ErrCodeEmptyUpload)
	}
	if int64(len(data)) > s.maxSize {
		return nil, false, badRequestCode(
			fmt.Errorf("upload exceeds %d bytes", s.maxSize), ErrCodeRequestTooLarge)
	}
	if ownerID < 0 {
		return nil, false, badRequestCode(fmt.Errorf("invalid owner id"), ErrCodeInvalidTenant)
	}

	mime, ext, err := detectImageMedia(data)
	if err != nil {
		return nil, false, err
	}

	hash := contentHash(data, ownerID)

	existing, err := s.objects.FindObjectByHash(ctx, hash)
	if err != nil {
		return nil, false, storeFailure(err)
	}
	if existing != nil {
		return existing, false, nil
	}

	record := &models.ObjectRecord{
		Hash:             hash,
		Size:             int64(len(data)),
		MIME:             mime,
		OwnerID:          ownerID,
		CreatedAt:        time.Now().UTC(),
		OriginalFilename: filename,
		Extension:        ext,
	}
	key := blobstore.ObjectKey(hash, ext)

	conflict := false
	err = runSaga(ctx, s.logger, []sagaStep{
		{
			name: "reserve quota",
			run: func(ctx context.Context) error {
				return s.quotas.ReserveQuota(ctx, ownerID, record.Size)
			},
			undo: func(ctx context.Context) error {
				return s.quotas.ReleaseQuota(ctx, ownerID, record.Size)
			},
		},
		{
			name: "write blob",
			run: func(ctx context.Context) error {
				return s.blobs.Write(ctx, key, data)
			},
			undo: func(ctx context.Context) error {
				// The conflict winner shares this content-addressed file.
				if conflict {
					return nil
				}
				return s.blobs.Delete(ctx, key)
			},
		},
		{
			name: "insert catalog record",
			run: func(ctx context.Context) error {
				err := s.objects.InsertObject(ctx, record)
				if errors.Is(err, store.ErrObjectExists) {
					conflict = true
				}
				return err
			},
		},
	})
	if err != nil {
		if conflict {
			winner, findErr := s.objects.FindObjectByHash(ctx, hash)
			if findErr != nil {
				return nil, false, storeFailure(findErr)
			}
			if winner != nil {
				return winner, false, nil
			}
			// Winner vanished between insert and lookup; surface the race.
			return nil, false, conflictCode(fmt.Errorf("concurrent upload of %s", hash), ErrCodeConflict)
		}
		if errors.Is(err, store.ErrQuotaExceeded) {
			return nil, false, quotaExceeded(fmt.Errorf("storage quota exceeded for tenant %d", ownerID))
		}
		return nil, false, storeFailure(err)
	}

	return record, true, nil
}

// GetObject returns one catalog record.
func (s *ObjectService) GetObject(ctx context.Context, hash string) (*models.ObjectRecord, error) {
	record, err := s.objects.FindObjectByHash(ctx, hash)
	if err != nil {
		return nil, storeFailure(err)
	}
	if record == nil {
		return nil, notFound(fmt.Errorf("object %s not found", hash))
	}
	return record, nil
}

// ReadObjectBytes returns a record plus its content and registers the
// access. The access bump is best effort; a ledger hiccup must not fail
// the read.
func (s *ObjectService) ReadObjectBytes(ctx context.Context, hash string) (*models.ObjectRecord, []byte, error) {
	record, err := s.GetObject(ctx, hash)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.blobs.Read(ctx, blobstore.ObjectKey(record.Hash, record.Extension))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, nil, notFound(fmt.Errorf("object %s content missing", hash))
		}
		return nil, nil, blobFailure(err)
	}

	if err := s.objects.TouchObjectAccess(ctx, record.Hash, time.Now().UTC()); err != nil {
		s.logger.Warn("touch object access", "hash", record.Hash, "error", err)
	}

	return record, data, nil
}

// DeleteObject removes an object, its derived cache artifacts, its blob,
// and its quota charge. Derived entries go first so their files and
// ledger charges are reclaimed before the catalog row (and its cascade)
// disappears.
func (s *ObjectService) DeleteObject(ctx context.Context, hash string) error {
	record, err := s.GetObject(ctx, hash)
	if err != nil {
		return err
	}

	if s.cache != nil {
		if _, _, err := s.cache.RemoveByOriginal(ctx, record.Hash); err != nil {
			return err
		}
	}

	removed, err := s.objects.DeleteObjectByHash(ctx, record.Hash)
	if err != nil {
		return storeFailure(err)
	}
	if !removed {
		return notFound(fmt.Errorf("object %s not found", hash))
	}

	if err := s.blobs.Delete(ctx, blobstore.ObjectKey(record.Hash, record.Extension)); err != nil {
		s.logger.Warn("delete object blob", "hash", record.Hash, "error", err)
	}

	if err := s.quotas.ReleaseQuota(ctx, record.OwnerID, record.Size); err != nil {
		s.logger.Error("release quota after delete",
			"hash", record.Hash, "owner", record.OwnerID, "error", err)
	}

	return nil
}

// DeleteObjectsByOwner removes every object owned by one tenant and
// returns the number removed. Used when a tenant account is retired.
func (s *ObjectService) DeleteObjectsByOwner(ctx context.Context, ownerID int64) (int64, error) {
	if ownerID <= 0 {
		return 0, badRequestCode(fmt.Errorf("invalid owner id"), ErrCodeInvalidTenant)
	}
	records, err := s.objects.ListObjectsByOwner(ctx, ownerID)
	if err != nil {
		return 0, storeFailure(err)
	}

	var removed int64
	for _, record := range records {
		if err := s.DeleteObject(ctx, record.Hash); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// QueryObjects returns a catalog page plus the total match count.
func (s *ObjectService) QueryObjects(ctx context.Context, query models.ObjectQuery) ([]models.ObjectRecord, int64, error) {
	if _, err := models.ParseObjectOrder(string(query.Order)); err != nil {
		return nil, 0, badRequestCode(err, ErrCodeInvalidQuery)
	}
	records, total, err := s.objects.QueryObjects(ctx, query)
	if err != nil {
		return nil, 0, storeFailure(err)
	}
	return records, total, nil
}

// Stats aggregates catalog usage, optionally scoped to one owner.
func (s *ObjectService) Stats(ctx context.Context, owner *int64) (models.ObjectStats, error) {
	stats, err := s.objects.ObjectStats(ctx, owner)
	if err != nil {
		return models.ObjectStats{}, storeFailure(err)
	}
	return stats, nil
}
