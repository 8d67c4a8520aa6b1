package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"picdepot/internal/blobstore"
	"picdepot/internal/models"
	"picdepot/internal/store"
)

var pngHeader = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// pngBytes builds a payload the content sniffer accepts as image/png.
func pngBytes(fill string) []byte {
	return append(append([]byte{}, pngHeader...), []byte(fill)...)
}

type testEnv struct {
	store    *store.Store
	blobs    *blobstore.ShardedDir
	objects  *ObjectService
	cache    *CacheService
	eviction *EvictionEngine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvConfig(t, EvictionConfig{})
}

func newTestEnvConfig(t *testing.T, cfg EvictionConfig) *testEnv {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	blobs, err := blobstore.NewShardedDir(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}

	logger := slog.Default()
	cache := NewCacheService(st, st, st, blobs, cfg, logger)
	objects := NewObjectService(st, st, blobs, cache, 0, logger)

	return &testEnv{
		store:    st,
		blobs:    blobs,
		objects:  objects,
		cache:    cache,
		eviction: NewEvictionEngine(cache, cfg),
	}
}

func TestSaveObject_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	payload := pngBytes("round trip payload")

	record, created, err := env.objects.SaveObject(ctx, payload, 1, "photo.png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !created {
		t.Fatal("expected a new object")
	}
	if record.MIME != "image/png" || record.Extension != "png" {
		t.Fatalf("expected sniffed png, got mime=%q ext=%q", record.MIME, record.Extension)
	}
	if record.Size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), record.Size)
	}

	got, data, err := env.objects.ReadObjectBytes(ctx, record.Hash)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatal("expected content roundtrip")
	}
	if got.Hash != record.Hash {
		t.Fatalf("expected hash %s, got %s", record.Hash, got.Hash)
	}

	account, err := env.store.GetQuotaAccount(ctx, 1)
	if err != nil {
		t.Fatalf("quota account: %v", err)
	}
	if account.UsedBytes != record.Size {
		t.Fatalf("expected usage %d, got %d", record.Size, account.UsedBytes)
	}
}

func TestSaveObject_DedupChargesQuotaOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	payload := pngBytes("dedup payload")

	first, created, err := env.objects.SaveObject(ctx, payload, 1, "a.png")
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if !created {
		t.Fatal("expected first save to create")
	}

	second, created, err := env.objects.SaveObject(ctx, payload, 1, "b.png")
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if created {
		t.Fatal("expected dedup hit, not a new object")
	}
	if second.Hash != first.Hash {
		t.Fatalf("expected identical hash, got %s vs %s", second.Hash, first.Hash)
	}

	account, err := env.store.GetQuotaAccount(ctx, 1)
	if err != nil {
		t.Fatalf("quota account: %v", err)
	}
	if account.UsedBytes != first.Size {
		t.Fatalf("expected single charge %d, got %d", first.Size, account.UsedBytes)
	}
}

func TestSaveObject_OwnersDoNotShareObjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	payload := pngBytes("shared bytes")

	first, _, err := env.objects.SaveObject(ctx, payload, 1, "")
	if err != nil {
		t.Fatalf("owner 1 save: %v", err)
	}
	second, created, err := env.objects.SaveObject(ctx, payload, 2, "")
	if err != nil {
		t.Fatalf("owner 2 save: %v", err)
	}
	if !created {
		t.Fatal("expected a distinct object for the second owner")
	}
	if second.Hash == first.Hash {
		t.Fatal("expected owner-salted hashes to differ")
	}
}

func TestSaveObject_QuotaExceededLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload := pngBytes("first object taking up room")
	limit := int64(len(payload)) + 10
	if err := env.store.SetQuotaLimit(ctx, 5, &limit); err != nil {
		t.Fatalf("set limit: %v", err)
	}

	if _, _, err := env.objects.SaveObject(ctx, payload, 5, ""); err != nil {
		t.Fatalf("first save: %v", err)
	}

	big := pngBytes("second object that does not fit in the remaining headroom")
	_, _, err := env.objects.SaveObject(ctx, big, 5, "")
	if httpStatusFromError(err) != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 quota error, got %v", err)
	}

	account, err := env.store.GetQuotaAccount(ctx, 5)
	if err != nil {
		t.Fatalf("quota account: %v", err)
	}
	if account.UsedBytes != int64(len(payload)) {
		t.Fatalf("expected usage unchanged at %d, got %d", len(payload), account.UsedBytes)
	}

	// Neither a catalog row nor a blob may survive the failed upload.
	hash := contentHash(big, 5)
	record, err := env.store.FindObjectByHash(ctx, hash)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if record != nil {
		t.Fatal("expected no catalog row after failed upload")
	}
	if _, err := env.blobs.Read(ctx, blobstore.ObjectKey(hash, "png")); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("expected no blob after failed upload, got %v", err)
	}
}

func TestSaveObject_RejectsEmptyAndNonImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, _, err := env.objects.SaveObject(ctx, nil, 1, ""); httpStatusFromError(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty upload, got %v", err)
	}
	if _, _, err := env.objects.SaveObject(ctx, []byte("plain text, not an image"), 1, ""); httpStatusFromError(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-image upload, got %v", err)
	}
}

func TestSaveObject_AnonymousSkipsQuota(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, _, err := env.objects.SaveObject(ctx, pngBytes("anon"), models.AnonymousOwnerID, ""); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := env.store.GetQuotaAccount(ctx, models.AnonymousOwnerID); !errors.Is(err, store.ErrQuotaAccountNotFound) {
		t.Fatalf("expected no ledger row for anonymous upload, got %v", err)
	}
}

func TestReadObjectBytes_TracksAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, _, err := env.objects.SaveObject(ctx, pngBytes("tracked"), 1, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := env.objects.ReadObjectBytes(ctx, record.Hash); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}

	got, err := env.objects.GetObject(ctx, record.Hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccessCount != 3 {
		t.Fatalf("expected access count 3, got %d", got.AccessCount)
	}
	if got.LastAccessed == nil {
		t.Fatal("expected last_accessed to be set")
	}
}

func TestDeleteObject_CascadesAndReleasesQuota(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, _, err := env.objects.SaveObject(ctx, pngBytes("to be deleted"), 1, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	// Derive a cached artifact so the delete has something to cascade to.
	_, entry, err := env.cache.GetOrCreate(ctx, record.Hash, "w=64",
		func(ctx context.Context, original []byte) ([]byte, error) {
			return original[:16], nil
		})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	if entry == nil {
		t.Fatal("expected cached entry")
	}

	if err := env.objects.DeleteObject(ctx, record.Hash); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := env.objects.GetObject(ctx, record.Hash); httpStatusFromError(err) != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
	if _, err := env.blobs.Read(ctx, blobstore.ObjectKey(record.Hash, record.Extension)); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("expected blob removed, got %v", err)
	}
	if _, err := env.blobs.Read(ctx, entry.FilePath); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("expected cache blob removed, got %v", err)
	}

	account, err := env.store.GetQuotaAccount(ctx, 1)
	if err != nil {
		t.Fatalf("quota account: %v", err)
	}
	if account.UsedBytes != 0 {
		t.Fatalf("expected all quota released, got %d", account.UsedBytes)
	}
}

func TestDeleteObject_MissingIs404(t *testing.T) {
	env := newTestEnv(t)

	hash := contentHash([]byte("never stored"), 0)
	err := env.objects.DeleteObject(context.Background(), hash)
	if httpStatusFromError(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestDeleteObjectsByOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, fill := range []string{"one", "two", "three"} {
		if _, _, err := env.objects.SaveObject(ctx, pngBytes(fill), 3, ""); err != nil {
			t.Fatalf("save %q: %v", fill, err)
		}
	}
	if _, _, err := env.objects.SaveObject(ctx, pngBytes("kept"), 4, ""); err != nil {
		t.Fatalf("save other owner: %v", err)
	}

	removed, err := env.objects.DeleteObjectsByOwner(ctx, 3)
	if err != nil {
		t.Fatalf("delete by owner: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	owner := int64(4)
	stats, err := env.objects.Stats(ctx, &owner)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 1 {
		t.Fatalf("expected the other owner's object kept, got %+v", stats)
	}
}
