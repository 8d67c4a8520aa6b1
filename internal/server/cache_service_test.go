package server

import (
	"context"
	"net/http"
	"testing"
)

func thumbTransform(calls *int) TransformFunc {
	return func(ctx context.Context, original []byte) ([]byte, error) {
		*calls++
		half := len(original) / 2
		if half == 0 {
			half = 1
		}
		return original[:half], nil
	}
}

func TestGetOrCreate_ComputesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, _, err := env.objects.SaveObject(ctx, pngBytes("original content for thumbnails"), 1, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	calls := 0
	transform := thumbTransform(&calls)

	first, entry, err := env.cache.GetOrCreate(ctx, record.Hash, "w=64,h=64", transform)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if entry == nil {
		t.Fatal("expected cached entry")
	}
	if calls != 1 {
		t.Fatalf("expected 1 compute, got %d", calls)
	}

	second, hit, err := env.cache.GetOrCreate(ctx, record.Hash, "w=64,h=64", transform)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cache hit without recompute, got %d computes", calls)
	}
	if string(second) != string(first) {
		t.Fatal("expected identical derived bytes")
	}
	if hit == nil {
		t.Fatal("expected the hit to return the cached entry")
	}

	stored, err := env.store.FindCacheEntry(ctx, entry.CacheKey)
	if err != nil {
		t.Fatalf("find entry: %v", err)
	}
	if stored.HeatScore <= entry.HeatScore {
		t.Fatalf("expected heat bumped above %v, got %v", entry.HeatScore, stored.HeatScore)
	}
	if stored.LastHit == nil {
		t.Fatal("expected last_hit set after a hit")
	}
}

func TestGetOrCreate_DistinctTransformsDistinctEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, _, err := env.objects.SaveObject(ctx, pngBytes("original with two variants"), 1, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	calls := 0
	transform := thumbTransform(&calls)
	if _, _, err := env.cache.GetOrCreate(ctx, record.Hash, "w=64", transform); err != nil {
		t.Fatalf("variant 1: %v", err)
	}
	if _, _, err := env.cache.GetOrCreate(ctx, record.Hash, "w=128", transform); err != nil {
		t.Fatalf("variant 2: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 computes for 2 transforms, got %d", calls)
	}

	stats, err := env.cache.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.EntryCount != 2 {
		t.Fatalf("expected 2 cache entries, got %d", stats.EntryCount)
	}
}

func TestGetOrCreate_QuotaExhaustedDegradesToUncached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload := pngBytes("object that fills the quota entirely")
	limit := int64(len(payload))
	if err := env.store.SetQuotaLimit(ctx, 8, &limit); err != nil {
		t.Fatalf("set limit: %v", err)
	}

	record, _, err := env.objects.SaveObject(ctx, payload, 8, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	calls := 0
	data, entry, err := env.cache.GetOrCreate(ctx, record.Hash, "w=32", thumbTransform(&calls))
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if entry != nil {
		t.Fatal("expected no cache entry when quota is exhausted")
	}
	if len(data) == 0 {
		t.Fatal("expected derived bytes despite cache bypass")
	}

	stats, err := env.cache.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.EntryCount != 0 {
		t.Fatalf("expected empty cache, got %d entries", stats.EntryCount)
	}

	account, err := env.store.GetQuotaAccount(ctx, 8)
	if err != nil {
		t.Fatalf("quota account: %v", err)
	}
	if account.UsedBytes != limit {
		t.Fatalf("expected usage unchanged at %d, got %d", limit, account.UsedBytes)
	}
}

func TestGetOrCreate_MissingOriginalIs404(t *testing.T) {
	env := newTestEnv(t)

	calls := 0
	hash := contentHash([]byte("never uploaded"), 0)
	_, _, err := env.cache.GetOrCreate(context.Background(), hash, "w=64", thumbTransform(&calls))
	if httpStatusFromError(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no compute for missing original, got %d", calls)
	}
}

func TestGetOrCreate_RequiresTransformKey(t *testing.T) {
	env := newTestEnv(t)

	calls := 0
	hash := contentHash([]byte("x"), 0)
	_, _, err := env.cache.GetOrCreate(context.Background(), hash, "  ", thumbTransform(&calls))
	if httpStatusFromError(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetOrCreate_StaleIndexRowRecovers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, _, err := env.objects.SaveObject(ctx, pngBytes("original behind a stale row"), 1, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	calls := 0
	transform := thumbTransform(&calls)
	_, entry, err := env.cache.GetOrCreate(ctx, record.Hash, "w=64", transform)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}

	// Remove the file behind the index's back.
	if err := env.blobs.Delete(ctx, entry.FilePath); err != nil {
		t.Fatalf("delete blob: %v", err)
	}

	data, recovered, err := env.cache.GetOrCreate(ctx, record.Hash, "w=64", transform)
	if err != nil {
		t.Fatalf("recovery get: %v", err)
	}
	if recovered == nil {
		t.Fatal("expected a recomputed cache entry")
	}
	if calls != 2 {
		t.Fatalf("expected recompute after stale row, got %d computes", calls)
	}
	if len(data) == 0 {
		t.Fatal("expected derived bytes")
	}
}

func TestRemoveEntry_FreesBytesAndQuota(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, _, err := env.objects.SaveObject(ctx, pngBytes("original for removal"), 1, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	calls := 0
	_, entry, err := env.cache.GetOrCreate(ctx, record.Hash, "w=64", thumbTransform(&calls))
	if err != nil {
		t.Fatalf("cache: %v", err)
	}

	before, err := env.store.GetQuotaAccount(ctx, 1)
	if err != nil {
		t.Fatalf("quota before: %v", err)
	}

	freed, err := env.cache.RemoveEntry(ctx, entry.CacheKey)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if freed != entry.Size {
		t.Fatalf("expected %d freed, got %d", entry.Size, freed)
	}

	after, err := env.store.GetQuotaAccount(ctx, 1)
	if err != nil {
		t.Fatalf("quota after: %v", err)
	}
	if after.UsedBytes != before.UsedBytes-entry.Size {
		t.Fatalf("expected quota released by %d, got %d -> %d", entry.Size, before.UsedBytes, after.UsedBytes)
	}

	if _, err := env.cache.RemoveEntry(ctx, entry.CacheKey); httpStatusFromError(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for second removal, got %v", err)
	}
}
