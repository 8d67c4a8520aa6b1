package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"picdepot/internal/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testHash(seed string) string {
	if len(seed) > 64 {
		seed = seed[:64]
	}
	return seed + strings.Repeat("0", 64-len(seed))
}

func testObject(hash string, size int64, owner int64) *models.ObjectRecord {
	return &models.ObjectRecord{
		Hash:      hash,
		Size:      size,
		MIME:      "image/png",
		OwnerID:   owner,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Extension: "png",
	}
}

func TestInsertAndFindObject(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	record := testObject(testHash("aa11"), 1234, 7)
	record.OriginalFilename = "cat.png"

	if err := st.InsertObject(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := st.FindObjectByHash(ctx, record.Hash)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.Size != 1234 {
		t.Fatalf("expected size 1234, got %d", got.Size)
	}
	if got.OwnerID != 7 {
		t.Fatalf("expected owner 7, got %d", got.OwnerID)
	}
	if got.OriginalFilename != "cat.png" {
		t.Fatalf("expected filename 'cat.png', got %q", got.OriginalFilename)
	}
	if got.LastAccessed != nil {
		t.Fatalf("expected no last_accessed on fresh insert, got %v", got.LastAccessed)
	}
}

func TestFindObject_MissingReturnsNil(t *testing.T) {
	st := testStore(t)

	got, err := st.FindObjectByHash(context.Background(), testHash("dead"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing hash, got %+v", got)
	}
}

func TestInsertObject_DuplicateHash(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	record := testObject(testHash("bb22"), 100, 1)
	if err := st.InsertObject(ctx, record); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	err := st.InsertObject(ctx, testObject(testHash("bb22"), 100, 1))
	if !errors.Is(err, ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
}

func TestInsertObject_AnonymousOwnerStoredAsNull(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	record := testObject(testHash("cc33"), 50, models.AnonymousOwnerID)
	if err := st.InsertObject(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := st.FindObjectByHash(ctx, record.Hash)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.OwnerID != models.AnonymousOwnerID {
		t.Fatalf("expected anonymous owner, got %d", got.OwnerID)
	}

	anon := models.AnonymousOwnerID
	stats, err := st.ObjectStats(ctx, &anon)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 1 || stats.TotalBytes != 50 {
		t.Fatalf("expected 1 anonymous object of 50 bytes, got %+v", stats)
	}
}

func TestDeleteObjectByHash(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	record := testObject(testHash("dd44"), 10, 1)
	if err := st.InsertObject(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	removed, err := st.DeleteObjectByHash(ctx, record.Hash)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Fatal("expected delete to remove a row")
	}

	removed, err = st.DeleteObjectByHash(ctx, record.Hash)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if removed {
		t.Fatal("expected second delete to be a no-op")
	}
}

func TestDeleteObject_CascadesToCacheEntries(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	record := testObject(testHash("ee55"), 10, 1)
	if err := st.InsertObject(ctx, record); err != nil {
		t.Fatalf("insert object: %v", err)
	}
	entry := &models.CacheEntry{
		CacheKey:     testHash("ee56"),
		OriginalHash: record.Hash,
		FilePath:     "ee/56/" + testHash("ee56") + ".png",
		Size:         5,
		HeatScore:    1,
		CreatedAt:    time.Now().UTC(),
		OwnerID:      1,
	}
	if err := st.InsertCacheEntry(ctx, entry); err != nil {
		t.Fatalf("insert cache entry: %v", err)
	}

	if _, err := st.DeleteObjectByHash(ctx, record.Hash); err != nil {
		t.Fatalf("delete object: %v", err)
	}

	got, err := st.FindCacheEntry(ctx, entry.CacheKey)
	if err != nil {
		t.Fatalf("find cache entry: %v", err)
	}
	if got != nil {
		t.Fatal("expected cache entry removed by cascade")
	}
}

func TestTouchObjectAccess(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	record := testObject(testHash("ff66"), 10, 1)
	if err := st.InsertObject(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := st.TouchObjectAccess(ctx, record.Hash, now); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := st.TouchObjectAccess(ctx, record.Hash, now.Add(time.Second)); err != nil {
		t.Fatalf("second touch: %v", err)
	}

	got, err := st.FindObjectByHash(ctx, record.Hash)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.AccessCount != 2 {
		t.Fatalf("expected access count 2, got %d", got.AccessCount)
	}
	if got.LastAccessed == nil || !got.LastAccessed.Equal(now.Add(time.Second)) {
		t.Fatalf("expected last_accessed %v, got %v", now.Add(time.Second), got.LastAccessed)
	}
}

func TestQueryObjects_OrderAndPaging(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	sizes := []int64{300, 100, 200}
	for i, size := range sizes {
		record := testObject(testHash("a"+string(rune('0'+i))), size, 1)
		record.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := st.InsertObject(ctx, record); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	records, total, err := st.QueryObjects(ctx, models.ObjectQuery{Order: models.ObjectOrderSize})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if records[0].Size != 100 || records[2].Size != 300 {
		t.Fatalf("expected ascending size order, got %d..%d", records[0].Size, records[2].Size)
	}

	records, total, err = st.QueryObjects(ctx, models.ObjectQuery{
		Order:      models.ObjectOrderCreatedAt,
		Descending: true,
		Limit:      1,
		Offset:     1,
	})
	if err != nil {
		t.Fatalf("paged query: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3 on paged query, got %d", total)
	}
	if len(records) != 1 || records[0].Size != 100 {
		t.Fatalf("expected second-newest record (size 100), got %+v", records)
	}
}

func TestQueryObjects_InvalidOrderRejected(t *testing.T) {
	st := testStore(t)

	_, _, err := st.QueryObjects(context.Background(), models.ObjectQuery{Order: "mime; DROP TABLE objects"})
	if err == nil {
		t.Fatal("expected invalid order column to be rejected")
	}
}

func TestQueryObjects_OwnerFilter(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.InsertObject(ctx, testObject(testHash("b1"), 10, 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.InsertObject(ctx, testObject(testHash("b2"), 20, 2)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.InsertObject(ctx, testObject(testHash("b3"), 30, models.AnonymousOwnerID)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	owner := int64(2)
	records, total, err := st.QueryObjects(ctx, models.ObjectQuery{OwnerID: &owner})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 1 || len(records) != 1 || records[0].OwnerID != 2 {
		t.Fatalf("expected exactly the owner-2 record, got total=%d records=%+v", total, records)
	}

	stats, err := st.ObjectStats(ctx, nil)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 3 || stats.TotalBytes != 60 {
		t.Fatalf("expected 3 objects / 60 bytes, got %+v", stats)
	}
}

func TestListObjectsByOwner(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		record := testObject(testHash("c"+string(rune('0'+i))), 10, 9)
		record.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := st.InsertObject(ctx, record); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := st.InsertObject(ctx, testObject(testHash("c9"), 10, 4)); err != nil {
		t.Fatalf("insert other owner: %v", err)
	}

	records, err := st.ListObjectsByOwner(ctx, 9)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if !records[0].CreatedAt.Before(records[2].CreatedAt) {
		t.Fatal("expected oldest-first ordering")
	}
}
