package pairs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "pairs.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndFind(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	pair, err := store.Record(ctx, "/dl", "Clip", "v1", "a1")
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if pair.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}

	for _, gid := range []string{"v1", "a1"} {
		found, ok, err := store.FindByGID(ctx, gid)
		if err != nil || !ok {
			t.Fatalf("FindByGID(%s) = %v, %v", gid, ok, err)
		}
		if found.ID != pair.ID || found.Base != "Clip" || found.Dir != "/dl" {
			t.Fatalf("unexpected pair %#v", found)
		}
		if found.MergedAt != nil {
			t.Fatal("new pair should not be merged")
		}
	}

	sibling, path, ok := pair.Sibling("v1")
	if !ok || sibling != "a1" || path != filepath.Join("/dl", "Clip.audio.m4a") {
		t.Fatalf("unexpected sibling %q %q %v", sibling, path, ok)
	}
	if _, _, ok := pair.Sibling("zz"); ok {
		t.Fatal("unknown gid should have no sibling")
	}

	if _, ok, err := store.FindByGID(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected no match, got %v %v", ok, err)
	}
}

func TestFindByBaseReturnsNewest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 100 * time.Millisecond)
	}

	if _, err := store.Record(ctx, "/dl", "Clip", "old-v", "old-a"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	newer, err := store.Record(ctx, "/dl", "Clip", "new-v", "new-a")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	found, ok, err := store.FindByBase(ctx, "/dl", "Clip")
	if err != nil || !ok {
		t.Fatalf("FindByBase = %v, %v", ok, err)
	}
	if found.ID != newer.ID {
		t.Fatalf("expected newest pair, got %s", found.VideoGID)
	}
	if _, ok, _ := store.FindByBase(ctx, "/other", "Clip"); ok {
		t.Fatal("dir must be part of the lookup")
	}
}

func TestMarkMergedAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	pair, err := store.Record(ctx, "/dl", "Clip", "v1", "a1")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.MarkMerged(ctx, pair.ID); err != nil {
		t.Fatalf("MarkMerged: %v", err)
	}
	found, _, _ := store.FindByGID(ctx, "v1")
	if found.MergedAt == nil {
		t.Fatal("expected merged timestamp")
	}

	if err := store.Delete(ctx, pair.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.FindByGID(ctx, "v1"); ok {
		t.Fatal("expected pair to be deleted")
	}
}

func TestReopenKeepsDataAndRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), "/dl", "Clip", "v1", "a1"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestNilStoreIsEmptyRegistry(t *testing.T) {
	var store *Store
	ctx := context.Background()
	pair, err := store.Record(ctx, "/dl", "Clip", "v", "a")
	if err != nil || pair.ID == uuid.Nil {
		t.Fatalf("nil Record = %#v, %v", pair, err)
	}
	if _, ok, err := store.FindByGID(ctx, "v"); ok || err != nil {
		t.Fatal("nil store should find nothing")
	}
	if err := store.MarkMerged(ctx, pair.ID); err != nil {
		t.Fatalf("nil MarkMerged: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestNamingHelpers(t *testing.T) {
	dir, base, ok := SplitVideoPath("/dl/My Clip.video.mp4")
	if !ok || dir != "/dl" || base != "My Clip" {
		t.Fatalf("unexpected split %q %q %v", dir, base, ok)
	}
	if _, _, ok := SplitVideoPath("/dl/.video.mp4"); ok {
		t.Fatal("empty base should not match")
	}
	if _, _, ok := SplitVideoPath("/dl/clip.mp4"); ok {
		t.Fatal("plain mp4 should not match")
	}
	if _, base, ok := SplitAudioPath("/dl/clip.audio.m4a"); !ok || base != "clip" {
		t.Fatalf("unexpected audio split %q %v", base, ok)
	}
	if ControlPath("/dl/clip.mp4") != "/dl/clip.mp4.aria2" {
		t.Fatal("unexpected control path")
	}
}
