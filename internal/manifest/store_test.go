package manifest_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tarkeep/internal/manifest"
)

func openStore(t *testing.T) *manifest.Store {
	t.Helper()
	store, err := manifest.Open(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	created := time.Date(2024, 11, 3, 14, 30, 0, 0, time.UTC)

	entry, err := store.Record(ctx, "proj-2024-11-03-1430.tar.gz", "/home/user/proj", created, 2048)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID == 0 {
		t.Fatal("expected a row id")
	}

	got, err := store.Get(ctx, "proj-2024-11-03-1430.tar.gz")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("recorded archive not found")
	}
	if got.Source != "/home/user/proj" || got.SizeBytes != 2048 {
		t.Fatalf("entry = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, created)
	}
}

func TestGetUnrecordedReturnsNil(t *testing.T) {
	store := openStore(t)
	got, err := store.Get(context.Background(), "nothing.tar.gz")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for an unrecorded name, got %+v", got)
	}
}

func TestRecordUpsertsOnNameConflict(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	created := time.Date(2024, 11, 3, 14, 30, 0, 0, time.UTC)

	if _, err := store.Record(ctx, "proj-2024-11-03-1430.tar.gz", "/old", created, 100); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Record(ctx, "proj-2024-11-03-1430.tar.gz", "/new", created, 200); err != nil {
		t.Fatalf("re-record must upsert: %v", err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d rows, want 1", len(entries))
	}
	if entries[0].Source != "/new" || entries[0].SizeBytes != 200 {
		t.Fatalf("entry = %+v, want updated values", entries[0])
	}
}

func TestSetDigest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Record(ctx, "proj-2024-11-03-1430.tar.gz", "/src", time.Now(), 100); err != nil {
		t.Fatal(err)
	}
	if err := store.SetDigest(ctx, "proj-2024-11-03-1430.tar.gz", "sha256", "abc123"); err != nil {
		t.Fatalf("SetDigest: %v", err)
	}

	got, err := store.Get(ctx, "proj-2024-11-03-1430.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if got.DigestAlgo != "sha256" || got.Digest != "abc123" {
		t.Fatalf("digest fields = %q/%q", got.DigestAlgo, got.Digest)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 1, 3, 0, 0, 0, time.UTC)

	for i, name := range []string{
		"proj-2024-11-01-0300.tar.gz",
		"proj-2024-11-02-0300.tar.gz",
		"proj-2024-11-03-0300.tar.gz",
	} {
		if _, err := store.Record(ctx, name, "/src", base.AddDate(0, 0, i), 100); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d rows, want 3", len(entries))
	}
	if entries[0].Name != "proj-2024-11-03-0300.tar.gz" || entries[2].Name != "proj-2024-11-01-0300.tar.gz" {
		t.Fatalf("unexpected order: %s .. %s", entries[0].Name, entries[2].Name)
	}
}

func TestRemove(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, name := range []string{"a-2024-11-01-0300.tar.gz", "b-2024-11-02-0300.tar.gz"} {
		if _, err := store.Record(ctx, name, "/src", now, 100); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.Remove(ctx, "a-2024-11-01-0300.tar.gz", "never-recorded.tar.gz"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "b-2024-11-02-0300.tar.gz" {
		t.Fatalf("entries = %+v", entries)
	}

	// Removing nothing is a no-op.
	if err := store.Remove(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")
	store, err := manifest.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Record(context.Background(), "proj-2024-11-03-1430.tar.gz", "/src", time.Now(), 100); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := manifest.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(context.Background(), "proj-2024-11-03-1430.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("row lost across reopen")
	}
}
