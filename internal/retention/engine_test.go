package retention_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tarkeep/internal/logging"
	"tarkeep/internal/retention"
	"tarkeep/internal/testsupport"
)

func seedDestination(t *testing.T, names ...string) string {
	t.Helper()
	dest := t.TempDir()
	for _, name := range names {
		testsupport.WriteText(t, filepath.Join(dest, name), "archive bytes")
	}
	return dest
}

func listDir(t *testing.T, dir string) map[string]bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.Name()] = true
	}
	return present
}

func TestApplyDeletesArchiveAndSidecars(t *testing.T) {
	dest := seedDestination(t,
		"proj-2024-11-02-0300.tar.gz",
		"proj-2024-11-02-0300.tar.gz.sha256",
		"proj-2024-11-03-0300.tar.gz",
		"proj-2024-11-03-0300.tar.gz.sha256",
	)

	engine := retention.NewEngine(dest, retention.Quotas{Daily: 1}, retention.UnparseableDelete, logging.NewNop())
	summary, err := engine.Apply(context.Background(), false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if summary.Kept != 1 || len(summary.Deleted) != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 kept / 1 deleted / 0 failed", summary)
	}

	present := listDir(t, dest)
	if !present["proj-2024-11-03-0300.tar.gz"] || !present["proj-2024-11-03-0300.tar.gz.sha256"] {
		t.Fatalf("newest archive or its sidecar was removed: %v", present)
	}
	if present["proj-2024-11-02-0300.tar.gz"] || present["proj-2024-11-02-0300.tar.gz.sha256"] {
		t.Fatalf("rotated archive or its sidecar survived: %v", present)
	}
}

func TestApplyDryRunDeletesNothing(t *testing.T) {
	dest := seedDestination(t,
		"proj-2024-11-02-0300.tar.gz",
		"proj-2024-11-03-0300.tar.gz",
	)

	engine := retention.NewEngine(dest, retention.Quotas{Daily: 1}, retention.UnparseableDelete, logging.NewNop())
	summary, err := engine.Apply(context.Background(), true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(summary.Deleted) != 1 {
		t.Fatalf("dry run should still report the deletion set, got %+v", summary)
	}

	present := listDir(t, dest)
	if !present["proj-2024-11-02-0300.tar.gz"] || !present["proj-2024-11-03-0300.tar.gz"] {
		t.Fatalf("dry run touched the destination: %v", present)
	}
}

func TestApplyEmptyDestination(t *testing.T) {
	engine := retention.NewEngine(t.TempDir(), retention.Quotas{Daily: 7}, retention.UnparseableDelete, logging.NewNop())
	summary, err := engine.Apply(context.Background(), false)
	if err != nil {
		t.Fatalf("empty destination must not fail: %v", err)
	}
	if summary.Kept != 0 || len(summary.Deleted) != 0 {
		t.Fatalf("summary = %+v, want nothing kept or deleted", summary)
	}
}

func TestApplyMissingDestination(t *testing.T) {
	engine := retention.NewEngine(filepath.Join(t.TempDir(), "nope"), retention.Quotas{Daily: 7}, retention.UnparseableDelete, logging.NewNop())
	if _, err := engine.Apply(context.Background(), false); err != nil {
		t.Fatalf("missing destination must behave like an empty one: %v", err)
	}
}

func TestApplyIgnoresForeignFiles(t *testing.T) {
	dest := seedDestination(t,
		"proj-2024-11-03-0300.tar.gz",
		"notes.txt",
		"manifest.db",
	)

	engine := retention.NewEngine(dest, retention.Quotas{Daily: 1}, retention.UnparseableDelete, logging.NewNop())
	if _, err := engine.Apply(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	present := listDir(t, dest)
	if !present["notes.txt"] || !present["manifest.db"] {
		t.Fatalf("non-archive files must be left alone: %v", present)
	}
}

func TestApplyUnparseablePolicy(t *testing.T) {
	t.Run("delete", func(t *testing.T) {
		dest := seedDestination(t, "stray.tar.gz", "proj-2024-11-03-0300.tar.gz")
		engine := retention.NewEngine(dest, retention.Quotas{Daily: 7}, retention.UnparseableDelete, logging.NewNop())
		if _, err := engine.Apply(context.Background(), false); err != nil {
			t.Fatal(err)
		}
		if listDir(t, dest)["stray.tar.gz"] {
			t.Fatal("unparseable archive survived under the delete policy")
		}
	})

	t.Run("keep", func(t *testing.T) {
		dest := seedDestination(t, "stray.tar.gz", "proj-2024-11-03-0300.tar.gz")
		engine := retention.NewEngine(dest, retention.Quotas{Daily: 7}, retention.UnparseableKeep, logging.NewNop())
		if _, err := engine.Apply(context.Background(), false); err != nil {
			t.Fatal(err)
		}
		if !listDir(t, dest)["stray.tar.gz"] {
			t.Fatal("unparseable archive deleted under the keep policy")
		}
	})
}
