package archive

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"tarkeep/internal/logging"
	"tarkeep/internal/testsupport"
)

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	ts := time.Date(2024, 11, 3, 14, 30, 0, 0, time.Local)
	return func() time.Time { return ts }
}

func newTestBuilder(t *testing.T, destDir string, patterns []string) *Builder {
	t.Helper()
	return NewBuilder(destDir, ExpandPatterns(patterns), 10, logging.NewNop()).
		WithClock(fixedClock(t))
}

func TestCreateRoundTripWithExclusions(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "proj")
	dest := filepath.Join(base, "dest")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	testsupport.WriteText(t, filepath.Join(source, "README.md"), "hello")
	testsupport.WriteText(t, filepath.Join(source, "src", "main.go"), "package main")
	testsupport.WriteText(t, filepath.Join(source, ".git", "config"), "[core]")
	testsupport.WriteText(t, filepath.Join(source, "sub", ".git", "HEAD"), "ref")

	builder := newTestBuilder(t, dest, []string{".git"})
	arch, err := builder.Create(context.Background(), source, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if arch.Name != "proj-2024-11-03-1430.tar.gz" {
		t.Fatalf("unexpected archive name %q", arch.Name)
	}
	if arch.Size <= 0 {
		t.Fatalf("expected a non-empty archive, size %d", arch.Size)
	}

	target := filepath.Join(base, "restore")
	if err := Extract(context.Background(), arch.Path, target, false, logging.NewNop()); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	var files []string
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, _ := filepath.Rel(target, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(files)

	want := []string{"proj/README.md", "proj/src/main.go"}
	if len(files) != len(want) {
		t.Fatalf("restored files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("restored files = %v, want %v", files, want)
		}
	}
}

func TestCreateDryRunLeavesDestinationUntouched(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "proj")
	dest := filepath.Join(base, "dest")
	testsupport.WriteText(t, filepath.Join(source, "a.txt"), "a")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	builder := newTestBuilder(t, dest, nil)
	arch, err := builder.Create(context.Background(), source, true)
	if err != nil {
		t.Fatalf("Create dry-run: %v", err)
	}
	if arch.Path == "" {
		t.Fatal("expected intended path in dry-run result")
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty destination after dry run, found %d entries", len(entries))
	}
}

func TestCreateMissingSource(t *testing.T) {
	base := t.TempDir()
	builder := newTestBuilder(t, base, nil)

	_, err := builder.Create(context.Background(), filepath.Join(base, "absent"), false)
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestCreateInsufficientSpace(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "proj")
	testsupport.WriteFile(t, filepath.Join(source, "big.bin"), 4096)

	builder := newTestBuilder(t, base, nil)
	builder.freeSpace = func(string) (uint64, error) { return 1024, nil }

	_, err := builder.Create(context.Background(), source, false)
	if !errors.Is(err, ErrInsufficientSpace) {
		t.Fatalf("expected ErrInsufficientSpace, got %v", err)
	}

	entries, _ := os.ReadDir(base)
	for _, entry := range entries {
		if IsArchiveName(entry.Name()) {
			t.Fatalf("no archive should exist after a space failure, found %s", entry.Name())
		}
	}
}

func TestCreateSoftFallbackWhenEstimateFails(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "proj")
	dest := filepath.Join(base, "dest")
	testsupport.WriteText(t, filepath.Join(source, "a.txt"), "a")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	builder := newTestBuilder(t, dest, nil)
	builder.estimateSize = func(string) (int64, error) { return 0, errors.New("boom") }
	builder.freeSpace = func(string) (uint64, error) { return 0, nil }

	if _, err := builder.Create(context.Background(), source, false); err != nil {
		t.Fatalf("estimation failure must not block the build: %v", err)
	}
}

func TestCreateRemovesPartialOutputOnCancel(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "proj")
	dest := filepath.Join(base, "dest")
	testsupport.WriteFile(t, filepath.Join(source, "one.bin"), 64*1024)
	testsupport.WriteFile(t, filepath.Join(source, "two.bin"), 64*1024)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	builder := newTestBuilder(t, dest, nil)
	if _, err := builder.Create(ctx, source, false); err == nil {
		t.Fatal("expected build to fail under a cancelled context")
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected partial output to be removed, found %d entries", len(entries))
	}
}

func TestCreateRefusesToOverwriteExistingArchive(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "proj")
	dest := filepath.Join(base, "dest")
	testsupport.WriteText(t, filepath.Join(source, "a.txt"), "a")
	testsupport.WriteText(t, filepath.Join(dest, "proj-2024-11-03-1430.tar.gz"), "occupied")

	builder := newTestBuilder(t, dest, nil)
	_, err := builder.Create(context.Background(), source, false)
	if !errors.Is(err, ErrBuildFailed) {
		t.Fatalf("expected ErrBuildFailed on name collision, got %v", err)
	}
}

func TestExtractMissingArchive(t *testing.T) {
	base := t.TempDir()
	err := Extract(context.Background(), filepath.Join(base, "absent.tar.gz"), base, false, logging.NewNop())
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestExtractDryRunDoesNotCreateTarget(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "proj")
	dest := filepath.Join(base, "dest")
	testsupport.WriteText(t, filepath.Join(source, "a.txt"), "a")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	builder := newTestBuilder(t, dest, nil)
	arch, err := builder.Create(context.Background(), source, false)
	if err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(base, "restore")
	if err := Extract(context.Background(), arch.Path, target, true, logging.NewNop()); err != nil {
		t.Fatalf("dry-run extract: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("dry-run extract must not create the target directory")
	}
}
