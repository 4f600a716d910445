package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tarkeep/internal/archive"
	"tarkeep/internal/checksum"
	"tarkeep/internal/lockfile"
	"tarkeep/internal/manifest"
	"tarkeep/internal/retention"
)

// Item is one listed backup.
type Item struct {
	Name       string
	Path       string
	SizeBytes  int64
	ModTime    time.Time
	Source     string
	DigestAlgo string
}

// List enumerates archives in the destination with size and
// modification time, enriched from the manifest when available. It is
// read-only and requires no lock.
func (r *Runner) List(ctx context.Context) ([]Item, error) {
	entries, err := os.ReadDir(r.cfg.Paths.DestinationDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read destination: %w", err)
	}

	// Opening the manifest would create it; a listing must not write
	// into the destination, so enrichment only happens when the
	// database already exists.
	recorded := map[string]manifest.Entry{}
	if _, err := os.Stat(r.cfg.ManifestPath()); err == nil {
		if store, err := manifest.Open(r.cfg.ManifestPath()); err == nil {
			if rows, err := store.List(ctx); err == nil {
				for _, row := range rows {
					recorded[row.Name] = row
				}
			}
			_ = store.Close()
		}
	}

	var items []Item
	for _, entry := range entries {
		if entry.IsDir() || !archive.IsArchiveName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		item := Item{
			Name:      entry.Name(),
			Path:      filepath.Join(r.cfg.Paths.DestinationDir, entry.Name()),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		}
		if row, ok := recorded[entry.Name()]; ok {
			item.Source = row.Source
			item.DigestAlgo = row.DigestAlgo
		}
		items = append(items, item)
	}
	return items, nil
}

// Restore extracts an archive into targetDir. It fails when the archive
// file is absent; dry-run logs intent without extracting.
func (r *Runner) Restore(ctx context.Context, archivePath, targetDir string, dryRun bool) error {
	return archive.Extract(ctx, archivePath, targetDir, dryRun, r.logger)
}

// VerifyArchive runs the integrity verifier against one archive.
func (r *Runner) VerifyArchive(archivePath string) (checksum.Result, error) {
	verifier := checksum.NewVerifier(r.cfg.Checksum.Providers, r.logger)
	return verifier.Verify(archivePath)
}

// Prune applies the retention policy on its own, under the run lock
// since it mutates the destination.
func (r *Runner) Prune(ctx context.Context, dryRun bool) (retention.Summary, error) {
	lock := lockfile.New(r.cfg.LockFilePath(), r.logger)
	if err := lock.Acquire(); err != nil {
		return retention.Summary{}, err
	}
	defer lock.Release()

	engine := retention.NewEngine(
		r.cfg.Paths.DestinationDir,
		retention.Quotas{
			Daily:   r.cfg.Retention.DailyKeep,
			Weekly:  r.cfg.Retention.WeeklyKeep,
			Monthly: r.cfg.Retention.MonthlyKeep,
		},
		retention.UnparseablePolicy(r.cfg.Retention.UnparseableNames),
		r.logger,
	)
	summary, err := engine.Apply(ctx, dryRun)
	if err != nil {
		return summary, err
	}
	if !dryRun && len(summary.Deleted) > 0 {
		r.forgetManifest(ctx, r.logger, summary.Deleted)
	}
	return summary, nil
}
