package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tarkeep/internal/archive"
	"tarkeep/internal/checksum"
	"tarkeep/internal/logging"
)

// Summary reports the outcome of one rotation pass.
type Summary struct {
	Kept      int
	Deleted   []string
	Failed    int
	Decisions []Decision
}

// Engine applies the retention policy against a destination directory.
type Engine struct {
	destDir string
	quotas  Quotas
	policy  UnparseablePolicy
	logger  *slog.Logger
}

// NewEngine constructs a rotation engine.
func NewEngine(destDir string, quotas Quotas, policy UnparseablePolicy, logger *slog.Logger) *Engine {
	return &Engine{
		destDir: destDir,
		quotas:  quotas,
		policy:  policy,
		logger:  logging.NewComponentLogger(logger, "retention"),
	}
}

// Apply scans the destination, classifies archives, and removes the
// deletion set along with any digest sidecars sharing a base name.
// Per-file deletion failures are logged and skipped; they never abort
// the remaining deletions. An empty destination is not an error.
func (e *Engine) Apply(ctx context.Context, dryRun bool) (Summary, error) {
	names, err := e.scan()
	if err != nil {
		return Summary{}, err
	}

	decisions := Classify(names, e.quotas, e.policy)
	summary := Summary{Decisions: decisions}

	for _, decision := range decisions {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if decision.Keep {
			summary.Kept++
			continue
		}
		if decision.Unparseable {
			e.logger.Warn("archive name has no timestamp, rotating it out",
				logging.String(logging.FieldArchive, decision.Name))
		}
		if dryRun {
			e.logger.Info("dry run: would delete archive",
				logging.String(logging.FieldArchive, decision.Name))
			summary.Deleted = append(summary.Deleted, decision.Name)
			continue
		}
		if e.remove(decision.Name) {
			summary.Deleted = append(summary.Deleted, decision.Name)
		} else {
			summary.Failed++
		}
	}
	return summary, nil
}

// scan lists archive file names present in the destination.
func (e *Engine) scan() ([]string, error) {
	entries, err := os.ReadDir(e.destDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read destination: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if archive.IsArchiveName(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// remove deletes the archive and its sidecars; reports success.
func (e *Engine) remove(name string) bool {
	archivePath := filepath.Join(e.destDir, name)
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("failed to delete archive, skipping",
			logging.String(logging.FieldArchive, archivePath),
			logging.Error(err))
		return false
	}

	for _, ext := range checksum.SidecarExts {
		sidecar := archivePath + ext
		if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("failed to delete sidecar",
				logging.String("sidecar", sidecar),
				logging.Error(err))
		}
	}

	e.logger.Info("archive rotated out", logging.String(logging.FieldArchive, archivePath))
	return true
}
