package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tarkeep/internal/archive"
	"tarkeep/internal/checksum"
	"tarkeep/internal/config"
	"tarkeep/internal/lockfile"
	"tarkeep/internal/logging"
	"tarkeep/internal/manifest"
	"tarkeep/internal/retention"
)

// Outcome summarizes a completed or failed run.
type Outcome struct {
	State       State
	FailedStage State
	Archive     *archive.Archive
	Rotation    retention.Summary
	ExitCode    int
}

// Runner sequences one backup run: lock, validate, build, checksum,
// verify, rotate, unlock. Lock release is defer-scoped so it fires on
// every exit path, including cancellation mid-build.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger

	// verify is swappable for tests.
	verify func(v *checksum.Verifier, archivePath string) (checksum.Result, error)
}

// NewRunner constructs a runner around the given configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger,
		verify: func(v *checksum.Verifier, archivePath string) (checksum.Result, error) {
			return v.Verify(archivePath)
		},
	}
}

// Run executes the full pipeline for sourceDir. The returned Outcome
// always carries the exit code matching the error (0 success, 1
// general/verification failure, 2 validation failure).
func (r *Runner) Run(ctx context.Context, sourceDir string, dryRun bool) (Outcome, error) {
	runLogger := r.logger.With(
		logging.String(logging.FieldRunID, uuid.NewString()),
		logging.Bool(logging.FieldDryRun, dryRun),
	)
	outcome := Outcome{State: StateIdle}

	fail := func(stage State, err error) (Outcome, error) {
		outcome.State = StateFailed
		outcome.FailedStage = stage
		outcome.ExitCode = ExitCodeFor(err)
		runLogger.Error("run failed",
			logging.String(logging.FieldStage, string(stage)),
			logging.Error(err))
		return outcome, fmt.Errorf("%s: %w", stage, err)
	}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return fail(StateIdle, err)
	}

	lock := lockfile.New(r.cfg.LockFilePath(), runLogger)
	if err := lock.Acquire(); err != nil {
		return fail(StateLocked, err)
	}
	defer lock.Release()
	outcome.State = StateLocked
	runLogger.Info("starting backup run", logging.String(logging.FieldSource, sourceDir))

	builder := archive.NewBuilder(
		r.cfg.Paths.DestinationDir,
		archive.ExpandPatterns(r.cfg.ExcludeList()),
		r.cfg.Backup.SpaceMarginPercent,
		runLogger,
	)

	outcome.State = StateValidating
	if _, err := builder.Validate(sourceDir); err != nil {
		return fail(StateValidating, err)
	}

	outcome.State = StateBuilding
	arch, err := builder.Create(ctx, sourceDir, dryRun)
	if err != nil {
		return fail(StateBuilding, err)
	}
	outcome.Archive = arch

	verifier := checksum.NewVerifier(r.cfg.Checksum.Providers, runLogger)

	outcome.State = StateChecksumming
	if dryRun {
		runLogger.Info("dry run: would write checksum sidecar",
			logging.String(logging.FieldArchive, arch.Path))
	} else {
		if err := verifier.WriteSidecar(arch); err != nil {
			return fail(StateChecksumming, err)
		}
		r.recordManifest(ctx, runLogger, arch)
	}

	outcome.State = StateVerifying
	if dryRun {
		runLogger.Info("dry run: would verify archive",
			logging.String(logging.FieldArchive, arch.Path))
	} else {
		result, err := r.verify(verifier, arch.Path)
		if err != nil {
			// Rotation must never run against a backup known to be
			// corrupt.
			return fail(StateVerifying, err)
		}
		runLogger.Info("archive verified",
			logging.Bool("digest_checked", result.DigestChecked),
			logging.Int("entries", result.Entries))
	}

	outcome.State = StateRotating
	engine := retention.NewEngine(
		r.cfg.Paths.DestinationDir,
		retention.Quotas{
			Daily:   r.cfg.Retention.DailyKeep,
			Weekly:  r.cfg.Retention.WeeklyKeep,
			Monthly: r.cfg.Retention.MonthlyKeep,
		},
		retention.UnparseablePolicy(r.cfg.Retention.UnparseableNames),
		runLogger,
	)
	summary, err := engine.Apply(ctx, dryRun)
	if err != nil {
		return fail(StateRotating, err)
	}
	outcome.Rotation = summary
	if !dryRun && len(summary.Deleted) > 0 {
		r.forgetManifest(ctx, runLogger, summary.Deleted)
	}

	outcome.State = StateDone
	outcome.ExitCode = ExitOK
	runLogger.Info("backup run complete",
		logging.Int("kept", summary.Kept),
		logging.Int("deleted", len(summary.Deleted)),
		logging.Int("delete_failures", summary.Failed))
	return outcome, nil
}

// recordManifest persists archive metadata. Manifest trouble is soft:
// the directory remains the source of truth.
func (r *Runner) recordManifest(ctx context.Context, logger *slog.Logger, arch *archive.Archive) {
	store, err := manifest.Open(r.cfg.ManifestPath())
	if err != nil {
		logger.Warn("manifest unavailable, skipping record", logging.Error(err))
		return
	}
	defer store.Close()

	if _, err := store.Record(ctx, arch.Name, arch.Path, arch.CreatedAt, arch.Size); err != nil {
		logger.Warn("failed to record archive in manifest", logging.Error(err))
		return
	}
	if arch.Digest != "" {
		if err := store.SetDigest(ctx, arch.Name, arch.DigestAlgo, arch.Digest); err != nil {
			logger.Warn("failed to record digest in manifest", logging.Error(err))
		}
	}
}

func (r *Runner) forgetManifest(ctx context.Context, logger *slog.Logger, names []string) {
	store, err := manifest.Open(r.cfg.ManifestPath())
	if err != nil {
		logger.Warn("manifest unavailable, skipping cleanup", logging.Error(err))
		return
	}
	defer store.Close()

	if err := store.Remove(ctx, names...); err != nil {
		logger.Warn("failed to remove rotated archives from manifest", logging.Error(err))
	}
}
