package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tarkeep/internal/fsutil"
	"tarkeep/internal/logging"
)

// Archive describes one backup instance in the destination directory.
type Archive struct {
	Name      string
	Path      string
	Size      int64
	CreatedAt time.Time

	// Digest fields are filled in by the checksum step.
	DigestAlgo  string
	Digest      string
	SidecarPath string
}

// Builder produces filtered tar.gz archives of a source directory.
type Builder struct {
	destDir      string
	rules        []Rule
	marginPct    int
	logger       *slog.Logger
	now          func() time.Time
	freeSpace    func(string) (uint64, error)
	estimateSize func(string) (int64, error)
}

// NewBuilder constructs a builder writing into destDir with the given
// expanded exclusion rules and free-space margin percentage.
func NewBuilder(destDir string, rules []Rule, marginPct int, logger *slog.Logger) *Builder {
	return &Builder{
		destDir:      destDir,
		rules:        rules,
		marginPct:    marginPct,
		logger:       logging.NewComponentLogger(logger, "builder"),
		now:          time.Now,
		freeSpace:    fsutil.FreeSpace,
		estimateSize: fsutil.DirSize,
	}
}

// WithClock overrides the timestamp source. Tests use it to pin names.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Validate checks the build preconditions: the source must exist, be a
// directory, and be readable. It returns the absolute source path.
func (b *Builder) Validate(sourceDir string) (string, error) {
	sourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}

	info, err := os.Stat(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSourceNotFound, sourceDir)
		}
		if os.IsPermission(err) {
			return "", fmt.Errorf("%w: %s", ErrPermissionDenied, sourceDir)
		}
		return "", fmt.Errorf("%w: stat %s: %v", ErrSourceNotFound, sourceDir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrSourceNotFound, sourceDir)
	}
	if err := fsutil.Readable(sourceDir); err != nil {
		return "", fmt.Errorf("%w: %s", ErrPermissionDenied, sourceDir)
	}
	return sourceDir, nil
}

// Create builds an archive of sourceDir. In dry-run mode it validates,
// logs the intended path and filter set, and returns without touching
// the filesystem. A failed or interrupted build never leaves partial
// output behind.
func (b *Builder) Create(ctx context.Context, sourceDir string, dryRun bool) (*Archive, error) {
	sourceDir, err := b.Validate(sourceDir)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(sourceDir)
	createdAt := b.now().Truncate(time.Minute)
	name := Name(base, createdAt)
	archivePath := filepath.Join(b.destDir, name)

	if err := b.checkSpace(sourceDir); err != nil {
		return nil, err
	}

	if dryRun {
		b.logger.Info("dry run: would create archive",
			logging.String(logging.FieldArchive, archivePath),
			logging.String(logging.FieldSource, sourceDir),
			logging.String("filters", strings.Join(RuleStrings(b.rules), " ")))
		return &Archive{Name: name, Path: archivePath, CreatedAt: createdAt}, nil
	}

	if _, err := os.Stat(archivePath); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", ErrBuildFailed, archivePath)
	}

	if err := b.writeArchive(ctx, sourceDir, base, archivePath); err != nil {
		return nil, err
	}

	built, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat output: %v", ErrBuildFailed, err)
	}

	b.logger.Info("archive created",
		logging.String(logging.FieldArchive, archivePath),
		logging.Int64("bytes", built.Size()))

	return &Archive{Name: name, Path: archivePath, Size: built.Size(), CreatedAt: createdAt}, nil
}

// checkSpace estimates the source size and requires the destination to
// offer that plus the configured margin. Estimation is best-effort: a
// failed or zero estimate logs a warning and waives the guarantee.
func (b *Builder) checkSpace(sourceDir string) error {
	estimated, err := b.estimateSize(sourceDir)
	if err != nil || estimated <= 0 {
		b.logger.Warn("could not estimate source size, skipping space check",
			logging.String(logging.FieldSource, sourceDir),
			logging.Error(err))
		return nil
	}

	available, err := b.freeSpace(b.destDir)
	if err != nil {
		b.logger.Warn("could not query destination free space, skipping space check",
			logging.Error(err))
		return nil
	}

	needed := uint64(estimated) + uint64(estimated)*uint64(b.marginPct)/100
	if available < needed {
		return fmt.Errorf("%w: need %d bytes (incl. %d%% margin), %d available",
			ErrInsufficientSpace, needed, b.marginPct, available)
	}
	return nil
}

func (b *Builder) writeArchive(ctx context.Context, sourceDir, base, archivePath string) (err error) {
	out, err := os.OpenFile(archivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create output: %v", ErrBuildFailed, err)
	}

	// Remove partial output on every failure path, including
	// cancellation mid-walk.
	committed := false
	defer func() {
		closeErr := out.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("%w: close output: %v", ErrBuildFailed, closeErr)
		}
		if !committed {
			_ = os.Remove(archivePath)
		}
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if rel != "." && Matches(filepath.ToSlash(rel), b.rules) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		return addEntry(tw, path, entryName(base, rel), d)
	})
	if walkErr != nil {
		return fmt.Errorf("%w: %v", ErrBuildFailed, walkErr)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("%w: finalize tar: %v", ErrBuildFailed, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("%w: finalize gzip: %v", ErrBuildFailed, err)
	}

	committed = true
	return nil
}

func entryName(base, rel string) string {
	if rel == "." {
		return base
	}
	return base + "/" + filepath.ToSlash(rel)
}

func addEntry(tw *tar.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	var linkTarget string
	if info.Mode()&fs.ModeSymlink != 0 {
		if linkTarget, err = os.Readlink(path); err != nil {
			return err
		}
	}

	switch {
	case info.Mode().IsRegular(), info.IsDir(), info.Mode()&fs.ModeSymlink != 0:
	default:
		// Sockets, devices, and pipes do not belong in a backup.
		return nil
	}

	header, err := tar.FileInfoHeader(info, linkTarget)
	if err != nil {
		return err
	}
	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := io.Copy(tw, file); err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}
	return nil
}
