package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tarkeep/internal/logging"
)

// Extract unpacks archivePath into targetDir, creating it if needed.
// Dry-run logs intent and leaves the filesystem untouched.
func Extract(ctx context.Context, archivePath, targetDir string, dryRun bool, logger *slog.Logger) error {
	logger = logging.NewComponentLogger(logger, "restore")

	if _, err := os.Stat(archivePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, archivePath)
		}
		return fmt.Errorf("stat archive: %w", err)
	}

	if dryRun {
		logger.Info("dry run: would extract archive",
			logging.String(logging.FieldArchive, archivePath),
			logging.String("target", targetDir))
		return nil
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	return Walk(archivePath, func(header *tar.Header, r io.Reader) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return extractEntry(targetDir, header, r)
	})
}

// Walk opens archivePath and invokes fn for each entry in order. The
// reader passed to fn is only valid until fn returns.
func Walk(archivePath string, fn func(*tar.Header, io.Reader) error) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("read gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}
		if err := fn(header, tr); err != nil {
			return err
		}
	}
}

func extractEntry(targetDir string, header *tar.Header, r io.Reader) error {
	cleaned := filepath.Clean(filepath.FromSlash(header.Name))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return fmt.Errorf("refusing entry path %q", header.Name)
	}
	dest := filepath.Join(targetDir, cleaned)

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(dest, fs.FileMode(header.Mode).Perm())
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			return err
		}
		return os.Symlink(header.Linkname, dest)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(header.Mode).Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, r); err != nil {
			_ = out.Close()
			return fmt.Errorf("extract %s: %w", header.Name, err)
		}
		return out.Close()
	default:
		return nil
	}
}
