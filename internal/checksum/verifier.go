package checksum

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tarkeep/internal/archive"
	"tarkeep/internal/logging"
)

var (
	// ErrMismatch reports that the recomputed digest differs from the
	// sidecar value.
	ErrMismatch = errors.New("checksum mismatch")
	// ErrCorrupt reports that the archive failed the structural read test.
	ErrCorrupt = errors.New("archive corrupt")
)

// Result summarizes a verification pass.
type Result struct {
	// DigestChecked is false when no sidecar or no provider was
	// available; that degrades to a logged warning, never a failure.
	DigestChecked bool
	Algorithm     string
	Entries       int
}

// Verifier writes and checks digest sidecars and performs structural
// archive read tests.
type Verifier struct {
	preferred []string
	logger    *slog.Logger
}

// NewVerifier constructs a verifier honoring the configured provider
// preference order (empty means the built-in default).
func NewVerifier(preferred []string, logger *slog.Logger) *Verifier {
	return &Verifier{
		preferred: preferred,
		logger:    logging.NewComponentLogger(logger, "verify"),
	}
}

// WriteSidecar computes the selected digest over the archive bytes and
// writes it beside the archive. A missing digest capability logs a
// warning and returns nil; it must never block backup creation.
func (v *Verifier) WriteSidecar(arch *archive.Archive) error {
	provider, ok := Select(v.preferred)
	if !ok {
		v.logger.Warn("no digest provider available, skipping checksum",
			logging.String(logging.FieldArchive, arch.Path))
		return nil
	}

	digest, err := provider.Sum(arch.Path)
	if err != nil {
		return fmt.Errorf("compute %s digest: %w", provider.Name, err)
	}

	sidecarPath := arch.Path + provider.SidecarExt
	line := fmt.Sprintf("%s  %s\n", digest, filepath.Base(arch.Path))
	if err := os.WriteFile(sidecarPath, []byte(line), 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}

	arch.DigestAlgo = provider.Name
	arch.Digest = digest
	arch.SidecarPath = sidecarPath
	v.logger.Info("checksum written",
		logging.String(logging.FieldArchive, arch.Path),
		logging.String("algorithm", provider.Name))
	return nil
}

// Verify recomputes the sidecar digest (when one exists and a provider
// is available) and always runs the structural read test. Digest
// mismatch returns ErrMismatch; a structurally unreadable archive
// returns ErrCorrupt.
func (v *Verifier) Verify(archivePath string) (Result, error) {
	result := Result{}

	sidecarPath, ext, found := findSidecar(archivePath)
	switch {
	case !found:
		v.logger.Warn("no digest sidecar found, skipping checksum verification",
			logging.String(logging.FieldArchive, archivePath))
	default:
		provider, ok := ByExtension(ext, v.preferred)
		if !ok {
			v.logger.Warn("no digest provider for sidecar, skipping checksum verification",
				logging.String("sidecar", sidecarPath))
			break
		}
		recorded, err := readSidecar(sidecarPath)
		if err != nil {
			return result, fmt.Errorf("read sidecar: %w", err)
		}
		actual, err := provider.Sum(archivePath)
		if err != nil {
			return result, err
		}
		if !strings.EqualFold(recorded, actual) {
			return result, fmt.Errorf("%w: recorded %s, computed %s", ErrMismatch, recorded, actual)
		}
		result.DigestChecked = true
		result.Algorithm = provider.Name
	}

	entries, err := v.structuralTest(archivePath)
	if err != nil {
		return result, err
	}
	result.Entries = entries
	return result, nil
}

// structuralTest enumerates archive entries and streams the first
// entry's content to a discarded sink. An empty archive passes.
func (v *Verifier) structuralTest(archivePath string) (int, error) {
	entries := 0
	err := archive.Walk(archivePath, func(header *tar.Header, r io.Reader) error {
		entries++
		if entries == 1 {
			if _, err := io.Copy(io.Discard, r); err != nil {
				return fmt.Errorf("read first entry %s: %w", header.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return entries, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return entries, nil
}

func findSidecar(archivePath string) (string, string, bool) {
	for _, ext := range SidecarExts {
		candidate := archivePath + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate, ext, true
		}
	}
	return "", "", false
}

func readSidecar(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", errors.New("empty sidecar")
	}
	return fields[0], nil
}
