// Package lockfile enforces single-run execution against a destination
// directory.
//
// A pid token file identifies the owning process for the duration of a
// run. Token inspection and replacement are serialized by an advisory
// flock on a companion guard file so two near-simultaneous acquirers
// cannot both succeed. A token whose recorded process is no longer
// alive is reclaimed with a warning; a token with a live owner fails
// the acquire immediately (no queuing, no retry).
package lockfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"tarkeep/internal/logging"
)

// ErrHeld reports that another live process owns the lock.
var ErrHeld = errors.New("another backup run is already in progress")

// Lock is a run-level mutual exclusion token.
type Lock struct {
	tokenPath string
	guard     *flock.Flock
	logger    *slog.Logger

	pid      int
	acquired bool

	// processAlive is swappable for tests.
	processAlive func(pid int) bool
}

// New constructs a lock around the given token path.
func New(tokenPath string, logger *slog.Logger) *Lock {
	return &Lock{
		tokenPath:    tokenPath,
		guard:        flock.New(tokenPath + ".guard"),
		logger:       logging.NewComponentLogger(logger, "lock"),
		pid:          os.Getpid(),
		processAlive: processAlive,
	}
}

// Acquire claims the lock for the current process. It fails with ErrHeld
// when a live owner is recorded, and silently reclaims tokens whose
// owner has died.
func (l *Lock) Acquire() error {
	ok, err := l.guard.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock guard: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	defer func() {
		_ = l.guard.Unlock()
	}()

	if owner, found, err := l.readToken(); err != nil {
		return err
	} else if found {
		if l.processAlive(owner) {
			return fmt.Errorf("%w (pid %d)", ErrHeld, owner)
		}
		l.logger.Warn("removing stale lock token", logging.Int("owner_pid", owner))
		if err := os.Remove(l.tokenPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale lock token: %w", err)
		}
	}

	file, err := os.OpenFile(l.tokenPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrHeld
		}
		return fmt.Errorf("create lock token: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", l.pid); err != nil {
		_ = os.Remove(l.tokenPath)
		return fmt.Errorf("write lock token: %w", err)
	}

	l.acquired = true
	return nil
}

// Release removes the token and the guard file so no lock artifact
// outlives the run. Failures are logged, never escalated; callers defer
// it on every exit path of a run.
func (l *Lock) Release() {
	if !l.acquired {
		return
	}
	l.acquired = false

	if ok, err := l.guard.TryLock(); err == nil && ok {
		defer func() {
			_ = l.guard.Unlock()
		}()
	}
	if err := os.Remove(l.tokenPath); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("failed to remove lock token", logging.Error(err))
	}
	if err := os.Remove(l.guard.Path()); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("failed to remove lock guard", logging.Error(err))
	}
}

// TokenPath returns the token file location.
func (l *Lock) TokenPath() string {
	return l.tokenPath
}

func (l *Lock) readToken() (int, bool, error) {
	data, err := os.ReadFile(l.tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read lock token: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		// Unreadable tokens are treated as stale.
		return -1, true, nil
	}
	return pid, true, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, unix.EPERM)
}
