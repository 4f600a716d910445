// Package fsutil provides the filesystem probes the backup pipeline
// depends on: free-space queries, recursive size estimation, and access
// checks.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// FreeSpace reports the bytes available to unprivileged writers on the
// filesystem holding path.
func FreeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// DirSize walks root and sums regular file sizes. Entries that vanish
// mid-walk are skipped; other errors abort the walk.
func DirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// Readable reports whether the current process may read the path.
func Readable(path string) error {
	return unix.Access(path, unix.R_OK)
}
