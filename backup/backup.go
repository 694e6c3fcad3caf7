// Package backup implements the default backup/restore collaborator
// (spec.md §1): apply_changes calls CreateBackup before writing a
// rewritten file over the original, and RestoreFromBackup if the write
// is aborted partway through. The rewrite package depends only on the
// rewrite.Backup interface; this implementation is the one a caller
// reaches for when it has nothing more specific (a versioned store, a
// transactional filesystem) to offer.
package backup

import (
	"io"
	"os"

	"github.com/dhowden/mediatag/mediaerr"
)

// FileBackup copies Path aside to a sibling file before the caller
// overwrites Path in place, and copies it back on RestoreFromBackup. It
// satisfies rewrite.Backup without importing that package, the same
// loose-coupling the teacher's Metadata interface (tag.go) uses for its
// own consumers.
type FileBackup struct {
	Path       string
	backupPath string
}

// NewFileBackup returns a FileBackup that stages its copy alongside path
// with a ".bak" suffix.
func NewFileBackup(path string) *FileBackup {
	return &FileBackup{Path: path, backupPath: path + ".bak"}
}

// CreateBackup copies Path to the backup location, overwriting any
// previous backup. No-op (and not an error) if Path does not yet exist.
func (b *FileBackup) CreateBackup() error {
	src, err := os.Open(b.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return mediaerr.Wrap(mediaerr.IoError, "backup.CreateBackup", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(b.backupPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "backup.CreateBackup", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "backup.CreateBackup", err)
	}
	return dst.Sync()
}

// RestoreFromBackup copies the staged backup back over Path.
func (b *FileBackup) RestoreFromBackup() error {
	src, err := os.Open(b.backupPath)
	if err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "backup.RestoreFromBackup", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(b.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "backup.RestoreFromBackup", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "backup.RestoreFromBackup", err)
	}
	return dst.Sync()
}

// Remove deletes the staged backup file once a rewrite has committed
// successfully. Not an error if no backup was ever created.
func (b *FileBackup) Remove() error {
	err := os.Remove(b.backupPath)
	if err != nil && !os.IsNotExist(err) {
		return mediaerr.Wrap(mediaerr.IoError, "backup.Remove", err)
	}
	return nil
}
