package rewrite

import (
	"io"

	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/progress"
)

// Backup is the external backup/restore collaborator (spec.md §1): Make
// calls CreateBackup before writing and RestoreFromBackup if the operation
// is aborted partway through.
type Backup interface {
	CreateBackup() error
	RestoreFromBackup() error
}

// noopBackup is used when the caller supplies no collaborator; Make still
// honours cancellation, it simply has nothing to restore.
type noopBackup struct{}

func (noopBackup) CreateBackup() error      { return nil }
func (noopBackup) RestoreFromBackup() error { return nil }

// Make rewrites c's container according to cfg, writing the result to dst.
// c.Tags/c.Chapters/c.Attachments reflect whatever in-memory mutations the
// caller already applied. sink and tok may be nil.
func Make(dst io.Writer, c *container.Container, cfg Config, backup Backup, sink *diag.Sink, tok *progress.Token) error {
	if backup == nil {
		backup = noopBackup{}
	}
	if sink == nil {
		sink = &diag.Sink{}
	}
	if err := backup.CreateBackup(); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "rewrite.Make", err)
	}

	var err error
	switch c.Format {
	case container.FormatMP4:
		err = makeMP4(dst, c, cfg, sink, tok)
	case container.FormatMatroska:
		err = makeMatroska(dst, c, cfg, sink, tok)
	case container.FormatOgg:
		err = makeOgg(dst, c, cfg, sink, tok)
	case container.FormatFLAC:
		err = makeFLAC(dst, c, cfg, sink, tok)
	case container.FormatMP3:
		err = makeMP3(dst, c, cfg, sink, tok)
	default:
		err = mediaerr.New(mediaerr.NotImplemented, "rewrite.Make", "no rewriter for this format")
	}

	if mediaerr.Is(err, mediaerr.OperationAborted) {
		if rerr := backup.RestoreFromBackup(); rerr != nil {
			sink.Logf(diag.Critical, "rewrite.Make", "restore after abort failed: %v", rerr)
		}
	}
	return err
}
