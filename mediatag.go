// Package mediatag is the file-info façade (spec.md §6): open a file,
// run the parse phases you need, inspect tracks/tags/chapters/
// attachments, mutate tags in memory, and apply_changes to write a
// rewritten file back out. It is the one package in this module meant
// to be imported directly by a consumer; everything else is plumbing
// the façade wires together, the same role the teacher's flat root
// package (tag.ReadFrom, tag.Metadata) plays for its own, narrower API.
package mediatag

import (
	"io"
	"os"

	"github.com/dhowden/mediatag/backup"
	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/progress"
	"github.com/dhowden/mediatag/rewrite"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/track"
)

// FileInfo is a parsed (or parseable) media file. It owns the open file
// handle, the underlying container, the accumulated diagnostics, and the
// rewrite layout configuration apply_changes uses.
type FileInfo struct {
	path string
	f    *os.File
	c    *container.Container
	sink diag.Sink
	cfg  rewrite.Config
}

// Open opens path and recognises its container format. Call one of the
// Parse* methods before inspecting Tracks/Tags/Chapters/Attachments.
func Open(path string) (*FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.IoError, "mediatag.Open", err)
	}
	fi := &FileInfo{path: path, f: f, cfg: rewrite.DefaultConfig()}
	c, err := container.New(f, &fi.sink)
	if err != nil {
		f.Close()
		return nil, err
	}
	fi.c = c
	return fi, nil
}

// Close releases the underlying file handle.
func (fi *FileInfo) Close() error {
	return fi.f.Close()
}

// Diagnostics returns every diagnostic recorded so far across all parse
// and apply_changes calls.
func (fi *FileInfo) Diagnostics() []diag.Entry {
	return fi.sink.Entries()
}

func (fi *FileInfo) ParseContainer() error   { return fi.c.ParseContainer() }
func (fi *FileInfo) ParseTracks() error      { return fi.c.ParseTracks() }
func (fi *FileInfo) ParseTags() error        { return fi.c.ParseTags() }
func (fi *FileInfo) ParseChapters() error    { return fi.c.ParseChapters() }
func (fi *FileInfo) ParseAttachments() error { return fi.c.ParseAttachments() }
func (fi *FileInfo) ParseEverything() error  { return fi.c.ParseEverything() }

// Container returns the underlying container. It is set by Open, before
// any Parse* method has run.
func (fi *FileInfo) Container() *container.Container {
	if fi.c == nil {
		return nil
	}
	return fi.c
}

func (fi *FileInfo) Tracks() []*track.Track              { return fi.c.Tracks }
func (fi *FileInfo) Tags() []tagmodel.Tag                { return fi.c.Tags }
func (fi *FileInfo) Chapters() []container.Chapter       { return fi.c.Chapters }
func (fi *FileInfo) Attachments() []container.Attachment { return fi.c.Attachments }

// CreateID3v1Tag appends a new, empty ID3v1 tag regardless of the
// container's own format (the layout's id3v1 trailer is always optional,
// spec.md §4.6.1).
func (fi *FileInfo) CreateID3v1Tag() tagmodel.Tag {
	t := tagcodec.NewID3v1Tag()
	fi.c.Tags = append(fi.c.Tags, t)
	return t
}

// CreateID3v2Tag appends a new, empty ID3v2 tag of the given major version
// (2, 3, or 4).
func (fi *FileInfo) CreateID3v2Tag(version byte) tagmodel.Tag {
	t := tagcodec.NewID3v2Tag(version)
	fi.c.Tags = append(fi.c.Tags, t)
	return t
}

// CreateVorbisComment appends a new, empty Vorbis comment tag.
func (fi *FileInfo) CreateVorbisComment(vendor string) tagmodel.Tag {
	t := tagcodec.NewVorbisTag(vendor)
	fi.c.Tags = append(fi.c.Tags, t)
	return t
}

// RemoveTag removes a single tag (returned by one of the Create* methods
// or found in Tags()) from the container's tag list.
func (fi *FileInfo) RemoveTag(tag tagmodel.Tag) { fi.c.RemoveTag(tag) }

// RemoveAllTags clears every tag.
func (fi *FileInfo) RemoveAllTags() { fi.c.RemoveAllTags() }

// SetTagPosition, SetIndexPosition, SetForceRewrite, SetPreferredPadding,
// SetMinPadding and SetMaxPadding are the layout knobs spec.md §6 lists,
// applied to the rewrite.Config apply_changes passes to rewrite.Make.
func (fi *FileInfo) SetTagPosition(p rewrite.Position)   { fi.cfg.TagPosition = p }
func (fi *FileInfo) SetIndexPosition(p rewrite.Position) { fi.cfg.IndexPosition = p }
func (fi *FileInfo) SetForceRewrite(v bool)              { fi.cfg.ForceRewrite = v }
func (fi *FileInfo) SetPreferredPadding(n int64)         { fi.cfg.PreferredPadding = n }
func (fi *FileInfo) SetMinPadding(n int64)               { fi.cfg.MinPadding = n }
func (fi *FileInfo) SetMaxPadding(n int64)               { fi.cfg.MaxPadding = n }

// ApplyChanges writes the container's in-memory state (tag/tracks
// mutations already applied directly through Container()/Tags()) back to
// the underlying file, via backup, a temporary file, and an atomic
// rename, so a crash mid-write never leaves a half-rewritten original in
// place. tok may be nil.
func (fi *FileInfo) ApplyChanges(tok *progress.Token) error {
	tmpPath := fi.path + ".tmp"
	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "mediatag.ApplyChanges", err)
	}

	if _, err := fi.f.Seek(0, io.SeekStart); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return mediaerr.Wrap(mediaerr.IoError, "mediatag.ApplyChanges", err)
	}

	fb := backup.NewFileBackup(fi.path)
	makeErr := rewrite.Make(out, fi.c, fi.cfg, fb, &fi.sink, tok)
	closeErr := out.Close()
	if makeErr != nil {
		os.Remove(tmpPath)
		return makeErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return mediaerr.Wrap(mediaerr.IoError, "mediatag.ApplyChanges", closeErr)
	}

	if err := fi.f.Close(); err != nil {
		os.Remove(tmpPath)
		return mediaerr.Wrap(mediaerr.IoError, "mediatag.ApplyChanges", err)
	}
	if err := os.Rename(tmpPath, fi.path); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "mediatag.ApplyChanges", err)
	}

	fb.Remove()

	f, err := os.Open(fi.path)
	if err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "mediatag.ApplyChanges", err)
	}
	fi.f = f
	return nil
}
