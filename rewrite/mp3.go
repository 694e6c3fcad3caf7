package rewrite

import (
	"io"

	"github.com/dhowden/mediatag/bytesio"
	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/progress"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagmodel"
)

// makeMP3 rewrites an MP3 file per spec.md §4.7.3's minimal-patch strategy:
// the MPEG frame stream itself is never touched, only what surrounds it.
// A fresh ID3v2 tag (if any) replaces the leading one, padded per cfg; the
// frames are copied byte-for-byte; a fresh ID3v1 trailer (if any) replaces
// or appends after them.
func makeMP3(dst io.Writer, c *container.Container, cfg Config, sink *diag.Sink, tok *progress.Token) error {
	r := c.Reader()
	size, err := seekSize(r)
	if err != nil {
		return err
	}

	var id3v2Tag *tagmodel.BasicTag
	var id3v1Tag *tagcodec.ID3v1Tag
	for _, t := range c.Tags {
		switch v := t.(type) {
		case *tagcodec.ID3v1Tag:
			id3v1Tag = v
		case *tagmodel.BasicTag:
			id3v2Tag = v
		}
	}

	if id3v2Tag != nil {
		body := tagcodec.WriteID3v2Tag(id3v2Tag, 3)
		padding := cfg.clampPadding()
		if padding > 0 {
			body = growID3v2Tag(body, padding)
		}
		if _, err := dst.Write(body); err != nil {
			return mediaerr.Wrap(mediaerr.IoError, "rewrite.mp3", err)
		}
	}

	frameStart := c.StartOffset()
	frameEnd := size
	if hasTrailingID3v1(r, size) {
		frameEnd = size - 128
	}
	if err := copyThrough(dst, r, frameStart, frameEnd-frameStart, tok, "mpeg frames"); err != nil {
		return err
	}

	if id3v1Tag != nil {
		if _, err := dst.Write(tagcodec.WriteID3v1Tag(id3v1Tag)); err != nil {
			return mediaerr.Wrap(mediaerr.IoError, "rewrite.mp3", err)
		}
	}
	return nil
}

// growID3v2Tag pads a serialized ID3v2 tag with trailing zero frames' worth
// of raw padding bytes (legal per the ID3v2 spec: an all-zero frame id
// signals end-of-frames) and rewrites the header's size field to match.
func growID3v2Tag(body []byte, padding int64) []byte {
	out := append(body, make([]byte, padding)...)
	oldSize := bytesio.SyncSafeUint(out[6:10])
	newSize := bytesio.PutSyncSafeUint32(uint32(oldSize) + uint32(padding))
	copy(out[6:10], newSize[:])
	return out
}

// hasTrailingID3v1 reports whether the source already ends in a TAG block,
// used when the in-memory tag set dropped the ID3v1 tag (RemoveAllTags)
// but the source bytes still carry the old trailer that must be excluded
// from the copied frame range.
func hasTrailingID3v1(r io.ReadSeeker, size int64) bool {
	if size < 128 {
		return false
	}
	var tag [3]byte
	if _, err := r.Seek(size-128, io.SeekStart); err != nil {
		return false
	}
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return false
	}
	return string(tag[:]) == "TAG"
}
