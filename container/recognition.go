// Package container implements the container-level parse/make surface of
// spec.md §4.7: format recognition, the idempotent parse phases, and (via
// the rewrite package) the make/rewrite algorithm. It is the top-level
// glue between element, track, and tagcodec — the layer the teacher's
// ReadFrom (dhowden-tag/tag.go) occupied, generalized from "detect and
// read tags" to "detect, parse, mutate, and rewrite".
package container

import (
	"bytes"
	"io"

	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/mediaerr"
)

// Format is the closed set of container families this module recognises,
// grounded on the teacher's FileType enum (dhowden-tag/tag.go) and
// extended per spec.md §4.7.1 with WAVE/Matroska/Ogg/ADTS.
type Format int

const (
	FormatUnknown Format = iota
	FormatMP3            // bare MPEG audio frames, optionally ID3v1/v2-wrapped
	FormatMP4
	FormatFLAC
	FormatOgg
	FormatWAVE
	FormatMatroska
	FormatADTS
)

func (f Format) String() string {
	switch f {
	case FormatMP3:
		return "MP3"
	case FormatMP4:
		return "MP4"
	case FormatFLAC:
		return "FLAC"
	case FormatOgg:
		return "Ogg"
	case FormatWAVE:
		return "WAVE"
	case FormatMatroska:
		return "Matroska"
	case FormatADTS:
		return "ADTS"
	default:
		return "Unknown"
	}
}

const maxLeadingZeroRun = 256

// Recognize reads up to 16 bytes (skipping leading zero-byte runs up to
// maxLeadingZeroRun, per spec.md §4.7.1) at the reader's current position
// and determines the container format, returning the offset of the start
// of the recognised content (past any skipped ID3v2 tag or zero run). The
// stream is not repositioned to that offset; it is left wherever the last
// probe read ended. It generalizes the teacher's signature sniff embedded in ReadFrom
// (dhowden-tag/tag.go's switch on the first few bytes).
func Recognize(r io.ReadSeeker, sink *diag.Sink) (Format, int64, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return FormatUnknown, 0, mediaerr.Wrap(mediaerr.IoError, "container.Recognize", err)
	}

	// An MP4 file begins with a big-endian box size whose high bytes are
	// zero, so "ftyp" is probed at the start before any zero run is skipped.
	var probe [8]byte
	if n, _ := readAt(r, probe[:], start); n == 8 && string(probe[4:8]) == "ftyp" {
		return FormatMP4, start, nil
	}

	pos := start
	skipped := 0
	for skipped < maxLeadingZeroRun {
		var b [1]byte
		if _, err := readAt(r, b[:], pos); err != nil {
			break
		}
		if b[0] != 0 {
			break
		}
		pos++
		skipped++
	}
	if skipped > 0 {
		sink.Logf(diag.Warning, "container.Recognize", "skipped %d leading zero bytes at %d", skipped, start)
	}

	hdr := make([]byte, 16)
	n, _ := readAt(r, hdr, pos)
	hdr = hdr[:n]

	switch {
	case bytes.HasPrefix(hdr, []byte("fLaC")):
		return FormatFLAC, pos, nil
	case bytes.HasPrefix(hdr, []byte("OggS")):
		return FormatOgg, pos, nil
	case len(hdr) >= 12 && bytes.Equal(hdr[0:4], []byte("RIFF")) && bytes.Equal(hdr[8:12], []byte("WAVE")):
		return FormatWAVE, pos, nil
	case len(hdr) >= 8 && bytes.Equal(hdr[4:8], []byte("ftyp")):
		return FormatMP4, pos, nil
	case len(hdr) >= 4 && hdr[0] == 0x1A && hdr[1] == 0x45 && hdr[2] == 0xDF && hdr[3] == 0xA3:
		return FormatMatroska, pos, nil
	case bytes.HasPrefix(hdr, []byte("ID3")):
		newPos, err := skipID3v2Tags(r, pos)
		if err != nil {
			return FormatUnknown, pos, err
		}
		return FormatMP3, newPos, nil
	case bytes.HasPrefix(hdr, []byte("ADIF")):
		return FormatADTS, pos, nil
	case len(hdr) >= 2 && hdr[0] == 0xFF && hdr[1]&0xF6 == 0xF0:
		// ADTS sync is 12 one-bits followed by a zero layer field; MPEG
		// audio frames (e.g. FF FB) carry a non-zero layer and fall through.
		return FormatADTS, pos, nil
	case len(hdr) >= 2 && hdr[0] == 0xFF && hdr[1]&0xE0 == 0xE0:
		return FormatMP3, pos, nil
	default:
		return FormatUnknown, pos, mediaerr.New(mediaerr.NoDataFound, "container.Recognize", "no recognised signature")
	}
}

// skipID3v2Tags advances past one or more leading ID3v2 tags (spec.md
// §4.7.1: "skip ID3v2 tag(s) and retry from the byte past them"), reusing
// the same sync-safe size field every ID3v2 reader must already parse.
func skipID3v2Tags(r io.ReadSeeker, pos int64) (int64, error) {
	for {
		hdr := make([]byte, 10)
		if _, err := readAt(r, hdr, pos); err != nil {
			return pos, nil
		}
		if string(hdr[0:3]) != "ID3" {
			return pos, nil
		}
		size := syncSafe(hdr[6:10])
		pos += 10 + int64(size)
	}
}

// readAt seeks r to pos and reads len(buf) bytes, restoring nothing (the
// caller tracks position explicitly); used only by the recognition
// routines, which never interleave with stateful sequential reads.
func readAt(r io.ReadSeeker, buf []byte, pos int64) (int, error) {
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(r, buf)
}

func syncSafe(b []byte) int64 {
	var v int64
	for _, x := range b {
		v = v<<7 | int64(x&0x7F)
	}
	return v
}
