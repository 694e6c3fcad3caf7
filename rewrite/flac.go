package rewrite

import (
	"io"

	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/progress"
	"github.com/dhowden/mediatag/tagcodec"
)

// makeFLAC always performs a full rewrite (spec.md §4.7.3: FLAC carries no
// chunk-offset table to patch, so there is no cheaper alternative): re-emit
// "fLaC", copy the source's StreamInfo block unchanged, write a fresh
// VorbisComment block, one Picture block per cover in the new tag, a
// Padding block sized per cfg, and finally every audio frame byte-for-byte.
func makeFLAC(dst io.Writer, c *container.Container, cfg Config, sink *diag.Sink, tok *progress.Token) error {
	r := c.Reader()
	size, err := seekSize(r)
	if err != nil {
		return err
	}
	kind := element.FLACKind{}
	pos := c.StartOffset() + 4

	var streamInfo []byte
	audioStart := size
	for pos < size {
		var hdrByte [1]byte
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return mediaerr.Wrap(mediaerr.IoError, "rewrite.flac", err)
		}
		if _, err := io.ReadFull(r, hdrByte[:]); err != nil {
			return mediaerr.Wrap(mediaerr.IoError, "rewrite.flac", err)
		}
		el := element.New(kind, r, pos, size-pos)
		if err := el.Parse(); err != nil {
			break
		}
		if el.ID() == element.FLACStreamInfo {
			data, err := el.Data()
			if err != nil {
				return err
			}
			streamInfo = data
		}
		pos += el.TotalSize()
		if element.LastBlockFlag(hdrByte[0]) {
			audioStart = pos
			break
		}
	}
	if streamInfo == nil {
		return mediaerr.New(mediaerr.InvalidData, "rewrite.flac", "missing StreamInfo block")
	}

	var vorbisTag *tagcodec.VorbisTag
	for _, t := range c.Tags {
		if vt, ok := t.(*tagcodec.VorbisTag); ok {
			vorbisTag = vt
			break
		}
	}

	type block struct {
		blockType uint64
		data      []byte
	}
	blocks := []block{{element.FLACStreamInfo, streamInfo}}
	if vorbisTag != nil {
		blocks = append(blocks, block{element.FLACVorbisComment, tagcodec.WriteVorbisComment(vorbisTag)})
		for _, pic := range vorbisTag.Pictures() {
			blocks = append(blocks, block{element.FLACPicture, tagcodec.EncodeFLACPictureBlock(pic)})
		}
	}
	padding := cfg.clampPadding()
	if padding > 0 {
		blocks = append(blocks, block{element.FLACPadding, make([]byte, padding)})
	}

	if _, err := dst.Write([]byte("fLaC")); err != nil {
		return err
	}
	for i, b := range blocks {
		last := i == len(blocks)-1
		if err := writeFLACBlock(dst, b.blockType, b.data, last); err != nil {
			return err
		}
	}
	return copyThrough(dst, r, audioStart, size-audioStart, tok, "flac frames")
}

func writeFLACBlock(w io.Writer, blockType uint64, data []byte, last bool) error {
	header := make([]byte, 4)
	header[0] = byte(blockType & 0x7F)
	if last {
		header[0] |= 0x80
	}
	n := len(data)
	header[1] = byte(n >> 16)
	header[2] = byte(n >> 8)
	header[3] = byte(n)
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
