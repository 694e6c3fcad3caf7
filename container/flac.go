package container

import (
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagvalue"
	"github.com/dhowden/mediatag/track"
)

// flacState records every metadata block (for the maker to re-emit
// StreamInfo/Picture unchanged) and the raw StreamInfo/audio-start offset.
type flacState struct {
	blocks        []flacBlock
	audioStart    int64
}

type flacBlock struct {
	blockType uint64
	data      []byte
}

func (c *Container) parseFLACContainer() error {
	size, err := streamSize(c.r)
	if err != nil {
		return err
	}
	kind := element.FLACKind{}
	pos := c.startOffset + 4 // past "fLaC" marker
	st := &flacState{}
	for pos < size {
		// Peek the header byte to know the last-block flag before Parse
		// consumes it, since FLACKind.ReadHeader doesn't expose it.
		var hdrByte [1]byte
		if _, err := readAt(c.r, hdrByte[:], pos); err != nil {
			return mediaerr.Wrap(mediaerr.IoError, "container.flac", err)
		}
		el := element.New(kind, c.r, pos, size-pos)
		if err := el.Parse(); err != nil {
			c.sink.Logf(diag.Critical, "container.flac", "stopping metadata scan at %d: %v", pos, err)
			break
		}
		data, err := el.Data()
		if err != nil {
			c.sink.Logf(diag.Warning, "container.flac", "block at %d unreadable: %v", pos, err)
		} else {
			st.blocks = append(st.blocks, flacBlock{blockType: el.ID(), data: data})
		}
		pos += el.TotalSize()
		if element.LastBlockFlag(hdrByte[0]) {
			break
		}
	}
	st.audioStart = pos
	c.flac = st
	c.DocType = "flac"
	return nil
}

func (c *Container) parseFLACTracks() error {
	for _, b := range c.flac.blocks {
		if b.blockType == element.FLACStreamInfo {
			t, err := track.ParseFLACStreamInfo(b.data)
			if err != nil {
				return err
			}
			c.Tracks = append(c.Tracks, t)
			c.Duration = t.Duration
			c.Timescale = t.SamplingRate
			return nil
		}
	}
	return mediaerr.New(mediaerr.InvalidData, "container.flac", "missing StreamInfo block")
}

func (c *Container) parseFLACTags() error {
	var vorbisTag *tagcodec.VorbisTag
	for _, b := range c.flac.blocks {
		if b.blockType == element.FLACVorbisComment {
			tag, err := tagcodec.ReadVorbisComment(b.data, c.sink)
			if err != nil {
				return err
			}
			vorbisTag = tag
			c.Tags = append(c.Tags, tag)
		}
	}
	if vorbisTag == nil {
		return nil
	}
	// Native FLAC Picture blocks share METADATA_BLOCK_PICTURE's layout
	// (FLAC format specification, "PICTURE") but arrive unencoded, so the
	// picture is decoded directly into the same tag rather than routed
	// back through Vorbis's base64 codec.
	for _, b := range c.flac.blocks {
		if b.blockType == element.FLACPicture {
			pic, err := tagcodec.DecodeFLACPictureBlock(b.data)
			if err != nil {
				c.sink.Logf(diag.Warning, "container.flac", "PICTURE block: %v", err)
				continue
			}
			vorbisTag.SetField(tagvalue.Cover, tagvalue.NewPicture(pic))
		}
	}
	return nil
}

// findVorbisCommentBlock locates the VorbisComment block within a raw
// sequence of FLAC metadata blocks (used when FLAC is embedded as the
// second Ogg packet), grounded on the same block-header layout as
// parseFLACContainer.
func findVorbisCommentBlock(data []byte) ([]byte, bool) {
	pos := 0
	for pos+4 <= len(data) {
		last := data[pos]&0x80 != 0
		blockType := data[pos] & 0x7F
		size := int(data[pos+1])<<16 | int(data[pos+2])<<8 | int(data[pos+3])
		pos += 4
		if pos+size > len(data) {
			return nil, false
		}
		if blockType == byte(element.FLACVorbisComment) {
			return data[pos : pos+size], true
		}
		pos += size
		if last {
			break
		}
	}
	return nil, false
}
