package container

import (
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/track"
)

// mp3State records whether a leading ID3v2 tag is present (and its major
// version), the offset of the first MPEG audio frame, and the stream size
// used to locate a trailing ID3v1 block.
type mp3State struct {
	hasID3v2   bool
	id3v2Major byte
	frameStart int64
	fileSize   int64
}

func (c *Container) parseMP3Container() error {
	size, err := streamSize(c.r)
	if err != nil {
		return err
	}
	st := &mp3State{frameStart: c.startOffset, fileSize: size}
	if c.startOffset > c.originOffset {
		st.hasID3v2 = true
		var hdr [10]byte
		if _, err := readAt(c.r, hdr[:], c.originOffset); err == nil && string(hdr[0:3]) == "ID3" {
			st.id3v2Major = hdr[3]
		}
	}
	c.mp3 = st
	c.DocType = "mp3"
	return nil
}

func (c *Container) parseMP3Tracks() error {
	const scanFrames = 50
	var buf [4]byte
	pos := c.mp3.frameStart
	var first track.MPEGFrameHeader
	got := false
	frameCount := 0
	for pos+4 <= c.mp3.fileSize && frameCount < scanFrames {
		if _, err := readAt(c.r, buf[:], pos); err != nil {
			break
		}
		h, err := track.ParseMPEGFrameHeader(buf[:])
		if err != nil {
			pos++
			continue
		}
		if !got {
			first = h
			got = true
		}
		frameCount++
		if h.FrameSize <= 0 {
			break
		}
		pos += h.FrameSize
	}
	if !got {
		return mediaerr.New(mediaerr.InvalidData, "container.mp3", "no MPEG audio frame found")
	}
	// Extrapolate total frame count from the scanned region's average frame
	// size over the remaining stream (teacher's getMp3Infos does the same
	// scan-then-extrapolate rather than decoding every frame).
	scanned := pos - c.mp3.frameStart
	estimatedFrames := frameCount
	if scanned > 0 && frameCount > 0 {
		avg := float64(scanned) / float64(frameCount)
		total := float64(c.mp3.fileSize-c.mp3.frameStart) / avg
		estimatedFrames = int(total)
	}
	t := track.NewMP3Track(first, estimatedFrames)
	c.Tracks = append(c.Tracks, t)
	c.Duration = t.Duration
	c.Timescale = t.SamplingRate
	return nil
}

func (c *Container) parseMP3Tags() error {
	if c.mp3.hasID3v2 {
		var hdr [10]byte
		if _, err := readAt(c.r, hdr[:], c.originOffset); err == nil {
			size := syncSafe(hdr[6:10])
			body := make([]byte, size)
			if _, err := readAt(c.r, body, c.originOffset+10); err == nil {
				if hdr[5]&0x80 != 0 {
					body = tagcodec.RemoveUnsynchronisation(body)
				}
				if c.mp3.id3v2Major >= 3 && hdr[5]&0x40 != 0 && len(body) >= 4 {
					// Extended header: v2.3's big-endian size excludes its own
					// 4 bytes, v2.4's sync-safe size includes them.
					ext := 4 + (int64(body[0])<<24 | int64(body[1])<<16 | int64(body[2])<<8 | int64(body[3]))
					if c.mp3.id3v2Major >= 4 {
						ext = syncSafe(body[0:4])
					}
					if ext <= int64(len(body)) {
						body = body[ext:]
					}
				}
				tag, err := tagcodec.ReadID3v2Tag(c.mp3.id3v2Major, body, c.sink)
				if err != nil {
					c.sink.Logf(diag.Warning, "container.mp3", "ID3v2: %v", err)
				} else {
					c.Tags = append(c.Tags, tag)
				}
			}
		}
	}

	if c.mp3.fileSize >= 128 {
		block := make([]byte, 128)
		if _, err := readAt(c.r, block, c.mp3.fileSize-128); err == nil && string(block[0:3]) == "TAG" {
			tag, err := tagcodec.ReadID3v1Tag(block)
			if err != nil {
				c.sink.Logf(diag.Warning, "container.mp3", "ID3v1: %v", err)
			} else {
				c.Tags = append(c.Tags, tag)
			}
		}
	}
	return nil
}
