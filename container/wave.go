package container

import (
	"time"

	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/track"
)

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// waveState remembers the "fmt " chunk body and the "data" chunk's size,
// the two values track parsing needs.
type waveState struct {
	fmtData  []byte
	dataSize int64
}

func (c *Container) parseWAVEContainer() error {
	size, err := streamSize(c.r)
	if err != nil {
		return err
	}
	pos := c.startOffset + 12 // past "RIFF"+size+"WAVE"
	st := &waveState{}
	for pos+8 <= size {
		var hdr [8]byte
		if _, err := readAt(c.r, hdr[:], pos); err != nil {
			break
		}
		chunkID := string(hdr[0:4])
		chunkSize := int64(hdr[4]) | int64(hdr[5])<<8 | int64(hdr[6])<<16 | int64(hdr[7])<<24
		dataStart := pos + 8
		switch chunkID {
		case "fmt ":
			buf := make([]byte, chunkSize)
			if _, err := readAt(c.r, buf, dataStart); err == nil {
				st.fmtData = buf
			}
		case "data":
			st.dataSize = chunkSize
		}
		pos = dataStart + chunkSize
		if chunkSize%2 != 0 {
			pos++ // RIFF chunks are word-aligned
		}
	}
	c.wave = st
	c.DocType = "wave"
	return nil
}

func (c *Container) parseWAVETracks() error {
	if c.wave.fmtData == nil {
		return mediaerr.New(mediaerr.InvalidData, "container.wave", "missing fmt chunk")
	}
	t, err := track.ParseWAVEFormat(c.wave.fmtData)
	if err != nil {
		return err
	}
	if t.SamplingRate > 0 && c.wave.dataSize > 0 && t.BitsPerSample > 0 && t.ChannelCount > 0 {
		bytesPerSample := int64(t.BitsPerSample/8) * int64(t.ChannelCount)
		if bytesPerSample > 0 {
			totalSamples := c.wave.dataSize / bytesPerSample
			t.Duration = secondsToDuration(float64(totalSamples) / float64(t.SamplingRate))
		}
	}
	c.Tracks = append(c.Tracks, t)
	c.Duration = t.Duration
	c.Timescale = t.SamplingRate
	return nil
}
