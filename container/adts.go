package container

import (
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/track"
)

// adtsState holds the byte range of the first ADTS frame for a bare AAC
// stream (spec.md §4.7.1); there is no container framing beyond the
// repeating frame headers, so chapters/attachments never apply.
type adtsState struct {
	firstFrame []byte
}

func (c *Container) parseADTSContainer() error {
	buf := make([]byte, 7)
	if _, err := readAt(c.r, buf, c.startOffset); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "container.adts", err)
	}
	c.adts = &adtsState{firstFrame: buf}
	c.DocType = "adts"
	return nil
}

func (c *Container) parseADTSTracks() error {
	t, err := track.ParseADTSHeader(c.adts.firstFrame)
	if err != nil {
		return err
	}
	c.Tracks = append(c.Tracks, t)
	c.Timescale = t.SamplingRate
	return nil
}
