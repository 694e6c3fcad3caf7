package container

import (
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/track"
)

// oggState caches the reconstructed packets so parseOggTracks and
// parseOggTags don't each re-walk the page stream.
type oggState struct {
	packets    []element.OggPacket
	firstBySerial map[uint32][]byte
}

func (c *Container) parseOggContainer() error {
	if _, err := c.r.Seek(c.startOffset, 0); err != nil {
		return err
	}
	packets, err := element.ReadOggPackets(c.r)
	if err != nil && len(packets) == 0 {
		return err
	}
	st := &oggState{packets: packets, firstBySerial: map[uint32][]byte{}}
	for _, p := range packets {
		if _, ok := st.firstBySerial[p.SerialNumber]; !ok {
			st.firstBySerial[p.SerialNumber] = p.Data
		}
	}
	c.ogg = st
	c.DocType = "ogg"
	return nil
}

func (c *Container) parseOggTracks() error {
	for serial, first := range c.ogg.firstBySerial {
		c.Tracks = append(c.Tracks, track.ParseOggTrack(serial, first))
	}
	return nil
}

func (c *Container) parseOggTags() error {
	secondBySerial := map[uint32][]byte{}
	var order []uint32
	seen := map[uint32]int{}
	for _, p := range c.ogg.packets {
		seen[p.SerialNumber]++
		if seen[p.SerialNumber] == 1 {
			order = append(order, p.SerialNumber)
		}
		if seen[p.SerialNumber] == 2 {
			secondBySerial[p.SerialNumber] = p.Data
		}
	}
	for _, serial := range order {
		data, ok := secondBySerial[serial]
		if !ok {
			continue
		}
		format := track.DetectOggCodec(c.ogg.firstBySerial[serial])
		payload := data
		switch format.Sub {
		case "Vorbis", "Theora", "Speex":
			// The first 7 bytes (the "\x03vorbis" or "\x81theora" packet
			// type and codec name) are stripped before decoding.
			if len(payload) > 7 {
				payload = payload[7:]
			}
		case "Opus":
			if len(payload) > 8 && string(payload[0:8]) == "OpusTags" {
				payload = payload[8:]
			}
		case "FLAC":
			// FLAC-in-Ogg's second packet is the full metadata block list;
			// the VorbisComment block is located the same way flac.go does.
			if blk, ok := findVorbisCommentBlock(payload); ok {
				payload = blk
			}
		default:
			continue
		}
		tag, err := tagcodec.ReadVorbisComment(payload, c.sink)
		if err != nil {
			c.sink.Logf(diag.Warning, "container.ogg", "serial %d comment: %v", serial, err)
			continue
		}
		c.Tags = append(c.Tags, tag)
	}
	return nil
}
