package rewrite

import (
	"bytes"
	"hash/crc32"
	"io"

	"github.com/dhowden/mediatag/bytesio"
	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/progress"
	"github.com/dhowden/mediatag/tagcodec"
)

// oggCRCTable is the polynomial Ogg specifies (RFC 3533), distinct from
// the reversed polynomial hash/crc32.IEEE uses, so it is computed here
// rather than reusing the stdlib table.
var oggCRCTable = crc32.MakeTable(0x04c11db7)

// makeOgg always performs a full rewrite (spec.md §4.7.3: "Rewriting is
// always full"): every logical stream is re-packed page by page,
// preserving granule positions and bitstream_serial, renumbering
// page_sequence from zero, and replacing each stream's second
// (Vorbis-comment) packet with the re-serialized tag.
func makeOgg(dst io.Writer, c *container.Container, cfg Config, sink *diag.Sink, tok *progress.Token) error {
	r := c.Reader()
	if _, err := r.Seek(c.StartOffset(), io.SeekStart); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "rewrite.ogg", err)
	}
	packets, err := element.ReadOggPackets(r)
	if err != nil && len(packets) == 0 {
		return err
	}

	bySerial := map[uint32][]element.OggPacket{}
	order := []uint32{}
	for _, p := range packets {
		if _, ok := bySerial[p.SerialNumber]; !ok {
			order = append(order, p.SerialNumber)
		}
		bySerial[p.SerialNumber] = append(bySerial[p.SerialNumber], p)
	}

	// Tags were parsed one per serial in container order; re-pair them the
	// same way so each stream's second packet is replaced with its own tag.
	tagIdx := 0
	for _, serial := range order {
		pkts := bySerial[serial]
		if len(pkts) < 2 || tagIdx >= len(c.Tags) {
			continue
		}
		if vt, ok := c.Tags[tagIdx].(*tagcodec.VorbisTag); ok {
			pkts[1].Data = reframeVorbisComment(pkts[1].Data, tagcodec.WriteVorbisComment(vt))
			tagIdx++
		}
	}

	seq := map[uint32]uint32{}
	for _, serial := range order {
		for _, p := range bySerial[serial] {
			pageSeq := seq[serial]
			seq[serial]++
			headerType := byte(0)
			if p.BOS {
				headerType |= 0x02
			}
			if p.EOS {
				headerType |= 0x04
			}
			if err := writeOggPage(dst, serial, pageSeq, p.GranulePos, headerType, p.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

// reframeVorbisComment replaces a comment packet's payload while
// preserving whatever fixed header precedes it (the "\x03vorbis"/
// "OpusTags"/etc. prefix the original packet carried), matching the
// stripping container.parseOggTags performs on read. A FLAC-in-Ogg
// VorbisComment block keeps its type byte and gets a new 24-bit length.
func reframeVorbisComment(original []byte, newBody []byte) []byte {
	prefixLen := 0
	switch {
	case len(original) >= 8 && string(original[0:8]) == "OpusTags":
		prefixLen = 8
	case len(original) >= 4 && original[0]&0x7F == 4:
		n := len(newBody)
		return append([]byte{original[0], byte(n >> 16), byte(n >> 8), byte(n)}, newBody...)
	case len(original) >= 7:
		prefixLen = 7
	}
	out := make([]byte, 0, prefixLen+len(newBody))
	out = append(out, original[:prefixLen]...)
	out = append(out, newBody...)
	return out
}

// writeOggPage emits one Ogg page for a (typically small, single-packet)
// payload, splitting into multiple pages if data exceeds 255*255 bytes
// per the 255-byte segment-table limit (spec.md's page recomputation
// rule), with CRC-32 computed over the whole page with the CRC field
// zeroed, per RFC 3533.
func writeOggPage(dst io.Writer, serial uint32, seq uint32, granule int64, headerType byte, data []byte) error {
	const maxPerPage = 255 * 255
	for off := 0; off < len(data) || off == 0; {
		chunk := data[off:]
		if len(chunk) > maxPerPage {
			chunk = chunk[:maxPerPage]
		}
		segments := segmentTableFor(len(chunk))
		page := new(bytes.Buffer)
		page.WriteString("OggS")
		page.WriteByte(0) // version
		ht := headerType
		if off > 0 {
			ht |= 0x01 // continuation
		}
		page.WriteByte(ht)
		page.Write(bytesio.PutLEUint(uint64(granule), 8))
		page.Write(bytesio.PutLEUint(uint64(serial), 4))
		page.Write(bytesio.PutLEUint(uint64(seq), 4))
		page.Write([]byte{0, 0, 0, 0}) // CRC placeholder
		page.WriteByte(byte(len(segments)))
		page.Write(segments)
		page.Write(chunk)

		buf := page.Bytes()
		crc := crc32.Checksum(buf, oggCRCTable)
		copy(buf[22:26], bytesio.PutLEUint(uint64(crc), 4))
		if _, err := dst.Write(buf); err != nil {
			return err
		}
		off += len(chunk)
		if len(chunk) == 0 {
			break
		}
	}
	return nil
}

func segmentTableFor(n int) []byte {
	var segs []byte
	for n >= 255 {
		segs = append(segs, 255)
		n -= 255
	}
	segs = append(segs, byte(n))
	return segs
}
