package element

import "io"

// MPEG-4 descriptor tags relevant to the esds atom (ISO/IEC 14496-1),
// needed to reach a track's AudioSpecificConfig for AAC streams.
const (
	DescESDescr       byte = 0x03
	DescDecoderConfig byte = 0x04
	DescDecSpecificInfo byte = 0x05
)

// Descriptor is one MPEG-4 descriptor: a 1-byte tag followed by an
// expandable-length size (each length byte's high bit signals continuation,
// ISO/IEC 14496-1 §8.3.3) and that many bytes of payload.
type Descriptor struct {
	Tag     byte
	Payload []byte
}

// ReadDescriptors parses a flat sequence of descriptors from r until n
// bytes have been consumed, the shape esds atoms use to nest
// ES_Descriptor > DecoderConfigDescriptor > DecoderSpecificInfo.
func ReadDescriptors(r io.Reader, n int) ([]Descriptor, error) {
	var out []Descriptor
	remaining := n
	for remaining > 0 {
		var tagByte [1]byte
		if _, err := io.ReadFull(r, tagByte[:]); err != nil {
			return out, err
		}
		remaining--
		size, consumed, err := readExpandableSize(r)
		if err != nil {
			return out, err
		}
		remaining -= consumed
		payload := make([]byte, size)
		if size > 0 {
			if _, err := io.ReadFull(r, payload); err != nil {
				return out, err
			}
		}
		remaining -= size
		out = append(out, Descriptor{Tag: tagByte[0], Payload: payload})
	}
	return out, nil
}

func readExpandableSize(r io.Reader) (size, consumed int, err error) {
	for i := 0; i < 4; i++ {
		var b [1]byte
		if _, err = io.ReadFull(r, b[:]); err != nil {
			return 0, consumed, err
		}
		consumed++
		size = size<<7 | int(b[0]&0x7F)
		if b[0]&0x80 == 0 {
			break
		}
	}
	return size, consumed, nil
}

// FindDescriptor returns the first descriptor with the given tag among ds,
// searching recursively into DecoderConfigDescriptor payloads when needed
// by the caller (tagcodec/container code parses a payload's nested
// descriptors with a second ReadDescriptors call rather than this helper
// recursing implicitly, keeping the depth explicit at each call site).
func FindDescriptor(ds []Descriptor, tag byte) (Descriptor, bool) {
	for _, d := range ds {
		if d.Tag == tag {
			return d, true
		}
	}
	return Descriptor{}, false
}
