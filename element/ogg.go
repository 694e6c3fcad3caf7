package element

import (
	"encoding/binary"
	"io"

	"github.com/dhowden/mediatag/mediaerr"
)

// OggKind is the element.Kind specialization for Ogg pages (spec.md §4.4,
// Ogg container). Pages never nest; the tree walk degenerates to a flat
// scan of top-level "elements", one per page, the same shape the teacher's
// readPackets (dhowden-tag/ogg.go) iterates with a raw loop instead of a
// tree. Packet reconstruction (a packet may span several pages) is handled
// separately by ReadOggPackets, since it cuts across the page boundaries
// this Kind exposes.
type OggKind struct{}

func (OggKind) Name() string          { return "ogg" }
func (OggKind) MinElementSize() int64 { return 27 }
func (OggKind) IsParent(id uint64) bool  { return false }
func (OggKind) IsPadding(id uint64) bool { return false } // Ogg carries no padding-page convention
func (OggKind) FirstChildOffset(id uint64) int64 { return 0 }

const oggCapturePattern = "OggS"

// OggPageHeader holds the fixed fields of one Ogg page header (RFC 3533),
// beyond what the generic id/header/data split captures, needed to
// reconstruct packet boundaries and logical stream membership.
type OggPageHeader struct {
	Version        byte
	HeaderType     byte // bit 0: continuation, bit 1: bos, bit 2: eos
	GranulePos     int64
	SerialNumber   uint32
	SequenceNumber uint32
	CRC            uint32
	SegmentTable   []byte
}

func (h OggPageHeader) IsContinuation() bool { return h.HeaderType&0x01 != 0 }
func (h OggPageHeader) IsBOS() bool          { return h.HeaderType&0x02 != 0 }
func (h OggPageHeader) IsEOS() bool          { return h.HeaderType&0x04 != 0 }

// ReadHeader reads one Ogg page's fixed header and segment table; the
// element's "id" is the page's stream serial number so ChildByID-style
// lookups can filter to one logical stream, and dataSize is the sum of the
// segment table (i.e. the page body length).
func (OggKind) ReadHeader(r io.ReadSeeker, start, availableMax int64) (id uint64, headerSize, dataSize int64, err error) {
	hdr, segTable, n, err := readOggPageHeader(r)
	if err != nil {
		return 0, 0, 0, err
	}
	var body int64
	for _, s := range segTable {
		body += int64(s)
	}
	_ = hdr
	return uint64(hdr.SerialNumber), int64(n), body, nil
}

func readOggPageHeader(r io.Reader) (OggPageHeader, []byte, int, error) {
	var fixed [27]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return OggPageHeader{}, nil, 0, err
	}
	if string(fixed[0:4]) != oggCapturePattern {
		return OggPageHeader{}, nil, 0, mediaerr.New(mediaerr.InvalidData, "element.ogg", "missing OggS capture pattern")
	}
	h := OggPageHeader{
		Version:        fixed[4],
		HeaderType:     fixed[5],
		GranulePos:     int64(binary.LittleEndian.Uint64(fixed[6:14])),
		SerialNumber:   binary.LittleEndian.Uint32(fixed[14:18]),
		SequenceNumber: binary.LittleEndian.Uint32(fixed[18:22]),
		CRC:            binary.LittleEndian.Uint32(fixed[22:26]),
	}
	segCount := int(fixed[26])
	segTable := make([]byte, segCount)
	if _, err := io.ReadFull(r, segTable); err != nil {
		return OggPageHeader{}, nil, 0, err
	}
	h.SegmentTable = segTable
	return h, segTable, 27 + segCount, nil
}

// OggPacket is one reconstructed logical packet, possibly assembled from
// several continuation pages, alongside the serial number of the logical
// stream it belongs to.
type OggPacket struct {
	SerialNumber uint32
	Data         []byte
	BOS          bool
	EOS          bool
	// GranulePos is the granule position of the page this packet completed
	// on. RFC 3533 defines granule position per page, not per packet; when
	// several packets complete on the same page they all carry that page's
	// value, which is the only granule position a rewritten page for this
	// packet can faithfully reuse.
	GranulePos int64
}

// ReadOggPackets walks every page in r from the current position to EOF,
// reconstructing logical packets per stream serial number, the same
// responsibility as the teacher's readPackets (dhowden-tag/ogg.go), but
// generalized to interleaved multi-stream files instead of assuming a
// single logical bitstream.
func ReadOggPackets(r io.Reader) ([]OggPacket, error) {
	pending := map[uint32][]byte{}
	var packets []OggPacket
	for {
		hdr, segTable, _, err := readOggPageHeader(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return packets, err
		}
		buf := pending[hdr.SerialNumber]
		for _, segLen := range segTable {
			chunk := make([]byte, segLen)
			if _, err := io.ReadFull(r, chunk); err != nil {
				return packets, err
			}
			buf = append(buf, chunk...)
			if segLen < 255 {
				packets = append(packets, OggPacket{
					SerialNumber: hdr.SerialNumber,
					Data:         buf,
					BOS:          hdr.IsBOS(),
					EOS:          hdr.IsEOS(),
					GranulePos:   hdr.GranulePos,
				})
				buf = nil
			}
		}
		pending[hdr.SerialNumber] = buf
	}
	return packets, nil
}
