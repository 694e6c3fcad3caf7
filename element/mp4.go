package element

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dhowden/mediatag/bytesio"
)

// mp4Parents lists the FOURCCs that contain child atoms, grounded on the
// teacher's atomTypes table (dhowden-tag/mp4.go), generalized from a
// read-only lookup into the engine's IsParent hook.
var mp4Parents = map[uint64]bool{}

func mp4FOURCC(s string) uint64 {
	v, _ := bytesio.FOURCCFromString(s)
	return uint64(v)
}

func init() {
	for _, s := range []string{
		"moov", "trak", "mdia", "minf", "stbl", "udta", "meta", "ilst",
		"stsd", "dref", "edts", "mvex", "moof", "traf", "mfra", "skip",
	} {
		mp4Parents[mp4FOURCC(s)] = true
	}
}

// MP4Kind is the element.Kind specialization for ISOBMFF/QuickTime atoms
// (spec.md §4.1 MP4 container), generalizing the teacher's readAtomHeader
// and readAtoms (dhowden-tag/mp4.go).
type MP4Kind struct{}

func (MP4Kind) Name() string         { return "mp4" }
func (MP4Kind) MinElementSize() int64 { return 8 }

func (MP4Kind) IsParent(id uint64) bool { return mp4Parents[id] }

// IsPadding reports "free" and "skip" atoms as paddable, per spec.md §4.1.
func (MP4Kind) IsPadding(id uint64) bool {
	return id == mp4FOURCC("free") || id == mp4FOURCC("skip")
}

// FirstChildOffset accounts for the preambles the teacher skips explicitly
// before walking into meta/dref/stsd's children (dhowden-tag/mp4.go
// readAtoms: "traverse meta's non-atom data first, 4 bytes").
func (MP4Kind) FirstChildOffset(id uint64) int64 {
	switch id {
	case mp4FOURCC("meta"):
		return 4 // version + flags
	case mp4FOURCC("stsd"), mp4FOURCC("dref"):
		return 8 // version+flags (4) + entry_count (4)
	default:
		return 0
	}
}

// ReadHeader reads a 32-bit size, 4-byte FOURCC, and handles the
// size==1 (64-bit extended size) and size==0 (extends to end of parent)
// cases from ISO/IEC 14496-12.
func (MP4Kind) ReadHeader(r io.ReadSeeker, start, availableMax int64) (id uint64, headerSize, dataSize int64, err error) {
	var hdr [8]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, 0, err
	}
	size32 := binary.BigEndian.Uint32(hdr[0:4])
	fourcc := binary.BigEndian.Uint32(hdr[4:8])
	id = uint64(fourcc)

	switch size32 {
	case 0:
		headerSize = 8
		dataSize = availableMax - 8
	case 1:
		var ext [8]byte
		if _, err = io.ReadFull(r, ext[:]); err != nil {
			return 0, 0, 0, err
		}
		total := int64(binary.BigEndian.Uint64(ext[:]))
		headerSize = 16
		dataSize = total - 16
	default:
		headerSize = 8
		dataSize = int64(size32) - 8
	}
	if dataSize < 0 {
		return 0, 0, 0, fmt.Errorf("mp4 atom %q at %d: negative data size", bytesio.FOURCCAsString(fourcc), start)
	}
	return id, headerSize, dataSize, nil
}

// CustomAtomName renders a "----" freeform atom's mean/name pair, as the
// teacher's readCustomAtom does, for diagnostic purposes (not parsed by
// ReadHeader itself; tagcodec/mp4.go calls this when decoding "----").
func CustomAtomName(mean, name string) string {
	return fmt.Sprintf("----:%s:%s", mean, name)
}
