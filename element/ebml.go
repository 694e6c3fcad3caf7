package element

import (
	"io"
)

// ebmlParents lists the EBML element IDs that are masters (containers),
// the subset of the Matroska/WebM schema this module cares about. Grounded
// on luispater-matroska-go/ebml.go's element ID constants and on
// spec.md §4.2 (Matroska container).
var ebmlParents = map[uint64]bool{
	0x1A45DFA3: true, // EBML header
	0x18538067: true, // Segment
	0x1549A966: true, // Info (contains nothing we recurse into, but harmless)
	0x1654AE6B: true, // Tracks
	0xAE:       true, // TrackEntry
	0xE0:       true, // Video
	0xE1:       true, // Audio
	0x1254C367: true, // Tags
	0x7373:     true, // Tag
	0x63C0:     true, // Targets
	0x67C8:     true, // SimpleTag (self-recursive, per spec.md §4.2 nested SimpleTag)
	0x114D9B74: true, // SeekHead
	0x4DBB:     true, // Seek
	0x1043A770: true, // Chapters
	0x45B9:     true, // EditionEntry
	0xB6:       true, // ChapterAtom
	0x80:       true, // ChapterDisplay
	0x1941A469: true, // Attachments
	0x61A7:     true, // AttachedFile
	0x1C53BB6B: true, // Cues
	0xBB:       true, // CuePoint
}

// EBMLKind is the element.Kind specialization for Matroska/WebM, grounded
// on luispater-matroska-go's ReadVInt/ReadVIntID (ebml.go) for the variable
// length integer format, and spec.md §4.2 for the element-id table.
type EBMLKind struct{}

func (EBMLKind) Name() string          { return "ebml" }
func (EBMLKind) MinElementSize() int64 { return 2 }

func (EBMLKind) IsParent(id uint64) bool { return ebmlParents[id] }

// IsPadding reports the Void element (0xEC) as paddable, per the Matroska
// specification and spec.md §4.2.
func (EBMLKind) IsPadding(id uint64) bool { return id == 0xEC }

func (EBMLKind) FirstChildOffset(id uint64) int64 { return 0 }

// ReadHeader reads an EBML element ID VINT (with its length-marker bits
// retained, as the Matroska spec requires IDs to be compared including
// those bits) followed by a size VINT (with the marker bits stripped).
// An all-ones size VINT denotes "unknown size", which this engine treats
// as extending to the end of the enclosing element's availableMax, the
// same convention luispater-matroska-go's demuxer applies when seeking
// past an unsized Segment.
func (EBMLKind) ReadHeader(r io.ReadSeeker, start, availableMax int64) (id uint64, headerSize, dataSize int64, err error) {
	idVal, idLen, err := readVIntID(r)
	if err != nil {
		return 0, 0, 0, err
	}
	sizeVal, sizeLen, unknown, err := readVIntSize(r)
	if err != nil {
		return 0, 0, 0, err
	}
	headerSize = int64(idLen + sizeLen)
	if unknown {
		dataSize = availableMax - headerSize
	} else {
		dataSize = int64(sizeVal)
	}
	return idVal, headerSize, dataSize, nil
}

// readVIntID reads an EBML ID: the leading byte's highest set bit
// determines the total length (1..4 bytes), and unlike a size VINT, the
// marker bit is kept as part of the value.
func readVIntID(r io.Reader) (value uint64, length int, err error) {
	var first [1]byte
	if _, err = io.ReadFull(r, first[:]); err != nil {
		return 0, 0, err
	}
	length = vintLength(first[0])
	value = uint64(first[0])
	if length > 1 {
		rest := make([]byte, length-1)
		if _, err = io.ReadFull(r, rest); err != nil {
			return 0, 0, err
		}
		for _, b := range rest {
			value = value<<8 | uint64(b)
		}
	}
	return value, length, nil
}

// readVIntSize reads an EBML size VINT: the length-marker bit is masked
// out of the value. If every remaining data bit is 1, the size is
// "unknown" per the EBML specification.
func readVIntSize(r io.Reader) (value uint64, length int, unknown bool, err error) {
	var first [1]byte
	if _, err = io.ReadFull(r, first[:]); err != nil {
		return 0, 0, false, err
	}
	length = vintLength(first[0])
	mask := byte(0xFF >> length)
	value = uint64(first[0] & mask)
	allOnes := first[0]&mask == mask
	if length > 1 {
		rest := make([]byte, length-1)
		if _, err = io.ReadFull(r, rest); err != nil {
			return 0, 0, false, err
		}
		for _, b := range rest {
			value = value<<8 | uint64(b)
			if b != 0xFF {
				allOnes = false
			}
		}
	}
	return value, length, allOnes, nil
}

// vintLength returns the total VINT length in bytes from its leading byte,
// by scanning for the highest set bit (bit 7 down to bit 0), the same scan
// luispater-matroska-go's ReadVInt performs.
func vintLength(first byte) int {
	for i := 0; i < 8; i++ {
		if first&(0x80>>uint(i)) != 0 {
			return i + 1
		}
	}
	return 8 // malformed; treat as the maximum EBML VINT length
}
