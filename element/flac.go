package element

import (
	"io"
)

// FLAC metadata block type codes (grounded on the teacher's BlockType enum,
// dhowden-tag/flac.go).
const (
	FLACStreamInfo    uint64 = 0
	FLACPadding       uint64 = 1
	FLACApplication   uint64 = 2
	FLACSeekTable     uint64 = 3
	FLACVorbisComment uint64 = 4
	FLACCueSheet      uint64 = 5
	FLACPicture       uint64 = 6
)

// FLACKind is the element.Kind specialization for FLAC metadata blocks
// (spec.md §4.5), a flat (non-nested) sequence terminated by a last-block
// flag rather than a running total, so ReadHeader reports an availableMax
// of either the block's own declared size or (for the engine's generic
// sibling walk) lets the caller stop at the "last metadata block" flag via
// LastBlockFlag.
type FLACKind struct{}

func (FLACKind) Name() string          { return "flac" }
func (FLACKind) MinElementSize() int64 { return 4 }
func (FLACKind) IsParent(id uint64) bool { return false }
func (FLACKind) IsPadding(id uint64) bool { return id == FLACPadding }
func (FLACKind) FirstChildOffset(id uint64) int64 { return 0 }

// ReadHeader reads the 1-byte (last-flag + 7-bit type) plus 3-byte
// big-endian length header the teacher's readFLACMetadataBlock consumes.
func (FLACKind) ReadHeader(r io.ReadSeeker, start, availableMax int64) (id uint64, headerSize, dataSize int64, err error) {
	var hdr [4]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, 0, err
	}
	id = uint64(hdr[0] & 0x7F)
	dataSize = int64(hdr[1])<<16 | int64(hdr[2])<<8 | int64(hdr[3])
	headerSize = 4
	return id, headerSize, dataSize, nil
}

// LastBlockFlag reports the "is-last-metadata-block" bit from a header
// byte already read by ReadHeader's caller (exposed for tagcodec/container
// callers that need to stop the flat metadata-block scan).
func LastBlockFlag(firstHeaderByte byte) bool {
	return firstHeaderByte&0x80 != 0
}
