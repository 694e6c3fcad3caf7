// Package bytesio provides the endian-aware read/write primitives and the
// buffered, abort-aware copy routine described in spec.md §4.1. It
// generalizes the teacher's util.go helpers (readBytes, readInt,
// get7BitChunkedInt, readUint32LittleEndian) to cover every integer width,
// fixed-point format, and string form the rest of the module needs.
package bytesio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/dhowden/mediatag/progress"
)

// StagingBufferSize is the minimum size of the buffer Copy uses, per
// spec.md §4.1 ("a fixed-size staging buffer (≥ 64 KiB)").
const StagingBufferSize = 64 * 1024

// ReadBytes reads exactly n bytes from r.
func ReadBytes(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadUint reads an n-byte (1..8) big-endian unsigned integer.
func ReadUint(r io.Reader, n int) (uint64, error) {
	b, err := ReadBytes(r, n)
	if err != nil {
		return 0, err
	}
	return BEUint(b), nil
}

// ReadUintLE reads an n-byte (1..8) little-endian unsigned integer.
func ReadUintLE(r io.Reader, n int) (uint64, error) {
	b, err := ReadBytes(r, n)
	if err != nil {
		return 0, err
	}
	return LEUint(b), nil
}

// BEUint interprets b (up to 8 bytes) as a big-endian unsigned integer.
func BEUint(b []byte) uint64 {
	var n uint64
	for _, x := range b {
		n = n<<8 | uint64(x)
	}
	return n
}

// LEUint interprets b (up to 8 bytes) as a little-endian unsigned integer.
func LEUint(b []byte) uint64 {
	var n uint64
	for i := len(b) - 1; i >= 0; i-- {
		n = n<<8 | uint64(b[i])
	}
	return n
}

// SyncSafeUint interprets b as an ID3v2.4 sync-safe integer: the low 7 bits
// of each byte, big-endian. Generalizes the teacher's get7BitChunkedInt.
func SyncSafeUint(b []byte) uint64 {
	var n uint64
	for _, x := range b {
		n = n<<7 | uint64(x&0x7F)
	}
	return n
}

// PutSyncSafeUint32 encodes v (must fit in 28 bits) as a 4-byte sync-safe
// integer.
func PutSyncSafeUint32(v uint32) [4]byte {
	var b [4]byte
	for i := 3; i >= 0; i-- {
		b[i] = byte(v & 0x7F)
		v >>= 7
	}
	return b
}

// PutBEUint writes v into an n-byte big-endian buffer.
func PutBEUint(v uint64, n int) []byte {
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// PutLEUint writes v into an n-byte little-endian buffer.
func PutLEUint(v uint64, n int) []byte {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// ReadFixed88 reads an 8.8 fixed-point value (common in MP4 version/rate
// fields) as a float64.
func ReadFixed88(r io.Reader) (float64, error) {
	b, err := ReadBytes(r, 2)
	if err != nil {
		return 0, err
	}
	return float64(int16(binary.BigEndian.Uint16(b))) / 256.0, nil
}

// ReadFixed1616 reads a 16.16 fixed-point value (MP4 tkhd/mvhd rate/width)
// as a float64.
func ReadFixed1616(r io.Reader) (float64, error) {
	b, err := ReadBytes(r, 4)
	if err != nil {
		return 0, err
	}
	return float64(int32(binary.BigEndian.Uint32(b))) / 65536.0, nil
}

// ReadFloat32BE reads an IEEE 754 single-precision float, big-endian.
func ReadFloat32BE(r io.Reader) (float32, error) {
	b, err := ReadBytes(r, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

// ReadFloat64BE reads an IEEE 754 double-precision float, big-endian.
func ReadFloat64BE(r io.Reader) (float64, error) {
	b, err := ReadBytes(r, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// ReadTerminatedString reads up to max bytes, stopping at (and consuming)
// the first byte in terminators, or at max bytes if no terminator is
// found. The returned string excludes the terminator.
func ReadTerminatedString(r io.Reader, max int, terminators map[byte]bool) (string, int, error) {
	buf := make([]byte, 0, 32)
	read := 0
	one := make([]byte, 1)
	for read < max {
		if _, err := io.ReadFull(r, one); err != nil {
			return "", read, err
		}
		read++
		if terminators[one[0]] {
			return string(buf), read, nil
		}
		buf = append(buf, one[0])
	}
	return string(buf), read, nil
}

// ReadFixedString reads an n-byte string and trims trailing spaces and
// NULs (the ID3v1 field convention, spec.md §4.6.1).
func ReadFixedString(r io.Reader, n int) (string, error) {
	b, err := ReadBytes(r, n)
	if err != nil {
		return "", err
	}
	return TrimFixed(b), nil
}

// TrimFixed trims trailing spaces and NULs from a fixed-width field.
func TrimFixed(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == 0x00 || b[end-1] == ' ') {
		end--
	}
	return string(b[:end])
}

// PutFixedString returns an n-byte buffer containing s truncated/padded
// with NUL bytes.
func PutFixedString(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

// FOURCCAsString interprets a 4-byte big-endian integer as a Latin-1 FOURCC
// string, per spec.md §4.1 ("returns exactly four characters for MP4
// FOURCCs"). The caller converts to UTF-8 if needed for display.
func FOURCCAsString(v uint32) string {
	return string([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// FOURCCFromString packs a 4-character Latin-1 string into a big-endian
// uint32.
func FOURCCFromString(s string) (uint32, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("bytesio: FOURCC must be exactly 4 bytes, got %q", s)
	}
	return uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3]), nil
}

// CopyOptions configures Copy.
type CopyOptions struct {
	Abort    *progress.Token
	Progress *progress.Token // may be the same token as Abort
	// Status is the text reported via Progress.Update while copying.
	Status string
}

// Copy copies exactly n bytes from src to dst using a fixed-size staging
// buffer, checking the abort token between buffers and reporting progress
// as a fraction of n. Matches spec.md §4.1's copy routine contract.
func Copy(dst io.Writer, src io.Reader, n int64, opts CopyOptions) error {
	if n < 0 {
		return fmt.Errorf("bytesio: negative copy length %d", n)
	}
	buf := make([]byte, StagingBufferSize)
	var done int64
	for done < n {
		if opts.Abort != nil {
			if err := opts.Abort.StopIfAborted(); err != nil {
				return err
			}
		}
		chunk := int64(len(buf))
		if remaining := n - done; remaining < chunk {
			chunk = remaining
		}
		read, err := io.ReadFull(src, buf[:chunk])
		if err != nil {
			return fmt.Errorf("bytesio: read error at offset %d: %w", done, err)
		}
		if _, err := dst.Write(buf[:read]); err != nil {
			return fmt.Errorf("bytesio: write error at offset %d: %w", done, err)
		}
		done += int64(read)
		if opts.Progress != nil {
			pct := 100.0
			if n > 0 {
				pct = float64(done) / float64(n) * 100.0
			}
			opts.Progress.Update(opts.Status, pct)
		}
	}
	return nil
}
