package tagvalue

import (
	"bytes"
	"fmt"
	"unicode/utf16"
)

// Encoding is one of the text encodings spec.md §3 (Tag value) lists.
type Encoding int

const (
	Latin1 Encoding = iota
	UTF8
	UTF16LE
	UTF16BE
)

func (e Encoding) String() string {
	switch e {
	case Latin1:
		return "Latin-1"
	case UTF8:
		return "UTF-8"
	case UTF16LE:
		return "UTF-16LE"
	case UTF16BE:
		return "UTF-16BE"
	default:
		return "Unknown"
	}
}

// DecodeText decodes b (without any BOM/encoding-byte prefix) from the
// given encoding into a Go string.
func DecodeText(enc Encoding, b []byte) (string, error) {
	switch enc {
	case Latin1:
		return decodeLatin1(b), nil
	case UTF8:
		return string(b), nil
	case UTF16LE:
		return decodeUTF16(b, false), nil
	case UTF16BE:
		return decodeUTF16(b, true), nil
	default:
		return "", fmt.Errorf("tagvalue: unknown encoding %v", enc)
	}
}

// DecodeTextWithBOM decodes a UTF-16 byte stream that starts with a byte
// order mark, auto-selecting LE/BE (ID3v2 encoding byte 1, spec.md §4.6.2).
func DecodeTextWithBOM(b []byte) (string, error) {
	if len(b) < 2 {
		return "", nil
	}
	switch {
	case b[0] == 0xFE && b[1] == 0xFF:
		return decodeUTF16(b[2:], true), nil
	case b[0] == 0xFF && b[1] == 0xFE:
		return decodeUTF16(b[2:], false), nil
	default:
		return "", fmt.Errorf("tagvalue: invalid UTF-16 byte order mark %x %x", b[0], b[1])
	}
}

// EncodeText encodes s in the given encoding, without any BOM prefix.
func EncodeText(enc Encoding, s string) ([]byte, error) {
	switch enc {
	case Latin1:
		return encodeLatin1(s)
	case UTF8:
		return []byte(s), nil
	case UTF16LE:
		return encodeUTF16(s, false), nil
	case UTF16BE:
		return encodeUTF16(s, true), nil
	default:
		return nil, fmt.Errorf("tagvalue: unknown encoding %v", enc)
	}
}

// EncodeTextWithBOM encodes s as UTF-16 with a leading byte order mark,
// little-endian (the conventional ID3v2 choice when writing encoding byte 1).
func EncodeTextWithBOM(s string) []byte {
	body := encodeUTF16(s, false)
	return append([]byte{0xFF, 0xFE}, body...)
}

// CanEncode reports whether s round-trips through enc without loss.
func CanEncode(enc Encoding, s string) bool {
	switch enc {
	case Latin1:
		for _, r := range s {
			if r > 0xFF {
				return false
			}
		}
		return true
	default:
		return true // UTF-8 and UTF-16 cover all of Unicode
	}
}

func decodeLatin1(b []byte) string {
	r := make([]rune, len(b))
	for i, x := range b {
		r[i] = rune(x)
	}
	return string(r)
}

func encodeLatin1(s string) ([]byte, error) {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, fmt.Errorf("tagvalue: rune %q not representable in Latin-1", r)
		}
		b = append(b, byte(r))
	}
	return b, nil
}

func decodeUTF16(b []byte, big bool) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		if big {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		} else {
			u = append(u, uint16(b[i+1])<<8|uint16(b[i]))
		}
	}
	return string(utf16.Decode(u))
}

func encodeUTF16(s string, big bool) []byte {
	u := utf16.Encode([]rune(s))
	var buf bytes.Buffer
	for _, c := range u {
		if big {
			buf.WriteByte(byte(c >> 8))
			buf.WriteByte(byte(c))
		} else {
			buf.WriteByte(byte(c))
			buf.WriteByte(byte(c >> 8))
		}
	}
	return buf.Bytes()
}
