package tagcodec

import (
	"bytes"
	"encoding/binary"

	"github.com/dhowden/mediatag/bytesio"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/tagvalue"
)

// ID3v2 known-field -> frame-id mapping, grounded on the teacher's
// frameNames table (dhowden-tag/id3v2metadata.go), inverted from
// display-name lookup to the field-mapping role tagmodel.FieldMap expects.
var id3v2FieldMap = tagmodel.NewFieldMap(map[tagvalue.Field]tagmodel.NativeID{
	tagvalue.Title:              "TIT2",
	tagvalue.Artist:             "TPE1",
	tagvalue.AlbumArtist:        "TPE2",
	tagvalue.Album:              "TALB",
	tagvalue.Genre:              "TCON",
	tagvalue.Comment:            "COMM",
	tagvalue.RecordDate:         "TYER",
	tagvalue.Bpm:                "TBPM",
	tagvalue.Lyricist:           "TEXT",
	tagvalue.TrackPosition:      "TRCK",
	tagvalue.DiskPosition:       "TPOS",
	tagvalue.Encoder:            "TSSE",
	tagvalue.Lyrics:             "USLT",
	tagvalue.SynchronizedLyrics: "SYLT",
	tagvalue.Grouping:           "TIT1",
	tagvalue.RecordLabel:        "TPUB",
	tagvalue.Cover:              "APIC",
	tagvalue.Composer:           "TCOM",
})

const (
	id3v2MultiComm tagmodel.NativeID = "COMM"
	id3v2MultiApic tagmodel.NativeID = "APIC"
	id3v2MultiTxxx tagmodel.NativeID = "TXXX"
	id3v2MultiUfid tagmodel.NativeID = "UFID"
)

// NewID3v2Tag constructs an empty ID3v2 tagmodel.Tag targeting the given
// major version (2, 3, or 4), which governs CanUseEncoding/
// ProposedTextEncoding, per spec.md §4.6.2.
func NewID3v2Tag(version byte) *tagmodel.BasicTag {
	return tagmodel.NewBasicTag(id3v2FieldMap,
		[]tagmodel.NativeID{id3v2MultiComm, id3v2MultiApic, id3v2MultiTxxx, id3v2MultiUfid},
		tagmodel.Target{},
		func(s string) tagvalue.Encoding { return proposeID3v2Encoding(version, s) },
		func(enc tagvalue.Encoding) bool { return canUseID3v2Encoding(version, enc) },
	)
}

func proposeID3v2Encoding(version byte, s string) tagvalue.Encoding {
	if tagvalue.CanEncode(tagvalue.Latin1, s) {
		return tagvalue.Latin1
	}
	if version >= 4 {
		return tagvalue.UTF8
	}
	return tagvalue.UTF16LE
}

// canUseID3v2Encoding enforces spec.md §4.6.2: "When writing v2.3,
// encoding 3 (UTF-8) is rejected"; v2.2/2.3 also lack UTF-16BE (encoding
// byte 2), which is v2.4-only.
func canUseID3v2Encoding(version byte, enc tagvalue.Encoding) bool {
	switch enc {
	case tagvalue.Latin1, tagvalue.UTF16LE:
		return true
	case tagvalue.UTF16BE, tagvalue.UTF8:
		return version >= 4
	default:
		return false
	}
}

// id3v2EncodingByte / id3v2EncodingFromByte translate between the 1-byte
// frame encoding marker and tagvalue.Encoding.
func id3v2EncodingByte(enc tagvalue.Encoding) byte {
	switch enc {
	case tagvalue.Latin1:
		return 0
	case tagvalue.UTF16LE:
		return 1
	case tagvalue.UTF16BE:
		return 2
	case tagvalue.UTF8:
		return 3
	default:
		return 0
	}
}

func id3v2EncodingFromByte(b byte) tagvalue.Encoding {
	switch b {
	case 0:
		return tagvalue.Latin1
	case 1:
		return tagvalue.UTF16LE // BOM-prefixed; caller re-detects LE/BE
	case 2:
		return tagvalue.UTF16BE
	case 3:
		return tagvalue.UTF8
	default:
		return tagvalue.Latin1
	}
}

// RemoveUnsynchronisation reverses the ID3v2 unsynchronisation scheme
// (every 0xFF followed by 0x00 has the 0x00 stripped), grounded on the
// teacher's unsynchroniser filter reader (dhowden-tag/id3v2.go).
func RemoveUnsynchronisation(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		out = append(out, b[i])
		if b[i] == 0xFF && i+1 < len(b) && b[i+1] == 0x00 {
			i++
		}
	}
	return out
}

// ApplyUnsynchronisation applies the scheme: insert a 0x00 after every
// 0xFF that is followed by a byte ≥ 0xE0 or by 0x00, or is the last byte,
// preventing an accidental MPEG sync word from appearing in tag data.
// WriteID3v2Tag does not call it.
func ApplyUnsynchronisation(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		out = append(out, b[i])
		if b[i] == 0xFF && (i+1 >= len(b) || b[i+1] >= 0xE0 || b[i+1] == 0x00) {
			out = append(out, 0x00)
		}
	}
	return out
}

// ReadID3v2Tag parses a complete ID3v2 tag (header already consumed by the
// caller; body is the post-unsynchronisation frame data, extended header
// already skipped if present) into a tagmodel.Tag, grounded on the
// teacher's readID3v2Frames (dhowden-tag/id3v2.go) and per-frame readers
// (id3v2frames.go).
func ReadID3v2Tag(version byte, body []byte, sink *diag.Sink) (*tagmodel.BasicTag, error) {
	tag := NewID3v2Tag(version)
	kind := element.ID3v2Kind{Version: version}
	r := bytes.NewReader(body)
	pos := int64(0)
	total := int64(len(body))

	for pos < total {
		if total-pos < kind.MinElementSize() {
			break
		}
		el := element.New(kind, r, pos, total-pos)
		if err := el.Parse(); err != nil {
			sink.Logf(diag.Warning, "tagcodec.id3v2", "stopping frame scan: %v", err)
			break
		}
		if el.ID() == 0 {
			break // padding reached
		}
		frameIDStr := element.FrameIDString(el.ID(), versionForID(version))
		data, err := el.Data()
		if err != nil {
			sink.Logf(diag.Warning, "tagcodec.id3v2", "frame %s unreadable: %v", frameIDStr, err)
			pos = el.StartOffset() + el.TotalSize()
			continue
		}
		if err := decodeFrame(tag, frameIDStr, data, version); err != nil {
			sink.Logf(diag.Warning, "tagcodec.id3v2", "frame %s: %v", frameIDStr, err)
		}
		pos = el.StartOffset() + el.TotalSize()
		if _, err := r.Seek(pos, 0); err != nil {
			break
		}
	}
	return tag, nil
}

// versionForID passes the major version through: the frame-id width is 3
// bytes for v2.2, 4 for v2.3/2.4, and FrameIDString needs that width to
// render back to text.
func versionForID(version byte) byte { return version }

func decodeFrame(tag *tagmodel.BasicTag, id string, data []byte, version byte) error {
	switch {
	case id == "COMM" || id == "USLT":
		return decodeCommentLikeFrame(tag, tagmodel.NativeID(id), data)
	case id == "APIC" || id == "PIC":
		return decodePictureFrame(tag, data, id == "PIC")
	case id == "TXXX" || id == "TXX":
		return decodeTXXXFrame(tag, data)
	case id == "UFID" || id == "UFI":
		return decodeUFIDFrame(tag, data)
	case len(id) > 0 && id[0] == 'T':
		return decodeTextFrame(tag, tagmodel.NativeID(id), data)
	default:
		// Unknown/binary frame: keep it round-trippable as opaque binary.
		tag.SetNative(tagmodel.NativeID(id), tagvalue.NewBinary(append([]byte(nil), data...)))
		return nil
	}
}

func decodeTextFrame(tag *tagmodel.BasicTag, id tagmodel.NativeID, data []byte) error {
	if len(data) < 1 {
		return mediaerr.New(mediaerr.TruncatedData, "tagcodec.id3v2", "empty text frame")
	}
	enc := id3v2EncodingFromByte(data[0])
	text, err := decodeID3v2String(enc, data[1:])
	if err != nil {
		return err
	}
	tag.SetNative(id, tagvalue.NewText(text, enc))
	return nil
}

func decodeTXXXFrame(tag *tagmodel.BasicTag, data []byte) error {
	if len(data) < 1 {
		return mediaerr.New(mediaerr.TruncatedData, "tagcodec.id3v2", "empty TXXX frame")
	}
	enc := id3v2EncodingFromByte(data[0])
	desc, rest, err := splitID3v2String(enc, data[1:])
	if err != nil {
		return err
	}
	value, err := decodeID3v2String(enc, rest)
	if err != nil {
		return err
	}
	v := tagvalue.NewText(value, enc)
	v.Description = desc
	v.DescriptionEncoding = enc
	tag.SetNative(id3v2MultiTxxx, v)
	return nil
}

// decodeUFIDFrame decodes a unique-file-identifier frame: a null-terminated
// Latin-1 owner identifier (typically a URL) followed by up to 64 bytes of
// opaque binary identifier data. Stored as Binary with the owner carried in
// Description, the shape mbz.Extract expects for a MusicBrainz UFID frame.
func decodeUFIDFrame(tag *tagmodel.BasicTag, data []byte) error {
	idx := bytes.IndexByte(data, 0)
	if idx < 0 {
		return mediaerr.New(mediaerr.TruncatedData, "tagcodec.id3v2", "UFID frame missing owner terminator")
	}
	v := tagvalue.NewBinary(append([]byte(nil), data[idx+1:]...))
	v.Description = string(data[:idx])
	tag.SetNative(id3v2MultiUfid, v)
	return nil
}

func decodeCommentLikeFrame(tag *tagmodel.BasicTag, id tagmodel.NativeID, data []byte) error {
	if len(data) < 4 {
		return mediaerr.New(mediaerr.TruncatedData, "tagcodec.id3v2", "comment frame too short")
	}
	enc := id3v2EncodingFromByte(data[0])
	lang := string(data[1:4])
	desc, rest, err := splitID3v2String(enc, data[4:])
	if err != nil {
		return err
	}
	value, err := decodeID3v2String(enc, rest)
	if err != nil {
		return err
	}
	v := tagvalue.NewText(value, enc)
	v.Description = desc
	v.DescriptionEncoding = enc
	v.MIME = lang // repurposed as language code carrier for COMM/USLT
	tag.SetNative(id, v)
	return nil
}

func decodePictureFrame(tag *tagmodel.BasicTag, data []byte, v22 bool) error {
	if len(data) < 2 {
		return mediaerr.New(mediaerr.TruncatedData, "tagcodec.id3v2", "picture frame too short")
	}
	enc := id3v2EncodingFromByte(data[0])
	rest := data[1:]
	var mime string
	if v22 {
		if len(rest) < 3 {
			return mediaerr.New(mediaerr.TruncatedData, "tagcodec.id3v2", "PIC frame too short")
		}
		mime = string(rest[0:3])
		rest = rest[3:]
	} else {
		m, r2, err := splitID3v2String(tagvalue.Latin1, rest)
		if err != nil {
			return err
		}
		mime, rest = m, r2
	}
	if len(rest) < 1 {
		return mediaerr.New(mediaerr.TruncatedData, "tagcodec.id3v2", "picture frame missing type byte")
	}
	role := tagvalue.PictureRole(rest[0])
	rest = rest[1:]
	desc, rest, err := splitID3v2String(enc, rest)
	if err != nil {
		return err
	}
	pic := tagvalue.Picture{Data: append([]byte(nil), rest...), MIME: mime, Description: desc, Role: role}
	tag.SetNative(id3v2MultiApic, tagvalue.NewPicture(pic))
	return nil
}

// splitID3v2String splits off a (possibly multi-byte, NUL-terminated)
// description/key string and returns the remainder, grounded on the
// teacher's dataSplit/readTextWithDescrFrame (dhowden-tag/id3v2frames.go).
func splitID3v2String(enc tagvalue.Encoding, data []byte) (string, []byte, error) {
	termLen := 1
	if enc == tagvalue.UTF16LE || enc == tagvalue.UTF16BE {
		termLen = 2
	}
	idx := findTerminator(data, termLen)
	if idx < 0 {
		s, err := decodeID3v2String(enc, data)
		return s, nil, err
	}
	s, err := decodeID3v2String(enc, data[:idx])
	if err != nil {
		return "", nil, err
	}
	return s, data[idx+termLen:], nil
}

func findTerminator(data []byte, width int) int {
	for i := 0; i+width <= len(data); i += width {
		allZero := true
		for j := 0; j < width; j++ {
			if data[i+j] != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return i
		}
	}
	return -1
}

func decodeID3v2String(enc tagvalue.Encoding, data []byte) (string, error) {
	switch enc {
	case tagvalue.UTF16LE:
		if len(data) >= 2 && (data[0] == 0xFF || data[0] == 0xFE) {
			return tagvalue.DecodeTextWithBOM(data)
		}
		return tagvalue.DecodeText(tagvalue.UTF16LE, data)
	default:
		return tagvalue.DecodeText(enc, data)
	}
}

// WriteID3v2Tag serializes tag's fields into a complete ID3v2 tag
// (header + frames, no padding; callers append padding separately per
// the rewrite package's layout policy). The header carries no flags.
// Before serialization, EnsureTextValuesProperlyEncoded re-encodes text
// values whose encoding the tag's own version rejects (Latin-1 where the
// text fits, else UTF-8 for v2.4 and UTF-16 with BOM for v2.2/2.3); the
// version argument only selects the frame header layout.
func WriteID3v2Tag(tag *tagmodel.BasicTag, version byte) []byte {
	tag.EnsureTextValuesProperlyEncoded()
	var frames bytes.Buffer
	for _, id := range tag.NativeIDs() {
		for _, v := range tag.GetNative(id) {
			encodeFrame(&frames, id, v, version)
		}
	}

	var out bytes.Buffer
	out.WriteString("ID3")
	out.WriteByte(version)
	out.WriteByte(0) // revision
	out.WriteByte(0) // flags
	sizeBuf := bytesio.PutSyncSafeUint32(uint32(frames.Len()))
	out.Write(sizeBuf[:])
	out.Write(frames.Bytes())
	return out.Bytes()
}

func encodeFrame(w *bytes.Buffer, id tagmodel.NativeID, v tagvalue.Value, version byte) {
	var body bytes.Buffer
	switch {
	case id == "COMM" || id == "USLT":
		body.WriteByte(id3v2EncodingByte(v.TextEncoding))
		lang := v.MIME
		if len(lang) != 3 {
			lang = "eng"
		}
		body.WriteString(lang)
		writeID3v2String(&body, v.TextEncoding, v.Description)
		writeID3v2Text(&body, v.TextEncoding, v.Text)
	case id == "APIC":
		body.WriteByte(id3v2EncodingByte(tagvalue.Latin1))
		writeID3v2String(&body, tagvalue.Latin1, v.Picture.MIME)
		body.WriteByte(byte(v.Picture.Role))
		writeID3v2String(&body, tagvalue.Latin1, v.Picture.Description)
		body.Write(v.Picture.Data)
	case id == "TXXX":
		body.WriteByte(id3v2EncodingByte(v.TextEncoding))
		writeID3v2String(&body, v.TextEncoding, v.Description)
		writeID3v2Text(&body, v.TextEncoding, v.Text)
	case id == "UFID":
		body.WriteString(v.Description)
		body.WriteByte(0)
		body.Write(v.Binary)
	case v.Kind == tagvalue.Binary:
		body.Write(v.Binary)
	default:
		body.WriteByte(id3v2EncodingByte(v.TextEncoding))
		text, _ := v.AsText()
		writeID3v2Text(&body, v.TextEncoding, text)
	}

	frameIDStr := string(id)
	w.WriteString(padFrameID(frameIDStr, version))
	var sizeBuf [4]byte
	if version >= 4 {
		sizeBuf = bytesio.PutSyncSafeUint32(uint32(body.Len()))
	} else {
		binary.BigEndian.PutUint32(sizeBuf[:], uint32(body.Len()))
	}
	if version == 2 {
		w.Write(sizeBuf[1:4])
	} else {
		w.Write(sizeBuf[:])
		w.WriteByte(0)
		w.WriteByte(0) // flags
	}
	w.Write(body.Bytes())
}

func padFrameID(id string, version byte) string {
	if version == 2 && len(id) == 4 {
		return id[:3]
	}
	return id
}

func writeID3v2String(w *bytes.Buffer, enc tagvalue.Encoding, s string) {
	writeID3v2Text(w, enc, s)
	switch enc {
	case tagvalue.UTF16LE, tagvalue.UTF16BE:
		w.Write([]byte{0, 0})
	default:
		w.WriteByte(0)
	}
}

func writeID3v2Text(w *bytes.Buffer, enc tagvalue.Encoding, s string) {
	if enc == tagvalue.UTF16LE {
		w.Write(tagvalue.EncodeTextWithBOM(s))
		return
	}
	b, err := tagvalue.EncodeText(enc, s)
	if err != nil {
		b, _ = tagvalue.EncodeText(tagvalue.Latin1, "?")
	}
	w.Write(b)
}
