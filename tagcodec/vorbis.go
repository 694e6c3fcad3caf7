package tagcodec

import (
	"encoding/base64"
	"encoding/binary"
	"strings"

	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/tagvalue"
)

var vorbisFieldMap = tagmodel.NewFieldMap(map[tagvalue.Field]tagmodel.NativeID{
	tagvalue.Title:         "TITLE",
	tagvalue.Artist:        "ARTIST",
	tagvalue.Album:         "ALBUM",
	tagvalue.Genre:         "GENRE",
	tagvalue.Comment:       "COMMENT",
	tagvalue.RecordDate:    "DATE",
	tagvalue.TrackPosition: "TRACKNUMBER",
	tagvalue.DiskPosition:  "DISCNUMBER",
	tagvalue.Composer:      "COMPOSER",
	tagvalue.Encoder:       "ENCODER",
	tagvalue.AlbumArtist:   "ALBUMARTIST",
	tagvalue.Lyrics:        "LYRICS",
	tagvalue.Bpm:           "BPM",
	tagvalue.Performers:    "PERFORMER",
	tagvalue.RecordLabel:   "LABEL",
	tagvalue.Cover:         vorbisMultiCover,
})

const vorbisMultiCover tagmodel.NativeID = "METADATA_BLOCK_PICTURE"

// VorbisTag is a Vorbis comment block (spec.md §4.6.5), usable standalone
// or embedded (Ogg logical-stream second packet, FLAC VorbisComment
// block). Vendor is preserved verbatim on round-trip.
type VorbisTag struct {
	*tagmodel.BasicTag
	Vendor string
}

// Pictures returns every cover image attached under METADATA_BLOCK_PICTURE,
// for callers (the FLAC/Ogg rewriters) that need the full set rather than
// just the first one GetField(tagvalue.Cover) exposes.
func (t *VorbisTag) Pictures() []tagvalue.Picture {
	vals := t.GetNative(vorbisMultiCover)
	pics := make([]tagvalue.Picture, 0, len(vals))
	for _, v := range vals {
		pics = append(pics, v.Picture)
	}
	return pics
}

// NewVorbisTag constructs an empty Vorbis comment tagmodel.Tag.
func NewVorbisTag(vendor string) *VorbisTag {
	bt := tagmodel.NewBasicTag(vorbisFieldMap, []tagmodel.NativeID{vorbisMultiCover, "PERFORMER"}, tagmodel.Target{},
		func(string) tagvalue.Encoding { return tagvalue.UTF8 },
		func(enc tagvalue.Encoding) bool { return enc == tagvalue.UTF8 },
	)
	return &VorbisTag{BasicTag: bt, Vendor: vendor}
}

// ReadVorbisComment decodes a raw Vorbis comment payload (vendor string,
// field count, KEY=value fields), grounded on the field layout spec.md
// §4.6.5 specifies; the teacher's ogg.go references an absent
// metadataVorbis type, so this reader is built directly from the layout
// description rather than adapted from missing teacher code.
func ReadVorbisComment(data []byte, sink *diag.Sink) (*VorbisTag, error) {
	if len(data) < 4 {
		return nil, mediaerr.New(mediaerr.TruncatedData, "tagcodec.vorbis", "too short for vendor length")
	}
	vendorLen := binary.LittleEndian.Uint32(data[0:4])
	pos := 4 + int(vendorLen)
	if pos > len(data) {
		return nil, mediaerr.New(mediaerr.TruncatedData, "tagcodec.vorbis", "vendor string truncated")
	}
	vendor := string(data[4:pos])
	tag := NewVorbisTag(vendor)

	if pos+4 > len(data) {
		return tag, mediaerr.New(mediaerr.TruncatedData, "tagcodec.vorbis", "missing field count")
	}
	count := binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4

	for i := uint32(0); i < count; i++ {
		if pos+4 > len(data) {
			sink.Logf(diag.Warning, "tagcodec.vorbis", "field %d truncated", i)
			break
		}
		fieldLen := binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4
		if pos+int(fieldLen) > len(data) {
			sink.Logf(diag.Warning, "tagcodec.vorbis", "field %d value truncated", i)
			break
		}
		kv := string(data[pos : pos+int(fieldLen)])
		pos += int(fieldLen)

		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			sink.Logf(diag.Warning, "tagcodec.vorbis", "field %q missing '='", kv)
			continue
		}
		key := strings.ToUpper(kv[:eq])
		value := kv[eq+1:]
		if key == string(vorbisMultiCover) {
			if pic, err := decodeMetadataBlockPicture(value); err == nil {
				tag.SetNative(vorbisMultiCover, tagvalue.NewPicture(pic))
				continue
			}
			sink.Logf(diag.Warning, "tagcodec.vorbis", "bad METADATA_BLOCK_PICTURE: skipped")
			continue
		}
		tag.SetNative(tagmodel.NativeID(key), tagvalue.NewText(value, tagvalue.UTF8))
	}
	return tag, nil
}

// decodeMetadataBlockPicture decodes the base64 FLAC Picture structure
// Vorbis/Opus/FLAC-in-Ogg embed under the METADATA_BLOCK_PICTURE key
// (spec.md §4.6.5).
func decodeMetadataBlockPicture(b64 string) (tagvalue.Picture, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return tagvalue.Picture{}, mediaerr.Wrap(mediaerr.InvalidData, "tagcodec.vorbis", err)
	}
	return DecodeFLACPictureBlock(raw)
}

// DecodeFLACPictureBlock decodes a raw (unencoded) FLAC Picture metadata
// block. It is the same structure decodeMetadataBlockPicture reads after
// base64-decoding a METADATA_BLOCK_PICTURE comment, so a native FLAC
// PICTURE block and a Vorbis-comment-embedded one share this decoder.
func DecodeFLACPictureBlock(raw []byte) (tagvalue.Picture, error) {
	if len(raw) < 32 {
		return tagvalue.Picture{}, mediaerr.New(mediaerr.TruncatedData, "tagcodec.vorbis", "picture block too short")
	}
	pictureType := binary.BigEndian.Uint32(raw[0:4])
	pos := 4
	mimeLen := int(binary.BigEndian.Uint32(raw[pos:]))
	pos += 4
	mime := string(raw[pos : pos+mimeLen])
	pos += mimeLen
	descLen := int(binary.BigEndian.Uint32(raw[pos:]))
	pos += 4
	desc := string(raw[pos : pos+descLen])
	pos += descLen
	pos += 16 // width, height, depth, color count (4 bytes each)
	dataLen := int(binary.BigEndian.Uint32(raw[pos:]))
	pos += 4
	if pos+dataLen > len(raw) {
		return tagvalue.Picture{}, mediaerr.New(mediaerr.TruncatedData, "tagcodec.vorbis", "picture data truncated")
	}
	data := raw[pos : pos+dataLen]
	return tagvalue.Picture{
		Data:        append([]byte(nil), data...),
		MIME:        mime,
		Description: desc,
		Role:        tagvalue.PictureRole(pictureType),
	}, nil
}

// encodeMetadataBlockPicture is the inverse of decodeMetadataBlockPicture.
func encodeMetadataBlockPicture(p tagvalue.Picture) string {
	return base64.StdEncoding.EncodeToString(EncodeFLACPictureBlock(p))
}

// EncodeFLACPictureBlock encodes p into a raw (unencoded) FLAC Picture
// metadata block, the inverse of DecodeFLACPictureBlock. A native FLAC
// PICTURE block and a base64 METADATA_BLOCK_PICTURE comment share this
// encoder, just as their decoders are shared.
func EncodeFLACPictureBlock(p tagvalue.Picture) []byte {
	var raw []byte
	put32 := func(v uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		raw = append(raw, b[:]...)
	}
	put32(uint32(p.Role))
	put32(uint32(len(p.MIME)))
	raw = append(raw, p.MIME...)
	put32(uint32(len(p.Description)))
	raw = append(raw, p.Description...)
	put32(0) // width
	put32(0) // height
	put32(0) // color depth
	put32(0) // color count (0 = non-indexed)
	put32(uint32(len(p.Data)))
	raw = append(raw, p.Data...)
	return raw
}

// WriteVorbisComment serializes tag into a raw Vorbis comment payload
// (vendor string, field count, KEY=value fields, per spec.md §4.6.5) with
// no packet header and no framing bit; the FLAC and Ogg rewriters add the
// framing their container needs.
func WriteVorbisComment(tag *VorbisTag) []byte {
	var out []byte
	put32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		out = append(out, b[:]...)
	}
	put32(uint32(len(tag.Vendor)))
	out = append(out, tag.Vendor...)

	var fields []string
	for _, id := range tag.NativeIDs() {
		for _, v := range tag.GetNative(id) {
			if id == vorbisMultiCover {
				fields = append(fields, string(vorbisMultiCover)+"="+encodeMetadataBlockPicture(v.Picture))
				continue
			}
			text, _ := v.AsText()
			fields = append(fields, string(id)+"="+text)
		}
	}
	put32(uint32(len(fields)))
	for _, f := range fields {
		put32(uint32(len(f)))
		out = append(out, f...)
	}
	return out
}
