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

// MP4 known-field -> atom-id mapping, grounded on the teacher's metadataMP4
// (dhowden-tag/mp4.go) Title/Album/Artist/... methods, which hard-code
// these same FOURCCs.
var mp4FieldMap = tagmodel.NewFieldMap(map[tagvalue.Field]tagmodel.NativeID{
	tagvalue.Title:         "\xa9nam",
	tagvalue.Artist:        "\xa9ART",
	tagvalue.AlbumArtist:   "aART",
	tagvalue.Album:         "\xa9alb",
	tagvalue.Composer:      "\xa9wrt",
	tagvalue.RecordDate:    "\xa9day",
	tagvalue.Genre:         "\xa9gen",
	tagvalue.Comment:       "\xa9cmt",
	tagvalue.Grouping:      "\xa9grp",
	tagvalue.Lyrics:        "\xa9lyr",
	tagvalue.Encoder:       "\xa9too",
	tagvalue.TrackPosition: "trkn",
	tagvalue.DiskPosition:  "disk",
	tagvalue.Cover:         "covr",
	tagvalue.Bpm:           "tmpo",
})

const mp4MultiCover tagmodel.NativeID = "covr"

// MP4 raw data types (spec.md §4.6.3).
const (
	mp4DataTypeUTF8    = 1
	mp4DataTypeJPEG    = 13
	mp4DataTypePNG     = 14
	mp4DataTypeBEInt   = 21
	mp4DataTypeBEUInt  = 22
)

// NewMP4Tag constructs an empty MP4 iTunes-style tagmodel.Tag.
func NewMP4Tag() *tagmodel.BasicTag {
	return tagmodel.NewBasicTag(mp4FieldMap, []tagmodel.NativeID{mp4MultiCover}, tagmodel.Target{},
		func(string) tagvalue.Encoding { return tagvalue.UTF8 },
		func(enc tagvalue.Encoding) bool { return enc == tagvalue.UTF8 },
	)
}

// ReadMP4Tag walks an moov/udta/meta/ilst element, decoding each child atom
// into a tag field, grounded on the teacher's readAtoms/ReadAtoms
// (dhowden-tag/mp4.go), which this generalizes to also cover writing.
func ReadMP4Tag(ilst *element.Element, sink *diag.Sink) (*tagmodel.BasicTag, error) {
	tag := NewMP4Tag()
	child, err := ilst.FirstChild()
	if err != nil {
		return tag, err
	}
	containerEnd := ilst.DataOffset() + ilst.DataSize()
	for child != nil {
		if err := child.Parse(); err != nil {
			sink.Logf(diag.Warning, "tagcodec.mp4", "skipping malformed ilst child: %v", err)
			break
		}
		id := bytesio.FOURCCAsString(uint32(child.ID()))
		if id == "----" {
			if err := decodeMP4CustomAtom(tag, child); err != nil {
				sink.Logf(diag.Warning, "tagcodec.mp4", "---- atom: %v", err)
			}
		} else if err := decodeMP4Atom(tag, tagmodel.NativeID(id), child); err != nil {
			sink.Logf(diag.Warning, "tagcodec.mp4", "atom %q: %v", id, err)
		}
		next, err := child.NextSibling(containerEnd)
		if err != nil {
			break
		}
		child = next
	}
	return tag, nil
}

func decodeMP4Atom(tag *tagmodel.BasicTag, id tagmodel.NativeID, atomEl *element.Element) error {
	// Item atoms are not parents to the element engine, so their children
	// are walked from the item's own data.
	body, err := atomEl.Data()
	if err != nil {
		return err
	}
	end := int64(len(body))
	dataEl, err := element.New(atomEl.Kind(), bytes.NewReader(body), 0, end).SiblingByID(fourccID("data"), end)
	if err != nil || dataEl == nil {
		return err
	}
	raw, err := dataEl.Data()
	if err != nil {
		return err
	}
	if len(raw) < 8 {
		return mediaerr.New(mediaerr.TruncatedData, "tagcodec.mp4", "data atom too short")
	}
	dataType := binary.BigEndian.Uint32(raw[0:4]) & 0x00FFFFFF
	payload := raw[8:]

	switch id {
	case "trkn", "disk":
		if len(payload) < 6 {
			return mediaerr.New(mediaerr.TruncatedData, "tagcodec.mp4", "trkn/disk payload too short")
		}
		pos := int(binary.BigEndian.Uint16(payload[2:4]))
		total := int(binary.BigEndian.Uint16(payload[4:6]))
		tag.SetNative(id, tagvalue.NewPositionInSet(pos, total))
		return nil
	case "\xa9gen":
		tag.SetNative(id, tagvalue.NewText(string(payload), tagvalue.UTF8))
		return nil
	case "covr":
		mime := "image/jpeg"
		if dataType == mp4DataTypePNG {
			mime = "image/png"
		}
		tag.SetNative(mp4MultiCover, tagvalue.NewPicture(tagvalue.Picture{Data: append([]byte(nil), payload...), MIME: mime}))
		return nil
	case "tmpo":
		if len(payload) >= 2 {
			tag.SetNative(id, tagvalue.NewInteger(int64(binary.BigEndian.Uint16(payload))))
		}
		return nil
	default:
		switch dataType {
		case mp4DataTypeUTF8:
			tag.SetNative(id, tagvalue.NewText(string(payload), tagvalue.UTF8))
		case mp4DataTypeBEInt, mp4DataTypeBEUInt:
			var v int64
			for _, b := range payload {
				v = v<<8 | int64(b)
			}
			tag.SetNative(id, tagvalue.NewInteger(v))
		default:
			tag.SetNative(id, tagvalue.NewBinary(append([]byte(nil), payload...)))
		}
		return nil
	}
}

// decodeMP4CustomAtom handles "----" atoms (mean/name/data triples), per
// spec.md §4.6.3 and the teacher's readCustomAtom (dhowden-tag/mp4.go).
func decodeMP4CustomAtom(tag *tagmodel.BasicTag, customEl *element.Element) error {
	body, err := customEl.Data()
	if err != nil {
		return err
	}
	end := int64(len(body))
	first := element.New(customEl.Kind(), bytes.NewReader(body), 0, end)
	meanEl, _ := first.SiblingByID(fourccID("mean"), end)
	nameEl, _ := first.SiblingByID(fourccID("name"), end)
	dataEl, err := first.SiblingByID(fourccID("data"), end)
	if err != nil || dataEl == nil {
		return err
	}
	var meanStr, nameStr string
	if meanEl != nil {
		if d, err := meanEl.Data(); err == nil && len(d) > 4 {
			meanStr = string(d[4:])
		}
	}
	if nameEl != nil {
		if d, err := nameEl.Data(); err == nil && len(d) > 4 {
			nameStr = string(d[4:])
		}
	}
	raw, err := dataEl.Data()
	if err != nil || len(raw) < 8 {
		return err
	}
	id := tagmodel.NativeID(element.CustomAtomName(meanStr, nameStr))
	tag.SetNative(id, tagvalue.NewText(string(raw[8:]), tagvalue.UTF8))
	return nil
}

func fourccID(s string) uint64 {
	v, _ := bytesio.FOURCCFromString(s)
	return uint64(v)
}

// WriteMP4Tag serializes tag into a complete ilst atom, its own 8-byte
// header included, per spec.md §4.6.3.
func WriteMP4Tag(tag *tagmodel.BasicTag) []byte {
	var ilst bytes.Buffer
	for _, id := range tag.NativeIDs() {
		for _, v := range tag.GetNative(id) {
			writeMP4Atom(&ilst, id, v)
		}
	}
	return wrapAtom("ilst", ilst.Bytes())
}

func writeMP4Atom(w *bytes.Buffer, id tagmodel.NativeID, v tagvalue.Value) {
	var payload []byte
	dataType := uint32(mp4DataTypeUTF8)

	switch {
	case id == "trkn" || id == "disk":
		payload = make([]byte, 8)
		binary.BigEndian.PutUint16(payload[2:4], uint16(v.Position.Position))
		binary.BigEndian.PutUint16(payload[4:6], uint16(v.Position.Total))
		dataType = 0
	case id == "covr":
		payload = v.Picture.Data
		dataType = mp4DataTypeJPEG
		if v.Picture.MIME == "image/png" {
			dataType = mp4DataTypePNG
		}
	case id == "tmpo":
		payload = make([]byte, 2)
		binary.BigEndian.PutUint16(payload, uint16(v.Integer))
		dataType = 0
	case v.Kind == tagvalue.Integer:
		payload = []byte{byte(v.Integer >> 24), byte(v.Integer >> 16), byte(v.Integer >> 8), byte(v.Integer)}
		dataType = mp4DataTypeBEInt
	default:
		text, _ := v.AsText()
		payload = []byte(text)
	}

	var dataAtom bytes.Buffer
	var typeBuf [4]byte
	binary.BigEndian.PutUint32(typeBuf[:], dataType)
	dataAtom.Write(typeBuf[:])
	dataAtom.Write([]byte{0, 0, 0, 0}) // locale (country+language)
	dataAtom.Write(payload)

	var field bytes.Buffer
	field.Write(wrapAtom("data", dataAtom.Bytes()))
	w.Write(wrapAtomID(string(id), field.Bytes()))
}

func wrapAtom(fourcc string, data []byte) []byte {
	return wrapAtomID(fourcc, data)
}

func wrapAtomID(fourcc string, data []byte) []byte {
	size := 8 + len(data)
	out := make([]byte, 8, size)
	binary.BigEndian.PutUint32(out[0:4], uint32(size))
	copy(out[4:8], fourcc)
	return append(out, data...)
}
