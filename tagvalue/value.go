// Package tagvalue implements the tag value type (spec.md §3 "Tag value")
// and the closed known-field enum (spec.md §3 "Known field"). The teacher
// (dhowden-tag) represents tag payloads as untyped interface{} values
// (string, int, *Picture, *Comm — see mp4.go, id3v2metadata.go); this
// package replaces that with the closed tagged union the spec requires so
// codecs can convert between formats without type-switching on teacher-era
// ad hoc shapes.
package tagvalue

import (
	"fmt"
	"time"

	"github.com/dhowden/mediatag/mediaerr"
)

// Kind discriminates the tagged union.
type Kind int

const (
	Empty Kind = iota
	Text
	Integer
	PositionInSetKind
	StandardGenreIndexKind
	TimespanKind
	DateTimeKind
	Binary
	PictureKind
)

// PositionInSet is a (position, total) pair, e.g. track 4 of 12.
type PositionInSet struct {
	Position int
	Total    int // 0 if unknown
}

func (p PositionInSet) String() string {
	if p.Total == 0 {
		return fmt.Sprintf("%d", p.Position)
	}
	return fmt.Sprintf("%d/%d", p.Position, p.Total)
}

// Timespan is a duration value (e.g. track Length).
type Timespan time.Duration

// PictureRole describes the semantic role of an attached picture (subset of
// the ID3v2 APIC picture-type table, shared across codecs).
type PictureRole int

const (
	RoleOther PictureRole = iota
	RoleFileIcon
	RoleOtherFileIcon
	RoleCoverFront
	RoleCoverBack
	RoleLeaflet
	RoleMedia
	RoleLeadArtist
	RoleArtist
	RoleConductor
	RoleBand
	RoleComposer
	RoleLyricist
	RoleRecordingLocation
)

// Picture is a binary image value with metadata.
type Picture struct {
	Data        []byte
	MIME        string
	Description string
	Role        PictureRole
}

// Value is the tagged union described in spec.md §3. The zero Value is
// Empty. Exactly one of the typed fields is meaningful, selected by Kind;
// Description/DescriptionEncoding and MIME are optional riders carried
// alongside any kind (used by APIC/PIC/Comment-style fields).
type Value struct {
	Kind Kind

	Text         string
	TextEncoding Encoding

	Integer int64

	Position PositionInSet

	StandardGenreIndex int

	Timespan Timespan
	DateTime time.Time

	Binary []byte

	Picture Picture

	Description         string
	DescriptionEncoding Encoding
	MIME                string
}

// NewText constructs a Text value.
func NewText(s string, enc Encoding) Value {
	return Value{Kind: Text, Text: s, TextEncoding: enc}
}

// NewInteger constructs an Integer value.
func NewInteger(n int64) Value {
	return Value{Kind: Integer, Integer: n}
}

// NewPositionInSet constructs a PositionInSet value.
func NewPositionInSet(pos, total int) Value {
	return Value{Kind: PositionInSetKind, Position: PositionInSet{Position: pos, Total: total}}
}

// NewBinary constructs a Binary value.
func NewBinary(b []byte) Value {
	return Value{Kind: Binary, Binary: b}
}

// NewPicture constructs a Picture value.
func NewPicture(p Picture) Value {
	return Value{Kind: PictureKind, Picture: p}
}

// IsEmpty reports whether the value carries no data.
func (v Value) IsEmpty() bool {
	return v.Kind == Empty
}

// AsText converts the value to a display string, failing with a Conversion
// error when the kind has no sensible textual form (e.g. Binary/Picture).
func (v Value) AsText() (string, error) {
	switch v.Kind {
	case Empty:
		return "", nil
	case Text:
		return v.Text, nil
	case Integer:
		return fmt.Sprintf("%d", v.Integer), nil
	case PositionInSetKind:
		return v.Position.String(), nil
	case StandardGenreIndexKind:
		return fmt.Sprintf("%d", v.StandardGenreIndex), nil
	case TimespanKind:
		return time.Duration(v.Timespan).String(), nil
	case DateTimeKind:
		return v.DateTime.Format(time.RFC3339), nil
	default:
		return "", mediaerr.New(mediaerr.Conversion, "tagvalue.AsText",
			fmt.Sprintf("value of kind %d has no text representation", v.Kind))
	}
}

// AsInteger converts the value to an integer, failing with a Conversion
// error for kinds with no numeric form.
func (v Value) AsInteger() (int64, error) {
	switch v.Kind {
	case Integer:
		return v.Integer, nil
	case PositionInSetKind:
		return int64(v.Position.Position), nil
	case StandardGenreIndexKind:
		return int64(v.StandardGenreIndex), nil
	default:
		return 0, mediaerr.New(mediaerr.Conversion, "tagvalue.AsInteger",
			fmt.Sprintf("value of kind %d has no integer representation", v.Kind))
	}
}
