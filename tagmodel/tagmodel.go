// Package tagmodel implements the format-neutral Tag abstraction of
// spec.md §3 ("Tag", "Tag target (Matroska)"), replacing the teacher's
// interface-per-format Metadata (dhowden-tag/tag.go) with one contract
// every codec in tagcodec satisfies, so callers never type-switch on the
// source container.
package tagmodel

import "github.com/dhowden/mediatag/tagvalue"

// TargetLevel is the Matroska tag-target hierarchy level (spec.md §3).
// Non-Matroska codecs report TargetLevel(0) ("unscoped").
type TargetLevel int

const (
	LevelUnscoped TargetLevel = 0
	LevelShot     TargetLevel = 10
	LevelSubtrack TargetLevel = 20
	LevelTrack    TargetLevel = 30
	LevelPart     TargetLevel = 40
	LevelAlbum    TargetLevel = 50
	LevelEdition  TargetLevel = 60
	LevelCollection TargetLevel = 70
)

// Target scopes a Tag to specific tracks/editions/chapters/attachments,
// per spec.md's "Tag target (Matroska)". Formats without scoping always
// report the zero Target (LevelUnscoped, empty id lists).
type Target struct {
	Level             TargetLevel
	TrackIDs          []uint64
	EditionIDs        []uint64
	ChapterIDs        []uint64
	AttachmentIDs     []uint64
}

// NativeID identifies a field in a codec's own id space: an ID3v2 frame
// id ("TIT2"), an MP4 atom FOURCC (as a string for display), a Matroska
// SimpleTag name ("TITLE"), or a Vorbis comment key ("TITLE"). Codecs
// convert between this and tagvalue.Field via their own lookup tables.
type NativeID string

// Tag is the abstract contract spec.md §3 describes: "a collection of
// fields keyed by a format-specific identifier, plus a target... for
// formats that support scoping." Every tagcodec type implements this.
type Tag interface {
	// Target reports this tag's scope (Matroska only; others return the
	// zero Target).
	Target() Target

	// GetField returns the value stored for a known field, and whether one
	// was present.
	GetField(f tagvalue.Field) (tagvalue.Value, bool)
	// SetField stores v under the native id the codec maps f to, appending
	// or replacing exactly as SetNative does for that id.
	SetField(f tagvalue.Field, v tagvalue.Value)
	// RemoveField deletes every value stored for f.
	RemoveField(f tagvalue.Field)

	// GetNative returns the value(s) stored under a codec-native id.
	GetNative(id NativeID) []tagvalue.Value
	// SetNative stores v under a codec-native id. For ids the codec
	// declares multi-valued (e.g. ID3v2's COMM/APIC) v is appended to the
	// existing values; any other id keeps only v's first value, replacing
	// what was stored.
	SetNative(id NativeID, v ...tagvalue.Value)
	// RemoveNative deletes every value stored under id.
	RemoveNative(id NativeID)

	// FieldCount returns the number of distinct fields/native ids set.
	FieldCount() int
	// SupportsField reports whether this codec maps f to a native id at
	// all (independent of whether a value is currently set).
	SupportsField(f tagvalue.Field) bool

	// ProposedTextEncoding returns the encoding this codec would choose
	// for s if asked to store it now (the shortest safe encoding the
	// format's version allows).
	ProposedTextEncoding(s string) tagvalue.Encoding
	// CanUseEncoding reports whether enc is a legal text encoding for this
	// codec/version at all (e.g. ID3v2.3 rejects UTF-8).
	CanUseEncoding(enc tagvalue.Encoding) bool
	// EnsureTextValuesProperlyEncoded re-encodes any stored text value
	// whose encoding CanUseEncoding rejects, choosing ProposedTextEncoding
	// in its place. Called before writing.
	EnsureTextValuesProperlyEncoded()
}
