// Package track implements the shared Track record of spec.md §3 and the
// per-format header parsers of spec.md §4.5, generalizing the teacher's
// ad hoc, getter-only Metadata interface (dhowden-tag's tag.go) into a
// structured, format-agnostic record every container parser fills in.
package track

import "time"

// MediaKind is the closed set of track media kinds.
type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindAudio
	KindVideo
	KindText
	KindButtons
	KindControl
	KindHint
	KindMeta
)

func (k MediaKind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	case KindText:
		return "text"
	case KindButtons:
		return "buttons"
	case KindControl:
		return "control"
	case KindHint:
		return "hint"
	case KindMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// Format describes a track's codec, as a general family plus an optional
// sub-format and container-specific extension string (e.g. general=Video,
// sub=AVC, extension="avc1").
type Format struct {
	General   string
	Sub       string
	Extension string
}

// Flags are the boolean track flags of spec.md §3.
type Flags struct {
	Enabled   bool
	Default   bool
	Forced    bool
	Lacing    bool
	Encrypted bool
}

// Track is the shared per-track record every container parser populates
// (spec.md §3 "Track"). HeaderValid records whether this track's own
// header parsed without a fatal error; a track with HeaderValid = false
// is still listed (so track counts match the source) but its other fields
// may be zero.
type Track struct {
	ID             uint64
	Number         int
	Kind           MediaKind
	Format         Format
	Language       string // ISO 639-2 where known, else container-native
	Name           string
	Duration       time.Duration
	Timescale      uint32
	SamplingRate   uint32
	ChannelCount   int
	ChannelConfig  string
	BitsPerSample  int
	PixelWidth     int
	PixelHeight    int
	DisplayWidth   int
	DisplayHeight  int
	FPS            float64
	Interlaced     bool
	ColorSpace     string
	CropTop        int
	CropBottom     int
	CropLeft       int
	CropRight      int
	Flags          Flags
	HeaderValid    bool
}
