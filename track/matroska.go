package track

import (
	"math"

	"github.com/dhowden/mediatag/element"
)

// EBML element ids used by TrackEntry parsing, grounded on the Matroska
// element-id table referenced in spec.md §4.5 and on
// luispater-matroska-go/ebml.go's constant style.
const (
	ebmlTrackNumber     uint64 = 0xD7
	ebmlTrackType       uint64 = 0x83
	ebmlFlagEnabled     uint64 = 0xB9
	ebmlFlagDefault     uint64 = 0x88
	ebmlFlagForced      uint64 = 0x55AA
	ebmlFlagLacing      uint64 = 0x9C
	ebmlLanguage        uint64 = 0x22B59C
	ebmlCodecID         uint64 = 0x86
	ebmlTrackName       uint64 = 0x536E
	ebmlAudio           uint64 = 0xE1
	ebmlVideo           uint64 = 0xE0
	ebmlSamplingFreq    uint64 = 0xB5
	ebmlChannels        uint64 = 0x9F
	ebmlBitDepth        uint64 = 0x6264
	ebmlPixelWidth      uint64 = 0xB0
	ebmlPixelHeight     uint64 = 0xBA
	ebmlDisplayWidth    uint64 = 0x54B0
	ebmlDisplayHeight   uint64 = 0x54BA
)

// matroskaTrackTypes maps the Matroska TrackType enum to our MediaKind.
var matroskaTrackTypes = map[int64]MediaKind{
	1: KindVideo,
	2: KindAudio,
	3: KindText,  // complex
	0x11: KindText,
	0x12: KindButtons,
	0x20: KindControl,
}

// matroskaCodecs maps CodecID strings to a (general, sub) format pair, per
// spec.md §4.5's examples.
var matroskaCodecs = map[string][2]string{
	"V_MPEG4/ISO/AVC":  {"Video", "AVC"},
	"V_MPEGH/ISO/HEVC": {"Video", "HEVC"},
	"V_VP8":            {"Video", "VP8"},
	"V_VP9":            {"Video", "VP9"},
	"V_AV1":            {"Video", "AV1"},
	"A_AAC":            {"Audio", "AAC"},
	"A_VORBIS":         {"Audio", "Vorbis"},
	"A_OPUS":           {"Audio", "Opus"},
	"A_AC3":            {"Audio", "AC-3"},
	"A_EAC3":           {"Audio", "E-AC-3"},
	"A_FLAC":           {"Audio", "FLAC"},
	"A_PCM/INT/LIT":    {"Audio", "PCM"},
	"S_TEXT/UTF8":      {"Text", "SRT"},
	"S_TEXT/ASS":       {"Text", "ASS"},
	"S_HDMV/PGS":       {"Text", "PGS"},
}

// ParseMatroskaTrack extracts a Track from a TrackEntry element.
func ParseMatroskaTrack(entry *element.Element) (*Track, error) {
	t := &Track{Flags: Flags{Enabled: true}}

	if n, err := ebmlChildUint(entry, ebmlTrackNumber); err == nil {
		t.Number = int(n)
		t.ID = uint64(n)
	}
	if n, err := ebmlChildUint(entry, ebmlTrackType); err == nil {
		if k, ok := matroskaTrackTypes[n]; ok {
			t.Kind = k
		}
	}
	if n, err := ebmlChildUint(entry, ebmlFlagEnabled); err == nil {
		t.Flags.Enabled = n != 0
	}
	if n, err := ebmlChildUint(entry, ebmlFlagDefault); err == nil {
		t.Flags.Default = n != 0
	}
	if n, err := ebmlChildUint(entry, ebmlFlagForced); err == nil {
		t.Flags.Forced = n != 0
	}
	if n, err := ebmlChildUint(entry, ebmlFlagLacing); err == nil {
		t.Flags.Lacing = n != 0
	}
	if s, err := ebmlChildString(entry, ebmlLanguage); err == nil {
		t.Language = s
	}
	if s, err := ebmlChildString(entry, ebmlTrackName); err == nil {
		t.Name = s
	}
	if codecID, err := ebmlChildString(entry, ebmlCodecID); err == nil {
		if pair, ok := matroskaCodecs[codecID]; ok {
			t.Format.General, t.Format.Sub = pair[0], pair[1]
		}
		t.Format.Extension = codecID
	}

	if audio, err := entry.SubelementByPath(ebmlAudio); err == nil && audio != nil {
		if f, err := ebmlChildFloat(audio, ebmlSamplingFreq); err == nil {
			t.SamplingRate = uint32(f)
		}
		if n, err := ebmlChildUint(audio, ebmlChannels); err == nil {
			t.ChannelCount = int(n)
		}
		if n, err := ebmlChildUint(audio, ebmlBitDepth); err == nil {
			t.BitsPerSample = int(n)
		}
	}
	if video, err := entry.SubelementByPath(ebmlVideo); err == nil && video != nil {
		if n, err := ebmlChildUint(video, ebmlPixelWidth); err == nil {
			t.PixelWidth = int(n)
		}
		if n, err := ebmlChildUint(video, ebmlPixelHeight); err == nil {
			t.PixelHeight = int(n)
		}
		t.DisplayWidth, t.DisplayHeight = t.PixelWidth, t.PixelHeight
		if n, err := ebmlChildUint(video, ebmlDisplayWidth); err == nil {
			t.DisplayWidth = int(n)
		}
		if n, err := ebmlChildUint(video, ebmlDisplayHeight); err == nil {
			t.DisplayHeight = int(n)
		}
	}

	t.HeaderValid = true
	return t, nil
}

func ebmlChildUint(parent *element.Element, id uint64) (int64, error) {
	child, err := parent.SubelementByPath(id)
	if err != nil || child == nil {
		return 0, errNotFound(err)
	}
	data, err := child.Data()
	if err != nil {
		return 0, err
	}
	var v int64
	for _, b := range data {
		v = v<<8 | int64(b)
	}
	return v, nil
}

func ebmlChildString(parent *element.Element, id uint64) (string, error) {
	child, err := parent.SubelementByPath(id)
	if err != nil || child == nil {
		return "", errNotFound(err)
	}
	data, err := child.Data()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func ebmlChildFloat(parent *element.Element, id uint64) (float64, error) {
	child, err := parent.SubelementByPath(id)
	if err != nil || child == nil {
		return 0, errNotFound(err)
	}
	data, err := child.Data()
	if err != nil {
		return 0, err
	}
	switch len(data) {
	case 4:
		var bits uint32
		for _, b := range data {
			bits = bits<<8 | uint32(b)
		}
		return float64(math.Float32frombits(bits)), nil
	case 8:
		var bits uint64
		for _, b := range data {
			bits = bits<<8 | uint64(b)
		}
		return math.Float64frombits(bits), nil
	default:
		return 0, nil
	}
}

func errNotFound(err error) error {
	if err != nil {
		return err
	}
	return errChildNotFound
}

var errChildNotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "track: child element not found" }
