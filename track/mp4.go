package track

import (
	"encoding/binary"
	"time"

	"github.com/dhowden/mediatag/bytesio"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/mediaerr"
)

func fourcc(s string) uint64 {
	v, _ := bytesio.FOURCCFromString(s)
	return uint64(v)
}

var mp4VideoFourccs = map[uint64]bool{
	fourcc("avc1"): true, fourcc("hvc1"): true, fourcc("hev1"): true,
	fourcc("mp4v"): true, fourcc("vp09"): true, fourcc("av01"): true,
}

var mp4AudioFourccs = map[uint64]bool{
	fourcc("mp4a"): true, fourcc("alac"): true, fourcc("ac-3"): true,
	fourcc("ec-3"): true, fourcc("samr"): true, fourcc("Opus"): true,
}

// ParseMP4Track extracts a Track from a moov/trak element, reading tkhd,
// mdia/mdhd, mdia/hdlr and mdia/minf/stbl/stsd, grounded on spec.md §4.5.
// The teacher never parses track headers (it reads tag frames only), so
// this routine has no direct teacher analogue; it follows the teacher's
// general style of reading fixed-layout structs via bytesio helpers
// (dhowden-tag/util.go's readUint/readBytes).
func ParseMP4Track(trak *element.Element) (*Track, error) {
	t := &Track{}

	if tkhd, err := trak.SubelementByPath(fourcc("tkhd")); err == nil && tkhd != nil {
		if err := parseTkhd(tkhd, t); err != nil {
			return t, err
		}
	}

	mdia, err := trak.SubelementByPath(fourcc("mdia"))
	if err != nil || mdia == nil {
		return t, err
	}
	if mdhd, err := mdia.SubelementByPath(fourcc("mdhd")); err == nil && mdhd != nil {
		if err := parseMdhd(mdhd, t); err != nil {
			return t, err
		}
	}
	if hdlr, err := mdia.SubelementByPath(fourcc("hdlr")); err == nil && hdlr != nil {
		if err := parseHdlr(hdlr, t); err != nil {
			return t, err
		}
	}
	stsd, err := mdia.SubelementByPath(fourcc("minf"), fourcc("stbl"), fourcc("stsd"))
	if err == nil && stsd != nil {
		if err := parseStsd(stsd, t); err != nil {
			return t, err
		}
	}

	t.HeaderValid = true
	return t, nil
}

func parseTkhd(e *element.Element, t *Track) error {
	data, err := e.Data()
	if err != nil {
		return err
	}
	if len(data) < 4 {
		return mediaerr.New(mediaerr.TruncatedData, "track.tkhd", "too short")
	}
	version := data[0]
	off := 4
	var duration uint64
	if version == 1 {
		if len(data) < off+32 {
			return mediaerr.New(mediaerr.TruncatedData, "track.tkhd", "v1 too short")
		}
		off += 16 // creation + modification times (8 each)
		t.ID = uint64(binary.BigEndian.Uint32(data[off:]))
		off += 4 + 4 // track_id + reserved
		duration = binary.BigEndian.Uint64(data[off:])
		off += 8
	} else {
		if len(data) < off+24 {
			return mediaerr.New(mediaerr.TruncatedData, "track.tkhd", "v0 too short")
		}
		off += 8 // creation + modification times (4 each)
		t.ID = uint64(binary.BigEndian.Uint32(data[off:]))
		off += 4 + 4
		duration = uint64(binary.BigEndian.Uint32(data[off:]))
		off += 4
	}
	t.Number = int(t.ID)
	// duration here is in the movie header's timescale, not the track's
	// own mdhd timescale; callers needing wall-clock duration should
	// prefer mdhd's duration/timescale pair once parsed.
	if t.Timescale == 0 {
		t.Timescale = 1
	}
	t.Duration = time.Duration(duration) * time.Second / time.Duration(t.Timescale)
	return nil
}

func parseMdhd(e *element.Element, t *Track) error {
	data, err := e.Data()
	if err != nil {
		return err
	}
	if len(data) < 4 {
		return mediaerr.New(mediaerr.TruncatedData, "track.mdhd", "too short")
	}
	version := data[0]
	off := 4
	var timescale uint32
	var duration uint64
	if version == 1 {
		off += 16
		timescale = binary.BigEndian.Uint32(data[off:])
		off += 4
		duration = binary.BigEndian.Uint64(data[off:])
		off += 8
	} else {
		off += 8
		timescale = binary.BigEndian.Uint32(data[off:])
		off += 4
		duration = uint64(binary.BigEndian.Uint32(data[off:]))
		off += 4
	}
	t.Timescale = timescale
	if timescale > 0 {
		t.Duration = time.Duration(float64(duration) / float64(timescale) * float64(time.Second))
	}
	if off+2 <= len(data) {
		lang := binary.BigEndian.Uint16(data[off:])
		t.Language = decodeMP4Language(lang)
	}
	return nil
}

// decodeMP4Language unpacks mdhd's 5-bit-per-character, offset-by-0x60
// packed ASCII tri-code (ISO/IEC 14496-12 §8.7.2.2).
func decodeMP4Language(v uint16) string {
	c1 := byte((v>>10)&0x1F) + 0x60
	c2 := byte((v>>5)&0x1F) + 0x60
	c3 := byte(v&0x1F) + 0x60
	return string([]byte{c1, c2, c3})
}

func parseHdlr(e *element.Element, t *Track) error {
	data, err := e.Data()
	if err != nil {
		return err
	}
	if len(data) < 12 {
		return mediaerr.New(mediaerr.TruncatedData, "track.hdlr", "too short")
	}
	handler := binary.BigEndian.Uint32(data[8:12])
	switch handler {
	case uint32(fourcc("vide")):
		t.Kind = KindVideo
	case uint32(fourcc("soun")):
		t.Kind = KindAudio
	case uint32(fourcc("text")), uint32(fourcc("sbtl")), uint32(fourcc("subt")):
		t.Kind = KindText
	case uint32(fourcc("hint")):
		t.Kind = KindHint
	case uint32(fourcc("meta")):
		t.Kind = KindMeta
	default:
		t.Kind = KindUnknown
	}
	return nil
}

func parseStsd(e *element.Element, t *Track) error {
	data, err := e.Data()
	if err != nil {
		return err
	}
	if len(data) < 8 {
		return mediaerr.New(mediaerr.TruncatedData, "track.stsd", "too short")
	}
	entryCount := binary.BigEndian.Uint32(data[4:8])
	if entryCount == 0 || len(data) < 16 {
		return nil
	}
	entry := data[8:]
	entrySize := binary.BigEndian.Uint32(entry[0:4])
	format := binary.BigEndian.Uint32(entry[4:8])
	t.Format.Extension = bytesio.FOURCCAsString(format)

	switch {
	case mp4VideoFourccs[uint64(format)]:
		t.Kind = KindVideo
		t.Format.General = "Video"
		parseVideoSampleEntry(entry, t)
	case mp4AudioFourccs[uint64(format)]:
		t.Kind = KindAudio
		t.Format.General = "Audio"
		parseAudioSampleEntry(entry, t)
	default:
		t.Format.General = "Data"
	}
	switch format {
	case uint32(fourcc("avc1")):
		t.Format.Sub = "AVC"
	case uint32(fourcc("hvc1")), uint32(fourcc("hev1")):
		t.Format.Sub = "HEVC"
	case uint32(fourcc("mp4a")):
		t.Format.Sub = "AAC"
	case uint32(fourcc("alac")):
		t.Format.Sub = "ALAC"
	}
	_ = entrySize
	return nil
}

// parseVideoSampleEntry reads width/height from a VisualSampleEntry
// (ISO/IEC 14496-12 §8.5.2); entry starts at the sample entry's own size
// field, laid out as below.
func parseVideoSampleEntry(entry []byte, t *Track) {
	// entry layout from offset 0: size(4) fourcc(4) reserved(6) dref_index(2)
	// pre_defined(2) reserved(2) pre_defined(12) width(2) height(2) ...
	const fixedPrefix = 4 + 4 + 6 + 2 + 2 + 2 + 12
	if len(entry) < fixedPrefix+4 {
		return
	}
	t.PixelWidth = int(binary.BigEndian.Uint16(entry[fixedPrefix:]))
	t.PixelHeight = int(binary.BigEndian.Uint16(entry[fixedPrefix+2:]))
	t.DisplayWidth = t.PixelWidth
	t.DisplayHeight = t.PixelHeight
}

// parseAudioSampleEntry reads channel count, sample size, and sample rate
// from an AudioSampleEntry (ISO/IEC 14496-12 §8.5.2, version 0 layout).
func parseAudioSampleEntry(entry []byte, t *Track) {
	const fixedPrefix = 4 + 4 + 6 + 2
	if len(entry) < fixedPrefix+12+4 {
		return
	}
	body := entry[fixedPrefix:]
	// version(2) revision(2) vendor(4) channels(2) sample_size(2)
	// compression_id(2) packet_size(2) sample_rate(4, 16.16 fixed)
	t.ChannelCount = int(binary.BigEndian.Uint16(body[8:10]))
	t.BitsPerSample = int(binary.BigEndian.Uint16(body[10:12]))
	rateFixed := binary.BigEndian.Uint32(body[16:20])
	t.SamplingRate = rateFixed >> 16
}
