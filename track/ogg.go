package track

import "bytes"

// DetectOggCodec inspects an Ogg logical stream's first packet for a magic
// prefix, the mechanism spec.md §4.5 calls for distinguishing FLAC, Opus,
// Vorbis, Theora, and Speex inside Ogg.
func DetectOggCodec(firstPacket []byte) Format {
	switch {
	case bytes.HasPrefix(firstPacket, []byte("\x7fFLAC")):
		return Format{General: "Audio", Sub: "FLAC", Extension: "flac-in-ogg"}
	case bytes.HasPrefix(firstPacket, []byte("OpusHead")):
		return Format{General: "Audio", Sub: "Opus", Extension: "opus"}
	case bytes.HasPrefix(firstPacket, []byte("\x01vorbis")):
		return Format{General: "Audio", Sub: "Vorbis", Extension: "vorbis"}
	case bytes.HasPrefix(firstPacket, []byte("\x80theora")):
		return Format{General: "Video", Sub: "Theora", Extension: "theora"}
	case bytes.HasPrefix(firstPacket, []byte("Speex   ")):
		return Format{General: "Audio", Sub: "Speex", Extension: "speex"}
	default:
		return Format{General: "Unknown"}
	}
}

// ParseOggTrack builds a Track for one logical stream from its first
// packet and serial number. Only the codec and media kind are set: sample
// rate and channel count are not decoded, even where the magic header
// carries them (Vorbis/Opus/FLAC-in-Ogg).
func ParseOggTrack(serial uint32, firstPacket []byte) *Track {
	t := &Track{ID: uint64(serial), Number: int(serial)}
	t.Format = DetectOggCodec(firstPacket)
	switch t.Format.Sub {
	case "FLAC", "Opus", "Vorbis", "Speex":
		t.Kind = KindAudio
	case "Theora":
		t.Kind = KindVideo
	default:
		t.Kind = KindUnknown
	}
	t.HeaderValid = true
	return t
}
