package track

import (
	"encoding/binary"
	"time"

	"github.com/dhowden/mediatag/mediaerr"
)

// ParseFLACStreamInfo builds the single implicit audio track of a
// FLAC-native file from its StreamInfo metadata block payload (spec.md
// §4.6's FLAC block types; StreamInfo layout per the FLAC format
// specification). FLAC-native files have exactly one track.
func ParseFLACStreamInfo(data []byte) (*Track, error) {
	if len(data) < 34 {
		return nil, mediaerr.New(mediaerr.TruncatedData, "track.flac", "StreamInfo block too short")
	}
	// bytes 0-9: min block size(16) max block size(16) min frame size(24)
	// max frame size(24), then a 64-bit field packing:
	// sample_rate(20) channels-1(3) bits_per_sample-1(5) total_samples(36)
	packed := binary.BigEndian.Uint64(data[10:18])
	sampleRate := uint32(packed >> 44)
	channels := int((packed>>41)&0x7) + 1
	bits := int((packed>>36)&0x1F) + 1
	totalSamples := packed & 0xFFFFFFFFF

	t := &Track{
		Kind:          KindAudio,
		Format:        Format{General: "Audio", Sub: "FLAC", Extension: "flac"},
		SamplingRate:  sampleRate,
		ChannelCount:  channels,
		BitsPerSample: bits,
		HeaderValid:   true,
	}
	if sampleRate > 0 {
		t.Duration = time.Duration(float64(totalSamples) / float64(sampleRate) * float64(time.Second))
	}
	return t, nil
}

// ParseWAVEFormat builds the single track of a WAVE file from its "fmt "
// chunk body (Microsoft RIFF WAVE specification).
func ParseWAVEFormat(data []byte) (*Track, error) {
	if len(data) < 16 {
		return nil, mediaerr.New(mediaerr.TruncatedData, "track.wave", "fmt chunk too short")
	}
	tag := binary.LittleEndian.Uint16(data[0:2])
	channels := binary.LittleEndian.Uint16(data[2:4])
	sampleRate := binary.LittleEndian.Uint32(data[4:8])
	bitsPerSample := uint16(0)
	if len(data) >= 16 {
		bitsPerSample = binary.LittleEndian.Uint16(data[14:16])
	}
	sub := "PCM"
	if tag != 1 {
		sub = "compressed"
	}
	return &Track{
		Kind:          KindAudio,
		Format:        Format{General: "Audio", Sub: sub, Extension: "wave"},
		SamplingRate:  sampleRate,
		ChannelCount:  int(channels),
		BitsPerSample: int(bitsPerSample),
		HeaderValid:   true,
	}, nil
}

var adtsSampleRates = [16]uint32{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350, 0, 0, 0,
}

// ParseADTSHeader builds a track from the first ADTS frame header
// (ISO/IEC 13818-7 Annex), as spec.md §4.7.1 recognizes bare AAC streams.
func ParseADTSHeader(data []byte) (*Track, error) {
	if len(data) < 7 {
		return nil, mediaerr.New(mediaerr.TruncatedData, "track.adts", "header too short")
	}
	if data[0] != 0xFF || data[1]&0xF0 != 0xF0 {
		return nil, mediaerr.New(mediaerr.InvalidData, "track.adts", "missing sync word")
	}
	rateIdx := (data[2] >> 2) & 0x0F
	channelConfig := ((data[2] & 0x01) << 2) | (data[3] >> 6)
	return &Track{
		Kind:         KindAudio,
		Format:       Format{General: "Audio", Sub: "AAC", Extension: "adts"},
		SamplingRate: adtsSampleRates[rateIdx],
		ChannelCount: int(channelConfig),
		HeaderValid:  true,
	}, nil
}
