package track

import (
	"time"

	"github.com/dhowden/mediatag/mediaerr"
)

// MPEG frame header decoding tables, grounded on the teacher's mp3.go
// (getMp3Infos/readHeader): version/layer/bitrate/sampling-rate tables for
// the four-byte frame header every MP3 stream begins with.
var (
	mpegVersionNames = [4]string{"2.5", "", "2", "1"}
	mpegLayerNames   = [4]string{"", "III", "II", "I"}
	mpegBitrateTable = map[string][16]int{
		"1I":     {0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
		"1II":    {0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
		"1III":   {0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
		"2I":     {0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
		"2II":    {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
		"2III":   {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
		"2.5I":   {0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
		"2.5II":  {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
		"2.5III": {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	}
	mpegSamplingTable = map[string][4]int{
		"1":   {44100, 48000, 32000, 0},
		"2":   {22050, 24000, 16000, 0},
		"2.5": {11025, 12000, 8000, 0},
	}
	mpegChannelModes = [4]string{"Stereo", "Joint Stereo", "Dual Channel", "Mono"}
)

// MPEGFrameHeader is one decoded MPEG audio frame header.
type MPEGFrameHeader struct {
	Version      string
	Layer        string
	Bitrate      int
	SampleRate   int
	ChannelMode  string
	FrameSize    int64
	SamplesPerFrame float64
}

// ParseMPEGFrameHeader decodes a four-byte MPEG audio frame header (frame
// sync plus version/layer/bitrate/sampling bits), the same bit layout the
// teacher's readHeader walks.
func ParseMPEGFrameHeader(buf []byte) (MPEGFrameHeader, error) {
	if len(buf) < 4 {
		return MPEGFrameHeader{}, mediaerr.New(mediaerr.TruncatedData, "track.mp3", "frame header too short")
	}
	if buf[0] != 0xFF || buf[1]&0xE0 != 0xE0 {
		return MPEGFrameHeader{}, mediaerr.New(mediaerr.InvalidData, "track.mp3", "missing frame sync")
	}
	v := (buf[1] >> 3) & 0x3
	l := (buf[1] >> 1) & 0x3
	b := (buf[2] >> 4) & 0xF
	s := (buf[2] >> 2) & 0x3
	c := (buf[3] >> 6) & 0x3

	if l == 0 || b == 0xF || v == 1 || s == 3 {
		return MPEGFrameHeader{}, mediaerr.New(mediaerr.InvalidData, "track.mp3", "reserved frame header field")
	}

	version := mpegVersionNames[v]
	layer := mpegLayerNames[l]
	sampleRate := mpegSamplingTable[version][s]
	bitrate := mpegBitrateTable[version+layer][b]
	if sampleRate == 0 {
		return MPEGFrameHeader{}, mediaerr.New(mediaerr.InvalidData, "track.mp3", "reserved sample rate")
	}

	samples := samplesPerFrame(version, layer)
	mult := frameLengthMultiplier(version, layer)
	frameSize := int64(mult*bitrate*1000) / int64(sampleRate)

	return MPEGFrameHeader{
		Version:         version,
		Layer:           layer,
		Bitrate:         bitrate,
		SampleRate:      sampleRate,
		ChannelMode:     mpegChannelModes[c],
		FrameSize:       frameSize,
		SamplesPerFrame: samples,
	}, nil
}

func samplesPerFrame(version, layer string) float64 {
	switch {
	case version == "1" && layer == "I":
		return 384
	case version != "1" && layer == "III":
		return 576
	default:
		return 1152
	}
}

func frameLengthMultiplier(version, layer string) int {
	m := map[string]int{
		"1I": 48, "1II": 144, "1III": 144,
		"2I": 24, "2II": 144, "2III": 72,
		"2.5I": 24, "2.5II": 72, "2.5III": 144,
	}
	return m[version+layer]
}

// NewMP3Track builds a Track from a decoded frame header and the stream's
// estimated frame count.
func NewMP3Track(h MPEGFrameHeader, frameCount int) *Track {
	t := &Track{
		Kind:          KindAudio,
		Format:        Format{General: "MPEG Audio", Sub: "Layer " + h.Layer, Extension: "mp3"},
		SamplingRate:  uint32(h.SampleRate),
		HeaderValid:   true,
	}
	if h.ChannelMode == "Mono" {
		t.ChannelCount = 1
	} else {
		t.ChannelCount = 2
	}
	t.ChannelConfig = h.ChannelMode
	if frameCount > 0 {
		totalSamples := h.SamplesPerFrame * float64(frameCount)
		t.Duration = time.Duration(totalSamples / float64(h.SampleRate) * float64(time.Second))
	}
	return t
}
