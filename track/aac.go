package track

import "github.com/dhowden/mediatag/mediaerr"

var aacSampleRateTable = [13]uint32{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350,
}

// bitReader is a minimal MSB-first bit reader for the AudioSpecificConfig
// bitstream (ISO/IEC 14496-3 §1.6.2.1), which the esds descriptor carries
// for AAC tracks (spec.md §4.5).
type bitReader struct {
	data []byte
	pos  int // bit position
}

func (r *bitReader) bits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		byteIdx := r.pos / 8
		if byteIdx >= len(r.data) {
			return 0, mediaerr.New(mediaerr.TruncatedData, "track.aac", "AudioSpecificConfig truncated")
		}
		bitIdx := 7 - uint(r.pos%8)
		bit := (r.data[byteIdx] >> bitIdx) & 1
		v = v<<1 | uint32(bit)
		r.pos++
	}
	return v, nil
}

// AudioSpecificConfig is the decoded result of an AAC esds
// DecoderSpecificInfo payload.
type AudioSpecificConfig struct {
	ObjectType      int
	SampleRate      uint32
	ChannelCount    int
	SBR             bool
	PS              bool
	ExtensionObject int
}

// ParseAudioSpecificConfig decodes the bit-packed AudioSpecificConfig,
// handling the object-type escape (5-bit value 31 -> +32 from a further
// 6 bits) and the sample-frequency-index escape (value 0xF -> 24-bit
// explicit rate), plus the SBR/PS extension header that may follow for
// HE-AAC v1/v2 streams, per spec.md §4.5.
func ParseAudioSpecificConfig(data []byte) (AudioSpecificConfig, error) {
	r := &bitReader{data: data}
	cfg := AudioSpecificConfig{}

	ot, err := readObjectType(r)
	if err != nil {
		return cfg, err
	}
	cfg.ObjectType = ot

	rate, err := readSampleRate(r)
	if err != nil {
		return cfg, err
	}
	cfg.SampleRate = rate

	chans, err := r.bits(4)
	if err != nil {
		return cfg, err
	}
	cfg.ChannelCount = int(chans)

	if ot == 5 || ot == 29 { // SBR (and PS, object type 29) extension present
		cfg.SBR = true
		if ot == 29 {
			cfg.PS = true
		}
		extRate, err := readSampleRate(r)
		if err != nil {
			return cfg, err
		}
		extOT, err := readObjectType(r)
		if err != nil {
			return cfg, err
		}
		cfg.ExtensionObject = extOT
		_ = extRate
	}
	return cfg, nil
}

func readObjectType(r *bitReader) (int, error) {
	v, err := r.bits(5)
	if err != nil {
		return 0, err
	}
	if v == 31 {
		ext, err := r.bits(6)
		if err != nil {
			return 0, err
		}
		return int(32 + ext), nil
	}
	return int(v), nil
}

func readSampleRate(r *bitReader) (uint32, error) {
	idx, err := r.bits(4)
	if err != nil {
		return 0, err
	}
	if idx == 0xF {
		explicit, err := r.bits(24)
		if err != nil {
			return 0, err
		}
		return explicit, nil
	}
	if int(idx) < len(aacSampleRateTable) {
		return aacSampleRateTable[idx], nil
	}
	return 0, mediaerr.New(mediaerr.InvalidData, "track.aac", "sample rate index out of range")
}
