package track

import "testing"

func TestParseFLACStreamInfo(t *testing.T) {
	// min_block(16) max_block(16) min_frame(24) max_frame(24) then the
	// packed 64-bit word: rate=44100<<44 | (2-1)<<41 | (16-1)<<36 | samples
	data := make([]byte, 34)
	var packed uint64 = uint64(44100)<<44 | uint64(1)<<41 | uint64(15)<<36 | uint64(44100)
	for i := 0; i < 8; i++ {
		data[10+i] = byte(packed >> uint(56-8*i))
	}
	tr, err := ParseFLACStreamInfo(data)
	if err != nil {
		t.Fatal(err)
	}
	if tr.SamplingRate != 44100 || tr.ChannelCount != 2 || tr.BitsPerSample != 16 {
		t.Errorf("got rate=%d channels=%d bits=%d", tr.SamplingRate, tr.ChannelCount, tr.BitsPerSample)
	}
	if tr.Duration != 0 && tr.Duration.Seconds() != 1 {
		t.Errorf("duration = %v, want 1s", tr.Duration)
	}
}

func TestDetectOggCodec(t *testing.T) {
	f := DetectOggCodec([]byte("\x01vorbis....."))
	if f.Sub != "Vorbis" {
		t.Errorf("got %+v, want Vorbis", f)
	}
	f = DetectOggCodec([]byte("OpusHead..."))
	if f.Sub != "Opus" {
		t.Errorf("got %+v, want Opus", f)
	}
}

func TestParseADTSHeader(t *testing.T) {
	// syncword 0xFFF, rate index 4 (44100), channel config 2
	data := []byte{0xFF, 0xF1, 0x50, 0x80, 0x00, 0x1F, 0xFC}
	tr, err := ParseADTSHeader(data)
	if err != nil {
		t.Fatal(err)
	}
	if tr.SamplingRate != 44100 {
		t.Errorf("rate = %d, want 44100", tr.SamplingRate)
	}
}

func TestDecodeMP4Language(t *testing.T) {
	// "eng" packed: e=0x65-0x60=5, n=0x6E-0x60=0xE, g=0x67-0x60=7
	v := uint16(5)<<10 | uint16(0xE)<<5 | uint16(7)
	if got := decodeMP4Language(v); got != "eng" {
		t.Errorf("decodeMP4Language = %q, want eng", got)
	}
}
