package container

import (
	"bytes"
	"testing"

	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagvalue"
)

func flacStreamInfo() []byte {
	b := make([]byte, 34)
	// sample_rate=44100, channels=2, bits=16, total_samples=0 packed into
	// the 64-bit field starting at byte 10.
	packed := uint64(44100)<<44 | uint64(1)<<41 | uint64(15)<<36
	for i := 0; i < 8; i++ {
		b[10+i] = byte(packed >> (56 - 8*i))
	}
	return b
}

func flacBlockBytes(last bool, blockType byte, data []byte) []byte {
	hdr := blockType
	if last {
		hdr |= 0x80
	}
	size := len(data)
	return append([]byte{hdr, byte(size >> 16), byte(size >> 8), byte(size)}, data...)
}

func vorbisCommentBytes(vendor string, comments []string) []byte {
	var buf bytes.Buffer
	writeU32 := func(n int) {
		buf.WriteByte(byte(n))
		buf.WriteByte(byte(n >> 8))
		buf.WriteByte(byte(n >> 16))
		buf.WriteByte(byte(n >> 24))
	}
	writeU32(len(vendor))
	buf.WriteString(vendor)
	writeU32(len(comments))
	for _, c := range comments {
		writeU32(len(c))
		buf.WriteString(c)
	}
	return buf.Bytes()
}

func buildFLAC(t *testing.T, comments []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write(flacBlockBytes(false, 0, flacStreamInfo()))
	buf.Write(flacBlockBytes(true, 4, vorbisCommentBytes("mediatag", comments)))
	buf.WriteString("fake-frame-data")
	return buf.Bytes()
}

func TestParseFLACContainerTracksAndTags(t *testing.T) {
	data := buildFLAC(t, []string{"TITLE=Song One", "ARTIST=Test Artist"})

	var sink diag.Sink
	c, err := New(bytes.NewReader(data), &sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Format != FormatFLAC {
		t.Fatalf("Format = %v, want FormatFLAC", c.Format)
	}
	if err := c.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything: %v", err)
	}

	if len(c.Tracks) != 1 {
		t.Fatalf("len(Tracks) = %d, want 1", len(c.Tracks))
	}
	if c.Tracks[0].SamplingRate != 44100 {
		t.Errorf("SamplingRate = %d, want 44100", c.Tracks[0].SamplingRate)
	}
	if c.Tracks[0].ChannelCount != 2 {
		t.Errorf("ChannelCount = %d, want 2", c.Tracks[0].ChannelCount)
	}

	if len(c.Tags) != 1 {
		t.Fatalf("len(Tags) = %d, want 1", len(c.Tags))
	}
	vt, ok := c.Tags[0].(*tagcodec.VorbisTag)
	if !ok {
		t.Fatalf("Tags[0] is %T, want *tagcodec.VorbisTag", c.Tags[0])
	}
	title, _ := vt.GetField(tagvalue.Title)
	if title.Text != "Song One" {
		t.Errorf("Title = %q, want %q", title.Text, "Song One")
	}
}
