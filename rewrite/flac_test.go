package rewrite

import (
	"bytes"
	"testing"

	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagvalue"
)

func flacStreamInfoBytes() []byte {
	b := make([]byte, 34)
	packed := uint64(44100)<<44 | uint64(1)<<41 | uint64(15)<<36
	for i := 0; i < 8; i++ {
		b[10+i] = byte(packed >> (56 - 8*i))
	}
	return b
}

func flacMetaBlockBytes(last bool, blockType byte, data []byte) []byte {
	hdr := blockType
	if last {
		hdr |= 0x80
	}
	size := len(data)
	return append([]byte{hdr, byte(size >> 16), byte(size >> 8), byte(size)}, data...)
}

func vorbisCommentBlockBytes(vendor string, comments []string) []byte {
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

func buildTestFLAC(audio string) []byte {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write(flacMetaBlockBytes(false, 0, flacStreamInfoBytes()))
	buf.Write(flacMetaBlockBytes(true, 4, vorbisCommentBlockBytes("mediatag", []string{"TITLE=Old Title"})))
	buf.WriteString(audio)
	return buf.Bytes()
}

func TestMakeFLACRewritesTagAndKeepsAudio(t *testing.T) {
	src := buildTestFLAC("0123456789audioframebytes")

	var sink diag.Sink
	c, err := container.New(bytes.NewReader(src), &sink)
	if err != nil {
		t.Fatalf("container.New: %v", err)
	}
	if err := c.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything: %v", err)
	}

	vt, ok := c.Tags[0].(*tagcodec.VorbisTag)
	if !ok {
		t.Fatalf("Tags[0] is %T, want *tagcodec.VorbisTag", c.Tags[0])
	}
	vt.SetField(tagvalue.Title, tagvalue.NewText("New Title", tagvalue.UTF8))

	var out bytes.Buffer
	if err := Make(&out, c, DefaultConfig(), nil, &sink, nil); err != nil {
		t.Fatalf("Make: %v", err)
	}

	if !bytes.Contains(out.Bytes(), []byte("0123456789audioframebytes")) {
		t.Errorf("rewritten output does not contain the original audio frame bytes")
	}

	var sink2 diag.Sink
	c2, err := container.New(bytes.NewReader(out.Bytes()), &sink2)
	if err != nil {
		t.Fatalf("re-parsing rewritten file: %v", err)
	}
	if err := c2.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything on rewritten file: %v", err)
	}
	vt2, ok := c2.Tags[0].(*tagcodec.VorbisTag)
	if !ok {
		t.Fatalf("rewritten Tags[0] is %T, want *tagcodec.VorbisTag", c2.Tags[0])
	}
	title, _ := vt2.GetField(tagvalue.Title)
	if title.Text != "New Title" {
		t.Errorf("rewritten Title = %q, want %q", title.Text, "New Title")
	}
}
