package container

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/tagvalue"
)

func mp4AtomBytes(name string, body []byte) []byte {
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(8+len(body)))
	copy(out[4:8], name)
	return append(out, body...)
}

// buildMP4 assembles ftyp/moov(udta/meta/ilst)/[payload atoms...] for a
// title carried in an MP4 iTunes-style tag, plus any extra top-level
// atoms the caller wants to exercise (pdin, free, a second mdat, ...),
// appended after the first "mdat".
func buildMP4(t *testing.T, title string, audio []byte, extra ...[]byte) []byte {
	t.Helper()
	ftyp := mp4AtomBytes("ftyp", []byte("isom\x00\x00\x00\x00isom"))

	tag := tagcodec.NewMP4Tag()
	tag.SetField(tagvalue.Title, tagvalue.NewText(title, tagvalue.UTF8))
	ilst := tagcodec.WriteMP4Tag(tag)
	meta := mp4AtomBytes("meta", append([]byte{0, 0, 0, 0}, ilst...))
	udta := mp4AtomBytes("udta", meta)
	moov := mp4AtomBytes("moov", udta)

	mdat := mp4AtomBytes("mdat", audio)

	var buf bytes.Buffer
	buf.Write(ftyp)
	buf.Write(moov)
	buf.Write(mdat)
	for _, e := range extra {
		buf.Write(e)
	}
	return buf.Bytes()
}

func TestParseMP4ContainerTagAndPayload(t *testing.T) {
	data := buildMP4(t, "Song One", []byte("fake-audio-bytes"))

	var sink diag.Sink
	c, err := New(bytes.NewReader(data), &sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Format != FormatMP4 {
		t.Fatalf("Format = %v, want FormatMP4", c.Format)
	}
	if err := c.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything: %v", err)
	}

	if len(c.Tags) != 1 {
		t.Fatalf("len(Tags) = %d, want 1", len(c.Tags))
	}
	bt, ok := c.Tags[0].(*tagmodel.BasicTag)
	if !ok {
		t.Fatalf("Tags[0] is %T, want *tagmodel.BasicTag", c.Tags[0])
	}
	title, _ := bt.GetField(tagvalue.Title)
	if title.Text != "Song One" {
		t.Errorf("Title = %q, want %q", title.Text, "Song One")
	}
}

// TestParseMP4ContainerTopLevelAtomsBeyondMdat ensures a top-level atom
// the parser doesn't specifically classify (here "free") doesn't abort
// container parsing; it is simply treated as payload alongside mdat.
func TestParseMP4ContainerTopLevelAtomsBeyondMdat(t *testing.T) {
	free := mp4AtomBytes("free", make([]byte, 16))
	data := buildMP4(t, "Song Two", []byte("more-audio-bytes"), free)

	var sink diag.Sink
	c, err := New(bytes.NewReader(data), &sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything: %v", err)
	}
	if len(c.Tags) != 1 {
		t.Fatalf("len(Tags) = %d, want 1", len(c.Tags))
	}
}
