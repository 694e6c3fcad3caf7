package rewrite

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/tagvalue"
)

func mp4TestAtom(name string, body []byte) []byte {
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(8+len(body)))
	copy(out[4:8], name)
	return append(out, body...)
}

func mp4TestStco(offsets ...uint32) []byte {
	body := make([]byte, 8+4*len(offsets))
	binary.BigEndian.PutUint32(body[4:8], uint32(len(offsets)))
	for i, off := range offsets {
		binary.BigEndian.PutUint32(body[8+4*i:], off)
	}
	return mp4TestAtom("stco", body)
}

// buildMP4WithTrack assembles ftyp/moov(udta/meta/ilst, trak/.../stco)/
// mdat/[extra...], wiring the trak's single stco entry to point stcoOffset
// bytes past the very start of the file (the caller picks a value inside
// mdat's data).
func buildMP4WithTrack(t *testing.T, title string, audio []byte, stcoOffset uint32, extra ...[]byte) []byte {
	t.Helper()
	ftyp := mp4TestAtom("ftyp", []byte("isom\x00\x00\x00\x00isom"))

	tag := tagcodec.NewMP4Tag()
	tag.SetField(tagvalue.Title, tagvalue.NewText(title, tagvalue.UTF8))
	ilst := tagcodec.WriteMP4Tag(tag)
	meta := mp4TestAtom("meta", append([]byte{0, 0, 0, 0}, ilst...))
	udta := mp4TestAtom("udta", meta)

	stco := mp4TestStco(stcoOffset)
	stbl := mp4TestAtom("stbl", stco)
	minf := mp4TestAtom("minf", stbl)
	mdia := mp4TestAtom("mdia", minf)
	trak := mp4TestAtom("trak", mdia)

	moov := mp4TestAtom("moov", append(append([]byte{}, udta...), trak...))
	mdat := mp4TestAtom("mdat", audio)

	var buf bytes.Buffer
	buf.Write(ftyp)
	buf.Write(moov)
	buf.Write(mdat)
	for _, e := range extra {
		buf.Write(e)
	}
	return buf.Bytes()
}

// findStcoOffset re-parses a rewritten MP4 buffer and returns its trak's
// single stco entry.
func findStcoOffset(t *testing.T, data []byte) uint32 {
	t.Helper()
	// moov always immediately follows ftyp in these fixtures; scan for the
	// literal "stco" fourcc and read the entry that follows its 8-byte
	// version/flags+count preamble.
	idx := bytes.Index(data, []byte("stco"))
	if idx < 0 {
		t.Fatalf("no stco atom found in rewritten output")
	}
	return binary.BigEndian.Uint32(data[idx+4+8:])
}

func TestMakeMP4TagRoundTrip(t *testing.T) {
	audio := []byte("0123456789-audio-payload-bytes")
	src := buildMP4WithTrack(t, "Old Title", audio, 0)

	var sink diag.Sink
	c, err := container.New(bytes.NewReader(src), &sink)
	if err != nil {
		t.Fatalf("container.New: %v", err)
	}
	if err := c.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything: %v", err)
	}

	bt, ok := c.Tags[0].(*tagmodel.BasicTag)
	if !ok {
		t.Fatalf("Tags[0] is %T, want *tagmodel.BasicTag", c.Tags[0])
	}
	bt.SetField(tagvalue.Title, tagvalue.NewText("New Title", tagvalue.UTF8))

	var out bytes.Buffer
	if err := Make(&out, c, DefaultConfig(), nil, &sink, nil); err != nil {
		t.Fatalf("Make: %v", err)
	}

	if !bytes.Contains(out.Bytes(), audio) {
		t.Errorf("rewritten output does not contain the original audio payload")
	}

	var sink2 diag.Sink
	c2, err := container.New(bytes.NewReader(out.Bytes()), &sink2)
	if err != nil {
		t.Fatalf("re-parsing rewritten file: %v", err)
	}
	if err := c2.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything on rewritten file: %v", err)
	}
	bt2, ok := c2.Tags[0].(*tagmodel.BasicTag)
	if !ok {
		t.Fatalf("rewritten Tags[0] is %T, want *tagmodel.BasicTag", c2.Tags[0])
	}
	title, _ := bt2.GetField(tagvalue.Title)
	if title.Text != "New Title" {
		t.Errorf("rewritten Title = %q, want %q", title.Text, "New Title")
	}
}

// TestMakeMP4OffsetInvariance covers spec.md's MP4 "Offset invariance"
// property: after a rewrite that shifts mdat (the configured padding atom
// is always inserted between moov and mdat), every stco entry must
// still point at the exact same audio byte it did before the rewrite.
func TestMakeMP4OffsetInvariance(t *testing.T) {
	audio := []byte("marker-byte-here-then-more-audio-data-follows")
	markerOffset := int64(7) // index of 'b' in "byte" within audio
	title := "A Considerably Longer Title Than Before"

	// First pass with a placeholder stco value (same title, so moov's size
	// is identical), purely to measure how many bytes precede mdat's data
	// so the real offset can be computed. The stco entry's value never
	// affects atom size: it's a fixed-width field.
	placeholder := buildMP4WithTrack(t, title, audio, 0)
	ftypLen := int64(len(mp4TestAtom("ftyp", []byte("isom\x00\x00\x00\x00isom"))))
	moovStart := ftypLen
	moovLen := int64(binary.BigEndian.Uint32(placeholder[moovStart : moovStart+4]))
	mdatStart := ftypLen + moovLen
	mdatDataStart := mdatStart + 8

	origOffset := uint32(mdatDataStart + markerOffset)
	src := buildMP4WithTrack(t, title, audio, origOffset)

	var sink diag.Sink
	c, err := container.New(bytes.NewReader(src), &sink)
	if err != nil {
		t.Fatalf("container.New: %v", err)
	}
	if err := c.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything: %v", err)
	}

	var out bytes.Buffer
	if err := Make(&out, c, DefaultConfig(), nil, &sink, nil); err != nil {
		t.Fatalf("Make: %v", err)
	}

	newOffset := findStcoOffset(t, out.Bytes())
	data := out.Bytes()
	if int64(newOffset)+1 > int64(len(data)) {
		t.Fatalf("new stco offset %d out of bounds (len=%d)", newOffset, len(data))
	}
	if got, want := data[newOffset], audio[markerOffset]; got != want {
		t.Errorf("byte at rewritten stco offset = %q, want %q (marker byte)", got, want)
	}
}

// TestMakeMP4PreservesUnclassifiedTopLevelAtoms is the structural
// round-trip property: atoms the rewriter doesn't specifically classify
// (pdin, a trailing free box, a second mdat) must survive a rewrite
// byte-for-byte rather than being silently dropped.
func TestMakeMP4PreservesUnclassifiedTopLevelAtoms(t *testing.T) {
	pdin := mp4TestAtom("pdin", []byte{0, 0, 0, 0, 0, 0, 0, 0})
	secondMdat := mp4TestAtom("mdat", []byte("second-chunk-of-audio-data"))
	audio := []byte("first-chunk-of-audio-data")
	src := buildMP4WithTrack(t, "Title", audio, 0, pdin, secondMdat)

	var sink diag.Sink
	c, err := container.New(bytes.NewReader(src), &sink)
	if err != nil {
		t.Fatalf("container.New: %v", err)
	}
	if err := c.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything: %v", err)
	}

	var out bytes.Buffer
	if err := Make(&out, c, DefaultConfig(), nil, &sink, nil); err != nil {
		t.Fatalf("Make: %v", err)
	}

	got := out.Bytes()
	if !bytes.Contains(got, pdin) {
		t.Errorf("rewritten output dropped the pdin atom")
	}
	if !bytes.Contains(got, []byte("second-chunk-of-audio-data")) {
		t.Errorf("rewritten output dropped the second mdat's payload")
	}
	if !bytes.Contains(got, audio) {
		t.Errorf("rewritten output dropped the first mdat's payload")
	}
}
