package container

import (
	"bytes"
	"testing"

	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/tagvalue"
)

// ebmlTestID/ebmlTestSize/ebmlTestElem are local duplicates of the VINT
// encoders in rewrite/matroska.go and tagcodec/matroska.go: this package
// doesn't otherwise need to write EBML, so the test fixture builder keeps
// its own copy rather than reaching into another package's unexported
// helpers.
func ebmlTestID(id uint64) []byte {
	switch {
	case id <= 0xFF:
		return []byte{byte(id)}
	case id <= 0xFFFF:
		return []byte{byte(id >> 8), byte(id)}
	case id <= 0xFFFFFF:
		return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	default:
		return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	}
}

func ebmlTestSize(size uint64) []byte {
	switch {
	case size < 1<<7-1:
		return []byte{byte(size) | 0x80}
	case size < 1<<14-1:
		return []byte{byte(size>>8) | 0x40, byte(size)}
	case size < 1<<21-1:
		return []byte{byte(size>>16) | 0x20, byte(size >> 8), byte(size)}
	default:
		return []byte{byte(size>>24) | 0x10, byte(size >> 16), byte(size >> 8), byte(size)}
	}
}

func ebmlTestElem(id uint64, body []byte) []byte {
	out := append([]byte{}, ebmlTestID(id)...)
	out = append(out, ebmlTestSize(uint64(len(body)))...)
	return append(out, body...)
}

// buildMatroska assembles a minimal EBML header + Segment{Info, Tags{Tag}}
// stream. The Tag element itself is built via tagcodec.WriteMatroskaTag so
// the fixture stays byte-compatible with the real write path.
func buildMatroska(t *testing.T, title string) []byte {
	t.Helper()
	header := ebmlTestElem(0x1A45DFA3, ebmlTestElem(0x4282, []byte("matroska")))

	info := ebmlTestElem(0x1549A966, ebmlTestElem(0x2AD7B1, []byte{0x0F, 0x42, 0x40})) // TimecodeScale=1000000

	mt := tagcodec.NewMatroskaTag(tagmodel.Target{Level: tagmodel.LevelAlbum})
	mt.SetField(tagvalue.Title, tagvalue.NewText(title, tagvalue.UTF8))
	mt.Nodes = []tagcodec.SimpleTagNode{{Name: "TITLE", Default: true, String: title}}
	tagBytes := tagcodec.WriteMatroskaTag(mt)
	tags := ebmlTestElem(0x1254C367, tagBytes)

	segBody := append(append([]byte{}, info...), tags...)
	segment := ebmlTestElem(0x18538067, segBody)

	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(segment)
	return buf.Bytes()
}

func TestParseMatroskaContainerTag(t *testing.T) {
	data := buildMatroska(t, "Nested Album")

	var sink diag.Sink
	c, err := New(bytes.NewReader(data), &sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Format != FormatMatroska {
		t.Fatalf("Format = %v, want FormatMatroska", c.Format)
	}
	if err := c.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything: %v", err)
	}

	if len(c.Tags) != 1 {
		t.Fatalf("len(Tags) = %d, want 1", len(c.Tags))
	}
	mt, ok := c.Tags[0].(*tagcodec.MatroskaTag)
	if !ok {
		t.Fatalf("Tags[0] is %T, want *tagcodec.MatroskaTag", c.Tags[0])
	}
	title, _ := mt.GetField(tagvalue.Title)
	if title.Text != "Nested Album" {
		t.Errorf("Title = %q, want %q", title.Text, "Nested Album")
	}
	if len(mt.Nodes) != 1 || mt.Nodes[0].Name != "TITLE" {
		t.Errorf("Nodes = %+v, want one TITLE node", mt.Nodes)
	}
}
