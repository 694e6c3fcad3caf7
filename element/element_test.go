package element

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/dhowden/mediatag/diag"
)

// buildAtom returns a minimal MP4 atom: 4-byte size, 4-byte fourcc, data.
func buildAtom(fourcc string, data []byte) []byte {
	size := 8 + len(data)
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(size))
	copy(buf[4:8], fourcc)
	return append(buf, data...)
}

func TestMP4ElementTreeWalk(t *testing.T) {
	udta := buildAtom("udta", append(
		buildAtom("free", make([]byte, 4)),
		buildAtom("\xa9nam", []byte("hello"))...,
	))
	moov := buildAtom("moov", udta)
	stream := bytes.NewReader(moov)

	root := New(MP4Kind{}, stream, 0, int64(len(moov)))
	if err := root.Parse(); err != nil {
		t.Fatalf("Parse root: %v", err)
	}
	if got := bytesFOURCC(root.ID()); got != "moov" {
		t.Fatalf("root id = %q, want moov", got)
	}

	child, err := root.FirstChild()
	if err != nil || child == nil {
		t.Fatalf("FirstChild: %v, %v", child, err)
	}
	if err := child.Parse(); err != nil {
		t.Fatalf("Parse child: %v", err)
	}
	if got := bytesFOURCC(child.ID()); got != "udta" {
		t.Fatalf("child id = %q, want udta", got)
	}

	grandchild, err := child.FirstChild()
	if err != nil || grandchild == nil {
		t.Fatalf("FirstChild of udta: %v, %v", grandchild, err)
	}
	if err := grandchild.Parse(); err != nil {
		t.Fatalf("Parse grandchild: %v", err)
	}
	if got := bytesFOURCC(grandchild.ID()); got != "free" {
		t.Fatalf("grandchild id = %q, want free", got)
	}

	sink := &diag.Sink{}
	var padding int64
	if err := root.ValidateSubsequentElementStructure(sink, &padding, nil); err != nil {
		t.Fatalf("ValidateSubsequentElementStructure: %v", err)
	}
	if padding != 12 { // the "free" atom: 8-byte header + 4 bytes data
		t.Errorf("padding total = %d, want 12", padding)
	}
}

func TestMP4CopyEntirelyRoundTrips(t *testing.T) {
	atom := buildAtom("free", []byte("pad0"))
	stream := bytes.NewReader(atom)
	e := New(MP4Kind{}, stream, 0, int64(len(atom)))
	if err := e.Parse(); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := e.CopyEntirely(&out); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), atom) {
		t.Errorf("CopyEntirely = %x, want %x", out.Bytes(), atom)
	}
}

func TestEBMLVIntHeader(t *testing.T) {
	// Void element (0xEC) id is a single byte; size byte 0x84 => length 1,
	// value 4 (0x84 & 0x7F).
	data := append([]byte{0xEC, 0x84}, []byte{1, 2, 3, 4}...)
	stream := bytes.NewReader(data)
	e := New(EBMLKind{}, stream, 0, int64(len(data)))
	if err := e.Parse(); err != nil {
		t.Fatal(err)
	}
	if e.ID() != 0xEC {
		t.Errorf("id = %x, want 0xEC", e.ID())
	}
	if e.DataSize() != 4 {
		t.Errorf("data size = %d, want 4", e.DataSize())
	}
	if !(EBMLKind{}).IsPadding(e.ID()) {
		t.Errorf("Void element should be reported as padding")
	}
}

func bytesFOURCC(id uint64) string {
	b := []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	return string(b)
}
