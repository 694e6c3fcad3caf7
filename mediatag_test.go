package mediatag

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

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

func buildTestFLACFile(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write(flacMetaBlockBytes(false, 0, flacStreamInfoBytes()))
	buf.Write(flacMetaBlockBytes(true, 4, vorbisCommentBlockBytes("mediatag", []string{"TITLE=Old Title"})))
	buf.WriteString("fake-audio-frame-data")

	dir := t.TempDir()
	path := filepath.Join(dir, "track.flac")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenParseAndApplyChanges(t *testing.T) {
	path := buildTestFLACFile(t)

	fi, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := fi.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything: %v", err)
	}

	tags := fi.Tags()
	if len(tags) != 1 {
		t.Fatalf("len(Tags()) = %d, want 1", len(tags))
	}
	tags[0].SetField(tagvalue.Title, tagvalue.NewText("New Title", tagvalue.UTF8))

	if err := fi.ApplyChanges(nil); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}
	if err := fi.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fi2, err := Open(path)
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	defer fi2.Close()
	if err := fi2.ParseEverything(); err != nil {
		t.Fatalf("re-ParseEverything: %v", err)
	}
	title, ok := fi2.Tags()[0].GetField(tagvalue.Title)
	if !ok || title.Text != "New Title" {
		t.Errorf("Title after ApplyChanges = %q (ok=%v), want %q", title.Text, ok, "New Title")
	}
	if got := fi2.Tracks()[0].SamplingRate; got != 44100 {
		t.Errorf("SamplingRate after ApplyChanges = %d, want 44100", got)
	}
}

func TestCreateID3v1Tag(t *testing.T) {
	path := buildTestFLACFile(t)
	fi, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fi.Close()

	tag := fi.CreateID3v1Tag()
	tag.SetField(tagvalue.Artist, tagvalue.NewText("Someone", tagvalue.Latin1))
	if len(fi.Tags()) != 1 {
		t.Fatalf("len(Tags()) = %d, want 1", len(fi.Tags()))
	}
	fi.RemoveTag(tag)
	if len(fi.Tags()) != 0 {
		t.Fatalf("len(Tags()) after RemoveTag = %d, want 0", len(fi.Tags()))
	}
}
