package hash

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"testing"
)

func TestSumMP3StripsID3v1Trailer(t *testing.T) {
	audio := bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x00}, 16)
	trailer := append([]byte("TAG"), make([]byte, 125)...)

	withTrailer := append(append([]byte{}, audio...), trailer...)

	got, err := Sum(bytes.NewReader(withTrailer))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	want := fmt.Sprintf("%x", sha1.Sum(audio))
	if got != want {
		t.Errorf("Sum(with trailer) = %q, want %q (audio-only hash)", got, want)
	}
}

func TestSumMP3NoTrailerHashesWholeFrameRegion(t *testing.T) {
	audio := bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x00}, 16)

	got, err := Sum(bytes.NewReader(audio))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	want := fmt.Sprintf("%x", sha1.Sum(audio))
	if got != want {
		t.Errorf("Sum(no trailer) = %q, want %q", got, want)
	}
}

func TestSumMP4HashesMdatOnly(t *testing.T) {
	mdatPayload := []byte("audio-bytes-here")

	var buf bytes.Buffer
	writeBox(&buf, "ftyp", []byte("M4A isom0001M4A mp42"))
	writeBox(&buf, "free", make([]byte, 4))
	writeBox(&buf, "mdat", mdatPayload)

	got, err := Sum(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	want := fmt.Sprintf("%x", sha1.Sum(mdatPayload))
	if got != want {
		t.Errorf("Sum(mp4) = %q, want %q (mdat-only hash)", got, want)
	}
}

func writeBox(buf *bytes.Buffer, name string, data []byte) {
	size := uint32(8 + len(data))
	buf.WriteByte(byte(size >> 24))
	buf.WriteByte(byte(size >> 16))
	buf.WriteByte(byte(size >> 8))
	buf.WriteByte(byte(size))
	buf.WriteString(name)
	buf.Write(data)
}
