package bytesio

import (
	"bytes"
	"testing"

	"github.com/dhowden/mediatag/progress"
)

func TestBEUintLEUint(t *testing.T) {
	if got := BEUint([]byte{0x01, 0x02}); got != 0x0102 {
		t.Errorf("BEUint = %x, want 0x0102", got)
	}
	if got := LEUint([]byte{0x01, 0x02}); got != 0x0201 {
		t.Errorf("LEUint = %x, want 0x0201", got)
	}
}

func TestSyncSafeUint(t *testing.T) {
	// 0x00 0x00 0x02 0x01 -> 0b0000010 0000001 = 257
	b := []byte{0x00, 0x00, 0x02, 0x01}
	if got := SyncSafeUint(b); got != 257 {
		t.Errorf("SyncSafeUint = %d, want 257", got)
	}
	back := PutSyncSafeUint32(257)
	if SyncSafeUint(back[:]) != 257 {
		t.Errorf("round trip failed: %v", back)
	}
}

func TestFOURCC(t *testing.T) {
	v, err := FOURCCFromString("moov")
	if err != nil {
		t.Fatal(err)
	}
	if got := FOURCCAsString(v); got != "moov" {
		t.Errorf("FOURCCAsString = %q, want moov", got)
	}
}

func TestReadTerminatedString(t *testing.T) {
	r := bytes.NewReader([]byte("hello\x00world"))
	s, n, err := ReadTerminatedString(r, 100, map[byte]bool{0: true})
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" || n != 6 {
		t.Errorf("got %q, %d, want hello, 6", s, n)
	}
}

func TestFixedString(t *testing.T) {
	b := PutFixedString("abc", 10)
	got, err := ReadFixedString(bytes.NewReader(b), 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != "abc" {
		t.Errorf("got %q, want abc", got)
	}
}

func TestCopyReportsProgressAndHonoursAbort(t *testing.T) {
	src := bytes.Repeat([]byte{0x42}, 10)
	var dst bytes.Buffer
	var tok progress.Token
	if err := Copy(&dst, bytes.NewReader(src), int64(len(src)), CopyOptions{Progress: &tok, Status: "copying"}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst.Bytes(), src) {
		t.Errorf("copy mismatch")
	}
	if _, pct := tok.Status(); pct != 100 {
		t.Errorf("final progress = %v, want 100", pct)
	}

	var abortTok progress.Token
	abortTok.Abort()
	dst.Reset()
	err := Copy(&dst, bytes.NewReader(src), int64(len(src)), CopyOptions{Abort: &abortTok})
	if err != progress.ErrAborted {
		t.Errorf("Copy() with aborted token = %v, want ErrAborted", err)
	}
}
