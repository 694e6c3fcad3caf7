package rewrite

import (
	"errors"
	"io"

	"github.com/dhowden/mediatag/bytesio"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/progress"
)

// seekSize returns r's total length without disturbing its position
// (the same pattern container.streamSize uses).
func seekSize(r io.ReadSeeker) (int64, error) {
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	_, err = r.Seek(cur, io.SeekStart)
	return size, err
}

// readRange reads n bytes at offset off into a freshly allocated slice.
func readRange(r io.ReadSeeker, off, n int64) ([]byte, error) {
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// copyThrough streams n bytes at offset off from r into w via bytesio.Copy,
// honouring tok for cancellation and progress per spec.md §5's suspension
// point contract.
func copyThrough(w io.Writer, r io.ReadSeeker, off, n int64, tok *progress.Token, status string) error {
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return err
	}
	err := bytesio.Copy(w, r, n, bytesio.CopyOptions{Abort: tok, Progress: tok, Status: status})
	if errors.Is(err, progress.ErrAborted) {
		return mediaerr.Wrap(mediaerr.OperationAborted, "rewrite", err)
	}
	return err
}
