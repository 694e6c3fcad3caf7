package mediaerr

import (
	"errors"
	"testing"
)

func TestIs(t *testing.T) {
	err := Wrap(TruncatedData, "mp4.atom", errors.New("data_size exceeds max_size"))
	if !Is(err, TruncatedData) {
		t.Errorf("Is(err, TruncatedData) = false, want true")
	}
	if Is(err, InvalidData) {
		t.Errorf("Is(err, InvalidData) = true, want false")
	}
	if !errors.Is(err, err.Cause) {
		t.Errorf("Unwrap did not expose cause")
	}
}

func TestNewFormatsMessage(t *testing.T) {
	err := New(NoDataFound, "container.recognize", "no known signature matched")
	if got := err.Error(); got == "" {
		t.Errorf("Error() returned empty string")
	}
}
