package tagvalue

import "testing"

func TestEncodingRoundTrip(t *testing.T) {
	cases := []struct {
		enc Encoding
		s   string
	}{
		{Latin1, "cafe"},
		{UTF8, "some cómment"},
		{UTF16LE, "some cómment"},
		{UTF16BE, "some cómment"},
	}
	for _, c := range cases {
		b, err := EncodeText(c.enc, c.s)
		if err != nil {
			t.Fatalf("EncodeText(%v, %q): %v", c.enc, c.s, err)
		}
		got, err := DecodeText(c.enc, b)
		if err != nil {
			t.Fatalf("DecodeText(%v, ...): %v", c.enc, err)
		}
		if got != c.s {
			t.Errorf("round trip %v: got %q, want %q", c.enc, got, c.s)
		}
	}
}

func TestEncodeTextWithBOMRoundTrips(t *testing.T) {
	s := "some cómment"
	b := EncodeTextWithBOM(s)
	got, err := DecodeTextWithBOM(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Errorf("got %q, want %q", got, s)
	}
}

func TestCanEncodeLatin1Rejects(t *testing.T) {
	if CanEncode(Latin1, "日本語") {
		t.Errorf("CanEncode(Latin1, ...) = true for non-Latin1 text")
	}
	if !CanEncode(Latin1, "cafe") {
		t.Errorf("CanEncode(Latin1, ...) = false for plain ASCII")
	}
}

func TestValueConversions(t *testing.T) {
	v := NewPositionInSet(4, 12)
	s, err := v.AsText()
	if err != nil || s != "4/12" {
		t.Errorf("AsText() = %q, %v, want 4/12, nil", s, err)
	}
	n, err := v.AsInteger()
	if err != nil || n != 4 {
		t.Errorf("AsInteger() = %d, %v, want 4, nil", n, err)
	}

	pic := NewPicture(Picture{Data: []byte{1, 2, 3}, MIME: "image/jpeg"})
	if _, err := pic.AsText(); err == nil {
		t.Errorf("AsText() on Picture should fail with a Conversion error")
	}
}
