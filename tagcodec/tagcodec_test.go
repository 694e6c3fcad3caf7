package tagcodec

import (
	"bytes"
	"testing"

	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/tagvalue"
)

func TestID3v1RoundTrip(t *testing.T) {
	tag := NewID3v1Tag()
	tag.SetField(tagvalue.Title, tagvalue.NewText("Song", tagvalue.Latin1))
	tag.SetField(tagvalue.Artist, tagvalue.NewText("Band", tagvalue.Latin1))
	tag.SetField(tagvalue.TrackPosition, tagvalue.NewInteger(5))

	block := WriteID3v1Tag(tag)
	if len(block) != 128 {
		t.Fatalf("block len = %d, want 128", len(block))
	}
	got, err := ReadID3v1Tag(block)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := got.GetField(tagvalue.Title)
	if !ok || v.Text != "Song" {
		t.Errorf("Title = %+v, %v", v, ok)
	}
	track, ok := got.GetField(tagvalue.TrackPosition)
	if !ok {
		t.Fatal("TrackPosition missing")
	}
	n, _ := track.AsInteger()
	if n != 5 {
		t.Errorf("TrackPosition = %d, want 5", n)
	}
}

func TestID3v2TextFrameRoundTrip(t *testing.T) {
	tag := NewID3v2Tag(3)
	tag.SetField(tagvalue.Title, tagvalue.NewText("Hello World", tagvalue.Latin1))
	tag.SetField(tagvalue.TrackPosition, tagvalue.NewText("3/10", tagvalue.Latin1))

	serialized := WriteID3v2Tag(tag, 3)
	if string(serialized[0:3]) != "ID3" {
		t.Fatalf("missing ID3 signature")
	}
	body := serialized[10:]
	sink := &diag.Sink{}
	got, err := ReadID3v2Tag(3, body, sink)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := got.GetField(tagvalue.Title)
	if !ok || v.Text != "Hello World" {
		t.Errorf("Title = %+v, %v", v, ok)
	}
}

func TestVorbisCommentRoundTrip(t *testing.T) {
	tag := NewVorbisTag("test encoder 1.0")
	tag.SetField(tagvalue.Title, tagvalue.NewText("My Song", tagvalue.UTF8))
	tag.SetField(tagvalue.Artist, tagvalue.NewText("Some Artist", tagvalue.UTF8))

	raw := WriteVorbisComment(tag)
	sink := &diag.Sink{}
	got, err := ReadVorbisComment(raw, sink)
	if err != nil {
		t.Fatal(err)
	}
	if got.Vendor != "test encoder 1.0" {
		t.Errorf("Vendor = %q", got.Vendor)
	}
	v, ok := got.GetField(tagvalue.Title)
	if !ok || v.Text != "My Song" {
		t.Errorf("Title = %+v, %v", v, ok)
	}
}

func TestMP4TagRoundTrip(t *testing.T) {
	tag := NewMP4Tag()
	tag.SetField(tagvalue.Title, tagvalue.NewText("My Movie", tagvalue.UTF8))
	tag.SetField(tagvalue.TrackPosition, tagvalue.NewPositionInSet(2, 12))

	ilstAtom := WriteMP4Tag(tag)
	r := bytes.NewReader(ilstAtom)
	ilstEl := element.New(element.MP4Kind{}, r, 0, int64(len(ilstAtom)))
	if err := ilstEl.Parse(); err != nil {
		t.Fatal(err)
	}

	sink := &diag.Sink{}
	got, err := ReadMP4Tag(ilstEl, sink)
	if err != nil {
		t.Fatal(err)
	}
	title, ok := got.GetField(tagvalue.Title)
	if !ok || title.Text != "My Movie" {
		t.Errorf("Title = %+v, %v", title, ok)
	}
	pos, ok := got.GetField(tagvalue.TrackPosition)
	if !ok || pos.Position.Position != 2 || pos.Position.Total != 12 {
		t.Errorf("TrackPosition = %+v, %v", pos, ok)
	}
}

func TestMatroskaTagRoundTrip(t *testing.T) {
	mt := NewMatroskaTag(tagmodel.Target{Level: tagmodel.LevelAlbum})
	mt.SetField(tagvalue.Title, tagvalue.NewText("Nested Album", tagvalue.UTF8))
	mt.Nodes = []SimpleTagNode{
		{Name: "TITLE", Default: true, String: "Nested Album"},
		{Name: "CREDITS", Default: true, String: "Someone", Children: []SimpleTagNode{
			{Name: "ROLE", Default: true, String: "Producer"},
		}},
	}

	raw := WriteMatroskaTag(mt)
	r := bytes.NewReader(raw)
	tagEl := element.New(element.EBMLKind{}, r, 0, int64(len(raw)))
	if err := tagEl.Parse(); err != nil {
		t.Fatal(err)
	}

	sink := &diag.Sink{}
	got, err := ReadMatroskaTag(tagEl, sink)
	if err != nil {
		t.Fatal(err)
	}
	if got.Target().Level != tagmodel.LevelAlbum {
		t.Errorf("Target.Level = %v, want %v", got.Target().Level, tagmodel.LevelAlbum)
	}
	if len(got.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(got.Nodes))
	}
	var credits *SimpleTagNode
	for i := range got.Nodes {
		if got.Nodes[i].Name == "CREDITS" {
			credits = &got.Nodes[i]
		}
	}
	if credits == nil {
		t.Fatal("CREDITS node missing")
	}
	if len(credits.Children) != 1 || credits.Children[0].Name != "ROLE" || credits.Children[0].String != "Producer" {
		t.Errorf("CREDITS.Children = %+v, want one ROLE=Producer child", credits.Children)
	}
}

func TestMetadataBlockPictureRoundTrip(t *testing.T) {
	pic := tagvalue.Picture{Data: []byte{1, 2, 3, 4}, MIME: "image/jpeg", Description: "cover"}
	encoded := encodeMetadataBlockPicture(pic)
	decoded, err := decodeMetadataBlockPicture(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.MIME != pic.MIME || string(decoded.Data) != string(pic.Data) {
		t.Errorf("got %+v, want %+v", decoded, pic)
	}
}
