package mbz

import (
	"testing"

	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/tagvalue"
)

func TestExtractID3TXXXAndUFID(t *testing.T) {
	tag := tagcodec.NewID3v2Tag(3)
	v := tagvalue.NewText("rg-1234", tagvalue.UTF8)
	v.Description = "MusicBrainz Release Group Id"
	tag.SetNative("TXXX", v)

	ufid := tagvalue.NewBinary([]byte("track-5678"))
	ufid.Description = UFIDProviderURL
	tag.SetNative("UFID", ufid)

	info := Extract(container.FormatMP3, tag)
	if info.ReleaseGroup != "rg-1234" {
		t.Errorf("ReleaseGroup = %q, want %q", info.ReleaseGroup, "rg-1234")
	}
	if info.Track != "track-5678" {
		t.Errorf("Track = %q, want %q", info.Track, "track-5678")
	}
}

func TestExtractVorbis(t *testing.T) {
	tag := tagcodec.NewVorbisTag("test")
	tag.SetNative("MUSICBRAINZ_ARTISTID", tagvalue.NewText("artist-1", tagvalue.UTF8))

	info := Extract(container.FormatFLAC, tag)
	if info.Artist != "artist-1" {
		t.Errorf("Artist = %q, want %q", info.Artist, "artist-1")
	}
}

func TestExtractMP4(t *testing.T) {
	tag := tagcodec.NewMP4Tag()
	id := tagmodel.NativeID("----:com.apple.iTunes:Acoustid Id")
	tag.SetNative(id, tagvalue.NewText("acoustid-99", tagvalue.UTF8))

	info := Extract(container.FormatMP4, tag)
	if info.AcoustID != "acoustid-99" {
		t.Errorf("AcoustID = %q, want %q", info.AcoustID, "acoustid-99")
	}
}
