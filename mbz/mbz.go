// Package mbz extracts MusicBrainz Picard-specific tags from a parsed
// container's tags. See https://picard.musicbrainz.org/docs/mappings/ for
// more information. Grounded on the teacher's mbz/mbz.go, adapted from
// dhowden-tag's single-format Metadata interface (keyed by m.Format()) to
// mediatag's tagmodel.Tag contract, which exposes the same field/native-id
// split across every codec rather than one per format.
package mbz

import (
	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/tagmodel"
)

// Info is a structure which contains MusicBrainz identifier information.
type Info struct {
	AcoustID     string
	Album        string
	AlbumArtist  string
	Artist       string
	ReleaseGroup string
	Track        string
}

// Supported MusicBrainz tag names.
const (
	TagAcoustID     = "acoustid_id"
	TagAlbum        = "musicbrainz_albumid"
	TagAlbumArtist  = "musicbrainz_albumartistid"
	TagArtist       = "musicbrainz_artistid"
	TagReleaseGroup = "musicbrainz_releasegroupid"
	TagTrack        = "musicbrainz_recordingid"
)

// UFIDProviderURL is the URL that we match inside a UFID tag.
const UFIDProviderURL = "http://musicbrainz.org"

// displayNames maps internal tag names to the names MusicBrainz Picard
// writes into MP4 "----:com.apple.iTunes:" freeform atoms.
var displayNames = map[string]string{
	TagAcoustID:     "Acoustid Id",
	TagAlbum:        "MusicBrainz Album Id",
	TagAlbumArtist:  "MusicBrainz Album Artist Id",
	TagArtist:       "MusicBrainz Artist Id",
	TagReleaseGroup: "MusicBrainz Release Group Id",
	TagTrack:        "MusicBrainz Track Id",
}

// vorbisKeys maps internal tag names to the Vorbis comment keys Picard
// writes (always upper case by convention, matching the case tagcodec's
// Vorbis reader normalizes every comment key to).
var vorbisKeys = map[string]string{
	TagAcoustID:     "ACOUSTID_ID",
	TagAlbum:        "MUSICBRAINZ_ALBUMID",
	TagAlbumArtist:  "MUSICBRAINZ_ALBUMARTISTID",
	TagArtist:       "MUSICBRAINZ_ARTISTID",
	TagReleaseGroup: "MUSICBRAINZ_RELEASEGROUPID",
	TagTrack:        "MUSICBRAINZ_TRACKID",
}

func (i *Info) set(t, v string) {
	switch t {
	case TagAcoustID:
		i.AcoustID = v
	case TagAlbum:
		i.Album = v
	case TagAlbumArtist:
		i.AlbumArtist = v
	case TagArtist:
		i.Artist = v
	case TagReleaseGroup:
		i.ReleaseGroup = v
	case TagTrack:
		i.Track = v
	}
}

// extractID3 pulls MusicBrainz identifiers from ID3v2 TXXX frames (keyed by
// their description) and the UFID frame (MusicBrainz track id, when its
// owner matches UFIDProviderURL).
func extractID3(t tagmodel.Tag) *Info {
	i := &Info{}
	for _, v := range t.GetNative("TXXX") {
		for tagName, display := range displayNames {
			if v.Description == display {
				i.set(tagName, v.Text)
			}
		}
	}
	for _, v := range t.GetNative("UFID") {
		if v.Description == UFIDProviderURL {
			i.set(TagTrack, string(v.Binary))
		}
	}
	return i
}

// extractMP4 pulls MusicBrainz identifiers from "----:com.apple.iTunes:"
// freeform atoms, one lookup per known tag.
func extractMP4(t tagmodel.Tag) *Info {
	i := &Info{}
	for tagName, display := range displayNames {
		id := tagmodel.NativeID(element.CustomAtomName("com.apple.iTunes", display))
		if vs := t.GetNative(id); len(vs) > 0 {
			i.set(tagName, vs[0].Text)
		}
	}
	return i
}

// extractVorbis pulls MusicBrainz identifiers from upper-cased Vorbis
// comment keys (FLAC and Ogg Vorbis share this codec).
func extractVorbis(t tagmodel.Tag) *Info {
	i := &Info{}
	for tagName, key := range vorbisKeys {
		if vs := t.GetNative(tagmodel.NativeID(key)); len(vs) > 0 {
			i.set(tagName, vs[0].Text)
		}
	}
	return i
}

// Extract pulls MusicBrainz Picard tags (usable with the MusicBrainz and
// LastFM APIs) out of t, dispatched on the container format t came from.
// See https://picard.musicbrainz.org/docs/mappings/ for more information.
func Extract(format container.Format, t tagmodel.Tag) *Info {
	switch format {
	case container.FormatMP3:
		return extractID3(t)
	case container.FormatMP4:
		return extractMP4(t)
	case container.FormatFLAC, container.FormatOgg:
		return extractVorbis(t)
	default:
		return &Info{}
	}
}

// ExtractAll runs Extract over every tag c carries and merges the results,
// since a single file (an MP3 with both ID3v1 and ID3v2, say) may carry
// more than one tag object but only one of them is the one Picard wrote to.
func ExtractAll(c *container.Container) *Info {
	merged := &Info{}
	for _, t := range c.Tags {
		info := Extract(c.Format, t)
		if info.AcoustID != "" {
			merged.AcoustID = info.AcoustID
		}
		if info.Album != "" {
			merged.Album = info.Album
		}
		if info.AlbumArtist != "" {
			merged.AlbumArtist = info.AlbumArtist
		}
		if info.Artist != "" {
			merged.Artist = info.Artist
		}
		if info.ReleaseGroup != "" {
			merged.ReleaseGroup = info.ReleaseGroup
		}
		if info.Track != "" {
			merged.Track = info.Track
		}
	}
	return merged
}
