// Package tagcodec implements the per-format tag codecs of spec.md §4.6:
// ID3v1, ID3v2 (v2.2/2.3/2.4), MP4 iTunes tags, Matroska tags, and Vorbis
// comments, each exposing a tagmodel.Tag. The teacher (dhowden-tag) only
// reads tags; every codec here additionally supports encoding for the
// rewrite package.
package tagcodec

import (
	"strconv"
	"strings"

	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/tagvalue"
)

// id3v1Genres is the standard ID3v1 genre list: the original 80 entries
// (indices 0-79) only; the later Winamp extensions (80 and up) are not
// included, so ReadID3v1Tag sets no genre for those indices. The
// teacher's retrieved files reference an id3v1Genres table (mp4.go's
// gnre decoding reuses the same ordinal space) but the ID3v1 reader
// itself was not present in the retrieved pack, so this table is
// reconstructed directly from the well-known ID3v1 genre registry that
// spec.md §4.6.1 assumes.
var id3v1Genres = []string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge",
	"Hip-Hop", "Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B",
	"Rap", "Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska",
	"Death Metal", "Pranks", "Soundtrack", "Euro-Techno", "Ambient",
	"Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance", "Classical",
	"Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel",
	"Noise", "AlternRock", "Bass", "Soul", "Punk", "Space", "Meditative",
	"Instrumental Pop", "Instrumental Rock", "Ethnic", "Gothic",
	"Darkwave", "Techno-Industrial", "Electronic", "Pop-Folk",
	"Eurodance", "Dream", "Southern Rock", "Comedy", "Cult", "Gangsta",
	"Top 40", "Christian Rap", "Pop/Funk", "Jungle", "Native American",
	"Cabaret", "New Wave", "Psychadelic", "Rave", "Showtunes", "Trailer",
	"Lo-Fi", "Tribal", "Acid Punk", "Acid Jazz", "Polka", "Retro",
	"Musical", "Rock & Roll", "Hard Rock",
}

// ID3v1Field is the native id space for the ID3v1 codec: it has no real
// native identifiers since the format is seven fixed fields, so these are
// synthetic names.
const (
	ID3v1Title   tagmodel.NativeID = "TITLE"
	ID3v1Artist  tagmodel.NativeID = "ARTIST"
	ID3v1Album   tagmodel.NativeID = "ALBUM"
	ID3v1Year    tagmodel.NativeID = "YEAR"
	ID3v1Comment tagmodel.NativeID = "COMMENT"
	ID3v1Track   tagmodel.NativeID = "TRACK"
	ID3v1Genre   tagmodel.NativeID = "GENRE"
)

var id3v1FieldMap = tagmodel.NewFieldMap(map[tagvalue.Field]tagmodel.NativeID{
	tagvalue.Title:         ID3v1Title,
	tagvalue.Artist:        ID3v1Artist,
	tagvalue.Album:         ID3v1Album,
	tagvalue.RecordDate:    ID3v1Year,
	tagvalue.Comment:       ID3v1Comment,
	tagvalue.TrackPosition: ID3v1Track,
	tagvalue.Genre:         ID3v1Genre,
})

// ID3v1Tag wraps tagmodel.BasicTag purely for type identity: an MP3 file
// can carry both an ID3v1 and an ID3v2 tag side by side, and both codecs
// otherwise produce the same underlying *tagmodel.BasicTag, so callers
// that need to tell them apart (the MP3 rewriter) type-assert on this
// instead.
type ID3v1Tag struct {
	*tagmodel.BasicTag
}

// NewID3v1Tag constructs an empty ID3v1 tagmodel.Tag.
func NewID3v1Tag() *ID3v1Tag {
	bt := tagmodel.NewBasicTag(id3v1FieldMap, nil, tagmodel.Target{},
		func(string) tagvalue.Encoding { return tagvalue.Latin1 },
		func(enc tagvalue.Encoding) bool { return enc == tagvalue.Latin1 },
	)
	return &ID3v1Tag{BasicTag: bt}
}

// ReadID3v1Tag decodes a 128-byte ID3v1(.1) block, grounded on spec.md
// §4.6.1's field layout (no direct teacher source existed in the
// retrieved pack for this format; the teacher's hash.go/sum.go reference
// an id3v1.go this pack did not include).
func ReadID3v1Tag(block []byte) (*ID3v1Tag, error) {
	if len(block) != 128 {
		return nil, mediaerr.New(mediaerr.TruncatedData, "tagcodec.id3v1", "block is not 128 bytes")
	}
	if string(block[0:3]) != "TAG" {
		return nil, mediaerr.New(mediaerr.NoDataFound, "tagcodec.id3v1", "missing TAG signature")
	}
	tag := NewID3v1Tag()

	title := trimLatin1(block[3:33])
	artist := trimLatin1(block[33:63])
	album := trimLatin1(block[63:93])
	year := trimLatin1(block[93:97])

	if title != "" {
		tag.SetField(tagvalue.Title, tagvalue.NewText(title, tagvalue.Latin1))
	}
	if artist != "" {
		tag.SetField(tagvalue.Artist, tagvalue.NewText(artist, tagvalue.Latin1))
	}
	if album != "" {
		tag.SetField(tagvalue.Album, tagvalue.NewText(album, tagvalue.Latin1))
	}
	if year != "" {
		tag.SetField(tagvalue.RecordDate, tagvalue.NewText(year, tagvalue.Latin1))
	}

	// ID3v1.1: comment is 28 bytes, byte 125 is zero, byte 126 is the
	// track number.
	if block[125] == 0 && block[126] != 0 {
		comment := trimLatin1(block[97:125])
		if comment != "" {
			tag.SetField(tagvalue.Comment, tagvalue.NewText(comment, tagvalue.Latin1))
		}
		tag.SetField(tagvalue.TrackPosition, tagvalue.NewInteger(int64(block[126])))
	} else {
		comment := trimLatin1(block[97:127])
		if comment != "" {
			tag.SetField(tagvalue.Comment, tagvalue.NewText(comment, tagvalue.Latin1))
		}
	}

	genreIdx := int(block[127])
	if genreIdx < len(id3v1Genres) {
		tag.SetField(tagvalue.Genre, tagvalue.Value{Kind: tagvalue.StandardGenreIndexKind, StandardGenreIndex: genreIdx})
	}
	return tag, nil
}

// trimLatin1 drops trailing NUL and space padding, the convention spec.md
// §4.6.1 calls for.
func trimLatin1(b []byte) string {
	s := string(b)
	return strings.TrimRight(s, "\x00 ")
}

// WriteID3v1Tag serializes tag into a 128-byte ID3v1(.1) block. Missing
// fields are zero-filled; text is truncated/converted to Latin-1 on a
// best-effort basis, per spec.md §4.6.1 ("writing emits zero-filled fixed
// fields with best-effort conversion").
func WriteID3v1Tag(tag tagmodel.Tag) []byte {
	block := make([]byte, 128)
	copy(block[0:3], "TAG")
	putFixedLatin1(block[3:33], fieldText(tag, tagvalue.Title))
	putFixedLatin1(block[33:63], fieldText(tag, tagvalue.Artist))
	putFixedLatin1(block[63:93], fieldText(tag, tagvalue.Album))
	putFixedLatin1(block[93:97], fieldText(tag, tagvalue.RecordDate))

	comment := fieldText(tag, tagvalue.Comment)
	if trackV, ok := tag.GetField(tagvalue.TrackPosition); ok {
		putFixedLatin1(block[97:125], comment)
		if n, err := trackV.AsInteger(); err == nil {
			block[126] = byte(n)
		}
	} else {
		putFixedLatin1(block[97:127], comment)
	}

	if genreV, ok := tag.GetField(tagvalue.Genre); ok {
		if genreV.Kind == tagvalue.StandardGenreIndexKind {
			block[127] = byte(genreV.StandardGenreIndex)
		} else {
			block[127] = 255 // "unknown" sentinel
		}
	} else {
		block[127] = 255
	}
	return block
}

func fieldText(tag tagmodel.Tag, f tagvalue.Field) string {
	v, ok := tag.GetField(f)
	if !ok {
		return ""
	}
	s, _ := v.AsText()
	return s
}

func putFixedLatin1(dst []byte, s string) {
	b, err := tagvalue.EncodeText(tagvalue.Latin1, s)
	if err != nil {
		b, _ = tagvalue.EncodeText(tagvalue.Latin1, strconv.Quote(s))
	}
	n := copy(dst, b)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
