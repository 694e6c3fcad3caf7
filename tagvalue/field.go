package tagvalue

// Field is the closed known-field enum of spec.md §3, shared by every tag
// codec. Each codec maps a subset of these to its own native field ids;
// an id with no mapping reports supports_field = false.
type Field int

const (
	Title Field = iota
	Artist
	Album
	Genre
	Comment
	RecordDate // Year/RecordDate/ReleaseDate
	Bpm
	Lyricist
	TrackPosition
	DiskPosition
	PartNumber
	TotalParts
	Encoder
	Performers
	Length
	Language
	EncoderSettings
	Lyrics
	SynchronizedLyrics
	Grouping
	RecordLabel
	Cover
	Composer
	Rating
	Description
	Vendor
	AlbumArtist
)

var fieldNames = map[Field]string{
	Title:               "Title",
	Artist:              "Artist",
	Album:               "Album",
	Genre:               "Genre",
	Comment:             "Comment",
	RecordDate:          "RecordDate",
	Bpm:                 "Bpm",
	Lyricist:            "Lyricist",
	TrackPosition:       "TrackPosition",
	DiskPosition:        "DiskPosition",
	PartNumber:          "PartNumber",
	TotalParts:          "TotalParts",
	Encoder:             "Encoder",
	Performers:          "Performers",
	Length:              "Length",
	Language:            "Language",
	EncoderSettings:     "EncoderSettings",
	Lyrics:              "Lyrics",
	SynchronizedLyrics:  "SynchronizedLyrics",
	Grouping:            "Grouping",
	RecordLabel:         "RecordLabel",
	Cover:               "Cover",
	Composer:            "Composer",
	Rating:              "Rating",
	Description:         "Description",
	Vendor:              "Vendor",
	AlbumArtist:         "AlbumArtist",
}

func (f Field) String() string {
	if s, ok := fieldNames[f]; ok {
		return s
	}
	return "Unknown"
}
