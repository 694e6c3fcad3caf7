package container

import (
	"io"
	"time"

	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/track"
)

// Chapter is one node of a container's chapter tree (Matroska
// EditionEntry/ChapterAtom, spec.md §3 "Container").
type Chapter struct {
	UID      uint64
	Start    int64 // nanoseconds
	End      int64
	Title    string
	Language string
	Children []Chapter
}

// Attachment is an embedded file (spec.md §3 "Attachment"). Parsing fills
// in the descriptive fields only; the attachment body is not read, and
// nothing in this package sets offset, size or data.
type Attachment struct {
	MIME        string
	Filename    string
	Description string
	UID         uint64

	offset int64
	size   int64
	data   []byte // set once read, or once replaced in memory
}

// Container owns everything parsed from one input stream: its root
// element (held indirectly via per-format state in mp4.go, matroska.go,
// ogg.go, flac.go, mp3.go, wave.go and adts.go),
// tracks, tags, chapters, and attachments, per spec.md §3 "Container".
type Container struct {
	r      io.ReadSeeker
	Format Format

	DocType   string
	Timescale uint32
	Duration  time.Duration

	Tracks      []*track.Track
	Tags        []tagmodel.Tag
	Chapters    []Chapter
	Attachments []Attachment

	// startOffset is where the recognised content begins (past any
	// leading ID3v2 tag the stream starts with).
	startOffset int64
	// originOffset is where Recognize began looking, i.e. the start of any
	// leading ID3v2 tag that startOffset already skips past. MP3 tag
	// parsing needs both: originOffset to re-read that ID3v2 tag,
	// startOffset to find the first audio frame.
	originOffset int64

	parsedContainer   bool
	parsedTracks      bool
	parsedTags        bool
	parsedChapters    bool
	parsedAttachments bool

	mp4  *mp4State
	mkv  *matroskaState
	ogg  *oggState
	flac *flacState
	mp3  *mp3State
	wave *waveState
	adts *adtsState

	sink *diag.Sink
}

// Reader returns the underlying stream, for the rewrite package's own
// element-tree walk during make (the rewriter re-derives byte ranges
// independently rather than reaching into this package's per-format
// unexported state).
func (c *Container) Reader() io.ReadSeeker { return c.r }

// StartOffset returns where the recognised content begins, past any
// leading ID3v2 tag (spec.md §4.7.1).
func (c *Container) StartOffset() int64 { return c.startOffset }

// OriginOffset returns where recognition began looking, i.e. the start of
// any leading ID3v2 tag StartOffset already skips past. The MP3 rewriter
// needs both to decide how much of the original tag region to discard.
func (c *Container) OriginOffset() int64 { return c.originOffset }

// New recognises the format at r's current position and returns an
// unparsed Container. Call ParseContainer (directly or via ParseEverything)
// before inspecting Tracks/Tags/Chapters/Attachments.
func New(r io.ReadSeeker, sink *diag.Sink) (*Container, error) {
	origin, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.IoError, "container.New", err)
	}
	format, start, err := Recognize(r, sink)
	if err != nil {
		return nil, err
	}
	return &Container{r: r, Format: format, startOffset: start, originOffset: origin, sink: sink}, nil
}

// ParseContainer parses structural metadata (document type, timescale,
// duration) without yet walking tracks/tags/chapters/attachments. It is
// idempotent (spec.md §4.7.2).
func (c *Container) ParseContainer() error {
	if c.parsedContainer {
		return nil
	}
	var err error
	switch c.Format {
	case FormatMP4:
		err = c.parseMP4Container()
	case FormatMatroska:
		err = c.parseMatroskaContainer()
	case FormatOgg:
		err = c.parseOggContainer()
	case FormatFLAC:
		err = c.parseFLACContainer()
	case FormatMP3:
		err = c.parseMP3Container()
	case FormatWAVE:
		err = c.parseWAVEContainer()
	case FormatADTS:
		err = c.parseADTSContainer()
	default:
		err = mediaerr.New(mediaerr.NotImplemented, "container.ParseContainer", "unsupported format")
	}
	if err != nil {
		return err
	}
	c.parsedContainer = true
	return nil
}

// ParseTracks parses every track header, running ParseContainer first if
// it has not succeeded yet.
func (c *Container) ParseTracks() error {
	if c.parsedTracks {
		return nil
	}
	if !c.parsedContainer {
		if err := c.ParseContainer(); err != nil {
			return err
		}
	}
	var err error
	switch c.Format {
	case FormatMP4:
		err = c.parseMP4Tracks()
	case FormatMatroska:
		err = c.parseMatroskaTracks()
	case FormatOgg:
		err = c.parseOggTracks()
	case FormatFLAC:
		err = c.parseFLACTracks()
	case FormatMP3:
		err = c.parseMP3Tracks()
	case FormatWAVE:
		err = c.parseWAVETracks()
	case FormatADTS:
		err = c.parseADTSTracks()
	}
	if err != nil {
		return err
	}
	c.parsedTracks = true
	return nil
}

// ParseTags parses every tag, running ParseContainer first if it has not
// succeeded yet.
func (c *Container) ParseTags() error {
	if c.parsedTags {
		return nil
	}
	if !c.parsedContainer {
		if err := c.ParseContainer(); err != nil {
			return err
		}
	}
	var err error
	switch c.Format {
	case FormatMP4:
		err = c.parseMP4Tags()
	case FormatMatroska:
		err = c.parseMatroskaTags()
	case FormatOgg:
		err = c.parseOggTags()
	case FormatFLAC:
		err = c.parseFLACTags()
	case FormatMP3:
		err = c.parseMP3Tags()
	}
	if err != nil {
		return err
	}
	c.parsedTags = true
	return nil
}

// ParseChapters parses the chapter tree, where the format supports one
// (currently Matroska only; other formats leave Chapters empty).
func (c *Container) ParseChapters() error {
	if c.parsedChapters {
		return nil
	}
	if c.Format == FormatMatroska {
		if err := c.parseMatroskaChapters(); err != nil {
			return err
		}
	}
	c.parsedChapters = true
	return nil
}

// ParseAttachments parses the attachment list, where the format supports
// one (currently Matroska only).
func (c *Container) ParseAttachments() error {
	if c.parsedAttachments {
		return nil
	}
	if c.Format == FormatMatroska {
		if err := c.parseMatroskaAttachments(); err != nil {
			return err
		}
	}
	c.parsedAttachments = true
	return nil
}

// ParseEverything runs every parse phase, collecting per-phase failures in
// the diagnostics sink rather than aborting early (spec.md §4.7.2: "a
// critical diagnostic does not by itself fail a later phase").
func (c *Container) ParseEverything() error {
	if err := c.ParseContainer(); err != nil {
		return err
	}
	if err := c.ParseTracks(); err != nil {
		c.sink.Logf(diag.Critical, "container.ParseEverything", "tracks: %v", err)
	}
	if err := c.ParseTags(); err != nil {
		c.sink.Logf(diag.Critical, "container.ParseEverything", "tags: %v", err)
	}
	if err := c.ParseChapters(); err != nil {
		c.sink.Logf(diag.Critical, "container.ParseEverything", "chapters: %v", err)
	}
	if err := c.ParseAttachments(); err != nil {
		c.sink.Logf(diag.Critical, "container.ParseEverything", "attachments: %v", err)
	}
	return nil
}

// CreateTag appends a new, empty tag scoped to target and returns it. The
// concrete codec is chosen by the container's format.
func (c *Container) CreateTag(target tagmodel.Target) tagmodel.Tag {
	var t tagmodel.Tag
	switch c.Format {
	case FormatMP4:
		t = tagcodecNewMP4()
	case FormatMatroska:
		t = tagcodecNewMatroska(target)
	case FormatFLAC, FormatOgg:
		t = tagcodecNewVorbis()
	case FormatMP3:
		t = tagcodecNewID3v2()
	}
	if t != nil {
		c.Tags = append(c.Tags, t)
	}
	return t
}

// RemoveTag removes tag from the container's tag list, invalidating the
// reference per spec.md §3's lifecycle rule.
func (c *Container) RemoveTag(tag tagmodel.Tag) {
	for i, t := range c.Tags {
		if t == tag {
			c.Tags = append(c.Tags[:i], c.Tags[i+1:]...)
			return
		}
	}
}

// RemoveAllTags clears every tag.
func (c *Container) RemoveAllTags() {
	c.Tags = nil
}
