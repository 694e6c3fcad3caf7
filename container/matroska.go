package container

import (
	"math"
	"time"

	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/track"
)

const (
	ebmlSegment     uint64 = 0x18538067
	ebmlInfo        uint64 = 0x1549A966
	ebmlTimecodeSc  uint64 = 0x2AD7B1
	ebmlDuration    uint64 = 0x4489
	ebmlTracksID    uint64 = 0x1654AE6B
	ebmlTrackEntry  uint64 = 0xAE
	ebmlTagsID      uint64 = 0x1254C367
	ebmlTagID       uint64 = 0x7373
	ebmlChaptersID  uint64 = 0x1043A770
	ebmlEditionEntry uint64 = 0x45B9
	ebmlChapterAtom uint64 = 0xB6
	ebmlChapterUID  uint64 = 0x73C4
	ebmlChapTimeStart uint64 = 0x91
	ebmlChapTimeEnd uint64 = 0x92
	ebmlChapDisplay uint64 = 0x80
	ebmlChapString  uint64 = 0x85
	ebmlChapLanguage uint64 = 0x437C
	ebmlAttachmentsID uint64 = 0x1941A469
	ebmlAttachedFile uint64 = 0x61A7
	ebmlFileDesc    uint64 = 0x467E
	ebmlFileName    uint64 = 0x466E
	ebmlFileMimeType uint64 = 0x4660
	ebmlFileUID     uint64 = 0x46AE
	ebmlDocTypeID   uint64 = 0x4282
)

// matroskaState holds the parsed Segment so the rewrite package can patch
// or rebuild the top-level element list.
type matroskaState struct {
	segment     *element.Element
	docType     string
	timecodeScale uint64
}

func (c *Container) parseMatroskaContainer() error {
	size, err := streamSize(c.r)
	if err != nil {
		return err
	}
	kind := element.EBMLKind{}
	headerEl := element.New(kind, c.r, c.startOffset, size-c.startOffset)
	if err := headerEl.Parse(); err != nil {
		return mediaerr.Wrap(mediaerr.InvalidData, "container.matroska", err)
	}
	docType := "matroska"
	if dt, err := ebmlReadStringChild(headerEl, ebmlDocTypeID); err == nil && dt != "" {
		docType = dt
	}

	segStart := headerEl.StartOffset() + headerEl.TotalSize()
	segEl := element.New(kind, c.r, segStart, size-segStart)
	if err := segEl.Parse(); err != nil {
		return mediaerr.Wrap(mediaerr.InvalidData, "container.matroska", err)
	}
	if segEl.ID() != ebmlSegment {
		return mediaerr.New(mediaerr.InvalidData, "container.matroska", "expected Segment after EBML header")
	}

	st := &matroskaState{segment: segEl, docType: docType, timecodeScale: 1000000}
	if info, err := segEl.SubelementByPath(ebmlInfo); err == nil && info != nil {
		if tc, err := ebmlReadUintChild(info, ebmlTimecodeSc); err == nil && tc > 0 {
			st.timecodeScale = uint64(tc)
		}
		if dur, err := ebmlReadFloatChild(info, ebmlDuration); err == nil {
			c.Duration = time.Duration(dur * float64(st.timecodeScale))
		}
	}
	c.mkv = st
	c.DocType = docType
	c.Timescale = uint32(st.timecodeScale)
	return nil
}

func (c *Container) parseMatroskaTracks() error {
	tracksEl, err := c.mkv.segment.SubelementByPath(ebmlTracksID)
	if err != nil || tracksEl == nil {
		return nil
	}
	entries, err := ebmlFindAllChildren(tracksEl, ebmlTrackEntry)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		t, err := track.ParseMatroskaTrack(entry)
		if err != nil {
			c.sink.Logf(diag.Warning, "container.matroska", "track entry: %v", err)
		}
		c.Tracks = append(c.Tracks, t)
	}
	return nil
}

func (c *Container) parseMatroskaTags() error {
	tagsEl, err := c.mkv.segment.SubelementByPath(ebmlTagsID)
	if err != nil || tagsEl == nil {
		return nil
	}
	entries, err := ebmlFindAllChildren(tagsEl, ebmlTagID)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		tag, err := tagcodec.ReadMatroskaTag(entry, c.sink)
		if err != nil {
			c.sink.Logf(diag.Warning, "container.matroska", "Tag element: %v", err)
			continue
		}
		c.Tags = append(c.Tags, tag)
	}
	return nil
}

func (c *Container) parseMatroskaChapters() error {
	chaptersEl, err := c.mkv.segment.SubelementByPath(ebmlChaptersID)
	if err != nil || chaptersEl == nil {
		return nil
	}
	editions, err := ebmlFindAllChildren(chaptersEl, ebmlEditionEntry)
	if err != nil {
		return err
	}
	for _, edition := range editions {
		atoms, err := ebmlFindAllChildren(edition, ebmlChapterAtom)
		if err != nil {
			continue
		}
		for _, atom := range atoms {
			c.Chapters = append(c.Chapters, parseChapterAtom(atom))
		}
	}
	return nil
}

func parseChapterAtom(atom *element.Element) Chapter {
	ch := Chapter{}
	if v, err := ebmlReadUintChild(atom, ebmlChapterUID); err == nil {
		ch.UID = uint64(v)
	}
	if v, err := ebmlReadUintChild(atom, ebmlChapTimeStart); err == nil {
		ch.Start = v
	}
	if v, err := ebmlReadUintChild(atom, ebmlChapTimeEnd); err == nil {
		ch.End = v
	}
	if disp, err := atom.SubelementByPath(ebmlChapDisplay); err == nil && disp != nil {
		if s, err := ebmlReadStringChild(disp, ebmlChapString); err == nil {
			ch.Title = s
		}
		if s, err := ebmlReadStringChild(disp, ebmlChapLanguage); err == nil {
			ch.Language = s
		}
	}
	if nested, err := ebmlFindAllChildren(atom, ebmlChapterAtom); err == nil {
		for _, n := range nested {
			ch.Children = append(ch.Children, parseChapterAtom(n))
		}
	}
	return ch
}

func (c *Container) parseMatroskaAttachments() error {
	attEl, err := c.mkv.segment.SubelementByPath(ebmlAttachmentsID)
	if err != nil || attEl == nil {
		return nil
	}
	files, err := ebmlFindAllChildren(attEl, ebmlAttachedFile)
	if err != nil {
		return err
	}
	for _, f := range files {
		a := Attachment{}
		if s, err := ebmlReadStringChild(f, ebmlFileDesc); err == nil {
			a.Description = s
		}
		if s, err := ebmlReadStringChild(f, ebmlFileName); err == nil {
			a.Filename = s
		}
		if s, err := ebmlReadStringChild(f, ebmlFileMimeType); err == nil {
			a.MIME = s
		}
		if v, err := ebmlReadUintChild(f, ebmlFileUID); err == nil {
			a.UID = uint64(v)
		}
		c.Attachments = append(c.Attachments, a)
	}
	return nil
}

// --- small EBML tree helpers shared across container/matroska.go and
// tagcodec/matroska.go would otherwise duplicate; kept local since the
// two packages serve different element subtrees.

func ebmlReadUintChild(parent *element.Element, id uint64) (int64, error) {
	child, err := parent.SubelementByPath(id)
	if err != nil || child == nil {
		return 0, mediaerr.New(mediaerr.NoDataFound, "container.matroska", "child not found")
	}
	data, err := child.Data()
	if err != nil {
		return 0, err
	}
	var v int64
	for _, b := range data {
		v = v<<8 | int64(b)
	}
	return v, nil
}

func ebmlReadStringChild(parent *element.Element, id uint64) (string, error) {
	child, err := parent.SubelementByPath(id)
	if err != nil || child == nil {
		return "", mediaerr.New(mediaerr.NoDataFound, "container.matroska", "child not found")
	}
	data, err := child.Data()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func ebmlReadFloatChild(parent *element.Element, id uint64) (float64, error) {
	child, err := parent.SubelementByPath(id)
	if err != nil || child == nil {
		return 0, mediaerr.New(mediaerr.NoDataFound, "container.matroska", "child not found")
	}
	data, err := child.Data()
	if err != nil {
		return 0, err
	}
	if len(data) == 8 {
		var bits uint64
		for _, b := range data {
			bits = bits<<8 | uint64(b)
		}
		return math.Float64frombits(bits), nil
	}
	return 0, nil
}

func ebmlFindAllChildren(parent *element.Element, id uint64) ([]*element.Element, error) {
	var out []*element.Element
	child, err := parent.FirstChild()
	if err != nil {
		return nil, err
	}
	containerEnd := parent.DataOffset() + parent.DataSize()
	for child != nil {
		if err := child.Parse(); err != nil {
			break
		}
		if child.ID() == id {
			out = append(out, child)
		}
		next, err := child.NextSibling(containerEnd)
		if err != nil {
			break
		}
		child = next
	}
	return out, nil
}
