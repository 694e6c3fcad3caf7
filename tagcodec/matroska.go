package tagcodec

import (
	"strings"

	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/tagvalue"
)

// Matroska SimpleTag element ids, grounded on the Matroska tag registry
// referenced in spec.md §4.6.4.
const (
	ebmlTargets       uint64 = 0x63C0
	ebmlTargetType    uint64 = 0x63CA
	ebmlTargetTypeVal uint64 = 0x68CA
	ebmlTagTrackUID   uint64 = 0x63C5
	ebmlTagEditionUID uint64 = 0x63C9
	ebmlTagChapterUID uint64 = 0x63C4
	ebmlSimpleTag     uint64 = 0x67C8
	ebmlTagName       uint64 = 0x45A3
	ebmlTagLanguage   uint64 = 0x447A
	ebmlTagDefault    uint64 = 0x4484
	ebmlTagString     uint64 = 0x4487
	ebmlTagBinary     uint64 = 0x4485
)

var matroskaFieldMap = tagmodel.NewFieldMap(map[tagvalue.Field]tagmodel.NativeID{
	tagvalue.Title:         "TITLE",
	tagvalue.Artist:        "ARTIST",
	tagvalue.Album:         "ALBUM",
	tagvalue.Genre:         "GENRE",
	tagvalue.Comment:       "COMMENT",
	tagvalue.RecordDate:    "DATE_RELEASED",
	tagvalue.PartNumber:    "PART_NUMBER",
	tagvalue.TotalParts:    "TOTAL_PARTS",
	tagvalue.Composer:      "COMPOSER",
	tagvalue.Encoder:       "ENCODER",
	tagvalue.AlbumArtist:   "ARTIST",
	tagvalue.Lyrics:        "LYRICS",
	tagvalue.Bpm:           "BPM",
})

// SimpleTagNode is a nested Matroska SimpleTag, since spec.md §4.6.4
// requires "reading builds a tree of (name, value, children); writing
// re-emits the tree" — richer than the flat native-id map BasicTag
// provides, so the Matroska codec layers a tree on top of it.
type SimpleTagNode struct {
	Name     string
	Language string
	Default  bool
	String   string
	Binary   []byte
	Children []SimpleTagNode
}

// MatroskaTag extends tagmodel.BasicTag with the nested SimpleTag tree,
// preserved across read/write even for names the field map doesn't know.
type MatroskaTag struct {
	*tagmodel.BasicTag
	Nodes []SimpleTagNode
}

// NewMatroskaTag constructs an empty Matroska tagmodel.Tag scoped to target.
func NewMatroskaTag(target tagmodel.Target) *MatroskaTag {
	bt := tagmodel.NewBasicTag(matroskaFieldMap, nil, target,
		func(string) tagvalue.Encoding { return tagvalue.UTF8 },
		func(enc tagvalue.Encoding) bool { return enc == tagvalue.UTF8 },
	)
	return &MatroskaTag{BasicTag: bt}
}

// ReadMatroskaTag decodes one Tag element (Targets + SimpleTag*) into a
// MatroskaTag. There is no teacher source for Matroska tag reading (the
// retrieved luispater-matroska-go exposes a demuxer with GetTags() but no
// SimpleTag model); this is grounded directly on spec.md §4.6.4 and the
// EBML VINT handling already established in element/ebml.go.
func ReadMatroskaTag(tagEl *element.Element, sink *diag.Sink) (*MatroskaTag, error) {
	target := tagmodel.Target{}
	if targetsEl, err := tagEl.SubelementByPath(ebmlTargets); err == nil && targetsEl != nil {
		target = readMatroskaTarget(targetsEl)
	}
	mt := NewMatroskaTag(target)

	child, err := tagEl.FirstChild()
	if err != nil {
		return mt, err
	}
	containerEnd := tagEl.DataOffset() + tagEl.DataSize()
	for child != nil {
		if err := child.Parse(); err != nil {
			sink.Logf(diag.Warning, "tagcodec.matroska", "skipping malformed Tag child: %v", err)
			break
		}
		if child.ID() == ebmlSimpleTag {
			node, err := readSimpleTag(child, sink)
			if err != nil {
				sink.Logf(diag.Warning, "tagcodec.matroska", "SimpleTag: %v", err)
			} else {
				mt.Nodes = append(mt.Nodes, node)
				mt.SetNative(tagmodel.NativeID(node.Name), tagvalue.NewText(node.String, tagvalue.UTF8))
			}
		}
		next, err := child.NextSibling(containerEnd)
		if err != nil {
			break
		}
		child = next
	}
	return mt, nil
}

func readMatroskaTarget(targetsEl *element.Element) tagmodel.Target {
	t := tagmodel.Target{Level: tagmodel.LevelAlbum}
	if v, err := ebmlChildUintTag(targetsEl, ebmlTargetTypeVal); err == nil {
		t.Level = tagmodel.TargetLevel(v)
	}
	if v, err := ebmlChildUintTag(targetsEl, ebmlTagTrackUID); err == nil {
		t.TrackIDs = append(t.TrackIDs, uint64(v))
	}
	if v, err := ebmlChildUintTag(targetsEl, ebmlTagEditionUID); err == nil {
		t.EditionIDs = append(t.EditionIDs, uint64(v))
	}
	if v, err := ebmlChildUintTag(targetsEl, ebmlTagChapterUID); err == nil {
		t.ChapterIDs = append(t.ChapterIDs, uint64(v))
	}
	return t
}

func readSimpleTag(el *element.Element, sink *diag.Sink) (SimpleTagNode, error) {
	node := SimpleTagNode{Default: true}
	if s, err := ebmlChildStringTag(el, ebmlTagName); err == nil {
		node.Name = strings.ToUpper(s)
	}
	if s, err := ebmlChildStringTag(el, ebmlTagLanguage); err == nil {
		node.Language = s
	}
	if v, err := ebmlChildUintTag(el, ebmlTagDefault); err == nil {
		node.Default = v != 0
	}
	if s, err := ebmlChildStringTag(el, ebmlTagString); err == nil {
		node.String = s
	}
	if b, err := ebmlChildBinaryTag(el, ebmlTagBinary); err == nil {
		node.Binary = b
	}

	child, err := el.FirstChild()
	if err != nil {
		return node, err
	}
	containerEnd := el.DataOffset() + el.DataSize()
	for child != nil {
		if err := child.Parse(); err != nil {
			break
		}
		if child.ID() == ebmlSimpleTag {
			nested, err := readSimpleTag(child, sink)
			if err == nil {
				node.Children = append(node.Children, nested)
			}
		}
		next, err := child.NextSibling(containerEnd)
		if err != nil {
			break
		}
		child = next
	}
	return node, nil
}

func ebmlChildUintTag(parent *element.Element, id uint64) (int64, error) {
	child, err := parent.SubelementByPath(id)
	if err != nil || child == nil {
		return 0, errNoSuchChild
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

func ebmlChildStringTag(parent *element.Element, id uint64) (string, error) {
	child, err := parent.SubelementByPath(id)
	if err != nil || child == nil {
		return "", errNoSuchChild
	}
	data, err := child.Data()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func ebmlChildBinaryTag(parent *element.Element, id uint64) ([]byte, error) {
	child, err := parent.SubelementByPath(id)
	if err != nil || child == nil {
		return nil, errNoSuchChild
	}
	return child.Data()
}

var errNoSuchChild = &noSuchChildErr{}

type noSuchChildErr struct{}

func (*noSuchChildErr) Error() string { return "tagcodec: no such child element" }

// WriteMatroskaTag re-emits a Tag element's bytes (Targets, then every
// root SimpleTag node recursively), per spec.md §4.6.4 ("writing re-emits
// the tree").
func WriteMatroskaTag(mt *MatroskaTag) []byte {
	var body []byte
	body = append(body, encodeTargets(mt.Target())...)
	for _, n := range mt.Nodes {
		body = append(body, encodeSimpleTag(n)...)
	}
	return ebmlWrap(0x7373, body) // Tag
}

func encodeTargets(t tagmodel.Target) []byte {
	var body []byte
	body = append(body, ebmlWrapUint(ebmlTargetTypeVal, uint64(t.Level))...)
	for _, id := range t.TrackIDs {
		body = append(body, ebmlWrapUint(ebmlTagTrackUID, id)...)
	}
	for _, id := range t.EditionIDs {
		body = append(body, ebmlWrapUint(ebmlTagEditionUID, id)...)
	}
	for _, id := range t.ChapterIDs {
		body = append(body, ebmlWrapUint(ebmlTagChapterUID, id)...)
	}
	return ebmlWrap(ebmlTargets, body)
}

func encodeSimpleTag(n SimpleTagNode) []byte {
	var body []byte
	body = append(body, ebmlWrapString(ebmlTagName, n.Name)...)
	if n.Language != "" {
		body = append(body, ebmlWrapString(ebmlTagLanguage, n.Language)...)
	}
	def := uint64(0)
	if n.Default {
		def = 1
	}
	body = append(body, ebmlWrapUint(ebmlTagDefault, def)...)
	if n.String != "" {
		body = append(body, ebmlWrapString(ebmlTagString, n.String)...)
	}
	if len(n.Binary) > 0 {
		body = append(body, ebmlWrap(ebmlTagBinary, n.Binary)...)
	}
	for _, c := range n.Children {
		body = append(body, encodeSimpleTag(c)...)
	}
	return ebmlWrap(ebmlSimpleTag, body)
}

// ebmlWrap/ebmlWrapUint/ebmlWrapString encode a minimal EBML element: an
// id of 1-4 bytes (this package only uses ids that fit in 1-4 bytes with
// their marker bit already included) followed by a VINT size and the payload.
// Grounded on the VINT shape established in element/ebml.go, mirrored here
// for writing since that package only reads.
func ebmlWrap(id uint64, data []byte) []byte {
	idBytes := ebmlEncodeID(id)
	sizeBytes := ebmlEncodeSize(uint64(len(data)))
	out := make([]byte, 0, len(idBytes)+len(sizeBytes)+len(data))
	out = append(out, idBytes...)
	out = append(out, sizeBytes...)
	out = append(out, data...)
	return out
}

func ebmlWrapUint(id uint64, v uint64) []byte {
	var b []byte
	if v == 0 {
		b = []byte{0}
	}
	for tmp := v; tmp > 0; tmp >>= 8 {
		b = append([]byte{byte(tmp)}, b...)
	}
	return ebmlWrap(id, b)
}

func ebmlWrapString(id uint64, s string) []byte {
	return ebmlWrap(id, []byte(s))
}

func ebmlEncodeID(id uint64) []byte {
	// id already carries its own length marker bit (as read by
	// element.EBMLKind), so its byte width is determined by its
	// highest set byte.
	switch {
	case id <= 0xFF:
		return []byte{byte(id)}
	case id <= 0xFFFF:
		return []byte{byte(id >> 8), byte(id)}
	case id <= 0xFFFFFF:
		return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	default:
		return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	}
}

func ebmlEncodeSize(size uint64) []byte {
	switch {
	case size < 1<<7-1:
		return []byte{byte(size) | 0x80}
	case size < 1<<14-1:
		return []byte{byte(size>>8) | 0x40, byte(size)}
	case size < 1<<21-1:
		return []byte{byte(size>>16) | 0x20, byte(size >> 8), byte(size)}
	default:
		return []byte{byte(size>>24) | 0x10, byte(size >> 16), byte(size >> 8), byte(size)}
	}
}
