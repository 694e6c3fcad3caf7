// Package element implements the generic hierarchical element engine of
// spec.md §4.4: a parametric tree of length-prefixed elements, lazily
// parsed from a seekable stream, with path-based lookup and uniform
// copy/buffer/rewrite primitives. It generalizes the teacher's per-format,
// ad hoc atom/block walkers (dhowden-tag's mp4.go readAtoms/readAtomHeader,
// flac.go readFLACMetadataBlock) into one engine driven by a small Kind
// interface, one per container family (mp4.go, ebml.go, ogg.go, flac.go,
// id3v2.go in this package).
//
// Per spec.md §9 ("Polymorphic track/tag"), element ownership avoids
// parent back-pointers that would form reference cycles: a parent owns its
// first child, an element owns its next sibling, and any code that needs
// to walk upward does so via an explicit parent argument passed down
// during traversal, not a stored pointer.
package element

import (
	"fmt"
	"io"

	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/progress"
)

// Kind is the specialization hook per spec.md §4.4 ("Specializations
// override is_parent(), is_padding(), first_child_offset(), and
// internal_parse()"). One Kind implementation exists per container family.
type Kind interface {
	// Name returns a short diagnostic name for the kind (e.g. "mp4").
	Name() string
	// MinElementSize is the minimum total (header+data) size below which
	// an element is fatally malformed.
	MinElementSize() int64
	// IsParent reports whether an element with this id has children.
	IsParent(id uint64) bool
	// IsPadding reports whether an element with this id is a padding
	// element whose size should be accumulated rather than descended into.
	IsPadding(id uint64) bool
	// ReadHeader reads one element header at the stream's current
	// position (which is start). It returns the element id, the header
	// size in bytes, and the data size in bytes. availableMax bounds how
	// many bytes remain in the immediately enclosing container.
	ReadHeader(r io.ReadSeeker, start, availableMax int64) (id uint64, headerSize, dataSize int64, err error)
	// FirstChildOffset returns how many bytes into an element's data the
	// first child begins, for container-specific preambles (MP4 "meta"'s
	// 4-byte version/flags, "dref"/"stsd"'s 8-byte entry-count prefix).
	FirstChildOffset(id uint64) int64
}

// Element is a node in a container's parse tree (spec.md §3 "Element").
type Element struct {
	kind Kind
	r    io.ReadSeeker

	id         uint64
	start      int64
	headerSize int64
	dataSize   int64
	maxSize    int64

	parsed      bool
	firstChild  *Element
	nextSibling *Element
	childScanned bool // whether firstChild has been attempted

	buffer []byte // non-nil once MakeBuffer has cached the raw bytes
}

// New creates an unparsed element at the given stream offset. maxSize is
// the remaining capacity of the containing element (or stream length for a
// root element); spec.md's invariant header_size+data_size<=max_size is
// enforced by Parse.
func New(kind Kind, r io.ReadSeeker, start, maxSize int64) *Element {
	return &Element{kind: kind, r: r, start: start, maxSize: maxSize}
}

// ID returns the element's identifier. Valid only after Parse.
func (e *Element) ID() uint64 { return e.id }

// StartOffset returns the element's start offset within the stream.
func (e *Element) StartOffset() int64 { return e.start }

// HeaderSize returns the header size in bytes. Valid only after Parse.
func (e *Element) HeaderSize() int64 { return e.headerSize }

// DataSize returns the data size in bytes. Valid only after Parse.
func (e *Element) DataSize() int64 { return e.dataSize }

// DataOffset returns the stream offset of the first data byte.
func (e *Element) DataOffset() int64 { return e.start + e.headerSize }

// TotalSize returns header size plus data size.
func (e *Element) TotalSize() int64 { return e.headerSize + e.dataSize }

// MaxSize returns the maximum size this element may occupy (its parent's
// remaining capacity at the time it was constructed).
func (e *Element) MaxSize() int64 { return e.maxSize }

// IsParsed reports whether Parse has succeeded at least once.
func (e *Element) IsParsed() bool { return e.parsed }

// Kind returns the specialization driving this element's behavior.
func (e *Element) Kind() Kind { return e.kind }

// Parse reads the header at start_offset, idempotently: a second call
// without Reparse is a no-op. Per spec.md §3, an element is either
// unparsed or fully parsed; there is no observable partial state.
func (e *Element) Parse() error {
	if e.parsed {
		return nil
	}
	return e.Reparse()
}

// Reparse forces a re-read of the header, e.g. after the underlying bytes
// were mutated in place.
func (e *Element) Reparse() error {
	if _, err := e.r.Seek(e.start, io.SeekStart); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "element.Reparse", err)
	}
	id, headerSize, dataSize, err := e.kind.ReadHeader(e.r, e.start, e.maxSize)
	if err != nil {
		return mediaerr.Wrap(mediaerr.InvalidData, fmt.Sprintf("element.Reparse[%s]", e.kind.Name()), err)
	}
	total := headerSize + dataSize
	if total < e.kind.MinElementSize() {
		return mediaerr.New(mediaerr.TruncatedData, "element.Reparse",
			fmt.Sprintf("%s element at %d smaller than minimum size (%d < %d)",
				e.kind.Name(), e.start, total, e.kind.MinElementSize()))
	}
	if total > e.maxSize {
		// Truncated to the parent so callers never see an element that
		// claims to extend past its container. No warning is logged for
		// the clamp, here or in ValidateSubsequentElementStructure.
		dataSize = e.maxSize - headerSize
		if dataSize < 0 {
			return mediaerr.New(mediaerr.TruncatedData, "element.Reparse",
				fmt.Sprintf("%s element at %d: header alone (%d) exceeds max_size (%d)",
					e.kind.Name(), e.start, headerSize, e.maxSize))
		}
	}
	e.id = id
	e.headerSize = headerSize
	e.dataSize = dataSize
	e.parsed = true
	e.firstChild = nil
	e.nextSibling = nil
	e.childScanned = false
	return nil
}

// FirstChild returns (and lazily constructs) the first child element, or
// nil if this element is not a parent kind or has no data.
func (e *Element) FirstChild() (*Element, error) {
	if err := e.Parse(); err != nil {
		return nil, err
	}
	if e.childScanned {
		return e.firstChild, nil
	}
	e.childScanned = true
	if !e.kind.IsParent(e.id) || e.dataSize <= 0 {
		return nil, nil
	}
	off := e.kind.FirstChildOffset(e.id)
	if off >= e.dataSize {
		return nil, nil
	}
	childStart := e.DataOffset() + off
	childMax := e.dataSize - off
	e.firstChild = New(e.kind, e.r, childStart, childMax)
	return e.firstChild, nil
}

// NextSibling returns (and lazily constructs) the next sibling element
// within the same parent, or nil if this was the last child/root.
func (e *Element) NextSibling(parentEnd int64) (*Element, error) {
	if err := e.Parse(); err != nil {
		return nil, err
	}
	if e.nextSibling != nil {
		return e.nextSibling, nil
	}
	next := e.start + e.TotalSize()
	if next >= parentEnd {
		return nil, nil
	}
	e.nextSibling = New(e.kind, e.r, next, parentEnd-next)
	return e.nextSibling, nil
}

// ChildByID parses children in order looking for the first with the given
// id, per spec.md's child_by_id.
func (e *Element) ChildByID(id uint64, parentEnd int64) (*Element, error) {
	child, err := e.FirstChild()
	if err != nil || child == nil {
		return nil, err
	}
	return child.siblingByIDFrom(id, e.DataOffset()+e.dataSize)
}

func (e *Element) siblingByIDFrom(id uint64, containerEnd int64) (*Element, error) {
	cur := e
	for cur != nil {
		if err := cur.Parse(); err != nil {
			return nil, err
		}
		if cur.id == id {
			return cur, nil
		}
		next, err := cur.NextSibling(containerEnd)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return nil, nil
}

// SiblingByID is sugar for starting a sibling search at e itself.
func (e *Element) SiblingByID(id uint64, containerEnd int64) (*Element, error) {
	return e.siblingByIDFrom(id, containerEnd)
}

// SubelementByPath descends child_by_id repeatedly, one id per path
// segment, as spec.md's subelement_by_path.
func (e *Element) SubelementByPath(ids ...uint64) (*Element, error) {
	cur := e
	for _, id := range ids {
		if err := cur.Parse(); err != nil {
			return nil, err
		}
		next, err := cur.ChildByID(id, cur.DataOffset()+cur.dataSize)
		if err != nil || next == nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Data reads and returns this element's data bytes (excluding the header),
// for format-specific parsers (track, tagcodec) that need random access
// into a small, bounded region rather than a streaming copy.
func (e *Element) Data() ([]byte, error) {
	if err := e.Parse(); err != nil {
		return nil, err
	}
	if e.buffer != nil {
		return e.buffer[e.headerSize:], nil
	}
	if _, err := e.r.Seek(e.DataOffset(), io.SeekStart); err != nil {
		return nil, mediaerr.Wrap(mediaerr.IoError, "element.Data", err)
	}
	buf := make([]byte, e.dataSize)
	if _, err := io.ReadFull(e.r, buf); err != nil {
		return nil, mediaerr.Wrap(mediaerr.IoError, "element.Data", err)
	}
	return buf, nil
}

// CopyHeader writes a byte-exact copy of just the header region to dst.
func (e *Element) CopyHeader(dst io.Writer) error {
	return e.copyRegion(dst, e.start, e.headerSize)
}

// CopyWithoutChildren writes a byte-exact copy of the header plus any
// non-child preamble bytes (e.g. MP4 "meta"'s version/flags word), but
// stops before the first child's data.
func (e *Element) CopyWithoutChildren(dst io.Writer) error {
	off := e.kind.FirstChildOffset(e.id)
	return e.copyRegion(dst, e.start, e.headerSize+off)
}

// CopyEntirely writes a byte-exact copy of header and all data (including
// children) to dst.
func (e *Element) CopyEntirely(dst io.Writer) error {
	return e.copyRegion(dst, e.start, e.TotalSize())
}

func (e *Element) copyRegion(dst io.Writer, start, n int64) error {
	if e.buffer != nil {
		bufStart := start - e.start
		if bufStart >= 0 && bufStart+n <= int64(len(e.buffer)) {
			_, err := dst.Write(e.buffer[bufStart : bufStart+n])
			return err
		}
	}
	if _, err := e.r.Seek(start, io.SeekStart); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "element.copyRegion", err)
	}
	if _, err := io.CopyN(dst, e.r, n); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "element.copyRegion", err)
	}
	return nil
}

// MakeBuffer caches this element's raw bytes (header+data) in memory so
// the source stream can later be closed or repositioned elsewhere.
func (e *Element) MakeBuffer() error {
	if e.buffer != nil {
		return nil
	}
	if err := e.Parse(); err != nil {
		return err
	}
	if _, err := e.r.Seek(e.start, io.SeekStart); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "element.MakeBuffer", err)
	}
	buf := make([]byte, e.TotalSize())
	if _, err := io.ReadFull(e.r, buf); err != nil {
		return mediaerr.Wrap(mediaerr.IoError, "element.MakeBuffer", err)
	}
	e.buffer = buf
	return nil
}

// DiscardBuffer releases a buffer previously made with MakeBuffer.
func (e *Element) DiscardBuffer() {
	e.buffer = nil
}

// CopyBuffer writes the buffered bytes to dst; it fails if no buffer has
// been made.
func (e *Element) CopyBuffer(dst io.Writer) error {
	if e.buffer == nil {
		return mediaerr.New(mediaerr.InvalidData, "element.CopyBuffer", "no buffer made")
	}
	_, err := dst.Write(e.buffer)
	return err
}

// CopyPreferablyFromBuffer writes from the cached buffer if present,
// falling back to a fresh stream read otherwise.
func (e *Element) CopyPreferablyFromBuffer(dst io.Writer) error {
	if e.buffer != nil {
		return e.CopyBuffer(dst)
	}
	return e.CopyEntirely(dst)
}

// ValidateSubsequentElementStructure recursively parses all siblings and
// children starting at e, accumulating the total size of elements the
// specialization reports as padding, and catching and logging non-fatal
// per-element errors so the walk continues (spec.md §4.4, §7 "errors
// inside a single element during a tree walk are caught, logged, and the
// walk continues with the next sibling").
func (e *Element) ValidateSubsequentElementStructure(sink *diag.Sink, paddingTotal *int64, tok *progress.Token) error {
	containerEnd := e.start + e.maxSize
	return e.walk(sink, paddingTotal, tok, containerEnd)
}

func (e *Element) walk(sink *diag.Sink, paddingTotal *int64, tok *progress.Token, containerEnd int64) error {
	cur := e
	for cur != nil {
		if tok != nil {
			if err := tok.StopIfAborted(); err != nil {
				return err
			}
		}
		if err := cur.Parse(); err != nil {
			sink.Logf(diag.Critical, "element.walk", "skipping malformed %s element at %d: %v", cur.kind.Name(), cur.start, err)
			return nil // isolate the error to this point in the tree; caller decides whether to resume elsewhere
		}
		if cur.kind.IsPadding(cur.id) {
			*paddingTotal += cur.TotalSize()
		} else {
			child, err := cur.FirstChild()
			if err != nil {
				sink.Logf(diag.Warning, "element.walk", "error descending into %s at %d: %v", cur.kind.Name(), cur.start, err)
			} else if child != nil {
				if err := child.walk(sink, paddingTotal, tok, cur.DataOffset()+cur.dataSize); err != nil {
					return err
				}
			}
		}
		next, err := cur.NextSibling(containerEnd)
		if err != nil {
			sink.Logf(diag.Warning, "element.walk", "error finding sibling after %s at %d: %v", cur.kind.Name(), cur.start, err)
			return nil
		}
		cur = next
	}
	return nil
}
