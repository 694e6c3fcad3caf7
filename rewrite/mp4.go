package rewrite

import (
	"bytes"
	"io"

	"github.com/dhowden/mediatag/bytesio"
	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/progress"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagmodel"
)

func fourcc(s string) uint64 { v, _ := bytesio.FOURCCFromString(s); return uint64(v) }

// payloadShift records, for one top-level non-ftyp/non-moov atom (mdat,
// pdin, moof/mfra, free/skip, or anything unrecognised — spec.md §4.7.3
// step 1 treats all of these as media payload to be copied through
// byte-for-byte), how far its start offset moves in the rewritten stream.
// Atoms keep their original relative order and size, but the gap any of
// them sits in can change independently (e.g. a moov that originally sat
// between two mdats collapses once moov moves to the front or back), so
// each atom gets its own shift rather than one flat value for the file.
type payloadShift struct {
	oldStart, size, shift int64
}

// makeMP4 rewrites an MP4 container per spec.md §4.7.3: locate ftyp, moov,
// and every other top-level atom (the "payload"), splice the new ilst into
// a copy of moov's bytes, then rewrite every stco/co64 entry by whichever
// payload segment it falls in shifted.
func makeMP4(dst io.Writer, c *container.Container, cfg Config, sink *diag.Sink, tok *progress.Token) error {
	r := c.Reader()
	size, err := seekSize(r)
	if err != nil {
		return err
	}
	kind := element.MP4Kind{}
	pos := c.StartOffset()

	var ftyp, moov *element.Element
	var payload []*element.Element

	for pos < size {
		el := element.New(kind, r, pos, size-pos)
		if err := el.Parse(); err != nil {
			break
		}
		switch el.ID() {
		case fourcc("ftyp"):
			ftyp = el
		case fourcc("moov"):
			moov = el
		default:
			payload = append(payload, el)
		}
		pos += el.TotalSize()
	}
	if moov == nil {
		return mediaerr.New(mediaerr.InvalidData, "rewrite.mp4", "no moov atom")
	}
	if len(payload) == 0 {
		return mediaerr.New(mediaerr.InvalidData, "rewrite.mp4", "no media payload atoms")
	}

	moovBytes, err := readRange(r, moov.StartOffset(), moov.TotalSize())
	if err != nil {
		return err
	}
	newMoov, err := spliceMP4Tag(moovBytes, findMP4Tag(c))
	if err != nil {
		return err
	}

	tagBeforeData := decideMP4TagPosition(cfg, moov, payload)
	padding := paddedFreeAtomSize(cfg.clampPadding())

	running := c.StartOffset()
	if ftyp != nil {
		running += ftyp.TotalSize()
	}
	if tagBeforeData {
		running += int64(len(newMoov)) + padding
	}
	shifts := make([]payloadShift, len(payload))
	for i, el := range payload {
		shifts[i] = payloadShift{el.StartOffset(), el.TotalSize(), running - el.StartOffset()}
		running += el.TotalSize()
	}
	rewriteChunkOffsets(newMoov, shifts)

	var out bytes.Buffer
	if ftyp != nil {
		if err := copyThrough(&out, r, ftyp.StartOffset(), ftyp.TotalSize(), tok, "ftyp"); err != nil {
			return err
		}
	}
	if tagBeforeData {
		out.Write(newMoov)
		writeFreeAtom(&out, padding)
	}
	for _, el := range payload {
		if err := copyThrough(&out, r, el.StartOffset(), el.TotalSize(), tok, bytesio.FOURCCAsString(uint32(el.ID()))); err != nil {
			return err
		}
	}
	if !tagBeforeData {
		writeFreeAtom(&out, padding)
		out.Write(newMoov)
	}

	_, err = dst.Write(out.Bytes())
	return err
}

// decideMP4TagPosition implements spec.md §4.7.3 step 3: keep the
// source's layout unless the caller forces a change.
func decideMP4TagPosition(cfg Config, moov *element.Element, payload []*element.Element) bool {
	switch cfg.TagPosition {
	case BeforeData:
		return true
	case AfterData:
		return false
	default: // Keep
		return moov.StartOffset() < payload[0].StartOffset()
	}
}

func findMP4Tag(c *container.Container) *tagmodel.BasicTag {
	for _, t := range c.Tags {
		if bt, ok := t.(*tagmodel.BasicTag); ok {
			return bt
		}
	}
	return nil
}

// spliceMP4Tag replaces moovBytes' udta/meta/ilst child (if any) with a
// freshly serialized one built from tag, propagating the resulting size
// delta up through meta/udta/moov's own 32-bit size fields. Returns
// moovBytes unchanged if there is no tag to write, or no existing ilst to
// anchor the splice on (creating a brand new udta/meta/ilst chain from
// scratch is left to a future full-rewrite pass: see DESIGN.md).
func spliceMP4Tag(moovBytes []byte, tag *tagmodel.BasicTag) ([]byte, error) {
	if tag == nil {
		return moovBytes, nil
	}
	r := bytes.NewReader(moovBytes)
	kind := element.MP4Kind{}
	moovEl := element.New(kind, r, 0, int64(len(moovBytes)))
	if err := moovEl.Parse(); err != nil {
		return moovBytes, nil
	}
	ilst, err := moovEl.SubelementByPath(fourcc("udta"), fourcc("meta"), fourcc("ilst"))
	if err != nil || ilst == nil {
		return moovBytes, nil
	}
	newIlstAtom := tagcodec.WriteMP4Tag(tag)

	out := make([]byte, 0, len(moovBytes)+len(newIlstAtom))
	out = append(out, moovBytes[:ilst.StartOffset()]...)
	out = append(out, newIlstAtom...)
	out = append(out, moovBytes[ilst.StartOffset()+ilst.TotalSize():]...)

	delta := int64(len(newIlstAtom)) - ilst.TotalSize()
	if delta != 0 {
		adjustAncestorSizes(out, moovEl, delta)
	}
	return out, nil
}

// adjustAncestorSizes patches the 32-bit size field of every atom that
// contains ilst (meta, udta, moov itself) by delta. The atoms are located
// against the pre-splice tree (moovEl); their start offsets are unaffected
// by the splice since ilst is their last or only relevant descendant
// changing size, and moov/udta/meta all precede it in the byte stream.
func adjustAncestorSizes(buf []byte, moovEl *element.Element, delta int64) {
	patchMP4Size(buf, moovEl.StartOffset(), moovEl.TotalSize()+delta)
	if udta, err := moovEl.SubelementByPath(fourcc("udta")); err == nil && udta != nil {
		patchMP4Size(buf, udta.StartOffset(), udta.TotalSize()+delta)
		if meta, err := udta.SubelementByPath(fourcc("meta")); err == nil && meta != nil {
			patchMP4Size(buf, meta.StartOffset(), meta.TotalSize()+delta)
		}
	}
}

func patchMP4Size(buf []byte, atomStart, newSize int64) {
	if atomStart+4 > int64(len(buf)) || newSize < 0 || newSize > 0xFFFFFFFF {
		return
	}
	copy(buf[atomStart:atomStart+4], bytesio.PutBEUint(uint64(newSize), 4))
}

func wrapMP4Atom(name string, body []byte) []byte {
	id, _ := bytesio.FOURCCFromString(name)
	size := uint32(8 + len(body))
	out := make([]byte, 0, size)
	out = append(out, bytesio.PutBEUint(uint64(size), 4)...)
	out = append(out, bytesio.PutBEUint(uint64(id), 4)...)
	out = append(out, body...)
	return out
}

func writeFreeAtom(w *bytes.Buffer, size int64) {
	w.Write(bytesio.PutBEUint(uint64(size), 4))
	w.Write(bytesio.PutBEUint(fourcc("free"), 4))
	w.Write(make([]byte, size-8))
}

func paddedFreeAtomSize(padding int64) int64 {
	if padding < 8 {
		return 8
	}
	return padding
}

// rewriteChunkOffsets walks every stco/co64 inside the in-memory moov copy
// and shifts each entry by whichever payload segment it originally pointed
// into, mutating moovBytes in place.
func rewriteChunkOffsets(moovBytes []byte, shifts []payloadShift) {
	r := bytes.NewReader(moovBytes)
	kind := element.MP4Kind{}
	root := element.New(kind, r, 0, int64(len(moovBytes)))
	if err := root.Parse(); err != nil {
		return
	}
	walkMP4(root, func(el *element.Element) {
		switch el.ID() {
		case fourcc("stco"):
			patchChunkOffsets(moovBytes, el, 4, shifts)
		case fourcc("co64"):
			patchChunkOffsets(moovBytes, el, 8, shifts)
		}
	})
}

// shiftForOffset returns the shift of the payload segment containing
// offset, or 0 if offset falls outside every recorded segment.
func shiftForOffset(shifts []payloadShift, offset int64) int64 {
	for _, s := range shifts {
		if offset >= s.oldStart && offset < s.oldStart+s.size {
			return s.shift
		}
	}
	return 0
}

func walkMP4(parent *element.Element, visit func(*element.Element)) {
	child, err := parent.FirstChild()
	if err != nil {
		return
	}
	end := parent.DataOffset() + parent.DataSize()
	mp4 := element.MP4Kind{}
	for child != nil {
		if err := child.Parse(); err != nil {
			return
		}
		visit(child)
		if mp4.IsParent(child.ID()) {
			walkMP4(child, visit)
		}
		next, err := child.NextSibling(end)
		if err != nil {
			return
		}
		child = next
	}
}

// patchChunkOffsets rewrites the width-byte (4 for stco, 8 for co64) entry
// table following the 4-byte version/flags + 4-byte entry count preamble
// (ISO/IEC 14496-12 Sample Table Box layout), shifting each entry by the
// payload segment it falls in.
func patchChunkOffsets(buf []byte, el *element.Element, width int64, shifts []payloadShift) {
	data, err := el.Data()
	if err != nil || int64(len(data)) < 8 {
		return
	}
	count := bytesio.BEUint(data[4:8])
	entriesStart := el.DataOffset() + 8
	for i := uint64(0); i < count; i++ {
		at := entriesStart + int64(i)*width
		if at+width > int64(len(buf)) {
			return
		}
		old := int64(bytesio.BEUint(buf[at : at+width]))
		shift := shiftForOffset(shifts, old)
		if shift == 0 {
			continue
		}
		copy(buf[at:at+width], bytesio.PutBEUint(uint64(old+shift), int(width)))
	}
}
