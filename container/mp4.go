package container

import (
	"time"

	"github.com/dhowden/mediatag/bytesio"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/element"
	"github.com/dhowden/mediatag/mediaerr"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/track"
)

// mp4State holds the parsed top-level element layout: ftyp, moov, and
// every other top-level atom (mdat, pdin, moof/mfra, free/skip, or
// anything unrecognised — all treated as media payload per spec.md §4.7.3
// step 1) in original stream order.
type mp4State struct {
	root     *element.Element
	ftyp     *element.Element
	moov     *element.Element
	payload  []*element.Element
	fileSize int64
}

func mp4FourCC(s string) uint64 {
	v, _ := bytesio.FOURCCFromString(s)
	return uint64(v)
}

func (c *Container) parseMP4Container() error {
	size, err := streamSize(c.r)
	if err != nil {
		return err
	}
	st := &mp4State{fileSize: size}
	kind := element.MP4Kind{}

	pos := c.startOffset
	for pos < size {
		el := element.New(kind, c.r, pos, size-pos)
		if err := el.Parse(); err != nil {
			c.sink.Logf(diag.Critical, "container.mp4", "stopping top-level scan at %d: %v", pos, err)
			break
		}
		switch el.ID() {
		case mp4FourCC("ftyp"):
			st.ftyp = el
		case mp4FourCC("moov"):
			st.moov = el
		default:
			st.payload = append(st.payload, el)
		}
		pos += el.TotalSize()
	}
	if st.moov == nil {
		return mediaerr.New(mediaerr.InvalidData, "container.mp4", "no moov atom found")
	}
	c.mp4 = st

	if mvhd, err := st.moov.SubelementByPath(mp4FourCC("mvhd")); err == nil && mvhd != nil {
		if ts, dur, err := parseMvhd(mvhd); err == nil {
			c.Timescale = ts
			if ts > 0 {
				c.Duration = time.Duration(float64(dur) / float64(ts) * float64(time.Second))
			}
		}
	}
	c.DocType = "mp4"
	return nil
}

func parseMvhd(mvhd *element.Element) (timescale uint32, duration uint64, err error) {
	data, err := mvhd.Data()
	if err != nil {
		return 0, 0, err
	}
	if len(data) < 4 {
		return 0, 0, mediaerr.New(mediaerr.TruncatedData, "container.mp4.mvhd", "too short")
	}
	version := data[0]
	off := 4
	if version == 1 {
		off += 16
		timescale = be32(data[off:])
		off += 4
		duration = be64(data[off:])
	} else {
		off += 8
		timescale = be32(data[off:])
		off += 4
		duration = uint64(be32(data[off:]))
	}
	return timescale, duration, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func be64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func (c *Container) parseMP4Tracks() error {
	traks, err := findAllChildren(c.mp4.moov, mp4FourCC("trak"))
	if err != nil {
		return err
	}
	for _, trak := range traks {
		t, err := track.ParseMP4Track(trak)
		if err != nil {
			c.sink.Logf(diag.Warning, "container.mp4", "track parse error: %v", err)
		}
		c.Tracks = append(c.Tracks, t)
	}
	return nil
}

func findAllChildren(parent *element.Element, id uint64) ([]*element.Element, error) {
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

func (c *Container) parseMP4Tags() error {
	ilst, err := c.mp4.moov.SubelementByPath(mp4FourCC("udta"), mp4FourCC("meta"), mp4FourCC("ilst"))
	if err != nil || ilst == nil {
		return nil // absent is not an error: spec.md §4.7.2 phases tolerate missing tags
	}
	tag, err := tagcodec.ReadMP4Tag(ilst, c.sink)
	if err != nil {
		return err
	}
	c.Tags = append(c.Tags, tag)
	return nil
}

func streamSize(r interface{ Seek(int64, int) (int64, error) }) (int64, error) {
	cur, err := r.Seek(0, 1)
	if err != nil {
		return 0, err
	}
	size, err := r.Seek(0, 2)
	if err != nil {
		return 0, err
	}
	_, err = r.Seek(cur, 0)
	return size, err
}
