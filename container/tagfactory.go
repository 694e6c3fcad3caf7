package container

import (
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagmodel"
)

// These thin wrappers exist only so container.CreateTag can return the
// tagmodel.Tag interface without every call site importing tagcodec
// directly; the concrete type still satisfies tagmodel.Tag on its own.

func tagcodecNewMP4() tagmodel.Tag { return tagcodec.NewMP4Tag() }

func tagcodecNewMatroska(target tagmodel.Target) tagmodel.Tag {
	return tagcodec.NewMatroskaTag(target)
}

func tagcodecNewVorbis() tagmodel.Tag { return tagcodec.NewVorbisTag("") }

func tagcodecNewID3v2() tagmodel.Tag { return tagcodec.NewID3v2Tag(3) }
