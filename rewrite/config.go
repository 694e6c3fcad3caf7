// Package rewrite implements the container rewriter (spec.md §4.7.3): given
// a parsed container plus in-memory tag/track/attachment mutations and a
// layout configuration, it produces a rewritten stream. Every format is
// written out in full to the destination; no in-place patching of the
// source is performed. For MP4 the chunk offset tables are updated so
// media samples remain addressable.
//
// There is no teacher analogue (dhowden-tag is read-only); the algorithm
// is built directly from spec.md's description, in the teacher's plain
// function-per-concern style.
package rewrite

// Position is the element-ordering policy for tags (relative to media
// data) and, for Matroska, the Cues index.
type Position int

const (
	// Keep preserves the source's existing position.
	Keep Position = iota
	BeforeData
	AfterData
)

// Config is the rewriter's layout configuration (spec.md §4.7.3).
type Config struct {
	ForceRewrite      bool
	TagPosition       Position
	IndexPosition     Position
	ForceTagPosition  bool
	ForceIndexPosition bool
	MinPadding        int64
	MaxPadding        int64
	PreferredPadding  int64
}

// DefaultConfig matches the teacher's implicit behavior: keep whatever
// layout the source already has, with a modest preferred padding.
func DefaultConfig() Config {
	return Config{
		TagPosition:      Keep,
		IndexPosition:    Keep,
		MinPadding:       0,
		MaxPadding:       8192,
		PreferredPadding: 1024,
	}
}

// clampPadding returns a padding size within [cfg.MinPadding, cfg.MaxPadding]
// as close to cfg.PreferredPadding as possible.
func (cfg Config) clampPadding() int64 {
	p := cfg.PreferredPadding
	if p < cfg.MinPadding {
		p = cfg.MinPadding
	}
	if cfg.MaxPadding > 0 && p > cfg.MaxPadding {
		p = cfg.MaxPadding
	}
	if p < 0 {
		p = 0
	}
	return p
}
