package tagmodel

import "github.com/dhowden/mediatag/tagvalue"

// FieldMap is a codec's bidirectional mapping between the closed
// tagvalue.Field enum and its own NativeID space (spec.md §3 "Known
// field": "Each codec maps a subset of known fields to native field ids;
// unmapped fields report supports_field = false").
type FieldMap struct {
	ToNative map[tagvalue.Field]NativeID
	ToField  map[NativeID]tagvalue.Field
}

// NewFieldMap builds a FieldMap from a field->native table, deriving the
// reverse lookup automatically.
func NewFieldMap(toNative map[tagvalue.Field]NativeID) FieldMap {
	fm := FieldMap{ToNative: toNative, ToField: map[NativeID]tagvalue.Field{}}
	for f, n := range toNative {
		fm.ToField[n] = f
	}
	return fm
}

// BasicTag is a reusable storage layer every tagcodec type embeds,
// supplying the generic field/native bookkeeping so each codec need only
// supply its FieldMap, encoding policy, and multi-value id set. This
// generalizes the ad hoc per-format structs of the teacher
// (metadataID3v2, metadataMP4, metadataFLAC in dhowden-tag) into one
// shared implementation behind the Tag interface.
type BasicTag struct {
	fields     FieldMap
	native     map[NativeID][]tagvalue.Value
	order      []NativeID // insertion order, for stable iteration/round-trip
	multiValue map[NativeID]bool
	target     Target

	proposeEncoding func(s string) tagvalue.Encoding
	canUseEncoding  func(enc tagvalue.Encoding) bool
}

// NewBasicTag constructs an empty BasicTag. multiValue lists native ids
// that accumulate multiple values (e.g. ID3v2's COMM/APIC, Vorbis's
// PERFORMER); all others replace on Set.
func NewBasicTag(fields FieldMap, multiValue []NativeID, target Target,
	proposeEncoding func(string) tagvalue.Encoding, canUseEncoding func(tagvalue.Encoding) bool) *BasicTag {
	mv := make(map[NativeID]bool, len(multiValue))
	for _, id := range multiValue {
		mv[id] = true
	}
	return &BasicTag{
		fields:          fields,
		native:          map[NativeID][]tagvalue.Value{},
		multiValue:      mv,
		target:          target,
		proposeEncoding: proposeEncoding,
		canUseEncoding:  canUseEncoding,
	}
}

func (t *BasicTag) Target() Target { return t.target }

func (t *BasicTag) GetField(f tagvalue.Field) (tagvalue.Value, bool) {
	id, ok := t.fields.ToNative[f]
	if !ok {
		return tagvalue.Value{}, false
	}
	vals := t.native[id]
	if len(vals) == 0 {
		return tagvalue.Value{}, false
	}
	return vals[0], true
}

func (t *BasicTag) SetField(f tagvalue.Field, v tagvalue.Value) {
	id, ok := t.fields.ToNative[f]
	if !ok {
		return
	}
	t.SetNative(id, v)
}

func (t *BasicTag) RemoveField(f tagvalue.Field) {
	id, ok := t.fields.ToNative[f]
	if !ok {
		return
	}
	t.RemoveNative(id)
}

func (t *BasicTag) GetNative(id NativeID) []tagvalue.Value {
	return t.native[id]
}

func (t *BasicTag) SetNative(id NativeID, v ...tagvalue.Value) {
	if _, existed := t.native[id]; !existed {
		t.order = append(t.order, id)
	}
	if t.multiValue[id] {
		t.native[id] = append(t.native[id], v...)
	} else {
		if len(v) > 0 {
			t.native[id] = v[:1]
		}
	}
}

func (t *BasicTag) RemoveNative(id NativeID) {
	delete(t.native, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *BasicTag) FieldCount() int { return len(t.order) }

func (t *BasicTag) SupportsField(f tagvalue.Field) bool {
	_, ok := t.fields.ToNative[f]
	return ok
}

func (t *BasicTag) ProposedTextEncoding(s string) tagvalue.Encoding {
	return t.proposeEncoding(s)
}

func (t *BasicTag) CanUseEncoding(enc tagvalue.Encoding) bool {
	return t.canUseEncoding(enc)
}

func (t *BasicTag) EnsureTextValuesProperlyEncoded() {
	for id, vals := range t.native {
		for i, v := range vals {
			if v.Kind == tagvalue.Text && !t.canUseEncoding(v.TextEncoding) {
				v.TextEncoding = t.proposeEncoding(v.Text)
				vals[i] = v
			}
		}
		t.native[id] = vals
	}
}

// NativeIDs returns every native id currently set, in insertion order, for
// codecs that need to serialize in a stable field order.
func (t *BasicTag) NativeIDs() []NativeID {
	out := make([]NativeID, len(t.order))
	copy(out, t.order)
	return out
}
