package tagmodel

import (
	"testing"

	"github.com/dhowden/mediatag/tagvalue"
)

func TestBasicTagFieldRoundTrip(t *testing.T) {
	fm := NewFieldMap(map[tagvalue.Field]NativeID{
		tagvalue.Title: "TIT2",
	})
	bt := NewBasicTag(fm, []NativeID{"COMM"}, Target{},
		func(string) tagvalue.Encoding { return tagvalue.UTF8 },
		func(tagvalue.Encoding) bool { return true })

	if bt.SupportsField(tagvalue.Artist) {
		t.Errorf("SupportsField(Artist) = true, want false (unmapped)")
	}
	if !bt.SupportsField(tagvalue.Title) {
		t.Errorf("SupportsField(Title) = false, want true")
	}

	bt.SetField(tagvalue.Title, tagvalue.NewText("hello", tagvalue.UTF8))
	v, ok := bt.GetField(tagvalue.Title)
	if !ok || v.Text != "hello" {
		t.Errorf("GetField(Title) = %+v, %v", v, ok)
	}
	if bt.FieldCount() != 1 {
		t.Errorf("FieldCount() = %d, want 1", bt.FieldCount())
	}

	bt.SetNative("COMM", tagvalue.NewText("c1", tagvalue.UTF8))
	bt.SetNative("COMM", tagvalue.NewText("c2", tagvalue.UTF8))
	if len(bt.GetNative("COMM")) != 2 {
		t.Errorf("multi-value COMM has %d entries, want 2", len(bt.GetNative("COMM")))
	}

	bt.RemoveField(tagvalue.Title)
	if _, ok := bt.GetField(tagvalue.Title); ok {
		t.Errorf("Title still present after RemoveField")
	}
}
