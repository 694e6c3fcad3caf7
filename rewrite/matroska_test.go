package rewrite

import (
	"bytes"
	"testing"

	"github.com/dhowden/mediatag/container"
	"github.com/dhowden/mediatag/diag"
	"github.com/dhowden/mediatag/tagcodec"
	"github.com/dhowden/mediatag/tagmodel"
)

// buildMatroskaWithCluster assembles EBML header + Segment{Info, Tags{tag},
// Cluster(clusterBody)}, reusing this package's own EBML VINT encoders
// (ebmlEncodeID/ebmlEncodeSize) so the fixture stays in sync with the
// rewriter's own encoding.
func buildMatroskaWithCluster(t *testing.T, tag *tagcodec.MatroskaTag, clusterBody []byte) []byte {
	t.Helper()
	docType := append(ebmlEncodeID(0x4282), append(ebmlEncodeSize(8), []byte("matroska")...)...)
	header := append(ebmlEncodeID(0x1A45DFA3), ebmlEncodeSize(int64(len(docType)))...)
	header = append(header, docType...)

	tsVal := []byte{0x0F, 0x42, 0x40} // 1000000
	info := append(ebmlEncodeID(0x2AD7B1), append(ebmlEncodeSize(int64(len(tsVal))), tsVal...)...)
	infoElem := append(ebmlEncodeID(matroskaInfoID), append(ebmlEncodeSize(int64(len(info))), info...)...)

	tagBytes := tagcodec.WriteMatroskaTag(tag)
	tagsBody := ebmlWrapTagsElement(tagBytes)

	clusterElem := append(ebmlEncodeID(matroskaClusterID), append(ebmlEncodeSize(int64(len(clusterBody))), clusterBody...)...)

	segBody := append(append([]byte{}, infoElem...), tagsBody...)
	segBody = append(segBody, clusterElem...)
	segment := append(ebmlEncodeID(0x18538067), append(ebmlEncodeSize(int64(len(segBody))), segBody...)...)

	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(segment)
	return buf.Bytes()
}

// TestMakeMatroskaNestedTagRoundTrip covers spec.md §8's "Matroska nested
// tags" scenario: a SimpleTag tree with a nested child round-trips through
// a rewrite, and the Cluster bytes (the audio payload) are preserved
// byte-for-byte.
func TestMakeMatroskaNestedTagRoundTrip(t *testing.T) {
	mt := tagcodec.NewMatroskaTag(tagmodel.Target{Level: tagmodel.LevelAlbum})
	mt.Nodes = []tagcodec.SimpleTagNode{
		{Name: "TITLE", Default: true, String: "Original Title"},
		{Name: "CREDITS", Default: true, String: "Someone", Children: []tagcodec.SimpleTagNode{
			{Name: "ROLE", Default: true, String: "Producer"},
		}},
	}
	clusterBody := []byte("cluster-audio-bytes-unchanged")
	src := buildMatroskaWithCluster(t, mt, clusterBody)

	var sink diag.Sink
	c, err := container.New(bytes.NewReader(src), &sink)
	if err != nil {
		t.Fatalf("container.New: %v", err)
	}
	if err := c.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything: %v", err)
	}
	if len(c.Tags) != 1 {
		t.Fatalf("len(Tags) = %d, want 1", len(c.Tags))
	}
	got, ok := c.Tags[0].(*tagcodec.MatroskaTag)
	if !ok {
		t.Fatalf("Tags[0] is %T, want *tagcodec.MatroskaTag", c.Tags[0])
	}
	for i := range got.Nodes {
		if got.Nodes[i].Name == "TITLE" {
			got.Nodes[i].String = "New Title"
		}
	}

	var out bytes.Buffer
	if err := Make(&out, c, DefaultConfig(), nil, &sink, nil); err != nil {
		t.Fatalf("Make: %v", err)
	}

	if !bytes.Contains(out.Bytes(), clusterBody) {
		t.Errorf("rewritten output does not contain the original cluster bytes")
	}

	var sink2 diag.Sink
	c2, err := container.New(bytes.NewReader(out.Bytes()), &sink2)
	if err != nil {
		t.Fatalf("re-parsing rewritten file: %v", err)
	}
	if err := c2.ParseEverything(); err != nil {
		t.Fatalf("ParseEverything on rewritten file: %v", err)
	}
	if len(c2.Tags) != 1 {
		t.Fatalf("rewritten len(Tags) = %d, want 1", len(c2.Tags))
	}
	mt2, ok := c2.Tags[0].(*tagcodec.MatroskaTag)
	if !ok {
		t.Fatalf("rewritten Tags[0] is %T, want *tagcodec.MatroskaTag", c2.Tags[0])
	}
	var title, credits *tagcodec.SimpleTagNode
	for i := range mt2.Nodes {
		switch mt2.Nodes[i].Name {
		case "TITLE":
			title = &mt2.Nodes[i]
		case "CREDITS":
			credits = &mt2.Nodes[i]
		}
	}
	if title == nil || title.String != "New Title" {
		t.Errorf("rewritten TITLE node = %+v, want String=%q", title, "New Title")
	}
	if credits == nil || len(credits.Children) != 1 || credits.Children[0].Name != "ROLE" || credits.Children[0].String != "Producer" {
		t.Errorf("rewritten CREDITS node = %+v, want one ROLE=Producer child", credits)
	}
}
