package notion

import (
	"testing"

	"github.com/rakunlabs/at/internal/dsal/convert"
	"github.com/rakunlabs/at/internal/dsal/ptext"
)

func TestResourcePath_ParsesKindAndID(t *testing.T) {
	a := &Accessor{connectionName: "local"}
	k, id, err := a.resourcePath("page/abc123")
	if err != nil {
		t.Fatalf("resourcePath: %v", err)
	}
	if k != kindPage || id != "abc123" {
		t.Fatalf("got kind=%s id=%s", k, id)
	}
}

func TestResourcePath_RejectsWrongConnection(t *testing.T) {
	a := &Accessor{connectionName: "local"}
	_, _, err := a.resourcePath("bb+notion+other://page/abc123")
	if err == nil {
		t.Fatal("expected error for mismatched connection")
	}
}

func TestHasCapability_NoCoarseWrite(t *testing.T) {
	a := &Accessor{}
	if a.HasCapability("write") {
		t.Fatal("notion accessor must not advertise coarse write")
	}
}

// TestEditRoundTrip_ReplaceSpanText exercises scenario S4: given blocks
// [h1:"Title", p:"hello"], a replaceSpanText to "world" should leave the
// title untouched and the paragraph updated.
func TestEditRoundTrip_ReplaceSpanText(t *testing.T) {
	blocks := []convert.NotionBlock{
		{ID: "block1", Type: "heading_1", Texts: []convert.NotionRichText{{Content: "Title"}}},
		{ID: "block2", Type: "paragraph", Texts: []convert.NotionRichText{{Content: "hello"}}},
	}
	doc := convert.NotionBlocksToPortableText(blocks)
	if doc.Blocks[0].Text() != "Title" || doc.Blocks[1].Text() != "hello" {
		t.Fatalf("unexpected initial doc: %+v", doc)
	}

	newDoc, results := ptext.Apply(doc, []ptext.Operation{
		{Kind: ptext.OpReplaceSpanText, BlockKey: "block2", SpanKey: doc.Blocks[1].Children[0].Key, Search: "hello", Replace: "world"},
	})
	if !results[0].Success {
		t.Fatalf("replaceSpanText failed: %s", results[0].Message)
	}
	if newDoc.Blocks[0].Text() != "Title" || newDoc.Blocks[1].Text() != "world" {
		t.Fatalf("unexpected edited doc: %+v", newDoc)
	}
}
