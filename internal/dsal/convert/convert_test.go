package convert

import (
	"testing"

	"github.com/rakunlabs/at/internal/dsal/ptext"
)

func TestNotionRoundTrip_PreservesTextAndStyle(t *testing.T) {
	blocks := []NotionBlock{
		{ID: "b1", Type: "heading_1", Texts: []NotionRichText{{Content: "Title"}}},
		{ID: "b2", Type: "paragraph", Texts: []NotionRichText{{Content: "hello", Bold: true}}},
	}

	doc := NotionBlocksToPortableText(blocks)
	back := PortableTextToNotionBlocks(doc)

	if len(back) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(back))
	}
	if back[0].Type != "heading_1" || back[0].Texts[0].Content != "Title" {
		t.Fatalf("heading round-trip mismatch: %+v", back[0])
	}
	if back[1].Type != "paragraph" || back[1].Texts[0].Content != "hello" || !back[1].Texts[0].Bold {
		t.Fatalf("paragraph round-trip mismatch: %+v", back[1])
	}
}

func TestNotionRoundTrip_UnknownBlockPreservesRaw(t *testing.T) {
	raw := map[string]any{"custom_field": "value"}
	blocks := []NotionBlock{{ID: "b1", Type: "embed_synced_block", Raw: raw}}

	doc := NotionBlocksToPortableText(blocks)
	if doc.Blocks[0].Type != ptext.TypeUnknown {
		t.Fatalf("expected unknown block type, got %v", doc.Blocks[0].Type)
	}

	back := PortableTextToNotionBlocks(doc)
	if back[0].Type != "embed_synced_block" {
		t.Fatalf("expected original notion type preserved, got %q", back[0].Type)
	}
	if back[0].Raw["custom_field"] != "value" {
		t.Fatalf("expected raw payload preserved, got %+v", back[0].Raw)
	}
}

func TestToMarkdown_HeadingsAndEmphasis(t *testing.T) {
	doc := ptext.Document{Blocks: []ptext.Block{
		{Type: ptext.TypeBlock, Style: ptext.StyleH1, Children: []ptext.Span{{Text: "Title"}}},
		{Type: ptext.TypeBlock, Style: ptext.StyleNormal, Children: []ptext.Span{{Text: "bold", Marks: []ptext.Mark{ptext.MarkStrong}}}},
	}}

	md := ToMarkdown(doc)
	want := "# Title\n\n**bold**"
	if md != want {
		t.Fatalf("got %q, want %q", md, want)
	}
}

func TestDocumentToPortableText_HeadingStyles(t *testing.T) {
	paras := []DocParagraph{
		{NamedStyleType: "HEADING_2", Runs: []DocTextRun{{Content: "Section"}}},
		{NamedStyleType: "NORMAL_TEXT", Runs: []DocTextRun{{Content: "body", Italic: true}}},
	}
	doc := DocumentToPortableText(paras)
	if doc.Blocks[0].Style != ptext.StyleH2 {
		t.Fatalf("expected H2, got %v", doc.Blocks[0].Style)
	}
	if !doc.Blocks[1].Children[0].HasMark(ptext.MarkEm) {
		t.Fatal("expected italic mark preserved")
	}
}

func TestPortableTextToBatchUpdate_EmitsDeleteInsertAndStyles(t *testing.T) {
	doc := ptext.Document{Blocks: []ptext.Block{
		{Type: ptext.TypeBlock, Style: ptext.StyleH1, Children: []ptext.Span{{Text: "Title"}}},
	}}
	reqs := PortableTextToBatchUpdate(doc, 5)

	if reqs[0].DeleteContentRange == nil {
		t.Fatal("expected first request to be a delete")
	}
	if reqs[1].InsertText == nil || reqs[1].InsertText.Text != "Title\n" {
		t.Fatalf("expected insert text, got %+v", reqs[1].InsertText)
	}
	foundStyle := false
	for _, r := range reqs {
		if r.UpdateParagraphStyle != nil && r.UpdateParagraphStyle.ParagraphStyle.NamedStyleType == "HEADING_1" {
			foundStyle = true
		}
	}
	if !foundStyle {
		t.Fatal("expected an updateParagraphStyle request for the heading")
	}
}
