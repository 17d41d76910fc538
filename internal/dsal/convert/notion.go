package convert

import "github.com/rakunlabs/at/internal/dsal/ptext"

// NotionBlock is the narrow shape of a Notion block this converter reads
// and writes; the full Notion schema is much larger but only these fields
// carry Portable Text meaning (spec §6: Notion REST API v1 block schema).
type NotionBlock struct {
	ID       string
	Type     string // "heading_1".."heading_3", "paragraph", "bulleted_list_item", "numbered_list_item", "quote", "code", "divider", "table_of_contents", or an unrecognized type
	Language string // for "code"
	Texts    []NotionRichText
	Children []NotionBlock
	Raw      map[string]any // full original payload, preserved for "unknown" round-trip
}

// NotionRichText is one Notion rich_text span.
type NotionRichText struct {
	Content string
	Bold    bool
	Italic  bool
	Strike  bool
	Code    bool
	LinkURL string
}

// NotionBlocksToPortableText converts Notion's block list into a Portable
// Text document (spec §4.4 Notion accessor: "render through Notion→
// Markdown" uses this as the intermediate step when editing).
func NotionBlocksToPortableText(blocks []NotionBlock) ptext.Document {
	doc := ptext.Document{}
	for _, nb := range blocks {
		doc.Blocks = append(doc.Blocks, notionBlockToPtext(nb))
	}
	return doc
}

func notionBlockToPtext(nb NotionBlock) ptext.Block {
	blk := ptext.Block{Key: nb.ID, Type: ptext.TypeBlock, Children: []ptext.Span{}}
	for _, rt := range nb.Texts {
		blk.Children = append(blk.Children, notionRichTextToSpan(rt))
	}

	switch nb.Type {
	case "heading_1":
		blk.Style = ptext.StyleH1
	case "heading_2":
		blk.Style = ptext.StyleH2
	case "heading_3":
		blk.Style = ptext.StyleH3
	case "quote":
		blk.Style = ptext.StyleQuote
	case "code":
		blk.Style = ptext.StyleCode
		if blk.Opaque == nil {
			blk.Opaque = map[string]any{}
		}
		blk.Opaque["language"] = nb.Language
	case "bulleted_list_item":
		blk.Style = ptext.StyleNormal
		blk.ListItem = "bullet"
	case "numbered_list_item":
		blk.Style = ptext.StyleNormal
		blk.ListItem = "numbered"
	case "divider":
		blk.Type = ptext.TypeBreak
	case "table_of_contents":
		blk.Type = ptext.TypeToc
	case "paragraph":
		blk.Style = ptext.StyleNormal
	default:
		// unrecognized Notion block type: preserve verbatim so a later
		// round trip can reconstruct it exactly (testable property §8.5).
		blk.Type = ptext.TypeUnknown
		if blk.Opaque == nil {
			blk.Opaque = map[string]any{}
		}
		blk.Opaque["notionType"] = nb.Type
		blk.Opaque["raw"] = nb.Raw
	}

	return blk
}

func notionRichTextToSpan(rt NotionRichText) ptext.Span {
	sp := ptext.Span{Type: "span", Text: rt.Content}
	if rt.Bold {
		sp.Marks = append(sp.Marks, ptext.MarkStrong)
	}
	if rt.Italic {
		sp.Marks = append(sp.Marks, ptext.MarkEm)
	}
	if rt.Strike {
		sp.Marks = append(sp.Marks, ptext.MarkStrike)
	}
	if rt.Code {
		sp.Marks = append(sp.Marks, ptext.MarkCode)
	}
	if rt.LinkURL != "" {
		sp.Marks = append(sp.Marks, ptext.MarkLink)
		sp.LinkURL = rt.LinkURL
	}
	return sp
}

// PortableTextToNotionBlocks is the inverse conversion, used before
// replacing a Notion page's content (spec §4.4: "delete-all-existing-
// blocks-then-append-new-paragraphs"). Blocks marked TypeUnknown are
// emitted using their preserved Raw payload so non-representable or
// custom block types survive the round trip.
func PortableTextToNotionBlocks(doc ptext.Document) []NotionBlock {
	out := make([]NotionBlock, 0, len(doc.Blocks))
	for _, blk := range doc.Blocks {
		out = append(out, ptextBlockToNotion(blk))
	}
	return out
}

func ptextBlockToNotion(blk ptext.Block) NotionBlock {
	if blk.Type == ptext.TypeUnknown {
		nb := NotionBlock{ID: blk.Key}
		if blk.Opaque != nil {
			if t, ok := blk.Opaque["notionType"].(string); ok {
				nb.Type = t
			}
			if raw, ok := blk.Opaque["raw"].(map[string]any); ok {
				nb.Raw = raw
			}
		}
		return nb
	}

	nb := NotionBlock{ID: blk.Key}
	for _, sp := range blk.Children {
		nb.Texts = append(nb.Texts, spanToNotionRichText(sp))
	}

	switch blk.Type {
	case ptext.TypeBreak:
		nb.Type = "divider"
		return nb
	case ptext.TypeToc:
		nb.Type = "table_of_contents"
		return nb
	}

	switch blk.Style {
	case ptext.StyleH1:
		nb.Type = "heading_1"
	case ptext.StyleH2:
		nb.Type = "heading_2"
	case ptext.StyleH3:
		nb.Type = "heading_3"
	case ptext.StyleQuote:
		nb.Type = "quote"
	case ptext.StyleCode:
		nb.Type = "code"
		if blk.Opaque != nil {
			if lang, ok := blk.Opaque["language"].(string); ok {
				nb.Language = lang
			}
		}
	default:
		switch blk.ListItem {
		case "bullet":
			nb.Type = "bulleted_list_item"
		case "numbered":
			nb.Type = "numbered_list_item"
		default:
			nb.Type = "paragraph"
		}
	}

	return nb
}

func spanToNotionRichText(sp ptext.Span) NotionRichText {
	rt := NotionRichText{Content: sp.Text, LinkURL: sp.LinkURL}
	rt.Bold = sp.HasMark(ptext.MarkStrong)
	rt.Italic = sp.HasMark(ptext.MarkEm)
	rt.Strike = sp.HasMark(ptext.MarkStrike)
	rt.Code = sp.HasMark(ptext.MarkCode)
	return rt
}
