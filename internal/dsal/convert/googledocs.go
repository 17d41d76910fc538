package convert

import (
	"strings"

	"github.com/rakunlabs/at/internal/dsal/ptext"
)

// DocParagraph is the narrow shape of one Google Docs structural element
// this converter reads (spec §6: Docs API v1 document schema).
type DocParagraph struct {
	NamedStyleType string // "HEADING_1".."HEADING_6", "NORMAL_TEXT"
	Runs           []DocTextRun
}

// DocTextRun is one Google Docs paragraph text run.
type DocTextRun struct {
	Content   string
	Bold      bool
	Italic    bool
	Underline bool
	Strike    bool
	LinkURL   string
}

// DocumentToPortableText converts a Google Docs body (already flattened
// to paragraphs by the caller) into a Portable Text document.
func DocumentToPortableText(paragraphs []DocParagraph) ptext.Document {
	doc := ptext.Document{}
	for i, p := range paragraphs {
		blk := ptext.Block{Type: ptext.TypeBlock, Style: styleFromNamedStyle(p.NamedStyleType), Key: indexKey(i), Children: []ptext.Span{}}
		for _, r := range p.Runs {
			blk.Children = append(blk.Children, docRunToSpan(r))
		}
		doc.Blocks = append(doc.Blocks, blk)
	}
	return doc
}

func styleFromNamedStyle(s string) ptext.Style {
	switch s {
	case "HEADING_1":
		return ptext.StyleH1
	case "HEADING_2":
		return ptext.StyleH2
	case "HEADING_3":
		return ptext.StyleH3
	case "HEADING_4":
		return ptext.StyleH4
	case "HEADING_5":
		return ptext.StyleH5
	case "HEADING_6":
		return ptext.StyleH6
	default:
		return ptext.StyleNormal
	}
}

func namedStyleFromStyle(s ptext.Style) string {
	switch s {
	case ptext.StyleH1:
		return "HEADING_1"
	case ptext.StyleH2:
		return "HEADING_2"
	case ptext.StyleH3:
		return "HEADING_3"
	case ptext.StyleH4:
		return "HEADING_4"
	case ptext.StyleH5:
		return "HEADING_5"
	case ptext.StyleH6:
		return "HEADING_6"
	default:
		return "NORMAL_TEXT"
	}
}

func docRunToSpan(r DocTextRun) ptext.Span {
	sp := ptext.Span{Type: "span", Text: r.Content, LinkURL: r.LinkURL}
	if r.Bold {
		sp.Marks = append(sp.Marks, ptext.MarkStrong)
	}
	if r.Italic {
		sp.Marks = append(sp.Marks, ptext.MarkEm)
	}
	if r.Underline {
		sp.Marks = append(sp.Marks, ptext.MarkUnderline)
	}
	if r.Strike {
		sp.Marks = append(sp.Marks, ptext.MarkStrike)
	}
	if r.LinkURL != "" {
		sp.Marks = append(sp.Marks, ptext.MarkLink)
	}
	return sp
}

func indexKey(i int) string {
	const digits = "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}

// BatchUpdateRequest mirrors one element of a Docs batchUpdate requests
// array; only the fields this converter emits are modeled.
type BatchUpdateRequest struct {
	DeleteContentRange *RangeRequest       `json:"deleteContentRange,omitempty"`
	InsertText         *InsertTextRequest  `json:"insertText,omitempty"`
	UpdateParagraphStyle *UpdateParagraphStyleRequest `json:"updateParagraphStyle,omitempty"`
	UpdateTextStyle    *UpdateTextStyleRequest `json:"updateTextStyle,omitempty"`
}

type RangeRequest struct {
	StartIndex int `json:"startIndex"`
	EndIndex   int `json:"endIndex"`
}

type InsertTextRequest struct {
	Location struct {
		Index int `json:"index"`
	} `json:"location"`
	Text string `json:"text"`
}

type UpdateParagraphStyleRequest struct {
	Range          RangeRequest `json:"range"`
	ParagraphStyle struct {
		NamedStyleType string `json:"namedStyleType"`
	} `json:"paragraphStyle"`
	Fields string `json:"fields"`
}

type UpdateTextStyleRequest struct {
	Range     RangeRequest `json:"range"`
	TextStyle struct {
		Bold      bool `json:"bold,omitempty"`
		Italic    bool `json:"italic,omitempty"`
		Underline bool `json:"underline,omitempty"`
		Strikethrough bool `json:"strikethrough,omitempty"`
	} `json:"textStyle"`
	Fields string `json:"fields"`
}

// PortableTextToBatchUpdate emits the request script described in spec
// §4.4: delete the existing body range, insert a single concatenated text
// stream at index 1, then issue updateParagraphStyle per heading range and
// updateTextStyle per formatted span.
func PortableTextToBatchUpdate(doc ptext.Document, bodyEndIndex int) []BatchUpdateRequest {
	var requests []BatchUpdateRequest

	if bodyEndIndex > 1 {
		del := &RangeRequest{StartIndex: 1, EndIndex: bodyEndIndex - 1}
		requests = append(requests, BatchUpdateRequest{DeleteContentRange: del})
	}

	var text strings.Builder
	type styleSpan struct {
		start, end int
		style      ptext.Style
	}
	type textSpan struct {
		start, end int
		span       ptext.Span
	}
	var styleSpans []styleSpan
	var textSpans []textSpan

	cursor := 1
	for _, blk := range doc.Blocks {
		blockStart := cursor
		for _, sp := range blk.Children {
			spanStart := cursor
			text.WriteString(sp.Text)
			cursor += len(sp.Text)
			if len(sp.Marks) > 0 {
				textSpans = append(textSpans, textSpan{start: spanStart, end: cursor, span: sp})
			}
		}
		text.WriteString("\n")
		cursor++
		styleSpans = append(styleSpans, styleSpan{start: blockStart, end: cursor, style: blk.Style})
	}

	ins := &InsertTextRequest{Text: text.String()}
	ins.Location.Index = 1
	requests = append(requests, BatchUpdateRequest{InsertText: ins})

	for _, ss := range styleSpans {
		if ss.style == ptext.StyleNormal {
			continue
		}
		req := &UpdateParagraphStyleRequest{Range: RangeRequest{StartIndex: ss.start, EndIndex: ss.end}, Fields: "namedStyleType"}
		req.ParagraphStyle.NamedStyleType = namedStyleFromStyle(ss.style)
		requests = append(requests, BatchUpdateRequest{UpdateParagraphStyle: req})
	}

	for _, ts := range textSpans {
		req := &UpdateTextStyleRequest{Range: RangeRequest{StartIndex: ts.start, EndIndex: ts.end}}
		var fields []string
		if ts.span.HasMark(ptext.MarkStrong) {
			req.TextStyle.Bold = true
			fields = append(fields, "bold")
		}
		if ts.span.HasMark(ptext.MarkEm) {
			req.TextStyle.Italic = true
			fields = append(fields, "italic")
		}
		if ts.span.HasMark(ptext.MarkUnderline) {
			req.TextStyle.Underline = true
			fields = append(fields, "underline")
		}
		if ts.span.HasMark(ptext.MarkStrike) {
			req.TextStyle.Strikethrough = true
			fields = append(fields, "strikethrough")
		}
		if len(fields) == 0 {
			continue
		}
		req.Fields = strings.Join(fields, ",")
		requests = append(requests, BatchUpdateRequest{UpdateTextStyle: req})
	}

	return requests
}
