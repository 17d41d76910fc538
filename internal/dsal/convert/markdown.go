// Package convert implements the Format Converters (spec §3/§4.3/§4.4/§8.5
// invariant 5): backend-native block shapes to and from Portable Text, and
// Portable Text to Markdown for display.
package convert

import (
	"strconv"
	"strings"

	"github.com/rakunlabs/at/internal/dsal/ptext"
)

// ToMarkdown renders a Portable Text document to Markdown, following the
// stable rendering rules in spec §4.3: headings '#'..'######', emphasis
// **/*/~~, bullets "- ", numbered lists, fenced code with language tag,
// quote "> ", divider "---", pipe tables with escaped cells.
func ToMarkdown(doc ptext.Document) string {
	var b strings.Builder
	num := 0
	for i, blk := range doc.Blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch blk.Type {
		case ptext.TypeBreak:
			b.WriteString("---")
			num = 0
			continue
		case ptext.TypeTable:
			writeTable(&b, blk)
			num = 0
			continue
		case ptext.TypeToc:
			b.WriteString("[TOC]")
			num = 0
			continue
		}

		switch blk.Style {
		case ptext.StyleH1, ptext.StyleH2, ptext.StyleH3, ptext.StyleH4, ptext.StyleH5, ptext.StyleH6:
			b.WriteString(headingPrefix(blk.Style))
			b.WriteString(" ")
			b.WriteString(renderSpans(blk.Children))
			num = 0
		case ptext.StyleQuote:
			b.WriteString("> ")
			b.WriteString(renderSpans(blk.Children))
			num = 0
		case ptext.StyleCode:
			lang := ""
			if blk.Opaque != nil {
				if l, ok := blk.Opaque["language"].(string); ok {
					lang = l
				}
			}
			b.WriteString("```")
			b.WriteString(lang)
			b.WriteString("\n")
			b.WriteString(blk.Text())
			b.WriteString("\n```")
			num = 0
		default:
			if blk.ListItem == "bullet" {
				b.WriteString(strings.Repeat("  ", blk.Level))
				b.WriteString("- ")
				b.WriteString(renderSpans(blk.Children))
				num = 0
			} else if blk.ListItem == "numbered" {
				num++
				b.WriteString(strings.Repeat("  ", blk.Level))
				b.WriteString(strconv.Itoa(num))
				b.WriteString(". ")
				b.WriteString(renderSpans(blk.Children))
			} else {
				b.WriteString(renderSpans(blk.Children))
				num = 0
			}
		}
	}
	return b.String()
}

func headingPrefix(s ptext.Style) string {
	switch s {
	case ptext.StyleH1:
		return "#"
	case ptext.StyleH2:
		return "##"
	case ptext.StyleH3:
		return "###"
	case ptext.StyleH4:
		return "####"
	case ptext.StyleH5:
		return "#####"
	case ptext.StyleH6:
		return "######"
	}
	return ""
}

func renderSpans(spans []ptext.Span) string {
	var b strings.Builder
	for _, sp := range spans {
		text := sp.Text
		if sp.HasMark(ptext.MarkCode) {
			text = "`" + text + "`"
		}
		if sp.HasMark(ptext.MarkStrong) {
			text = "**" + text + "**"
		}
		if sp.HasMark(ptext.MarkEm) {
			text = "*" + text + "*"
		}
		if sp.HasMark(ptext.MarkStrike) {
			text = "~~" + text + "~~"
		}
		if sp.HasMark(ptext.MarkLink) && sp.LinkURL != "" {
			text = "[" + text + "](" + sp.LinkURL + ")"
		}
		b.WriteString(text)
	}
	return b.String()
}

func writeTable(b *strings.Builder, blk ptext.Block) {
	if blk.TableRows == 0 {
		return
	}
	for r, row := range blk.TableCells {
		b.WriteString("| ")
		for _, cell := range row {
			b.WriteString(escapeCell(cell))
			b.WriteString(" | ")
		}
		b.WriteString("\n")
		if r == 0 {
			b.WriteString("|")
			for range row {
				b.WriteString(" --- |")
			}
			b.WriteString("\n")
		}
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
