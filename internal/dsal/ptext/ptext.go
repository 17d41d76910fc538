// Package ptext implements the neutral Portable Text document model (spec
// §3 "Portable Text") and its pure operation algebra (spec §4.3, §9).
package ptext

// Style is the block-level style tag. Providers may use custom styles
// beyond this list; the zero value "" means "no particular style".
type Style string

const (
	StyleNormal Style = "normal"
	StyleH1     Style = "h1"
	StyleH2     Style = "h2"
	StyleH3     Style = "h3"
	StyleH4     Style = "h4"
	StyleH5     Style = "h5"
	StyleH6     Style = "h6"
	StyleQuote  Style = "quote"
	StyleCode   Style = "code"
)

// BlockType discriminates ordinary text blocks from provider-custom tags.
type BlockType string

const (
	TypeBlock   BlockType = "block"
	TypeTable   BlockType = "table"
	TypeBreak   BlockType = "break"
	TypeToc     BlockType = "toc"
	TypeUnknown BlockType = "unknown"
)

// Mark is an inline formatting attribute on a Span.
type Mark string

const (
	MarkStrong    Mark = "strong"
	MarkEm        Mark = "em"
	MarkUnderline Mark = "underline"
	MarkStrike    Mark = "strike-through"
	MarkCode      Mark = "code"
	MarkLink      Mark = "link"
)

// Span is an inline run of text with marks, belonging to a "block"-typed
// Block. Invariant (spec §3): Text is never null — always "" at minimum.
type Span struct {
	Type  string // always "span"
	Key   string
	Text  string
	Marks []Mark
	// LinkURL carries the out-of-band URL for a span whose Marks include
	// MarkLink; empty otherwise.
	LinkURL string
}

// HasMark reports whether m is present on the span.
func (s Span) HasMark(m Mark) bool {
	for _, x := range s.Marks {
		if x == m {
			return true
		}
	}
	return false
}

// Block is one element of a Portable Text document.
type Block struct {
	Type  BlockType
	Key   string
	Style Style

	// ListItem and Level apply to list-style blocks: ListItem is
	// "bullet"/"numbered"/""; Level is the nesting depth (0 = top level).
	ListItem string
	Level    int

	// Children holds the inline spans for Type == TypeBlock. Invariant
	// (spec §3): never nil for block-typed blocks, possibly empty.
	Children []Span

	// TableRows/TableCols describe a TypeTable block's shape; TableCells
	// holds row-major cell text (not individually styled — matches the
	// Markdown renderer's pipe-table output).
	TableRows  int
	TableCols  int
	TableCells [][]string

	// Opaque carries the original backend payload for TypeUnknown blocks so
	// a subsequent conversion can round-trip it without understanding its
	// shape (spec §4.3, testable property §8.5).
	Opaque map[string]any
}

// Text concatenates a block's span text, used by converters and by search
// snippeting over structured content.
func (b Block) Text() string {
	var out string
	for _, s := range b.Children {
		out += s.Text
	}
	return out
}

// Document is an ordered sequence of Blocks. Keys are unique within a
// Document but carry no ordering (spec §3).
type Document struct {
	Blocks []Block
}

// Clone deep-copies a Document so the operation algebra can mutate a
// working copy without aliasing the caller's slice backing arrays.
func (d Document) Clone() Document {
	out := make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		nb := b
		if b.Children != nil {
			nb.Children = append(make([]Span, 0, len(b.Children)), b.Children...)
		}
		for j := range nb.Children {
			nb.Children[j].Marks = append([]Mark(nil), b.Children[j].Marks...)
		}
		if b.TableCells != nil {
			nb.TableCells = make([][]string, len(b.TableCells))
			for r, row := range b.TableCells {
				nb.TableCells[r] = append([]string(nil), row...)
			}
		}
		if b.Opaque != nil {
			nb.Opaque = make(map[string]any, len(b.Opaque))
			for k, v := range b.Opaque {
				nb.Opaque[k] = v
			}
		}
		out[i] = nb
	}
	return Document{Blocks: out}
}
