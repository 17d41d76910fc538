package ptext

import "testing"

func TestSpan_HasMark(t *testing.T) {
	s := Span{Marks: []Mark{MarkStrong, MarkLink}}
	if !s.HasMark(MarkStrong) {
		t.Fatal("expected MarkStrong present")
	}
	if s.HasMark(MarkEm) {
		t.Fatal("did not expect MarkEm present")
	}
}

func TestBlock_TextConcatenatesSpans(t *testing.T) {
	b := Block{Children: []Span{{Text: "hello "}, {Text: "world"}}}
	if got := b.Text(); got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestDocument_CloneIsIndependent(t *testing.T) {
	doc := Document{Blocks: []Block{
		{
			Type:     TypeBlock,
			Key:      "b1",
			Children: []Span{{Text: "a", Marks: []Mark{MarkStrong}}},
			Opaque:   map[string]any{"k": "v"},
		},
	}}

	clone := doc.Clone()
	clone.Blocks[0].Children[0].Text = "mutated"
	clone.Blocks[0].Children[0].Marks[0] = MarkEm
	clone.Blocks[0].Opaque["k"] = "mutated"

	if doc.Blocks[0].Children[0].Text != "a" {
		t.Fatal("clone mutation leaked into original span text")
	}
	if doc.Blocks[0].Children[0].Marks[0] != MarkStrong {
		t.Fatal("clone mutation leaked into original span marks")
	}
	if doc.Blocks[0].Opaque["k"] != "v" {
		t.Fatal("clone mutation leaked into original opaque map")
	}
}

func TestDocument_CloneHandlesTableCells(t *testing.T) {
	doc := Document{Blocks: []Block{
		{Type: TypeTable, TableCells: [][]string{{"a", "b"}, {"c", "d"}}},
	}}
	clone := doc.Clone()
	clone.Blocks[0].TableCells[0][0] = "mutated"
	if doc.Blocks[0].TableCells[0][0] != "a" {
		t.Fatal("clone mutation leaked into original table cells")
	}
}
