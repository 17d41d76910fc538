package ptext

import "testing"

func sampleDoc() Document {
	return Document{
		Blocks: []Block{
			{
				Type:  TypeBlock,
				Key:   "b1",
				Style: StyleH1,
				Children: []Span{
					{Type: "span", Key: "s1", Text: "Title"},
				},
			},
			{
				Type:  TypeBlock,
				Key:   "b2",
				Style: StyleNormal,
				Children: []Span{
					{Type: "span", Key: "s2", Text: "hello"},
				},
			},
		},
	}
}

func TestApply_ResultCountAndOrder(t *testing.T) {
	doc := sampleDoc()
	ops := []Operation{
		{Kind: OpReplaceSpanText, BlockKey: "b2", SpanKey: "s2", Search: "hello", Replace: "world"},
		{Kind: OpDelete, Index: 99}, // out of range, should fail but not abort
		{Kind: OpInsert, Index: 0, Block: Block{Type: TypeBlock, Key: "b0", Children: []Span{}}},
	}

	newDoc, results := Apply(doc, ops)

	if len(results) != len(ops) {
		t.Fatalf("expected %d results, got %d", len(ops), len(results))
	}
	for i, r := range results {
		if r.OperationIndex != i {
			t.Errorf("result %d has OperationIndex %d, want %d", i, r.OperationIndex, i)
		}
	}
	if !results[0].Success {
		t.Errorf("expected replaceSpanText to succeed, got %q", results[0].Message)
	}
	if results[1].Success {
		t.Error("expected out-of-range delete to fail")
	}
	if !results[2].Success {
		t.Errorf("expected insert to succeed, got %q", results[2].Message)
	}

	if newDoc.Blocks[0].Key != "b0" {
		t.Errorf("expected inserted block at index 0, got key %q", newDoc.Blocks[0].Key)
	}
	if got := newDoc.Blocks[2].Children[0].Text; got != "world" {
		t.Errorf("expected replaced text 'world', got %q", got)
	}
}

func TestApply_DoesNotMutateInputDocument(t *testing.T) {
	doc := sampleDoc()
	_, _ = Apply(doc, []Operation{
		{Kind: OpReplaceSpanText, BlockKey: "b2", SpanKey: "s2", Search: "hello", Replace: "world"},
	})

	if doc.Blocks[1].Children[0].Text != "hello" {
		t.Errorf("input document was mutated: got %q", doc.Blocks[1].Children[0].Text)
	}
}

func TestApply_MoveBlock(t *testing.T) {
	doc := sampleDoc()
	newDoc, results := Apply(doc, []Operation{{Kind: OpMove, From: 0, To: 1}})

	if !results[0].Success {
		t.Fatalf("move failed: %s", results[0].Message)
	}
	if newDoc.Blocks[0].Key != "b2" || newDoc.Blocks[1].Key != "b1" {
		t.Errorf("unexpected order after move: %+v", newDoc.Blocks)
	}
}

func TestApply_ReplaceSpanTextRegex(t *testing.T) {
	doc := sampleDoc()
	newDoc, results := Apply(doc, []Operation{
		{Kind: OpReplaceSpanText, BlockKey: "b2", SpanKey: "s2", Search: "l+o", Replace: "LO", Regex: true},
	})

	if !results[0].Success {
		t.Fatalf("regex replace failed: %s", results[0].Message)
	}
	if got := newDoc.Blocks[1].Children[0].Text; got != "heLO" {
		t.Errorf("got %q, want heLO", got)
	}
}

func TestApply_InvalidRegexFails(t *testing.T) {
	doc := sampleDoc()
	_, results := Apply(doc, []Operation{
		{Kind: OpReplaceSpanText, BlockKey: "b2", SpanKey: "s2", Search: "(", Replace: "x", Regex: true},
	})

	if results[0].Success {
		t.Error("expected invalid regex to fail")
	}
}
