package ptext

import (
	"regexp"
	"strings"
)

// OpKind discriminates the operation algebra's five operation shapes
// (spec §3 "Operation algebra").
type OpKind string

const (
	OpInsert          OpKind = "insert"
	OpUpdate          OpKind = "update"
	OpDelete          OpKind = "delete"
	OpMove            OpKind = "move"
	OpReplaceSpanText OpKind = "replaceSpanText"
)

// Operation is one entry in a batch applied in order by Apply.
type Operation struct {
	Kind OpKind

	// insert/update
	Index int
	Block Block

	// delete uses Index only.

	// move
	From int
	To   int

	// replaceSpanText
	BlockKey string
	SpanKey  string
	Search   string
	Replace  string
	Regex    bool
}

// OperationResult reports the outcome of a single operation. Every
// operation yields exactly one result, in input order, whether it
// succeeded or not (spec §3, §7, testable property §8.4) — the algebra
// never panics or aborts the batch on a single failure.
type OperationResult struct {
	Success        bool
	Message        string
	OperationIndex int
}

// Apply executes ops against doc in order, returning the resulting
// document and one OperationResult per operation. Apply never raises: all
// failures surface as a failed OperationResult (spec §7, §9).
func Apply(doc Document, ops []Operation) (Document, []OperationResult) {
	working := doc.Clone()
	results := make([]OperationResult, len(ops))

	for i, op := range ops {
		var err error
		working, err = applyOne(working, op)
		if err != nil {
			results[i] = OperationResult{Success: false, Message: err.Error(), OperationIndex: i}
			continue
		}
		results[i] = OperationResult{Success: true, OperationIndex: i}
	}

	return working, results
}

func applyOne(doc Document, op Operation) (Document, error) {
	switch op.Kind {
	case OpInsert:
		return insertAt(doc, op.Index, op.Block)
	case OpUpdate:
		return updateAt(doc, op.Index, op.Block)
	case OpDelete:
		return deleteAt(doc, op.Index)
	case OpMove:
		return moveBlock(doc, op.From, op.To)
	case OpReplaceSpanText:
		return replaceSpanText(doc, op.BlockKey, op.SpanKey, op.Search, op.Replace, op.Regex)
	default:
		return doc, errUnknownOp(op.Kind)
	}
}

func errUnknownOp(k OpKind) error { return errOp("unknown operation kind " + string(k)) }

type errOp string

func (e errOp) Error() string { return string(e) }

func insertAt(doc Document, index int, b Block) (Document, error) {
	if index < 0 || index > len(doc.Blocks) {
		return doc, errOp("insert index out of range")
	}
	blocks := make([]Block, 0, len(doc.Blocks)+1)
	blocks = append(blocks, doc.Blocks[:index]...)
	blocks = append(blocks, b)
	blocks = append(blocks, doc.Blocks[index:]...)
	doc.Blocks = blocks
	return doc, nil
}

func updateAt(doc Document, index int, b Block) (Document, error) {
	if index < 0 || index >= len(doc.Blocks) {
		return doc, errOp("update index out of range")
	}
	doc.Blocks[index] = b
	return doc, nil
}

func deleteAt(doc Document, index int) (Document, error) {
	if index < 0 || index >= len(doc.Blocks) {
		return doc, errOp("delete index out of range")
	}
	doc.Blocks = append(doc.Blocks[:index], doc.Blocks[index+1:]...)
	return doc, nil
}

func moveBlock(doc Document, from, to int) (Document, error) {
	if from < 0 || from >= len(doc.Blocks) || to < 0 || to >= len(doc.Blocks) {
		return doc, errOp("move index out of range")
	}
	b := doc.Blocks[from]
	blocks := append(doc.Blocks[:from:from], doc.Blocks[from+1:]...)
	out := make([]Block, 0, len(doc.Blocks))
	out = append(out, blocks[:to]...)
	out = append(out, b)
	out = append(out, blocks[to:]...)
	doc.Blocks = out
	return doc, nil
}

func replaceSpanText(doc Document, blockKey, spanKey, search, replace string, useRegex bool) (Document, error) {
	for bi := range doc.Blocks {
		if doc.Blocks[bi].Key != blockKey {
			continue
		}
		for si := range doc.Blocks[bi].Children {
			if doc.Blocks[bi].Children[si].Key != spanKey {
				continue
			}
			text := doc.Blocks[bi].Children[si].Text
			if useRegex {
				re, err := regexp.Compile(search)
				if err != nil {
					return doc, errOp("invalid regex: " + err.Error())
				}
				doc.Blocks[bi].Children[si].Text = re.ReplaceAllString(text, replace)
			} else {
				doc.Blocks[bi].Children[si].Text = strings.ReplaceAll(text, search, replace)
			}
			return doc, nil
		}
		return doc, errOp("span " + spanKey + " not found in block " + blockKey)
	}
	return doc, errOp("block " + blockKey + " not found")
}
