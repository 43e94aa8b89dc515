package diff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Span 是广播给其他协作者的结构化差异片段。
// Op: "equal" / "insert" / "delete"
type Span struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

const (
	OpEqual  = "equal"
	OpInsert = "insert"
	OpDelete = "delete"
)

// Differ 基于 diff-match-patch 计算新旧全文之间的差异，
// 语义清理后输出，避免把一次整词替换拆成零碎的字符级片段。
type Differ struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

func NewDiffer() *Differ {
	return &Differ{dmp: diffmatchpatch.New()}
}

func (d *Differ) Diff(oldText, newText string) []Span {
	diffs := d.dmp.DiffMain(oldText, newText, false)
	diffs = d.dmp.DiffCleanupSemantic(diffs)

	out := make([]Span, 0, len(diffs))
	for _, df := range diffs {
		span := Span{Text: df.Text}
		switch df.Type {
		case diffmatchpatch.DiffInsert:
			span.Op = OpInsert
		case diffmatchpatch.DiffDelete:
			span.Op = OpDelete
		default:
			span.Op = OpEqual
		}
		out = append(out, span)
	}
	return out
}
