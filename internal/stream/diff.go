package stream

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// computeDiff turns two successive pane captures into the changed-region
// list a PATCH event carries, using go-diff's character-level diff over the
// whole capture with semantic cleanup; it does no per-row handling.
func computeDiff(prev, cur string) []DiffOp {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(prev, cur, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	ops := make([]DiffOp, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		ops = append(ops, DiffOp{Type: diffOpType(d.Type), Text: d.Text})
	}
	return ops
}

func diffOpType(t diffmatchpatch.Operation) string {
	switch t {
	case diffmatchpatch.DiffInsert:
		return "insert"
	case diffmatchpatch.DiffDelete:
		return "delete"
	default:
		return "equal"
	}
}
