package optimizer

import (
	"github.com/wasmelt/wasmelt/internal/ir"
)

// mergeBlocks appends single-predecessor blocks onto the predecessor that
// reaches them via an unconditional Jump, to fixpoint, so chains like
// B0→B1→B2→Return collapse into one block. The entry block is never merged
// away, self-loops are skipped, and each block participates in at most one
// merge per round to keep the bookkeeping consistent.
func mergeBlocks(fn *ir.Function) {
	for {
		preds := buildPredecessors(fn)

		blockIdx := make(map[ir.BlockId]int, len(fn.Blocks))
		for i, blk := range fn.Blocks {
			blockIdx[blk.ID] = i
		}

		type merge struct{ pred, target int }
		var merges []merge
		involved := make(map[int]struct{})

		for _, blk := range fn.Blocks {
			if blk.Term.Kind != ir.TermJump {
				continue
			}
			target := blk.Term.Target
			if target == blk.ID || target == fn.EntryBlock {
				continue
			}
			if len(preds[target]) != 1 {
				continue
			}
			predIdx := blockIdx[blk.ID]
			targetIdx, ok := blockIdx[target]
			if !ok {
				continue
			}
			if _, busy := involved[predIdx]; busy {
				continue
			}
			if _, busy := involved[targetIdx]; busy {
				continue
			}
			merges = append(merges, merge{pred: predIdx, target: targetIdx})
			involved[predIdx] = struct{}{}
			involved[targetIdx] = struct{}{}
		}

		if len(merges) == 0 {
			return
		}

		absorbed := make(map[int]struct{}, len(merges))
		for _, m := range merges {
			target := fn.Blocks[m.target]
			pred := fn.Blocks[m.pred]
			pred.Instrs = append(pred.Instrs, target.Instrs...)
			pred.Term = target.Term
			target.Instrs = nil
			absorbed[m.target] = struct{}{}
		}

		kept := fn.Blocks[:0]
		for i, blk := range fn.Blocks {
			if _, gone := absorbed[i]; gone {
				continue
			}
			kept = append(kept, blk)
		}
		fn.Blocks = kept
	}
}
