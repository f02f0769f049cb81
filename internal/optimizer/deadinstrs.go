package optimizer

import (
	"github.com/wasmelt/wasmelt/internal/ir"
)

// deadInstrs removes value-producing instructions whose destination has zero
// reads function-wide and which are side-effect-free, to fixpoint: removing
// one instruction can orphan its operands' definitions. Loads, stores,
// global writes, memory growth/copies, and every call stay even when their
// result is unused.
func deadInstrs(fn *ir.Function) {
	for {
		uses := buildGlobalUseCount(fn)
		changed := false
		for _, blk := range fn.Blocks {
			kept := blk.Instrs[:0]
			for _, instr := range blk.Instrs {
				if dest, ok := instrDest(instr); ok && uses[dest] == 0 && isSideEffectFree(instr) {
					changed = true
					continue
				}
				kept = append(kept, instr)
			}
			blk.Instrs = kept
		}
		if !changed {
			break
		}
	}
	pruneDeadLocals(fn)
}
