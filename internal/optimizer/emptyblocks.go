package optimizer

import (
	"github.com/wasmelt/wasmelt/internal/ir"
)

// emptyBlocks forwards every reference to a passthrough block — no
// instructions, unconditional Jump — to its ultimate target. Chains collapse
// (A→B→C becomes A→C); resolution is bounded by the block count so a cycle
// of passthroughs cannot loop forever. The now-unreferenced passthroughs are
// left for deadBlocks to sweep.
func emptyBlocks(fn *ir.Function) {
	forward := make(map[ir.BlockId]ir.BlockId)
	for _, blk := range fn.Blocks {
		if len(blk.Instrs) == 0 && blk.Term.Kind == ir.TermJump {
			forward[blk.ID] = blk.Term.Target
		}
	}
	if len(forward) == 0 {
		return
	}

	maxHops := len(fn.Blocks)
	resolved := make(map[ir.BlockId]ir.BlockId, len(forward))
	for start := range forward {
		cur := start
		for i := 0; i < maxHops; i++ {
			next, ok := forward[cur]
			if !ok {
				break
			}
			cur = next
		}
		resolved[start] = cur
	}

	fwd := func(id ir.BlockId) ir.BlockId {
		if to, ok := resolved[id]; ok {
			return to
		}
		return id
	}

	for _, blk := range fn.Blocks {
		switch blk.Term.Kind {
		case ir.TermJump:
			blk.Term.Target = fwd(blk.Term.Target)
		case ir.TermBranchIf:
			blk.Term.IfTrue = fwd(blk.Term.IfTrue)
			blk.Term.IfFalse = fwd(blk.Term.IfFalse)
		case ir.TermBranchTable:
			for i := range blk.Term.Targets {
				blk.Term.Targets[i] = fwd(blk.Term.Targets[i])
			}
			blk.Term.Default = fwd(blk.Term.Default)
		}
	}
}
