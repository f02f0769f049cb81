package optimizer

import (
	"fmt"

	"github.com/wasmelt/wasmelt/internal/ir"
)

// deadBlocks removes blocks unreachable from the entry. Dead blocks arise
// naturally during translation when Wasm code follows a return, branch, or
// unreachable inside a structured construct.
//
// A terminator referencing a block that is not in the function at all is IR
// corruption from an earlier stage, reported as an error.
func deadBlocks(fn *ir.Function) error {
	blockByID := make(map[ir.BlockId]*ir.Block, len(fn.Blocks))
	for _, blk := range fn.Blocks {
		blockByID[blk.ID] = blk
	}

	reachable := make(map[ir.BlockId]struct{}, len(fn.Blocks))
	worklist := []ir.BlockId{fn.EntryBlock}
	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if _, seen := reachable[id]; seen {
			continue
		}
		reachable[id] = struct{}{}
		blk, ok := blockByID[id]
		if !ok {
			return fmt.Errorf("IR invariant violated: terminator references %s, which is not in the function", id)
		}
		worklist = append(worklist, blk.Term.Successors()...)
	}

	kept := fn.Blocks[:0]
	for _, blk := range fn.Blocks {
		if _, ok := reachable[blk.ID]; ok {
			kept = append(kept, blk)
		}
	}
	fn.Blocks = kept
	return nil
}
