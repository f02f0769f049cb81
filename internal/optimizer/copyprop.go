package optimizer

import (
	"github.com/wasmelt/wasmelt/internal/ir"
)

// copyProp eliminates the Assign copies that Wasm's stack-based evaluation
// and local modeling produce, in two sub-passes run to fixpoint: backward
// coalescing first, then forward substitution. Dead locals are pruned after
// both settle.
//
// Backward coalescing: for Assign(vDst, vSrc) where vSrc is defined earlier
// in the same block and read exactly once in the whole function (by this
// Assign), and vDst is neither read nor written strictly between the
// definition and the Assign, the definition is redirected to write vDst and
// the Assign removed. The whole-function use count is mandatory: coalescing
// a variable with cross-block reads would leave those reads undefined.
//
// Forward substitution: for Assign(vDst, vSrc) where every read of vDst sits
// in this block after the Assign, vDst is not redefined after it, and vSrc
// is not redefined before the last such read, every read of vDst becomes
// vSrc and the Assign is removed.
func copyProp(fn *ir.Function) {
	// The use-count map goes stale as soon as one coalescing lands, so each
	// round rebuilds it and restarts after the first change.
	for {
		globalUses := buildGlobalUseCount(fn)
		changed := false
		for _, blk := range fn.Blocks {
			if coalesceOne(blk, globalUses) {
				changed = true
				break
			}
		}
		if !changed {
			break
		}
	}

	for {
		globalUses := buildGlobalUseCount(fn)
		changed := false
		for _, blk := range fn.Blocks {
			if forwardPropagateOne(blk, globalUses) {
				changed = true
				break
			}
		}
		if !changed {
			break
		}
	}

	pruneDeadLocals(fn)
}

// coalesceOne performs at most one backward coalescing in blk, returning
// whether it changed anything.
func coalesceOne(blk *ir.Block, globalUses map[ir.VarId]int) bool {
	defSite := make(map[ir.VarId]int)
	for i, instr := range blk.Instrs {
		if dest, ok := instrDest(instr); ok {
			defSite[dest] = i
		}
	}

	for assignIdx, instr := range blk.Instrs {
		if instr.Kind != ir.InstrAssign {
			continue
		}
		vDst, vSrc := instr.Dest, instr.X

		// Self-assignments are removed outright.
		if vDst == vSrc {
			blk.Instrs = append(blk.Instrs[:assignIdx], blk.Instrs[assignIdx+1:]...)
			return true
		}

		// vSrc must be read exactly once function-wide (this Assign).
		if globalUses[vSrc] != 1 {
			continue
		}

		defIdx, ok := defSite[vSrc]
		if !ok || defIdx >= assignIdx {
			continue
		}

		// vDst must not be touched between the definition and the Assign:
		// an intervening read would observe the new value, an intervening
		// write would be clobbered.
		conflict := false
		for _, between := range blk.Instrs[defIdx+1 : assignIdx] {
			if countUses(between, vDst) > 0 {
				conflict = true
				break
			}
			if dest, ok := instrDest(between); ok && dest == vDst {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}

		setInstrDest(blk.Instrs[defIdx], vDst)
		blk.Instrs = append(blk.Instrs[:assignIdx], blk.Instrs[assignIdx+1:]...)
		return true
	}
	return false
}

// forwardPropagateOne performs at most one forward substitution in blk,
// returning whether it changed anything.
func forwardPropagateOne(blk *ir.Block, globalUses map[ir.VarId]int) bool {
	for assignIdx, instr := range blk.Instrs {
		if instr.Kind != ir.InstrAssign {
			continue
		}
		vDst, vSrc := instr.Dest, instr.X
		if vDst == vSrc {
			continue // handled by the backward pass
		}

		// Count the reads of vDst after the Assign in this block; they must
		// account for every read function-wide, otherwise vDst escapes to
		// another block (or is read before the Assign) and substitution is
		// unsafe.
		usesAfter := 0
		for _, later := range blk.Instrs[assignIdx+1:] {
			usesAfter += countUses(later, vDst)
		}
		usesInTerm := countUsesTerminator(&blk.Term, vDst)
		localUses := usesAfter + usesInTerm
		if globalUses[vDst] != localUses || localUses == 0 {
			continue
		}

		// vDst must not be redefined after the Assign.
		redefined := false
		for _, later := range blk.Instrs[assignIdx+1:] {
			if dest, ok := instrDest(later); ok && dest == vDst {
				redefined = true
				break
			}
		}
		if redefined {
			continue
		}

		// vSrc must stay stable up to the last read of vDst. A write of
		// vSrc at the last-reading instruction itself is fine: reads happen
		// before the destination write.
		checkEnd := len(blk.Instrs)
		if usesInTerm == 0 {
			for i := len(blk.Instrs) - 1; i > assignIdx; i-- {
				if countUses(blk.Instrs[i], vDst) > 0 {
					checkEnd = i
					break
				}
			}
		}
		srcClobbered := false
		for _, between := range blk.Instrs[assignIdx+1 : checkEnd] {
			if dest, ok := instrDest(between); ok && dest == vSrc {
				srcClobbered = true
				break
			}
		}
		if srcClobbered {
			continue
		}

		for _, later := range blk.Instrs[assignIdx+1:] {
			replaceUses(later, vDst, vSrc)
		}
		replaceUsesTerminator(&blk.Term, vDst, vSrc)
		blk.Instrs = append(blk.Instrs[:assignIdx], blk.Instrs[assignIdx+1:]...)
		return true
	}
	return false
}
