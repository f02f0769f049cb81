// Package optimizer implements the machine-independent IR-to-IR passes run
// between translation and code generation. The pipeline order is fixed; see
// Run. Every pass preserves observational semantics, including the position
// of pre-existing traps.
package optimizer

import (
	"github.com/wasmelt/wasmelt/internal/ir"
)

// forEachUse calls f with every variable read by instr.
func forEachUse(instr *ir.Instr, f func(ir.VarId)) {
	switch instr.Kind {
	case ir.InstrConst, ir.InstrGlobalGet, ir.InstrMemorySize:
	case ir.InstrBinOp:
		f(instr.X)
		f(instr.Y)
	case ir.InstrUnOp, ir.InstrAssign, ir.InstrGlobalSet, ir.InstrMemoryGrow, ir.InstrLoad:
		f(instr.X)
	case ir.InstrStore:
		f(instr.X)
		f(instr.Y)
	case ir.InstrMemoryCopy, ir.InstrSelect:
		f(instr.X)
		f(instr.Y)
		f(instr.Z)
	case ir.InstrCall, ir.InstrCallImport:
		for _, a := range instr.Args {
			f(a)
		}
	case ir.InstrCallIndirect:
		f(instr.X)
		for _, a := range instr.Args {
			f(a)
		}
	default:
		panic(int(instr.Kind))
	}
}

// forEachUseTerminator calls f with every variable read by term.
func forEachUseTerminator(term *ir.Terminator, f func(ir.VarId)) {
	switch term.Kind {
	case ir.TermReturn:
		if term.Val.Valid() {
			f(term.Val)
		}
	case ir.TermBranchIf, ir.TermBranchTable:
		f(term.Val)
	case ir.TermJump, ir.TermUnreachable:
	}
}

// instrDest returns the variable written by instr and whether one exists.
func instrDest(instr *ir.Instr) (ir.VarId, bool) {
	if instr.Dest.Valid() {
		return instr.Dest, true
	}
	return ir.VarIdInvalid, false
}

// setInstrDest redirects the destination of a value-producing instruction.
func setInstrDest(instr *ir.Instr, dest ir.VarId) {
	instr.Dest = dest
}

// replaceUses substitutes new for every read of old in instr. Destination
// slots are never touched.
func replaceUses(instr *ir.Instr, old, new ir.VarId) {
	sub := func(v *ir.VarId) {
		if *v == old {
			*v = new
		}
	}
	switch instr.Kind {
	case ir.InstrConst, ir.InstrGlobalGet, ir.InstrMemorySize:
	case ir.InstrBinOp, ir.InstrStore:
		sub(&instr.X)
		sub(&instr.Y)
	case ir.InstrUnOp, ir.InstrAssign, ir.InstrGlobalSet, ir.InstrMemoryGrow, ir.InstrLoad:
		sub(&instr.X)
	case ir.InstrMemoryCopy, ir.InstrSelect:
		sub(&instr.X)
		sub(&instr.Y)
		sub(&instr.Z)
	case ir.InstrCall, ir.InstrCallImport:
		for i := range instr.Args {
			sub(&instr.Args[i])
		}
	case ir.InstrCallIndirect:
		sub(&instr.X)
		for i := range instr.Args {
			sub(&instr.Args[i])
		}
	}
}

// replaceUsesTerminator substitutes new for every read of old in term.
func replaceUsesTerminator(term *ir.Terminator, old, new ir.VarId) {
	switch term.Kind {
	case ir.TermReturn:
		if term.Val.Valid() && term.Val == old {
			term.Val = new
		}
	case ir.TermBranchIf, ir.TermBranchTable:
		if term.Val == old {
			term.Val = new
		}
	}
}

// countUses returns how many times v is read by instr.
func countUses(instr *ir.Instr, v ir.VarId) int {
	n := 0
	forEachUse(instr, func(u ir.VarId) {
		if u == v {
			n++
		}
	})
	return n
}

// countUsesTerminator returns how many times v is read by term.
func countUsesTerminator(term *ir.Terminator, v ir.VarId) int {
	n := 0
	forEachUseTerminator(term, func(u ir.VarId) {
		if u == v {
			n++
		}
	})
	return n
}

// buildGlobalUseCount counts how many times each variable is read across the
// whole function: all blocks, instructions, and terminators. Per-block
// counts are not enough for coalescing decisions — a variable read in
// another block must never look single-use.
func buildGlobalUseCount(fn *ir.Function) map[ir.VarId]int {
	counts := make(map[ir.VarId]int)
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			forEachUse(instr, func(v ir.VarId) {
				counts[v]++
			})
		}
		forEachUseTerminator(&blk.Term, func(v ir.VarId) {
			counts[v]++
		})
	}
	return counts
}

// isSideEffectFree reports whether instr can be removed when its result is
// unused. Loads and grows may trap, stores and global-sets mutate state, and
// calls have unknown effects, so they all stay even when dead.
func isSideEffectFree(instr *ir.Instr) bool {
	switch instr.Kind {
	case ir.InstrConst, ir.InstrBinOp, ir.InstrUnOp, ir.InstrAssign,
		ir.InstrSelect, ir.InstrGlobalGet, ir.InstrMemorySize:
		return true
	default:
		return false
	}
}

// buildPredecessors maps every block to the set of distinct blocks that can
// transfer control to it.
func buildPredecessors(fn *ir.Function) map[ir.BlockId]map[ir.BlockId]struct{} {
	preds := make(map[ir.BlockId]map[ir.BlockId]struct{}, len(fn.Blocks))
	for _, blk := range fn.Blocks {
		if preds[blk.ID] == nil {
			preds[blk.ID] = make(map[ir.BlockId]struct{})
		}
	}
	for _, blk := range fn.Blocks {
		for _, succ := range blk.Term.Successors() {
			if preds[succ] == nil {
				preds[succ] = make(map[ir.BlockId]struct{})
			}
			preds[succ][blk.ID] = struct{}{}
		}
	}
	return preds
}

// pruneDeadLocals drops declared-local entries whose variable no longer
// appears in any surviving instruction or terminator. Parameters are kept
// unconditionally.
func pruneDeadLocals(fn *ir.Function) {
	live := make(map[ir.VarId]struct{})
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			forEachUse(instr, func(v ir.VarId) {
				live[v] = struct{}{}
			})
			if dest, ok := instrDest(instr); ok {
				live[dest] = struct{}{}
			}
		}
		forEachUseTerminator(&blk.Term, func(v ir.VarId) {
			live[v] = struct{}{}
		})
	}

	kept := fn.Locals[:0]
	for _, l := range fn.Locals {
		if _, ok := live[l.Var]; ok {
			kept = append(kept, l)
		}
	}
	fn.Locals = kept
}
