package optimizer

import (
	"github.com/wasmelt/wasmelt/internal/ir"
)

// valueKey identifies a pure computation for block-local value numbering.
// Constants key on their bit pattern, so NaNs with identical bits unify
// while +0.0 and -0.0 stay distinct. Commutative binary operations are
// canonicalized with the smaller variable first.
type valueKey struct {
	kind ir.InstrKind
	bin  ir.BinOp
	un   ir.UnOp
	x, y ir.VarId
	typ  ir.Type
	bits uint64
}

func constKey(v ir.Value) valueKey {
	return valueKey{kind: ir.InstrConst, typ: v.Typ, bits: v.Bits}
}

func binOpKey(op ir.BinOp, lhs, rhs ir.VarId) valueKey {
	if op.IsCommutative() && lhs > rhs {
		lhs, rhs = rhs, lhs
	}
	return valueKey{kind: ir.InstrBinOp, bin: op, x: lhs, y: rhs}
}

func unOpKey(op ir.UnOp, operand ir.VarId) valueKey {
	return valueKey{kind: ir.InstrUnOp, un: op, x: operand}
}

// localCSE replaces duplicated pure computations within each block with an
// Assign from the first result; copy propagation cleans the copies up. Only
// side-effect-free instruction kinds participate — Load, Call, and friends
// never unify.
func localCSE(fn *ir.Function) {
	changed := false
	for _, blk := range fn.Blocks {
		valueMap := make(map[valueKey]ir.VarId)
		for _, instr := range blk.Instrs {
			var key valueKey
			switch instr.Kind {
			case ir.InstrConst:
				key = constKey(instr.Val)
			case ir.InstrBinOp:
				key = binOpKey(instr.Bin, instr.X, instr.Y)
			case ir.InstrUnOp:
				key = unOpKey(instr.Un, instr.X)
			default:
				continue
			}
			if first, ok := valueMap[key]; ok {
				*instr = *ir.NewAssign(instr.Dest, first)
				changed = true
			} else {
				valueMap[key] = instr.Dest
			}
		}
	}
	if changed {
		pruneDeadLocals(fn)
	}
}
