package optimizer

import (
	"math"
	"math/bits"

	"github.com/wasmelt/wasmelt/internal/ir"
	"github.com/wasmelt/wasmelt/internal/moremath"
)

// constProp propagates and folds constants, block-locally, to fixpoint.
//
// A per-block map tracks which variables hold known constants. Const records
// its value; an Assign from a known variable becomes a Const; a BinOp/UnOp
// over known operands folds when foldBinOp/foldUnOp can evaluate it. Any
// other defining instruction invalidates a stale entry for its destination —
// critical for the non-SSA locals that Assign redefines (loop accumulators).
//
// Operations that could trap at runtime are never folded away: division or
// remainder with divisor zero, signed division of the minimum value by -1,
// and float-to-integer truncation of NaN or out-of-range values. The lone
// exception is signed-minimum rem -1, which the spec defines as 0 without
// trapping, so it folds.
func constProp(fn *ir.Function) {
	for {
		changed := false
		for _, blk := range fn.Blocks {
			known := make(map[ir.VarId]ir.Value)
			for _, instr := range blk.Instrs {
				folded := false
				switch instr.Kind {
				case ir.InstrConst:
					known[instr.Dest] = instr.Val
					folded = true
				case ir.InstrAssign:
					if val, ok := known[instr.X]; ok {
						*instr = *ir.NewConst(instr.Dest, val)
						known[instr.Dest] = val
						changed = true
						folded = true
					}
				case ir.InstrBinOp:
					lv, lok := known[instr.X]
					rv, rok := known[instr.Y]
					if lok && rok {
						if result, ok := foldBinOp(instr.Bin, lv, rv); ok {
							*instr = *ir.NewConst(instr.Dest, result)
							known[instr.Dest] = result
							changed = true
							folded = true
						}
					}
				case ir.InstrUnOp:
					if val, ok := known[instr.X]; ok {
						if result, ok := foldUnOp(instr.Un, val); ok {
							*instr = *ir.NewConst(instr.Dest, result)
							known[instr.Dest] = result
							changed = true
							folded = true
						}
					}
				}
				if !folded {
					if dest, ok := instrDest(instr); ok {
						delete(known, dest)
					}
				}
			}
		}
		if !changed {
			return
		}
	}
}

func boolToI32(b bool) ir.Value {
	if b {
		return ir.I32Value(1)
	}
	return ir.I32Value(0)
}

// foldBinOp evaluates a binary operation over two constants. It returns
// false when the operand types don't match the operation or when evaluation
// would trap at runtime — the trap must stay in the generated code.
func foldBinOp(op ir.BinOp, lhs, rhs ir.Value) (ir.Value, bool) {
	switch {
	case lhs.Typ == ir.TypeI32 && rhs.Typ == ir.TypeI32:
		a, b := lhs.I32(), rhs.I32()
		switch op {
		case ir.BinOpI32Add:
			return ir.I32Value(a + b), true
		case ir.BinOpI32Sub:
			return ir.I32Value(a - b), true
		case ir.BinOpI32Mul:
			return ir.I32Value(a * b), true
		case ir.BinOpI32DivS:
			if b == 0 || (a == math.MinInt32 && b == -1) {
				return ir.Value{}, false
			}
			return ir.I32Value(a / b), true
		case ir.BinOpI32DivU:
			if b == 0 {
				return ir.Value{}, false
			}
			return ir.I32Value(int32(uint32(a) / uint32(b))), true
		case ir.BinOpI32RemS:
			if b == 0 {
				return ir.Value{}, false
			}
			if a == math.MinInt32 && b == -1 {
				return ir.I32Value(0), true
			}
			return ir.I32Value(a % b), true
		case ir.BinOpI32RemU:
			if b == 0 {
				return ir.Value{}, false
			}
			return ir.I32Value(int32(uint32(a) % uint32(b))), true
		case ir.BinOpI32And:
			return ir.I32Value(a & b), true
		case ir.BinOpI32Or:
			return ir.I32Value(a | b), true
		case ir.BinOpI32Xor:
			return ir.I32Value(a ^ b), true
		case ir.BinOpI32Shl:
			return ir.I32Value(a << (uint32(b) & 31)), true
		case ir.BinOpI32ShrS:
			return ir.I32Value(a >> (uint32(b) & 31)), true
		case ir.BinOpI32ShrU:
			return ir.I32Value(int32(uint32(a) >> (uint32(b) & 31))), true
		case ir.BinOpI32Rotl:
			return ir.I32Value(int32(rotl32(uint32(a), uint32(b)&31))), true
		case ir.BinOpI32Rotr:
			return ir.I32Value(int32(rotl32(uint32(a), 32-(uint32(b)&31)))), true
		case ir.BinOpI32Eq:
			return boolToI32(a == b), true
		case ir.BinOpI32Ne:
			return boolToI32(a != b), true
		case ir.BinOpI32LtS:
			return boolToI32(a < b), true
		case ir.BinOpI32LtU:
			return boolToI32(uint32(a) < uint32(b)), true
		case ir.BinOpI32GtS:
			return boolToI32(a > b), true
		case ir.BinOpI32GtU:
			return boolToI32(uint32(a) > uint32(b)), true
		case ir.BinOpI32LeS:
			return boolToI32(a <= b), true
		case ir.BinOpI32LeU:
			return boolToI32(uint32(a) <= uint32(b)), true
		case ir.BinOpI32GeS:
			return boolToI32(a >= b), true
		case ir.BinOpI32GeU:
			return boolToI32(uint32(a) >= uint32(b)), true
		}
	case lhs.Typ == ir.TypeI64 && rhs.Typ == ir.TypeI64:
		a, b := lhs.I64(), rhs.I64()
		switch op {
		case ir.BinOpI64Add:
			return ir.I64Value(a + b), true
		case ir.BinOpI64Sub:
			return ir.I64Value(a - b), true
		case ir.BinOpI64Mul:
			return ir.I64Value(a * b), true
		case ir.BinOpI64DivS:
			if b == 0 || (a == math.MinInt64 && b == -1) {
				return ir.Value{}, false
			}
			return ir.I64Value(a / b), true
		case ir.BinOpI64DivU:
			if b == 0 {
				return ir.Value{}, false
			}
			return ir.I64Value(int64(uint64(a) / uint64(b))), true
		case ir.BinOpI64RemS:
			if b == 0 {
				return ir.Value{}, false
			}
			if a == math.MinInt64 && b == -1 {
				return ir.I64Value(0), true
			}
			return ir.I64Value(a % b), true
		case ir.BinOpI64RemU:
			if b == 0 {
				return ir.Value{}, false
			}
			return ir.I64Value(int64(uint64(a) % uint64(b))), true
		case ir.BinOpI64And:
			return ir.I64Value(a & b), true
		case ir.BinOpI64Or:
			return ir.I64Value(a | b), true
		case ir.BinOpI64Xor:
			return ir.I64Value(a ^ b), true
		case ir.BinOpI64Shl:
			return ir.I64Value(a << (uint64(b) & 63)), true
		case ir.BinOpI64ShrS:
			return ir.I64Value(a >> (uint64(b) & 63)), true
		case ir.BinOpI64ShrU:
			return ir.I64Value(int64(uint64(a) >> (uint64(b) & 63))), true
		case ir.BinOpI64Rotl:
			return ir.I64Value(int64(rotl64(uint64(a), uint64(b)&63))), true
		case ir.BinOpI64Rotr:
			return ir.I64Value(int64(rotl64(uint64(a), 64-(uint64(b)&63)))), true
		case ir.BinOpI64Eq:
			return boolToI32(a == b), true
		case ir.BinOpI64Ne:
			return boolToI32(a != b), true
		case ir.BinOpI64LtS:
			return boolToI32(a < b), true
		case ir.BinOpI64LtU:
			return boolToI32(uint64(a) < uint64(b)), true
		case ir.BinOpI64GtS:
			return boolToI32(a > b), true
		case ir.BinOpI64GtU:
			return boolToI32(uint64(a) > uint64(b)), true
		case ir.BinOpI64LeS:
			return boolToI32(a <= b), true
		case ir.BinOpI64LeU:
			return boolToI32(uint64(a) <= uint64(b)), true
		case ir.BinOpI64GeS:
			return boolToI32(a >= b), true
		case ir.BinOpI64GeU:
			return boolToI32(uint64(a) >= uint64(b)), true
		}
	case lhs.Typ == ir.TypeF32 && rhs.Typ == ir.TypeF32:
		a, b := lhs.F32(), rhs.F32()
		switch op {
		case ir.BinOpF32Add:
			return ir.F32Value(a + b), true
		case ir.BinOpF32Sub:
			return ir.F32Value(a - b), true
		case ir.BinOpF32Mul:
			return ir.F32Value(a * b), true
		case ir.BinOpF32Div:
			return ir.F32Value(a / b), true
		case ir.BinOpF32Min:
			return ir.F32Value(float32(moremath.WasmCompatMin(float64(a), float64(b)))), true
		case ir.BinOpF32Max:
			return ir.F32Value(float32(moremath.WasmCompatMax(float64(a), float64(b)))), true
		case ir.BinOpF32Copysign:
			return ir.F32Value(float32(math.Copysign(float64(a), float64(b)))), true
		case ir.BinOpF32Eq:
			return boolToI32(a == b), true
		case ir.BinOpF32Ne:
			return boolToI32(a != b), true
		case ir.BinOpF32Lt:
			return boolToI32(a < b), true
		case ir.BinOpF32Gt:
			return boolToI32(a > b), true
		case ir.BinOpF32Le:
			return boolToI32(a <= b), true
		case ir.BinOpF32Ge:
			return boolToI32(a >= b), true
		}
	case lhs.Typ == ir.TypeF64 && rhs.Typ == ir.TypeF64:
		a, b := lhs.F64(), rhs.F64()
		switch op {
		case ir.BinOpF64Add:
			return ir.F64Value(a + b), true
		case ir.BinOpF64Sub:
			return ir.F64Value(a - b), true
		case ir.BinOpF64Mul:
			return ir.F64Value(a * b), true
		case ir.BinOpF64Div:
			return ir.F64Value(a / b), true
		case ir.BinOpF64Min:
			return ir.F64Value(moremath.WasmCompatMin(a, b)), true
		case ir.BinOpF64Max:
			return ir.F64Value(moremath.WasmCompatMax(a, b)), true
		case ir.BinOpF64Copysign:
			return ir.F64Value(math.Copysign(a, b)), true
		case ir.BinOpF64Eq:
			return boolToI32(a == b), true
		case ir.BinOpF64Ne:
			return boolToI32(a != b), true
		case ir.BinOpF64Lt:
			return boolToI32(a < b), true
		case ir.BinOpF64Gt:
			return boolToI32(a > b), true
		case ir.BinOpF64Le:
			return boolToI32(a <= b), true
		case ir.BinOpF64Ge:
			return boolToI32(a >= b), true
		}
	}
	return ir.Value{}, false
}

// foldUnOp evaluates a unary operation over a constant, declining the
// trapping truncations on NaN or out-of-range inputs.
func foldUnOp(op ir.UnOp, val ir.Value) (ir.Value, bool) {
	switch val.Typ {
	case ir.TypeI32:
		v := val.I32()
		switch op {
		case ir.UnOpI32Clz:
			return ir.I32Value(int32(bits.LeadingZeros32(uint32(v)))), true
		case ir.UnOpI32Ctz:
			return ir.I32Value(int32(bits.TrailingZeros32(uint32(v)))), true
		case ir.UnOpI32Popcnt:
			return ir.I32Value(int32(bits.OnesCount32(uint32(v)))), true
		case ir.UnOpI32Eqz:
			return boolToI32(v == 0), true
		case ir.UnOpI64ExtendI32S:
			return ir.I64Value(int64(v)), true
		case ir.UnOpI64ExtendI32U:
			return ir.I64Value(int64(uint32(v))), true
		case ir.UnOpF32ConvertI32S:
			return ir.F32Value(float32(v)), true
		case ir.UnOpF32ConvertI32U:
			return ir.F32Value(float32(uint32(v))), true
		case ir.UnOpF64ConvertI32S:
			return ir.F64Value(float64(v)), true
		case ir.UnOpF64ConvertI32U:
			return ir.F64Value(float64(uint32(v))), true
		case ir.UnOpF32ReinterpretI32:
			return ir.Value{Typ: ir.TypeF32, Bits: uint64(uint32(v))}, true
		}
	case ir.TypeI64:
		v := val.I64()
		switch op {
		case ir.UnOpI64Clz:
			return ir.I64Value(int64(bits.LeadingZeros64(uint64(v)))), true
		case ir.UnOpI64Ctz:
			return ir.I64Value(int64(bits.TrailingZeros64(uint64(v)))), true
		case ir.UnOpI64Popcnt:
			return ir.I64Value(int64(bits.OnesCount64(uint64(v)))), true
		case ir.UnOpI64Eqz:
			return boolToI32(v == 0), true
		case ir.UnOpI32WrapI64:
			return ir.I32Value(int32(v)), true
		case ir.UnOpF32ConvertI64S:
			return ir.F32Value(float32(v)), true
		case ir.UnOpF32ConvertI64U:
			return ir.F32Value(float32(uint64(v))), true
		case ir.UnOpF64ConvertI64S:
			return ir.F64Value(float64(v)), true
		case ir.UnOpF64ConvertI64U:
			return ir.F64Value(float64(uint64(v))), true
		case ir.UnOpF64ReinterpretI64:
			return ir.Value{Typ: ir.TypeF64, Bits: uint64(v)}, true
		}
	case ir.TypeF32:
		v := val.F32()
		switch op {
		case ir.UnOpF32Abs:
			return ir.F32Value(float32(math.Abs(float64(v)))), true
		case ir.UnOpF32Neg:
			return ir.F32Value(-v), true
		case ir.UnOpF32Ceil:
			return ir.F32Value(float32(math.Ceil(float64(v)))), true
		case ir.UnOpF32Floor:
			return ir.F32Value(float32(math.Floor(float64(v)))), true
		case ir.UnOpF32Trunc:
			return ir.F32Value(float32(math.Trunc(float64(v)))), true
		case ir.UnOpF32Nearest:
			return ir.F32Value(moremath.WasmCompatNearestF32(v)), true
		case ir.UnOpF32Sqrt:
			return ir.F32Value(float32(math.Sqrt(float64(v)))), true
		case ir.UnOpF64PromoteF32:
			return ir.F64Value(float64(v)), true
		case ir.UnOpI32ReinterpretF32:
			return ir.I32Value(int32(math.Float32bits(v))), true
		case ir.UnOpI32TruncF32S:
			if v != v || v >= 2147483648.0 || v < -2147483648.0 {
				return ir.Value{}, false
			}
			return ir.I32Value(int32(v)), true
		case ir.UnOpI32TruncF32U:
			if v != v || v >= 4294967296.0 || v <= -1.0 {
				return ir.Value{}, false
			}
			return ir.I32Value(int32(uint32(v))), true
		case ir.UnOpI64TruncF32S:
			if v != v || v >= 9223372036854775808.0 || v < -9223372036854775808.0 {
				return ir.Value{}, false
			}
			return ir.I64Value(int64(v)), true
		case ir.UnOpI64TruncF32U:
			if v != v || v >= 18446744073709551616.0 || v <= -1.0 {
				return ir.Value{}, false
			}
			return ir.I64Value(int64(uint64(v))), true
		}
	case ir.TypeF64:
		v := val.F64()
		switch op {
		case ir.UnOpF64Abs:
			return ir.F64Value(math.Abs(v)), true
		case ir.UnOpF64Neg:
			return ir.F64Value(-v), true
		case ir.UnOpF64Ceil:
			return ir.F64Value(math.Ceil(v)), true
		case ir.UnOpF64Floor:
			return ir.F64Value(math.Floor(v)), true
		case ir.UnOpF64Trunc:
			return ir.F64Value(math.Trunc(v)), true
		case ir.UnOpF64Nearest:
			return ir.F64Value(moremath.WasmCompatNearestF64(v)), true
		case ir.UnOpF64Sqrt:
			return ir.F64Value(math.Sqrt(v)), true
		case ir.UnOpF32DemoteF64:
			return ir.F32Value(float32(v)), true
		case ir.UnOpI64ReinterpretF64:
			return ir.I64Value(int64(math.Float64bits(v))), true
		case ir.UnOpI32TruncF64S:
			if math.IsNaN(v) || v >= 2147483648.0 || v < -2147483648.0 {
				return ir.Value{}, false
			}
			return ir.I32Value(int32(v)), true
		case ir.UnOpI32TruncF64U:
			if math.IsNaN(v) || v >= 4294967296.0 || v <= -1.0 {
				return ir.Value{}, false
			}
			return ir.I32Value(int32(uint32(v))), true
		case ir.UnOpI64TruncF64S:
			if math.IsNaN(v) || v >= 9223372036854775808.0 || v < -9223372036854775808.0 {
				return ir.Value{}, false
			}
			return ir.I64Value(int64(v)), true
		case ir.UnOpI64TruncF64U:
			if math.IsNaN(v) || v >= 18446744073709551616.0 || v <= -1.0 {
				return ir.Value{}, false
			}
			return ir.I64Value(int64(uint64(v))), true
		}
	}
	return ir.Value{}, false
}

func rotl32(v, k uint32) uint32 {
	return bits.RotateLeft32(v, int(k))
}

func rotl64(v, k uint64) uint64 {
	return bits.RotateLeft64(v, int(k))
}
