package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wasmelt/wasmelt/internal/ir"
)

// SafeBackend emits bounds-checked Go with no unsafe constructs: every
// memory access and checked operation calls into wasmrt and propagates the
// trap, and all integer arithmetic relies on Go's two's-complement wrapping.
type SafeBackend struct{}

// NewSafeBackend returns the default backend.
func NewSafeBackend() *SafeBackend {
	return &SafeBackend{}
}

// errCheck is the propagation idiom appended after every fallible call: err
// is a named result, so a bare return unwinds the trap.
const errCheck = "if err != nil {\n\treturn\n}"

func goType(t ir.Type) string {
	switch t {
	case ir.TypeI32:
		return "int32"
	case ir.TypeI64:
		return "int64"
	case ir.TypeF32:
		return "float32"
	case ir.TypeF64:
		return "float64"
	default:
		panic(t.String())
	}
}

// goValueLiteral renders a constant as a Go expression of its type,
// spelling out NaN and infinities which have no literal form.
func goValueLiteral(v ir.Value) string {
	switch v.Typ {
	case ir.TypeI32:
		return strconv.FormatInt(int64(v.I32()), 10)
	case ir.TypeI64:
		return strconv.FormatInt(v.I64(), 10)
	case ir.TypeF32:
		f := v.F32()
		switch {
		case f != f:
			return "float32(math.NaN())"
		case math.IsInf(float64(f), 1):
			return "float32(math.Inf(1))"
		case math.IsInf(float64(f), -1):
			return "float32(math.Inf(-1))"
		default:
			return strconv.FormatFloat(float64(f), 'g', -1, 32)
		}
	case ir.TypeF64:
		f := v.F64()
		switch {
		case math.IsNaN(f):
			return "math.NaN()"
		case math.IsInf(f, 1):
			return "math.Inf(1)"
		case math.IsInf(f, -1):
			return "math.Inf(-1)"
		default:
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	default:
		panic(v.Typ)
	}
}

// EmitConst implements Backend.EmitConst.
func (b *SafeBackend) EmitConst(dest ir.VarId, val ir.Value) string {
	return fmt.Sprintf("%s = %s", dest, goValueLiteral(val))
}

// cmp renders the 0/1-producing comparison shape.
func cmp(dest ir.VarId, cond string) string {
	return fmt.Sprintf("if %s {\n\t%s = 1\n} else {\n\t%s = 0\n}", cond, dest, dest)
}

// checkedBin renders a call to one of wasmrt's checked operations followed
// by trap propagation.
func checkedBin(dest ir.VarId, fn string, lhs, rhs ir.VarId) string {
	return fmt.Sprintf("%s, err = wasmrt.%s(%s, %s)\n%s", dest, fn, lhs, rhs, errCheck)
}

// EmitBinOp implements Backend.EmitBinOp.
func (b *SafeBackend) EmitBinOp(dest ir.VarId, op ir.BinOp, lhs, rhs ir.VarId) string {
	d, l, r := dest.String(), lhs.String(), rhs.String()
	switch op {
	// Go's fixed-width integer arithmetic wraps, matching Wasm's modular
	// semantics.
	case ir.BinOpI32Add, ir.BinOpI64Add:
		return fmt.Sprintf("%s = %s + %s", d, l, r)
	case ir.BinOpI32Sub, ir.BinOpI64Sub:
		return fmt.Sprintf("%s = %s - %s", d, l, r)
	case ir.BinOpI32Mul, ir.BinOpI64Mul:
		return fmt.Sprintf("%s = %s * %s", d, l, r)

	case ir.BinOpI32DivS:
		return checkedBin(dest, "I32DivS", lhs, rhs)
	case ir.BinOpI32DivU:
		return checkedBin(dest, "I32DivU", lhs, rhs)
	case ir.BinOpI32RemS:
		return checkedBin(dest, "I32RemS", lhs, rhs)
	case ir.BinOpI32RemU:
		return checkedBin(dest, "I32RemU", lhs, rhs)
	case ir.BinOpI64DivS:
		return checkedBin(dest, "I64DivS", lhs, rhs)
	case ir.BinOpI64DivU:
		return checkedBin(dest, "I64DivU", lhs, rhs)
	case ir.BinOpI64RemS:
		return checkedBin(dest, "I64RemS", lhs, rhs)
	case ir.BinOpI64RemU:
		return checkedBin(dest, "I64RemU", lhs, rhs)

	case ir.BinOpI32And, ir.BinOpI64And:
		return fmt.Sprintf("%s = %s & %s", d, l, r)
	case ir.BinOpI32Or, ir.BinOpI64Or:
		return fmt.Sprintf("%s = %s | %s", d, l, r)
	case ir.BinOpI32Xor, ir.BinOpI64Xor:
		return fmt.Sprintf("%s = %s ^ %s", d, l, r)

	// Shift amounts are masked by the operand width per the Wasm spec.
	case ir.BinOpI32Shl:
		return fmt.Sprintf("%s = %s << (uint32(%s) & 31)", d, l, r)
	case ir.BinOpI32ShrS:
		return fmt.Sprintf("%s = %s >> (uint32(%s) & 31)", d, l, r)
	case ir.BinOpI32ShrU:
		return fmt.Sprintf("%s = int32(uint32(%s) >> (uint32(%s) & 31))", d, l, r)
	case ir.BinOpI64Shl:
		return fmt.Sprintf("%s = %s << (uint64(%s) & 63)", d, l, r)
	case ir.BinOpI64ShrS:
		return fmt.Sprintf("%s = %s >> (uint64(%s) & 63)", d, l, r)
	case ir.BinOpI64ShrU:
		return fmt.Sprintf("%s = int64(uint64(%s) >> (uint64(%s) & 63))", d, l, r)

	case ir.BinOpI32Rotl:
		return fmt.Sprintf("%s = int32(bits.RotateLeft32(uint32(%s), int(%s&31)))", d, l, r)
	case ir.BinOpI32Rotr:
		return fmt.Sprintf("%s = int32(bits.RotateLeft32(uint32(%s), -int(%s&31)))", d, l, r)
	case ir.BinOpI64Rotl:
		return fmt.Sprintf("%s = int64(bits.RotateLeft64(uint64(%s), int(%s&63)))", d, l, r)
	case ir.BinOpI64Rotr:
		return fmt.Sprintf("%s = int64(bits.RotateLeft64(uint64(%s), -int(%s&63)))", d, l, r)

	case ir.BinOpI32Eq, ir.BinOpI64Eq, ir.BinOpF32Eq, ir.BinOpF64Eq:
		return cmp(dest, fmt.Sprintf("%s == %s", l, r))
	case ir.BinOpI32Ne, ir.BinOpI64Ne, ir.BinOpF32Ne, ir.BinOpF64Ne:
		return cmp(dest, fmt.Sprintf("%s != %s", l, r))
	case ir.BinOpI32LtS, ir.BinOpI64LtS, ir.BinOpF32Lt, ir.BinOpF64Lt:
		return cmp(dest, fmt.Sprintf("%s < %s", l, r))
	case ir.BinOpI32GtS, ir.BinOpI64GtS, ir.BinOpF32Gt, ir.BinOpF64Gt:
		return cmp(dest, fmt.Sprintf("%s > %s", l, r))
	case ir.BinOpI32LeS, ir.BinOpI64LeS, ir.BinOpF32Le, ir.BinOpF64Le:
		return cmp(dest, fmt.Sprintf("%s <= %s", l, r))
	case ir.BinOpI32GeS, ir.BinOpI64GeS, ir.BinOpF32Ge, ir.BinOpF64Ge:
		return cmp(dest, fmt.Sprintf("%s >= %s", l, r))

	case ir.BinOpI32LtU:
		return cmp(dest, fmt.Sprintf("uint32(%s) < uint32(%s)", l, r))
	case ir.BinOpI32GtU:
		return cmp(dest, fmt.Sprintf("uint32(%s) > uint32(%s)", l, r))
	case ir.BinOpI32LeU:
		return cmp(dest, fmt.Sprintf("uint32(%s) <= uint32(%s)", l, r))
	case ir.BinOpI32GeU:
		return cmp(dest, fmt.Sprintf("uint32(%s) >= uint32(%s)", l, r))
	case ir.BinOpI64LtU:
		return cmp(dest, fmt.Sprintf("uint64(%s) < uint64(%s)", l, r))
	case ir.BinOpI64GtU:
		return cmp(dest, fmt.Sprintf("uint64(%s) > uint64(%s)", l, r))
	case ir.BinOpI64LeU:
		return cmp(dest, fmt.Sprintf("uint64(%s) <= uint64(%s)", l, r))
	case ir.BinOpI64GeU:
		return cmp(dest, fmt.Sprintf("uint64(%s) >= uint64(%s)", l, r))

	case ir.BinOpF32Add, ir.BinOpF64Add:
		return fmt.Sprintf("%s = %s + %s", d, l, r)
	case ir.BinOpF32Sub, ir.BinOpF64Sub:
		return fmt.Sprintf("%s = %s - %s", d, l, r)
	case ir.BinOpF32Mul, ir.BinOpF64Mul:
		return fmt.Sprintf("%s = %s * %s", d, l, r)
	case ir.BinOpF32Div, ir.BinOpF64Div:
		return fmt.Sprintf("%s = %s / %s", d, l, r)

	case ir.BinOpF32Min:
		return fmt.Sprintf("%s = wasmrt.F32Min(%s, %s)", d, l, r)
	case ir.BinOpF32Max:
		return fmt.Sprintf("%s = wasmrt.F32Max(%s, %s)", d, l, r)
	case ir.BinOpF64Min:
		return fmt.Sprintf("%s = wasmrt.F64Min(%s, %s)", d, l, r)
	case ir.BinOpF64Max:
		return fmt.Sprintf("%s = wasmrt.F64Max(%s, %s)", d, l, r)
	case ir.BinOpF32Copysign:
		return fmt.Sprintf("%s = float32(math.Copysign(float64(%s), float64(%s)))", d, l, r)
	case ir.BinOpF64Copysign:
		return fmt.Sprintf("%s = math.Copysign(%s, %s)", d, l, r)

	default:
		panic(fmt.Sprintf("BUG: unhandled binary op %d", op))
	}
}

// checkedUn renders a call to a checked unary runtime operation.
func checkedUn(dest ir.VarId, fn string, operand ir.VarId) string {
	return fmt.Sprintf("%s, err = wasmrt.%s(%s)\n%s", dest, fn, operand, errCheck)
}

// EmitUnOp implements Backend.EmitUnOp.
func (b *SafeBackend) EmitUnOp(dest ir.VarId, op ir.UnOp, operand ir.VarId) string {
	d, o := dest.String(), operand.String()
	switch op {
	case ir.UnOpI32Clz:
		return fmt.Sprintf("%s = int32(bits.LeadingZeros32(uint32(%s)))", d, o)
	case ir.UnOpI32Ctz:
		return fmt.Sprintf("%s = int32(bits.TrailingZeros32(uint32(%s)))", d, o)
	case ir.UnOpI32Popcnt:
		return fmt.Sprintf("%s = int32(bits.OnesCount32(uint32(%s)))", d, o)
	case ir.UnOpI32Eqz:
		return cmp(dest, fmt.Sprintf("%s == 0", o))
	case ir.UnOpI64Clz:
		return fmt.Sprintf("%s = int64(bits.LeadingZeros64(uint64(%s)))", d, o)
	case ir.UnOpI64Ctz:
		return fmt.Sprintf("%s = int64(bits.TrailingZeros64(uint64(%s)))", d, o)
	case ir.UnOpI64Popcnt:
		return fmt.Sprintf("%s = int64(bits.OnesCount64(uint64(%s)))", d, o)
	case ir.UnOpI64Eqz:
		return cmp(dest, fmt.Sprintf("%s == 0", o))

	case ir.UnOpF32Abs:
		return fmt.Sprintf("%s = float32(math.Abs(float64(%s)))", d, o)
	case ir.UnOpF32Neg:
		return fmt.Sprintf("%s = -%s", d, o)
	case ir.UnOpF32Ceil:
		return fmt.Sprintf("%s = float32(math.Ceil(float64(%s)))", d, o)
	case ir.UnOpF32Floor:
		return fmt.Sprintf("%s = float32(math.Floor(float64(%s)))", d, o)
	case ir.UnOpF32Trunc:
		return fmt.Sprintf("%s = float32(math.Trunc(float64(%s)))", d, o)
	case ir.UnOpF32Nearest:
		return fmt.Sprintf("%s = wasmrt.F32Nearest(%s)", d, o)
	case ir.UnOpF32Sqrt:
		return fmt.Sprintf("%s = float32(math.Sqrt(float64(%s)))", d, o)

	case ir.UnOpF64Abs:
		return fmt.Sprintf("%s = math.Abs(%s)", d, o)
	case ir.UnOpF64Neg:
		return fmt.Sprintf("%s = -%s", d, o)
	case ir.UnOpF64Ceil:
		return fmt.Sprintf("%s = math.Ceil(%s)", d, o)
	case ir.UnOpF64Floor:
		return fmt.Sprintf("%s = math.Floor(%s)", d, o)
	case ir.UnOpF64Trunc:
		return fmt.Sprintf("%s = math.Trunc(%s)", d, o)
	case ir.UnOpF64Nearest:
		return fmt.Sprintf("%s = wasmrt.F64Nearest(%s)", d, o)
	case ir.UnOpF64Sqrt:
		return fmt.Sprintf("%s = math.Sqrt(%s)", d, o)

	case ir.UnOpI32WrapI64:
		return fmt.Sprintf("%s = int32(%s)", d, o)
	case ir.UnOpI64ExtendI32S:
		return fmt.Sprintf("%s = int64(%s)", d, o)
	case ir.UnOpI64ExtendI32U:
		return fmt.Sprintf("%s = int64(uint32(%s))", d, o)

	case ir.UnOpI32TruncF32S:
		return checkedUn(dest, "I32TruncF32S", operand)
	case ir.UnOpI32TruncF32U:
		return checkedUn(dest, "I32TruncF32U", operand)
	case ir.UnOpI32TruncF64S:
		return checkedUn(dest, "I32TruncF64S", operand)
	case ir.UnOpI32TruncF64U:
		return checkedUn(dest, "I32TruncF64U", operand)
	case ir.UnOpI64TruncF32S:
		return checkedUn(dest, "I64TruncF32S", operand)
	case ir.UnOpI64TruncF32U:
		return checkedUn(dest, "I64TruncF32U", operand)
	case ir.UnOpI64TruncF64S:
		return checkedUn(dest, "I64TruncF64S", operand)
	case ir.UnOpI64TruncF64U:
		return checkedUn(dest, "I64TruncF64U", operand)

	case ir.UnOpF32ConvertI32S, ir.UnOpF32ConvertI64S:
		return fmt.Sprintf("%s = float32(%s)", d, o)
	case ir.UnOpF32ConvertI32U:
		return fmt.Sprintf("%s = float32(uint32(%s))", d, o)
	case ir.UnOpF32ConvertI64U:
		return fmt.Sprintf("%s = float32(uint64(%s))", d, o)
	case ir.UnOpF64ConvertI32S, ir.UnOpF64ConvertI64S:
		return fmt.Sprintf("%s = float64(%s)", d, o)
	case ir.UnOpF64ConvertI32U:
		return fmt.Sprintf("%s = float64(uint32(%s))", d, o)
	case ir.UnOpF64ConvertI64U:
		return fmt.Sprintf("%s = float64(uint64(%s))", d, o)

	case ir.UnOpF32DemoteF64:
		return fmt.Sprintf("%s = float32(%s)", d, o)
	case ir.UnOpF64PromoteF32:
		return fmt.Sprintf("%s = float64(%s)", d, o)

	case ir.UnOpI32ReinterpretF32:
		return fmt.Sprintf("%s = int32(math.Float32bits(%s))", d, o)
	case ir.UnOpI64ReinterpretF64:
		return fmt.Sprintf("%s = int64(math.Float64bits(%s))", d, o)
	case ir.UnOpF32ReinterpretI32:
		return fmt.Sprintf("%s = math.Float32frombits(uint32(%s))", d, o)
	case ir.UnOpF64ReinterpretI64:
		return fmt.Sprintf("%s = math.Float64frombits(uint64(%s))", d, o)

	default:
		panic(fmt.Sprintf("BUG: unhandled unary op %d", op))
	}
}

// addrExpr renders the effective address: the static offset is added with
// wrapping uint32 arithmetic before the runtime bounds check.
func addrExpr(addr ir.VarId, offset uint32) string {
	if offset == 0 {
		return fmt.Sprintf("uint32(%s)", addr)
	}
	return fmt.Sprintf("uint32(%s)+%d", addr, offset)
}

// EmitLoad implements Backend.EmitLoad.
func (b *SafeBackend) EmitLoad(dest ir.VarId, ty ir.Type, addr ir.VarId, offset uint32, width ir.MemoryAccessWidth, sign ir.SignExtension) string {
	a := addrExpr(addr, offset)

	// Full-width loads map directly onto the runtime helpers.
	if width == ir.WidthFull {
		var fn string
		switch ty {
		case ir.TypeI32:
			fn = "LoadI32"
		case ir.TypeI64:
			fn = "LoadI64"
		case ir.TypeF32:
			fn = "LoadF32"
		case ir.TypeF64:
			fn = "LoadF64"
		}
		return fmt.Sprintf("%s, err = mem.%s(%s)\n%s", dest, fn, a, errCheck)
	}

	// Sub-width loads read the narrow value and extend inside a scope of
	// their own, so the temporary doesn't collide with a neighboring load.
	var loadFn, tmpType, ext string
	switch {
	case width == ir.Width8 && ty == ir.TypeI32 && sign == ir.Signed:
		loadFn, tmpType, ext = "LoadU8", "uint8", "int32(int8(u))"
	case width == ir.Width8 && ty == ir.TypeI32 && sign == ir.Unsigned:
		loadFn, tmpType, ext = "LoadU8", "uint8", "int32(u)"
	case width == ir.Width16 && ty == ir.TypeI32 && sign == ir.Signed:
		loadFn, tmpType, ext = "LoadU16", "uint16", "int32(int16(u))"
	case width == ir.Width16 && ty == ir.TypeI32 && sign == ir.Unsigned:
		loadFn, tmpType, ext = "LoadU16", "uint16", "int32(u)"
	case width == ir.Width8 && ty == ir.TypeI64 && sign == ir.Signed:
		loadFn, tmpType, ext = "LoadU8", "uint8", "int64(int8(u))"
	case width == ir.Width8 && ty == ir.TypeI64 && sign == ir.Unsigned:
		loadFn, tmpType, ext = "LoadU8", "uint8", "int64(u)"
	case width == ir.Width16 && ty == ir.TypeI64 && sign == ir.Signed:
		loadFn, tmpType, ext = "LoadU16", "uint16", "int64(int16(u))"
	case width == ir.Width16 && ty == ir.TypeI64 && sign == ir.Unsigned:
		loadFn, tmpType, ext = "LoadU16", "uint16", "int64(u)"
	case width == ir.Width32 && ty == ir.TypeI64 && sign == ir.Signed:
		loadFn, tmpType, ext = "LoadI32", "int32", "int64(u)"
	case width == ir.Width32 && ty == ir.TypeI64 && sign == ir.Unsigned:
		loadFn, tmpType, ext = "LoadI32", "int32", "int64(uint32(u))"
	default:
		panic(fmt.Sprintf("BUG: invalid load shape %s width %d", ty, width))
	}
	return fmt.Sprintf("{\n\tvar u %s\n\tu, err = mem.%s(%s)\n\tif err != nil {\n\t\treturn\n\t}\n\t%s = %s\n}",
		tmpType, loadFn, a, dest, ext)
}

// EmitStore implements Backend.EmitStore.
func (b *SafeBackend) EmitStore(ty ir.Type, addr, value ir.VarId, offset uint32, width ir.MemoryAccessWidth) string {
	a := addrExpr(addr, offset)
	var call string
	switch {
	case width == ir.WidthFull && ty == ir.TypeI32:
		call = fmt.Sprintf("mem.StoreI32(%s, %s)", a, value)
	case width == ir.WidthFull && ty == ir.TypeI64:
		call = fmt.Sprintf("mem.StoreI64(%s, %s)", a, value)
	case width == ir.WidthFull && ty == ir.TypeF32:
		call = fmt.Sprintf("mem.StoreF32(%s, %s)", a, value)
	case width == ir.WidthFull && ty == ir.TypeF64:
		call = fmt.Sprintf("mem.StoreF64(%s, %s)", a, value)
	case width == ir.Width8:
		call = fmt.Sprintf("mem.StoreU8(%s, uint8(%s))", a, value)
	case width == ir.Width16:
		call = fmt.Sprintf("mem.StoreU16(%s, uint16(%s))", a, value)
	case width == ir.Width32 && ty == ir.TypeI64:
		call = fmt.Sprintf("mem.StoreI32(%s, int32(%s))", a, value)
	default:
		panic(fmt.Sprintf("BUG: invalid store shape %s width %d", ty, width))
	}
	return fmt.Sprintf("err = %s\n%s", call, errCheck)
}

// callArgs assembles the argument list for a generated call site: the Wasm
// arguments followed by the instance-state references the callee expects.
func callArgs(args []ir.VarId, ctx CallContext) string {
	parts := make([]string, 0, len(args)+4)
	for _, a := range args {
		parts = append(parts, a.String())
	}
	if ctx.NeedsHost {
		parts = append(parts, "host")
	}
	if ctx.HasGlobals {
		parts = append(parts, "globals")
	}
	if ctx.HasMemory {
		parts = append(parts, "mem")
	}
	if ctx.HasTable {
		parts = append(parts, "tbl")
	}
	return strings.Join(parts, ", ")
}

// EmitCall implements Backend.EmitCall.
func (b *SafeBackend) EmitCall(dest ir.VarId, funcName string, args []ir.VarId, ctx CallContext) string {
	call := fmt.Sprintf("%s(%s)", funcName, callArgs(args, ctx))
	if dest.Valid() {
		return fmt.Sprintf("%s, err = %s\n%s", dest, call, errCheck)
	}
	return fmt.Sprintf("err = %s\n%s", call, errCheck)
}

// EmitCallImport implements Backend.EmitCallImport.
func (b *SafeBackend) EmitCallImport(dest ir.VarId, methodName string, args []ir.VarId) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	call := fmt.Sprintf("host.%s(%s)", methodName, strings.Join(parts, ", "))
	if dest.Valid() {
		return fmt.Sprintf("%s, err = %s\n%s", dest, call, errCheck)
	}
	return fmt.Sprintf("err = %s\n%s", call, errCheck)
}

// EmitAssign implements Backend.EmitAssign.
func (b *SafeBackend) EmitAssign(dest, src ir.VarId) string {
	return fmt.Sprintf("%s = %s", dest, src)
}

// EmitGlobalGet implements Backend.EmitGlobalGet.
func (b *SafeBackend) EmitGlobalGet(dest ir.VarId, index uint32, mutable bool) string {
	if mutable {
		return fmt.Sprintf("%s = globals.G%d", dest, index)
	}
	return fmt.Sprintf("%s = G%d", dest, index)
}

// EmitGlobalSet implements Backend.EmitGlobalSet.
func (b *SafeBackend) EmitGlobalSet(index uint32, value ir.VarId) string {
	return fmt.Sprintf("globals.G%d = %s", index, value)
}

// EmitMemorySize implements Backend.EmitMemorySize.
func (b *SafeBackend) EmitMemorySize(dest ir.VarId) string {
	return fmt.Sprintf("%s = mem.Size()", dest)
}

// EmitMemoryGrow implements Backend.EmitMemoryGrow.
func (b *SafeBackend) EmitMemoryGrow(dest, delta ir.VarId) string {
	return fmt.Sprintf("%s = mem.Grow(%s)", dest, delta)
}

// EmitMemoryCopy implements Backend.EmitMemoryCopy.
func (b *SafeBackend) EmitMemoryCopy(dst, src, length ir.VarId) string {
	return fmt.Sprintf("err = mem.Copy(uint32(%s), uint32(%s), uint32(%s))\n%s", dst, src, length, errCheck)
}

// EmitSelect implements Backend.EmitSelect.
func (b *SafeBackend) EmitSelect(dest, val1, val2, condition ir.VarId) string {
	return fmt.Sprintf("if %s != 0 {\n\t%s = %s\n} else {\n\t%s = %s\n}", condition, dest, val1, dest, val2)
}

// EmitReturn implements Backend.EmitReturn.
func (b *SafeBackend) EmitReturn(value ir.VarId) string {
	if value.Valid() {
		return fmt.Sprintf("ret = %s\nreturn", value)
	}
	return "return"
}

// EmitUnreachable implements Backend.EmitUnreachable.
func (b *SafeBackend) EmitUnreachable() string {
	return "err = wasmrt.TrapUnreachable\nreturn"
}

// EmitJumpToIndex implements Backend.EmitJumpToIndex.
func (b *SafeBackend) EmitJumpToIndex(target int) string {
	return fmt.Sprintf("cur = blk%d\ncontinue", target)
}

// EmitBranchIfToIndex implements Backend.EmitBranchIfToIndex.
func (b *SafeBackend) EmitBranchIfToIndex(condition ir.VarId, ifTrue, ifFalse int) string {
	return fmt.Sprintf("if %s != 0 {\n\tcur = blk%d\n} else {\n\tcur = blk%d\n}\ncontinue", condition, ifTrue, ifFalse)
}

// EmitBranchTableToIndex implements Backend.EmitBranchTableToIndex.
func (b *SafeBackend) EmitBranchTableToIndex(index ir.VarId, targets []int, deflt int) string {
	if len(targets) == 0 {
		return fmt.Sprintf("cur = blk%d\ncontinue", deflt)
	}
	out := fmt.Sprintf("switch uint32(%s) {\n", index)
	for i, t := range targets {
		out += fmt.Sprintf("case %d:\n\tcur = blk%d\n", i, t)
	}
	out += fmt.Sprintf("default:\n\tcur = blk%d\n}\ncontinue", deflt)
	return out
}
