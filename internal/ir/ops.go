package ir

// BinOp is a binary operation. Integers are untyped as to signedness; each
// operation carries its own (S/U suffix).
type BinOp byte

const (
	// i32 arithmetic and bitwise.

	BinOpI32Add BinOp = iota
	BinOpI32Sub
	BinOpI32Mul
	BinOpI32DivS
	BinOpI32DivU
	BinOpI32RemS
	BinOpI32RemU
	BinOpI32And
	BinOpI32Or
	BinOpI32Xor
	BinOpI32Shl
	BinOpI32ShrS
	BinOpI32ShrU
	BinOpI32Rotl
	BinOpI32Rotr

	// i32 comparisons.

	BinOpI32Eq
	BinOpI32Ne
	BinOpI32LtS
	BinOpI32LtU
	BinOpI32GtS
	BinOpI32GtU
	BinOpI32LeS
	BinOpI32LeU
	BinOpI32GeS
	BinOpI32GeU

	// i64 arithmetic and bitwise.

	BinOpI64Add
	BinOpI64Sub
	BinOpI64Mul
	BinOpI64DivS
	BinOpI64DivU
	BinOpI64RemS
	BinOpI64RemU
	BinOpI64And
	BinOpI64Or
	BinOpI64Xor
	BinOpI64Shl
	BinOpI64ShrS
	BinOpI64ShrU
	BinOpI64Rotl
	BinOpI64Rotr

	// i64 comparisons.

	BinOpI64Eq
	BinOpI64Ne
	BinOpI64LtS
	BinOpI64LtU
	BinOpI64GtS
	BinOpI64GtU
	BinOpI64LeS
	BinOpI64LeU
	BinOpI64GeS
	BinOpI64GeU

	// f32 arithmetic.

	BinOpF32Add
	BinOpF32Sub
	BinOpF32Mul
	BinOpF32Div
	BinOpF32Min
	BinOpF32Max
	BinOpF32Copysign

	// f32 comparisons.

	BinOpF32Eq
	BinOpF32Ne
	BinOpF32Lt
	BinOpF32Gt
	BinOpF32Le
	BinOpF32Ge

	// f64 arithmetic.

	BinOpF64Add
	BinOpF64Sub
	BinOpF64Mul
	BinOpF64Div
	BinOpF64Min
	BinOpF64Max
	BinOpF64Copysign

	// f64 comparisons.

	BinOpF64Eq
	BinOpF64Ne
	BinOpF64Lt
	BinOpF64Gt
	BinOpF64Le
	BinOpF64Ge
)

// ResultType returns the type of the value this operation produces.
//
// All comparison operations yield i32 (0 or 1) regardless of operand type.
func (op BinOp) ResultType() Type {
	switch {
	case op >= BinOpI32Add && op <= BinOpI32Rotr:
		return TypeI32
	case op >= BinOpI32Eq && op <= BinOpI32GeU:
		return TypeI32
	case op >= BinOpI64Add && op <= BinOpI64Rotr:
		return TypeI64
	case op >= BinOpI64Eq && op <= BinOpI64GeU:
		return TypeI32
	case op >= BinOpF32Add && op <= BinOpF32Copysign:
		return TypeF32
	case op >= BinOpF32Eq && op <= BinOpF32Ge:
		return TypeI32
	case op >= BinOpF64Add && op <= BinOpF64Copysign:
		return TypeF64
	case op >= BinOpF64Eq && op <= BinOpF64Ge:
		return TypeI32
	default:
		panic(int(op))
	}
}

// IsCommutative returns true when op(a, b) == op(b, a) for all operands,
// which lets CSE canonicalize operand order.
//
// Float add/mul stay excluded: NaN payload propagation is not symmetric.
func (op BinOp) IsCommutative() bool {
	switch op {
	case BinOpI32Add, BinOpI32Mul, BinOpI32And, BinOpI32Or, BinOpI32Xor,
		BinOpI32Eq, BinOpI32Ne,
		BinOpI64Add, BinOpI64Mul, BinOpI64And, BinOpI64Or, BinOpI64Xor,
		BinOpI64Eq, BinOpI64Ne,
		BinOpF32Eq, BinOpF32Ne,
		BinOpF64Eq, BinOpF64Ne:
		return true
	default:
		return false
	}
}

// UnOp is a unary operation: arithmetic, bit counting, conversions, bitcasts.
type UnOp byte

const (
	// i32 unary.

	UnOpI32Clz UnOp = iota
	UnOpI32Ctz
	UnOpI32Popcnt
	UnOpI32Eqz

	// i64 unary.

	UnOpI64Clz
	UnOpI64Ctz
	UnOpI64Popcnt
	UnOpI64Eqz

	// f32 unary.

	UnOpF32Abs
	UnOpF32Neg
	UnOpF32Ceil
	UnOpF32Floor
	UnOpF32Trunc
	UnOpF32Nearest
	UnOpF32Sqrt

	// f64 unary.

	UnOpF64Abs
	UnOpF64Neg
	UnOpF64Ceil
	UnOpF64Floor
	UnOpF64Trunc
	UnOpF64Nearest
	UnOpF64Sqrt

	// Integer width conversions.

	UnOpI32WrapI64
	UnOpI64ExtendI32S
	UnOpI64ExtendI32U

	// Float to integer truncation, trapping on NaN/overflow.

	UnOpI32TruncF32S
	UnOpI32TruncF32U
	UnOpI32TruncF64S
	UnOpI32TruncF64U
	UnOpI64TruncF32S
	UnOpI64TruncF32U
	UnOpI64TruncF64S
	UnOpI64TruncF64U

	// Integer to float conversions.

	UnOpF32ConvertI32S
	UnOpF32ConvertI32U
	UnOpF32ConvertI64S
	UnOpF32ConvertI64U
	UnOpF64ConvertI32S
	UnOpF64ConvertI32U
	UnOpF64ConvertI64S
	UnOpF64ConvertI64U

	// Float precision conversions.

	UnOpF32DemoteF64
	UnOpF64PromoteF32

	// Reinterpretations (bitcast).

	UnOpI32ReinterpretF32
	UnOpI64ReinterpretF64
	UnOpF32ReinterpretI32
	UnOpF64ReinterpretI64
)

// ResultType returns the type of the value this operation produces.
//
// I64Eqz yields i32 (0 or 1), not i64.
func (op UnOp) ResultType() Type {
	switch op {
	case UnOpI32Clz, UnOpI32Ctz, UnOpI32Popcnt, UnOpI32Eqz, UnOpI64Eqz:
		return TypeI32
	case UnOpI64Clz, UnOpI64Ctz, UnOpI64Popcnt:
		return TypeI64
	case UnOpF32Abs, UnOpF32Neg, UnOpF32Ceil, UnOpF32Floor, UnOpF32Trunc, UnOpF32Nearest, UnOpF32Sqrt:
		return TypeF32
	case UnOpF64Abs, UnOpF64Neg, UnOpF64Ceil, UnOpF64Floor, UnOpF64Trunc, UnOpF64Nearest, UnOpF64Sqrt:
		return TypeF64
	case UnOpI32WrapI64,
		UnOpI32TruncF32S, UnOpI32TruncF32U, UnOpI32TruncF64S, UnOpI32TruncF64U,
		UnOpI32ReinterpretF32:
		return TypeI32
	case UnOpI64ExtendI32S, UnOpI64ExtendI32U,
		UnOpI64TruncF32S, UnOpI64TruncF32U, UnOpI64TruncF64S, UnOpI64TruncF64U,
		UnOpI64ReinterpretF64:
		return TypeI64
	case UnOpF32ConvertI32S, UnOpF32ConvertI32U, UnOpF32ConvertI64S, UnOpF32ConvertI64U,
		UnOpF32DemoteF64, UnOpF32ReinterpretI32:
		return TypeF32
	case UnOpF64ConvertI32S, UnOpF64ConvertI32U, UnOpF64ConvertI64S, UnOpF64ConvertI64U,
		UnOpF64PromoteF32, UnOpF64ReinterpretI64:
		return TypeF64
	default:
		panic(int(op))
	}
}

// MemoryAccessWidth is the access width of a load or store. Wasm supports
// sub-width accesses (e.g. i32.load8_s loads one byte and sign-extends).
type MemoryAccessWidth byte

const (
	// WidthFull is the full type width (i32=4 bytes, i64=8, f32=4, f64=8).
	WidthFull MemoryAccessWidth = iota
	// Width8 is an 8-bit access.
	Width8
	// Width16 is a 16-bit access.
	Width16
	// Width32 is a 32-bit access, only valid for i64 loads/stores.
	Width32
)

// SignExtension selects zero- or sign-extension for sub-width loads.
type SignExtension byte

const (
	// SignNone marks a full-width access with no extension.
	SignNone SignExtension = iota
	// Signed sign-extends the loaded value.
	Signed
	// Unsigned zero-extends the loaded value.
	Unsigned
)
