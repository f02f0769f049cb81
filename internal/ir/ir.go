// Package ir defines the SSA-form intermediate representation produced from
// WebAssembly functions, and the builder that lowers a parsed module into it.
//
// Each value on the Wasm evaluation stack becomes a variable (v0, v1, ...)
// instead of an implicit stack slot, and structured control flow is lowered
// to an explicit basic-block CFG.
package ir

import (
	"fmt"
	"math"
)

// VarId is the dense identifier of an SSA variable within one function.
// Variables are numbered sequentially: v0, v1, v2, ...
type VarId uint32

// VarIdInvalid marks an absent variable, e.g. the destination of a call to a
// void function.
const VarIdInvalid VarId = 0xffffffff

// Valid is false for VarIdInvalid.
func (v VarId) Valid() bool {
	return v != VarIdInvalid
}

// String implements fmt.Stringer.
func (v VarId) String() string {
	return fmt.Sprintf("v%d", uint32(v))
}

// BlockId is the dense identifier of a basic block within one function. The
// entry block is always BlockId(0), the first block created by the builder.
type BlockId uint32

// String implements fmt.Stringer.
func (b BlockId) String() string {
	return fmt.Sprintf("block_%d", uint32(b))
}

// Index newtypes. The function index space interleaves imports (first) and
// local functions; these keep the two from being confused downstream.
type (
	// ImportIdx indexes the imported-function list.
	ImportIdx uint32
	// LocalFuncIdx indexes the module's own functions, excluding imports.
	LocalFuncIdx uint32
	// TypeIdx indexes the type section. Everywhere downstream of the
	// builder, a TypeIdx is canonical: two structurally equal type entries
	// share the smallest index with that signature.
	TypeIdx uint32
	// GlobalIdx indexes the module-wide global space (imports first).
	GlobalIdx uint32
)

// Type is one of the four Wasm numeric value types. TypeNone marks the
// absence of a type (a void return).
type Type byte

const (
	TypeNone Type = iota
	TypeI32
	TypeI64
	TypeF32
	TypeF64
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	default:
		panic(int(t))
	}
}

// Value is a typed constant. Bits holds the two's complement integer for
// i32/i64 (an i32 is zero-extended to 64 bits) and the IEEE-754 bit pattern for
// f32/f64, so value identity is bit identity.
type Value struct {
	Typ  Type
	Bits uint64
}

// I32Value wraps an int32 constant.
func I32Value(v int32) Value {
	return Value{Typ: TypeI32, Bits: uint64(uint32(v))}
}

// I64Value wraps an int64 constant.
func I64Value(v int64) Value {
	return Value{Typ: TypeI64, Bits: uint64(v)}
}

// F32Value wraps a float32 constant.
func F32Value(v float32) Value {
	return Value{Typ: TypeF32, Bits: uint64(math.Float32bits(v))}
}

// F64Value wraps a float64 constant.
func F64Value(v float64) Value {
	return Value{Typ: TypeF64, Bits: math.Float64bits(v)}
}

// I32 returns the value as an int32. Only valid for TypeI32.
func (v Value) I32() int32 {
	return int32(uint32(v.Bits))
}

// I64 returns the value as an int64. Only valid for TypeI64.
func (v Value) I64() int64 {
	return int64(v.Bits)
}

// F32 returns the value as a float32. Only valid for TypeF32.
func (v Value) F32() float32 {
	return math.Float32frombits(uint32(v.Bits))
}

// F64 returns the value as a float64. Only valid for TypeF64.
func (v Value) F64() float64 {
	return math.Float64frombits(v.Bits)
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.Typ {
	case TypeI32:
		return fmt.Sprintf("%di32", v.I32())
	case TypeI64:
		return fmt.Sprintf("%di64", v.I64())
	case TypeF32:
		return fmt.Sprintf("%gf32", v.F32())
	case TypeF64:
		return fmt.Sprintf("%gf64", v.F64())
	default:
		panic(v.Typ)
	}
}

// TypedVar pairs a variable with its type, for parameter and local lists.
type TypedVar struct {
	Var VarId
	Typ Type
}

// Function is the IR of one Wasm function.
type Function struct {
	// Params are the function parameters in order.
	Params []TypedVar
	// Locals are the declared (non-parameter) locals in order. Wasm
	// zero-initializes them.
	Locals []TypedVar
	// Blocks is every basic block, entry first.
	Blocks []*Block
	// EntryBlock is always BlockId(0).
	EntryBlock BlockId
	// ReturnType is TypeNone for void functions (Wasm MVP allows at most
	// one result).
	ReturnType Type
	// TypeIdx is the canonical type-section index of this function's
	// signature.
	TypeIdx TypeIdx
	// NeedsHost is true when this function reaches host state: it calls an
	// import or touches an imported global, directly or transitively.
	NeedsHost bool
}

// Block is a basic block: straight-line instructions and one terminator.
type Block struct {
	ID     BlockId
	Instrs []*Instr
	Term   Terminator
}
