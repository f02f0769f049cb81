// Package codegen walks optimized IR and emits the final Go source text: one
// internal function per IR function plus the module wrapper, constructor,
// host interfaces, and export surface.
//
// Per-instruction rendering goes through the Backend interface so that
// different emission strategies can share the one driver.
package codegen

import (
	"github.com/wasmelt/wasmelt/internal/ir"
)

// CallContext tells a backend which instance-state arguments a generated
// call site must forward to the callee.
type CallContext struct {
	NeedsHost  bool
	HasGlobals bool
	HasMemory  bool
	HasTable   bool
}

// Backend renders individual IR instructions and terminators as fragments of
// target source. Each method returns one or more complete statements,
// newline separated, unindented; the driver handles placement and
// indentation.
//
// The safe backend's contract: every memory access goes through the runtime
// helpers and propagates their trap, integer division/remainder and
// float-to-integer truncation use the runtime's checked operations,
// comparisons yield 0/1, shifts mask their amount by the operand width, and
// rotates use native rotate instructions.
type Backend interface {
	EmitConst(dest ir.VarId, val ir.Value) string
	EmitBinOp(dest ir.VarId, op ir.BinOp, lhs, rhs ir.VarId) string
	EmitUnOp(dest ir.VarId, op ir.UnOp, operand ir.VarId) string
	EmitLoad(dest ir.VarId, ty ir.Type, addr ir.VarId, offset uint32, width ir.MemoryAccessWidth, sign ir.SignExtension) string
	EmitStore(ty ir.Type, addr, value ir.VarId, offset uint32, width ir.MemoryAccessWidth) string
	EmitCall(dest ir.VarId, funcName string, args []ir.VarId, ctx CallContext) string
	EmitCallImport(dest ir.VarId, methodName string, args []ir.VarId) string
	EmitAssign(dest, src ir.VarId) string
	EmitGlobalGet(dest ir.VarId, index uint32, mutable bool) string
	EmitGlobalSet(index uint32, value ir.VarId) string
	EmitMemorySize(dest ir.VarId) string
	EmitMemoryGrow(dest, delta ir.VarId) string
	EmitMemoryCopy(dst, src, length ir.VarId) string
	EmitSelect(dest, val1, val2, condition ir.VarId) string
	EmitReturn(value ir.VarId) string
	EmitUnreachable() string
	EmitJumpToIndex(target int) string
	EmitBranchIfToIndex(condition ir.VarId, ifTrue, ifFalse int) string
	EmitBranchTableToIndex(index ir.VarId, targets []int, deflt int) string
}
