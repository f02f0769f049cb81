// Package binaryencoder builds small WebAssembly binaries for tests. It is
// deliberately minimal: just enough of the binary format to express the
// modules the tests need, with no validation.
package binaryencoder

import (
	"github.com/wasmelt/wasmelt/internal/leb128"
	"github.com/wasmelt/wasmelt/internal/wasm"
)

// ModuleBuilder accumulates sections and renders the final binary.
type ModuleBuilder struct {
	types    [][]byte
	imports  [][]byte
	funcs    [][]byte
	table    []byte
	memory   []byte
	globals  [][]byte
	exports  [][]byte
	elements [][]byte
	codes    [][]byte
	data     [][]byte
}

// NewModuleBuilder returns an empty builder.
func NewModuleBuilder() *ModuleBuilder {
	return &ModuleBuilder{}
}

// AddType appends a function type and returns its index.
func (b *ModuleBuilder) AddType(params, results []wasm.ValueType) uint32 {
	enc := []byte{0x60}
	enc = append(enc, leb128.EncodeUint32(uint32(len(params)))...)
	for _, p := range params {
		enc = append(enc, byte(p))
	}
	enc = append(enc, leb128.EncodeUint32(uint32(len(results)))...)
	for _, r := range results {
		enc = append(enc, byte(r))
	}
	b.types = append(b.types, enc)
	return uint32(len(b.types) - 1)
}

// AddFuncImport appends a function import of the given type index.
func (b *ModuleBuilder) AddFuncImport(module, name string, typeIndex uint32) {
	enc := encodeName(module)
	enc = append(enc, encodeName(name)...)
	enc = append(enc, 0x00)
	enc = append(enc, leb128.EncodeUint32(typeIndex)...)
	b.imports = append(b.imports, enc)
}

// AddMemoryImport appends a memory import, making the module a
// memory-borrowing library module.
func (b *ModuleBuilder) AddMemoryImport(module, name string, min uint32, max *uint32) {
	enc := encodeName(module)
	enc = append(enc, encodeName(name)...)
	enc = append(enc, 0x02)
	enc = append(enc, encodeLimits(min, max)...)
	b.imports = append(b.imports, enc)
}

// AddGlobalImport appends a global import.
func (b *ModuleBuilder) AddGlobalImport(module, name string, vt wasm.ValueType, mutable bool) {
	enc := encodeName(module)
	enc = append(enc, encodeName(name)...)
	enc = append(enc, 0x03, byte(vt))
	if mutable {
		enc = append(enc, 1)
	} else {
		enc = append(enc, 0)
	}
	b.imports = append(b.imports, enc)
}

// AddFunction appends a local function: its type index, declared locals, and
// body bytes (without the trailing end, which is added here).
func (b *ModuleBuilder) AddFunction(typeIndex uint32, locals []wasm.ValueType, body ...byte) {
	b.funcs = append(b.funcs, leb128.EncodeUint32(typeIndex))

	var code []byte
	code = append(code, leb128.EncodeUint32(uint32(len(locals)))...)
	for _, l := range locals {
		code = append(code, 0x01, byte(l))
	}
	code = append(code, body...)
	code = append(code, byte(wasm.OpcodeEnd))

	entry := leb128.EncodeUint32(uint32(len(code)))
	entry = append(entry, code...)
	b.codes = append(b.codes, entry)
}

// SetMemory declares the module memory.
func (b *ModuleBuilder) SetMemory(min uint32, max *uint32) {
	b.memory = encodeLimits(min, max)
}

// SetTable declares the module funcref table.
func (b *ModuleBuilder) SetTable(min uint32, max *uint32) {
	b.table = append([]byte{0x70}, encodeLimits(min, max)...)
}

// AddGlobal appends a module global with an i32/i64 constant initializer.
func (b *ModuleBuilder) AddGlobal(vt wasm.ValueType, mutable bool, init []byte) {
	enc := []byte{byte(vt)}
	if mutable {
		enc = append(enc, 1)
	} else {
		enc = append(enc, 0)
	}
	enc = append(enc, init...)
	enc = append(enc, byte(wasm.OpcodeEnd))
	b.globals = append(b.globals, enc)
}

// I32Const encodes an i32.const initializer expression body.
func I32Const(v int32) []byte {
	return append([]byte{byte(wasm.OpcodeI32Const)}, leb128.EncodeInt32(v)...)
}

// ExportFunc appends a function export for the module-wide function index.
func (b *ModuleBuilder) ExportFunc(name string, index uint32) {
	enc := encodeName(name)
	enc = append(enc, 0x00)
	enc = append(enc, leb128.EncodeUint32(index)...)
	b.exports = append(b.exports, enc)
}

// AddElementSegment appends an active element segment at the given offset.
func (b *ModuleBuilder) AddElementSegment(offset int32, funcIndices ...uint32) {
	enc := []byte{0x00}
	enc = append(enc, I32Const(offset)...)
	enc = append(enc, byte(wasm.OpcodeEnd))
	enc = append(enc, leb128.EncodeUint32(uint32(len(funcIndices)))...)
	for _, fi := range funcIndices {
		enc = append(enc, leb128.EncodeUint32(fi)...)
	}
	b.elements = append(b.elements, enc)
}

// AddDataSegment appends an active data segment at the given offset.
func (b *ModuleBuilder) AddDataSegment(offset int32, data []byte) {
	enc := []byte{0x00}
	enc = append(enc, I32Const(offset)...)
	enc = append(enc, byte(wasm.OpcodeEnd))
	enc = append(enc, leb128.EncodeUint32(uint32(len(data)))...)
	enc = append(enc, data...)
	b.data = append(b.data, enc)
}

// Build renders the module binary.
func (b *ModuleBuilder) Build() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = appendVecSection(out, 1, b.types)
	out = appendVecSection(out, 2, b.imports)
	out = appendVecSection(out, 3, b.funcs)
	if b.table != nil {
		out = appendVecSection(out, 4, [][]byte{b.table})
	}
	if b.memory != nil {
		out = appendVecSection(out, 5, [][]byte{b.memory})
	}
	out = appendVecSection(out, 6, b.globals)
	out = appendVecSection(out, 7, b.exports)
	out = appendVecSection(out, 9, b.elements)
	out = appendVecSection(out, 10, b.codes)
	out = appendVecSection(out, 11, b.data)
	return out
}

func appendVecSection(out []byte, id byte, entries [][]byte) []byte {
	if len(entries) == 0 {
		return out
	}
	content := leb128.EncodeUint32(uint32(len(entries)))
	for _, e := range entries {
		content = append(content, e...)
	}
	out = append(out, id)
	out = append(out, leb128.EncodeUint32(uint32(len(content)))...)
	return append(out, content...)
}

func encodeName(s string) []byte {
	return append(leb128.EncodeUint32(uint32(len(s))), s...)
}

func encodeLimits(min uint32, max *uint32) []byte {
	if max == nil {
		return append([]byte{0x00}, leb128.EncodeUint32(min)...)
	}
	enc := append([]byte{0x01}, leb128.EncodeUint32(min)...)
	return append(enc, leb128.EncodeUint32(*max)...)
}

// Uint32 returns a pointer to v, a convenience for limits maxima.
func Uint32(v uint32) *uint32 {
	return &v
}
