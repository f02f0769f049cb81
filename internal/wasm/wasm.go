// Package wasm holds the structured representation of a parsed WebAssembly
// MVP binary and its binary decoder. The rest of the pipeline consumes the
// Module produced here; nothing downstream touches raw section bytes except
// function bodies, which the IR builder walks directly.
package wasm

import "fmt"

// ValueType is one of the four Wasm MVP numeric types, identified by its
// binary encoding byte.
type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// String implements fmt.Stringer.
func (t ValueType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return fmt.Sprintf("unknown (0x%x)", byte(t))
	}
}

// FunctionType is one entry of the type section.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// EqualsSignature returns true if the other type has the same parameter and
// result sequences. This is the structural equality the Wasm spec mandates
// for call_indirect.
func (f *FunctionType) EqualsSignature(params, results []ValueType) bool {
	if len(f.Params) != len(params) || len(f.Results) != len(results) {
		return false
	}
	for i := range params {
		if f.Params[i] != params[i] {
			return false
		}
	}
	for i := range results {
		if f.Results[i] != results[i] {
			return false
		}
	}
	return true
}

// ImportKind distinguishes the four import descriptors.
type ImportKind byte

const (
	ImportKindFunc ImportKind = iota
	ImportKindTable
	ImportKindMemory
	ImportKindGlobal
)

// Import is one entry of the import section.
type Import struct {
	Kind   ImportKind
	Module string
	Name   string
	// TypeIndex is set for function imports.
	TypeIndex uint32
	// GlobalType and GlobalMutable are set for global imports.
	GlobalType    ValueType
	GlobalMutable bool
	// MemoryMin/MemoryMax are set for memory imports.
	MemoryMin uint32
	MemoryMax *uint32
}

// ExportKind distinguishes the four export descriptors.
type ExportKind byte

const (
	ExportKindFunc ExportKind = iota
	ExportKindTable
	ExportKindMemory
	ExportKindGlobal
)

// Export is one entry of the export section. Index is in the module-wide
// index space of the exported kind (imports first).
type Export struct {
	Kind  ExportKind
	Name  string
	Index uint32
}

// Code is one entry of the code section: the declared (non-parameter) locals
// and the raw expression bytes, terminated by the final 0x0b end opcode.
type Code struct {
	LocalTypes []ValueType
	Body       []byte
}

// Function pairs a function-section type index with its code-section body.
type Function struct {
	TypeIndex uint32
	Code      *Code
}

// Memory is the module's (single) memory declaration. Max is nil when the
// module declares no maximum.
type Memory struct {
	Min uint32
	Max *uint32
}

// Table is the module's (single) funcref table declaration.
type Table struct {
	Min uint32
	Max *uint32
}

// ConstValue is the result of evaluating a constant initializer expression.
type ConstValue struct {
	Type ValueType
	// Bits holds the raw value: the two's complement integer for i32/i64
	// (an i32 is zero-extended), or the IEEE-754 bit pattern for f32/f64.
	Bits uint64
}

// Global is one entry of the global section.
type Global struct {
	Type    ValueType
	Mutable bool
	Init    ConstValue
}

// DataSegment is an active data segment over memory 0.
type DataSegment struct {
	Offset uint32
	Data   []byte
}

// ElementSegment is an active element segment over table 0. Indices are in
// the module-wide function index space (imports first).
type ElementSegment struct {
	Offset      uint32
	FuncIndices []uint32
}

// Module is the parsed module handed to the IR builder.
type Module struct {
	Types           []FunctionType
	Imports         []Import
	Functions       []Function
	Memory          *Memory
	HasMemoryImport bool
	Table           *Table
	Globals         []Global
	Exports         []Export
	DataSegments    []DataSegment
	ElementSegments []ElementSegment
}

// NumImportedFunctions returns how many entries of the function index space
// are imports; local functions start at this index.
func (m *Module) NumImportedFunctions() uint32 {
	var n uint32
	for i := range m.Imports {
		if m.Imports[i].Kind == ImportKindFunc {
			n++
		}
	}
	return n
}

// ImportedGlobals returns the global imports in index order. These occupy
// the low global indices, before the module's own globals.
func (m *Module) ImportedGlobals() []Import {
	var out []Import
	for i := range m.Imports {
		if m.Imports[i].Kind == ImportKindGlobal {
			out = append(out, m.Imports[i])
		}
	}
	return out
}

// ImportedFunctions returns the function imports in index order.
func (m *Module) ImportedFunctions() []Import {
	var out []Import
	for i := range m.Imports {
		if m.Imports[i].Kind == ImportKindFunc {
			out = append(out, m.Imports[i])
		}
	}
	return out
}
