package ir

// GlobalDef is a module-defined global variable.
type GlobalDef struct {
	Typ     Type
	Mutable bool
	Init    Value
}

// ImportedGlobalDef is a global import, accessed through the host.
type ImportedGlobalDef struct {
	Module  string
	Name    string
	Typ     Type
	Mutable bool
}

// FuncSignature describes one function (or type entry) for code generation.
type FuncSignature struct {
	Params []Type
	// ReturnType is TypeNone for void.
	ReturnType Type
	// TypeIdx is the canonical type-section index of the signature. It is
	// only meaningful on per-function signatures, not on type-section
	// entries.
	TypeIdx TypeIdx
	// NeedsHost mirrors Function.NeedsHost for export emission.
	NeedsHost bool
}

// FuncImport is a function import, realized as a host interface method.
type FuncImport struct {
	Module     string
	Name       string
	Params     []Type
	ReturnType Type
}

// FuncExport maps an export name to a local function.
type FuncExport struct {
	Name      string
	FuncIndex LocalFuncIdx
}

// DataSegment is an active data segment replayed into memory by the
// generated constructor.
type DataSegment struct {
	Offset uint32
	Data   []byte
}

// ElementSegment is an active element segment installed into the table by
// the generated constructor. Indices are module-wide (imports first).
type ElementSegment struct {
	Offset      uint32
	FuncIndices []uint32
}

// ModuleInfo is the aggregate passed between pipeline stages: every IR
// function plus the module metadata code generation needs.
type ModuleInfo struct {
	HasMemory       bool
	HasMemoryImport bool
	MaxPages        uint32
	InitialPages    uint32

	TableInitial uint32
	TableMax     uint32

	ElementSegments []ElementSegment
	Globals         []GlobalDef
	ImportedGlobals []ImportedGlobalDef
	DataSegments    []DataSegment

	FuncExports []FuncExport
	// FuncSignatures is indexed by local function index.
	FuncSignatures []FuncSignature
	// TypeSignatures is indexed by (raw) type-section index.
	TypeSignatures []FuncSignature
	// CanonicalType maps each raw type index to the smallest index with the
	// same structural signature.
	CanonicalType []uint32

	FuncImports          []FuncImport
	NumImportedFunctions uint32

	Functions []*Function
}

// HasTable is true when the module declares a funcref table.
func (m *ModuleInfo) HasTable() bool {
	return m.TableMax > 0 || m.TableInitial > 0
}

// HasMutableGlobals is true when any module-defined global is mutable.
func (m *ModuleInfo) HasMutableGlobals() bool {
	for i := range m.Globals {
		if m.Globals[i].Mutable {
			return true
		}
	}
	return false
}

// NeedsWrapper decides between the two emitted shapes: a module with
// instance state (memory, mutable globals, a table, or segments to replay)
// needs the wrapper struct; otherwise free functions suffice.
func (m *ModuleInfo) NeedsWrapper() bool {
	return m.HasMemory || m.HasMemoryImport || m.HasMutableGlobals() || m.HasTable() ||
		len(m.DataSegments) > 0 || len(m.ElementSegments) > 0
}

// Canonical returns the canonical index for a raw type index.
func (m *ModuleInfo) Canonical(raw TypeIdx) TypeIdx {
	if int(raw) < len(m.CanonicalType) {
		return TypeIdx(m.CanonicalType[raw])
	}
	return raw
}

// ResolveGlobal splits a module-wide global index into the imported or local
// global it refers to. At most one of the returned pointers is non-nil; both
// are nil when idx is past the module's last global.
func (m *ModuleInfo) ResolveGlobal(idx GlobalIdx) (imported *ImportedGlobalDef, local *GlobalDef, localIdx uint32) {
	n := uint32(len(m.ImportedGlobals))
	if uint32(idx) < n {
		return &m.ImportedGlobals[idx], nil, 0
	}
	li := uint32(idx) - n
	if int(li) < len(m.Globals) {
		return nil, &m.Globals[li], li
	}
	return nil, nil, li
}
