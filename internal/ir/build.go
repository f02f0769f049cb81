package ir

import (
	"fmt"

	"github.com/wasmelt/wasmelt/internal/wasm"
)

// Options configures module translation.
type Options struct {
	// MaxPages bounds memory growth when the module declares no maximum.
	MaxPages uint32
}

// BuildModuleInfo translates a parsed module into the aggregate the
// optimizer and code generator consume. It analyzes the module structure
// (memory, table, types, imports), lowers each function body to IR, and
// assembles the metadata.
func BuildModuleInfo(m *wasm.Module, opts Options) (*ModuleInfo, error) {
	memInfo := extractMemoryInfo(m, opts)
	tableInitial, tableMax := extractTableInfo(m)
	canonicalType := buildCanonicalTypes(m)
	typeSigs := buildTypeSignatures(m)
	importedGlobals := buildImportedGlobals(m)
	numImportedFunctions := m.NumImportedFunctions()

	functions, err := buildFunctions(m, typeSigs, canonicalType)
	if err != nil {
		return nil, err
	}

	info := &ModuleInfo{
		HasMemory:            memInfo.hasMemory,
		HasMemoryImport:      memInfo.hasMemoryImport,
		MaxPages:             memInfo.maxPages,
		InitialPages:         memInfo.initialPages,
		TableInitial:         tableInitial,
		TableMax:             tableMax,
		ElementSegments:      buildElementSegments(m),
		Globals:              buildGlobals(m),
		ImportedGlobals:      importedGlobals,
		DataSegments:         buildDataSegments(m),
		FuncExports:          buildFuncExports(m, numImportedFunctions),
		TypeSignatures:       buildTypeSectionSignatures(m),
		CanonicalType:        canonicalType,
		FuncImports:          buildFuncImports(m),
		NumImportedFunctions: numImportedFunctions,
		Functions:            functions,
	}

	markHostUse(info)
	info.FuncSignatures = buildFunctionSignatures(m, canonicalType, functions)
	return info, nil
}

type memoryInfo struct {
	hasMemory       bool
	hasMemoryImport bool
	maxPages        uint32
	initialPages    uint32
}

func extractMemoryInfo(m *wasm.Module, opts Options) memoryInfo {
	info := memoryInfo{
		hasMemory:       m.Memory != nil,
		hasMemoryImport: m.HasMemoryImport,
		maxPages:        opts.MaxPages,
	}
	if m.Memory != nil {
		info.initialPages = m.Memory.Min
		if m.Memory.Max != nil {
			info.maxPages = *m.Memory.Max
		}
	}
	return info
}

func extractTableInfo(m *wasm.Module) (initial, max uint32) {
	if m.Table == nil {
		return 0, 0
	}
	initial = m.Table.Min
	max = initial
	if m.Table.Max != nil {
		max = *m.Table.Max
	}
	return initial, max
}

// buildCanonicalTypes maps every type index to the smallest index with the
// same structural (params, results) signature. The Wasm spec mandates
// structural equivalence for call_indirect, so a naive index comparison
// would reject correct calls when the type section duplicates a signature.
func buildCanonicalTypes(m *wasm.Module) []uint32 {
	mapping := make([]uint32, len(m.Types))
	for i := range m.Types {
		canon := uint32(i)
		for j := 0; j < i; j++ {
			if m.Types[j].EqualsSignature(m.Types[i].Params, m.Types[i].Results) {
				canon = mapping[j]
				break
			}
		}
		mapping[i] = canon
	}
	return mapping
}

func typeFromWasm(vt wasm.ValueType) Type {
	switch vt {
	case wasm.ValueTypeI32:
		return TypeI32
	case wasm.ValueTypeI64:
		return TypeI64
	case wasm.ValueTypeF32:
		return TypeF32
	case wasm.ValueTypeF64:
		return TypeF64
	default:
		panic(fmt.Sprintf("BUG: unsupported value type 0x%x", byte(vt)))
	}
}

func sigFromType(ft *wasm.FunctionType) funcSig {
	sig := funcSig{paramCount: len(ft.Params), ret: TypeNone}
	if len(ft.Results) > 0 {
		sig.ret = typeFromWasm(ft.Results[0])
	}
	return sig
}

// buildTypeSignatures summarizes the type section for the translator.
func buildTypeSignatures(m *wasm.Module) []funcSig {
	sigs := make([]funcSig, len(m.Types))
	for i := range m.Types {
		sigs[i] = sigFromType(&m.Types[i])
	}
	return sigs
}

func buildImportedGlobals(m *wasm.Module) []ImportedGlobalDef {
	var out []ImportedGlobalDef
	for _, imp := range m.ImportedGlobals() {
		out = append(out, ImportedGlobalDef{
			Module:  imp.Module,
			Name:    imp.Name,
			Typ:     typeFromWasm(imp.GlobalType),
			Mutable: imp.GlobalMutable,
		})
	}
	return out
}

// buildFunctions lowers every local function body to IR.
func buildFunctions(m *wasm.Module, typeSigs []funcSig, canonicalType []uint32) ([]*Function, error) {
	// Callee signatures span the full index space: imports first.
	var funcSigs []funcSig
	var funcImports [][2]string
	for _, imp := range m.ImportedFunctions() {
		if int(imp.TypeIndex) >= len(m.Types) {
			return nil, fmt.Errorf("import %s.%s: type index %d out of range", imp.Module, imp.Name, imp.TypeIndex)
		}
		funcSigs = append(funcSigs, typeSigs[imp.TypeIndex])
		funcImports = append(funcImports, [2]string{imp.Module, imp.Name})
	}
	for i := range m.Functions {
		funcSigs = append(funcSigs, typeSigs[m.Functions[i].TypeIndex])
	}

	ctx := &moduleContext{
		funcSignatures:       funcSigs,
		typeSignatures:       typeSigs,
		numImportedFunctions: int(m.NumImportedFunctions()),
		funcImports:          funcImports,
		canonicalType:        canonicalType,
	}

	b := &builder{}
	functions := make([]*Function, len(m.Functions))
	for i := range m.Functions {
		fn := &m.Functions[i]
		ft := &m.Types[fn.TypeIndex]

		params := make([]Type, len(ft.Params))
		for j, vt := range ft.Params {
			params[j] = typeFromWasm(vt)
		}
		locals := make([]Type, len(fn.Code.LocalTypes))
		for j, vt := range fn.Code.LocalTypes {
			locals[j] = typeFromWasm(vt)
		}
		returnType := TypeNone
		if len(ft.Results) > 0 {
			returnType = typeFromWasm(ft.Results[0])
		}

		irFunc, err := b.translateFunction(params, locals, returnType, fn.Code.Body, ctx)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		irFunc.TypeIdx = TypeIdx(canonicalType[fn.TypeIndex])
		functions[i] = irFunc
	}
	return functions, nil
}

func buildGlobals(m *wasm.Module) []GlobalDef {
	globals := make([]GlobalDef, 0, len(m.Globals))
	for _, g := range m.Globals {
		globals = append(globals, GlobalDef{
			Typ:     typeFromWasm(g.Type),
			Mutable: g.Mutable,
			Init:    Value{Typ: typeFromWasm(g.Init.Type), Bits: g.Init.Bits},
		})
	}
	return globals
}

func buildDataSegments(m *wasm.Module) []DataSegment {
	segments := make([]DataSegment, 0, len(m.DataSegments))
	for _, ds := range m.DataSegments {
		segments = append(segments, DataSegment{Offset: ds.Offset, Data: ds.Data})
	}
	return segments
}

func buildElementSegments(m *wasm.Module) []ElementSegment {
	segments := make([]ElementSegment, 0, len(m.ElementSegments))
	for _, es := range m.ElementSegments {
		segments = append(segments, ElementSegment{Offset: es.Offset, FuncIndices: es.FuncIndices})
	}
	return segments
}

// buildFuncExports filters exports to local functions, offsetting the
// module-wide index into the local function space.
func buildFuncExports(m *wasm.Module, numImportedFunctions uint32) []FuncExport {
	var exports []FuncExport
	for _, e := range m.Exports {
		if e.Kind != wasm.ExportKindFunc || e.Index < numImportedFunctions {
			continue
		}
		exports = append(exports, FuncExport{
			Name:      e.Name,
			FuncIndex: LocalFuncIdx(e.Index - numImportedFunctions),
		})
	}
	return exports
}

// buildFunctionSignatures produces per-local-function signatures with
// canonical type indices and the (already propagated) needsHost flag.
func buildFunctionSignatures(m *wasm.Module, canonicalType []uint32, functions []*Function) []FuncSignature {
	sigs := make([]FuncSignature, len(m.Functions))
	for i := range m.Functions {
		ft := &m.Types[m.Functions[i].TypeIndex]
		params := make([]Type, len(ft.Params))
		for j, vt := range ft.Params {
			params[j] = typeFromWasm(vt)
		}
		ret := TypeNone
		if len(ft.Results) > 0 {
			ret = typeFromWasm(ft.Results[0])
		}
		sigs[i] = FuncSignature{
			Params:     params,
			ReturnType: ret,
			TypeIdx:    TypeIdx(canonicalType[m.Functions[i].TypeIndex]),
			NeedsHost:  functions[i].NeedsHost,
		}
	}
	return sigs
}

// buildTypeSectionSignatures produces per-type-entry signatures for
// call_indirect result typing.
func buildTypeSectionSignatures(m *wasm.Module) []FuncSignature {
	sigs := make([]FuncSignature, len(m.Types))
	for i := range m.Types {
		ft := &m.Types[i]
		params := make([]Type, len(ft.Params))
		for j, vt := range ft.Params {
			params[j] = typeFromWasm(vt)
		}
		ret := TypeNone
		if len(ft.Results) > 0 {
			ret = typeFromWasm(ft.Results[0])
		}
		sigs[i] = FuncSignature{Params: params, ReturnType: ret}
	}
	return sigs
}

func buildFuncImports(m *wasm.Module) []FuncImport {
	var imports []FuncImport
	for _, imp := range m.ImportedFunctions() {
		ft := &m.Types[imp.TypeIndex]
		params := make([]Type, len(ft.Params))
		for j, vt := range ft.Params {
			params[j] = typeFromWasm(vt)
		}
		ret := TypeNone
		if len(ft.Results) > 0 {
			ret = typeFromWasm(ft.Results[0])
		}
		imports = append(imports, FuncImport{
			Module:     imp.Module,
			Name:       imp.Name,
			Params:     params,
			ReturnType: ret,
		})
	}
	return imports
}

// markHostUse computes each function's NeedsHost flag: true when it calls an
// import or touches an imported global directly, or calls a function that
// does, transitively. The closure runs to fixpoint over the direct-call
// graph so that emitted signatures stay consistent across call chains.
func markHostUse(info *ModuleInfo) {
	numImportedGlobals := uint32(len(info.ImportedGlobals))

	usesHostDirectly := func(fn *Function) bool {
		for _, blk := range fn.Blocks {
			for _, instr := range blk.Instrs {
				switch instr.Kind {
				case InstrCallImport:
					return true
				case InstrGlobalGet, InstrGlobalSet:
					if numImportedGlobals > 0 && uint32(instr.Global) < numImportedGlobals {
						return true
					}
				}
			}
		}
		return false
	}

	for _, fn := range info.Functions {
		fn.NeedsHost = usesHostDirectly(fn)
	}

	for changed := true; changed; {
		changed = false
		for _, fn := range info.Functions {
			if fn.NeedsHost {
				continue
			}
			for _, blk := range fn.Blocks {
				for _, instr := range blk.Instrs {
					if instr.Kind == InstrCall && int(instr.Func) < len(info.Functions) &&
						info.Functions[instr.Func].NeedsHost {
						fn.NeedsHost = true
						changed = true
						break
					}
					// An indirect call may land in any function whose
					// canonical type matches; any such callee needing the
					// host forces it here too.
					if instr.Kind == InstrCallIndirect {
						for _, callee := range info.Functions {
							if callee.TypeIdx == instr.TypeIdx && callee.NeedsHost {
								fn.NeedsHost = true
								changed = true
								break
							}
						}
						if fn.NeedsHost {
							break
						}
					}
				}
				if fn.NeedsHost {
					break
				}
			}
		}
	}
}
