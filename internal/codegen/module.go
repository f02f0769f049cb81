package codegen

import (
	"fmt"
	"strings"

	"github.com/wasmelt/wasmelt/internal/ir"
)

// Generator assembles the complete generated source file around the
// per-function bodies.
type Generator struct {
	Backend Backend
	// PackageName is the package clause of the emitted file.
	PackageName string
	// RuntimeImportPath is the import path of the runtime package the
	// emitted code links against.
	RuntimeImportPath string
}

// NewGenerator returns a Generator with the default backend and paths.
func NewGenerator() *Generator {
	return &Generator{
		Backend:           NewSafeBackend(),
		PackageName:       "wasmmodule",
		RuntimeImportPath: "github.com/wasmelt/wasmelt/wasmrt",
	}
}

// GenerateModule renders the whole output file for the module.
func (g *Generator) GenerateModule(info *ir.ModuleInfo) ([]byte, error) {
	var sb strings.Builder
	g.writePreamble(&sb)

	if info.NeedsWrapper() {
		if err := g.generateWrapperModule(&sb, info); err != nil {
			return nil, err
		}
	} else {
		if err := g.generateStandaloneModule(&sb, info); err != nil {
			return nil, err
		}
	}
	return []byte(sb.String()), nil
}

// writePreamble emits the package clause, the fixed import block, and the
// anchors that keep the imports legal even when a particular module's code
// happens not to use one of them.
func (g *Generator) writePreamble(sb *strings.Builder) {
	sb.WriteString("// Code generated by wasmelt. DO NOT EDIT.\n\n")
	fmt.Fprintf(sb, "package %s\n\n", g.PackageName)
	sb.WriteString("import (\n")
	sb.WriteString("\t\"math\"\n")
	sb.WriteString("\t\"math/bits\"\n\n")
	fmt.Fprintf(sb, "\twasmrt \"%s\"\n", g.RuntimeImportPath)
	sb.WriteString(")\n\n")
	sb.WriteString("var _ = math.MaxInt32\n")
	sb.WriteString("var _ = bits.UintSize\n")
	sb.WriteString("var _ wasmrt.Trap\n\n")
}

// generateHostInterfaces emits one interface per import module name, with a
// method per imported function and accessors per imported global, plus the
// combined interface when imports span several modules.
func (g *Generator) generateHostInterfaces(sb *strings.Builder, info *ir.ModuleInfo) {
	names := importModuleNames(info)
	if len(names) == 0 {
		return
	}

	for _, moduleName := range names {
		ifaceName := importInterfaceName(moduleName)
		fmt.Fprintf(sb, "// %s is implemented by the host to provide the module's %q imports.\n",
			ifaceName, moduleName)
		fmt.Fprintf(sb, "type %s interface {\n", ifaceName)

		for _, imp := range info.FuncImports {
			if imp.Module != moduleName {
				continue
			}
			var params []string
			for i, ty := range imp.Params {
				params = append(params, fmt.Sprintf("arg%d %s", i, goType(ty)))
			}
			results := "error"
			if imp.ReturnType != ir.TypeNone {
				results = fmt.Sprintf("(%s, error)", goType(imp.ReturnType))
			}
			fmt.Fprintf(sb, "\t%s(%s) %s\n", goExportedName(imp.Name), strings.Join(params, ", "), results)
		}

		for _, ig := range info.ImportedGlobals {
			if ig.Module != moduleName {
				continue
			}
			fmt.Fprintf(sb, "\tGet%s() %s\n", goExportedName(ig.Name), goType(ig.Typ))
			if ig.Mutable {
				fmt.Fprintf(sb, "\tSet%s(v %s)\n", goExportedName(ig.Name), goType(ig.Typ))
			}
		}
		sb.WriteString("}\n\n")
	}

	if len(names) > 1 {
		sb.WriteString("// HostImports combines every import module the generated code needs.\n")
		sb.WriteString("type HostImports interface {\n")
		for _, moduleName := range names {
			fmt.Fprintf(sb, "\t%s\n", importInterfaceName(moduleName))
		}
		sb.WriteString("}\n\n")
	}
}

// writeImmutableGlobalConsts emits package constants for immutable globals.
func writeImmutableGlobalConsts(sb *strings.Builder, info *ir.ModuleInfo) {
	any := false
	for idx, gl := range info.Globals {
		if gl.Mutable {
			continue
		}
		fmt.Fprintf(sb, "const G%d %s = %s\n", idx, goType(gl.Typ), goValueLiteral(gl.Init))
		any = true
	}
	if any {
		sb.WriteString("\n")
	}
}

// generateStandaloneModule emits free functions plus constants; modules with
// no instance state need no wrapper struct.
func (g *Generator) generateStandaloneModule(sb *strings.Builder, info *ir.ModuleInfo) error {
	g.generateHostInterfaces(sb, info)
	writeImmutableGlobalConsts(sb, info)

	for idx, fn := range info.Functions {
		code, err := generateFunction(g.Backend, fn, internalFuncName(idx, true), info)
		if err != nil {
			return fmt.Errorf("generating function %d: %w", idx, err)
		}
		sb.WriteString(code)
		sb.WriteString("\n")
	}
	return nil
}

// generateWrapperModule emits the stateful shape: Globals struct, Module
// struct, constructor, internal functions, and the export surface.
func (g *Generator) generateWrapperModule(sb *strings.Builder, info *ir.ModuleInfo) error {
	if info.HasMemory {
		fmt.Fprintf(sb, "// MaxPages bounds this module's linear memory.\nconst MaxPages = %d\n\n", info.MaxPages)
	}
	if info.HasTable() {
		fmt.Fprintf(sb, "// TableMax bounds this module's function table.\nconst TableMax = %d\n\n", info.TableMax)
	}

	g.generateHostInterfaces(sb, info)

	hasMutGlobals := info.HasMutableGlobals()
	if hasMutGlobals {
		sb.WriteString("// Globals holds the module's mutable global variables.\n")
		sb.WriteString("type Globals struct {\n")
		for idx, gl := range info.Globals {
			if gl.Mutable {
				fmt.Fprintf(sb, "\tG%d %s\n", idx, goType(gl.Typ))
			}
		}
		sb.WriteString("}\n\n")
	}
	writeImmutableGlobalConsts(sb, info)

	// The module struct owns exactly the instance state the Wasm module
	// declares. A memory-importing library module borrows caller memory per
	// call instead of owning a Memory.
	sb.WriteString("// Module is one instance of the transpiled Wasm module.\n")
	sb.WriteString("type Module struct {\n")
	if hasMutGlobals {
		sb.WriteString("\tGlobals Globals\n")
	}
	if info.HasMemory {
		sb.WriteString("\tMemory *wasmrt.Memory\n")
	}
	if info.HasTable() {
		sb.WriteString("\tTable *wasmrt.Table\n")
	}
	sb.WriteString("}\n\n")

	g.generateConstructor(sb, info, hasMutGlobals)

	for idx, fn := range info.Functions {
		code, err := generateFunction(g.Backend, fn, internalFuncName(idx, false), info)
		if err != nil {
			return fmt.Errorf("generating function %d: %w", idx, err)
		}
		sb.WriteString(code)
		sb.WriteString("\n")
	}

	g.generateExports(sb, info, hasMutGlobals)
	return nil
}

// generateConstructor emits NewModule: globals from their literal
// initializers, the table with its declared initial size and its element
// segments installed as canonical (typeIndex, funcIndex) pairs, the memory
// with its initial pages, and every data segment replayed byte by byte.
func (g *Generator) generateConstructor(sb *strings.Builder, info *ir.ModuleInfo, hasMutGlobals bool) {
	sb.WriteString("// NewModule instantiates the module: globals, table, and memory are\n")
	sb.WriteString("// created and the data and element segments are applied.\n")
	sb.WriteString("func NewModule() (*Module, error) {\n")
	sb.WriteString("\tm := &Module{}\n")

	if hasMutGlobals {
		var fields []string
		for idx, gl := range info.Globals {
			if gl.Mutable {
				fields = append(fields, fmt.Sprintf("G%d: %s", idx, goValueLiteral(gl.Init)))
			}
		}
		fmt.Fprintf(sb, "\tm.Globals = Globals{%s}\n", strings.Join(fields, ", "))
	}

	if info.HasMemory {
		fmt.Fprintf(sb, "\tmem, err := wasmrt.NewMemory(%d, MaxPages)\n", info.InitialPages)
		sb.WriteString("\tif err != nil {\n\t\treturn nil, wasmrt.TrapOutOfBounds\n\t}\n")
		sb.WriteString("\tm.Memory = mem\n")
	}

	if info.HasTable() {
		fmt.Fprintf(sb, "\ttbl, terr := wasmrt.NewTable(%d, TableMax)\n", info.TableInitial)
		sb.WriteString("\tif terr != nil {\n\t\treturn nil, wasmrt.TrapOutOfBounds\n\t}\n")
		sb.WriteString("\tm.Table = tbl\n")

		for _, seg := range info.ElementSegments {
			for i, funcIdx := range seg.FuncIndices {
				// Element entries are in the module-wide function index
				// space; convert to a local index and store the canonical
				// type index for the call_indirect check.
				localIdx := funcIdx - info.NumImportedFunctions
				typeIdx := ir.TypeIdx(0)
				if int(localIdx) < len(info.FuncSignatures) {
					typeIdx = info.FuncSignatures[localIdx].TypeIdx
				}
				fmt.Fprintf(sb,
					"\tif err := m.Table.Set(%d, &wasmrt.FuncRef{TypeIndex: %d, FuncIndex: %d}); err != nil {\n\t\treturn nil, err\n\t}\n",
					seg.Offset+uint32(i), typeIdx, localIdx)
			}
		}
	}

	if info.HasMemory {
		for _, seg := range info.DataSegments {
			for i, b := range seg.Data {
				fmt.Fprintf(sb, "\tif err := m.Memory.StoreU8(%d, 0x%02x); err != nil {\n\t\treturn nil, err\n\t}\n",
					seg.Offset+uint32(i), b)
			}
		}
	}

	sb.WriteString("\treturn m, nil\n}\n\n")
}

// generateExports emits one public method per exported function, forwarding
// the parameters and instance state to the internal function.
func (g *Generator) generateExports(sb *strings.Builder, info *ir.ModuleInfo, hasMutGlobals bool) {
	for _, export := range info.FuncExports {
		if int(export.FuncIndex) >= len(info.FuncSignatures) {
			continue
		}
		sig := info.FuncSignatures[export.FuncIndex]

		var params []string
		var args []string
		for i, ty := range sig.Params {
			params = append(params, fmt.Sprintf("v%d %s", i, goType(ty)))
			args = append(args, fmt.Sprintf("v%d", i))
		}
		if sig.NeedsHost {
			params = append(params, "host "+hostParamType(info))
			args = append(args, "host")
		}
		if hasMutGlobals {
			args = append(args, "&m.Globals")
		}
		if info.HasMemory {
			args = append(args, "m.Memory")
		} else if info.HasMemoryImport {
			// Library module: the caller lends its memory for this call.
			params = append(params, "mem *wasmrt.Memory")
			args = append(args, "mem")
		}
		if info.HasTable() {
			args = append(args, "m.Table")
		}

		results := "error"
		if sig.ReturnType != ir.TypeNone {
			results = fmt.Sprintf("(%s, error)", goType(sig.ReturnType))
		}

		fmt.Fprintf(sb, "func (m *Module) %s(%s) %s {\n", goExportedName(export.Name), strings.Join(params, ", "), results)
		fmt.Fprintf(sb, "\treturn %s(%s)\n", internalFuncName(int(export.FuncIndex), false), strings.Join(args, ", "))
		sb.WriteString("}\n\n")
	}
}
