package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wasmelt/wasmelt/internal/ir"
)

// maxInlineDepth bounds recursive block inlining so a pathological CFG can't
// blow the stack or the output.
const maxInlineDepth = 16

// funcGen emits one IR function. It carries the per-function lookup tables
// the terminator and inlining logic need.
type funcGen struct {
	backend Backend
	info    *ir.ModuleInfo
	fn      *ir.Function

	blockIndex     map[ir.BlockId]int
	blockByID      map[ir.BlockId]*ir.Block
	inlinable      map[ir.BlockId]struct{}
	trivialReturns map[ir.BlockId]struct{}
}

// generateFunction renders one complete Go function.
func generateFunction(backend Backend, fn *ir.Function, funcName string, info *ir.ModuleInfo) (string, error) {
	g := &funcGen{
		backend:        backend,
		info:           info,
		fn:             fn,
		blockIndex:     make(map[ir.BlockId]int, len(fn.Blocks)),
		blockByID:      make(map[ir.BlockId]*ir.Block, len(fn.Blocks)),
		inlinable:      make(map[ir.BlockId]struct{}),
		trivialReturns: make(map[ir.BlockId]struct{}),
	}
	for i, blk := range fn.Blocks {
		g.blockIndex[blk.ID] = i
		g.blockByID[blk.ID] = blk
	}
	g.computeInlinable()

	var sb strings.Builder
	sb.WriteString(g.signature(funcName))
	sb.WriteString(" {\n")

	varTypes := g.collectVarTypes()
	g.writeVarDecls(&sb, varTypes)

	if len(fn.Blocks) == 1 && isFinalTerm(&fn.Blocks[0].Term) {
		// Single straight-line block: no state machine needed.
		blk := fn.Blocks[0]
		for _, instr := range blk.Instrs {
			code, err := g.generateInstruction(instr)
			if err != nil {
				return "", err
			}
			writeIndented(&sb, code, 1)
		}
		writeIndented(&sb, g.generateTerminator(&blk.Term), 1)
	} else {
		g.writeStateMachine(&sb)
	}

	sb.WriteString("}\n")
	return sb.String(), nil
}

// isFinalTerm is true for terminators that leave the function rather than
// transfer control, i.e. the ones legal outside the dispatch loop.
func isFinalTerm(term *ir.Terminator) bool {
	return term.Kind == ir.TermReturn || term.Kind == ir.TermUnreachable
}

// computeInlinable marks blocks that may be folded into their sole
// predecessor's conditional arm, and the trivial return blocks that can be
// inlined at every use site. Inlining is cosmetic: every block still gets a
// dispatch arm, so a depth-capped inline can always fall back to a state
// assignment.
func (g *funcGen) computeInlinable() {
	preds := make(map[ir.BlockId]map[ir.BlockId]struct{})
	for _, blk := range g.fn.Blocks {
		for _, succ := range blk.Term.Successors() {
			if preds[succ] == nil {
				preds[succ] = make(map[ir.BlockId]struct{})
			}
			preds[succ][blk.ID] = struct{}{}
		}
	}
	for _, blk := range g.fn.Blocks {
		if blk.ID == g.fn.EntryBlock {
			continue
		}
		if len(preds[blk.ID]) == 1 {
			g.inlinable[blk.ID] = struct{}{}
		}
		if len(blk.Instrs) == 0 && blk.Term.Kind == ir.TermReturn {
			g.trivialReturns[blk.ID] = struct{}{}
		}
	}
}

// hostParamType is the Go type of the host parameter: the single import
// module's interface, or the combined interface when imports span modules.
func hostParamType(info *ir.ModuleInfo) string {
	names := importModuleNames(info)
	if len(names) == 1 {
		return importInterfaceName(names[0])
	}
	return "HostImports"
}

// importModuleNames returns the distinct import module names, sorted.
func importModuleNames(info *ir.ModuleInfo) []string {
	seen := make(map[string]struct{})
	for _, imp := range info.FuncImports {
		seen[imp.Module] = struct{}{}
	}
	for _, g := range info.ImportedGlobals {
		seen[g.Module] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// signature renders the function header. Parameters carry the Wasm
// arguments followed by the instance state the body touches; results are
// named so trap propagation is a bare return.
func (g *funcGen) signature(funcName string) string {
	var params []string
	for _, p := range g.fn.Params {
		params = append(params, fmt.Sprintf("%s %s", p.Var, goType(p.Typ)))
	}
	if g.fn.NeedsHost {
		params = append(params, "host "+hostParamType(g.info))
	}
	if g.info.NeedsWrapper() && g.info.HasMutableGlobals() {
		params = append(params, "globals *Globals")
	}
	if g.info.HasMemory || g.info.HasMemoryImport {
		params = append(params, "mem *wasmrt.Memory")
	}
	if g.info.HasTable() {
		params = append(params, "tbl *wasmrt.Table")
	}

	results := "(err error)"
	if g.fn.ReturnType != ir.TypeNone {
		results = fmt.Sprintf("(ret %s, err error)", goType(g.fn.ReturnType))
	}
	return fmt.Sprintf("func %s(%s) %s", funcName, strings.Join(params, ", "), results)
}

// collectVarTypes infers the type of every variable appearing in the
// function. Terminators are scanned too: a return value in a dead block may
// not be defined by any surviving instruction, yet still needs a
// declaration.
func (g *funcGen) collectVarTypes() map[ir.VarId]ir.Type {
	varTypes := make(map[ir.VarId]ir.Type)
	for _, p := range g.fn.Params {
		varTypes[p.Var] = p.Typ
	}
	for _, l := range g.fn.Locals {
		varTypes[l.Var] = l.Typ
	}

	for _, blk := range g.fn.Blocks {
		for _, instr := range blk.Instrs {
			switch instr.Kind {
			case ir.InstrConst:
				varTypes[instr.Dest] = instr.Val.Typ
			case ir.InstrBinOp:
				varTypes[instr.Dest] = instr.Bin.ResultType()
			case ir.InstrUnOp:
				varTypes[instr.Dest] = instr.Un.ResultType()
			case ir.InstrLoad:
				varTypes[instr.Dest] = instr.Typ
			case ir.InstrCall:
				if instr.Dest.Valid() {
					ty := ir.TypeI32
					if int(instr.Func) < len(g.info.FuncSignatures) {
						ty = g.info.FuncSignatures[instr.Func].ReturnType
					}
					varTypes[instr.Dest] = ty
				}
			case ir.InstrCallImport:
				if instr.Dest.Valid() {
					ty := ir.TypeI32
					if int(instr.Import) < len(g.info.FuncImports) {
						ty = g.info.FuncImports[instr.Import].ReturnType
					}
					varTypes[instr.Dest] = ty
				}
			case ir.InstrCallIndirect:
				if instr.Dest.Valid() {
					ty := ir.TypeI32
					if int(instr.TypeIdx) < len(g.info.TypeSignatures) {
						ty = g.info.TypeSignatures[instr.TypeIdx].ReturnType
					}
					varTypes[instr.Dest] = ty
				}
			case ir.InstrAssign:
				if ty, ok := varTypes[instr.X]; ok {
					varTypes[instr.Dest] = ty
				} else {
					varTypes[instr.Dest] = ir.TypeI32
				}
			case ir.InstrGlobalGet:
				imported, local, _ := g.info.ResolveGlobal(instr.Global)
				switch {
				case imported != nil:
					varTypes[instr.Dest] = imported.Typ
				case local != nil:
					varTypes[instr.Dest] = local.Typ
				default:
					varTypes[instr.Dest] = ir.TypeI32
				}
			case ir.InstrMemorySize, ir.InstrMemoryGrow:
				varTypes[instr.Dest] = ir.TypeI32
			case ir.InstrSelect:
				if ty, ok := varTypes[instr.X]; ok {
					varTypes[instr.Dest] = ty
				} else {
					varTypes[instr.Dest] = ir.TypeI32
				}
			}
		}

		switch blk.Term.Kind {
		case ir.TermReturn:
			if blk.Term.Val.Valid() {
				if _, ok := varTypes[blk.Term.Val]; !ok {
					ty := g.fn.ReturnType
					if ty == ir.TypeNone {
						ty = ir.TypeI32
					}
					varTypes[blk.Term.Val] = ty
				}
			}
		case ir.TermBranchIf, ir.TermBranchTable:
			if _, ok := varTypes[blk.Term.Val]; !ok {
				varTypes[blk.Term.Val] = ir.TypeI32
			}
		}
	}

	// Every variable read anywhere must end up declared, even when its
	// defining instruction sat in a pruned dead block (a value-carrying
	// branch can leave such reads behind). Those reads are themselves dead;
	// i32 is as good a type as any.
	for _, blk := range g.fn.Blocks {
		for _, instr := range blk.Instrs {
			for _, v := range instrReads(instr) {
				if _, ok := varTypes[v]; !ok {
					varTypes[v] = ir.TypeI32
				}
			}
		}
	}
	return varTypes
}

// instrReads returns the variables an instruction reads.
func instrReads(instr *ir.Instr) []ir.VarId {
	switch instr.Kind {
	case ir.InstrConst, ir.InstrGlobalGet, ir.InstrMemorySize:
		return nil
	case ir.InstrBinOp, ir.InstrStore:
		return []ir.VarId{instr.X, instr.Y}
	case ir.InstrUnOp, ir.InstrAssign, ir.InstrGlobalSet, ir.InstrMemoryGrow, ir.InstrLoad:
		return []ir.VarId{instr.X}
	case ir.InstrMemoryCopy, ir.InstrSelect:
		return []ir.VarId{instr.X, instr.Y, instr.Z}
	case ir.InstrCall, ir.InstrCallImport:
		return instr.Args
	case ir.InstrCallIndirect:
		return append([]ir.VarId{instr.X}, instr.Args...)
	default:
		return nil
	}
}

// writeVarDecls declares every non-parameter variable zero-initialized, then
// anchors them with blank assignments so dead-block variables that are only
// written don't trip the unused-variable check.
func (g *funcGen) writeVarDecls(sb *strings.Builder, varTypes map[ir.VarId]ir.Type) {
	isParam := make(map[ir.VarId]struct{}, len(g.fn.Params))
	for _, p := range g.fn.Params {
		isParam[p.Var] = struct{}{}
	}

	vars := make([]ir.VarId, 0, len(varTypes))
	for v := range varTypes {
		if _, ok := isParam[v]; ok {
			continue
		}
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })

	if len(vars) == 0 {
		return
	}
	for _, v := range vars {
		fmt.Fprintf(sb, "\tvar %s %s\n", v, goType(varTypes[v]))
	}
	blanks := make([]string, len(vars))
	names := make([]string, len(vars))
	for i, v := range vars {
		blanks[i] = "_"
		names[i] = v.String()
	}
	fmt.Fprintf(sb, "\t%s = %s\n", strings.Join(blanks, ", "), strings.Join(names, ", "))
}

// writeStateMachine renders the dispatch loop: block tags, the state
// variable starting at the entry block, and one arm per block.
func (g *funcGen) writeStateMachine(sb *strings.Builder) {
	sb.WriteString("\tconst (\n")
	for i := range g.fn.Blocks {
		if i == 0 {
			sb.WriteString("\t\tblk0 = iota\n")
		} else {
			fmt.Fprintf(sb, "\t\tblk%d\n", i)
		}
	}
	sb.WriteString("\t)\n")
	fmt.Fprintf(sb, "\tcur := blk%d\n", g.blockIndex[g.fn.EntryBlock])
	sb.WriteString("\tfor {\n\t\tswitch cur {\n")

	for i, blk := range g.fn.Blocks {
		fmt.Fprintf(sb, "\t\tcase blk%d:\n", i)
		g.writeBlockBody(sb, blk, 0)
	}

	sb.WriteString("\t\t}\n\t}\n")
}

// writeBlockBody renders a block's instructions and terminator at arm depth,
// recursively inlining eligible successor blocks.
func (g *funcGen) writeBlockBody(sb *strings.Builder, blk *ir.Block, depth int) {
	for _, instr := range blk.Instrs {
		code, err := g.generateInstruction(instr)
		if err != nil {
			// Instruction-level failures are module-shape bugs caught
			// earlier; the generator has no fallible instructions left.
			panic(err)
		}
		writeIndented(sb, code, 3)
	}
	g.writeTerminator(sb, &blk.Term, depth)
}

// tryInlineTarget emits the target block inline when allowed, returning
// whether it did.
func (g *funcGen) tryInlineTarget(sb *strings.Builder, target ir.BlockId, depth int, extraIndent int) bool {
	if _, ok := g.inlinable[target]; ok && depth < maxInlineDepth {
		blk := g.blockByID[target]
		for _, instr := range blk.Instrs {
			code, err := g.generateInstruction(instr)
			if err != nil {
				panic(err)
			}
			writeIndented(sb, code, 3+extraIndent)
		}
		g.writeTerminatorIndented(sb, &blk.Term, depth+1, extraIndent)
		return true
	}
	if _, ok := g.trivialReturns[target]; ok {
		blk := g.blockByID[target]
		writeIndented(sb, g.generateTerminator(&blk.Term), 3+extraIndent)
		return true
	}
	return false
}

func (g *funcGen) writeTerminator(sb *strings.Builder, term *ir.Terminator, depth int) {
	g.writeTerminatorIndented(sb, term, depth, 0)
}

func (g *funcGen) writeTerminatorIndented(sb *strings.Builder, term *ir.Terminator, depth, extraIndent int) {
	switch term.Kind {
	case ir.TermBranchIf:
		writeIndented(sb, fmt.Sprintf("if %s != 0 {", term.Val), 3+extraIndent)
		trueInlined := g.tryInlineTarget(sb, term.IfTrue, depth, extraIndent+1)
		if !trueInlined {
			writeIndented(sb, fmt.Sprintf("cur = blk%d", g.blockIndex[term.IfTrue]), 4+extraIndent)
		}
		writeIndented(sb, "} else {", 3+extraIndent)
		falseInlined := g.tryInlineTarget(sb, term.IfFalse, depth, extraIndent+1)
		if !falseInlined {
			writeIndented(sb, fmt.Sprintf("cur = blk%d", g.blockIndex[term.IfFalse]), 4+extraIndent)
		}
		writeIndented(sb, "}", 3+extraIndent)
		if !trueInlined || !falseInlined {
			writeIndented(sb, "continue", 3+extraIndent)
		}

	case ir.TermJump:
		// A jump to a trivial return block becomes the return itself.
		if _, ok := g.trivialReturns[term.Target]; ok {
			blk := g.blockByID[term.Target]
			writeIndented(sb, g.generateTerminator(&blk.Term), 3+extraIndent)
			return
		}
		writeIndented(sb, g.generateTerminator(term), 3+extraIndent)

	default:
		writeIndented(sb, g.generateTerminator(term), 3+extraIndent)
	}
}

// generateTerminator renders non-inlined terminators through the backend.
func (g *funcGen) generateTerminator(term *ir.Terminator) string {
	switch term.Kind {
	case ir.TermReturn:
		// A valueless return in a function with a declared result is dead
		// code after unreachable; a plain return would be type-legal in Go,
		// but Wasm semantics say this path traps.
		if !term.Val.Valid() && g.fn.ReturnType != ir.TypeNone {
			return g.backend.EmitUnreachable()
		}
		return g.backend.EmitReturn(term.Val)
	case ir.TermJump:
		return g.backend.EmitJumpToIndex(g.blockIndex[term.Target])
	case ir.TermBranchIf:
		return g.backend.EmitBranchIfToIndex(term.Val, g.blockIndex[term.IfTrue], g.blockIndex[term.IfFalse])
	case ir.TermBranchTable:
		targets := make([]int, len(term.Targets))
		for i, t := range term.Targets {
			targets[i] = g.blockIndex[t]
		}
		return g.backend.EmitBranchTableToIndex(term.Val, targets, g.blockIndex[term.Default])
	case ir.TermUnreachable:
		return g.backend.EmitUnreachable()
	default:
		panic(int(term.Kind))
	}
}

// generateInstruction renders one instruction through the backend.
func (g *funcGen) generateInstruction(instr *ir.Instr) (string, error) {
	switch instr.Kind {
	case ir.InstrConst:
		return g.backend.EmitConst(instr.Dest, instr.Val), nil
	case ir.InstrBinOp:
		return g.backend.EmitBinOp(instr.Dest, instr.Bin, instr.X, instr.Y), nil
	case ir.InstrUnOp:
		return g.backend.EmitUnOp(instr.Dest, instr.Un, instr.X), nil
	case ir.InstrLoad:
		return g.backend.EmitLoad(instr.Dest, instr.Typ, instr.X, instr.Offset, instr.Width, instr.Sign), nil
	case ir.InstrStore:
		return g.backend.EmitStore(instr.Typ, instr.X, instr.Y, instr.Offset, instr.Width), nil
	case ir.InstrCall:
		if int(instr.Func) >= len(g.info.Functions) {
			return "", fmt.Errorf("call to unknown function %d", instr.Func)
		}
		callee := g.info.Functions[instr.Func]
		ctx := CallContext{
			NeedsHost:  callee.NeedsHost,
			HasGlobals: g.info.NeedsWrapper() && g.info.HasMutableGlobals(),
			HasMemory:  g.info.HasMemory || g.info.HasMemoryImport,
			HasTable:   g.info.HasTable(),
		}
		return g.backend.EmitCall(instr.Dest, internalFuncName(int(instr.Func), !g.info.NeedsWrapper()), instr.Args, ctx), nil
	case ir.InstrCallImport:
		return g.backend.EmitCallImport(instr.Dest, goExportedName(instr.Name), instr.Args), nil
	case ir.InstrCallIndirect:
		return g.generateCallIndirect(instr), nil
	case ir.InstrAssign:
		return g.backend.EmitAssign(instr.Dest, instr.X), nil
	case ir.InstrGlobalGet:
		imported, local, localIdx := g.info.ResolveGlobal(instr.Global)
		if imported != nil {
			return fmt.Sprintf("%s = host.Get%s()", instr.Dest, goExportedName(imported.Name)), nil
		}
		mutable := local == nil || local.Mutable
		return g.backend.EmitGlobalGet(instr.Dest, localIdx, mutable), nil
	case ir.InstrGlobalSet:
		imported, _, localIdx := g.info.ResolveGlobal(instr.Global)
		if imported != nil {
			return fmt.Sprintf("host.Set%s(%s)", goExportedName(imported.Name), instr.X), nil
		}
		return g.backend.EmitGlobalSet(localIdx, instr.X), nil
	case ir.InstrMemorySize:
		return g.backend.EmitMemorySize(instr.Dest), nil
	case ir.InstrMemoryGrow:
		return g.backend.EmitMemoryGrow(instr.Dest, instr.X), nil
	case ir.InstrMemoryCopy:
		return g.backend.EmitMemoryCopy(instr.X, instr.Y, instr.Z), nil
	case ir.InstrSelect:
		return g.backend.EmitSelect(instr.Dest, instr.X, instr.Y, instr.Z), nil
	default:
		return "", fmt.Errorf("unhandled instruction kind %d", instr.Kind)
	}
}

// generateCallIndirect renders the table dispatch: fetch the entry, compare
// its canonical type index, then switch over the local functions whose
// canonical type matches. Functions of other types cannot appear in the
// switch because their table entries carry different type indices.
func (g *funcGen) generateCallIndirect(instr *ir.Instr) string {
	canon := instr.TypeIdx
	ctx := CallContext{
		HasGlobals: g.info.NeedsWrapper() && g.info.HasMutableGlobals(),
		HasMemory:  g.info.HasMemory || g.info.HasMemoryImport,
		HasTable:   g.info.HasTable(),
	}

	var sb strings.Builder
	sb.WriteString("{\n")
	fmt.Fprintf(&sb, "\tentry, terr := tbl.Get(uint32(%s))\n", instr.X)
	sb.WriteString("\tif terr != nil {\n\t\terr = terr\n\t\treturn\n\t}\n")
	fmt.Fprintf(&sb, "\tif entry.TypeIndex != %d {\n\t\terr = wasmrt.TrapIndirectCallTypeMismatch\n\t\treturn\n\t}\n", canon)

	dest := ""
	if instr.Dest.Valid() {
		dest = fmt.Sprintf("%s, ", instr.Dest)
	}

	sb.WriteString("\tswitch entry.FuncIndex {\n")
	for funcIdx, sig := range g.info.FuncSignatures {
		if sig.TypeIdx != canon {
			continue
		}
		callCtx := ctx
		callCtx.NeedsHost = sig.NeedsHost
		fmt.Fprintf(&sb, "\tcase %d:\n", funcIdx)
		fmt.Fprintf(&sb, "\t\t%serr = %s(%s)\n", dest,
			internalFuncName(funcIdx, !g.info.NeedsWrapper()), callArgs(instr.Args, callCtx))
	}
	sb.WriteString("\tdefault:\n\t\terr = wasmrt.TrapUndefinedElement\n\t}\n")
	sb.WriteString("\tif err != nil {\n\t\treturn\n\t}\n")
	sb.WriteString("}")
	return sb.String()
}

// writeIndented writes a newline-separated fragment with level tabs
// prepended to each line.
func writeIndented(sb *strings.Builder, text string, level int) {
	prefix := strings.Repeat("\t", level)
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}
