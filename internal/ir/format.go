package ir

import (
	"fmt"
	"strings"
)

// Format renders the function as a readable listing, one block per
// paragraph. This exists for debugging and test failure output; nothing in
// the pipeline parses it back.
func (f *Function) Format() string {
	var sb strings.Builder
	var params []string
	for _, p := range f.Params {
		params = append(params, fmt.Sprintf("%s:%s", p.Var, p.Typ))
	}
	ret := ""
	if f.ReturnType != TypeNone {
		ret = " -> " + f.ReturnType.String()
	}
	fmt.Fprintf(&sb, "func(%s)%s\n", strings.Join(params, ", "), ret)
	for _, l := range f.Locals {
		fmt.Fprintf(&sb, "  local %s:%s\n", l.Var, l.Typ)
	}
	for _, blk := range f.Blocks {
		fmt.Fprintf(&sb, "%s:\n", blk.ID)
		for _, instr := range blk.Instrs {
			fmt.Fprintf(&sb, "  %s\n", instr)
		}
		fmt.Fprintf(&sb, "  %s\n", blk.Term.format())
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (i *Instr) String() string {
	switch i.Kind {
	case InstrConst:
		return fmt.Sprintf("%s = const %s", i.Dest, i.Val)
	case InstrBinOp:
		return fmt.Sprintf("%s = binop %d %s, %s", i.Dest, i.Bin, i.X, i.Y)
	case InstrUnOp:
		return fmt.Sprintf("%s = unop %d %s", i.Dest, i.Un, i.X)
	case InstrLoad:
		return fmt.Sprintf("%s = load.%s %s+%d", i.Dest, i.Typ, i.X, i.Offset)
	case InstrStore:
		return fmt.Sprintf("store.%s %s+%d, %s", i.Typ, i.X, i.Offset, i.Y)
	case InstrCall:
		return fmt.Sprintf("%s = call f%d(%s)", i.Dest, i.Func, joinVars(i.Args))
	case InstrCallImport:
		return fmt.Sprintf("%s = call_import %s.%s(%s)", i.Dest, i.Module, i.Name, joinVars(i.Args))
	case InstrCallIndirect:
		return fmt.Sprintf("%s = call_indirect type%d [%s](%s)", i.Dest, i.TypeIdx, i.X, joinVars(i.Args))
	case InstrAssign:
		return fmt.Sprintf("%s = %s", i.Dest, i.X)
	case InstrGlobalGet:
		return fmt.Sprintf("%s = global %d", i.Dest, i.Global)
	case InstrGlobalSet:
		return fmt.Sprintf("global %d = %s", i.Global, i.X)
	case InstrMemorySize:
		return fmt.Sprintf("%s = memory.size", i.Dest)
	case InstrMemoryGrow:
		return fmt.Sprintf("%s = memory.grow %s", i.Dest, i.X)
	case InstrMemoryCopy:
		return fmt.Sprintf("memory.copy %s, %s, %s", i.X, i.Y, i.Z)
	case InstrSelect:
		return fmt.Sprintf("%s = select %s, %s, %s", i.Dest, i.X, i.Y, i.Z)
	default:
		return fmt.Sprintf("unknown(%d)", i.Kind)
	}
}

func (t *Terminator) format() string {
	switch t.Kind {
	case TermReturn:
		if t.Val.Valid() {
			return "return " + t.Val.String()
		}
		return "return"
	case TermJump:
		return "jump " + t.Target.String()
	case TermBranchIf:
		return fmt.Sprintf("branch_if %s, %s, %s", t.Val, t.IfTrue, t.IfFalse)
	case TermBranchTable:
		var targets []string
		for _, tgt := range t.Targets {
			targets = append(targets, tgt.String())
		}
		return fmt.Sprintf("branch_table %s, [%s], %s", t.Val, strings.Join(targets, " "), t.Default)
	case TermUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("unknown(%d)", t.Kind)
	}
}

func joinVars(vars []VarId) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
