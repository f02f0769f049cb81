package ir

// InstrKind discriminates the Instr variants. The generic operand slots
// X/Y/Z are interpreted per kind; see the field comments on Instr.
type InstrKind byte

const (
	// InstrConst loads a typed literal: Dest = Val.
	InstrConst InstrKind = iota
	// InstrBinOp computes Dest = Bin(X, Y).
	InstrBinOp
	// InstrUnOp computes Dest = Un(X).
	InstrUnOp
	// InstrLoad reads memory: Dest = mem[X + Offset], bounds checked, with
	// Width/Sign selecting sub-width extension.
	InstrLoad
	// InstrStore writes memory: mem[X + Offset] = Y, bounds checked;
	// sub-width stores truncate.
	InstrStore
	// InstrCall calls the local function Func with Args; Dest is
	// VarIdInvalid for void callees.
	InstrCall
	// InstrCallImport calls the host import Import (Module/Name) with Args.
	InstrCallImport
	// InstrCallIndirect dispatches through table slot X with canonical type
	// TypeIdx and Args.
	InstrCallIndirect
	// InstrAssign copies Dest = X. This is the controlled escape valve from
	// pure SSA used to model Wasm locals (local.set/local.tee).
	InstrAssign
	// InstrGlobalGet reads global Global into Dest.
	InstrGlobalGet
	// InstrGlobalSet writes X into global Global.
	InstrGlobalSet
	// InstrMemorySize reads the current page count into Dest.
	InstrMemorySize
	// InstrMemoryGrow grows memory by X pages; Dest receives the previous
	// page count, or -1 on failure.
	InstrMemoryGrow
	// InstrMemoryCopy copies Z bytes from Y to X with memmove semantics,
	// bounds checked.
	InstrMemoryCopy
	// InstrSelect computes Dest = Z != 0 ? X : Y.
	InstrSelect
)

// Instr is one straight-line IR instruction. Like the rest of the IR it is a
// plain mutable struct: optimization passes rewrite instructions in place.
type Instr struct {
	Kind InstrKind

	// Dest is the defined variable, or VarIdInvalid for instructions that
	// produce no value (Store, GlobalSet, MemoryCopy, void calls).
	Dest VarId

	// X, Y, Z are the fixed operand slots, read per Kind:
	//
	//	BinOp:        X=lhs, Y=rhs
	//	UnOp:         X=operand
	//	Load:         X=addr
	//	Store:        X=addr, Y=value
	//	Assign:       X=src
	//	GlobalSet:    X=value
	//	MemoryGrow:   X=delta
	//	MemoryCopy:   X=dst, Y=src, Z=len
	//	Select:       X=val1, Y=val2, Z=condition
	//	CallIndirect: X=table index
	X, Y, Z VarId

	// Val is the literal of a Const.
	Val Value

	// Bin/Un select the operation for BinOp/UnOp.
	Bin BinOp
	Un  UnOp

	// Typ, Offset, Width, Sign describe memory accesses.
	Typ    Type
	Offset uint32
	Width  MemoryAccessWidth
	Sign   SignExtension

	// Func is the callee of a Call.
	Func LocalFuncIdx
	// Import, Module, Name identify the callee of a CallImport.
	Import ImportIdx
	Module string
	Name   string
	// TypeIdx is the canonical expected type of a CallIndirect.
	TypeIdx TypeIdx
	// Global is the module-wide global index of GlobalGet/GlobalSet.
	Global GlobalIdx
	// Args are the call arguments in call order.
	Args []VarId
}

// NewConst builds a Const instruction.
func NewConst(dest VarId, val Value) *Instr {
	return &Instr{Kind: InstrConst, Dest: dest, Val: val}
}

// NewBinOp builds a BinOp instruction.
func NewBinOp(dest VarId, op BinOp, lhs, rhs VarId) *Instr {
	return &Instr{Kind: InstrBinOp, Dest: dest, Bin: op, X: lhs, Y: rhs}
}

// NewUnOp builds a UnOp instruction.
func NewUnOp(dest VarId, op UnOp, operand VarId) *Instr {
	return &Instr{Kind: InstrUnOp, Dest: dest, Un: op, X: operand}
}

// NewAssign builds an Assign instruction.
func NewAssign(dest, src VarId) *Instr {
	return &Instr{Kind: InstrAssign, Dest: dest, X: src}
}

// TermKind discriminates the Terminator variants.
type TermKind byte

const (
	// TermReturn returns from the function, with Val as the result when
	// valid.
	TermReturn TermKind = iota
	// TermJump transfers control to Target.
	TermJump
	// TermBranchIf transfers to IfTrue when Val is nonzero, else IfFalse.
	TermBranchIf
	// TermBranchTable switches on Val over Targets; an index at or past
	// len(Targets) selects Default.
	TermBranchTable
	// TermUnreachable traps.
	TermUnreachable
)

// Terminator is how control exits a basic block. Every block has exactly
// one; control never falls off the end of a block.
type Terminator struct {
	Kind TermKind
	// Val is the Return value (VarIdInvalid for a bare return), the
	// BranchIf condition, or the BranchTable index.
	Val VarId
	// Target is the Jump destination.
	Target BlockId
	// IfTrue/IfFalse are the BranchIf destinations.
	IfTrue, IfFalse BlockId
	// Targets/Default are the BranchTable destinations.
	Targets []BlockId
	Default BlockId
}

// Successors returns the block IDs this terminator can transfer control to.
func (t *Terminator) Successors() []BlockId {
	switch t.Kind {
	case TermReturn, TermUnreachable:
		return nil
	case TermJump:
		return []BlockId{t.Target}
	case TermBranchIf:
		return []BlockId{t.IfTrue, t.IfFalse}
	case TermBranchTable:
		out := make([]BlockId, 0, len(t.Targets)+1)
		out = append(out, t.Targets...)
		return append(out, t.Default)
	default:
		panic(int(t.Kind))
	}
}
