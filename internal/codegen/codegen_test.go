package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmelt/wasmelt/internal/ir"
)

func emptyInfo(functions ...*ir.Function) *ir.ModuleInfo {
	return &ir.ModuleInfo{Functions: functions}
}

func TestGenerateFunction_Add(t *testing.T) {
	fn := &ir.Function{
		Params: []ir.TypedVar{{Var: 0, Typ: ir.TypeI32}, {Var: 1, Typ: ir.TypeI32}},
		Blocks: []*ir.Block{{
			ID:     0,
			Instrs: []*ir.Instr{ir.NewBinOp(2, ir.BinOpI32Add, 0, 1)},
			Term:   ir.Terminator{Kind: ir.TermReturn, Val: 2},
		}},
		ReturnType: ir.TypeI32,
	}

	code, err := generateFunction(NewSafeBackend(), fn, "Func0", emptyInfo(fn))
	require.NoError(t, err)

	require.Contains(t, code, "func Func0(v0 int32, v1 int32) (ret int32, err error) {")
	require.Contains(t, code, "var v2 int32")
	require.Contains(t, code, "v2 = v0 + v1")
	require.Contains(t, code, "ret = v2")
	// Single block: flat body, no dispatch loop.
	require.NotContains(t, code, "switch cur")
}

func TestGenerateFunction_Void(t *testing.T) {
	fn := &ir.Function{
		Blocks: []*ir.Block{{
			ID:   0,
			Term: ir.Terminator{Kind: ir.TermReturn, Val: ir.VarIdInvalid},
		}},
		ReturnType: ir.TypeNone,
	}
	code, err := generateFunction(NewSafeBackend(), fn, "Func0", emptyInfo(fn))
	require.NoError(t, err)
	require.Contains(t, code, "func Func0() (err error) {")
	require.Contains(t, code, "return")
}

func TestGenerateFunction_TypesInferredPerVar(t *testing.T) {
	// An i64 comparison yields an i32 destination.
	fn := &ir.Function{
		Params: []ir.TypedVar{{Var: 0, Typ: ir.TypeI64}},
		Blocks: []*ir.Block{{
			ID: 0,
			Instrs: []*ir.Instr{
				ir.NewConst(1, ir.I64Value(42)),
				ir.NewBinOp(2, ir.BinOpI64Eq, 0, 1),
			},
			Term: ir.Terminator{Kind: ir.TermReturn, Val: 2},
		}},
		ReturnType: ir.TypeI32,
	}
	code, err := generateFunction(NewSafeBackend(), fn, "Func0", emptyInfo(fn))
	require.NoError(t, err)
	require.Contains(t, code, "var v1 int64")
	require.Contains(t, code, "var v2 int32")
}

func TestGenerateFunction_StateMachine(t *testing.T) {
	fn := &ir.Function{
		Params: []ir.TypedVar{{Var: 0, Typ: ir.TypeI32}},
		Blocks: []*ir.Block{
			{ID: 0, Term: ir.Terminator{Kind: ir.TermBranchIf, Val: 0, IfTrue: 1, IfFalse: 2}},
			{ID: 1, Instrs: []*ir.Instr{ir.NewConst(1, ir.I32Value(1))}, Term: ir.Terminator{Kind: ir.TermJump, Target: 3}},
			{ID: 2, Instrs: []*ir.Instr{ir.NewConst(1, ir.I32Value(2))}, Term: ir.Terminator{Kind: ir.TermJump, Target: 3}},
			{ID: 3, Term: ir.Terminator{Kind: ir.TermReturn, Val: 1}},
		},
		ReturnType: ir.TypeI32,
	}
	code, err := generateFunction(NewSafeBackend(), fn, "Func0", emptyInfo(fn))
	require.NoError(t, err)

	require.Contains(t, code, "blk0 = iota")
	require.Contains(t, code, "cur := blk0")
	require.Contains(t, code, "for {")
	require.Contains(t, code, "switch cur {")
	require.Contains(t, code, "case blk3:")
}

func TestGenerateFunction_DeadReturnWithDeclaredResultTraps(t *testing.T) {
	// A valueless return on a dead path of a value-returning function must
	// surface as an unreachable trap, not a zero-value return.
	fn := &ir.Function{
		Blocks: []*ir.Block{
			{ID: 0, Term: ir.Terminator{Kind: ir.TermUnreachable}},
			{ID: 1, Term: ir.Terminator{Kind: ir.TermReturn, Val: ir.VarIdInvalid}},
		},
		ReturnType: ir.TypeI32,
	}
	code, err := generateFunction(NewSafeBackend(), fn, "Func0", emptyInfo(fn))
	require.NoError(t, err)
	require.Contains(t, code, "err = wasmrt.TrapUnreachable")
	require.NotContains(t, code, "ret = ")
}

func TestGenerateFunction_CheckedDivision(t *testing.T) {
	fn := &ir.Function{
		Params: []ir.TypedVar{{Var: 0, Typ: ir.TypeI32}, {Var: 1, Typ: ir.TypeI32}},
		Blocks: []*ir.Block{{
			ID:     0,
			Instrs: []*ir.Instr{ir.NewBinOp(2, ir.BinOpI32DivS, 0, 1)},
			Term:   ir.Terminator{Kind: ir.TermReturn, Val: 2},
		}},
		ReturnType: ir.TypeI32,
	}
	code, err := generateFunction(NewSafeBackend(), fn, "Func0", emptyInfo(fn))
	require.NoError(t, err)
	require.Contains(t, code, "v2, err = wasmrt.I32DivS(v0, v1)")
	require.Contains(t, code, "if err != nil {")
}

func TestGenerateModule_WrapperWithMutableGlobal(t *testing.T) {
	fn := &ir.Function{
		Blocks: []*ir.Block{{
			ID:     0,
			Instrs: []*ir.Instr{{Kind: ir.InstrGlobalGet, Dest: 0, Global: 0}},
			Term:   ir.Terminator{Kind: ir.TermReturn, Val: 0},
		}},
		ReturnType: ir.TypeI32,
	}
	info := &ir.ModuleInfo{
		Globals: []ir.GlobalDef{{Typ: ir.TypeI32, Mutable: true, Init: ir.I32Value(0)}},
		FuncExports: []ir.FuncExport{{Name: "get_value", FuncIndex: 0}},
		FuncSignatures: []ir.FuncSignature{{ReturnType: ir.TypeI32}},
		Functions:      []*ir.Function{fn},
	}

	out, err := NewGenerator().GenerateModule(info)
	require.NoError(t, err)
	code := string(out)

	require.Contains(t, code, "type Globals struct {")
	require.Contains(t, code, "G0 int32")
	require.Contains(t, code, "func NewModule() (*Module, error) {")
	require.Contains(t, code, "m.Globals = Globals{G0: 0}")
	require.Contains(t, code, "v0 = globals.G0")
	require.Contains(t, code, "func (m *Module) GetValue() (int32, error) {")
	require.Contains(t, code, "return wasmFunc0(&m.Globals)")
}

func TestGenerateModule_MemoryAndDataSegments(t *testing.T) {
	fn := &ir.Function{
		Params: []ir.TypedVar{{Var: 0, Typ: ir.TypeI32}},
		Blocks: []*ir.Block{{
			ID:     0,
			Instrs: []*ir.Instr{{Kind: ir.InstrLoad, Dest: 1, Typ: ir.TypeI32, X: 0}},
			Term:   ir.Terminator{Kind: ir.TermReturn, Val: 1},
		}},
		ReturnType: ir.TypeI32,
	}
	info := &ir.ModuleInfo{
		HasMemory:    true,
		MaxPages:     1,
		InitialPages: 1,
		DataSegments: []ir.DataSegment{{Offset: 0, Data: []byte("Hello")}},
		FuncExports:  []ir.FuncExport{{Name: "load_word", FuncIndex: 0}},
		FuncSignatures: []ir.FuncSignature{{
			Params: []ir.Type{ir.TypeI32}, ReturnType: ir.TypeI32,
		}},
		Functions: []*ir.Function{fn},
	}

	out, err := NewGenerator().GenerateModule(info)
	require.NoError(t, err)
	code := string(out)

	require.Contains(t, code, "const MaxPages = 1")
	require.Contains(t, code, "wasmrt.NewMemory(1, MaxPages)")
	// Data segments replay byte by byte.
	require.Contains(t, code, "m.Memory.StoreU8(0, 0x48)")
	require.Contains(t, code, "m.Memory.StoreU8(4, 0x6f)")
	require.Contains(t, code, "func (m *Module) LoadWord(v0 int32) (int32, error) {")
	require.Contains(t, code, "return wasmFunc0(v0, m.Memory)")
}

func TestGenerateModule_ImmutableGlobalsBecomeConsts(t *testing.T) {
	fn := &ir.Function{
		Blocks: []*ir.Block{{
			ID:     0,
			Instrs: []*ir.Instr{{Kind: ir.InstrGlobalGet, Dest: 0, Global: 0}},
			Term:   ir.Terminator{Kind: ir.TermReturn, Val: 0},
		}},
		ReturnType: ir.TypeI32,
	}
	info := &ir.ModuleInfo{
		Globals:        []ir.GlobalDef{{Typ: ir.TypeI32, Mutable: false, Init: ir.I32Value(42)}},
		FuncSignatures: []ir.FuncSignature{{ReturnType: ir.TypeI32}},
		Functions:      []*ir.Function{fn},
	}
	require.False(t, info.NeedsWrapper())

	out, err := NewGenerator().GenerateModule(info)
	require.NoError(t, err)
	code := string(out)

	require.Contains(t, code, "const G0 int32 = 42")
	require.Contains(t, code, "v0 = G0")
	require.NotContains(t, code, "type Globals")
	require.NotContains(t, code, "type Module struct")
}

func TestGenerateModule_IndirectDispatch(t *testing.T) {
	// Two functions of the same canonical type 0; a third of type 1 must
	// not appear in the dispatch switch.
	add := &ir.Function{
		Params: []ir.TypedVar{{Var: 0, Typ: ir.TypeI32}, {Var: 1, Typ: ir.TypeI32}},
		Blocks: []*ir.Block{{
			ID:     0,
			Instrs: []*ir.Instr{ir.NewBinOp(2, ir.BinOpI32Add, 0, 1)},
			Term:   ir.Terminator{Kind: ir.TermReturn, Val: 2},
		}},
		ReturnType: ir.TypeI32, TypeIdx: 0,
	}
	mul := &ir.Function{
		Params: []ir.TypedVar{{Var: 0, Typ: ir.TypeI32}, {Var: 1, Typ: ir.TypeI32}},
		Blocks: []*ir.Block{{
			ID:     0,
			Instrs: []*ir.Instr{ir.NewBinOp(2, ir.BinOpI32Mul, 0, 1)},
			Term:   ir.Terminator{Kind: ir.TermReturn, Val: 2},
		}},
		ReturnType: ir.TypeI32, TypeIdx: 0,
	}
	apply := &ir.Function{
		Params: []ir.TypedVar{
			{Var: 0, Typ: ir.TypeI32}, {Var: 1, Typ: ir.TypeI32}, {Var: 2, Typ: ir.TypeI32},
		},
		Blocks: []*ir.Block{{
			ID: 0,
			Instrs: []*ir.Instr{{
				Kind: ir.InstrCallIndirect, Dest: 3, TypeIdx: 0, X: 0,
				Args: []ir.VarId{1, 2},
			}},
			Term: ir.Terminator{Kind: ir.TermReturn, Val: 3},
		}},
		ReturnType: ir.TypeI32, TypeIdx: 1,
	}
	info := &ir.ModuleInfo{
		TableInitial: 2,
		TableMax:     2,
		ElementSegments: []ir.ElementSegment{{Offset: 0, FuncIndices: []uint32{0, 1}}},
		FuncExports:     []ir.FuncExport{{Name: "apply", FuncIndex: 2}},
		FuncSignatures: []ir.FuncSignature{
			{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, ReturnType: ir.TypeI32, TypeIdx: 0},
			{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, ReturnType: ir.TypeI32, TypeIdx: 0},
			{Params: []ir.Type{ir.TypeI32, ir.TypeI32, ir.TypeI32}, ReturnType: ir.TypeI32, TypeIdx: 1},
		},
		TypeSignatures: []ir.FuncSignature{
			{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, ReturnType: ir.TypeI32},
			{Params: []ir.Type{ir.TypeI32, ir.TypeI32, ir.TypeI32}, ReturnType: ir.TypeI32},
		},
		CanonicalType: []uint32{0, 1},
		Functions:     []*ir.Function{add, mul, apply},
	}

	out, err := NewGenerator().GenerateModule(info)
	require.NoError(t, err)
	code := string(out)

	require.Contains(t, code, "const TableMax = 2")
	require.Contains(t, code, "wasmrt.NewTable(2, TableMax)")
	require.Contains(t, code, "wasmrt.FuncRef{TypeIndex: 0, FuncIndex: 0}")
	require.Contains(t, code, "wasmrt.FuncRef{TypeIndex: 0, FuncIndex: 1}")

	require.Contains(t, code, "entry, terr := tbl.Get(uint32(v0))")
	require.Contains(t, code, "if entry.TypeIndex != 0 {")
	require.Contains(t, code, "err = wasmrt.TrapIndirectCallTypeMismatch")
	require.Contains(t, code, "case 0:")
	require.Contains(t, code, "case 1:")
	require.Contains(t, code, "err = wasmrt.TrapUndefinedElement")
	// apply itself has canonical type 1 and must not be a dispatch arm.
	require.NotContains(t, code, "case 2:")
}

func TestGoExportedName(t *testing.T) {
	require.Equal(t, "LoadByte", goExportedName("load_byte"))
	require.Equal(t, "Fib", goExportedName("fib"))
	require.Equal(t, "WasiSnapshotPreview1", goExportedName("wasi_snapshot_preview1"))
	require.Equal(t, "X", goExportedName("__"))
	require.Equal(t, "X2x", goExportedName("2x"))
}
