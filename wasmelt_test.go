package wasmelt_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmelt/wasmelt"
	"github.com/wasmelt/wasmelt/internal/leb128"
	"github.com/wasmelt/wasmelt/internal/testing/binaryencoder"
	"github.com/wasmelt/wasmelt/internal/wasm"
)

func transpile(t *testing.T, binary []byte) string {
	t.Helper()
	out, err := wasmelt.Transpile(binary, wasmelt.Options{})
	require.NoError(t, err)
	return string(out)
}

func TestTranspile_Add(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeLocalGet), 1,
		byte(wasm.OpcodeI32Add),
	)
	b.ExportFunc("add", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "// Code generated by wasmelt. DO NOT EDIT.")
	require.Contains(t, code, "package wasmmodule")
	// Wrapping add: plain Go int32 arithmetic is two's complement.
	require.Contains(t, code, "v2 = v0 + v1")
	require.Contains(t, code, "ret = v2")
}

func TestTranspile_RecursiveFib(t *testing.T) {
	// fib(n) = n < 2 ? n : fib(n-1) + fib(n-2)
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeI32Const), 2,
		byte(wasm.OpcodeI32LtS),
		byte(wasm.OpcodeIf), 0x7f, // if (result i32)
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeElse),
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeI32Const), 1,
		byte(wasm.OpcodeI32Sub),
		byte(wasm.OpcodeCall), 0,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeI32Const), 2,
		byte(wasm.OpcodeI32Sub),
		byte(wasm.OpcodeCall), 0,
		byte(wasm.OpcodeI32Add),
		byte(wasm.OpcodeEnd),
	)
	b.ExportFunc("fib", 0)

	code := transpile(t, b.Build())
	// Standalone shape with a recursive self-call.
	require.Contains(t, code, "func Func0(v0 int32) (ret int32, err error)")
	require.Contains(t, code, ", err = Func0(")
	// The n < 2 base-case comparison yields 0/1 and drives the branch.
	require.Contains(t, code, "if v0 < v1 {")
}

func TestTranspile_MemoryEcho(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeI32Load8U), 0, 0,
	)
	b.SetMemory(1, binaryencoder.Uint32(1))
	b.AddDataSegment(0, []byte("Hello"))
	b.ExportFunc("load_byte", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "const MaxPages = 1")
	require.Contains(t, code, "wasmrt.NewMemory(1, MaxPages)")
	// "Hello" replayed byte by byte: H=0x48 at 0, o=0x6f at 4.
	require.Contains(t, code, "m.Memory.StoreU8(0, 0x48)")
	require.Contains(t, code, "m.Memory.StoreU8(4, 0x6f)")
	// Bounds-checked unsigned byte load behind the export.
	require.Contains(t, code, "mem.LoadU8(uint32(v0))")
	require.Contains(t, code, "func (m *Module) LoadByte(v0 int32) (int32, error)")
}

func TestTranspile_IndirectCall(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	binTy := b.AddType([]wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})
	applyTy := b.AddType([]wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32, wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})

	// Function 0: add, function 1: mul — both of the table-dispatched type.
	b.AddFunction(binTy, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeLocalGet), 1,
		byte(wasm.OpcodeI32Add),
	)
	b.AddFunction(binTy, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeLocalGet), 1,
		byte(wasm.OpcodeI32Mul),
	)
	// Function 2: apply(op, a, b) = table[op](a, b)
	b.AddFunction(applyTy, nil,
		byte(wasm.OpcodeLocalGet), 1,
		byte(wasm.OpcodeLocalGet), 2,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeCallIndirect), byte(binTy), 0,
	)
	b.SetTable(2, binaryencoder.Uint32(2))
	b.AddElementSegment(0, 0, 1)
	b.ExportFunc("apply", 2)

	code := transpile(t, b.Build())
	require.Contains(t, code, "const TableMax = 2")
	require.Contains(t, code, "wasmrt.FuncRef{TypeIndex: 0, FuncIndex: 0}")
	require.Contains(t, code, "wasmrt.FuncRef{TypeIndex: 0, FuncIndex: 1}")
	require.Contains(t, code, "if entry.TypeIndex != 0 {")
	require.Contains(t, code, "err = wasmrt.TrapIndirectCallTypeMismatch")
	require.Contains(t, code, "case 0:")
	require.Contains(t, code, "case 1:")
	require.Contains(t, code, "err = wasmrt.TrapUndefinedElement")
	require.Contains(t, code, "func (m *Module) Apply(v0 int32, v1 int32, v2 int32) (int32, error)")
}

func TestTranspile_DivisionUsesCheckedOp(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeLocalGet), 1,
		byte(wasm.OpcodeI32DivS),
	)
	b.ExportFunc("div", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "wasmrt.I32DivS(v0, v1)")
}

func TestTranspile_ConstFoldPreservesTrap(t *testing.T) {
	// Both div_s operands are literals INT_MIN and -1: the division must
	// survive optimization and still trap at runtime.
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType(nil, []wasm.ValueType{wasm.ValueTypeI32})
	body := []byte{byte(wasm.OpcodeI32Const)}
	body = append(body, leb128.EncodeInt32(math.MinInt32)...)
	body = append(body, byte(wasm.OpcodeI32Const))
	body = append(body, leb128.EncodeInt32(-1)...)
	body = append(body, byte(wasm.OpcodeI32DivS))
	b.AddFunction(ti, nil, body...)
	b.ExportFunc("trap", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "wasmrt.I32DivS(")
	require.Contains(t, code, "-2147483648")
}

func TestTranspile_HostImports(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	logTy := b.AddType([]wasm.ValueType{wasm.ValueTypeI32}, nil)
	b.AddFuncImport("env", "log", logTy)
	b.AddGlobal(wasm.ValueTypeI32, true, binaryencoder.I32Const(0))
	b.AddFunction(logTy, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeCall), 0,
	)
	b.ExportFunc("test", 1)

	code := transpile(t, b.Build())
	require.Contains(t, code, "type EnvImports interface {")
	require.Contains(t, code, "Log(arg0 int32) error")
	require.Contains(t, code, "host EnvImports")
	require.Contains(t, code, "err = host.Log(v0)")
	require.Contains(t, code, "func (m *Module) Test(v0 int32, host EnvImports) error")
}

func TestTranspile_TransitiveHostPropagation(t *testing.T) {
	// Function 1 calls the import directly; function 2 only calls function
	// 1, yet must still thread the host through.
	b := binaryencoder.NewModuleBuilder()
	voidTy := b.AddType(nil, nil)
	b.AddFuncImport("env", "tick", voidTy)
	b.AddGlobal(wasm.ValueTypeI32, true, binaryencoder.I32Const(0))
	b.AddFunction(voidTy, nil, byte(wasm.OpcodeCall), 0) // local 0: calls import
	b.AddFunction(voidTy, nil, byte(wasm.OpcodeCall), 1) // local 1: calls local 0
	b.ExportFunc("run", 2)

	code := transpile(t, b.Build())
	require.Contains(t, code, "func wasmFunc0(host EnvImports")
	require.Contains(t, code, "func wasmFunc1(host EnvImports")
	require.Contains(t, code, "err = wasmFunc0(host")
	require.Contains(t, code, "func (m *Module) Run(host EnvImports) error")
}

func TestTranspile_RejectsUnsupportedModules(t *testing.T) {
	_, err := wasmelt.Transpile([]byte("garbage"), wasmelt.Options{})
	require.Error(t, err)

	// Multi-value return type.
	b := binaryencoder.NewModuleBuilder()
	b.AddType(nil, []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32})
	_, err = wasmelt.Transpile(b.Build(), wasmelt.Options{})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "multi-value"))
}

func TestTranspile_OptionsControlOutput(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType(nil, nil)
	b.AddFunction(ti, nil, byte(wasm.OpcodeNop))

	out, err := wasmelt.Transpile(b.Build(), wasmelt.Options{PackageName: "generated"})
	require.NoError(t, err)
	require.Contains(t, string(out), "package generated")
}

func TestTranspile_MutableGlobalCounter(t *testing.T) {
	// counter() { g0 = g0 + 1; return g0 }
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType(nil, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddGlobal(wasm.ValueTypeI32, true, binaryencoder.I32Const(0))
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeGlobalGet), 0,
		byte(wasm.OpcodeI32Const), 1,
		byte(wasm.OpcodeI32Add),
		byte(wasm.OpcodeGlobalSet), 0,
		byte(wasm.OpcodeGlobalGet), 0,
	)
	b.ExportFunc("counter", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "type Globals struct {")
	require.Contains(t, code, "G0 int32")
	require.Contains(t, code, "m.Globals = Globals{G0: 0}")
	require.Contains(t, code, "globals.G0 =")
	require.Contains(t, code, "= globals.G0")
	require.Contains(t, code, "func (m *Module) Counter() (int32, error)")
}

func TestTranspile_LoopSum(t *testing.T) {
	// sum(n): iterative 1..n accumulation — exercises the backward branch
	// and the emitted state machine.
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddFunction(ti, []wasm.ValueType{wasm.ValueTypeI32}, // local 1: acc
		byte(wasm.OpcodeBlock), 0x40,
		byte(wasm.OpcodeLoop), 0x40,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeI32Eqz),
		byte(wasm.OpcodeBrIf), 1, // exit when n == 0
		byte(wasm.OpcodeLocalGet), 1,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeI32Add),
		byte(wasm.OpcodeLocalSet), 1,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeI32Const), 1,
		byte(wasm.OpcodeI32Sub),
		byte(wasm.OpcodeLocalSet), 0,
		byte(wasm.OpcodeBr), 0, // continue loop
		byte(wasm.OpcodeEnd),
		byte(wasm.OpcodeEnd),
		byte(wasm.OpcodeLocalGet), 1,
	)
	b.ExportFunc("sum", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "for {")
	require.Contains(t, code, "switch cur {")
	require.Contains(t, code, "continue")
	require.Contains(t, code, "v1 = v1 + v0")
}

func TestTranspile_BrTable(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeBlock), 0x40,
		byte(wasm.OpcodeBlock), 0x40,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeBrTable), 1, 0, 1, // targets [0], default 1
		byte(wasm.OpcodeEnd),
		byte(wasm.OpcodeI32Const), 10,
		byte(wasm.OpcodeReturn),
		byte(wasm.OpcodeEnd),
		byte(wasm.OpcodeI32Const), 20,
	)
	b.ExportFunc("route", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "switch uint32(v0) {")
	require.Contains(t, code, "case 0:")
	require.Contains(t, code, "default:")
}

func TestTranspile_MemorySizeGrow(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeMemoryGrow), 0,
		byte(wasm.OpcodeDrop),
		byte(wasm.OpcodeMemorySize), 0,
	)
	b.SetMemory(1, binaryencoder.Uint32(4))
	b.ExportFunc("grow", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "mem.Grow(v0)")
	require.Contains(t, code, "mem.Size()")
}

func TestTranspile_Select(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32, wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeLocalGet), 1,
		byte(wasm.OpcodeLocalGet), 2,
		byte(wasm.OpcodeSelect),
	)
	b.ExportFunc("pick", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "if v2 != 0 {")
	require.Contains(t, code, "v3 = v0")
	require.Contains(t, code, "v3 = v1")
}

func TestTranspile_MemoryCopy(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32, wasm.ValueTypeI32}, nil)
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeLocalGet), 1,
		byte(wasm.OpcodeLocalGet), 2,
		byte(wasm.OpcodeMiscPrefix), 0x0a, 0, 0,
	)
	b.SetMemory(1, binaryencoder.Uint32(1))
	b.ExportFunc("blit", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "mem.Copy(uint32(v0), uint32(v1), uint32(v2))")
}

func TestTranspile_ImportedGlobalAccessors(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType(nil, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddGlobalImport("env", "base", wasm.ValueTypeI32, true)
	b.AddGlobal(wasm.ValueTypeI32, true, binaryencoder.I32Const(0))
	// Global index 0 is the import; index 1 is the module's own global.
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeGlobalGet), 0,
		byte(wasm.OpcodeGlobalSet), 1,
		byte(wasm.OpcodeGlobalGet), 1,
	)
	b.ExportFunc("snap", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "GetBase() int32")
	require.Contains(t, code, "SetBase(v int32)")
	require.Contains(t, code, "= host.GetBase()")
	// The module's own global keeps index 0 within the Globals struct.
	require.Contains(t, code, "globals.G0 =")
	require.Contains(t, code, "func (m *Module) Snap(host EnvImports) (int32, error)")
}

func TestTranspile_F64Arithmetic(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeF64, wasm.ValueTypeF64}, []wasm.ValueType{wasm.ValueTypeF64})
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeLocalGet), 1,
		byte(wasm.OpcodeF64Max),
		byte(wasm.OpcodeF64Sqrt),
	)
	b.ExportFunc("hyp", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "wasmrt.F64Max(v0, v1)")
	require.Contains(t, code, "math.Sqrt(v2)")
}

func TestTranspile_TruncationUsesCheckedConversion(t *testing.T) {
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeF64}, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeI32TruncF64S),
	)
	b.ExportFunc("toInt", 0)

	code := transpile(t, b.Build())
	require.Contains(t, code, "wasmrt.I32TruncF64S(v0)")
}

func TestTranspile_LibraryModuleBorrowsMemory(t *testing.T) {
	// A module that imports its memory owns none; its exports borrow the
	// caller's memory for the duration of each call.
	b := binaryencoder.NewModuleBuilder()
	ti := b.AddType([]wasm.ValueType{wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})
	b.AddMemoryImport("env", "memory", 1, nil)
	b.AddFunction(ti, nil,
		byte(wasm.OpcodeLocalGet), 0,
		byte(wasm.OpcodeI32Load), 0, 0,
	)
	b.ExportFunc("peek", 0)

	code := transpile(t, b.Build())
	// No owned memory: no MaxPages constant, no Memory field, and the
	// export takes the caller's memory as a parameter.
	require.NotContains(t, code, "const MaxPages")
	require.NotContains(t, code, "Memory *wasmrt.Memory")
	require.Contains(t, code, "func (m *Module) Peek(v0 int32, mem *wasmrt.Memory) (int32, error)")
	require.Contains(t, code, "return wasmFunc0(v0, mem)")
	require.Contains(t, code, "mem.LoadI32(uint32(v0))")
}
