package wasmrt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_LoadStoreBounds(t *testing.T) {
	m, err := NewMemory(1, 2)
	require.NoError(t, err)
	require.Equal(t, int32(1), m.Size())

	require.NoError(t, m.StoreI32(0, 0x01020304))
	v, err := m.LoadI32(0)
	require.NoError(t, err)
	require.Equal(t, int32(0x01020304), v)

	// Little-endian layout.
	b, err := m.LoadU8(0)
	require.NoError(t, err)
	require.Equal(t, uint8(0x04), b)

	// Last valid 4-byte access.
	require.NoError(t, m.StoreI32(PageSize-4, -1))

	// One past the active size.
	_, err = m.LoadU8(PageSize)
	require.ErrorIs(t, err, TrapOutOfBounds)
	require.ErrorIs(t, m.StoreI32(PageSize-3, 0), TrapOutOfBounds)

	// A huge address must not wrap the bounds check.
	_, err = m.LoadI64(math.MaxUint32)
	require.ErrorIs(t, err, TrapOutOfBounds)
}

func TestMemory_Grow(t *testing.T) {
	m, err := NewMemory(1, 3)
	require.NoError(t, err)

	require.Equal(t, int32(1), m.Grow(1))
	require.Equal(t, int32(2), m.Size())

	// Growing past the maximum fails with -1 and leaves the size unchanged.
	require.Equal(t, int32(-1), m.Grow(2))
	require.Equal(t, int32(2), m.Size())

	require.Equal(t, int32(2), m.Grow(0))

	// Previously out-of-bounds addresses become valid after growth.
	require.NoError(t, m.StoreU8(PageSize, 0xab))
}

func TestMemory_InitialExceedsMax(t *testing.T) {
	_, err := NewMemory(3, 2)
	require.Error(t, err)
}

func TestMemory_Copy(t *testing.T) {
	m, err := NewMemory(1, 1)
	require.NoError(t, err)
	for i := uint32(0); i < 8; i++ {
		require.NoError(t, m.StoreU8(i, uint8(i)))
	}

	// Overlapping forward copy keeps memmove semantics.
	require.NoError(t, m.Copy(2, 0, 6))
	got := make([]byte, 8)
	copy(got, m.Bytes()[:8])
	require.Equal(t, []byte{0, 1, 0, 1, 2, 3, 4, 5}, got)

	require.ErrorIs(t, m.Copy(PageSize-2, 0, 4), TrapOutOfBounds)
	require.ErrorIs(t, m.Copy(0, PageSize-2, 4), TrapOutOfBounds)
}

func TestTable(t *testing.T) {
	tbl, err := NewTable(2, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(2), tbl.Size())

	_, err = tbl.Get(0)
	require.ErrorIs(t, err, TrapUndefinedElement)
	_, err = tbl.Get(2)
	require.ErrorIs(t, err, TrapTableOutOfBounds)

	require.NoError(t, tbl.Set(1, &FuncRef{TypeIndex: 3, FuncIndex: 7}))
	ref, err := tbl.Get(1)
	require.NoError(t, err)
	require.Equal(t, FuncRef{TypeIndex: 3, FuncIndex: 7}, ref)

	require.Equal(t, int32(2), tbl.Grow(2, nil))
	require.Equal(t, int32(-1), tbl.Grow(1, nil))

	require.NoError(t, tbl.InitElements(2, []FuncRef{{0, 0}, {0, 1}}))
	ref, err = tbl.Get(3)
	require.NoError(t, err)
	require.Equal(t, FuncRef{TypeIndex: 0, FuncIndex: 1}, ref)

	require.ErrorIs(t, tbl.InitElements(3, []FuncRef{{0, 0}, {0, 1}}), TrapTableOutOfBounds)
}

func TestCheckedDivRem(t *testing.T) {
	_, err := I32DivS(10, 0)
	require.ErrorIs(t, err, TrapDivisionByZero)
	_, err = I32DivS(math.MinInt32, -1)
	require.ErrorIs(t, err, TrapDivisionByZero)

	v, err := I32DivS(-7, 2)
	require.NoError(t, err)
	require.Equal(t, int32(-3), v) // truncated division

	v, err = I32DivU(-1, 2)
	require.NoError(t, err)
	require.Equal(t, int32(0x7fffffff), v)

	// Signed-minimum rem -1 is 0, not a trap.
	v, err = I32RemS(math.MinInt32, -1)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)

	_, err = I32RemU(1, 0)
	require.ErrorIs(t, err, TrapDivisionByZero)

	v64, err := I64DivS(math.MinInt64, -1)
	require.ErrorIs(t, err, TrapDivisionByZero)
	require.Equal(t, int64(0), v64)

	v64, err = I64RemS(math.MinInt64, -1)
	require.NoError(t, err)
	require.Equal(t, int64(0), v64)
}

func TestCheckedTrunc(t *testing.T) {
	v, err := I32TruncF64S(3.9)
	require.NoError(t, err)
	require.Equal(t, int32(3), v)

	v, err = I32TruncF64S(-3.9)
	require.NoError(t, err)
	require.Equal(t, int32(-3), v)

	_, err = I32TruncF64S(math.NaN())
	require.ErrorIs(t, err, TrapIntegerOverflow)
	_, err = I32TruncF64S(2147483648.0)
	require.ErrorIs(t, err, TrapIntegerOverflow)
	_, err = I32TruncF64S(math.Inf(-1))
	require.ErrorIs(t, err, TrapIntegerOverflow)

	// -0.9 truncates to 0 for the unsigned conversions.
	v, err = I32TruncF64U(-0.9)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)
	_, err = I32TruncF64U(-1.0)
	require.ErrorIs(t, err, TrapIntegerOverflow)

	v64, err := I64TruncF64S(-9223372036854775808.0)
	require.NoError(t, err)
	require.Equal(t, int64(math.MinInt64), v64)
	_, err = I64TruncF64S(9223372036854775808.0)
	require.ErrorIs(t, err, TrapIntegerOverflow)

	v64, err = I64TruncF64U(18446744073709549568.0)
	require.NoError(t, err)
	require.Equal(t, int64(-2048), v64)
	_, err = I64TruncF64U(18446744073709551616.0)
	require.ErrorIs(t, err, TrapIntegerOverflow)
}
