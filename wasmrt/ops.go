package wasmrt

import "math"

// Checked numeric operations called by generated code. Each returns the
// Wasm-specified result or the Wasm-specified trap; none of them panic.

// I32DivS implements i32.div_s: traps on divisor zero and on
// math.MinInt32 / -1 (the quotient is unrepresentable).
func I32DivS(lhs, rhs int32) (int32, error) {
	if rhs == 0 {
		return 0, TrapDivisionByZero
	}
	if lhs == math.MinInt32 && rhs == -1 {
		return 0, TrapDivisionByZero
	}
	return lhs / rhs, nil
}

// I32DivU implements i32.div_u.
func I32DivU(lhs, rhs int32) (int32, error) {
	if rhs == 0 {
		return 0, TrapDivisionByZero
	}
	return int32(uint32(lhs) / uint32(rhs)), nil
}

// I32RemS implements i32.rem_s. math.MinInt32 rem -1 is 0, not a trap.
func I32RemS(lhs, rhs int32) (int32, error) {
	if rhs == 0 {
		return 0, TrapDivisionByZero
	}
	if lhs == math.MinInt32 && rhs == -1 {
		return 0, nil
	}
	return lhs % rhs, nil
}

// I32RemU implements i32.rem_u.
func I32RemU(lhs, rhs int32) (int32, error) {
	if rhs == 0 {
		return 0, TrapDivisionByZero
	}
	return int32(uint32(lhs) % uint32(rhs)), nil
}

// I64DivS implements i64.div_s: traps on divisor zero and on
// math.MinInt64 / -1.
func I64DivS(lhs, rhs int64) (int64, error) {
	if rhs == 0 {
		return 0, TrapDivisionByZero
	}
	if lhs == math.MinInt64 && rhs == -1 {
		return 0, TrapDivisionByZero
	}
	return lhs / rhs, nil
}

// I64DivU implements i64.div_u.
func I64DivU(lhs, rhs int64) (int64, error) {
	if rhs == 0 {
		return 0, TrapDivisionByZero
	}
	return int64(uint64(lhs) / uint64(rhs)), nil
}

// I64RemS implements i64.rem_s. math.MinInt64 rem -1 is 0, not a trap.
func I64RemS(lhs, rhs int64) (int64, error) {
	if rhs == 0 {
		return 0, TrapDivisionByZero
	}
	if lhs == math.MinInt64 && rhs == -1 {
		return 0, nil
	}
	return lhs % rhs, nil
}

// I64RemU implements i64.rem_u.
func I64RemU(lhs, rhs int64) (int64, error) {
	if rhs == 0 {
		return 0, TrapDivisionByZero
	}
	return int64(uint64(lhs) % uint64(rhs)), nil
}

// I32TruncF32S implements i32.trunc_f32_s: traps on NaN and out of range.
func I32TruncF32S(v float32) (int32, error) {
	if v != v || v >= 2147483648.0 || v < -2147483648.0 {
		return 0, TrapIntegerOverflow
	}
	return int32(v), nil
}

// I32TruncF32U implements i32.trunc_f32_u.
func I32TruncF32U(v float32) (int32, error) {
	if v != v || v >= 4294967296.0 || v <= -1.0 {
		return 0, TrapIntegerOverflow
	}
	return int32(uint32(v)), nil
}

// I32TruncF64S implements i32.trunc_f64_s.
func I32TruncF64S(v float64) (int32, error) {
	if v != v || v >= 2147483648.0 || v < -2147483648.0 {
		return 0, TrapIntegerOverflow
	}
	return int32(v), nil
}

// I32TruncF64U implements i32.trunc_f64_u.
func I32TruncF64U(v float64) (int32, error) {
	if v != v || v >= 4294967296.0 || v <= -1.0 {
		return 0, TrapIntegerOverflow
	}
	return int32(uint32(v)), nil
}

// I64TruncF32S implements i64.trunc_f32_s.
func I64TruncF32S(v float32) (int64, error) {
	if v != v || v >= 9223372036854775808.0 || v < -9223372036854775808.0 {
		return 0, TrapIntegerOverflow
	}
	return int64(v), nil
}

// I64TruncF32U implements i64.trunc_f32_u.
func I64TruncF32U(v float32) (int64, error) {
	if v != v || v >= 18446744073709551616.0 || v <= -1.0 {
		return 0, TrapIntegerOverflow
	}
	return int64(uint64(v)), nil
}

// I64TruncF64S implements i64.trunc_f64_s.
func I64TruncF64S(v float64) (int64, error) {
	if v != v || v >= 9223372036854775808.0 || v < -9223372036854775808.0 {
		return 0, TrapIntegerOverflow
	}
	return int64(v), nil
}

// I64TruncF64U implements i64.trunc_f64_u.
func I64TruncF64U(v float64) (int64, error) {
	if v != v || v >= 18446744073709551616.0 || v <= -1.0 {
		return 0, TrapIntegerOverflow
	}
	return int64(uint64(v)), nil
}
