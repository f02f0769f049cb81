package wasmrt

import (
	"github.com/wasmelt/wasmelt/internal/moremath"
)

// Wasm-compatible float operations whose Go standard-library counterparts
// disagree with the spec on NaN handling or tie rounding. Generated code
// calls these directly.

// F32Min implements f32.min.
func F32Min(x, y float32) float32 {
	return float32(moremath.WasmCompatMin(float64(x), float64(y)))
}

// F32Max implements f32.max.
func F32Max(x, y float32) float32 {
	return float32(moremath.WasmCompatMax(float64(x), float64(y)))
}

// F64Min implements f64.min.
func F64Min(x, y float64) float64 {
	return moremath.WasmCompatMin(x, y)
}

// F64Max implements f64.max.
func F64Max(x, y float64) float64 {
	return moremath.WasmCompatMax(x, y)
}

// F32Nearest implements f32.nearest (round to nearest, ties to even).
func F32Nearest(f float32) float32 {
	return moremath.WasmCompatNearestF32(f)
}

// F64Nearest implements f64.nearest (round to nearest, ties to even).
func F64Nearest(f float64) float64 {
	return moremath.WasmCompatNearestF64(f)
}
