package moremath

import "math"

// math.Min doesn't comply with the Wasm spec, so we borrow from the original
// with a change that either one of NaN results in NaN even if another is -Inf.
// https://github.com/golang/go/blob/1d20a362d0ca4898d77865e314ef6f73582daef0/src/math/dim.go#L74-L91
func WasmCompatMin(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, -1) || math.IsInf(y, -1):
		return math.Inf(-1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return x
		}
		return y
	}
	if x < y {
		return x
	}
	return y
}

// math.Max doesn't comply with the Wasm spec, so we borrow from the original
// with a change that either one of NaN results in NaN even if another is Inf.
// https://github.com/golang/go/blob/1d20a362d0ca4898d77865e314ef6f73582daef0/src/math/dim.go#L42-L59
func WasmCompatMax(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, 1) || math.IsInf(y, 1):
		return math.Inf(1)

	case x == 0 && x == y:
		if math.Signbit(x) {
			return y
		}
		return x
	}
	if x > y {
		return x
	}
	return y
}

// WasmCompatNearestF32 implements the Wasm f32.nearest operation: round to
// the nearest integral value, with ties resolved to the even integer.
// math.Round doesn't comply (it rounds ties away from zero).
func WasmCompatNearestF32(f float32) float32 {
	return float32(WasmCompatNearestF64(float64(f)))
}

// WasmCompatNearestF64 implements the Wasm f64.nearest operation: round to
// the nearest integral value, with ties resolved to the even integer.
func WasmCompatNearestF64(f float64) float64 {
	// NaN, infinities and zeros (both signs) round to themselves.
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	ceil := math.Ceil(f)
	floor := math.Floor(f)
	distToCeil := math.Abs(f - ceil)
	distToFloor := math.Abs(f - floor)
	if distToCeil < distToFloor {
		return ceil
	} else if distToCeil > distToFloor {
		return floor
	}
	// Exactly halfway: pick the even neighbor.
	if math.Mod(ceil, 2.0) == 0 {
		return ceil
	}
	return floor
}
