package codegen

import (
	"strconv"
	"strings"
	"unicode"
)

// goExportedName converts a Wasm identifier (an export name, import field
// name, or import module name) to an exported Go identifier:
// "load_byte" → "LoadByte", "wasi_snapshot_preview1" → "WasiSnapshotPreview1".
// A leading digit gets an underscore-free "X" prefix so the result stays a
// valid identifier.
func goExportedName(name string) string {
	var out strings.Builder
	upperNext := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upperNext = true
			continue
		}
		if upperNext {
			out.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			out.WriteRune(r)
		}
	}
	s := out.String()
	if s == "" {
		return "X"
	}
	if unicode.IsDigit(rune(s[0])) {
		return "X" + s
	}
	return s
}

// importInterfaceName derives the host interface name for an import module:
// "env" → "EnvImports".
func importInterfaceName(moduleName string) string {
	return goExportedName(moduleName) + "Imports"
}

// internalFuncName names the per-function internal Go function.
func internalFuncName(idx int, exported bool) string {
	if exported {
		return "Func" + strconv.Itoa(idx)
	}
	return "wasmFunc" + strconv.Itoa(idx)
}
