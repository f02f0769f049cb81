// Package wasmelt transpiles WebAssembly MVP binaries into stand-alone Go
// source. The emitted file, compiled together with the wasmrt runtime
// package and any host interface implementations, executes the module's
// semantics without an interpreter or engine, preserving every trap the Wasm
// specification mandates.
package wasmelt

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/wasmelt/wasmelt/internal/codegen"
	"github.com/wasmelt/wasmelt/internal/ir"
	"github.com/wasmelt/wasmelt/internal/optimizer"
	"github.com/wasmelt/wasmelt/internal/wasm"
)

// DefaultMaxPages bounds memory growth for modules that declare no maximum.
const DefaultMaxPages = 256

// Options configures a transpilation run.
type Options struct {
	// PackageName is the package clause of the generated file. Empty means
	// "wasmmodule".
	PackageName string
	// MaxPages bounds memory growth when the module declares no maximum.
	// Zero means DefaultMaxPages.
	MaxPages uint32
	// RuntimeImportPath overrides the import path of the runtime package in
	// the generated file. Empty means the wasmrt package of this module.
	RuntimeImportPath string
	// Logger receives per-stage progress at debug level. Nil disables
	// logging.
	Logger logrus.FieldLogger
}

func (o *Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Transpile runs the full pipeline on a Wasm binary and returns the
// generated Go source. Any error — parse, IR construction, optimization, or
// code generation — fails the whole run; there is no partial output.
func Transpile(binary []byte, opts Options) ([]byte, error) {
	log := opts.logger()
	maxPages := opts.MaxPages
	if maxPages == 0 {
		maxPages = DefaultMaxPages
	}

	module, err := wasm.DecodeModule(binary)
	if err != nil {
		return nil, fmt.Errorf("parsing module: %w", err)
	}
	log.WithFields(logrus.Fields{
		"functions": len(module.Functions),
		"types":     len(module.Types),
		"imports":   len(module.Imports),
	}).Debug("parsed module")

	info, err := ir.BuildModuleInfo(module, ir.Options{MaxPages: maxPages})
	if err != nil {
		return nil, fmt.Errorf("building IR: %w", err)
	}
	log.WithField("functions", len(info.Functions)).Debug("built IR")

	if err := optimizer.RunModule(info); err != nil {
		return nil, fmt.Errorf("optimizing: %w", err)
	}
	log.Debug("optimized IR")

	gen := codegen.NewGenerator()
	if opts.PackageName != "" {
		gen.PackageName = opts.PackageName
	}
	if opts.RuntimeImportPath != "" {
		gen.RuntimeImportPath = opts.RuntimeImportPath
	}
	out, err := gen.GenerateModule(info)
	if err != nil {
		return nil, fmt.Errorf("generating code: %w", err)
	}
	log.WithField("bytes", len(out)).Debug("generated source")
	return out, nil
}
