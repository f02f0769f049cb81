package optimizer

import (
	"fmt"

	"github.com/wasmelt/wasmelt/internal/ir"
)

// Run applies the full pass pipeline to one function, in place.
//
// The order matters; later passes depend on the shape earlier ones leave
// behind. Individual passes iterate internally to fixpoint, but the pipeline
// itself is single-pass, so a second run over its output can still change
// the IR: a dead passthrough block that is only swept by deadBlocks can hide
// a merge from mergeBlocks until the next run. Once a run leaves the IR
// unchanged, further runs leave it unchanged too.
func Run(fn *ir.Function) error {
	constProp(fn)
	copyProp(fn)
	localCSE(fn)
	// CSE introduces Assigns; another copy-propagation round folds them
	// back in before dead-code removal.
	copyProp(fn)
	deadInstrs(fn)
	emptyBlocks(fn)
	mergeBlocks(fn)
	if err := deadBlocks(fn); err != nil {
		return err
	}
	pruneDeadLocals(fn)
	return nil
}

// RunModule optimizes every function of the module.
func RunModule(info *ir.ModuleInfo) error {
	for i, fn := range info.Functions {
		if err := Run(fn); err != nil {
			return fmt.Errorf("optimizing function %d: %w", i, err)
		}
	}
	return nil
}
