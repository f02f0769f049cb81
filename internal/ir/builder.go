package ir

import (
	"fmt"
)

// controlKind tags a control frame with the structure that created it.
type controlKind byte

const (
	controlBlock controlKind = iota // forward branches only
	controlLoop                     // backward branch to start
	controlIf                       // conditional with possible else
	controlElse                     // else branch of if
)

// controlFrame is one element of the control stack, describing an active
// block/loop/if/else during translation.
type controlFrame struct {
	kind controlKind
	// startBlock is the loop header for loops; branches to a loop go here.
	startBlock BlockId
	// endBlock is the join point; forward branches go here.
	endBlock BlockId
	// elseBlock is pre-allocated for if frames, activated on else or end.
	elseBlock BlockId
	hasElse   bool
	// resultType/resultVar carry the structure's result, when it has one.
	resultType Type
	resultVar  VarId
}

// funcSig is the (parameter count, return type) summary the translator needs
// to resolve calls.
type funcSig struct {
	paramCount int
	ret        Type
}

// moduleContext is the read-only module information shared by every function
// translation: callee signatures, type-section signatures, and imports.
type moduleContext struct {
	// funcSignatures spans the full function index space, imports first.
	funcSignatures []funcSig
	// typeSignatures is indexed by raw type index.
	typeSignatures []funcSig
	numImportedFunctions int
	// funcImports holds (module, name) per imported function.
	funcImports [][2]string
	// canonicalType maps raw type indices to canonical ones.
	canonicalType []uint32
}

// builder lowers one Wasm function body at a time into IR. It simulates the
// Wasm evaluation stack with variables and keeps a control stack of active
// structured-control frames.
type builder struct {
	blocks       []*Block
	currentBlock BlockId
	nextVarId    uint32
	nextBlockId  uint32

	valueStack   []VarId
	controlStack []controlFrame

	// localVars maps Wasm local index to the long-lived variable modeling
	// that local. Indices below the parameter count are parameters.
	localVars []VarId

	ctx *moduleContext

	// body/pc drive the operator stream.
	body []byte
	pc   uint64
}

// newVar allocates the next SSA variable.
func (b *builder) newVar() VarId {
	id := VarId(b.nextVarId)
	b.nextVarId++
	return id
}

// newBlock allocates the next block ID without switching to it.
func (b *builder) newBlock() BlockId {
	id := BlockId(b.nextBlockId)
	b.nextBlockId++
	return id
}

// emit appends an instruction to the current block.
func (b *builder) emit(instr *Instr) {
	blk := b.findBlock(b.currentBlock)
	if blk == nil {
		panic(fmt.Sprintf("BUG: emitting into block %s before start", b.currentBlock))
	}
	blk.Instrs = append(blk.Instrs, instr)
}

// terminate sets the current block's terminator.
func (b *builder) terminate(term Terminator) {
	if blk := b.findBlock(b.currentBlock); blk != nil {
		blk.Term = term
	}
}

func (b *builder) findBlock(id BlockId) *Block {
	for _, blk := range b.blocks {
		if blk.ID == id {
			return blk
		}
	}
	return nil
}

// startBlock creates the block and makes it current. Its terminator defaults
// to Unreachable until set.
func (b *builder) startBlock(id BlockId) {
	b.currentBlock = id
	b.blocks = append(b.blocks, &Block{ID: id, Term: Terminator{Kind: TermUnreachable}})
}

// pushControl pushes a control frame, allocating a result variable when the
// frame has a result type.
func (b *builder) pushControl(kind controlKind, start, end BlockId, elseBlock BlockId, hasElse bool, resultType Type) {
	resultVar := VarIdInvalid
	if resultType != TypeNone {
		resultVar = b.newVar()
	}
	b.controlStack = append(b.controlStack, controlFrame{
		kind:       kind,
		startBlock: start,
		endBlock:   end,
		elseBlock:  elseBlock,
		hasElse:    hasElse,
		resultType: resultType,
		resultVar:  resultVar,
	})
}

// popControl pops the innermost control frame.
func (b *builder) popControl() (controlFrame, error) {
	if len(b.controlStack) == 0 {
		return controlFrame{}, fmt.Errorf("control stack underflow")
	}
	frame := b.controlStack[len(b.controlStack)-1]
	b.controlStack = b.controlStack[:len(b.controlStack)-1]
	return frame, nil
}

// branchTarget resolves a relative branch depth: depth 0 is the innermost
// frame. Loops branch back to their start block; every other frame kind
// branches forward to its end block.
func (b *builder) branchTarget(depth uint32) (BlockId, error) {
	idx := len(b.controlStack) - 1 - int(depth)
	if idx < 0 {
		return 0, fmt.Errorf("branch depth %d exceeds control stack depth %d", depth, len(b.controlStack))
	}
	frame := &b.controlStack[idx]
	if frame.kind == controlLoop {
		return frame.startBlock, nil
	}
	return frame.endBlock, nil
}

// popValue pops the top of the simulated value stack.
func (b *builder) popValue(context string) (VarId, error) {
	if len(b.valueStack) == 0 {
		return 0, fmt.Errorf("stack underflow for %s", context)
	}
	v := b.valueStack[len(b.valueStack)-1]
	b.valueStack = b.valueStack[:len(b.valueStack)-1]
	return v, nil
}

// pushValue pushes onto the simulated value stack.
func (b *builder) pushValue(v VarId) {
	b.valueStack = append(b.valueStack, v)
}

// popCallArgs pops paramCount values and returns them in call order (first
// argument first; the stack holds them in reverse).
func (b *builder) popCallArgs(paramCount int, context string) ([]VarId, error) {
	if len(b.valueStack) < paramCount {
		return nil, fmt.Errorf("stack underflow for %s", context)
	}
	args := make([]VarId, paramCount)
	for i := paramCount - 1; i >= 0; i-- {
		v, err := b.popValue(context)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// translateFunction lowers one function body into IR.
//
// INVARIANT: the entry block is the first block created, so it is always
// BlockId(0). Wasm functions start at their first instruction, and every
// consumer relies on entry == 0.
func (b *builder) translateFunction(params []Type, locals []Type, returnType Type, body []byte, ctx *moduleContext) (*Function, error) {
	// Reset per-function state so each function starts fresh.
	b.blocks = nil
	b.valueStack = b.valueStack[:0]
	b.controlStack = b.controlStack[:0]
	b.nextVarId = 0
	b.nextBlockId = 0
	b.localVars = b.localVars[:0]
	b.ctx = ctx
	b.body = body
	b.pc = 0

	// Allocate variables for all locals, parameters first, so a Wasm local
	// index maps directly to its variable.
	paramVars := make([]TypedVar, len(params))
	for i, ty := range params {
		v := b.newVar()
		b.localVars = append(b.localVars, v)
		paramVars[i] = TypedVar{Var: v, Typ: ty}
	}
	localVars := make([]TypedVar, len(locals))
	for i, ty := range locals {
		v := b.newVar()
		b.localVars = append(b.localVars, v)
		localVars[i] = TypedVar{Var: v, Typ: ty}
	}

	// First call to newBlock, so entry == BlockId(0).
	entry := b.newBlock()
	b.startBlock(entry)

	// Function-level control frame; its end handler emits the terminal
	// Return.
	b.pushControl(controlBlock, entry, entry, 0, false, returnType)

	for b.pc < uint64(len(b.body)) {
		opPC := b.pc
		if err := b.translateOperator(); err != nil {
			return nil, fmt.Errorf("at body offset %d: %w", opPC, err)
		}
	}

	return &Function{
		Params:     paramVars,
		Locals:     localVars,
		Blocks:     b.blocks,
		EntryBlock: entry,
		ReturnType: returnType,
	}, nil
}

// emitReturn pops the top of stack (when present) and terminates the current
// block with a Return.
func (b *builder) emitReturn() {
	value := VarIdInvalid
	if len(b.valueStack) > 0 {
		value = b.valueStack[len(b.valueStack)-1]
		b.valueStack = b.valueStack[:len(b.valueStack)-1]
	}
	b.terminate(Terminator{Kind: TermReturn, Val: value})
}
