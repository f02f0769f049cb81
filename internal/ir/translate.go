package ir

import (
	"fmt"
	"io"

	"github.com/wasmelt/wasmelt/internal/leb128"
	"github.com/wasmelt/wasmelt/internal/wasm"
)

// Byte-stream helpers over the function body. The builder walks the raw
// expression bytes directly rather than materializing an operator list.

func (b *builder) readByte() (byte, error) {
	if b.pc >= uint64(len(b.body)) {
		return 0, io.ErrUnexpectedEOF
	}
	v := b.body[b.pc]
	b.pc++
	return v, nil
}

func (b *builder) readUint32() (uint32, error) {
	v, n, err := leb128.LoadUint32(b.body[b.pc:])
	if err != nil {
		return 0, err
	}
	b.pc += n
	return v, nil
}

func (b *builder) readInt32() (int32, error) {
	v, n, err := leb128.LoadInt32(b.body[b.pc:])
	if err != nil {
		return 0, err
	}
	b.pc += n
	return v, nil
}

func (b *builder) readInt64() (int64, error) {
	v, n, err := leb128.LoadInt64(b.body[b.pc:])
	if err != nil {
		return 0, err
	}
	b.pc += n
	return v, nil
}

func (b *builder) readF32Bits() (uint32, error) {
	if b.pc+4 > uint64(len(b.body)) {
		return 0, io.ErrUnexpectedEOF
	}
	p := b.body[b.pc:]
	b.pc += 4
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24, nil
}

func (b *builder) readF64Bits() (uint64, error) {
	if b.pc+8 > uint64(len(b.body)) {
		return 0, io.ErrUnexpectedEOF
	}
	var bits uint64
	for i := 0; i < 8; i++ {
		bits |= uint64(b.body[b.pc+uint64(i)]) << (8 * i)
	}
	b.pc += 8
	return bits, nil
}

// readBlockType parses a structured-control block type. Wasm MVP allows the
// empty tag or a single value type; a type-section reference means
// multi-value, which is unsupported.
func (b *builder) readBlockType() (Type, error) {
	raw, n, err := leb128.LoadInt33AsInt64(b.body[b.pc:])
	if err != nil {
		return TypeNone, err
	}
	b.pc += n
	switch raw {
	case -64: // 0x40: empty
		return TypeNone, nil
	case -1: // 0x7f
		return TypeI32, nil
	case -2: // 0x7e
		return TypeI64, nil
	case -3: // 0x7d
		return TypeF32, nil
	case -4: // 0x7c
		return TypeF64, nil
	default:
		if raw >= 0 {
			return TypeNone, fmt.Errorf("multi-value blocks not supported (block type index %d)", raw)
		}
		return TypeNone, fmt.Errorf("invalid block type %d", raw)
	}
}

// readMemArg parses the alignment hint (unused) and the address offset.
func (b *builder) readMemArg() (offset uint32, err error) {
	if _, err = b.readUint32(); err != nil { // alignment
		return 0, err
	}
	return b.readUint32()
}

// translateOperator lowers the operator at the current position.
func (b *builder) translateOperator() error {
	op, err := b.readByte()
	if err != nil {
		return err
	}
	opcode := wasm.Opcode(op)
	switch opcode {
	// Constants push a fresh Const.
	case wasm.OpcodeI32Const:
		v, err := b.readInt32()
		if err != nil {
			return err
		}
		b.emitConst(I32Value(v))
	case wasm.OpcodeI64Const:
		v, err := b.readInt64()
		if err != nil {
			return err
		}
		b.emitConst(I64Value(v))
	case wasm.OpcodeF32Const:
		bits, err := b.readF32Bits()
		if err != nil {
			return err
		}
		b.emitConst(Value{Typ: TypeF32, Bits: uint64(bits)})
	case wasm.OpcodeF64Const:
		bits, err := b.readF64Bits()
		if err != nil {
			return err
		}
		b.emitConst(Value{Typ: TypeF64, Bits: bits})

	// Local access. local.get pushes the local's variable with no new
	// instruction; set/tee lower to Assign into the long-lived variable.
	case wasm.OpcodeLocalGet:
		idx, err := b.readUint32()
		if err != nil {
			return err
		}
		if int(idx) >= len(b.localVars) {
			return fmt.Errorf("local.get: local index %d out of range", idx)
		}
		b.pushValue(b.localVars[idx])
	case wasm.OpcodeLocalSet:
		idx, err := b.readUint32()
		if err != nil {
			return err
		}
		value, err := b.popValue("local.set")
		if err != nil {
			return err
		}
		if int(idx) >= len(b.localVars) {
			return fmt.Errorf("local.set: local index %d out of range", idx)
		}
		b.emit(NewAssign(b.localVars[idx], value))
	case wasm.OpcodeLocalTee:
		idx, err := b.readUint32()
		if err != nil {
			return err
		}
		if len(b.valueStack) == 0 {
			return fmt.Errorf("stack underflow for local.tee")
		}
		if int(idx) >= len(b.localVars) {
			return fmt.Errorf("local.tee: local index %d out of range", idx)
		}
		// The value stays on the stack.
		b.emit(NewAssign(b.localVars[idx], b.valueStack[len(b.valueStack)-1]))

	// Global access.
	case wasm.OpcodeGlobalGet:
		idx, err := b.readUint32()
		if err != nil {
			return err
		}
		dest := b.newVar()
		b.emit(&Instr{Kind: InstrGlobalGet, Dest: dest, Global: GlobalIdx(idx)})
		b.pushValue(dest)
	case wasm.OpcodeGlobalSet:
		idx, err := b.readUint32()
		if err != nil {
			return err
		}
		value, err := b.popValue("global.set")
		if err != nil {
			return err
		}
		b.emit(&Instr{Kind: InstrGlobalSet, Global: GlobalIdx(idx), X: value, Dest: VarIdInvalid})

	// Control flow.
	case wasm.OpcodeBlock:
		resultType, err := b.readBlockType()
		if err != nil {
			return err
		}
		// A block needs no block switch: execution continues sequentially
		// in the current block. Only the forward-branch join is allocated.
		endBlock := b.newBlock()
		b.pushControl(controlBlock, b.currentBlock, endBlock, 0, false, resultType)

	case wasm.OpcodeLoop:
		resultType, err := b.readBlockType()
		if err != nil {
			return err
		}
		// Unlike a block, a loop's branch target is backward: its header.
		loopHeader := b.newBlock()
		endBlock := b.newBlock()
		b.terminate(Terminator{Kind: TermJump, Target: loopHeader})
		b.startBlock(loopHeader)
		b.pushControl(controlLoop, loopHeader, endBlock, 0, false, resultType)

	case wasm.OpcodeIf:
		resultType, err := b.readBlockType()
		if err != nil {
			return err
		}
		condition, err := b.popValue("if condition")
		if err != nil {
			return err
		}
		// All three blocks are allocated up front; the else block is
		// activated by else or by the phantom-else path at end.
		thenBlock := b.newBlock()
		elseBlock := b.newBlock()
		endBlock := b.newBlock()
		b.terminate(Terminator{Kind: TermBranchIf, Val: condition, IfTrue: thenBlock, IfFalse: elseBlock})
		b.startBlock(thenBlock)
		b.pushControl(controlIf, thenBlock, endBlock, elseBlock, true, resultType)

	case wasm.OpcodeElse:
		frame, err := b.popControl()
		if err != nil {
			return fmt.Errorf("else without matching if: %w", err)
		}
		if frame.kind != controlIf {
			return fmt.Errorf("else without matching if")
		}
		// Close the then branch: capture its result and jump to the join.
		if frame.resultVar.Valid() {
			value, err := b.popValue("then result in else")
			if err != nil {
				return err
			}
			b.emit(NewAssign(frame.resultVar, value))
		}
		b.terminate(Terminator{Kind: TermJump, Target: frame.endBlock})
		b.startBlock(frame.elseBlock)
		// Replace with an else frame sharing the join and result variable.
		b.controlStack = append(b.controlStack, controlFrame{
			kind:       controlElse,
			startBlock: frame.elseBlock,
			endBlock:   frame.endBlock,
			resultType: frame.resultType,
			resultVar:  frame.resultVar,
		})

	case wasm.OpcodeEnd:
		if len(b.controlStack) <= 1 {
			// End of the function body: implicit return.
			b.emitReturn()
			return nil
		}
		frame, err := b.popControl()
		if err != nil {
			return err
		}
		if frame.kind == controlIf {
			// An if without else still has two CFG arms: synthesize the
			// phantom else block that just jumps to the join.
			if !frame.hasElse {
				return fmt.Errorf("if frame missing else block")
			}
			// Close the then branch; an empty stack means it ended with a
			// branch or return, which makes the result assignment dead.
			if frame.resultVar.Valid() {
				if len(b.valueStack) > 0 {
					value := b.valueStack[len(b.valueStack)-1]
					b.valueStack = b.valueStack[:len(b.valueStack)-1]
					b.emit(NewAssign(frame.resultVar, value))
				}
			}
			b.terminate(Terminator{Kind: TermJump, Target: frame.endBlock})
			b.startBlock(frame.elseBlock)
			b.terminate(Terminator{Kind: TermJump, Target: frame.endBlock})
			b.startBlock(frame.endBlock)
		} else {
			// Block, loop, or else: capture the fall-through result (the
			// stack may legitimately be empty after a branch or return;
			// that is valid dead code, not an error) and jump to the join.
			if frame.resultVar.Valid() {
				if len(b.valueStack) > 0 {
					value := b.valueStack[len(b.valueStack)-1]
					b.valueStack = b.valueStack[:len(b.valueStack)-1]
					b.emit(NewAssign(frame.resultVar, value))
				}
			}
			b.terminate(Terminator{Kind: TermJump, Target: frame.endBlock})
			b.startBlock(frame.endBlock)
		}
		if frame.resultVar.Valid() {
			b.pushValue(frame.resultVar)
		}

	case wasm.OpcodeBr:
		depth, err := b.readUint32()
		if err != nil {
			return err
		}
		target, err := b.branchTarget(depth)
		if err != nil {
			return err
		}
		b.terminate(Terminator{Kind: TermJump, Target: target})
		// Subsequent operators up to the enclosing end are dead but must
		// still parse; give them a fresh unreachable continuation block.
		b.startBlock(b.newBlock())

	case wasm.OpcodeBrIf:
		depth, err := b.readUint32()
		if err != nil {
			return err
		}
		condition, err := b.popValue("br_if")
		if err != nil {
			return err
		}
		target, err := b.branchTarget(depth)
		if err != nil {
			return err
		}
		continueBlock := b.newBlock()
		b.terminate(Terminator{Kind: TermBranchIf, Val: condition, IfTrue: target, IfFalse: continueBlock})
		b.startBlock(continueBlock)

	case wasm.OpcodeBrTable:
		index, err := b.popValue("br_table")
		if err != nil {
			return err
		}
		n, err := b.readUint32()
		if err != nil {
			return err
		}
		targets := make([]BlockId, n)
		for i := range targets {
			depth, err := b.readUint32()
			if err != nil {
				return err
			}
			if targets[i], err = b.branchTarget(depth); err != nil {
				return err
			}
		}
		defaultDepth, err := b.readUint32()
		if err != nil {
			return err
		}
		defaultTarget, err := b.branchTarget(defaultDepth)
		if err != nil {
			return err
		}
		b.terminate(Terminator{Kind: TermBranchTable, Val: index, Targets: targets, Default: defaultTarget})
		b.startBlock(b.newBlock())

	case wasm.OpcodeReturn:
		b.emitReturn()
		b.startBlock(b.newBlock())

	case wasm.OpcodeUnreachable:
		b.terminate(Terminator{Kind: TermUnreachable})
		b.startBlock(b.newBlock())

	case wasm.OpcodeNop:

	case wasm.OpcodeDrop:
		if _, err := b.popValue("drop"); err != nil {
			return err
		}

	case wasm.OpcodeSelect:
		if len(b.valueStack) < 3 {
			return fmt.Errorf("stack underflow for select (need 3 values)")
		}
		condition, _ := b.popValue("select condition")
		val2, _ := b.popValue("select val2")
		val1, _ := b.popValue("select val1")
		dest := b.newVar()
		b.emit(&Instr{Kind: InstrSelect, Dest: dest, X: val1, Y: val2, Z: condition})
		b.pushValue(dest)

	// Calls.
	case wasm.OpcodeCall:
		funcIdx, err := b.readUint32()
		if err != nil {
			return err
		}
		if int(funcIdx) >= len(b.ctx.funcSignatures) {
			return fmt.Errorf("call to unknown function %d", funcIdx)
		}
		sig := b.ctx.funcSignatures[funcIdx]
		args, err := b.popCallArgs(sig.paramCount, fmt.Sprintf("call to function %d", funcIdx))
		if err != nil {
			return err
		}
		dest := VarIdInvalid
		if sig.ret != TypeNone {
			dest = b.newVar()
		}
		// The Wasm function index space places imports first.
		if int(funcIdx) < b.ctx.numImportedFunctions {
			imp := b.ctx.funcImports[funcIdx]
			b.emit(&Instr{
				Kind:   InstrCallImport,
				Dest:   dest,
				Import: ImportIdx(funcIdx),
				Module: imp[0],
				Name:   imp[1],
				Args:   args,
			})
		} else {
			b.emit(&Instr{
				Kind: InstrCall,
				Dest: dest,
				Func: LocalFuncIdx(int(funcIdx) - b.ctx.numImportedFunctions),
				Args: args,
			})
		}
		if dest.Valid() {
			b.pushValue(dest)
		}

	case wasm.OpcodeCallIndirect:
		typeIdx, err := b.readUint32()
		if err != nil {
			return err
		}
		tableIdx, err := b.readUint32()
		if err != nil {
			return err
		}
		if tableIdx != 0 {
			return fmt.Errorf("multi-table not supported (table index %d)", tableIdx)
		}
		if int(typeIdx) >= len(b.ctx.typeSignatures) {
			return fmt.Errorf("call_indirect: unknown type index %d", typeIdx)
		}
		sig := b.ctx.typeSignatures[typeIdx]
		elemIdx, err := b.popValue("call_indirect table index")
		if err != nil {
			return err
		}
		args, err := b.popCallArgs(sig.paramCount, fmt.Sprintf("call_indirect type %d", typeIdx))
		if err != nil {
			return err
		}
		dest := VarIdInvalid
		if sig.ret != TypeNone {
			dest = b.newVar()
		}
		b.emit(&Instr{
			Kind:    InstrCallIndirect,
			Dest:    dest,
			TypeIdx: TypeIdx(b.ctx.canonicalType[typeIdx]),
			X:       elemIdx,
			Args:    args,
		})
		if dest.Valid() {
			b.pushValue(dest)
		}

	// Memory loads.
	case wasm.OpcodeI32Load:
		return b.emitLoad(opcode, TypeI32, WidthFull, SignNone)
	case wasm.OpcodeI64Load:
		return b.emitLoad(opcode, TypeI64, WidthFull, SignNone)
	case wasm.OpcodeF32Load:
		return b.emitLoad(opcode, TypeF32, WidthFull, SignNone)
	case wasm.OpcodeF64Load:
		return b.emitLoad(opcode, TypeF64, WidthFull, SignNone)
	case wasm.OpcodeI32Load8S:
		return b.emitLoad(opcode, TypeI32, Width8, Signed)
	case wasm.OpcodeI32Load8U:
		return b.emitLoad(opcode, TypeI32, Width8, Unsigned)
	case wasm.OpcodeI32Load16S:
		return b.emitLoad(opcode, TypeI32, Width16, Signed)
	case wasm.OpcodeI32Load16U:
		return b.emitLoad(opcode, TypeI32, Width16, Unsigned)
	case wasm.OpcodeI64Load8S:
		return b.emitLoad(opcode, TypeI64, Width8, Signed)
	case wasm.OpcodeI64Load8U:
		return b.emitLoad(opcode, TypeI64, Width8, Unsigned)
	case wasm.OpcodeI64Load16S:
		return b.emitLoad(opcode, TypeI64, Width16, Signed)
	case wasm.OpcodeI64Load16U:
		return b.emitLoad(opcode, TypeI64, Width16, Unsigned)
	case wasm.OpcodeI64Load32S:
		return b.emitLoad(opcode, TypeI64, Width32, Signed)
	case wasm.OpcodeI64Load32U:
		return b.emitLoad(opcode, TypeI64, Width32, Unsigned)

	// Memory stores.
	case wasm.OpcodeI32Store:
		return b.emitStore(opcode, TypeI32, WidthFull)
	case wasm.OpcodeI64Store:
		return b.emitStore(opcode, TypeI64, WidthFull)
	case wasm.OpcodeF32Store:
		return b.emitStore(opcode, TypeF32, WidthFull)
	case wasm.OpcodeF64Store:
		return b.emitStore(opcode, TypeF64, WidthFull)
	case wasm.OpcodeI32Store8:
		return b.emitStore(opcode, TypeI32, Width8)
	case wasm.OpcodeI32Store16:
		return b.emitStore(opcode, TypeI32, Width16)
	case wasm.OpcodeI64Store8:
		return b.emitStore(opcode, TypeI64, Width8)
	case wasm.OpcodeI64Store16:
		return b.emitStore(opcode, TypeI64, Width16)
	case wasm.OpcodeI64Store32:
		return b.emitStore(opcode, TypeI64, Width32)

	// Memory introspection.
	case wasm.OpcodeMemorySize:
		if _, err := b.readByte(); err != nil { // reserved memory index
			return err
		}
		dest := b.newVar()
		b.emit(&Instr{Kind: InstrMemorySize, Dest: dest})
		b.pushValue(dest)
	case wasm.OpcodeMemoryGrow:
		if _, err := b.readByte(); err != nil { // reserved memory index
			return err
		}
		delta, err := b.popValue("memory.grow")
		if err != nil {
			return err
		}
		dest := b.newVar()
		b.emit(&Instr{Kind: InstrMemoryGrow, Dest: dest, X: delta})
		b.pushValue(dest)

	case wasm.OpcodeMiscPrefix:
		sub, err := b.readUint32()
		if err != nil {
			return err
		}
		switch wasm.MiscOpcode(sub) {
		case wasm.MiscOpcodeMemoryCopy:
			// Two reserved memory indices follow.
			if _, err := b.readByte(); err != nil {
				return err
			}
			if _, err := b.readByte(); err != nil {
				return err
			}
			length, err := b.popValue("memory.copy length")
			if err != nil {
				return err
			}
			src, err := b.popValue("memory.copy source")
			if err != nil {
				return err
			}
			dst, err := b.popValue("memory.copy destination")
			if err != nil {
				return err
			}
			b.emit(&Instr{Kind: InstrMemoryCopy, Dest: VarIdInvalid, X: dst, Y: src, Z: length})
		default:
			return fmt.Errorf("unsupported operator 0xfc 0x%02x", sub)
		}

	default:
		if binOp, ok := binOpForOpcode(opcode); ok {
			return b.emitBinOp(binOp, opcode)
		}
		if unOp, ok := unOpForOpcode(opcode); ok {
			return b.emitUnOp(unOp, opcode)
		}
		return fmt.Errorf("unsupported operator %s", wasm.InstructionName(opcode))
	}
	return nil
}

// emitConst pushes a new Const instruction and its variable.
func (b *builder) emitConst(v Value) {
	dest := b.newVar()
	b.emit(NewConst(dest, v))
	b.pushValue(dest)
}

// emitBinOp pops two operands, allocates a destination, and pushes it.
func (b *builder) emitBinOp(op BinOp, opcode wasm.Opcode) error {
	if len(b.valueStack) < 2 {
		return fmt.Errorf("stack underflow for %s", wasm.InstructionName(opcode))
	}
	rhs, _ := b.popValue("binop rhs")
	lhs, _ := b.popValue("binop lhs")
	dest := b.newVar()
	b.emit(NewBinOp(dest, op, lhs, rhs))
	b.pushValue(dest)
	return nil
}

// emitUnOp pops one operand, allocates a destination, and pushes it.
func (b *builder) emitUnOp(op UnOp, opcode wasm.Opcode) error {
	operand, err := b.popValue(wasm.InstructionName(opcode))
	if err != nil {
		return err
	}
	dest := b.newVar()
	b.emit(NewUnOp(dest, op, operand))
	b.pushValue(dest)
	return nil
}

// emitLoad pops the address and pushes the loaded value.
func (b *builder) emitLoad(opcode wasm.Opcode, ty Type, width MemoryAccessWidth, sign SignExtension) error {
	offset, err := b.readMemArg()
	if err != nil {
		return err
	}
	addr, err := b.popValue(wasm.InstructionName(opcode))
	if err != nil {
		return err
	}
	dest := b.newVar()
	b.emit(&Instr{
		Kind:   InstrLoad,
		Dest:   dest,
		Typ:    ty,
		X:      addr,
		Offset: offset,
		Width:  width,
		Sign:   sign,
	})
	b.pushValue(dest)
	return nil
}

// emitStore pops the value then the address.
func (b *builder) emitStore(opcode wasm.Opcode, ty Type, width MemoryAccessWidth) error {
	offset, err := b.readMemArg()
	if err != nil {
		return err
	}
	if len(b.valueStack) < 2 {
		return fmt.Errorf("stack underflow for %s", wasm.InstructionName(opcode))
	}
	value, _ := b.popValue("store value")
	addr, _ := b.popValue("store addr")
	b.emit(&Instr{
		Kind:   InstrStore,
		Dest:   VarIdInvalid,
		Typ:    ty,
		X:      addr,
		Y:      value,
		Offset: offset,
		Width:  width,
	})
	return nil
}

// binOpForOpcode maps a Wasm opcode to its IR binary operation.
func binOpForOpcode(op wasm.Opcode) (BinOp, bool) {
	switch op {
	case wasm.OpcodeI32Add:
		return BinOpI32Add, true
	case wasm.OpcodeI32Sub:
		return BinOpI32Sub, true
	case wasm.OpcodeI32Mul:
		return BinOpI32Mul, true
	case wasm.OpcodeI32DivS:
		return BinOpI32DivS, true
	case wasm.OpcodeI32DivU:
		return BinOpI32DivU, true
	case wasm.OpcodeI32RemS:
		return BinOpI32RemS, true
	case wasm.OpcodeI32RemU:
		return BinOpI32RemU, true
	case wasm.OpcodeI32And:
		return BinOpI32And, true
	case wasm.OpcodeI32Or:
		return BinOpI32Or, true
	case wasm.OpcodeI32Xor:
		return BinOpI32Xor, true
	case wasm.OpcodeI32Shl:
		return BinOpI32Shl, true
	case wasm.OpcodeI32ShrS:
		return BinOpI32ShrS, true
	case wasm.OpcodeI32ShrU:
		return BinOpI32ShrU, true
	case wasm.OpcodeI32Rotl:
		return BinOpI32Rotl, true
	case wasm.OpcodeI32Rotr:
		return BinOpI32Rotr, true
	case wasm.OpcodeI32Eq:
		return BinOpI32Eq, true
	case wasm.OpcodeI32Ne:
		return BinOpI32Ne, true
	case wasm.OpcodeI32LtS:
		return BinOpI32LtS, true
	case wasm.OpcodeI32LtU:
		return BinOpI32LtU, true
	case wasm.OpcodeI32GtS:
		return BinOpI32GtS, true
	case wasm.OpcodeI32GtU:
		return BinOpI32GtU, true
	case wasm.OpcodeI32LeS:
		return BinOpI32LeS, true
	case wasm.OpcodeI32LeU:
		return BinOpI32LeU, true
	case wasm.OpcodeI32GeS:
		return BinOpI32GeS, true
	case wasm.OpcodeI32GeU:
		return BinOpI32GeU, true
	case wasm.OpcodeI64Add:
		return BinOpI64Add, true
	case wasm.OpcodeI64Sub:
		return BinOpI64Sub, true
	case wasm.OpcodeI64Mul:
		return BinOpI64Mul, true
	case wasm.OpcodeI64DivS:
		return BinOpI64DivS, true
	case wasm.OpcodeI64DivU:
		return BinOpI64DivU, true
	case wasm.OpcodeI64RemS:
		return BinOpI64RemS, true
	case wasm.OpcodeI64RemU:
		return BinOpI64RemU, true
	case wasm.OpcodeI64And:
		return BinOpI64And, true
	case wasm.OpcodeI64Or:
		return BinOpI64Or, true
	case wasm.OpcodeI64Xor:
		return BinOpI64Xor, true
	case wasm.OpcodeI64Shl:
		return BinOpI64Shl, true
	case wasm.OpcodeI64ShrS:
		return BinOpI64ShrS, true
	case wasm.OpcodeI64ShrU:
		return BinOpI64ShrU, true
	case wasm.OpcodeI64Rotl:
		return BinOpI64Rotl, true
	case wasm.OpcodeI64Rotr:
		return BinOpI64Rotr, true
	case wasm.OpcodeI64Eq:
		return BinOpI64Eq, true
	case wasm.OpcodeI64Ne:
		return BinOpI64Ne, true
	case wasm.OpcodeI64LtS:
		return BinOpI64LtS, true
	case wasm.OpcodeI64LtU:
		return BinOpI64LtU, true
	case wasm.OpcodeI64GtS:
		return BinOpI64GtS, true
	case wasm.OpcodeI64GtU:
		return BinOpI64GtU, true
	case wasm.OpcodeI64LeS:
		return BinOpI64LeS, true
	case wasm.OpcodeI64LeU:
		return BinOpI64LeU, true
	case wasm.OpcodeI64GeS:
		return BinOpI64GeS, true
	case wasm.OpcodeI64GeU:
		return BinOpI64GeU, true
	case wasm.OpcodeF32Add:
		return BinOpF32Add, true
	case wasm.OpcodeF32Sub:
		return BinOpF32Sub, true
	case wasm.OpcodeF32Mul:
		return BinOpF32Mul, true
	case wasm.OpcodeF32Div:
		return BinOpF32Div, true
	case wasm.OpcodeF32Min:
		return BinOpF32Min, true
	case wasm.OpcodeF32Max:
		return BinOpF32Max, true
	case wasm.OpcodeF32Copysign:
		return BinOpF32Copysign, true
	case wasm.OpcodeF32Eq:
		return BinOpF32Eq, true
	case wasm.OpcodeF32Ne:
		return BinOpF32Ne, true
	case wasm.OpcodeF32Lt:
		return BinOpF32Lt, true
	case wasm.OpcodeF32Gt:
		return BinOpF32Gt, true
	case wasm.OpcodeF32Le:
		return BinOpF32Le, true
	case wasm.OpcodeF32Ge:
		return BinOpF32Ge, true
	case wasm.OpcodeF64Add:
		return BinOpF64Add, true
	case wasm.OpcodeF64Sub:
		return BinOpF64Sub, true
	case wasm.OpcodeF64Mul:
		return BinOpF64Mul, true
	case wasm.OpcodeF64Div:
		return BinOpF64Div, true
	case wasm.OpcodeF64Min:
		return BinOpF64Min, true
	case wasm.OpcodeF64Max:
		return BinOpF64Max, true
	case wasm.OpcodeF64Copysign:
		return BinOpF64Copysign, true
	case wasm.OpcodeF64Eq:
		return BinOpF64Eq, true
	case wasm.OpcodeF64Ne:
		return BinOpF64Ne, true
	case wasm.OpcodeF64Lt:
		return BinOpF64Lt, true
	case wasm.OpcodeF64Gt:
		return BinOpF64Gt, true
	case wasm.OpcodeF64Le:
		return BinOpF64Le, true
	case wasm.OpcodeF64Ge:
		return BinOpF64Ge, true
	default:
		return 0, false
	}
}

// unOpForOpcode maps a Wasm opcode to its IR unary operation.
func unOpForOpcode(op wasm.Opcode) (UnOp, bool) {
	switch op {
	case wasm.OpcodeI32Eqz:
		return UnOpI32Eqz, true
	case wasm.OpcodeI32Clz:
		return UnOpI32Clz, true
	case wasm.OpcodeI32Ctz:
		return UnOpI32Ctz, true
	case wasm.OpcodeI32Popcnt:
		return UnOpI32Popcnt, true
	case wasm.OpcodeI64Eqz:
		return UnOpI64Eqz, true
	case wasm.OpcodeI64Clz:
		return UnOpI64Clz, true
	case wasm.OpcodeI64Ctz:
		return UnOpI64Ctz, true
	case wasm.OpcodeI64Popcnt:
		return UnOpI64Popcnt, true
	case wasm.OpcodeF32Abs:
		return UnOpF32Abs, true
	case wasm.OpcodeF32Neg:
		return UnOpF32Neg, true
	case wasm.OpcodeF32Ceil:
		return UnOpF32Ceil, true
	case wasm.OpcodeF32Floor:
		return UnOpF32Floor, true
	case wasm.OpcodeF32Trunc:
		return UnOpF32Trunc, true
	case wasm.OpcodeF32Nearest:
		return UnOpF32Nearest, true
	case wasm.OpcodeF32Sqrt:
		return UnOpF32Sqrt, true
	case wasm.OpcodeF64Abs:
		return UnOpF64Abs, true
	case wasm.OpcodeF64Neg:
		return UnOpF64Neg, true
	case wasm.OpcodeF64Ceil:
		return UnOpF64Ceil, true
	case wasm.OpcodeF64Floor:
		return UnOpF64Floor, true
	case wasm.OpcodeF64Trunc:
		return UnOpF64Trunc, true
	case wasm.OpcodeF64Nearest:
		return UnOpF64Nearest, true
	case wasm.OpcodeF64Sqrt:
		return UnOpF64Sqrt, true
	case wasm.OpcodeI32WrapI64:
		return UnOpI32WrapI64, true
	case wasm.OpcodeI64ExtendI32S:
		return UnOpI64ExtendI32S, true
	case wasm.OpcodeI64ExtendI32U:
		return UnOpI64ExtendI32U, true
	case wasm.OpcodeI32TruncF32S:
		return UnOpI32TruncF32S, true
	case wasm.OpcodeI32TruncF32U:
		return UnOpI32TruncF32U, true
	case wasm.OpcodeI32TruncF64S:
		return UnOpI32TruncF64S, true
	case wasm.OpcodeI32TruncF64U:
		return UnOpI32TruncF64U, true
	case wasm.OpcodeI64TruncF32S:
		return UnOpI64TruncF32S, true
	case wasm.OpcodeI64TruncF32U:
		return UnOpI64TruncF32U, true
	case wasm.OpcodeI64TruncF64S:
		return UnOpI64TruncF64S, true
	case wasm.OpcodeI64TruncF64U:
		return UnOpI64TruncF64U, true
	case wasm.OpcodeF32ConvertI32S:
		return UnOpF32ConvertI32S, true
	case wasm.OpcodeF32ConvertI32U:
		return UnOpF32ConvertI32U, true
	case wasm.OpcodeF32ConvertI64S:
		return UnOpF32ConvertI64S, true
	case wasm.OpcodeF32ConvertI64U:
		return UnOpF32ConvertI64U, true
	case wasm.OpcodeF64ConvertI32S:
		return UnOpF64ConvertI32S, true
	case wasm.OpcodeF64ConvertI32U:
		return UnOpF64ConvertI32U, true
	case wasm.OpcodeF64ConvertI64S:
		return UnOpF64ConvertI64S, true
	case wasm.OpcodeF64ConvertI64U:
		return UnOpF64ConvertI64U, true
	case wasm.OpcodeF32DemoteF64:
		return UnOpF32DemoteF64, true
	case wasm.OpcodeF64PromoteF32:
		return UnOpF64PromoteF32, true
	case wasm.OpcodeI32ReinterpretF32:
		return UnOpI32ReinterpretF32, true
	case wasm.OpcodeI64ReinterpretF64:
		return UnOpI64ReinterpretF64, true
	case wasm.OpcodeF32ReinterpretI32:
		return UnOpF32ReinterpretI32, true
	case wasm.OpcodeF64ReinterpretI64:
		return UnOpF64ReinterpretI64, true
	default:
		return 0, false
	}
}
