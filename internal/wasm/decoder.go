package wasm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/wasmelt/wasmelt/internal/leb128"
)

// Magic and version are the 8-byte preamble of every Wasm binary.
var (
	Magic   = []byte{0x00, 0x61, 0x73, 0x6d} // \0asm
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// Section IDs per the binary format.
const (
	sectionIDCustom   = 0
	sectionIDType     = 1
	sectionIDImport   = 2
	sectionIDFunction = 3
	sectionIDTable    = 4
	sectionIDMemory   = 5
	sectionIDGlobal   = 6
	sectionIDExport   = 7
	sectionIDStart    = 8
	sectionIDElement  = 9
	sectionIDCode     = 10
	sectionIDData     = 11
	// sectionIDDataCount (12) belongs to bulk-memory; tolerated and skipped.
	sectionIDDataCount = 12
)

// ErrInvalidMagicNumber is returned when the input does not start with \0asm.
var ErrInvalidMagicNumber = errors.New("invalid magic number")

// ErrInvalidVersion is returned for any binary version other than 1 (MVP).
var ErrInvalidVersion = errors.New("invalid version header")

// DecodeModule parses a Wasm MVP binary into a Module. Features outside the
// accepted subset (multi-memory, multi-table, reference types other than
// funcref, passive segments) are rejected with explicit errors.
func DecodeModule(binary []byte) (*Module, error) {
	if len(binary) < 8 || !bytes.Equal(binary[0:4], Magic) {
		return nil, ErrInvalidMagicNumber
	}
	if !bytes.Equal(binary[4:8], version) {
		return nil, ErrInvalidVersion
	}

	d := &decoder{buf: binary, pos: 8}
	m := &Module{}

	// typeIndicesPerFunction pairs the function section with the code section.
	var typeIndicesPerFunction []uint32

	for d.pos < uint64(len(d.buf)) {
		sectionID, err := d.readByte()
		if err != nil {
			return nil, fmt.Errorf("read section id: %w", err)
		}
		sectionSize, err := d.readUint32()
		if err != nil {
			return nil, fmt.Errorf("section %d size: %w", sectionID, err)
		}
		sectionEnd := d.pos + uint64(sectionSize)
		if sectionEnd > uint64(len(d.buf)) {
			return nil, fmt.Errorf("section %d size %d exceeds binary length", sectionID, sectionSize)
		}

		switch sectionID {
		case sectionIDCustom, sectionIDStart, sectionIDDataCount:
			// Custom sections are opaque; the start function and data count
			// don't affect transpilation.
			d.pos = sectionEnd
		case sectionIDType:
			m.Types, err = d.readTypeSection()
		case sectionIDImport:
			m.Imports, err = d.readImportSection()
			if err == nil {
				for i := range m.Imports {
					if m.Imports[i].Kind == ImportKindMemory {
						m.HasMemoryImport = true
					}
				}
			}
		case sectionIDFunction:
			typeIndicesPerFunction, err = d.readFunctionSection()
		case sectionIDTable:
			m.Table, err = d.readTableSection()
		case sectionIDMemory:
			m.Memory, err = d.readMemorySection()
		case sectionIDGlobal:
			m.Globals, err = d.readGlobalSection()
		case sectionIDExport:
			m.Exports, err = d.readExportSection()
		case sectionIDElement:
			m.ElementSegments, err = d.readElementSection()
		case sectionIDCode:
			var codes []*Code
			codes, err = d.readCodeSection()
			if err == nil {
				if len(codes) != len(typeIndicesPerFunction) {
					err = fmt.Errorf("function section has %d entries but code section has %d",
						len(typeIndicesPerFunction), len(codes))
				} else {
					m.Functions = make([]Function, len(codes))
					for i, c := range codes {
						m.Functions[i] = Function{TypeIndex: typeIndicesPerFunction[i], Code: c}
					}
				}
			}
		case sectionIDData:
			m.DataSegments, err = d.readDataSection()
		default:
			err = fmt.Errorf("unknown section id %d", sectionID)
		}
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", sectionID, err)
		}
		if d.pos != sectionEnd {
			return nil, fmt.Errorf("section %d: read %d bytes past declared size", sectionID, int64(d.pos)-int64(sectionEnd))
		}
	}

	for _, f := range m.Functions {
		if int(f.TypeIndex) >= len(m.Types) {
			return nil, fmt.Errorf("function type index %d out of range", f.TypeIndex)
		}
	}
	return m, nil
}

type decoder struct {
	buf []byte
	pos uint64
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= uint64(len(d.buf)) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readBytes(n uint32) ([]byte, error) {
	if d.pos+uint64(n) > uint64(len(d.buf)) {
		return nil, io.ErrUnexpectedEOF
	}
	out := d.buf[d.pos : d.pos+uint64(n)]
	d.pos += uint64(n)
	return out, nil
}

func (d *decoder) readUint32() (uint32, error) {
	v, n, err := leb128.LoadUint32(d.buf[d.pos:])
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

func (d *decoder) readName() (string, error) {
	size, err := d.readUint32()
	if err != nil {
		return "", fmt.Errorf("name length: %w", err)
	}
	b, err := d.readBytes(size)
	if err != nil {
		return "", fmt.Errorf("name bytes: %w", err)
	}
	return string(b), nil
}

func (d *decoder) readValueType() (ValueType, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	switch vt := ValueType(b); vt {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		return vt, nil
	default:
		return 0, fmt.Errorf("unsupported value type 0x%x", b)
	}
}

func (d *decoder) readTypeSection() ([]FunctionType, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	types := make([]FunctionType, count)
	for i := range types {
		tag, err := d.readByte()
		if err != nil {
			return nil, err
		}
		if tag != 0x60 {
			return nil, fmt.Errorf("type %d: expected func type tag 0x60, got 0x%x", i, tag)
		}
		nparams, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		params := make([]ValueType, nparams)
		for j := range params {
			if params[j], err = d.readValueType(); err != nil {
				return nil, fmt.Errorf("type %d param %d: %w", i, j, err)
			}
		}
		nresults, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		if nresults > 1 {
			return nil, fmt.Errorf("type %d: multi-value results not supported", i)
		}
		results := make([]ValueType, nresults)
		for j := range results {
			if results[j], err = d.readValueType(); err != nil {
				return nil, fmt.Errorf("type %d result %d: %w", i, j, err)
			}
		}
		types[i] = FunctionType{Params: params, Results: results}
	}
	return types, nil
}

func (d *decoder) readLimits() (min uint32, max *uint32, err error) {
	flag, err := d.readByte()
	if err != nil {
		return 0, nil, err
	}
	min, err = d.readUint32()
	if err != nil {
		return 0, nil, err
	}
	switch flag {
	case 0x00:
		return min, nil, nil
	case 0x01:
		m, err := d.readUint32()
		if err != nil {
			return 0, nil, err
		}
		return min, &m, nil
	default:
		return 0, nil, fmt.Errorf("invalid limits flag 0x%x", flag)
	}
}

func (d *decoder) readImportSection() ([]Import, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	imports := make([]Import, count)
	for i := range imports {
		module, err := d.readName()
		if err != nil {
			return nil, fmt.Errorf("import %d module: %w", i, err)
		}
		name, err := d.readName()
		if err != nil {
			return nil, fmt.Errorf("import %d name: %w", i, err)
		}
		kind, err := d.readByte()
		if err != nil {
			return nil, err
		}
		imp := Import{Module: module, Name: name}
		switch kind {
		case 0x00: // func
			imp.Kind = ImportKindFunc
			if imp.TypeIndex, err = d.readUint32(); err != nil {
				return nil, fmt.Errorf("import %d type index: %w", i, err)
			}
		case 0x01: // table
			return nil, fmt.Errorf("import %d: table imports not supported", i)
		case 0x02: // memory
			imp.Kind = ImportKindMemory
			if imp.MemoryMin, imp.MemoryMax, err = d.readLimits(); err != nil {
				return nil, fmt.Errorf("import %d memory limits: %w", i, err)
			}
		case 0x03: // global
			imp.Kind = ImportKindGlobal
			if imp.GlobalType, err = d.readValueType(); err != nil {
				return nil, fmt.Errorf("import %d global type: %w", i, err)
			}
			mut, err := d.readByte()
			if err != nil {
				return nil, err
			}
			imp.GlobalMutable = mut == 1
		default:
			return nil, fmt.Errorf("import %d: invalid import kind 0x%x", i, kind)
		}
		imports[i] = imp
	}
	return imports, nil
}

func (d *decoder) readFunctionSection() ([]uint32, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	indices := make([]uint32, count)
	for i := range indices {
		if indices[i], err = d.readUint32(); err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
	}
	return indices, nil
}

func (d *decoder) readTableSection() (*Table, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	if count != 1 {
		return nil, fmt.Errorf("multi-table not supported (%d tables)", count)
	}
	elemType, err := d.readByte()
	if err != nil {
		return nil, err
	}
	if elemType != 0x70 { // funcref
		return nil, fmt.Errorf("unsupported table element type 0x%x", elemType)
	}
	min, max, err := d.readLimits()
	if err != nil {
		return nil, err
	}
	return &Table{Min: min, Max: max}, nil
}

func (d *decoder) readMemorySection() (*Memory, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	if count != 1 {
		return nil, fmt.Errorf("multi-memory not supported (%d memories)", count)
	}
	min, max, err := d.readLimits()
	if err != nil {
		return nil, err
	}
	return &Memory{Min: min, Max: max}, nil
}

// readConstExpr evaluates a single-instruction constant initializer
// expression (t.const v; end). global.get initializers are not supported.
func (d *decoder) readConstExpr() (ConstValue, error) {
	op, err := d.readByte()
	if err != nil {
		return ConstValue{}, err
	}
	var cv ConstValue
	switch Opcode(op) {
	case OpcodeI32Const:
		v, n, err := leb128.LoadInt32(d.buf[d.pos:])
		if err != nil {
			return ConstValue{}, err
		}
		d.pos += n
		cv = ConstValue{Type: ValueTypeI32, Bits: uint64(uint32(v))}
	case OpcodeI64Const:
		v, n, err := leb128.LoadInt64(d.buf[d.pos:])
		if err != nil {
			return ConstValue{}, err
		}
		d.pos += n
		cv = ConstValue{Type: ValueTypeI64, Bits: uint64(v)}
	case OpcodeF32Const:
		b, err := d.readBytes(4)
		if err != nil {
			return ConstValue{}, err
		}
		bits := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24
		cv = ConstValue{Type: ValueTypeF32, Bits: bits}
	case OpcodeF64Const:
		b, err := d.readBytes(8)
		if err != nil {
			return ConstValue{}, err
		}
		var bits uint64
		for i := 0; i < 8; i++ {
			bits |= uint64(b[i]) << (8 * i)
		}
		cv = ConstValue{Type: ValueTypeF64, Bits: bits}
	default:
		return ConstValue{}, fmt.Errorf("unsupported constant expression opcode 0x%x", op)
	}
	end, err := d.readByte()
	if err != nil {
		return ConstValue{}, err
	}
	if Opcode(end) != OpcodeEnd {
		return ConstValue{}, fmt.Errorf("constant expression not terminated by end (0x%x)", end)
	}
	return cv, nil
}

func (d *decoder) readGlobalSection() ([]Global, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	globals := make([]Global, count)
	for i := range globals {
		vt, err := d.readValueType()
		if err != nil {
			return nil, fmt.Errorf("global %d type: %w", i, err)
		}
		mut, err := d.readByte()
		if err != nil {
			return nil, err
		}
		if mut > 1 {
			return nil, fmt.Errorf("global %d: invalid mutability flag 0x%x", i, mut)
		}
		init, err := d.readConstExpr()
		if err != nil {
			return nil, fmt.Errorf("global %d initializer: %w", i, err)
		}
		if init.Type != vt {
			return nil, fmt.Errorf("global %d: initializer type %s does not match declared %s", i, init.Type, vt)
		}
		globals[i] = Global{Type: vt, Mutable: mut == 1, Init: init}
	}
	return globals, nil
}

func (d *decoder) readExportSection() ([]Export, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	exports := make([]Export, count)
	seen := make(map[string]struct{}, count)
	for i := range exports {
		name, err := d.readName()
		if err != nil {
			return nil, fmt.Errorf("export %d name: %w", i, err)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate export name %q", name)
		}
		seen[name] = struct{}{}
		kind, err := d.readByte()
		if err != nil {
			return nil, err
		}
		if kind > 0x03 {
			return nil, fmt.Errorf("export %d: invalid export kind 0x%x", i, kind)
		}
		index, err := d.readUint32()
		if err != nil {
			return nil, fmt.Errorf("export %d index: %w", i, err)
		}
		exports[i] = Export{Kind: ExportKind(kind), Name: name, Index: index}
	}
	return exports, nil
}

func (d *decoder) readElementSection() ([]ElementSegment, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	segments := make([]ElementSegment, count)
	for i := range segments {
		flag, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		if flag != 0 {
			// Flags 1..7 are passive/declarative/extended forms from the
			// bulk-memory and reference-types proposals.
			return nil, fmt.Errorf("element segment %d: only active segments over table 0 are supported (flag %d)", i, flag)
		}
		offset, err := d.readConstExpr()
		if err != nil {
			return nil, fmt.Errorf("element segment %d offset: %w", i, err)
		}
		if offset.Type != ValueTypeI32 {
			return nil, fmt.Errorf("element segment %d: offset must be i32", i)
		}
		n, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		indices := make([]uint32, n)
		for j := range indices {
			if indices[j], err = d.readUint32(); err != nil {
				return nil, fmt.Errorf("element segment %d entry %d: %w", i, j, err)
			}
		}
		segments[i] = ElementSegment{Offset: uint32(offset.Bits), FuncIndices: indices}
	}
	return segments, nil
}

func (d *decoder) readCodeSection() ([]*Code, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	codes := make([]*Code, count)
	for i := range codes {
		size, err := d.readUint32()
		if err != nil {
			return nil, fmt.Errorf("code %d size: %w", i, err)
		}
		body, err := d.readBytes(size)
		if err != nil {
			return nil, fmt.Errorf("code %d body: %w", i, err)
		}
		codes[i], err = decodeCode(body)
		if err != nil {
			return nil, fmt.Errorf("code %d: %w", i, err)
		}
	}
	return codes, nil
}

// decodeCode splits one code entry into its declared locals and expression.
func decodeCode(body []byte) (*Code, error) {
	nDecls, n, err := leb128.LoadUint32(body)
	if err != nil {
		return nil, fmt.Errorf("local declarations: %w", err)
	}
	pos := n
	var locals []ValueType
	for i := uint32(0); i < nDecls; i++ {
		repeat, n, err := leb128.LoadUint32(body[pos:])
		if err != nil {
			return nil, fmt.Errorf("local declaration %d: %w", i, err)
		}
		pos += n
		if pos >= uint64(len(body)) {
			return nil, io.ErrUnexpectedEOF
		}
		vt := ValueType(body[pos])
		switch vt {
		case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		default:
			return nil, fmt.Errorf("local declaration %d: unsupported value type 0x%x", i, byte(vt))
		}
		pos++
		for j := uint32(0); j < repeat; j++ {
			locals = append(locals, vt)
		}
	}
	if len(body) == int(pos) || body[len(body)-1] != byte(OpcodeEnd) {
		return nil, fmt.Errorf("function body must end with end opcode")
	}
	return &Code{LocalTypes: locals, Body: body[pos:]}, nil
}

func (d *decoder) readDataSection() ([]DataSegment, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	segments := make([]DataSegment, count)
	for i := range segments {
		flag, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		if flag != 0 {
			return nil, fmt.Errorf("data segment %d: only active segments over memory 0 are supported (flag %d)", i, flag)
		}
		offset, err := d.readConstExpr()
		if err != nil {
			return nil, fmt.Errorf("data segment %d offset: %w", i, err)
		}
		if offset.Type != ValueTypeI32 {
			return nil, fmt.Errorf("data segment %d: offset must be i32", i)
		}
		size, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		data, err := d.readBytes(size)
		if err != nil {
			return nil, fmt.Errorf("data segment %d bytes: %w", i, err)
		}
		segments[i] = DataSegment{Offset: uint32(offset.Bits), Data: data}
	}
	return segments, nil
}
