package wasmrt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Memory is a bounds-checked Wasm linear memory. Every access is checked
// against the currently active byte size, which only grows (up to the
// declared maximum) and never shrinks.
//
// Memory is not safe for concurrent use; Wasm MVP has no atomics and the
// generated code performs no locking, so concurrent invocations on a shared
// instance must be externally serialized.
type Memory struct {
	data     []byte
	maxPages uint32
}

// NewMemory creates a memory with initialPages already active, growable up
// to maxPages. It returns an error if initialPages exceeds maxPages.
func NewMemory(initialPages, maxPages uint32) (*Memory, error) {
	if initialPages > maxPages {
		return nil, fmt.Errorf("initial pages %d exceed maximum %d", initialPages, maxPages)
	}
	return &Memory{
		data:     make([]byte, int(initialPages)*PageSize),
		maxPages: maxPages,
	}, nil
}

// Size returns the current page count.
func (m *Memory) Size() int32 {
	return int32(len(m.data) / PageSize)
}

// Grow extends the memory by delta pages, returning the previous page count,
// or -1 when the result would exceed the maximum.
func (m *Memory) Grow(delta int32) int32 {
	prev := m.Size()
	if delta < 0 {
		return -1
	}
	newPages := int64(prev) + int64(delta)
	if newPages > int64(m.maxPages) {
		return -1
	}
	m.data = append(m.data, make([]byte, int(delta)*PageSize)...)
	return prev
}

// Copy copies length bytes from src to dst with memmove semantics:
// overlapping ranges behave as if the source were read entirely first.
// Both ranges are bounds-checked against the active size.
func (m *Memory) Copy(dst, src, length uint32) error {
	n := uint64(length)
	if uint64(dst)+n > uint64(len(m.data)) || uint64(src)+n > uint64(len(m.data)) {
		return TrapOutOfBounds
	}
	copy(m.data[dst:uint64(dst)+n], m.data[src:uint64(src)+n])
	return nil
}

// InitData writes a data segment's bytes at offset during instantiation.
func (m *Memory) InitData(offset uint32, data []byte) error {
	if uint64(offset)+uint64(len(data)) > uint64(len(m.data)) {
		return TrapOutOfBounds
	}
	copy(m.data[offset:], data)
	return nil
}

// Bytes exposes the active memory contents, mainly for host code and tests.
func (m *Memory) Bytes() []byte {
	return m.data
}

func (m *Memory) check(addr uint32, n uint32) error {
	if uint64(addr)+uint64(n) > uint64(len(m.data)) {
		return TrapOutOfBounds
	}
	return nil
}

// LoadU8 reads a byte at addr.
func (m *Memory) LoadU8(addr uint32) (uint8, error) {
	if err := m.check(addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

// LoadU16 reads a little-endian 16-bit value at addr.
func (m *Memory) LoadU16(addr uint32) (uint16, error) {
	if err := m.check(addr, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[addr:]), nil
}

// LoadI32 reads a little-endian 32-bit value at addr.
func (m *Memory) LoadI32(addr uint32) (int32, error) {
	if err := m.check(addr, 4); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(m.data[addr:])), nil
}

// LoadI64 reads a little-endian 64-bit value at addr.
func (m *Memory) LoadI64(addr uint32) (int64, error) {
	if err := m.check(addr, 8); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(m.data[addr:])), nil
}

// LoadF32 reads a little-endian IEEE-754 single at addr.
func (m *Memory) LoadF32(addr uint32) (float32, error) {
	if err := m.check(addr, 4); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(m.data[addr:])), nil
}

// LoadF64 reads a little-endian IEEE-754 double at addr.
func (m *Memory) LoadF64(addr uint32) (float64, error) {
	if err := m.check(addr, 8); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(m.data[addr:])), nil
}

// StoreU8 writes a byte at addr.
func (m *Memory) StoreU8(addr uint32, v uint8) error {
	if err := m.check(addr, 1); err != nil {
		return err
	}
	m.data[addr] = v
	return nil
}

// StoreU16 writes a little-endian 16-bit value at addr.
func (m *Memory) StoreU16(addr uint32, v uint16) error {
	if err := m.check(addr, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[addr:], v)
	return nil
}

// StoreI32 writes a little-endian 32-bit value at addr.
func (m *Memory) StoreI32(addr uint32, v int32) error {
	if err := m.check(addr, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[addr:], uint32(v))
	return nil
}

// StoreI64 writes a little-endian 64-bit value at addr.
func (m *Memory) StoreI64(addr uint32, v int64) error {
	if err := m.check(addr, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[addr:], uint64(v))
	return nil
}

// StoreF32 writes a little-endian IEEE-754 single at addr.
func (m *Memory) StoreF32(addr uint32, v float32) error {
	if err := m.check(addr, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[addr:], math.Float32bits(v))
	return nil
}

// StoreF64 writes a little-endian IEEE-754 double at addr.
func (m *Memory) StoreF64(addr uint32, v float64) error {
	if err := m.check(addr, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[addr:], math.Float64bits(v))
	return nil
}
