package wasmrt

import "fmt"

// FuncRef is one table entry: the canonical type index of the referenced
// function and its local function index.
type FuncRef struct {
	TypeIndex uint32
	FuncIndex uint32
}

// Table is the indirect-call table: a growable array of optional FuncRefs.
//
// Like Memory, Table is not safe for concurrent use.
type Table struct {
	entries []*FuncRef
	max     uint32
}

// NewTable creates a table with initial active slots, growable up to max.
func NewTable(initial, max uint32) (*Table, error) {
	if initial > max {
		return nil, fmt.Errorf("initial table size %d exceeds maximum %d", initial, max)
	}
	return &Table{entries: make([]*FuncRef, initial), max: max}, nil
}

// Size returns the current number of slots.
func (t *Table) Size() uint32 {
	return uint32(len(t.entries))
}

// Get returns the entry at index, or TrapTableOutOfBounds past the active
// size and TrapUndefinedElement for an empty slot.
func (t *Table) Get(index uint32) (FuncRef, error) {
	if index >= uint32(len(t.entries)) {
		return FuncRef{}, TrapTableOutOfBounds
	}
	ref := t.entries[index]
	if ref == nil {
		return FuncRef{}, TrapUndefinedElement
	}
	return *ref, nil
}

// Set writes the entry at index; a nil ref clears the slot.
func (t *Table) Set(index uint32, ref *FuncRef) error {
	if index >= uint32(len(t.entries)) {
		return TrapTableOutOfBounds
	}
	t.entries[index] = ref
	return nil
}

// Grow extends the table by delta slots initialized to init, returning the
// previous size, or -1 when the result would exceed the maximum.
func (t *Table) Grow(delta uint32, init *FuncRef) int32 {
	prev := len(t.entries)
	if uint64(prev)+uint64(delta) > uint64(t.max) {
		return -1
	}
	for i := uint32(0); i < delta; i++ {
		t.entries = append(t.entries, init)
	}
	return int32(prev)
}

// InitElements installs an element segment's (typeIndex, funcIndex) entries
// starting at base during instantiation.
func (t *Table) InitElements(base uint32, entries []FuncRef) error {
	if uint64(base)+uint64(len(entries)) > uint64(len(t.entries)) {
		return TrapTableOutOfBounds
	}
	for i := range entries {
		ref := entries[i]
		t.entries[base+uint32(i)] = &ref
	}
	return nil
}
