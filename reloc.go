package questlock

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownID is returned when the running build has no offset for a
	// relocation id.
	ErrUnknownID = errors.New("relocation id not found in address library")

	// ErrOutOfModule is returned when an id resolves to an address outside
	// of the module's text segment.
	ErrOutOfModule = errors.New("relocation resolved outside of module text")
)

// RelocationID is a key that stays the same across builds of the game. An
// OffsetTable for the running build turns it into an offset from the module
// base.
type RelocationID uint64

func (id RelocationID) String() string {
	return fmt.Sprintf("REL::ID(%d)", uint64(id))
}

// OffsetTable maps relocation ids to offsets from the module base.
type OffsetTable interface {
	Offset(id RelocationID) (uintptr, bool)
}

// OffsetMap is an OffsetTable backed by a map.
type OffsetMap map[RelocationID]uintptr

func (m OffsetMap) Offset(id RelocationID) (uintptr, bool) {
	off, ok := m[id]
	return off, ok
}

// Module describes where the game executable is mapped.
type Module struct {
	Base uintptr

	// TextStart and TextEnd bound the executable code. TextEnd is
	// exclusive.
	TextStart uintptr
	TextEnd   uintptr
}

func (m Module) containsText(addr uintptr) bool {
	return addr >= m.TextStart && addr < m.TextEnd
}

// containsTextRange reports whether [start, end) is inside the text segment.
func (m Module) containsTextRange(start, end uintptr) bool {
	return start <= end && start >= m.TextStart && end <= m.TextEnd
}

// Resolver turns relocation ids into absolute addresses for one module.
type Resolver struct {
	Module Module
	Table  OffsetTable
}

// NewResolver returns a Resolver for module using table.
func NewResolver(module Module, table OffsetTable) *Resolver {
	return &Resolver{
		Module: module,
		Table:  table,
	}
}

// Resolve returns the address of id in the running module. It has no side
// effects.
func (r *Resolver) Resolve(id RelocationID) (uintptr, error) {
	if r.Table == nil {
		return 0, fmt.Errorf("%v: %w", id, ErrUnknownID)
	}

	off, ok := r.Table.Offset(id)
	if !ok {
		return 0, fmt.Errorf("%v: %w", id, ErrUnknownID)
	}

	addr := r.Module.Base + off
	if addr < r.Module.Base || !r.Module.containsText(addr) {
		return 0, fmt.Errorf("%v: %#x is not within [%#x, %#x): %w", id, addr, r.Module.TextStart, r.Module.TextEnd, ErrOutOfModule)
	}

	return addr, nil
}
