package procmem

import (
	"log/slog"
)

// Resolver follows the static pointer path to the BGM control block array:
//
//	root -> owning object -> (object + fieldOffset) -> array
//
// Nothing is cached. The owning object may be freed and reallocated by the
// target process between calls.
type Resolver struct {
	mem         Memory
	root        Address
	fieldOffset uint64
}

// NewResolver creates a Resolver. root is the static address that holds the
// pointer to the owning object.
func NewResolver(mem Memory, root Address, fieldOffset uint64) *Resolver {
	return &Resolver{
		mem:         mem,
		root:        root,
		fieldOffset: fieldOffset,
	}
}

// Root returns the static root address.
func (r *Resolver) Root() Address {
	return r.root
}

// Resolve returns the current array base, or false when any link in the path
// is currently null or unreadable.
func (r *Resolver) Resolve() (Address, bool) {
	obj, err := ReadPointer(r.mem, r.root)
	if err != nil {
		slog.Debug("bgm root unreadable", "root", r.root, "error", err)
		return 0, false
	}
	// the game checks for this too, it happens during teardown
	if obj == 0 {
		return 0, false
	}

	array, err := ReadPointer(r.mem, obj.Add(r.fieldOffset))
	if err != nil {
		slog.Debug("bgm owner unreadable", "object", obj, "error", err)
		return 0, false
	}
	if array == 0 {
		return 0, false
	}
	return array, true
}

// Chain is a multi-level pointer path. Starting at Base, each step reads a
// pointer and adds the next offset to it.
type Chain struct {
	Base    Address
	Offsets []uint64
}

// Follow walks the chain and returns the final address.
func (c Chain) Follow(m Memory) (Address, error) {
	addr := c.Base
	for _, off := range c.Offsets {
		ptr, err := ReadPointer(m, addr)
		if err != nil {
			return 0, err
		}
		if ptr == 0 {
			return 0, ErrFault
		}
		addr = ptr.Add(off)
	}
	return addr, nil
}
