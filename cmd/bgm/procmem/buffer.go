package procmem

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Buffer is an in-memory Memory mapped at a fixed base address.
// It stands in for a live process in tests and dry runs.
type Buffer struct {
	mu   sync.RWMutex
	base Address
	data []byte

	writes int
}

// NewBuffer creates a zeroed Buffer of size bytes starting at base.
func NewBuffer(base Address, size int) *Buffer {
	return &Buffer{
		base: base,
		data: make([]byte, size),
	}
}

// Base returns the first mapped address.
func (b *Buffer) Base() Address {
	return b.base
}

func (b *Buffer) span(addr Address, n int) (int, error) {
	if addr < b.base {
		return 0, fmt.Errorf("%w: %s", ErrFault, addr)
	}
	off := uint64(addr - b.base)
	if off+uint64(n) > uint64(len(b.data)) {
		return 0, fmt.Errorf("%w: %s+%d", ErrFault, addr, n)
	}
	return int(off), nil
}

func (b *Buffer) ReadAt(addr Address, p []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	off, err := b.span(addr, len(p))
	if err != nil {
		return err
	}
	copy(p, b.data[off:off+len(p)])
	return nil
}

func (b *Buffer) WriteAt(addr Address, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	off, err := b.span(addr, len(p))
	if err != nil {
		return err
	}
	copy(b.data[off:], p)
	b.writes++
	return nil
}

// PutPointer stores ptr at addr. It panics on an unmapped address.
func (b *Buffer) PutPointer(addr Address, ptr Address) {
	var buf [PointerSize]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(ptr))
	if err := b.WriteAt(addr, buf[:]); err != nil {
		panic(err)
	}
}

// Snapshot returns a copy of n bytes at addr.
func (b *Buffer) Snapshot(addr Address, n int) []byte {
	out := make([]byte, n)
	if err := b.ReadAt(addr, out); err != nil {
		panic(err)
	}
	return out
}

// Writes reports how many WriteAt calls succeeded.
func (b *Buffer) Writes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}
