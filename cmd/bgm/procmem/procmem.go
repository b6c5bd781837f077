// Package procmem reads and writes the memory of another process.
//
// It is the only package that touches foreign memory. Callers get copies of
// bytes and plain addresses back, never live pointers.
package procmem

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrSetup       = errors.New("failed to locate control block root")
	ErrFault       = errors.New("address not mapped")
	ErrUnsupported = errors.New("process memory access not supported on this platform")
	ErrNoProcess   = errors.New("target process not found")
	ErrNoModule    = errors.New("module not found in target process")
)

// PointerSize is the width of a pointer in the target process (x64 only).
const PointerSize = 8

// Address is a virtual address inside the target process.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("0x%X", uint64(a))
}

// Add returns a offset by off bytes.
func (a Address) Add(off uint64) Address {
	return a + Address(off)
}

// Memory is a window onto a target process address space.
type Memory interface {
	// ReadAt fills p with the bytes at addr. A partial read is an error.
	ReadAt(addr Address, p []byte) error
	// WriteAt writes all of p at addr.
	WriteAt(addr Address, p []byte) error
}

// ReadPointer reads a little endian pointer stored at addr.
func ReadPointer(m Memory, addr Address) (Address, error) {
	var buf [PointerSize]byte
	if err := m.ReadAt(addr, buf[:]); err != nil {
		return 0, err
	}
	return Address(binary.LittleEndian.Uint64(buf[:])), nil
}

// ReadUint64 reads a little endian uint64 at addr.
func ReadUint64(m Memory, addr Address) (uint64, error) {
	var buf [8]byte
	if err := m.ReadAt(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
