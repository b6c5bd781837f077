//go:build windows

package procmem

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

const processAccess = windows.PROCESS_VM_READ |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_OPERATION |
	windows.PROCESS_QUERY_INFORMATION

// Process is an open handle on a live process.
type Process struct {
	pid    uint32
	handle windows.Handle
}

// Open opens the process with the given pid for reading and writing.
func Open(pid int32) (*Process, error) {
	h, err := windows.OpenProcess(processAccess, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("%w: pid %d: %v", ErrNoProcess, pid, err)
	}
	return &Process{pid: uint32(pid), handle: h}, nil
}

// Pid returns the process id.
func (p *Process) Pid() int32 {
	return int32(p.pid)
}

func (p *Process) ReadAt(addr Address, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	var n uintptr
	err := windows.ReadProcessMemory(p.handle, uintptr(addr), &buf[0], uintptr(len(buf)), &n)
	if err != nil {
		if errors.Is(err, windows.ERROR_PARTIAL_COPY) || errors.Is(err, windows.ERROR_NOACCESS) {
			return fmt.Errorf("%w: %s", ErrFault, addr)
		}
		return fmt.Errorf("read %s: %w", addr, err)
	}
	if int(n) != len(buf) {
		return fmt.Errorf("%w: short read at %s (%d/%d)", ErrFault, addr, n, len(buf))
	}
	return nil
}

func (p *Process) WriteAt(addr Address, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	var n uintptr
	err := windows.WriteProcessMemory(p.handle, uintptr(addr), &buf[0], uintptr(len(buf)), &n)
	if err != nil {
		if errors.Is(err, windows.ERROR_PARTIAL_COPY) || errors.Is(err, windows.ERROR_NOACCESS) {
			return fmt.Errorf("%w: %s", ErrFault, addr)
		}
		return fmt.Errorf("write %s: %w", addr, err)
	}
	if int(n) != len(buf) {
		return fmt.Errorf("%w: short write at %s (%d/%d)", ErrFault, addr, n, len(buf))
	}
	return nil
}

// Close releases the process handle.
func (p *Process) Close() error {
	return windows.CloseHandle(p.handle)
}

// ModuleBase returns the load address of the named module using a toolhelp
// module snapshot.
func (p *Process) ModuleBase(module string) (Address, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, p.pid)
	if err != nil {
		return 0, fmt.Errorf("module snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Module32First(snap, &entry); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoModule, module)
	}
	for {
		name := windows.UTF16ToString(entry.Module[:])
		if strings.EqualFold(name, module) {
			return Address(entry.ModBaseAddr), nil
		}
		if err := windows.Module32Next(snap, &entry); err != nil {
			break
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoModule, module)
}
