//go:build linux

package procmem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Process is a handle on a live process. On Linux this is just the pid;
// access goes through process_vm_readv/process_vm_writev.
type Process struct {
	pid int
}

// Open prepares access to the process with the given pid.
func Open(pid int32) (*Process, error) {
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err != nil {
		return nil, fmt.Errorf("%w: pid %d", ErrNoProcess, pid)
	}
	return &Process{pid: int(pid)}, nil
}

// Pid returns the process id.
func (p *Process) Pid() int32 {
	return int32(p.pid)
}

func (p *Process) ReadAt(addr Address, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	local := []unix.Iovec{{Base: &buf[0]}}
	local[0].SetLen(len(buf))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}

	n, err := unix.ProcessVMReadv(p.pid, local, remote, 0)
	if err != nil {
		return mapErrno(addr, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: short read at %s (%d/%d)", ErrFault, addr, n, len(buf))
	}
	return nil
}

func (p *Process) WriteAt(addr Address, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	local := []unix.Iovec{{Base: &buf[0]}}
	local[0].SetLen(len(buf))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}

	n, err := unix.ProcessVMWritev(p.pid, local, remote, 0)
	if err != nil {
		return mapErrno(addr, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: short write at %s (%d/%d)", ErrFault, addr, n, len(buf))
	}
	return nil
}

func mapErrno(addr Address, err error) error {
	switch {
	case errors.Is(err, unix.EFAULT):
		return fmt.Errorf("%w: %s", ErrFault, addr)
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: %v", ErrNoProcess, err)
	default:
		return fmt.Errorf("access %s: %w", addr, err)
	}
}

// Close is a no-op on Linux.
func (p *Process) Close() error {
	return nil
}

// ModuleBase returns the load address of the named module by parsing
// /proc/<pid>/maps. Works for native binaries and Wine/Proton mapped PEs.
func (p *Process) ModuleBase(module string) (Address, error) {
	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", p.pid))
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return parseMaps(file, module)
}

// parseMaps returns the lowest start address of a mapping whose file name
// matches module (case-insensitive) and whose file offset is 0.
func parseMaps(r io.Reader, module string) (Address, error) {
	want := strings.ToLower(module)
	found := false
	var lowest uint64

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		// start-end perms offset dev inode path
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}
		path := strings.Join(fields[5:], " ")
		if strings.ToLower(filepath.Base(path)) != want {
			continue
		}
		if off, err := strconv.ParseUint(fields[2], 16, 64); err != nil || off != 0 {
			continue
		}
		startStr, _, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		start, err := strconv.ParseUint(startStr, 16, 64)
		if err != nil {
			continue
		}
		if !found || start < lowest {
			lowest = start
			found = true
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrNoModule, module)
	}
	return Address(lowest), nil
}
