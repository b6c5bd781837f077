//go:build !linux && !windows

package procmem

// Process is unavailable on this platform.
type Process struct{}

// Open always fails on this platform.
func Open(pid int32) (*Process, error) {
	return nil, ErrUnsupported
}

func (p *Process) Pid() int32 { return 0 }

func (p *Process) ReadAt(addr Address, buf []byte) error { return ErrUnsupported }

func (p *Process) WriteAt(addr Address, buf []byte) error { return ErrUnsupported }

func (p *Process) Close() error { return nil }

func (p *Process) ModuleBase(module string) (Address, error) { return 0, ErrUnsupported }
