package procmem

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Target describes where the control block root lives inside the game.
type Target struct {
	ProcessName   string // e.g. ffxiv_dx11
	ModuleName    string // e.g. ffxiv_dx11.exe
	RootOffset    uint64 // module relative address of the static root pointer
	ControlOffset uint64 // offset of the array pointer inside the owning object
}

// FindProcess returns the pid of the first process whose name matches name.
// A trailing ".exe" is ignored on both sides.
func FindProcess(name string) (int32, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}

	want := normalizeProcessName(name)
	for _, p := range procs {
		pname, err := p.Name()
		if err != nil || pname == "" {
			continue
		}
		if normalizeProcessName(pname) == want {
			return p.Pid, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoProcess, name)
}

func normalizeProcessName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}

// Locate finds the target process, opens it and builds a Resolver for the
// control block array. Any failure here is a setup failure (ErrSetup).
// The caller owns the returned Process and must Close it.
func Locate(t Target) (*Process, *Resolver, error) {
	if t.RootOffset == 0 {
		return nil, nil, fmt.Errorf("%w: root offset not configured", ErrSetup)
	}

	pid, err := FindProcess(t.ProcessName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	proc, err := Open(pid)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	base, err := proc.ModuleBase(t.ModuleName)
	if err != nil {
		proc.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	root := base.Add(t.RootOffset)
	// the root itself is static, so it must always be readable
	if _, err := ReadPointer(proc, root); err != nil {
		proc.Close()
		return nil, nil, fmt.Errorf("%w: root %s unreadable: %w", ErrSetup, root, err)
	}

	return proc, NewResolver(proc, root, t.ControlOffset), nil
}
