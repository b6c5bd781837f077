package player

import (
	"github.com/gigurra/orchestrion/cmd/bgm/control"
	"github.com/gigurra/orchestrion/cmd/bgm/procmem"
)

// Layout of the simulated control blocks used by dry runs.
const (
	SimulatedRoot   procmem.Address = 0x140000000
	simulatedObject procmem.Address = 0x140000100
	SimulatedArray  procmem.Address = 0x140001000
	simulatedField                  = 0xC0
)

// Simulated returns an in-memory stand-in for the game: a root pointer, an
// owning object and an empty control block array.
func Simulated() (*procmem.Buffer, *procmem.Resolver) {
	size := int(SimulatedArray-SimulatedRoot) + control.SlotCount*control.BlockSize
	mem := procmem.NewBuffer(SimulatedRoot, size)
	mem.PutPointer(SimulatedRoot, simulatedObject)
	mem.PutPointer(simulatedObject.Add(simulatedField), SimulatedArray)
	return mem, procmem.NewResolver(mem, SimulatedRoot, simulatedField)
}
