package player

import (
	"log/slog"

	"github.com/gigurra/orchestrion/cmd/bgm/procmem"
)

// ChainProbe reports audio by following a pointer chain to the game's music
// output handle. A non-zero handle means something is playing.
type ChainProbe struct {
	mem   procmem.Memory
	chain procmem.Chain
}

// NewChainProbe creates a probe for the chain starting at moduleBase+offset.
func NewChainProbe(mem procmem.Memory, moduleBase procmem.Address, offset uint64, pointers []uint64) *ChainProbe {
	return &ChainProbe{
		mem: mem,
		chain: procmem.Chain{
			Base:    moduleBase.Add(offset),
			Offsets: pointers,
		},
	}
}

// Audible implements control.AudioProbe. An unreadable chain counts as
// audible so shuffle falls back to advancing on its timer alone.
func (p *ChainProbe) Audible() bool {
	addr, err := p.chain.Follow(p.mem)
	if err != nil {
		slog.Debug("audio chain unreadable", "error", err)
		return true
	}
	handle, err := procmem.ReadUint64(p.mem, addr)
	if err != nil {
		slog.Debug("audio handle unreadable", "address", addr, "error", err)
		return true
	}
	return handle != 0
}
