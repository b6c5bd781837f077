package control

import (
	"github.com/gigurra/orchestrion/cmd/bgm/procmem"
)

// SlotInfo is the diagnostic view of one slot.
type SlotInfo struct {
	Priority        int
	PriorityIndex   int32
	SongID          uint16
	SongIDSecondary uint16
	SongIDTertiary  uint16
	TimerEnabled    bool
	BlockTimer      uint8
}

// Diagnostics is a read-only snapshot for troubleshooting.
type Diagnostics struct {
	Available      bool
	Base           procmem.Address
	Slots          []SlotInfo
	CurrentSongID  uint16
	ActivePriority int
	Shuffle        *ShuffleStatus
}

// Dump reads every slot without writing anything. A missing array is reported
// through Available, never as an error.
func (e *Engine) Dump() Diagnostics {
	e.mu.Lock()
	d := Diagnostics{
		CurrentSongID:  e.current,
		ActivePriority: e.previous.priority,
	}
	e.mu.Unlock()

	if st, ok := e.Shuffle(); ok {
		d.Shuffle = &st
	}

	base, ok := e.resolver.Resolve()
	if !ok {
		return d
	}
	blocks, err := readBlocks(e.mem, base)
	if err != nil {
		return d
	}

	d.Available = true
	d.Base = base
	d.Slots = make([]SlotInfo, SlotCount)
	for i, b := range blocks {
		d.Slots[i] = SlotInfo{
			Priority:        i,
			PriorityIndex:   b.PriorityIndex,
			SongID:          b.SongID,
			SongIDSecondary: b.SongIDSecondary,
			SongIDTertiary:  b.SongIDTertiary,
			TimerEnabled:    b.TimerEnabled,
			BlockTimer:      b.BlockTimer,
		}
	}
	return d
}
