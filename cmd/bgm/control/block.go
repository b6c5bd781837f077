package control

import (
	"encoding/binary"
	"math"

	"github.com/gigurra/orchestrion/cmd/bgm/procmem"
)

const (
	// SlotCount is the number of control blocks, one per priority.
	SlotCount = 12

	// SentinelSongID in the secondary field means "not a real song".
	SentinelSongID = 9999

	// BlockSize is the size of one control block in bytes.
	BlockSize = 0x58
)

// Field offsets inside a control block. Everything not listed here is
// opaque and never written.
const (
	offPriorityIndex = 0x00
	offSongID        = 0x0C
	offSongID2       = 0x0E
	offSongID3       = 0x10
	offTimerEnabled  = 0x12
	offTimer         = 0x14
	offBlockTimer    = 0x50
)

// ControlBlock is a copy of one priority slot.
type ControlBlock struct {
	PriorityIndex int32
	// SongID is unreliable. 0 means the slot is not playing; other values may
	// not be song ids at all.
	SongID uint16
	// SongIDSecondary is the best proxy for what is actually audible here.
	SongIDSecondary uint16
	// SongIDTertiary keeps the last meaningful id even while playback is
	// suppressed, e.g. disabled mount music.
	SongIDTertiary uint16
	TimerEnabled   bool
	Timer          float32
	// BlockTimer, when nonzero, holds the slot active past timer expiry.
	BlockTimer uint8
}

// Blocks is a copy of the whole priority array, index = priority.
type Blocks [SlotCount]ControlBlock

func decodeBlock(b []byte) ControlBlock {
	le := binary.LittleEndian
	return ControlBlock{
		PriorityIndex:   int32(le.Uint32(b[offPriorityIndex:])),
		SongID:          le.Uint16(b[offSongID:]),
		SongIDSecondary: le.Uint16(b[offSongID2:]),
		SongIDTertiary:  le.Uint16(b[offSongID3:]),
		TimerEnabled:    b[offTimerEnabled] != 0,
		Timer:           math.Float32frombits(le.Uint32(b[offTimer:])),
		BlockTimer:      b[offBlockTimer],
	}
}

// DecodeBlocks decodes a raw copy of the array. raw must hold at least
// SlotCount*BlockSize bytes.
func DecodeBlocks(raw []byte) Blocks {
	var blocks Blocks
	for i := range blocks {
		blocks[i] = decodeBlock(raw[i*BlockSize : (i+1)*BlockSize])
	}
	return blocks
}

// readBlocks copies the array at base in a single read.
func readBlocks(mem procmem.Memory, base procmem.Address) (Blocks, error) {
	raw := make([]byte, SlotCount*BlockSize)
	if err := mem.ReadAt(base, raw); err != nil {
		return Blocks{}, err
	}
	return DecodeBlocks(raw), nil
}

// slotAddress returns the address of the block for priority.
func slotAddress(base procmem.Address, priority int) procmem.Address {
	return base.Add(uint64(priority) * BlockSize)
}

// writeSong writes songID into all three id fields of the slot and clears
// the timer. Two separate writes keep the padding byte between the enable
// flag and the timer untouched.
func writeSong(mem procmem.Memory, slot procmem.Address, songID uint16) error {
	ids := make([]byte, offTimer-offSongID-1)
	binary.LittleEndian.PutUint16(ids[offSongID-offSongID:], songID)
	binary.LittleEndian.PutUint16(ids[offSongID2-offSongID:], songID)
	binary.LittleEndian.PutUint16(ids[offSongID3-offSongID:], songID)
	ids[offTimerEnabled-offSongID] = 0
	if err := mem.WriteAt(slot.Add(offSongID), ids); err != nil {
		return err
	}

	timer := make([]byte, 4)
	binary.LittleEndian.PutUint32(timer, math.Float32bits(0))
	return mem.WriteAt(slot.Add(offTimer), timer)
}
