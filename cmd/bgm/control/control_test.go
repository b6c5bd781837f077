package control

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/gigurra/orchestrion/cmd/bgm/procmem"
)

const (
	testRoot   procmem.Address = 0x10000
	testObject procmem.Address = 0x10100
	testArray  procmem.Address = 0x11000
)

type fixture struct {
	mem   *procmem.Buffer
	seen  []uint16
	eng   *Engine
	clock *fakeClock
	probe *fakeProbe
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeProbe struct{ audible bool }

func (p *fakeProbe) Audible() bool { return p.audible }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := procmem.NewBuffer(testRoot, 0x4000)
	mem.PutPointer(testRoot, testObject)
	mem.PutPointer(testObject.Add(0xC0), testArray)

	// fill every block with a recognizable pattern so stray writes show up
	raw := make([]byte, SlotCount*BlockSize)
	for i := range raw {
		raw[i] = byte(0xA0 + i%7)
	}
	for prio := 0; prio < SlotCount; prio++ {
		off := prio * BlockSize
		binary.LittleEndian.PutUint32(raw[off+offPriorityIndex:], uint32(prio))
		for _, f := range []int{offSongID, offSongID2, offSongID3} {
			binary.LittleEndian.PutUint16(raw[off+f:], 0)
		}
	}
	if err := mem.WriteAt(testArray, raw); err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		mem:   mem,
		clock: &fakeClock{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
		probe: &fakeProbe{audible: true},
	}
	f.eng = New(mem, procmem.NewResolver(mem, testRoot, 0xC0), Config{
		PollInterval:    10 * time.Millisecond,
		ShuffleInterval: 20 * time.Minute,
		Probe:           f.probe,
		Now:             f.clock.Now,
	})
	f.eng.OnSongChanged(func(id uint16) { f.seen = append(f.seen, id) })
	return f
}

func (f *fixture) setSlot(t *testing.T, prio int, id, id2, id3 uint16) {
	t.Helper()
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[0:], id)
	binary.LittleEndian.PutUint16(buf[2:], id2)
	binary.LittleEndian.PutUint16(buf[4:], id3)
	if err := f.mem.WriteAt(slotAddress(testArray, prio).Add(offSongID), buf); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) slot(prio int) ControlBlock {
	return decodeBlock(f.mem.Snapshot(slotAddress(testArray, prio), BlockSize))
}

func blocksWith(slots map[int][3]uint16) *Blocks {
	var b Blocks
	for prio, ids := range slots {
		b[prio] = ControlBlock{SongID: ids[0], SongIDSecondary: ids[1], SongIDTertiary: ids[2]}
	}
	return &b
}

func TestScan(t *testing.T) {
	tests := []struct {
		name     string
		slots    map[int][3]uint16
		prev     change
		wantSong uint16
		wantPrio int
		wantDrop bool
	}{
		{
			name:     "all empty",
			slots:    nil,
			wantSong: 0,
		},
		{
			name:     "primary zero skips slot",
			slots:    map[int][3]uint16{1: {0, 42, 42}},
			wantSong: 0,
		},
		{
			name:     "lowest index wins",
			slots:    map[int][3]uint16{2: {20, 20, 20}, 5: {50, 50, 50}},
			wantSong: 20,
			wantPrio: 2,
		},
		{
			name:     "sentinel never reported",
			slots:    map[int][3]uint16{4: {1, SentinelSongID, SentinelSongID}},
			wantSong: 0,
		},
		{
			name:     "sentinel falls through to lower priority",
			slots:    map[int][3]uint16{4: {1, SentinelSongID, 0}, 11: {300, 300, 300}},
			wantSong: 300,
			wantPrio: 11,
		},
		{
			name:     "secondary is authoritative over primary",
			slots:    map[int][3]uint16{3: {0x3EB, 7, 7}},
			wantSong: 7,
			wantPrio: 3,
		},
		{
			name:     "flicker drops the cycle",
			slots:    map[int][3]uint16{3: {77, 0, 77}, 5: {88, 88, 88}},
			prev:     change{priority: 3, songID: 77},
			wantDrop: true,
		},
		{
			name:     "flicker needs matching tertiary",
			slots:    map[int][3]uint16{3: {77, 0, 76}, 5: {88, 88, 88}},
			prev:     change{priority: 3, songID: 77},
			wantSong: 88,
			wantPrio: 5,
		},
		{
			name:     "flicker needs matching priority",
			slots:    map[int][3]uint16{3: {77, 0, 77}, 5: {88, 88, 88}},
			prev:     change{priority: 4, songID: 77},
			wantSong: 88,
			wantPrio: 5,
		},
		{
			name:     "no flicker after silence",
			slots:    map[int][3]uint16{0: {1, 0, 0}},
			prev:     change{priority: 0, songID: 0},
			wantSong: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := scan(blocksWith(tt.slots), tt.prev)
			if res.suppressed != tt.wantDrop {
				t.Fatalf("scan() suppressed = %v, want %v", res.suppressed, tt.wantDrop)
			}
			if tt.wantDrop {
				return
			}
			if res.songID != tt.wantSong || res.priority != tt.wantPrio {
				t.Errorf("scan() = song %d prio %d, want song %d prio %d",
					res.songID, res.priority, tt.wantSong, tt.wantPrio)
			}
		})
	}
}

func TestPoll_NotifiesOncePerChange(t *testing.T) {
	f := newFixture(t)
	f.setSlot(t, 11, 120, 120, 120)

	f.eng.Poll()
	f.eng.Poll()

	if len(f.seen) != 1 || f.seen[0] != 120 {
		t.Fatalf("notifications = %v, want [120]", f.seen)
	}
	if got := f.eng.CurrentSong(); got != 120 {
		t.Errorf("CurrentSong() = %d, want 120", got)
	}

	// stopping is a real change
	f.setSlot(t, 11, 0, 0, 0)
	f.eng.Poll()
	if len(f.seen) != 2 || f.seen[1] != 0 {
		t.Errorf("notifications = %v, want [120 0]", f.seen)
	}
}

func TestPoll_FlickerSuppressed(t *testing.T) {
	f := newFixture(t)
	f.setSlot(t, 3, 77, 77, 77)
	f.eng.Poll()
	if len(f.seen) != 1 {
		t.Fatalf("notifications = %v, want [77]", f.seen)
	}

	// secondary blips to zero while a lower priority has a valid candidate
	f.setSlot(t, 3, 77, 0, 77)
	f.setSlot(t, 5, 88, 88, 88)
	f.eng.Poll()

	if len(f.seen) != 1 {
		t.Errorf("notifications = %v, want no new notification", f.seen)
	}
	if got := f.eng.CurrentSong(); got != 77 {
		t.Errorf("CurrentSong() = %d, want 77", got)
	}

	// the blip ends and nothing changed
	f.setSlot(t, 3, 77, 77, 77)
	f.eng.Poll()
	if len(f.seen) != 1 {
		t.Errorf("notifications = %v, want no new notification", f.seen)
	}
}

func TestPoll_UnavailableArrayIsSilence(t *testing.T) {
	f := newFixture(t)
	f.setSlot(t, 0, 5, 5, 5)
	f.eng.Poll()

	f.mem.PutPointer(testRoot, 0)
	f.eng.Poll()

	if got := f.eng.CurrentSong(); got != 0 {
		t.Errorf("CurrentSong() = %d, want 0", got)
	}
	if len(f.seen) != 2 || f.seen[1] != 0 {
		t.Errorf("notifications = %v, want [5 0]", f.seen)
	}
}

func TestSetSong_ThenPoll(t *testing.T) {
	f := newFixture(t)

	if err := f.eng.SetSong(500, 0); err != nil {
		t.Fatalf("SetSong failed: %v", err)
	}
	f.eng.Poll()

	if got := f.eng.CurrentSong(); got != 500 {
		t.Errorf("CurrentSong() = %d, want 500", got)
	}
	if len(f.seen) != 1 || f.seen[0] != 500 {
		t.Errorf("notifications = %v, want [500]", f.seen)
	}

	b := f.slot(0)
	if b.SongID != 500 || b.SongIDSecondary != 500 || b.SongIDTertiary != 500 {
		t.Errorf("slot 0 ids = %d/%d/%d, want 500/500/500", b.SongID, b.SongIDSecondary, b.SongIDTertiary)
	}
	if b.TimerEnabled || b.Timer != 0 {
		t.Errorf("slot 0 timer = %v/%v, want cleared", b.TimerEnabled, b.Timer)
	}
}

func TestSetSong_RejectsBadPriority(t *testing.T) {
	for _, prio := range []int{-1, 12, 100} {
		f := newFixture(t)
		before := f.mem.Writes()

		err := f.eng.SetSong(42, prio)
		if !errors.Is(err, ErrPriorityOutOfRange) {
			t.Errorf("SetSong(42, %d) error = %v, want ErrPriorityOutOfRange", prio, err)
		}
		if f.mem.Writes() != before {
			t.Errorf("SetSong(42, %d) wrote to memory", prio)
		}
	}
}

func TestSetSong_UnavailableIsNoop(t *testing.T) {
	f := newFixture(t)
	f.mem.PutPointer(testObject.Add(0xC0), 0)
	before := f.mem.Writes()

	if err := f.eng.SetSong(42, 0); err != nil {
		t.Errorf("SetSong() error = %v, want nil", err)
	}
	if f.mem.Writes() != before {
		t.Error("SetSong() wrote to memory without an array")
	}
}

func TestStop_LeavesOtherBytesAlone(t *testing.T) {
	f := newFixture(t)
	f.setSlot(t, 4, 9, 9, 9)
	before := f.mem.Snapshot(testArray, SlotCount*BlockSize)

	if err := f.eng.Stop(4); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	after := f.mem.Snapshot(testArray, SlotCount*BlockSize)

	target := 4 * BlockSize
	if !bytes.Equal(before[:target], after[:target]) {
		t.Error("slots before the target changed")
	}
	if !bytes.Equal(before[target+BlockSize:], after[target+BlockSize:]) {
		t.Error("slots after the target changed")
	}

	// inside the target only the id fields, the enable flag and the timer move
	written := map[int]bool{}
	for i := offSongID; i <= offTimerEnabled; i++ {
		written[i] = true
	}
	for i := offTimer; i < offTimer+4; i++ {
		written[i] = true
	}
	for i := 0; i < BlockSize; i++ {
		if !written[i] && before[target+i] != after[target+i] {
			t.Errorf("byte 0x%02X of the target slot changed", i)
		}
	}

	b := f.slot(4)
	if b.SongID != 0 || b.SongIDSecondary != 0 || b.SongIDTertiary != 0 {
		t.Errorf("slot 4 ids = %d/%d/%d, want 0/0/0", b.SongID, b.SongIDSecondary, b.SongIDTertiary)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.setSlot(t, 0, 3, 3, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.eng.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.eng.CurrentSong() != 3 {
		if time.Now().After(deadline) {
			t.Fatal("Run never polled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestShuffle_Advances(t *testing.T) {
	f := newFixture(t)
	f.probe.audible = false

	if _, err := f.eng.StartShuffle([]uint16{10, 20, 30}); err != nil {
		t.Fatalf("StartShuffle failed: %v", err)
	}
	if got := f.slot(ShufflePriority).SongIDSecondary; got != 10 {
		t.Fatalf("first shuffle song = %d, want 10", got)
	}

	// track has not started yet: never advance, however long it takes
	f.clock.now = f.clock.now.Add(time.Hour)
	f.eng.Poll()
	if got := f.slot(ShufflePriority).SongIDSecondary; got != 10 {
		t.Fatalf("advanced before audio started, slot 0 = %d", got)
	}

	f.probe.audible = true
	f.eng.Poll()
	st, ok := f.eng.Shuffle()
	if !ok || st.Deadline.IsZero() {
		t.Fatalf("Shuffle() = %+v/%v, want running with deadline", st, ok)
	}

	f.clock.now = f.clock.now.Add(19 * time.Minute)
	f.eng.Poll()
	if got := f.slot(ShufflePriority).SongIDSecondary; got != 10 {
		t.Fatalf("advanced before interval, slot 0 = %d", got)
	}

	f.clock.now = f.clock.now.Add(2 * time.Minute)
	f.eng.Poll()
	if got := f.slot(ShufflePriority).SongIDSecondary; got != 20 {
		t.Fatalf("slot 0 = %d after interval, want 20", got)
	}

	// silence after the track was heard advances immediately
	f.eng.Poll() // hears 20
	f.probe.audible = false
	f.eng.Poll()
	if got := f.slot(ShufflePriority).SongIDSecondary; got != 30 {
		t.Fatalf("slot 0 = %d after silence, want 30", got)
	}

	// wraps to the start
	f.probe.audible = true
	f.eng.Poll()
	f.clock.now = f.clock.now.Add(21 * time.Minute)
	f.eng.Poll()
	if got := f.slot(ShufflePriority).SongIDSecondary; got != 10 {
		t.Fatalf("slot 0 = %d after wrap, want 10", got)
	}

	// shuffle itself never notifies; only polls do, once per distinct song
	want := []uint16{10, 20, 30}
	if len(f.seen) != len(want) {
		t.Fatalf("notifications = %v, want %v", f.seen, want)
	}
	for i := range want {
		if f.seen[i] != want[i] {
			t.Errorf("notifications = %v, want %v", f.seen, want)
			break
		}
	}
}

func TestShuffle_Stop(t *testing.T) {
	f := newFixture(t)
	if _, err := f.eng.StartShuffle([]uint16{10, 20}); err != nil {
		t.Fatal(err)
	}
	f.eng.Poll()

	if !f.eng.StopShuffle() {
		t.Error("StopShuffle() = false, want true")
	}
	if f.eng.StopShuffle() {
		t.Error("second StopShuffle() = true, want false")
	}

	before := f.mem.Writes()
	f.clock.now = f.clock.now.Add(time.Hour)
	f.eng.Poll()
	if f.mem.Writes() != before {
		t.Error("engine wrote after shuffle was stopped")
	}
}

func TestShuffle_EmptyPlaylist(t *testing.T) {
	f := newFixture(t)
	if _, err := f.eng.StartShuffle(nil); !errors.Is(err, ErrEmptyPlaylist) {
		t.Errorf("StartShuffle(nil) error = %v, want ErrEmptyPlaylist", err)
	}
}

func TestDump(t *testing.T) {
	f := newFixture(t)
	f.setSlot(t, 2, 1, 2, 3)
	before := f.mem.Writes()

	d := f.eng.Dump()
	if !d.Available || d.Base != testArray {
		t.Fatalf("Dump() available=%v base=%s, want true/%s", d.Available, d.Base, testArray)
	}
	if len(d.Slots) != SlotCount {
		t.Fatalf("Dump() has %d slots, want %d", len(d.Slots), SlotCount)
	}
	s := d.Slots[2]
	if s.PriorityIndex != 2 || s.SongID != 1 || s.SongIDSecondary != 2 || s.SongIDTertiary != 3 {
		t.Errorf("Dump() slot 2 = %+v", s)
	}
	if f.mem.Writes() != before {
		t.Error("Dump() wrote to memory")
	}

	f.mem.PutPointer(testRoot, 0)
	if d := f.eng.Dump(); d.Available || d.Slots != nil {
		t.Errorf("Dump() without array = %+v, want unavailable", d)
	}
}
