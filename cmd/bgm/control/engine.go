// Package control observes and overrides the game's BGM control blocks.
//
// An Engine polls the 12-slot priority array, reduces it to a single current
// song, and notifies registered handlers whenever that song changes. It also
// writes songs into slots and can drive a timed shuffle through a playlist.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gigurra/orchestrion/cmd/bgm/procmem"
)

var (
	ErrPriorityOutOfRange = errors.New("priority out of range")
	ErrEmptyPlaylist      = errors.New("playlist is empty")
)

const (
	DefaultPollInterval    = 2 * time.Second
	DefaultShuffleInterval = 20 * time.Minute
)

// Resolver yields the current control block array base, or false when the
// game has no array right now.
type Resolver interface {
	Resolve() (procmem.Address, bool)
}

// AudioProbe reports whether the game is currently producing audio.
type AudioProbe interface {
	Audible() bool
}

// Handler receives the new current song id. 0 means nothing is playing.
type Handler func(songID uint16)

// Config holds the engine settings.
type Config struct {
	PollInterval    time.Duration
	ShuffleInterval time.Duration
	// Probe gates shuffle advancement. nil means always audible.
	Probe AudioProbe
	// Now is the clock used for shuffle deadlines. nil means time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ShuffleInterval <= 0 {
		c.ShuffleInterval = DefaultShuffleInterval
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Engine is the BGM control engine.
//
// Poll and Run must be driven from a single goroutine; that goroutine is the
// only writer of the playback memory. SetSong, Stop, the shuffle controls and
// Dump are safe to call from anywhere.
type Engine struct {
	mem      procmem.Memory
	resolver Resolver
	cfg      Config

	mu       sync.Mutex
	current  uint16
	previous change
	handlers []Handler
	shuffle  *shuffleState
}

// New creates an Engine reading and writing through mem.
func New(mem procmem.Memory, resolver Resolver, cfg Config) *Engine {
	return &Engine{
		mem:      mem,
		resolver: resolver,
		cfg:      cfg.withDefaults(),
	}
}

// OnSongChanged registers h. Handlers run on the polling goroutine in
// registration order, so they see changes in poll order.
func (e *Engine) OnSongChanged(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
}

// CurrentSong returns the last reported song id.
func (e *Engine) CurrentSong() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Run polls until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		e.Poll()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll runs one poll cycle.
func (e *Engine) Poll() {
	var res scanResult

	e.mu.Lock()
	prev := e.previous
	e.mu.Unlock()

	if base, ok := e.resolver.Resolve(); ok {
		blocks, err := readBlocks(e.mem, base)
		if err != nil {
			slog.Debug("bgm array unreadable", "base", base, "error", err)
		} else {
			res = scan(&blocks, prev)
		}
	}

	if res.suppressed {
		slog.Debug("skipping transient song change", "priority", prev.priority, "song", prev.songID)
		return
	}

	e.publish(res)
	e.shuffleTick()
}

// publish records res and notifies handlers if the current song changed.
func (e *Engine) publish(res scanResult) {
	e.mu.Lock()
	if res.songID == e.current {
		e.mu.Unlock()
		return
	}
	e.current = res.songID
	e.previous = change{priority: res.priority, songID: res.songID}
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.Unlock()

	slog.Info("song changed", "song", res.songID, "priority", res.priority)
	for _, h := range handlers {
		h(res.songID)
	}
}

// SetSong forces songID into the slot for priority. Lower priorities override
// higher ones, 0 overrides everything. Writing 0 silences that slot.
//
// If the game has no array right now the call does nothing.
func (e *Engine) SetSong(songID uint16, priority int) error {
	if priority < 0 || priority >= SlotCount {
		return fmt.Errorf("%w: %d (want 0..%d)", ErrPriorityOutOfRange, priority, SlotCount-1)
	}

	base, ok := e.resolver.Resolve()
	if !ok {
		slog.Debug("bgm array unavailable, song not set", "song", songID, "priority", priority)
		return nil
	}

	if err := writeSong(e.mem, slotAddress(base, priority), songID); err != nil {
		slog.Debug("bgm slot write failed", "song", songID, "priority", priority, "error", err)
	}
	return nil
}

// Stop silences the slot for priority.
func (e *Engine) Stop(priority int) error {
	return e.SetSong(0, priority)
}
