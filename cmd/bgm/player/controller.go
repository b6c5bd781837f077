// Package player is the user facing side of BGM control: it turns commands
// into engine calls, announces song changes and renders diagnostics.
package player

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/gigurra/orchestrion/cmd/bgm/control"
	"github.com/gigurra/orchestrion/cmd/common/config"
	"github.com/gigurra/orchestrion/cmd/common/songlist"
	"github.com/samber/lo"
)

// ErrDisabled is returned when the game could not be located at startup.
var ErrDisabled = errors.New("bgm control is disabled")

// Controller serves play, stop and shuffle requests. A Controller without an
// engine is disabled: every control call fails with ErrDisabled.
type Controller struct {
	engine *control.Engine
	songs  *songlist.List

	mu  sync.Mutex
	cfg *config.Config
}

// NewController creates a Controller. engine may be nil.
func NewController(engine *control.Engine, songs *songlist.List, cfg *config.Config) *Controller {
	return &Controller{
		engine: engine,
		songs:  songs,
		cfg:    cfg,
	}
}

// Enabled reports whether the controller has a working engine.
func (c *Controller) Enabled() bool {
	return c.engine != nil
}

// Apply swaps in a reloaded config.
func (c *Controller) Apply(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// TargetPriority returns the configured priority for manual selections.
func (c *Controller) TargetPriority() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.TargetPriority
}

// PlaySong plays songID at the configured target priority.
func (c *Controller) PlaySong(songID uint16) error {
	return c.PlaySongAt(songID, c.TargetPriority())
}

// PlaySongAt plays songID at priority. Any running shuffle is stopped first.
func (c *Controller) PlaySongAt(songID uint16, priority int) error {
	if c.engine == nil {
		return ErrDisabled
	}
	if err := checkPriority(priority); err != nil {
		return err
	}
	c.engine.StopShuffle()
	slog.Info("Playing song", "song", songID, "title", c.songs.Title(songID), "priority", priority)
	return c.engine.SetSong(songID, priority)
}

// StopSong clears the configured target priority.
func (c *Controller) StopSong() error {
	return c.StopSongAt(c.TargetPriority())
}

// StopSongAt stops any shuffle and clears priority.
func (c *Controller) StopSongAt(priority int) error {
	if c.engine == nil {
		return ErrDisabled
	}
	if err := checkPriority(priority); err != nil {
		return err
	}
	c.engine.StopShuffle()
	return c.engine.Stop(priority)
}

// checkPriority rejects a bad priority before anything else is touched.
func checkPriority(priority int) error {
	if priority < 0 || priority >= control.SlotCount {
		return fmt.Errorf("%w: %d (want 0..%d)", control.ErrPriorityOutOfRange, priority, control.SlotCount-1)
	}
	return nil
}

// Shuffle starts a shuffle over every known song, or only the favorites, in
// random order. It returns the shuffle session id.
func (c *Controller) Shuffle(favoritesOnly bool) (string, error) {
	if c.engine == nil {
		return "", ErrDisabled
	}
	return c.engine.StartShuffle(c.playlist(favoritesOnly))
}

// Unshuffle ends shuffle mode and reports whether one was running.
func (c *Controller) Unshuffle() (bool, error) {
	if c.engine == nil {
		return false, ErrDisabled
	}
	return c.engine.StopShuffle(), nil
}

func (c *Controller) playlist(favoritesOnly bool) []uint16 {
	var ids []int
	if favoritesOnly {
		c.mu.Lock()
		ids = append(ids, c.cfg.Favorites...)
		c.mu.Unlock()
	} else {
		ids = c.songs.IDs()
	}

	playlist := lo.FilterMap(lo.Uniq(ids), func(id int, _ int) (uint16, bool) {
		return uint16(id), id > 0 && id < control.SentinelSongID
	})
	rand.Shuffle(len(playlist), func(i, j int) {
		playlist[i], playlist[j] = playlist[j], playlist[i]
	})
	return playlist
}

// CurrentSong returns the current song id and its title ("" when unknown).
func (c *Controller) CurrentSong() (uint16, string) {
	if c.engine == nil {
		return 0, ""
	}
	id := c.engine.CurrentSong()
	return id, c.songs.Title(id)
}

// Dump returns a read-only snapshot of the control blocks.
func (c *Controller) Dump() (control.Diagnostics, error) {
	if c.engine == nil {
		return control.Diagnostics{}, ErrDisabled
	}
	return c.engine.Dump(), nil
}
