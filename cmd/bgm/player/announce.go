package player

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gigurra/orchestrion/cmd/common"
	"github.com/gigurra/orchestrion/cmd/common/config"
	"github.com/gigurra/orchestrion/cmd/common/notify"
	"github.com/gigurra/orchestrion/cmd/common/songlist"
)

var titleStyle = lipgloss.NewStyle().Italic(true)

// Announcer reacts to song changes: it prints "Now playing <title>.",
// optionally raises a desktop notification and records the state file.
// Songs without a known title are recorded but not announced.
type Announcer struct {
	songs *songlist.List
	out   io.Writer
	width func() int

	mu             sync.Mutex
	showNowPlaying bool
	notifications  bool

	// Overridable for tests
	notify func(title string) error
	now    func() time.Time
}

// NewAnnouncer creates an Announcer printing to out.
func NewAnnouncer(songs *songlist.List, out io.Writer, cfg *config.Config) *Announcer {
	a := &Announcer{
		songs:  songs,
		out:    out,
		width:  common.TermWidth,
		notify: notify.NowPlaying,
		now:    time.Now,
	}
	a.Apply(cfg)
	return a
}

// Apply picks up announcement settings from a reloaded config.
func (a *Announcer) Apply(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.showNowPlaying = cfg.ShowNowPlaying
	a.notifications = cfg.Notifications
}

// SongChanged is a control.Handler.
func (a *Announcer) SongChanged(songID uint16) {
	title := a.songs.Title(songID)

	if err := SaveState(State{SongID: songID, Title: title, Updated: a.now()}); err != nil {
		slog.Warn("Failed to save state", "error", err)
	}

	if songID == 0 {
		slog.Info("Music stopped")
		return
	}
	if title == "" {
		slog.Debug("No title for song", "song", songID)
		return
	}

	a.mu.Lock()
	show, notifications := a.showNowPlaying, a.notifications
	a.mu.Unlock()

	slog.Info("Now playing", "song", songID, "title", title)
	if show {
		fmt.Fprintln(a.out, a.line(title))
	}
	if notifications {
		if err := a.notify(title); err != nil {
			slog.Warn("Notification failed", "error", err)
		}
	}
}

func (a *Announcer) line(title string) string {
	const prefix, suffix = "Now playing ", "."
	maxTitle := a.width() - len(prefix) - len(suffix)
	if maxTitle < 10 {
		maxTitle = 10
	}
	return prefix + titleStyle.Render(common.Truncate(title, maxTitle)) + suffix
}
