package control

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ShufflePriority is the slot shuffle mode writes into.
const ShufflePriority = 0

type shuffleState struct {
	id       string
	playlist []uint16
	cursor   int
	// awaitingAudio is set after each write until the probe hears the track.
	awaitingAudio bool
	deadline      time.Time
}

// ShuffleStatus describes an active shuffle session.
type ShuffleStatus struct {
	ID       string
	Length   int
	Cursor   int
	SongID   uint16
	Deadline time.Time // zero while waiting for the track to start
}

// StartShuffle plays playlist[0] at ShufflePriority and then advances through
// the playlist, wrapping at the end. The engine moves on when the shuffle
// interval has elapsed or the current track has fallen silent, but never
// before the previous track was heard.
//
// It replaces any running shuffle and returns the new session id.
func (e *Engine) StartShuffle(playlist []uint16) (string, error) {
	if len(playlist) == 0 {
		return "", ErrEmptyPlaylist
	}

	s := &shuffleState{
		id:            uuid.NewString(),
		playlist:      append([]uint16(nil), playlist...),
		awaitingAudio: true,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.shuffle = s
	slog.Info("shuffle started", "session", s.id, "songs", len(s.playlist), "song", s.playlist[0])
	return s.id, e.SetSong(s.playlist[0], ShufflePriority)
}

// StopShuffle ends shuffle mode. The song that is playing keeps playing.
// It reports whether a shuffle was running.
func (e *Engine) StopShuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shuffle == nil {
		return false
	}
	slog.Info("shuffle stopped", "session", e.shuffle.id)
	e.shuffle = nil
	return true
}

// Shuffle returns the status of the running shuffle, if any.
func (e *Engine) Shuffle() (ShuffleStatus, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.shuffle
	if s == nil {
		return ShuffleStatus{}, false
	}
	return ShuffleStatus{
		ID:       s.id,
		Length:   len(s.playlist),
		Cursor:   s.cursor,
		SongID:   s.playlist[s.cursor],
		Deadline: s.deadline,
	}, true
}

func (e *Engine) audible() bool {
	if e.cfg.Probe == nil {
		return true
	}
	return e.cfg.Probe.Audible()
}

// shuffleTick advances the shuffle if it is due. Called once per poll.
func (e *Engine) shuffleTick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.shuffle
	if s == nil {
		return
	}

	now := e.cfg.Now()
	audible := e.audible()

	if s.awaitingAudio {
		if !audible {
			return
		}
		s.awaitingAudio = false
		s.deadline = now.Add(e.cfg.ShuffleInterval)
		return
	}

	if audible && now.Before(s.deadline) {
		return
	}

	s.cursor++
	if s.cursor >= len(s.playlist) {
		s.cursor = 0 // wrap around
	}
	s.awaitingAudio = true
	s.deadline = time.Time{}

	next := s.playlist[s.cursor]
	slog.Info("shuffling to next song", "session", s.id, "song", next, "index", s.cursor, "silent", !audible)
	if err := e.SetSong(next, ShufflePriority); err != nil {
		slog.Error("shuffle write failed", "song", next, "error", err)
	}
}
