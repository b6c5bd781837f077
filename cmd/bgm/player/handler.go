package player

import (
	"log/slog"
	"time"

	"github.com/gigurra/orchestrion/cmd/common/inbox"
)

// HandleMessage executes one inbox command.
func (c *Controller) HandleMessage(msg inbox.Message) {
	log := slog.With("message", msg.ID, "type", msg.Type)

	var err error
	switch msg.Type {
	case inbox.TypePlay:
		var p inbox.PlayPayload
		if err = msg.Decode(&p); err != nil {
			break
		}
		if p.Priority != nil {
			err = c.PlaySongAt(p.SongID, *p.Priority)
		} else {
			err = c.PlaySong(p.SongID)
		}

	case inbox.TypeStop:
		var p inbox.StopPayload
		if err = msg.Decode(&p); err != nil {
			break
		}
		if p.Priority != nil {
			err = c.StopSongAt(*p.Priority)
		} else {
			err = c.StopSong()
		}

	case inbox.TypeShuffle:
		var p inbox.ShufflePayload
		if err = msg.Decode(&p); err != nil {
			break
		}
		var id string
		if id, err = c.Shuffle(p.FavoritesOnly); err == nil {
			log.Info("Shuffle session started", "session", id, "favorites", p.FavoritesOnly)
		}

	case inbox.TypeUnshuffle:
		var stopped bool
		if stopped, err = c.Unshuffle(); err == nil && !stopped {
			log.Info("No shuffle running")
		}

	case inbox.TypeDump:
		d, dumpErr := c.Dump()
		out := DumpFile{RequestID: msg.ID, Taken: time.Now(), Diagnostics: d}
		if dumpErr != nil {
			out.Error = dumpErr.Error()
		}
		err = SaveDump(out)

	default:
		log.Warn("Unknown message type")
		return
	}

	if err != nil {
		log.Error("Command failed", "error", err)
	}
}
