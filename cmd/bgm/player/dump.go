package player

import (
	"fmt"
	"io"
	"time"

	"github.com/gigurra/orchestrion/cmd/bgm/control"
	"github.com/gigurra/orchestrion/cmd/common"
	"github.com/gigurra/orchestrion/cmd/common/songlist"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderDump writes diagnostics as a table of all priority slots.
func RenderDump(w io.Writer, d control.Diagnostics, songs *songlist.List) {
	if !d.Available {
		fmt.Fprintln(w, "BGM control blocks unavailable (no array right now)")
	} else {
		fmt.Fprintf(w, "BGM control blocks at %s\n", d.Base)
	}
	fmt.Fprintf(w, "Current song: %s (priority %d)\n", songLabel(d.CurrentSongID, songs), d.ActivePriority)
	if s := d.Shuffle; s != nil {
		next := "waiting for audio"
		if !s.Deadline.IsZero() {
			next = "next at " + s.Deadline.Local().Format(time.TimeOnly)
		}
		fmt.Fprintf(w, "Shuffle %s: song %d/%d, %s\n", shortID(s.ID), s.Cursor+1, s.Length, next)
	}
	if !d.Available {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(common.TermWidth())
	t.AppendHeader(table.Row{"Prio", "Index", "Song", "Song 2", "Song 3", "Timer", "Block timer", "Title"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, WidthMax: 40},
	})

	for _, s := range d.Slots {
		timer := ""
		if s.TimerEnabled {
			timer = "on"
		}
		row := table.Row{s.Priority, s.PriorityIndex, s.SongID, s.SongIDSecondary, s.SongIDTertiary, timer, s.BlockTimer, songs.Title(slotTitleID(s))}
		t.AppendRow(row)
	}
	t.Render()
}

// slotTitleID picks the id to show a title for. The primary id can hold
// non-song values, so use the secondary, or the tertiary while the secondary
// is blank.
func slotTitleID(s control.SlotInfo) uint16 {
	if s.SongIDSecondary != 0 && s.SongIDSecondary != control.SentinelSongID {
		return s.SongIDSecondary
	}
	return s.SongIDTertiary
}

func songLabel(id uint16, songs *songlist.List) string {
	if id == 0 {
		return "none"
	}
	if title := songs.Title(id); title != "" {
		return fmt.Sprintf("%d %s", id, title)
	}
	return fmt.Sprintf("%d", id)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
