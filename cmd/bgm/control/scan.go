package control

// change is the slot/song pair behind the last emitted notification.
type change struct {
	priority int
	songID   uint16
}

// scanResult is the outcome of one pass over the array.
type scanResult struct {
	songID   uint16
	priority int
	// suppressed means the whole cycle must be dropped.
	suppressed bool
}

// scan finds the audible song. Slots are visited strictly in ascending
// priority order and the first slot with a real secondary id wins.
//
// A slot whose secondary id blips to 0 while its tertiary id still holds the
// previously reported song is a known transient (overlaid zone music does
// this every few seconds). Seeing it discards the cycle entirely.
func scan(blocks *Blocks, prev change) scanResult {
	for prio := 0; prio < SlotCount; prio++ {
		b := &blocks[prio]

		// 0 here means this priority is not playing, whatever the other ids say
		if b.SongID == 0 {
			continue
		}

		if prio == prev.priority && b.SongIDSecondary == 0 &&
			prev.songID != 0 && b.SongIDTertiary == prev.songID {
			return scanResult{suppressed: true}
		}

		if isSong(b.SongIDSecondary) {
			return scanResult{songID: b.SongIDSecondary, priority: prio}
		}
	}
	return scanResult{}
}

func isSong(id uint16) bool {
	return id != 0 && id != SentinelSongID
}
