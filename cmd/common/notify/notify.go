// Package notify sends desktop notifications.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"
)

const appTitle = "Orchestrion"

// Overridable for tests
var sendFunc = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

// NowPlayingMessage formats the announcement for a song title.
func NowPlayingMessage(title string) string {
	return fmt.Sprintf("Now playing %s.", title)
}

// NowPlaying shows a desktop notification for a song change.
func NowPlaying(title string) error {
	if title == "" {
		return nil
	}
	if err := sendFunc(appTitle, NowPlayingMessage(title)); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
