package common

import (
	"os"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// TermWidth returns the terminal width, falling back to 120.
func TermWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	if width, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil && width > 0 {
		return width
	}
	return 120
}

// Truncate shortens s to at most maxWidth display cells, ending with "…".
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "…")
}
