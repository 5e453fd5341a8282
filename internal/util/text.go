// Package util holds small text helpers shared by the TUI and the CLI.
package util

import (
	"fmt"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "…"

// Truncate shortens s to at most maxWidth terminal columns, keeping any
// escape sequences intact.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= ansi.StringWidth(Ellipsis) {
		return Ellipsis
	}
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// Wrap breaks s into lines no wider than width, preferring word boundaries.
// A non-positive width returns s unchanged.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Wordwrap(s, width, "-")
}

// Counter renders a "used/limit" character count, e.g. "12/200".
func Counter(s string, limit int) string {
	return fmt.Sprintf("%d/%d", utf8.RuneCountInString(s), limit)
}

// Plural returns "1 step" or "3 steps".
func Plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
