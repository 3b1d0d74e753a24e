package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Chapter and novel names are mostly CJK, where one rune takes two cells, so
// every width here is measured in terminal cells rather than runes.

// truncate shortens value to at most limit cells, adding an ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return ""
	}
	if runewidth.StringWidth(value) <= limit {
		return value
	}
	if limit <= 1 {
		return runewidth.Truncate(value, limit, "")
	}
	return runewidth.Truncate(value, limit, "…")
}

// truncateMiddle keeps both ends of value and elides the middle.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || value == "" {
		return ""
	}
	if runewidth.StringWidth(value) <= limit {
		return value
	}
	if limit <= 3 {
		return runewidth.Truncate(value, limit, "")
	}
	keep := limit - 1
	head := keep / 2
	tail := keep - head

	runes := []rune(value)
	end := len(runes)
	width := 0
	for end > 0 {
		w := runewidth.RuneWidth(runes[end-1])
		if width+w > tail {
			break
		}
		width += w
		end--
	}
	return runewidth.Truncate(value, head, "") + "…" + string(runes[end:])
}

// padRight pads s with spaces to width cells.
func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.FillRight(s, width)
}

// cellWidth reports how many terminal cells s occupies.
func cellWidth(s string) int {
	return runewidth.StringWidth(s)
}
