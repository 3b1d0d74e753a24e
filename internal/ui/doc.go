// Package ui provides the quill terminal user interface.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds every piece of view state and
// is passed by value through Update, so anything that must outlive a copy
// (the chapter pager, the log subscription) lives behind a pointer.
//
// Data comes from two places. Backend requests run as tea.Cmds and return a
// message that is applied in Update. Chapter status polls run on the
// app.ChapterWatcher goroutines, write into state.Store and signal through
// Options.Changes; the model re-reads the store snapshot on that signal and
// on every refresh tick.
//
// # Views
//
//   - Novels: the novel list, reopened at the last novel used
//   - Chapters: chapters of the selected novel, loaded page by page
//   - Text: source text of one chapter
//   - Logs: recent backend logs followed by the live WebSocket stream
//   - Stats: totals per level and the most recent records
//
// # Lazy chapter loading
//
// The row below the last loaded chapter is a sentinel. It is the anchor of a
// visibility.Trigger observed through a visibility.Viewport whose bounds are
// the visible part of the list, grown by a few rows at the bottom. Every
// scroll, resize or page load reports the window again; when the sentinel
// enters it the next page is requested. A failed page stops the pager until
// the user retries with r.
//
// # Key Bindings
//
//   - 1: Novels, l: Logs, s: Log stats
//   - enter: Open novel or chapter, esc: Back
//   - p: Parse the selected chapter with the configured model
//   - r: Reload (retries a failed page)
//   - j/k, g/G, pgup/pgdown, ctrl+u/ctrl+d: Navigate
//   - Space: Toggle auto-tail, L: Cycle log level (logs view)
//   - /: Search logs, n/N: Next/previous match
//   - T: Cycle theme
//   - h or ?: Help
//   - q or Ctrl+C: Quit
package ui
