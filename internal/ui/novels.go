package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleNovels stores the novel list and restores the last opened novel.
func (m Model) handleNovels(msg novelsMsg) (tea.Model, tea.Cmd) {
	if isCanceled(msg.err) {
		return m, nil
	}
	m.store.SetNovels(msg.names, msg.err)
	m.refreshSnapshot()
	if msg.err != nil {
		m.logger.Warn("list novels failed", "error", msg.err)
		m.setNotice("novel list unavailable", true)
		return m, nil
	}
	m.novelsLoaded = true

	if !m.restoredNovel && m.prefs.LastNovel != "" {
		m.restoredNovel = true
		for i, name := range m.snapshot.Novels {
			if name == m.prefs.LastNovel {
				m.novelCursor = i
				break
			}
		}
	}
	return m, nil
}

// handleNovelsKey processes keyboard input for the novels view.
func (m Model) handleNovelsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Reload) {
		m.setNotice("", false)
		return m, m.loadNovelsCmd()
	}

	count := len(m.snapshot.Novels)
	if count == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.novelCursor < count-1 {
			m.novelCursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.novelCursor > 0 {
			m.novelCursor--
		}
	case key.Matches(msg, m.keys.Top):
		m.novelCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.novelCursor = count - 1
	case key.Matches(msg, m.keys.Open):
		return m.openNovel(m.snapshot.Novels[m.novelCursor])
	}

	return m, nil
}

// openNovel switches to the chapter list of name. Reopening the novel that is
// already loaded keeps its chapters and scroll position.
func (m Model) openNovel(name string) (tea.Model, tea.Cmd) {
	if name != m.snapshot.Novel {
		m.pager.Reset()
		m.store.SelectNovel(name)
		m.chapterCursor = 0
		m.chapterOffset = 0
		m.refreshSnapshot()
	}
	m.setView(ViewChapters)
	m.setNotice("", false)

	m.prefs.LastNovel = name
	m.savePrefs()

	// The first page is requested by the pager once the empty list's
	// sentinel row is observed in view.
	return m, m.syncPager()
}

// renderNovels renders the novel list.
func (m Model) renderNovels() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)
	width := m.boxInnerWidth()
	height := m.boxInnerHeight()

	title := fmt.Sprintf("Novels (%d)", len(m.snapshot.Novels))

	var lines []string
	switch {
	case len(m.snapshot.Novels) == 0 && !m.novelsLoaded && m.snapshot.LastError == nil:
		lines = append(lines, bg.Render("Loading novels...", styles.MutedText))
	case len(m.snapshot.Novels) == 0 && m.snapshot.LastError != nil:
		lines = append(lines, bg.Render("Could not load novels. Press r to retry.", styles.DangerText))
	case len(m.snapshot.Novels) == 0:
		lines = append(lines, bg.Render("No novels found", styles.MutedText))
	default:
		offset := scrollOffset(m.novelCursor, 0, height, len(m.snapshot.Novels))
		end := min(offset+height, len(m.snapshot.Novels))
		selectionBg := NewBgStyle(m.theme.SelectionBg)
		for i := offset; i < end; i++ {
			name := m.snapshot.Novels[i]
			marker := "  "
			if name == m.snapshot.Novel {
				marker = "• "
			}
			text := truncate(marker+name, width-1)
			if i == m.novelCursor {
				lines = append(lines, selectionBg.FillLine(
					selectionBg.Render(" "+text, styles.Text.Foreground(colorOf(m.theme.SelectionText)).Bold(true)), width))
				continue
			}
			lines = append(lines, bg.Render(" "+text, styles.Text))
		}
	}

	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
}

// scrollOffset returns the first visible row so that cursor stays in view,
// moving prev as little as possible.
func scrollOffset(cursor, prev, height, count int) int {
	if height <= 0 || count <= 0 {
		return 0
	}
	offset := prev
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+height {
		offset = cursor - height + 1
	}
	return max(min(offset, count-1), 0)
}
