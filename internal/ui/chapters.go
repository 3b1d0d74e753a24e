package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/quill/internal/novel"
	"github.com/five82/quill/internal/visibility"
)

// chapterListHeight is the number of rows available to the chapter list.
func (m Model) chapterListHeight() int {
	return m.boxInnerHeight()
}

// clampChapterScroll keeps the cursor on a loaded row and the cursor row in
// view. The sentinel row counts towards the scrollable length so the user
// can always scroll it into view.
func (m *Model) clampChapterScroll() {
	rows := len(m.snapshot.Chapters)
	if m.chapterCursor >= rows {
		m.chapterCursor = max(rows-1, 0)
	}
	total := rows
	if m.snapshot.HasMore {
		total++
	}
	m.chapterOffset = scrollOffset(m.chapterCursor, m.chapterOffset, m.chapterListHeight(), total)
}

// syncPager reports the chapter list's visible window to the pager and
// returns a page request when the sentinel row has come into view.
func (m *Model) syncPager() tea.Cmd {
	if !m.ready || m.currentView != ViewChapters || m.snapshot.Novel == "" {
		return nil
	}
	window := visibility.Rect{
		X: 0,
		Y: m.chapterOffset,
		W: m.boxInnerWidth(),
		H: m.chapterListHeight(),
	}
	if !m.pager.Sync(len(m.snapshot.Chapters), m.snapshot.HasMore, window) {
		return nil
	}
	return m.loadChaptersCmd(m.snapshot.Novel, m.snapshot.NextPage)
}

// handleChaptersPage merges one page of chapters into the store.
func (m Model) handleChaptersPage(msg chaptersPageMsg) (tea.Model, tea.Cmd) {
	if msg.novel != m.snapshot.Novel || msg.page != m.snapshot.NextPage {
		// A page for a novel that is no longer open, or a duplicate.
		return m, nil
	}
	if isCanceled(msg.err) {
		m.pager.Failed()
		return m, nil
	}

	m.store.AppendChapters(msg.novel, msg.page, msg.items, msg.pageSize, msg.err)
	if msg.err != nil {
		m.pager.Failed()
		m.logger.Warn("load chapters failed", "novel", msg.novel, "page", msg.page, "error", msg.err)
		m.setNotice(fmt.Sprintf("chapters page %d failed", msg.page), true)
	} else {
		m.pager.Loaded()
		m.logger.Debug("chapters page loaded", "novel", msg.novel, "page", msg.page, "count", len(msg.items))
	}
	m.refreshSnapshot()

	// Chapters already parsing when they were listed are followed too.
	if m.watcher != nil {
		if parsing := m.snapshot.Parsing(); len(parsing) > 0 {
			m.watcher.Add(msg.novel, parsing...)
		}
	}
	return m, m.syncPager()
}

// handleParse records the outcome of a parse request.
func (m Model) handleParse(msg parseMsg) (tea.Model, tea.Cmd) {
	if isCanceled(msg.err) {
		return m, nil
	}
	if msg.err != nil {
		m.store.RecordError(fmt.Errorf("parse %s: %w", msg.chapter, msg.err))
		m.logger.Warn("parse request failed", "novel", msg.novel, "chapter", msg.chapter, "error", msg.err)
		m.setNotice("parse failed: "+msg.chapter, true)
		m.refreshSnapshot()
		return m, nil
	}

	m.store.SetStatus(msg.novel, msg.chapter, novel.StatusParsing)
	if m.watcher != nil {
		m.watcher.Add(msg.novel, msg.chapter)
	}
	m.logger.Info("parse requested", "novel", msg.novel, "chapter", msg.chapter, "model", m.prefs.Model)
	m.setNotice("parsing "+msg.chapter, false)
	m.refreshSnapshot()
	return m, nil
}

// handleChaptersKey processes keyboard input for the chapters view.
func (m Model) handleChaptersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := len(m.snapshot.Chapters)
	height := m.chapterListHeight()

	switch {
	case key.Matches(msg, m.keys.Back):
		m.setView(ViewNovels)
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		return m.reloadChapters()

	case key.Matches(msg, m.keys.Down):
		m.chapterCursor++
	case key.Matches(msg, m.keys.Up):
		m.chapterCursor--
	case key.Matches(msg, m.keys.Top):
		m.chapterCursor = 0
		m.chapterOffset = 0
	case key.Matches(msg, m.keys.Bottom):
		m.chapterCursor = rows - 1
		// Reveal the sentinel row below the last chapter as well.
		m.chapterOffset = max(rows+1-height, 0)
	case key.Matches(msg, m.keys.PageDown):
		m.chapterCursor += height
	case key.Matches(msg, m.keys.PageUp):
		m.chapterCursor -= height
	case key.Matches(msg, m.keys.HalfPageDown):
		m.chapterCursor += height / 2
	case key.Matches(msg, m.keys.HalfPageUp):
		m.chapterCursor -= height / 2

	case key.Matches(msg, m.keys.Open):
		if ch, ok := m.selectedChapter(); ok {
			return m.openText(m.snapshot.Novel, ch.Name)
		}
		return m, nil

	case key.Matches(msg, m.keys.Parse):
		ch, ok := m.selectedChapter()
		if !ok {
			return m, nil
		}
		if ch.Status == novel.StatusParsing {
			m.setNotice(ch.Name+" is already parsing", false)
			return m, nil
		}
		m.setNotice("requesting parse of "+ch.Name, false)
		return m, m.parseCmd(m.snapshot.Novel, ch.Name)

	default:
		return m, nil
	}

	m.chapterCursor = max(min(m.chapterCursor, rows-1), 0)
	m.clampChapterScroll()
	return m, m.syncPager()
}

// reloadChapters retries a failed page, or starts the list over.
func (m Model) reloadChapters() (tea.Model, tea.Cmd) {
	if m.pager.Failing() {
		m.pager.Retry()
		m.setNotice("", false)
		return m, m.syncPager()
	}
	name := m.snapshot.Novel
	m.pager.Reset()
	m.store.SelectNovel("")
	m.store.SelectNovel(name)
	m.chapterCursor = 0
	m.chapterOffset = 0
	m.refreshSnapshot()
	return m, m.syncPager()
}

// selectedChapter returns the chapter under the cursor.
func (m Model) selectedChapter() (novel.Chapter, bool) {
	if m.chapterCursor < 0 || m.chapterCursor >= len(m.snapshot.Chapters) {
		return novel.Chapter{}, false
	}
	return m.snapshot.Chapters[m.chapterCursor], true
}

// renderChapters renders the chapter list of the open novel.
func (m Model) renderChapters() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)
	width := m.boxInnerWidth()
	height := m.chapterListHeight()
	rows := len(m.snapshot.Chapters)

	count := fmt.Sprintf("%d", rows)
	if m.snapshot.HasMore {
		count += "+"
	}
	title := fmt.Sprintf("%s (%s chapters)", truncate(m.snapshot.Novel, max(width-24, 8)), count)

	var watched map[string]bool
	if m.watcher != nil {
		names := m.watcher.Watching(m.snapshot.Novel)
		watched = make(map[string]bool, len(names))
		for _, name := range names {
			watched[name] = true
		}
	}

	showProgress := m.width >= LayoutProgressWidth
	lines := make([]string, 0, height)
	for line := m.chapterOffset; line < m.chapterOffset+height; line++ {
		switch {
		case line < rows:
			lines = append(lines, m.renderChapterRow(m.snapshot.Chapters[line], line == m.chapterCursor,
				watched[m.snapshot.Chapters[line].Name], showProgress, width, styles, bg))
		case line == rows:
			if sentinel := m.renderSentinelRow(styles, bg); sentinel != "" {
				lines = append(lines, sentinel)
			}
		}
	}
	if rows == 0 && !m.snapshot.HasMore {
		lines = []string{bg.Render("No chapters", styles.MutedText)}
	}

	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
}

// renderChapterRow renders one chapter: status badge, name and progress.
func (m Model) renderChapterRow(ch novel.Chapter, selected, watched, showProgress bool, width int, styles Styles, bg BgStyle) string {
	rowBg := bg
	textStyle := styles.Text
	if selected {
		rowBg = NewBgStyle(m.theme.SelectionBg)
		textStyle = styles.Text.Foreground(colorOf(m.theme.SelectionText)).Bold(true)
	}

	statusStyle := styles.Text.Foreground(colorOf(m.theme.StatusColor(ch.Status)))
	badge := padRight(ch.Status.Label(), 9)

	var progress string
	if showProgress && ch.Status == novel.StatusParsing {
		progress = fmt.Sprintf("%3.0f%%", ch.Percent())
	}
	marker := " "
	if watched {
		marker = "↻"
	}

	nameWidth := width - cellWidth(badge) - 4
	if progress != "" {
		nameWidth -= cellWidth(progress) + 1
	}
	name := padRight(truncate(ch.Name, nameWidth), max(nameWidth, 0))

	row := rowBg.Space() + rowBg.Render(badge, statusStyle) + rowBg.Space() +
		rowBg.Render(name, textStyle) + rowBg.Space()
	if progress != "" {
		row += rowBg.Render(progress, styles.AccentText) + rowBg.Space()
	}
	row += rowBg.Render(marker, styles.InfoText)
	return rowBg.FillLine(row, width)
}

// renderSentinelRow renders the row below the last loaded chapter.
func (m Model) renderSentinelRow(styles Styles, bg BgStyle) string {
	switch {
	case !m.snapshot.HasMore:
		return ""
	case m.pager.Failing():
		return bg.Render(" Loading chapters failed. Press r to retry.", styles.DangerText)
	default:
		return bg.Render(" Loading more chapters...", styles.MutedText)
	}
}
