package ui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quill/internal/logstream"
	"github.com/five82/quill/internal/logtail"
	"github.com/five82/quill/internal/novel"
)

// logLevels is the order L cycles through.
var logLevels = []novel.LogLevel{
	novel.LevelAll,
	novel.LevelError,
	novel.LevelWarning,
	novel.LevelInfo,
	novel.LevelDebug,
}

// logState holds all log-related state.
type logState struct {
	rawLines []string
	level    novel.LogLevel
	follow   bool
	loading  bool
	fetchErr error

	// Live stream
	stream       *logstream.Subscription
	cancelStream context.CancelFunc
	streamErr    error
	streaming    bool

	// Search
	searchActive   bool
	searchQuery    string
	searchRegex    *regexp.Regexp
	searchInput    textinput.Model
	searchMatches  []int // Line indices that match
	searchMatchIdx int   // Current match index

	// Content caching - skip re-render when unchanged
	contentVersion uint64
	lastRendered   uint64
}

func newLogState() logState {
	ti := textinput.New()
	ti.Placeholder = "Search logs..."
	ti.CharLimit = 100
	ti.Prompt = "/"

	return logState{
		level:       novel.LevelAll,
		follow:      true,
		searchInput: ti,
	}
}

// Log messages

type logsMsg struct {
	level novel.LogLevel
	text  string
	err   error
}

type logStreamOpenedMsg struct {
	level  novel.LogLevel
	sub    *logstream.Subscription
	cancel context.CancelFunc
	err    error
}

type logEntryMsg struct {
	sub   *logstream.Subscription
	entry logstream.Entry
}

type logStreamClosedMsg struct {
	sub *logstream.Subscription
	err error
}

// enterLogs resets the buffer and loads recent logs. The live stream is
// opened once the initial fetch lands so lines are not duplicated, and keeps
// appending while auto-tail is paused.
func (m *Model) enterLogs() tea.Cmd {
	m.stopLogStream()
	m.logState.rawLines = nil
	m.logState.fetchErr = nil
	m.logState.streamErr = nil
	m.logState.loading = true
	m.logState.contentVersion++
	m.findSearchMatches()
	m.updateLogViewport()
	return m.fetchLogsCmd(m.logState.level)
}

// leaveLogs closes the stream when the logs view is hidden.
func (m *Model) leaveLogs() {
	if m.currentView == ViewLogs {
		m.stopLogStream()
	}
}

func (m *Model) stopLogStream() {
	if m.logState.cancelStream != nil {
		m.logState.cancelStream()
	}
	m.logState.cancelStream = nil
	m.logState.stream = nil
	m.logState.streaming = false
}

func (m Model) fetchLogsCmd(level novel.LogLevel) tea.Cmd {
	if m.client == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		text, err := m.client.FetchLogs(ctx, novel.LogFilter{Level: level, Limit: LogFetchLimit})
		return logsMsg{level: level, text: text, err: err}
	}
}

func (m Model) openLogStreamCmd(level novel.LogLevel) tea.Cmd {
	url := m.config.LogStreamURL()
	if url == "" {
		return nil
	}
	parent := m.ctx
	logger := m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(parent)
		sub, err := logstream.Subscribe(ctx, url, logstream.Options{Level: level, Logger: logger})
		if err != nil {
			cancel()
			return logStreamOpenedMsg{level: level, err: err}
		}
		return logStreamOpenedMsg{level: level, sub: sub, cancel: cancel}
	}
}

// waitLogEntryCmd delivers the next entry of sub, or its end.
func waitLogEntryCmd(sub *logstream.Subscription) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-sub.Entries
		if !ok {
			return logStreamClosedMsg{sub: sub, err: sub.Err()}
		}
		return logEntryMsg{sub: sub, entry: entry}
	}
}

// handleLogs loads a /logs response into the buffer.
func (m *Model) handleLogs(msg logsMsg) tea.Cmd {
	if msg.level != m.logState.level || m.currentView != ViewLogs || isCanceled(msg.err) {
		return nil
	}
	m.logState.loading = false
	m.logState.fetchErr = msg.err
	if msg.err != nil {
		m.logger.Warn("fetch logs failed", "error", msg.err)
	} else {
		lines, _ := logtail.Tail(strings.NewReader(msg.text), LogBufferLimit)
		m.logState.rawLines = logtail.Filter(lines, msg.level)
		m.logState.contentVersion++
		m.findSearchMatches()
	}
	m.updateLogViewport()
	return m.openLogStreamCmd(msg.level)
}

func (m Model) handleLogStreamOpened(msg logStreamOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.level != m.logState.level || m.currentView != ViewLogs || m.logState.streaming {
		if msg.cancel != nil {
			msg.cancel()
		}
		return m, nil
	}
	if msg.err != nil {
		m.logState.streamErr = msg.err
		m.logger.Warn("log stream unavailable", "error", msg.err)
		return m, nil
	}
	m.logState.stream = msg.sub
	m.logState.cancelStream = msg.cancel
	m.logState.streamErr = nil
	m.logState.streaming = true
	return m, waitLogEntryCmd(msg.sub)
}

func (m Model) handleLogEntry(msg logEntryMsg) (tea.Model, tea.Cmd) {
	if msg.sub != m.logState.stream {
		return m, nil
	}
	m.appendLogLines(msg.entry.Line())
	return m, waitLogEntryCmd(msg.sub)
}

func (m *Model) handleLogStreamClosed(msg logStreamClosedMsg) {
	if msg.sub != m.logState.stream {
		return
	}
	m.logState.streaming = false
	m.logState.stream = nil
	if m.logState.cancelStream != nil {
		m.logState.cancelStream()
		m.logState.cancelStream = nil
	}
	if msg.err != nil {
		m.logState.streamErr = msg.err
		m.logger.Warn("log stream closed", "error", msg.err)
	}
}

// appendLogLines adds lines to the buffer and keeps it bounded.
func (m *Model) appendLogLines(lines ...string) {
	m.logState.rawLines = append(m.logState.rawLines, lines...)
	m.logState.rawLines = trimLogBuffer(m.logState.rawLines, LogBufferLimit)
	m.logState.contentVersion++
	m.findSearchMatches()
	m.updateLogViewport()
}

// trimLogBuffer keeps only the last limit lines.
func trimLogBuffer(lines []string, limit int) []string {
	if limit <= 0 || len(lines) <= limit {
		return lines
	}
	return append([]string(nil), lines[len(lines)-limit:]...)
}

// logInnerHeight leaves one row under the box for the status line.
func (m Model) logInnerHeight() int {
	return max(m.contentHeight()-3, 1)
}

// updateLogViewport updates the log viewport with current content.
func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	m.logViewport.Width = m.boxInnerWidth()
	m.logViewport.Height = m.logInnerHeight()
	m.logViewport.Style = lipgloss.NewStyle().Background(colorOf(m.theme.FocusBg))

	// Only re-render content if it changed (version mismatch or first render)
	if m.logState.lastRendered == 0 || m.logState.contentVersion != m.logState.lastRendered {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.lastRendered = max(m.logState.contentVersion, 1)
	}

	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	bg := NewBgStyle(m.theme.Surface)
	styles := m.theme.Styles().WithBackground(m.theme.Surface)

	title := "Backend Log"
	if m.logState.level != novel.LevelAll {
		title = fmt.Sprintf("Backend Log (%s)", m.logState.level)
	}

	box := m.renderTitledBox(title, m.logViewport.View(), m.width, m.contentHeight()-1, true)
	return box + "\n" + bg.FillLine(m.renderLogStatus(styles, bg), m.width)
}

// renderLogStatus renders the line below the log box.
func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	if m.logState.searchActive {
		return m.logState.searchInput.View()
	}

	if m.logState.searchRegex != nil && len(m.logState.searchMatches) > 0 {
		matchNum := m.logState.searchMatchIdx + 1
		totalMatches := len(m.logState.searchMatches)
		return bg.Render(fmt.Sprintf("/%s", m.logState.searchQuery), styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", matchNum, totalMatches), styles.WarningText) +
			bg.Render(" - Press ", styles.FaintText) +
			bg.Render("n", styles.AccentText) +
			bg.Render(" for next, ", styles.FaintText) +
			bg.Render("N", styles.AccentText) +
			bg.Render(" for previous, ", styles.FaintText) +
			bg.Render("Esc", styles.AccentText) +
			bg.Render(" to clear", styles.FaintText)
	}

	if m.logState.searchRegex != nil {
		return bg.Render("Pattern not found: "+m.logState.searchQuery, styles.DangerText)
	}

	autoTail := "off"
	if m.logState.follow {
		autoTail = "on"
	}
	parts := []string{
		bg.Render(fmt.Sprintf("%d lines auto-tail %s", len(m.logState.rawLines), autoTail), styles.FaintText),
		bg.Render("level "+string(m.logState.level), styles.MutedText),
	}

	switch {
	case m.logState.streaming:
		parts = append(parts, bg.Render("● live", styles.SuccessText))
	case m.logState.streamErr != nil:
		parts = append(parts, bg.Render("stream: "+truncate(m.logState.streamErr.Error(), 48), styles.WarningText))
	}
	if m.logState.fetchErr != nil {
		parts = append(parts, bg.Render("fetch: "+truncate(m.logState.fetchErr.Error(), 48), styles.DangerText))
	}

	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return strings.Join(parts, sep)
}

// renderLogContent renders the colorized log lines.
func (m *Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.logViewport.Width

	if len(m.logState.rawLines) == 0 {
		msg := "No log entries"
		if m.logState.loading {
			msg = "Loading logs..."
		}
		return bg.FillLine(bg.Render(msg, styles.MutedText), width)
	}

	matchSet := make(map[int]bool, len(m.logState.searchMatches))
	for _, idx := range m.logState.searchMatches {
		matchSet[idx] = true
	}
	activeMatchLine := -1
	if len(m.logState.searchMatches) > 0 && m.logState.searchMatchIdx < len(m.logState.searchMatches) {
		activeMatchLine = m.logState.searchMatches[m.logState.searchMatchIdx]
	}

	textWidth := max(width-7, 1)
	var b strings.Builder
	for i, line := range m.logState.rawLines {
		gutter := fmt.Sprintf("%4d │ ", i+1)
		text := truncate(line, textWidth)

		var lineContent string
		switch {
		case i == activeMatchLine:
			highlight := lipgloss.NewStyle().
				Background(colorOf(m.theme.Warning)).
				Foreground(colorOf(m.theme.Background))
			lineContent = highlight.Render(gutter + text)
		case matchSet[i]:
			lineContent = bg.Render(gutter, styles.AccentText) + bg.Render(text, styles.AccentText)
		default:
			levelStyle := styles.Text.Foreground(colorOf(m.theme.LevelColor(logtail.ParseLevel(line))))
			lineContent = bg.Render(gutter, styles.FaintText) + bg.Render(text, levelStyle)
		}

		b.WriteString(bg.FillLine(lineContent, width))
		if i < len(m.logState.rawLines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// handleLogsKey processes keyboard input for logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		m.logState.level = nextLogLevel(m.logState.level)
		cmd := m.enterLogs()
		return m, cmd

	case key.Matches(msg, m.keys.Reload):
		cmd := m.enterLogs()
		return m, cmd

	case key.Matches(msg, m.keys.Search):
		m.logState.searchActive = true
		m.logState.searchInput.SetValue("")
		cmd := m.logState.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.NextMatch):
		m.stepSearchMatch(1)

	case key.Matches(msg, m.keys.PrevMatch):
		m.stepSearchMatch(-1)

	case key.Matches(msg, m.keys.Back):
		if m.logState.searchRegex != nil {
			m.clearLogSearch()
			m.updateLogViewport()
		}

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true

	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
		m.logState.follow = false

	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
		m.logState.follow = false

	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.PageDown()
		m.logState.follow = false

	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.PageUp()
		m.logState.follow = false
	}

	return m, nil
}

// handleLogSearchInput handles keyboard input during log search.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		query := m.logState.searchInput.Value()
		if query == "" {
			m.logState.searchActive = false
			m.logState.searchInput.Blur()
			return m, nil
		}

		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			// Invalid regex - stay in search mode
			return m, nil
		}

		m.logState.searchRegex = re
		m.logState.searchQuery = query
		m.logState.searchActive = false
		m.logState.searchInput.Blur()

		m.findSearchMatches()
		if len(m.logState.searchMatches) > 0 {
			m.logState.searchMatchIdx = 0
			m.scrollToSearchMatch()
		}
		m.updateLogViewport()
		return m, nil

	case tea.KeyEsc, tea.KeyCtrlC:
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.logState.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
	return m, cmd
}

// clearLogSearch clears the search state.
func (m *Model) clearLogSearch() {
	m.logState.searchRegex = nil
	m.logState.searchQuery = ""
	m.logState.searchMatches = nil
	m.logState.searchMatchIdx = 0
	m.logState.contentVersion++
}

// findSearchMatches finds all lines matching the current search regex.
func (m *Model) findSearchMatches() {
	m.logState.searchMatches = nil
	if m.logState.searchRegex == nil {
		return
	}
	for i, line := range m.logState.rawLines {
		if m.logState.searchRegex.MatchString(line) {
			m.logState.searchMatches = append(m.logState.searchMatches, i)
		}
	}
	if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		m.logState.searchMatchIdx = 0
	}
	m.logState.contentVersion++
}

// stepSearchMatch moves the active match forward or backward, wrapping.
func (m *Model) stepSearchMatch(delta int) {
	n := len(m.logState.searchMatches)
	if n == 0 {
		return
	}
	m.logState.searchMatchIdx = ((m.logState.searchMatchIdx+delta)%n + n) % n
	m.logState.contentVersion++
	m.scrollToSearchMatch()
	m.updateLogViewport()
}

// scrollToSearchMatch scrolls the viewport to show the current match.
func (m *Model) scrollToSearchMatch() {
	if len(m.logState.searchMatches) == 0 || m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		return
	}
	targetLine := m.logState.searchMatches[m.logState.searchMatchIdx]
	m.logState.follow = false
	m.logViewport.SetYOffset(max(targetLine-m.logViewport.Height/2, 0))
}

func nextLogLevel(current novel.LogLevel) novel.LogLevel {
	for i, level := range logLevels {
		if level == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return novel.LevelAll
}
