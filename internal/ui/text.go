package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quill/internal/novel"
)

// textState holds the chapter currently shown in the text view.
type textState struct {
	novel   string
	chapter string
	content string
	loading bool
	err     error
}

type textMsg struct {
	novel   string
	chapter string
	text    string
	err     error
}

// openText switches to the text view and fetches the chapter's source text.
func (m Model) openText(novelName, chapter string) (tea.Model, tea.Cmd) {
	m.setView(ViewText)
	m.textState = textState{novel: novelName, chapter: chapter, loading: true}
	m.updateTextViewport()
	m.textViewport.GotoTop()
	return m, m.loadTextCmd(novelName, chapter)
}

func (m Model) loadTextCmd(novelName, chapter string) tea.Cmd {
	if m.client == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		text, err := m.client.FetchChapterText(ctx, novelName, chapter)
		return textMsg{novel: novelName, chapter: chapter, text: text, err: err}
	}
}

// handleText stores fetched text if it is still the chapter on screen.
func (m *Model) handleText(msg textMsg) {
	if msg.novel != m.textState.novel || msg.chapter != m.textState.chapter || isCanceled(msg.err) {
		return
	}
	m.textState.loading = false
	m.textState.err = msg.err
	m.textState.content = msg.text
	if msg.err != nil {
		m.logger.Warn("fetch chapter text failed", "novel", msg.novel, "chapter", msg.chapter, "error", msg.err)
	}
	m.updateTextViewport()
	m.textViewport.GotoTop()
}

// updateTextViewport re-renders the text into the viewport.
func (m *Model) updateTextViewport() {
	if !m.ready {
		return
	}
	m.textViewport.Width = m.boxInnerWidth()
	m.textViewport.Height = m.boxInnerHeight()
	m.textViewport.Style = lipgloss.NewStyle().Background(colorOf(m.theme.FocusBg))
	m.textViewport.SetContent(m.renderTextContent())
}

func (m Model) renderTextContent() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)
	width := m.boxInnerWidth()

	switch {
	case m.textState.loading:
		return bg.Render("Loading text...", styles.MutedText)
	case m.textState.err != nil:
		return bg.Render("Could not load text: "+truncate(m.textState.err.Error(), width-22), styles.DangerText)
	case strings.TrimSpace(m.textState.content) == "":
		return bg.Render("This chapter has no text", styles.MutedText)
	}

	// Wrap by cell width; CJK paragraphs have no spaces to break on.
	wrap := styles.Text.Background(colorOf(m.theme.FocusBg)).Width(width)
	paragraphs := strings.Split(strings.ReplaceAll(m.textState.content, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		out = append(out, wrap.Render(p))
	}
	return strings.Join(out, "\n")
}

// handleTextKey processes keyboard input for the text view.
func (m Model) handleTextKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.setView(ViewChapters)
		return m, m.syncPager()
	case key.Matches(msg, m.keys.Reload):
		return m.openText(m.textState.novel, m.textState.chapter)
	case key.Matches(msg, m.keys.Parse):
		if ch, ok := m.snapshot.Chapter(m.textState.chapter); ok && ch.Status == novel.StatusParsing {
			m.setNotice(ch.Name+" is already parsing", false)
			return m, nil
		}
		m.setNotice("requesting parse of "+m.textState.chapter, false)
		return m, m.parseCmd(m.textState.novel, m.textState.chapter)
	case key.Matches(msg, m.keys.Down):
		m.textViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.textViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Top):
		m.textViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.textViewport.GotoBottom()
	case key.Matches(msg, m.keys.PageDown):
		m.textViewport.PageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.textViewport.PageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.textViewport.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.textViewport.HalfPageUp()
	}
	return m, nil
}

// renderText renders the chapter text view.
func (m Model) renderText() string {
	title := truncateMiddle(m.textState.chapter, max(m.width-20, 8))
	if m.textViewport.TotalLineCount() > m.textViewport.Height {
		title += " " + percentLabel(m.textViewport.ScrollPercent())
	}
	return m.renderTitledBox(title, m.textViewport.View(), m.width, m.contentHeight(), true)
}
