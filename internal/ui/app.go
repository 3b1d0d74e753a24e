package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/quill/internal/config"
	"github.com/five82/quill/internal/novel"
	"github.com/five82/quill/internal/prefs"
	"github.com/five82/quill/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewNovels View = iota
	ViewChapters
	ViewText
	ViewLogs
	ViewStats
)

// setView switches views. Leaving the chapter list suspends its pager.
func (m *Model) setView(v View) {
	if m.currentView == ViewChapters && v != ViewChapters {
		m.pager.Suspend()
	}
	m.currentView = v
}

// Watcher keeps chapters that are being parsed under observation.
type Watcher interface {
	Add(novelName string, chapters ...string)
	Watching(novelName string) []string
	StopAll()
}

// Options configures the UI.
type Options struct {
	Context      context.Context
	Client       novel.API
	Store        *state.Store
	Watcher      Watcher
	Config       *config.Config
	Prefs        prefs.Prefs
	PrefsPath    string
	Logger       *slog.Logger
	RefreshEvery time.Duration
	// Changes, when set, signals that the store was updated outside the UI
	// (by the chapter watcher). Sends should not block.
	Changes <-chan struct{}
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx          context.Context
	client       novel.API
	store        *state.Store
	watcher      Watcher
	config       *config.Config
	prefs        prefs.Prefs
	prefsPath    string
	logger       *slog.Logger
	refreshEvery time.Duration
	changes      <-chan struct{}
	keys         keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time
	notice      string
	noticeIsErr bool

	// Novels state
	novelCursor   int
	novelsLoaded  bool
	restoredNovel bool

	// Chapters state
	chapterCursor int
	chapterOffset int
	pager         *chapterPager

	// Text state
	textViewport viewport.Model
	textState    textState

	// Log state
	logViewport viewport.Model
	logState    logState

	// Stats state
	statsState statsState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	refreshEvery := opts.RefreshEvery
	if refreshEvery <= 0 {
		refreshEvery = DefaultUIInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}

	store := opts.Store
	if store == nil {
		store = &state.Store{}
	}

	p := opts.Prefs
	if p.Model == "" {
		p.Model = cfg.Model
	}

	return Model{
		ctx:          ctx,
		client:       opts.Client,
		store:        store,
		watcher:      opts.Watcher,
		config:       cfg,
		prefs:        p,
		prefsPath:    opts.PrefsPath,
		logger:       logger,
		refreshEvery: refreshEvery,
		changes:      opts.Changes,
		keys:         DefaultKeyMap(),
		theme:        GetTheme(p.Theme),
		currentView:  ViewNovels,
		snapshot:     store.Snapshot(),
		pager:        newChapterPager(),
		logState:     newLogState(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.refreshEvery),
		waitForChangeCmd(m.changes),
		m.loadNovelsCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.textViewport = viewport.New(m.boxInnerWidth(), m.boxInnerHeight())
			m.logViewport = viewport.New(m.boxInnerWidth(), m.logInnerHeight())
		}
		m.ready = true
		m.updateTextViewport()
		m.updateLogViewport()
		m.clampChapterScroll()
		return m, m.syncPager()

	case tickMsg:
		return m.handleTick()

	case storeChangedMsg:
		m.refreshSnapshot()
		return m, tea.Batch(waitForChangeCmd(m.changes), m.syncPager())

	case novelsMsg:
		return m.handleNovels(msg)

	case chaptersPageMsg:
		return m.handleChaptersPage(msg)

	case parseMsg:
		return m.handleParse(msg)

	case textMsg:
		m.handleText(msg)
		return m, nil

	case logsMsg:
		cmd := m.handleLogs(msg)
		return m, cmd

	case logStreamOpenedMsg:
		return m.handleLogStreamOpened(msg)

	case logEntryMsg:
		return m.handleLogEntry(msg)

	case logStreamClosedMsg:
		m.handleLogStreamClosed(msg)
		return m, nil

	case statsMsg:
		m.handleStats(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	// The search prompt owns the keyboard while it is open.
	if m.currentView == ViewLogs && m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopLogStream()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.updateTextViewport()
		m.logState.contentVersion++
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.ViewNovels):
		m.leaveLogs()
		m.setView(ViewNovels)
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		if m.currentView == ViewLogs {
			return m, nil
		}
		m.setView(ViewLogs)
		cmd := m.enterLogs()
		return m, cmd

	case key.Matches(msg, m.keys.ViewStats):
		m.leaveLogs()
		m.setView(ViewStats)
		cmd := m.loadStatsCmd()
		return m, cmd
	}

	switch m.currentView {
	case ViewNovels:
		return m.handleNovelsKey(msg)
	case ViewChapters:
		return m.handleChaptersKey(msg)
	case ViewText:
		return m.handleTextKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	case ViewStats:
		return m.handleStatsKey(msg)
	}

	return m, nil
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	// Snapshots are read synchronously so they are applied in order.
	m.refreshSnapshot()
	cmds := []tea.Cmd{tickCmd(m.refreshEvery), m.syncPager()}
	if m.currentView == ViewStats && m.statsState.due(m.config.PollInterval) {
		cmds = append(cmds, m.loadStatsCmd())
	}
	return m, tea.Batch(cmds...)
}

// applySnapshot adopts a new store snapshot and keeps cursors in range.
func (m *Model) applySnapshot(snapshot state.Snapshot) {
	m.snapshot = snapshot
	m.lastUpdated = time.Now()
	if n := len(snapshot.Novels); m.novelCursor >= n {
		m.novelCursor = max(n-1, 0)
	}
	m.clampChapterScroll()
}

// refreshSnapshot re-reads the store after a synchronous mutation.
func (m *Model) refreshSnapshot() {
	m.applySnapshot(m.store.Snapshot())
}

// setNotice shows a transient message in the header.
func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeIsErr = isErr
}

// savePrefs persists theme, last novel and model. Failures are logged only.
func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("save preferences failed", "path", m.prefsPath, "error", err)
	}
}

// requestContext bounds a single UI request.
func (m Model) requestContext() (context.Context, context.CancelFunc) {
	timeout := m.config.RequestTimeout
	if timeout <= 0 {
		timeout = RequestTimeout
	}
	return context.WithTimeout(m.ctx, timeout)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	// Header line 1: logo + status
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Header line 2: command bar
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	// Main content
	b.WriteString(m.renderContent())

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewNovels:
		return m.renderNovels()
	case ViewChapters:
		return m.renderChapters()
	case ViewText:
		return m.renderText()
	case ViewLogs:
		return m.renderLogs()
	case ViewStats:
		return m.renderStats()
	default:
		return ""
	}
}

// Layout helpers. Every view draws one titled box below the two header rows.

func (m Model) contentHeight() int {
	return max(m.height-chromeHeight, 3)
}

func (m Model) boxInnerWidth() int {
	return max(m.width-2, 1)
}

func (m Model) boxInnerHeight() int {
	return max(m.contentHeight()-2, 1)
}

// Messages

type tickMsg time.Time

type storeChangedMsg struct{}

type novelsMsg struct {
	names []string
	err   error
}

type chaptersPageMsg struct {
	novel    string
	page     int
	pageSize int
	items    []novel.Chapter
	err      error
}

type parseMsg struct {
	novel   string
	chapter string
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChangeCmd(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

func (m Model) loadNovelsCmd() tea.Cmd {
	if m.client == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		names, err := m.client.ListNovels(ctx)
		return novelsMsg{names: names, err: err}
	}
}

func (m Model) loadChaptersCmd(novelName string, page int) tea.Cmd {
	if m.client == nil {
		return nil
	}
	pageSize := m.config.PageSize
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		query := novel.ChapterQuery{}
		if pageSize > 0 {
			query = novel.ChapterQuery{Page: page, PageSize: pageSize}
		}
		result, err := m.client.ListChapters(ctx, novelName, query)
		return chaptersPageMsg{
			novel:    novelName,
			page:     page,
			pageSize: pageSize,
			items:    result.Items,
			err:      err,
		}
	}
}

func (m Model) parseCmd(novelName, chapter string) tea.Cmd {
	if m.client == nil {
		return nil
	}
	model := m.prefs.Model
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		err := m.client.ParseChapter(ctx, novelName, chapter, model)
		return parseMsg{novel: novelName, chapter: chapter, err: err}
	}
}

// isCanceled reports errors caused by the program shutting down.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if m.watcher != nil {
		m.watcher.StopAll()
	}
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
