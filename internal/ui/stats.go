package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/five82/quill/internal/logtail"
	"github.com/five82/quill/internal/novel"
)

// statsMinInterval keeps the stats view from hammering /logs/stats.
const statsMinInterval = 5 * time.Second

// statsState holds the last /logs/stats response.
type statsState struct {
	stats     *novel.LogStats
	err       error
	loading   bool
	fetchedAt time.Time
}

type statsMsg struct {
	stats novel.LogStats
	err   error
	at    time.Time
}

// due reports whether a refresh should be issued.
func (s statsState) due(interval time.Duration) bool {
	if s.loading {
		return false
	}
	return time.Since(s.fetchedAt) >= max(interval, statsMinInterval)
}

func (m *Model) loadStatsCmd() tea.Cmd {
	if m.client == nil || m.statsState.loading {
		return nil
	}
	m.statsState.loading = true
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		stats, err := m.client.FetchLogStats(ctx)
		return statsMsg{stats: stats, err: err, at: time.Now()}
	}
}

func (m *Model) handleStats(msg statsMsg) {
	m.statsState.loading = false
	m.statsState.fetchedAt = msg.at
	if isCanceled(msg.err) {
		return
	}
	m.statsState.err = msg.err
	if msg.err != nil {
		m.logger.Warn("fetch log stats failed", "error", msg.err)
		return
	}
	stats := msg.stats
	m.statsState.stats = &stats
}

// handleStatsKey processes keyboard input for the stats view.
func (m Model) handleStatsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Reload):
		cmd := m.loadStatsCmd()
		return m, cmd
	case key.Matches(msg, m.keys.Back):
		m.setView(ViewNovels)
	}
	return m, nil
}

// renderStats renders totals per level and the most recent records.
func (m Model) renderStats() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)
	width := m.boxInnerWidth()
	height := m.boxInnerHeight()

	var lines []string
	switch {
	case m.statsState.stats == nil && m.statsState.err != nil:
		lines = append(lines, bg.Render("Could not load log stats: "+truncate(m.statsState.err.Error(), width-28), styles.DangerText))
	case m.statsState.stats == nil:
		lines = append(lines, bg.Render("Loading log stats...", styles.MutedText))
	default:
		lines = m.renderStatsLines(*m.statsState.stats, width, styles, bg)
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	title := "Log Stats"
	if !m.statsState.fetchedAt.IsZero() {
		title += " · " + humanize.Time(m.statsState.fetchedAt)
	}
	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
}

func (m Model) renderStatsLines(stats novel.LogStats, width int, styles Styles, bg BgStyle) []string {
	lines := []string{
		bg.Render("Total", styles.MutedText) + bg.Space() +
			bg.Render(humanize.Comma(int64(stats.Total)), styles.Text.Bold(true)),
		"",
	}

	for _, entry := range sortedLevelCounts(stats.ByLevel) {
		level := logtail.ParseLevel(strings.ToUpper(entry.level))
		levelStyle := styles.Text.Foreground(colorOf(m.theme.LevelColor(level)))
		lines = append(lines,
			bg.Render(padRight(strings.ToUpper(entry.level), 10), levelStyle.Bold(true))+
				bg.Render(fmt.Sprintf("%8s", humanize.Comma(int64(entry.count))), styles.Text))
	}

	if len(stats.Recent) == 0 {
		return lines
	}
	lines = append(lines, "", bg.Render("Recent", styles.AccentText.Bold(true)))
	for _, rec := range stats.Recent {
		when := rec.Timestamp
		if t := rec.ParsedTime(); !t.IsZero() {
			when = humanize.Time(t)
		}
		level := logtail.ParseLevel(strings.ToUpper(rec.Level))
		levelStyle := styles.Text.Foreground(colorOf(m.theme.LevelColor(level)))
		prefix := padRight(truncate(when, 16), 16) + " " + padRight(strings.ToUpper(rec.Level), 8) + " "
		message := truncate(rec.Message, max(width-cellWidth(prefix), 1))
		lines = append(lines,
			bg.Render(padRight(truncate(when, 16), 16), styles.FaintText)+bg.Space()+
				bg.Render(padRight(strings.ToUpper(rec.Level), 8), levelStyle)+bg.Space()+
				bg.Render(message, styles.Text))
	}
	return lines
}

type levelCount struct {
	level string
	count int
}

// sortedLevelCounts orders levels by severity, unknown levels last by name.
func sortedLevelCounts(byLevel map[string]int) []levelCount {
	rank := map[string]int{"critical": 0, "error": 1, "warning": 2, "warn": 2, "info": 3, "debug": 4}
	out := make([]levelCount, 0, len(byLevel))
	for level, count := range byLevel {
		out = append(out, levelCount{level: level, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iok := rank[strings.ToLower(out[i].level)]
		rj, jok := rank[strings.ToLower(out[j].level)]
		switch {
		case iok && jok && ri != rj:
			return ri < rj
		case iok != jok:
			return iok
		}
		return out[i].level < out[j].level
	})
	return out
}
