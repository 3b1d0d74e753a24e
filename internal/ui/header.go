package ui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quill/internal/novel"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("quill", styles.Logo)}

	// Backend status indicator
	switch {
	case m.snapshot.IsOffline():
		parts = append(parts, bg.Render("● "+classifyConnectionError(m.snapshot.LastError), styles.DangerText.Bold(true)))
	case len(m.snapshot.Novels) > 0 || m.novelsLoaded:
		parts = append(parts, bg.Render("● "+m.backendHost(), styles.SuccessText))
	default:
		parts = append(parts, bg.Render("Connecting to "+m.backendHost()+"...", styles.WarningText.Bold(true)))
	}

	parts = append(parts,
		bg.Render("Novels:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", len(m.snapshot.Novels)), styles.Text))

	if m.snapshot.Novel != "" {
		limit := 24
		if compact {
			limit = 12
		}
		parts = append(parts, bg.Render(truncate(m.snapshot.Novel, limit), styles.AccentText))

		if parsing := len(m.snapshot.Parsing()); parsing > 0 {
			parsingStyle := lipgloss.NewStyle().Foreground(colorOf(m.theme.StatusColor(novel.StatusParsing)))
			label := "Parsing:"
			if compact {
				label = "P:"
			}
			parts = append(parts,
				bg.Render(label, styles.MutedText)+bg.Space()+
					bg.Render(fmt.Sprintf("%d", parsing), parsingStyle))
		}
	}

	if ts := m.formatTimestamp(); ts != "" && !compact {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	// Error indicator
	if m.snapshot.LastError != nil && !m.snapshot.IsOffline() {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(m.snapshot.LastError.Error(), maxErr), styles.DangerText))
	}

	// Transient notice (parse requests, page failures)
	if m.notice != "" {
		noticeStyle := styles.InfoText
		if m.noticeIsErr {
			noticeStyle = styles.WarningText
		}
		parts = append(parts,
			bg.Render("!", noticeStyle.Bold(true))+bg.Space()+
				bg.Render(truncate(m.notice, 40), noticeStyle))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// backendHost returns the API host for display.
func (m Model) backendHost() string {
	u, err := url.Parse(m.config.APIBase)
	if err != nil || u.Host == "" {
		return m.config.APIBase
	}
	return u.Host
}

// formatTimestamp formats the last update time with relative indicator.
func (m Model) formatTimestamp() string {
	last := m.snapshot.LastUpdated
	if last.IsZero() {
		return ""
	}

	timeSince := time.Since(last)
	timeStr := last.Format("15:04:05")

	switch {
	case timeSince < time.Minute:
		timeStr += " (now)"
	case timeSince < time.Hour:
		timeStr += fmt.Sprintf(" (%dm ago)", int(timeSince.Minutes()))
	case timeSince < 24*time.Hour:
		timeStr += fmt.Sprintf(" (%dh ago)", int(timeSince.Hours()))
	}

	return timeStr
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewChapters:
		commands = []cmd{
			{"enter", "Text"},
			{"p", "Parse"},
			{"r", "Reload"},
			{"j/k", "Navigate"},
			{"esc", "Novels"},
			{"l", "Logs"},
			{"?", "More"},
		}
	case ViewText:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"p", "Parse"},
			{"r", "Reload"},
			{"esc", "Chapters"},
			{"?", "More"},
		}
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"L", "Level"},
			{"/", "Search"},
			{"n/N", "Next/Prev"},
			{"r", "Reload"},
			{"1", "Novels"},
			{"?", "More"},
		}
	case ViewStats:
		commands = []cmd{
			{"r", "Reload"},
			{"1", "Novels"},
			{"l", "Logs"},
			{"?", "More"},
		}
	default: // ViewNovels
		commands = []cmd{
			{"enter", "Open"},
			{"r", "Reload"},
			{"j/k", "Navigate"},
			{"l", "Logs"},
			{"s", "Stats"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.currentView == ViewLogs && m.logState.searchQuery != "" {
		segments = append(segments, bg.Render("/"+truncate(m.logState.searchQuery, 18), styles.AccentText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}
