package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderLogo())

	leftColumn := m.renderLeftColumn()
	rightColumn := m.renderRightColumn()

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftColumn,
		"  ",
		rightColumn,
	)
	sections = append(sections, mainContent)

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to quit"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderLogo() string {
	logo := `
╔════════════════════════════════════════════╗
║   I M G C R A W L  ·  image dataset builder   ║
╚════════════════════════════════════════════╝`

	return logoStyle.Width(m.width).Render(logo)
}

func (m *Model) renderLeftColumn() string {
	width := (m.width - 4) / 2

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderCurrentPanel(width),
		m.renderQueuePanel(width),
	)
}

func (m *Model) renderRightColumn() string {
	width := (m.width - 4) / 2

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderRecentPanel(width),
		m.renderLogsPanel(width),
	)
}

// renderStatsPanel renders totals for the session
func (m *Model) renderStatsPanel(width int) string {
	failures := m.Failures()

	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" SESSION ")
	elapsed := time.Since(m.sessionStartTime)

	stats := []string{
		fmt.Sprintf("%s %s", fieldLabelStyle.Render("Elapsed:"), fieldValueStyle.Render(formatDuration(elapsed))),
		fmt.Sprintf("%s %s", fieldLabelStyle.Render("Downloaded:"), fieldValueStyle.Render(fmt.Sprintf("%d images", m.totalDownloaded))),
		fmt.Sprintf("%s %s", fieldLabelStyle.Render("Total Size:"), fieldValueStyle.Render(FormatBytes(m.totalSize))),
	}
	if len(failures) > 0 {
		stats = append(stats, fmt.Sprintf("%s %s", fieldLabelStyle.Render("Failures:"), errorStyle.Render(strings.Join(failures, ", "))))
	}

	switch {
	case m.finished && m.finishErr != nil:
		stats = append(stats, errorStyle.Render("✗ STOPPED"))
	case m.finished:
		stats = append(stats, successStyle.Render("✓ COMPLETE"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

// renderCurrentPanel renders the active query and its progress
func (m *Model) renderCurrentPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" CURRENT QUERY ")
	q := m.active()
	if q == nil || q.State != QueryActive {
		content := lipgloss.NewStyle().Foreground(colText).Render("Idle")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	lines := []string{
		fmt.Sprintf("%s %s", m.spinner.View(), queryRowActiveStyle.Render(q.Query)),
		fmt.Sprintf("%s %s", fieldLabelStyle.Render("Page:"), fieldValueStyle.Render(fmt.Sprintf("%d", q.Pages+1))),
		fmt.Sprintf("%s %d/%d", fieldLabelStyle.Render("Images:"), q.Downloaded, m.limit),
		m.progress.View(),
	}

	if m.backingOff {
		remaining := max(time.Until(m.backoffUntil), 0)
		lines = append(lines, GetBackoffStyle(remaining).Render("⏸  empty page, retrying in "+formatDuration(remaining)))
	} else if m.currentLink != "" {
		lines = append(lines, logMessageStyle.Render(truncate(m.currentLink, width-6)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, lines...)),
	)
}

// renderQueuePanel renders the list of queries
func (m *Model) renderQueuePanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" QUERIES ")

	var items []string
	for _, q := range m.queries {
		switch q.State {
		case QueryPending:
			items = append(items, queryRowStyle.Render("• "+q.Query))
		case QueryActive:
			items = append(items, queryRowActiveStyle.Render("▶ "+q.Query))
		case QueryDone:
			label := fmt.Sprintf("✓ %s (%d)", q.Query, q.Downloaded)
			if q.Exhausted {
				label += " exhausted"
			}
			items = append(items, queryRowDoneStyle.Render(label))
		case QueryFailed:
			items = append(items, errorStyle.Render("✗ "+q.Query))
		}
	}
	if len(items) == 0 {
		items = append(items, lipgloss.NewStyle().Foreground(colText).Render("No queries"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

// renderRecentPanel renders the latest download attempts
func (m *Model) renderRecentPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" RECENT ")

	var items []string
	for _, d := range m.recent {
		if d.Error != nil {
			items = append(items, errorStyle.Render(fmt.Sprintf("✗ #%d ", d.Counter))+
				logMessageStyle.Render(truncate(d.Link, width-12)))
			continue
		}
		items = append(items, successStyle.Render(fmt.Sprintf("✓ #%d ", d.Counter))+
			logMessageStyle.Render(fmt.Sprintf("%s %s", d.File, FormatBytes(d.Size))))
	}
	if len(items) == 0 {
		items = append(items, lipgloss.NewStyle().Foreground(colText).Render("Nothing yet..."))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LOGS ")

	start := max(len(m.logMessages)-10, 0)

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logMessageStyle.Render(truncate(log.Message, width-25))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(colText).Render("No logs yet...")
	}

	logsHeight := max(m.height-30, 5)

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop the crawl and quit
    ctrl+l   - Clear logs
    ?        - Toggle this help

  Status Indicators:
    ` + successStyle.Render("Green") + `    - Saved / complete
    ` + warningStyle.Render("Orange") + `   - Backing off
    ` + errorStyle.Render("Red") + `      - Failed
`

	return panelStyle.Width(m.width).Render(help)
}

// truncate shortens s to n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
