package tui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the TUI

// QueryStartMsg is sent when a query begins
type QueryStartMsg struct {
	Query string
	Dir   string
	Index int
	Total int
}

// PageIndexedMsg is sent after a result page yields links
type PageIndexedMsg struct {
	Page  int
	Links int
}

// DownloadStartMsg is sent when an image fetch begins
type DownloadStartMsg struct {
	Counter int
	Link    string
}

// DownloadCompleteMsg is sent when an image is saved
type DownloadCompleteMsg struct {
	Counter int
	Link    string
	Path    string
	Size    int64
}

// DownloadErrorMsg is sent when an image fetch fails
type DownloadErrorMsg struct {
	Counter int
	Link    string
	Kind    string
	Error   error
}

// BackoffMsg is sent when an empty page pauses the crawl
type BackoffMsg struct {
	Delay time.Duration
}

// QueryDoneMsg is sent when a query finishes
type QueryDoneMsg struct {
	Query      string
	Downloaded int
	Pages      int
	Exhausted  bool
}

// BatchDoneMsg is sent once the whole batch has ended
type BatchDoneMsg struct {
	Err error
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(msg.Width/2-12, 10)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		if p, ok := pm.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case QueryStartMsg:
		m.StartQuery(msg.Query, msg.Dir)
		m.AddLogMessage("INFO", fmt.Sprintf("Downloading images for %q to %s", msg.Query, msg.Dir))
		return m, m.progress.SetPercent(0)

	case PageIndexedMsg:
		m.IndexPage(msg.Page)
		m.AddLogMessage("INFO", fmt.Sprintf("Indexed %d images on page %d", msg.Links, msg.Page+1))
		return m, nil

	case DownloadStartMsg:
		m.StartDownload(msg.Counter, msg.Link)
		return m, nil

	case DownloadCompleteMsg:
		m.CompleteDownload(msg.Counter, msg.Link, filepath.Base(msg.Path), msg.Size)
		return m, m.progress.SetPercent(m.QueryProgress())

	case DownloadErrorMsg:
		m.FailDownload(msg.Counter, msg.Link, msg.Kind, msg.Error)
		m.AddLogMessage("ERROR", fmt.Sprintf("#%d %s: %v", msg.Counter, msg.Link, msg.Error))
		return m, nil

	case BackoffMsg:
		m.BackOff(msg.Delay)
		m.AddLogMessage("WARN", fmt.Sprintf("Empty page, waiting %s", msg.Delay))
		return m, nil

	case QueryDoneMsg:
		m.FinishQuery(msg.Query, msg.Downloaded, msg.Pages, msg.Exhausted)
		if msg.Exhausted {
			m.AddLogMessage("WARN", fmt.Sprintf("No more images are available for %q", msg.Query))
		}
		m.AddLogMessage("SUCCESS", fmt.Sprintf("Done. Downloaded %d images for %q", msg.Downloaded, msg.Query))
		return m, nil

	case BatchDoneMsg:
		m.Finish(msg.Err)
		if msg.Err != nil {
			m.AddLogMessage("ERROR", msg.Err.Error())
		} else {
			m.AddLogMessage("SUCCESS", "Batch complete, press q to exit")
		}
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
