package tui

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// QueryState is where a query stands in the batch
type QueryState int

const (
	QueryPending QueryState = iota
	QueryActive
	QueryDone
	QueryFailed
)

// QueryItem tracks one query of the batch
type QueryItem struct {
	Query      string
	Dir        string
	State      QueryState
	Downloaded int
	Pages      int
	Exhausted  bool
}

// DownloadItem is a recently attempted image
type DownloadItem struct {
	Counter int
	Link    string
	File    string
	Size    int64
	Error   error
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model for a crawl
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	queries      []*QueryItem
	current      int
	limit        int
	currentLink  string
	recent       []DownloadItem
	maxRecent    int
	failures     map[string]int
	backingOff   bool
	backoffUntil time.Time
	finished     bool
	finishErr    error

	totalDownloaded  int
	totalSize        int64
	sessionStartTime time.Time

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	onQuit func()

	mu sync.RWMutex
}

// NewModel creates a model for queries limited to limit images each
func NewModel(queries []string, limit int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colAccent)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	items := make([]*QueryItem, 0, len(queries))
	for _, q := range queries {
		items = append(items, &QueryItem{Query: q})
	}

	return Model{
		spinner:          s,
		progress:         p,
		queries:          items,
		current:          -1,
		limit:            limit,
		maxRecent:        8,
		failures:         make(map[string]int),
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// StartQuery marks query as the active one. Queries the model was not
// created with are appended.
func (m *Model) StartQuery(query, dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, q := range m.queries {
		if q.Query == query && q.State == QueryPending {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.queries = append(m.queries, &QueryItem{Query: query})
		idx = len(m.queries) - 1
	}

	m.current = idx
	m.queries[idx].State = QueryActive
	m.queries[idx].Dir = dir
	m.recent = nil
	m.backingOff = false
}

// IndexPage records a processed result page
func (m *Model) IndexPage(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.backingOff = false
	if q := m.active(); q != nil {
		q.Pages = page + 1
	}
}

// StartDownload records the link being fetched
func (m *Model) StartDownload(counter int, link string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentLink = link
}

// CompleteDownload records a saved image
func (m *Model) CompleteDownload(counter int, link, file string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentLink = ""
	m.totalDownloaded++
	m.totalSize += size
	if q := m.active(); q != nil {
		q.Downloaded++
	}
	m.pushRecent(DownloadItem{Counter: counter, Link: link, File: file, Size: size})
}

// FailDownload records a failed attempt of the given kind
func (m *Model) FailDownload(counter int, link, kind string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentLink = ""
	m.failures[kind]++
	m.pushRecent(DownloadItem{Counter: counter, Link: link, Error: err})
}

// BackOff records a pause after an empty page
func (m *Model) BackOff(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.backingOff = true
	m.backoffUntil = time.Now().Add(delay)
}

// FinishQuery records the outcome of the active query
func (m *Model) FinishQuery(query string, downloaded, pages int, exhausted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.backingOff = false
	for _, q := range m.queries {
		if q.Query == query && q.State == QueryActive {
			q.State = QueryDone
			q.Downloaded = downloaded
			q.Pages = pages
			q.Exhausted = exhausted
		}
	}
}

// Finish marks the batch complete; err is nil on success
func (m *Model) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finished = true
	m.finishErr = err
	if err != nil {
		if q := m.active(); q != nil && q.State == QueryActive {
			q.State = QueryFailed
		}
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := colText
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = colWarn
	case "SUCCESS":
		color = colOK
	case "INFO":
		color = colAccent
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// QueryProgress returns the fraction of the active query's limit reached
func (m *Model) QueryProgress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := m.active()
	if q == nil || m.limit <= 0 {
		return 0
	}
	return min(float64(q.Downloaded)/float64(m.limit), 1)
}

// Failures returns failure counts sorted by kind
func (m *Model) Failures() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.failures))
	for kind, n := range m.failures {
		out = append(out, fmt.Sprintf("%s: %d", kind, n))
	}
	sort.Strings(out)
	return out
}

func (m *Model) active() *QueryItem {
	if m.current < 0 || m.current >= len(m.queries) {
		return nil
	}
	return m.queries[m.current]
}

func (m *Model) pushRecent(item DownloadItem) {
	m.recent = append(m.recent, item)
	if len(m.recent) > m.maxRecent {
		m.recent = m.recent[len(m.recent)-m.maxRecent:]
	}
}

// FormatBytes formats bytes to human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
