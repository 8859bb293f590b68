package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"imgcrawl/internal/downloader"
	"imgcrawl/pkg/crawler"
	errs "imgcrawl/pkg/errors"
)

// TUI renders a crawl full screen. It implements crawler.Observer, so the
// crawl goroutine can report to it while Run owns the terminal.
type TUI struct {
	program *tea.Program
	model   *Model
}

var _ crawler.Observer = (*TUI)(nil)

// NewTUI creates a TUI for the given queries. onQuit is called when the
// user quits, typically to cancel the crawl.
func NewTUI(queries []string, limit int, onQuit func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(queries, limit)
	model.onQuit = onQuit
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}

	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Run blocks until the user quits
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Done reports the end of the batch
func (t *TUI) Done(err error) {
	t.Send(BatchDoneMsg{Err: err})
}

func (t *TUI) QueryStarted(query, dir string, index, total int) {
	t.Send(QueryStartMsg{Query: query, Dir: dir, Index: index, Total: total})
}

func (t *TUI) PageIndexed(query string, page, links int) {
	t.Send(PageIndexedMsg{Page: page, Links: links})
}

func (t *TUI) DownloadStarted(query string, counter int, link string) {
	t.Send(DownloadStartMsg{Counter: counter, Link: link})
}

func (t *TUI) DownloadSucceeded(query string, counter int, res *downloader.Result) {
	msg := DownloadCompleteMsg{Counter: counter, Link: res.Link, Path: res.Path}
	if res.Info != nil {
		msg.Size = res.Info.Size
	}
	t.Send(msg)
}

func (t *TUI) DownloadFailed(query string, counter int, link string, err error) {
	t.Send(DownloadErrorMsg{Counter: counter, Link: link, Kind: string(errs.TypeOf(err)), Error: err})
}

func (t *TUI) BackingOff(query string, delay time.Duration) {
	t.Send(BackoffMsg{Delay: delay})
}

func (t *TUI) QueryFinished(res *crawler.Result) {
	t.Send(QueryDoneMsg{
		Query:      res.Query,
		Downloaded: res.Downloaded,
		Pages:      res.Pages,
		Exhausted:  res.Exhausted,
	})
}
