package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"imgcrawl/internal/downloader"
	"imgcrawl/pkg/crawler"
	errs "imgcrawl/pkg/errors"
)

// ProgressDisplay prints crawl progress to a writer. In verbose mode every
// page and image gets its own line; otherwise a single status line is
// redrawn in place.
type ProgressDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	width   func() int
	tracker *StatusTracker

	query string
	bytes int64
}

// NewProgressDisplay creates a display for queries limited to limit images each
func NewProgressDisplay(out io.Writer, limit int, verbose bool) *ProgressDisplay {
	p := &ProgressDisplay{
		out:     out,
		verbose: verbose,
		width:   TerminalWidth,
		tracker: NewStatusTracker(),
	}
	p.tracker.QueryLimit = limit
	return p
}

var _ crawler.Observer = (*ProgressDisplay)(nil)

// SetWidth overrides how the separator width is measured
func (p *ProgressDisplay) SetWidth(fn func() int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = fn
}

func (p *ProgressDisplay) QueryStarted(query, dir string, index, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.query = query
	p.tracker.StartQuery(p.tracker.QueryLimit)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if total > 1 {
		fmt.Fprintf(p.out, "%s %s\n", Magenta(fmt.Sprintf("[%d/%d]", index+1, total)), Cyan(query))
	}
	fmt.Fprintf(p.out, "[%%] Downloading Images to %s\n", dir)
}

func (p *ProgressDisplay) PageIndexed(query string, page, links int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.verbose {
		return
	}
	fmt.Fprintf(p.out, "\n\n%s\n\n", Magenta(fmt.Sprintf("[!!]Indexing page: %d", page+1)))
	fmt.Fprintf(p.out, "[%%] Indexed %d Images on Page %d.\n", links, page+1)
	fmt.Fprintf(p.out, "\n%s\n\n", Dim(Separator(p.width())))
}

func (p *ProgressDisplay) DownloadStarted(query string, counter int, link string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.verbose {
		fmt.Fprintf(p.out, "[%%] Downloading Image #%d from %s\n", counter, link)
	}
}

func (p *ProgressDisplay) DownloadSucceeded(query string, counter int, res *downloader.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.IncrementDownloaded()
	if res.Info != nil {
		p.bytes += res.Info.Size
	}
	if p.verbose {
		fmt.Fprintf(p.out, "%s\n\n", Green("[%] File Downloaded !"))
		return
	}
	p.printStatus()
}

func (p *ProgressDisplay) DownloadFailed(query string, counter int, link string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.IncrementFailed()
	if !p.verbose {
		p.printStatus()
		return
	}
	if errs.IsType(err, errs.ErrorTypeValidation) {
		fmt.Fprintf(p.out, "%s\n\n", Red(fmt.Sprintf("[Error]Invalid image, not saving %s", link)))
		return
	}
	fmt.Fprintf(p.out, "%s\n", Red(fmt.Sprintf("[!] Issue getting: %s\n[!] Error:: %v", link, err)))
}

func (p *ProgressDisplay) BackingOff(query string, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.verbose {
		fmt.Fprintf(p.out, "%s\n", Yellow(fmt.Sprintf("[%%] Empty page, waiting %s before retrying", FormatDuration(delay))))
	}
}

func (p *ProgressDisplay) QueryFinished(res *crawler.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.verbose {
		fmt.Fprintln(p.out)
	}
	if res.Exhausted {
		fmt.Fprintln(p.out, Yellow("[%] No more images are available"))
	}
	fmt.Fprintf(p.out, "\n\n%s\n", Green(fmt.Sprintf("[%%] Done. Downloaded %d images.", res.Downloaded)))
}

// Summary prints totals for the whole batch
func (p *ProgressDisplay) Summary(results []*crawler.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	downloaded, failed := 0, 0
	for _, r := range results {
		downloaded += r.Downloaded
		failed += r.Failed()
	}
	elapsed := p.tracker.GetElapsedTime()

	fmt.Fprintf(p.out, "\n%s %d images across %d queries\n", Green("✓"), downloaded, len(results))
	fmt.Fprintf(p.out, "  %s %s in %s (%.1f images/min)\n",
		Dim("•"),
		FormatBytes(p.bytes),
		FormatDuration(elapsed),
		p.tracker.GetDownloadRate(),
	)
	if failed > 0 {
		fmt.Fprintf(p.out, "  %s %d downloads failed\n", Dim("•"), failed)
	}
}

// printStatus redraws the single-line status
func (p *ProgressDisplay) printStatus() {
	line := fmt.Sprintf("%s %s • %s", Cyan(p.query), p.tracker.GetQueryProgress(), FormatBytes(p.bytes))
	if p.tracker.TotalFailed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.tracker.TotalFailed)))
	}
	width := max(p.width(), 1)
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", width-1), line)
}
