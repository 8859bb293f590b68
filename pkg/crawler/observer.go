package crawler

import (
	"time"

	"imgcrawl/internal/downloader"
)

// Observer receives progress events from a crawl. Calls arrive on the
// crawling goroutine, in order.
type Observer interface {
	QueryStarted(query, dir string, index, total int)
	PageIndexed(query string, page, links int)
	DownloadStarted(query string, counter int, link string)
	DownloadSucceeded(query string, counter int, res *downloader.Result)
	DownloadFailed(query string, counter int, link string, err error)
	BackingOff(query string, delay time.Duration)
	QueryFinished(res *Result)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) QueryStarted(string, string, int, int)             {}
func (NopObserver) PageIndexed(string, int, int)                      {}
func (NopObserver) DownloadStarted(string, int, string)               {}
func (NopObserver) DownloadSucceeded(string, int, *downloader.Result) {}
func (NopObserver) DownloadFailed(string, int, string, error)         {}
func (NopObserver) BackingOff(string, time.Duration)                  {}
func (NopObserver) QueryFinished(*Result)                             {}
