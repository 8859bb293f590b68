package crawler

import (
	"context"

	"imgcrawl/internal/downloader"
	"imgcrawl/pkg/bing"
	"imgcrawl/pkg/dedup"
)

// PageFetcher retrieves one raw result page
type PageFetcher interface {
	FetchPage(ctx context.Context, req bing.PageRequest) (string, error)
}

// ImageFetcher persists one image link at dest
type ImageFetcher interface {
	Fetch(ctx context.Context, link, dest string, digests *dedup.DigestSet) (*downloader.Result, error)
}

// DirPreparer creates (or recreates) the directory for a query
type DirPreparer interface {
	PrepareQueryDir(query string, forceReplace bool) (string, error)
}

// Recorder persists a summary of a finished query
type Recorder interface {
	Record(runID string, res *Result) error
}
