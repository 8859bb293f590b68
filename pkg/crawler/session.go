package crawler

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"imgcrawl/internal/downloader"
	"imgcrawl/pkg/bing"
	"imgcrawl/pkg/dedup"
	errs "imgcrawl/pkg/errors"
	"imgcrawl/pkg/logger"
)

// SessionConfig holds the per-query inputs of a crawl
type SessionConfig struct {
	Query    string
	Dir      string
	Limit    int
	Adult    string
	Filter   string
	Backoff  *BackoffController
	Batch    *BatchState
	Pages    PageFetcher
	Images   ImageFetcher
	Observer Observer
	Logger   logger.Logger
}

// Result summarises one query
type Result struct {
	Query      string
	Dir        string
	Downloaded int
	Pages      int
	// Exhausted is set when the engine ran out of results before the limit
	Exhausted bool
	// Failures counts failed downloads and page fetches by error type
	Failures map[errs.ErrorType]int
	Files    []*downloader.Result
	Duration time.Duration
}

// Failed returns the total number of failed attempts
func (r *Result) Failed() int {
	n := 0
	for _, c := range r.Failures {
		n += c
	}
	return n
}

// Session crawls a single query until the limit is reached or the engine
// has no more results. A Session is used once.
type Session struct {
	cfg     SessionConfig
	seen    *dedup.LinkSet
	backoff *BackoffController
	obs     Observer
	logger  logger.Logger

	downloadCount int
	pageIndex     int
}

// NewSession creates a session with fresh counters and link set
func NewSession(cfg SessionConfig) *Session {
	if cfg.Backoff == nil {
		cfg.Backoff = NewBackoffController(DefaultBackoffDelay, DefaultResumeAfter)
	}
	if cfg.Batch == nil {
		cfg.Batch = NewBatchState()
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	return &Session{
		cfg:     cfg,
		seen:    dedup.NewLinkSet(),
		backoff: cfg.Backoff,
		obs:     cfg.Observer,
		logger: cfg.Logger.WithFields(map[string]interface{}{
			"query":  cfg.Query,
			"run_id": cfg.Batch.RunID,
		}),
	}
}

// Run crawls until downloadCount reaches the limit or the controller
// declares the results exhausted. A page that fails to fetch is treated like
// an empty one, so two in a row without progress end the query. Only
// cancellation is returned as an error.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{
		Query:    s.cfg.Query,
		Dir:      s.cfg.Dir,
		Failures: make(map[errs.ErrorType]int),
	}
	defer func() {
		res.Downloaded = s.downloadCount
		res.Pages = s.pageIndex
		res.Duration = time.Since(start)
	}()

	for s.downloadCount < s.cfg.Limit {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		s.backoff.Resume(s.downloadCount)

		body, err := s.cfg.Pages.FetchPage(ctx, bing.PageRequest{
			Query:  s.cfg.Query,
			Page:   s.pageIndex,
			Limit:  s.cfg.Limit,
			Adult:  s.cfg.Adult,
			Filter: s.cfg.Filter,
		})
		var links []string
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			s.logger.WithError(err).WithField("page", s.pageIndex).Error("Failed to fetch result page")
			res.Failures[errs.TypeOf(err)]++
		} else {
			links = slices.Collect(bing.ExtractLinks(body))
			if len(links) == 0 && body != "" {
				s.logger.WithField("page", s.pageIndex).
					WithError(errs.New(errs.ErrorTypeParseAmbiguity, "no image links found in non-empty page")).
					Warn("Result page yielded no links")
			}
		}

		if len(links) == 0 {
			done, err := s.pause(ctx)
			if err != nil {
				return res, err
			}
			if done {
				res.Exhausted = true
				break
			}
			continue
		}

		logger.LogPageIndexed(s.logger, s.cfg.Query, s.pageIndex, len(links))
		s.obs.PageIndexed(s.cfg.Query, s.pageIndex, len(links))

		for _, link := range links {
			if s.downloadCount >= s.cfg.Limit {
				break
			}
			if !s.seen.MarkIfNew(link) {
				continue
			}
			if err := s.attempt(ctx, link, res); err != nil {
				return res, err
			}
		}
		s.pageIndex++
	}

	return res, nil
}

// pause hands an unusable page to the backoff controller and reports
// whether the query is exhausted
func (s *Session) pause(ctx context.Context) (bool, error) {
	terminate := s.backoff.State() == BackingOff
	logger.LogBackoff(s.logger, s.cfg.Query, s.pageIndex, s.backoff.Delay, terminate)
	if !terminate {
		s.obs.BackingOff(s.cfg.Query, s.backoff.Delay)
	}
	return s.backoff.OnEmpty(ctx, s.downloadCount)
}

// attempt downloads one link. Only cancellation is returned; every other
// failure is recorded on res and the crawl moves on.
func (s *Session) attempt(ctx context.Context, link string, res *Result) error {
	s.downloadCount++
	n := s.downloadCount
	dest := filepath.Join(s.cfg.Dir, Filename(s.cfg.Query, n, Extension(link)))

	s.obs.DownloadStarted(s.cfg.Query, n, link)
	file, err := s.cfg.Images.Fetch(ctx, link, dest, s.cfg.Batch.Digests)
	logger.LogDownload(s.logger, s.cfg.Query, n, link, err)
	if err != nil {
		s.downloadCount--
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		res.Failures[errs.TypeOf(err)]++
		s.obs.DownloadFailed(s.cfg.Query, n, link, err)
		return nil
	}

	res.Files = append(res.Files, file)
	s.obs.DownloadSucceeded(s.cfg.Query, n, file)
	return nil
}
