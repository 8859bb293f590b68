package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"imgcrawl/pkg/dedup"
	"imgcrawl/pkg/logger"
)

// BatchState is shared by every session of one batch run
type BatchState struct {
	RunID   string
	Digests *dedup.DigestSet
}

// NewBatchState creates state for a new run with a random ID
func NewBatchState() *BatchState {
	return &BatchState{
		RunID:   uuid.NewString(),
		Digests: dedup.NewDigestSet(),
	}
}

// BatchOptions holds the settings applied to every query in a batch
type BatchOptions struct {
	Limit        int
	Adult        string
	Filter       string
	ForceReplace bool
	BackoffDelay time.Duration
	ResumeAfter  int
	// Sleep overrides the backoff pause; nil uses a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error
}

// Deps are the collaborators a batch drives
type Deps struct {
	Pages    PageFetcher
	Images   ImageFetcher
	Dirs     DirPreparer
	Recorder Recorder
	Observer Observer
	Logger   logger.Logger
}

// Batch runs a list of queries one after another
type Batch struct {
	opts BatchOptions
	deps Deps
}

// NewBatch creates a batch runner
func NewBatch(opts BatchOptions, deps Deps) *Batch {
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.GetLogger()
	}
	return &Batch{opts: opts, deps: deps}
}

// Run crawls each non-blank query in order. Content digests are shared
// across the whole run, so an image saved for one query is rejected as a
// duplicate in the next. A query whose directory cannot be prepared is
// skipped and its error joined into the returned one. Cancellation stops the
// batch; results gathered so far are returned alongside the error.
func (b *Batch) Run(ctx context.Context, queries []string) ([]*Result, error) {
	state := NewBatchState()
	log := b.deps.Logger.WithField("run_id", state.RunID)

	var pending []string
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			pending = append(pending, q)
		}
	}

	logger.LogComponentStart(log, "batch", map[string]interface{}{
		"queries": len(pending),
		"limit":   b.opts.Limit,
	})

	results := make([]*Result, 0, len(pending))
	var failed []error
	for i, query := range pending {
		dir, err := b.deps.Dirs.PrepareQueryDir(query, b.opts.ForceReplace)
		if err != nil {
			log.WithError(err).WithField("query", query).Error("Failed to prepare output directory")
			failed = append(failed, fmt.Errorf("prepare directory for %q: %w", query, err))
			continue
		}
		b.deps.Observer.QueryStarted(query, dir, i, len(pending))

		backoff := NewBackoffController(b.opts.BackoffDelay, b.opts.ResumeAfter)
		if b.opts.Sleep != nil {
			backoff.Sleep = b.opts.Sleep
		}

		session := NewSession(SessionConfig{
			Query:    query,
			Dir:      dir,
			Limit:    b.opts.Limit,
			Adult:    b.opts.Adult,
			Filter:   b.opts.Filter,
			Backoff:  backoff,
			Batch:    state,
			Pages:    b.deps.Pages,
			Images:   b.deps.Images,
			Observer: b.deps.Observer,
			Logger:   log,
		})

		res, err := session.Run(ctx)
		results = append(results, res)
		b.deps.Observer.QueryFinished(res)
		b.record(log, state.RunID, res)

		if err != nil {
			logger.LogComponentStop(log, "batch", err.Error())
			failed = append(failed, fmt.Errorf("query %q: %w", query, err))
			return results, errors.Join(failed...)
		}

		log.InfoWithFields("Query finished", map[string]interface{}{
			"query":      query,
			"downloaded": res.Downloaded,
			"failed":     res.Failed(),
			"pages":      res.Pages,
			"exhausted":  res.Exhausted,
			"duration":   res.Duration,
		})
	}

	if len(failed) > 0 {
		logger.LogComponentStop(log, "batch", fmt.Sprintf("%d queries failed", len(failed)))
		return results, errors.Join(failed...)
	}
	logger.LogComponentStop(log, "batch", "completed")
	return results, nil
}

func (b *Batch) record(log logger.Logger, runID string, res *Result) {
	if b.deps.Recorder == nil {
		return
	}
	if err := b.deps.Recorder.Record(runID, res); err != nil {
		log.WithError(err).WithField("query", res.Query).Warn("Failed to write query manifest")
	}
}
