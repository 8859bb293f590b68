package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgcrawl/internal/downloader"
	"imgcrawl/pkg/bing"
	"imgcrawl/pkg/config"
	errs "imgcrawl/pkg/errors"
	"imgcrawl/pkg/logger"
	"imgcrawl/pkg/storage"
)

type fakeDirs struct {
	prepared []string
	err      error
	// failOn limits err to a single query when set
	failOn string
}

func (f *fakeDirs) PrepareQueryDir(query string, forceReplace bool) (string, error) {
	if f.err != nil && (f.failOn == "" || f.failOn == query) {
		return "", f.err
	}
	f.prepared = append(f.prepared, query)
	return filepath.Join("/out", query), nil
}

// queryPages answers per query: an error for queries in fail, otherwise
// the body in bodies on the first page and nothing after
type queryPages struct {
	bodies  map[string]string
	fail    map[string]error
	queries []string
}

func (f *queryPages) FetchPage(ctx context.Context, req bing.PageRequest) (string, error) {
	f.queries = append(f.queries, req.Query)
	if err := f.fail[req.Query]; err != nil {
		return "", err
	}
	if req.Page == 0 {
		return f.bodies[req.Query], nil
	}
	return "", nil
}

type fakeRecorder struct {
	runIDs []string
	err    error
}

func (f *fakeRecorder) Record(runID string, res *Result) error {
	f.runIDs = append(f.runIDs, runID)
	return f.err
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestBatchSuppressesDuplicatesAcrossQueries(t *testing.T) {
	img := pngBytes(t, 42)
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case bing.AsyncEndpoint:
			if r.URL.Query().Get("first") != "0" {
				return
			}
			w.Write([]byte(linksBody(server.URL + "/img/" + r.URL.Query().Get("q") + ".png")))
		default:
			w.Write(img)
		}
	}))
	defer server.Close()

	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)

	batch := NewBatch(BatchOptions{Limit: 1, Adult: "off", Sleep: noSleep}, Deps{
		Pages: bing.NewClient(server.Client(), bing.WithBaseURL(server.URL), bing.WithLogger(logger.NewNopLogger())),
		Images: downloader.NewFetcher(server.Client(), store, downloader.Options{
			Timeout:      5 * time.Second,
			BlockedHosts: config.DefaultBlockedHosts,
		}, logger.NewNopLogger()),
		Dirs:   store,
		Logger: logger.NewNopLogger(),
	})

	results, err := batch.Run(context.Background(), []string{"cat", "dog"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 1, results[0].Downloaded)
	assert.FileExists(t, filepath.Join(store.Root(), "cat", "cat_Image_1.png"))

	assert.Zero(t, results[1].Downloaded)
	assert.True(t, results[1].Exhausted)
	assert.Equal(t, 1, results[1].Failures[errs.ErrorTypeDuplicate])
	assert.NoFileExists(t, filepath.Join(store.Root(), "dog", "dog_Image_1.png"))
}

func TestBatchSkipsBlankQueriesAndRecords(t *testing.T) {
	dirs := &fakeDirs{}
	rec := &fakeRecorder{err: errors.New("disk full")}
	pages := &fakePages{bodies: []string{linksBody("https://a.com/1.jpg")}}

	batch := NewBatch(BatchOptions{Limit: 1, Sleep: noSleep}, Deps{
		Pages:    pages,
		Images:   &fakeImages{},
		Dirs:     dirs,
		Recorder: rec,
		Logger:   logger.NewNopLogger(),
	})

	results, err := batch.Run(context.Background(), []string{"  ", "cat ", ""})
	require.NoError(t, err, "recorder errors are not fatal")

	require.Len(t, results, 1)
	assert.Equal(t, "cat", results[0].Query)
	assert.Equal(t, filepath.Join("/out", "cat"), results[0].Dir)
	assert.Equal(t, []string{"cat"}, dirs.prepared)
	require.Len(t, rec.runIDs, 1)
	assert.NotEmpty(t, rec.runIDs[0])
}

func TestBatchFreshSessionPerQuery(t *testing.T) {
	link := linksBody("https://a.com/same.jpg")
	pages := &fakePages{bodies: []string{link, link}}
	images := &fakeImages{}

	batch := NewBatch(BatchOptions{Limit: 1, Sleep: noSleep}, Deps{
		Pages:  pages,
		Images: images,
		Dirs:   &fakeDirs{},
		Logger: logger.NewNopLogger(),
	})

	results, err := batch.Run(context.Background(), []string{"cat", "dog"})
	require.NoError(t, err)

	require.Len(t, pages.requests, 2)
	assert.Zero(t, pages.requests[1].Page, "page index restarts for each query")
	assert.Equal(t, []string{"cat_Image_1.jpg", "dog_Image_1.jpg"}, images.dests)
	assert.Equal(t, 1, results[1].Downloaded)
}

func TestBatchDirectoryFailureSkipsQuery(t *testing.T) {
	dirErr := errs.New(errs.ErrorTypeFilesystem, "permission denied")
	pages := &queryPages{bodies: map[string]string{"dog": linksBody("https://a.com/dog.jpg")}}
	dirs := &fakeDirs{err: dirErr, failOn: "cat"}

	batch := NewBatch(BatchOptions{Limit: 1, Sleep: noSleep}, Deps{
		Pages:  pages,
		Images: &fakeImages{},
		Dirs:   dirs,
		Logger: logger.NewNopLogger(),
	})

	results, err := batch.Run(context.Background(), []string{"cat", "dog"})
	require.Error(t, err)
	assert.ErrorIs(t, err, dirErr)
	assert.Contains(t, err.Error(), `prepare directory for "cat"`)

	require.Len(t, results, 1)
	assert.Equal(t, "dog", results[0].Query)
	assert.Equal(t, 1, results[0].Downloaded)
	assert.Equal(t, []string{"dog"}, pages.queries)
}

func TestBatchDirectoryFailuresAreJoined(t *testing.T) {
	dirErr := errs.New(errs.ErrorTypeFilesystem, "read-only file system")
	pages := &queryPages{}

	batch := NewBatch(BatchOptions{Limit: 1}, Deps{
		Pages:  pages,
		Images: &fakeImages{},
		Dirs:   &fakeDirs{err: dirErr},
		Logger: logger.NewNopLogger(),
	})

	results, err := batch.Run(context.Background(), []string{"cat", "dog"})
	assert.ErrorIs(t, err, dirErr)
	assert.Contains(t, err.Error(), `"cat"`)
	assert.Contains(t, err.Error(), `"dog"`)
	assert.Empty(t, results)
	assert.Empty(t, pages.queries)
}

func TestBatchContinuesAfterPageErrors(t *testing.T) {
	pages := &queryPages{
		bodies: map[string]string{"dog": linksBody("https://a.com/dog.jpg")},
		fail: map[string]error{
			"cat": errs.Wrap(errs.ErrorTypeNetwork, "result page request failed", context.DeadlineExceeded),
		},
	}
	images := &fakeImages{}

	batch := NewBatch(BatchOptions{Limit: 1, Sleep: noSleep}, Deps{
		Pages:  pages,
		Images: images,
		Dirs:   &fakeDirs{},
		Logger: logger.NewNopLogger(),
	})

	results, err := batch.Run(context.Background(), []string{"cat", "dog"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Exhausted)
	assert.Zero(t, results[0].Downloaded)
	assert.Equal(t, 2, results[0].Failures[errs.ErrorTypeNetwork])

	assert.Equal(t, 1, results[1].Downloaded)
	assert.Equal(t, []string{"cat", "cat", "dog"}, pages.queries)
	assert.Equal(t, []string{"dog_Image_1.jpg"}, images.dests)
}

func TestBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pages := &queryPages{}

	batch := NewBatch(BatchOptions{Limit: 1, Sleep: func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}}, Deps{
		Pages:  pages,
		Images: &fakeImages{},
		Dirs:   &fakeDirs{},
		Logger: logger.NewNopLogger(),
	})

	results, err := batch.Run(ctx, []string{"cat", "dog"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
	assert.Equal(t, []string{"cat"}, pages.queries)
}
