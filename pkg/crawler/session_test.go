package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgcrawl/internal/downloader"
	"imgcrawl/pkg/bing"
	"imgcrawl/pkg/config"
	"imgcrawl/pkg/dedup"
	errs "imgcrawl/pkg/errors"
	"imgcrawl/pkg/logger"
	"imgcrawl/pkg/storage"
)

// linksBody renders links the way the engine embeds them in a result page
func linksBody(links ...string) string {
	var b strings.Builder
	for _, l := range links {
		fmt.Fprintf(&b, `<a class="iusc" m="{&quot;murl&quot;:&quot;%s&quot;}"></a>`, l)
	}
	return b.String()
}

func pngBytes(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	img.SetGray(1, 1, color.Gray{Y: shade})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakePages serves bodies in order, then empty pages. fail, when set, is
// asked for an error for the nth request.
type fakePages struct {
	bodies   []string
	err      error
	fail     func(n int) error
	requests []bing.PageRequest
}

func (f *fakePages) FetchPage(ctx context.Context, req bing.PageRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	i := len(f.requests) - 1
	if f.fail != nil {
		if err := f.fail(i); err != nil {
			return "", err
		}
	}
	if i < len(f.bodies) {
		return f.bodies[i], nil
	}
	return "", nil
}

// fakeImages succeeds unless fail returns an error for the link
type fakeImages struct {
	fail  func(link string) error
	dests []string
	links []string
}

func (f *fakeImages) Fetch(ctx context.Context, link, dest string, digests *dedup.DigestSet) (*downloader.Result, error) {
	f.links = append(f.links, link)
	f.dests = append(f.dests, filepath.Base(dest))
	if f.fail != nil {
		if err := f.fail(link); err != nil {
			return nil, err
		}
	}
	return &downloader.Result{Link: link, Path: dest, Strategy: downloader.StrategyPrimary}, nil
}

type recordingObserver struct {
	NopObserver
	events []string
}

func (r *recordingObserver) PageIndexed(query string, page, links int) {
	r.events = append(r.events, fmt.Sprintf("page %d: %d", page, links))
}

func (r *recordingObserver) DownloadFailed(query string, counter int, link string, err error) {
	r.events = append(r.events, fmt.Sprintf("failed #%d %s", counter, errs.TypeOf(err)))
}

func (r *recordingObserver) DownloadSucceeded(query string, counter int, res *downloader.Result) {
	r.events = append(r.events, fmt.Sprintf("saved #%d", counter))
}

func (r *recordingObserver) BackingOff(query string, delay time.Duration) {
	r.events = append(r.events, "backoff")
}

func newTestSession(limit int, pages PageFetcher, images ImageFetcher, rec *sleepRecorder, obs Observer) *Session {
	backoff := NewBackoffController(5*time.Second, 2)
	backoff.Sleep = rec.sleep
	return NewSession(SessionConfig{
		Query:    "cat",
		Dir:      "/out/cat",
		Limit:    limit,
		Adult:    "off",
		Backoff:  backoff,
		Pages:    pages,
		Images:   images,
		Observer: obs,
		Logger:   logger.NewNopLogger(),
	})
}

func TestSessionEndToEnd(t *testing.T) {
	images := map[string][]byte{
		"/img/one.png":   pngBytes(t, 1),
		"/img/two.JPG":   pngBytes(t, 2),
		"/img/three.gif": pngBytes(t, 3),
	}
	var pageCalls atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == bing.AsyncEndpoint {
			pageCalls.Add(1)
			assert.Equal(t, "cat", r.URL.Query().Get("q"))
			assert.Equal(t, "0", r.URL.Query().Get("first"))
			assert.Equal(t, "2", r.URL.Query().Get("count"))
			w.Write([]byte(linksBody(
				server.URL+"/img/one.png",
				server.URL+"/img/two.JPG",
				server.URL+"/img/three.gif",
			)))
			return
		}
		data, ok := images[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer server.Close()

	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	dir, err := store.PrepareQueryDir("cat", false)
	require.NoError(t, err)

	pages := bing.NewClient(server.Client(), bing.WithBaseURL(server.URL), bing.WithLogger(logger.NewNopLogger()))
	fetcher := downloader.NewFetcher(server.Client(), store, downloader.Options{
		Timeout:      5 * time.Second,
		BlockedHosts: config.DefaultBlockedHosts,
	}, logger.NewNopLogger())

	session := NewSession(SessionConfig{
		Query:  "cat",
		Dir:    dir,
		Limit:  2,
		Adult:  "off",
		Pages:  pages,
		Images: fetcher,
		Logger: logger.NewNopLogger(),
	})
	res, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Downloaded)
	assert.Equal(t, 1, res.Pages)
	assert.False(t, res.Exhausted)
	assert.Equal(t, int32(1), pageCalls.Load())
	require.Len(t, res.Files, 2)
	assert.FileExists(t, filepath.Join(dir, "cat_Image_1.png"))
	assert.FileExists(t, filepath.Join(dir, "cat_Image_2.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "cat_Image_3.gif"))
}

func TestSessionBackoffRoundTrip(t *testing.T) {
	pages := &fakePages{bodies: []string{
		"",
		linksBody("https://a.com/1.jpg", "https://a.com/2.jpg", "https://a.com/3.jpg"),
		"",
		"",
	}}
	images := &fakeImages{}
	rec := &sleepRecorder{}
	obs := &recordingObserver{}

	res, err := newTestSession(10, pages, images, rec, obs).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Downloaded)
	assert.True(t, res.Exhausted)
	assert.Len(t, rec.calls, 2)
	require.Len(t, pages.requests, 4)

	var indexes []int
	for _, r := range pages.requests {
		indexes = append(indexes, r.Page)
	}
	assert.Equal(t, []int{0, 0, 1, 1}, indexes, "empty pages are retried without advancing")
	assert.Equal(t, []string{"backoff", "page 0: 3", "saved #1", "saved #2", "saved #3", "backoff"}, obs.events)
}

func TestSessionEmptyBeforeResumeTerminates(t *testing.T) {
	pages := &fakePages{bodies: []string{
		"",
		linksBody("https://a.com/1.jpg", "https://a.com/2.jpg"),
		"",
	}}
	rec := &sleepRecorder{}

	res, err := newTestSession(10, pages, &fakeImages{}, rec, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Downloaded)
	assert.True(t, res.Exhausted)
	assert.Len(t, rec.calls, 1)
	assert.Len(t, pages.requests, 3)
}

func TestSessionZeroLimit(t *testing.T) {
	pages := &fakePages{bodies: []string{linksBody("https://a.com/1.jpg")}}
	images := &fakeImages{}

	res, err := newTestSession(0, pages, images, &sleepRecorder{}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.Downloaded)
	assert.Empty(t, pages.requests)
	assert.Empty(t, images.links)
}

func TestSessionFailuresReuseCounter(t *testing.T) {
	pages := &fakePages{bodies: []string{
		linksBody("https://a.com/1.png", "https://b.com/2.png", "https://a.com/3.webp", "https://a.com/4.png"),
	}}
	images := &fakeImages{fail: func(link string) error {
		if strings.Contains(link, "b.com") {
			return errs.New(errs.ErrorTypeValidation, "not an image")
		}
		return nil
	}}
	obs := &recordingObserver{}

	res, err := newTestSession(3, pages, images, &sleepRecorder{}, obs).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Downloaded)
	assert.Equal(t, []string{
		"cat_Image_1.png",
		"cat_Image_2.png",
		"cat_Image_2.webp",
		"cat_Image_3.png",
	}, images.dests)
	assert.Equal(t, map[errs.ErrorType]int{errs.ErrorTypeValidation: 1}, res.Failures)
	assert.Equal(t, 1, res.Failed())
	assert.Contains(t, obs.events, "failed #2 validation")
}

func TestSessionSkipsSeenLinks(t *testing.T) {
	pages := &fakePages{bodies: []string{
		linksBody("https://a.com/1.jpg", "https://a.com/1.jpg", "https://a.com/2.jpg"),
		linksBody("https://a.com/2.jpg", "https://a.com/3.jpg"),
	}}
	images := &fakeImages{}

	res, err := newTestSession(3, pages, images, &sleepRecorder{}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.com/1.jpg", "https://a.com/2.jpg", "https://a.com/3.jpg"}, images.links)
	assert.Equal(t, 2, res.Pages)
}

func TestSessionUnknownExtensionDefaultsToJPG(t *testing.T) {
	pages := &fakePages{bodies: []string{linksBody("https://a.com/picture.xyz")}}
	images := &fakeImages{}

	_, err := newTestSession(1, pages, images, &sleepRecorder{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cat_Image_1.jpg"}, images.dests)
}

func TestSessionPageErrorsEndInExhaustion(t *testing.T) {
	pages := &fakePages{err: errs.Status(403, "forbidden")}
	rec := &sleepRecorder{}

	res, err := newTestSession(5, pages, &fakeImages{}, rec, nil).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Zero(t, res.Downloaded)
	assert.Equal(t, 2, res.Failures[errs.ErrorTypeHTTPStatus])
	assert.Len(t, pages.requests, 2)
	assert.Len(t, rec.calls, 1)
}

func TestSessionRecoversAfterPageError(t *testing.T) {
	pages := &fakePages{
		bodies: []string{"", linksBody("https://a.com/1.jpg")},
		fail: func(n int) error {
			if n == 0 {
				return errs.Wrap(errs.ErrorTypeNetwork, "result page request failed", context.DeadlineExceeded)
			}
			return nil
		},
	}
	rec := &sleepRecorder{}
	obs := &recordingObserver{}

	res, err := newTestSession(1, pages, &fakeImages{}, rec, obs).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Exhausted)
	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, 1, res.Failures[errs.ErrorTypeNetwork])
	require.Len(t, pages.requests, 2)
	assert.Zero(t, pages.requests[1].Page, "the failed page is requested again")
	assert.Equal(t, []string{"backoff", "page 0: 1", "saved #1"}, obs.events)
}

func TestSessionPageErrorAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pages := &fakePages{fail: func(int) error {
		cancel()
		return errs.Wrap(errs.ErrorTypeNetwork, "result page request failed", context.Canceled)
	}}
	rec := &sleepRecorder{}

	_, err := newTestSession(5, pages, &fakeImages{}, rec, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.calls)
}

func TestSessionCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pages := &fakePages{}
	rec := &sleepRecorder{}
	backoff := NewBackoffController(time.Second, 2)
	backoff.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return rec.sleep(ctx, d)
	}

	session := NewSession(SessionConfig{
		Query:   "cat",
		Limit:   5,
		Backoff: backoff,
		Pages:   pages,
		Images:  &fakeImages{},
		Logger:  logger.NewNopLogger(),
	})
	_, err := session.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, pages.requests, 1)
}

func TestSessionNonEmptyPageWithoutLinksBacksOff(t *testing.T) {
	pages := &fakePages{bodies: []string{"<html>captcha</html>", "<html>captcha</html>"}}
	rec := &sleepRecorder{}
	log := logger.NewTestLogger()

	backoff := NewBackoffController(time.Second, 2)
	backoff.Sleep = rec.sleep
	res, err := NewSession(SessionConfig{
		Query:   "cat",
		Limit:   5,
		Backoff: backoff,
		Pages:   pages,
		Images:  &fakeImages{},
		Logger:  log,
	}).Run(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.True(t, log.HasMessage("Result page yielded no links"))
	assert.Len(t, rec.calls, 1)
}

func TestSessionWatermarkHostMakesNoRequests(t *testing.T) {
	rt := &countingTransport{}
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	fetcher := downloader.NewFetcher(&http.Client{Transport: rt}, store, downloader.Options{
		Timeout:      time.Second,
		BlockedHosts: config.DefaultBlockedHosts,
	}, logger.NewNopLogger())

	pages := &fakePages{bodies: []string{linksBody("https://media.istockphoto.com/photos/cat.jpg")}}
	res, err := newTestSession(1, pages, fetcher, &sleepRecorder{}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, rt.calls.Load())
	assert.Zero(t, res.Downloaded)
	assert.Equal(t, 1, res.Failures[errs.ErrorTypeWatermark])
}

type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("no network in tests")
}
