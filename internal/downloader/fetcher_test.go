package downloader

import (
	"bytes"
	"context"
	"errors"
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
	"imgcrawl/pkg/config"
	"imgcrawl/pkg/dedup"
	errs "imgcrawl/pkg/errors"
	"imgcrawl/pkg/logger"
	"imgcrawl/pkg/storage"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	calls   atomic.Int32
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.calls.Add(1)
	return m.handler(req)
}

func pngBytes(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: shade})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestFetcher(t *testing.T, client *http.Client, opts Options) (*Fetcher, string) {
	t.Helper()
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.BlockedHosts == nil {
		opts.BlockedHosts = config.DefaultBlockedHosts
	}
	return NewFetcher(client, store, opts, logger.NewNopLogger()), store.Root()
}

func TestFetchPrimary(t *testing.T) {
	img := pngBytes(t, 10)
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Write(img)
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, server.Client(), Options{})
	digests := dedup.NewDigestSet()
	dest := filepath.Join(dir, "cat_Image_1.png")

	res, err := f.Fetch(context.Background(), server.URL+"/a.png", dest, digests)
	require.NoError(t, err)

	assert.Equal(t, StrategyPrimary, res.Strategy)
	assert.Equal(t, "png", res.Info.Format)
	assert.FileExists(t, dest)
	assert.True(t, digests.Contains(dedup.Sum(img)))
	assert.NotContains(t, gotUA, "Mozilla")
}

func TestFetchFallbackOnAccessDenied(t *testing.T) {
	img := pngBytes(t, 20)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasPrefix(r.UserAgent(), "Mozilla/") {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("denied"))
			return
		}
		w.Write(img)
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, server.Client(), Options{})
	dest := filepath.Join(dir, "cat_Image_1.jpg")

	res, err := f.Fetch(context.Background(), server.URL+"/a.jpg", dest, dedup.NewDigestSet())
	require.NoError(t, err)

	assert.Equal(t, StrategyFallback, res.Strategy)
	assert.Equal(t, int32(2), calls.Load())
	assert.FileExists(t, dest)
}

func TestFetchFallbackAlsoRefused(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, server.Client(), Options{})
	dest := filepath.Join(dir, "cat_Image_1.jpg")

	_, err := f.Fetch(context.Background(), server.URL+"/gone.jpg", dest, dedup.NewDigestSet())
	require.Error(t, err)

	assert.True(t, errs.IsType(err, errs.ErrorTypeHTTPStatus))
	assert.Equal(t, int32(2), calls.Load())
	assert.NoFileExists(t, dest)
}

func TestFetchBlockedHostMakesNoRequest(t *testing.T) {
	rt := &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("should not be called")
	}}
	f, dir := newTestFetcher(t, &http.Client{Transport: rt}, Options{})
	dest := filepath.Join(dir, "cat_Image_1.jpg")

	_, err := f.Fetch(context.Background(), "https://media.istockphoto.com/photos/cat.jpg", dest, dedup.NewDigestSet())

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeWatermark))
	assert.Equal(t, int32(0), rt.calls.Load())
	assert.NoFileExists(t, dest)
}

func TestFetchTransportErrorSkipsFallback(t *testing.T) {
	rt := &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}
	f, dir := newTestFetcher(t, &http.Client{Transport: rt}, Options{})
	dest := filepath.Join(dir, "cat_Image_1.jpg")

	_, err := f.Fetch(context.Background(), "https://example.com/a.jpg", dest, dedup.NewDigestSet())

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
	assert.Equal(t, int32(1), rt.calls.Load())
	assert.NoFileExists(t, dest)
}

func TestFetchRejectsNonImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, server.Client(), Options{})
	dest := filepath.Join(dir, "cat_Image_1.jpg")
	digests := dedup.NewDigestSet()

	_, err := f.Fetch(context.Background(), server.URL+"/a.jpg", dest, digests)

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
	assert.NoFileExists(t, dest)
	assert.Equal(t, 0, digests.Len())
}

func TestFetchRejectsDuplicateContent(t *testing.T) {
	img := pngBytes(t, 30)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(img)
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, server.Client(), Options{})
	digests := dedup.NewDigestSet()
	first := filepath.Join(dir, "cat_Image_1.png")
	second := filepath.Join(dir, "cat_Image_2.png")

	_, err := f.Fetch(context.Background(), server.URL+"/a.png", first, digests)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), server.URL+"/mirror/a.png", second, digests)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeDuplicate))

	assert.FileExists(t, first)
	assert.NoFileExists(t, second)
}

func TestFetchMaxFileSize(t *testing.T) {
	img := pngBytes(t, 40)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(img)
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, server.Client(), Options{MaxFileSize: int64(len(img) - 1)})
	dest := filepath.Join(dir, "cat_Image_1.png")

	_, err := f.Fetch(context.Background(), server.URL+"/a.png", dest, dedup.NewDigestSet())
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
	assert.NoFileExists(t, dest)
}

func TestFetchCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, server.Client(), Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	dest := filepath.Join(dir, "cat_Image_1.png")

	_, err := f.Fetch(ctx, server.URL+"/slow.png", dest, dedup.NewDigestSet())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoFileExists(t, dest)
}

func TestIsBlocked(t *testing.T) {
	f := NewFetcher(http.DefaultClient, nil, Options{BlockedHosts: []string{"istockphoto.com", " Alamy.com "}}, logger.NewNopLogger())

	tests := map[string]bool{
		"https://istockphoto.com/a.jpg":           true,
		"https://media.istockphoto.com/a.jpg":     true,
		"http://C7.ALAMY.COM/comp/x.jpg":          true,
		"https://notistockphoto.com/a.jpg":        false,
		"https://example.com/istockphoto.com.jpg": false,
		"::not a url":                             false,
	}
	for link, want := range tests {
		assert.Equal(t, want, f.IsBlocked(link), link)
	}
}
