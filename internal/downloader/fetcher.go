package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"imgcrawl/pkg/dedup"
	errs "imgcrawl/pkg/errors"
	"imgcrawl/pkg/logger"
	"imgcrawl/pkg/ratelimit"
	"imgcrawl/pkg/transport"
	"imgcrawl/pkg/validator"
)

// Strategy names the retrieval path that produced a file
type Strategy string

const (
	// StrategyPrimary is a bare GET streamed straight to disk
	StrategyPrimary Strategy = "primary"
	// StrategyFallback re-requests with browser headers and a timeout
	StrategyFallback Strategy = "fallback"
)

// FileStore is the storage the fetcher writes through
type FileStore interface {
	Save(r io.Reader, path string) (int64, error)
	Remove(path string) error
}

// Options configures a Fetcher
type Options struct {
	// Timeout bounds each fallback request
	Timeout      time.Duration
	UserAgent    string
	BlockedHosts []string
	// MaxFileSize rejects larger images; 0 disables the check
	MaxFileSize int64
	Limiter     ratelimit.Limiter
}

// Result describes a persisted image
type Result struct {
	Link     string
	Path     string
	Strategy Strategy
	Info     *validator.Info
}

// Fetcher downloads one image link to a destination path, validating and
// deduplicating what it wrote.
type Fetcher struct {
	direct  *http.Client
	browser *http.Client
	headers http.Header
	store   FileStore
	blocked []string
	maxSize int64
	limiter ratelimit.Limiter
	logger  logger.Logger
}

// NewFetcher creates a fetcher. httpClient serves the primary strategy as
// is; the fallback uses a copy carrying opts.Timeout.
func NewFetcher(httpClient *http.Client, store FileStore, opts Options, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = transport.DefaultUserAgent
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}

	browser := *httpClient
	browser.Timeout = opts.Timeout

	blocked := make([]string, 0, len(opts.BlockedHosts))
	for _, h := range opts.BlockedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			blocked = append(blocked, h)
		}
	}

	return &Fetcher{
		direct:  httpClient,
		browser: &browser,
		headers: transport.BrowserHeaders(opts.UserAgent),
		store:   store,
		blocked: blocked,
		maxSize: opts.MaxFileSize,
		limiter: opts.Limiter,
		logger:  log,
	}
}

// IsBlocked reports whether link points at a denylisted host or one of its
// subdomains.
func (f *Fetcher) IsBlocked(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, b := range f.blocked {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

// Fetch retrieves link into dest. Content already present in digests is
// rejected as a duplicate; new content is recorded there. Whatever the
// failure, no file is left at dest.
func (f *Fetcher) Fetch(ctx context.Context, link, dest string, digests *dedup.DigestSet) (res *Result, err error) {
	if f.IsBlocked(link) {
		return nil, errs.New(errs.ErrorTypeWatermark, "host is on the watermark denylist")
	}

	defer func() {
		if err != nil {
			if rmErr := f.store.Remove(dest); rmErr != nil {
				f.logger.WithError(rmErr).Warn("failed to clean up rejected download")
			}
		}
	}()

	strategy := StrategyPrimary
	err = f.primary(ctx, link, dest)
	if errs.IsType(err, errs.ErrorTypeHTTPStatus) {
		f.logger.DebugWithFields("direct fetch refused, retrying with browser headers", map[string]interface{}{
			"link":  link,
			"error": err.Error(),
		})
		if rmErr := f.store.Remove(dest); rmErr != nil {
			return nil, rmErr
		}
		strategy = StrategyFallback
		err = f.fallback(ctx, link, dest)
	}
	if err != nil {
		return nil, err
	}

	info, err := validator.Validate(dest)
	if err != nil {
		return nil, err
	}
	if !digests.Add(info.Digest) {
		return nil, errs.New(errs.ErrorTypeDuplicate, fmt.Sprintf("content %s already saved", info.Digest))
	}

	return &Result{Link: link, Path: dest, Strategy: strategy, Info: info}, nil
}

func (f *Fetcher) get(ctx context.Context, client *http.Client, link string, headers http.Header) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "invalid image link", err)
	}
	if headers != nil {
		transport.Apply(req, headers)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "image request failed", err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, errs.Status(resp.StatusCode, fmt.Sprintf("image host returned %s", resp.Status))
	}
	return resp, nil
}

// limited caps r one byte past maxSize so oversize bodies are detectable
func (f *Fetcher) limited(r io.Reader) io.Reader {
	if f.maxSize <= 0 {
		return r
	}
	return io.LimitReader(r, f.maxSize+1)
}

func (f *Fetcher) checkSize(n int64) error {
	if f.maxSize > 0 && n > f.maxSize {
		return errs.New(errs.ErrorTypeValidation, fmt.Sprintf("image exceeds %d bytes", f.maxSize))
	}
	return nil
}

// primary streams the response body straight into dest
func (f *Fetcher) primary(ctx context.Context, link, dest string) error {
	resp, err := f.get(ctx, f.direct, link, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	n, err := f.store.Save(f.limited(resp.Body), dest)
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeUnknown {
			return errs.Wrap(errs.ErrorTypeNetwork, "image download interrupted", err)
		}
		return err
	}
	return f.checkSize(n)
}

// fallback buffers the whole body before writing it
func (f *Fetcher) fallback(ctx context.Context, link, dest string) error {
	resp, err := f.get(ctx, f.browser, link, f.headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(f.limited(resp.Body))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, "image download interrupted", err)
	}
	if err := f.checkSize(int64(len(data))); err != nil {
		return err
	}
	_, err = f.store.Save(bytes.NewReader(data), dest)
	return err
}
