// Package transport builds the HTTP clients shared by the result page
// fetcher and the image fetcher.
package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
	"imgcrawl/pkg/config"
)

// DefaultUserAgent is the browser identity used when none is configured
const DefaultUserAgent = config.DefaultUserAgent

// BrowserHeaders returns the header set sent with result page requests and
// with the fallback image fetch.
func BrowserHeaders(userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Charset", "ISO-8859-1,utf-8;q=0.7,*;q=0.3")
	h.Set("Accept-Encoding", "none")
	h.Set("Accept-Language", "en-US,en;q=0.8")
	h.Set("Connection", "keep-alive")
	return h
}

// Apply copies headers onto req
func Apply(req *http.Request, headers http.Header) {
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
}

// NewTransport returns an http.Transport, dialing through a SOCKS5 proxy
// when one is configured.
func NewTransport(cfg config.NetworkConfig) (*http.Transport, error) {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
	if cfg.ProxyAddress == "" {
		return t, nil
	}

	var auth *proxy.Auth
	if cfg.ProxyUsername != "" {
		auth = &proxy.Auth{User: cfg.ProxyUsername, Password: cfg.ProxyPassword}
	}
	dialer, err := proxy.SOCKS5("tcp", cfg.ProxyAddress, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", cfg.ProxyAddress, err)
	}

	t.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		t.DialContext = cd.DialContext
	} else {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return t, nil
}

// NewClient returns an http.Client over NewTransport. A zero timeout
// leaves requests bounded only by their context.
func NewClient(cfg config.NetworkConfig, timeout time.Duration) (*http.Client, error) {
	t, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: t, Timeout: timeout}, nil
}
