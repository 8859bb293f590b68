package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgcrawl/pkg/config"
)

func TestBrowserHeaders(t *testing.T) {
	h := BrowserHeaders("test-agent")

	assert.Equal(t, "test-agent", h.Get("User-Agent"))
	assert.Equal(t, "none", h.Get("Accept-Encoding"))
	assert.Equal(t, "en-US,en;q=0.8", h.Get("Accept-Language"))
	assert.Contains(t, h.Get("Accept"), "text/html")
}

func TestApply(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	client, err := NewClient(config.NetworkConfig{}, time.Second)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	Apply(req, BrowserHeaders("test-agent"))

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "test-agent", got.Get("User-Agent"))
	assert.Equal(t, "ISO-8859-1,utf-8;q=0.7,*;q=0.3", got.Get("Accept-Charset"))
}

func TestNewTransportWithProxy(t *testing.T) {
	tr, err := NewTransport(config.NetworkConfig{ProxyAddress: "127.0.0.1:1080", ProxyUsername: "u", ProxyPassword: "p"})
	require.NoError(t, err)

	assert.Nil(t, tr.Proxy)
	assert.NotNil(t, tr.DialContext)
}

func TestNewClientTimeout(t *testing.T) {
	client, err := NewClient(config.NetworkConfig{}, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, client.Timeout)
}
