// Package httpclient holds the shared HTTP client used for playlist downloads,
// Telegram delivery and Plex library refreshes.
package httpclient

import (
	"net/http"
	"time"
)

const (
	DefaultTimeout         = 60 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 4

	// UserAgent is sent on every outbound request.
	UserAgent = "m3u2strm/1.0"
)

var defaultClient = &http.Client{
	Timeout: DefaultTimeout,
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	},
}

// Default returns the process-wide client.
func Default() *http.Client {
	return defaultClient
}

// WithTimeout returns a client sharing Default's transport settings with a
// different overall timeout.
func WithTimeout(timeout time.Duration) *http.Client {
	t, ok := defaultClient.Transport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{Timeout: timeout, Transport: t.Clone()}
}
