package indexer

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/snapetech/m3u2strm/internal/fsx"
	"github.com/snapetech/m3u2strm/internal/httpclient"
	"github.com/snapetech/m3u2strm/internal/safeurl"
)

// StatusError is returned by Fetch for any final response other than 200/304.
type StatusError int

func (e StatusError) Error() string {
	return "unexpected status: " + strconv.Itoa(int(e))
}

// FetchResult describes what Fetch did with the destination file.
type FetchResult struct {
	Path        string
	Bytes       int
	NotModified bool
}

// Fetch downloads the playlist at url into dest. When dest already exists its
// modification time is sent as If-Modified-Since and a 304 leaves it as-is.
// Brotli and gzip bodies are decoded, and a non-UTF-8 charset declared in
// Content-Type is transcoded to UTF-8 before the file is written.
func Fetch(ctx context.Context, client *http.Client, url, dest string) (*FetchResult, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: no playlist URL configured", ErrNoPlaylist)
	}
	if !safeurl.IsHTTPOrHTTPS(url) {
		return nil, fmt.Errorf("fetch playlist: unsupported URL %s", safeurl.Redact(url))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: build request: %w", err)
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)
	req.Header.Set("Accept-Encoding", "br, gzip")
	if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
		req.Header.Set("If-Modified-Since", fi.ModTime().UTC().Format(http.TimeFormat))
	}

	resp, err := httpclient.DoWithRetry(ctx, client, req, httpclient.PlaylistRetryPolicy)
	if err != nil {
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			uerr.URL = safeurl.Redact(uerr.URL)
		}
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return &FetchResult{Path: dest, NotModified: true}, nil
	default:
		return nil, fmt.Errorf("fetch playlist: %w", StatusError(resp.StatusCode))
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: read body: %w", err)
	}
	if err := fsx.WriteFileAtomic(dest, data, 0o644); err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		_ = os.Chtimes(dest, time.Now(), lm)
	}
	return &FetchResult{Path: dest, Bytes: len(data)}, nil
}

// decodeBody unwraps Content-Encoding and, when the server names a charset
// other than UTF-8, converts the stream to UTF-8.
func decodeBody(resp *http.Response) (io.Reader, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "br":
		r = brotli.NewReader(r)
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		r = gz
	default:
		return nil, errors.New("unsupported content encoding " + resp.Header.Get("Content-Encoding"))
	}

	ct := resp.Header.Get("Content-Type")
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return r, nil
	}
	cs := strings.ToLower(params["charset"])
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return r, nil
	}
	conv, err := charset.NewReader(r, ct)
	if err != nil {
		return nil, fmt.Errorf("charset %s: %w", cs, err)
	}
	return conv, nil
}
