package httpclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls which responses DoWithRetry retries. Every retryable
// response is retried at most once.
type RetryPolicy struct {
	Retry429   bool
	Max429Wait time.Duration
	Retry5xx   bool
	Backoff5xx time.Duration
}

// DefaultRetryPolicy retries 429 (Retry-After capped at 60s) and 5xx (1s backoff).
var DefaultRetryPolicy = RetryPolicy{
	Retry429:   true,
	Max429Wait: 60 * time.Second,
	Retry5xx:   true,
	Backoff5xx: time.Second,
}

// PlaylistRetryPolicy is tuned for IPTV panels, which tend to answer 5xx while
// regenerating get.php output.
var PlaylistRetryPolicy = RetryPolicy{
	Retry429:   true,
	Max429Wait: 2 * time.Minute,
	Retry5xx:   true,
	Backoff5xx: 5 * time.Second,
}

// DoWithRetry sends req and, when policy allows, waits and resends it once on
// 429 or 5xx. Other 4xx responses are returned as-is. req must not carry a
// body. The caller closes resp.Body when err is nil.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	if client == nil {
		client = Default()
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	wait, retry := retryDelay(resp, policy)
	if !retry {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}
	again, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
	if err != nil {
		return nil, err
	}
	again.Header = req.Header.Clone()
	return client.Do(again)
}

func retryDelay(resp *http.Response, policy RetryPolicy) (time.Duration, bool) {
	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests && policy.Retry429:
		return parseRetryAfter(resp.Header.Get("Retry-After"), policy.Max429Wait), true
	case code >= 500 && policy.Retry5xx:
		return policy.Backoff5xx, true
	}
	return 0, false
}

// parseRetryAfter parses Retry-After (seconds or HTTP-date) capped at max.
func parseRetryAfter(s string, max time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Second
	}
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		return min(time.Duration(sec)*time.Second, max)
	}
	t, err := http.ParseTime(s)
	if err != nil {
		return time.Second
	}
	until := time.Until(t)
	if until <= 0 {
		return 0
	}
	return min(until, max)
}
