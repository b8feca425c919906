package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	max := 60 * time.Second
	tests := []struct {
		name string
		s    string
		want time.Duration
	}{
		{"empty", "", time.Second},
		{"seconds", "5", 5 * time.Second},
		{"zero", "0", 0},
		{"over cap", "120", max},
		{"whitespace", "  10 ", 10 * time.Second},
		{"garbage", "soon", time.Second},
		{"past date", "Mon, 02 Jan 2006 15:04:05 GMT", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.s, max); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestDoWithRetry_429Then200(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if r.Header.Get("X-Test") != "kept" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	req.Header.Set("X-Test", "kept")
	resp, err := DoWithRetry(ctx, srv.Client(), req, DefaultRetryPolicy)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDoWithRetry_5xxRetriedOnce(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	policy := RetryPolicy{Retry5xx: true, Backoff5xx: time.Millisecond}
	resp, err := DoWithRetry(ctx, srv.Client(), req, policy)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDoWithRetry_4xxNoRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := DoWithRetry(ctx, nil, req, DefaultRetryPolicy)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden || attempts != 1 {
		t.Errorf("status = %d attempts = %d, want 403 / 1", resp.StatusCode, attempts)
	}
}

func TestWithTimeout(t *testing.T) {
	c := WithTimeout(3 * time.Second)
	if c.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", c.Timeout)
	}
	if c == Default() || c.Transport == Default().Transport {
		t.Error("WithTimeout must not share the default client or transport")
	}
	if Default().Timeout != DefaultTimeout {
		t.Errorf("default timeout changed to %v", Default().Timeout)
	}
}
