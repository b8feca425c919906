package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/snapetech/m3u2strm/internal/httpclient"
	"github.com/snapetech/m3u2strm/internal/safeurl"
)

// Tracker remembers the outcome of the most recent run.
type Tracker struct {
	// MaxAge marks the daemon unhealthy when no run finished within it.
	// Zero disables the staleness check.
	MaxAge time.Duration

	mu       sync.Mutex
	started  time.Time
	finished time.Time
	lastErr  error
	runs     int
}

func NewTracker(maxAge time.Duration) *Tracker {
	return &Tracker{MaxAge: maxAge, started: time.Now()}
}

// Observe records a finished run.
func (t *Tracker) Observe(finished time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = finished
	t.lastErr = err
	t.runs++
}

// Status is the JSON body served by Handler.
type Status struct {
	OK           bool      `json:"ok"`
	Runs         int       `json:"runs"`
	LastFinished time.Time `json:"last_finished,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// Status reports health as of now.
func (t *Tracker) Status(now time.Time) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Status{OK: true, Runs: t.runs, LastFinished: t.finished}
	if t.lastErr != nil {
		s.OK = false
		s.LastError = t.lastErr.Error()
		s.Reason = "last run failed"
		return s
	}
	if t.MaxAge <= 0 {
		return s
	}
	since := t.finished
	if since.IsZero() {
		since = t.started
	}
	if now.Sub(since) > t.MaxAge {
		s.OK = false
		s.Reason = fmt.Sprintf("no run finished in %s", t.MaxAge)
	}
	return s
}

// Handler serves Status as JSON; 503 when unhealthy.
func (t *Tracker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s := t.Status(time.Now())
		w.Header().Set("Content-Type", "application/json")
		if !s.OK {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(s)
	})
}

// CheckTimeout bounds one reachability check.
const CheckTimeout = 15 * time.Second

// CheckPlaylist fetches the playlist URL and discards the body.
// Returns nil if the provider answered 200.
func CheckPlaylist(ctx context.Context, client *http.Client, playlistURL string) error {
	if playlistURL == "" {
		return fmt.Errorf("no M3U URL configured")
	}
	if !safeurl.IsHTTPOrHTTPS(playlistURL) {
		return fmt.Errorf("unsupported playlist URL %s", safeurl.Redact(playlistURL))
	}
	if client == nil {
		client = httpclient.WithTimeout(CheckTimeout)
	}
	// Some providers don't support HEAD.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider unreachable: %s", safeurl.Redact(playlistURL))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned HTTP %d", resp.StatusCode)
	}
	return nil
}
