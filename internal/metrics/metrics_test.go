package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snapetech/m3u2strm/internal/strm"
)

func TestMetricsEndpoint(t *testing.T) {
	RecordRun("ok", 150*time.Millisecond)
	RecordClassified(10, 3, 4, 2)
	RecordNotification("sent")
	RecordCooldownRejection()
	RecordReport(strm.Report{Movies: strm.Counts{New: 2, Unchanged: 5}, LiveRemoved: true})

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{
		`m3u2strm_runs_total{result="ok"}`,
		"m3u2strm_run_duration_seconds_bucket",
		"m3u2strm_playlist_entries 10",
		`m3u2strm_classified_items{category="movies"} 4`,
		`m3u2strm_notifications_total{result="sent"}`,
		"m3u2strm_cooldown_rejections_total",
		`m3u2strm_artifacts_total{category="movies",outcome="new"}`,
		`m3u2strm_artifacts_total{category="live",outcome="removed"} 1`,
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
