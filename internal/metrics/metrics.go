package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/snapetech/m3u2strm/internal/strm"
)

var (
	// RunsTotal counts pipeline runs by result (ok, no_playlist, cancelled, error)
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3u2strm_runs_total",
		Help: "Total number of sync runs by result",
	}, []string{"result"})

	// RunDuration observes wall time of completed runs
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "m3u2strm_run_duration_seconds",
		Help:    "Duration of sync runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// LastRunTimestamp is the unix time of the last finished run
	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "m3u2strm_last_run_timestamp_seconds",
		Help: "Unix time of the last finished sync run",
	})

	// PlaylistEntries is the entry count of the last parsed playlist
	PlaylistEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "m3u2strm_playlist_entries",
		Help: "Entries in the last parsed playlist",
	})

	// ClassifiedItems is the item count per category of the last run
	ClassifiedItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "m3u2strm_classified_items",
		Help: "Classified items per category in the last run",
	}, []string{"category"})

	// ArtifactsTotal counts artifact outcomes by category and outcome
	ArtifactsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3u2strm_artifacts_total",
		Help: "Total artifact outcomes by category and outcome",
	}, []string{"category", "outcome"})

	// NotificationsTotal counts notification attempts by result
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3u2strm_notifications_total",
		Help: "Total notification attempts by result",
	}, []string{"result"})

	// CooldownRejections counts manual re-runs refused by the cooldown
	CooldownRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "m3u2strm_cooldown_rejections_total",
		Help: "Total manual re-run triggers rejected by the cooldown",
	})
)

// RecordRun marks a finished run.
func RecordRun(result string, d time.Duration) {
	RunsTotal.WithLabelValues(result).Inc()
	RunDuration.Observe(d.Seconds())
	LastRunTimestamp.SetToCurrentTime()
}

// RecordClassified sets the playlist and per-category gauges.
func RecordClassified(entries, series, movies, live int) {
	PlaylistEntries.Set(float64(entries))
	ClassifiedItems.WithLabelValues("series").Set(float64(series))
	ClassifiedItems.WithLabelValues("movies").Set(float64(movies))
	ClassifiedItems.WithLabelValues("live").Set(float64(live))
}

// RecordReport adds the artifact outcomes of one sync.
func RecordReport(r strm.Report) {
	for cat, c := range map[string]strm.Counts{"series": r.Series, "movies": r.Movies, "live": r.Live} {
		ArtifactsTotal.WithLabelValues(cat, "new").Add(float64(c.New))
		ArtifactsTotal.WithLabelValues(cat, "updated").Add(float64(c.Updated))
		ArtifactsTotal.WithLabelValues(cat, "unchanged").Add(float64(c.Unchanged))
		ArtifactsTotal.WithLabelValues(cat, "failed").Add(float64(c.Failed))
	}
	if r.LiveRemoved {
		ArtifactsTotal.WithLabelValues("live", "removed").Inc()
	}
}

// RecordNotification counts one notification attempt.
func RecordNotification(result string) {
	NotificationsTotal.WithLabelValues(result).Inc()
}

// RecordCooldownRejection counts one refused trigger.
func RecordCooldownRejection() {
	CooldownRejections.Inc()
}
