package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/snapetech/m3u2strm/internal/logging"
)

// DefaultFilterPoll is how often the daemon checks the filters file for edits.
const DefaultFilterPoll = 30 * time.Second

// Daemon runs the pipeline on a fixed interval and re-runs it (subject to
// the cooldown) when the filters file changes or a signal arrives on Wake.
type Daemon struct {
	Runner      *Runner
	Interval    time.Duration
	FiltersFile string
	FilterPoll  time.Duration
	Wake        <-chan os.Signal
	Logger      *log.Logger
}

// Run blocks until ctx is done. The first pass starts immediately.
func (d *Daemon) Run(ctx context.Context) error {
	logger := logging.Component(d.Logger, "daemon")
	poll := d.FilterPoll
	if poll <= 0 {
		poll = DefaultFilterPoll
	}
	logger.Info("task scheduled", "interval", d.Interval, "filters", d.FiltersFile)

	lastMod := modTime(d.FiltersFile)
	d.pass(ctx, logger, d.Runner.Run, TriggerStartup)

	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	poller := time.NewTicker(poll)
	defer poller.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping")
			return nil
		case <-ticker.C:
			d.pass(ctx, logger, d.Runner.Run, TriggerSchedule)
		case sig := <-d.Wake:
			logger.Info("re-run requested", "signal", sig)
			d.pass(ctx, logger, d.Runner.Trigger, TriggerSignal)
		case <-poller.C:
			mod := modTime(d.FiltersFile)
			if mod.Equal(lastMod) {
				continue
			}
			logger.Info("filters changed, re-running", "path", d.FiltersFile)
			// Cooldown rejections leave lastMod alone so the next poll retries.
			if d.pass(ctx, logger, d.Runner.Trigger, TriggerFilters) {
				lastMod = mod
			}
		}
	}
}

// pass runs fn and reports whether the run was accepted.
func (d *Daemon) pass(ctx context.Context, logger *log.Logger, fn func(context.Context, string) (*Result, error), trigger string) bool {
	_, err := fn(ctx, trigger)
	switch {
	case errors.Is(err, ErrCooldown), errors.Is(err, ErrBusy):
		logger.Warn("re-run skipped", "trigger", trigger, "reason", err)
		return false
	case err != nil:
		// Already logged by the runner; the schedule continues.
		return true
	}
	return true
}

func modTime(path string) time.Time {
	if path == "" {
		return time.Time{}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}
