// Package pipeline runs one parse → classify → sync pass and the follow-ups
// that hang off it: checksum persistence, history, metrics, notification and
// media-server refresh.
package pipeline

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/snapetech/m3u2strm/internal/catalog"
	"github.com/snapetech/m3u2strm/internal/checksum"
	"github.com/snapetech/m3u2strm/internal/history"
	"github.com/snapetech/m3u2strm/internal/indexer"
	"github.com/snapetech/m3u2strm/internal/logging"
	"github.com/snapetech/m3u2strm/internal/metrics"
	"github.com/snapetech/m3u2strm/internal/notify"
	"github.com/snapetech/m3u2strm/internal/strm"
)

var (
	// ErrBusy is returned by Trigger while another run is in progress.
	ErrBusy = errors.New("a run is already in progress")
	// ErrCooldown is returned by Trigger inside the re-run cooldown window.
	ErrCooldown = errors.New("re-run requested too soon")
)

// Trigger names recorded with each run.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerFilters  = "filters"
	TriggerSignal   = "signal"
)

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type Refresher interface {
	Refresh(ctx context.Context, categories []string) error
}

type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Observer sees every finished run, failed or not.
type Observer interface {
	Observe(finished time.Time, err error)
}

// Options wires a Runner. PlaylistFile and OutputDir are required; the
// collaborators are optional.
type Options struct {
	PlaylistFile  string
	PlaylistURL   string
	OutputDir     string
	ChecksumsFile string // default <OutputDir>/.checksums.json
	FiltersFile   string
	Ext           string
	Groups        catalog.GroupPrefix
	Cooldown      time.Duration

	HTTPClient *http.Client
	Notifier   Notifier
	Refresher  Refresher
	History    Recorder
	Observer   Observer
	Logger     *log.Logger
}

// Result summarizes one run.
type Result struct {
	ID       string
	Trigger  string
	Mode     string
	Entries  int
	Series   int
	Shows    int
	Movies   int
	Live     int
	Fetch    *indexer.FetchResult
	Report   strm.Report
	Started  time.Time
	Finished time.Time
}

// Runner serializes runs over one output tree.
type Runner struct {
	opts    Options
	logger  *log.Logger
	mu sync.Mutex
	// limiter holds one token that each run start drains; guarded by mu.
	limit   rate.Limit
	limiter *rate.Limiter
}

func New(opts Options) *Runner {
	limit := rate.Inf
	if opts.Cooldown > 0 {
		limit = rate.Every(opts.Cooldown)
	}
	return &Runner{
		opts:    opts,
		logger:  logging.Component(opts.Logger, "pipeline"),
		limit:   limit,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Trigger starts a run on demand. It fails fast with ErrBusy when a run is in
// progress and with ErrCooldown when the previous run, whatever its trigger,
// started less than the cooldown ago.
func (r *Runner) Trigger(ctx context.Context, trigger string) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()
	if !r.limiter.Allow() {
		metrics.RecordCooldownRejection()
		return nil, ErrCooldown
	}
	return r.run(ctx, trigger)
}

// Run performs one pass, waiting for any run in progress to finish first.
// It ignores the cooldown but restarts it. It returns an error only when no
// playlist is available or ctx is done.
func (r *Runner) Run(ctx context.Context, trigger string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run(ctx, trigger)
}

func (r *Runner) run(ctx context.Context, trigger string) (*Result, error) {
	res := &Result{ID: uuid.NewString(), Trigger: trigger, Started: time.Now()}
	r.limiter = rate.NewLimiter(r.limit, 1)
	r.limiter.AllowN(res.Started, 1)
	logger := r.logger.With("run", res.ID[:8])
	logger.Info("task is running", "trigger", trigger)

	err := r.sync(ctx, logger, res)
	res.Finished = time.Now()

	result := "ok"
	switch {
	case errors.Is(err, indexer.ErrNoPlaylist):
		result = "no_playlist"
		logger.Error("run aborted", "err", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = "cancelled"
		logger.Warn("run cancelled", "err", err)
	case err != nil:
		result = "error"
		logger.Error("run failed", "err", err)
	}
	metrics.RecordRun(result, res.Finished.Sub(res.Started))
	r.record(logger, res, err)
	if r.opts.Observer != nil {
		r.opts.Observer.Observe(res.Finished, err)
	}
	if err != nil {
		return res, err
	}
	logger.Info("run finished", "duration", res.Finished.Sub(res.Started).Round(time.Millisecond))
	return res, nil
}

func (r *Runner) sync(ctx context.Context, logger *log.Logger, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.opts.PlaylistURL != "" {
		fr, err := indexer.Fetch(ctx, r.opts.HTTPClient, r.opts.PlaylistURL, r.opts.PlaylistFile)
		switch {
		case err == nil:
			res.Fetch = fr
			if fr.NotModified {
				logger.Info("playlist not modified", "path", fr.Path)
			} else {
				logger.Info("downloaded playlist", "path", fr.Path, "bytes", fr.Bytes)
			}
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			logger.Warn("playlist download failed, using local copy", "path", r.opts.PlaylistFile, "err", err)
		}
	}

	entries, err := indexer.ParseFile(r.opts.PlaylistFile)
	if err != nil {
		return err
	}
	res.Entries = len(entries)

	filters, err := catalog.LoadFilters(r.opts.FiltersFile)
	if err != nil {
		logger.Error("filters unreadable, using none", "path", r.opts.FiltersFile, "err", err)
		filters = catalog.Filters{}
	}
	classifier := catalog.NewClassifier(filters, r.opts.Groups)
	classified := classifier.Classify(entries)
	res.Mode = classifier.Mode()
	res.Series, res.Movies, res.Live = len(classified.Series), len(classified.Movies), len(classified.Live)
	res.Shows = len(classified.SeriesNames())
	metrics.RecordClassified(res.Entries, res.Series, res.Movies, res.Live)
	logger.Info("classified playlist", "mode", res.Mode, "entries", res.Entries,
		"series", res.Series, "shows", res.Shows, "movies", res.Movies, "live", res.Live)

	if err := ctx.Err(); err != nil {
		return err
	}

	store := checksum.Load(r.checksumsPath(), r.opts.Logger)
	before := store.Snapshot()
	engine := &strm.Engine{
		Root:         r.opts.OutputDir,
		Ext:          r.opts.Ext,
		IncludeGroup: classifier.Mode() == catalog.ModeFilter,
		Store:        store,
		Logger:       r.opts.Logger,
	}
	res.Report = engine.Sync(classified)
	logDiff(logger, store, before)
	if err := store.Save(); err != nil {
		logger.Error("save checksums", "path", store.Path(), "err", err)
	}
	metrics.RecordReport(res.Report)

	tot := res.Report.Totals()
	if res.Report.Changed() {
		logger.Info("file creation complete", "new", tot.New, "updated", tot.Updated, "failed", tot.Failed, "live_removed", res.Report.LiveRemoved)
	} else {
		logger.Info("no changes detected, all files are up to date", "failed", tot.Failed)
	}

	r.notify(ctx, logger, res.Report)
	r.refresh(ctx, logger, res.Report)
	return nil
}

func (r *Runner) notify(ctx context.Context, logger *log.Logger, rep strm.Report) {
	msg, ok := notify.FromReport(rep)
	if !ok || r.opts.Notifier == nil {
		return
	}
	err := r.opts.Notifier.Notify(ctx, msg)
	switch {
	case err == nil:
		metrics.RecordNotification("sent")
	case errors.Is(err, notify.ErrNotConfigured):
		metrics.RecordNotification("skipped")
	default:
		metrics.RecordNotification("error")
		logger.Error("notification failed", "err", err)
	}
}

func (r *Runner) refresh(ctx context.Context, logger *log.Logger, rep strm.Report) {
	cats := rep.ChangedCategories()
	if len(cats) == 0 || r.opts.Refresher == nil {
		return
	}
	if err := r.opts.Refresher.Refresh(ctx, cats); err != nil {
		logger.Error("library refresh failed", "categories", strings.Join(cats, ","), "err", err)
	}
}

func (r *Runner) record(logger *log.Logger, res *Result, runErr error) {
	if r.opts.History == nil {
		return
	}
	run := history.Run{
		ID:          res.ID,
		Started:     res.Started,
		Finished:    res.Finished,
		Trigger:     res.Trigger,
		Mode:        res.Mode,
		Entries:     res.Entries,
		Totals:      res.Report.Totals(),
		LiveRemoved: res.Report.LiveRemoved,
		NewItems:    res.Report.NewItems,
	}
	if runErr != nil {
		run.Err = runErr.Error()
	}
	// Recorded even when the run's context was cancelled.
	if err := r.opts.History.Record(context.Background(), run); err != nil {
		logger.Error("record history", "err", err)
	}
}

func (r *Runner) checksumsPath() string {
	if r.opts.ChecksumsFile != "" {
		return r.opts.ChecksumsFile
	}
	return filepath.Join(r.opts.OutputDir, checksum.FileName)
}

func logDiff(logger *log.Logger, store *checksum.Store, before map[string]string) {
	changed, removed := store.Diff(before)
	if len(changed) > 0 {
		logger.Debug("checksums changed", "count", len(changed))
		if len(changed) < 10 {
			logger.Debug("changed files", "keys", strings.Join(changed, ", "))
		}
	}
	if len(removed) > 0 {
		logger.Debug("checksums removed", "keys", strings.Join(removed, ", "))
	}
	logger.Debug("checksum store size", "entries", store.Len())
}
