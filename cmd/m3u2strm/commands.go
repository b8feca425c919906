package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/snapetech/m3u2strm/internal/catalog"
	"github.com/snapetech/m3u2strm/internal/health"
	"github.com/snapetech/m3u2strm/internal/history"
	"github.com/snapetech/m3u2strm/internal/httpclient"
	"github.com/snapetech/m3u2strm/internal/indexer"
	"github.com/snapetech/m3u2strm/internal/pipeline"
	"github.com/snapetech/m3u2strm/internal/plex"
)

func runCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one sync pass and exit",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the run report as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r, closeFn, err := a.runner()
			if err != nil {
				return err
			}
			defer closeFn()
			res, err := r.Run(ctx, pipeline.TriggerManual)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			tot := res.Report.Totals()
			fmt.Fprintf(a.out, "%s: %d entries, %d new, %d updated, %d unchanged, %d failed\n",
				res.Mode, res.Entries, tot.New, tot.Updated, tot.Unchanged, tot.Failed)
			return nil
		},
	}
}

func daemonCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Sync on a schedule; re-run when the filters file changes or on SIGHUP",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "filter-poll",
				Usage: "How often to check the filters file for changes",
				Value: pipeline.DefaultFilterPoll,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tracker := health.NewTracker(3 * a.cfg.Interval())
			a.observer = tracker
			r, closeFn, err := a.runner()
			if err != nil {
				return err
			}
			defer closeFn()

			if addr := a.cfg.MetricsAddr; addr != "" {
				srv := &http.Server{Addr: addr, Handler: metricsMux(tracker), ReadHeaderTimeout: 10 * time.Second}
				go func() {
					a.logger.Info("metrics listening", "addr", addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("metrics server", "err", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
			}

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			d := &pipeline.Daemon{
				Runner:      r,
				Interval:    a.cfg.Interval(),
				FiltersFile: a.cfg.FiltersFile,
				FilterPoll:  cmd.Duration("filter-poll"),
				Wake:        hup,
				Logger:      a.logger,
			}
			return d.Run(ctx)
		},
	}
}

func metricsMux(tracker *health.Tracker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", tracker.Handler())
	return mux
}

func checkCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Check that the playlist provider and Plex are reachable",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var failed int
			report := func(name string, err error) {
				if err != nil {
					failed++
					fmt.Fprintf(a.out, "%-9s FAIL  %v\n", name, err)
					return
				}
				fmt.Fprintf(a.out, "%-9s ok\n", name)
			}

			if a.cfg.Playlist.URL != "" {
				report("playlist", health.CheckPlaylist(ctx, httpclient.WithTimeout(health.CheckTimeout), a.cfg.Playlist.URL))
			} else if _, err := os.Stat(a.cfg.Playlist.File); err != nil {
				report("playlist", err)
			} else {
				report("playlist", nil)
			}

			if a.cfg.Plex.URL != "" {
				_, err := a.plexClient().ListLibrarySections(ctx)
				report("plex", err)
			}

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func fetchCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download the playlist from M3U_URL to M3U_FILE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			res, err := indexer.Fetch(ctx, httpclient.Default(), a.cfg.Playlist.URL, a.cfg.Playlist.File)
			if err != nil {
				return err
			}
			if res.NotModified {
				fmt.Fprintf(a.out, "%s not modified\n", res.Path)
				return nil
			}
			fmt.Fprintf(a.out, "wrote %d bytes to %s\n", res.Bytes, res.Path)
			return nil
		},
	}
}

func filtersCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "filters",
		Usage: "Inspect or edit the filters file",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the current filters",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					f, err := catalog.LoadFilters(a.cfg.FiltersFile)
					if err != nil {
						return err
					}
					enc := json.NewEncoder(a.out)
					enc.SetIndent("", "  ")
					return enc.Encode(f)
				},
			},
			{
				Name:  "set",
				Usage: "Replace (or with --add, extend) filter lists",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "series", Usage: "Series name to include"},
					&cli.StringSliceFlag{Name: "movies", Usage: "Movie title to include"},
					&cli.StringSliceFlag{Name: "live", Usage: "Live channel title to include"},
					&cli.StringSliceFlag{Name: "series-group", Usage: "Group label holding series"},
					&cli.StringSliceFlag{Name: "movies-group", Usage: "Group label holding movies"},
					&cli.StringSliceFlag{Name: "live-group", Usage: "Group label holding live channels"},
					&cli.BoolFlag{Name: "include-all", Usage: "Include every entry of the listed groups"},
					&cli.BoolFlag{Name: "add", Usage: "Append to existing lists instead of replacing them"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					f, err := catalog.LoadFilters(a.cfg.FiltersFile)
					if err != nil && cmd.Bool("add") {
						return err
					}
					set := func(dst *[]string, name string) {
						if !cmd.IsSet(name) {
							return
						}
						if cmd.Bool("add") {
							*dst = append(*dst, cmd.StringSlice(name)...)
						} else {
							*dst = cmd.StringSlice(name)
						}
					}
					set(&f.Series, "series")
					set(&f.Movies, "movies")
					set(&f.Live, "live")
					set(&f.SeriesGroups, "series-group")
					set(&f.MoviesGroups, "movies-group")
					set(&f.LiveGroups, "live-group")
					if cmd.IsSet("include-all") {
						f.IncludeAll = cmd.Bool("include-all")
					}
					if err := catalog.SaveFilters(a.cfg.FiltersFile, f); err != nil {
						return err
					}
					a.logger.Info("saved filters; a running daemon picks them up on its next poll", "path", a.cfg.FiltersFile)
					return nil
				},
			},
			{
				Name:  "available",
				Usage: "List group labels in the playlist, or the names inside one group",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Usage: "Exact group label to list"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					entries, err := indexer.ParseFile(a.cfg.Playlist.File)
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
					defer w.Flush()
					if g := cmd.String("group"); g != "" {
						for _, name := range namesInGroup(entries, g) {
							fmt.Fprintln(w, name)
						}
						return nil
					}
					fmt.Fprintln(w, "GROUP\tENTRIES")
					for _, gc := range groupCounts(entries) {
						fmt.Fprintf(w, "%s\t%d\n", gc.group, gc.n)
					}
					return nil
				},
			},
		},
	}
}

type groupCount struct {
	group string
	n     int
}

func groupCounts(entries []indexer.Entry) []groupCount {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.GroupTitle]++
	}
	out := make([]groupCount, 0, len(counts))
	for g, n := range counts {
		out = append(out, groupCount{g, n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].group < out[j].group })
	return out
}

// namesInGroup returns the distinct filterable names in group: the series
// name for episode titles, the full title otherwise.
func namesInGroup(entries []indexer.Entry, group string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if e.GroupTitle != group {
			continue
		}
		name := e.Title
		if series, _, _, ok := catalog.ParseSeriesInfo(e.Title); ok {
			name = series
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func historyCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent runs from HISTORY_DB",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Number of runs to show", Value: 20},
			&cli.BoolFlag{Name: "items", Usage: "Also list the new items of each run"},
			&cli.DurationFlag{Name: "prune", Usage: "Delete runs older than this before listing"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if a.cfg.HistoryDB == "" {
				return errors.New("HISTORY_DB is not set")
			}
			db, err := history.Open(a.cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer db.Close()
			if age := cmd.Duration("prune"); age > 0 {
				n, err := db.Prune(ctx, time.Now().Add(-age))
				if err != nil {
					return err
				}
				a.logger.Info("pruned history", "runs", n)
			}
			runs, err := db.Recent(ctx, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "STARTED\tTRIGGER\tMODE\tENTRIES\tNEW\tUPDATED\tUNCHANGED\tFAILED\tERROR")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
					run.Started.Format("2006-01-02 15:04:05"), run.Trigger, run.Mode, run.Entries,
					run.Totals.New, run.Totals.Updated, run.Totals.Unchanged, run.Totals.Failed, run.Err)
				if !cmd.Bool("items") {
					continue
				}
				items, err := db.Items(ctx, run.ID)
				if err != nil {
					return err
				}
				for _, it := range items {
					fmt.Fprintf(w, "\t%s\t%s\n", it.Category, it.Display)
				}
			}
			return nil
		},
	}
}

func plexCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "plex",
		Usage: "Plex library helpers",
		Commands: []*cli.Command{
			{
				Name:  "setup",
				Usage: "Create (or verify) the series and movies library sections for the output tree",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "series-name", Value: "IPTV Series"},
					&cli.StringFlag{Name: "movies-name", Value: "IPTV Movies"},
					&cli.StringFlag{Name: "language", Value: "en-US"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if a.cfg.Plex.URL == "" {
						return errors.New("PLEX_URL is not set")
					}
					root, err := filepath.Abs(a.cfg.Output.Dir)
					if err != nil {
						return err
					}
					c := a.plexClient()
					for _, spec := range []plex.LibraryCreateSpec{
						{Name: cmd.String("series-name"), Type: "show", Path: filepath.Join(root, "series"), Language: cmd.String("language")},
						{Name: cmd.String("movies-name"), Type: "movie", Path: filepath.Join(root, "movies"), Language: cmd.String("language")},
					} {
						sec, created, err := c.EnsureLibrarySection(ctx, spec)
						if err != nil {
							return err
						}
						verb := "exists"
						if created {
							verb = "created"
						}
						fmt.Fprintf(a.out, "%s %q key=%s path=%s\n", verb, sec.Title, sec.Key, spec.Path)
					}
					return nil
				},
			},
		},
	}
}
