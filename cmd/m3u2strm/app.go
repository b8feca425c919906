package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/snapetech/m3u2strm/internal/catalog"
	"github.com/snapetech/m3u2strm/internal/config"
	"github.com/snapetech/m3u2strm/internal/history"
	"github.com/snapetech/m3u2strm/internal/httpclient"
	"github.com/snapetech/m3u2strm/internal/logging"
	"github.com/snapetech/m3u2strm/internal/notify"
	"github.com/snapetech/m3u2strm/internal/pipeline"
	"github.com/snapetech/m3u2strm/internal/plex"
)

// app holds what every command needs once settings are loaded.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	out    io.Writer

	// observer, when set, is handed to every runner (daemon health).
	observer pipeline.Observer
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := config.LoadEnvFile(cmd.String("env-file")); err != nil {
		return ctx, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	a.cfg = cfg
	a.logger.SetLevel(logging.ParseLevel(cfg.LogLevel))
	return ctx, nil
}

func (a *app) commands() []*cli.Command {
	return []*cli.Command{
		runCommand(a),
		daemonCommand(a),
		fetchCommand(a),
		filtersCommand(a),
		historyCommand(a),
		plexCommand(a),
		checkCommand(a),
	}
}

func (a *app) groups() catalog.GroupPrefix {
	g := a.cfg.Groups
	return catalog.GroupPrefix{
		Series:        g.Series,
		Movies:        g.Movies,
		Live:          g.Live,
		IncludeSeries: g.IncludeSeries,
		IncludeMovies: g.IncludeMovies,
	}
}

func (a *app) plexClient() *plex.Client {
	return &plex.Client{BaseURL: a.cfg.Plex.URL, Token: a.cfg.Plex.Token, HTTP: httpclient.Default()}
}

// runner wires a pipeline.Runner from settings. The returned close func
// releases the history database.
func (a *app) runner() (*pipeline.Runner, func(), error) {
	opts := pipeline.Options{
		PlaylistFile:  a.cfg.Playlist.File,
		PlaylistURL:   a.cfg.Playlist.URL,
		OutputDir:     a.cfg.Output.Dir,
		ChecksumsFile: a.cfg.ChecksumsPath(),
		FiltersFile:   a.cfg.FiltersFile,
		Ext:           a.cfg.Output.Ext,
		Groups:        a.groups(),
		Cooldown:      a.cfg.Schedule.RerunCooldown.Duration,
		HTTPClient:    httpclient.Default(),
		Observer:      a.observer,
		Logger:        a.logger,
	}
	if a.cfg.Telegram.BotToken != "" || a.cfg.Telegram.ChatID != "" {
		opts.Notifier = &notify.Telegram{
			Token:  a.cfg.Telegram.BotToken,
			ChatID: a.cfg.Telegram.ChatID,
			Client: httpclient.Default(),
			Logger: a.logger,
		}
	} else {
		a.logger.Warn("telegram bot token or chat id not configured, notifications disabled")
	}
	if a.cfg.Plex.URL != "" {
		root, err := filepath.Abs(a.cfg.Output.Dir)
		if err != nil {
			return nil, nil, err
		}
		opts.Refresher = &plex.Refresher{
			Client:   a.plexClient(),
			Sections: a.cfg.PlexSections(),
			Dirs: map[string]string{
				"series": filepath.Join(root, "series"),
				"movies": filepath.Join(root, "movies"),
			},
			Logger: a.logger,
		}
	}
	closer := func() {}
	if a.cfg.HistoryDB != "" {
		db, err := history.Open(a.cfg.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		opts.History = db
		closer = func() { db.Close() }
	}
	return pipeline.New(opts), closer, nil
}
