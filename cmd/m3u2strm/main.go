// Command m3u2strm turns an IPTV playlist into a media-server tree of .strm
// pointer files plus a live.m3u manifest and keeps it in sync.
//
//	run      one sync pass
//	daemon   sync every TASK_INTERVAL minutes; re-run on filter edits or SIGHUP
//	fetch    download the playlist only
//	filters  show, edit or discover filter settings
//	history  list recent runs
//	plex     create library sections for the output tree
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/snapetech/m3u2strm/internal/logging"
)

var version = "dev"

func main() {
	a := &app{logger: logging.New(os.Stderr, "info"), out: os.Stdout}

	root := &cli.Command{
		Name:    "m3u2strm",
		Usage:   "Convert an IPTV playlist into .strm files and a live.m3u manifest",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML settings file (optional)",
				Sources: cli.EnvVars("M3U2STRM_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to .env file loaded before reading settings",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override LOG_LEVEL (debug, info, warn, error)",
			},
		},
		Before:   a.before,
		Commands: a.commands(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.Run(ctx, os.Args); err != nil {
		a.logger.Fatal("m3u2strm failed", "err", err)
	}
}
