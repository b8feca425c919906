// Package strm writes classified playlist items as a media-server tree of
// pointer files plus one live manifest, rewriting only what changed.
package strm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/snapetech/m3u2strm/internal/catalog"
	"github.com/snapetech/m3u2strm/internal/checksum"
	"github.com/snapetech/m3u2strm/internal/fsx"
	"github.com/snapetech/m3u2strm/internal/logging"
)

// Engine synchronizes one output root. Store must be non-nil; the caller
// saves it after Sync.
type Engine struct {
	Root     string
	Ext      string // pointer file extension, default ".strm"
	LiveName string // live manifest name, default "live.m3u"
	// IncludeGroup emits group-title in the live manifest.
	IncludeGroup bool
	Store        *checksum.Store
	Logger       *log.Logger
}

type outcome int

const (
	unchanged outcome = iota
	created
	updated
	failed
)

func (e *Engine) ext() string {
	if e.Ext == "" {
		return DefaultExt
	}
	return e.Ext
}

func (e *Engine) liveName() string {
	if e.LiveName == "" {
		return DefaultLiveName
	}
	return e.LiveName
}

// Sync writes every series episode, every movie and the live manifest.
// Per-artifact failures are logged and counted; they never abort the run.
func (e *Engine) Sync(c catalog.Classified) Report {
	logger := logging.Component(e.Logger, "strm")
	var r Report

	for _, dir := range []string{SeriesDir, MoviesDir} {
		if err := os.MkdirAll(filepath.Join(e.Root, dir), 0o755); err != nil {
			logger.Error("create category dir", "dir", dir, "err", err)
		}
	}

	for _, a := range distinct(logger, c.Series, func(it catalog.Item) string { return EpisodePath(it, e.ext()) }) {
		it, rel := a.item, a.rel
		switch e.apply(logger, rel, []byte(it.URL)) {
		case created:
			r.Series.New++
			r.NewItems = append(r.NewItems, NewItem{
				Category: catalog.KindSeries.String(),
				Name:     it.SeriesName,
				Season:   it.Season,
				Episode:  it.Episode,
				Display:  it.DisplayName(),
				Path:     filepath.ToSlash(rel),
			})
		case updated:
			r.Series.Updated++
		case unchanged:
			r.Series.Unchanged++
		case failed:
			r.Series.Failed++
		}
	}
	logger.Info("series synced", "new", r.Series.New, "updated", r.Series.Updated, "unchanged", r.Series.Unchanged, "failed", r.Series.Failed)

	for _, a := range distinct(logger, c.Movies, func(it catalog.Item) string { return MoviePath(it, e.ext()) }) {
		it, rel := a.item, a.rel
		switch e.apply(logger, rel, []byte(it.URL)) {
		case created:
			r.Movies.New++
			r.NewItems = append(r.NewItems, NewItem{
				Category: catalog.KindMovie.String(),
				Name:     it.MovieFolder(),
				Display:  it.DisplayName(),
				Path:     filepath.ToSlash(rel),
			})
		case updated:
			r.Movies.Updated++
		case unchanged:
			r.Movies.Unchanged++
		case failed:
			r.Movies.Failed++
		}
	}
	logger.Info("movies synced", "new", r.Movies.New, "updated", r.Movies.Updated, "unchanged", r.Movies.Unchanged, "failed", r.Movies.Failed)

	e.syncLive(logger, c.Live, &r)
	return r
}

type artifact struct {
	rel  string
	item catalog.Item
}

// distinct maps items to their output paths, keeping the first item for
// each path in input order.
func distinct(logger *log.Logger, items []catalog.Item, path func(catalog.Item) string) []artifact {
	out := make([]artifact, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, it := range items {
		rel := path(it)
		if i, ok := seen[rel]; ok {
			logger.Warn("duplicate artifact path, keeping first", "path", filepath.ToSlash(rel),
				"kept", out[i].item.URL, "skipped", it.URL)
			continue
		}
		seen[rel] = len(out)
		out = append(out, artifact{rel: rel, item: it})
	}
	return out
}

func (e *Engine) syncLive(logger *log.Logger, channels []catalog.Item, r *Report) {
	name := e.liveName()
	r.Channels = len(channels)
	if len(channels) == 0 {
		abs := filepath.Join(e.Root, name)
		err := os.Remove(abs)
		switch {
		case err == nil:
			r.LiveRemoved = true
			r.LiveChanged = true
			logger.Info("no live channels, removed manifest", "path", abs)
		case !errors.Is(err, os.ErrNotExist):
			r.Live.Failed++
			logger.Error("remove live manifest", "path", abs, "err", err)
			return
		}
		e.Store.Delete(filepath.ToSlash(name))
		return
	}

	switch e.apply(logger, name, RenderLive(channels, e.IncludeGroup)) {
	case created:
		r.Live.New++
		r.LiveChanged = true
		r.LiveCreated = true
		logger.Info("created live manifest", "channels", len(channels))
	case updated:
		r.Live.Updated++
		r.LiveChanged = true
		logger.Info("updated live manifest", "channels", len(channels))
	case unchanged:
		r.Live.Unchanged++
		logger.Info("live manifest unchanged", "channels", len(channels))
	case failed:
		r.Live.Failed++
	}
}

// apply writes data at rel unless the file already holds exactly data and
// the store records its fingerprint.
func (e *Engine) apply(logger *log.Logger, rel string, data []byte) outcome {
	abs := filepath.Join(e.Root, rel)
	key := filepath.ToSlash(rel)
	sum := checksum.Fingerprint(data)

	current, exists, err := fsx.ReadIfExists(abs)
	if err != nil {
		logger.Error("read artifact", "path", abs, "err", err)
		return failed
	}
	stored, tracked := e.Store.Get(key)
	if exists && bytes.Equal(current, data) && tracked && stored == sum {
		return unchanged
	}
	switch {
	case !tracked:
		logger.Debug("untracked artifact", "key", key, "sum", sum)
	case stored != sum:
		logger.Debug("content changed", "key", key, "old", stored, "new", sum)
	}

	if err := fsx.WriteFileAtomic(abs, data, 0o644); err != nil {
		logger.Error("write artifact", "path", abs, "err", err)
		return failed
	}
	e.Store.Set(key, sum)
	if !exists {
		logger.Debug("created", "path", abs)
		return created
	}
	logger.Debug("updated", "path", abs)
	return updated
}
