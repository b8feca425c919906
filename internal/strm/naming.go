package strm

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/snapetech/m3u2strm/internal/catalog"
)

const (
	SeriesDir = "series"
	MoviesDir = "movies"

	DefaultExt      = ".strm"
	DefaultLiveName = "live.m3u"
)

// SeasonDirName returns the season folder name: "Season 01".
func SeasonDirName(season int) string {
	return fmt.Sprintf("Season %02d", season)
}

// EpisodeFileName returns "<Show> S01E02<ext>". show must already be sanitized.
func EpisodeFileName(show string, season, episode int, ext string) string {
	return fmt.Sprintf("%s S%02dE%02d%s", show, season, episode, ext)
}

var episodeFileRe = regexp.MustCompile(` S(\d{2,})E(\d{2,})(\.[^.\s]+)?$`)

// ParseEpisodeFileName recovers season and episode from a name produced by
// EpisodeFileName.
func ParseEpisodeFileName(name string) (season, episode int, ok bool) {
	m := episodeFileRe.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	season, err1 := strconv.Atoi(m[1])
	episode, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return season, episode, true
}

// EpisodePath is the output-relative path of a series item.
func EpisodePath(it catalog.Item, ext string) string {
	show := catalog.SanitizeFilename(it.SeriesName)
	return filepath.Join(SeriesDir, show, SeasonDirName(it.Season), EpisodeFileName(show, it.Season, it.Episode, ext))
}

// MoviePath is the output-relative path of a movie item: the sanitized
// folder name is used for both the directory and the file.
func MoviePath(it catalog.Item, ext string) string {
	folder := catalog.SanitizeFilename(it.MovieFolder())
	return filepath.Join(MoviesDir, folder, folder+ext)
}
