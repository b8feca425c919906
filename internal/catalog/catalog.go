// Package catalog turns parsed playlist entries into typed items: series
// episodes, movies and live channels.
package catalog

import (
	"fmt"
	"strings"

	"github.com/snapetech/m3u2strm/internal/indexer"
)

// Kind tags the variant carried by an Item.
type Kind int

const (
	KindSeries Kind = iota + 1
	KindMovie
	KindLive
)

func (k Kind) String() string {
	switch k {
	case KindSeries:
		return "series"
	case KindMovie:
		return "movies"
	case KindLive:
		return "live"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Item is a classified playlist entry. The base entry is always present;
// SeriesName/Season/Episode are set only for KindSeries and Year only for
// KindMovie (and may be empty there).
type Item struct {
	Kind Kind `json:"kind"`
	indexer.Entry

	SeriesName string `json:"series_name,omitempty"`
	Season     int    `json:"season,omitempty"`
	Episode    int    `json:"episode,omitempty"`

	Year string `json:"year,omitempty"`
}

// NewSeries builds a series episode item.
func NewSeries(e indexer.Entry, name string, season, episode int) Item {
	return Item{Kind: KindSeries, Entry: e, SeriesName: name, Season: season, Episode: episode}
}

// NewMovie builds a movie item; year may be empty.
func NewMovie(e indexer.Entry, year string) Item {
	return Item{Kind: KindMovie, Entry: e, Year: year}
}

// NewLive builds a live channel item.
func NewLive(e indexer.Entry) Item {
	return Item{Kind: KindLive, Entry: e}
}

// MovieName is the title with a "(year)" suffix removed.
func (it Item) MovieName() string {
	if it.Year != "" {
		if tag := "(" + it.Year + ")"; strings.Contains(it.Title, tag) {
			return strings.TrimSpace(strings.Replace(it.Title, tag, "", 1))
		}
	}
	return strings.TrimSpace(it.Title)
}

// MovieFolder is "Name (Year)", or just the name when the year is unknown.
func (it Item) MovieFolder() string {
	if it.Year != "" {
		return fmt.Sprintf("%s (%s)", it.MovieName(), it.Year)
	}
	return it.MovieName()
}

// DisplayName is the human label used in logs and notifications.
func (it Item) DisplayName() string {
	switch it.Kind {
	case KindSeries:
		return fmt.Sprintf("%s S%02dE%02d", it.SeriesName, it.Season, it.Episode)
	case KindMovie:
		return it.MovieFolder()
	default:
		return it.Title
	}
}

// Classified holds the three collections produced by a Classifier.
type Classified struct {
	Series []Item `json:"series"`
	Movies []Item `json:"movies"`
	Live   []Item `json:"live"`
}

// Len returns the total number of items.
func (c Classified) Len() int {
	return len(c.Series) + len(c.Movies) + len(c.Live)
}

// SeriesNames returns the distinct series names in first-seen order.
func (c Classified) SeriesNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range c.Series {
		if !seen[it.SeriesName] {
			seen[it.SeriesName] = true
			out = append(out, it.SeriesName)
		}
	}
	return out
}
