package catalog

import (
	"strings"

	"github.com/snapetech/m3u2strm/internal/indexer"
)

// Classifier partitions entries into series, movies and live channels.
type Classifier interface {
	Classify(entries []indexer.Entry) Classified
	Mode() string
}

const (
	ModeGroupPrefix = "group-prefix"
	ModeFilter      = "filter"
)

// GroupPrefix is the legacy configuration: group-title substrings per
// category, plus optional series/movie name allow-lists.
type GroupPrefix struct {
	Series []string
	Movies []string
	Live   []string

	IncludeSeries []string
	IncludeMovies []string
}

// Configured reports whether any group substring is set.
func (g GroupPrefix) Configured() bool {
	return len(nonEmpty(g.Series)) > 0 || len(nonEmpty(g.Movies)) > 0 || len(nonEmpty(g.Live)) > 0
}

// NewClassifier picks the strategy for one run. A filter file with any
// setting selects filter-driven mode; otherwise legacy group substrings select
// group-prefix mode. With neither, the filter classifier runs with empty
// filters and yields nothing.
func NewClassifier(f Filters, g GroupPrefix) Classifier {
	if !f.Configured() && g.Configured() {
		return NewGroupPrefixClassifier(g)
	}
	return NewFilterClassifier(f)
}

// GroupPrefixClassifier matches group-title substrings (case-insensitive) and
// collapses duplicate live channels, preferring FHD variants.
type GroupPrefixClassifier struct {
	series, movies, live []string
	includeSeries        nameSet
	includeMovies        nameSet
}

func NewGroupPrefixClassifier(g GroupPrefix) *GroupPrefixClassifier {
	return &GroupPrefixClassifier{
		series:        lowerAll(nonEmpty(g.Series)),
		movies:        lowerAll(nonEmpty(g.Movies)),
		live:          lowerAll(nonEmpty(g.Live)),
		includeSeries: newNameSet(g.IncludeSeries),
		includeMovies: newNameSet(g.IncludeMovies),
	}
}

func (c *GroupPrefixClassifier) Mode() string { return ModeGroupPrefix }

func (c *GroupPrefixClassifier) Classify(entries []indexer.Entry) Classified {
	var out Classified
	var liveOrder []string
	liveBest := make(map[string]indexer.Entry)

	for _, e := range entries {
		group := strings.ToLower(e.GroupTitle)
		switch {
		case containsAny(group, c.series):
			name, season, episode, ok := ParseSeriesInfo(e.Title)
			if !ok {
				continue
			}
			if len(c.includeSeries) > 0 && !c.includeSeries.has(name) {
				continue
			}
			out.Series = append(out.Series, NewSeries(e, name, season, episode))
		case containsAny(group, c.movies):
			it := NewMovie(e, ExtractYear(e.Title))
			if len(c.includeMovies) > 0 && !c.includeMovies.has(it.MovieName()) {
				continue
			}
			out.Movies = append(out.Movies, it)
		case containsAny(group, c.live):
			key := e.TVGID
			if key == "" {
				key = CleanChannelTitle(e.Title)
			}
			cur, seen := liveBest[key]
			if !seen {
				liveOrder = append(liveOrder, key)
				liveBest[key] = e
				continue
			}
			if isFHD(e.Title) && !isFHD(cur.Title) {
				liveBest[key] = e
			}
		}
	}

	for _, key := range liveOrder {
		e := liveBest[key]
		e.Title = CleanChannelTitle(e.Title)
		e.GroupTitle = ""
		out.Live = append(out.Live, NewLive(e))
	}
	return out
}

func isFHD(title string) bool {
	return strings.Contains(strings.ToUpper(title), "FHD")
}

// FilterClassifier promotes an entry only when its name is explicitly listed
// (or IncludeAll is set) and its group-title is one of the category's groups.
// Titles and group labels pass through unchanged.
type FilterClassifier struct {
	series, movies, live                   nameSet
	seriesGroups, moviesGroups, liveGroups exactSet
	includeAll                             bool
}

func NewFilterClassifier(f Filters) *FilterClassifier {
	return &FilterClassifier{
		series:       newNameSet(f.Series),
		movies:       newNameSet(f.Movies),
		live:         newNameSet(f.Live),
		seriesGroups: newExactSet(f.SeriesGroups),
		moviesGroups: newExactSet(f.MoviesGroups),
		liveGroups:   newExactSet(f.LiveGroups),
		includeAll:   f.IncludeAll,
	}
}

func (c *FilterClassifier) Mode() string { return ModeFilter }

func (c *FilterClassifier) Classify(entries []indexer.Entry) Classified {
	var out Classified
	for _, e := range entries {
		if name, season, episode, ok := ParseSeriesInfo(e.Title); ok &&
			c.seriesGroups.has(e.GroupTitle) && c.wants(c.series, name) {
			out.Series = append(out.Series, NewSeries(e, name, season, episode))
			continue
		}
		if c.moviesGroups.has(e.GroupTitle) && c.wants(c.movies, e.Title) {
			out.Movies = append(out.Movies, NewMovie(e, ExtractYear(e.Title)))
			continue
		}
		if c.liveGroups.has(e.GroupTitle) && c.wants(c.live, e.Title) {
			out.Live = append(out.Live, NewLive(e))
		}
	}
	return out
}

func (c *FilterClassifier) wants(set nameSet, name string) bool {
	return c.includeAll || set.has(name)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
