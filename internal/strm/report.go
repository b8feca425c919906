package strm

import (
	"github.com/snapetech/m3u2strm/internal/catalog"
)

// Counts tallies artifact outcomes for one category.
type Counts struct {
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Written is the number of artifacts written (new plus updated).
func (c Counts) Written() int { return c.New + c.Updated }

// NewItem describes an artifact that did not exist on disk before this run.
type NewItem struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Season   int    `json:"season,omitempty"`
	Episode  int    `json:"episode,omitempty"`
	Display  string `json:"display"`
	Path     string `json:"path"`
}

// Report summarizes one Sync call.
type Report struct {
	Series Counts `json:"series"`
	Movies Counts `json:"movies"`
	Live   Counts `json:"live"`

	NewItems []NewItem `json:"new_items,omitempty"`

	// LiveChanged is set when the live manifest was written or removed.
	LiveChanged bool `json:"live_changed"`
	// LiveCreated is set when the manifest was written and did not exist before.
	LiveCreated bool `json:"live_created"`
	LiveRemoved bool `json:"live_removed"`
	Channels    int  `json:"channels"`
}

// Totals sums the three categories.
func (r Report) Totals() Counts {
	return Counts{
		New:       r.Series.New + r.Movies.New + r.Live.New,
		Updated:   r.Series.Updated + r.Movies.Updated + r.Live.Updated,
		Unchanged: r.Series.Unchanged + r.Movies.Unchanged + r.Live.Unchanged,
		Failed:    r.Series.Failed + r.Movies.Failed + r.Live.Failed,
	}
}

// Changed reports whether anything on disk was written or removed.
func (r Report) Changed() bool {
	return r.Totals().Written() > 0 || r.LiveRemoved
}

// ChangedCategories lists the categories ("series", "movies", "live") whose
// output changed, in that order.
func (r Report) ChangedCategories() []string {
	var out []string
	if r.Series.Written() > 0 {
		out = append(out, catalog.KindSeries.String())
	}
	if r.Movies.Written() > 0 {
		out = append(out, catalog.KindMovie.String())
	}
	if r.LiveChanged {
		out = append(out, catalog.KindLive.String())
	}
	return out
}

// NewSeries returns the new series episodes.
func (r Report) NewSeries() []NewItem { return r.newOf(catalog.KindSeries) }

// NewMovies returns the new movies.
func (r Report) NewMovies() []NewItem { return r.newOf(catalog.KindMovie) }

func (r Report) newOf(k catalog.Kind) []NewItem {
	var out []NewItem
	for _, it := range r.NewItems {
		if it.Category == k.String() {
			out = append(out, it)
		}
	}
	return out
}
