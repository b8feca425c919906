// Package notify formats and delivers the "new items" summary after a sync.
package notify

import (
	"cmp"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/snapetech/m3u2strm/internal/strm"
)

const (
	maxEpisodesPerSeries = 5
	maxMovies            = 20
)

// FormatMessage renders new series episodes, new movies and the live
// manifest state as Telegram HTML. Series episodes are grouped by series name
// in first-seen order.
func FormatMessage(series, movies []strm.NewItem, liveCreated bool) string {
	var b strings.Builder
	b.WriteString("🎬 <b>Library Update</b>\n\n")

	if len(series) > 0 {
		b.WriteString("<b>New Series Episodes:</b>\n")
		var order []string
		groups := make(map[string][]strm.NewItem)
		for _, it := range series {
			if _, ok := groups[it.Name]; !ok {
				order = append(order, it.Name)
			}
			groups[it.Name] = append(groups[it.Name], it)
		}
		for _, name := range order {
			eps := groups[name]
			if len(eps) == 1 {
				fmt.Fprintf(&b, "• %s S%02dE%02d\n", html.EscapeString(name), eps[0].Season, eps[0].Episode)
				continue
			}
			fmt.Fprintf(&b, "• %s: %d episodes\n", html.EscapeString(name), len(eps))
			sorted := slices.Clone(eps)
			slices.SortStableFunc(sorted, func(x, y strm.NewItem) int {
				if c := cmp.Compare(x.Season, y.Season); c != 0 {
					return c
				}
				return cmp.Compare(x.Episode, y.Episode)
			})
			for _, ep := range sorted[:min(len(sorted), maxEpisodesPerSeries)] {
				fmt.Fprintf(&b, "  - S%02dE%02d\n", ep.Season, ep.Episode)
			}
			if len(sorted) > maxEpisodesPerSeries {
				fmt.Fprintf(&b, "  - and %d more...\n", len(sorted)-maxEpisodesPerSeries)
			}
		}
		b.WriteString("\n")
	}

	if len(movies) > 0 {
		b.WriteString("<b>New Movies:</b>\n")
		for _, m := range movies[:min(len(movies), maxMovies)] {
			fmt.Fprintf(&b, "• %s\n", html.EscapeString(m.Name))
		}
		if len(movies) > maxMovies {
			fmt.Fprintf(&b, "• and %d more...\n", len(movies)-maxMovies)
		}
		b.WriteString("\n")
	}

	total := len(series) + len(movies)
	if liveCreated {
		b.WriteString("📺 <b>Live TV channels have been updated.</b>\n\n")
		total++
	}
	fmt.Fprintf(&b, "Total: %d new items added to your media library.", total)
	return b.String()
}

// FromReport renders the message for a sync report. ok is false when the
// report holds nothing new, in which case no notification should be sent.
func FromReport(r strm.Report) (msg string, ok bool) {
	series, movies := r.NewSeries(), r.NewMovies()
	if len(series) == 0 && len(movies) == 0 && !r.LiveCreated {
		return "", false
	}
	return FormatMessage(series, movies, r.LiveCreated), true
}
