package strm

import (
	"path/filepath"
	"testing"

	"github.com/snapetech/m3u2strm/internal/catalog"
	"github.com/snapetech/m3u2strm/internal/indexer"
)

func TestEpisodeFileName_roundtrip(t *testing.T) {
	for _, c := range []struct{ s, e int }{{1, 1}, {1, 9}, {10, 100}, {3, 12}} {
		name := EpisodeFileName("Show 2 S1 E1", c.s, c.e, DefaultExt)
		s, e, ok := ParseEpisodeFileName(name)
		if !ok || s != c.s || e != c.e {
			t.Errorf("%q -> (%d, %d, %v), want (%d, %d)", name, s, e, ok, c.s, c.e)
		}
	}
}

func TestParseEpisodeFileName_rejects(t *testing.T) {
	for _, name := range []string{"Alien (1979).strm", "ShowS01E02.strm", "Show S1E2.strm", ""} {
		if _, _, ok := ParseEpisodeFileName(name); ok {
			t.Errorf("%q should not parse", name)
		}
	}
}

func TestPaths(t *testing.T) {
	ep := catalog.NewSeries(indexer.Entry{Title: "Who? S01 E02"}, "Who?", 1, 2)
	if got, want := EpisodePath(ep, ".strm"), filepath.Join("series", "Who_", "Season 01", "Who_ S01E02.strm"); got != want {
		t.Errorf("episode path = %q, want %q", got, want)
	}
	mv := catalog.NewMovie(indexer.Entry{Title: "Alien (1979)"}, "1979")
	if got, want := MoviePath(mv, ".strm"), filepath.Join("movies", "Alien (1979)", "Alien (1979).strm"); got != want {
		t.Errorf("movie path = %q, want %q", got, want)
	}
	plain := catalog.NewMovie(indexer.Entry{Title: "Heat: Director's Cut"}, "")
	if got, want := MoviePath(plain, ".strm"), filepath.Join("movies", "Heat_ Director's Cut", "Heat_ Director's Cut.strm"); got != want {
		t.Errorf("movie path = %q, want %q", got, want)
	}
}
