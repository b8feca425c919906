package strm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/snapetech/m3u2strm/internal/catalog"
	"github.com/snapetech/m3u2strm/internal/checksum"
	"github.com/snapetech/m3u2strm/internal/indexer"
)

func newEngine(t *testing.T, root string) *Engine {
	t.Helper()
	return &Engine{Root: root, Store: checksum.Load(filepath.Join(root, checksum.FileName), nil)}
}

func sample() catalog.Classified {
	return catalog.Classified{
		Series: []catalog.Item{
			catalog.NewSeries(indexer.Entry{Title: "Lost S01 E01", URL: "http://x/lost1"}, "Lost", 1, 1),
			catalog.NewSeries(indexer.Entry{Title: "Lost S01 E02", URL: "http://x/lost2"}, "Lost", 1, 2),
		},
		Movies: []catalog.Item{
			catalog.NewMovie(indexer.Entry{Title: "Alien (1979)", URL: "http://x/alien"}, "1979"),
		},
		Live: []catalog.Item{
			catalog.NewLive(indexer.Entry{Title: "News", URL: "http://x/news", TVGID: "news.uk", TVGName: "News", TVGLogo: "http://x/n.png", GroupTitle: "UK"}),
		},
	}
}

func TestSync_endToEndMovie(t *testing.T) {
	root := t.TempDir()
	entries := indexer.ParseM3U("#EXTM3U\n#EXTINF:-1 group-title=\"Movies\",Alien (1979)\nhttp://x/alien\n")
	classified := catalog.NewClassifier(catalog.Filters{}, catalog.GroupPrefix{Movies: []string{"Movies"}}).Classify(entries)

	r := newEngine(t, root).Sync(classified)
	path := filepath.Join(root, "movies", "Alien (1979)", "Alien (1979).strm")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "http://x/alien" {
		t.Errorf("content = %q", data)
	}
	if r.Movies.New != 1 || len(r.NewItems) != 1 || r.NewItems[0].Display != "Alien (1979)" {
		t.Errorf("report = %+v", r)
	}
	if _, err := os.Stat(filepath.Join(root, DefaultLiveName)); !os.IsNotExist(err) {
		t.Errorf("live manifest should not exist: %v", err)
	}
}

func TestSync_idempotent(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root)
	first := eng.Sync(sample())
	if first.Totals().New != 4 {
		t.Fatalf("first run new = %d, want 4", first.Totals().New)
	}
	if !first.LiveCreated {
		t.Error("expected LiveCreated on first run")
	}
	if err := eng.Store.Save(); err != nil {
		t.Fatal(err)
	}
	ep := filepath.Join(root, "series", "Lost", "Season 01", "Lost S01E02.strm")
	before, err := os.Stat(ep)
	if err != nil {
		t.Fatal(err)
	}

	second := newEngine(t, root).Sync(sample())
	if tot := second.Totals(); tot.Written() != 0 || tot.Unchanged != 4 {
		t.Errorf("second run totals = %+v", tot)
	}
	if len(second.NewItems) != 0 || second.Changed() || len(second.ChangedCategories()) != 0 {
		t.Errorf("second run should be a no-op: %+v", second)
	}
	after, _ := os.Stat(ep)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("unchanged file was rewritten")
	}
}

func TestSync_liveManifest(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root)
	eng.Sync(sample())
	data, _ := os.ReadFile(filepath.Join(root, DefaultLiveName))
	want := "#EXTM3U\n#EXTINF:-1 tvg-id=\"news.uk\" tvg-name=\"News\" tvg-logo=\"http://x/n.png\",News\nhttp://x/news\n"
	if string(data) != want {
		t.Errorf("manifest = %q", data)
	}

	eng.IncludeGroup = true
	r := eng.Sync(sample())
	if r.Live.Updated != 1 || !r.LiveChanged || r.LiveCreated {
		t.Errorf("live counts = %+v", r)
	}
	data, _ = os.ReadFile(filepath.Join(root, DefaultLiveName))
	if !strings.Contains(string(data), `tvg-logo="http://x/n.png" group-title="UK",News`) {
		t.Errorf("manifest with group = %q", data)
	}
}

func TestSync_emptyLiveRemovesManifest(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root)
	eng.Sync(sample())
	if _, ok := eng.Store.Get(DefaultLiveName); !ok {
		t.Fatal("live manifest not tracked")
	}

	c := sample()
	c.Live = nil
	r := eng.Sync(c)
	if !r.LiveRemoved || !r.Changed() {
		t.Errorf("report = %+v", r)
	}
	if _, err := os.Stat(filepath.Join(root, DefaultLiveName)); !os.IsNotExist(err) {
		t.Errorf("manifest still present: %v", err)
	}
	if _, ok := eng.Store.Get(DefaultLiveName); ok {
		t.Error("store entry not removed")
	}
	again := eng.Sync(c)
	if again.LiveRemoved || again.Changed() {
		t.Errorf("second teardown should be a no-op: %+v", again)
	}
}

func TestSync_untrackedFileCountsAsUpdated(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "movies", "Alien (1979)", "Alien (1979).strm")
	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, []byte("http://x/alien"), 0o644)

	c := catalog.Classified{Movies: sample().Movies}
	eng := newEngine(t, root)
	r := eng.Sync(c)
	if r.Movies.Updated != 1 || r.Movies.New != 0 || len(r.NewItems) != 0 {
		t.Errorf("report = %+v", r.Movies)
	}
	if _, ok := eng.Store.Get("movies/Alien (1979)/Alien (1979).strm"); !ok {
		t.Error("store not updated")
	}
}

func TestSync_deletedFileCountsAsNew(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root)
	c := catalog.Classified{Movies: sample().Movies}
	eng.Sync(c)
	os.Remove(filepath.Join(root, "movies", "Alien (1979)", "Alien (1979).strm"))
	r := eng.Sync(c)
	if r.Movies.New != 1 || len(r.NewItems) != 1 {
		t.Errorf("report = %+v", r)
	}
}

func TestSync_editedFileRestored(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t, root)
	c := catalog.Classified{Movies: sample().Movies}
	eng.Sync(c)
	path := filepath.Join(root, "movies", "Alien (1979)", "Alien (1979).strm")
	os.WriteFile(path, []byte("tampered"), 0o644)
	r := eng.Sync(c)
	if r.Movies.Updated != 1 {
		t.Errorf("report = %+v", r.Movies)
	}
	if data, _ := os.ReadFile(path); string(data) != "http://x/alien" {
		t.Errorf("content = %q", data)
	}
}

func TestSync_writeFailureIsolated(t *testing.T) {
	root := t.TempDir()
	// A regular file where the movie folder should be makes that write fail.
	os.MkdirAll(filepath.Join(root, "movies"), 0o755)
	os.WriteFile(filepath.Join(root, "movies", "Alien (1979)"), []byte("x"), 0o644)

	eng := newEngine(t, root)
	r := eng.Sync(sample())
	if r.Movies.Failed != 1 || r.Movies.Written() != 0 {
		t.Errorf("movies = %+v", r.Movies)
	}
	if r.Series.New != 2 || r.Live.New != 1 {
		t.Errorf("other categories affected: series=%+v live=%+v", r.Series, r.Live)
	}
	if _, ok := eng.Store.Get("movies/Alien (1979)/Alien (1979).strm"); ok {
		t.Error("failed artifact must not be tracked")
	}
}

func TestReport_changedCategories(t *testing.T) {
	r := Report{Movies: Counts{Updated: 1}, LiveChanged: true}
	got := r.ChangedCategories()
	if len(got) != 2 || got[0] != "movies" || got[1] != "live" {
		t.Errorf("categories = %v", got)
	}
}

func TestSync_samePathKeepsFirstItem(t *testing.T) {
	root := t.TempDir()
	c := catalog.Classified{
		Series: []catalog.Item{
			catalog.NewSeries(indexer.Entry{Title: "Lost S01 E01", URL: "http://a/lost1"}, "Lost", 1, 1),
			catalog.NewSeries(indexer.Entry{Title: "Lost S01 E01", URL: "http://b/lost1"}, "Lost", 1, 1),
		},
		Movies: []catalog.Item{
			catalog.NewMovie(indexer.Entry{Title: "Heat: Cut", URL: "http://a/heat"}, ""),
			catalog.NewMovie(indexer.Entry{Title: "Heat/ Cut", URL: "http://b/heat"}, ""),
		},
	}

	eng := newEngine(t, root)
	first := eng.Sync(c)
	if first.Series.New != 1 || first.Series.Updated != 0 || first.Movies.New != 1 || first.Movies.Updated != 0 {
		t.Fatalf("first run = series %+v movies %+v", first.Series, first.Movies)
	}
	if len(first.NewItems) != 2 {
		t.Errorf("new items = %+v", first.NewItems)
	}
	if err := eng.Store.Save(); err != nil {
		t.Fatal(err)
	}

	for run := 2; run <= 3; run++ {
		eng = newEngine(t, root)
		r := eng.Sync(c)
		if tot := r.Totals(); tot.Written() != 0 || tot.Unchanged != 2 {
			t.Errorf("run %d totals = %+v", run, tot)
		}
		if err := eng.Store.Save(); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(filepath.Join(root, "series", "Lost", "Season 01", "Lost S01E01.strm"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "http://a/lost1" {
		t.Errorf("episode content = %q, want first item's URL", data)
	}
	data, err = os.ReadFile(filepath.Join(root, "movies", "Heat_ Cut", "Heat_ Cut.strm"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "http://a/heat" {
		t.Errorf("movie content = %q, want first item's URL", data)
	}
}
