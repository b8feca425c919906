package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/snapetech/m3u2strm/internal/strm"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := Run{ID: uuid.NewString(), Started: base, Finished: base.Add(time.Second), Trigger: "schedule", Mode: "filter", Entries: 10,
		Totals:   strm.Counts{New: 1, Unchanged: 2},
		NewItems: []strm.NewItem{{Category: "movies", Name: "Alien (1979)", Display: "Alien (1979)", Path: "movies/Alien (1979)/Alien (1979).strm"}}}
	second := Run{ID: uuid.NewString(), Started: base.Add(time.Hour), Finished: base.Add(time.Hour), Trigger: "manual", Mode: "filter",
		LiveRemoved: true, Err: "boom"}
	for _, r := range []Run{first, second} {
		if err := db.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID || !runs[0].LiveRemoved || runs[0].Err != "boom" {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[1].Totals.New != 1 || runs[1].Entries != 10 || !runs[1].Started.Equal(base) {
		t.Errorf("first run = %+v", runs[1])
	}

	items, err := db.Items(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != "Alien (1979)" {
		t.Errorf("items = %+v", items)
	}
}

func TestPrune(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	db.Record(ctx, Run{ID: "old", Started: old, Finished: old, Trigger: "schedule", Mode: "filter",
		NewItems: []strm.NewItem{{Category: "series", Name: "Lost", Season: 1, Episode: 1, Display: "Lost S01E01", Path: "p"}}})
	db.Record(ctx, Run{ID: "new", Started: time.Now(), Finished: time.Now(), Trigger: "schedule", Mode: "filter"})

	n, err := db.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("pruned %d, err %v", n, err)
	}
	items, _ := db.Items(ctx, "old")
	if len(items) != 0 {
		t.Errorf("items of pruned run remain: %+v", items)
	}
}
