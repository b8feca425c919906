package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allKeys = []string{
	"M3U_FILE", "M3U_URL", "OUTPUT_DIR", "CHECKSUMS_FILE", "FILTERS_FILE", "STRM_EXT",
	"SERIES_GROUPS", "MOVIES_GROUPS", "LIVE_GROUPS", "INCLUDE_SERIES", "INCLUDE_MOVIES",
	"TASK_INTERVAL", "RERUN_COOLDOWN", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"PLEX_URL", "PLEX_TOKEN", "PLEX_SERIES_SECTION", "PLEX_MOVIES_SECTION", "PLEX_LIVE_SECTION",
	"HISTORY_DB", "METRICS_ADDR", "LOG_LEVEL", "DEBUG_LOGGING",
}

// clearEnv unsets every setting for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_defaults(t *testing.T) {
	clearEnv(t)
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Playlist.File != "m3u_file.m3u" || c.Output.Dir != "vods" || c.Output.Ext != ".strm" {
		t.Errorf("defaults = %+v", c)
	}
	if c.Interval() != 5*time.Minute || c.Schedule.RerunCooldown.Duration != 30*time.Second {
		t.Errorf("interval=%v cooldown=%v", c.Interval(), c.Schedule.RerunCooldown)
	}
	if c.ChecksumsPath() != filepath.Join("vods", ".checksums.json") {
		t.Errorf("checksums path = %q", c.ChecksumsPath())
	}
	if c.FiltersFile != filepath.Join("config", "filters.json") || c.LogLevel != "info" {
		t.Errorf("filters=%q level=%q", c.FiltersFile, c.LogLevel)
	}
}

func TestLoad_env(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERIES_GROUPS", "Series, TV Shows ,,")
	t.Setenv("INCLUDE_MOVIES", "Alien")
	t.Setenv("TASK_INTERVAL", "15")
	t.Setenv("RERUN_COOLDOWN", "90")
	t.Setenv("DEBUG_LOGGING", "true")
	t.Setenv("PLEX_MOVIES_SECTION", "4")
	t.Setenv("STRM_EXT", "strm")

	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Groups.Series) != 2 || c.Groups.Series[1] != "TV Shows" {
		t.Errorf("series groups = %q", c.Groups.Series)
	}
	if len(c.Groups.IncludeMovies) != 1 || c.Groups.IncludeMovies[0] != "Alien" {
		t.Errorf("include movies = %q", c.Groups.IncludeMovies)
	}
	if c.Interval() != 15*time.Minute || c.Schedule.RerunCooldown.Duration != 90*time.Second {
		t.Errorf("interval=%v cooldown=%v", c.Interval(), c.Schedule.RerunCooldown)
	}
	if c.LogLevel != "debug" {
		t.Errorf("log level = %q", c.LogLevel)
	}
	if s := c.PlexSections(); len(s) != 1 || s["movies"] != "4" {
		t.Errorf("plex sections = %v", s)
	}
	if c.Output.Ext != ".strm" {
		t.Errorf("ext = %q", c.Output.Ext)
	}
}

func TestLoad_fileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "m3u2strm.toml")
	content := `
filters_file = "/etc/m3u2strm/filters.json"
history_db = "/var/lib/m3u2strm/history.db"

[playlist]
url = "http://panel.example/get.php"

[output]
dir = "/data/vods"

[groups]
movies = ["Movies", "Films"]

[schedule]
interval_minutes = 10
rerun_cooldown = "2m"

[telegram]
bot_token = "file-token"
chat_id = "1"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OUTPUT_DIR", "/mnt/vods")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Output.Dir != "/mnt/vods" || c.Telegram.BotToken != "env-token" || c.Telegram.ChatID != "1" {
		t.Errorf("env should override file: %+v", c)
	}
	if c.Playlist.URL != "http://panel.example/get.php" || c.Playlist.File != "m3u_file.m3u" {
		t.Errorf("playlist = %+v", c.Playlist)
	}
	if len(c.Groups.Movies) != 2 || c.Schedule.IntervalMinutes != 10 || c.Schedule.RerunCooldown.Duration != 2*time.Minute {
		t.Errorf("file values lost: %+v %+v", c.Groups, c.Schedule)
	}
	if c.HistoryDB != "/var/lib/m3u2strm/history.db" || c.FiltersFile != "/etc/m3u2strm/filters.json" {
		t.Errorf("top-level keys: %q %q", c.HistoryDB, c.FiltersFile)
	}
}

func TestLoad_invalid(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("explicit missing settings file should fail")
	}
	t.Setenv("TASK_INTERVAL", "0")
	if _, err := Load(""); err == nil {
		t.Error("zero interval should fail")
	}
}
