// Package config loads m3u2strm settings from an optional TOML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that decodes from strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type PlaylistConfig struct {
	File string `toml:"file"` // local playlist path; also where a download is stored
	URL  string `toml:"url"`  // when set, the playlist is downloaded before each run
}

type OutputConfig struct {
	Dir           string `toml:"dir"`
	ChecksumsFile string `toml:"checksums_file"` // default <dir>/.checksums.json
	Ext           string `toml:"ext"`
}

// GroupsConfig is the legacy group-substring classification plus its name
// allow-lists.
type GroupsConfig struct {
	Series        []string `toml:"series"`
	Movies        []string `toml:"movies"`
	Live          []string `toml:"live"`
	IncludeSeries []string `toml:"include_series"`
	IncludeMovies []string `toml:"include_movies"`
}

type ScheduleConfig struct {
	IntervalMinutes int      `toml:"interval_minutes"`
	RerunCooldown   Duration `toml:"rerun_cooldown"`
}

type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type PlexConfig struct {
	URL           string `toml:"url"`
	Token         string `toml:"token"`
	SeriesSection string `toml:"series_section"`
	MoviesSection string `toml:"movies_section"`
	LiveSection   string `toml:"live_section"`
}

// Config is the full runtime configuration.
type Config struct {
	FiltersFile string `toml:"filters_file"`
	HistoryDB   string `toml:"history_db"` // "" disables run history
	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`

	Playlist PlaylistConfig `toml:"playlist"`
	Output   OutputConfig   `toml:"output"`
	Groups   GroupsConfig   `toml:"groups"`
	Schedule ScheduleConfig `toml:"schedule"`
	Telegram TelegramConfig `toml:"telegram"`
	Plex     PlexConfig     `toml:"plex"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		FiltersFile: filepath.Join("config", "filters.json"),
		LogLevel:    "info",
		Playlist:    PlaylistConfig{File: "m3u_file.m3u"},
		Output:      OutputConfig{Dir: "vods", Ext: ".strm"},
		Schedule:    ScheduleConfig{IntervalMinutes: 5, RerunCooldown: Duration{30 * time.Second}},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (when
// path is non-empty), then environment variables. Call LoadEnvFile first to
// pull in a .env file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("load settings %s: %w", path, err)
		}
	}
	c.applyEnv()
	if c.Output.Ext != "" && !strings.HasPrefix(c.Output.Ext, ".") {
		c.Output.Ext = "." + c.Output.Ext
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.Playlist.File = getEnv("M3U_FILE", c.Playlist.File)
	c.Playlist.URL = getEnv("M3U_URL", c.Playlist.URL)
	c.Output.Dir = getEnv("OUTPUT_DIR", c.Output.Dir)
	c.Output.ChecksumsFile = getEnv("CHECKSUMS_FILE", c.Output.ChecksumsFile)
	c.Output.Ext = getEnv("STRM_EXT", c.Output.Ext)
	c.FiltersFile = getEnv("FILTERS_FILE", c.FiltersFile)

	c.Groups.Series = getEnvList("SERIES_GROUPS", c.Groups.Series)
	c.Groups.Movies = getEnvList("MOVIES_GROUPS", c.Groups.Movies)
	c.Groups.Live = getEnvList("LIVE_GROUPS", c.Groups.Live)
	c.Groups.IncludeSeries = getEnvList("INCLUDE_SERIES", c.Groups.IncludeSeries)
	c.Groups.IncludeMovies = getEnvList("INCLUDE_MOVIES", c.Groups.IncludeMovies)

	c.Schedule.IntervalMinutes = getEnvInt("TASK_INTERVAL", c.Schedule.IntervalMinutes)
	c.Schedule.RerunCooldown.Duration = getEnvDuration("RERUN_COOLDOWN", c.Schedule.RerunCooldown.Duration)

	c.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
	c.Telegram.ChatID = getEnv("TELEGRAM_CHAT_ID", c.Telegram.ChatID)

	c.Plex.URL = getEnv("PLEX_URL", c.Plex.URL)
	c.Plex.Token = getEnv("PLEX_TOKEN", c.Plex.Token)
	c.Plex.SeriesSection = getEnv("PLEX_SERIES_SECTION", c.Plex.SeriesSection)
	c.Plex.MoviesSection = getEnv("PLEX_MOVIES_SECTION", c.Plex.MoviesSection)
	c.Plex.LiveSection = getEnv("PLEX_LIVE_SECTION", c.Plex.LiveSection)

	c.HistoryDB = getEnv("HISTORY_DB", c.HistoryDB)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	if getEnvBool("DEBUG_LOGGING", false) {
		c.LogLevel = "debug"
	}
}

// Validate rejects settings no run could work with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Output.Dir) == "" {
		errs = append(errs, errors.New("output dir must be set"))
	}
	if c.Schedule.IntervalMinutes <= 0 {
		errs = append(errs, fmt.Errorf("task interval must be positive, got %d", c.Schedule.IntervalMinutes))
	}
	if c.Schedule.RerunCooldown.Duration < 0 {
		errs = append(errs, errors.New("rerun cooldown must not be negative"))
	}
	return errors.Join(errs...)
}

// ChecksumsPath is the checksum store location.
func (c *Config) ChecksumsPath() string {
	if c.Output.ChecksumsFile != "" {
		return c.Output.ChecksumsFile
	}
	return filepath.Join(c.Output.Dir, ".checksums.json")
}

// Interval is the scheduler period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Schedule.IntervalMinutes) * time.Minute
}

// PlexSections maps output categories to configured Plex section keys.
func (c *Config) PlexSections() map[string]string {
	out := make(map[string]string)
	for cat, key := range map[string]string{
		"series": c.Plex.SeriesSection,
		"movies": c.Plex.MoviesSection,
		"live":   c.Plex.LiveSection,
	} {
		if key = strings.TrimSpace(key); key != "" {
			out[cat] = key
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvList splits a comma-separated variable, dropping blank items.
func getEnvList(key string, defaultVal []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
