package catalog

import (
	"strings"
	"testing"
)

func TestParseSeriesInfo(t *testing.T) {
	tests := []struct {
		title           string
		name            string
		season, episode int
		ok              bool
	}{
		{"Breaking Bad S01 E02", "Breaking Bad", 1, 2, true},
		{"breaking bad s3 e10 Finale", "breaking bad", 3, 10, true},
		{"The Office 2x05", "The Office", 2, 5, true},
		{"The Office 2X05", "The Office", 2, 5, true},
		{"  Padded   S10 E100", "Padded", 10, 100, true},
		{"Show S01E02", "", 0, 0, false},
		{"Alien (1979)", "", 0, 0, false},
		{"S01 E01", "", 0, 0, false},
		{"Specials S00 E01", "", 0, 0, false},
	}
	for _, tt := range tests {
		name, season, episode, ok := ParseSeriesInfo(tt.title)
		if ok != tt.ok || name != tt.name || season != tt.season || episode != tt.episode {
			t.Errorf("ParseSeriesInfo(%q) = (%q, %d, %d, %v), want (%q, %d, %d, %v)",
				tt.title, name, season, episode, ok, tt.name, tt.season, tt.episode, tt.ok)
		}
	}
}

func TestParseSeriesInfo_spacedPatternWinsOverCross(t *testing.T) {
	name, season, episode, ok := ParseSeriesInfo("Show 1x02 S03 E04")
	if !ok || name != "Show 1x02" || season != 3 || episode != 4 {
		t.Errorf("got (%q, %d, %d, %v)", name, season, episode, ok)
	}
}

func TestExtractYear(t *testing.T) {
	cases := map[string]string{
		"Alien (1979)":         "1979",
		"Alien (1979) ":        "",
		"Alien 1979":           "",
		"Blade Runner (82)":    "",
		"2001 (1968)":          "1968",
		"Film (2020) (2021)":   "2021",
		"Remake (1999) Extras": "",
	}
	for in, want := range cases {
		if got := ExtractYear(in); got != want {
			t.Errorf("ExtractYear(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanChannelTitle(t *testing.T) {
	cases := map[string]string{
		"Channel FHD":        "Channel",
		"Channel HD":         "Channel",
		"channel hd":         "channel",
		"Sky Sports UHD":     "Sky Sports",
		"Movies 4K Extra":    "Movies Extra",
		"News (1080p)":       "News",
		"News SD (720p)":     "News",
		"HDTV":               "HDTV",
		"Channel HDR":        "Channel HDR",
		"  Plain Channel  ":  "Plain Channel",
		"Sport (1080P)":      "Sport (1080P)",
	}
	for in, want := range cases {
		if got := CleanChannelTitle(in); got != want {
			t.Errorf("CleanChannelTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	got := SanitizeFilename("Show: Part 2/3.")
	if strings.ContainsAny(got, ":/") || strings.HasSuffix(got, ".") {
		t.Errorf("SanitizeFilename left reserved characters: %q", got)
	}
	if got != "Show_ Part 2_3" {
		t.Errorf("SanitizeFilename = %q", got)
	}
	cases := map[string]string{
		`a<b>c"d\e|f?g*h`: "a_b_c_d_e_f_g_h",
		"Trailing . . ":   "Trailing",
		"Dr. Who":         "Dr. Who",
		"":                "",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
