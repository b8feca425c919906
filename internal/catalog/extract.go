package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	seriesSpaced = regexp.MustCompile(`(?i)(.*?)\s+S(\d+)\s+E(\d+)`)
	seriesCross  = regexp.MustCompile(`(?i)(.*?)\s+(\d+)x(\d+)`)
	trailingYear = regexp.MustCompile(`\((\d{4})\)$`)
	qualityTag   = regexp.MustCompile(`(?i)\s+(FHD|HD|SD|UHD|4K)(\s+|$)`)
	resolution   = regexp.MustCompile(`\s+\(\d+p\)(\s+|$)`)
	reservedRune = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// ParseSeriesInfo extracts the series name, season and episode from titles
// like "Name S01 E02" or "Name 1x02". The first pattern wins. ok is false when
// neither pattern matches or the numbers are not positive.
func ParseSeriesInfo(title string) (name string, season, episode int, ok bool) {
	m := seriesSpaced.FindStringSubmatch(title)
	if m == nil {
		m = seriesCross.FindStringSubmatch(title)
	}
	if m == nil {
		return "", 0, 0, false
	}
	season, err := strconv.Atoi(m[2])
	if err != nil || season <= 0 {
		return "", 0, 0, false
	}
	episode, err = strconv.Atoi(m[3])
	if err != nil || episode <= 0 {
		return "", 0, 0, false
	}
	return strings.TrimSpace(m[1]), season, episode, true
}

// ExtractYear returns YYYY from a title ending in "(YYYY)", or "".
func ExtractYear(title string) string {
	m := trailingYear.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return m[1]
}

// CleanChannelTitle drops quality tags (FHD, HD, SD, UHD, 4K) and a
// "(1080p)"-style annotation from a live channel title.
func CleanChannelTitle(title string) string {
	s := qualityTag.ReplaceAllString(title, " ")
	s = resolution.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SanitizeFilename replaces characters reserved on common filesystems with
// '_' and strips trailing dots and spaces.
func SanitizeFilename(name string) string {
	return strings.TrimRight(reservedRune.ReplaceAllString(name, "_"), ". ")
}
