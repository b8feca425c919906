package indexer

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	headerMarker = "#EXTM3U"
	entryMarker  = "#EXTINF:"
)

// ErrNoPlaylist means there is no usable playlist to run against.
var ErrNoPlaylist = errors.New("no playlist available")

// Entry is one #EXTINF record in playlist order. Attribute fields are empty
// when the header does not carry them.
type Entry struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	TVGID      string `json:"tvg_id"`
	TVGName    string `json:"tvg_name"`
	TVGLogo    string `json:"tvg_logo"`
	GroupTitle string `json:"group_title"`
}

var attrPatterns = map[string]*regexp.Regexp{
	"tvg-id":      regexp.MustCompile(`tvg-id="([^"]*)"`),
	"tvg-name":    regexp.MustCompile(`tvg-name="([^"]*)"`),
	"tvg-logo":    regexp.MustCompile(`tvg-logo="([^"]*)"`),
	"group-title": regexp.MustCompile(`group-title="([^"]*)"`),
}

// Decode returns raw as text: UTF-8 when it is valid UTF-8, otherwise
// ISO-8859-1, which maps every byte and cannot fail.
func Decode(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		// Latin-1 decoding has no invalid input; keep the bytes as-is if the
		// decoder ever disagrees.
		return string(raw)
	}
	return string(out)
}

// ParseFile reads and parses the playlist at path. A missing file yields
// ErrNoPlaylist.
func ParseFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoPlaylist, path)
		}
		return nil, fmt.Errorf("read playlist %s: %w", path, err)
	}
	return ParseM3UBytes(raw), nil
}

// ParseM3UBytes decodes raw (see Decode) and parses it.
func ParseM3UBytes(raw []byte) []Entry {
	return ParseM3U(Decode(raw))
}

// ParseM3U splits text on #EXTINF: markers. Segments without a locator line
// are skipped; nothing else is rejected.
func ParseM3U(text string) []Entry {
	if strings.HasPrefix(strings.TrimSpace(text), headerMarker) {
		i := strings.Index(text, headerMarker)
		text = text[i+len(headerMarker):]
	}
	segments := strings.Split(text, entryMarker)
	entries := make([]Entry, 0, len(segments))
	for _, seg := range segments[1:] {
		e, ok := parseSegment(seg)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func parseSegment(seg string) (Entry, bool) {
	seg = strings.TrimSpace(seg)
	header, rest, found := strings.Cut(seg, "\n")
	if !found {
		return Entry{}, false
	}
	header = strings.TrimRight(header, "\r")
	return Entry{
		Title:      titleFromHeader(header),
		URL:        strings.TrimSpace(rest),
		TVGID:      attr(header, "tvg-id"),
		TVGName:    attr(header, "tvg-name"),
		TVGLogo:    attr(header, "tvg-logo"),
		GroupTitle: attr(header, "group-title"),
	}, true
}

// titleFromHeader returns the text after the last comma of the header.
func titleFromHeader(header string) string {
	i := strings.LastIndex(header, ",")
	if i < 0 {
		return header
	}
	title := strings.TrimLeft(header[i+1:], " \t")
	if title == "" {
		return header
	}
	return title
}

func attr(header, name string) string {
	m := attrPatterns[name].FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}
