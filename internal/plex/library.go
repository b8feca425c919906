// Package plex talks to a Plex Media Server's library API: listing and
// creating sections for the output tree and refreshing them after a sync.
package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/snapetech/m3u2strm/internal/httpclient"
)

type LibrarySection struct {
	Key       string
	Type      string
	Title     string
	Locations []string
}

type libraryMediaContainer struct {
	Directories []libraryDirectory `xml:"Directory"`
}

type libraryDirectory struct {
	Key       string            `xml:"key,attr"`
	Type      string            `xml:"type,attr"`
	Title     string            `xml:"title,attr"`
	Locations []libraryLocation `xml:"Location"`
}

type libraryLocation struct {
	Path string `xml:"path,attr"`
}

func (d libraryDirectory) section() LibrarySection {
	sec := LibrarySection{Key: d.Key, Type: d.Type, Title: d.Title}
	for _, loc := range d.Locations {
		sec.Locations = append(sec.Locations, filepath.Clean(loc.Path))
	}
	return sec
}

type LibraryCreateSpec struct {
	Name     string
	Type     string // "movie" | "show"
	Path     string
	Language string // defaults to en-US
}

// Client is a Plex server endpoint plus token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func (c *Client) url(path string, q url.Values) (string, error) {
	baseURL := strings.TrimSpace(c.BaseURL)
	if baseURL == "" {
		return "", fmt.Errorf("plex base url required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse plex base url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	qq := u.Query()
	for k, vals := range q {
		for _, v := range vals {
			qq.Add(k, v)
		}
	}
	if c.Token != "" {
		qq.Set("X-Plex-Token", c.Token)
	}
	u.RawQuery = qq.Encode()
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values) (int, []byte, error) {
	u, err := c.url(path, q)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("User-Agent", httpclient.UserAgent)
	resp, err := httpclient.DoWithRetry(ctx, c.HTTP, req, httpclient.DefaultRetryPolicy)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body, nil
}

func (c *Client) ListLibrarySections(ctx context.Context) ([]LibrarySection, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/library/sections", nil)
	if err != nil {
		return nil, fmt.Errorf("list library sections: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list library sections returned %d", status)
	}
	var mc libraryMediaContainer
	if err := xml.Unmarshal(body, &mc); err != nil {
		return nil, fmt.Errorf("parse library sections: %w", err)
	}
	out := make([]LibrarySection, 0, len(mc.Directories))
	for _, d := range mc.Directories {
		out = append(out, d.section())
	}
	return out, nil
}

func (c *Client) CreateLibrarySection(ctx context.Context, spec LibraryCreateSpec) (*LibrarySection, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("library section name required")
	}
	spec.Path = filepath.Clean(strings.TrimSpace(spec.Path))
	if spec.Path == "" || spec.Path == "." || spec.Path == "/" {
		return nil, fmt.Errorf("library section path must be a specific directory")
	}
	if spec.Type != "movie" && spec.Type != "show" {
		return nil, fmt.Errorf("unsupported library section type %q", spec.Type)
	}
	agent, scanner := "tv.plex.agents.movie", "Plex Movie"
	if spec.Type == "show" {
		agent, scanner = "tv.plex.agents.series", "Plex TV Series"
	}
	lang := strings.TrimSpace(spec.Language)
	if lang == "" {
		lang = "en-US"
	}
	q := url.Values{}
	q.Set("type", spec.Type)
	q.Set("name", spec.Name)
	q.Set("agent", agent)
	q.Set("scanner", scanner)
	q.Set("language", lang)
	q.Set("location", spec.Path)
	status, body, err := c.do(ctx, http.MethodPost, "/library/sections", q)
	if err != nil {
		return nil, fmt.Errorf("create library section %q: %w", spec.Name, err)
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, fmt.Errorf("create library section %q returned %d: %s", spec.Name, status, strings.TrimSpace(string(body)))
	}
	var mc libraryMediaContainer
	if err := xml.Unmarshal(body, &mc); err != nil {
		return nil, fmt.Errorf("parse create library section %q: %w", spec.Name, err)
	}
	if len(mc.Directories) == 0 {
		return nil, fmt.Errorf("create library section %q returned no Directory", spec.Name)
	}
	sec := mc.Directories[0].section()
	return &sec, nil
}

// EnsureLibrarySection returns the section named spec.Name, creating it when
// absent. An existing section with another type or location is an error.
func (c *Client) EnsureLibrarySection(ctx context.Context, spec LibraryCreateSpec) (section *LibrarySection, created bool, err error) {
	sections, err := c.ListLibrarySections(ctx)
	if err != nil {
		return nil, false, err
	}
	wantPath := filepath.Clean(spec.Path)
	for _, sec := range sections {
		if sec.Title != spec.Name {
			continue
		}
		if sec.Type != spec.Type {
			return nil, false, fmt.Errorf("library %q exists with type=%s (wanted %s)", spec.Name, sec.Type, spec.Type)
		}
		for _, p := range sec.Locations {
			if p == wantPath {
				return &sec, false, nil
			}
		}
		return nil, false, fmt.Errorf("library %q exists but path differs (have %v, want %s)", spec.Name, sec.Locations, wantPath)
	}
	sec, err := c.CreateLibrarySection(ctx, spec)
	if err != nil {
		return nil, false, err
	}
	return sec, true, nil
}

func (c *Client) RefreshLibrarySection(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("library section key required")
	}
	status, body, err := c.do(ctx, http.MethodGet, "/library/sections/"+url.PathEscape(key)+"/refresh", nil)
	if err != nil {
		return fmt.Errorf("refresh library section %s: %w", key, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("refresh library section %s returned %d: %s", key, status, strings.TrimSpace(string(body)))
	}
	return nil
}
