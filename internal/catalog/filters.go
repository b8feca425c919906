package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/snapetech/m3u2strm/internal/fsx"
)

// Filters is the persisted inclusion configuration for filter-driven mode.
// Every field is optional.
type Filters struct {
	Series       []string `json:"series"`
	Movies       []string `json:"movies"`
	Live         []string `json:"live"`
	SeriesGroups []string `json:"series_groups"`
	MoviesGroups []string `json:"movies_groups"`
	LiveGroups   []string `json:"live_groups"`
	IncludeAll   bool     `json:"include_all,omitempty"`
}

// Configured reports whether any filter-driven setting is present.
func (f Filters) Configured() bool {
	return f.IncludeAll ||
		len(f.Series) > 0 || len(f.Movies) > 0 || len(f.Live) > 0 ||
		len(f.SeriesGroups) > 0 || len(f.MoviesGroups) > 0 || len(f.LiveGroups) > 0
}

// LoadFilters reads a filters file. A missing file yields empty filters and
// no error; an unreadable or malformed file is an error.
func LoadFilters(path string) (Filters, error) {
	var f Filters
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, fmt.Errorf("read filters %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return Filters{}, fmt.Errorf("parse filters %s: %w", path, err)
	}
	return f, nil
}

// SaveFilters writes f as indented JSON, replacing path atomically.
func SaveFilters(path string, f Filters) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// nameSet is a case-insensitive set of names.
type nameSet map[string]struct{}

func newNameSet(names []string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s nameSet) has(name string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// exactSet is a case-sensitive set used for group labels in filter-driven mode.
type exactSet map[string]struct{}

func newExactSet(values []string) exactSet {
	s := make(exactSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s exactSet) has(v string) bool {
	_, ok := s[v]
	return ok
}
