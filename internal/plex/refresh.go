package plex

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/snapetech/m3u2strm/internal/logging"
)

// Refresher refreshes the Plex sections backing changed output categories.
// Sections maps a category ("series", "movies", "live") to a section key;
// categories without a key are resolved by matching section locations
// against Dirs, the absolute output directory of each category.
type Refresher struct {
	Client   *Client
	Sections map[string]string
	Dirs     map[string]string
	Logger   *log.Logger
}

// Refresh refreshes each distinct section once. Categories that resolve to
// no section are logged and skipped.
func (r *Refresher) Refresh(ctx context.Context, categories []string) error {
	logger := logging.Component(r.Logger, "plex")
	if len(categories) == 0 {
		return nil
	}
	keys, err := r.resolve(ctx, categories)
	if err != nil {
		return err
	}
	var errs []error
	done := make(map[string]bool)
	for _, cat := range categories {
		key, ok := keys[cat]
		if !ok {
			logger.Debug("no plex section for category", "category", cat)
			continue
		}
		if done[key] {
			continue
		}
		done[key] = true
		if err := r.Client.RefreshLibrarySection(ctx, key); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info("refreshed plex section", "category", cat, "section", key)
	}
	return errors.Join(errs...)
}

func (r *Refresher) resolve(ctx context.Context, categories []string) (map[string]string, error) {
	keys := make(map[string]string)
	var pending []string
	for _, cat := range categories {
		if key := r.Sections[cat]; key != "" {
			keys[cat] = key
		} else if r.Dirs[cat] != "" {
			pending = append(pending, cat)
		}
	}
	if len(pending) == 0 {
		return keys, nil
	}
	sections, err := r.Client.ListLibrarySections(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover plex sections: %w", err)
	}
	for _, cat := range pending {
		want := filepath.Clean(r.Dirs[cat])
		for _, sec := range sections {
			if containsPath(sec.Locations, want) {
				keys[cat] = sec.Key
				break
			}
		}
	}
	return keys, nil
}

func containsPath(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}
