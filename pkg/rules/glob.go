package rules

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/ccsync/ccsync/pkg/ccsyncfs"
)

// globCacheKey identifies one memoized glob expansion.
type globCacheKey struct {
	sourceRoot string
	pattern    string
}

// GlobCache memoizes glob expansions keyed by (sourceRoot, pattern). It is
// safe for concurrent use, though this tool's cooperative single-threaded
// scheduling model means concurrent calls never actually overlap
// in practice — the locking exists for robustness, not for a property the
// design otherwise relies on.
type GlobCache struct {
	mu      sync.Mutex
	entries map[globCacheKey][]string
}

// NewGlobCache creates an empty glob cache.
func NewGlobCache() *GlobCache {
	return &GlobCache{entries: make(map[globCacheKey][]string)}
}

// Invalidate clears every memoized glob expansion. Called whenever the plan
// cache is invalidated.
func (c *GlobCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[globCacheKey][]string)
}

// expandGlob expands pattern relative to sourceRoot into a deduplicated
// list of absolute, forward-slash-normalized regular-file paths. An
// absolute pattern (leading "/") is matched against the filesystem root
// instead of sourceRoot. Results are memoized in cache, if non-nil.
func expandGlob(cache *GlobCache, sourceRoot, pattern string) ([]string, error) {
	key := globCacheKey{sourceRoot: sourceRoot, pattern: pattern}

	if cache != nil {
		cache.mu.Lock()
		if cached, ok := cache.entries[key]; ok {
			cache.mu.Unlock()
			return cached, nil
		}
		cache.mu.Unlock()
	}

	walkRoot := sourceRoot
	matchPattern := pattern
	if len(pattern) > 0 && pattern[0] == '/' {
		walkRoot = "/"
		matchPattern = pattern[1:]
	}

	if _, err := doublestar.Match(matchPattern, ""); err != nil {
		return nil, errors.Errorf("invalid pattern %q: %v", pattern, err)
	}

	var files []string
	walkErr := filepath.WalkDir(ccsyncfs.ToOSPath(walkRoot), func(osPath string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return errors.Wrapf(err, "%s cannot be accessed", osPath)
		}
		if d.IsDir() {
			return nil
		}

		absPath := ccsyncfs.ToSlash(osPath)
		relative := relativeTo(walkRoot, absPath)

		matched, matchErr := doublestar.Match(matchPattern, relative)
		if matchErr != nil {
			return errors.Errorf("invalid pattern %q: %v", pattern, matchErr)
		}
		if !matched {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			if os.IsNotExist(statErr) {
				return nil
			}
			return errors.Wrapf(statErr, "%s cannot be accessed", absPath)
		}
		if info.Mode().IsRegular() {
			files = append(files, absPath)
		}
		return nil
	})

	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			walkErr = nil
		} else {
			return nil, walkErr
		}
	}

	if cache != nil {
		cache.mu.Lock()
		cache.entries[key] = files
		cache.mu.Unlock()
	}

	return files, nil
}

// ExpandAllSourceFiles expands every rule's Source pattern against
// sourceRoot and returns the deduplicated union of matched absolute file
// paths. It is the CLI boundary's entry point for watch mode's setup step;
// unlike plan resolution it does not attach computers or targets, it just
// enumerates the set of files the watcher needs to subscribe to.
func ExpandAllSourceFiles(sourceRoot string, syncRules []SyncRule) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, rule := range syncRules {
		matched, err := expandGlob(nil, sourceRoot, rule.Source)
		if err != nil {
			return nil, errors.Wrapf(err, "rule with source %q", rule.Source)
		}
		for _, f := range matched {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	return files, nil
}

// relativeTo strips root from abs, producing a forward-slash relative path
// suitable for doublestar matching.
func relativeTo(root, abs string) string {
	root = ccsyncfs.ToSlash(root)
	rel := abs
	if root != "/" {
		rel = abs[len(root):]
	}
	for len(rel) > 0 && rel[0] == '/' {
		rel = rel[1:]
	}
	return rel
}
