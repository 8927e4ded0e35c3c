// Package ccsyncfs provides path normalization and classification utilities
// shared by config validation and by runtime target resolution.
// All stored and compared paths use forward slashes, regardless of host OS.
package ccsyncfs

import (
	"os"
	"os/user"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// tildeExpand expands a leading ~ or ~<username> to the relevant user's home
// directory. Paths not beginning with ~ are returned unchanged.
func tildeExpand(p string) (string, error) {
	if p == "" || p[0] != '~' {
		return p, nil
	}

	separatorIndex := strings.IndexAny(p, "/\\")
	var username, remaining string
	if separatorIndex > 0 {
		username = p[1:separatorIndex]
		remaining = p[separatorIndex+1:]
	} else {
		username = p[1:]
	}

	var home string
	if username == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "unable to compute path to home directory")
		}
		home = h
	} else {
		u, err := user.Lookup(username)
		if err != nil {
			return "", errors.Wrap(err, "unable to look up user")
		}
		home = u.HomeDir
	}

	return path.Join(ToSlash(home), remaining), nil
}

// ToSlash converts backslashes to forward slashes. Unlike filepath.ToSlash,
// this is unconditional on every platform, since this package's invariant is
// that stored paths are always forward-slash form.
func ToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// collapseSlashes collapses runs of repeated forward slashes into one, except
// for a leading double-slash on POSIX systems (rare, and not a case this tool
// needs to distinguish), which is harmless to collapse here too since the
// save/source trees this tool operates on are never accessed via such paths.
func collapseSlashes(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	lastWasSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if lastWasSlash {
				continue
			}
			lastWasSlash = true
		} else {
			lastWasSlash = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// NormalizeOptions controls optional behavior of Normalize.
type NormalizeOptions struct {
	// PreserveGlob, when true, suppresses trailing-slash trimming — a
	// trailing slash is load-bearing for glob patterns that end in a
	// directory separator and for directory-typed rule targets.
	PreserveGlob bool
}

// Normalize converts p to forward-slash form: backslashes become forward
// slashes, repeated separators collapse to one, a leading ~ expands to the
// user's home directory, and (unless opts.PreserveGlob is set) a trailing
// slash is dropped. Normalize is total: it never panics or errors for empty
// or root paths, and "/" normalizes to "/" (a directory) under every
// option combination.
func Normalize(p string, opts NormalizeOptions) (string, error) {
	expanded, err := tildeExpand(p)
	if err != nil {
		return "", errors.Wrap(err, "unable to expand home directory")
	}

	slashed := ToSlash(expanded)
	collapsed := collapseSlashes(slashed)

	if collapsed == "" {
		return "", nil
	}
	if collapsed == "/" {
		return "/", nil
	}

	if !opts.PreserveGlob && len(collapsed) > 1 && strings.HasSuffix(collapsed, "/") {
		collapsed = strings.TrimSuffix(collapsed, "/")
	}

	return collapsed, nil
}

// NormalizeAbsolute normalizes p as Normalize does and additionally resolves
// it to an absolute path relative to the current working directory (or, for
// already-absolute paths, simply cleans it). This is the form used for every
// sourceRoot and minecraftSavePath in configuration.
func NormalizeAbsolute(p string) (string, error) {
	normalized, err := Normalize(p, NormalizeOptions{})
	if err != nil {
		return "", err
	}
	if normalized == "" {
		normalized = "."
	}

	native := filepathFromSlash(normalized)
	abs, err := absPath(native)
	if err != nil {
		return "", errors.Wrap(err, "unable to compute absolute path")
	}

	return ToSlash(abs), nil
}
