package ccsyncfs

import "path/filepath"

// filepathFromSlash converts a forward-slash path to the host's native
// separator form so it can be passed to filepath.Abs/filepath.Clean, which
// are separator-aware on Windows.
func filepathFromSlash(p string) string {
	return filepath.FromSlash(p)
}

// absPath wraps filepath.Abs so callers in this package don't need to import
// path/filepath directly, keeping the forward-slash invariant localized here.
func absPath(p string) (string, error) {
	return filepath.Abs(p)
}

// ToOSPath converts a normalized forward-slash path to the host's native
// path form, for handing to os/io functions. Every package that performs
// real filesystem I/O on a normalized path should funnel it through this
// function rather than assuming forward slashes work directly (they do on
// POSIX but not on Windows).
func ToOSPath(p string) string {
	return filepath.FromSlash(p)
}
