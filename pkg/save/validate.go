// Package save implements the save-directory validator: it
// confirms that a directory is a valid game save with the expected
// per-computer subtree before the planner trusts it as a sync target.
package save

import (
	"os"

	"github.com/pkg/errors"

	"github.com/ccsync/ccsync/pkg/ccsyncfs"
)

// ComputersSubpath is the path, relative to a save directory, at which
// per-computer directories live.
const ComputersSubpath = "computercraft/computer"

// optionalMarkers are files/directories whose absence is reported but does
// not invalidate the save — a save missing level.dat or session.lock is
// unusual but not necessarily broken (e.g. a save that has never been
// opened, or one mid-creation by the game).
var optionalMarkers = []string{"level.dat", "session.lock", "region"}

// Result is the outcome of validating a save directory.
type Result struct {
	// IsValid is true iff the computers subtree exists and is a directory.
	// Missing optional markers do not affect IsValid.
	IsValid bool
	// SavePath is the normalized, absolute path to the save directory that
	// was validated.
	SavePath string
	// Errors holds fatal problems (e.g. IO failures, or a missing/non-
	// directory computers subtree).
	Errors []error
	// MissingFiles lists optional markers (level.dat, session.lock, region)
	// that were not found. Their absence is a warning, not a failure.
	MissingFiles []string
}

// Validate confirms that saveDir is a valid save directory: it must contain
// level.dat, session.lock, and region/ (all optional — listed but not
// fatal if missing) and computercraft/computer/ as a directory (fatal if
// missing or not a directory). Any IO error encountered while probing is
// reported as an error with the original message attached; Validate never
// panics and never returns a nil Result.
func Validate(saveDir string) Result {
	normalized, err := ccsyncfs.NormalizeAbsolute(saveDir)
	if err != nil {
		return Result{
			SavePath: saveDir,
			Errors:   []error{errors.Wrap(err, "unable to normalize save directory path")},
		}
	}

	result := Result{SavePath: normalized}

	for _, marker := range optionalMarkers {
		if !exists(ccsyncfs.ToOSPath(ccsyncfs.Join(normalized, marker))) {
			result.MissingFiles = append(result.MissingFiles, marker)
		}
	}

	computersPath := ccsyncfs.Join(normalized, ComputersSubpath)
	info, err := os.Stat(ccsyncfs.ToOSPath(computersPath))
	if err != nil {
		if os.IsNotExist(err) {
			result.Errors = append(result.Errors, errors.Errorf(
				"save directory is missing the computer subtree at %q", ComputersSubpath,
			))
		} else {
			result.Errors = append(result.Errors, errors.Wrap(err, "unable to stat computer subtree"))
		}
		return result
	}
	if !info.IsDir() {
		result.Errors = append(result.Errors, errors.Errorf(
			"%q exists but is not a directory", ComputersSubpath,
		))
		return result
	}

	result.IsValid = true
	return result
}

func exists(osPath string) bool {
	_, err := os.Stat(osPath)
	return err == nil
}
