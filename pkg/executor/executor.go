// Package executor implements per-computer file copying: given
// a set of resolved rules targeting one computer, it copies each matched
// source file to its resolved final path beneath the computer's directory,
// rejecting escapes and missing sources without aborting the rest of the
// batch.
package executor

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ccsync/ccsync/pkg/ccsyncfs"
	"github.com/ccsync/ccsync/pkg/rules"
)

// InterComputerPause is the cooperative pacing delay after copying to one
// computer, before control returns to the caller. It is a var, not a const, so tests can
// shrink it.
var InterComputerPause = 25 * time.Millisecond

// Status is the three-way outcome of copying to one computer.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

// SkipReason classifies why a file was not copied.
type SkipReason string

const (
	SkipReasonSecurity      SkipReason = "security"
	SkipReasonSourceMissing SkipReason = "source_missing"
)

// CopiedFile records one successful copy.
type CopiedFile struct {
	SourceAbsolutePath string
	FinalTargetPath    string
}

// SkippedFile records one file that was not copied, and why.
type SkippedFile struct {
	SourceAbsolutePath string
	FinalTargetPath    string
	Reason             SkipReason
	Detail             string
}

// Result is the outcome of copying a batch of rules to one computer.
type Result struct {
	Status        Status
	CopiedFiles   []CopiedFile
	SkippedFiles  []SkippedFile
	Errors        []error
}

// CopyToComputer copies files for one computer. For each rule in rules, it resolves
// the final target path, rejects paths that escape computerDir (treated as
// a security skip, not an error for the whole batch) and rejects missing
// source files (a source-missing skip), then creates parent directories
// and copies the file. After all rules are processed, it pauses for
// InterComputerPause before returning, modeling the game's occasional
// directory reload.
func CopyToComputer(computerDir string, planned []rules.ResolvedFileRule) Result {
	normalizedComputerDir, err := ccsyncfs.NormalizeAbsolute(computerDir)
	if err != nil {
		return Result{
			Status: StatusFailure,
			Errors: []error{errors.Wrap(err, "unable to normalize computer directory")},
		}
	}

	var result Result

	for _, rule := range planned {
		finalPath := rules.ResolveFinalPath(rule.Target, rule.Flatten, rule.SourceRelativePath)
		absoluteTarget := path.Clean(ccsyncfs.Join(normalizedComputerDir, finalPath))

		if !withinDirectory(normalizedComputerDir, absoluteTarget) {
			result.SkippedFiles = append(result.SkippedFiles, SkippedFile{
				SourceAbsolutePath: rule.SourceAbsolutePath,
				FinalTargetPath:    finalPath,
				Reason:             SkipReasonSecurity,
				Detail:             "resolved target escapes the computer directory",
			})
			continue
		}

		if !fileExists(ccsyncfs.ToOSPath(rule.SourceAbsolutePath)) {
			result.SkippedFiles = append(result.SkippedFiles, SkippedFile{
				SourceAbsolutePath: rule.SourceAbsolutePath,
				FinalTargetPath:    finalPath,
				Reason:             SkipReasonSourceMissing,
				Detail:             "source file no longer exists",
			})
			continue
		}

		if err := copyFile(ccsyncfs.ToOSPath(rule.SourceAbsolutePath), ccsyncfs.ToOSPath(absoluteTarget)); err != nil {
			result.Errors = append(result.Errors, errors.Wrapf(err, "copying %s to %s", rule.SourceAbsolutePath, finalPath))
			continue
		}

		result.CopiedFiles = append(result.CopiedFiles, CopiedFile{
			SourceAbsolutePath: rule.SourceAbsolutePath,
			FinalTargetPath:    finalPath,
		})
	}

	result.Status = classify(result)

	time.Sleep(InterComputerPause)

	return result
}

func classify(r Result) Status {
	attempted := len(r.CopiedFiles) + len(r.SkippedFiles) + len(r.Errors)
	switch {
	case attempted == 0:
		return StatusOK
	case len(r.CopiedFiles) == attempted:
		return StatusOK
	case len(r.CopiedFiles) == 0:
		return StatusFailure
	default:
		return StatusPartial
	}
}

// withinDirectory reports whether target is equal to, or nested beneath,
// dir — both already absolute and forward-slash normalized.
func withinDirectory(dir, target string) bool {
	if target == dir {
		return true
	}
	return strings.HasPrefix(target, dir+"/")
}

func fileExists(osPath string) bool {
	info, err := os.Stat(osPath)
	return err == nil && !info.IsDir()
}

func copyFile(sourceOSPath, targetOSPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetOSPath), 0o755); err != nil {
		return errors.Wrap(err, "unable to create parent directory")
	}

	source, err := os.Open(sourceOSPath)
	if err != nil {
		return errors.Wrap(err, "unable to open source file")
	}
	defer source.Close()

	target, err := os.Create(targetOSPath)
	if err != nil {
		return errors.Wrap(err, "unable to create target file")
	}
	defer target.Close()

	if _, err := io.Copy(target, source); err != nil {
		return errors.Wrap(err, "unable to copy file contents")
	}

	return target.Close()
}
