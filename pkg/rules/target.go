package rules

import "github.com/ccsync/ccsync/pkg/ccsyncfs"

// classifyTarget implements step 4: a target is a directory iff it
// ends with a slash or is not file-like; it is a file iff the source glob
// resolved to exactly one file and the target is file-like.
func classifyTarget(targetPath string, matchCount int) Target {
	isDirectory := len(targetPath) > 0 && targetPath[len(targetPath)-1] == '/'
	if !isDirectory {
		isDirectory = !ccsyncfs.PathIsLikelyFile(targetPath)
	}

	if !isDirectory && matchCount == 1 {
		return Target{Type: TargetFile, Path: targetPath}
	}

	// Either genuinely directory-shaped, or file-shaped but fed by more
	// than one matched source file — the latter still behaves as a
	// directory target (each match needs its own final filename).
	return Target{Type: TargetDirectory, Path: targetPath}
}

// ResolveFinalPath computes the final target path for a single matched
// source file under a resolved rule.
func ResolveFinalPath(target Target, flatten bool, sourceRelativePath string) string {
	if target.Type == TargetFile {
		return target.Path
	}

	if flatten {
		return ccsyncfs.Join(target.Path, ccsyncfs.Basename(sourceRelativePath))
	}

	return ccsyncfs.Join(target.Path, sourceRelativePath)
}
