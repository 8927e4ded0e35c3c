// Package rules implements rule resolution: expanding
// declarative SyncRules — with glob patterns, computer groups, directory/file
// targets, and a flatten flag — into concrete ResolvedFileRules, plus target
// path resolution (§4.6) and duplicate-target detection (§4.5).
package rules

import "github.com/ccsync/ccsync/pkg/computer"

// SyncRule is a single declarative mapping from a source glob/file to a
// target path on a set of computers.
type SyncRule struct {
	// Source is a glob pattern or literal path, relative to the source
	// root.
	Source string
	// Target is the destination path. A trailing slash marks it as a
	// directory target.
	Target string
	// Computers is a list of computer ids and/or group names.
	Computers []string
	// Flatten controls how directory targets are populated for matched
	// files. The zero value of this field is meaningless on
	// its own — callers should go through the Flatten() accessor, which
	// applies the documented default of true.
	Flatten *bool
}

// FlattenOrDefault returns the rule's flatten flag, defaulting to true when
// unset.
func (r SyncRule) FlattenOrDefault() bool {
	if r.Flatten == nil {
		return true
	}
	return *r.Flatten
}

// ComputerGroup is a named set of computer ids and/or other group names.
// Groups may nest; the resolver assumes the group graph is acyclic.
type ComputerGroup struct {
	Name    string
	Members []string
}

// TargetType classifies a resolved rule's target.
type TargetType string

const (
	// TargetFile indicates the target names a single file.
	TargetFile TargetType = "file"
	// TargetDirectory indicates the target names a directory that matched
	// source files are placed into.
	TargetDirectory TargetType = "directory"
)

// Target is the classified destination of a resolved rule.
type Target struct {
	Type TargetType
	Path string
}

// ResolvedFileRule is a SyncRule after group and glob expansion, with a
// concrete source file, deduplicated computer list, and classified target.
// Invariant: the source file existed at resolve time.
type ResolvedFileRule struct {
	// SourceAbsolutePath is the absolute, normalized path to the matched
	// source file.
	SourceAbsolutePath string
	// SourceRelativePath is SourceAbsolutePath relative to the source root,
	// used to preserve subtree structure when Flatten is false.
	SourceRelativePath string
	// Flatten is the owning rule's flatten flag.
	Flatten bool
	// Target is the classified destination.
	Target Target
	// Computers is the deduplicated set of computer ids this rule/source
	// pairing targets.
	Computers []string
}

// Severity classifies a SyncPlanIssue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Category classifies the origin of a SyncPlanIssue.
type Category string

const (
	CategorySaveDirectory Category = "save_directory"
	CategoryComputer      Category = "computer"
	CategoryRule          Category = "rule"
	CategoryFileSystem    Category = "file_system"
	CategoryOther         Category = "other"
)

// Issue is a single reportable problem surfaced during planning.
// Nothing escapes the planner boundary as a panic or unchecked error — every
// fallible step in rule resolution converts failures into Issues.
type Issue struct {
	Message    string
	Category   Category
	Severity   Severity
	Suggestion string
	Source     string
	// Sources holds every contributing source path for issues that name
	// more than one, such as a duplicate-target collision. Source above
	// always holds Sources[0] when Sources is non-empty.
	Sources []string
}

// ResolveResult is the output of Resolve.
type ResolveResult struct {
	ResolvedFileRules  []ResolvedFileRule
	AvailableComputers []computer.Computer
	MissingComputerIDs []string
	Issues             []Issue
}
