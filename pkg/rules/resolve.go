package rules

import (
	"strings"

	"github.com/ccsync/ccsync/pkg/computer"
)

// Input bundles everything Resolve needs beyond the rule list itself.
type Input struct {
	// SourceRoot is the absolute, normalized source directory that rule
	// Source fields are relative to.
	SourceRoot string
	// Rules is the declarative rule set.
	Rules []SyncRule
	// Groups maps group name to member tokens (ids or other group names).
	Groups map[string][]string
	// GlobCache memoizes glob expansions across planning cycles; may be
	// nil, in which case every Resolve call expands globs fresh.
	GlobCache *GlobCache
}

// Resolve expands each rule's computers field
// (through group membership), splits requested computer ids into available
// and missing, expands each rule's source glob (intersecting with
// changedFiles when supplied, for watch-mode incremental resolution),
// classifies the target, and emits one ResolvedFileRule per
// (expanded-source-file × expanded-rule).
//
// changedFiles, when non-nil, restricts matched files to that set; a rule contributing zero files after intersection is
// silently dropped rather than reported as an error or warning — this is a
// deliberate, if sharp, design choice: not every glob needs to match every
// incremental change for a rule to still be meaningful overall.
func Resolve(in Input, computers []computer.Computer, changedFiles map[string]bool) ResolveResult {
	available := make(map[string]computer.Computer, len(computers))
	for _, c := range computers {
		available[c.ID] = c
	}

	var result ResolveResult
	missingSeen := make(map[string]bool)
	var missingOrdered []string

	for _, rule := range in.Rules {
		expandedIDs := expandComputerTokens(rule.Computers, in.Groups)

		var ruleAvailable []string
		for _, id := range expandedIDs {
			if _, ok := available[id]; ok {
				ruleAvailable = append(ruleAvailable, id)
			} else if !missingSeen[id] {
				missingSeen[id] = true
				missingOrdered = append(missingOrdered, id)
				result.Issues = append(result.Issues, Issue{
					Message:  "computer " + id + " was not found in this save",
					Category: CategoryComputer,
					Severity: SeverityWarning,
					Source:   rule.Source,
				})
			}
		}
		if len(ruleAvailable) == 0 {
			// Every referenced computer is missing; nothing more to do for
			// this rule, but it was not itself a configuration error.
			continue
		}

		matches, err := expandGlob(in.GlobCache, in.SourceRoot, rule.Source)
		if err != nil {
			result.Issues = append(result.Issues, classifyResolveError(err, rule.Source))
			continue
		}

		if changedFiles != nil {
			var filtered []string
			for _, m := range matches {
				if changedFiles[m] {
					filtered = append(filtered, m)
				}
			}
			matches = filtered
			if len(matches) == 0 {
				// Silently dropped: the change simply did not affect this
				// rule.
				continue
			}
		}

		if len(matches) == 0 {
			continue
		}

		target := classifyTarget(rule.Target, len(matches))
		flatten := rule.FlattenOrDefault()

		for _, sourceAbs := range matches {
			relative := strings.TrimPrefix(sourceAbs, in.SourceRoot)
			relative = strings.TrimPrefix(relative, "/")

			result.ResolvedFileRules = append(result.ResolvedFileRules, ResolvedFileRule{
				SourceAbsolutePath: sourceAbs,
				SourceRelativePath: relative,
				Flatten:            flatten,
				Target:             target,
				Computers:          dedupe(ruleAvailable),
			})
		}
	}

	for _, c := range computers {
		result.AvailableComputers = append(result.AvailableComputers, c)
	}
	result.MissingComputerIDs = missingOrdered

	return result
}

// classifyResolveError implements step 6: messages containing
// "cannot be accessed", "Invalid pattern", or "Permission denied" are
// errors; everything else from this stage is a warning.
func classifyResolveError(err error, source string) Issue {
	msg := err.Error()
	severity := SeverityWarning
	if strings.Contains(msg, "cannot be accessed") ||
		strings.Contains(msg, "invalid pattern") ||
		strings.Contains(msg, "Invalid pattern") ||
		strings.Contains(msg, "Permission denied") {
		severity = SeverityError
	}
	return Issue{
		Message:  msg,
		Category: CategoryRule,
		Severity: severity,
		Source:   source,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
