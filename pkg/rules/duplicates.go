package rules

import (
	"sort"
	"strings"
)

// duplicateKey identifies one (computer, final target path) pairing.
type duplicateKey struct {
	computerID string
	targetPath string
}

// DetectDuplicates finds every (computerId,
// finalTargetPath) pair that more than one resolved rule writes to, and
// reports each as a warning rather than an error — a later write simply
// overwrites an earlier one within the same sync, which is surprising but
// not by itself a failure.
func DetectDuplicates(resolved []ResolvedFileRule) []Issue {
	sources := make(map[duplicateKey][]string)

	for _, rule := range resolved {
		finalPath := ResolveFinalPath(rule.Target, rule.Flatten, rule.SourceRelativePath)
		for _, computerID := range rule.Computers {
			key := duplicateKey{computerID: computerID, targetPath: finalPath}
			sources[key] = append(sources[key], rule.SourceAbsolutePath)
		}
	}

	keys := make([]duplicateKey, 0, len(sources))
	for key, froms := range sources {
		if len(froms) >= 2 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].targetPath != keys[j].targetPath {
			return keys[i].targetPath < keys[j].targetPath
		}
		return keys[i].computerID < keys[j].computerID
	})

	issues := make([]Issue, 0, len(keys))
	for _, key := range keys {
		froms := sources[key]
		issues = append(issues, Issue{
			Message: "multiple source files (" + strings.Join(froms, ", ") + ") target " +
				key.targetPath + " on computer " + key.computerID,
			Category: CategoryRule,
			Severity: SeverityWarning,
			Source:   froms[0],
			Sources:  froms,
		})
	}

	return issues
}
