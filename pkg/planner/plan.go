// Package planner implements sync plan creation and caching: orchestrating the save validator, computer discovery, rule
// resolver, and duplicate detector into a single SyncPlan, and memoizing
// valid plans by a content-derived cache key.
package planner

import (
	"time"

	"github.com/ccsync/ccsync/pkg/computer"
	"github.com/ccsync/ccsync/pkg/rules"
)

// SyncPlan is a snapshot of resolution results for one planning instant.
// IsValid holds iff Issues contains no error-severity entry.
type SyncPlan struct {
	IsValid            bool
	ResolvedFileRules  []rules.ResolvedFileRule
	AvailableComputers []computer.Computer
	MissingComputerIDs []string
	Issues             []rules.Issue
	Timestamp          time.Time
}

// Options selects how CreatePlan behaves for one call.
type Options struct {
	// ForceRefresh bypasses a cache hit.
	ForceRefresh bool
	// ChangedFiles restricts rule resolution to this set, for incremental
	// watch-mode planning. A nil map means "full resolution".
	ChangedFiles map[string]bool
}

func newInvalidPlan(issue rules.Issue) SyncPlan {
	return SyncPlan{
		IsValid: false,
		Issues:  []rules.Issue{issue},
	}
}

func hasError(issues []rules.Issue) bool {
	for _, issue := range issues {
		if issue.Severity == rules.SeverityError {
			return true
		}
	}
	return false
}
