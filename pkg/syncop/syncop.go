package syncop

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ccsync/ccsync/pkg/executor"
	"github.com/ccsync/ccsync/pkg/logging"
	"github.com/ccsync/ccsync/pkg/planner"
	"github.com/ccsync/ccsync/pkg/rules"
	"github.com/ccsync/ccsync/pkg/ui"
)

// errInvalidPlan is the programming-contract violation returned when
// PerformSync is called with an invalid plan.
var errInvalidPlan = errors.New("performSync called with an invalid plan")

// Executor abstracts CopyToComputer so tests can substitute a fake without
// touching the filesystem; executor.CopyToComputer satisfies it directly.
type Executor func(computerDir string, planned []rules.ResolvedFileRule) executor.Result

// PerformSync requires plan.IsValid (callers must
// check before calling — a violation is a programming error, reported as
// a FatalError rather than panicking, per the "nothing escapes"
// rule), builds one ComputerResult per plan computer (including missing
// ones, which never get a copy pass), executes the copy pass per available
// computer in plan order, merges results, and computes the rollup status.
func PerformSync(plan planner.SyncPlan, copy Executor, sink ui.Sink, logger *logging.Logger) Result {
	id := uuid.NewString()

	if !plan.IsValid {
		return Result{ID: id, Status: StatusError, FatalError: errInvalidPlan}
	}

	if logger != nil {
		logger = logger.Sublogger(id[:8])
	}

	sink.StartSyncOperation()

	byComputer, order := planComputers(plan)

	totalFiles := 0
	for _, cid := range order {
		totalFiles += len(byComputer[cid].PlannedFiles)
	}
	sink.UpdateOperationStats(ui.OperationStats{
		TotalFiles:     totalFiles,
		TotalComputers: len(order) + len(plan.MissingComputerIDs),
	})

	for _, cid := range order {
		computerResult := byComputer[cid]
		rulesForComputer := rulesTargeting(plan.ResolvedFileRules, cid)

		computerDir := computerPath(plan, cid)
		execResult := copy(computerDir, rulesForComputer)

		if execResult.Status == executor.StatusFailure && len(execResult.Errors) > 0 {
			if logger != nil {
				logger.Warn(execResult.Errors[0])
			}
			return Result{
				ID:         id,
				Status:     StatusError,
				Computers:  finalizeComputers(byComputer, order, plan.MissingComputerIDs),
				FatalError: execResult.Errors[0],
			}
		}

		mergeExecutorResult(&computerResult, execResult)
		byComputer[cid] = computerResult
	}

	computers := finalizeComputers(byComputer, order, plan.MissingComputerIDs)
	summary := rollupSummary(computers, plan.Issues)
	status := rollupStatus(summary)

	for _, err := range collectErrors(computers) {
		sink.AddMessage(ui.MessageError, err, "")
	}
	if summary.MissingComputers > 0 {
		sink.AddMessage(ui.MessageWarning, "some computers referenced by rules were not found", "")
	}
	sink.UpdateComputerResults(computers)

	result := Result{ID: id, Status: status, Computers: computers, Summary: summary}
	sink.CompleteOperation(result)
	sink.WriteMessages(ui.WriteOptions{ClearMessagesOnWrite: true})

	return result
}

func planComputers(plan planner.SyncPlan) (map[string]ComputerResult, []string) {
	byComputer := make(map[string]ComputerResult)
	var order []string

	for _, rule := range plan.ResolvedFileRules {
		finalPath := rules.ResolveFinalPath(rule.Target, rule.Flatten, rule.SourceRelativePath)
		for _, id := range rule.Computers {
			cr, ok := byComputer[id]
			if !ok {
				cr = ComputerResult{ComputerID: id, Exists: true}
				order = append(order, id)
			}
			cr.PlannedFiles = append(cr.PlannedFiles, PlannedFile{
				SourceAbsolutePath: rule.SourceAbsolutePath,
				FinalTargetPath:    finalPath,
			})
			byComputer[id] = cr
		}
	}

	for _, id := range plan.MissingComputerIDs {
		if _, ok := byComputer[id]; !ok {
			byComputer[id] = ComputerResult{ComputerID: id, Exists: false}
		}
	}

	return byComputer, order
}

func rulesTargeting(resolved []rules.ResolvedFileRule, computerID string) []rules.ResolvedFileRule {
	var out []rules.ResolvedFileRule
	for _, r := range resolved {
		for _, id := range r.Computers {
			if id == computerID {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func computerPath(plan planner.SyncPlan, computerID string) string {
	for _, c := range plan.AvailableComputers {
		if c.ID == computerID {
			return c.Path
		}
	}
	return ""
}

func mergeExecutorResult(cr *ComputerResult, execResult executor.Result) {
	copied := make(map[string]bool, len(execResult.CopiedFiles))
	for _, c := range execResult.CopiedFiles {
		copied[c.SourceAbsolutePath+"\x00"+c.FinalTargetPath] = true
	}

	for i := range cr.PlannedFiles {
		pf := &cr.PlannedFiles[i]
		key := pf.SourceAbsolutePath + "\x00" + pf.FinalTargetPath
		if copied[key] {
			pf.Success = true
			cr.SuccessCount++
		}
	}
	cr.FailureCount += len(execResult.SkippedFiles) + len(execResult.Errors)
}

func finalizeComputers(byComputer map[string]ComputerResult, order, missing []string) []ComputerResult {
	var out []ComputerResult
	for _, id := range order {
		out = append(out, byComputer[id])
	}
	for _, id := range missing {
		if cr, ok := byComputer[id]; ok && !contains(order, id) {
			out = append(out, cr)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func rollupSummary(computers []ComputerResult, issues []rules.Issue) Summary {
	var s Summary
	s.TotalComputers = len(computers)
	for _, cr := range computers {
		if !cr.Exists {
			s.MissingComputers++
			continue
		}
		s.TotalFiles += len(cr.PlannedFiles)
		s.SuccessfulFiles += cr.SuccessCount
		s.FailedFiles += cr.FailureCount

		switch {
		case cr.FailureCount == 0:
			s.FullySuccessfulComputers++
		case cr.SuccessCount == 0:
			s.FailedComputers++
		default:
			s.PartiallySuccessfulComputers++
		}
	}
	for _, issue := range issues {
		if issue.Severity == rules.SeverityWarning {
			s.WarningIssues++
		}
	}
	return s
}

// rollupStatus computes the overall rollup status from the computed
// per-computer/file counts and the plan's warning-severity issues.
func rollupStatus(s Summary) Status {
	switch {
	case s.TotalFiles == 0:
		return StatusWarning
	case s.SuccessfulFiles == 0 && s.FailedFiles > 0:
		return StatusError
	case s.FailedFiles > 0:
		return StatusPartial
	case s.MissingComputers > 0 || s.WarningIssues > 0:
		return StatusWarning
	default:
		return StatusSuccess
	}
}

func collectErrors(computers []ComputerResult) []string {
	var out []string
	for _, cr := range computers {
		if cr.FailureCount > 0 {
			out = append(out, cr.ComputerID+": "+strconv.Itoa(cr.FailureCount)+" file(s) not copied")
		}
	}
	return out
}
