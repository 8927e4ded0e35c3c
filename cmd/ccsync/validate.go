package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ccsync/ccsync/cmd"
	"github.com/ccsync/ccsync/pkg/config"
	"github.com/ccsync/ccsync/pkg/planner"
	"github.com/ccsync/ccsync/pkg/rules"
)

// validateMain implements the dry-run planning mode:
// createSyncPlan without ever calling performSync, printing the resolved
// plan's issues so a user can check their configuration without touching
// any computer.
func validateMain(command *cobra.Command, arguments []string) error {
	errs, err := config.Validate(validateConfiguration.config)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Println("error:", e)
		}
		return errors.Errorf("configuration has %d problem(s)", len(errs))
	}

	cfg, err := config.Load(validateConfiguration.config)
	if err != nil {
		return err
	}

	p := planner.New(cfg.PlannerConfig(), nil, cfg.Advanced.CacheTTL)
	plan := p.CreatePlan(planner.Options{ForceRefresh: true})

	fmt.Printf("plan valid: %v\n", plan.IsValid)
	fmt.Printf("resolved files: %d\n", len(plan.ResolvedFileRules))
	fmt.Printf("available computers: %d\n", len(plan.AvailableComputers))
	if len(plan.MissingComputerIDs) > 0 {
		fmt.Printf("missing computers: %v\n", plan.MissingComputerIDs)
	}
	for _, issue := range plan.Issues {
		printIssue(issue)
	}

	return nil
}

func printIssue(issue rules.Issue) {
	fmt.Printf("[%s/%s] %s", issue.Severity, issue.Category, issue.Message)
	if issue.Source != "" {
		fmt.Printf(" (source: %s)", issue.Source)
	}
	if issue.Suggestion != "" {
		fmt.Printf(" — %s", issue.Suggestion)
	}
	fmt.Println()
}

var validateCommand = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file and print the resulting sync plan without syncing (dry run)",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(validateMain),
}

var validateConfiguration struct {
	config string
}

func init() {
	flags := validateCommand.Flags()
	flags.StringVarP(&validateConfiguration.config, "config", "c", "ccsync.yaml", "Path to the ccsync configuration file")
}
