// Package config implements the Configuration provider collaborator: loading, validating, and normalizing the YAML file that describes
// a project's source root, save path, computer groups, rules, and
// advanced tuning knobs.
package config

import (
	"time"

	"github.com/ccsync/ccsync/pkg/logging"
	"github.com/ccsync/ccsync/pkg/planner"
	"github.com/ccsync/ccsync/pkg/rules"
)

// Advanced holds the tuning knobs named in Config.advanced.
type Advanced struct {
	CacheTTL   time.Duration
	UsePolling bool
	LogToFile  bool
	LogLevel   logging.Level
}

// defaultAdvanced returns the structured defaults applied before validation.
func defaultAdvanced() Advanced {
	return Advanced{
		CacheTTL:   5000 * time.Millisecond,
		UsePolling: false,
		LogToFile:  false,
		LogLevel:   logging.LevelInfo,
	}
}

// Config is the validated, fully normalized form of the Configuration
// provider collaborator. Every path it holds is already
// absolute and forward-slash normalized.
type Config struct {
	SourceRoot        string
	MinecraftSavePath string
	ComputerGroups    map[string][]string
	Rules             []rules.SyncRule
	Advanced          Advanced
}

// PlannerConfig projects Config down to the narrower shape pkg/planner
// needs, keeping pkg/planner free of any dependency on pkg/config.
func (c Config) PlannerConfig() planner.Config {
	return planner.Config{
		SourceRoot:        c.SourceRoot,
		MinecraftSavePath: c.MinecraftSavePath,
		ComputerGroups:    c.ComputerGroups,
		Rules:             c.Rules,
	}
}

// ConfigError is a single reportable configuration problem. Errors are
// collected, not first-wins, so one Load call surfaces every problem.
type ConfigError struct {
	Field   string
	Message string
}

func (e ConfigError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
