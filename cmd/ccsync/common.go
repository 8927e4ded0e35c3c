package main

import (
	"os"

	"github.com/pkg/errors"

	"github.com/ccsync/ccsync/pkg/config"
	"github.com/ccsync/ccsync/pkg/engine"
	"github.com/ccsync/ccsync/pkg/logging"
	"github.com/ccsync/ccsync/pkg/planner"
	"github.com/ccsync/ccsync/pkg/ui"
)

var stdout = os.Stdout

// loaded bundles everything building an engine needs out of a config file.
type loaded struct {
	cfg     config.Config
	logger  *logging.Logger
	planner *planner.Planner
	sink    ui.Sink
}

// logFilePath is where advanced.logToFile directs logging.SetOutput.
const logFilePath = "ccsync.log"

// loadForRun loads path, builds a root logger at the configured level, and
// constructs a Planner and Terminal UI sink over it. Shared by sync, watch,
// and validate so each subcommand's Run is a thin wrapper.
func loadForRun(path string) (loaded, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return loaded{}, errors.Wrap(err, "unable to load configuration")
	}

	if cfg.Advanced.LogToFile {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return loaded{}, errors.Wrap(err, "unable to open log file")
		}
		logging.SetOutput(f)
	}

	logger := logging.NewRoot(cfg.Advanced.LogLevel)
	p := planner.New(cfg.PlannerConfig(), logger.Sublogger("planner"), cfg.Advanced.CacheTTL)

	return loaded{
		cfg:     cfg,
		logger:  logger,
		planner: p,
		sink:    ui.NewTerminal(stdout),
	}, nil
}

// newEngine constructs an Engine wired to l's planner, sink, and logger.
func newEngine(l loaded) *engine.Engine {
	return engine.New(l.planner, l.sink, l.logger.Sublogger("engine"))
}
