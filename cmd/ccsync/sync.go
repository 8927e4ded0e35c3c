package main

import (
	"github.com/spf13/cobra"

	"github.com/ccsync/ccsync/cmd"
	"github.com/ccsync/ccsync/pkg/controller"
	"github.com/ccsync/ccsync/pkg/executor"
)

func syncMain(command *cobra.Command, arguments []string) error {
	l, err := loadForRun(syncConfiguration.config)
	if err != nil {
		return err
	}

	e := newEngine(l)

	keys, err := newTerminalKeyHandler()
	var handler controller.KeyHandler = keys
	if err != nil {
		handler = newNoninteractiveKeyHandler()
	}

	manual := &controller.Manual{
		Planner:    l.planner,
		Executor:   executor.CopyToComputer,
		UI:         l.sink,
		Logger:     l.logger.Sublogger("manual"),
		KeyHandler: handler,
	}

	handle, err := e.InitManualMode(manual)
	if err != nil {
		return err
	}
	handle.Start()

	waitForTermination(e)
	return nil
}

var syncCommand = &cobra.Command{
	Use:   "sync",
	Short: "Run one or more manual sync cycles against computers in a Minecraft save",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(syncMain),
}

var syncConfiguration struct {
	config string
}

func init() {
	flags := syncCommand.Flags()
	flags.StringVarP(&syncConfiguration.config, "config", "c", "ccsync.yaml", "Path to the ccsync configuration file")
}
